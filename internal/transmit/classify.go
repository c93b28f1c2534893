package transmit

import (
	"fmt"
	"regexp"
	"strings"

	"iosctl/internal/domain"
)

// retryable replies mean the device is transiently busy
var retryable = compileAll(
	`is in use`,
	`is still in use and cannot be removed`,
	`wait for it to complete`,
	`wait for the current operation to complete`,
	`wait for current config download to complete`,
	`Config update in progress; please wait and retry`,
	`is currently being deconfigured`,
	`is currently deactivating`,
	`is being deleted, please try later`,
	`is being deleted.* Try it later`,
	`being configured in another session.* try again later`,
	`are down, try again later`,
	`Certificate server is busy, initial .* unable to be processed, try again later`,
	`In-use PW template cannot be removed`,
	` already in use by VRF`,
)

// ignoreRetry overrides retryable, matched against the lowercased reply
var ignoreRetry = compileAll(
	`%(\S+): (informational|error): \S+ is in use on`,
	`please remove .* from .* first`,
	`is in use[.] remove from .* before deleting`,
	`first remove .* from the above`,
	`\S+ is in use and cannot be modify or delete`,
)

// staticErrors are fatal even when a warning pattern also matches
var staticErrors = compileAll(
	`Error Message`,
	`HARDWARE_NOT_SUPPORTED`,
	` Incomplete command\.`,
	`password/key will be truncated to 8 characters`,
	`Warning: Current config does not permit HSRP version 1`,
	`Cannot modify internally generated `,
)

// staticWarnings are matched against the lowercased reply
var staticWarnings = compileAll(
	// general
	`warning[:,] \S+.*`,
	`warning:`,
	`.?note:`,
	`info:`,
	`aaa: warning`,
	`success`,
	`enter text message`,
	`enter macro commands one per line`,
	`this commmand is deprecated`,
	`this command requires a reload to take effect`,
	`will take effect after reload`,
	`this command is an unreleased and unsupported feature`,
	`this cli will be deprecated soon`,
	`command accepted but obsolete, unreleased or unsupported`,
	`redundant .* statement`,
	`elapsed time was \d+ seconds`,
	`configuring anyway`,

	// remove
	`all rsa keys will be removed`,
	`all router certs issued using these keys will also be removed`,
	`not all config may be removed and may reappear after`,
	`removed .* policy from .* interface`,
	`this will remove previously`,
	`tunnel interface was deleted`,
	`mac address.*has been deleted from the bridge table`,
	`can't delete last \d+ vty lines`,
	`\S+ profile is removed`,
	`will be removed from .* due to removal of`,
	`removed \d+ (entry|entries)`,
	`removing .+ configuration on all interfaces`,
	`entry not configured`,

	// change
	`changes to .* will not take effect until the next`,
	`security level for .* changed to`,
	`changes to the running .* have been stored`,
	`you are about to \S+grade`,
	`use 'write' command to make`,
	`no change in the configuration`,
	`same config is entered which has no effect`,
	`a system reload is required before .+ change`,
	`changing media to \S+`,
	`.+ set to default configuration`,

	// vrf
	`removed due to \S+abling vrf`,
	`removed due to vrf change`,
	`the static routes in vrf .*with outgoing interface .*will be`,
	`ip.* addresses from all interfaces in vrf .*have been removed`,
	`vrf .*exists but is not enabled`,
	`for vrf .* scheduled for deletion`,
	`unable to remove extended community`,

	// vlan
	`vlan.* does not exist.* creating vlan`,
	`please refer to documentation on configuring ieee 802.1q vlans`,
	`vlan mapping is also changed`,
	`applying vlan changes may take few minutes`,
	`access vlan does not exist`,

	// interface
	`if .*interface does.* support baby giant frames`,
	`no cef interface information`,
	`ip\S+ addresses from all interfaces`,
	`pim configuration for interface`,
	`interface .* hsrp [a-f0-9:]* removed due to vrf change`,
	`(\S+): informational: \S+ is in use on`,
	`ospf will not operate on this interface until ip is configured on it`,
	`command will have no effect with this interface`,
	`portfast has been configured on `,
	`creating a port-channel interface port-channel`,
	`speed auto-negotiation also needs to be set for auto-mdix to take effect`,
	`the multilink group configuration will be removed from all the member links`,
	`is .+ fragmentation may occur`,

	// router
	`peer-group \S+ is not present, but will go ahead and delete`,
	`peergroups are automatically activated when parameters are configured`,
	`all bgp sessions must be reset to take the new`,
	`only classful networks will be redistributed`,
	`reference bandwidth is changed`,

	// certificates and crypto
	`enter the certificate`,
	`certificate accepted`,
	`certificate request sent`,
	`please create rsa keys to enable ssh`,
	`generating \d+ bit rsa keys`,
	`the certificate has been deleted`,
	`crypto-6-isakmp_on_off: isakmp is`,
	`be sure to ask the ca administrator to revoke your certificates`,
	`remove the trustpoint to remove the cert chain`,

	// nat
	`global .* will be port address translated`,
	`outside interface address added`,

	// qos
	`no specific protocol configured in class (.*) for inspection`,
	`conform burst size \S+creased to`,
	`.*propagating cos-map configuration to.*`,
	`.*propagating queue-limit configuration to.*`,
	`cos mutation map`,
	`(cos-map|queue-limit) configured on all .* ports on slot .*`,

	// misc
	`reload or use .* command, for this to take effect`,
	`enabling mls qos globally`,
	`name length exceeded the recommended length of .* characters`,
	`changing vtp domain name from`,
	`setting device to vtp .*`,
	`translating \S+`,
)

// exception accepts or rejects a reply for one particular command,
// overriding the generic tables
type exception struct {
	line  func(line string) bool
	reply func(reply string) bool
	class domain.ReplyClass
}

func equals(s string) func(string) bool {
	return func(v string) bool { return v == s }
}

func prefixed(s string) func(string) bool {
	return func(v string) bool { return strings.HasPrefix(v, s) }
}

func containing(s string) func(string) bool {
	return func(v string) bool { return strings.Contains(v, s) }
}

func anyLine(string) bool { return true }

func oneOf(s ...string) func(string) bool {
	return func(v string) bool {
		for _, x := range s {
			if v == x {
				return true
			}
		}
		return false
	}
}

const invalidInput = "Invalid input detected at"

var exceptions = []exception{
	{equals("no shutdown"), containing("shutdown can't be applied on standby interface"), domain.ReplyWarning},
	{containing("no ip address "), containing("Invalid address"), domain.ReplyWarning},
	{oneOf("no duplex", "no speed", "speed auto"), func(r string) bool {
		return !strings.Contains(r, "Auto-negotiation is enabled. Speed cannot be set")
	}, domain.ReplyWarning},
	{equals("no mpls control-word"), anyLine, domain.ReplyWarning},
	{containing("switchport"), containing("Maximum number of interfaces reached"), domain.ReplyFatal},
	{oneOf("switchport", "no switchport"), anyLine, domain.ReplyWarning},
	{prefixed("no interface LISP"), containing(invalidInput), domain.ReplyWarning},
	{containing("reporting smart-licensing-data"), containing(invalidInput), domain.ReplyWarning},
	{prefixed("ip redirects"), containing("ip redirect is not applicable for p2p link"), domain.ReplyWarning},
	{prefixed("no interface "), containing("Sub-interfaces are not allowed on switchports"), domain.ReplyWarning},
}

// Classifier sorts device replies into reply classes
type Classifier struct {
	dynamic []*regexp.Regexp
}

// NewClassifier creates a classifier with extra warning patterns that are
// matched case-sensitively
func NewClassifier(warnings []string) (*Classifier, error) {
	c := &Classifier{}
	for _, w := range warnings {
		re, err := regexp.Compile(w)
		if err != nil {
			return nil, fmt.Errorf("invalid warning pattern %q: %w", w, err)
		}
		c.dynamic = append(c.dynamic, re)
	}
	return c, nil
}

// Classify decides what the reply to line means. Empty and single character
// replies are a clean prompt.
func (c *Classifier) Classify(line, reply string) domain.ReplyClass {
	reply = strings.TrimSpace(strings.ReplaceAll(reply, "\r", ""))
	if len(reply) <= 1 {
		return domain.ReplyPrompt
	}
	lower := strings.ToLower(reply)

	if matchAny(retryable, reply) && !matchAny(ignoreRetry, lower) {
		return domain.ReplyRetryable
	}
	for _, e := range exceptions {
		if e.line(line) && e.reply(reply) {
			return e.class
		}
	}

	class := domain.ReplyPrompt
	for _, part := range strings.Split(reply, "\n% ") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		switch {
		case matchAny(staticErrors, part):
			return domain.ReplyFatal
		case matchAny(staticWarnings, strings.ToLower(part)), matchAny(c.dynamic, part):
			class = domain.ReplyWarning
		default:
			return domain.ReplyFatal
		}
	}
	return class
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

func matchAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
