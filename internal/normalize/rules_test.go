package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRewriteLine(t *testing.T) {
	tests := []struct {
		name string
		top  string
		line string
		want string
		keep bool
	}{
		{"description quoted", "interface GigabitEthernet0/1", " description uplink to core", ` description "uplink to core"`, true},
		{"msdp description keeps peer", "ip msdp description 10.0.0.1 peer one", "ip msdp description 10.0.0.1 peer one", `ip msdp description 10.0.0.1 "peer one"`, true},
		{"service-insertion description untouched", "service-insertion service-node-group SNG", " description waas nodes", " description waas nodes", true},
		{"service-policy direction", "interface GigabitEthernet0/1", " service-policy in MARK", " service-policy input MARK", true},
		{"bgp vrf address family", "router bgp 65000", " address-family ipv4 vrf blue", " address-family ipv4 unicast vrf blue", true},
		{"track ipv6 default route", "track 10 ipv6 route :: reachability", "track 10 ipv6 route :: reachability", "track 10 ipv6 route ::/0 reachability", true},
		{"mst instance vlans", "spanning-tree mst configuration", " instance 1 vlan 10, 20, 30", " instance 1 vlan 10,20,30", true},
		{"class-map vlans", "class-map match-any VOICE", " match vlan 10 20 30", " match vlan 10,20,30", true},
		{"monitor session ranges", "monitor session 1 source vlan 10 , 20 - 30 rx", "monitor session 1 source vlan 10 , 20 - 30 rx", "monitor session 1 source vlan 10,20-30 rx", true},
		{"l2tp encryption dropped", "l2tp-class L2", " password encryption aes", "", false},
		{"errdisable stp", "errdisable recovery cause channel-misconfig (STP)", "errdisable recovery cause channel-misconfig (STP)", "errdisable recovery cause channel-misconfig", true},
		{"snmp location", "snmp-server location Building 1, Floor 2", "snmp-server location Building 1, Floor 2", `snmp-server location "Building 1, Floor 2"`, true},
		{"kron cli", "kron policy-list BACKUP", " cli write memory", ` cli "write memory"`, true},
		{"trustpoint subject", "crypto pki trustpoint TP", " subject-name CN=r1,O=Lab", ` subject-name "CN=r1,O=Lab"`, true},
		{"domain name", "ip domain-name lab.local", "ip domain-name lab.local", "ip domain name lab.local", true},
		{"no-list passive interface", "router ospf 1", " no passive-interface GigabitEthernet0/1", " disable passive-interface GigabitEthernet0/1", true},
		{"forward protocol", "no ip forward-protocol udp tftp", "no ip forward-protocol udp tftp", "ip forward-protocol udp tftp disabled", true},
		{"boot marker", "boot-start-marker", "boot-start-marker", "", false},
		{"random detect", "policy-map WAN", "  random-detect", "  random-detect precedence-based", true},
		{"untouched", "hostname r1", "hostname r1", "hostname r1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RewriteLine(tt.top, tt.line)
			assert.Equal(t, tt.keep, ok)
			if tt.keep {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestInputRuleNamesUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, r := range InputRules {
		assert.False(t, seen[r.Name], "duplicate rule %s", r.Name)
		seen[r.Name] = true
	}
}

const ruleInput = `interface GigabitEthernet0/1
 description uplink
 service-policy out SHAPE
!
ip explicit-path name P1 enable
 next-address 10.0.0.1
 index 5 next-address 10.0.0.5
 exclude-address 10.0.0.9
!
ip access-list extended WEB
 10 permit tcp any any eq 80
 20 remark web
 30 deny ip any any
!

boot-start-marker
l2tp-class L2
 password encryption aes
!`

func TestApplyInputRules(t *testing.T) {
	t.Run("resequence enabled", func(t *testing.T) {
		want := `interface GigabitEthernet0/1
 description "uplink"
 service-policy output SHAPE
!
ip explicit-path name P1 enable
 index 1 next-address 10.0.0.1
 index 5 next-address 10.0.0.5
 index 6 exclude-address 10.0.0.9
!
ip access-list extended WEB
 permit tcp any any eq 80
 deny ip any any
!
l2tp-class L2
!`
		assert.Equal(t, want, ApplyInputRules(ruleInput, Options{ResequenceACL: true}))
	})

	t.Run("resequence disabled keeps sequence numbers", func(t *testing.T) {
		got := ApplyInputRules(ruleInput, Options{})
		assert.Contains(t, got, " 10 permit tcp any any eq 80\n 20 remark web\n 30 deny ip any any")
	})
}
