package adapter

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"iosctl/internal/repository"

	nmap "github.com/Ullaakut/nmap/v3"
	"github.com/rs/zerolog"
)

// Host is a management endpoint found by a scan
type Host struct {
	Address  string
	Hostname string
	Services []Service
}

// Service is one open port on a host
type Service struct {
	Port    int
	Name    string
	Product string
	Version string
}

// Banner renders the detected product and version
func (s Service) Banner() string {
	return strings.TrimSpace(s.Product + " " + s.Version)
}

// Cisco reports whether service detection identified a Cisco device
func (h Host) Cisco() bool {
	for _, s := range h.Services {
		if strings.Contains(strings.ToLower(s.Product), "cisco") {
			return true
		}
	}
	return false
}

// SSH reports whether the host accepts SSH on the standard port
func (h Host) SSH() bool {
	for _, s := range h.Services {
		if s.Port == 22 {
			return true
		}
	}
	return false
}

// InventoryScanner finds devices reachable for management with nmap
type InventoryScanner struct {
	timeout           time.Duration
	portRange         string
	serviceDetection  bool
	skipHostDiscovery bool
	logger            zerolog.Logger
}

// NewInventoryScanner creates a scanner for SSH and telnet endpoints
func NewInventoryScanner(logger zerolog.Logger, opts ...ScanOption) *InventoryScanner {
	n := &InventoryScanner{
		timeout:          10 * time.Minute,
		portRange:        "22,23",
		serviceDetection: true,
		logger:           logger.With().Str("component", "inventory").Logger(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Scan runs nmap over targets (addresses, names or CIDR ranges)
func (n *InventoryScanner) Scan(ctx context.Context, targets []string) ([]Host, error) {
	targets, err := expandTargets(targets)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	opts := []nmap.Option{
		nmap.WithTargets(targets...),
		nmap.WithPorts(n.portRange),
	}
	if n.serviceDetection {
		opts = append(opts, nmap.WithServiceInfo())
	}
	if n.skipHostDiscovery {
		opts = append(opts, nmap.WithSkipHostDiscovery())
	}

	scanner, err := nmap.NewScanner(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}

	n.logger.Info().Strs("targets", targets).Str("ports", n.portRange).Msg("scanning")
	result, warnings, err := scanner.Run()
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	if warnings != nil && len(*warnings) > 0 {
		n.logger.Warn().Strs("warnings", *warnings).Msg("nmap warnings")
	}

	hosts := hostsFromRun(result)
	n.logger.Info().Int("hosts", len(hosts)).Msg("scan complete")
	return hosts, nil
}

// hostsFromRun keeps hosts that are up with at least one open port
func hostsFromRun(result *nmap.Run) []Host {
	if result == nil {
		return nil
	}
	var hosts []Host
	for _, h := range result.Hosts {
		if len(h.Addresses) == 0 || h.Status.State != "up" {
			continue
		}

		host := Host{Address: primaryAddress(h.Addresses)}
		if len(h.Hostnames) > 0 {
			host.Hostname = h.Hostnames[0].Name
		}
		for _, p := range h.Ports {
			if p.State.State != "open" {
				continue
			}
			name := p.Service.Name
			if name == "" {
				name = wellKnownPorts[int(p.ID)]
			}
			host.Services = append(host.Services, Service{
				Port:    int(p.ID),
				Name:    name,
				Product: p.Service.Product,
				Version: p.Service.Version,
			})
		}
		if len(host.Services) > 0 {
			hosts = append(hosts, host)
		}
	}
	return hosts
}

var wellKnownPorts = map[int]string{
	22: "ssh",
	23: "telnet",
}

// primaryAddress prefers the first IPv4 address
func primaryAddress(addrs []nmap.Address) string {
	for _, a := range addrs {
		if a.AddrType == "ipv4" {
			return a.Addr
		}
	}
	return addrs[0].Addr
}

// Record stores scan results under inventory/<address>/
func Record(ctx context.Context, cache repository.OperCache, hosts []Host) error {
	for _, h := range hosts {
		if h.Hostname != "" {
			if err := cache.Put(ctx, factPath(h.Address, "reverse_dns"), h.Hostname); err != nil {
				return err
			}
		}
		for _, s := range h.Services {
			value := s.Name
			if b := s.Banner(); b != "" {
				value += " " + b
			}
			if err := cache.Put(ctx, factPath(h.Address, "port/"+strconv.Itoa(s.Port)), value); err != nil {
				return err
			}
		}
	}
	return nil
}

// expandTargets validates CIDR targets, leaving names and addresses alone
func expandTargets(targets []string) ([]string, error) {
	var expanded []string
	for _, target := range targets {
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if strings.Contains(target, "/") {
			_, ipNet, err := net.ParseCIDR(target)
			if err != nil {
				return nil, fmt.Errorf("invalid CIDR %s: %w", target, err)
			}
			expanded = append(expanded, ipNet.String())
			continue
		}
		expanded = append(expanded, target)
	}
	return expanded, nil
}

// parsePorts validates a port list such as "22,23" or "1-1024"
func parsePorts(portRange string) (string, error) {
	for _, part := range strings.Split(portRange, ",") {
		part = strings.TrimSpace(part)
		lo, hi, isRange := strings.Cut(part, "-")
		start, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil || start < 1 || start > 65535 {
			return "", fmt.Errorf("invalid port number: %s", lo)
		}
		if !isRange {
			continue
		}
		end, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil || end < start || end > 65535 {
			return "", fmt.Errorf("invalid port range: %s", part)
		}
	}
	return portRange, nil
}
