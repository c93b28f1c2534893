package adapter

import "time"

// ScanOption is a functional option for configuring InventoryScanner
type ScanOption func(*InventoryScanner)

// WithTimeout sets the timeout for the entire nmap scan
func WithTimeout(d time.Duration) ScanOption {
	return func(n *InventoryScanner) {
		n.timeout = d
	}
}

// WithPortRange sets the ports to scan
// Format: "22,23" or "1-1000" or "22,80-443,8080"
func WithPortRange(ports string) ScanOption {
	return func(n *InventoryScanner) {
		if validated, err := parsePorts(ports); err == nil {
			n.portRange = validated
		}
	}
}

// WithServiceDetection enables or disables service version detection (-sV)
func WithServiceDetection(enabled bool) ScanOption {
	return func(n *InventoryScanner) {
		n.serviceDetection = enabled
	}
}

// WithSkipHostDiscovery treats all hosts as online (-Pn).
// Management networks often drop ICMP.
func WithSkipHostDiscovery(skip bool) ScanOption {
	return func(n *InventoryScanner) {
		n.skipHostDiscovery = skip
	}
}

// WithFastScan only looks for open SSH and telnet ports
func WithFastScan() ScanOption {
	return func(n *InventoryScanner) {
		n.portRange = "22,23"
		n.serviceDetection = false
		n.timeout = 2 * time.Minute
	}
}
