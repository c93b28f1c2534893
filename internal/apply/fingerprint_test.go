package apply

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "volatile lines",
			in:   "Load for five secs: 1%/0%\nTime source is NTP, 10:00:00\nhostname r1\n\n",
			want: "hostname r1",
		},
		{
			name: "static routes",
			in:   "ip route vrf B 0.0.0.0 0.0.0.0 1.1.1.1\nip route vrf A 0.0.0.0 0.0.0.0 1.1.1.1\nhostname r1\nip route vrf C x\n",
			want: "ip route vrf A 0.0.0.0 0.0.0.0 1.1.1.1\nip route vrf B 0.0.0.0 0.0.0.0 1.1.1.1\nhostname r1\nip route vrf C x",
		},
		{
			name: "neighbors inside a block",
			in:   "router bgp 1\n neighbor 10.0.0.2 remote-as 2\n neighbor 10.0.0.1 remote-as 2\n bgp log-neighbor-changes\n",
			want: "router bgp 1\n neighbor 10.0.0.1 remote-as 2\n neighbor 10.0.0.2 remote-as 2\n bgp log-neighbor-changes",
		},
		{
			name: "route-map match interface",
			in:   "route-map RM permit 10\n match interface Vlan20 Gi0/1 Vlan10\n",
			want: "route-map RM permit 10\n match interface Gi0/1 Vlan10 Vlan20",
		},
		{
			name: "match interface elsewhere",
			in:   "policy-map P\n match interface Vlan20 Gi0/1\n",
			want: "policy-map P\n match interface Vlan20 Gi0/1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonical(tt.in))
		})
	}
}

func TestFingerprintStable(t *testing.T) {
	a := "Load for five secs: 1%\nipv6 route ::/0 Null0\nipv6 route 2001::/16 Null0\nhostname r1\n"
	b := "Load for five secs: 9%\nipv6 route 2001::/16 Null0\nipv6 route ::/0 Null0\nhostname r1\n"

	fa := Fingerprint(a)
	assert.Len(t, fa, 32)
	assert.Equal(t, fa, Fingerprint(b))
	assert.NotEqual(t, fa, Fingerprint("hostname r2\n"))
}
