package secrets

import (
	"fmt"
	"strconv"
	"strings"
)

// xlat is the fixed key stream of the IOS type 7 encoding
const xlat = "dsfd;kfoA,.iyewrkldJKDHSUBsgvca69834ncxv9873254k;fg87"

// Type7Decode reverses an IOS type 7 encoded password
func Type7Decode(encoded string) (string, error) {
	encoded = strings.TrimSpace(encoded)
	if len(encoded) < 4 || len(encoded)%2 != 0 {
		return "", fmt.Errorf("type 7 value %q has invalid length", encoded)
	}

	seed, err := strconv.Atoi(encoded[:2])
	if err != nil {
		return "", fmt.Errorf("type 7 value %q has invalid seed: %w", encoded, err)
	}

	var out strings.Builder
	for i := 2; i < len(encoded); i += 2 {
		b, err := strconv.ParseUint(encoded[i:i+2], 16, 8)
		if err != nil {
			return "", fmt.Errorf("type 7 value %q is not hex: %w", encoded, err)
		}
		k := xlat[(seed+(i-2)/2)%len(xlat)]
		out.WriteByte(byte(b) ^ k)
	}
	return out.String(), nil
}

// Type7Encode encodes plain with the given seed (0-15)
func Type7Encode(plain string, seed int) string {
	seed %= 16
	var out strings.Builder
	fmt.Fprintf(&out, "%02d", seed)
	for i := 0; i < len(plain); i++ {
		fmt.Fprintf(&out, "%02X", plain[i]^xlat[(seed+i)%len(xlat)])
	}
	return out.String()
}
