package normalize

import (
	"errors"
	"testing"

	"iosctl/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrim(t *testing.T) {
	raw := "show running-config\r\n" +
		"Building configuration...\r\n" +
		"\r\n" +
		"Current configuration : 1234 bytes\r\n" +
		"!\r\n" +
		"! Last configuration change at 10:00:00 UTC Mon Oct 19 2026\r\n" +
		"! NVRAM config last updated at 10:00:00 UTC Mon Oct 19 2026\r\n" +
		"!\r\n" +
		"version 15.2\r\n" +
		"ntp clock-period 17179\r\n" +
		"hostname r1\r\n" +
		"%LINK-3-UPDOWN: Interface Gi0/1, changed state to up\r\n" +
		"!\r\n" +
		"end\r\n" +
		"\r\n" +
		"r1#"

	got, err := Trim(raw)
	require.NoError(t, err)
	assert.Equal(t, "!\nversion 15.2\nhostname r1\n!", got)
}

func TestTrimStripsIncompleteComments(t *testing.T) {
	raw := "crypto ikev2 profile P\n ! Profile incomplete\n match identity remote any\n!\nend"
	got, err := Trim(raw)
	require.NoError(t, err)
	assert.Equal(t, "crypto ikev2 profile P\n match identity remote any\n!", got)
}

func TestTrimInvalidInput(t *testing.T) {
	_, err := Trim("show running-config\n% Invalid input detected at '^' marker.\n")
	require.Error(t, err)

	var rej *domain.DeviceRejectedError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, "% Invalid input detected at '^' marker.", rej.Reply)
	assert.True(t, domain.IsFatal(err))
}
