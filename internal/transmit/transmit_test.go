package transmit

import (
	"context"
	"errors"
	"testing"

	"iosctl/internal/domain"
	"iosctl/internal/trace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cfgPrompt = "R1(config)#"

func TestSendAccepted(t *testing.T) {
	d := newDevice(cfgPrompt)
	tr, _ := newTransmitter(t, d, DefaultSettings())

	err := tr.Send(context.Background(), lines(
		"hostname r1",
		"interface GigabitEthernet0/1",
		" description what?",
		"!",
	), Strict)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"hostname r1\n",
		"interface GigabitEthernet0/1\n",
		"description what\x16?\n",
	}, d.sent)
	assert.Equal(t, "description what?", tr.LastOK())
	assert.Empty(t, tr.Warnings())
}

func TestRetryBound(t *testing.T) {
	d := newDevice(cfgPrompt)
	d.replies["no vlan 10"] = []string{"% VLAN 10 is in use\r\n" + cfgPrompt}
	s := DefaultSettings()
	s.RetryMax = 2
	tr, sleeps := newTransmitter(t, d, s)

	err := tr.Send(context.Background(), lines("no vlan 10"), Strict)
	require.Error(t, err)

	var rej *domain.DeviceRejectedError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, 3, rej.Attempts)
	assert.Equal(t, "% VLAN 10 is in use", rej.Reply)
	assert.Contains(t, err.Error(), "[2 retries]")
	assert.True(t, domain.IsFatal(err))
	assert.Equal(t, 3, d.count("no vlan 10"))
	assert.Equal(t, 2, *sleeps)
}

func TestRetryThenAccepted(t *testing.T) {
	d := newDevice(cfgPrompt)
	d.replies["no vlan 10"] = []string{
		"% Config update in progress; please wait and retry\r\n" + cfgPrompt,
		cfgPrompt,
	}
	tr, sleeps := newTransmitter(t, d, DefaultSettings())

	require.NoError(t, tr.Send(context.Background(), lines("no vlan 10"), Strict))
	assert.Equal(t, 2, d.count("no vlan 10"))
	assert.Equal(t, 1, *sleeps)
}

func TestIgnoreRetryIsFatal(t *testing.T) {
	d := newDevice(cfgPrompt)
	d.replies["no ip vrf A"] = []string{"% Please remove vrf A from Gi0/1 first. VRF is in use\r\n" + cfgPrompt}
	tr, sleeps := newTransmitter(t, d, DefaultSettings())

	err := tr.Send(context.Background(), lines("no ip vrf A"), Strict)
	assert.ErrorIs(t, err, domain.ErrDeviceRejected)
	assert.Equal(t, 0, *sleeps)
}

func TestModeExitPrecedesRetry(t *testing.T) {
	d := newDevice(cfgPrompt)
	d.replies["no interface Tunnel1"] = []string{"% Interface Tunnel1 is in use\r\nR1#"}
	tr, sleeps := newTransmitter(t, d, DefaultSettings())

	err := tr.Send(context.Background(), lines("no interface Tunnel1", "hostname r1"), Strict)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrModeExitUnexpected)
	assert.Equal(t, 1, d.count("no interface Tunnel1"))
	assert.Equal(t, 0, d.count("hostname r1"))
	assert.Equal(t, 0, *sleeps)

	// never downgraded
	d = newDevice(cfgPrompt)
	d.replies["end"] = []string{"R1#"}
	tr, _ = newTransmitter(t, d, DefaultSettings())
	assert.ErrorIs(t, tr.Send(context.Background(), lines("end"), IgnoreErrors), domain.ErrModeExitUnexpected)
}

func TestRejected(t *testing.T) {
	invalid := "% Invalid input detected at '^' marker."

	t.Run("strict", func(t *testing.T) {
		d := newDevice(cfgPrompt)
		d.replies["foo bar"] = []string{invalid + "\r\n" + cfgPrompt}
		tr, _ := newTransmitter(t, d, DefaultSettings())

		err := tr.Send(context.Background(), lines("hostname r1", "foo bar", "hostname r2"), Strict)
		var rej *domain.DeviceRejectedError
		require.True(t, errors.As(err, &rej))
		assert.Equal(t, "foo bar", rej.Line)
		assert.Equal(t, invalid, rej.Reply)
		assert.Equal(t, "hostname r1", tr.LastOK())
		assert.Equal(t, 0, d.count("hostname r2"))
	})

	t.Run("ignore errors", func(t *testing.T) {
		d := newDevice(cfgPrompt)
		d.replies["foo bar"] = []string{invalid + "\r\n" + cfgPrompt}
		tr, _ := newTransmitter(t, d, DefaultSettings())

		err := tr.Send(context.Background(), lines("foo bar", "hostname r2"), IgnoreErrors)
		require.NoError(t, err)
		assert.Equal(t, "> foo bar\n"+invalid+"\n", tr.Warnings())
		assert.Equal(t, 1, d.count("hostname r2"))
	})
}

func TestWarningRecorded(t *testing.T) {
	d := newDevice(cfgPrompt)
	warning := "%Warning: portfast should only be enabled on ports connected to a single host."
	d.replies["spanning-tree portfast"] = []string{warning + "\r\n" + "R1(config-if)#"}
	tr, _ := newTransmitter(t, d, DefaultSettings())

	require.NoError(t, tr.Send(context.Background(), lines("spanning-tree portfast"), Strict))
	assert.Equal(t, "> spanning-tree portfast\n"+warning+"\n", tr.Warnings())

	// the buffer is reset per send
	require.NoError(t, tr.Send(context.Background(), lines("hostname r1"), Strict))
	assert.Empty(t, tr.Warnings())
}

func TestQuestions(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		raw    map[string]string
		auto   []AutoAnswer
		sent   []string
		reject string
	}{
		{
			name:  "yes completed after answer window",
			reply: "% All keys will be removed.\r\nDo you really want to remove these keys? [yes/no]: ",
			raw:   map[string]string{"y": "y", "es\n": "es\r\n" + cfgPrompt},
			sent:  []string{"crypto key zeroize rsa\n", "y", "es\n"},
		},
		{
			name:  "confirm takes y",
			reply: "Proceed? [confirm]",
			raw:   map[string]string{"y": "y\r\n" + cfgPrompt},
			sent:  []string{"crypto key zeroize rsa\n", "y"},
		},
		{
			name:  "configured answer wins",
			reply: "Continue? [confirm]",
			raw:   map[string]string{"n\n": "n\r\n" + cfgPrompt},
			auto:  []AutoAnswer{{Question: `Continue\? \[confirm\]`, Answer: "n"}},
			sent:  []string{"crypto key zeroize rsa\n", "n\n"},
		},
		{
			name:   "prompted twice",
			reply:  "Proceed? [confirm]",
			raw:    map[string]string{"y": "y\r\nReally? [confirm]"},
			sent:   []string{"crypto key zeroize rsa\n", "y"},
			reject: "prompted twice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDevice(cfgPrompt)
			d.replies["crypto key zeroize rsa"] = []string{tt.reply}
			d.raw = tt.raw
			s := DefaultSettings()
			s.AutoAnswers = tt.auto
			tr, _ := newTransmitter(t, d, s)

			err := tr.Send(context.Background(), lines("crypto key zeroize rsa"), Strict)
			assert.Equal(t, tt.sent, d.sent)
			if tt.reject != "" {
				assert.ErrorIs(t, err, domain.ErrDeviceRejected)
				assert.Contains(t, err.Error(), tt.reject)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestTimeoutCarriesBuffer(t *testing.T) {
	d := newDevice(cfgPrompt)
	d.replies["crypto pki enroll TP"] = []string{"% Start certificate enrollment .."}
	tr, _ := newTransmitter(t, d, DefaultSettings())

	err := tr.Send(context.Background(), lines("crypto pki enroll TP"), Strict)
	var te *domain.ProtocolTimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "crypto pki enroll TP", te.Line)
	assert.Equal(t, "prompt", te.Expected)
	assert.Contains(t, te.Buffered, "Start certificate enrollment")
	assert.True(t, domain.IsFatal(err))
}

func TestSubstitutedLineNotEchoed(t *testing.T) {
	d := newDevice(cfgPrompt)
	tr, _ := newTransmitter(t, d, DefaultSettings())
	rec := &trace.Memory{}
	tr.SetRecorder("s1", rec)

	buf := lines("username admin secret 0 s3cret")
	buf.Lines[0].Substituted = true
	require.NoError(t, tr.Send(context.Background(), buf, Strict))
	assert.Equal(t, "username admin secret *****", tr.LastOK())

	require.NotEmpty(t, rec.Events)
	for _, ev := range rec.Events {
		assert.NotContains(t, ev.Line, "s3cret")
		assert.NotContains(t, ev.Text, "s3cret")
		assert.Equal(t, "s1", ev.Session)
	}
}

func TestLiteralRunAwaitsOnePrompt(t *testing.T) {
	d := newDevice(cfgPrompt)
	d.replies["banner motd ^Hello"] = []string{"Enter TEXT message.  End with the character '^'.\r\n"}
	tr, _ := newTransmitter(t, d, DefaultSettings())

	buf := lines("banner motd ^Hello", "World^", "hostname r1")
	buf.Lines[0].Literal = true
	buf.Lines[1].Literal = true
	require.NoError(t, tr.Send(context.Background(), buf, Strict))
	assert.Equal(t, []string{"banner motd ^Hello\nWorld^\n", "hostname r1\n"}, d.sent)
	assert.Contains(t, tr.Warnings(), "Enter TEXT message")
}

func TestBulk(t *testing.T) {
	d := newDevice(cfgPrompt)
	s := DefaultSettings()
	s.ChunkSize = 2
	tr, _ := newTransmitter(t, d, s)

	err := tr.Send(context.Background(), lines(
		"ip route 0.0.0.0 0.0.0.0 10.0.0.1",
		"ip route 10.1.0.0 255.255.0.0 10.0.0.2",
		"ip access-list extended A",
		" permit ip any any",
		"exit",
		"hostname r1",
	), Strict)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"ip route 0.0.0.0 0.0.0.0 10.0.0.1\nip route 10.1.0.0 255.255.0.0 10.0.0.2\n",
		"ip access-list extended A\npermit ip any any\n",
		"exit\n",
		"hostname r1\n",
	}, d.sent)
	assert.Equal(t, "hostname r1", tr.LastOK())
}

func TestBulkErrors(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		want      string
		retryable bool
	}{
		{"question", "Remove route? [confirm]", "device prompted", false},
		{"busy", "% Config update in progress; please wait and retry\r\n" + cfgPrompt, "retry-command", true},
		{"invalid", "% Invalid input detected at '^' marker.\r\n" + cfgPrompt, "Invalid input", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDevice(cfgPrompt)
			d.replies["no ip route 10.1.0.0 255.255.0.0 10.0.0.2"] = []string{tt.reply}
			s := DefaultSettings()
			s.ChunkSize = 10
			tr, sleeps := newTransmitter(t, d, s)

			err := tr.Send(context.Background(), lines(
				"no ip route 10.1.0.0 255.255.0.0 10.0.0.2",
				"ip route 10.2.0.0 255.255.0.0 10.0.0.2",
			), Strict)
			assert.ErrorIs(t, err, domain.ErrDeviceRejected)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, tt.retryable, !domain.IsFatal(err))
			assert.Equal(t, 0, *sleeps)
			assert.Len(t, d.sent, 1)
		})
	}
}

func TestBulkRun(t *testing.T) {
	tr, _ := newTransmitter(t, newDevice(cfgPrompt), Settings{ChunkSize: 5})
	buf := lines(
		"ip access-list resequence A 1000 1000",
		"ip access-list extended A",
		" 1 permit tcp any any",
		"exit",
		"hostname r1",
		"ip route 1.1.1.1 255.255.255.255 Null0",
	)
	assert.Equal(t, 4, tr.bulkRun(buf.Lines))
	assert.Equal(t, 0, tr.bulkRun(buf.Lines[4:]))
	assert.Equal(t, 1, tr.bulkRun(buf.Lines[5:]))

	tr.settings.ChunkSize = 0
	assert.Equal(t, 0, tr.bulkRun(buf.Lines))
}

func TestEnterAndExitConfig(t *testing.T) {
	d := newDevice("R1#")
	d.raw["config t\n"] = "config t\r\nConfiguration mode is locked by process '3' user 'admin'.\r\n" +
		"Do you want to kill that session and continue? [yes]: "
	d.raw["yes\n"] = "yes\r\nEnter configuration commands, one per line.  End with CNTL/Z.\r\n" + cfgPrompt
	d.raw["end\n"] = "end\r\nR1#"
	tr, _ := newTransmitter(t, d, DefaultSettings())

	require.NoError(t, tr.EnterConfig(context.Background()))
	require.NoError(t, tr.ExitConfig(context.Background()))
	assert.Equal(t, []string{"config t\n", "yes\n", "end\n"}, d.sent)
}

func TestEnterConfigRejected(t *testing.T) {
	d := newDevice("R1#")
	d.raw["config t\n"] = "config t\r\nError: configuration is locked\r\nR1#"
	tr, _ := newTransmitter(t, d, DefaultSettings())

	err := tr.EnterConfig(context.Background())
	assert.ErrorIs(t, err, domain.ErrDeviceRejected)
	assert.Contains(t, err.Error(), "configuration is locked")
}

func TestExec(t *testing.T) {
	d := newDevice("R1#")
	d.replies["show version"] = []string{"Cisco IOS Software, Version 15.2(4)M\r\nuptime is 1 week\r\nR1#"}
	d.replies["clear counters"] = []string{"Do you want to continue? [confirm]"}
	d.raw["y"] = "y\r\nR1#"
	tr, _ := newTransmitter(t, d, DefaultSettings())

	out, err := tr.Exec(context.Background(), "show version")
	require.NoError(t, err)
	assert.Equal(t, "Cisco IOS Software, Version 15.2(4)M\nuptime is 1 week", out)

	out, err = tr.Exec(context.Background(), "clear counters")
	require.NoError(t, err)
	assert.Contains(t, out, "[confirm]")
}

func TestRebootTimer(t *testing.T) {
	d := newDevice(cfgPrompt)
	d.raw["do reload in 5\n"] = "do reload in 5\r\nSystem configuration has been modified. Save? [yes/no]: "
	d.raw["no\n"] = "no\r\nReload scheduled in 5 minutes\r\nProceed with reload? [confirm]"
	d.raw["\n"] = "\r\n" + cfgPrompt + "\r\n***\r\n*** --- SHUTDOWN in 0:05:00 ---\r\n***\r\n" + cfgPrompt
	d.raw["do reload cancel\n"] = "do reload cancel\r\n" + cfgPrompt + "\r\n***\r\n*** --- SHUTDOWN ABORTED ---\r\n***\r\n" + cfgPrompt
	s := DefaultSettings()
	s.RebootTimer = 5
	tr, _ := newTransmitter(t, d, s)

	require.NoError(t, tr.Send(context.Background(), lines("hostname r1"), Strict))
	assert.Equal(t, []string{"do reload in 5\n", "no\n", "\n", "hostname r1\n", "do reload cancel\n"}, d.sent)
}

// armReload scripts the device answers to "do reload in 5"
func armReload(d *device) {
	d.raw["do reload in 5\n"] = "do reload in 5\r\nSystem configuration has been modified. Save? [yes/no]: "
	d.raw["no\n"] = "no\r\nReload scheduled in 5 minutes\r\nProceed with reload? [confirm]"
	d.raw["\n"] = "\r\n" + cfgPrompt + "\r\n***\r\n*** --- SHUTDOWN in 0:05:00 ---\r\n***\r\n" + cfgPrompt
}

func TestRebootTimerCancelAfterModeExit(t *testing.T) {
	d := newDevice(cfgPrompt)
	armReload(d)
	d.replies["end"] = []string{"R1#"}
	d.raw["reload cancel\n"] = "reload cancel\r\nR1#\r\n***\r\n*** --- SHUTDOWN ABORTED ---\r\n***\r\nR1#"
	s := DefaultSettings()
	s.RebootTimer = 5
	tr, _ := newTransmitter(t, d, s)

	err := tr.Send(context.Background(), lines("end"), Strict)
	assert.ErrorIs(t, err, domain.ErrModeExitUnexpected)
	assert.NotErrorIs(t, err, domain.ErrDeviceRejected)
	assert.Equal(t, []string{"do reload in 5\n", "no\n", "\n", "end\n", "reload cancel\n"}, d.sent)
	assert.Empty(t, d.buf)
}

func TestRebootTimerCancelFailureReported(t *testing.T) {
	d := newDevice(cfgPrompt)
	armReload(d)
	d.replies["end"] = []string{"R1#"}
	d.raw["reload cancel\n"] = "reload cancel\r\n% Invalid input detected at '^' marker.\r\n"
	s := DefaultSettings()
	s.RebootTimer = 5
	tr, _ := newTransmitter(t, d, s)

	err := tr.Send(context.Background(), lines("end"), Strict)
	assert.ErrorIs(t, err, domain.ErrModeExitUnexpected)
	assert.ErrorIs(t, err, domain.ErrDeviceRejected)
	assert.Contains(t, err.Error(), "reload command failed")
	assert.True(t, domain.IsFatal(err))
}
