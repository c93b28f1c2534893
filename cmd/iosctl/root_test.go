package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"iosctl/internal/domain"
	"iosctl/internal/trace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetVersion(t *testing.T) {
	SetVersion("1.2.3-test")
	if rootCmd.Version != "1.2.3-test" {
		t.Errorf("Expected version to be 1.2.3-test, got %s", rootCmd.Version)
	}
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "iosctl" {
		t.Errorf("Expected Use to be 'iosctl', got %s", rootCmd.Use)
	}
	if !rootCmd.SilenceUsage {
		t.Error("Expected SilenceUsage to be true")
	}

	want := []string{"show", "fingerprint", "apply", "abort", "revert", "exec", "scan", "trace", "config", "version"}
	for _, name := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected subcommand %q", name)
		}
	}
}

func TestApplyFlags(t *testing.T) {
	cmd := newApplyCmd()
	for _, name := range []string{"from", "to", "diff", "dry", "persist"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("Expected flag --%s", name)
		}
	}
	assert.Equal(t, "-", cmd.Flags().Lookup("diff").DefValue)
}

func TestScanFlags(t *testing.T) {
	cmd := newScanCmd()
	for _, name := range []string{"fast", "ports", "service-detection", "timeout"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("Expected flag --%s", name)
		}
	}
	assert.Equal(t, "true", cmd.Flags().Lookup("service-detection").DefValue)

	require.NoError(t, cmd.Flags().Parse([]string{"--fast", "--service-detection=true", "--timeout", "5m"}))
	assert.True(t, cmd.Flags().Changed("service-detection"))
	d, err := cmd.Flags().GetDuration("timeout")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, d)
}

type fakeLive struct {
	got []string
	err error
}

func (f *fakeLive) LiveCommand(_ context.Context, text string) (string, error) {
	f.got = append(f.got, text)
	if f.err != nil {
		return "", f.err
	}
	return "reply to " + text + "\n", nil
}

func TestRunLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		err     error
		done    bool
		stdout  string
		stderr  string
		forward bool
	}{
		{name: "blank", line: "   "},
		{name: "exit", line: "exit", done: true},
		{name: "quit", line: " quit ", done: true},
		{name: "command", line: " show version ", stdout: "reply to show version\n", forward: true},
		{name: "error", line: "show x", err: errors.New("boom"), stderr: "error: boom\n", forward: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			live := &fakeLive{err: tt.err}
			var stdout, stderr bytes.Buffer
			done := runLine(context.Background(), live, tt.line, &stdout, &stderr)
			assert.Equal(t, tt.done, done)
			assert.Equal(t, tt.stdout, stdout.String())
			assert.Equal(t, tt.stderr, stderr.String())
			assert.Equal(t, tt.forward, len(live.got) == 1)
		})
	}
}

func TestReadSnapshotEmptyPath(t *testing.T) {
	snap, err := readSnapshot("")
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Len())
}

func TestReadSnapshotUnknownFormat(t *testing.T) {
	_, err := readSnapshot("config.toml")
	assert.Error(t, err)
}

func TestPrintEvents(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	events := []trace.Event{
		{Timestamp: ts, Direction: trace.DirectionOut, Line: "hostname r1"},
		{Timestamp: ts, Direction: trace.DirectionIn, Line: "hostname r1", Text: "% Invalid input\n", Class: "error", Attempt: 2},
		{Timestamp: ts, Direction: trace.DirectionLog, Text: "enter config\n"},
	}
	var buf bytes.Buffer
	printEvents(&buf, events)

	assert.Equal(t,
		"2024-01-02T03:04:05Z OUT hostname r1\n"+
			"2024-01-02T03:04:05Z IN  [error] attempt=2 hostname r1\n"+
			"    % Invalid input\n"+
			"2024-01-02T03:04:05Z LOG enter config\n",
		buf.String())
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "iosctl.yaml")

	cmd := newConfigCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"init", path})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), path)

	cmd = newConfigCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"init", path})
	assert.Error(t, cmd.Execute())
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"busy", fmt.Errorf("send: %w", &domain.DeviceRejectedError{Line: "vlan 10", Reply: "% VLAN database busy", Retryable: true}), exitRetry},
		{"rejected", &domain.DeviceRejectedError{Line: "vlan 10", Reply: "% Invalid input"}, 1},
		{"mode exit", &domain.ModeExitUnexpectedError{Line: "end", Reply: "R1#"}, 1},
		{"other", errors.New("dial tcp: refused"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
