package config

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"iosctl/internal/apply"
	"iosctl/internal/domain"
	"iosctl/internal/secrets"
	"iosctl/internal/transmit"
)

func TestParsePace(t *testing.T) {
	tests := []struct {
		input string
		want  Pace
	}{
		{"cautious", PaceCautious},
		{"balanced", PaceBalanced},
		{"fast", PaceFast},
		{"invalid", PaceBalanced}, // Default
		{"", PaceBalanced},        // Default
	}

	for _, tt := range tests {
		if got := ParsePace(tt.input); got != tt.want {
			t.Errorf("ParsePace(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestPaceGetProfile(t *testing.T) {
	for _, p := range []Pace{PaceCautious, PaceBalanced, PaceFast} {
		profile := p.GetProfile()
		if profile.Timeout == 0 {
			t.Errorf("Pace(%s).GetProfile().Timeout should not be 0", p)
		}
		if profile.ChunkSize == 0 {
			t.Errorf("Pace(%s).GetProfile().ChunkSize should not be 0", p)
		}
	}

	cautious := PaceCautious.GetProfile()
	fast := PaceFast.GetProfile()
	if cautious.Timeout <= fast.Timeout {
		t.Error("Cautious should wait longer than fast")
	}
	if fast.ChunkSize <= 1 {
		t.Error("Fast should send in bulk")
	}

	// The balanced pace is the protocol default
	def := transmit.DefaultSettings()
	balanced := PaceBalanced.GetProfile()
	if balanced.Timeout != def.Timeout || balanced.RetryMax != def.RetryMax {
		t.Errorf("balanced profile %+v differs from protocol defaults %+v", balanced, def)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if cfg.Pace != PaceBalanced {
		t.Errorf("Pace = %s, want %s", cfg.Pace, PaceBalanced)
	}
	if cfg.Store.Path == "" {
		t.Error("Store.Path should not be empty")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestEffectiveTransmission(t *testing.T) {
	cfg := DefaultConfig()

	s := cfg.EffectiveTransmission()
	expected := PaceBalanced.GetProfile()
	if s.Timeout != expected.Timeout {
		t.Errorf("Timeout = %s, want %s", s.Timeout, expected.Timeout)
	}

	timeout := Duration(45 * time.Second)
	chunk := 50
	cfg.Transmission = &TransmissionConfig{
		Timeout:     &timeout,
		ChunkSize:   &chunk,
		RebootTimer: 10,
		AutoAnswers: []transmit.AutoAnswer{{Question: `Overwrite.*\?`, Answer: "y"}},
	}
	s = cfg.EffectiveTransmission()

	if s.Timeout != 45*time.Second {
		t.Errorf("Timeout = %s, want 45s (override)", s.Timeout)
	}
	if s.ChunkSize != 50 {
		t.Errorf("ChunkSize = %d, want 50 (override)", s.ChunkSize)
	}
	if s.RebootTimer != 10 || len(s.AutoAnswers) != 1 {
		t.Errorf("RebootTimer/AutoAnswers not carried: %+v", s)
	}
	// Other fields should still be from pace
	if s.RetryMax != expected.RetryMax {
		t.Errorf("RetryMax = %d, want %d (pace default)", s.RetryMax, expected.RetryMax)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"write on persist", func(c *Config) { c.Transmission = &TransmissionConfig{WriteMemory: "on-persist"} }, false},
		{"bad write mode", func(c *Config) { c.Transmission = &TransmissionConfig{WriteMemory: "always"} }, true},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"bad port", func(c *Config) { c.Device.Port = 70000 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSessionOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Normalize.DisabledQueries = []string{"vlan"}
	cfg.Transmission = &TransmissionConfig{WriteMemory: "on-persist", WriteCommand: "copy running-config startup-config"}

	opts := cfg.SessionOptions()
	if opts.WriteMemory != apply.WriteOnPersist {
		t.Errorf("WriteMemory = %s, want on-persist", opts.WriteMemory)
	}
	if opts.WriteCommand != "copy running-config startup-config" {
		t.Errorf("WriteCommand = %q", opts.WriteCommand)
	}
	if len(opts.Normalize.DisabledQueries) != 1 {
		t.Errorf("DisabledQueries = %v", opts.Normalize.DisabledQueries)
	}
}

func TestSSH(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Device = DeviceConfig{
		Address: "10.0.0.1",
		Credential: domain.Credential{
			ID:   "lab",
			Type: domain.CredentialSSHPassword,
			Data: map[string]string{"username": "admin", "password": "pw"},
		},
		SSH: SSHConfig{InsecureSkipVerify: true, KeyExchanges: []string{"diffie-hellman-group14-sha1"}},
	}

	s := cfg.SSH()
	if s.Address != "10.0.0.1" || s.Credential.Username() != "admin" {
		t.Errorf("unexpected ssh config %+v", s)
	}
	if s.Timeout != 30*time.Second {
		t.Errorf("Timeout = %s, want 30s default", s.Timeout)
	}
	if !s.InsecureSkipVerify || len(s.KeyExchanges) != 1 {
		t.Errorf("ssh policy not carried: %+v", s)
	}
}

func TestDecrypter(t *testing.T) {
	cfg := DefaultConfig()
	d, err := cfg.Decrypter()
	if err != nil || d != nil {
		t.Fatalf("Decrypter() = %v, %v; want nil, nil", d, err)
	}

	tmpDir := t.TempDir()
	keyPath := filepath.Join(tmpDir, "aes.key")
	key := []byte("0123456789abcdef0123456789abcdef")
	if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(key)+"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg.Secrets.AESKeyPath = &keyPath

	d, err = cfg.Decrypter()
	if err != nil {
		t.Fatalf("Decrypter() error: %v", err)
	}
	kd, ok := d.(secrets.KeyDecrypter)
	if !ok || string(kd.AESKey) != string(key) {
		t.Errorf("unexpected decrypter %#v", d)
	}

	short := filepath.Join(tmpDir, "short.key")
	if err := os.WriteFile(short, []byte("abcd"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg.Secrets.AESKeyPath = &short
	if _, err := cfg.Decrypter(); err == nil {
		t.Error("expected error for short key")
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	cfg := DefaultConfig()
	cfg.Pace = PaceFast
	cfg.Device.Address = "10.0.0.1"
	cfg.Scan.Targets = []string{"10.0.0.0/24"}
	retries := 5
	delay := Duration(2 * time.Second)
	cfg.Transmission = &TransmissionConfig{RetryMax: &retries, RetryDelay: &delay, WriteMemory: "disabled"}

	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, path, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if path != configPath {
		t.Errorf("path = %s, want %s", path, configPath)
	}
	if loaded.Pace != PaceFast {
		t.Errorf("Pace = %s, want %s", loaded.Pace, PaceFast)
	}
	if loaded.Device.Address != "10.0.0.1" {
		t.Errorf("Device.Address = %s", loaded.Device.Address)
	}
	if len(loaded.Scan.Targets) != 1 || loaded.Scan.Targets[0] != "10.0.0.0/24" {
		t.Errorf("Scan.Targets = %v, want [10.0.0.0/24]", loaded.Scan.Targets)
	}
	s := loaded.EffectiveTransmission()
	if s.RetryMax != 5 || s.RetryDelay != 2*time.Second {
		t.Errorf("transmission overrides lost: %+v", s)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	data := "transmission:\n  write_memory: sometimes\n"
	if err := os.WriteFile(configPath, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}
	_, _, err := LoadFromPath(configPath)
	if err == nil || !strings.Contains(err.Error(), "write_memory") {
		t.Errorf("LoadFromPath() error = %v, want write_memory error", err)
	}
}

func TestFindConfigPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	cfg := DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	found := FindConfigPath()
	if found == "" {
		t.Error("FindConfigPath() should find config in working directory")
	}

	t.Setenv(EnvConfigPath, "/nonexistent/path.yaml")

	// Explicit path doesn't exist, should fall back
	found = FindConfigPath()
	if found == "" {
		t.Error("FindConfigPath() should fall back when env path doesn't exist")
	}
}

func TestDuration(t *testing.T) {
	d := Duration(5 * time.Minute)

	if d.Duration() != 5*time.Minute {
		t.Errorf("Duration() = %s, want 5m", d.Duration())
	}

	marshaled, err := d.MarshalYAML()
	if err != nil {
		t.Fatalf("MarshalYAML() error: %v", err)
	}
	if marshaled != "5m0s" {
		t.Errorf("MarshalYAML() = %v, want 5m0s", marshaled)
	}
}

func TestSummaryHidesSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Device.Address = "10.0.0.1"
	cfg.Device.Credential = domain.Credential{
		ID:   "lab",
		Type: domain.CredentialSSHPassword,
		Data: map[string]string{"username": "admin", "password": "hunter2"},
	}

	s := cfg.Summary()
	if strings.Contains(s, "hunter2") {
		t.Errorf("Summary leaks the password: %s", s)
	}
	if !strings.Contains(s, "user=admin keys=password,username") {
		t.Errorf("Summary() = %q, want credential keys listed", s)
	}
	if !strings.Contains(s, "Device: 10.0.0.1") {
		t.Errorf("Summary() = %q, want device address", s)
	}
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/netops")

	tests := []struct {
		in, want string
	}{
		{"~/keys/aes.key", "/home/netops/keys/aes.key"},
		{"~", "/home/netops"},
		{"./iosctl.db", "./iosctl.db"},
		{"~other/x", "~other/x"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ExpandHome(tt.in); got != tt.want {
			t.Errorf("ExpandHome(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestKnownHostsDefault(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := DefaultConfig()
	cfg.Device.Address = "10.0.0.1"
	if got := cfg.SSH().KnownHostsPath; got != "" {
		t.Errorf("KnownHostsPath = %q, want empty without ~/.ssh/known_hosts", got)
	}

	kh := filepath.Join(home, ".ssh", "known_hosts")
	if err := os.MkdirAll(filepath.Dir(kh), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(kh, nil, 0600); err != nil {
		t.Fatal(err)
	}
	if got := cfg.SSH().KnownHostsPath; got != kh {
		t.Errorf("KnownHostsPath = %q, want %q", got, kh)
	}

	cfg.Device.SSH.InsecureSkipVerify = true
	if got := cfg.SSH().KnownHostsPath; got != "" {
		t.Errorf("KnownHostsPath = %q, want empty when verification is off", got)
	}

	cfg.Device.SSH.KnownHostsPath = "~/.ssh/lab_hosts"
	if got := cfg.SSH().KnownHostsPath; got != filepath.Join(home, ".ssh", "lab_hosts") {
		t.Errorf("KnownHostsPath = %q, want expanded path", got)
	}
}

func TestLoadExpandsStorePaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "iosctl.yaml")
	cfg := DefaultConfig()
	cfg.Store.Path = "~/state/iosctl.db"
	cfg.Store.TracePath = "~/state/trace.cbor"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, _, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if want := filepath.Join(home, "state", "iosctl.db"); loaded.Store.Path != want {
		t.Errorf("Store.Path = %q, want %q", loaded.Store.Path, want)
	}
	if want := filepath.Join(home, "state", "trace.cbor"); loaded.Store.TracePath != want {
		t.Errorf("Store.TracePath = %q, want %q", loaded.Store.TracePath, want)
	}
}
