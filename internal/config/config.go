// Package config provides configuration management for iosctl.
//
// Config file locations (priority order):
//  1. $IOSCTL_CONFIG
//  2. ./iosctl.yaml
//  3. $XDG_CONFIG_HOME/iosctl/config.yaml
//  4. ~/.config/iosctl/config.yaml
//  5. /etc/iosctl/config.yaml
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"iosctl/internal/adapter"
	"iosctl/internal/apply"
	"iosctl/internal/normalize"
	"iosctl/internal/secrets"
	"iosctl/internal/transmit"

	"gopkg.in/yaml.v3"
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()
	if path == "" {
		return DefaultConfig(), "", nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return &cfg, path, nil
}

// Save writes config to the specified path. The file may hold credentials.
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Pace:    PaceBalanced,
		Store:   StoreConfig{Path: "./iosctl.db"},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Pace == "" {
		c.Pace = PaceBalanced
	}
	if c.Store.Path == "" {
		c.Store.Path = "./iosctl.db"
	}
	c.Store.Path = ExpandHome(c.Store.Path)
	c.Store.TracePath = ExpandHome(c.Store.TracePath)
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
}

// Validate rejects settings that cannot work
func (c *Config) Validate() error {
	if c.Transmission != nil && c.Transmission.WriteMemory != "" {
		if !apply.WriteMode(c.Transmission.WriteMemory).Valid() {
			return fmt.Errorf("invalid write_memory %q: want on-commit, on-persist or disabled", c.Transmission.WriteMemory)
		}
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid logging format %q", c.Logging.Format)
	}
	if c.Device.Port < 0 || c.Device.Port > 65535 {
		return fmt.Errorf("invalid device port %d", c.Device.Port)
	}
	return nil
}

// EffectiveTransmission returns protocol settings with overrides applied
func (c *Config) EffectiveTransmission() transmit.Settings {
	p := c.Pace.GetProfile()
	s := transmit.Settings{
		Timeout:       p.Timeout,
		ReloadTimeout: p.ReloadTimeout,
		RetryMax:      p.RetryMax,
		RetryDelay:    p.RetryDelay,
		AnswerWindow:  p.AnswerWindow,
		ChunkSize:     p.ChunkSize,
	}

	t := c.Transmission
	if t == nil {
		return s
	}
	if t.Timeout != nil {
		s.Timeout = t.Timeout.Duration()
	}
	if t.ReloadTimeout != nil {
		s.ReloadTimeout = t.ReloadTimeout.Duration()
	}
	if t.RetryMax != nil {
		s.RetryMax = *t.RetryMax
	}
	if t.RetryDelay != nil {
		s.RetryDelay = t.RetryDelay.Duration()
	}
	if t.AnswerWindow != nil {
		s.AnswerWindow = t.AnswerWindow.Duration()
	}
	if t.ChunkSize != nil {
		s.ChunkSize = *t.ChunkSize
	}
	s.RebootTimer = t.RebootTimer
	s.AutoAnswers = t.AutoAnswers
	s.Warnings = t.Warnings
	return s
}

// SessionOptions returns the orchestrator options
func (c *Config) SessionOptions() apply.Options {
	opts := apply.Options{
		Normalize: normalize.Options{
			ResequenceACL:   c.Normalize.ResequenceACL,
			DisabledQueries: c.Normalize.DisabledQueries,
		},
	}
	if c.Transmission != nil {
		opts.WriteMemory = apply.WriteMode(c.Transmission.WriteMemory)
		opts.WriteCommand = c.Transmission.WriteCommand
	}
	return opts
}

// SSH returns the transport settings for the configured device
func (c *Config) SSH() adapter.SSHConfig {
	timeout := 30 * time.Second
	if c.Device.SSH.ConnectTimeout != nil {
		timeout = c.Device.SSH.ConnectTimeout.Duration()
	}
	knownHosts := ExpandHome(c.Device.SSH.KnownHostsPath)
	if knownHosts == "" && !c.Device.SSH.InsecureSkipVerify {
		knownHosts = DefaultKnownHostsPath()
	}
	cred := c.Device.Credential
	return adapter.SSHConfig{
		Address:            c.Device.Address,
		Port:               c.Device.Port,
		Credential:         &cred,
		KnownHostsPath:     knownHosts,
		InsecureSkipVerify: c.Device.SSH.InsecureSkipVerify,
		Ciphers:            c.Device.SSH.Ciphers,
		KeyExchanges:       c.Device.SSH.KeyExchanges,
		HostKeyAlgorithms:  c.Device.SSH.HostKeyAlgorithms,
		Timeout:            timeout,
	}
}

// Decrypter loads the keys for orchestrator-encrypted secrets. It returns
// nil when no key is configured.
func (c *Config) Decrypter() (secrets.Decrypter, error) {
	if c.Secrets.AESKeyPath == nil && c.Secrets.DES3KeyPath == nil {
		return nil, nil
	}
	var d secrets.KeyDecrypter
	var err error
	if c.Secrets.AESKeyPath != nil {
		if d.AESKey, err = readKey(*c.Secrets.AESKeyPath, 32); err != nil {
			return nil, err
		}
	}
	if c.Secrets.DES3KeyPath != nil {
		if d.DES3Key, err = readKey(*c.Secrets.DES3KeyPath, 24); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// readKey reads a hex encoded key of the given byte length
func readKey(path string, size int) ([]byte, error) {
	path = ExpandHome(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}
	key, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("decode key %s: %w", path, err)
	}
	if len(key) != size {
		return nil, errors.New("key " + path + " has wrong length")
	}
	return key, nil
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	s := c.EffectiveTransmission()
	cred := c.Device.Credential.ToSummary()
	summary := fmt.Sprintf("Device: %s, Pace: %s\n", c.Device.Address, c.Pace)
	summary += fmt.Sprintf("Credential: %s (%s) user=%s keys=%s\n", cred.ID, cred.Type, cred.Username, strings.Join(cred.DataKeys, ","))
	summary += fmt.Sprintf("Timeout: %s, Retries: %d every %s, Chunk: %d\n", s.Timeout, s.RetryMax, s.RetryDelay, s.ChunkSize)
	summary += fmt.Sprintf("Store: %s", c.Store.Path)
	if c.Store.TracePath != "" {
		summary += fmt.Sprintf(", Trace: %s", c.Store.TracePath)
	}
	return summary
}
