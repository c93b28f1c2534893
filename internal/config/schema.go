package config

import (
	"time"

	"iosctl/internal/domain"
	"iosctl/internal/transmit"
)

// Config is the root configuration structure
type Config struct {
	Version      int                 `yaml:"version"`
	Pace         Pace                `yaml:"pace"`
	Device       DeviceConfig        `yaml:"device"`
	Transmission *TransmissionConfig `yaml:"transmission,omitempty"`
	Normalize    NormalizeConfig     `yaml:"normalize"`
	Store        StoreConfig         `yaml:"store"`
	Secrets      SecretsConfig       `yaml:"secrets"`
	Logging      LoggingConfig       `yaml:"logging"`
	Scan         ScanConfig          `yaml:"scan"`
}

// DeviceConfig says how to reach and log in to the device
type DeviceConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port,omitempty"`

	// Model overrides the platform name learned from show version
	Model string `yaml:"model,omitempty"`

	Credential domain.Credential `yaml:"credential"`
	SSH        SSHConfig         `yaml:"ssh"`
}

// SSHConfig holds host key and algorithm policy
type SSHConfig struct {
	KnownHostsPath     string    `yaml:"known_hosts_path,omitempty"`
	InsecureSkipVerify bool      `yaml:"insecure_skip_verify,omitempty"`
	Ciphers            []string  `yaml:"ciphers,omitempty"`
	KeyExchanges       []string  `yaml:"key_exchanges,omitempty"`
	HostKeyAlgorithms  []string  `yaml:"host_key_algorithms,omitempty"`
	ConnectTimeout     *Duration `yaml:"connect_timeout,omitempty"`
}

// TransmissionConfig overrides the pace defaults of the line protocol
type TransmissionConfig struct {
	Timeout       *Duration `yaml:"timeout,omitempty"`
	ReloadTimeout *Duration `yaml:"reload_timeout,omitempty"`
	RetryMax      *int      `yaml:"retry_max,omitempty"`
	RetryDelay    *Duration `yaml:"retry_delay,omitempty"`
	AnswerWindow  *Duration `yaml:"answer_window,omitempty"`
	ChunkSize     *int      `yaml:"chunk_size,omitempty"`

	// RebootTimer arms "reload in N" minutes around every send
	RebootTimer int `yaml:"reboot_timer,omitempty"`

	AutoAnswers []transmit.AutoAnswer `yaml:"auto_answers,omitempty"`
	Warnings    []string              `yaml:"warnings,omitempty"`

	WriteMemory  string `yaml:"write_memory,omitempty"` // on-commit, on-persist, disabled
	WriteCommand string `yaml:"write_command,omitempty"`
}

// NormalizeConfig tunes show output normalization
type NormalizeConfig struct {
	ResequenceACL   bool     `yaml:"resequence_acl"`
	DisabledQueries []string `yaml:"disabled_queries,omitempty"`
}

// StoreConfig holds file locations
type StoreConfig struct {
	Path      string `yaml:"path"`                 // oper cache database
	TracePath string `yaml:"trace_path,omitempty"` // empty disables tracing
}

// SecretsConfig points at the keys for orchestrator-encrypted values (paths, not values)
type SecretsConfig struct {
	AESKeyPath  *string `yaml:"aes_key_path,omitempty"`
	DES3KeyPath *string `yaml:"des3_key_path,omitempty"`
}

// LoggingConfig selects log level and output format
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// ScanConfig holds inventory scan targets
type ScanConfig struct {
	Targets           []string `yaml:"targets,omitempty"`
	Ports             string   `yaml:"ports,omitempty"`
	SkipHostDiscovery bool     `yaml:"skip_host_discovery,omitempty"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
