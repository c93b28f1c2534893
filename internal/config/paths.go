package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// EnvConfigPath names an explicit config file
	EnvConfigPath = "IOSCTL_CONFIG"
	// ConfigFileName is looked up in the working directory
	ConfigFileName = "iosctl.yaml"
	// ConfigDirName is the per-user and system directory name
	ConfigDirName = "iosctl"
)

// configCandidates lists config locations from most to least specific:
// $IOSCTL_CONFIG, ./iosctl.yaml, $XDG_CONFIG_HOME/iosctl/config.yaml,
// ~/.config/iosctl/config.yaml, /etc/iosctl/config.yaml
func configCandidates() []string {
	var paths []string
	if p := os.Getenv(EnvConfigPath); p != "" {
		paths = append(paths, ExpandHome(p))
	}
	if abs, err := filepath.Abs(ConfigFileName); err == nil {
		paths = append(paths, abs)
	} else {
		paths = append(paths, ConfigFileName)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, ConfigDirName, "config.yaml"))
	}
	if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", ConfigDirName, "config.yaml"))
	}
	return append(paths, filepath.Join("/etc", ConfigDirName, "config.yaml"))
}

// FindConfigPath returns the first existing config file, or "" when none
// exists and defaults apply
func FindConfigPath() string {
	for _, p := range configCandidates() {
		if fileExists(p) {
			return p
		}
	}
	return ""
}

// DefaultConfigPath returns where `config init` writes a new file
func DefaultConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, ConfigDirName, "config.yaml")
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", ConfigDirName, "config.yaml")
	}
	return ConfigFileName
}

// DefaultKnownHostsPath returns the user's OpenSSH known_hosts file when
// one exists
func DefaultKnownHostsPath() string {
	home := os.Getenv("HOME")
	if home == "" {
		return ""
	}
	p := filepath.Join(home, ".ssh", "known_hosts")
	if !fileExists(p) {
		return ""
	}
	return p
}

// ExpandHome resolves a leading ~/ against $HOME. Key files, known_hosts
// and the oper cache are usually written that way in YAML.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home := os.Getenv("HOME")
	if home == "" {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// EnsureConfigDir creates the directory holding configPath
func EnsureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0755)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
