package domain

import "sort"

// CredentialType categorizes how the adapter logs in to a device
type CredentialType string

const (
	CredentialSSHKey      CredentialType = "ssh_key"
	CredentialSSHPassword CredentialType = "ssh_password"
)

// Credential holds login material for one device.
// Data keys: username, password, private_key, passphrase, enable_secret
type Credential struct {
	// ID names the credential in logs (never the values)
	ID string `json:"id" yaml:"id"`

	// Type selects the SSH authentication method
	Type CredentialType `json:"type" yaml:"type"`

	// Data holds the secret values
	Data map[string]string `json:"data,omitempty" yaml:"data,omitempty"`
}

// CredentialSummary is a safe view of a credential (no sensitive data)
type CredentialSummary struct {
	ID       string         `json:"id"`
	Type     CredentialType `json:"type"`
	Username string         `json:"username,omitempty"`
	// DataKeys lists the keys in Data without exposing values
	DataKeys []string `json:"data_keys"`
}

// Username returns the login name
func (c *Credential) Username() string {
	return c.Data["username"]
}

// EnableSecret returns the privileged-mode password, if any
func (c *Credential) EnableSecret() string {
	return c.Data["enable_secret"]
}

// ToSummary creates a safe summary view of the credential
func (c *Credential) ToSummary() CredentialSummary {
	keys := make([]string, 0, len(c.Data))
	for k := range c.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return CredentialSummary{
		ID:       c.ID,
		Type:     c.Type,
		Username: c.Username(),
		DataKeys: keys,
	}
}
