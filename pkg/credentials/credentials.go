// Package credentials persists backend session tokens in the .mathai/
// directory.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/mathai/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0

	// TokenEnvVar overrides any stored token when set.
	TokenEnvVar = "MATHAI_TOKEN"
)

// Manager manages reading and writing credentials.toml in the .mathai/ directory.
type Manager struct {
	targetPath string
}

// NewManager creates a new credentials Manager. If override is non-empty it is
// used as the .mathai/ directory; otherwise the standard dotdir resolution
// applies.
func NewManager(override string) (*Manager, error) {
	path, err := dotdir.File(override, credentialsFile)
	if err != nil {
		return nil, err
	}
	return &Manager{targetPath: path}, nil
}

// Load reads credentials.toml from the target directory.
// Returns an empty Credentials if the file does not exist.
func (m *Manager) Load() (*Credentials, error) {
	data, err := os.ReadFile(m.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Credentials{
				Version: currentVersion,
				Hosts:   make(map[string]HostCredential),
			}, nil
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	creds := &Credentials{}
	if err := toml.Unmarshal(data, creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	if creds.Hosts == nil {
		creds.Hosts = make(map[string]HostCredential)
	}

	return creds, nil
}

// Save writes credentials to credentials.toml with 0600 permissions.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	if err := os.WriteFile(m.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}

	return nil
}

// SetSession stores the session for host.
func (m *Manager) SetSession(host, username, token string) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}

	creds.Hosts[hostKey(host)] = HostCredential{Username: username, Token: token}

	return m.Save(creds)
}

// GetSession returns the stored session for host, or a zero HostCredential.
func (m *Manager) GetSession(host string) (HostCredential, error) {
	creds, err := m.Load()
	if err != nil {
		return HostCredential{}, err
	}

	return creds.Hosts[hostKey(host)], nil
}

// RemoveSession deletes the stored session for host.
func (m *Manager) RemoveSession(host string) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}

	delete(creds.Hosts, hostKey(host))

	return m.Save(creds)
}

// ListHosts returns the backends that have stored sessions.
func (m *Manager) ListHosts() ([]string, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}

	hosts := make([]string, 0, len(creds.Hosts))
	for name := range creds.Hosts {
		hosts = append(hosts, name)
	}

	sort.Strings(hosts)

	return hosts, nil
}

// GetTarget returns the resolved path to the credentials file.
func (m *Manager) GetTarget() string {
	return m.targetPath
}

func hostKey(host string) string {
	return strings.TrimRight(strings.TrimSpace(host), "/")
}
