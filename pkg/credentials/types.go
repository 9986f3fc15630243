package credentials

// Credentials represents the stored session tokens in credentials.toml.
type Credentials struct {
	Version int                       `toml:"version"`
	Hosts   map[string]HostCredential `toml:"hosts"`
}

// HostCredential holds the session for a single backend.
type HostCredential struct {
	Username string `toml:"username,omitempty"`
	Token    string `toml:"token"`
}
