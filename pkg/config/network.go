package config

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"
)

const (
	// DefaultTimeout is the default timeout used for RPC requests.
	DefaultTimeout = 10 * time.Second
	// DefaultConfirmationTimeout is the default time a deployment
	// transaction is awaited for.
	DefaultConfirmationTimeout = 2 * time.Minute

	// KeystorePrefix marks an account given as a path to an encrypted JSON
	// keystore file instead of a raw private key.
	KeystorePrefix = "keystore:"
)

type (
	// Network is a network section of the configuration file.
	Network struct {
		URL string `yaml:"URL"`
		// ChainID is a pointer to tell a missing value from zero.
		ChainID  *uint64  `yaml:"ChainID"`
		Accounts []string `yaml:"Accounts"`
		// Timeout is used for every RPC request.
		Timeout time.Duration `yaml:"Timeout"`
		// ConfirmationTimeout limits the time spent waiting for a
		// transaction to be mined.
		ConfirmationTimeout time.Duration `yaml:"ConfirmationTimeout"`
	}

	// NetworkProfile contains validated connection parameters of a network.
	// Environment references are already expanded.
	NetworkProfile struct {
		Name                string
		URL                 string
		ChainID             uint64
		Accounts            []string
		Timeout             time.Duration
		ConfirmationTimeout time.Duration
	}

	// Registry is an immutable set of network profiles.
	Registry struct {
		profiles map[string]NetworkProfile
		literal  []string
	}
)

// NewRegistry validates networks and creates a Registry out of them.
func NewRegistry(networks map[string]Network) (*Registry, error) {
	r := &Registry{
		profiles: make(map[string]NetworkProfile, len(networks)),
	}
	for name, n := range networks {
		p, literal, err := n.profile(name)
		if err != nil {
			return nil, err
		}
		if literal {
			r.literal = append(r.literal, name)
		}
		r.profiles[name] = p
	}
	sort.Strings(r.literal)
	return r, nil
}

// Resolve returns the profile of the named network. The profile is a copy, so
// modifying it doesn't affect the Registry.
func (r *Registry) Resolve(name string) (NetworkProfile, error) {
	p, ok := r.profiles[name]
	if !ok {
		return NetworkProfile{}, fmt.Errorf("%w: network %q is not configured", ErrConfiguration, name)
	}
	p.Accounts = append([]string(nil), p.Accounts...)
	return p, nil
}

// Names returns sorted names of all registered networks.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LiteralKeys returns sorted names of networks that have private keys written
// directly into the configuration file.
func (r *Registry) LiteralKeys() []string {
	return append([]string(nil), r.literal...)
}

func (n Network) profile(name string) (NetworkProfile, bool, error) {
	if name == "" {
		return NetworkProfile{}, false, fmt.Errorf("%w: empty network name", ErrConfiguration)
	}
	rawURL, err := expandEnv(n.URL)
	if err != nil {
		return NetworkProfile{}, false, fmt.Errorf("%w: network %q: URL: %v", ErrConfiguration, name, err)
	}
	if err := validateURL(rawURL); err != nil {
		return NetworkProfile{}, false, fmt.Errorf("%w: network %q: %v", ErrConfiguration, name, err)
	}
	if n.ChainID == nil {
		return NetworkProfile{}, false, fmt.Errorf("%w: network %q: ChainID is missing", ErrConfiguration, name)
	}
	if len(n.Accounts) == 0 {
		return NetworkProfile{}, false, fmt.Errorf("%w: network %q: no accounts", ErrConfiguration, name)
	}
	var literal bool
	accs := make([]string, len(n.Accounts))
	for i, a := range n.Accounts {
		if !strings.Contains(a, "$") && !strings.HasPrefix(a, KeystorePrefix) {
			literal = true
		}
		accs[i], err = expandEnv(a)
		if err != nil {
			return NetworkProfile{}, false, fmt.Errorf("%w: network %q: account #%d: %v", ErrConfiguration, name, i, err)
		}
		if accs[i] == "" {
			return NetworkProfile{}, false, fmt.Errorf("%w: network %q: account #%d is empty", ErrConfiguration, name, i)
		}
	}
	p := NetworkProfile{
		Name:                name,
		URL:                 rawURL,
		ChainID:             *n.ChainID,
		Accounts:            accs,
		Timeout:             n.Timeout,
		ConfirmationTimeout: n.ConfirmationTimeout,
	}
	if p.Timeout == 0 {
		p.Timeout = DefaultTimeout
	}
	if p.ConfirmationTimeout == 0 {
		p.ConfirmationTimeout = DefaultConfirmationTimeout
	}
	return p, literal, nil
}

func validateURL(s string) error {
	if s == "" {
		return fmt.Errorf("URL is not set")
	}
	u, err := url.ParseRequestURI(s)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", s, err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("invalid URL %q: unsupported scheme %q", s, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid URL %q: no host", s)
	}
	return nil
}

// expandEnv replaces ${VAR} and $VAR references with environment values,
// every referenced variable must be set.
func expandEnv(s string) (string, error) {
	var missing []string
	res := os.Expand(s, func(name string) string {
		v, ok := os.LookupEnv(name)
		if !ok {
			missing = append(missing, name)
		}
		return v
	})
	if len(missing) != 0 {
		return "", fmt.Errorf("environment variable(s) not set: %s", strings.Join(missing, ", "))
	}
	return res, nil
}
