// Package connect turns a provider configuration file into live providers.
package connect

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/goccy/go-yaml"

	"github.com/fairDataSociety/fairdrive-opfs/pkg/provider"
)

var (
	// ErrUnknownProvider is returned for a provider name absent from the
	// configuration.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrUnknownKind is returned for a provider type no constructor is
	// registered for.
	ErrUnknownKind = errors.New("unknown provider kind")
)

// ModuleConfig is the top-level configuration file.
//
//	default: local
//	providers:
//	  local:
//	    type: minio
//	    options:
//	      endpoint: localhost
//	      port: 9000
//	      accessKeyId: ${MINIO_ACCESS_KEY}
//	      secretAccessKey: ${MINIO_SECRET_KEY}
type ModuleConfig struct {
	Default   string                    `yaml:"default,omitempty"`
	Providers map[string]ProviderConfig `yaml:"providers"`
}

// ProviderConfig selects an adapter and carries its options.
type ProviderConfig struct {
	Type    provider.Kind    `yaml:"type"`
	Options provider.Options `yaml:"options"`
}

// LoadConfig decodes YAML from r. ${VAR} references are expanded from the
// environment before decoding.
func LoadConfig(r io.Reader) (*ModuleConfig, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	expanded := os.ExpandEnv(string(raw))

	cfg := &ModuleConfig{}
	if err := yaml.NewDecoder(bytes.NewReader([]byte(expanded))).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Providers == nil {
		cfg.Providers = map[string]ProviderConfig{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFile reads and decodes the file at name.
func LoadConfigFile(name string) (*ModuleConfig, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open config file %s: %w", name, err)
	}
	defer f.Close()

	cfg, err := LoadConfig(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return cfg, nil
}

// Validate checks every provider type and the default name.
func (c *ModuleConfig) Validate() error {
	for name, p := range c.Providers {
		if _, err := provider.ParseKind(string(p.Type)); err != nil {
			return fmt.Errorf("provider %q: %w: %q", name, ErrUnknownKind, p.Type)
		}
	}
	if c.Default != "" {
		if _, ok := c.Providers[c.Default]; !ok {
			return fmt.Errorf("default %q: %w", c.Default, ErrUnknownProvider)
		}
	}
	return nil
}

// Names returns the configured provider names in sorted order.
func (c *ModuleConfig) Names() []string {
	names := make([]string, 0, len(c.Providers))
	for n := range c.Providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// WithCredentials fills username and password for name when the file left
// them empty.
func (c *ModuleConfig) WithCredentials(name, username, password string) {
	p, ok := c.Providers[name]
	if !ok {
		return
	}
	if p.Options.Username == "" {
		p.Options.Username = username
	}
	if p.Options.Password == "" {
		p.Options.Password = password
	}
	c.Providers[name] = p
}
