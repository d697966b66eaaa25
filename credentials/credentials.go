// Package credentials resolves API keys for LLM providers and the search and
// scrape services used by the research agent.
package credentials

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
)

// ErrInsecurePermissions is returned when a credentials file is readable by
// anyone other than its owner.
var ErrInsecurePermissions = fmt.Errorf("credentials file has insecure permissions")

// services never fall back to the generic [llm] key.
var services = map[string]bool{
	"serper":    true,
	"brave":     true,
	"tavily":    true,
	"firecrawl": true,
}

// Credentials holds API keys loaded from a credentials.toml file:
//
//	[llm]
//	api_key = "..."     # used by any LLM provider without its own section
//
//	[anthropic]
//	api_key = "..."
//
//	[serper]
//	api_key = "..."
type Credentials struct {
	sections map[string]section
}

type section struct {
	APIKey string `toml:"api_key"`
}

// StandardPaths returns credential file locations in priority order.
func StandardPaths() []string {
	paths := []string{"credentials.toml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "resumematch", "credentials.toml"))
	}
	return paths
}

// Load loads the first credentials file found in StandardPaths. A missing
// file is not an error; the returned Credentials then resolves keys from the
// environment only.
func Load() (*Credentials, string, error) {
	for _, path := range StandardPaths() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		creds, err := LoadFile(path)
		return creds, path, err
	}
	return &Credentials{}, "", nil
}

// LoadFile loads credentials from path. On Unix the file must have mode 0400.
func LoadFile(path string) (*Credentials, error) {
	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if mode := info.Mode().Perm(); mode != 0400 {
			return nil, fmt.Errorf("%w: %s has mode %04o (must be 0400)",
				ErrInsecurePermissions, path, mode)
		}
	}

	var raw map[string]section
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &Credentials{sections: raw}, nil
}

// GetAPIKey returns the key for provider. Lookup order: the provider's own
// section, the generic [llm] section (LLM providers only), then the
// provider's environment variable.
func (c *Credentials) GetAPIKey(provider string) string {
	name := strings.ToLower(provider)
	if c != nil {
		if s, ok := c.sections[name]; ok && s.APIKey != "" {
			return s.APIKey
		}
		if s, ok := c.sections[strings.ReplaceAll(name, "-", "")]; ok && s.APIKey != "" {
			return s.APIKey
		}
		if !services[name] {
			if s, ok := c.sections["llm"]; ok && s.APIKey != "" {
				return s.APIKey
			}
		}
	}
	return os.Getenv(EnvVar(name))
}

// EnvVar returns the environment variable consulted for provider.
func EnvVar(provider string) string {
	switch provider {
	case "openai", "openai-compat":
		return "OPENAI_API_KEY"
	case "google":
		return "GOOGLE_API_KEY"
	default:
		return strings.ToUpper(strings.ReplaceAll(provider, "-", "_")) + "_API_KEY"
	}
}
