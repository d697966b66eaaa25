// Package config loads resumematch.toml, applies .env and environment
// overrides, and validates the result.
package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/vinayprograms/resumematch/errors"
	"github.com/vinayprograms/resumematch/llm"
	"github.com/vinayprograms/resumematch/memory"
	"github.com/vinayprograms/resumematch/render"
	"github.com/vinayprograms/resumematch/telemetry"
)

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = "resumematch.toml"

// Config is the full runtime configuration.
type Config struct {
	Paths     PathsConfig     `toml:"paths"`
	LLM       LLMConfig       `toml:"llm"`
	Render    RenderConfig    `toml:"render"`
	Search    SearchConfig    `toml:"search"`
	Memory    MemoryConfig    `toml:"memory"`
	Security  SecurityConfig  `toml:"security"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Log       LogConfig       `toml:"log"`
}

// PathsConfig locates pipeline inputs and outputs.
type PathsConfig struct {
	Resume         string `toml:"resume" validate:"required"`
	JobDescription string `toml:"jd" validate:"required"`
	OutputDir      string `toml:"output_dir" validate:"required"`
	Agents         string `toml:"agents"`
	Tasks          string `toml:"tasks"`
}

// LLMConfig selects the model backing every agent.
type LLMConfig struct {
	Provider    string        `toml:"provider" validate:"omitempty,oneof=anthropic openai google groq mistral openrouter ollama ollama-local lmstudio litellm openai-compat"`
	Model       string        `toml:"model" validate:"required"`
	MaxTokens   int           `toml:"max_tokens" validate:"gte=0"`
	BaseURL     string        `toml:"base_url" validate:"omitempty,url"`
	MaxRetries  int           `toml:"max_retries" validate:"gte=0"`
	InitBackoff time.Duration `toml:"init_backoff"`
	MaxBackoff  time.Duration `toml:"max_backoff"`
}

// RenderConfig configures PDF output.
type RenderConfig struct {
	Engine     string        `toml:"engine" validate:"omitempty,oneof=chromedp chrome rod"`
	OutputPath string        `toml:"output_path"`
	Binary     string        `toml:"binary"`
	Timeout    time.Duration `toml:"timeout"`
}

// SearchConfig configures the web research tools.
type SearchConfig struct {
	FirecrawlURL string `toml:"firecrawl_url" validate:"omitempty,url"`
}

// MemoryConfig configures the crew note index.
type MemoryConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// SecurityConfig configures framing and scanning of tool output.
type SecurityConfig struct {
	Guard bool `toml:"guard"`
	// Patterns are extra "name:regex" injection patterns.
	Patterns []string `toml:"patterns"`
}

// TelemetryConfig configures OTLP trace export.
type TelemetryConfig struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"`
	Protocol string `toml:"protocol" validate:"omitempty,oneof=grpc http"`
	Insecure bool   `toml:"insecure"`
}

// LogConfig configures console logging.
type LogConfig struct {
	Level string `toml:"level" validate:"oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Resume:         filepath.Join("input", "cv.pdf"),
			JobDescription: filepath.Join("input", "jd.txt"),
			OutputDir:      "output",
		},
		LLM: LLMConfig{
			Model:       "claude-sonnet-4-20250514",
			MaxTokens:   4096,
			MaxRetries:  5,
			InitBackoff: time.Second,
			MaxBackoff:  60 * time.Second,
		},
		Render: RenderConfig{
			Engine:  "chromedp",
			Timeout: 60 * time.Second,
		},
		Memory: MemoryConfig{
			Path: filepath.Join(".resumematch", "memory.bleve"),
		},
		Security: SecurityConfig{Guard: true},
		Telemetry: TelemetryConfig{
			Protocol: "grpc",
		},
		Log: LogConfig{Level: "info"},
	}
}

var validate = validator.New()

// Load reads the config file at path on top of the defaults. A missing file
// is not an error when path is the default file name or empty. A .env file in
// the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	explicit := path != "" && path != DefaultFile
	if path == "" {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if _, err := toml.Decode(expandEnvVars(string(data)), cfg); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrCodeInvalidInput, "failed to parse config "+path)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, errors.WrapWithCode(err, errors.ErrCodeNotFound, "failed to read config "+path)
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct constraints and reports every violation.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Wrap(err, "config validation")
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fe.Namespace()+" fails "+fe.Tag())
	}
	return errors.InvalidInput("invalid config: " + strings.Join(problems, "; "))
}

var (
	bracedVar = regexp.MustCompile(`\$\{([^}]+)\}`)
	bareVar   = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
)

// expandEnvVars replaces ${VAR} and $VAR with set environment values.
// Unset variables are left as written.
func expandEnvVars(s string) string {
	s = bracedVar.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
	return bareVar.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[1:]); val != "" {
			return val
		}
		return match
	})
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("RESUMEMATCH_RESUME"); v != "" {
		c.Paths.Resume = v
	}
	if v := os.Getenv("RESUMEMATCH_JD"); v != "" {
		c.Paths.JobDescription = v
	}
	if v := os.Getenv("RESUMEMATCH_OUTPUT_DIR"); v != "" {
		c.Paths.OutputDir = v
	}
	if v := os.Getenv("RESUMEMATCH_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("RESUMEMATCH_RENDER_ENGINE"); v != "" {
		c.Render.Engine = v
	}
	if v := os.Getenv("RESUMEMATCH_MEMORY"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Memory.Enabled = enabled
		}
	}

	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("CHROME_PATH"); v != "" {
		c.Render.Binary = v
	}
	if v := os.Getenv("FIRECRAWL_API_URL"); v != "" {
		c.Search.FirecrawlURL = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
		c.Telemetry.Enabled = true
	}
}

// ProviderConfig builds the LLM provider configuration. The API key is
// resolved separately through the credentials package.
func (c *Config) ProviderConfig(apiKey string) llm.ProviderConfig {
	return llm.ProviderConfig{
		Provider:  c.LLM.Provider,
		Model:     c.LLM.Model,
		APIKey:    apiKey,
		MaxTokens: c.LLM.MaxTokens,
		BaseURL:   c.LLM.BaseURL,
		Retry: llm.RetryConfig{
			MaxRetries:  c.LLM.MaxRetries,
			InitBackoff: c.LLM.InitBackoff,
			MaxBackoff:  c.LLM.MaxBackoff,
		},
	}
}

// RenderConfig builds the renderer configuration. The PDF lands under the
// output directory unless an explicit output path is set.
func (c *Config) RenderConfig() render.Config {
	out := c.Render.OutputPath
	if out == "" {
		out = filepath.Join(c.Paths.OutputDir, filepath.Base(render.DefaultOutputPath))
	}
	return render.Config{
		OutputPath: out,
		Binary:     c.Render.Binary,
		Timeout:    c.Render.Timeout,
	}
}

// NoteStoreConfig builds the memory index configuration.
func (c *Config) NoteStoreConfig() memory.NoteStoreConfig {
	return memory.NoteStoreConfig{Path: c.Memory.Path}
}

// TelemetryConfig builds the OTLP provider configuration.
func (c *Config) TelemetryConfig(version string) telemetry.ProviderConfig {
	return telemetry.ProviderConfig{
		ServiceName:    "resumematch",
		ServiceVersion: version,
		Endpoint:       c.Telemetry.Endpoint,
		Protocol:       c.Telemetry.Protocol,
		Insecure:       c.Telemetry.Insecure,
	}
}
