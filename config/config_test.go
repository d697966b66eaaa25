package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vinayprograms/resumematch/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resumematch.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Paths.Resume != filepath.Join("input", "cv.pdf") {
		t.Errorf("Resume = %q", cfg.Paths.Resume)
	}
	if cfg.Paths.JobDescription != filepath.Join("input", "jd.txt") {
		t.Errorf("JobDescription = %q", cfg.Paths.JobDescription)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	if got := cfg.RenderConfig().OutputPath; got != filepath.Join("output", "enhanced_resume.pdf") {
		t.Errorf("OutputPath = %q", got)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
[paths]
resume = "docs/me.pdf"
output_dir = "out"

[llm]
provider = "openai"
model = "gpt-4o"
max_retries = 2

[render]
engine = "rod"
timeout = "30s"

[memory]
enabled = true

[security]
guard = false
patterns = ["salary_bump:double the salary"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Paths.Resume != "docs/me.pdf" {
		t.Errorf("Resume = %q", cfg.Paths.Resume)
	}
	if cfg.Paths.JobDescription != filepath.Join("input", "jd.txt") {
		t.Error("unset keys should keep their defaults")
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.Model != "gpt-4o" {
		t.Errorf("LLM = %+v", cfg.LLM)
	}
	if cfg.Render.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v", cfg.Render.Timeout)
	}
	if !cfg.Memory.Enabled {
		t.Error("memory should be enabled")
	}
	if cfg.Security.Guard || len(cfg.Security.Patterns) != 1 {
		t.Errorf("Security = %+v", cfg.Security)
	}
	if got := cfg.RenderConfig().OutputPath; got != filepath.Join("out", "enhanced_resume.pdf") {
		t.Errorf("OutputPath = %q", got)
	}

	pc := cfg.ProviderConfig("sk-test")
	if pc.APIKey != "sk-test" || pc.Retry.MaxRetries != 2 {
		t.Errorf("ProviderConfig = %+v", pc)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("explicit missing file should fail with NOT_FOUND, got %v", err)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad engine", "[render]\nengine = \"wkhtmltopdf\"\n", "Engine"},
		{"bad level", "[log]\nlevel = \"loud\"\n", "Level"},
		{"empty model", "[llm]\nmodel = \"\"\n", "Model"},
		{"bad provider", "[llm]\nprovider = \"skynet\"\n", "Provider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Fatalf("expected INVALID_INPUT, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error should name %s: %v", tt.want, err)
			}
		})
	}
}

func TestLoadSyntaxError(t *testing.T) {
	_, err := Load(writeConfig(t, "[paths\nresume = "))
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LLM_MODEL", "gemini-1.5-pro")
	t.Setenv("CHROME_PATH", "/opt/chrome/chrome")
	t.Setenv("RESUMEMATCH_OUTPUT_DIR", "results")
	t.Setenv("RESUMEMATCH_MEMORY", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")

	cfg, err := Load(writeConfig(t, "[llm]\nmodel = \"gpt-4o\"\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Model != "gemini-1.5-pro" {
		t.Errorf("env should win over file, got %q", cfg.LLM.Model)
	}
	if cfg.Render.Binary != "/opt/chrome/chrome" {
		t.Errorf("Binary = %q", cfg.Render.Binary)
	}
	if cfg.Paths.OutputDir != "results" {
		t.Errorf("OutputDir = %q", cfg.Paths.OutputDir)
	}
	if !cfg.Memory.Enabled {
		t.Error("RESUMEMATCH_MEMORY should enable memory")
	}
	if !cfg.Telemetry.Enabled || cfg.Telemetry.Endpoint != "localhost:4317" {
		t.Errorf("Telemetry = %+v", cfg.Telemetry)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("RM_TEST_HOME", "/home/me")
	tests := map[string]string{
		"${RM_TEST_HOME}/cv.pdf":  "/home/me/cv.pdf",
		"$RM_TEST_HOME/cv.pdf":    "/home/me/cv.pdf",
		"${RM_TEST_UNSET}/cv.pdf": "${RM_TEST_UNSET}/cv.pdf",
		"plain":                   "plain",
	}
	for in, want := range tests {
		if got := expandEnvVars(in); got != want {
			t.Errorf("expandEnvVars(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadExpandsVariables(t *testing.T) {
	t.Setenv("RM_TEST_DIR", "/data")
	cfg, err := Load(writeConfig(t, "[paths]\nresume = \"${RM_TEST_DIR}/cv.pdf\"\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Paths.Resume != "/data/cv.pdf" {
		t.Errorf("Resume = %q", cfg.Paths.Resume)
	}
}
