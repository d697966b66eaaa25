// Package render turns a markdown résumé into a styled PDF.
//
// Markdown is converted to HTML, wrapped in a fixed stylesheet and printed by
// a headless browser. The browser named in Config.Binary is tried first; if it
// fails the engine is asked again with no binary so it can find one on its
// own. A render only counts as successful once the file is on disk and
// non-empty.
package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/vinayprograms/resumematch/errors"
	"github.com/vinayprograms/resumematch/logging"
)

// MinLength is the shortest markdown (in characters, after trimming) that is
// accepted as a résumé.
const MinLength = 50

// DefaultOutputPath is where the PDF goes when no path is configured.
const DefaultOutputPath = "output/enhanced_resume.pdf"

// Attempt names.
const (
	AttemptPrimary  = "primary"
	AttemptFallback = "fallback"
)

// Engine prints an HTML document to PDF bytes. An empty binary asks the
// engine to locate a browser itself.
type Engine interface {
	Name() string
	PrintPDF(ctx context.Context, html string, binary string) ([]byte, error)
}

// Config configures a Renderer.
type Config struct {
	OutputPath string        `toml:"output_path"`
	Binary     string        `toml:"binary"`
	Timeout    time.Duration `toml:"timeout"`
}

// DefaultBinary returns the usual Chrome location for the running platform.
func DefaultBinary() string {
	switch runtime.GOOS {
	case "windows":
		return `C:\Program Files\Google\Chrome\Application\chrome.exe`
	case "darwin":
		return "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"
	}
	return "/usr/bin/chromium"
}

// Result describes a written PDF.
type Result struct {
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	Attempt string `json:"attempt"`
}

// RenderError is returned when both attempts fail. Its message is a
// human-readable summary suitable for handing back to the model.
type RenderError struct {
	Engine   string
	Binary   string
	Primary  error
	Fallback error
}

func (e *RenderError) Error() string {
	var b strings.Builder
	b.WriteString("PDF generation failed.\n")
	fmt.Fprintf(&b, "  primary attempt (%s, browser %s): %v\n", e.Engine, e.Binary, e.Primary)
	fmt.Fprintf(&b, "  fallback attempt (%s, browser from PATH): %v\n", e.Engine, e.Fallback)
	b.WriteString("Install Google Chrome or Chromium, or set render.binary (CHROME_PATH) to the browser executable.")
	return b.String()
}

// Unwrap exposes the failure as a RENDER_FAILED error.
func (e *RenderError) Unwrap() error {
	return errors.New(errors.ErrCodeRenderFailed, "both render attempts failed",
		errors.WithCause(errors.Join(e.Primary, e.Fallback)),
		errors.WithMetadata("engine", e.Engine))
}

// Renderer renders markdown résumés to Config.OutputPath.
type Renderer struct {
	cfg    Config
	engine Engine
	logger *logging.Logger
}

// New creates a Renderer. Empty fields of cfg take their defaults.
func New(cfg Config, engine Engine, logger *logging.Logger) *Renderer {
	if cfg.OutputPath == "" {
		cfg.OutputPath = DefaultOutputPath
	}
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = logging.New()
	}
	return &Renderer{cfg: cfg, engine: engine, logger: logger.WithComponent("render")}
}

// OutputPath returns the configured PDF path.
func (r *Renderer) OutputPath() string {
	return r.cfg.OutputPath
}

// Render converts markdown to PDF and writes it to the output path,
// replacing any previous file.
func (r *Renderer) Render(ctx context.Context, markdown string) (*Result, error) {
	trimmed := strings.TrimSpace(markdown)
	if n := utf8.RuneCountInString(trimmed); n < MinLength {
		return nil, errors.InvalidInput(fmt.Sprintf(
			"résumé content too short (%d characters, need at least %d)", n, MinLength))
	}

	body, err := ToHTML(trimmed)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeRenderFailed, "failed to convert markdown")
	}
	doc := Document(body)

	attempt := AttemptPrimary
	pdf, primaryErr := r.print(ctx, doc, r.cfg.Binary)
	if primaryErr != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), "render interrupted")
		}
		r.logger.Warn("primary render failed, retrying with browser from PATH", map[string]interface{}{
			"engine": r.engine.Name(),
			"binary": r.cfg.Binary,
			"error":  primaryErr.Error(),
		})

		attempt = AttemptFallback
		var fallbackErr error
		pdf, fallbackErr = r.print(ctx, doc, "")
		if fallbackErr != nil {
			if ctx.Err() != nil {
				return nil, errors.Wrap(ctx.Err(), "render interrupted")
			}
			return nil, &RenderError{
				Engine:   r.engine.Name(),
				Binary:   r.cfg.Binary,
				Primary:  primaryErr,
				Fallback: fallbackErr,
			}
		}
	}

	if dir := filepath.Dir(r.cfg.OutputPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrCodeRenderFailed, "failed to create output directory")
		}
	}
	if err := os.WriteFile(r.cfg.OutputPath, pdf, 0o644); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeRenderFailed, "failed to write PDF")
	}

	info, err := os.Stat(r.cfg.OutputPath)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeRenderFailed, "PDF missing after write")
	}
	if info.Size() == 0 {
		return nil, errors.New(errors.ErrCodeRenderFailed, "PDF written but empty",
			errors.WithMetadata("path", r.cfg.OutputPath))
	}

	result := &Result{Path: r.cfg.OutputPath, Size: info.Size(), Attempt: attempt}
	r.logger.Info("pdf saved", map[string]interface{}{
		"path":    result.Path,
		"size":    result.Size,
		"attempt": result.Attempt,
		"engine":  r.engine.Name(),
	})
	return result, nil
}

func (r *Renderer) print(ctx context.Context, html, binary string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	pdf, err := r.engine.PrintPDF(ctx, html, binary)
	if err != nil {
		return nil, err
	}
	if len(pdf) == 0 {
		return nil, fmt.Errorf("%s produced an empty document", r.engine.Name())
	}
	return pdf, nil
}

// NewEngine returns the engine registered under name: "chromedp" (the
// default) or "rod".
func NewEngine(name string) (Engine, error) {
	switch strings.ToLower(name) {
	case "", "chromedp", "chrome":
		return &ChromeEngine{}, nil
	case "rod":
		return &RodEngine{}, nil
	}
	return nil, errors.InvalidInput(fmt.Sprintf("unknown render engine %q", name))
}
