package render

import (
	"context"
	"fmt"
	"io"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// RodEngine prints through go-rod. It never downloads a browser.
type RodEngine struct{}

// Name implements Engine.
func (e *RodEngine) Name() string { return "rod" }

// PrintPDF implements Engine.
func (e *RodEngine) PrintPDF(ctx context.Context, html string, binary string) ([]byte, error) {
	if binary == "" {
		path, ok := launcher.LookPath()
		if !ok {
			return nil, fmt.Errorf("no browser found on PATH")
		}
		binary = path
	}

	l := launcher.New().
		Context(ctx).
		Bin(binary).
		Headless(true).
		NoSandbox(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage")

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer l.Kill()

	browser := rod.New().ControlURL(url).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	if err := page.SetDocumentContent(html); err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("document did not load: %w", err)
	}

	stream, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PreferCSSPageSize: true,
	})
	if err != nil {
		return nil, fmt.Errorf("rod print failed: %w", err)
	}
	defer stream.Close()
	return io.ReadAll(stream)
}
