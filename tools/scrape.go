package tools

import (
	"context"
	"fmt"

	"github.com/mendableai/firecrawl-go"
)

// maxScrapeChars bounds the page text handed back to the model.
const maxScrapeChars = 8000

// scraper is the part of the Firecrawl client the tool uses.
type scraper interface {
	ScrapeURL(url string, params *firecrawl.ScrapeParams) (*firecrawl.FirecrawlDocument, error)
}

// scrapePageTool implements scrape_page.
type scrapePageTool struct {
	app scraper
}

// NewScrapePageTool returns the scrape_page tool backed by Firecrawl.
func NewScrapePageTool(apiKey, apiURL string) (Tool, error) {
	if apiURL == "" {
		apiURL = "https://api.firecrawl.dev"
	}
	app, err := firecrawl.NewFirecrawlApp(apiKey, apiURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firecrawl: %w", err)
	}
	return &scrapePageTool{app: app}, nil
}

func (t *scrapePageTool) Name() string { return "scrape_page" }

func (t *scrapePageTool) Description() string {
	return "Fetch a web page and return its main content as markdown. Use it on the most relevant search results."
}

func (t *scrapePageTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"url": map[string]interface{}{
				"type":        "string",
				"description": "Absolute URL of the page",
			},
		},
		"required": []string{"url"},
	}
}

func (t *scrapePageTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	pageURL, err := Args(args).String("url")
	if err != nil {
		return nil, err
	}

	type outcome struct {
		doc *firecrawl.FirecrawlDocument
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		doc, err := t.app.ScrapeURL(pageURL, &firecrawl.ScrapeParams{Formats: []string{"markdown"}})
		done <- outcome{doc, err}
	}()

	var res outcome
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-done:
	}
	if res.err != nil {
		return nil, fmt.Errorf("scrape failed for %s: %w", pageURL, res.err)
	}
	if res.doc == nil || res.doc.Markdown == "" {
		return nil, fmt.Errorf("no content returned for %s", pageURL)
	}

	content := res.doc.Markdown
	if runes := []rune(content); len(runes) > maxScrapeChars {
		content = string(runes[:maxScrapeChars]) + "\n\n[truncated]"
	}
	return content, nil
}
