package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/vinayprograms/resumematch/logging"
)

// SearchResult is a single search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// searchEndpoints are overridable for tests.
type searchEndpoints struct {
	Serper     string
	Brave      string
	Tavily     string
	DuckDuckGo string
}

var defaultSearchEndpoints = searchEndpoints{
	Serper:     "https://google.serper.dev/search",
	Brave:      "https://api.search.brave.com/res/v1/web/search",
	Tavily:     "https://api.tavily.com/search",
	DuckDuckGo: "https://html.duckduckgo.com/html/",
}

const defaultSearchCooldown = 500 * time.Millisecond

// webSearchTool implements web_search. Keyed backends are tried in order
// Serper, Brave, Tavily; DuckDuckGo needs no key and is always last.
type webSearchTool struct {
	credentials CredentialProvider
	client      *http.Client
	endpoints   searchEndpoints
	logger      *logging.Logger

	mu         sync.Mutex
	lastSearch time.Time
	cooldown   time.Duration
}

// NewWebSearchTool returns the web_search tool.
func NewWebSearchTool(creds CredentialProvider, logger *logging.Logger) Tool {
	if logger == nil {
		logger = logging.New()
	}
	return &webSearchTool{
		credentials: creds,
		client:      &http.Client{Timeout: 30 * time.Second},
		endpoints:   defaultSearchEndpoints,
		logger:      logger.WithComponent("search"),
		cooldown:    defaultSearchCooldown,
	}
}

func (t *webSearchTool) Name() string { return "web_search" }

func (t *webSearchTool) Description() string {
	return "Search the web. Returns titles, URLs and short snippets. Use it to research the hiring company, the role and current industry expectations."
}

func (t *webSearchTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "Search query",
			},
			"count": map[string]interface{}{
				"type":        "integer",
				"description": "Number of results (1-10, default 5)",
			},
		},
		"required": []string{"query"},
	}
}

func (t *webSearchTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	query, err := Args(args).String("query")
	if err != nil {
		return nil, err
	}
	count := Args(args).IntOr("count", 5)
	if count < 1 {
		count = 1
	} else if count > 10 {
		count = 10
	}

	if err := t.wait(ctx); err != nil {
		return nil, err
	}

	type backend struct {
		name   string
		key    string
		search func(ctx context.Context, query string, count int, key string) ([]SearchResult, error)
	}
	backends := []backend{
		{"serper", t.apiKey("serper"), t.searchSerper},
		{"brave", t.apiKey("brave"), t.searchBrave},
		{"tavily", t.apiKey("tavily"), t.searchTavily},
	}
	for _, b := range backends {
		if b.key == "" {
			continue
		}
		results, err := b.search(ctx, query, count, b.key)
		if err == nil {
			return results, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		t.logger.Warn("search backend failed", map[string]interface{}{
			"backend": b.name,
			"error":   err.Error(),
		})
	}
	return t.searchDuckDuckGo(ctx, query, count)
}

// wait enforces the cooldown between consecutive searches.
func (t *webSearchTool) wait(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if elapsed := time.Since(t.lastSearch); elapsed < t.cooldown {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.cooldown - elapsed):
		}
	}
	t.lastSearch = time.Now()
	return nil
}

func (t *webSearchTool) apiKey(service string) string {
	if t.credentials == nil {
		return ""
	}
	return t.credentials.GetAPIKey(service)
}

func (t *webSearchTool) do(req *http.Request, backend string) ([]byte, error) {
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s search failed: %w", backend, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", backend, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s search error (%d): %s", backend, resp.StatusCode, body)
	}
	return body, nil
}

func (t *webSearchTool) searchSerper(ctx context.Context, query string, count int, apiKey string) ([]SearchResult, error) {
	payload, _ := json.Marshal(map[string]interface{}{"q": query, "num": count})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoints.Serper, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", apiKey)
	req.Header.Set("Content-Type", "application/json")

	body, err := t.do(req, "serper")
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse serper response: %w", err)
	}

	results := make([]SearchResult, 0, len(parsed.Organic))
	for _, r := range parsed.Organic {
		results = append(results, SearchResult{Title: r.Title, URL: r.Link, Snippet: r.Snippet})
	}
	return limit(results, count), nil
}

func (t *webSearchTool) searchBrave(ctx context.Context, query string, count int, apiKey string) ([]SearchResult, error) {
	u := fmt.Sprintf("%s?q=%s&count=%d", t.endpoints.Brave, url.QueryEscape(query), count)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Subscription-Token", apiKey)
	req.Header.Set("Accept", "application/json")

	body, err := t.do(req, "brave")
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse brave response: %w", err)
	}

	results := make([]SearchResult, 0, len(parsed.Web.Results))
	for _, r := range parsed.Web.Results {
		results = append(results, SearchResult{Title: r.Title, URL: r.URL, Snippet: r.Description})
	}
	return limit(results, count), nil
}

func (t *webSearchTool) searchTavily(ctx context.Context, query string, count int, apiKey string) ([]SearchResult, error) {
	payload, _ := json.Marshal(map[string]interface{}{
		"api_key":     apiKey,
		"query":       query,
		"max_results": count,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoints.Tavily, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := t.do(req, "tavily")
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse tavily response: %w", err)
	}

	results := make([]SearchResult, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		results = append(results, SearchResult{Title: r.Title, URL: r.URL, Snippet: r.Content})
	}
	return limit(results, count), nil
}

func (t *webSearchTool) searchDuckDuckGo(ctx context.Context, query string, count int) ([]SearchResult, error) {
	u := t.endpoints.DuckDuckGo + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; resumematch)")

	body, err := t.do(req, "duckduckgo")
	if err != nil {
		return nil, err
	}
	return parseDuckDuckGoHTML(body, count)
}

// parseDuckDuckGoHTML reads results from the HTML lite page. Result links
// point at a redirector; the target is in its uddg parameter.
func parseDuckDuckGoHTML(body []byte, count int) ([]SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse duckduckgo response: %w", err)
	}

	var results []SearchResult
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		link := s.Find("a.result__a").First()
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		if title == "" || href == "" {
			return true
		}
		results = append(results, SearchResult{
			Title:   title,
			URL:     resolveRedirect(href),
			Snippet: strings.TrimSpace(s.Find(".result__snippet").First().Text()),
		})
		return len(results) < count
	})
	return results, nil
}

func resolveRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func limit(results []SearchResult, n int) []SearchResult {
	if len(results) > n {
		return results[:n]
	}
	return results
}
