package render

import (
	"strings"
	"testing"

	"github.com/vinayprograms/resumematch/errors"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"plain string", "# Résumé", "# Résumé"},
		{"content key", map[string]any{"content": "from content"}, "from content"},
		{"markdown_content key", map[string]any{"markdown_content": "from md"}, "from md"},
		{"text key", map[string]any{"text": "from text", "other": 1}, "from text"},
		{"data key", map[string]any{"data": "from data"}, "from data"},
		{"key priority", map[string]any{"data": "d", "content": "c"}, "c"},
		{"nested", map[string]any{"data": map[string]any{"content": "deep"}}, "deep"},
		{"null key skipped", map[string]any{"content": nil, "markdown_content": "# Jane Doe"}, "# Jane Doe"},
		{"unusable key skipped", map[string]any{"content": []any{"a"}, "text": "from text"}, "from text"},
		{"unusable nested skipped", map[string]any{"content": map[string]any{"x": 1}, "data": "from data"}, "from data"},
		{"bytes", []byte("raw"), "raw"},
		{"scalar", 42, "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(ContentFrom(tt.in))
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolve_Malformed(t *testing.T) {
	_, err := Resolve(ContentFrom(map[string]any{"zeta": "x", "alpha": "y"}))
	if !errors.Is(err, errors.ErrCodeMalformedInput) {
		t.Fatalf("code = %v", errors.Code(err))
	}
	if !strings.Contains(err.Error(), "[alpha, zeta]") {
		t.Errorf("message should list sorted keys: %s", err.Error())
	}

	_, err = Resolve(ContentFrom(map[string]any{"content": []any{"a", "b"}}))
	if !errors.Is(err, errors.ErrCodeMalformedInput) {
		t.Errorf("non-text value should be malformed, got %v", err)
	}
}

func TestContentFrom_TypedMap(t *testing.T) {
	c := ContentFrom(map[string]string{"content": "typed"})
	if _, ok := c.(Structured); !ok {
		t.Fatalf("typed map should become Structured, got %T", c)
	}
	got, err := Resolve(c)
	if err != nil || got != "typed" {
		t.Errorf("got %q, %v", got, err)
	}
}

func TestToHTML(t *testing.T) {
	html, err := ToHTML("## Skills\n\n```go\nfunc main() {}\n```\n")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html, "<h2>Skills</h2>") {
		t.Errorf("missing heading: %s", html)
	}
	if !strings.Contains(html, "<pre") {
		t.Errorf("code block should be rendered: %s", html)
	}
}
