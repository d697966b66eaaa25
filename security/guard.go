package security

import (
	"github.com/vinayprograms/resumematch/logging"
)

// Guard frames tool output as untrusted blocks and scans it.
type Guard struct {
	patterns []Pattern
	logger   *logging.Logger
}

// NewGuard creates a guard using the built-in patterns plus custom
// "name:regex" specs.
func NewGuard(custom []string, logger *logging.Logger) (*Guard, error) {
	extra, err := ParsePatterns(custom)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.New()
	}
	patterns := append(append([]Pattern(nil), builtinPatterns...), extra...)
	return &Guard{patterns: patterns, logger: logger.WithComponent("security")}, nil
}

// Scan returns everything suspicious in content.
func (g *Guard) Scan(content string) []Finding {
	findings := scanPatterns(content, g.patterns)
	if f, ok := DetectEncoding(content); ok {
		findings = append(findings, f)
	}
	return findings
}

// Wrap tags content from source as untrusted data, scanning it first.
// Flagged content is still delivered; the findings are logged.
func (g *Guard) Wrap(source, content string) *Block {
	b := NewBlock(TrustUntrusted, TypeData, source, content)
	b.Findings = g.Scan(content)
	if b.Suspicious() {
		reasons := make([]string, len(b.Findings))
		for i, f := range b.Findings {
			reasons[i] = f.String()
		}
		g.logger.Warn("untrusted content flagged", map[string]interface{}{
			"source":  source,
			"block":   b.ID,
			"reasons": reasons,
		})
	}
	return b
}
