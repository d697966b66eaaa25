package security

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vinayprograms/resumematch/errors"
)

// Pattern is a named expression that suggests injected instructions.
type Pattern struct {
	Name string
	Expr *regexp.Regexp
}

var builtinPatterns = []Pattern{
	{Name: "ignore_previous", Expr: regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|above|prior)\s+(instruction|directive|rule)s?`)},
	{Name: "disregard_previous", Expr: regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|above|prior)`)},
	{Name: "forget_previous", Expr: regexp.MustCompile(`(?i)forget\s+(everything|all\s+previous|your\s+instructions)`)},
	{Name: "new_instructions", Expr: regexp.MustCompile(`(?i)new\s+instructions?\s*:`)},
	{Name: "role_reassignment", Expr: regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|the)\s+`)},
	{Name: "reveal_prompt", Expr: regexp.MustCompile(`(?i)(reveal|show|print|repeat)\s+(your\s+)?(system\s+)?prompt`)},
	{Name: "hiring_directive", Expr: regexp.MustCompile(`(?i)(rate|rank|score|recommend|mark)\s+(this\s+)?(candidate|applicant|resume|résumé)\s+(as\s+)?(an?\s+)?(excellent|perfect|top|highly|strong|ideal)`)},
	{Name: "curl_pipe_shell", Expr: regexp.MustCompile(`(?i)(curl|wget)\s+\S+.*\|\s*(ba|z)?sh`)},
}

// ParsePatterns compiles "name:regex" specs.
func ParsePatterns(specs []string) ([]Pattern, error) {
	patterns := make([]Pattern, 0, len(specs))
	for _, spec := range specs {
		name, expr, ok := strings.Cut(spec, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, errors.InvalidInput(fmt.Sprintf("invalid pattern %q (expected name:regex)", spec))
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrCodeInvalidInput, "invalid regex in pattern "+name)
		}
		patterns = append(patterns, Pattern{Name: strings.TrimSpace(name), Expr: re})
	}
	return patterns, nil
}

// Finding is one reason content was flagged.
type Finding struct {
	Kind  string // "pattern" or "encoding"
	Name  string
	Match string
}

func (f Finding) String() string {
	return f.Kind + ":" + f.Name
}

func scanPatterns(content string, patterns []Pattern) []Finding {
	var findings []Finding
	for _, p := range patterns {
		if m := p.Expr.FindString(content); m != "" {
			findings = append(findings, Finding{Kind: "pattern", Name: p.Name, Match: m})
		}
	}
	return findings
}
