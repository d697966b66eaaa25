package tools

import (
	"encoding/json"
	"fmt"
)

// Args wraps tool arguments with typed accessors.
type Args map[string]interface{}

// String gets a required string argument.
func (a Args) String(key string) (string, error) {
	v, ok := a[key]
	if !ok {
		return "", fmt.Errorf("%s is required", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string, got %T", key, v)
	}
	return s, nil
}

// StringOr gets an optional string argument. Empty strings count as absent.
func (a Args) StringOr(key, defaultVal string) string {
	s, ok := a[key].(string)
	if !ok || s == "" {
		return defaultVal
	}
	return s
}

// IntOr gets an optional integer argument.
// JSON numbers decode as float64.
func (a Args) IntOr(key string, defaultVal int) int {
	switch n := a[key].(type) {
	case int:
		return n
	case float64:
		return int(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return defaultVal
		}
		return int(i)
	}
	return defaultVal
}

// Has reports whether key is present.
func (a Args) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// Raw returns the value for key, or nil.
func (a Args) Raw(key string) interface{} {
	return a[key]
}
