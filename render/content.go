package render

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/vinayprograms/resumematch/errors"
)

// Content is what a model handed to the PDF tool: either plain text or a
// structured object that wraps the text under some key.
type Content interface {
	isContent()
}

// Text is markdown passed as a plain string.
type Text string

// Structured is an object-shaped payload.
type Structured map[string]any

func (Text) isContent()       {}
func (Structured) isContent() {}

// contentKeys are tried in order when resolving Structured content.
var contentKeys = []string{"content", "markdown_content", "text", "data"}

// ContentFrom classifies an arbitrary decoded value.
func ContentFrom(v any) Content {
	switch c := v.(type) {
	case Content:
		return c
	case string:
		return Text(c)
	case []byte:
		return Text(c)
	case map[string]any:
		return Structured(c)
	case fmt.Stringer:
		return Text(c.String())
	case nil:
		return Text("")
	}

	// Typed maps and structs decode into a generic object when they can.
	if raw, err := json.Marshal(v); err == nil {
		var obj map[string]any
		if json.Unmarshal(raw, &obj) == nil && obj != nil {
			return Structured(obj)
		}
	}
	return Text(fmt.Sprint(v))
}

// Resolve returns the markdown carried by c.
func Resolve(c Content) (string, error) {
	switch v := c.(type) {
	case Text:
		return string(v), nil
	case Structured:
		var rejected []string
		for _, key := range contentKeys {
			inner, ok := v[key]
			if !ok || inner == nil {
				continue
			}
			var (
				text string
				err  error
			)
			switch iv := inner.(type) {
			case string:
				return iv, nil
			case map[string]any:
				text, err = Resolve(Structured(iv))
			case Structured:
				text, err = Resolve(iv)
			default:
				rejected = append(rejected, fmt.Sprintf("%q is %s", key, describe(inner)))
				continue
			}
			if err == nil {
				return text, nil
			}
			rejected = append(rejected, fmt.Sprintf("%q: %s", key, errors.As(err).Message()))
		}
		msg := "unrecognized content shape: " + describe(map[string]any(v))
		if len(rejected) > 0 {
			msg += "; not text: " + strings.Join(rejected, "; ")
		}
		return "", errors.MalformedInput(msg)
	case nil:
		return "", errors.MalformedInput("no content provided")
	}
	return "", errors.MalformedInput(fmt.Sprintf("unsupported content type %T", c))
}

func describe(v any) string {
	switch x := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return fmt.Sprintf("object with keys [%s]", strings.Join(keys, ", "))
	case []any:
		return fmt.Sprintf("array of %d items", len(x))
	case nil:
		return "null"
	}
	return fmt.Sprintf("%T value %v", v, v)
}
