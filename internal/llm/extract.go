package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ExtractJSON returns the span from the first '{' to the last '}' inclusive.
// If either brace is missing or the last '}' precedes the first '{', text is returned unchanged.
// Prose containing braces before or after the real object is not handled.
func ExtractJSON(text string) string {
	open := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if open < 0 || end < 0 || end < open {
		return text
	}
	return text[open : end+1]
}

// Fields is a decoded top-level JSON object whose members are read leniently.
// Accessors return the zero value when a key is absent or holds an unexpected type.
type Fields map[string]json.RawMessage

// ParseObject decodes candidate into Fields. It fails only on malformed JSON
// or when the top-level value is not an object.
func ParseObject(candidate string) (Fields, error) {
	var f Fields
	if err := json.Unmarshal([]byte(candidate), &f); err != nil {
		return nil, fmt.Errorf("invalid model json: %w", err)
	}
	if f == nil {
		return nil, errors.New("invalid model json: top-level value is null")
	}
	return f, nil
}

// Has reports whether key is present and not null.
func (f Fields) Has(key string) bool {
	raw, ok := f[key]
	return ok && !isNull(raw)
}

// String returns the text of a scalar member. Numbers and booleans are
// returned in their JSON spelling.
func (f Fields) String(key string) string {
	s, _ := scalarText(f[key])
	return s
}

// Float returns a finite numeric member, accepting numeric strings. def is returned
// otherwise, including for "NaN" and "Infinity".
func (f Fields) Float(key string, def float64) float64 {
	raw := bytes.TrimSpace(f[key])
	if len(raw) == 0 {
		return def
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return finiteOr(n, def)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return finiteOr(n, def)
		}
	}
	return def
}

func finiteOr(n, def float64) float64 {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return def
	}
	return n
}

// Strings returns the scalar elements of an array member. Non-scalar elements are skipped.
// The result is never nil.
func (f Fields) Strings(key string) []string {
	out := []string{}
	var elems []json.RawMessage
	if err := json.Unmarshal(f[key], &elems); err != nil {
		return out
	}
	for _, e := range elems {
		if s, ok := scalarText(e); ok {
			out = append(out, s)
		}
	}
	return out
}

// Object returns a nested object member, or nil.
func (f Fields) Object(key string) Fields {
	var nested Fields
	if err := json.Unmarshal(f[key], &nested); err != nil {
		return nil
	}
	return nested
}

// Objects returns the object elements of an array member. Other elements are skipped.
func (f Fields) Objects(key string) []Fields {
	out := []Fields{}
	var elems []json.RawMessage
	if err := json.Unmarshal(f[key], &elems); err != nil {
		return out
	}
	for _, e := range elems {
		var nested Fields
		if err := json.Unmarshal(e, &nested); err == nil && nested != nil {
			out = append(out, nested)
		}
	}
	return out
}

// Map returns an object member decoded into generic values, or nil.
func (f Fields) Map(key string) map[string]any {
	var m map[string]any
	if err := json.Unmarshal(f[key], &m); err != nil {
		return nil
	}
	return m
}

func scalarText(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case '{', '[', 'n':
		return "", false
	default:
		// number or boolean
		return string(raw), true
	}
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// Snippet shortens s to at most n runes for log output.
func Snippet(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
