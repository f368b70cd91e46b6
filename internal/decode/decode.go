package decode

import (
	"encoding/json"
	"fmt"
	"strings"
)

// snippetLen bounds how much of the offending input a DecodeError carries.
const snippetLen = 100

// DecodeError reports that no structured object could be recovered from a
// model response. It carries a short snippet of the original text for
// diagnostics. Callers treat it as "no data", never as a crash condition.
type DecodeError struct {
	Snippet string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("no structured object found in response: %q", e.Snippet)
}

func newDecodeError(raw string) *DecodeError {
	snippet := raw
	if len(snippet) > snippetLen {
		snippet = snippet[:snippetLen]
	}
	return &DecodeError{Snippet: snippet}
}

// Object extracts a single JSON object from free-form model output.
// The text may be a bare object, an object surrounded by prose, or an object
// wrapped in a fenced code block.
func Object(raw string) (map[string]any, error) {
	var obj map[string]any
	if err := Into(raw, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// Into extracts a single JSON object from free-form model output and
// unmarshals it into v. Candidate substrings are tried in strict priority
// order; the first that parses wins:
//
//  1. the entire trimmed text,
//  2. the substring from the first '{' to the last '}',
//  3. the interior of a fenced block labelled json.
//
// Malformed input is the expected case and yields a *DecodeError.
func Into(raw string, v any) error {
	for _, candidate := range candidates(raw) {
		if json.Unmarshal([]byte(candidate), v) == nil {
			return nil
		}
	}
	return newDecodeError(raw)
}

func candidates(raw string) []string {
	out := make([]string, 0, 3)

	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		out = append(out, trimmed)
	}

	if sub, ok := braceSpan(raw); ok {
		out = append(out, sub)
	}

	if inner, ok := fencedJSON(raw); ok {
		out = append(out, inner)
	}

	return out
}

// braceSpan returns the substring between the first '{' and the last '}',
// inclusive. Tolerates leading and trailing prose.
func braceSpan(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// fencedJSON returns the interior of the first ```json fenced block.
// An unterminated fence yields the remainder of the text, which still lets
// the JSON parser succeed when the model forgot the closing fence.
func fencedJSON(s string) (string, bool) {
	const open = "```json"
	i := strings.Index(s, open)
	if i < 0 {
		return "", false
	}
	rest := s[i+len(open):]
	if j := strings.Index(rest, "```"); j >= 0 {
		rest = rest[:j]
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return "", false
	}
	return rest, true
}
