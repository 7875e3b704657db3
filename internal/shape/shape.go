// Package shape copes with the unknown JSON shapes returned by upstream
// services. It is a best-effort boundary adapter, not a parser: callers get
// a usable value or an explicit empty/nil, never an error.
package shape

import (
	"encoding/json"
	"regexp"

	"github.com/trendpulse/pulsed/utils"
)

// Candidate key orders per endpoint, most specific first. These reflect the
// container keys historically observed from the analytics API.
var (
	PostKeys    = []string{"results", "posts", "items", "data"}
	ClusterKeys = []string{"clusters", "items", "results", "data"}
)

// spanRe finds the first {...} or [...] span in free-form text. The match is
// greedy across newlines: with several JSON-like spans present the widest
// first span wins, which is what the dashboard has always relied on.
var spanRe = regexp.MustCompile(`(?s)\{.*\}|\[.*\]`)

// Records extracts the record list from an upstream body of unknown shape.
// The first candidate key holding an array wins; a bare array is used as-is;
// anything else yields an empty list. Absence of data is the empty slice,
// never nil.
func Records(v any, keys ...string) []any {
	if obj, ok := v.(map[string]any); ok {
		for _, k := range keys {
			if arr, ok := obj[k].([]any); ok {
				return arr
			}
		}
	}
	if arr, ok := v.([]any); ok {
		return arr
	}
	return []any{}
}

// Extract recovers a JSON value embedded in free-form text such as an LLM
// reply. Strings are unwrapped at most twice (double-encoded JSON), then the
// first {...}/[...] span is tried. nil means no structured payload; callers
// must not treat that as an error.
func Extract(raw any) any {
	switch v := raw.(type) {
	case nil:
		return nil
	case []any:
		return v
	case map[string]any:
		return v
	case string:
		if out := parseTwice(v); out != nil {
			return out
		}
		if span := spanRe.FindString(v); span != "" {
			var out any
			if err := json.Unmarshal([]byte(span), &out); err == nil {
				return out
			}
		}
		return nil
	default:
		return nil
	}
}

// parseTwice parses s as JSON, unwrapping one extra string encoding. Exactly
// two levels: deeper nesting is adversarial input, not a tolerated shape.
func parseTwice(s string) any {
	var out any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	inner, ok := out.(string)
	if !ok {
		return out
	}
	var out2 any
	if err := json.Unmarshal([]byte(inner), &out2); err != nil {
		return nil
	}
	return out2
}

// StringList maps an extracted array to strings, for follow-up prompts and
// rationale lists. Non-arrays yield nil.
func StringList(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		out = append(out, utils.Str(e))
	}
	return out
}
