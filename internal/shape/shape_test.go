package shape

import (
	"encoding/json"
	"reflect"
	"testing"
)

func mustJSON(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("bad fixture %q: %v", s, err)
	}
	return v
}

func TestRecordsFirstMatchingKeyWins(t *testing.T) {
	body := mustJSON(t, `{"clusters":[1,2],"items":[3]}`)
	got := Records(body, "clusters", "items")
	if !reflect.DeepEqual(got, []any{float64(1), float64(2)}) {
		t.Fatalf("expected clusters array, got %v", got)
	}
}

func TestRecordsKeyOrderIsCallerSupplied(t *testing.T) {
	body := mustJSON(t, `{"results":[1],"posts":[2]}`)
	if got := Records(body, "posts", "results"); !reflect.DeepEqual(got, []any{float64(2)}) {
		t.Fatalf("expected posts array, got %v", got)
	}
}

func TestRecordsSkipsNonArrayCandidates(t *testing.T) {
	body := mustJSON(t, `{"results":"nope","items":[7]}`)
	if got := Records(body, "results", "items"); !reflect.DeepEqual(got, []any{float64(7)}) {
		t.Fatalf("expected items array, got %v", got)
	}
}

func TestRecordsBareArray(t *testing.T) {
	body := mustJSON(t, `[{"a":1}]`)
	got := Records(body, "results")
	if len(got) != 1 {
		t.Fatalf("expected bare array verbatim, got %v", got)
	}
}

func TestRecordsNothingMatchesIsEmptyNotNil(t *testing.T) {
	got := Records(mustJSON(t, `{"weird":true}`), "results", "items")
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
	if got := Records(nil, "results"); got == nil || len(got) != 0 {
		t.Fatalf("nil body: expected empty non-nil slice, got %#v", got)
	}
}

func TestExtractDirectArray(t *testing.T) {
	in := []any{"a", "b"}
	if got := Extract(in); !reflect.DeepEqual(got, in) {
		t.Fatalf("expected array returned directly, got %v", got)
	}
}

func TestExtractDoubleEncoded(t *testing.T) {
	got := Extract(`"[1,2,3]"`)
	want := []any{float64(1), float64(2), float64(3)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected double-unwrap to %v, got %v", want, got)
	}
}

func TestExtractStopsAtTwoLevels(t *testing.T) {
	// triple-encoded: second unwrap yields a string again, which is not
	// retried, and the regex span of the original is a quoted string too
	if got := Extract(`"\"\\\"[1]\\\"\""`); got != nil {
		if _, ok := got.([]any); ok {
			t.Fatalf("expected no third unwrap, got %v", got)
		}
	}
}

func TestExtractRegexScanFallback(t *testing.T) {
	got := Extract("here is json: [1,2]\nthanks")
	want := []any{float64(1), float64(2)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v from span scan, got %v", want, got)
	}
}

func TestExtractCodeFencedObject(t *testing.T) {
	got := Extract("```json\n{\"score\": 88}\n```")
	m, ok := got.(map[string]any)
	if !ok || m["score"] != float64(88) {
		t.Fatalf("expected object from fenced block, got %v", got)
	}
}

func TestExtractUnparsableIsNil(t *testing.T) {
	if got := Extract("not json"); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
	if got := Extract(nil); got != nil {
		t.Fatalf("expected nil for nil input, got %v", got)
	}
	if got := Extract(42); got != nil {
		t.Fatalf("expected nil for scalar input, got %v", got)
	}
}

func TestExtractGreedyFirstSpan(t *testing.T) {
	// two bracketed spans: the greedy match covers both and fails to parse,
	// so nothing is extracted; this pins the historical behavior
	if got := Extract("[1,2] and also [3,4]"); got != nil {
		t.Fatalf("expected nil for ambiguous multi-span input, got %v", got)
	}
}

func TestStringList(t *testing.T) {
	got := StringList([]any{"a", float64(1), true})
	want := []string{"a", "1", "true"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if StringList("nope") != nil {
		t.Fatalf("expected nil for non-array")
	}
}
