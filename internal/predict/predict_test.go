package predict

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/trendpulse/pulsed/config"
	"github.com/trendpulse/pulsed/internal/shape"
	"github.com/trendpulse/pulsed/models"
	"github.com/trendpulse/pulsed/upstream/membit"
)

type stubLLM struct {
	reply string
	err   error
	user  string
}

func (s *stubLLM) Complete(_ context.Context, _, user string) (string, error) {
	s.user = user
	return s.reply, s.err
}

func membitClient(url string) *membit.Client {
	return membit.New(config.MembitConfig{APIKey: "k", BaseURL: url, Timeout: 5 * time.Second})
}

func analyticsStub() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search-posts":
			w.Write([]byte(`{"results":[{"title":"post one","excerpt":"e1","mentions":12}]}`))
		case "/search-clusters":
			w.Write([]byte(`{"clusters":[{"name":"cluster one","summary":"s1","metric":3}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestFallbackScoreRangeAndAction(t *testing.T) {
	for i := 0; i < 200; i++ {
		fb := Fallback()
		if fb.Score < 50 || fb.Score > 90 {
			t.Fatalf("score %v outside [50,90]", fb.Score)
		}
		if fb.Action != models.ActionForScore(fb.Score) {
			t.Fatalf("action %s inconsistent with score %v", fb.Action, fb.Score)
		}
		if len(fb.Rationale) != 3 {
			t.Fatalf("expected fixed 3-line rationale, got %d", len(fb.Rationale))
		}
		if fb.Explanation == "" {
			t.Fatalf("fallback must state its reason")
		}
	}
}

func TestRunPredictionWithoutLLMUsesFallback(t *testing.T) {
	srv := analyticsStub()
	defer srv.Close()

	out, err := NewEngine(membitClient(srv.URL), nil).RunPrediction(context.Background(), "ai")
	if err != nil {
		t.Fatalf("fallback run must not error: %v", err)
	}
	fb, ok := out.Data.(models.PredictionResult)
	if !ok {
		t.Fatalf("expected fallback result, got %#v", out.Data)
	}
	if fb.Score < 50 || fb.Score > 90 {
		t.Fatalf("score %v outside [50,90]", fb.Score)
	}
	if out.Posts == nil || out.Clusters == nil {
		t.Fatalf("upstream payloads must ride along: %+v", out)
	}
}

func TestRunPredictionExtractsModelJSON(t *testing.T) {
	srv := analyticsStub()
	defer srv.Close()

	llm := &stubLLM{reply: "Here you go:\n```json\n{\"score\": 82, \"action\": \"Amplify\"}\n```"}
	out, err := NewEngine(membitClient(srv.URL), llm).RunPrediction(context.Background(), "ai")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	data, ok := out.Data.(map[string]any)
	if !ok || data["score"] != float64(82) {
		t.Fatalf("expected extracted JSON, got %#v", out.Data)
	}
	if out.Raw == "" {
		t.Fatalf("raw model content must be preserved")
	}
	if !strings.Contains(llm.user, "post one") || !strings.Contains(llm.user, "cluster one") {
		t.Fatalf("prompt must embed both summaries:\n%s", llm.user)
	}
}

func TestRunPredictionUnparsableReplyIsRawPayload(t *testing.T) {
	srv := analyticsStub()
	defer srv.Close()

	llm := &stubLLM{reply: "sorry, I cannot help with that"}
	out, err := NewEngine(membitClient(srv.URL), llm).RunPrediction(context.Background(), "ai")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	data, ok := out.Data.(map[string]any)
	if !ok || data["raw"] != llm.reply {
		t.Fatalf("expected raw wrapper, got %#v", out.Data)
	}
}

func TestRunPredictionDowngradesAnalyticsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/search-posts" {
			http.Error(w, "posts down", http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"clusters":[]}`))
	}))
	defer srv.Close()

	out, err := NewEngine(membitClient(srv.URL), nil).RunPrediction(context.Background(), "ai")
	if err != nil {
		t.Fatalf("partial data must still produce a result: %v", err)
	}
	m, ok := out.Posts.(map[string]any)
	if !ok || m["error"] == nil {
		t.Fatalf("expected error marker for posts, got %#v", out.Posts)
	}
	if _, ok := out.Clusters.(map[string]any); !ok {
		t.Fatalf("clusters call must have completed, got %#v", out.Clusters)
	}
}

func TestSummarize(t *testing.T) {
	data := map[string]any{"results": []any{
		map[string]any{"title": "T", "excerpt": "E", "mentions": float64(5)},
		map[string]any{"name": "N", "text": "X"},
		map[string]any{"id": float64(9)},
		map[string]any{},
	}}
	got := Summarize(data, shape.PostKeys)
	lines := strings.Split(got, "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), got)
	}
	if lines[0] != "1. T — E (mentions: 5)" {
		t.Fatalf("unexpected first line %q", lines[0])
	}
	if lines[1] != "2. N — X (mentions: )" {
		t.Fatalf("alias fallback broken: %q", lines[1])
	}
	if lines[2] != "3. 9 —  (mentions: )" {
		t.Fatalf("id fallback broken: %q", lines[2])
	}
	if lines[3] != "4. (untitled) —  (mentions: )" {
		t.Fatalf("untitled default broken: %q", lines[3])
	}
}

func TestSummarizeCapsAtSixLines(t *testing.T) {
	items := make([]any, 10)
	for i := range items {
		items[i] = map[string]any{"title": "t"}
	}
	got := Summarize(map[string]any{"results": items}, shape.PostKeys)
	if n := len(strings.Split(got, "\n")); n != 6 {
		t.Fatalf("expected 6 lines, got %d", n)
	}
}

func TestSummarizeErrorMarkerAndNoData(t *testing.T) {
	if got := Summarize(map[string]any{"error": "boom"}, shape.PostKeys); got != "ERROR: boom" {
		t.Fatalf("error marker: %q", got)
	}
	if got := Summarize(nil, shape.PostKeys); got != "(no data)" {
		t.Fatalf("no data: %q", got)
	}
	// unrecognized shape degrades to truncated JSON, not a crash
	if got := Summarize(map[string]any{"odd": true}, shape.PostKeys); got == "" {
		t.Fatalf("expected JSON dump for unknown shape")
	}
}
