// Package predict orchestrates a viral-prediction run: parallel analytics
// fetches, compact summaries, then either a chat-completion call or the
// rule-based fallback when no completion credential is configured.
package predict

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/trendpulse/pulsed/internal/shape"
	"github.com/trendpulse/pulsed/models"
	"github.com/trendpulse/pulsed/provider"
	"github.com/trendpulse/pulsed/upstream/membit"
	"github.com/trendpulse/pulsed/utils"
)

const (
	postsLimit    = 8
	clustersLimit = 6
	summaryLines  = 6
)

type Engine struct {
	membit *membit.Client
	llm    provider.Provider // nil means fallback mode
	logger *log.Logger
}

// NewEngine builds the engine. llm may be nil; every run then uses the
// rule-based fallback.
func NewEngine(mb *membit.Client, llm provider.Provider) *Engine {
	return &Engine{
		membit: mb,
		llm:    llm,
		logger: log.New(log.Writer(), "[PREDICT] ", log.LstdFlags),
	}
}

// RunPrediction produces a prediction for the topic. Analytics failures are
// downgraded to per-source {"error": msg} markers so partial data still
// yields a result; only a failed chat-completion call surfaces as an error,
// which handlers mirror as a 502.
func (e *Engine) RunPrediction(ctx context.Context, topic string) (models.Prediction, error) {
	if strings.TrimSpace(topic) == "" {
		topic = "general trend"
	}
	runID := uuid.NewString()

	var (
		posts    any
		clusters any
		wg       sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		posts = e.fetch(ctx, runID, "posts", func() (any, error) {
			return e.membit.SearchPosts(ctx, topic, postsLimit)
		})
	}()
	go func() {
		defer wg.Done()
		clusters = e.fetch(ctx, runID, "clusters", func() (any, error) {
			return e.membit.SearchClusters(ctx, topic, clustersLimit)
		})
	}()
	wg.Wait()

	postsSummary := Summarize(posts, shape.PostKeys)
	clustersSummary := Summarize(clusters, shape.ClusterKeys)

	if e.llm == nil {
		e.logger.Printf("run %s: no completion credential, using rule-based fallback", runID)
		return models.Prediction{Data: Fallback(), Posts: posts, Clusters: clusters}, nil
	}

	system := `You are a trend analysis assistant. Produce a concise viral prediction for the given topic. Provide:
- Viral Score (0-100) on its own line as: Score: <number>
- 3 short rationale bullets referencing volume/growth/sentiment/memeability
- Suggested action: Monitor / Amplify / Ignore
Respond in JSON: {"score": number, "rationale": string[], "action": string, "explanation": string}`
	user := fmt.Sprintf("Topic: %s\n\nPosts:\n%s\n\nClusters:\n%s\n\nReturn compact JSON as specified.",
		topic, postsSummary, clustersSummary)

	content, err := e.llm.Complete(ctx, system, user)
	if err != nil {
		e.logger.Printf("run %s: completion failed: %v", runID, err)
		return models.Prediction{}, fmt.Errorf("completion: %w", err)
	}

	data := shape.Extract(content)
	if data == nil {
		data = map[string]any{"raw": content}
	}
	return models.Prediction{Data: data, Raw: content, Posts: posts, Clusters: clusters}, nil
}

// fetch wraps an upstream call, replacing a failure with an error marker so
// the sibling call still completes.
func (e *Engine) fetch(ctx context.Context, runID, source string, call func() (any, error)) any {
	out, err := call()
	if err != nil {
		e.logger.Printf("run %s: %s fetch failed: %v", runID, source, err)
		return map[string]any{"error": err.Error()}
	}
	if out == nil {
		return map[string]any{"error": "empty response"}
	}
	return out
}

// Summarize renders an upstream response into at most six prompt lines of
// the form "{i}. {title} — {excerpt} (mentions: {m})". Field aliases follow
// the shapes the analytics API has returned historically.
func Summarize(data any, keys []string) string {
	if data == nil {
		return "(no data)"
	}
	if m, ok := data.(map[string]any); ok {
		if errMsg, ok := m["error"]; ok {
			return "ERROR: " + utils.Str(errMsg)
		}
	}
	items := shape.Records(data, keys...)
	if len(items) == 0 {
		b, _ := json.Marshal(data)
		return utils.Truncate(string(b), 1000)
	}
	if len(items) > summaryLines {
		items = items[:summaryLines]
	}
	lines := make([]string, 0, len(items))
	for i, it := range items {
		m, _ := it.(map[string]any)
		title := alias(m, "title", "name", "id")
		if title == "" {
			title = "(untitled)"
		}
		excerpt := alias(m, "excerpt", "text", "summary")
		mentions := alias(m, "mentions", "metric")
		lines = append(lines, fmt.Sprintf("%d. %s — %s (mentions: %s)", i+1, title, excerpt, mentions))
	}
	return strings.Join(lines, "\n")
}

// Fallback is the rule-based estimator used when no completion credential is
// configured: randomized score in [50,90], fixed rationale, action by the
// shared thresholds.
func Fallback() models.PredictionResult {
	score := float64(50 + rand.Intn(41))
	return models.PredictionResult{
		Score: score,
		Rationale: []string{
			"Volume shows recent pickup in mentions",
			"Growth rate strong compared to baseline",
			"Sentiment mixed but high engagement",
		},
		Action:      models.ActionForScore(score),
		Explanation: "Fallback rule-based estimation because no completion credential is configured on the server.",
	}
}

func alias(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return utils.Str(v)
		}
	}
	return ""
}
