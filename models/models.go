package models

// PredictionAction is the suggested handling for a topic.
type PredictionAction string

const (
	ActionMonitor PredictionAction = "Monitor"
	ActionAmplify PredictionAction = "Amplify"
	ActionIgnore  PredictionAction = "Ignore"
)

// PredictionResult is a viral prediction for a topic, produced either by the
// LLM or by the rule-based fallback. Score is 0-100.
type PredictionResult struct {
	Score       float64          `json:"score"`
	Rationale   []string         `json:"rationale"`
	Action      PredictionAction `json:"action"`
	Explanation string           `json:"explanation"`
}

// ActionForScore applies the shared score thresholds.
func ActionForScore(score float64) PredictionAction {
	switch {
	case score > 70:
		return ActionAmplify
	case score > 45:
		return ActionMonitor
	default:
		return ActionIgnore
	}
}

// Prediction is the full outcome of a prediction run. Data is either a
// PredictionResult-shaped object extracted from the model reply, or a
// {"raw": content} payload when the reply carried no parsable JSON. Posts and
// Clusters carry the upstream responses (or their per-source error markers)
// so the dashboard can render them alongside the score.
type Prediction struct {
	Data     any    `json:"data"`
	Raw      string `json:"raw,omitempty"`
	Posts    any    `json:"posts"`
	Clusters any    `json:"clusters"`
}
