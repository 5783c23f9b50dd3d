package model

// Tally is a matched/total counter with its accuracy.
type Tally struct {
	Total    int     `json:"total"`
	Matched  int     `json:"matched"`
	Accuracy float64 `json:"accuracy"`
	// Lower and Upper bound the 95% Wilson interval of Accuracy.
	Lower float64 `json:"ci_lower"`
	Upper float64 `json:"ci_upper"`
}

// Example is one observed predicted/actual pair behind a mismatch pattern.
type Example struct {
	Predicted string `json:"predicted"`
	Actual    string `json:"actual"`
}

// RuleSuggestion is a human-reviewable recommendation derived from a recurring
// mismatch pattern.
type RuleSuggestion struct {
	ParameterName string    `json:"parameter_name"`
	EventName     string    `json:"event_name"`
	SuggestedRule string    `json:"suggested_rule"`
	Reason        string    `json:"reason"`
	AffectedCount int       `json:"affected_count"`
	Examples      []Example `json:"examples,omitempty"`
}

// Key identifies the suggestion across runs.
func (s RuleSuggestion) Key() string {
	return s.EventName + ":" + s.ParameterName
}

// Summary describes the distribution of per-event accuracy.
type Summary struct {
	ScoredEvents      int     `json:"scored_events"`
	NoiseEvents       int     `json:"noise_events"`
	LowEvents         int     `json:"low_significance_events"`
	SignificantEvents int     `json:"significant_events"`
	MeanAccuracy      float64 `json:"mean_accuracy"`
	MedianAccuracy    float64 `json:"median_accuracy"`
	StdDevAccuracy    float64 `json:"stddev_accuracy"`
	P10Accuracy       float64 `json:"p10_accuracy"`
}

// Coverage scores predicted event names against collected events.
type Coverage struct {
	TruePositives  int     `json:"true_positives"`
	FalsePositives int     `json:"false_positives"`
	FalseNegatives int     `json:"false_negatives"`
	Precision      float64 `json:"precision"`
	Recall         float64 `json:"recall"`
	F1             float64 `json:"f1"`
}

// Report is the immutable aggregate of a validation run.
type Report struct {
	OverallAccuracy   float64          `json:"overall_accuracy"`
	TotalParams       int              `json:"total_params"`
	MatchedParams     int              `json:"matched_params"`
	EventResults      []EventResult    `json:"event_results,omitempty"`
	ParameterAccuracy map[string]Tally `json:"parameter_accuracy"`
	GroupAccuracy     map[string]Tally `json:"group_accuracy"`
	VerdictCounts     map[Verdict]int  `json:"verdict_counts"`
	Improvements      []RuleSuggestion `json:"improvements"`
	Summary           Summary          `json:"summary"`
	Coverage          *Coverage        `json:"event_coverage,omitempty"`
}
