package tagcheck

// Page is one page to validate: what was predicted for each event, what was
// collected, and optionally how often each event fired.
type Page struct {
	URL         string       `json:"url"`
	Path        string       `json:"path,omitempty"`
	GroupLabel  string       `json:"group_label,omitempty"`
	Events      []Event      `json:"events"`
	EventCounts []EventCount `json:"event_counts,omitempty"`
	TotalEvents int64        `json:"total_event_count,omitempty"`
}

// Event groups the predicted and collected parameters of one event.
type Event struct {
	Name      string       `json:"name"`
	Predicted []Prediction `json:"predicted"`
	Actual    []Value      `json:"actual"`
}

// Prediction is a predicted parameter value. Confidence is "", "high",
// "medium", "low" or "skip"; skipped parameters are not compared.
type Prediction struct {
	Name       string `json:"name"`
	Value      any    `json:"value"`
	Confidence string `json:"confidence,omitempty"`
}

// Value is a collected parameter value.
type Value struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// EventCount is how often an event fired on a page.
type EventCount struct {
	Event string `json:"event_name"`
	Count int64  `json:"count"`
}

// Comparison is the verdict for one parameter. A nil normalized value means
// the value was absent or empty.
type Comparison struct {
	Parameter           string  `json:"parameter"`
	Predicted           any     `json:"predicted_raw"`
	Actual              any     `json:"actual_raw"`
	NormalizedPredicted *string `json:"normalized_predicted"`
	NormalizedActual    *string `json:"normalized_actual"`
	Match               bool    `json:"match"`
	Verdict             string  `json:"verdict"`
	Reason              string  `json:"discrepancy_reason,omitempty"`
}

// EventResult is the outcome for one event on one page.
type EventResult struct {
	Event              string       `json:"event_name"`
	PageURL            string       `json:"page_url"`
	GroupLabel         string       `json:"group_label"`
	Significance       string       `json:"significance,omitempty"`
	Parameters         []Comparison `json:"parameters,omitempty"`
	TotalParams        int          `json:"total_params"`
	MatchedParams      int          `json:"matched_params"`
	MismatchedParams   int          `json:"mismatched_params"`
	MissingPredictions int          `json:"missing_predictions"`
	MissingActual      int          `json:"missing_actual"`
	Accuracy           float64      `json:"accuracy"`
}

// Accuracy is a matched/total tally with its 95% Wilson interval.
type Accuracy struct {
	Total    int     `json:"total"`
	Matched  int     `json:"matched"`
	Accuracy float64 `json:"accuracy"`
	Lower    float64 `json:"ci_lower"`
	Upper    float64 `json:"ci_upper"`
}

// Suggestion is a recurring correction worth turning into a rule.
type Suggestion struct {
	Event     string    `json:"event_name"`
	Parameter string    `json:"parameter_name"`
	Rule      string    `json:"suggested_rule"`
	Reason    string    `json:"reason"`
	Affected  int       `json:"affected_count"`
	Examples  []Example `json:"examples,omitempty"`
}

// Example is one predicted/actual pair behind a suggestion.
type Example struct {
	Predicted string `json:"predicted"`
	Actual    string `json:"actual"`
}

// Report aggregates many event results.
type Report struct {
	OverallAccuracy float64             `json:"overall_accuracy"`
	TotalParams     int                 `json:"total_params"`
	MatchedParams   int                 `json:"matched_params"`
	Parameters      map[string]Accuracy `json:"parameter_accuracy"`
	Groups          map[string]Accuracy `json:"group_accuracy"`
	Verdicts        map[string]int      `json:"verdict_counts"`
	Suggestions     []Suggestion        `json:"improvements"`
	Events          []EventResult       `json:"event_results,omitempty"`
}
