package model

// Comparison is the classified outcome of one predicted/actual pair.
type Comparison struct {
	Parameter           string     `json:"parameter"`
	PredictedRaw        any        `json:"predicted_raw"`
	ActualRaw           any        `json:"actual_raw"`
	NormalizedPredicted Normalized `json:"normalized_predicted"`
	NormalizedActual    Normalized `json:"normalized_actual"`
	Match               bool       `json:"match"`
	Verdict             Verdict    `json:"verdict"`
	Reason              Reason     `json:"discrepancy_reason,omitempty"`
}

// EventResult is one event instance on one page.
type EventResult struct {
	EventName          string       `json:"event_name"`
	PageURL            string       `json:"page_url"`
	GroupLabel         string       `json:"group_label"`
	Significance       Significance `json:"significance,omitempty"`
	Parameters         []Comparison `json:"parameters,omitempty"`
	TotalParams        int          `json:"total_params"`
	MatchedParams      int          `json:"matched_params"`
	MismatchedParams   int          `json:"mismatched_params"`
	MissingPredictions int          `json:"missing_predictions"`
	MissingActual      int          `json:"missing_actual"`
	Accuracy           float64      `json:"accuracy"`
}

// NewEventResult tallies the comparisons into an EventResult.
func NewEventResult(eventName, pageURL, group string, params []Comparison) EventResult {
	r := EventResult{
		EventName:   eventName,
		PageURL:     pageURL,
		GroupLabel:  group,
		Parameters:  params,
		TotalParams: len(params),
	}
	for _, c := range params {
		if c.Match {
			r.MatchedParams++
		}
		switch c.Verdict {
		case VerdictMismatch:
			r.MismatchedParams++
		case VerdictMissingPrediction:
			r.MissingPredictions++
		case VerdictMissingActual:
			r.MissingActual++
		}
	}
	r.Accuracy = Ratio(r.MatchedParams, r.TotalParams)
	return r
}

// EventCount is an analytics-platform event count for one page.
type EventCount struct {
	EventName string `json:"event_name" yaml:"event_name"`
	Count     int64  `json:"count" yaml:"count"`
}

// EventProportion is an event's share of all events collected on a page.
type EventProportion struct {
	EventName    string       `json:"event_name"`
	PagePath     string       `json:"page_path"`
	EventCount   int64        `json:"event_count"`
	Proportion   float64      `json:"proportion"`
	Significance Significance `json:"significance"`
}

// Prediction is one predicted parameter with the predictor's confidence.
type Prediction struct {
	Name       string     `json:"name" yaml:"name"`
	Raw        any        `json:"value" yaml:"value"`
	Confidence Confidence `json:"confidence,omitempty" yaml:"confidence,omitempty"`
}

// EventInput carries the predicted and collected parameters of one event.
type EventInput struct {
	Name      string           `json:"name" yaml:"name"`
	Predicted []Prediction     `json:"predicted" yaml:"predicted"`
	Actual    []ParameterValue `json:"actual" yaml:"actual"`
}

// PageInput is everything known about one page before validation.
type PageInput struct {
	URL             string       `json:"url" yaml:"url"`
	Path            string       `json:"path,omitempty" yaml:"path,omitempty"`
	GroupLabel      string       `json:"group_label,omitempty" yaml:"group_label,omitempty"`
	Events          []EventInput `json:"events" yaml:"events"`
	EventCounts     []EventCount `json:"event_counts,omitempty" yaml:"event_counts,omitempty"`
	TotalEventCount int64        `json:"total_event_count,omitempty" yaml:"total_event_count,omitempty"`
}

// HasActual reports whether any event carries collected parameters.
func (p PageInput) HasActual() bool {
	for _, e := range p.Events {
		if len(e.Actual) > 0 {
			return true
		}
	}
	return false
}

// Ratio returns num/den, or 0 when den is 0.
func Ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
