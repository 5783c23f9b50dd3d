package tagcheck

import (
	"fmt"

	"github.com/hejijunhao/tagcheck/internal/model"
)

func pageToModel(p Page) (model.PageInput, error) {
	in := model.PageInput{
		URL:             p.URL,
		Path:            p.Path,
		GroupLabel:      p.GroupLabel,
		Events:          make([]model.EventInput, len(p.Events)),
		TotalEventCount: p.TotalEvents,
	}
	for i, ev := range p.Events {
		me := model.EventInput{Name: ev.Name}
		for _, pr := range ev.Predicted {
			conf, err := model.ParseConfidence(pr.Confidence)
			if err != nil {
				return model.PageInput{}, fmt.Errorf("tagcheck: %s.%s: %w", ev.Name, pr.Name, err)
			}
			me.Predicted = append(me.Predicted, model.Prediction{Name: pr.Name, Raw: pr.Value, Confidence: conf})
		}
		for _, v := range ev.Actual {
			me.Actual = append(me.Actual, model.ParameterValue{Name: v.Name, Raw: v.Value})
		}
		in.Events[i] = me
	}
	for _, ec := range p.EventCounts {
		in.EventCounts = append(in.EventCounts, model.EventCount{EventName: ec.Event, Count: ec.Count})
	}
	return in, nil
}

func optional(n model.Normalized) *string {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

func normalized(s *string) model.Normalized {
	if s == nil {
		return model.Null
	}
	return model.Some(*s)
}

func comparisonFromModel(c model.Comparison) Comparison {
	return Comparison{
		Parameter:           c.Parameter,
		Predicted:           c.PredictedRaw,
		Actual:              c.ActualRaw,
		NormalizedPredicted: optional(c.NormalizedPredicted),
		NormalizedActual:    optional(c.NormalizedActual),
		Match:               c.Match,
		Verdict:             string(c.Verdict),
		Reason:              string(c.Reason),
	}
}

func comparisonToModel(c Comparison) model.Comparison {
	return model.Comparison{
		Parameter:           c.Parameter,
		PredictedRaw:        c.Predicted,
		ActualRaw:           c.Actual,
		NormalizedPredicted: normalized(c.NormalizedPredicted),
		NormalizedActual:    normalized(c.NormalizedActual),
		Match:               c.Match,
		Verdict:             model.Verdict(c.Verdict),
		Reason:              model.Reason(c.Reason),
	}
}

func resultFromModel(r model.EventResult) EventResult {
	out := EventResult{
		Event:              r.EventName,
		PageURL:            r.PageURL,
		GroupLabel:         r.GroupLabel,
		Significance:       string(r.Significance),
		TotalParams:        r.TotalParams,
		MatchedParams:      r.MatchedParams,
		MismatchedParams:   r.MismatchedParams,
		MissingPredictions: r.MissingPredictions,
		MissingActual:      r.MissingActual,
		Accuracy:           r.Accuracy,
	}
	if len(r.Parameters) > 0 {
		out.Parameters = make([]Comparison, len(r.Parameters))
		for i, c := range r.Parameters {
			out.Parameters[i] = comparisonFromModel(c)
		}
	}
	return out
}

// resultToModel recounts from the comparisons so a caller-edited result
// stays consistent.
func resultToModel(r EventResult) model.EventResult {
	params := make([]model.Comparison, len(r.Parameters))
	for i, c := range r.Parameters {
		params[i] = comparisonToModel(c)
	}
	out := model.NewEventResult(r.Event, r.PageURL, r.GroupLabel, params)
	out.Significance = model.Significance(r.Significance)
	return out
}

func accuracies(m map[string]model.Tally) map[string]Accuracy {
	out := make(map[string]Accuracy, len(m))
	for k, t := range m {
		out[k] = Accuracy{Total: t.Total, Matched: t.Matched, Accuracy: t.Accuracy, Lower: t.Lower, Upper: t.Upper}
	}
	return out
}

func reportFromModel(r model.Report) Report {
	out := Report{
		OverallAccuracy: r.OverallAccuracy,
		TotalParams:     r.TotalParams,
		MatchedParams:   r.MatchedParams,
		Parameters:      accuracies(r.ParameterAccuracy),
		Groups:          accuracies(r.GroupAccuracy),
		Verdicts:        make(map[string]int, len(r.VerdictCounts)),
		Suggestions:     make([]Suggestion, 0, len(r.Improvements)),
	}
	for v, n := range r.VerdictCounts {
		out.Verdicts[string(v)] = n
	}
	for _, s := range r.Improvements {
		sg := Suggestion{
			Event:     s.EventName,
			Parameter: s.ParameterName,
			Rule:      s.SuggestedRule,
			Reason:    s.Reason,
			Affected:  s.AffectedCount,
		}
		for _, e := range s.Examples {
			sg.Examples = append(sg.Examples, Example{Predicted: e.Predicted, Actual: e.Actual})
		}
		out.Suggestions = append(out.Suggestions, sg)
	}
	for _, e := range r.EventResults {
		out.Events = append(out.Events, resultFromModel(e))
	}
	return out
}
