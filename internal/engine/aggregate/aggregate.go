// Package aggregate folds event results into a report with per-parameter and
// per-group accuracy and rule suggestions drawn from recurring mismatches.
//
// An Aggregator is a pure reduction: partial aggregators built on disjoint
// inputs can be merged in any order and produce the same counters.
package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hejijunhao/tagcheck/internal/engine/normalizer"
	"github.com/hejijunhao/tagcheck/internal/engine/vocabulary"
	"github.com/hejijunhao/tagcheck/internal/model"
)

const (
	// DefaultMinOccurrences is how often a mismatch pattern must recur before
	// it is suggested as a rule change.
	DefaultMinOccurrences = 2
	maxExamples           = 3
)

type counter struct {
	total, matched int
}

type pattern struct {
	event, param string
	count        int
	examples     []model.Example
	reasons      map[model.Reason]int
}

// Aggregator accumulates event results. It is not safe for concurrent use;
// give each goroutine its own and Merge them.
type Aggregator struct {
	vocab          *vocabulary.Vocabulary
	minOccurrences int

	results  []model.EventResult
	total    int
	matched  int
	params   map[string]*counter
	groups   map[string]*counter
	verdicts map[model.Verdict]int
	patterns map[string]*pattern
	sig      map[model.Significance]int
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithMinOccurrences sets the suggestion threshold. Values below 1 are ignored.
func WithMinOccurrences(n int) Option {
	return func(a *Aggregator) {
		if n >= 1 {
			a.minOccurrences = n
		}
	}
}

// New creates an empty Aggregator. A nil vocabulary uses the built-in one.
func New(v *vocabulary.Vocabulary, opts ...Option) *Aggregator {
	if v == nil {
		v = vocabulary.Default()
	}
	a := &Aggregator{
		vocab:          v,
		minOccurrences: DefaultMinOccurrences,
		params:         make(map[string]*counter),
		groups:         make(map[string]*counter),
		verdicts:       make(map[model.Verdict]int),
		patterns:       make(map[string]*pattern),
		sig:            make(map[model.Significance]int),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate folds results with the built-in vocabulary and default threshold.
func Aggregate(results []model.EventResult) model.Report {
	a := New(nil)
	for _, r := range results {
		a.Add(r)
	}
	return a.Report()
}

// Add folds one event result. Noise events are kept for reporting but do not
// touch any counter.
func (a *Aggregator) Add(r model.EventResult) {
	a.results = append(a.results, r)
	a.sig[r.Significance]++
	if r.Significance == model.SignificanceNoise {
		return
	}

	for _, c := range r.Parameters {
		a.total++
		pc := a.counter(a.params, c.Parameter)
		gc := a.counter(a.groups, r.GroupLabel)
		pc.total++
		gc.total++
		if c.Match {
			a.matched++
			pc.matched++
			gc.matched++
		}
		a.verdicts[c.Verdict]++

		if c.Verdict != model.VerdictMismatch {
			continue
		}
		key := r.EventName + ":" + c.Parameter
		p, ok := a.patterns[key]
		if !ok {
			p = &pattern{event: r.EventName, param: c.Parameter, reasons: make(map[model.Reason]int)}
			a.patterns[key] = p
		}
		p.count++
		p.reasons[c.Reason]++
		p.examples = addExamples(p.examples, model.Example{
			Predicted: rawText(c.PredictedRaw),
			Actual:    rawText(c.ActualRaw),
		})
	}
}

// Merge folds o into a. o is left unchanged.
func (a *Aggregator) Merge(o *Aggregator) {
	a.results = append(a.results, o.results...)
	a.total += o.total
	a.matched += o.matched
	for k, c := range o.params {
		mc := a.counter(a.params, k)
		mc.total += c.total
		mc.matched += c.matched
	}
	for k, c := range o.groups {
		mc := a.counter(a.groups, k)
		mc.total += c.total
		mc.matched += c.matched
	}
	for v, n := range o.verdicts {
		a.verdicts[v] += n
	}
	for s, n := range o.sig {
		a.sig[s] += n
	}
	for k, op := range o.patterns {
		p, ok := a.patterns[k]
		if !ok {
			p = &pattern{event: op.event, param: op.param, reasons: make(map[model.Reason]int)}
			a.patterns[k] = p
		}
		p.count += op.count
		for r, n := range op.reasons {
			p.reasons[r] += n
		}
		p.examples = addExamples(p.examples, op.examples...)
	}
}

// Report builds the immutable report. The Aggregator can keep accepting
// results afterwards.
func (a *Aggregator) Report() model.Report {
	rep := model.Report{
		OverallAccuracy:   model.Ratio(a.matched, a.total),
		TotalParams:       a.total,
		MatchedParams:     a.matched,
		EventResults:      append([]model.EventResult(nil), a.results...),
		ParameterAccuracy: tallies(a.params),
		GroupAccuracy:     tallies(a.groups),
		VerdictCounts:     make(map[model.Verdict]int, len(a.verdicts)),
		Improvements:      a.suggestions(),
		Summary:           summarize(a.results),
	}
	for v, n := range a.verdicts {
		rep.VerdictCounts[v] = n
	}
	return rep
}

func (a *Aggregator) counter(m map[string]*counter, key string) *counter {
	c, ok := m[key]
	if !ok {
		c = &counter{}
		m[key] = c
	}
	return c
}

func tallies(m map[string]*counter) map[string]model.Tally {
	out := make(map[string]model.Tally, len(m))
	for k, c := range m {
		lo, hi := Wilson(c.matched, c.total)
		out[k] = model.Tally{
			Total:    c.total,
			Matched:  c.matched,
			Accuracy: model.Ratio(c.matched, c.total),
			Lower:    lo,
			Upper:    hi,
		}
	}
	return out
}

func (a *Aggregator) suggestions() []model.RuleSuggestion {
	out := make([]model.RuleSuggestion, 0)
	for _, p := range a.patterns {
		if p.count < a.minOccurrences {
			continue
		}
		out = append(out, model.RuleSuggestion{
			ParameterName: p.param,
			EventName:     p.event,
			SuggestedRule: a.suggestRule(p),
			Reason:        fmt.Sprintf("%s in %d comparisons", dominant(p.reasons), p.count),
			AffectedCount: p.count,
			Examples:      append([]model.Example(nil), p.examples...),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AffectedCount != out[j].AffectedCount {
			return out[i].AffectedCount > out[j].AffectedCount
		}
		return out[i].Key() < out[j].Key()
	})
	return out
}

func (a *Aggregator) suggestRule(p *pattern) string {
	caseOnly := len(p.examples) > 0
	for _, ex := range p.examples {
		if !strings.EqualFold(ex.Predicted, ex.Actual) {
			caseOnly = false
			break
		}
	}
	switch {
	case caseOnly:
		return "normalize case"
	case a.vocab.IsLocale(p.param):
		return "unify locale code format"
	case a.vocab.IsNumeric(p.param):
		return "normalize numeric format"
	case len(p.examples) > 0:
		return fmt.Sprintf("predicted %q but collected %q", p.examples[0].Predicted, p.examples[0].Actual)
	default:
		return "review prediction rule"
	}
}

// dominant returns the most frequent reason, ties broken alphabetically.
func dominant(reasons map[model.Reason]int) model.Reason {
	var best model.Reason
	n := -1
	for r, c := range reasons {
		if c > n || (c == n && r < best) {
			best, n = r, c
		}
	}
	if best == model.ReasonNone {
		return model.ReasonValue
	}
	return best
}

// addExamples keeps the lexicographically smallest distinct pairs so that the
// retained set does not depend on the order results were folded in.
func addExamples(have []model.Example, add ...model.Example) []model.Example {
	out := append([]model.Example(nil), have...)
	for _, ex := range add {
		dup := false
		for _, h := range out {
			if h == ex {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, ex)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Predicted != out[j].Predicted {
			return out[i].Predicted < out[j].Predicted
		}
		return out[i].Actual < out[j].Actual
	})
	if len(out) > maxExamples {
		out = out[:maxExamples]
	}
	return out
}

func rawText(v any) string {
	s, ok := normalizer.Text(v)
	if !ok {
		return "null"
	}
	return strings.TrimSpace(s)
}
