package tagcheck

import (
	"fmt"

	"github.com/hejijunhao/tagcheck/internal/config"
	"github.com/hejijunhao/tagcheck/internal/engine"
	"github.com/hejijunhao/tagcheck/internal/engine/aggregate"
	"github.com/hejijunhao/tagcheck/internal/engine/normalizer"
	"github.com/hejijunhao/tagcheck/internal/engine/significance"
	"github.com/hejijunhao/tagcheck/internal/engine/verdict"
)

// Checker validates predicted tag values.
// Safe for concurrent use.
type Checker struct {
	engine         *engine.Engine
	minOccurrences int
}

// New creates a Checker with the built-in vocabulary unless
// WithVocabularyFile says otherwise.
func New(opts ...Option) (*Checker, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.tolerance < 0 || o.tolerance >= 1 {
		return nil, fmt.Errorf("tagcheck: tolerance must be in [0, 1), got %v", o.tolerance)
	}
	if o.noisePercent <= 0 || o.lowPercent <= o.noisePercent {
		return nil, fmt.Errorf("tagcheck: significance thresholds must satisfy 0 < noise < low, got %v and %v",
			o.noisePercent, o.lowPercent)
	}

	vocab, err := config.LoadVocabulary(o.vocabularyPath)
	if err != nil {
		return nil, fmt.Errorf("tagcheck: %w", err)
	}
	cls := verdict.New(normalizer.New(vocab), verdict.WithTolerance(o.tolerance))
	sig := significance.New(o.noisePercent, o.lowPercent)
	return &Checker{engine: engine.New(cls, sig), minOccurrences: o.minOccurrences}, nil
}

// Normalize returns the canonical form of raw for the named parameter.
// ok is false when the value counts as absent.
func (c *Checker) Normalize(parameter string, raw any) (value string, ok bool) {
	n := c.engine.Classifier().Normalizer().Normalize(parameter, raw)
	return n.Value, n.Valid
}

// Compare classifies one predicted value against the collected one. Pass nil
// for a value that is missing.
func (c *Checker) Compare(parameter string, predicted, actual any) Comparison {
	return comparisonFromModel(c.engine.Classifier().Classify(parameter, predicted, actual))
}

// Significance returns count/total and whether the event is "noise", "low"
// or "significant".
func (c *Checker) Significance(count, total int64) (float64, string) {
	p, s := c.engine.Significance().Classify(count, total)
	return p, string(s)
}

// ValidatePage compares every predicted parameter on the page, one result per
// event.
func (c *Checker) ValidatePage(page Page) ([]EventResult, error) {
	in, err := pageToModel(page)
	if err != nil {
		return nil, err
	}
	results := c.engine.ValidatePage(in)
	out := make([]EventResult, len(results))
	for i, r := range results {
		out[i] = resultFromModel(r)
	}
	return out, nil
}

// Aggregate folds event results, typically from several ValidatePage calls,
// into a report.
func (c *Checker) Aggregate(results []EventResult) Report {
	a := c.newAggregator()
	for _, r := range results {
		a.Add(resultToModel(r))
	}
	return reportFromModel(a.Report())
}

// Validate runs ValidatePage over pages and aggregates the results.
func (c *Checker) Validate(pages []Page) (Report, error) {
	a := c.newAggregator()
	for i, p := range pages {
		in, err := pageToModel(p)
		if err != nil {
			return Report{}, fmt.Errorf("page %d: %w", i, err)
		}
		for _, r := range c.engine.ValidatePage(in) {
			a.Add(r)
		}
	}
	return reportFromModel(a.Report()), nil
}

func (c *Checker) newAggregator() *aggregate.Aggregator {
	return aggregate.New(c.engine.Vocabulary(), aggregate.WithMinOccurrences(c.minOccurrences))
}
