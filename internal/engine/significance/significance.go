// Package significance labels events by their share of a page's traffic so
// tracking artifacts can be kept out of scoring.
package significance

import (
	"sort"

	"github.com/hejijunhao/tagcheck/internal/model"
)

// Default thresholds, in percent of the page's total event count.
const (
	DefaultNoisePercent = 0.01
	DefaultLowPercent   = 0.1
)

// Classifier holds the thresholds. The zero value is not usable; use New.
type Classifier struct {
	noisePct float64
	lowPct   float64
}

// New returns a Classifier with the given percent thresholds. Non-positive
// values fall back to the defaults.
func New(noisePct, lowPct float64) *Classifier {
	if noisePct <= 0 {
		noisePct = DefaultNoisePercent
	}
	if lowPct <= 0 {
		lowPct = DefaultLowPercent
	}
	return &Classifier{noisePct: noisePct, lowPct: lowPct}
}

// Default returns a Classifier with the default thresholds.
func Default() *Classifier { return New(DefaultNoisePercent, DefaultLowPercent) }

// Classify returns count/total, clamped to [0,1] and 0 when total is 0, and
// its significance.
func (c *Classifier) Classify(count, total int64) (float64, model.Significance) {
	var p float64
	if total > 0 && count > 0 {
		p = float64(count) / float64(total)
		if p > 1 {
			p = 1
		}
	}
	pct := p * 100
	switch {
	case pct < c.noisePct:
		return p, model.SignificanceNoise
	case pct < c.lowPct:
		return p, model.SignificanceLow
	default:
		return p, model.SignificanceSignificant
	}
}

// Proportions classifies every event counted on one page. When total is not
// positive the sum of counts is used, so proportions always add up to 1.
// Counts for the same event name are summed. Results are ordered by count,
// highest first.
func (c *Classifier) Proportions(pagePath string, counts []model.EventCount, total int64) []model.EventProportion {
	byName := make(map[string]int64, len(counts))
	var sum int64
	for _, ec := range counts {
		if ec.Count < 0 {
			continue
		}
		byName[ec.EventName] += ec.Count
		sum += ec.Count
	}
	if total <= 0 {
		total = sum
	}

	out := make([]model.EventProportion, 0, len(byName))
	for name, n := range byName {
		p, s := c.Classify(n, total)
		out = append(out, model.EventProportion{
			EventName:    name,
			PagePath:     pagePath,
			EventCount:   n,
			Proportion:   p,
			Significance: s,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EventCount != out[j].EventCount {
			return out[i].EventCount > out[j].EventCount
		}
		return out[i].EventName < out[j].EventName
	})
	return out
}

// Lookup indexes proportions by event name.
func Lookup(props []model.EventProportion) map[string]model.Significance {
	m := make(map[string]model.Significance, len(props))
	for _, p := range props {
		m[p.EventName] = p.Significance
	}
	return m
}

// Coverage scores the predicted event names against the events actually
// collected. Noise events count on neither side.
func Coverage(predicted []string, props []model.EventProportion) model.Coverage {
	collected := make(map[string]bool, len(props))
	noise := make(map[string]bool)
	for _, p := range props {
		if p.Significance == model.SignificanceNoise {
			noise[p.EventName] = true
			continue
		}
		collected[p.EventName] = true
	}

	var cov model.Coverage
	seen := make(map[string]bool, len(predicted))
	for _, name := range predicted {
		if seen[name] || noise[name] {
			continue
		}
		seen[name] = true
		if collected[name] {
			cov.TruePositives++
		} else {
			cov.FalsePositives++
		}
	}
	for name := range collected {
		if !seen[name] {
			cov.FalseNegatives++
		}
	}
	return Score(cov)
}

// Score fills Precision, Recall and F1 from the confusion counts.
func Score(cov model.Coverage) model.Coverage {
	cov.Precision = model.Ratio(cov.TruePositives, cov.TruePositives+cov.FalsePositives)
	cov.Recall = model.Ratio(cov.TruePositives, cov.TruePositives+cov.FalseNegatives)
	if cov.Precision+cov.Recall > 0 {
		cov.F1 = 2 * cov.Precision * cov.Recall / (cov.Precision + cov.Recall)
	}
	return cov
}
