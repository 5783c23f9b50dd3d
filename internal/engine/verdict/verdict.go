// Package verdict classifies a predicted/actual parameter pair.
package verdict

import (
	"math"
	"strings"

	"github.com/hejijunhao/tagcheck/internal/engine/normalizer"
	"github.com/hejijunhao/tagcheck/internal/engine/vocabulary"
	"github.com/hejijunhao/tagcheck/internal/model"
)

// DefaultTolerance is the relative difference under which two numeric values
// are considered equal.
const DefaultTolerance = 0.01

// Classifier is immutable and safe for concurrent use.
type Classifier struct {
	norm      *normalizer.Normalizer
	vocab     *vocabulary.Vocabulary
	tolerance float64
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithTolerance sets the relative numeric tolerance. Negative values are ignored.
func WithTolerance(t float64) Option {
	return func(c *Classifier) {
		if t >= 0 {
			c.tolerance = t
		}
	}
}

// New creates a Classifier. A nil normalizer uses the built-in vocabulary.
func New(n *normalizer.Normalizer, opts ...Option) *Classifier {
	if n == nil {
		n = normalizer.New(nil)
	}
	c := &Classifier{norm: n, vocab: n.Vocabulary(), tolerance: DefaultTolerance}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Normalizer returns the normalizer used for both sides of a comparison.
func (c *Classifier) Normalizer() *normalizer.Normalizer { return c.norm }

// Classify compares predicted and actual for parameter name. The branches are
// evaluated in a fixed order and the first that applies decides the verdict:
// both null, predicted null, actual null, group label, generic.
func (c *Classifier) Classify(name string, predicted, actual any) model.Comparison {
	p := c.norm.Normalize(name, predicted)
	a := c.norm.Normalize(name, actual)
	cmp := model.Comparison{
		Parameter:           name,
		PredictedRaw:        predicted,
		ActualRaw:           actual,
		NormalizedPredicted: p,
		NormalizedActual:    a,
	}

	switch {
	case !p.Valid && !a.Valid:
		cmp.Verdict = model.VerdictCorrect
	case !p.Valid:
		cmp.Verdict = model.VerdictMissingPrediction
	case !a.Valid:
		// The platform has no data yet; predictions derivable from the URL
		// alone are not penalised.
		if c.vocab.Derivable(name) {
			cmp.Verdict = model.VerdictCorrectDataMissing
		} else {
			cmp.Verdict = model.VerdictMissingActual
		}
	case c.vocab.IsGroupLabel(name):
		forced := a
		if a == c.norm.Normalize(name, c.vocab.OthersLabel()) {
			forced = p
		}
		if forced == p {
			cmp.Verdict = model.VerdictCorrect
		} else {
			cmp.Verdict = model.VerdictMismatch
			cmp.Reason = model.ReasonCategoryLabel
		}
	case c.equivalent(name, p.Value, a.Value):
		cmp.Verdict = model.VerdictCorrect
	default:
		cmp.Verdict = model.VerdictMismatch
		cmp.Reason = c.reason(name, predicted, actual)
	}

	cmp.Match = cmp.Verdict.IsMatch()
	return cmp
}

func (c *Classifier) equivalent(name, p, a string) bool {
	if p == a {
		return true
	}
	if c.vocab.IsNumeric(name) && c.withinTolerance(p, a) {
		return true
	}
	return strings.Contains(p, a) || strings.Contains(a, p)
}

func (c *Classifier) withinTolerance(p, a string) bool {
	pf, ok := normalizer.ParseNumber(p)
	if !ok {
		return false
	}
	af, ok := normalizer.ParseNumber(a)
	if !ok {
		return false
	}
	return math.Abs(pf-af) <= c.tolerance*math.Max(math.Abs(pf), math.Abs(af))
}

// reason inspects the raw values, not the normalized ones, since normalization
// already erased the differences it explains.
func (c *Classifier) reason(name string, predicted, actual any) model.Reason {
	p, _ := normalizer.Text(predicted)
	a, _ := normalizer.Text(actual)
	p, a = strings.TrimSpace(p), strings.TrimSpace(a)
	switch {
	case strings.EqualFold(p, a):
		return model.ReasonCase
	case c.vocab.IsNumeric(name):
		return model.ReasonFormat
	case c.vocab.IsLocale(name):
		return model.ReasonLocale
	}
	lp, la := strings.ToLower(p), strings.ToLower(a)
	if strings.Contains(lp, la) || strings.Contains(la, lp) {
		return model.ReasonPartial
	}
	return model.ReasonValue
}
