package engine

import (
	"net/url"
	"sort"

	"github.com/hejijunhao/tagcheck/internal/engine/significance"
	"github.com/hejijunhao/tagcheck/internal/engine/verdict"
	"github.com/hejijunhao/tagcheck/internal/engine/vocabulary"
	"github.com/hejijunhao/tagcheck/internal/model"
)

// UnknownGroup labels pages whose category is neither given nor inferable.
const UnknownGroup = "UNKNOWN"

// Engine validates pages: normalize → classify → tally, with significance
// taken from the page's event counts.
type Engine struct {
	vocab        *vocabulary.Vocabulary
	classifier   *verdict.Classifier
	significance *significance.Classifier
}

// New creates an Engine with the provided components. Nil components fall
// back to the built-in defaults.
func New(cls *verdict.Classifier, sig *significance.Classifier) *Engine {
	if cls == nil {
		cls = verdict.New(nil)
	}
	if sig == nil {
		sig = significance.Default()
	}
	return &Engine{
		vocab:        cls.Normalizer().Vocabulary(),
		classifier:   cls,
		significance: sig,
	}
}

// Classifier returns the verdict classifier.
func (e *Engine) Classifier() *verdict.Classifier { return e.classifier }

// Significance returns the significance classifier.
func (e *Engine) Significance() *significance.Classifier { return e.significance }

// Vocabulary returns the vocabulary shared by all components.
func (e *Engine) Vocabulary() *vocabulary.Vocabulary { return e.vocab }

// ValidatePage compares every event on page. Parameters predicted with skip
// confidence are left out entirely, on both sides.
func (e *Engine) ValidatePage(page model.PageInput) []model.EventResult {
	group := e.GroupLabel(page)
	sig := significance.Lookup(e.Proportions(page))

	results := make([]model.EventResult, 0, len(page.Events))
	for _, ev := range page.Events {
		comps := e.compareEvent(ev)
		r := model.NewEventResult(ev.Name, page.URL, group, comps)
		r.Significance = sig[ev.Name]
		results = append(results, r)
	}
	return results
}

// ValidatePages validates pages in order.
func (e *Engine) ValidatePages(pages []model.PageInput) []model.EventResult {
	var results []model.EventResult
	for _, p := range pages {
		results = append(results, e.ValidatePage(p)...)
	}
	return results
}

// Proportions classifies the page's event counts. It is empty when the page
// carries no counts.
func (e *Engine) Proportions(page model.PageInput) []model.EventProportion {
	if len(page.EventCounts) == 0 {
		return nil
	}
	return e.significance.Proportions(PagePath(page), page.EventCounts, page.TotalEventCount)
}

// Coverage scores predicted event names against collected counts across all
// pages that carry counts. It returns nil when none do.
func (e *Engine) Coverage(pages []model.PageInput) *model.Coverage {
	var total model.Coverage
	counted := false
	for _, p := range pages {
		props := e.Proportions(p)
		if props == nil {
			continue
		}
		counted = true
		var predicted []string
		for _, ev := range p.Events {
			if len(ev.Predicted) > 0 {
				predicted = append(predicted, ev.Name)
			}
		}
		c := significance.Coverage(predicted, props)
		total.TruePositives += c.TruePositives
		total.FalsePositives += c.FalsePositives
		total.FalseNegatives += c.FalseNegatives
	}
	if !counted {
		return nil
	}
	cov := significance.Score(total)
	return &cov
}

// GroupLabel returns the page's category: the explicit label if any, else
// the first matching URL pattern, else UnknownGroup. An explicit label goes
// through the same alias table as group-label parameters, so "pdp" and a
// /product/ URL land in one group.
func (e *Engine) GroupLabel(page model.PageInput) string {
	if g := e.classifier.Normalizer().GroupLabel(page.GroupLabel); g.Valid {
		return g.Value
	}
	if g, ok := e.vocab.InferGroup(page.URL); ok {
		return g
	}
	return UnknownGroup
}

// PagePath returns page.Path, or the path component of page.URL.
func PagePath(page model.PageInput) string {
	if page.Path != "" {
		return page.Path
	}
	if u, err := url.Parse(page.URL); err == nil && u.Path != "" {
		return u.Path
	}
	return "/"
}

func (e *Engine) compareEvent(ev model.EventInput) []model.Comparison {
	skipped := make(map[string]bool)
	predicted := make(map[string]any, len(ev.Predicted))
	var names []string
	for _, p := range ev.Predicted {
		if p.Confidence == model.ConfidenceSkip {
			skipped[p.Name] = true
			continue
		}
		if _, dup := predicted[p.Name]; dup {
			continue
		}
		predicted[p.Name] = p.Raw
		names = append(names, p.Name)
	}

	actual := make(map[string]any, len(ev.Actual))
	var extra []string
	for _, a := range ev.Actual {
		if skipped[a.Name] {
			continue
		}
		if _, dup := actual[a.Name]; dup {
			continue
		}
		actual[a.Name] = a.Raw
		if _, ok := predicted[a.Name]; !ok {
			extra = append(extra, a.Name)
		}
	}
	sort.Strings(extra)
	names = append(names, extra...)

	comps := make([]model.Comparison, 0, len(names))
	for _, name := range names {
		comps = append(comps, e.classifier.Classify(name, predicted[name], actual[name]))
	}
	return comps
}
