// Package source defines where pages, event counts and collected values come
// from. Providers register themselves by name from their own packages.
package source

import (
	"context"
	"sort"

	"github.com/hejijunhao/tagcheck/internal/model"
)

// Source loads the pages to validate.
type Source interface {
	Pages(ctx context.Context, cfg Config) ([]model.PageInput, error)
}

// CountProvider supplies a page's per-event counts and its total event count.
type CountProvider interface {
	Counts(ctx context.Context, page model.PageInput) ([]model.EventCount, int64, error)
}

// ActualProvider supplies the values actually collected on a page, keyed by
// event name.
type ActualProvider interface {
	Actual(ctx context.Context, page model.PageInput) (map[string][]model.ParameterValue, error)
}

// Config holds provider-specific settings.
type Config struct {
	Provider string
	Path     string
	Endpoint string
	APIKey   string
	Extra    map[string]string
}

// ApplyActual returns page with collected values set from actual. Events
// present only in actual are appended in name order so they surface as
// unpredicted events. Collected values already on the page are replaced.
func ApplyActual(page model.PageInput, actual map[string][]model.ParameterValue) model.PageInput {
	out := page
	out.Events = make([]model.EventInput, 0, len(page.Events)+len(actual))
	seen := make(map[string]bool, len(page.Events))
	for _, ev := range page.Events {
		if vals, ok := actual[ev.Name]; ok {
			ev.Actual = vals
		}
		seen[ev.Name] = true
		out.Events = append(out.Events, ev)
	}
	var extra []string
	for name := range actual {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		out.Events = append(out.Events, model.EventInput{Name: name, Actual: actual[name]})
	}
	return out
}
