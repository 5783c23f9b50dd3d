// Package history tracks suggested rule changes across validation runs.
// A suggestion that keeps reappearing for the same event parameter is
// confirmed once it has been seen ConfirmAfter times.
package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hejijunhao/tagcheck/internal/model"
)

// DefaultConfirmAfter is the number of runs a suggestion must appear in
// before it is confirmed.
const DefaultConfirmAfter = 3

// ErrInvalidDocument is returned when a stored history document fails
// validation.
var ErrInvalidDocument = errors.New("invalid history document")

// Update is a suggestion together with how often it has been seen.
type Update struct {
	model.RuleSuggestion
	Occurrences int       `json:"occurrences"`
	Confirmed   bool      `json:"confirmed"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
}

// Run summarises one recorded validation run.
type Run struct {
	ID            string    `json:"id" db:"id"`
	Date          time.Time `json:"date" db:"run_at"`
	Accuracy      float64   `json:"accuracy" db:"accuracy"`
	TotalParams   int       `json:"total_params" db:"total_params"`
	MatchedParams int       `json:"matched_params" db:"matched_params"`
	Suggestions   int       `json:"suggestions" db:"suggestions"`
}

// Document is the persisted state.
type Document struct {
	Updates []Update `json:"updates"`
	History []Run    `json:"history"`
}

// Store loads and saves the whole document.
type Store interface {
	Load(ctx context.Context) (Document, error)
	Save(ctx context.Context, doc Document) error
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithConfirmAfter sets the confirmation threshold. Values below 1 are ignored.
func WithConfirmAfter(n int) Option {
	return func(t *Tracker) {
		if n >= 1 {
			t.confirmAfter = n
		}
	}
}

// WithIDFunc overrides run id generation.
func WithIDFunc(f func() string) Option {
	return func(t *Tracker) { t.newID = f }
}

// Tracker records reports into a Store. It serialises its own calls; it
// does not lock the store against other processes.
type Tracker struct {
	store        Store
	confirmAfter int
	newID        func() string
	mu           sync.Mutex
}

// New creates a Tracker over store.
func New(store Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:        store,
		confirmAfter: DefaultConfirmAfter,
		newID:        newRunID,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ConfirmAfter returns the confirmation threshold.
func (t *Tracker) ConfirmAfter() int { return t.confirmAfter }

// Record adds the report's suggestions and a run summary to the history.
func (t *Tracker) Record(ctx context.Context, report model.Report, at time.Time) (Run, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	doc, err := t.store.Load(ctx)
	if err != nil {
		return Run{}, fmt.Errorf("history: load: %w", err)
	}

	at = at.UTC()
	index := make(map[string]int, len(doc.Updates))
	for i, u := range doc.Updates {
		index[u.Key()] = i
	}
	for _, s := range report.Improvements {
		i, ok := index[s.Key()]
		if !ok {
			doc.Updates = append(doc.Updates, Update{FirstSeen: at})
			i = len(doc.Updates) - 1
			index[s.Key()] = i
		}
		u := &doc.Updates[i]
		u.RuleSuggestion = s
		u.Occurrences++
		u.LastSeen = at
		if u.Occurrences >= t.confirmAfter {
			u.Confirmed = true
		}
	}
	sort.Slice(doc.Updates, func(i, j int) bool {
		return doc.Updates[i].Key() < doc.Updates[j].Key()
	})

	run := Run{
		ID:            t.newID(),
		Date:          at,
		Accuracy:      report.OverallAccuracy,
		TotalParams:   report.TotalParams,
		MatchedParams: report.MatchedParams,
		Suggestions:   len(report.Improvements),
	}
	doc.History = append(doc.History, run)

	if err := t.store.Save(ctx, doc); err != nil {
		return Run{}, fmt.Errorf("history: save: %w", err)
	}
	return run, nil
}

// Confirmed returns the confirmed updates in key order.
func (t *Tracker) Confirmed(ctx context.Context) ([]Update, error) {
	doc, err := t.Document(ctx)
	if err != nil {
		return nil, err
	}
	var out []Update
	for _, u := range doc.Updates {
		if u.Confirmed {
			out = append(out, u)
		}
	}
	return out, nil
}

// Document returns the stored state.
func (t *Tracker) Document(ctx context.Context) (Document, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	doc, err := t.store.Load(ctx)
	if err != nil {
		return Document{}, fmt.Errorf("history: load: %w", err)
	}
	return doc, nil
}

// newRunID returns a time-ordered UUIDv7, falling back to v4.
func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
