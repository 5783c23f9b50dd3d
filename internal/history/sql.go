package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hejijunhao/tagcheck/internal/model"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS history_updates (
		event_name     TEXT NOT NULL,
		parameter_name TEXT NOT NULL,
		suggested_rule TEXT NOT NULL,
		reason         TEXT NOT NULL DEFAULT '',
		affected_count INTEGER NOT NULL DEFAULT 0,
		examples       TEXT NOT NULL DEFAULT '[]',
		occurrences    INTEGER NOT NULL,
		confirmed      BOOLEAN NOT NULL DEFAULT FALSE,
		first_seen     TIMESTAMP NOT NULL,
		last_seen      TIMESTAMP NOT NULL,
		PRIMARY KEY (event_name, parameter_name)
	)`,
	`CREATE TABLE IF NOT EXISTS history_runs (
		id             TEXT PRIMARY KEY,
		run_at         TIMESTAMP NOT NULL,
		accuracy       DOUBLE PRECISION NOT NULL,
		total_params   INTEGER NOT NULL,
		matched_params INTEGER NOT NULL,
		suggestions    INTEGER NOT NULL
	)`,
}

const upsertUpdate = `
	INSERT INTO history_updates (event_name, parameter_name, suggested_rule, reason, affected_count,
		examples, occurrences, confirmed, first_seen, last_seen)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (event_name, parameter_name) DO UPDATE SET
		suggested_rule = excluded.suggested_rule,
		reason         = excluded.reason,
		affected_count = excluded.affected_count,
		examples       = excluded.examples,
		occurrences    = excluded.occurrences,
		confirmed      = excluded.confirmed,
		last_seen      = excluded.last_seen`

const insertRun = `
	INSERT INTO history_runs (id, run_at, accuracy, total_params, matched_params, suggestions)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO NOTHING`

type updateRow struct {
	EventName     string    `db:"event_name"`
	ParameterName string    `db:"parameter_name"`
	SuggestedRule string    `db:"suggested_rule"`
	Reason        string    `db:"reason"`
	AffectedCount int       `db:"affected_count"`
	Examples      string    `db:"examples"`
	Occurrences   int       `db:"occurrences"`
	Confirmed     bool      `db:"confirmed"`
	FirstSeen     time.Time `db:"first_seen"`
	LastSeen      time.Time `db:"last_seen"`
}

// SQLStore keeps the document in two tables. It works with the sqlite3 and
// postgres drivers.
type SQLStore struct {
	db *sqlx.DB
}

// OpenSQL connects with driver ("sqlite3" or "postgres") and migrates.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("history: connect %s: %w", driver, err)
	}
	s, err := NewSQLStore(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore migrates db and wraps it.
func NewSQLStore(ctx context.Context, db *sqlx.DB) (*SQLStore, error) {
	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return nil, fmt.Errorf("history: migrate: %w", err)
		}
	}
	return &SQLStore{db: db}, nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Load(ctx context.Context) (Document, error) {
	var rows []updateRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT event_name, parameter_name, suggested_rule, reason, affected_count,
			examples, occurrences, confirmed, first_seen, last_seen
		FROM history_updates
		ORDER BY event_name, parameter_name`); err != nil {
		return Document{}, fmt.Errorf("select updates: %w", err)
	}

	doc := Document{Updates: make([]Update, 0, len(rows)), History: []Run{}}
	for _, r := range rows {
		var examples []model.Example
		if err := json.Unmarshal([]byte(r.Examples), &examples); err != nil {
			return Document{}, fmt.Errorf("%w: examples for %s:%s: %v", ErrInvalidDocument, r.EventName, r.ParameterName, err)
		}
		doc.Updates = append(doc.Updates, Update{
			RuleSuggestion: model.RuleSuggestion{
				ParameterName: r.ParameterName,
				EventName:     r.EventName,
				SuggestedRule: r.SuggestedRule,
				Reason:        r.Reason,
				AffectedCount: r.AffectedCount,
				Examples:      examples,
			},
			Occurrences: r.Occurrences,
			Confirmed:   r.Confirmed,
			FirstSeen:   r.FirstSeen.UTC(),
			LastSeen:    r.LastSeen.UTC(),
		})
	}

	if err := s.db.SelectContext(ctx, &doc.History, `
		SELECT id, run_at, accuracy, total_params, matched_params, suggestions
		FROM history_runs
		ORDER BY run_at, id`); err != nil {
		return Document{}, fmt.Errorf("select runs: %w", err)
	}
	for i := range doc.History {
		doc.History[i].Date = doc.History[i].Date.UTC()
	}
	return doc, nil
}

// Save upserts every update and inserts runs not yet stored, in one
// transaction. Rows absent from doc are left alone.
func (s *SQLStore) Save(ctx context.Context, doc Document) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	upsert := tx.Rebind(upsertUpdate)
	for _, u := range doc.Updates {
		examples, err := json.Marshal(u.Examples)
		if err != nil {
			return fmt.Errorf("marshal examples: %w", err)
		}
		if u.Examples == nil {
			examples = []byte("[]")
		}
		if _, err := tx.ExecContext(ctx, upsert,
			u.EventName, u.ParameterName, u.SuggestedRule, u.Reason, u.AffectedCount,
			string(examples), u.Occurrences, u.Confirmed, u.FirstSeen.UTC(), u.LastSeen.UTC(),
		); err != nil {
			return fmt.Errorf("upsert update %s: %w", u.Key(), err)
		}
	}

	insert := tx.Rebind(insertRun)
	for _, r := range doc.History {
		if _, err := tx.ExecContext(ctx, insert,
			r.ID, r.Date.UTC(), r.Accuracy, r.TotalParams, r.MatchedParams, r.Suggestions,
		); err != nil {
			return fmt.Errorf("insert run %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
