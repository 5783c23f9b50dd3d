package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyFlags struct {
	driver    string
	dsn       string
	confirmed bool
	runs      int
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show rule suggestions tracked across validation runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.StringVar(&historyFlags.driver, "history", "", "History store: file, sqlite3, postgres (default from TAGCHECK_HISTORY_DRIVER, else file)")
	f.StringVar(&historyFlags.dsn, "history-dsn", "", "History file path or database DSN")
	f.BoolVar(&historyFlags.confirmed, "confirmed", false, "Only list suggestions seen often enough to be confirmed")
	f.IntVar(&historyFlags.runs, "runs", 10, "Number of most recent runs to list (0 hides runs)")
}

func runHistory(cmd *cobra.Command, _ []string) (err error) {
	if historyFlags.driver != "" {
		cfg.History.Driver = historyFlags.driver
	}
	if cfg.History.Driver == "" {
		cfg.History.Driver = "file"
	}
	if historyFlags.dsn != "" {
		cfg.History.DSN = historyFlags.dsn
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	ctx := cmd.Context()
	tracker, closeHistory, err := openHistory(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeInto(&err, closeHistory)

	doc, err := tracker.Document(ctx)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Event", "Parameter", "Rule", "Seen", "Confirmed", "Last seen"})
	for _, u := range doc.Updates {
		if historyFlags.confirmed && !u.Confirmed {
			continue
		}
		t.AppendRow(table.Row{
			u.EventName, u.ParameterName, truncate(u.SuggestedRule, 60),
			u.Occurrences, u.Confirmed, u.LastSeen.Format("2006-01-02 15:04"),
		})
	}
	fmt.Fprintln(w, "Suggestions")
	t.Render()

	if historyFlags.runs <= 0 || len(doc.History) == 0 {
		return nil
	}
	runs := doc.History
	if len(runs) > historyFlags.runs {
		runs = runs[len(runs)-historyFlags.runs:]
	}
	rt := table.NewWriter()
	rt.SetOutputMirror(w)
	rt.SetStyle(table.StyleLight)
	rt.AppendHeader(table.Row{"Run", "Date", "Accuracy", "Params", "Matched", "Suggestions"})
	for _, r := range runs {
		rt.AppendRow(table.Row{
			shortID(r.ID), r.Date.Format("2006-01-02 15:04"), fmt.Sprintf("%.1f%%", r.Accuracy*100),
			r.TotalParams, r.MatchedParams, r.Suggestions,
		})
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Runs")
	rt.Render()
	return nil
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-3]) + "..."
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
