// Package xlsx writes validation reports as Excel workbooks, one sheet per
// report section.
package xlsx

import (
	"context"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/hejijunhao/tagcheck/internal/model"
	"github.com/hejijunhao/tagcheck/internal/output"
)

// Sheet names, in workbook order.
const (
	SheetSummary     = "Summary"
	SheetParameters  = "Parameters"
	SheetGroups      = "Groups"
	SheetSuggestions = "Suggestions"
	SheetComparisons = "Comparisons"
)

// Output saves each report to path, replacing the previous workbook.
type Output struct {
	path      string
	verbosity output.Verbosity
}

// New creates an xlsx output writing to path.
func New(path string, verbosity output.Verbosity) *Output {
	return &Output{path: path, verbosity: verbosity}
}

func (o *Output) Write(_ context.Context, report model.Report) error {
	if err := WriteFile(o.path, output.FormatReport(report, o.verbosity)); err != nil {
		return fmt.Errorf("xlsx output: %w", err)
	}
	return nil
}

func (o *Output) Close() error { return nil }

// WriteFile builds the workbook for r and saves it to path.
func WriteFile(path string, r model.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return err
	}
	sheets := []struct {
		name string
		rows [][]any
	}{
		{SheetSummary, summaryRows(r)},
		{SheetParameters, tallyRows("parameter", r.ParameterAccuracy)},
		{SheetGroups, tallyRows("group", r.GroupAccuracy)},
		{SheetSuggestions, suggestionRows(r.Improvements)},
		{SheetComparisons, comparisonRows(r.EventResults)},
	}
	for _, s := range sheets {
		if s.name != SheetSummary {
			if _, err := f.NewSheet(s.name); err != nil {
				return err
			}
		}
		if err := writeRows(f, s.name, s.rows); err != nil {
			return fmt.Errorf("sheet %s: %w", s.name, err)
		}
	}
	f.SetActiveSheet(0)
	return f.SaveAs(path)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	if len(rows) > 0 {
		return f.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		})
	}
	return nil
}

func summaryRows(r model.Report) [][]any {
	rows := [][]any{
		{"metric", "value"},
		{"overall_accuracy", r.OverallAccuracy},
		{"total_params", r.TotalParams},
		{"matched_params", r.MatchedParams},
	}
	for _, v := range model.Verdicts {
		rows = append(rows, []any{string(v), r.VerdictCounts[v]})
	}
	s := r.Summary
	rows = append(rows,
		[]any{"scored_events", s.ScoredEvents},
		[]any{"noise_events", s.NoiseEvents},
		[]any{"mean_event_accuracy", s.MeanAccuracy},
		[]any{"median_event_accuracy", s.MedianAccuracy},
		[]any{"p10_event_accuracy", s.P10Accuracy},
	)
	if c := r.Coverage; c != nil {
		rows = append(rows,
			[]any{"event_precision", c.Precision},
			[]any{"event_recall", c.Recall},
			[]any{"event_f1", c.F1},
		)
	}
	return rows
}

func tallyRows(label string, tallies map[string]model.Tally) [][]any {
	keys := make([]string, 0, len(tallies))
	for k := range tallies {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := [][]any{{label, "matched", "total", "accuracy", "ci_lower", "ci_upper"}}
	for _, k := range keys {
		t := tallies[k]
		rows = append(rows, []any{k, t.Matched, t.Total, t.Accuracy, t.Lower, t.Upper})
	}
	return rows
}

func suggestionRows(suggestions []model.RuleSuggestion) [][]any {
	rows := [][]any{{"event_name", "parameter_name", "suggested_rule", "reason", "affected_count"}}
	for _, s := range suggestions {
		rows = append(rows, []any{s.EventName, s.ParameterName, s.SuggestedRule, s.Reason, s.AffectedCount})
	}
	return rows
}

func comparisonRows(events []model.EventResult) [][]any {
	rows := [][]any{{"page_url", "group_label", "event_name", "significance", "parameter",
		"predicted", "actual", "verdict", "reason"}}
	for _, e := range events {
		for _, c := range e.Parameters {
			rows = append(rows, []any{e.PageURL, e.GroupLabel, e.EventName, string(e.Significance), c.Parameter,
				c.NormalizedPredicted.String(), c.NormalizedActual.String(), string(c.Verdict), string(c.Reason)})
		}
	}
	return rows
}
