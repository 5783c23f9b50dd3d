// Package table renders validation reports as human-readable tables:
// box-drawn ASCII for terminals, GitHub-flavoured Markdown, or a standalone
// HTML page converted from the Markdown.
package table

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/hejijunhao/tagcheck/internal/model"
	"github.com/hejijunhao/tagcheck/internal/output"
)

// Mode controls the rendered format.
type Mode int

const (
	ASCII Mode = iota
	Markdown
	HTML
)

// ParseMode maps a format name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "table", "ascii", "text":
		return ASCII, nil
	case "markdown", "md":
		return Markdown, nil
	case "html":
		return HTML, nil
	default:
		return ASCII, fmt.Errorf("unknown table mode %q", s)
	}
}

// Output writes each report as a set of tables.
type Output struct {
	w         io.Writer
	closer    io.Closer
	mode      Mode
	verbosity output.Verbosity
}

// New renders to stdout.
func New(mode Mode, verbosity output.Verbosity) *Output {
	return NewWriter(os.Stdout, mode, verbosity)
}

// NewWriter renders to w.
func NewWriter(w io.Writer, mode Mode, verbosity output.Verbosity) *Output {
	return &Output{w: w, mode: mode, verbosity: verbosity}
}

// Create renders to a new file at path, truncating any existing one.
func Create(path string, mode Mode, verbosity output.Verbosity) (*Output, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("table output: %w", err)
	}
	o := NewWriter(f, mode, verbosity)
	o.closer = f
	return o, nil
}

func (o *Output) Write(_ context.Context, report model.Report) error {
	if _, err := io.WriteString(o.w, Render(report, o.mode, o.verbosity)); err != nil {
		return fmt.Errorf("table output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	if o.closer != nil {
		return o.closer.Close()
	}
	return nil
}

// Render formats the report in the given mode.
func Render(report model.Report, mode Mode, verbosity output.Verbosity) string {
	report = output.FormatReport(report, verbosity)
	if mode == HTML {
		return toHTML(render(report, Markdown))
	}
	return render(report, mode)
}

func render(r model.Report, mode Mode) string {
	var b strings.Builder
	section := func(title string, t table.Writer) {
		if t == nil {
			return
		}
		if mode == Markdown {
			fmt.Fprintf(&b, "## %s\n\n%s\n\n", title, t.RenderMarkdown())
			return
		}
		t.SetStyle(table.StyleLight)
		fmt.Fprintf(&b, "%s\n%s\n\n", title, t.Render())
	}

	section("Summary", summaryTable(r))
	section("Parameters", tallyTable("Parameter", r.ParameterAccuracy))
	section("Groups", tallyTable("Group", r.GroupAccuracy))
	section("Suggested rules", improvementsTable(r.Improvements))
	section("Discrepancies", discrepancyTable(r.EventResults))
	return b.String()
}

func summaryTable(r model.Report) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRow(table.Row{"Overall accuracy", percent(r.OverallAccuracy)})
	t.AppendRow(table.Row{"Matched parameters", fmt.Sprintf("%d / %d", r.MatchedParams, r.TotalParams)})
	for _, v := range model.Verdicts {
		if n := r.VerdictCounts[v]; n > 0 {
			t.AppendRow(table.Row{string(v), n})
		}
	}
	s := r.Summary
	if s.ScoredEvents > 0 {
		t.AppendRow(table.Row{"Scored events", s.ScoredEvents})
		t.AppendRow(table.Row{"Median event accuracy", percent(s.MedianAccuracy)})
		t.AppendRow(table.Row{"P10 event accuracy", percent(s.P10Accuracy)})
	}
	if s.NoiseEvents > 0 {
		t.AppendRow(table.Row{"Noise events (excluded)", s.NoiseEvents})
	}
	if c := r.Coverage; c != nil {
		t.AppendRow(table.Row{"Event precision", percent(c.Precision)})
		t.AppendRow(table.Row{"Event recall", percent(c.Recall)})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	return t
}

func tallyTable(label string, tallies map[string]model.Tally) table.Writer {
	if len(tallies) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tallies))
	for k := range tallies {
		keys = append(keys, k)
	}
	// Worst first, so problems lead.
	sort.Slice(keys, func(i, j int) bool {
		a, b := tallies[keys[i]], tallies[keys[j]]
		if a.Accuracy != b.Accuracy {
			return a.Accuracy < b.Accuracy
		}
		return keys[i] < keys[j]
	})

	t := table.NewWriter()
	t.AppendHeader(table.Row{label, "Matched", "Total", "Accuracy", "95% CI"})
	for _, k := range keys {
		tl := tallies[k]
		t.AppendRow(table.Row{k, tl.Matched, tl.Total, percent(tl.Accuracy),
			percent(tl.Lower) + " - " + percent(tl.Upper)})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	return t
}

func improvementsTable(suggestions []model.RuleSuggestion) table.Writer {
	if len(suggestions) == 0 {
		return nil
	}
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Event", "Parameter", "Suggested rule", "Affected", "Reason"})
	for _, s := range suggestions {
		t.AppendRow(table.Row{s.EventName, s.ParameterName, s.SuggestedRule, s.AffectedCount, s.Reason})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, WidthMax: 60},
		{Number: 4, Align: text.AlignRight},
	})
	return t
}

func discrepancyTable(events []model.EventResult) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Page", "Event", "Parameter", "Predicted", "Actual", "Verdict", "Reason"})
	rows := 0
	for _, e := range events {
		for _, c := range e.Parameters {
			if c.Match {
				continue
			}
			t.AppendRow(table.Row{e.PageURL, e.EventName, c.Parameter,
				c.NormalizedPredicted.String(), c.NormalizedActual.String(), string(c.Verdict), string(c.Reason)})
			rows++
		}
	}
	if rows == 0 {
		return nil
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMax: 48},
		{Number: 4, WidthMax: 40},
		{Number: 5, WidthMax: 40},
	})
	return t
}

func percent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

func toHTML(md string) string {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	r := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Title: "Prediction validation report",
		Flags: mdhtml.CommonFlags | mdhtml.CompletePage,
	})
	return string(markdown.ToHTML([]byte("# Prediction validation report\n\n"+md), p, r))
}
