package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/hejijunhao/tagcheck/internal/model"
)

var significanceFlags struct {
	total int64
	path  string
}

var significanceCmd = &cobra.Command{
	Use:   "significance <event=count>...",
	Short: "Classify events by their share of a page's traffic",
	Example: `  tagcheck significance page_view=9000 add_to_cart=950 scroll_90=3
  tagcheck significance --total 20000 page_view=9000 purchase=12`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSignificance,
}

func init() {
	f := significanceCmd.Flags()
	f.Int64Var(&significanceFlags.total, "total", 0, "Total events on the page (default sum of counts)")
	f.StringVar(&significanceFlags.path, "path", "/", "Page path shown in the output")
}

func parseCounts(args []string) ([]model.EventCount, error) {
	counts := make([]model.EventCount, 0, len(args))
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("expected event=count, got %q", arg)
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("count for %s must be a non-negative integer, got %q", name, raw)
		}
		counts = append(counts, model.EventCount{EventName: name, Count: n})
	}
	return counts, nil
}

func runSignificance(cmd *cobra.Command, args []string) error {
	counts, err := parseCounts(args)
	if err != nil {
		return err
	}
	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	props := eng.Significance().Proportions(significanceFlags.path, counts, significanceFlags.total)

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Event", "Count", "Share", "Significance"})
	for _, p := range props {
		t.AppendRow(table.Row{p.EventName, p.EventCount, fmt.Sprintf("%.3f%%", p.Proportion*100), p.Significance})
	}
	t.Render()
	return nil
}
