package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hejijunhao/tagcheck/internal/pipeline"
	"github.com/hejijunhao/tagcheck/internal/source"
	"github.com/hejijunhao/tagcheck/internal/watch"

	// Register source implementations.
	_ "github.com/hejijunhao/tagcheck/internal/source/file"
)

var validateFlags struct {
	source         string
	pages          string
	format         string
	outputPath     string
	verbosity      string
	pretty         bool
	webhook        string
	workers        int
	minOccurrences int
	historyDriver  string
	historyDSN     string
	browser        bool
	watch          bool
	debounce       time.Duration
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate predicted tags for a set of pages and report the results",
	Long: `Load pages from a source, compare every predicted parameter against the
collected value and write the aggregated report. With --watch the pages are
re-validated whenever a file under the source path changes.`,
	RunE: runValidate,
}

func init() {
	f := validateCmd.Flags()
	f.StringVar(&validateFlags.source, "source", "", fmt.Sprintf("Page source provider %v (default from TAGCHECK_SOURCE)", source.Providers()))
	f.StringVarP(&validateFlags.pages, "pages", "p", "", "Page fixture file or directory")
	f.StringVarP(&validateFlags.format, "format", "f", "", "Report format: json, table, markdown, html, xlsx")
	f.StringVarP(&validateFlags.outputPath, "output", "o", "", "Write the report to this file instead of stdout")
	f.StringVar(&validateFlags.verbosity, "verbosity", "", "Report detail: minimal, standard, full")
	f.BoolVar(&validateFlags.pretty, "pretty", false, "Indent JSON output")
	f.StringVar(&validateFlags.webhook, "webhook", "", "Also POST each report to this URL")
	f.IntVar(&validateFlags.workers, "workers", 0, "Pages validated concurrently")
	f.IntVar(&validateFlags.minOccurrences, "min-occurrences", 0, "Minimum repeats before a correction is suggested as a rule")
	f.StringVar(&validateFlags.historyDriver, "history", "", "Track suggestions across runs: file, sqlite3, postgres")
	f.StringVar(&validateFlags.historyDSN, "history-dsn", "", "History file path or database DSN")
	f.BoolVar(&validateFlags.browser, "browser", false, "Collect actual values from each page's dataLayer with a headless browser")
	f.BoolVarP(&validateFlags.watch, "watch", "w", false, "Re-validate when page files change")
	f.DurationVar(&validateFlags.debounce, "debounce", watch.DefaultDebounce, "Quiet period before a watched change triggers a run")
}

// applyValidateFlags overlays explicitly set flags on the loaded config.
func applyValidateFlags(cmd *cobra.Command) error {
	f := cmd.Flags()
	if f.Changed("source") {
		cfg.Source.Provider = validateFlags.source
	}
	if f.Changed("pages") {
		cfg.Source.Path = validateFlags.pages
	}
	if f.Changed("format") {
		cfg.Output.Format = validateFlags.format
	}
	if f.Changed("output") {
		cfg.Output.Path = validateFlags.outputPath
	}
	if f.Changed("verbosity") {
		cfg.Output.Verbosity = validateFlags.verbosity
	}
	if f.Changed("pretty") {
		cfg.Output.Pretty = validateFlags.pretty
	}
	if f.Changed("webhook") {
		cfg.Output.WebhookURL = validateFlags.webhook
	}
	if f.Changed("workers") {
		cfg.Workers = validateFlags.workers
	}
	if f.Changed("min-occurrences") {
		cfg.Engine.MinOccurrences = validateFlags.minOccurrences
	}
	if f.Changed("history") {
		cfg.History.Driver = validateFlags.historyDriver
	}
	if f.Changed("history-dsn") {
		cfg.History.DSN = validateFlags.historyDSN
	}
	if f.Changed("browser") {
		cfg.Source.Browser = validateFlags.browser
	}
	return cfg.Validate()
}

func runValidate(cmd *cobra.Command, _ []string) (err error) {
	if err = applyValidateFlags(cmd); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	ctor, err := source.Get(cfg.Source.Provider)
	if err != nil {
		return err
	}
	out, err := buildOutput(cfg, cmd.OutOrStdout(), validateFlags.watch)
	if err != nil {
		return err
	}
	prov, err := buildProviders(ctx, cfg)
	if err != nil {
		return errors.Join(err, out.Close())
	}
	defer closeInto(&err, prov.Close)
	tracker, closeHistory, err := openHistory(ctx, cfg)
	if err != nil {
		return errors.Join(err, out.Close())
	}
	defer closeInto(&err, closeHistory)

	opts := []pipeline.Option{
		pipeline.WithWorkers(cfg.Workers),
		pipeline.WithMinOccurrences(cfg.Engine.MinOccurrences),
	}
	if prov.counts != nil {
		opts = append(opts, pipeline.WithCounts(prov.counts))
	}
	if prov.actual != nil {
		opts = append(opts, pipeline.WithActual(prov.actual))
	}
	if tracker != nil {
		opts = append(opts, pipeline.WithRecorder(tracker))
	}
	p := pipeline.New(ctor(), eng, out, opts...)
	// Closes out.
	defer closeInto(&err, p.Close)

	srcCfg := sourceConfig(cfg)
	runOnce := func(ctx context.Context) error {
		report, err := p.Run(ctx, srcCfg)
		if err != nil {
			return err
		}
		slog.Info("validation complete",
			"events", len(report.EventResults),
			"params", report.TotalParams,
			"accuracy", report.OverallAccuracy,
			"suggestions", len(report.Improvements),
			"degraded", p.Degraded(),
		)
		return nil
	}

	if err = runOnce(ctx); err != nil {
		return err
	}
	if !validateFlags.watch {
		return nil
	}

	w := watch.New([]string{cfg.Source.Path}, watch.WithDebounce(validateFlags.debounce))
	slog.Info("watching for changes", "path", cfg.Source.Path)
	err = w.Run(ctx, func(ctx context.Context, changed []string) error {
		slog.Info("change detected", "files", len(changed))
		return runOnce(ctx)
	})
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
