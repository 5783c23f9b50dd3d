package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/hejijunhao/tagcheck/internal/config"
	"github.com/hejijunhao/tagcheck/internal/engine"
	"github.com/hejijunhao/tagcheck/internal/engine/normalizer"
	"github.com/hejijunhao/tagcheck/internal/engine/significance"
	"github.com/hejijunhao/tagcheck/internal/engine/verdict"
	"github.com/hejijunhao/tagcheck/internal/history"
	"github.com/hejijunhao/tagcheck/internal/output"
	"github.com/hejijunhao/tagcheck/internal/output/async"
	"github.com/hejijunhao/tagcheck/internal/output/multi"
	"github.com/hejijunhao/tagcheck/internal/output/stdout"
	"github.com/hejijunhao/tagcheck/internal/output/table"
	"github.com/hejijunhao/tagcheck/internal/output/webhook"
	"github.com/hejijunhao/tagcheck/internal/output/xlsx"
	"github.com/hejijunhao/tagcheck/internal/source"
	"github.com/hejijunhao/tagcheck/internal/source/analytics"
	"github.com/hejijunhao/tagcheck/internal/source/browser"

	fileout "github.com/hejijunhao/tagcheck/internal/output/file"
)

// buildEngine wires the vocabulary, normalizer and both classifiers.
func buildEngine(c config.Config) (*engine.Engine, error) {
	vocab, err := config.LoadVocabulary(c.Engine.VocabularyPath)
	if err != nil {
		return nil, err
	}
	norm := normalizer.New(vocab)
	cls := verdict.New(norm, verdict.WithTolerance(c.Engine.Tolerance))
	sig := significance.New(c.Engine.NoisePercent, c.Engine.LowPercent)
	return engine.New(cls, sig), nil
}

// buildOutput assembles the report destinations. The primary format goes to
// Output.Path or w; a webhook, when configured, receives a copy. With
// background set the webhook is decoupled from the run loop.
func buildOutput(c config.Config, w io.Writer, background bool) (output.Output, error) {
	verbosity, err := output.ParseVerbosity(c.Output.Verbosity)
	if err != nil {
		return nil, err
	}

	var primary output.Output
	switch c.Output.Format {
	case "json", "":
		if c.Output.Path == "" {
			primary = stdout.NewWriter(w, verbosity, c.Output.Pretty)
		} else {
			primary, err = fileout.New(c.Output.Path, verbosity)
		}
	case "xlsx":
		if c.Output.Path == "" {
			return nil, fmt.Errorf("xlsx output needs a path")
		}
		primary = xlsx.New(c.Output.Path, verbosity)
	default:
		mode, perr := table.ParseMode(c.Output.Format)
		if perr != nil {
			return nil, perr
		}
		if c.Output.Path == "" {
			primary = table.NewWriter(w, mode, verbosity)
		} else {
			primary, err = table.Create(c.Output.Path, mode, verbosity)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}

	if c.Output.WebhookURL == "" {
		return primary, nil
	}
	var hook output.Output = webhook.New(c.Output.WebhookURL)
	if background {
		hook = async.New(hook, async.WithSupersede(), async.WithOnError(func(err error) {
			slog.Warn("webhook delivery failed", "error", err)
		}))
	}
	return multi.New(primary, hook), nil
}

// openHistory returns a tracker for the configured store, or nil when
// history is disabled. The returned close func is never nil.
func openHistory(ctx context.Context, c config.Config) (*history.Tracker, func() error, error) {
	noop := func() error { return nil }
	opts := []history.Option{history.WithConfirmAfter(c.History.ConfirmAfter)}
	switch c.History.Driver {
	case "":
		return nil, noop, nil
	case "file":
		return history.New(history.NewFileStore(c.History.DSN), opts...), noop, nil
	default:
		store, err := history.OpenSQL(ctx, c.History.Driver, c.History.DSN)
		if err != nil {
			return nil, noop, err
		}
		return history.New(store, opts...), store.Close, nil
	}
}

// providers holds the optional enrichment sources for a run.
type providers struct {
	counts  source.CountProvider
	actual  source.ActualProvider
	closers []func() error
}

func (p *providers) Close() error {
	var errs []error
	for _, c := range p.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// closeInto runs closeFn and joins its error into *errp. Meant for defer with a
// named error return.
func closeInto(errp *error, closeFn func() error) {
	*errp = errors.Join(*errp, closeFn())
}

func buildProviders(ctx context.Context, c config.Config) (*providers, error) {
	p := &providers{}
	srcCfg := sourceConfig(c)
	if c.Source.Endpoint != "" {
		a, err := analytics.New(srcCfg, c.Source.PropertyID)
		if err != nil {
			return nil, err
		}
		p.counts = a
	}
	if c.Source.Browser {
		b := browser.New(ctx, srcCfg, c.Source.BrowserTimeout)
		p.actual = b
		p.closers = append(p.closers, b.Close)
	}
	return p, nil
}

func sourceConfig(c config.Config) source.Config {
	return source.Config{
		Provider: c.Source.Provider,
		Path:     c.Source.Path,
		Endpoint: c.Source.Endpoint,
		APIKey:   c.Source.APIKey,
		Extra:    c.Source.Extra,
	}
}

// parseValue turns a command-line argument into a raw value. Valid JSON
// scalars are decoded (so 12.50, true and null keep their type); anything
// else is taken as a string.
func parseValue(arg string) any {
	trimmed := strings.TrimSpace(arg)
	if trimmed == "" {
		return arg
	}
	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return arg
	}
	switch v.(type) {
	case map[string]any, []any:
		return arg
	}
	return v
}
