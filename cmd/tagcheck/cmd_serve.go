package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hejijunhao/tagcheck/internal/server"
)

var serveFlags struct {
	addr string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the validation engine over HTTP",
	Long: `Start an HTTP API exposing normalization, comparison, significance and
page validation. When a history store is configured its confirmed
suggestions are served under /v1/history/confirmed.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.addr, "addr", "", "Listen address (default from TAGCHECK_ADDR)")
}

func runServe(cmd *cobra.Command, _ []string) (err error) {
	if serveFlags.addr != "" {
		cfg.Server.Addr = serveFlags.addr
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	opts := []server.Option{
		server.WithVersion(version),
		server.WithMinOccurrences(cfg.Engine.MinOccurrences),
	}
	tracker, closeHistory, err := openHistory(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeInto(&err, closeHistory)
	if tracker != nil {
		opts = append(opts, server.WithHistory(tracker))
	}

	return server.New(eng, opts...).ListenAndServe(ctx, cfg.Server.Addr, cfg.ShutdownTimeout)
}
