package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hejijunhao/tagcheck/internal/config"
	"github.com/hejijunhao/tagcheck/internal/logging"
)

var version = config.Version

var rootFlags struct {
	envFile    string
	logLevel   string
	logFormat  string
	vocabulary string
}

// cfg is filled by the root pre-run hook before any subcommand runs.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "tagcheck",
	Short: "Validate predicted analytics tags against collected values",
	Long: `tagcheck compares the analytics parameters a page was predicted to send
with what it actually sent, classifies every difference, weights events by
how often they fire and turns recurring corrections into rule suggestions.`,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.envFile, "env-file", "", "Load environment from this file (default .env when present)")
	pf.StringVar(&rootFlags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&rootFlags.logFormat, "log-format", "", "Log format: text or json")
	pf.StringVar(&rootFlags.vocabulary, "vocabulary", "", "Vocabulary overlay file (.yaml, .toml or .json)")

	rootCmd.AddCommand(validateCmd, normalizeCmd, compareCmd, significanceCmd, historyCmd, serveCmd, vocabularyCmd)
	rootCmd.Version = version
}

func setup(cmd *cobra.Command, _ []string) error {
	if err := loadEnv(rootFlags.envFile); err != nil {
		return err
	}
	cfg = config.Load()
	if rootFlags.logLevel != "" {
		cfg.LogLevel = rootFlags.logLevel
	}
	if rootFlags.logFormat != "" {
		cfg.LogFormat = rootFlags.logFormat
	}
	if rootFlags.vocabulary != "" {
		cfg.Engine.VocabularyPath = rootFlags.vocabulary
	}
	logging.Init(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat, cmd.ErrOrStderr())
	slog.Debug("tagcheck starting", "version", version, "command", cmd.Name())
	return nil
}

// loadEnv reads a dotenv file. Without an explicit path a missing .env is
// not an error. Variables already set in the environment win.
func loadEnv(path string) error {
	if path == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
