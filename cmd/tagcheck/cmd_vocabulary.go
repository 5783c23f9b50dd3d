package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hejijunhao/tagcheck/internal/config"
	"github.com/hejijunhao/tagcheck/internal/engine/vocabulary"
)

var vocabularyCmd = &cobra.Command{
	Use:   "vocabulary",
	Short: "Print the effective vocabulary as YAML",
	Long: `Print the built-in vocabulary with the --vocabulary overlay merged in.
The output can be edited and passed back with --vocabulary.`,
	Args: cobra.NoArgs,
	RunE: runVocabulary,
}

func runVocabulary(cmd *cobra.Command, _ []string) error {
	f, err := config.LoadVocabularyFile(cfg.Engine.VocabularyPath)
	if err != nil {
		return err
	}
	if _, err := vocabulary.New(f); err != nil {
		return err
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return err
	}
	return enc.Close()
}

func loadVocabulary() (*vocabulary.Vocabulary, error) {
	return config.LoadVocabulary(cfg.Engine.VocabularyPath)
}
