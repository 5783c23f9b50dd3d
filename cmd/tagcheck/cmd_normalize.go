package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hejijunhao/tagcheck/internal/engine/normalizer"
)

var normalizeFlags struct {
	json bool
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize <parameter> <value>...",
	Short: "Show the canonical form of values for a parameter",
	Example: `  tagcheck normalize site_language en-GB fr_FR
  tagcheck normalize price '"12.50 EUR"' 0`,
	Args: cobra.MinimumNArgs(2),
	RunE: runNormalize,
}

func init() {
	normalizeCmd.Flags().BoolVar(&normalizeFlags.json, "json", false, "Print results as JSON lines")
}

type normalizeResult struct {
	Parameter  string `json:"parameter"`
	Raw        any    `json:"raw"`
	Normalized any    `json:"normalized"`
	Rule       string `json:"rule"`
}

func runNormalize(cmd *cobra.Command, args []string) error {
	vocab, err := loadVocabulary()
	if err != nil {
		return err
	}
	n := normalizer.New(vocab)
	name := args[0]
	rule := n.RuleName(name)

	w := cmd.OutOrStdout()
	enc := json.NewEncoder(w)
	for _, arg := range args[1:] {
		raw := parseValue(arg)
		got := n.Normalize(name, raw)
		if normalizeFlags.json {
			res := normalizeResult{Parameter: name, Raw: raw, Rule: rule}
			if got.Valid {
				res.Normalized = got.Value
			}
			if err := enc.Encode(res); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(w, "%-24s -> %-24s (%s)\n", arg, got.String(), rule)
	}
	return nil
}
