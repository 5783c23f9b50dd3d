package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hejijunhao/tagcheck/internal/engine/normalizer"
	"github.com/hejijunhao/tagcheck/internal/engine/verdict"
)

var compareFlags struct {
	tolerance float64
}

var compareCmd = &cobra.Command{
	Use:   "compare <parameter> <predicted> <actual>",
	Short: "Classify one predicted value against the collected one",
	Long: `Compare a single predicted value with the value actually collected and
print the verdict. Arguments that parse as JSON scalars keep their type; use
null for a value that was not sent.`,
	Example: `  tagcheck compare page_type PDP PRODUCT_DETAIL
  tagcheck compare price 19.99 null`,
	Args: cobra.ExactArgs(3),
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().Float64Var(&compareFlags.tolerance, "tolerance", -1, "Relative numeric tolerance (default from TAGCHECK_TOLERANCE)")
}

func runCompare(cmd *cobra.Command, args []string) error {
	vocab, err := loadVocabulary()
	if err != nil {
		return err
	}
	tol := cfg.Engine.Tolerance
	if compareFlags.tolerance >= 0 {
		tol = compareFlags.tolerance
	}
	if tol >= 1 {
		return fmt.Errorf("tolerance must be below 1, got %v", tol)
	}
	cls := verdict.New(normalizer.New(vocab), verdict.WithTolerance(tol))
	c := cls.Classify(args[0], parseValue(args[1]), parseValue(args[2]))

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}
