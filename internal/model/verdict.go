package model

import (
	"errors"
	"fmt"
	"strings"
)

// Verdict is the outcome of comparing one predicted/actual parameter pair.
type Verdict string

const (
	VerdictCorrect            Verdict = "CORRECT"
	VerdictCorrectDataMissing Verdict = "CORRECT_DATA_MISSING"
	VerdictMismatch           Verdict = "MISMATCH"
	VerdictMissingPrediction  Verdict = "MISSING_PREDICTION"
	VerdictMissingActual      Verdict = "MISSING_ACTUAL"
)

// Verdicts lists every verdict in report order.
var Verdicts = []Verdict{
	VerdictCorrect,
	VerdictCorrectDataMissing,
	VerdictMismatch,
	VerdictMissingPrediction,
	VerdictMissingActual,
}

// IsMatch reports whether the verdict counts as a match.
func (v Verdict) IsMatch() bool {
	return v == VerdictCorrect || v == VerdictCorrectDataMissing
}

// Reason explains a MISMATCH verdict.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonCase          Reason = "case difference"
	ReasonFormat        Reason = "format difference"
	ReasonLocale        Reason = "locale format difference"
	ReasonPartial       Reason = "partial string difference"
	ReasonValue         Reason = "value differs"
	ReasonCategoryLabel Reason = "category label differs"
)

// Significance classifies an event's share of a page's traffic.
type Significance string

const (
	SignificanceUnknown     Significance = ""
	SignificanceNoise       Significance = "noise"
	SignificanceLow         Significance = "low"
	SignificanceSignificant Significance = "significant"
)

// Confidence is the predictor's confidence label for one parameter.
// ConfidenceSkip excludes the parameter from comparison.
type Confidence int

const (
	ConfidenceUnset Confidence = iota
	ConfidenceHigh
	ConfidenceMedium
	ConfidenceLow
	ConfidenceSkip
)

// ErrUnknownConfidence is returned when a confidence label is not recognised.
var ErrUnknownConfidence = errors.New("unknown confidence label")

var confidenceNames = map[Confidence]string{
	ConfidenceUnset:  "",
	ConfidenceHigh:   "high",
	ConfidenceMedium: "medium",
	ConfidenceLow:    "low",
	ConfidenceSkip:   "skip",
}

func (c Confidence) String() string {
	return confidenceNames[c]
}

// ParseConfidence maps a label to a Confidence. The empty string is ConfidenceUnset.
func ParseConfidence(s string) (Confidence, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for c, name := range confidenceNames {
		if name == want {
			return c, nil
		}
	}
	return ConfidenceUnset, fmt.Errorf("%w: %q", ErrUnknownConfidence, s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Confidence) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown labels are an error
// so a typo never silently suppresses validation.
func (c *Confidence) UnmarshalText(text []byte) error {
	parsed, err := ParseConfidence(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
