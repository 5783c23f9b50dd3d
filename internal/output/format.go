package output

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hejijunhao/tagcheck/internal/model"
)

// Verbosity controls how much per-event detail a report keeps.
type Verbosity int

const (
	Minimal  Verbosity = iota // aggregates only
	Standard                  // non-matching comparisons, long raw values truncated
	Full                      // everything
)

// maxRawLen bounds raw string values at Standard verbosity.
const maxRawLen = 200

func (v Verbosity) String() string {
	switch v {
	case Minimal:
		return "minimal"
	case Standard:
		return "standard"
	case Full:
		return "full"
	default:
		return fmt.Sprintf("Verbosity(%d)", int(v))
	}
}

// ParseVerbosity maps a name to a Verbosity.
func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimal":
		return Minimal, nil
	case "standard", "":
		return Standard, nil
	case "full":
		return Full, nil
	default:
		return Standard, fmt.Errorf("unknown verbosity %q", s)
	}
}

// FormatReport returns a copy of the report with detail stripped according
// to verbosity. The input report is not modified.
func FormatReport(r model.Report, verbosity Verbosity) model.Report {
	switch verbosity {
	case Minimal:
		r.EventResults = nil
	case Standard:
		events := make([]model.EventResult, 0, len(r.EventResults))
		for _, e := range r.EventResults {
			var kept []model.Comparison
			for _, c := range e.Parameters {
				if c.Match {
					continue
				}
				c.PredictedRaw = truncateRaw(c.PredictedRaw)
				c.ActualRaw = truncateRaw(c.ActualRaw)
				kept = append(kept, c)
			}
			e.Parameters = kept
			events = append(events, e)
		}
		if len(events) > 0 {
			r.EventResults = events
		} else {
			r.EventResults = nil
		}
	}
	return r
}

func truncateRaw(v any) any {
	s, ok := v.(string)
	if !ok || utf8.RuneCountInString(s) <= maxRawLen {
		return v
	}
	return string([]rune(s)[:maxRawLen]) + "..."
}
