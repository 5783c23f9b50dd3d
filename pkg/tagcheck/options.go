package tagcheck

type options struct {
	vocabularyPath string
	tolerance      float64
	noisePercent   float64
	lowPercent     float64
	minOccurrences int
}

// Option configures a Checker.
type Option func(*options)

// WithVocabularyFile overlays a vocabulary file (.yaml, .toml or .json) on
// the built-in one.
func WithVocabularyFile(path string) Option {
	return func(o *options) {
		o.vocabularyPath = path
	}
}

// WithTolerance sets the relative difference under which two numbers are
// treated as equal. Default: 0.01.
func WithTolerance(t float64) Option {
	return func(o *options) {
		o.tolerance = t
	}
}

// WithSignificanceThresholds sets the percent-of-traffic limits below which
// an event is noise or low significance. Defaults: 0.01 and 0.1.
func WithSignificanceThresholds(noisePercent, lowPercent float64) Option {
	return func(o *options) {
		o.noisePercent = noisePercent
		o.lowPercent = lowPercent
	}
}

// WithMinOccurrences sets how often a correction must recur before Aggregate
// suggests it as a rule. Default: 2.
func WithMinOccurrences(n int) Option {
	return func(o *options) {
		o.minOccurrences = n
	}
}

func defaultOptions() options {
	return options{
		tolerance:      0.01,
		noisePercent:   0.01,
		lowPercent:     0.1,
		minOccurrences: 2,
	}
}
