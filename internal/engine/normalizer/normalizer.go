// Package normalizer maps raw parameter values to the canonical strings used
// for comparison. Dispatch is on the parameter name: an ordered list of rules
// is tried and the first whose Match accepts the name wins.
package normalizer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/hejijunhao/tagcheck/internal/engine/vocabulary"
	"github.com/hejijunhao/tagcheck/internal/model"
)

// Rule normalizes the values of one parameter class. Apply receives the
// NFKC-folded raw text and returns ok=false when the value should be null.
type Rule struct {
	Name  string
	Match func(param string) bool
	Apply func(value string) (string, bool)
}

// Normalizer is immutable and safe for concurrent use.
type Normalizer struct {
	vocab *vocabulary.Vocabulary
	rules []Rule
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithRules adds rules that are tried before the built-in ones.
func WithRules(rules ...Rule) Option {
	return func(n *Normalizer) {
		n.rules = append(append([]Rule(nil), rules...), n.rules...)
	}
}

// New builds a Normalizer over v. A nil v uses the built-in vocabulary.
func New(v *vocabulary.Vocabulary, opts ...Option) *Normalizer {
	if v == nil {
		v = vocabulary.Default()
	}
	n := &Normalizer{vocab: v}
	n.rules = []Rule{
		{Name: "locale", Match: v.IsLocale, Apply: locale},
		{Name: "numeric", Match: v.IsNumeric, Apply: numeric},
		{Name: "identifier", Match: v.IsIdentifier, Apply: lower},
		{Name: "mode", Match: v.IsMode, Apply: upper},
		{Name: "group", Match: v.IsGroupLabel, Apply: n.groupLabel},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Vocabulary returns the vocabulary the normalizer was built with.
func (n *Normalizer) Vocabulary() *vocabulary.Vocabulary { return n.vocab }

// Normalize returns the canonical form of raw for parameter name. Nil, empty
// strings and the literals "null" and "undefined" are null for every name.
func (n *Normalizer) Normalize(name string, raw any) model.Normalized {
	s, ok := Text(raw)
	if !ok {
		return model.Null
	}
	s = norm.NFKC.String(s)
	if IsNullText(s) {
		return model.Null
	}
	apply := lower
	for _, r := range n.rules {
		if r.Match(name) {
			apply = r.Apply
			break
		}
	}
	out, ok := apply(s)
	if !ok || out == "" {
		return model.Null
	}
	// Case mapping and label stripping can leave combining marks uncomposed.
	return model.Some(norm.NFKC.String(out))
}

// GroupLabel canonicalizes a category label with the group rule regardless
// of parameter name.
func (n *Normalizer) GroupLabel(raw string) model.Normalized {
	s := norm.NFKC.String(raw)
	if IsNullText(s) {
		return model.Null
	}
	out, ok := n.groupLabel(s)
	if !ok || out == "" {
		return model.Null
	}
	return model.Some(norm.NFKC.String(out))
}

// RuleName reports which rule handles name, or "default".
func (n *Normalizer) RuleName(name string) string {
	for _, r := range n.rules {
		if r.Match(name) {
			return r.Name
		}
	}
	return "default"
}

// IsNullText reports whether s is one of the textual null markers.
func IsNullText(s string) bool {
	t := strings.TrimSpace(s)
	return t == "" || strings.EqualFold(t, "null") || strings.EqualFold(t, "undefined")
}

// Text renders a raw value as text. ok is false for nil.
func Text(raw any) (string, bool) {
	switch v := raw.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case model.Normalized:
		return v.Value, v.Valid
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case uint:
		return strconv.FormatUint(uint64(v), 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	case uint32:
		return strconv.FormatUint(uint64(v), 10), true
	case bool:
		return strconv.FormatBool(v), true
	case fmt.Stringer:
		return v.String(), true
	default:
		return fmt.Sprint(v), true
	}
}

// Casers keep state between calls, so each call gets its own.
func toLower(s string) string { return cases.Lower(language.Und).String(s) }
func toUpper(s string) string { return cases.Upper(language.Und).String(s) }

func lower(s string) (string, bool) { return toLower(strings.TrimSpace(s)), true }
func upper(s string) (string, bool) { return toUpper(strings.TrimSpace(s)), true }

// locale keeps the language subtag: "ko-KR" and "ko_KR" become "ko".
func locale(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "-_"); i >= 0 {
		s = s[:i]
	}
	return toLower(strings.TrimSpace(s)), true
}

// numeric keeps digits, '.' and '-'. Zero and digit-free values are unset.
func numeric(s string) (string, bool) {
	var b strings.Builder
	digits := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits = true
			b.WriteRune(r)
		case r == '.' || r == '-':
			b.WriteRune(r)
		}
	}
	if !digits {
		return "", false
	}
	out := b.String()
	if f, err := strconv.ParseFloat(out, 64); err == nil && f == 0 {
		return "", false
	}
	return out, true
}

func (n *Normalizer) groupLabel(s string) (string, bool) {
	key := vocabulary.StripLabel(toUpper(strings.TrimSpace(s)))
	if label, ok := n.vocab.Canonical(key); ok {
		return label, true
	}
	return key, true
}

// ParseNumber extracts the numeric value of s after numeric normalization.
func ParseNumber(s string) (float64, bool) {
	out, ok := numeric(s)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(out, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
