// Package vocabulary holds the parameter-name classes, the category alias
// table and the URL-to-category patterns used by the normalizer and the
// verdict classifier. A Vocabulary is immutable once built and safe for
// concurrent use.
package vocabulary

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// DefaultOthersLabel is the category the analytics platform reports when it
// failed to classify a page.
const DefaultOthersLabel = "OTHERS"

// Vocabulary is the compiled form of a File.
type Vocabulary struct {
	others     string
	locale     matcher
	numeric    matcher
	identifier matcher
	mode       matcher
	group      matcher
	aliases    map[string]string // stripped synonym -> canonical label
	allowlist  []string
	patterns   []compiledPattern
}

type compiledPattern struct {
	re    *regexp.Regexp
	group string
}

// New compiles f. It fails on an invalid URL pattern or on a synonym claimed
// by two different canonical labels.
func New(f File) (*Vocabulary, error) {
	v := &Vocabulary{
		others:     strings.ToUpper(strings.TrimSpace(f.OthersLabel)),
		locale:     newMatcher(f.Locale),
		numeric:    newMatcher(f.Numeric),
		identifier: newMatcher(f.Identifier),
		mode:       newMatcher(f.Mode),
		group:      newMatcher(f.Group),
		aliases:    make(map[string]string),
	}
	if v.others == "" {
		v.others = DefaultOthersLabel
	}

	for canonical, synonyms := range f.Aliases {
		label := strings.ToUpper(strings.TrimSpace(canonical))
		if label == "" {
			continue
		}
		for _, s := range append([]string{canonical}, synonyms...) {
			key := StripLabel(strings.ToUpper(s))
			if key == "" {
				continue
			}
			if prev, ok := v.aliases[key]; ok && prev != label {
				return nil, fmt.Errorf("vocabulary: alias %q maps to both %s and %s", s, prev, label)
			}
			v.aliases[key] = label
		}
	}

	for _, p := range f.AllowlistPrefixes {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			v.allowlist = append(v.allowlist, p)
		}
	}

	for _, p := range f.URLPatterns {
		if p.Group == "" {
			return nil, fmt.Errorf("vocabulary: url pattern %q has no group", p.Pattern)
		}
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("vocabulary: url pattern %q: %w", p.Pattern, err)
		}
		v.patterns = append(v.patterns, compiledPattern{re: re, group: strings.ToUpper(p.Group)})
	}
	return v, nil
}

// IsLocale reports whether name holds a language or locale code.
func (v *Vocabulary) IsLocale(name string) bool { return v.locale.match(name) }

// IsNumeric reports whether name holds a price, quantity or count. Zero is
// treated as unset for these parameters.
func (v *Vocabulary) IsNumeric(name string) bool { return v.numeric.match(name) }

// IsIdentifier reports whether name holds an id.
func (v *Vocabulary) IsIdentifier(name string) bool { return v.identifier.match(name) }

// IsMode reports whether name holds a categorical mode such as site name or channel.
func (v *Vocabulary) IsMode(name string) bool { return v.mode.match(name) }

// IsGroupLabel reports whether name holds a content/category label.
func (v *Vocabulary) IsGroupLabel(name string) bool { return v.group.match(name) }

// OthersLabel returns the "unclassified" category sentinel.
func (v *Vocabulary) OthersLabel() string { return v.others }

// Canonical looks up a stripped, uppercased label in the alias table.
func (v *Vocabulary) Canonical(key string) (string, bool) {
	label, ok := v.aliases[key]
	return label, ok
}

// Derivable reports whether name is expected to be derivable from the URL or
// page context alone, so a prediction without collected data is not penalised.
func (v *Vocabulary) Derivable(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, p := range v.allowlist {
		if strings.HasPrefix(n, p) {
			return true
		}
	}
	return false
}

// InferGroup returns the group label of the first URL pattern matching the
// path of rawURL.
func (v *Vocabulary) InferGroup(rawURL string) (string, bool) {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	}
	path = strings.ToLower(path)
	for _, p := range v.patterns {
		if p.re.MatchString(path) {
			return p.group, true
		}
	}
	return "", false
}

// StripLabel removes underscores, spaces and hyphens.
func StripLabel(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', ' ', '-':
			return -1
		}
		return r
	}, s)
}

type matcher struct {
	names    map[string]bool
	suffixes []string
	contains []string
}

func newMatcher(s NameSet) matcher {
	m := matcher{names: make(map[string]bool, len(s.Names))}
	for _, n := range s.Names {
		m.names[fold(n)] = true
	}
	for _, x := range s.Suffixes {
		m.suffixes = append(m.suffixes, fold(x))
	}
	for _, x := range s.Contains {
		m.contains = append(m.contains, fold(x))
	}
	return m
}

func (m matcher) match(name string) bool {
	n := fold(name)
	if n == "" {
		return false
	}
	if m.names[n] {
		return true
	}
	for _, s := range m.suffixes {
		if strings.HasSuffix(n, s) {
			return true
		}
	}
	for _, c := range m.contains {
		if strings.Contains(n, c) {
			return true
		}
	}
	return false
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
