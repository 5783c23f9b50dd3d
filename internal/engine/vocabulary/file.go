package vocabulary

// File is the on-disk shape of a vocabulary. Lists in an overlay are appended
// to the base; aliases are merged per canonical label; scalars replace.
type File struct {
	OthersLabel       string              `yaml:"others_label" toml:"others_label" json:"others_label"`
	Locale            NameSet             `yaml:"locale" toml:"locale" json:"locale"`
	Numeric           NameSet             `yaml:"numeric" toml:"numeric" json:"numeric"`
	Identifier        NameSet             `yaml:"identifier" toml:"identifier" json:"identifier"`
	Mode              NameSet             `yaml:"mode" toml:"mode" json:"mode"`
	Group             NameSet             `yaml:"group" toml:"group" json:"group"`
	Aliases           map[string][]string `yaml:"aliases" toml:"aliases" json:"aliases"`
	AllowlistPrefixes []string            `yaml:"allowlist_prefixes" toml:"allowlist_prefixes" json:"allowlist_prefixes"`
	URLPatterns       []URLPattern        `yaml:"url_patterns" toml:"url_patterns" json:"url_patterns"`
}

// NameSet matches parameter names exactly, by suffix, or by substring.
type NameSet struct {
	Names    []string `yaml:"names" toml:"names" json:"names"`
	Suffixes []string `yaml:"suffixes" toml:"suffixes" json:"suffixes"`
	Contains []string `yaml:"contains" toml:"contains" json:"contains"`
}

// URLPattern maps a URL-path regular expression to a group label.
type URLPattern struct {
	Pattern string `yaml:"pattern" toml:"pattern" json:"pattern"`
	Group   string `yaml:"group" toml:"group" json:"group"`
}

// Merge returns base with overlay applied on top.
func Merge(base, overlay File) File {
	out := base
	if overlay.OthersLabel != "" {
		out.OthersLabel = overlay.OthersLabel
	}
	out.Locale = base.Locale.merge(overlay.Locale)
	out.Numeric = base.Numeric.merge(overlay.Numeric)
	out.Identifier = base.Identifier.merge(overlay.Identifier)
	out.Mode = base.Mode.merge(overlay.Mode)
	out.Group = base.Group.merge(overlay.Group)

	out.Aliases = make(map[string][]string, len(base.Aliases)+len(overlay.Aliases))
	for k, v := range base.Aliases {
		out.Aliases[k] = append([]string(nil), v...)
	}
	for k, v := range overlay.Aliases {
		out.Aliases[k] = append(out.Aliases[k], v...)
	}

	out.AllowlistPrefixes = concat(base.AllowlistPrefixes, overlay.AllowlistPrefixes)
	// Overlay patterns are tried first so a deployment can shadow a default.
	out.URLPatterns = append(append([]URLPattern(nil), overlay.URLPatterns...), base.URLPatterns...)
	return out
}

func (s NameSet) merge(o NameSet) NameSet {
	return NameSet{
		Names:    concat(s.Names, o.Names),
		Suffixes: concat(s.Suffixes, o.Suffixes),
		Contains: concat(s.Contains, o.Contains),
	}
}

func concat(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
