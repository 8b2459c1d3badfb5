package filter

// Kind distinguishes the two matching semantics a rule can have
type Kind string

const (
	// KindFilename rules hold space-separated shell-glob fragments and
	// exclude matching names from traversal and comparison entirely
	KindFilename Kind = "filename"
	// KindText rules hold a regular expression whose matches are removed
	// from file content before deep comparison
	KindText Kind = "text"
)

// Rule is a single user-configurable filter. The pattern semantics depend
// on Kind; Kind is fixed at creation. Disabled rules are kept for display
// ordering but never match.
type Rule struct {
	Name    string
	Enabled bool
	Pattern string
	Kind    Kind
}

// FilenameRule is a convenience constructor for an enabled filename rule
func FilenameRule(name, pattern string) Rule {
	return Rule{Name: name, Enabled: true, Pattern: pattern, Kind: KindFilename}
}

// TextRule is a convenience constructor for an enabled text rule
func TextRule(name, pattern string) Rule {
	return Rule{Name: name, Enabled: true, Pattern: pattern, Kind: KindText}
}
