package filter

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/sdejongh/diffnorris/pkg/models"
)

// compiledFilename is a filename rule expanded into its glob alternatives
type compiledFilename struct {
	rule  Rule
	globs []string
}

// compiledText is a text rule with its compiled expression. Patterns are
// compiled in multiline mode so ^ and $ anchor at line boundaries while
// still being applied across the whole buffer.
type compiledText struct {
	rule Rule
	re   *regexp.Regexp
}

// Set is an ordered collection of filter rules, partitioned by kind.
// Insertion order is preserved; filename rules match as a union, text
// rules apply cumulatively in order. A Set is immutable after construction
// and safe for concurrent use.
type Set struct {
	rules     []Rule
	filenames []compiledFilename
	texts     []compiledText
	ignores   *ignore.GitIgnore
}

// NewSet compiles the given rules into a Set. A malformed glob or regex in
// an enabled rule is reported here as a *models.ConfigError, never
// deferred to match time.
func NewSet(rules []Rule) (*Set, error) {
	set := &Set{rules: rules}

	for _, rule := range rules {
		switch rule.Kind {
		case KindFilename:
			globs := strings.Fields(rule.Pattern)
			if len(globs) == 0 {
				return nil, &models.ConfigError{
					Filter:  rule.Name,
					Pattern: rule.Pattern,
					Err:     errEmptyPattern,
				}
			}
			for _, glob := range globs {
				if !doublestar.ValidatePattern(glob) {
					return nil, &models.ConfigError{
						Filter:  rule.Name,
						Pattern: glob,
						Err:     doublestar.ErrBadPattern,
					}
				}
			}
			set.filenames = append(set.filenames, compiledFilename{rule: rule, globs: globs})

		case KindText:
			if rule.Pattern == "" {
				return nil, &models.ConfigError{
					Filter:  rule.Name,
					Pattern: rule.Pattern,
					Err:     errEmptyPattern,
				}
			}
			re, err := regexp.Compile("(?m)" + rule.Pattern)
			if err != nil {
				return nil, &models.ConfigError{
					Filter:  rule.Name,
					Pattern: rule.Pattern,
					Err:     err,
				}
			}
			set.texts = append(set.texts, compiledText{rule: rule, re: re})

		default:
			return nil, &models.ConfigError{
				Filter:  rule.Name,
				Pattern: rule.Pattern,
				Err:     errUnknownKind,
			}
		}
	}

	return set, nil
}

// Empty returns a Set with no rules
func Empty() *Set {
	return &Set{}
}

// WithIgnoreList attaches a gitignore-style matcher checked in addition to
// the filename rules. Returns a new Set; the receiver is unchanged.
func (s *Set) WithIgnoreList(ignores *ignore.GitIgnore) *Set {
	clone := *s
	clone.ignores = ignores
	return &clone
}

// Rules returns the rules in insertion order, for display
func (s *Set) Rules() []Rule {
	return s.rules
}

// MatchesFilename reports whether any enabled filename rule matches the
// bare entry name. Matching is case-sensitive and consistent per run.
func (s *Set) MatchesFilename(name string) bool {
	for i := range s.filenames {
		cf := &s.filenames[i]
		if !cf.rule.Enabled {
			continue
		}
		for _, glob := range cf.globs {
			// Patterns were validated at construction
			if ok, _ := doublestar.Match(glob, name); ok {
				return true
			}
		}
	}
	return false
}

// Excluded reports whether an entry should be skipped entirely, either by
// a filename rule on its name or by the attached ignore list on its
// root-relative path.
func (s *Set) Excluded(relPath, name string) bool {
	if s.MatchesFilename(name) {
		return true
	}
	if s.ignores != nil && s.ignores.MatchesPath(filepath.ToSlash(relPath)) {
		return true
	}
	return false
}

// ApplyTextFilters removes, for each enabled text rule in order, all
// non-overlapping matches of its expression from content. The bytes on
// disk are never touched; only the stream fed to comparison is reduced.
// Application is idempotent as long as no pattern can match its own
// residue.
func (s *Set) ApplyTextFilters(content []byte) []byte {
	for i := range s.texts {
		ct := &s.texts[i]
		if !ct.rule.Enabled {
			continue
		}
		content = ct.re.ReplaceAll(content, nil)
	}
	return content
}

// HasTextFilters reports whether any enabled text rule exists
func (s *Set) HasTextFilters() bool {
	for i := range s.texts {
		if s.texts[i].rule.Enabled {
			return true
		}
	}
	return false
}

// HasFilenameFilters reports whether any enabled filename rule or ignore
// list exists
func (s *Set) HasFilenameFilters() bool {
	if s.ignores != nil {
		return true
	}
	for i := range s.filenames {
		if s.filenames[i].rule.Enabled {
			return true
		}
	}
	return false
}
