package walk

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Collision records a name shadowed by another that folds to the same
// canonical key on the same side, possible with case folding or
// encoding normalization
type Collision struct {
	Side     int
	Existing string
	Shadowed string
}

// listing merges the child names of one directory level across all sides
// under a canonical key, so a name present on only some sides still
// yields a single row with the others marked missing.
type listing struct {
	sides             int
	ignoreCase        bool
	normalizeEncoding bool
	rows              map[string][]string
	collisions        []Collision
}

func newListing(sides int, ignoreCase, normalizeEncoding bool) *listing {
	return &listing{
		sides:             sides,
		ignoreCase:        ignoreCase,
		normalizeEncoding: normalizeEncoding,
		rows:              make(map[string][]string),
	}
}

// canonical folds a name to its merge key. NFC normalization runs first
// so that case folding sees composed forms.
func (l *listing) canonical(name string) string {
	if l.normalizeEncoding {
		name = norm.NFC.String(name)
	}
	if l.ignoreCase {
		name = strings.ToLower(name)
	}
	return name
}

// add records a name seen on one side. The first name wins when case
// folding makes two names collide; the loser is reported as shadowed.
func (l *listing) add(side int, name string) {
	key := l.canonical(name)
	row, ok := l.rows[key]
	if !ok {
		row = make([]string, l.sides)
		l.rows[key] = row
	}
	if row[side] != "" {
		l.collisions = append(l.collisions, Collision{
			Side:     side,
			Existing: row[side],
			Shadowed: name,
		})
		return
	}
	row[side] = name
}

// nameRow is one merged row: the display name plus the per-side actual
// names (empty string = missing on that side)
type nameRow struct {
	name    string
	perSide []string
}

// sorted returns the merged rows in deterministic lexicographic order of
// their canonical keys, directories and files interleaved.
func (l *listing) sorted() []nameRow {
	keys := make([]string, 0, len(l.rows))
	for key := range l.rows {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([]nameRow, 0, len(keys))
	for _, key := range keys {
		perSide := l.rows[key]
		display := ""
		for _, name := range perSide {
			if name != "" {
				display = name
				break
			}
		}
		rows = append(rows, nameRow{name: display, perSide: perSide})
	}
	return rows
}
