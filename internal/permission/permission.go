package permission

import (
	"fmt"
	"strings"
)

// Level is a coarse authorization level. Levels form a total order:
// read < write < execute < admin. A granted level satisfies any
// requirement at or below its rank.
type Level string

const (
	Read    Level = "read"
	Write   Level = "write"
	Execute Level = "execute"
	Admin   Level = "admin"
)

var rank = map[Level]int{
	Read:    1,
	Write:   2,
	Execute: 3,
	Admin:   4,
}

// Rank returns the numeric rank of a level, or 0 for an unknown level.
// Unknown levels never satisfy any requirement.
func (l Level) Rank() int {
	return rank[l]
}

// Valid reports whether l is one of the four defined levels.
func (l Level) Valid() bool {
	_, ok := rank[l]
	return ok
}

// Parse converts a string to a Level, case-insensitively.
func Parse(s string) (Level, error) {
	l := Level(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("unknown permission level %q", s)
	}
	return l, nil
}

// Has reports whether any granted level satisfies the required level.
func Has(granted []Level, required Level) bool {
	need := required.Rank()
	if need == 0 {
		return false
	}
	for _, g := range granted {
		if g.Rank() >= need {
			return true
		}
	}
	return false
}

// Highest returns the highest-ranked level in granted, or "" when the
// slice holds no valid level.
func Highest(granted []Level) Level {
	var best Level
	for _, g := range granted {
		if g.Rank() > best.Rank() {
			best = g
		}
	}
	return best
}

// FromStrings parses a string slice into levels, dropping entries that
// do not name a defined level.
func FromStrings(ss []string) []Level {
	out := make([]Level, 0, len(ss))
	for _, s := range ss {
		if l, err := Parse(s); err == nil {
			out = append(out, l)
		}
	}
	return out
}

// Strings converts a level slice back to its string form.
func Strings(levels []Level) []string {
	out := make([]string, len(levels))
	for i, l := range levels {
		out[i] = string(l)
	}
	return out
}
