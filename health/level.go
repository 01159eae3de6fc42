package health

import "strings"

// Level describes how much the owning service relies on a dependency.
type Level string

const (
	// LevelHard dependencies are required: one unhealthy HARD dependency
	// makes the whole service unhealthy.
	LevelHard Level = "HARD"
	// LevelSoft dependencies are optional: the service still runs without them.
	LevelSoft Level = "SOFT"
)

// String returns the level name.
func (l Level) String() string {
	return string(l)
}

// Valid reports whether l is HARD or SOFT.
func (l Level) Valid() bool {
	return l == LevelHard || l == LevelSoft
}

// ParseLevel parses a level name case-insensitively. Empty input is SOFT.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return LevelSoft, nil
	case "HARD":
		return LevelHard, nil
	case "SOFT":
		return LevelSoft, nil
	default:
		return "", invalid("level must be HARD or SOFT, got %q", s)
	}
}
