// Package interval parses human-readable durations such as "5 seconds",
// "1 minute 30 seconds" or "two hours".
//
// Go duration strings ("250ms", "1m30s") and bare integers (milliseconds) are
// accepted as well.
package interval

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ErrInvalid is returned for strings that do not describe a duration.
var ErrInvalid = errors.New("interval: invalid duration")

var units = map[string]time.Duration{
	"ms":           time.Millisecond,
	"msec":         time.Millisecond,
	"millisecond":  time.Millisecond,
	"milliseconds": time.Millisecond,
	"s":            time.Second,
	"sec":          time.Second,
	"secs":         time.Second,
	"second":       time.Second,
	"seconds":      time.Second,
	"m":            time.Minute,
	"min":          time.Minute,
	"mins":         time.Minute,
	"minute":       time.Minute,
	"minutes":      time.Minute,
	"h":            time.Hour,
	"hr":           time.Hour,
	"hrs":          time.Hour,
	"hour":         time.Hour,
	"hours":        time.Hour,
	"d":            24 * time.Hour,
	"day":          24 * time.Hour,
	"days":         24 * time.Hour,
	"w":            7 * 24 * time.Hour,
	"week":         7 * 24 * time.Hour,
	"weeks":        7 * 24 * time.Hour,
}

var numberWords = map[string]float64{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

// Parse converts s into a duration.
func Parse(s string) (time.Duration, error) {
	trimmed := strings.TrimSpace(strings.ToLower(s))
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalid)
	}

	if ms, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		if ms < 0 {
			return 0, fmt.Errorf("%w: %q is negative", ErrInvalid, s)
		}
		if ms > math.MaxInt64/int64(time.Millisecond) {
			return 0, fmt.Errorf("%w: %q is out of range", ErrInvalid, s)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}

	if d, err := time.ParseDuration(trimmed); err == nil {
		if d < 0 {
			return 0, fmt.Errorf("%w: %q is negative", ErrInvalid, s)
		}
		return d, nil
	}

	tokens := tokenize(trimmed)
	if len(tokens)%2 != 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalid, s)
	}

	var total time.Duration
	for i := 0; i < len(tokens); i += 2 {
		n, ok := number(tokens[i])
		if !ok {
			return 0, fmt.Errorf("%w: %q is not a number in %q", ErrInvalid, tokens[i], s)
		}
		unit, ok := units[tokens[i+1]]
		if !ok {
			return 0, fmt.Errorf("%w: unknown unit %q in %q", ErrInvalid, tokens[i+1], s)
		}
		// float64(MaxInt64) rounds up to 2^63, so >= catches the edge.
		part := n * float64(unit)
		if part >= math.MaxInt64 || float64(total)+part >= math.MaxInt64 {
			return 0, fmt.Errorf("%w: %q is out of range", ErrInvalid, s)
		}
		total += time.Duration(part)
	}
	return total, nil
}

// MustParse is like Parse but panics on error. Intended for constants.
func MustParse(s string) time.Duration {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// tokenize splits "1 minute, 30seconds and 5 ms" into number/unit pairs.
func tokenize(s string) []string {
	var tokens []string
	var cur strings.Builder
	var curDigit bool

	flush := func() {
		if cur.Len() > 0 {
			if w := cur.String(); w != "and" {
				tokens = append(tokens, w)
			}
			cur.Reset()
		}
	}

	for _, r := range s {
		isDigit := unicode.IsDigit(r) || r == '.'
		switch {
		case unicode.IsSpace(r) || r == ',':
			flush()
		case cur.Len() > 0 && isDigit != curDigit:
			flush()
			cur.WriteRune(r)
			curDigit = isDigit
		default:
			cur.WriteRune(r)
			curDigit = isDigit
		}
	}
	flush()
	return tokens
}

func number(tok string) (float64, bool) {
	if n, ok := numberWords[tok]; ok {
		return n, true
	}
	n, err := strconv.ParseFloat(tok, 64)
	if err != nil || n < 0 || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0, false
	}
	return n, true
}
