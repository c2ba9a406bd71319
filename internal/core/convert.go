package core

// convert.go turns extracted field text into typed values.
//
// Credit limits become pgtype.Numeric so the exact decimal text reaches the
// database without a float round-trip. Dates are parsed strictly: a day that
// does not exist in the month (29 February 2015) is an error, never a rollover.

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/jackc/pgx/v5/pgtype"
)

// numericRegex validates a plain decimal: optional sign, digits, optional fraction.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// fixedPointScale is the number of implied fractional digits in fixed-width credit limits.
const fixedPointScale = 2

// MaxCreditLimitDigits is the number of integer digits the credit_limit
// column (NUMERIC(16,2)) can hold.
const MaxCreditLimitDigits = 14

// ParseCreditLimit parses a delimited-format credit limit such as "109093" or "54.50".
func ParseCreditLimit(raw string) (pgtype.Numeric, error) {
	s := strings.TrimSpace(raw)
	n, err := toNumeric(s)
	if err != nil {
		return pgtype.Numeric{}, errInvalidCreditLimit(s, err)
	}
	return n, nil
}

// ParseFixedPointCreditLimit parses a fixed-width credit limit, where the last
// two digits are cents: "10909300" is 109093.00. Values shorter than three
// characters carry no fraction, so "54" is 54.
func ParseFixedPointCreditLimit(raw string) (pgtype.Numeric, error) {
	s := strings.TrimSpace(raw)

	adjusted := s
	if r := []rune(s); len(r) > fixedPointScale {
		cut := len(r) - fixedPointScale
		adjusted = string(r[:cut]) + "." + string(r[cut:])
	}

	n, err := toNumeric(adjusted)
	if err != nil {
		return pgtype.Numeric{}, errInvalidCreditLimit(s, err)
	}
	return n, nil
}

// toNumeric converts decimal text to a non-negative pgtype.Numeric.
func toNumeric(s string) (pgtype.Numeric, error) {
	if !numericRegex.MatchString(s) {
		return pgtype.Numeric{}, fmt.Errorf("invalid number format %q", s)
	}

	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{}, fmt.Errorf("scan numeric %q: %w", s, err)
	}
	if n.Int != nil && n.Int.Sign() < 0 {
		return pgtype.Numeric{}, fmt.Errorf("negative credit limit %q", s)
	}
	if d := integerDigits(s); d > MaxCreditLimitDigits {
		return pgtype.Numeric{}, fmt.Errorf("credit limit %q has %d integer digits, at most %d allowed", s, d, MaxCreditLimitDigits)
	}
	return n, nil
}

// integerDigits counts the significant digits before the decimal point of a
// string already accepted by numericRegex.
func integerDigits(s string) int {
	s = strings.TrimLeft(s, "+-")
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	return len(strings.TrimLeft(s, "0"))
}

// DatePattern is a date format written with dd/MM/yyyy style tokens, kept
// alongside its Go layout so errors can quote the pattern users configured.
type DatePattern struct {
	Pattern string
	Layout  string
}

// NewDatePattern converts a pattern built from the tokens yyyy, yy, MM, M,
// dd and d plus punctuation into a Go time layout.
//
// A day or month token standing between separators accepts one or two digits,
// so dd/MM/yyyy reads both 03/12/1965 and 3/12/1965. Tokens that touch another
// token, as in yyyyMMdd, keep their fixed width because nothing else marks
// where they end.
func NewDatePattern(pattern string) (DatePattern, error) {
	if strings.TrimSpace(pattern) == "" {
		return DatePattern{}, fmt.Errorf("empty date pattern")
	}

	var b strings.Builder
	runes := []rune(pattern)
	for i := 0; i < len(runes); {
		r := runes[i]
		j := i
		for j < len(runes) && runes[j] == r {
			j++
		}
		run := j - i
		delimited := delimitedAt(runes, i, j)

		switch {
		case r == 'y' && run == 4:
			b.WriteString("2006")
		case r == 'y' && run == 2:
			b.WriteString("06")
		case r == 'M' && run == 2 && !delimited:
			b.WriteString("01")
		case r == 'M' && run <= 2:
			b.WriteString("1")
		case r == 'd' && run == 2 && !delimited:
			b.WriteString("02")
		case r == 'd' && run <= 2:
			b.WriteString("2")
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return DatePattern{}, fmt.Errorf("unsupported token %q in date pattern %q", string(runes[i:j]), pattern)
		default:
			b.WriteString(string(runes[i:j]))
		}
		i = j
	}

	return DatePattern{Pattern: pattern, Layout: b.String()}, nil
}

// delimitedAt reports whether the token runes[i:j] is bounded by separators
// or the ends of the pattern. An underscore does not count: Go reads "_2" as a
// space-padded day.
func delimitedAt(runes []rune, i, j int) bool {
	if i > 0 {
		if prev := runes[i-1]; unicode.IsLetter(prev) || prev == '_' {
			return false
		}
	}
	if j < len(runes) && unicode.IsLetter(runes[j]) {
		return false
	}
	return true
}

// MustDatePattern is like NewDatePattern but panics on error.
func MustDatePattern(pattern string) DatePattern {
	p, err := NewDatePattern(pattern)
	if err != nil {
		panic(err)
	}
	return p
}

// Parse parses trimmed raw text as a calendar date.
func (p DatePattern) Parse(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	t, err := time.Parse(p.Layout, s)
	if err != nil {
		return time.Time{}, errInvalidDate(p.Pattern, s, err)
	}
	return t, nil
}

// splitNonEmpty splits s on sep and drops empty tokens, so adjacent
// separators collapse and leading or trailing separators are ignored.
func splitNonEmpty(s string, sep rune) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == sep })
}

// substring returns the characters of s in [start, end), clamped to s.
func substring(s string, start, end int) string {
	r := []rune(s)
	if start < 0 {
		start = 0
	}
	if end > len(r) {
		end = len(r)
	}
	if start >= end {
		return ""
	}
	return string(r[start:end])
}
