// Package value provides the absent-aware scalar type used throughout the
// pipeline, plus conversions from the numeric encodings the quote pages use.
// Absent is an explicit marker: it is never coerced to zero, so a missing
// denominator downstream stays missing instead of tripping a divide-by-zero
// guard the wrong way.
package value

import (
	"strconv"
	"strings"
)

// placeholders are the tokens the source renders for a missing figure.
var placeholders = map[string]struct{}{
	"":    {},
	"-":   {},
	"--":  {},
	"---": {},
	"N/A": {},
}

// Value is a discriminated scalar: either a present string or absent.
// The zero Value is absent.
type Value struct {
	s  string
	ok bool
}

// Absent returns the explicit no-value marker.
func Absent() Value {
	return Value{}
}

// Of wraps a known-present string.
func Of(s string) Value {
	return Value{s: s, ok: true}
}

// Clean trims s and normalizes placeholder tokens to absent.
func Clean(s string) Value {
	s = strings.TrimSpace(s)
	if _, bad := placeholders[s]; bad {
		return Absent()
	}
	return Value{s: s, ok: true}
}

// Present reports whether the value holds data.
func (v Value) Present() bool {
	return v.ok
}

// String returns the raw string, or "" when absent.
func (v Value) String() string {
	return v.s
}

// Or returns the value itself when present, otherwise the fallback.
func (v Value) Or(fallback Value) Value {
	if v.ok {
		return v
	}
	return fallback
}

// Float parses a comma-grouped decimal ("1,200.01" -> 1200.01).
// Absent or unparsable input reports false.
func (v Value) Float() (float64, bool) {
	if !v.ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(v.s, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// magnitudes maps the single-letter scale suffixes the statistics pages use.
var magnitudes = []struct {
	suffix string
	scale  float64
}{
	{"k", 1e3},
	{"M", 1e6},
	{"B", 1e9},
	{"T", 1e12},
}

// AbbrevFloat parses a magnitude-suffixed number ("3.5B" -> 3.5e9).
// Without a recognized suffix it falls through to the grouped parse.
func (v Value) AbbrevFloat() (float64, bool) {
	if !v.ok {
		return 0, false
	}
	for _, m := range magnitudes {
		if strings.HasSuffix(v.s, m.suffix) {
			prefix := strings.TrimSuffix(v.s, m.suffix)
			f, err := strconv.ParseFloat(strings.ReplaceAll(prefix, ",", ""), 64)
			if err != nil {
				return 0, false
			}
			return f * m.scale, true
		}
	}
	return v.Float()
}

// FormatFloat renders f rounded to prec decimals, Python-repr style: trailing
// zeros trimmed but always at least one decimal place (-50 -> "-50.0").
// The export and growth formats depend on this shape.
func FormatFloat(f float64, prec int) string {
	s := strconv.FormatFloat(f, 'f', prec, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		if strings.HasSuffix(s, ".") {
			s += "0"
		}
	} else {
		s += ".0"
	}
	return s
}
