// literal.go - ASCII/sixbit literal packing and numeric literal
// parsing (spec §4.4 step 2, and the value grammar)

package expr

import (
	"regexp"
	"strconv"
	"strings"
)

var asciiLiteral = regexp.MustCompile(`"([^"]*)"`)
var sixbitLiteral = regexp.MustCompile(`'([^']*)'`)

// extractLiterals textualizes quoted ASCII/sixbit literals into plain
// decimal tokens before tokenizing (spec §4.4 step 2): `"AB"` packs up
// to 5 characters 7 bits each; `'AB'` packs up to 6 characters 6 bits
// each (DEC sixbit: character code minus 0x20, masked to 6 bits). Each
// token carries a trailing "." so it parses as decimal whatever the
// default base.
func extractLiterals(s string) string {
	s = asciiLiteral.ReplaceAllStringFunc(s, func(m string) string {
		text := m[1 : len(m)-1]
		return strconv.FormatUint(pack7(text), 10) + "."
	})
	s = sixbitLiteral.ReplaceAllStringFunc(s, func(m string) string {
		text := m[1 : len(m)-1]
		return strconv.FormatUint(packSixbit(text), 10) + "."
	})
	return s
}

func pack7(s string) uint64 {
	var v uint64
	n := len(s)
	if n > 5 {
		n = 5
	}
	for i := 0; i < n; i++ {
		v = v<<7 | uint64(s[i]&0x7F)
	}
	return v
}

func packSixbit(s string) uint64 {
	var v uint64
	n := len(s)
	if n > 6 {
		n = 6
	}
	for i := 0; i < n; i++ {
		code := (s[i] - 0x20) & 0x3F
		v = v<<6 | uint64(code)
	}
	return v
}

// parseNumeric parses a numeric literal token under base, honoring a
// leading "0x"/"0X" hex prefix and a trailing "." which always forces
// base 10 (spec scenario C: "10." == 10 regardless of the default
// base).
func parseNumeric(tok string, base int) (uint64, bool) {
	switch {
	case strings.HasPrefix(tok, "0x") || strings.HasPrefix(tok, "0X"):
		v, err := strconv.ParseUint(tok[2:], 16, 64)
		return v, err == nil
	case strings.HasSuffix(tok, "."):
		v, err := strconv.ParseUint(tok[:len(tok)-1], 10, 64)
		return v, err == nil
	default:
		v, err := strconv.ParseUint(tok, base, 64)
		return v, err == nil
	}
}

func isNumericToken(tok string) bool {
	if tok == "" {
		return false
	}
	c := tok[0]
	return c >= '0' && c <= '9'
}
