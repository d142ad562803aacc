// token.go - Tokenizing an expression string (spec §4.4 steps 1-3)

package expr

import (
	"regexp"
	"strings"
)

// operatorPattern captures every recognized operator/punctuation token.
// Multi-character operators are listed before any single-character
// prefix they share, since Go's regexp alternation is leftmost-first,
// not leftmost-longest.
var operatorPattern = regexp.MustCompile(
	`(<<|>>|<=|>=|==|!=|&&|\|\||,,|\^B|\^O|\^D|\^L|\^-|\^_|[-+*/%&|^~{}()<>,_])`)

// binShiftSuffix preprocesses the `B<n>` binary-shift suffix into an
// explicit `^_` (MACRO-10 shift) expression whose shift count n is
// always base 10.
var binShiftSuffix = regexp.MustCompile(`(\d+)B(\d+)`)

type token struct {
	text  string
	isOp  bool
	isNum bool
}

// preprocess replaces a custom grouping delimiter with `{`/`}` and
// expands the `B<n>` shift suffix, per spec §4.4 step 1.
func preprocess(s string, open, close rune) string {
	if open != '{' {
		s = strings.ReplaceAll(s, string(open), "{")
		s = strings.ReplaceAll(s, string(close), "}")
	}
	s = binShiftSuffix.ReplaceAllString(s, "($1^_$2.)")
	return s
}

// tokenize splits s on operatorPattern; even-indexed parts (from
// regexp.Split semantics, reconstructed manually below) are value
// tokens, odd-indexed parts are operators (spec §4.4 step 3).
func tokenize(s string) []token {
	var tokens []token
	locs := operatorPattern.FindAllStringIndex(s, -1)

	pos := 0
	for _, loc := range locs {
		if loc[0] > pos {
			if v := strings.TrimSpace(s[pos:loc[0]]); v != "" {
				tokens = append(tokens, token{text: v, isNum: true})
			}
		}
		tokens = append(tokens, token{text: s[loc[0]:loc[1]], isOp: true})
		pos = loc[1]
	}
	if pos < len(s) {
		if v := strings.TrimSpace(s[pos:]); v != "" {
			tokens = append(tokens, token{text: v, isNum: true})
		}
	}
	return tokens
}
