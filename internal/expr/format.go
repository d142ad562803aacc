// format.go - Rendering a value back into parseable expression text

package expr

import "strconv"

// ToBase renders v as a hex literal the parser accepts regardless of
// the caller's configured default base (spec invariant 6:
// parseExpression(toBase(v)) == v for every v in range).
func ToBase(v uint64) string {
	return "0x" + strconv.FormatUint(v, 16)
}
