// precedence.go - Binary operator precedence tables (spec §4.4.1)
//
// Two tables exist: the default table, and a DEC-style table selected
// when the caller requests `<` `>` as the grouping delimiter (the
// historical MACRO-10/DEC convention grouped bitwise operators at one
// precedence level and added the `,,` half-pack operator).

package expr

type table map[string]int

const (
	precGrouping = 20
	precShift10  = 19 // MACRO-10 `_` / `^_` left/right shift
)

var defaultTable = table{
	"||": 5,
	"&&": 6,
	"|":  7,
	"^":  8,
	"&":  9,
	"==": 10, "!=": 10,
	"<": 11, ">": 11, "<=": 11, ">=": 11,
	"<<": 12, ">>": 12,
	"+": 13, "-": 13,
	"*": 14, "/": 14, "%": 14,
	"_": precShift10, "^_": precShift10,
}

var decTable = table{
	",,": 1,
	"||": 5,
	"&&": 6,
	"|":  15, "^": 15, "&": 15,
	"==": 10, "!=": 10,
	"<": 11, ">": 11, "<=": 11, ">=": 11,
	"<<": 12, ">>": 12,
	"+": 13, "-": 13,
	"*": 14, "/": 14, "%": 14,
	"_": precShift10, "^_": precShift10,
}

func (t table) precedence(op string) (int, bool) {
	p, ok := t[op]
	return p, ok
}
