// conditions.go - Conditional breakpoint expressions.
//
// Grounded on debug_conditions.go's ParseCondition/evaluateCondition,
// rebuilt on top of the §4.4 expression evaluator instead of a
// bespoke `lhs OP rhs` scanner (SPEC_FULL.md §4.5): the left- and
// right-hand sides of a condition are each themselves mixed-radix
// expressions, letting a condition reference registers, memory
// (`[addr]`), and the breakpoint's own `hitcount` through one grammar.

package debugger

import (
	"fmt"
	"strings"

	"github.com/ie286emu/core/internal/expr"
)

// ConditionOp mirrors the teacher's comparison set.
type ConditionOp int

const (
	CondOpEqual ConditionOp = iota
	CondOpNotEqual
	CondOpLess
	CondOpGreater
	CondOpLessEqual
	CondOpGreaterEqual
)

func (op ConditionOp) String() string {
	switch op {
	case CondOpEqual:
		return "=="
	case CondOpNotEqual:
		return "!="
	case CondOpLess:
		return "<"
	case CondOpGreater:
		return ">"
	case CondOpLessEqual:
		return "<="
	case CondOpGreaterEqual:
		return ">="
	}
	return "?"
}

// Condition is a parsed breakpoint condition: lhsExpr OP rhsExpr.
type Condition struct {
	lhsText, rhsText string
	Op               ConditionOp
}

// ResolveFunc looks up a register or the bracketed-memory/hitcount
// pseudo-symbols a condition expression may reference.
type ResolveFunc func(name string) (uint64, bool)

var opTokens = []struct {
	text string
	op   ConditionOp
}{
	{"==", CondOpEqual}, {"!=", CondOpNotEqual},
	{"<=", CondOpLessEqual}, {">=", CondOpGreaterEqual},
	{"<", CondOpLess}, {">", CondOpGreater},
}

// ParseCondition parses "AX==0FF", "[1000]==42", or "hitcount>10"
// into a Condition. The two sides are kept as raw text and evaluated
// lazily each time CheckHit fires, so a condition like "AX==BX" stays
// live against current register state rather than a value frozen at
// parse time.
func ParseCondition(text string) (*Condition, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty condition")
	}
	for _, cand := range opTokens {
		if idx := strings.Index(text, cand.text); idx >= 0 {
			return &Condition{
				lhsText: strings.TrimSpace(text[:idx]),
				rhsText: strings.TrimSpace(text[idx+len(cand.text):]),
				Op:      cand.op,
			}, nil
		}
	}
	return nil, fmt.Errorf("no comparison operator in %q (use ==, !=, <, >, <=, >=)", text)
}

// Eval evaluates the condition against resolve (for registers and
// `[addr]` memory references, the latter handled below before the
// expression evaluator ever sees the side) and hitCount (for the
// `hitcount` pseudo-symbol).
func (c *Condition) Eval(resolve ResolveFunc, hitCount uint64) bool {
	opts := expr.Options{
		DefaultBits: 32,
		Resolve: func(name string) (uint64, bool) {
			if strings.EqualFold(name, "hitcount") {
				return hitCount, true
			}
			return resolve(name)
		},
	}
	lhs, ok1 := c.evalSide(c.lhsText, resolve, opts)
	rhs, ok2 := c.evalSide(c.rhsText, resolve, opts)
	if !ok1 || !ok2 {
		return false
	}
	switch c.Op {
	case CondOpEqual:
		return lhs == rhs
	case CondOpNotEqual:
		return lhs != rhs
	case CondOpLess:
		return lhs < rhs
	case CondOpGreater:
		return lhs > rhs
	case CondOpLessEqual:
		return lhs <= rhs
	case CondOpGreaterEqual:
		return lhs >= rhs
	}
	return false
}

// evalSide handles the `[expr]` memory-dereference form (spec-supplement
// from debug_conditions.go) by evaluating the bracketed address
// expression and resolving it through the "mem:<addr>" pseudo-register
// resolve already understands, before falling through to a plain
// expression for every other side.
func (c *Condition) evalSide(side string, resolve ResolveFunc, opts expr.Options) (uint64, bool) {
	if strings.HasPrefix(side, "[") && strings.HasSuffix(side, "]") {
		addr, ok := expr.Evaluate(side[1:len(side)-1], opts)
		if !ok {
			return 0, false
		}
		return resolve(fmt.Sprintf("mem:%d", addr))
	}
	return expr.Evaluate(side, opts)
}

func (c *Condition) String() string {
	return fmt.Sprintf("%s%s%s", c.lhsText, c.Op, c.rhsText)
}
