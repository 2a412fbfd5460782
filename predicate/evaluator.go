package predicate

import (
	"fmt"
	"strconv"
	"strings"
)

// undefined is the sentinel result of dereferencing a variable that
// isn't present in the input map. It is never returned to a caller;
// every operator collapses it to a neutral falsey value before
// propagating a result upward.
type undefined struct{}

// Evaluator runs parsed predicates against a flat variable map. It holds
// no state between calls and is safe for concurrent use.
type Evaluator struct{}

// New returns a ready-to-use Evaluator.
func New() *Evaluator {
	return &Evaluator{}
}

// Evaluate parses expr (if it isn't already a *Node) and evaluates it
// against vars. Evaluate is total: it returns an error only for
// structural malformation, never for "the data doesn't exist" — that
// case resolves to a neutral falsey value instead.
func (e *Evaluator) Evaluate(expr interface{}, vars map[string]interface{}) (interface{}, error) {
	node, ok := expr.(*Node)
	if !ok {
		var err error
		node, err = Parse(expr)
		if err != nil {
			return nil, fmt.Errorf("predicate: %w", err)
		}
	}
	result := eval(node, vars)
	if result == (undefined{}) {
		return false, nil
	}
	return result, nil
}

// ExtractVariables implements core.EvaluatorPort.
func (e *Evaluator) ExtractVariables(expr interface{}) ([]string, error) {
	return ExtractVariables(expr)
}

// IsValidExpression implements core.EvaluatorPort.
func (e *Evaluator) IsValidExpression(expr interface{}) bool {
	return IsValidExpression(expr)
}

// CountNodes implements core.EvaluatorPort.
func (e *Evaluator) CountNodes(expr interface{}) int {
	return CountNodes(expr)
}

func eval(n *Node, vars map[string]interface{}) interface{} {
	if n == nil {
		return undefined{}
	}
	switch n.Kind {
	case KindLiteral:
		return n.Literal

	case KindVar:
		v, ok := lookup(vars, n.Path)
		if !ok {
			return undefined{}
		}
		return v

	case KindCompare:
		left := eval(n.Left, vars)
		right := eval(n.Right, vars)
		return compare(n.Op, left, right)

	case KindLogical:
		switch n.Op {
		case OpAnd:
			for _, operand := range n.Operands {
				if !truthy(eval(operand, vars)) {
					return false
				}
			}
			return true
		case OpOr:
			for _, operand := range n.Operands {
				if truthy(eval(operand, vars)) {
					return true
				}
			}
			return false
		}
		return false

	case KindNot:
		return !truthy(eval(n.Operand, vars))

	case KindIn:
		needle := eval(n.Needle, vars)
		haystack := eval(n.Haystack, vars)
		return membership(needle, haystack)
	}
	return undefined{}
}

// lookup dereferences a dotted path ("financial.annual_income") into a
// possibly-nested map. A missing segment at any depth yields "not ok"
// rather than a panic or fault.
func lookup(vars map[string]interface{}, path string) (interface{}, bool) {
	if vars == nil {
		return nil, false
	}
	segments := strings.Split(path, ".")
	var cur interface{} = vars
	for _, seg := range segments {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := m[seg]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// truthy collapses any evaluated value, including undefined, to a bool.
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case undefined:
		return false
	case bool:
		return t
	case nil:
		return false
	default:
		return true
	}
}

// compare applies a comparison operator. Any operand that is undefined
// makes the whole comparison false, for every operator including != —
// an unknown quantity is neither provably equal nor provably unequal,
// so it collapses to the same non-committal false used by ordering
// comparisons rather than leaking information through the != branch.
func compare(op Op, left, right interface{}) interface{} {
	_, lUndef := left.(undefined)
	_, rUndef := right.(undefined)
	if lUndef || rUndef {
		return false
	}

	switch op {
	case OpEq:
		return looseEquals(left, right)
	case OpNeq:
		return !looseEquals(left, right)
	case OpGt, OpGte, OpLt, OpLte:
		lf, lok := toFloat(left)
		rf, rok := toFloat(right)
		if !lok || !rok {
			return false
		}
		switch op {
		case OpGt:
			return lf > rf
		case OpGte:
			return lf >= rf
		case OpLt:
			return lf < rf
		case OpLte:
			return lf <= rf
		}
	}
	return false
}

func membership(needle, haystack interface{}) bool {
	if _, ok := needle.(undefined); ok {
		return false
	}
	if _, ok := haystack.(undefined); ok {
		return false
	}
	list, ok := haystack.([]interface{})
	if !ok {
		return false
	}
	for _, item := range list {
		if looseEquals(needle, item) {
			return true
		}
	}
	return false
}

func looseEquals(a, b interface{}) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	return fmt.Sprint(a) == fmt.Sprint(b) && sameScalarKind(a, b)
}

func sameScalarKind(a, b interface{}) bool {
	_, aIsBool := a.(bool)
	_, bIsBool := b.(bool)
	if aIsBool != bIsBool {
		return false
	}
	return true
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
