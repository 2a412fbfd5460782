package predicate

import (
	"fmt"
)

// maxParseDepth guards against pathological nesting during parsing itself,
// independent of the engine's configured node-count budget.
const maxParseDepth = 64

// Parse converts a raw jsonlogic-shaped expr (as produced by
// encoding/json.Unmarshal into interface{}) into a Node tree. It returns
// an error for any structurally malformed expression: unknown operator,
// wrong arity, or excessive nesting. Parse never evaluates anything, so
// it is safe to call on untrusted input before any complexity check.
func Parse(expr interface{}) (*Node, error) {
	return parse(expr, 0)
}

func parse(expr interface{}, depth int) (*Node, error) {
	if depth > maxParseDepth {
		return nil, fmt.Errorf("predicate: exceeds maximum nesting depth %d", maxParseDepth)
	}

	obj, ok := expr.(map[string]interface{})
	if !ok {
		// Not an operator node: either a literal scalar/array, or an
		// already-parsed argument list element.
		return &Node{Kind: KindLiteral, Literal: expr}, nil
	}
	if len(obj) != 1 {
		return nil, fmt.Errorf("predicate: operator object must have exactly one key, got %d", len(obj))
	}

	for key, args := range obj {
		op := Op(key)
		switch op {
		case OpVar:
			path, err := singleStringArg(args)
			if err != nil {
				return nil, fmt.Errorf("predicate: var: %w", err)
			}
			return &Node{Kind: KindVar, Path: path}, nil

		case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte:
			left, right, err := pairArgs(args, depth)
			if err != nil {
				return nil, fmt.Errorf("predicate: %s: %w", op, err)
			}
			return &Node{Kind: KindCompare, Op: op, Left: left, Right: right}, nil

		case OpAnd, OpOr:
			list, ok := args.([]interface{})
			if !ok || len(list) == 0 {
				return nil, fmt.Errorf("predicate: %s requires a non-empty array of operands", op)
			}
			operands := make([]*Node, 0, len(list))
			for _, item := range list {
				n, err := parse(item, depth+1)
				if err != nil {
					return nil, err
				}
				operands = append(operands, n)
			}
			return &Node{Kind: KindLogical, Op: op, Operands: operands}, nil

		case OpNot, "!":
			var operandRaw interface{}
			if list, ok := args.([]interface{}); ok {
				if len(list) != 1 {
					return nil, fmt.Errorf("predicate: not requires exactly one operand")
				}
				operandRaw = list[0]
			} else {
				operandRaw = args
			}
			operand, err := parse(operandRaw, depth+1)
			if err != nil {
				return nil, err
			}
			return &Node{Kind: KindNot, Operand: operand}, nil

		case OpIn:
			needle, haystack, err := pairArgs(args, depth)
			if err != nil {
				return nil, fmt.Errorf("predicate: in: %w", err)
			}
			return &Node{Kind: KindIn, Needle: needle, Haystack: haystack}, nil

		default:
			return nil, fmt.Errorf("predicate: unknown operator %q", key)
		}
	}
	panic("unreachable")
}

func singleStringArg(args interface{}) (string, error) {
	switch v := args.(type) {
	case string:
		return v, nil
	case []interface{}:
		if len(v) != 1 {
			return "", fmt.Errorf("expected exactly one argument, got %d", len(v))
		}
		s, ok := v[0].(string)
		if !ok {
			return "", fmt.Errorf("expected a string argument")
		}
		return s, nil
	default:
		return "", fmt.Errorf("expected a string or single-element array argument")
	}
}

func pairArgs(args interface{}, depth int) (*Node, *Node, error) {
	list, ok := args.([]interface{})
	if !ok || len(list) != 2 {
		return nil, nil, fmt.Errorf("requires exactly two operands")
	}
	left, err := parse(list[0], depth+1)
	if err != nil {
		return nil, nil, err
	}
	right, err := parse(list[1], depth+1)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

// IsValidExpression reports whether expr parses into a well-formed Node
// tree, per C2's introspection contract.
func IsValidExpression(expr interface{}) bool {
	_, err := Parse(expr)
	return err == nil
}

// CountNodes counts the nodes in a parsed (or unparsed) predicate tree,
// used by the engine to enforce the configured complexity budget before
// evaluation. If expr fails to parse, CountNodes returns -1.
func CountNodes(expr interface{}) int {
	n, err := Parse(expr)
	if err != nil {
		return -1
	}
	return countNodes(n)
}

func countNodes(n *Node) int {
	if n == nil {
		return 0
	}
	count := 1
	count += countNodes(n.Left)
	count += countNodes(n.Right)
	count += countNodes(n.Operand)
	count += countNodes(n.Needle)
	count += countNodes(n.Haystack)
	for _, op := range n.Operands {
		count += countNodes(op)
	}
	return count
}

// ExtractVariables walks expr and returns the set of dotted variable
// paths it references, deduplicated.
func ExtractVariables(expr interface{}) ([]string, error) {
	n, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	var walk func(*Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		if n.Kind == KindVar {
			seen[n.Path] = struct{}{}
		}
		walk(n.Left)
		walk(n.Right)
		walk(n.Operand)
		walk(n.Needle)
		walk(n.Haystack)
		for _, op := range n.Operands {
			walk(op)
		}
	}
	walk(n)
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	return out, nil
}
