// Package predicate implements the sandboxed logic language evaluated
// against a vault's gathered variables. Predicates are parsed once, at
// ingress, into the tagged Node variant below rather than walked as raw
// map[string]interface{} on every evaluation.
package predicate

// Op enumerates the recognized predicate operators.
type Op string

const (
	OpEq  Op = "=="
	OpNeq Op = "!="
	OpGt  Op = ">"
	OpGte Op = ">="
	OpLt  Op = "<"
	OpLte Op = "<="
	OpAnd Op = "and"
	OpOr  Op = "or"
	OpNot Op = "not"
	OpIn  Op = "in"
	OpVar Op = "var"
)

// Kind tags which shape a Node holds.
type Kind int

const (
	KindLiteral Kind = iota
	KindVar
	KindCompare
	KindLogical
	KindNot
	KindIn
)

// Node is the tagged-variant predicate AST. Exactly the fields relevant
// to Kind are populated.
type Node struct {
	Kind Kind

	// KindLiteral
	Literal interface{}

	// KindVar
	Path string

	// KindCompare: left Op right, e.g. {">=" : [var age, 18]}
	Op    Op
	Left  *Node
	Right *Node

	// KindLogical: Op is "and"/"or" over Operands
	Operands []*Node

	// KindNot
	Operand *Node

	// KindIn: Needle in Haystack
	Needle   *Node
	Haystack *Node
}
