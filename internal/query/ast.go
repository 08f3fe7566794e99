// Package query implements the field:value search language described in
// spec.md section 4.1: a small parser producing a tree, and two emitters —
// one for search-engine JSON DSL, one for parameterised SQL WHERE clauses.
package query

// Op is a boolean combinator.
type Op string

const (
	And Op = "AND"
	Or  Op = "OR"
)

// Range is a comparison operator on a field:value term.
type Range string

const (
	RangeEQ Range = ""
	RangeGT Range = ">"
	RangeGE Range = ">="
	RangeLT Range = "<"
	RangeLE Range = "<="
)

// Node is one element of a parsed query tree. Exactly one of its fields is
// meaningful, selected by Kind — mirroring spec.md's description of the
// parse output as "strings, single-key maps, or operator arrays" without
// resorting to an interface{} per-node sum type.
type Node struct {
	Kind NodeKind

	// Bare is set when Kind == KindBare: a free-text term.
	Bare string

	// Field/Value/Op are set when Kind == KindTerm.
	Field string
	Value string
	Rng   Range
	Unset bool

	// BoolOp/Children are set when Kind == KindBool.
	BoolOp   Op
	Children []Node
}

type NodeKind int

const (
	KindBare NodeKind = iota
	KindTerm
	KindBool
)

// Empty reports whether the tree carries no constraints at all.
func (n *Node) Empty() bool {
	return n == nil
}
