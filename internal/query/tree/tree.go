// Package tree is the binary syntax tree both query languages lower to
// before SQL generation.
package tree

import (
	"fmt"

	"gmark/internal/query/syntax"
	"gmark/internal/schema"
)

// OperationType tags a tree node.
type OperationType int

// Operation types mirror the algebra variants of both languages.
const (
	OpEdge OperationType = iota
	OpIdentity
	OpConcatenation
	OpIntersection
	OpDisjunction
	OpKleene
)

var operationNames = [...]string{
	OpEdge:          "EDGE",
	OpIdentity:      "IDENTITY",
	OpConcatenation: "CONCATENATION",
	OpIntersection:  "INTERSECTION",
	OpDisjunction:   "DISJUNCTION",
	OpKleene:        "KLEENE",
}

func (o OperationType) String() string {
	if o >= 0 && int(o) < len(operationNames) {
		return operationNames[o]
	}
	return fmt.Sprintf("operation(%d)", int(o))
}

// Binary reports whether nodes of this type carry two children.
func (o OperationType) Binary() bool {
	return o == OpConcatenation || o == OpIntersection || o == OpDisjunction
}

// Node is a tree node. Edge nodes carry Label; Kleene nodes use Left only.
type Node struct {
	Op    OperationType
	Left  *Node
	Right *Node
	Label schema.Predicate
}

// Edge returns a leaf for p.
func Edge(p schema.Predicate) *Node {
	return &Node{Op: OpEdge, Label: p}
}

// Identity returns the identity leaf.
func Identity() *Node {
	return &Node{Op: OpIdentity}
}

// Binary joins two subtrees under a binary operation.
func Binary(op OperationType, left, right *Node) *Node {
	if !op.Binary() {
		panic(fmt.Sprintf("%s is not a binary operation", op))
	}
	return &Node{Op: op, Left: left, Right: right}
}

// Kleene wraps child in a transitive closure.
func Kleene(child *Node) *Node {
	return &Node{Op: OpKleene, Left: child}
}

// Fold lowers an n-ary operand list to a left-deep chain of op nodes. A
// single operand is returned as is.
func Fold(op OperationType, operands []*Node) *Node {
	if len(operands) == 0 {
		panic("fold over an empty operand list")
	}
	out := operands[0]
	for _, next := range operands[1:] {
		out = Binary(op, out, next)
	}
	return out
}

func glyph(op OperationType) rune {
	switch op {
	case OpConcatenation:
		return syntax.Join
	case OpIntersection:
		return syntax.Intersect
	default:
		return syntax.Union
	}
}

func (n *Node) String() string {
	switch n.Op {
	case OpEdge:
		return n.Label.String()
	case OpIdentity:
		return syntax.Identity
	case OpKleene:
		return n.Left.String() + string(syntax.Star)
	default:
		return fmt.Sprintf("(%s%c%s)", n.Left, glyph(n.Op), n.Right)
	}
}

// Depth returns the height of the tree; a leaf has depth 1.
func (n *Node) Depth() int {
	if n == nil {
		return 0
	}
	return 1 + max(n.Left.Depth(), n.Right.Depth())
}

// Size counts the nodes of the tree.
func (n *Node) Size() int {
	if n == nil {
		return 0
	}
	return 1 + n.Left.Size() + n.Right.Size()
}

// Labels returns the edge labels in left-to-right order.
func (n *Node) Labels() []schema.Predicate {
	var out []schema.Predicate
	var walk func(*Node)
	walk = func(x *Node) {
		if x == nil {
			return
		}
		if x.Op == OpEdge {
			out = append(out, x.Label)
		}
		walk(x.Left)
		walk(x.Right)
	}
	walk(n)
	return out
}
