// Package algebra lowers parsed SPARQL ASTs into a tree of relational
// operators that the evaluator walks. Translation is pure: it never
// touches a dataset.
package algebra

import (
	"github.com/gtfierro/rdflib/pkg/rdf"
	"github.com/gtfierro/rdflib/pkg/sparql/parser"
)

// Op identifies an algebra operator.
type Op int

const (
	OpBGP Op = iota
	OpJoin
	OpLeftJoin
	OpUnion
	OpMinus
	OpFilter
	OpExtend
	OpGraph
	OpService
	OpPath
	OpValues
	OpGroup
	OpOrderBy
	OpProject
	OpDistinct
	OpReduced
	OpSlice
)

func (op Op) String() string {
	switch op {
	case OpBGP:
		return "BGP"
	case OpJoin:
		return "Join"
	case OpLeftJoin:
		return "LeftJoin"
	case OpUnion:
		return "Union"
	case OpMinus:
		return "Minus"
	case OpFilter:
		return "Filter"
	case OpExtend:
		return "Extend"
	case OpGraph:
		return "Graph"
	case OpService:
		return "Service"
	case OpPath:
		return "Path"
	case OpValues:
		return "Values"
	case OpGroup:
		return "Group"
	case OpOrderBy:
		return "OrderBy"
	case OpProject:
		return "Project"
	case OpDistinct:
		return "Distinct"
	case OpReduced:
		return "Reduced"
	case OpSlice:
		return "Slice"
	}
	return "Unknown"
}

// Aggregate is one aggregate computation hoisted out of a projection,
// HAVING or ORDER BY expression. The Group operator evaluates it and
// binds the result to Var in each group's solution.
type Aggregate struct {
	Var  string
	Expr *parser.AggregateExpression
}

// Node is one operator in the algebra tree. Which fields are meaningful
// depends on Op; unrelated fields are zero.
type Node struct {
	Op Op

	// Binary operators.
	Left  *Node
	Right *Node

	// Unary operators read their child from Input.
	Input *Node

	// BGP.
	Patterns []*parser.TriplePattern

	// Path.
	Subject  parser.TermOrVariable
	Object   parser.TermOrVariable
	PathExpr *parser.Path

	// Filter and the LeftJoin condition.
	Expr parser.Expression

	// Extend.
	Var *parser.Variable

	// Graph and Service.
	Name   parser.TermOrVariable
	Silent bool

	// Values.
	Variables []*parser.Variable
	Rows      [][]rdf.Term

	// Group.
	GroupBy    []*parser.GroupCondition
	Aggregates []*Aggregate

	// OrderBy.
	OrderBy []*parser.OrderCondition

	// Project.
	Projection []string

	// Slice. A negative value means unset.
	Limit  int
	Offset int
}

// Walk visits the tree depth-first, children before parents. It stops
// early when fn returns false.
func Walk(n *Node, fn func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if !Walk(n.Left, fn) || !Walk(n.Right, fn) || !Walk(n.Input, fn) {
		return false
	}
	return fn(n)
}
