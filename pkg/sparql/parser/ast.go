package parser

import (
	"github.com/gtfierro/rdflib/pkg/rdf"
)

// Query represents a parsed SPARQL query of any form.
type Query struct {
	Kind    QueryKind
	Dataset []DatasetClause // FROM / FROM NAMED

	Select    *SelectQuery
	Construct *ConstructQuery
	Ask       *AskQuery
	Describe  *DescribeQuery
}

// QueryKind represents the query form.
type QueryKind int

const (
	QueryKindSelect QueryKind = iota
	QueryKindConstruct
	QueryKindAsk
	QueryKindDescribe
)

// DatasetClause is a FROM or FROM NAMED (or USING / USING NAMED) clause.
type DatasetClause struct {
	Named bool
	Graph *rdf.IRI
}

// SelectItem is one projection entry: a bare variable or (Expr AS ?var).
type SelectItem struct {
	Variable *Variable
	Expr     Expression // nil for a bare variable
}

// Modifiers collects the solution modifiers shared by the query forms.
type Modifiers struct {
	GroupBy []*GroupCondition
	Having  []Expression
	OrderBy []*OrderCondition
	Limit   *int
	Offset  *int
}

// SelectQuery represents a SELECT query (or subquery).
type SelectQuery struct {
	Projection []SelectItem // empty means SELECT *
	Distinct   bool
	Reduced    bool
	Where      *GroupGraphPattern
	Modifiers  Modifiers
}

// ConstructQuery represents a CONSTRUCT query.
type ConstructQuery struct {
	Template  []*TriplePattern
	Where     *GroupGraphPattern
	Modifiers Modifiers
}

// AskQuery represents an ASK query.
type AskQuery struct {
	Where *GroupGraphPattern
}

// DescribeQuery represents a DESCRIBE query.
type DescribeQuery struct {
	Resources []rdf.Term  // explicit IRIs
	Variables []*Variable // variables projected from WHERE
	Where     *GroupGraphPattern
	Modifiers Modifiers
}

// GroupGraphPattern is a { ... } group: an ordered list of elements whose
// textual order drives algebra translation.
type GroupGraphPattern struct {
	Elements []PatternElement
}

// PatternElement is one syntactic element inside a group pattern.
type PatternElement interface {
	patternElement()
}

// TriplePattern represents one triple pattern. The predicate position may
// hold a property path instead of a term or variable.
type TriplePattern struct {
	Subject   TermOrVariable
	Predicate TermOrVariable
	Object    TermOrVariable
}

func (*TriplePattern) patternElement() {}

// FilterElement is a FILTER constraint, scoped to its enclosing group.
type FilterElement struct {
	Expr Expression
}

func (*FilterElement) patternElement() {}

// BindElement is BIND(expr AS ?var).
type BindElement struct {
	Expr     Expression
	Variable *Variable
}

func (*BindElement) patternElement() {}

// OptionalElement is an OPTIONAL { ... } group.
type OptionalElement struct {
	Pattern *GroupGraphPattern
}

func (*OptionalElement) patternElement() {}

// MinusElement is a MINUS { ... } group.
type MinusElement struct {
	Pattern *GroupGraphPattern
}

func (*MinusElement) patternElement() {}

// UnionElement is two or more groups joined by UNION.
type UnionElement struct {
	Alternatives []*GroupGraphPattern
}

func (*UnionElement) patternElement() {}

// GroupElement is a nested { ... } group with no leading keyword.
type GroupElement struct {
	Pattern *GroupGraphPattern
}

func (*GroupElement) patternElement() {}

// GraphElement is GRAPH <iri-or-var> { ... }.
type GraphElement struct {
	Name    TermOrVariable
	Pattern *GroupGraphPattern
}

func (*GraphElement) patternElement() {}

// ServiceElement is SERVICE [SILENT] <iri-or-var> { ... }.
type ServiceElement struct {
	Silent  bool
	Name    TermOrVariable
	Pattern *GroupGraphPattern
}

func (*ServiceElement) patternElement() {}

// ValuesElement is a VALUES inline data block. A nil entry in a row is
// UNDEF.
type ValuesElement struct {
	Variables []*Variable
	Rows      [][]rdf.Term
}

func (*ValuesElement) patternElement() {}

// SubSelectElement is a nested SELECT inside a group pattern.
type SubSelectElement struct {
	Query *SelectQuery
}

func (*SubSelectElement) patternElement() {}

// TermOrVariable holds exactly one of a concrete term, a variable, or
// (predicate position only) a property path.
type TermOrVariable struct {
	Term     rdf.Term
	Variable *Variable
	Path     *Path
}

func (t *TermOrVariable) IsVariable() bool {
	return t.Variable != nil
}

func (t *TermOrVariable) IsPath() bool {
	return t.Path != nil
}

// Variable represents a SPARQL variable.
type Variable struct {
	Name string
}

func (v *Variable) String() string {
	return "?" + v.Name
}

// PathKind discriminates property path operators.
type PathKind int

const (
	PathLink        PathKind = iota // a single predicate IRI
	PathInverse                     // ^p
	PathSequence                    // p1 / p2
	PathAlternative                 // p1 | p2
	PathZeroOrMore                  // p*
	PathOneOrMore                   // p+
	PathZeroOrOne                   // p?
	PathNegated                     // !(...) negated property set
)

// Path is a property path expression tree.
type Path struct {
	Kind     PathKind
	IRI      *rdf.IRI // PathLink
	Children []*Path  // operands for the compound kinds

	// Negated property sets: forward and inverse predicate alternatives.
	Forward []*rdf.IRI
	Inverse []*rdf.IRI
}

// GroupCondition is one GROUP BY key: a variable, or an expression with
// an optional AS binding.
type GroupCondition struct {
	Variable *Variable
	Expr     Expression
	As       *Variable
}

// OrderCondition is one ORDER BY key.
type OrderCondition struct {
	Expr      Expression
	Ascending bool
}

// ===== Expressions =====

// Expression is a filter/bind/projection expression node.
type Expression interface {
	expression()
}

// Operator enumerates binary and unary expression operators.
type Operator int

const (
	OpOr Operator = iota
	OpAnd
	OpEqual
	OpNotEqual
	OpLessThan
	OpLessThanOrEqual
	OpGreaterThan
	OpGreaterThanOrEqual
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpNot
	OpNegate
)

type BinaryExpression struct {
	Left     Expression
	Operator Operator
	Right    Expression
}

func (*BinaryExpression) expression() {}

type UnaryExpression struct {
	Operator Operator
	Operand  Expression
}

func (*UnaryExpression) expression() {}

type VariableExpression struct {
	Variable *Variable
}

func (*VariableExpression) expression() {}

// TermExpression is a constant term appearing in an expression.
type TermExpression struct {
	Term rdf.Term
}

func (*TermExpression) expression() {}

// FunctionCallExpression is a builtin or extension function invocation.
// Function is the builtin keyword upper-cased, or an expanded IRI for
// extension functions (including casts like xsd:integer).
type FunctionCallExpression struct {
	Function  string
	Arguments []Expression
}

func (*FunctionCallExpression) expression() {}

// AggregateExpression is COUNT/SUM/AVG/MIN/MAX/GROUP_CONCAT/SAMPLE.
// A nil Arg means COUNT(*).
type AggregateExpression struct {
	Name      string
	Distinct  bool
	Arg       Expression
	Separator string // GROUP_CONCAT separator, defaults to " "
}

func (*AggregateExpression) expression() {}

// ExistsExpression is EXISTS { ... } or NOT EXISTS { ... }.
type ExistsExpression struct {
	Not     bool
	Pattern *GroupGraphPattern
}

func (*ExistsExpression) expression() {}

// InExpression is expr IN (...) or expr NOT IN (...).
type InExpression struct {
	Not        bool
	Expression Expression
	Values     []Expression
}

func (*InExpression) expression() {}

// ===== Updates =====

// Update is a parsed update request: a sequence of operations separated
// by semicolons, applied in order.
type Update struct {
	Operations []UpdateOperation
}

// UpdateOperation is one update statement.
type UpdateOperation interface {
	updateOperation()
}

// QuadPattern is a triple plus an optional graph (nil means the default
// graph, or the WITH graph for DELETE/INSERT).
type QuadPattern struct {
	Triple *TriplePattern
	Graph  *TermOrVariable
}

// InsertData is INSERT DATA { quads } with ground terms only.
type InsertData struct {
	Quads []*QuadPattern
}

func (*InsertData) updateOperation() {}

// DeleteData is DELETE DATA { quads } with ground terms only.
type DeleteData struct {
	Quads []*QuadPattern
}

func (*DeleteData) updateOperation() {}

// Modify is [WITH <g>] DELETE {..} INSERT {..} [USING ...] WHERE {..},
// covering the DELETE WHERE shorthand as well.
type Modify struct {
	With   *rdf.IRI
	Delete []*QuadPattern
	Insert []*QuadPattern
	Using  []DatasetClause
	Where  *GroupGraphPattern
}

func (*Modify) updateOperation() {}

// Load is LOAD [SILENT] <source> [INTO GRAPH <g>].
type Load struct {
	Silent bool
	Source *rdf.IRI
	Into   *rdf.IRI
}

func (*Load) updateOperation() {}

// GraphRefKind selects the target of CLEAR/DROP and friends.
type GraphRefKind int

const (
	GraphRefDefault GraphRefKind = iota
	GraphRefNamed                // all named graphs
	GraphRefAll                  // default plus all named
	GraphRefGraph                // one specific graph
)

// GraphRef names a graph or graph set in a management operation.
type GraphRef struct {
	Kind  GraphRefKind
	Graph *rdf.IRI
}

type Clear struct {
	Silent bool
	Target GraphRef
}

func (*Clear) updateOperation() {}

type Create struct {
	Silent bool
	Graph  *rdf.IRI
}

func (*Create) updateOperation() {}

type Drop struct {
	Silent bool
	Target GraphRef
}

func (*Drop) updateOperation() {}

type Copy struct {
	Silent bool
	From   GraphRef
	To     GraphRef
}

func (*Copy) updateOperation() {}

type Move struct {
	Silent bool
	From   GraphRef
	To     GraphRef
}

func (*Move) updateOperation() {}

type AddOp struct {
	Silent bool
	From   GraphRef
	To     GraphRef
}

func (*AddOp) updateOperation() {}
