package algebra

import (
	"fmt"

	"github.com/gtfierro/rdflib/pkg/sparql/parser"
)

// TranslateQuery lowers a parsed query into an algebra tree. For SELECT
// queries the returned names are the projected variables in order; for
// the other forms they are nil and the caller works from the tree and
// the query's template.
func TranslateQuery(q *parser.Query) (*Node, []string, error) {
	switch q.Kind {
	case parser.QueryKindSelect:
		return translateSelect(q.Select)
	case parser.QueryKindConstruct:
		node, err := translateWhereWithModifiers(q.Construct.Where, &q.Construct.Modifiers)
		return node, nil, err
	case parser.QueryKindAsk:
		node, err := TranslatePattern(q.Ask.Where)
		return node, nil, err
	case parser.QueryKindDescribe:
		if q.Describe.Where == nil {
			return nil, nil, nil
		}
		node, err := translateWhereWithModifiers(q.Describe.Where, &q.Describe.Modifiers)
		return node, nil, err
	}
	return nil, nil, fmt.Errorf("unknown query kind %d", q.Kind)
}

// TranslatePattern lowers a group graph pattern. Update operations use
// this for their WHERE clauses.
func TranslatePattern(g *parser.GroupGraphPattern) (*Node, error) {
	return translateGroup(g)
}

func translateSelect(sel *parser.SelectQuery) (*Node, []string, error) {
	node, err := translateGroup(sel.Where)
	if err != nil {
		return nil, nil, err
	}

	// Hoist aggregates out of the projection, HAVING and ORDER BY into
	// the Group operator, leaving variable references behind.
	collector := &aggCollector{}
	projection := make([]parser.SelectItem, len(sel.Projection))
	for i, item := range sel.Projection {
		projection[i] = item
		if item.Expr != nil {
			projection[i].Expr = collector.rewrite(item.Expr)
		}
	}
	having := make([]parser.Expression, len(sel.Modifiers.Having))
	for i, h := range sel.Modifiers.Having {
		having[i] = collector.rewrite(h)
	}
	orderBy := make([]*parser.OrderCondition, len(sel.Modifiers.OrderBy))
	for i, oc := range sel.Modifiers.OrderBy {
		orderBy[i] = &parser.OrderCondition{
			Expr:      collector.rewrite(oc.Expr),
			Ascending: oc.Ascending,
		}
	}

	if len(sel.Modifiers.GroupBy) > 0 || len(collector.aggs) > 0 {
		node = &Node{
			Op:         OpGroup,
			Input:      node,
			GroupBy:    sel.Modifiers.GroupBy,
			Aggregates: collector.aggs,
		}
	}

	for _, h := range having {
		node = &Node{Op: OpFilter, Input: node, Expr: h}
	}

	var names []string
	for _, item := range projection {
		if item.Expr != nil {
			node = &Node{Op: OpExtend, Input: node, Var: item.Variable, Expr: item.Expr}
		}
		names = append(names, item.Variable.Name)
	}
	if len(projection) == 0 {
		names = patternVariables(sel.Where)
	}

	if len(orderBy) > 0 {
		node = &Node{Op: OpOrderBy, Input: node, OrderBy: orderBy}
	}

	node = &Node{Op: OpProject, Input: node, Projection: names}

	if sel.Distinct {
		node = &Node{Op: OpDistinct, Input: node}
	} else if sel.Reduced {
		node = &Node{Op: OpReduced, Input: node}
	}

	node = applySlice(node, &sel.Modifiers)
	return node, names, nil
}

// translateWhereWithModifiers applies the ORDER BY and LIMIT/OFFSET of
// a CONSTRUCT or DESCRIBE over its WHERE pattern.
func translateWhereWithModifiers(g *parser.GroupGraphPattern, m *parser.Modifiers) (*Node, error) {
	node, err := translateGroup(g)
	if err != nil {
		return nil, err
	}
	if len(m.OrderBy) > 0 {
		node = &Node{Op: OpOrderBy, Input: node, OrderBy: m.OrderBy}
	}
	return applySlice(node, m), nil
}

func applySlice(node *Node, m *parser.Modifiers) *Node {
	if m.Limit == nil && m.Offset == nil {
		return node
	}
	slice := &Node{Op: OpSlice, Input: node, Limit: -1, Offset: 0}
	if m.Limit != nil {
		slice.Limit = *m.Limit
	}
	if m.Offset != nil {
		slice.Offset = *m.Offset
	}
	return slice
}

// translateGroup lowers a group in textual order: triples accumulate
// into basic graph patterns, OPTIONAL and MINUS take everything to
// their left as the left operand, and FILTERs apply to the whole group.
func translateGroup(g *parser.GroupGraphPattern) (*Node, error) {
	var root *Node
	var bgp *Node
	var filters []parser.Expression

	flush := func() {
		if bgp != nil {
			root = join(root, bgp)
			bgp = nil
		}
	}

	for _, el := range g.Elements {
		switch e := el.(type) {
		case *parser.TriplePattern:
			if e.Predicate.IsPath() {
				flush()
				root = join(root, &Node{
					Op:       OpPath,
					Subject:  e.Subject,
					Object:   e.Object,
					PathExpr: e.Predicate.Path,
				})
				continue
			}
			if bgp == nil {
				bgp = &Node{Op: OpBGP}
			}
			bgp.Patterns = append(bgp.Patterns, e)

		case *parser.FilterElement:
			filters = append(filters, e.Expr)

		case *parser.BindElement:
			flush()
			root = &Node{Op: OpExtend, Input: unitIfNil(root), Var: e.Variable, Expr: e.Expr}

		case *parser.OptionalElement:
			flush()
			right, err := translateGroup(e.Pattern)
			if err != nil {
				return nil, err
			}
			lj := &Node{Op: OpLeftJoin, Left: unitIfNil(root), Right: right}
			// A filter at the top of the optional pattern becomes the
			// join condition.
			if right.Op == OpFilter {
				lj.Right = right.Input
				lj.Expr = right.Expr
			}
			root = lj

		case *parser.MinusElement:
			flush()
			right, err := translateGroup(e.Pattern)
			if err != nil {
				return nil, err
			}
			root = &Node{Op: OpMinus, Left: unitIfNil(root), Right: right}

		case *parser.UnionElement:
			flush()
			var union *Node
			for _, alt := range e.Alternatives {
				n, err := translateGroup(alt)
				if err != nil {
					return nil, err
				}
				if union == nil {
					union = n
					continue
				}
				union = &Node{Op: OpUnion, Left: union, Right: n}
			}
			root = join(root, union)

		case *parser.GroupElement:
			flush()
			inner, err := translateGroup(e.Pattern)
			if err != nil {
				return nil, err
			}
			root = join(root, inner)

		case *parser.GraphElement:
			flush()
			inner, err := translateGroup(e.Pattern)
			if err != nil {
				return nil, err
			}
			root = join(root, &Node{Op: OpGraph, Name: e.Name, Input: inner})

		case *parser.ServiceElement:
			flush()
			inner, err := translateGroup(e.Pattern)
			if err != nil {
				return nil, err
			}
			root = join(root, &Node{Op: OpService, Name: e.Name, Silent: e.Silent, Input: inner})

		case *parser.ValuesElement:
			flush()
			root = join(root, &Node{Op: OpValues, Variables: e.Variables, Rows: e.Rows})

		case *parser.SubSelectElement:
			flush()
			sub, _, err := translateSelect(e.Query)
			if err != nil {
				return nil, err
			}
			root = join(root, sub)

		default:
			return nil, fmt.Errorf("unsupported pattern element %T", el)
		}
	}
	flush()

	root = unitIfNil(root)
	for _, f := range filters {
		root = &Node{Op: OpFilter, Input: root, Expr: f}
	}
	return root, nil
}

// join combines two operands, treating a nil left as the identity.
func join(left, right *Node) *Node {
	if left == nil {
		return right
	}
	if right == nil {
		return left
	}
	return &Node{Op: OpJoin, Left: left, Right: right}
}

// unitIfNil substitutes the unit pattern (an empty BGP, one empty
// solution) for a missing operand.
func unitIfNil(n *Node) *Node {
	if n == nil {
		return &Node{Op: OpBGP}
	}
	return n
}

// aggCollector hoists aggregate expressions, assigning each a synthetic
// variable bound by the Group operator.
type aggCollector struct {
	aggs []*Aggregate
}

func (c *aggCollector) rewrite(e parser.Expression) parser.Expression {
	switch ex := e.(type) {
	case *parser.AggregateExpression:
		name := fmt.Sprintf("__agg%d", len(c.aggs)+1)
		c.aggs = append(c.aggs, &Aggregate{Var: name, Expr: ex})
		return &parser.VariableExpression{Variable: &parser.Variable{Name: name}}
	case *parser.BinaryExpression:
		return &parser.BinaryExpression{
			Left:     c.rewrite(ex.Left),
			Operator: ex.Operator,
			Right:    c.rewrite(ex.Right),
		}
	case *parser.UnaryExpression:
		return &parser.UnaryExpression{Operator: ex.Operator, Operand: c.rewrite(ex.Operand)}
	case *parser.FunctionCallExpression:
		args := make([]parser.Expression, len(ex.Arguments))
		for i, a := range ex.Arguments {
			args[i] = c.rewrite(a)
		}
		return &parser.FunctionCallExpression{Function: ex.Function, Arguments: args}
	case *parser.InExpression:
		values := make([]parser.Expression, len(ex.Values))
		for i, v := range ex.Values {
			values[i] = c.rewrite(v)
		}
		return &parser.InExpression{Not: ex.Not, Expression: c.rewrite(ex.Expression), Values: values}
	}
	return e
}

// patternVariables returns the visible variables of a pattern in first-
// appearance order, for SELECT *.
func patternVariables(g *parser.GroupGraphPattern) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(v *parser.Variable) {
		if v == nil || seen[v.Name] {
			return
		}
		seen[v.Name] = true
		names = append(names, v.Name)
	}
	var addTerm func(t parser.TermOrVariable)
	addTerm = func(t parser.TermOrVariable) {
		if t.IsVariable() {
			add(t.Variable)
		}
	}

	var walk func(g *parser.GroupGraphPattern)
	walk = func(g *parser.GroupGraphPattern) {
		for _, el := range g.Elements {
			switch e := el.(type) {
			case *parser.TriplePattern:
				addTerm(e.Subject)
				addTerm(e.Predicate)
				addTerm(e.Object)
			case *parser.BindElement:
				add(e.Variable)
			case *parser.OptionalElement:
				walk(e.Pattern)
			case *parser.UnionElement:
				for _, alt := range e.Alternatives {
					walk(alt)
				}
			case *parser.GroupElement:
				walk(e.Pattern)
			case *parser.GraphElement:
				addTerm(e.Name)
				walk(e.Pattern)
			case *parser.ServiceElement:
				walk(e.Pattern)
			case *parser.ValuesElement:
				for _, v := range e.Variables {
					add(v)
				}
			case *parser.SubSelectElement:
				for _, item := range e.Query.Projection {
					add(item.Variable)
				}
				if len(e.Query.Projection) == 0 {
					for _, name := range patternVariables(e.Query.Where) {
						add(&parser.Variable{Name: name})
					}
				}
			}
			// MINUS and FILTER bind nothing visible.
		}
	}
	walk(g)
	return names
}
