package evaluator

import (
	"context"
	"fmt"
	"math"

	"github.com/cockroachdb/apd/v3"

	"github.com/gtfierro/rdflib/pkg/rdf"
	"github.com/gtfierro/rdflib/pkg/sparql/algebra"
	"github.com/gtfierro/rdflib/pkg/sparql/parser"
)

// EvaluateExpression evaluates an expression against a solution. An
// error is a SPARQL type error: filters treat it as false and BIND
// leaves the variable unbound.
func (e *Evaluator) EvaluateExpression(ctx context.Context, expr parser.Expression, sol Solution) (rdf.Term, error) {
	switch ex := expr.(type) {
	case *parser.VariableExpression:
		if t, ok := sol[ex.Variable.Name]; ok {
			return t, nil
		}
		return nil, fmt.Errorf("variable ?%s is not bound", ex.Variable.Name)
	case *parser.TermExpression:
		return ex.Term, nil
	case *parser.BinaryExpression:
		return e.evaluateBinary(ctx, ex, sol)
	case *parser.UnaryExpression:
		return e.evaluateUnary(ctx, ex, sol)
	case *parser.FunctionCallExpression:
		return e.evaluateFunctionCall(ctx, ex, sol)
	case *parser.ExistsExpression:
		return e.evaluateExists(ctx, ex, sol)
	case *parser.InExpression:
		return e.evaluateIn(ctx, ex, sol)
	case *parser.AggregateExpression:
		return nil, fmt.Errorf("aggregate %s outside of grouping", ex.Name)
	case nil:
		return nil, fmt.Errorf("cannot evaluate nil expression")
	}
	return nil, fmt.Errorf("unsupported expression type %T", expr)
}

// effectiveBool evaluates an expression and takes its effective boolean
// value.
func (e *Evaluator) effectiveBool(ctx context.Context, expr parser.Expression, sol Solution) (bool, error) {
	t, err := e.EvaluateExpression(ctx, expr, sol)
	if err != nil {
		return false, err
	}
	return EffectiveBooleanValue(t)
}

// EffectiveBooleanValue computes the SPARQL EBV. A boolean or numeric
// literal with a malformed lexical form is false; strings test
// non-emptiness; everything else is a type error.
func EffectiveBooleanValue(t rdf.Term) (bool, error) {
	lit, ok := t.(*rdf.Literal)
	if !ok {
		return false, fmt.Errorf("no boolean value for %s", t)
	}

	v, wellFormed := lit.Value()
	if lit.Datatype != nil && lit.Datatype.Equals(rdf.XSDBoolean) {
		return wellFormed && v.Bool, nil
	}
	if wellFormed {
		switch {
		case v.Kind == rdf.KindString && lit.Language == "":
			return len(v.Str) > 0, nil
		case v.IsNumeric():
			f := v.AsFloat()
			return f != 0 && !math.IsNaN(f), nil
		}
	}
	if lit.WellFormedness() == rdf.IllFormed && lit.Datatype != nil && hasNumericDatatype(lit) {
		return false, nil
	}
	return false, fmt.Errorf("no boolean value for %s", t)
}

func hasNumericDatatype(lit *rdf.Literal) bool {
	dt := lit.Datatype.Value
	const xsd = "http://www.w3.org/2001/XMLSchema#"
	switch dt {
	case xsd + "integer", xsd + "decimal", xsd + "float", xsd + "double",
		xsd + "long", xsd + "int", xsd + "short", xsd + "byte",
		xsd + "nonNegativeInteger", xsd + "positiveInteger",
		xsd + "nonPositiveInteger", xsd + "negativeInteger",
		xsd + "unsignedLong", xsd + "unsignedInt", xsd + "unsignedShort", xsd + "unsignedByte":
		return true
	}
	return false
}

func (e *Evaluator) evaluateBinary(ctx context.Context, expr *parser.BinaryExpression, sol Solution) (rdf.Term, error) {
	switch expr.Operator {
	case parser.OpAnd:
		return e.evaluateAnd(ctx, expr, sol)
	case parser.OpOr:
		return e.evaluateOr(ctx, expr, sol)
	}

	left, err := e.EvaluateExpression(ctx, expr.Left, sol)
	if err != nil {
		return nil, err
	}
	right, err := e.EvaluateExpression(ctx, expr.Right, sol)
	if err != nil {
		return nil, err
	}

	switch expr.Operator {
	case parser.OpEqual:
		eq, err := rdf.ValueEquals(left, right)
		if err != nil {
			return nil, err
		}
		return rdf.NewBooleanLiteral(eq), nil
	case parser.OpNotEqual:
		eq, err := rdf.ValueEquals(left, right)
		if err != nil {
			return nil, err
		}
		return rdf.NewBooleanLiteral(!eq), nil
	case parser.OpLessThan:
		c, err := compareForFilter(left, right)
		if err != nil {
			return nil, err
		}
		return rdf.NewBooleanLiteral(c < 0), nil
	case parser.OpLessThanOrEqual:
		c, err := compareForFilter(left, right)
		if err != nil {
			return nil, err
		}
		return rdf.NewBooleanLiteral(c <= 0), nil
	case parser.OpGreaterThan:
		c, err := compareForFilter(left, right)
		if err != nil {
			return nil, err
		}
		return rdf.NewBooleanLiteral(c > 0), nil
	case parser.OpGreaterThanOrEqual:
		c, err := compareForFilter(left, right)
		if err != nil {
			return nil, err
		}
		return rdf.NewBooleanLiteral(c >= 0), nil
	case parser.OpAdd, parser.OpSubtract, parser.OpMultiply, parser.OpDivide:
		return evaluateArithmetic(expr.Operator, left, right)
	}
	return nil, fmt.Errorf("unsupported binary operator %d", expr.Operator)
}

// Logical connectives follow the SPARQL three-valued tables: a type
// error on one side is recoverable when the other side decides the
// result.

func (e *Evaluator) evaluateAnd(ctx context.Context, expr *parser.BinaryExpression, sol Solution) (rdf.Term, error) {
	left, lerr := e.effectiveBool(ctx, expr.Left, sol)
	right, rerr := e.effectiveBool(ctx, expr.Right, sol)
	switch {
	case lerr == nil && rerr == nil:
		return rdf.NewBooleanLiteral(left && right), nil
	case lerr == nil && !left:
		return rdf.NewBooleanLiteral(false), nil
	case rerr == nil && !right:
		return rdf.NewBooleanLiteral(false), nil
	case lerr != nil:
		return nil, lerr
	}
	return nil, rerr
}

func (e *Evaluator) evaluateOr(ctx context.Context, expr *parser.BinaryExpression, sol Solution) (rdf.Term, error) {
	left, lerr := e.effectiveBool(ctx, expr.Left, sol)
	right, rerr := e.effectiveBool(ctx, expr.Right, sol)
	switch {
	case lerr == nil && rerr == nil:
		return rdf.NewBooleanLiteral(left || right), nil
	case lerr == nil && left:
		return rdf.NewBooleanLiteral(true), nil
	case rerr == nil && right:
		return rdf.NewBooleanLiteral(true), nil
	case lerr != nil:
		return nil, lerr
	}
	return nil, rerr
}

func (e *Evaluator) evaluateUnary(ctx context.Context, expr *parser.UnaryExpression, sol Solution) (rdf.Term, error) {
	switch expr.Operator {
	case parser.OpNot:
		b, err := e.effectiveBool(ctx, expr.Operand, sol)
		if err != nil {
			return nil, err
		}
		return rdf.NewBooleanLiteral(!b), nil
	case parser.OpNegate:
		t, err := e.EvaluateExpression(ctx, expr.Operand, sol)
		if err != nil {
			return nil, err
		}
		v, err := numericValue(t)
		if err != nil {
			return nil, err
		}
		zero := rdf.IntegerValue(0)
		return evaluateArithmeticValues(parser.OpSubtract, zero, v)
	}
	return nil, fmt.Errorf("unsupported unary operator %d", expr.Operator)
}

func (e *Evaluator) evaluateIn(ctx context.Context, expr *parser.InExpression, sol Solution) (rdf.Term, error) {
	needle, err := e.EvaluateExpression(ctx, expr.Expression, sol)
	if err != nil {
		return nil, err
	}
	var firstErr error
	found := false
	for _, v := range expr.Values {
		candidate, err := e.EvaluateExpression(ctx, v, sol)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		eq, err := rdf.ValueEquals(needle, candidate)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if eq {
			found = true
			break
		}
	}
	if !found && firstErr != nil {
		return nil, firstErr
	}
	if expr.Not {
		return rdf.NewBooleanLiteral(!found), nil
	}
	return rdf.NewBooleanLiteral(found), nil
}

// evaluateExists translates the nested pattern on the fly and tests
// whether any of its solutions is compatible with the current one.
func (e *Evaluator) evaluateExists(ctx context.Context, expr *parser.ExistsExpression, sol Solution) (rdf.Term, error) {
	node, err := algebra.TranslatePattern(expr.Pattern)
	if err != nil {
		return nil, err
	}
	seq, err := e.Evaluate(ctx, node)
	if err != nil {
		return nil, err
	}
	defer seq.Close()

	exists := false
	for seq.Next() {
		if Compatible(sol, seq.Solution()) {
			exists = true
			break
		}
	}
	if err := seq.Err(); err != nil {
		return nil, err
	}
	if expr.Not {
		return rdf.NewBooleanLiteral(!exists), nil
	}
	return rdf.NewBooleanLiteral(exists), nil
}

// compareForFilter orders two terms for the <, <=, >, >= operators.
// Unlike ORDER BY, only literal operands are comparable here; anything
// the order cannot decide is a type error.
func compareForFilter(a, b rdf.Term) (int, error) {
	if _, ok := a.(*rdf.Literal); !ok {
		return 0, fmt.Errorf("cannot order %s", a)
	}
	if _, ok := b.(*rdf.Literal); !ok {
		return 0, fmt.Errorf("cannot order %s", b)
	}
	return rdf.Compare(a, b)
}

func numericValue(t rdf.Term) (rdf.Value, error) {
	lit, ok := t.(*rdf.Literal)
	if !ok {
		return rdf.Value{}, fmt.Errorf("%s is not a numeric literal", t)
	}
	v, ok := lit.Value()
	if !ok || !v.IsNumeric() {
		return rdf.Value{}, fmt.Errorf("%s is not a numeric literal", t)
	}
	return v, nil
}

func evaluateArithmetic(op parser.Operator, left, right rdf.Term) (rdf.Term, error) {
	lv, err := numericValue(left)
	if err != nil {
		return nil, err
	}
	rv, err := numericValue(right)
	if err != nil {
		return nil, err
	}
	return evaluateArithmeticValues(op, lv, rv)
}

var arithContext = apd.BaseContext.WithPrecision(40)

// evaluateArithmeticValues applies the XSD promotion rules: any
// float/double operand forces floating point, integer pairs stay exact,
// and integer division yields a decimal.
func evaluateArithmeticValues(op parser.Operator, a, b rdf.Value) (rdf.Term, error) {
	if isFloating(a) || isFloating(b) {
		af, bf := a.AsFloat(), b.AsFloat()
		var f float64
		switch op {
		case parser.OpAdd:
			f = af + bf
		case parser.OpSubtract:
			f = af - bf
		case parser.OpMultiply:
			f = af * bf
		case parser.OpDivide:
			f = af / bf
		}
		if a.Kind == rdf.KindFloat && b.Kind != rdf.KindDouble || b.Kind == rdf.KindFloat && a.Kind != rdf.KindDouble {
			return rdf.FromValue(rdf.FloatValue(f), nil)
		}
		return rdf.FromValue(rdf.DoubleValue(f), nil)
	}

	ad, bd := a.AsDecimal(), b.AsDecimal()
	var res apd.Decimal
	var err error
	switch op {
	case parser.OpAdd:
		_, err = arithContext.Add(&res, ad, bd)
	case parser.OpSubtract:
		_, err = arithContext.Sub(&res, ad, bd)
	case parser.OpMultiply:
		_, err = arithContext.Mul(&res, ad, bd)
	case parser.OpDivide:
		if bd.IsZero() {
			return nil, fmt.Errorf("division by zero")
		}
		_, err = arithContext.Quo(&res, ad, bd)
	}
	if err != nil {
		return nil, err
	}

	if a.Kind == rdf.KindInteger && b.Kind == rdf.KindInteger && op != parser.OpDivide {
		if i, err := res.Int64(); err == nil {
			return rdf.FromValue(rdf.IntegerValue(i), nil)
		}
	}
	return rdf.FromValue(rdf.DecimalValue(&res), nil)
}

func isFloating(v rdf.Value) bool {
	return v.Kind == rdf.KindFloat || v.Kind == rdf.KindDouble
}
