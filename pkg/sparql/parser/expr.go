package parser

import (
	"strings"

	"github.com/gtfierro/rdflib/pkg/rdf"
)

// aggregateNames are the keywords that introduce an aggregate rather
// than a scalar function call.
var aggregateNames = map[string]bool{
	"COUNT":        true,
	"SUM":          true,
	"MIN":          true,
	"MAX":          true,
	"AVG":          true,
	"SAMPLE":       true,
	"GROUP_CONCAT": true,
}

// parseConstraint parses a FILTER or HAVING constraint: a bracketted
// expression or a function call.
func (p *Parser) parseConstraint() (Expression, error) {
	p.skipWhitespace()
	if p.peek() == '(' {
		p.pos++
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return expr, nil
	}
	return p.parsePrimaryExpression()
}

// parseExpression parses a full expression. Precedence, loosest first:
// || && relational additive multiplicative unary.
func (p *Parser) parseExpression() (Expression, error) {
	return p.parseOrExpression()
}

func (p *Parser) parseOrExpression() (Expression, error) {
	left, err := p.parseAndExpression()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		if !p.match("||") {
			return left, nil
		}
		right, err := p.parseAndExpression()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpression{Left: left, Operator: OpOr, Right: right}
	}
}

func (p *Parser) parseAndExpression() (Expression, error) {
	left, err := p.parseRelationalExpression()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		if !p.match("&&") {
			return left, nil
		}
		right, err := p.parseRelationalExpression()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpression{Left: left, Operator: OpAnd, Right: right}
	}
}

func (p *Parser) parseRelationalExpression() (Expression, error) {
	left, err := p.parseAdditiveExpression()
	if err != nil {
		return nil, err
	}
	p.skipWhitespace()

	if p.matchKeyword("NOT") {
		if !p.matchKeyword("IN") {
			return nil, p.syntaxError("expected IN after NOT")
		}
		values, err := p.parseExpressionList()
		if err != nil {
			return nil, err
		}
		return &InExpression{Not: true, Expression: left, Values: values}, nil
	}
	if p.matchKeyword("IN") {
		values, err := p.parseExpressionList()
		if err != nil {
			return nil, err
		}
		return &InExpression{Expression: left, Values: values}, nil
	}

	var op Operator
	switch {
	case p.match("<="):
		op = OpLessThanOrEqual
	case p.match(">="):
		op = OpGreaterThanOrEqual
	case p.match("!="):
		op = OpNotEqual
	case p.match("="):
		op = OpEqual
	case p.match("<"):
		op = OpLessThan
	case p.match(">"):
		op = OpGreaterThan
	default:
		return left, nil
	}

	right, err := p.parseAdditiveExpression()
	if err != nil {
		return nil, err
	}
	return &BinaryExpression{Left: left, Operator: op, Right: right}, nil
}

func (p *Parser) parseAdditiveExpression() (Expression, error) {
	left, err := p.parseMultiplicativeExpression()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		var op Operator
		switch p.peek() {
		case '+':
			op = OpAdd
		case '-':
			op = OpSubtract
		default:
			return left, nil
		}
		p.pos++
		right, err := p.parseMultiplicativeExpression()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpression{Left: left, Operator: op, Right: right}
	}
}

func (p *Parser) parseMultiplicativeExpression() (Expression, error) {
	left, err := p.parseUnaryExpression()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		var op Operator
		switch p.peek() {
		case '*':
			op = OpMultiply
		case '/':
			op = OpDivide
		default:
			return left, nil
		}
		p.pos++
		right, err := p.parseUnaryExpression()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpression{Left: left, Operator: op, Right: right}
	}
}

func (p *Parser) parseUnaryExpression() (Expression, error) {
	p.skipWhitespace()
	switch {
	case p.peek() == '!' && p.peekAt(1) != '=':
		p.pos++
		operand, err := p.parseUnaryExpression()
		if err != nil {
			return nil, err
		}
		return &UnaryExpression{Operator: OpNot, Operand: operand}, nil
	case p.peek() == '-' && !isDigit(p.peekAt(1)):
		p.pos++
		operand, err := p.parseUnaryExpression()
		if err != nil {
			return nil, err
		}
		return &UnaryExpression{Operator: OpNegate, Operand: operand}, nil
	case p.peek() == '+' && !isDigit(p.peekAt(1)):
		p.pos++
		return p.parseUnaryExpression()
	}
	return p.parsePrimaryExpression()
}

func (p *Parser) parsePrimaryExpression() (Expression, error) {
	p.skipWhitespace()
	ch := p.peek()

	switch {
	case ch == '(':
		p.pos++
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return expr, nil

	case ch == '?' || ch == '$':
		v, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		return &VariableExpression{Variable: v}, nil

	case ch == '"' || ch == '\'':
		lit, err := p.parseRDFLiteral()
		if err != nil {
			return nil, err
		}
		return &TermExpression{Term: lit}, nil

	case ch >= '0' && ch <= '9' || (ch == '-' || ch == '+') && isDigit(p.peekAt(1)):
		lit, err := p.parseNumericLiteral()
		if err != nil {
			return nil, err
		}
		return &TermExpression{Term: lit}, nil

	case ch == '<':
		iri, err := p.parseIRIRef()
		if err != nil {
			return nil, err
		}
		p.skipWhitespace()
		if p.peek() == '(' {
			args, err := p.parseArgList()
			if err != nil {
				return nil, err
			}
			return &FunctionCallExpression{Function: iri, Arguments: args}, nil
		}
		return &TermExpression{Term: rdf.NewIRI(iri)}, nil

	case isPNameStart(ch) || ch == ':':
		return p.parseIdentifierExpression()
	}

	return nil, p.syntaxError("expected an expression")
}

// parseIdentifierExpression handles anything starting with a letter:
// boolean literals, EXISTS, aggregates, builtin calls and prefixed-name
// function calls or terms.
func (p *Parser) parseIdentifierExpression() (Expression, error) {
	switch {
	case p.peekKeyword("true"):
		p.matchKeyword("true")
		return &TermExpression{Term: rdf.NewBooleanLiteral(true)}, nil
	case p.peekKeyword("false"):
		p.matchKeyword("false")
		return &TermExpression{Term: rdf.NewBooleanLiteral(false)}, nil
	}

	if p.matchKeyword("NOT") {
		if !p.matchKeyword("EXISTS") {
			return nil, p.syntaxError("expected EXISTS after NOT")
		}
		pattern, err := p.parseGroupGraphPattern()
		if err != nil {
			return nil, err
		}
		return &ExistsExpression{Not: true, Pattern: pattern}, nil
	}
	if p.matchKeyword("EXISTS") {
		pattern, err := p.parseGroupGraphPattern()
		if err != nil {
			return nil, err
		}
		return &ExistsExpression{Pattern: pattern}, nil
	}

	start := p.pos
	name := p.readWhile(func(ch byte) bool { return isPNameChar(ch) })

	if p.peek() == ':' {
		// Prefixed name: either a function call or a plain IRI term.
		p.pos = start
		iri, err := p.parseIRIOrPrefixedName()
		if err != nil {
			return nil, err
		}
		p.skipWhitespace()
		if p.peek() == '(' {
			args, err := p.parseArgList()
			if err != nil {
				return nil, err
			}
			return &FunctionCallExpression{Function: iri.Value, Arguments: args}, nil
		}
		return &TermExpression{Term: iri}, nil
	}

	upper := strings.ToUpper(name)
	if aggregateNames[upper] {
		return p.parseAggregate(upper)
	}

	p.skipWhitespace()
	if p.peek() != '(' {
		return nil, p.syntaxError("expected '(' after %s", name)
	}
	args, err := p.parseArgList()
	if err != nil {
		return nil, err
	}
	return &FunctionCallExpression{Function: upper, Arguments: args}, nil
}

// parseAggregate parses COUNT/SUM/MIN/MAX/AVG/SAMPLE/GROUP_CONCAT.
func (p *Parser) parseAggregate(name string) (Expression, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	agg := &AggregateExpression{Name: name, Separator: " "}

	if p.matchKeyword("DISTINCT") {
		agg.Distinct = true
	}

	p.skipWhitespace()
	if p.peek() == '*' {
		if name != "COUNT" {
			return nil, p.syntaxError("'*' is only valid in COUNT")
		}
		p.pos++
	} else {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		agg.Arg = arg
	}

	p.skipWhitespace()
	if p.peek() == ';' {
		p.pos++
		if !p.matchKeyword("SEPARATOR") {
			return nil, p.syntaxError("expected SEPARATOR after ';' in GROUP_CONCAT")
		}
		p.skipWhitespace()
		if p.peek() != '=' {
			return nil, p.syntaxError("expected '=' after SEPARATOR")
		}
		p.pos++
		sep, err := p.parseString()
		if err != nil {
			return nil, err
		}
		agg.Separator = sep
	}

	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return agg, nil
}

// parseArgList parses '(' expr (',' expr)* ')' or the empty '()'.
func (p *Parser) parseArgList() ([]Expression, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	p.skipWhitespace()
	if p.peek() == ')' {
		p.pos++
		return nil, nil
	}
	var args []Expression
	for {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		p.skipWhitespace()
		if p.peek() == ',' {
			p.pos++
			continue
		}
		break
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parseExpressionList() ([]Expression, error) {
	return p.parseArgList()
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
