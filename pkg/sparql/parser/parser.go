package parser

import (
	"strconv"
	"strings"

	"github.com/gtfierro/rdflib/pkg/rdf"
)

// Parser parses SPARQL query and update text into an AST. Parsing is
// pure: it touches no dataset and has no side effects beyond the
// returned error.
type Parser struct {
	input    string
	pos      int
	length   int
	prefixes map[string]string
	baseURI  string
	bnodeSeq int
}

// NewParser creates a parser over the given text.
func NewParser(input string) *Parser {
	return &Parser{
		input:    input,
		length:   len(input),
		prefixes: make(map[string]string),
	}
}

// ParseQuery parses a SPARQL query (SELECT/CONSTRUCT/ASK/DESCRIBE).
func ParseQuery(input string) (*Query, error) {
	return NewParser(input).ParseQuery()
}

// ParseUpdate parses a SPARQL update request.
func ParseUpdate(input string) (*Update, error) {
	return NewParser(input).ParseUpdate()
}

// ParseQuery parses the input as a query.
func (p *Parser) ParseQuery() (*Query, error) {
	if err := p.parsePrologue(); err != nil {
		return nil, err
	}

	query := &Query{}
	switch {
	case p.matchKeyword("SELECT"):
		query.Kind = QueryKindSelect
		sel, ds, err := p.parseSelectQuery(true)
		if err != nil {
			return nil, err
		}
		query.Select = sel
		query.Dataset = ds
	case p.matchKeyword("CONSTRUCT"):
		query.Kind = QueryKindConstruct
		con, ds, err := p.parseConstructQuery()
		if err != nil {
			return nil, err
		}
		query.Construct = con
		query.Dataset = ds
	case p.matchKeyword("ASK"):
		query.Kind = QueryKindAsk
		ask, ds, err := p.parseAskQuery()
		if err != nil {
			return nil, err
		}
		query.Ask = ask
		query.Dataset = ds
	case p.matchKeyword("DESCRIBE"):
		query.Kind = QueryKindDescribe
		desc, ds, err := p.parseDescribeQuery()
		if err != nil {
			return nil, err
		}
		query.Describe = desc
		query.Dataset = ds
	default:
		return nil, p.syntaxError("expected SELECT, CONSTRUCT, ASK or DESCRIBE")
	}

	p.skipWhitespace()
	if p.pos < p.length {
		return nil, p.syntaxError("unexpected input after end of query")
	}
	return query, nil
}

// parsePrologue consumes leading PREFIX and BASE declarations.
func (p *Parser) parsePrologue() error {
	for {
		if p.matchKeyword("PREFIX") {
			p.skipWhitespace()
			start := p.pos
			for p.pos < p.length && p.input[p.pos] != ':' && !isWhitespace(p.input[p.pos]) {
				p.pos++
			}
			prefix := p.input[start:p.pos]
			if p.peek() != ':' {
				return p.syntaxError("expected ':' in PREFIX declaration")
			}
			p.pos++
			iri, err := p.parseIRIRef()
			if err != nil {
				return err
			}
			p.prefixes[prefix] = iri
		} else if p.matchKeyword("BASE") {
			iri, err := p.parseIRIRef()
			if err != nil {
				return err
			}
			p.baseURI = iri
		} else {
			return nil
		}
	}
}

// parseDatasetClauses consumes FROM / FROM NAMED clauses.
func (p *Parser) parseDatasetClauses() ([]DatasetClause, error) {
	var clauses []DatasetClause
	for p.matchKeyword("FROM") {
		named := p.matchKeyword("NAMED")
		iri, err := p.parseIRIRef()
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, DatasetClause{Named: named, Graph: rdf.NewIRI(iri)})
	}
	return clauses, nil
}

func (p *Parser) parseSelectQuery(topLevel bool) (*SelectQuery, []DatasetClause, error) {
	query := &SelectQuery{}

	if p.matchKeyword("DISTINCT") {
		query.Distinct = true
	} else if p.matchKeyword("REDUCED") {
		query.Reduced = true
	}

	items, err := p.parseProjection()
	if err != nil {
		return nil, nil, err
	}
	query.Projection = items

	var dataset []DatasetClause
	if topLevel {
		if dataset, err = p.parseDatasetClauses(); err != nil {
			return nil, nil, err
		}
	}

	p.matchKeyword("WHERE") // optional

	query.Where, err = p.parseGroupGraphPattern()
	if err != nil {
		return nil, nil, err
	}

	if err := p.parseSolutionModifiers(&query.Modifiers); err != nil {
		return nil, nil, err
	}
	return query, dataset, nil
}

func (p *Parser) parseConstructQuery() (*ConstructQuery, []DatasetClause, error) {
	query := &ConstructQuery{}
	p.skipWhitespace()

	if p.peek() == '{' {
		// Explicit template.
		template, err := p.parseConstructTemplate()
		if err != nil {
			return nil, nil, err
		}
		query.Template = template

		dataset, err := p.parseDatasetClauses()
		if err != nil {
			return nil, nil, err
		}
		if !p.matchKeyword("WHERE") {
			return nil, nil, p.syntaxError("expected WHERE after CONSTRUCT template")
		}
		query.Where, err = p.parseGroupGraphPattern()
		if err != nil {
			return nil, nil, err
		}
		if err := p.parseSolutionModifiers(&query.Modifiers); err != nil {
			return nil, nil, err
		}
		return query, dataset, nil
	}

	// CONSTRUCT WHERE { triples } shorthand: the pattern doubles as the
	// template and must contain only triple patterns.
	dataset, err := p.parseDatasetClauses()
	if err != nil {
		return nil, nil, err
	}
	if !p.matchKeyword("WHERE") {
		return nil, nil, p.syntaxError("expected CONSTRUCT template or WHERE")
	}
	where, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, nil, err
	}
	for _, el := range where.Elements {
		tp, ok := el.(*TriplePattern)
		if !ok {
			return nil, nil, p.syntaxError("CONSTRUCT WHERE permits only triple patterns")
		}
		if tp.Predicate.IsPath() {
			return nil, nil, p.syntaxError("CONSTRUCT WHERE permits no property paths")
		}
		query.Template = append(query.Template, tp)
	}
	query.Where = where
	if err := p.parseSolutionModifiers(&query.Modifiers); err != nil {
		return nil, nil, err
	}
	return query, dataset, nil
}

func (p *Parser) parseConstructTemplate() ([]*TriplePattern, error) {
	p.skipWhitespace()
	if p.peek() != '{' {
		return nil, p.syntaxError("expected '{' to start CONSTRUCT template")
	}
	p.pos++

	var template []*TriplePattern
	for {
		p.skipWhitespace()
		if p.peek() == '}' {
			p.pos++
			return template, nil
		}
		triples, err := p.parseTriplesSameSubject(false)
		if err != nil {
			return nil, err
		}
		template = append(template, triples...)
		p.skipWhitespace()
		if p.peek() == '.' {
			p.pos++
		}
	}
}

func (p *Parser) parseAskQuery() (*AskQuery, []DatasetClause, error) {
	dataset, err := p.parseDatasetClauses()
	if err != nil {
		return nil, nil, err
	}
	p.matchKeyword("WHERE")
	where, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, nil, err
	}
	return &AskQuery{Where: where}, dataset, nil
}

func (p *Parser) parseDescribeQuery() (*DescribeQuery, []DatasetClause, error) {
	query := &DescribeQuery{}
	p.skipWhitespace()

	if p.peek() == '*' {
		p.pos++
	} else {
		for {
			p.skipWhitespace()
			switch {
			case p.peek() == '?' || p.peek() == '$':
				v, err := p.parseVariable()
				if err != nil {
					return nil, nil, err
				}
				query.Variables = append(query.Variables, v)
				continue
			case p.peek() == '<' || isPNameStart(p.peek()):
				if p.peekKeyword("WHERE") || p.peekKeyword("FROM") {
					break
				}
				iri, err := p.parseIRIOrPrefixedName()
				if err != nil {
					return nil, nil, err
				}
				query.Resources = append(query.Resources, iri)
				continue
			}
			break
		}
		if len(query.Variables) == 0 && len(query.Resources) == 0 {
			return nil, nil, p.syntaxError("expected '*', variables or IRIs after DESCRIBE")
		}
	}

	dataset, err := p.parseDatasetClauses()
	if err != nil {
		return nil, nil, err
	}
	if p.matchKeyword("WHERE") {
		query.Where, err = p.parseGroupGraphPattern()
		if err != nil {
			return nil, nil, err
		}
	}
	if err := p.parseSolutionModifiers(&query.Modifiers); err != nil {
		return nil, nil, err
	}
	return query, dataset, nil
}

// parseProjection parses the SELECT projection: '*', or variables and
// (expr AS ?var) items.
func (p *Parser) parseProjection() ([]SelectItem, error) {
	p.skipWhitespace()
	if p.peek() == '*' {
		p.pos++
		return nil, nil
	}

	var items []SelectItem
	for {
		p.skipWhitespace()
		ch := p.peek()
		if ch == '?' || ch == '$' {
			v, err := p.parseVariable()
			if err != nil {
				return nil, err
			}
			items = append(items, SelectItem{Variable: v})
			continue
		}
		if ch == '(' {
			p.pos++
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if !p.matchKeyword("AS") {
				return nil, p.syntaxError("expected AS in projection expression")
			}
			v, err := p.parseVariable()
			if err != nil {
				return nil, err
			}
			if err := p.expect(')'); err != nil {
				return nil, err
			}
			items = append(items, SelectItem{Variable: v, Expr: expr})
			continue
		}
		break
	}
	if len(items) == 0 {
		return nil, p.syntaxError("expected '*' or at least one projection variable")
	}
	return items, nil
}

// parseGroupGraphPattern parses a { ... } group, preserving the textual
// order of its elements.
func (p *Parser) parseGroupGraphPattern() (*GroupGraphPattern, error) {
	p.skipWhitespace()
	if p.peek() != '{' {
		return nil, p.syntaxError("expected '{' to start group graph pattern")
	}
	p.pos++

	group := &GroupGraphPattern{}
	for {
		p.skipWhitespace()
		if p.pos >= p.length {
			return nil, p.syntaxError("unterminated group graph pattern")
		}
		if p.peek() == '}' {
			p.pos++
			return group, nil
		}

		switch {
		case p.matchKeyword("OPTIONAL"):
			inner, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			group.Elements = append(group.Elements, &OptionalElement{Pattern: inner})

		case p.matchKeyword("MINUS"):
			inner, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			group.Elements = append(group.Elements, &MinusElement{Pattern: inner})

		case p.matchKeyword("GRAPH"):
			name, err := p.parseVarOrIRI()
			if err != nil {
				return nil, err
			}
			inner, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			group.Elements = append(group.Elements, &GraphElement{Name: name, Pattern: inner})

		case p.matchKeyword("SERVICE"):
			silent := p.matchKeyword("SILENT")
			name, err := p.parseVarOrIRI()
			if err != nil {
				return nil, err
			}
			inner, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			group.Elements = append(group.Elements, &ServiceElement{Silent: silent, Name: name, Pattern: inner})

		case p.matchKeyword("FILTER"):
			expr, err := p.parseConstraint()
			if err != nil {
				return nil, err
			}
			group.Elements = append(group.Elements, &FilterElement{Expr: expr})

		case p.matchKeyword("BIND"):
			if err := p.expect('('); err != nil {
				return nil, err
			}
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if !p.matchKeyword("AS") {
				return nil, p.syntaxError("expected AS in BIND")
			}
			v, err := p.parseVariable()
			if err != nil {
				return nil, err
			}
			if err := p.expect(')'); err != nil {
				return nil, err
			}
			group.Elements = append(group.Elements, &BindElement{Expr: expr, Variable: v})

		case p.matchKeyword("VALUES"):
			values, err := p.parseInlineData()
			if err != nil {
				return nil, err
			}
			group.Elements = append(group.Elements, values)

		case p.peek() == '{':
			el, err := p.parseGroupOrUnionOrSubSelect()
			if err != nil {
				return nil, err
			}
			group.Elements = append(group.Elements, el)

		default:
			triples, err := p.parseTriplesSameSubject(true)
			if err != nil {
				return nil, err
			}
			for _, t := range triples {
				group.Elements = append(group.Elements, t)
			}
		}

		p.skipWhitespace()
		if p.peek() == '.' {
			p.pos++
		}
	}
}

// parseGroupOrUnionOrSubSelect handles a '{' inside a group: a subquery,
// a nested group, or a UNION chain.
func (p *Parser) parseGroupOrUnionOrSubSelect() (PatternElement, error) {
	// Peek past the brace for SELECT.
	saved := p.pos
	p.pos++
	if p.matchKeyword("SELECT") {
		sub, _, err := p.parseSelectQuery(false)
		if err != nil {
			return nil, err
		}
		p.skipWhitespace()
		if p.peek() != '}' {
			return nil, p.syntaxError("expected '}' to close subquery")
		}
		p.pos++
		return &SubSelectElement{Query: sub}, nil
	}
	p.pos = saved

	first, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	if !p.peekKeyword("UNION") {
		return &GroupElement{Pattern: first}, nil
	}

	union := &UnionElement{Alternatives: []*GroupGraphPattern{first}}
	for p.matchKeyword("UNION") {
		alt, err := p.parseGroupGraphPattern()
		if err != nil {
			return nil, err
		}
		union.Alternatives = append(union.Alternatives, alt)
	}
	return union, nil
}

// parseInlineData parses the VALUES block in either the single-variable
// or the full row form.
func (p *Parser) parseInlineData() (*ValuesElement, error) {
	p.skipWhitespace()
	values := &ValuesElement{}

	if p.peek() == '?' || p.peek() == '$' {
		v, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		values.Variables = []*Variable{v}
		if err := p.expect('{'); err != nil {
			return nil, err
		}
		for {
			p.skipWhitespace()
			if p.peek() == '}' {
				p.pos++
				return values, nil
			}
			term, err := p.parseDataBlockValue()
			if err != nil {
				return nil, err
			}
			values.Rows = append(values.Rows, []rdf.Term{term})
		}
	}

	if err := p.expect('('); err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		if p.peek() == ')' {
			p.pos++
			break
		}
		v, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		values.Variables = append(values.Variables, v)
	}

	if err := p.expect('{'); err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		if p.peek() == '}' {
			p.pos++
			return values, nil
		}
		if err := p.expect('('); err != nil {
			return nil, err
		}
		var row []rdf.Term
		for {
			p.skipWhitespace()
			if p.peek() == ')' {
				p.pos++
				break
			}
			term, err := p.parseDataBlockValue()
			if err != nil {
				return nil, err
			}
			row = append(row, term)
		}
		if len(row) != len(values.Variables) {
			return nil, p.syntaxError("VALUES row has %d terms, expected %d", len(row), len(values.Variables))
		}
		values.Rows = append(values.Rows, row)
	}
}

// parseDataBlockValue parses one VALUES entry: a ground term or UNDEF
// (returned as nil).
func (p *Parser) parseDataBlockValue() (rdf.Term, error) {
	if p.matchKeyword("UNDEF") {
		return nil, nil
	}
	tov, err := p.parseTermOrVariable()
	if err != nil {
		return nil, err
	}
	if tov.Term == nil {
		return nil, p.syntaxError("variables are not allowed in VALUES data")
	}
	return tov.Term, nil
}

// parseTriplesSameSubject parses one subject and its predicate-object
// list, expanding the ';' and ',' shorthand. Property paths are allowed
// in the predicate position when allowPaths is set.
func (p *Parser) parseTriplesSameSubject(allowPaths bool) ([]*TriplePattern, error) {
	subject, err := p.parseTermOrVariable()
	if err != nil {
		return nil, p.wrap("failed to parse subject", err)
	}

	var triples []*TriplePattern
	for {
		verb, err := p.parseVerb(allowPaths)
		if err != nil {
			return nil, p.wrap("failed to parse predicate", err)
		}

		for {
			object, err := p.parseTermOrVariable()
			if err != nil {
				return nil, p.wrap("failed to parse object", err)
			}
			triples = append(triples, &TriplePattern{
				Subject:   *subject,
				Predicate: *verb,
				Object:    *object,
			})
			p.skipWhitespace()
			if p.peek() == ',' {
				p.pos++
				continue
			}
			break
		}

		p.skipWhitespace()
		if p.peek() == ';' {
			p.pos++
			p.skipWhitespace()
			// Trailing semicolon.
			if ch := p.peek(); ch == '.' || ch == '}' || ch == 0 {
				break
			}
			continue
		}
		break
	}
	return triples, nil
}

// parseVerb parses the predicate position: a variable, the keyword 'a',
// or a property path (a bare IRI is a trivial path).
func (p *Parser) parseVerb(allowPaths bool) (*TermOrVariable, error) {
	p.skipWhitespace()
	if ch := p.peek(); ch == '?' || ch == '$' {
		v, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		return &TermOrVariable{Variable: v}, nil
	}
	if !allowPaths {
		return p.parseTermOrVariable()
	}
	path, err := p.parsePath()
	if err != nil {
		return nil, err
	}
	if path.Kind == PathLink {
		return &TermOrVariable{Term: path.IRI}, nil
	}
	return &TermOrVariable{Path: path}, nil
}

// parseVarOrIRI parses a variable or an IRI (GRAPH/SERVICE name).
func (p *Parser) parseVarOrIRI() (TermOrVariable, error) {
	p.skipWhitespace()
	if ch := p.peek(); ch == '?' || ch == '$' {
		v, err := p.parseVariable()
		if err != nil {
			return TermOrVariable{}, err
		}
		return TermOrVariable{Variable: v}, nil
	}
	iri, err := p.parseIRIOrPrefixedName()
	if err != nil {
		return TermOrVariable{}, err
	}
	return TermOrVariable{Term: iri}, nil
}

// parseTermOrVariable parses a variable or a concrete RDF term.
func (p *Parser) parseTermOrVariable() (*TermOrVariable, error) {
	p.skipWhitespace()
	ch := p.peek()

	switch {
	case ch == '?' || ch == '$':
		v, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		return &TermOrVariable{Variable: v}, nil

	case ch == '<':
		iri, err := p.parseIRIRef()
		if err != nil {
			return nil, err
		}
		return &TermOrVariable{Term: rdf.NewIRI(iri)}, nil

	case ch == '"' || ch == '\'':
		lit, err := p.parseRDFLiteral()
		if err != nil {
			return nil, err
		}
		return &TermOrVariable{Term: lit}, nil

	case ch == '_':
		bnode, err := p.parseBlankNode()
		if err != nil {
			return nil, err
		}
		return &TermOrVariable{Term: bnode}, nil

	case ch == '[':
		// Anonymous blank node; only the empty form is supported.
		p.pos++
		p.skipWhitespace()
		if p.peek() != ']' {
			return nil, p.syntaxError("expected ']' (blank node property lists are not supported)")
		}
		p.pos++
		p.bnodeSeq++
		return &TermOrVariable{Term: rdf.NewBlankNode("anon" + strconv.Itoa(p.bnodeSeq))}, nil

	case ch >= '0' && ch <= '9' || ch == '-' || ch == '+':
		lit, err := p.parseNumericLiteral()
		if err != nil {
			return nil, err
		}
		return &TermOrVariable{Term: lit}, nil

	case p.peekKeyword("true"):
		p.matchKeyword("true")
		return &TermOrVariable{Term: rdf.NewBooleanLiteral(true)}, nil

	case p.peekKeyword("false"):
		p.matchKeyword("false")
		return &TermOrVariable{Term: rdf.NewBooleanLiteral(false)}, nil

	case ch == 'a' && p.isKeywordA():
		p.pos++
		return &TermOrVariable{Term: rdf.RDFType}, nil

	case ch == ':' || isPNameStart(ch):
		iri, err := p.parseIRIOrPrefixedName()
		if err != nil {
			return nil, err
		}
		return &TermOrVariable{Term: iri}, nil
	}

	return nil, p.syntaxError("expected a term or variable, found %q", string(rune(ch)))
}

// isKeywordA reports whether the next char is the lone rdf:type keyword
// rather than the start of a prefixed name.
func (p *Parser) isKeywordA() bool {
	if p.pos+1 >= p.length {
		return true
	}
	next := p.input[p.pos+1]
	return !isPNameChar(next) && next != ':'
}

func (p *Parser) parseVariable() (*Variable, error) {
	p.skipWhitespace()
	if p.peek() != '?' && p.peek() != '$' {
		return nil, p.syntaxError("expected variable starting with ? or $")
	}
	p.pos++
	name := p.readWhile(func(ch byte) bool {
		return isPNameChar(ch)
	})
	if name == "" {
		return nil, p.syntaxError("invalid variable name")
	}
	return &Variable{Name: name}, nil
}

// parseIRIRef parses <...>, resolving against BASE when relative.
func (p *Parser) parseIRIRef() (string, error) {
	p.skipWhitespace()
	if p.peek() != '<' {
		return "", p.syntaxError("expected '<' to start IRI")
	}
	p.pos++
	iri := p.readWhile(func(ch byte) bool { return ch != '>' })
	if p.peek() != '>' {
		return "", p.syntaxError("expected '>' to end IRI")
	}
	p.pos++
	return p.resolveIRI(iri), nil
}

// parseIRIOrPrefixedName parses either an <IRI> or prefix:local.
func (p *Parser) parseIRIOrPrefixedName() (*rdf.IRI, error) {
	p.skipWhitespace()
	if p.peek() == '<' {
		iri, err := p.parseIRIRef()
		if err != nil {
			return nil, err
		}
		return rdf.NewIRI(iri), nil
	}
	prefix := p.readWhile(isPNameChar)
	if p.peek() != ':' {
		return nil, p.syntaxError("expected ':' in prefixed name")
	}
	p.pos++
	local := p.readWhile(func(ch byte) bool { return isPNameChar(ch) || ch == '.' })
	for strings.HasSuffix(local, ".") {
		// A trailing dot belongs to the surrounding statement.
		local = local[:len(local)-1]
		p.pos--
	}
	base, ok := p.prefixes[prefix]
	if !ok {
		return nil, p.syntaxError("undefined prefix %q", prefix)
	}
	return rdf.NewIRI(base + local), nil
}

func (p *Parser) parseBlankNode() (*rdf.BlankNode, error) {
	if p.peek() != '_' {
		return nil, p.syntaxError("expected '_' to start blank node")
	}
	p.pos++
	if p.peek() != ':' {
		return nil, p.syntaxError("expected ':' after '_' in blank node")
	}
	p.pos++
	id := p.readWhile(isPNameChar)
	if id == "" {
		return nil, p.syntaxError("empty blank node label")
	}
	return rdf.NewBlankNode(id), nil
}

// parseRDFLiteral parses a quoted string with optional @lang or
// ^^datatype suffix.
func (p *Parser) parseRDFLiteral() (*rdf.Literal, error) {
	lexical, err := p.parseString()
	if err != nil {
		return nil, err
	}

	if p.peek() == '@' {
		p.pos++
		tag := p.readWhile(func(ch byte) bool {
			return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9' || ch == '-'
		})
		if tag == "" {
			return nil, p.syntaxError("empty language tag")
		}
		return rdf.NewLangLiteral(lexical, tag), nil
	}

	if p.peek() == '^' && p.peekAt(1) == '^' {
		p.pos += 2
		dt, err := p.parseIRIOrPrefixedName()
		if err != nil {
			return nil, err
		}
		return rdf.NewTypedLiteral(lexical, dt), nil
	}

	return rdf.NewLiteral(lexical), nil
}

// parseString parses single-, double-, and triple-quoted strings with
// the usual escapes.
func (p *Parser) parseString() (string, error) {
	quote := p.peek()
	if quote != '"' && quote != '\'' {
		return "", p.syntaxError("expected quote to start string literal")
	}

	long := p.peekAt(1) == quote && p.peekAt(2) == quote
	if long {
		p.pos += 3
	} else {
		p.pos++
	}

	var sb strings.Builder
	for p.pos < p.length {
		ch := p.input[p.pos]
		if ch == '\\' {
			p.pos++
			if p.pos >= p.length {
				break
			}
			esc := p.input[p.pos]
			p.pos++
			switch esc {
			case 't':
				sb.WriteByte('\t')
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 'b':
				sb.WriteByte('\b')
			case 'f':
				sb.WriteByte('\f')
			case '"', '\'', '\\':
				sb.WriteByte(esc)
			default:
				return "", p.syntaxError("unsupported escape '\\%c'", esc)
			}
			continue
		}
		if ch == quote {
			if long {
				if p.peekAt(1) == quote && p.peekAt(2) == quote {
					p.pos += 3
					return sb.String(), nil
				}
				sb.WriteByte(ch)
				p.pos++
				continue
			}
			p.pos++
			return sb.String(), nil
		}
		if !long && (ch == '\n' || ch == '\r') {
			return "", p.syntaxError("newline in string literal")
		}
		sb.WriteByte(ch)
		p.pos++
	}
	return "", p.syntaxError("unterminated string literal")
}

// parseNumericLiteral classifies the token as integer, decimal or double
// per the lexical form.
func (p *Parser) parseNumericLiteral() (*rdf.Literal, error) {
	numStr := p.readWhile(func(ch byte) bool {
		return ch >= '0' && ch <= '9' || ch == '.' || ch == '-' || ch == '+' || ch == 'e' || ch == 'E'
	})
	numStr = strings.TrimSuffix(numStr, ".")
	if numStr == "" || numStr == "-" || numStr == "+" {
		return nil, p.syntaxError("invalid numeric literal")
	}
	switch {
	case strings.ContainsAny(numStr, "eE"):
		return rdf.NewTypedLiteral(numStr, rdf.XSDDouble), nil
	case strings.Contains(numStr, "."):
		return rdf.NewTypedLiteral(numStr, rdf.XSDDecimal), nil
	}
	return rdf.NewTypedLiteral(numStr, rdf.XSDInteger), nil
}

// parseSolutionModifiers parses GROUP BY, HAVING, ORDER BY, LIMIT and
// OFFSET in source order; the algebra fixes the application order.
func (p *Parser) parseSolutionModifiers(m *Modifiers) error {
	if p.matchKeyword("GROUP") {
		if !p.matchKeyword("BY") {
			return p.syntaxError("expected BY after GROUP")
		}
		conds, err := p.parseGroupConditions()
		if err != nil {
			return err
		}
		m.GroupBy = conds
	}

	if p.matchKeyword("HAVING") {
		for {
			p.skipWhitespace()
			if p.peek() != '(' && !p.looksLikeFunctionCall() {
				break
			}
			expr, err := p.parseConstraint()
			if err != nil {
				return err
			}
			m.Having = append(m.Having, expr)
		}
		if len(m.Having) == 0 {
			return p.syntaxError("expected at least one HAVING condition")
		}
	}

	if p.matchKeyword("ORDER") {
		if !p.matchKeyword("BY") {
			return p.syntaxError("expected BY after ORDER")
		}
		conds, err := p.parseOrderConditions()
		if err != nil {
			return err
		}
		m.OrderBy = conds
	}

	for {
		if p.matchKeyword("LIMIT") {
			n, err := p.parseNonNegativeInt()
			if err != nil {
				return err
			}
			m.Limit = &n
			continue
		}
		if p.matchKeyword("OFFSET") {
			n, err := p.parseNonNegativeInt()
			if err != nil {
				return err
			}
			m.Offset = &n
			continue
		}
		return nil
	}
}

func (p *Parser) parseGroupConditions() ([]*GroupCondition, error) {
	var conds []*GroupCondition
	for {
		p.skipWhitespace()
		ch := p.peek()
		switch {
		case ch == '?' || ch == '$':
			v, err := p.parseVariable()
			if err != nil {
				return nil, err
			}
			conds = append(conds, &GroupCondition{Variable: v})
		case ch == '(':
			p.pos++
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			cond := &GroupCondition{Expr: expr}
			if p.matchKeyword("AS") {
				v, err := p.parseVariable()
				if err != nil {
					return nil, err
				}
				cond.As = v
			}
			if err := p.expect(')'); err != nil {
				return nil, err
			}
			conds = append(conds, cond)
		case isFunctionStart(ch) && p.looksLikeFunctionCall() && !p.peekKeyword("HAVING"):
			expr, err := p.parsePrimaryExpression()
			if err != nil {
				return nil, err
			}
			conds = append(conds, &GroupCondition{Expr: expr})
		default:
			if len(conds) == 0 {
				return nil, p.syntaxError("expected at least one GROUP BY condition")
			}
			return conds, nil
		}
	}
}

func (p *Parser) parseOrderConditions() ([]*OrderCondition, error) {
	var conds []*OrderCondition
	for {
		p.skipWhitespace()
		asc := true
		explicit := false
		if p.matchKeyword("DESC") {
			asc = false
			explicit = true
		} else if p.matchKeyword("ASC") {
			explicit = true
		}

		p.skipWhitespace()
		ch := p.peek()
		if explicit {
			if err := p.expect('('); err != nil {
				return nil, err
			}
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if err := p.expect(')'); err != nil {
				return nil, err
			}
			conds = append(conds, &OrderCondition{Expr: expr, Ascending: asc})
			continue
		}
		if ch == '?' || ch == '$' {
			v, err := p.parseVariable()
			if err != nil {
				return nil, err
			}
			conds = append(conds, &OrderCondition{Expr: &VariableExpression{Variable: v}, Ascending: true})
			continue
		}
		if ch == '(' {
			p.pos++
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if err := p.expect(')'); err != nil {
				return nil, err
			}
			conds = append(conds, &OrderCondition{Expr: expr, Ascending: true})
			continue
		}
		if isFunctionStart(ch) && !p.peekKeyword("LIMIT") && !p.peekKeyword("OFFSET") && p.looksLikeFunctionCall() {
			expr, err := p.parsePrimaryExpression()
			if err != nil {
				return nil, err
			}
			conds = append(conds, &OrderCondition{Expr: expr, Ascending: true})
			continue
		}
		break
	}
	if len(conds) == 0 {
		return nil, p.syntaxError("expected at least one ORDER BY condition")
	}
	return conds, nil
}

func (p *Parser) parseNonNegativeInt() (int, error) {
	p.skipWhitespace()
	numStr := p.readWhile(func(ch byte) bool { return ch >= '0' && ch <= '9' })
	if numStr == "" {
		return 0, p.syntaxError("expected a non-negative integer")
	}
	n := 0
	for i := 0; i < len(numStr); i++ {
		n = n*10 + int(numStr[i]-'0')
	}
	return n, nil
}

// ===== low-level helpers =====

func (p *Parser) peek() byte {
	if p.pos >= p.length {
		return 0
	}
	return p.input[p.pos]
}

func (p *Parser) peekAt(offset int) byte {
	if p.pos+offset >= p.length {
		return 0
	}
	return p.input[p.pos+offset]
}

func (p *Parser) expect(ch byte) error {
	p.skipWhitespace()
	if p.peek() != ch {
		return p.syntaxError("expected '%c'", ch)
	}
	p.pos++
	return nil
}

func (p *Parser) skipWhitespace() {
	for p.pos < p.length {
		ch := p.input[p.pos]
		if isWhitespace(ch) {
			p.pos++
			continue
		}
		if ch == '#' {
			for p.pos < p.length && p.input[p.pos] != '\n' {
				p.pos++
			}
			continue
		}
		break
	}
}

func (p *Parser) readWhile(pred func(byte) bool) string {
	start := p.pos
	for p.pos < p.length && pred(p.input[p.pos]) {
		p.pos++
	}
	return p.input[start:p.pos]
}

// matchKeyword consumes the keyword (case-insensitive, word-bounded) if
// present.
func (p *Parser) matchKeyword(keyword string) bool {
	p.skipWhitespace()
	if !p.keywordAt(keyword) {
		return false
	}
	p.pos += len(keyword)
	return true
}

// peekKeyword reports without consuming.
func (p *Parser) peekKeyword(keyword string) bool {
	p.skipWhitespace()
	return p.keywordAt(keyword)
}

func (p *Parser) keywordAt(keyword string) bool {
	end := p.pos + len(keyword)
	if end > p.length {
		return false
	}
	if !strings.EqualFold(p.input[p.pos:end], keyword) {
		return false
	}
	if end < p.length {
		next := p.input[end]
		if isPNameChar(next) || next == ':' {
			return false
		}
	}
	return true
}

// looksLikeFunctionCall reports whether an identifier followed by '(' is
// ahead, without consuming input.
func (p *Parser) looksLikeFunctionCall() bool {
	i := p.pos
	for i < p.length && (isPNameChar(p.input[i]) || p.input[i] == ':') {
		i++
	}
	if i == p.pos {
		return false
	}
	for i < p.length && isWhitespace(p.input[i]) {
		i++
	}
	return i < p.length && p.input[i] == '('
}

func (p *Parser) match(s string) bool {
	if p.pos+len(s) > p.length {
		return false
	}
	if p.input[p.pos:p.pos+len(s)] != s {
		return false
	}
	p.pos += len(s)
	return true
}

func (p *Parser) wrap(context string, err error) error {
	if se, ok := err.(*SyntaxError); ok {
		se.Expected = context + ": " + se.Expected
		return se
	}
	return err
}

func (p *Parser) resolveIRI(iri string) string {
	if p.baseURI == "" || isAbsoluteIRI(iri) {
		return iri
	}
	return p.baseURI + iri
}

func isAbsoluteIRI(iri string) bool {
	colon := strings.IndexByte(iri, ':')
	if colon <= 0 {
		return false
	}
	for i := 0; i < colon; i++ {
		c := iri[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' ||
			(c >= '0' && c <= '9' && i > 0) || c == '+' || c == '-' || c == '.') {
			return false
		}
	}
	return true
}

func isWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isPNameStart(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z'
}

func isPNameChar(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' ||
		ch >= '0' && ch <= '9' || ch == '_' || ch == '-'
}

func isFunctionStart(ch byte) bool {
	return isPNameStart(ch)
}
