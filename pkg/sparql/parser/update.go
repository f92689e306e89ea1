package parser

import "github.com/gtfierro/rdflib/pkg/rdf"

// ParseUpdate parses the input as an update request: one or more
// operations separated by ';', each with its own prologue.
func (p *Parser) ParseUpdate() (*Update, error) {
	update := &Update{}
	for {
		if err := p.parsePrologue(); err != nil {
			return nil, err
		}
		p.skipWhitespace()
		if p.pos >= p.length {
			return update, nil
		}

		op, err := p.parseUpdateOperation()
		if err != nil {
			return nil, err
		}
		update.Operations = append(update.Operations, op)

		p.skipWhitespace()
		if p.peek() == ';' {
			p.pos++
			continue
		}
		if p.pos < p.length {
			return nil, p.syntaxError("expected ';' between update operations")
		}
		return update, nil
	}
}

func (p *Parser) parseUpdateOperation() (UpdateOperation, error) {
	switch {
	case p.matchKeyword("INSERT"):
		if p.matchKeyword("DATA") {
			quads, err := p.parseQuadBlock(false)
			if err != nil {
				return nil, err
			}
			return &InsertData{Quads: quads}, nil
		}
		return p.parseModify(nil, false)

	case p.matchKeyword("DELETE"):
		if p.matchKeyword("DATA") {
			quads, err := p.parseQuadBlock(false)
			if err != nil {
				return nil, err
			}
			for _, q := range quads {
				if containsBlankNode(q.Triple) {
					return nil, p.syntaxError("blank nodes are not allowed in DELETE DATA")
				}
			}
			return &DeleteData{Quads: quads}, nil
		}
		if p.matchKeyword("WHERE") {
			// Shorthand: the pattern is both the template and the WHERE
			// clause.
			quads, err := p.parseQuadBlock(true)
			if err != nil {
				return nil, err
			}
			where := &GroupGraphPattern{}
			for _, q := range quads {
				if q.Graph != nil {
					inner := &GroupGraphPattern{Elements: []PatternElement{q.Triple}}
					where.Elements = append(where.Elements, &GraphElement{Name: *q.Graph, Pattern: inner})
				} else {
					where.Elements = append(where.Elements, q.Triple)
				}
			}
			return &Modify{Delete: quads, Where: where}, nil
		}
		return p.parseModify(nil, true)

	case p.matchKeyword("WITH"):
		iri, err := p.parseIRIOrPrefixedName()
		if err != nil {
			return nil, err
		}
		switch {
		case p.matchKeyword("DELETE"):
			return p.parseModify(iri, true)
		case p.matchKeyword("INSERT"):
			return p.parseModify(iri, false)
		}
		return nil, p.syntaxError("expected DELETE or INSERT after WITH")

	case p.matchKeyword("LOAD"):
		load := &Load{Silent: p.matchKeyword("SILENT")}
		src, err := p.parseIRIOrPrefixedName()
		if err != nil {
			return nil, err
		}
		load.Source = src
		if p.matchKeyword("INTO") {
			if !p.matchKeyword("GRAPH") {
				return nil, p.syntaxError("expected GRAPH after INTO")
			}
			into, err := p.parseIRIOrPrefixedName()
			if err != nil {
				return nil, err
			}
			load.Into = into
		}
		return load, nil

	case p.matchKeyword("CLEAR"):
		silent := p.matchKeyword("SILENT")
		target, err := p.parseGraphRef()
		if err != nil {
			return nil, err
		}
		return &Clear{Silent: silent, Target: target}, nil

	case p.matchKeyword("CREATE"):
		silent := p.matchKeyword("SILENT")
		if !p.matchKeyword("GRAPH") {
			return nil, p.syntaxError("expected GRAPH after CREATE")
		}
		iri, err := p.parseIRIOrPrefixedName()
		if err != nil {
			return nil, err
		}
		return &Create{Silent: silent, Graph: iri}, nil

	case p.matchKeyword("DROP"):
		silent := p.matchKeyword("SILENT")
		target, err := p.parseGraphRef()
		if err != nil {
			return nil, err
		}
		return &Drop{Silent: silent, Target: target}, nil

	case p.matchKeyword("COPY"):
		silent := p.matchKeyword("SILENT")
		from, to, err := p.parseGraphPair()
		if err != nil {
			return nil, err
		}
		return &Copy{Silent: silent, From: from, To: to}, nil

	case p.matchKeyword("MOVE"):
		silent := p.matchKeyword("SILENT")
		from, to, err := p.parseGraphPair()
		if err != nil {
			return nil, err
		}
		return &Move{Silent: silent, From: from, To: to}, nil

	case p.matchKeyword("ADD"):
		silent := p.matchKeyword("SILENT")
		from, to, err := p.parseGraphPair()
		if err != nil {
			return nil, err
		}
		return &AddOp{Silent: silent, From: from, To: to}, nil
	}

	return nil, p.syntaxError("expected an update operation")
}

// parseModify parses the remainder of a DELETE/INSERT ... WHERE
// operation. The leading DELETE or INSERT keyword has been consumed;
// startDelete says which.
func (p *Parser) parseModify(with *rdf.IRI, startDelete bool) (*Modify, error) {
	modify := &Modify{With: with}

	if startDelete {
		quads, err := p.parseQuadBlock(true)
		if err != nil {
			return nil, err
		}
		modify.Delete = quads
		if p.matchKeyword("INSERT") {
			quads, err := p.parseQuadBlock(true)
			if err != nil {
				return nil, err
			}
			modify.Insert = quads
		}
	} else {
		quads, err := p.parseQuadBlock(true)
		if err != nil {
			return nil, err
		}
		modify.Insert = quads
	}

	for _, q := range modify.Delete {
		if containsBlankNode(q.Triple) {
			return nil, p.syntaxError("blank nodes are not allowed in a DELETE template")
		}
	}

	for p.matchKeyword("USING") {
		named := p.matchKeyword("NAMED")
		iri, err := p.parseIRIOrPrefixedName()
		if err != nil {
			return nil, err
		}
		modify.Using = append(modify.Using, DatasetClause{Named: named, Graph: iri})
	}

	if !p.matchKeyword("WHERE") {
		return nil, p.syntaxError("expected WHERE in DELETE/INSERT operation")
	}
	where, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	modify.Where = where
	return modify, nil
}

// parseQuadBlock parses { triples (GRAPH g { triples })* ... } into a
// flat quad list. Variables are rejected when allowVars is false.
func (p *Parser) parseQuadBlock(allowVars bool) ([]*QuadPattern, error) {
	p.skipWhitespace()
	if p.peek() != '{' {
		return nil, p.syntaxError("expected '{' to start quad block")
	}
	p.pos++

	var quads []*QuadPattern
	for {
		p.skipWhitespace()
		if p.pos >= p.length {
			return nil, p.syntaxError("unterminated quad block")
		}
		if p.peek() == '}' {
			p.pos++
			return quads, nil
		}

		if p.matchKeyword("GRAPH") {
			name, err := p.parseVarOrIRI()
			if err != nil {
				return nil, err
			}
			if !allowVars && name.IsVariable() {
				return nil, p.syntaxError("variables are not allowed in ground quad data")
			}
			p.skipWhitespace()
			if p.peek() != '{' {
				return nil, p.syntaxError("expected '{' after GRAPH name")
			}
			p.pos++
			for {
				p.skipWhitespace()
				if p.peek() == '}' {
					p.pos++
					break
				}
				triples, err := p.parseTriplesSameSubject(false)
				if err != nil {
					return nil, err
				}
				for _, t := range triples {
					if !allowVars && containsVariable(t) {
						return nil, p.syntaxError("variables are not allowed in ground quad data")
					}
					g := name
					quads = append(quads, &QuadPattern{Triple: t, Graph: &g})
				}
				p.skipWhitespace()
				if p.peek() == '.' {
					p.pos++
				}
			}
			continue
		}

		triples, err := p.parseTriplesSameSubject(false)
		if err != nil {
			return nil, err
		}
		for _, t := range triples {
			if !allowVars && containsVariable(t) {
				return nil, p.syntaxError("variables are not allowed in ground quad data")
			}
			quads = append(quads, &QuadPattern{Triple: t})
		}
		p.skipWhitespace()
		if p.peek() == '.' {
			p.pos++
		}
	}
}

// parseGraphRef parses DEFAULT | NAMED | ALL | GRAPH iri.
func (p *Parser) parseGraphRef() (GraphRef, error) {
	switch {
	case p.matchKeyword("DEFAULT"):
		return GraphRef{Kind: GraphRefDefault}, nil
	case p.matchKeyword("NAMED"):
		return GraphRef{Kind: GraphRefNamed}, nil
	case p.matchKeyword("ALL"):
		return GraphRef{Kind: GraphRefAll}, nil
	case p.matchKeyword("GRAPH"):
		iri, err := p.parseIRIOrPrefixedName()
		if err != nil {
			return GraphRef{}, err
		}
		return GraphRef{Kind: GraphRefGraph, Graph: iri}, nil
	}
	return GraphRef{}, p.syntaxError("expected DEFAULT, NAMED, ALL or GRAPH")
}

// parseGraphPair parses the COPY/MOVE/ADD source and destination:
// (DEFAULT | [GRAPH] iri) TO (DEFAULT | [GRAPH] iri).
func (p *Parser) parseGraphPair() (GraphRef, GraphRef, error) {
	from, err := p.parseGraphOrDefault()
	if err != nil {
		return GraphRef{}, GraphRef{}, err
	}
	if !p.matchKeyword("TO") {
		return GraphRef{}, GraphRef{}, p.syntaxError("expected TO")
	}
	to, err := p.parseGraphOrDefault()
	if err != nil {
		return GraphRef{}, GraphRef{}, err
	}
	return from, to, nil
}

func (p *Parser) parseGraphOrDefault() (GraphRef, error) {
	if p.matchKeyword("DEFAULT") {
		return GraphRef{Kind: GraphRefDefault}, nil
	}
	p.matchKeyword("GRAPH") // optional
	iri, err := p.parseIRIOrPrefixedName()
	if err != nil {
		return GraphRef{}, err
	}
	return GraphRef{Kind: GraphRefGraph, Graph: iri}, nil
}

func containsVariable(t *TriplePattern) bool {
	return t.Subject.IsVariable() || t.Predicate.IsVariable() || t.Object.IsVariable()
}

func containsBlankNode(t *TriplePattern) bool {
	for _, tov := range []TermOrVariable{t.Subject, t.Predicate, t.Object} {
		if tov.Term != nil {
			if _, ok := tov.Term.(*rdf.BlankNode); ok {
				return true
			}
		}
	}
	return false
}
