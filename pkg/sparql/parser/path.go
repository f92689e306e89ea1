package parser

import "github.com/gtfierro/rdflib/pkg/rdf"

// parsePath parses a property path. Precedence, loosest first:
// alternative '|', sequence '/', inverse '^', then a primary with an
// optional *, + or ? modifier.
func (p *Parser) parsePath() (*Path, error) {
	first, err := p.parsePathSequence()
	if err != nil {
		return nil, err
	}
	p.skipWhitespace()
	if p.peek() != '|' {
		return first, nil
	}

	alt := &Path{Kind: PathAlternative, Children: []*Path{first}}
	for {
		p.skipWhitespace()
		if p.peek() != '|' {
			return alt, nil
		}
		p.pos++
		next, err := p.parsePathSequence()
		if err != nil {
			return nil, err
		}
		alt.Children = append(alt.Children, next)
	}
}

func (p *Parser) parsePathSequence() (*Path, error) {
	first, err := p.parsePathEltOrInverse()
	if err != nil {
		return nil, err
	}
	p.skipWhitespace()
	if p.peek() != '/' {
		return first, nil
	}

	seq := &Path{Kind: PathSequence, Children: []*Path{first}}
	for {
		p.skipWhitespace()
		if p.peek() != '/' {
			return seq, nil
		}
		p.pos++
		next, err := p.parsePathEltOrInverse()
		if err != nil {
			return nil, err
		}
		seq.Children = append(seq.Children, next)
	}
}

func (p *Parser) parsePathEltOrInverse() (*Path, error) {
	p.skipWhitespace()
	if p.peek() == '^' {
		p.pos++
		elt, err := p.parsePathElt()
		if err != nil {
			return nil, err
		}
		return &Path{Kind: PathInverse, Children: []*Path{elt}}, nil
	}
	return p.parsePathElt()
}

func (p *Parser) parsePathElt() (*Path, error) {
	primary, err := p.parsePathPrimary()
	if err != nil {
		return nil, err
	}

	// A modifier binds only when it directly follows the primary;
	// otherwise '?' would swallow the next variable.
	switch p.peek() {
	case '*':
		p.pos++
		return &Path{Kind: PathZeroOrMore, Children: []*Path{primary}}, nil
	case '+':
		p.pos++
		return &Path{Kind: PathOneOrMore, Children: []*Path{primary}}, nil
	case '?':
		if isPNameChar(p.peekAt(1)) {
			return primary, nil
		}
		p.pos++
		return &Path{Kind: PathZeroOrOne, Children: []*Path{primary}}, nil
	}
	return primary, nil
}

func (p *Parser) parsePathPrimary() (*Path, error) {
	p.skipWhitespace()
	switch {
	case p.peek() == '(':
		p.pos++
		inner, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return inner, nil

	case p.peek() == '!':
		p.pos++
		return p.parseNegatedPropertySet()

	case p.peek() == 'a' && p.isKeywordA():
		p.pos++
		return &Path{Kind: PathLink, IRI: rdf.RDFType}, nil
	}

	iri, err := p.parseIRIOrPrefixedName()
	if err != nil {
		return nil, err
	}
	return &Path{Kind: PathLink, IRI: iri}, nil
}

// parseNegatedPropertySet parses the body of !iri or !(iri | ^iri | ...).
func (p *Parser) parseNegatedPropertySet() (*Path, error) {
	neg := &Path{Kind: PathNegated}
	p.skipWhitespace()

	if p.peek() != '(' {
		if err := p.parseNegatedMember(neg); err != nil {
			return nil, err
		}
		return neg, nil
	}

	p.pos++
	for {
		if err := p.parseNegatedMember(neg); err != nil {
			return nil, err
		}
		p.skipWhitespace()
		if p.peek() == '|' {
			p.pos++
			continue
		}
		break
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return neg, nil
}

func (p *Parser) parseNegatedMember(neg *Path) error {
	p.skipWhitespace()
	inverse := false
	if p.peek() == '^' {
		p.pos++
		inverse = true
	}

	var iri *rdf.IRI
	if p.peek() == 'a' && p.isKeywordA() {
		p.pos++
		iri = rdf.RDFType
	} else {
		parsed, err := p.parseIRIOrPrefixedName()
		if err != nil {
			return err
		}
		iri = parsed
	}

	if inverse {
		neg.Inverse = append(neg.Inverse, iri)
	} else {
		neg.Forward = append(neg.Forward, iri)
	}
	return nil
}
