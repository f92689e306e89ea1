package rdf

import "strings"

// TriGParser parses TriG documents: the Turtle grammar extended with
// named graph blocks. Statements outside any block go to the default
// graph.
type TriGParser struct {
	p     *TurtleParser
	quads []*Quad
}

// NewTriGParser creates a parser for the given TriG document.
func NewTriGParser(input string) *TriGParser {
	return &TriGParser{p: NewTurtleParser(input)}
}

// Parse parses the document and returns all quads in order of
// appearance.
func (t *TriGParser) Parse() ([]*Quad, error) {
	p := t.p
	for {
		p.skipWhitespace()
		if p.eof() {
			break
		}
		var err error
		switch {
		case strings.HasPrefix(p.input[p.pos:], "@prefix"):
			p.pos += len("@prefix")
			err = p.parsePrefixDirective(true)
		case strings.HasPrefix(p.input[p.pos:], "@base"):
			p.pos += len("@base")
			err = p.parseBaseDirective(true)
		case p.hasKeyword("PREFIX"):
			p.pos += len("PREFIX")
			err = p.parsePrefixDirective(false)
		case p.hasKeyword("BASE"):
			p.pos += len("BASE")
			err = p.parseBaseDirective(false)
		case p.hasKeyword("GRAPH"):
			p.pos += len("GRAPH")
			p.skipWhitespace()
			var graph Term
			graph, err = p.parseSubject()
			if err == nil {
				p.skipWhitespace()
				err = t.parseGraphBlock(graph)
			}
		case p.peek() == '{':
			err = t.parseGraphBlock(NewDefaultGraph())
		default:
			// Either "label { ... }" or a plain default-graph statement.
			if graph, ok := t.tryGraphLabel(); ok {
				err = t.parseGraphBlock(graph)
			} else {
				mark := len(p.triples)
				if err = t.parseBlockTriples(false); err == nil {
					t.capture(mark, NewDefaultGraph())
				}
			}
		}
		if err != nil {
			return nil, err
		}
	}
	return t.quads, nil
}

// tryGraphLabel attempts to read a graph label followed by '{',
// rewinding on failure.
func (t *TriGParser) tryGraphLabel() (Term, bool) {
	p := t.p
	pos, line := p.pos, p.line
	term, err := p.parseSubject()
	if err == nil {
		p.skipWhitespace()
		if p.peek() == '{' {
			return term, true
		}
	}
	p.pos, p.line = pos, line
	return nil, false
}

func (t *TriGParser) parseGraphBlock(graph Term) error {
	p := t.p
	if err := p.expect('{'); err != nil {
		return err
	}
	for {
		p.skipWhitespace()
		if p.eof() {
			return p.errorf("unterminated graph block")
		}
		if p.peek() == '}' {
			p.pos++
			return nil
		}
		mark := len(p.triples)
		if err := t.parseBlockTriples(true); err != nil {
			return err
		}
		t.capture(mark, graph)
	}
}

// parseBlockTriples parses one triples statement. Inside a graph block
// the trailing dot of the final statement is optional.
func (t *TriGParser) parseBlockTriples(inBlock bool) error {
	p := t.p
	var subject Term
	var err error

	fromPropertyList := false
	switch {
	case p.peek() == '[':
		subject, err = p.parseBlankNodePropertyList()
		fromPropertyList = true
	case p.peek() == '(':
		subject, err = p.parseCollection()
	default:
		subject, err = p.parseSubject()
	}
	if err != nil {
		return err
	}

	p.skipWhitespace()
	standalone := fromPropertyList && (p.peek() == '.' || (inBlock && p.peek() == '}'))
	if !standalone {
		if err := p.parsePredicateObjectList(subject); err != nil {
			return err
		}
		p.skipWhitespace()
	}
	if p.peek() == '.' {
		p.pos++
		return nil
	}
	if inBlock && p.peek() == '}' {
		return nil
	}
	return p.errorf("expected '.' at %q", p.remainder(20))
}

// capture moves triples produced since mark into the quad list under
// the given graph.
func (t *TriGParser) capture(mark int, graph Term) {
	for _, tr := range t.p.triples[mark:] {
		t.quads = append(t.quads, NewQuad(tr.Subject, tr.Predicate, tr.Object, graph))
	}
	t.p.triples = t.p.triples[:mark]
}
