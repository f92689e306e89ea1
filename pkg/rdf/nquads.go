package rdf

import (
	"fmt"
	"strings"
)

// NQuadsParser parses N-Quads documents: one triple per line with an
// optional fourth graph label term.
type NQuadsParser struct {
	input  string
	pos    int
	line   int
	bnodes map[string]*BlankNode
}

// NewNQuadsParser creates a parser for the given N-Quads document.
func NewNQuadsParser(input string) *NQuadsParser {
	return &NQuadsParser{
		input:  input,
		line:   1,
		bnodes: make(map[string]*BlankNode),
	}
}

// Parse parses the document and returns all quads. Statements without
// a graph label go to the default graph.
func (p *NQuadsParser) Parse() ([]*Quad, error) {
	var quads []*Quad
	for {
		p.skipWhitespace()
		if p.eof() {
			return quads, nil
		}
		quad, err := p.parseQuad()
		if err != nil {
			return nil, err
		}
		quads = append(quads, quad)
	}
}

func (p *NQuadsParser) parseQuad() (*Quad, error) {
	subject, err := p.parseTerm(false)
	if err != nil {
		return nil, err
	}
	p.skipWhitespace()
	predicate, err := p.parseTerm(false)
	if err != nil {
		return nil, err
	}
	if predicate.Type() != TermTypeIRI {
		return nil, p.errorf("predicate must be an IRI")
	}
	p.skipWhitespace()
	object, err := p.parseTerm(true)
	if err != nil {
		return nil, err
	}
	p.skipWhitespace()

	graph := Term(NewDefaultGraph())
	if !p.eof() && p.peek() != '.' {
		graph, err = p.parseTerm(false)
		if err != nil {
			return nil, err
		}
		p.skipWhitespace()
	}
	if p.eof() || p.peek() != '.' {
		return nil, p.errorf("expected '.' at end of statement")
	}
	p.pos++
	return NewQuad(subject, predicate, object, graph), nil
}

// parseTerm parses an IRI, blank node or, when literals are allowed,
// a quoted literal.
func (p *NQuadsParser) parseTerm(allowLiteral bool) (Term, error) {
	switch {
	case p.peek() == '<':
		return p.parseIRI()
	case strings.HasPrefix(p.input[p.pos:], "_:"):
		return p.parseBlankNode()
	case p.peek() == '"':
		if !allowLiteral {
			return nil, p.errorf("literal not allowed in this position")
		}
		return p.parseLiteral()
	default:
		return nil, p.errorf("unexpected input %q", p.remainder(20))
	}
}

func (p *NQuadsParser) parseIRI() (Term, error) {
	p.pos++ // '<'
	var sb strings.Builder
	for {
		if p.eof() {
			return nil, p.errorf("unterminated IRI")
		}
		c := p.input[p.pos]
		switch {
		case c == '>':
			p.pos++
			return NewIRI(sb.String()), nil
		case c == '\\':
			p.pos++
			r, n, err := decodeUnicodeEscape(p.input, p.pos)
			if err != nil {
				return nil, p.errorf("%v", err)
			}
			p.pos = n
			sb.WriteRune(r)
		case c == '\n' || c == '\r' || c == ' ':
			return nil, p.errorf("invalid character %q in IRI", c)
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
}

func (p *NQuadsParser) parseBlankNode() (Term, error) {
	p.pos += 2 // "_:"
	start := p.pos
	for !p.eof() && isBlankNodeLabelChar(p.peek()) {
		p.pos++
	}
	label := p.input[start:p.pos]
	for strings.HasSuffix(label, ".") {
		label = label[:len(label)-1]
		p.pos--
	}
	if label == "" {
		return nil, p.errorf("empty blank node label")
	}
	if node, ok := p.bnodes[label]; ok {
		return node, nil
	}
	node := NewBlankNode(label)
	p.bnodes[label] = node
	return node, nil
}

func (p *NQuadsParser) parseLiteral() (Term, error) {
	p.pos++ // '"'
	var sb strings.Builder
	for {
		if p.eof() {
			return nil, p.errorf("unterminated string literal")
		}
		c := p.input[p.pos]
		if c == '"' {
			p.pos++
			break
		}
		if c == '\\' {
			p.pos++
			r, n, err := decodeStringEscape(p.input, p.pos)
			if err != nil {
				return nil, p.errorf("%v", err)
			}
			p.pos = n
			sb.WriteRune(r)
			continue
		}
		if c == '\n' || c == '\r' {
			return nil, p.errorf("newline in string literal")
		}
		sb.WriteByte(c)
		p.pos++
	}
	lexical := sb.String()

	switch {
	case p.peek() == '@':
		p.pos++
		start := p.pos
		for !p.eof() && (isASCIILetter(p.peek()) || isASCIIDigit(p.peek()) || p.peek() == '-') {
			p.pos++
		}
		lang := p.input[start:p.pos]
		if lang == "" {
			return nil, p.errorf("empty language tag")
		}
		return NewLangLiteral(lexical, lang), nil
	case strings.HasPrefix(p.input[p.pos:], "^^"):
		p.pos += 2
		dt, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		return NewTypedLiteral(lexical, dt.(*IRI)), nil
	default:
		return NewLiteral(lexical), nil
	}
}

func (p *NQuadsParser) skipWhitespace() {
	for !p.eof() {
		c := p.input[p.pos]
		switch {
		case c == '\n':
			p.line++
			p.pos++
		case c == ' ' || c == '\t' || c == '\r':
			p.pos++
		case c == '#':
			for !p.eof() && p.input[p.pos] != '\n' {
				p.pos++
			}
		default:
			return
		}
	}
}

func (p *NQuadsParser) eof() bool {
	return p.pos >= len(p.input)
}

func (p *NQuadsParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.input[p.pos]
}

func (p *NQuadsParser) remainder(n int) string {
	end := p.pos + n
	if end > len(p.input) {
		end = len(p.input)
	}
	return p.input[p.pos:end]
}

func (p *NQuadsParser) errorf(format string, args ...any) error {
	return fmt.Errorf("line %d: %s", p.line, fmt.Sprintf(format, args...))
}
