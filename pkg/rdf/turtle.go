package rdf

import (
	"fmt"
	"strings"
)

// TurtleParser parses Turtle documents. N-Triples documents are
// accepted as a subset of the grammar.
type TurtleParser struct {
	input    string
	pos      int
	line     int
	base     string
	prefixes map[string]string
	bnodes   map[string]*BlankNode
	bnodeN   int
	triples  []*Triple
}

// NewTurtleParser creates a parser for the given Turtle document.
func NewTurtleParser(input string) *TurtleParser {
	return &TurtleParser{
		input:    input,
		line:     1,
		prefixes: make(map[string]string),
		bnodes:   make(map[string]*BlankNode),
	}
}

// NewNTriplesParser creates a parser for N-Triples input. The Turtle
// grammar is a superset of N-Triples, so the same machinery is used.
func NewNTriplesParser(input string) *TurtleParser {
	return NewTurtleParser(input)
}

// Parse parses the document and returns all triples in order of
// appearance. Blank node property lists and collections contribute
// their expanded triples.
func (p *TurtleParser) Parse() ([]*Triple, error) {
	for {
		p.skipWhitespace()
		if p.eof() {
			break
		}
		if err := p.parseStatement(); err != nil {
			return nil, err
		}
	}
	return p.triples, nil
}

func (p *TurtleParser) parseStatement() error {
	switch {
	case strings.HasPrefix(p.input[p.pos:], "@prefix"):
		p.pos += len("@prefix")
		return p.parsePrefixDirective(true)
	case strings.HasPrefix(p.input[p.pos:], "@base"):
		p.pos += len("@base")
		return p.parseBaseDirective(true)
	case p.hasKeyword("PREFIX"):
		p.pos += len("PREFIX")
		return p.parsePrefixDirective(false)
	case p.hasKeyword("BASE"):
		p.pos += len("BASE")
		return p.parseBaseDirective(false)
	}
	return p.parseTriples()
}

// parsePrefixDirective handles both "@prefix p: <iri> ." and the
// SPARQL-style "PREFIX p: <iri>" (no trailing dot).
func (p *TurtleParser) parsePrefixDirective(atForm bool) error {
	p.skipWhitespace()
	start := p.pos
	for !p.eof() && p.peek() != ':' && !isWhitespace(p.peek()) {
		p.pos++
	}
	label := p.input[start:p.pos]
	p.skipWhitespace()
	if err := p.expect(':'); err != nil {
		return err
	}
	p.skipWhitespace()
	iri, err := p.parseIRIRef()
	if err != nil {
		return err
	}
	if atForm {
		p.skipWhitespace()
		if err := p.expect('.'); err != nil {
			return err
		}
	}
	p.prefixes[label] = iri
	return nil
}

func (p *TurtleParser) parseBaseDirective(atForm bool) error {
	p.skipWhitespace()
	iri, err := p.parseIRIRef()
	if err != nil {
		return err
	}
	if atForm {
		p.skipWhitespace()
		if err := p.expect('.'); err != nil {
			return err
		}
	}
	p.base = iri
	return nil
}

func (p *TurtleParser) parseTriples() error {
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
	// A blank node property list may stand alone as a statement.
	if !(fromPropertyList && p.peek() == '.') {
		if err := p.parsePredicateObjectList(subject); err != nil {
			return err
		}
		p.skipWhitespace()
	}
	return p.expect('.')
}

func (p *TurtleParser) parseSubject() (Term, error) {
	switch {
	case p.peek() == '<':
		iri, err := p.parseIRIRef()
		if err != nil {
			return nil, err
		}
		return NewIRI(iri), nil
	case strings.HasPrefix(p.input[p.pos:], "_:"):
		return p.parseBlankNodeLabel()
	default:
		return p.parsePrefixedName()
	}
}

func (p *TurtleParser) parsePredicateObjectList(subject Term) error {
	for {
		p.skipWhitespace()
		verb, err := p.parseVerb()
		if err != nil {
			return err
		}
		if err := p.parseObjectList(subject, verb); err != nil {
			return err
		}
		p.skipWhitespace()
		if p.peek() != ';' {
			return nil
		}
		for p.peek() == ';' {
			p.pos++
			p.skipWhitespace()
		}
		// A trailing semicolon before the closing delimiter is legal.
		if p.peek() == '.' || p.peek() == ']' || p.peek() == '}' || p.eof() {
			return nil
		}
	}
}

func (p *TurtleParser) parseVerb() (Term, error) {
	if p.peek() == 'a' && p.isTokenEnd(p.pos+1) {
		p.pos++
		return RDFType, nil
	}
	if p.peek() == '<' {
		iri, err := p.parseIRIRef()
		if err != nil {
			return nil, err
		}
		return NewIRI(iri), nil
	}
	return p.parsePrefixedName()
}

func (p *TurtleParser) parseObjectList(subject, verb Term) error {
	for {
		p.skipWhitespace()
		object, err := p.parseObject()
		if err != nil {
			return err
		}
		p.triples = append(p.triples, NewTriple(subject, verb, object))
		p.skipWhitespace()
		if p.peek() != ',' {
			return nil
		}
		p.pos++
	}
}

func (p *TurtleParser) parseObject() (Term, error) {
	switch {
	case p.peek() == '<':
		iri, err := p.parseIRIRef()
		if err != nil {
			return nil, err
		}
		return NewIRI(iri), nil
	case strings.HasPrefix(p.input[p.pos:], "_:"):
		return p.parseBlankNodeLabel()
	case p.peek() == '[':
		return p.parseBlankNodePropertyList()
	case p.peek() == '(':
		return p.parseCollection()
	case p.peek() == '"' || p.peek() == '\'':
		return p.parseLiteral()
	case p.isNumericStart():
		return p.parseNumericLiteral()
	case p.hasKeyword("true"):
		p.pos += len("true")
		return NewTypedLiteral("true", XSDBoolean), nil
	case p.hasKeyword("false"):
		p.pos += len("false")
		return NewTypedLiteral("false", XSDBoolean), nil
	default:
		return p.parsePrefixedName()
	}
}

// parseBlankNodePropertyList consumes "[ predicateObjectList? ]" and
// returns the fresh blank node the inner triples hang off.
func (p *TurtleParser) parseBlankNodePropertyList() (Term, error) {
	p.pos++ // '['
	node := p.newBlankNode()
	p.skipWhitespace()
	if p.peek() == ']' {
		p.pos++
		return node, nil
	}
	if err := p.parsePredicateObjectList(node); err != nil {
		return nil, err
	}
	p.skipWhitespace()
	if err := p.expect(']'); err != nil {
		return nil, err
	}
	return node, nil
}

// parseCollection consumes "( object* )" and expands it into an
// rdf:first/rdf:rest chain. The empty collection is rdf:nil.
func (p *TurtleParser) parseCollection() (Term, error) {
	p.pos++ // '('
	var items []Term
	for {
		p.skipWhitespace()
		if p.eof() {
			return nil, p.errorf("unterminated collection")
		}
		if p.peek() == ')' {
			p.pos++
			break
		}
		item, err := p.parseObject()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return RDFNil, nil
	}
	head := p.newBlankNode()
	node := head
	for i, item := range items {
		p.triples = append(p.triples, NewTriple(node, RDFFirst, item))
		if i == len(items)-1 {
			p.triples = append(p.triples, NewTriple(node, RDFRest, RDFNil))
		} else {
			next := p.newBlankNode()
			p.triples = append(p.triples, NewTriple(node, RDFRest, next))
			node = next
		}
	}
	return head, nil
}

// parseIRIRef consumes "<...>" and returns the IRI resolved against
// the current base.
func (p *TurtleParser) parseIRIRef() (string, error) {
	if err := p.expect('<'); err != nil {
		return "", err
	}
	var sb strings.Builder
	for {
		if p.eof() {
			return "", p.errorf("unterminated IRI")
		}
		c := p.input[p.pos]
		switch {
		case c == '>':
			p.pos++
			return p.resolveIRI(sb.String()), nil
		case c == '\\':
			p.pos++
			r, n, err := decodeUnicodeEscape(p.input, p.pos)
			if err != nil {
				return "", p.errorf("%v", err)
			}
			p.pos = n
			sb.WriteRune(r)
		case c == '\n' || c == '\r' || c == ' ' || c == '"' || c == '{' || c == '}':
			return "", p.errorf("invalid character %q in IRI", c)
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
}

// resolveIRI resolves a possibly relative reference against the base
// IRI. Absolute references pass through unchanged.
func (p *TurtleParser) resolveIRI(ref string) string {
	if p.base == "" || hasIRIScheme(ref) {
		return ref
	}
	base := p.base
	switch {
	case ref == "":
		return base
	case strings.HasPrefix(ref, "#"):
		if idx := strings.Index(base, "#"); idx != -1 {
			base = base[:idx]
		}
		return base + ref
	case strings.HasPrefix(ref, "//"):
		if idx := strings.Index(base, ":"); idx != -1 {
			return base[:idx+1] + ref
		}
		return ref
	case strings.HasPrefix(ref, "/"):
		if idx := strings.Index(base, "://"); idx != -1 {
			if slash := strings.IndexByte(base[idx+3:], '/'); slash != -1 {
				return base[:idx+3+slash] + ref
			}
		}
		return strings.TrimSuffix(base, "/") + ref
	default:
		if idx := strings.LastIndexByte(base, '/'); idx != -1 {
			return base[:idx+1] + ref
		}
		return base + ref
	}
}

func hasIRIScheme(ref string) bool {
	for i := 0; i < len(ref); i++ {
		c := ref[i]
		switch {
		case c == ':':
			return i > 0
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
		case i > 0 && ((c >= '0' && c <= '9') || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return false
}

func (p *TurtleParser) parsePrefixedName() (Term, error) {
	start := p.pos
	for !p.eof() && isPrefixChar(p.peek()) {
		p.pos++
	}
	prefix := p.input[start:p.pos]
	if err := p.expect(':'); err != nil {
		return nil, p.errorf("expected prefixed name at %q", p.remainder(20))
	}
	ns, ok := p.prefixes[prefix]
	if !ok {
		return nil, p.errorf("undefined prefix %q", prefix)
	}
	local, err := p.parseLocalName()
	if err != nil {
		return nil, err
	}
	return NewIRI(ns + local), nil
}

// parseLocalName scans the local part of a prefixed name. Dots are
// allowed inside the name but a trailing dot terminates the statement
// instead.
func (p *TurtleParser) parseLocalName() (string, error) {
	var sb strings.Builder
	for !p.eof() {
		c := p.input[p.pos]
		if c == '\\' {
			p.pos++
			if p.eof() || !isLocalEscapeChar(p.input[p.pos]) {
				return "", p.errorf("invalid local name escape")
			}
			sb.WriteByte(p.input[p.pos])
			p.pos++
			continue
		}
		if isLocalNameDelimiter(c) {
			break
		}
		sb.WriteByte(c)
		p.pos++
	}
	local := sb.String()
	for strings.HasSuffix(local, ".") {
		local = local[:len(local)-1]
		p.pos--
	}
	return local, nil
}

func (p *TurtleParser) parseBlankNodeLabel() (Term, error) {
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

func (p *TurtleParser) newBlankNode() *BlankNode {
	p.bnodeN++
	return NewBlankNode(fmt.Sprintf("genid%d", p.bnodeN))
}

// parseLiteral consumes a quoted string with an optional language tag
// or datatype annotation.
func (p *TurtleParser) parseLiteral() (Term, error) {
	lexical, err := p.parseQuotedString()
	if err != nil {
		return nil, err
	}
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
		p.skipWhitespace()
		var datatype *IRI
		if p.peek() == '<' {
			iri, err := p.parseIRIRef()
			if err != nil {
				return nil, err
			}
			datatype = NewIRI(iri)
		} else {
			term, err := p.parsePrefixedName()
			if err != nil {
				return nil, err
			}
			datatype = term.(*IRI)
		}
		return NewTypedLiteral(lexical, datatype), nil
	default:
		return NewLiteral(lexical), nil
	}
}

// parseQuotedString handles all four quoting forms: "...", '...',
// """...""" and '''...'''.
func (p *TurtleParser) parseQuotedString() (string, error) {
	quote := p.input[p.pos]
	long := strings.HasPrefix(p.input[p.pos:], strings.Repeat(string(quote), 3))
	if long {
		p.pos += 3
	} else {
		p.pos++
	}

	var sb strings.Builder
	for {
		if p.eof() {
			return "", p.errorf("unterminated string literal")
		}
		c := p.input[p.pos]
		if c == quote {
			if !long {
				p.pos++
				return sb.String(), nil
			}
			if strings.HasPrefix(p.input[p.pos:], strings.Repeat(string(quote), 3)) {
				p.pos += 3
				return sb.String(), nil
			}
			sb.WriteByte(c)
			p.pos++
			continue
		}
		if c == '\\' {
			p.pos++
			r, n, err := decodeStringEscape(p.input, p.pos)
			if err != nil {
				return "", p.errorf("%v", err)
			}
			p.pos = n
			sb.WriteRune(r)
			continue
		}
		if (c == '\n' || c == '\r') && !long {
			return "", p.errorf("newline in string literal")
		}
		if c == '\n' {
			p.line++
		}
		sb.WriteByte(c)
		p.pos++
	}
}

func (p *TurtleParser) isNumericStart() bool {
	c := p.peek()
	if isASCIIDigit(c) {
		return true
	}
	if (c == '+' || c == '-' || c == '.') && p.pos+1 < len(p.input) {
		return isASCIIDigit(p.input[p.pos+1])
	}
	return false
}

// parseNumericLiteral scans an integer, decimal or double shorthand.
// A dot is only part of the number when a digit follows, so "1." at
// the end of a statement parses as the integer 1.
func (p *TurtleParser) parseNumericLiteral() (Term, error) {
	start := p.pos
	if p.peek() == '+' || p.peek() == '-' {
		p.pos++
	}
	hasDot := false
	hasExponent := false
	for !p.eof() {
		c := p.input[p.pos]
		if isASCIIDigit(c) {
			p.pos++
			continue
		}
		if c == '.' && !hasDot && !hasExponent && p.pos+1 < len(p.input) && isASCIIDigit(p.input[p.pos+1]) {
			hasDot = true
			p.pos++
			continue
		}
		if (c == 'e' || c == 'E') && !hasExponent {
			next := p.pos + 1
			if next < len(p.input) && (p.input[next] == '+' || p.input[next] == '-') {
				next++
			}
			if next < len(p.input) && isASCIIDigit(p.input[next]) {
				hasExponent = true
				p.pos = next
				continue
			}
		}
		break
	}
	lexical := p.input[start:p.pos]
	switch {
	case hasExponent:
		return NewTypedLiteral(lexical, XSDDouble), nil
	case hasDot:
		return NewTypedLiteral(lexical, XSDDecimal), nil
	default:
		return NewTypedLiteral(lexical, XSDInteger), nil
	}
}

func (p *TurtleParser) skipWhitespace() {
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

func (p *TurtleParser) eof() bool {
	return p.pos >= len(p.input)
}

func (p *TurtleParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.input[p.pos]
}

func (p *TurtleParser) expect(c byte) error {
	if p.eof() || p.input[p.pos] != c {
		return p.errorf("expected %q at %q", c, p.remainder(20))
	}
	p.pos++
	return nil
}

// hasKeyword reports whether the input continues with the keyword
// followed by a token boundary. Matching is case-insensitive for the
// SPARQL-style directives.
func (p *TurtleParser) hasKeyword(kw string) bool {
	if p.pos+len(kw) > len(p.input) {
		return false
	}
	if !strings.EqualFold(p.input[p.pos:p.pos+len(kw)], kw) {
		return false
	}
	return p.isTokenEnd(p.pos + len(kw))
}

func (p *TurtleParser) isTokenEnd(pos int) bool {
	if pos >= len(p.input) {
		return true
	}
	c := p.input[pos]
	return isWhitespace(c) || c == '<' || c == '#' || c == '[' || c == '(' ||
		c == '"' || c == '\'' || c == '.' || c == ';' || c == ',' || c == ']' || c == ')'
}

func (p *TurtleParser) remainder(n int) string {
	end := p.pos + n
	if end > len(p.input) {
		end = len(p.input)
	}
	return p.input[p.pos:end]
}

func (p *TurtleParser) errorf(format string, args ...any) error {
	return fmt.Errorf("line %d: %s", p.line, fmt.Sprintf(format, args...))
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isASCIIDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isPrefixChar(c byte) bool {
	return isASCIILetter(c) || isASCIIDigit(c) || c == '_' || c == '-' || c == '.' || c >= 0x80
}

func isBlankNodeLabelChar(c byte) bool {
	return isASCIILetter(c) || isASCIIDigit(c) || c == '_' || c == '-' || c == '.' || c >= 0x80
}

func isLocalNameDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', ',', ';', ')', ']', '}', '<', '"', '\'', '#', '^':
		return true
	}
	return false
}

// isLocalEscapeChar reports whether c may follow a backslash in the
// local part of a prefixed name.
func isLocalEscapeChar(c byte) bool {
	switch c {
	case '_', '~', '.', '-', '!', '$', '&', '\'', '(', ')', '*', '+', ',', ';', '=', '/', '?', '#', '@', '%':
		return true
	}
	return false
}

// decodeStringEscape decodes the escape sequence starting at pos, the
// position just after the backslash. It returns the decoded rune and
// the position after the sequence.
func decodeStringEscape(input string, pos int) (rune, int, error) {
	if pos >= len(input) {
		return 0, pos, fmt.Errorf("incomplete escape sequence")
	}
	switch input[pos] {
	case 't':
		return '\t', pos + 1, nil
	case 'b':
		return '\b', pos + 1, nil
	case 'n':
		return '\n', pos + 1, nil
	case 'r':
		return '\r', pos + 1, nil
	case 'f':
		return '\f', pos + 1, nil
	case '"':
		return '"', pos + 1, nil
	case '\'':
		return '\'', pos + 1, nil
	case '\\':
		return '\\', pos + 1, nil
	case 'u', 'U':
		return decodeUnicodeEscape(input, pos)
	default:
		return 0, pos, fmt.Errorf("invalid escape sequence \\%c", input[pos])
	}
}

// decodeUnicodeEscape decodes \uXXXX or \UXXXXXXXX at pos, the
// position of the 'u' or 'U'.
func decodeUnicodeEscape(input string, pos int) (rune, int, error) {
	if pos >= len(input) {
		return 0, pos, fmt.Errorf("incomplete escape sequence")
	}
	var digits int
	switch input[pos] {
	case 'u':
		digits = 4
	case 'U':
		digits = 8
	default:
		return 0, pos, fmt.Errorf("invalid escape sequence \\%c", input[pos])
	}
	pos++
	if pos+digits > len(input) {
		return 0, pos, fmt.Errorf("incomplete unicode escape")
	}
	var v rune
	for i := 0; i < digits; i++ {
		c := input[pos+i]
		var d rune
		switch {
		case c >= '0' && c <= '9':
			d = rune(c - '0')
		case c >= 'a' && c <= 'f':
			d = rune(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = rune(c-'A') + 10
		default:
			return 0, pos, fmt.Errorf("invalid hex digit %q in unicode escape", c)
		}
		v = v<<4 | d
	}
	return v, pos + digits, nil
}
