package rdf

import (
	"testing"
)

func parseTurtle(t *testing.T, input string) []*Triple {
	t.Helper()
	triples, err := NewTurtleParser(input).Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return triples
}

func requireIRI(t *testing.T, term Term, value string) {
	t.Helper()
	iri, ok := term.(*IRI)
	if !ok {
		t.Fatalf("expected IRI, got %T (%v)", term, term)
	}
	if iri.Value != value {
		t.Fatalf("expected IRI %s, got %s", value, iri.Value)
	}
}

func requireLiteral(t *testing.T, term Term) *Literal {
	t.Helper()
	lit, ok := term.(*Literal)
	if !ok {
		t.Fatalf("expected literal, got %T (%v)", term, term)
	}
	return lit
}

func TestTurtleBasicTriple(t *testing.T) {
	triples := parseTurtle(t, `<http://example.org/s> <http://example.org/p> <http://example.org/o> .`)
	if len(triples) != 1 {
		t.Fatalf("expected 1 triple, got %d", len(triples))
	}
	requireIRI(t, triples[0].Subject, "http://example.org/s")
	requireIRI(t, triples[0].Predicate, "http://example.org/p")
	requireIRI(t, triples[0].Object, "http://example.org/o")
}

func TestTurtlePrefixDirectives(t *testing.T) {
	input := `
@prefix ex: <http://example.org/> .
PREFIX foaf: <http://xmlns.com/foaf/0.1/>
ex:alice a foaf:Person .
`
	triples := parseTurtle(t, input)
	if len(triples) != 1 {
		t.Fatalf("expected 1 triple, got %d", len(triples))
	}
	requireIRI(t, triples[0].Subject, "http://example.org/alice")
	requireIRI(t, triples[0].Predicate, RDFType.Value)
	requireIRI(t, triples[0].Object, "http://xmlns.com/foaf/0.1/Person")
}

func TestTurtleDefaultPrefix(t *testing.T) {
	triples := parseTurtle(t, `@prefix : <http://example.org/> . :s :p :o .`)
	if len(triples) != 1 {
		t.Fatalf("expected 1 triple, got %d", len(triples))
	}
	requireIRI(t, triples[0].Subject, "http://example.org/s")
}

func TestTurtlePredicateAndObjectLists(t *testing.T) {
	input := `
@prefix ex: <http://example.org/> .
ex:s ex:p1 ex:a, ex:b ;
     ex:p2 ex:c ;
     .
`
	triples := parseTurtle(t, input)
	if len(triples) != 3 {
		t.Fatalf("expected 3 triples, got %d", len(triples))
	}
	requireIRI(t, triples[0].Object, "http://example.org/a")
	requireIRI(t, triples[1].Object, "http://example.org/b")
	requireIRI(t, triples[2].Predicate, "http://example.org/p2")
	for _, tr := range triples {
		requireIRI(t, tr.Subject, "http://example.org/s")
	}
}

func TestTurtleLiterals(t *testing.T) {
	input := `
@prefix ex: <http://example.org/> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .
ex:s ex:plain "hello" ;
     ex:lang "bonjour"@fr ;
     ex:typed "5"^^xsd:integer ;
     ex:full "2024-01-01"^^<http://www.w3.org/2001/XMLSchema#date> .
`
	triples := parseTurtle(t, input)
	if len(triples) != 4 {
		t.Fatalf("expected 4 triples, got %d", len(triples))
	}

	plain := requireLiteral(t, triples[0].Object)
	if plain.Lexical != "hello" || plain.Datatype != nil || plain.Language != "" {
		t.Fatalf("unexpected plain literal: %v", plain)
	}

	lang := requireLiteral(t, triples[1].Object)
	if lang.Lexical != "bonjour" || lang.Language != "fr" {
		t.Fatalf("unexpected language literal: %v", lang)
	}

	typed := requireLiteral(t, triples[2].Object)
	if typed.Lexical != "5" || !typed.Datatype.Equals(XSDInteger) {
		t.Fatalf("unexpected typed literal: %v", typed)
	}

	full := requireLiteral(t, triples[3].Object)
	if !full.Datatype.Equals(XSDDate) {
		t.Fatalf("unexpected datatype: %v", full.Datatype)
	}
}

func TestTurtleNumericShorthand(t *testing.T) {
	input := `
@prefix ex: <http://example.org/> .
ex:s ex:int 42 ;
     ex:neg -7 ;
     ex:dec 3.14 ;
     ex:dbl 1.5e3 ;
     ex:expneg -2E-1 .
`
	triples := parseTurtle(t, input)
	if len(triples) != 5 {
		t.Fatalf("expected 5 triples, got %d", len(triples))
	}
	cases := []struct {
		lexical  string
		datatype *IRI
	}{
		{"42", XSDInteger},
		{"-7", XSDInteger},
		{"3.14", XSDDecimal},
		{"1.5e3", XSDDouble},
		{"-2E-1", XSDDouble},
	}
	for i, c := range cases {
		lit := requireLiteral(t, triples[i].Object)
		if lit.Lexical != c.lexical {
			t.Errorf("triple %d: expected lexical %s, got %s", i, c.lexical, lit.Lexical)
		}
		if !lit.Datatype.Equals(c.datatype) {
			t.Errorf("triple %d: expected datatype %v, got %v", i, c.datatype, lit.Datatype)
		}
	}
}

func TestTurtleIntegerBeforeStatementDot(t *testing.T) {
	triples := parseTurtle(t, `@prefix ex: <http://example.org/> . ex:s ex:p 1.`)
	if len(triples) != 1 {
		t.Fatalf("expected 1 triple, got %d", len(triples))
	}
	lit := requireLiteral(t, triples[0].Object)
	if lit.Lexical != "1" || !lit.Datatype.Equals(XSDInteger) {
		t.Fatalf("expected integer 1, got %v", lit)
	}
}

func TestTurtleBooleanShorthand(t *testing.T) {
	triples := parseTurtle(t, `@prefix ex: <http://example.org/> . ex:s ex:p true, false .`)
	if len(triples) != 2 {
		t.Fatalf("expected 2 triples, got %d", len(triples))
	}
	for i, want := range []string{"true", "false"} {
		lit := requireLiteral(t, triples[i].Object)
		if lit.Lexical != want || !lit.Datatype.Equals(XSDBoolean) {
			t.Fatalf("expected boolean %s, got %v", want, lit)
		}
	}
}

func TestTurtleStringEscapes(t *testing.T) {
	triples := parseTurtle(t, `<http://example.org/s> <http://example.org/p> "line1\nline2\t\"quoted\" A\U0001F600" .`)
	lit := requireLiteral(t, triples[0].Object)
	expected := "line1\nline2\t\"quoted\" A\U0001F600"
	if lit.Lexical != expected {
		t.Fatalf("expected %q, got %q", expected, lit.Lexical)
	}
}

func TestTurtleLongStrings(t *testing.T) {
	input := `@prefix ex: <http://example.org/> .
ex:s ex:p """a "quoted" word
and a second line""" ;
     ex:q '''single's long''' .
`
	triples := parseTurtle(t, input)
	if len(triples) != 2 {
		t.Fatalf("expected 2 triples, got %d", len(triples))
	}
	first := requireLiteral(t, triples[0].Object)
	if first.Lexical != "a \"quoted\" word\nand a second line" {
		t.Fatalf("unexpected long string: %q", first.Lexical)
	}
	second := requireLiteral(t, triples[1].Object)
	if second.Lexical != "single's long" {
		t.Fatalf("unexpected long string: %q", second.Lexical)
	}
}

func TestTurtleBlankNodeLabels(t *testing.T) {
	input := `
@prefix ex: <http://example.org/> .
_:a ex:knows _:b .
_:b ex:knows _:a .
`
	triples := parseTurtle(t, input)
	if len(triples) != 2 {
		t.Fatalf("expected 2 triples, got %d", len(triples))
	}
	if !triples[0].Subject.Equals(triples[1].Object) {
		t.Error("expected _:a to denote the same node in both statements")
	}
	if !triples[0].Object.Equals(triples[1].Subject) {
		t.Error("expected _:b to denote the same node in both statements")
	}
}

func TestTurtleBlankNodePropertyList(t *testing.T) {
	input := `
@prefix ex: <http://example.org/> .
ex:s ex:knows [ ex:name "Alice" ; ex:age 30 ] .
`
	triples := parseTurtle(t, input)
	if len(triples) != 3 {
		t.Fatalf("expected 3 triples, got %d", len(triples))
	}
	// Inner property list triples come first, then the outer triple.
	node := triples[0].Subject
	if node.Type() != TermTypeBlankNode {
		t.Fatalf("expected blank node subject, got %v", node)
	}
	outer := triples[2]
	requireIRI(t, outer.Subject, "http://example.org/s")
	if !outer.Object.Equals(node) {
		t.Error("outer object should be the property list node")
	}
}

func TestTurtleStandaloneBlankNodePropertyList(t *testing.T) {
	input := `
@prefix ex: <http://example.org/> .
[ ex:name "Bob" ] .
`
	triples := parseTurtle(t, input)
	if len(triples) != 1 {
		t.Fatalf("expected 1 triple, got %d", len(triples))
	}
	if triples[0].Subject.Type() != TermTypeBlankNode {
		t.Fatalf("expected blank node subject, got %v", triples[0].Subject)
	}
}

func TestTurtleCollections(t *testing.T) {
	input := `
@prefix ex: <http://example.org/> .
ex:s ex:list (1 2) .
ex:s ex:empty () .
`
	triples := parseTurtle(t, input)
	// (1 2) expands to 4 triples, plus the two outer statements.
	if len(triples) != 6 {
		t.Fatalf("expected 6 triples, got %d", len(triples))
	}

	var first, rest, nils int
	for _, tr := range triples {
		switch {
		case tr.Predicate.Equals(RDFFirst):
			first++
		case tr.Predicate.Equals(RDFRest):
			rest++
		}
		if tr.Object.Equals(RDFNil) {
			nils++
		}
	}
	if first != 2 || rest != 2 {
		t.Errorf("expected 2 rdf:first and 2 rdf:rest triples, got %d and %d", first, rest)
	}
	// One rdf:nil closes the chain, one is the empty collection object.
	if nils != 2 {
		t.Errorf("expected 2 rdf:nil objects, got %d", nils)
	}
}

func TestTurtleBaseResolution(t *testing.T) {
	input := `
@base <http://example.org/dir/doc> .
<#frag> <rel> </abs> .
`
	triples := parseTurtle(t, input)
	if len(triples) != 1 {
		t.Fatalf("expected 1 triple, got %d", len(triples))
	}
	requireIRI(t, triples[0].Subject, "http://example.org/dir/doc#frag")
	requireIRI(t, triples[0].Predicate, "http://example.org/dir/rel")
	requireIRI(t, triples[0].Object, "http://example.org/abs")
}

func TestTurtleComments(t *testing.T) {
	input := `
# leading comment
@prefix ex: <http://example.org/> . # trailing comment
ex:s ex:p ex:o . # another
`
	triples := parseTurtle(t, input)
	if len(triples) != 1 {
		t.Fatalf("expected 1 triple, got %d", len(triples))
	}
}

func TestTurtleErrors(t *testing.T) {
	cases := map[string]string{
		"undefined prefix":   `ex:s ex:p ex:o .`,
		"unterminated IRI":   `<http://example.org/s <http://example.org/p> <http://example.org/o> .`,
		"missing dot":        `<http://example.org/s> <http://example.org/p> <http://example.org/o>`,
		"newline in string":  "<http://example.org/s> <http://example.org/p> \"broken\nstring\" .",
		"unterminated block": `@prefix ex: <http://example.org/> . ex:s ex:p [ ex:q ex:o .`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := NewTurtleParser(input).Parse(); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

func TestNTriplesSubset(t *testing.T) {
	input := `
<http://example.org/s> <http://example.org/p> "value"@en .
_:b0 <http://example.org/p> <http://example.org/o> .
`
	triples, err := NewNTriplesParser(input).Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(triples) != 2 {
		t.Fatalf("expected 2 triples, got %d", len(triples))
	}
	lit := requireLiteral(t, triples[0].Object)
	if lit.Language != "en" {
		t.Fatalf("expected language en, got %q", lit.Language)
	}
}
