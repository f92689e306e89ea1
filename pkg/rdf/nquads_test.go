package rdf

import (
	"testing"
)

func parseNQuads(t *testing.T, input string) []*Quad {
	t.Helper()
	quads, err := NewNQuadsParser(input).Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return quads
}

func TestNQuadsDefaultGraph(t *testing.T) {
	quads := parseNQuads(t, `<http://example.org/s> <http://example.org/p> <http://example.org/o> .`)
	if len(quads) != 1 {
		t.Fatalf("expected 1 quad, got %d", len(quads))
	}
	if quads[0].Graph.Type() != TermTypeDefaultGraph {
		t.Fatalf("expected default graph, got %v", quads[0].Graph)
	}
}

func TestNQuadsNamedGraph(t *testing.T) {
	quads := parseNQuads(t, `<http://example.org/s> <http://example.org/p> "v" <http://example.org/g> .`)
	if len(quads) != 1 {
		t.Fatalf("expected 1 quad, got %d", len(quads))
	}
	requireIRI(t, quads[0].Graph, "http://example.org/g")
	lit := requireLiteral(t, quads[0].Object)
	if lit.Lexical != "v" {
		t.Fatalf("expected lexical v, got %q", lit.Lexical)
	}
}

func TestNQuadsLiteralForms(t *testing.T) {
	input := `
<http://example.org/s> <http://example.org/p> "plain" .
<http://example.org/s> <http://example.org/p> "tagged"@en-GB .
<http://example.org/s> <http://example.org/p> "5"^^<http://www.w3.org/2001/XMLSchema#integer> .
`
	quads := parseNQuads(t, input)
	if len(quads) != 3 {
		t.Fatalf("expected 3 quads, got %d", len(quads))
	}

	plain := requireLiteral(t, quads[0].Object)
	if plain.Lexical != "plain" || plain.Datatype != nil {
		t.Fatalf("unexpected plain literal: %v", plain)
	}

	tagged := requireLiteral(t, quads[1].Object)
	if tagged.Language != "en-GB" {
		t.Fatalf("expected language en-GB, got %q", tagged.Language)
	}

	typed := requireLiteral(t, quads[2].Object)
	if !typed.Datatype.Equals(XSDInteger) {
		t.Fatalf("unexpected datatype: %v", typed.Datatype)
	}
}

func TestNQuadsEscapes(t *testing.T) {
	quads := parseNQuads(t, `<http://example.org/s> <http://example.org/p> "tab\there \"and\" é" .`)
	lit := requireLiteral(t, quads[0].Object)
	if lit.Lexical != "tab\there \"and\" é" {
		t.Fatalf("unexpected lexical: %q", lit.Lexical)
	}
}

func TestNQuadsBlankNodes(t *testing.T) {
	input := `
_:a <http://example.org/p> _:b <http://example.org/g> .
_:b <http://example.org/p> _:a .
`
	quads := parseNQuads(t, input)
	if len(quads) != 2 {
		t.Fatalf("expected 2 quads, got %d", len(quads))
	}
	if !quads[0].Subject.Equals(quads[1].Object) {
		t.Error("expected _:a to denote the same node in both statements")
	}
	if !quads[0].Object.Equals(quads[1].Subject) {
		t.Error("expected _:b to denote the same node in both statements")
	}
}

func TestNQuadsCommentsAndBlankLines(t *testing.T) {
	input := `
# a comment

<http://example.org/s> <http://example.org/p> <http://example.org/o> . # trailing
`
	quads := parseNQuads(t, input)
	if len(quads) != 1 {
		t.Fatalf("expected 1 quad, got %d", len(quads))
	}
}

func TestNQuadsErrors(t *testing.T) {
	cases := map[string]string{
		"literal subject":     `"s" <http://example.org/p> <http://example.org/o> .`,
		"literal predicate":   `<http://example.org/s> "p" <http://example.org/o> .`,
		"blank predicate":     `<http://example.org/s> _:p <http://example.org/o> .`,
		"missing dot":         `<http://example.org/s> <http://example.org/p> <http://example.org/o>`,
		"unterminated string": `<http://example.org/s> <http://example.org/p> "open .`,
		"turtle prefix":       `@prefix ex: <http://example.org/> .`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := NewNQuadsParser(input).Parse(); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}
