package rdf

import (
	"strings"
	"testing"
)

func TestNewParserContentTypes(t *testing.T) {
	cases := map[string]string{
		"application/n-triples":        "application/n-triples",
		"text/plain":                   "application/n-triples",
		"application/n-quads":          "application/n-quads",
		"text/turtle":                  "text/turtle",
		"application/x-turtle":         "text/turtle",
		"text/turtle; charset=utf-8":   "text/turtle",
		"application/trig":             "application/trig",
		"APPLICATION/TRIG":             "application/trig",
	}
	for input, canonical := range cases {
		parser, err := NewParser(input)
		if err != nil {
			t.Errorf("NewParser(%q): %v", input, err)
			continue
		}
		if parser.ContentType() != canonical {
			t.Errorf("NewParser(%q): expected content type %s, got %s", input, canonical, parser.ContentType())
		}
	}
}

func TestNewParserUnsupported(t *testing.T) {
	if _, err := NewParser("application/pdf"); err == nil {
		t.Error("expected error for unsupported content type")
	}
}

func TestParseThroughReader(t *testing.T) {
	turtle := `@prefix ex: <http://example.org/> . ex:s ex:p ex:o .`
	parser, err := NewParser("text/turtle")
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	quads, err := parser.Parse(strings.NewReader(turtle))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(quads) != 1 {
		t.Fatalf("expected 1 quad, got %d", len(quads))
	}
	if quads[0].Graph.Type() != TermTypeDefaultGraph {
		t.Error("Turtle quads should land in the default graph")
	}

	trig := `@prefix ex: <http://example.org/> . GRAPH ex:g { ex:s ex:p ex:o . }`
	parser, err = NewParser("application/trig")
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	quads, err = parser.Parse(strings.NewReader(trig))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(quads) != 1 {
		t.Fatalf("expected 1 quad, got %d", len(quads))
	}
	requireIRI(t, quads[0].Graph, "http://example.org/g")
}
