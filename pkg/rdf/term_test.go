package rdf

import (
	"testing"
)

// ===== IRI Tests =====

func TestIRI_Type(t *testing.T) {
	node := NewIRI("http://example.org/resource")
	if node.Type() != TermTypeIRI {
		t.Errorf("Expected TermTypeIRI, got %v", node.Type())
	}
}

func TestIRI_String(t *testing.T) {
	node := NewIRI("http://example.org/resource")
	expected := "<http://example.org/resource>"
	if node.String() != expected {
		t.Errorf("Expected %s, got %s", expected, node.String())
	}
}

func TestIRI_Equals(t *testing.T) {
	node1 := NewIRI("http://example.org/resource")
	node2 := NewIRI("http://example.org/resource")
	node3 := NewIRI("http://example.org/different")

	if !node1.Equals(node2) {
		t.Error("Expected equal IRIs to be equal")
	}

	if node1.Equals(node3) {
		t.Error("Expected different IRIs to not be equal")
	}

	literal := NewLiteral("test")
	if node1.Equals(literal) {
		t.Error("IRI should not equal Literal")
	}
}

// ===== BlankNode Tests =====

func TestBlankNode_Type(t *testing.T) {
	node := NewBlankNode("b1")
	if node.Type() != TermTypeBlankNode {
		t.Errorf("Expected TermTypeBlankNode, got %v", node.Type())
	}
}

func TestBlankNode_String(t *testing.T) {
	node := NewBlankNode("b1")
	expected := "_:b1"
	if node.String() != expected {
		t.Errorf("Expected %s, got %s", expected, node.String())
	}
}

func TestBlankNode_Equals(t *testing.T) {
	node1 := NewBlankNode("b1")
	node2 := NewBlankNode("b1")
	node3 := NewBlankNode("b2")

	if !node1.Equals(node2) {
		t.Error("Expected equal BlankNodes to be equal")
	}

	if node1.Equals(node3) {
		t.Error("Expected different BlankNodes to not be equal")
	}

	iri := NewIRI("http://example.org/resource")
	if node1.Equals(iri) {
		t.Error("BlankNode should not equal IRI")
	}
}

func TestFreshBlankNode_Unique(t *testing.T) {
	a := FreshBlankNode()
	b := FreshBlankNode()
	if a.Equals(b) {
		t.Error("Fresh blank nodes must have distinct labels")
	}
}

// ===== Literal Tests =====

func TestLiteral_Type(t *testing.T) {
	literal := NewLiteral("test")
	if literal.Type() != TermTypeLiteral {
		t.Errorf("Expected TermTypeLiteral, got %v", literal.Type())
	}
}

func TestLiteral_String(t *testing.T) {
	tests := []struct {
		name     string
		literal  *Literal
		expected string
	}{
		{
			name:     "plain literal",
			literal:  NewLiteral("hello"),
			expected: "\"hello\"",
		},
		{
			name:     "literal with language",
			literal:  NewLangLiteral("hello", "en"),
			expected: "\"hello\"@en",
		},
		{
			name:     "literal with datatype",
			literal:  NewTypedLiteral("42", XSDInteger),
			expected: "\"42\"^^<http://www.w3.org/2001/XMLSchema#integer>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.literal.String()
			if result != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestLiteral_Equals(t *testing.T) {
	lit1 := NewLiteral("hello")
	lit2 := NewLiteral("hello")
	lit3 := NewLiteral("world")

	if !lit1.Equals(lit2) {
		t.Error("Expected equal plain literals to be equal")
	}

	if lit1.Equals(lit3) {
		t.Error("Expected different plain literals to not be equal")
	}

	// Language-tagged literals
	litLang1 := NewLangLiteral("hello", "en")
	litLang2 := NewLangLiteral("hello", "en")
	litLang3 := NewLangLiteral("hello", "fr")

	if !litLang1.Equals(litLang2) {
		t.Error("Expected equal language-tagged literals to be equal")
	}

	if litLang1.Equals(litLang3) {
		t.Error("Expected literals with different languages to not be equal")
	}

	if litLang1.Equals(lit1) {
		t.Error("Language-tagged literal should not equal plain literal")
	}

	// Typed literals
	litType1 := NewTypedLiteral("42", XSDInteger)
	litType2 := NewTypedLiteral("42", XSDInteger)
	litType3 := NewTypedLiteral("42", XSDString)

	if !litType1.Equals(litType2) {
		t.Error("Expected equal typed literals to be equal")
	}

	if litType1.Equals(litType3) {
		t.Error("Expected literals with different datatypes to not be equal")
	}

	iri := NewIRI("http://example.org/resource")
	if lit1.Equals(iri) {
		t.Error("Literal should not equal IRI")
	}
}

func TestLiteral_PlainEqualsXSDString(t *testing.T) {
	// "a" and "a"^^xsd:string are the same term.
	if !NewLiteral("a").Equals(NewTypedLiteral("a", XSDString)) {
		t.Error("plain literal should equal the explicitly xsd:string typed one")
	}
}

// ===== DefaultGraph Tests =====

func TestDefaultGraph_Type(t *testing.T) {
	graph := NewDefaultGraph()
	if graph.Type() != TermTypeDefaultGraph {
		t.Errorf("Expected TermTypeDefaultGraph, got %v", graph.Type())
	}
}

func TestDefaultGraph_Equals(t *testing.T) {
	graph1 := NewDefaultGraph()
	graph2 := NewDefaultGraph()

	if !graph1.Equals(graph2) {
		t.Error("Expected all DefaultGraph instances to be equal")
	}

	iri := NewIRI("http://example.org/graph")
	if graph1.Equals(iri) {
		t.Error("DefaultGraph should not equal IRI")
	}
}

// ===== Triple and Quad Tests =====

func TestTriple_String(t *testing.T) {
	triple := NewTriple(
		NewIRI("http://example.org/s"),
		NewIRI("http://example.org/p"),
		NewLiteral("o"),
	)
	expected := `<http://example.org/s> <http://example.org/p> "o" .`
	if triple.String() != expected {
		t.Errorf("Expected %s, got %s", expected, triple.String())
	}
}

func TestQuad_String(t *testing.T) {
	quad := NewQuad(
		NewIRI("http://example.org/s"),
		NewIRI("http://example.org/p"),
		NewLiteral("o"),
		NewIRI("http://example.org/g"),
	)
	expected := `<http://example.org/s> <http://example.org/p> "o" <http://example.org/g> .`
	if quad.String() != expected {
		t.Errorf("Expected %s, got %s", expected, quad.String())
	}
}
