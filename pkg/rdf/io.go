package rdf

import (
	"fmt"
	"io"
	"strings"
)

// RDFParser parses a serialized RDF document into quads.
type RDFParser interface {
	// Parse reads the whole document and returns its quads. Formats
	// without a graph position place everything in the default graph.
	Parse(reader io.Reader) ([]*Quad, error)

	// ContentType returns the canonical MIME type this parser handles.
	ContentType() string
}

// NewParser creates a parser for the given content type. Parameters
// such as charset are ignored.
func NewParser(contentType string) (RDFParser, error) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(ct, ";"); idx != -1 {
		ct = strings.TrimSpace(ct[:idx])
	}

	switch ct {
	case "application/n-triples", "text/plain":
		return &NTriplesIOParser{}, nil
	case "application/n-quads":
		return &NQuadsIOParser{}, nil
	case "text/turtle", "application/x-turtle":
		return &TurtleIOParser{}, nil
	case "application/trig", "application/x-trig":
		return &TriGIOParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported content type: %s", contentType)
	}
}

// GetSupportedContentTypes returns all content types NewParser accepts.
func GetSupportedContentTypes() []string {
	return []string{
		"application/n-triples",
		"application/n-quads",
		"text/turtle",
		"application/x-turtle",
		"application/trig",
		"application/x-trig",
		"text/plain",
	}
}

func readAll(reader io.Reader) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("error reading input: %w", err)
	}
	return string(data), nil
}

func triplesToQuads(triples []*Triple) []*Quad {
	quads := make([]*Quad, len(triples))
	for i, triple := range triples {
		quads[i] = NewQuad(triple.Subject, triple.Predicate, triple.Object, NewDefaultGraph())
	}
	return quads
}

// NTriplesIOParser parses N-Triples documents.
type NTriplesIOParser struct{}

func (p *NTriplesIOParser) ContentType() string {
	return "application/n-triples"
}

func (p *NTriplesIOParser) Parse(reader io.Reader) ([]*Quad, error) {
	input, err := readAll(reader)
	if err != nil {
		return nil, err
	}
	triples, err := NewNTriplesParser(input).Parse()
	if err != nil {
		return nil, fmt.Errorf("error parsing N-Triples: %w", err)
	}
	return triplesToQuads(triples), nil
}

// NQuadsIOParser parses N-Quads documents.
type NQuadsIOParser struct{}

func (p *NQuadsIOParser) ContentType() string {
	return "application/n-quads"
}

func (p *NQuadsIOParser) Parse(reader io.Reader) ([]*Quad, error) {
	input, err := readAll(reader)
	if err != nil {
		return nil, err
	}
	quads, err := NewNQuadsParser(input).Parse()
	if err != nil {
		return nil, fmt.Errorf("error parsing N-Quads: %w", err)
	}
	return quads, nil
}

// TurtleIOParser parses Turtle documents into the default graph.
type TurtleIOParser struct{}

func (p *TurtleIOParser) ContentType() string {
	return "text/turtle"
}

func (p *TurtleIOParser) Parse(reader io.Reader) ([]*Quad, error) {
	input, err := readAll(reader)
	if err != nil {
		return nil, err
	}
	triples, err := NewTurtleParser(input).Parse()
	if err != nil {
		return nil, fmt.Errorf("error parsing Turtle: %w", err)
	}
	return triplesToQuads(triples), nil
}

// TriGIOParser parses TriG documents.
type TriGIOParser struct{}

func (p *TriGIOParser) ContentType() string {
	return "application/trig"
}

func (p *TriGIOParser) Parse(reader io.Reader) ([]*Quad, error) {
	input, err := readAll(reader)
	if err != nil {
		return nil, err
	}
	quads, err := NewTriGParser(input).Parse()
	if err != nil {
		return nil, fmt.Errorf("error parsing TriG: %w", err)
	}
	return quads, nil
}
