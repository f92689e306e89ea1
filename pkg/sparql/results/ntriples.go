package results

import (
	"strings"

	"github.com/gtfierro/rdflib/pkg/rdf"
)

// N-Triples
// https://www.w3.org/TR/n-triples/

// SerializeTriplesNTriples renders a CONSTRUCT or DESCRIBE graph as
// N-Triples, one triple per line.
func SerializeTriplesNTriples(triples []*rdf.Triple) ([]byte, error) {
	var b strings.Builder
	for _, t := range triples {
		writeNTriplesTerm(&b, t.Subject)
		b.WriteString(" ")
		writeNTriplesTerm(&b, t.Predicate)
		b.WriteString(" ")
		writeNTriplesTerm(&b, t.Object)
		b.WriteString(" .\n")
	}
	return []byte(b.String()), nil
}

func writeNTriplesTerm(b *strings.Builder, term rdf.Term) {
	switch t := term.(type) {
	case *rdf.IRI:
		b.WriteString("<" + t.Value + ">")

	case *rdf.BlankNode:
		b.WriteString("_:" + t.ID)

	case *rdf.Literal:
		b.WriteString("\"" + escapeNTriples(t.Lexical) + "\"")
		if t.Language != "" {
			b.WriteString("@" + t.Language)
		} else if t.Datatype != nil && !t.Datatype.Equals(rdf.XSDString) {
			b.WriteString("^^<" + t.Datatype.Value + ">")
		}

	default:
		b.WriteString(term.String())
	}
}

var ntriplesEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"\"", "\\\"",
	"\n", "\\n",
	"\r", "\\r",
	"\t", "\\t",
)

func escapeNTriples(s string) string {
	return ntriplesEscaper.Replace(s)
}
