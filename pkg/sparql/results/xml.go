package results

import (
	"strings"

	"github.com/gtfierro/rdflib/pkg/rdf"
	"github.com/gtfierro/rdflib/pkg/sparql/evaluator"
)

// SPARQL Query Results XML Format
// https://www.w3.org/TR/rdf-sparql-XMLres/

const xmlHeader = `<?xml version="1.0"?>
<sparql xmlns="http://www.w3.org/2005/sparql-results#">
`

// SerializeSolutionsXML renders a solution sequence as SPARQL XML.
func SerializeSolutionsXML(variables []string, solutions []evaluator.Solution) ([]byte, error) {
	var b strings.Builder
	b.WriteString(xmlHeader)

	b.WriteString("  <head>\n")
	for _, name := range variables {
		b.WriteString("    <variable name=\"" + xmlEscape(name) + "\"/>\n")
	}
	b.WriteString("  </head>\n  <results>\n")

	for _, sol := range solutions {
		b.WriteString("    <result>\n")
		for _, name := range variables {
			term, ok := sol.Get(name)
			if !ok {
				continue
			}
			b.WriteString("      <binding name=\"" + xmlEscape(name) + "\">\n")
			writeTermXML(&b, term, "        ")
			b.WriteString("      </binding>\n")
		}
		b.WriteString("    </result>\n")
	}

	b.WriteString("  </results>\n</sparql>\n")
	return []byte(b.String()), nil
}

// SerializeBooleanXML renders an ASK result as SPARQL XML.
func SerializeBooleanXML(value bool) ([]byte, error) {
	boolStr := "false"
	if value {
		boolStr = "true"
	}
	return []byte(xmlHeader + "  <head/>\n  <boolean>" + boolStr + "</boolean>\n</sparql>\n"), nil
}

func writeTermXML(b *strings.Builder, term rdf.Term, indent string) {
	switch t := term.(type) {
	case *rdf.IRI:
		b.WriteString(indent + "<uri>" + xmlEscape(t.Value) + "</uri>\n")

	case *rdf.BlankNode:
		b.WriteString(indent + "<bnode>" + xmlEscape(t.ID) + "</bnode>\n")

	case *rdf.Literal:
		switch {
		case t.Language != "":
			b.WriteString(indent + "<literal xml:lang=\"" + xmlEscape(t.Language) + "\">" + xmlEscape(t.Lexical) + "</literal>\n")
		case t.Datatype != nil && !t.Datatype.Equals(rdf.XSDString):
			b.WriteString(indent + "<literal datatype=\"" + xmlEscape(t.Datatype.Value) + "\">" + xmlEscape(t.Lexical) + "</literal>\n")
		default:
			b.WriteString(indent + "<literal>" + xmlEscape(t.Lexical) + "</literal>\n")
		}

	default:
		b.WriteString(indent + "<literal>" + xmlEscape(term.String()) + "</literal>\n")
	}
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\"", "&quot;",
	"'", "&apos;",
)

func xmlEscape(s string) string {
	return xmlEscaper.Replace(s)
}
