package results

import (
	"encoding/csv"
	"strings"

	"github.com/gtfierro/rdflib/pkg/rdf"
	"github.com/gtfierro/rdflib/pkg/sparql/evaluator"
)

// SPARQL 1.1 Query Results CSV and TSV Formats
// https://www.w3.org/TR/sparql11-results-csv-tsv/

// SerializeSolutionsCSV renders a solution sequence as SPARQL CSV.
// Terms are written bare: IRIs without angle brackets, literals
// without quotes or datatypes, blank nodes as _:label.
func SerializeSolutionsCSV(variables []string, solutions []evaluator.Solution) ([]byte, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)

	if err := w.Write(variables); err != nil {
		return nil, err
	}
	for _, sol := range solutions {
		row := make([]string, len(variables))
		for i, name := range variables {
			if term, ok := sol.Get(name); ok {
				row[i] = termToCSV(term)
			}
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

// SerializeBooleanCSV renders an ASK result as SPARQL CSV.
func SerializeBooleanCSV(value bool) ([]byte, error) {
	out := "result\nfalse\n"
	if value {
		out = "result\ntrue\n"
	}
	return []byte(out), nil
}

func termToCSV(term rdf.Term) string {
	switch t := term.(type) {
	case *rdf.IRI:
		return t.Value
	case *rdf.BlankNode:
		return "_:" + t.ID
	case *rdf.Literal:
		return t.Lexical
	}
	return term.String()
}

// SerializeSolutionsTSV renders a solution sequence as SPARQL TSV.
// Unlike CSV, TSV keeps full term syntax so results parse back
// unambiguously.
func SerializeSolutionsTSV(variables []string, solutions []evaluator.Solution) ([]byte, error) {
	var b strings.Builder

	for i, name := range variables {
		if i > 0 {
			b.WriteString("\t")
		}
		b.WriteString("?" + name)
	}
	b.WriteString("\n")

	for _, sol := range solutions {
		for i, name := range variables {
			if i > 0 {
				b.WriteString("\t")
			}
			if term, ok := sol.Get(name); ok {
				b.WriteString(termToTSV(term))
			}
		}
		b.WriteString("\n")
	}
	return []byte(b.String()), nil
}

// SerializeBooleanTSV renders an ASK result as SPARQL TSV.
func SerializeBooleanTSV(value bool) ([]byte, error) {
	out := "?result\nfalse\n"
	if value {
		out = "?result\ntrue\n"
	}
	return []byte(out), nil
}

func termToTSV(term rdf.Term) string {
	switch t := term.(type) {
	case *rdf.IRI:
		return "<" + t.Value + ">"

	case *rdf.BlankNode:
		return "_:" + t.ID

	case *rdf.Literal:
		if t.Language != "" {
			return "\"" + escapeTSV(t.Lexical) + "\"@" + t.Language
		}
		if t.Datatype != nil && !t.Datatype.Equals(rdf.XSDString) {
			// Numeric literals are written bare per the format's
			// examples.
			if t.Datatype.Equals(rdf.XSDInteger) || t.Datatype.Equals(rdf.XSDDecimal) || t.Datatype.Equals(rdf.XSDDouble) {
				return t.Lexical
			}
			return "\"" + escapeTSV(t.Lexical) + "\"^^<" + t.Datatype.Value + ">"
		}
		return "\"" + escapeTSV(t.Lexical) + "\""
	}
	return term.String()
}

var tsvEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"\t", "\\t",
	"\n", "\\n",
	"\r", "\\r",
	"\"", "\\\"",
)

func escapeTSV(s string) string {
	return tsvEscaper.Replace(s)
}
