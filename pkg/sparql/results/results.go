// Package results serializes query results into the W3C SPARQL 1.1
// result formats: JSON, XML, CSV and TSV for solution sequences and
// booleans, N-Triples for graphs.
package results

import (
	"fmt"

	"github.com/gtfierro/rdflib/pkg/sparql"
	"github.com/gtfierro/rdflib/pkg/sparql/parser"
)

// Format names a result serialization.
type Format string

const (
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
)

// ContentType returns the MIME type registered for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/sparql-results+json"
	case FormatXML:
		return "application/sparql-results+xml"
	case FormatCSV:
		return "text/csv"
	case FormatTSV:
		return "text/tab-separated-values"
	}
	return "application/octet-stream"
}

// Serialize renders a query result in the requested format.
// CONSTRUCT and DESCRIBE results are graphs, not solution sequences;
// they always serialize as N-Triples.
func Serialize(result *sparql.Result, format Format) ([]byte, error) {
	switch result.Kind {
	case parser.QueryKindConstruct, parser.QueryKindDescribe:
		return SerializeTriplesNTriples(result.Triples)

	case parser.QueryKindAsk:
		switch format {
		case FormatJSON:
			return SerializeBooleanJSON(result.Boolean)
		case FormatXML:
			return SerializeBooleanXML(result.Boolean)
		case FormatCSV:
			return SerializeBooleanCSV(result.Boolean)
		case FormatTSV:
			return SerializeBooleanTSV(result.Boolean)
		}

	case parser.QueryKindSelect:
		switch format {
		case FormatJSON:
			return SerializeSolutionsJSON(result.Variables, result.Solutions)
		case FormatXML:
			return SerializeSolutionsXML(result.Variables, result.Solutions)
		case FormatCSV:
			return SerializeSolutionsCSV(result.Variables, result.Solutions)
		case FormatTSV:
			return SerializeSolutionsTSV(result.Variables, result.Solutions)
		}
	}
	return nil, fmt.Errorf("unsupported result format %q", format)
}
