package results

import (
	"encoding/json"

	"github.com/gtfierro/rdflib/pkg/rdf"
	"github.com/gtfierro/rdflib/pkg/sparql/evaluator"
)

// SPARQL 1.1 Query Results JSON Format
// https://www.w3.org/TR/sparql11-results-json/

type jsonResults struct {
	Head    jsonHead      `json:"head"`
	Results *jsonBindings `json:"results,omitempty"`
	Boolean *bool         `json:"boolean,omitempty"`
}

type jsonHead struct {
	Vars []string `json:"vars"`
}

type jsonBindings struct {
	Bindings []map[string]jsonTerm `json:"bindings"`
}

type jsonTerm struct {
	Type     string  `json:"type"`
	Value    string  `json:"value"`
	Datatype *string `json:"datatype,omitempty"`
	XMLLang  *string `json:"xml:lang,omitempty"`
}

// SerializeSolutionsJSON renders a solution sequence as SPARQL JSON.
func SerializeSolutionsJSON(variables []string, solutions []evaluator.Solution) ([]byte, error) {
	bindings := make([]map[string]jsonTerm, 0, len(solutions))
	for _, sol := range solutions {
		row := make(map[string]jsonTerm)
		for _, name := range variables {
			if term, ok := sol.Get(name); ok {
				row[name] = termToJSON(term)
			}
		}
		bindings = append(bindings, row)
	}

	out := jsonResults{
		Head:    jsonHead{Vars: headVars(variables)},
		Results: &jsonBindings{Bindings: bindings},
	}
	return json.MarshalIndent(out, "", "  ")
}

// SerializeBooleanJSON renders an ASK result as SPARQL JSON.
func SerializeBooleanJSON(value bool) ([]byte, error) {
	out := jsonResults{
		Head:    jsonHead{Vars: []string{}},
		Boolean: &value,
	}
	return json.MarshalIndent(out, "", "  ")
}

// headVars never marshals as null, even for zero projected variables.
func headVars(variables []string) []string {
	if variables == nil {
		return []string{}
	}
	return variables
}

func termToJSON(term rdf.Term) jsonTerm {
	switch t := term.(type) {
	case *rdf.IRI:
		return jsonTerm{Type: "uri", Value: t.Value}

	case *rdf.BlankNode:
		return jsonTerm{Type: "bnode", Value: t.ID}

	case *rdf.Literal:
		out := jsonTerm{Type: "literal", Value: t.Lexical}
		if t.Language != "" {
			lang := t.Language
			out.XMLLang = &lang
		} else if t.Datatype != nil && !t.Datatype.Equals(rdf.XSDString) {
			dt := t.Datatype.Value
			out.Datatype = &dt
		}
		return out

	default:
		return jsonTerm{Type: "literal", Value: term.String()}
	}
}
