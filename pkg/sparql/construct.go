package sparql

import (
	"context"

	"github.com/gtfierro/rdflib/pkg/dataset"
	"github.com/gtfierro/rdflib/pkg/rdf"
	"github.com/gtfierro/rdflib/pkg/sparql/algebra"
	"github.com/gtfierro/rdflib/pkg/sparql/evaluator"
	"github.com/gtfierro/rdflib/pkg/sparql/parser"
)

// instantiateTemplate applies each solution to the CONSTRUCT template.
// Template blank nodes are renamed per solution. Triples left with an
// unbound variable or an invalid position are skipped, and duplicates
// are dropped.
func instantiateTemplate(template []*parser.TriplePattern, sols []evaluator.Solution) []*rdf.Triple {
	var out []*rdf.Triple
	seen := map[string]bool{}
	for _, sol := range sols {
		bnodes := map[string]*rdf.BlankNode{}
		for _, tp := range template {
			s := resolveTemplateTerm(tp.Subject, sol, bnodes)
			p := resolveTemplateTerm(tp.Predicate, sol, bnodes)
			o := resolveTemplateTerm(tp.Object, sol, bnodes)
			if !validTriple(s, p, o) {
				continue
			}
			triple := rdf.NewTriple(s, p, o)
			key := s.String() + " " + p.String() + " " + o.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, triple)
		}
	}
	return out
}

func resolveTemplateTerm(tov parser.TermOrVariable, sol evaluator.Solution, bnodes map[string]*rdf.BlankNode) rdf.Term {
	if tov.IsVariable() {
		t, _ := sol.Get(tov.Variable.Name)
		return t
	}
	if bn, ok := tov.Term.(*rdf.BlankNode); ok {
		fresh, exists := bnodes[bn.ID]
		if !exists {
			fresh = rdf.FreshBlankNode()
			bnodes[bn.ID] = fresh
		}
		return fresh
	}
	return tov.Term
}

func validTriple(s, p, o rdf.Term) bool {
	if s == nil || p == nil || o == nil {
		return false
	}
	switch s.(type) {
	case *rdf.IRI, *rdf.BlankNode:
	default:
		return false
	}
	_, ok := p.(*rdf.IRI)
	return ok
}

// describe emits the concise bounded description of each resource: its
// outgoing triples, expanded transitively through blank node objects.
func (p *Processor) describe(ctx context.Context, e *evaluator.Evaluator, prepared *PreparedQuery, node *algebra.Node) (*Result, error) {
	dq := prepared.Query.Describe

	resources := make([]rdf.Term, 0, len(dq.Resources))
	resources = append(resources, dq.Resources...)

	if dq.Where != nil {
		sols, err := evaluate(ctx, e, node)
		if err != nil {
			return nil, err
		}
		seen := map[string]bool{}
		for _, sol := range sols {
			for _, v := range dq.Variables {
				t, ok := sol.Get(v.Name)
				if !ok || seen[t.String()] {
					continue
				}
				seen[t.String()] = true
				resources = append(resources, t)
			}
		}
	}

	var triples []*rdf.Triple
	seen := map[string]bool{}
	for _, r := range resources {
		described, err := p.boundedDescription(ctx, r)
		if err != nil {
			return nil, err
		}
		for _, t := range described {
			key := t.Subject.String() + " " + t.Predicate.String() + " " + t.Object.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			triples = append(triples, t)
		}
	}
	return &Result{Kind: parser.QueryKindDescribe, Triples: triples}, nil
}

func (p *Processor) boundedDescription(ctx context.Context, resource rdf.Term) ([]*rdf.Triple, error) {
	var out []*rdf.Triple
	visited := map[string]bool{}
	frontier := []rdf.Term{resource}
	for len(frontier) > 0 {
		subject := frontier[0]
		frontier = frontier[1:]
		if visited[subject.String()] {
			continue
		}
		visited[subject.String()] = true

		it, err := p.ds.Match(ctx, subject, nil, nil, nil)
		if err != nil {
			return nil, err
		}
		quads, err := dataset.CollectQuads(it)
		if err != nil {
			return nil, err
		}
		for _, q := range quads {
			out = append(out, rdf.NewTriple(q.Subject, q.Predicate, q.Object))
			if bn, ok := q.Object.(*rdf.BlankNode); ok && !visited[bn.String()] {
				frontier = append(frontier, bn)
			}
		}
	}
	return out, nil
}
