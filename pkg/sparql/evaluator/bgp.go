package evaluator

import (
	"context"

	"github.com/gtfierro/rdflib/pkg/dataset"
	"github.com/gtfierro/rdflib/pkg/rdf"
	"github.com/gtfierro/rdflib/pkg/sparql/algebra"
	"github.com/gtfierro/rdflib/pkg/sparql/parser"
)

// evalBGP lowers a basic graph pattern into a chain of index scans,
// one per triple pattern, seeded with the unit solution. An empty BGP
// is the unit pattern.
func (e *Evaluator) evalBGP(ctx context.Context, node *algebra.Node) (Sequence, error) {
	seq := unitSequence()
	for _, p := range node.Patterns {
		seq = &scanSequence{ctx: ctx, e: e, input: seq, pattern: p}
	}
	return seq, nil
}

// scanSequence matches one triple pattern against the dataset for every
// input solution, substituting bound variables.
type scanSequence struct {
	ctx     context.Context
	e       *Evaluator
	input   Sequence
	pattern *parser.TriplePattern

	inputSol Solution
	it       dataset.QuadIterator
	seen     map[string]bool
	vars     positionVars
	current  Solution
	err      error
}

// positionVars holds the variable name (or "") for each of the three
// triple positions.
type positionVars [3]string

func (s *scanSequence) Next() bool {
	if s.err != nil {
		return false
	}
	for {
		if s.it == nil {
			if !s.input.Next() {
				s.err = s.input.Err()
				return false
			}
			s.inputSol = s.input.Solution()

			sub, subVar := resolvePosition(s.pattern.Subject, s.inputSol)
			pred, predVar := resolvePosition(s.pattern.Predicate, s.inputSol)
			obj, objVar := resolvePosition(s.pattern.Object, s.inputSol)

			graph, dedupe := s.matchScope()
			it, err := s.e.Dataset.Match(s.ctx, sub, pred, obj, graph)
			if err != nil {
				s.err = err
				return false
			}
			s.it = it
			s.seen = nil
			if dedupe {
				s.seen = make(map[string]bool)
			}
			s.vars = [3]string{subVar, predVar, objVar}
		}

		for s.it.Next() {
			q, err := s.it.Quad()
			if err != nil {
				s.err = err
				return false
			}
			if s.seen != nil {
				key := q.Subject.String() + " " + q.Predicate.String() + " " + q.Object.String()
				if s.seen[key] {
					continue
				}
				s.seen[key] = true
			}
			if sol, ok := bindQuad(s.inputSol, s.vars, q); ok {
				s.current = sol
				return true
			}
		}
		s.it.Close()
		s.it = nil
	}
}

func (s *scanSequence) Solution() Solution { return s.current }
func (s *scanSequence) Err() error         { return s.err }
func (s *scanSequence) Close() {
	if s.it != nil {
		s.it.Close()
	}
	s.input.Close()
}

// matchScope maps the active GRAPH scope and the union flag to the
// Match graph argument, and says whether cross-graph duplicates must be
// suppressed.
func (s *scanSequence) matchScope() (rdf.Term, bool) {
	if g := s.e.activeGraph; g != nil {
		return g, false
	}
	if s.e.UnionDefaultGraph {
		// The union of every graph; the same triple in two graphs is
		// still one triple.
		return nil, true
	}
	return rdf.NewDefaultGraph(), false
}

// resolvePosition substitutes a pattern position against a solution.
// It returns the concrete term to match (nil for a wildcard) and the
// variable name to bind ("" when the position is ground). Blank nodes
// in patterns act as non-distinguished variables.
func resolvePosition(tov parser.TermOrVariable, sol Solution) (rdf.Term, string) {
	var name string
	switch {
	case tov.IsVariable():
		name = tov.Variable.Name
	default:
		if b, ok := tov.Term.(*rdf.BlankNode); ok {
			name = "_:" + b.ID
		} else {
			return tov.Term, ""
		}
	}
	if t, ok := sol[name]; ok {
		return t, ""
	}
	return nil, name
}

// bindQuad extends a solution with the matched quad's terms. It fails
// when one variable occupies two positions with different terms.
func bindQuad(sol Solution, vars positionVars, q *rdf.Quad) (Solution, bool) {
	out := sol.Copy()
	actuals := [3]rdf.Term{q.Subject, q.Predicate, q.Object}
	for i, name := range vars {
		if name == "" {
			continue
		}
		if prev, ok := out[name]; ok {
			if !prev.Equals(actuals[i]) {
				return nil, false
			}
			continue
		}
		out[name] = actuals[i]
	}
	return out, true
}
