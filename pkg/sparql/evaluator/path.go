package evaluator

import (
	"context"

	"github.com/gtfierro/rdflib/pkg/dataset"
	"github.com/gtfierro/rdflib/pkg/rdf"
	"github.com/gtfierro/rdflib/pkg/sparql/algebra"
	"github.com/gtfierro/rdflib/pkg/sparql/parser"
)

// evalPath materializes the solutions of a property path pattern.
// Closure paths carry visited sets, so cyclic data terminates.
func (e *Evaluator) evalPath(ctx context.Context, node *algebra.Node) (Sequence, error) {
	subTerm, subVar := resolvePosition(node.Subject, nil)
	objTerm, objVar := resolvePosition(node.Object, nil)

	var solutions []Solution
	emit := func(s, o rdf.Term) {
		sol := NewSolution()
		if subVar != "" {
			sol[subVar] = s
		}
		if objVar != "" {
			if prev, ok := sol[objVar]; ok {
				// Same variable at both ends.
				if !prev.Equals(o) {
					return
				}
			} else {
				sol[objVar] = o
			}
		}
		solutions = append(solutions, sol)
	}

	switch {
	case subTerm != nil && objTerm != nil:
		targets, err := e.walkPath(ctx, node.PathExpr, subTerm, true)
		if err != nil {
			return nil, err
		}
		for _, t := range targets {
			if t.Equals(objTerm) {
				emit(subTerm, t)
				break
			}
		}

	case subTerm != nil:
		targets, err := e.walkPath(ctx, node.PathExpr, subTerm, true)
		if err != nil {
			return nil, err
		}
		for _, t := range targets {
			emit(subTerm, t)
		}

	case objTerm != nil:
		sources, err := e.walkPath(ctx, node.PathExpr, objTerm, false)
		if err != nil {
			return nil, err
		}
		for _, s := range sources {
			emit(s, objTerm)
		}

	default:
		starts, err := e.pathStartCandidates(ctx, node.PathExpr)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]bool)
		for _, start := range starts {
			targets, err := e.walkPath(ctx, node.PathExpr, start, true)
			if err != nil {
				return nil, err
			}
			for _, t := range targets {
				key := start.String() + "\x00" + t.String()
				if seen[key] {
					continue
				}
				seen[key] = true
				emit(start, t)
			}
		}
	}

	return newSliceSequence(solutions), nil
}

// walkPath returns the nodes reachable from start along the path.
// forward=false travels the path backwards, which answers "which
// sources reach this object".
func (e *Evaluator) walkPath(ctx context.Context, path *parser.Path, start rdf.Term, forward bool) ([]rdf.Term, error) {
	switch path.Kind {
	case parser.PathLink:
		return e.pathStep(ctx, start, path.IRI, forward)

	case parser.PathInverse:
		return e.walkPath(ctx, path.Children[0], start, !forward)

	case parser.PathSequence:
		children := path.Children
		frontier := []rdf.Term{start}
		for i := range children {
			child := children[i]
			if !forward {
				child = children[len(children)-1-i]
			}
			next := newTermSet()
			for _, node := range frontier {
				reached, err := e.walkPath(ctx, child, node, forward)
				if err != nil {
					return nil, err
				}
				next.addAll(reached)
			}
			frontier = next.slice()
			if len(frontier) == 0 {
				break
			}
		}
		return frontier, nil

	case parser.PathAlternative:
		out := newTermSet()
		for _, child := range path.Children {
			reached, err := e.walkPath(ctx, child, start, forward)
			if err != nil {
				return nil, err
			}
			out.addAll(reached)
		}
		return out.slice(), nil

	case parser.PathZeroOrOne:
		out := newTermSet()
		out.add(start)
		reached, err := e.walkPath(ctx, path.Children[0], start, forward)
		if err != nil {
			return nil, err
		}
		out.addAll(reached)
		return out.slice(), nil

	case parser.PathZeroOrMore:
		return e.pathClosure(ctx, path.Children[0], start, forward, true)

	case parser.PathOneOrMore:
		return e.pathClosure(ctx, path.Children[0], start, forward, false)

	case parser.PathNegated:
		return e.negatedStep(ctx, path, start, forward)
	}
	return nil, nil
}

// pathClosure is breadth-first reachability over one path step, with a
// visited set guarding against cycles.
func (e *Evaluator) pathClosure(ctx context.Context, step *parser.Path, start rdf.Term, forward, includeStart bool) ([]rdf.Term, error) {
	visited := newTermSet()
	out := newTermSet()
	if includeStart {
		out.add(start)
	}
	frontier := []rdf.Term{start}
	visited.add(start)

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var next []rdf.Term
		for _, node := range frontier {
			reached, err := e.walkPath(ctx, step, node, forward)
			if err != nil {
				return nil, err
			}
			for _, t := range reached {
				out.add(t)
				if visited.add(t) {
					next = append(next, t)
				}
			}
		}
		frontier = next
	}
	return out.slice(), nil
}

// pathStep follows a single predicate edge.
func (e *Evaluator) pathStep(ctx context.Context, start rdf.Term, pred *rdf.IRI, forward bool) ([]rdf.Term, error) {
	graph, _ := e.pathScope()
	var it dataset.QuadIterator
	var err error
	if forward {
		it, err = e.Dataset.Match(ctx, start, pred, nil, graph)
	} else {
		it, err = e.Dataset.Match(ctx, nil, pred, start, graph)
	}
	if err != nil {
		return nil, err
	}
	defer it.Close()

	out := newTermSet()
	for it.Next() {
		q, err := it.Quad()
		if err != nil {
			return nil, err
		}
		if forward {
			out.add(q.Object)
		} else {
			out.add(q.Subject)
		}
	}
	return out.slice(), nil
}

// negatedStep follows any single edge whose predicate is outside the
// negated set. Forward members constrain outgoing edges, inverse
// members incoming ones.
func (e *Evaluator) negatedStep(ctx context.Context, path *parser.Path, start rdf.Term, forward bool) ([]rdf.Term, error) {
	graph, _ := e.pathScope()
	out := newTermSet()

	collect := func(subject, object rdf.Term, excluded []*rdf.IRI, takeObject bool) error {
		it, err := e.Dataset.Match(ctx, subject, nil, object, graph)
		if err != nil {
			return err
		}
		defer it.Close()
		for it.Next() {
			q, err := it.Quad()
			if err != nil {
				return err
			}
			if predicateIn(q.Predicate, excluded) {
				continue
			}
			if takeObject {
				out.add(q.Object)
			} else {
				out.add(q.Subject)
			}
		}
		return nil
	}

	// Walking backwards swaps the edge directions, so the gates below
	// read the swapped sets: a plain !(p) walked from a bound object
	// scans the incoming edges of the start node.
	fwdSet, invSet := path.Forward, path.Inverse
	if !forward {
		fwdSet, invSet = invSet, fwdSet
	}
	if len(fwdSet) > 0 || len(invSet) == 0 {
		// Outgoing edges whose predicate is outside the set.
		if err := collect(start, nil, fwdSet, true); err != nil {
			return nil, err
		}
	}
	if len(invSet) > 0 {
		if err := collect(nil, start, invSet, false); err != nil {
			return nil, err
		}
	}
	return out.slice(), nil
}

func predicateIn(p rdf.Term, set []*rdf.IRI) bool {
	for _, iri := range set {
		if iri.Equals(p) {
			return true
		}
	}
	return false
}

// pathStartCandidates enumerates starting nodes when both path ends are
// variables: every subject, plus every node at all when the path can
// match with zero length.
func (e *Evaluator) pathStartCandidates(ctx context.Context, path *parser.Path) ([]rdf.Term, error) {
	graph, _ := e.pathScope()
	it, err := e.Dataset.Match(ctx, nil, nil, nil, graph)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	zero := zeroLengthPossible(path)
	out := newTermSet()
	for it.Next() {
		q, err := it.Quad()
		if err != nil {
			return nil, err
		}
		out.add(q.Subject)
		if zero {
			out.add(q.Object)
		}
	}
	return out.slice(), nil
}

func zeroLengthPossible(path *parser.Path) bool {
	switch path.Kind {
	case parser.PathZeroOrMore, parser.PathZeroOrOne:
		return true
	case parser.PathInverse:
		return zeroLengthPossible(path.Children[0])
	case parser.PathSequence:
		for _, c := range path.Children {
			if !zeroLengthPossible(c) {
				return false
			}
		}
		return true
	case parser.PathAlternative:
		for _, c := range path.Children {
			if zeroLengthPossible(c) {
				return true
			}
		}
	}
	return false
}

// pathScope mirrors the BGP scan's graph scoping.
func (e *Evaluator) pathScope() (rdf.Term, bool) {
	if g := e.activeGraph; g != nil {
		return g, false
	}
	if e.UnionDefaultGraph {
		return nil, true
	}
	return rdf.NewDefaultGraph(), false
}

// termSet is an insertion-ordered set of terms.
type termSet struct {
	seen  map[string]bool
	items []rdf.Term
}

func newTermSet() *termSet {
	return &termSet{seen: make(map[string]bool)}
}

func (s *termSet) add(t rdf.Term) bool {
	key := t.String()
	if s.seen[key] {
		return false
	}
	s.seen[key] = true
	s.items = append(s.items, t)
	return true
}

func (s *termSet) addAll(ts []rdf.Term) {
	for _, t := range ts {
		s.add(t)
	}
}

func (s *termSet) slice() []rdf.Term {
	return s.items
}
