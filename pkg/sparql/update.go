package sparql

import (
	"context"
	"errors"
	"fmt"

	"github.com/gtfierro/rdflib/pkg/dataset"
	"github.com/gtfierro/rdflib/pkg/rdf"
	"github.com/gtfierro/rdflib/pkg/sparql/algebra"
	"github.com/gtfierro/rdflib/pkg/sparql/evaluator"
	"github.com/gtfierro/rdflib/pkg/sparql/parser"
)

// ErrLoadDisabled is returned by LOAD and remote dataset clauses when
// external graph loading is switched off.
var ErrLoadDisabled = errors.New("external graph loading is disabled")

// Update executes update text against the dataset. Convenience for
// PrepareUpdate + ProcessUpdate.
func (p *Processor) Update(ctx context.Context, text string) error {
	prepared, err := PrepareUpdate(text)
	if err != nil {
		return err
	}
	return p.ProcessUpdate(ctx, prepared)
}

// ProcessUpdate applies each operation in order. A failing operation
// aborts the batch at that point; operations already applied stay
// applied.
func (p *Processor) ProcessUpdate(ctx context.Context, prepared *PreparedUpdate) error {
	cfg := CurrentConfig()
	for _, op := range prepared.Update.Operations {
		if err := p.applyOperation(ctx, op, cfg); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) applyOperation(ctx context.Context, op parser.UpdateOperation, cfg Config) error {
	switch o := op.(type) {
	case *parser.InsertData:
		return p.insertData(ctx, o.Quads)
	case *parser.DeleteData:
		return p.deleteData(ctx, o.Quads)
	case *parser.Modify:
		return p.modify(ctx, o, cfg)
	case *parser.Load:
		return p.load(ctx, o, cfg)
	case *parser.Clear:
		return silenced(o.Silent, p.clearScope(ctx, o.Target, false))
	case *parser.Drop:
		return silenced(o.Silent, p.clearScope(ctx, o.Target, true))
	case *parser.Create:
		return silenced(o.Silent, p.ds.Create(ctx, o.Graph))
	case *parser.Copy:
		return silenced(o.Silent, p.transfer(ctx, o.From, o.To, true, true))
	case *parser.Move:
		return silenced(o.Silent, p.moveGraph(ctx, o.From, o.To))
	case *parser.AddOp:
		return silenced(o.Silent, p.transfer(ctx, o.From, o.To, false, false))
	}
	return fmt.Errorf("unknown update operation %T", op)
}

func silenced(silent bool, err error) error {
	if silent {
		return nil
	}
	return err
}

// groundQuads instantiates INSERT DATA / DELETE DATA quad patterns.
// Blank nodes are renamed once per operation.
func groundQuads(patterns []*parser.QuadPattern) ([]*rdf.Quad, error) {
	bnodes := map[string]*rdf.BlankNode{}
	quads := make([]*rdf.Quad, 0, len(patterns))
	for _, qp := range patterns {
		s := renameBlank(qp.Triple.Subject.Term, bnodes)
		pr := qp.Triple.Predicate.Term
		o := renameBlank(qp.Triple.Object.Term, bnodes)
		var graph rdf.Term
		if qp.Graph != nil {
			graph = qp.Graph.Term
		}
		if !validTriple(s, pr, o) {
			return nil, fmt.Errorf("invalid quad in data block")
		}
		quads = append(quads, rdf.NewQuad(s, pr, o, graph))
	}
	return quads, nil
}

func renameBlank(t rdf.Term, bnodes map[string]*rdf.BlankNode) rdf.Term {
	bn, ok := t.(*rdf.BlankNode)
	if !ok {
		return t
	}
	fresh, exists := bnodes[bn.ID]
	if !exists {
		fresh = rdf.FreshBlankNode()
		bnodes[bn.ID] = fresh
	}
	return fresh
}

func (p *Processor) insertData(ctx context.Context, patterns []*parser.QuadPattern) error {
	quads, err := groundQuads(patterns)
	if err != nil {
		return err
	}
	return p.ds.Add(ctx, quads...)
}

func (p *Processor) deleteData(ctx context.Context, patterns []*parser.QuadPattern) error {
	quads, err := groundQuads(patterns)
	if err != nil {
		return err
	}
	return p.ds.Remove(ctx, quads...)
}

// modify runs the WHERE pattern and applies the DELETE templates before
// the INSERT templates, as a single operation.
func (p *Processor) modify(ctx context.Context, m *parser.Modify, cfg Config) error {
	if err := p.loadDatasetClauses(ctx, m.Using, cfg); err != nil {
		return err
	}

	node, err := algebra.TranslatePattern(m.Where)
	if err != nil {
		return err
	}

	e := evaluator.New(p.ds)
	e.UnionDefaultGraph = cfg.DefaultGraphIsUnion
	// WITH scopes the WHERE pattern unless USING overrides the dataset.
	if m.With != nil && len(m.Using) == 0 {
		e = e.WithGraph(m.With)
	}

	seq, err := e.Evaluate(ctx, node)
	if err != nil {
		return err
	}
	sols, err := evaluator.Collect(seq)
	if err != nil {
		return err
	}

	deletes := instantiateQuads(m.Delete, sols, m.With, false)
	inserts := instantiateQuads(m.Insert, sols, m.With, true)
	if err := p.ds.Remove(ctx, deletes...); err != nil {
		return err
	}
	return p.ds.Add(ctx, inserts...)
}

// instantiateQuads applies each solution to the quad templates. With
// names the target graph for templates outside GRAPH. Template blank
// nodes are renamed per solution in INSERT templates.
func instantiateQuads(templates []*parser.QuadPattern, sols []evaluator.Solution, with *rdf.IRI, freshBlanks bool) []*rdf.Quad {
	var out []*rdf.Quad
	for _, sol := range sols {
		bnodes := map[string]*rdf.BlankNode{}
		for _, qp := range templates {
			s := resolveUpdateTerm(qp.Triple.Subject, sol, bnodes, freshBlanks)
			pr := resolveUpdateTerm(qp.Triple.Predicate, sol, bnodes, freshBlanks)
			o := resolveUpdateTerm(qp.Triple.Object, sol, bnodes, freshBlanks)
			if !validTriple(s, pr, o) {
				continue
			}
			var graph rdf.Term
			if qp.Graph != nil {
				if qp.Graph.IsVariable() {
					g, ok := sol.Get(qp.Graph.Variable.Name)
					if !ok {
						continue
					}
					graph = g
				} else {
					graph = qp.Graph.Term
				}
			} else if with != nil {
				graph = with
			}
			out = append(out, rdf.NewQuad(s, pr, o, graph))
		}
	}
	return out
}

func resolveUpdateTerm(tov parser.TermOrVariable, sol evaluator.Solution, bnodes map[string]*rdf.BlankNode, freshBlanks bool) rdf.Term {
	if tov.IsVariable() {
		t, _ := sol.Get(tov.Variable.Name)
		return t
	}
	if freshBlanks {
		return renameBlank(tov.Term, bnodes)
	}
	return tov.Term
}

func (p *Processor) load(ctx context.Context, l *parser.Load, cfg Config) error {
	if !cfg.LoadExternalGraphs || p.loader == nil {
		return silenced(l.Silent, fmt.Errorf("LOAD %s: %w", l.Source.Value, ErrLoadDisabled))
	}
	quads, err := p.loader.Load(ctx, l.Source)
	if err != nil {
		return silenced(l.Silent, fmt.Errorf("LOAD %s: %w", l.Source.Value, err))
	}
	targets := make([]*rdf.Quad, 0, len(quads))
	for _, q := range quads {
		var graph rdf.Term
		if l.Into != nil {
			graph = l.Into
		}
		targets = append(targets, rdf.NewQuad(q.Subject, q.Predicate, q.Object, graph))
	}
	return silenced(l.Silent, p.ds.Add(ctx, targets...))
}

// clearScope is CLEAR (drop=false) or DROP (drop=true) over a graph
// reference.
func (p *Processor) clearScope(ctx context.Context, ref parser.GraphRef, drop bool) error {
	apply := p.ds.Clear
	if drop {
		apply = p.ds.Drop
	}
	switch ref.Kind {
	case parser.GraphRefDefault:
		return apply(ctx, &rdf.DefaultGraph{})
	case parser.GraphRefAll:
		return apply(ctx, nil)
	case parser.GraphRefNamed:
		graphs, err := p.ds.Graphs(ctx)
		if err != nil {
			return err
		}
		for _, g := range graphs {
			if err := apply(ctx, g); err != nil {
				return err
			}
		}
		return nil
	case parser.GraphRefGraph:
		return apply(ctx, ref.Graph)
	}
	return fmt.Errorf("invalid graph reference")
}

func graphRefTerm(ref parser.GraphRef) rdf.Term {
	if ref.Kind == parser.GraphRefGraph {
		return ref.Graph
	}
	return &rdf.DefaultGraph{}
}

// transfer copies the source graph's triples into the destination.
// COPY clears the destination first and requires the source to exist;
// ADD appends and treats a missing source as empty.
func (p *Processor) transfer(ctx context.Context, from, to parser.GraphRef, clearFirst, requireSource bool) error {
	fromTerm := graphRefTerm(from)
	toTerm := graphRefTerm(to)
	if fromTerm.Equals(toTerm) {
		return nil
	}

	if requireSource {
		if g, ok := fromTerm.(*rdf.IRI); ok {
			exists, err := p.graphExists(ctx, g)
			if err != nil {
				return err
			}
			if !exists {
				return dataset.ErrGraphNotFound
			}
		}
	}

	it, err := p.ds.Match(ctx, nil, nil, nil, fromTerm)
	if err != nil {
		return err
	}
	quads, err := dataset.CollectQuads(it)
	if err != nil {
		return err
	}

	if clearFirst {
		if err := p.ds.Drop(ctx, toTerm); err != nil && !errors.Is(err, dataset.ErrGraphNotFound) {
			return err
		}
	}

	var graph rdf.Term
	if g, ok := toTerm.(*rdf.IRI); ok {
		graph = g
	}
	targets := make([]*rdf.Quad, 0, len(quads))
	for _, q := range quads {
		targets = append(targets, rdf.NewQuad(q.Subject, q.Predicate, q.Object, graph))
	}
	return p.ds.Add(ctx, targets...)
}

func (p *Processor) moveGraph(ctx context.Context, from, to parser.GraphRef) error {
	if graphRefTerm(from).Equals(graphRefTerm(to)) {
		return nil
	}
	if err := p.transfer(ctx, from, to, true, true); err != nil {
		return err
	}
	return p.ds.Drop(ctx, graphRefTerm(from))
}

func (p *Processor) graphExists(ctx context.Context, graph *rdf.IRI) (bool, error) {
	graphs, err := p.ds.Graphs(ctx)
	if err != nil {
		return false, err
	}
	for _, g := range graphs {
		if g.Equals(graph) {
			return true, nil
		}
	}
	return false, nil
}
