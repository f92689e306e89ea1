package dataset

import (
	"context"
	"fmt"
	"sync"

	"github.com/gtfierro/rdflib/pkg/rdf"
)

// MemoryDataset is a thread-safe in-memory Dataset.
type MemoryDataset struct {
	mu sync.RWMutex

	// Quads keyed by their string form for set semantics; one map for
	// the default graph and one per named graph.
	defaultGraph map[string]*rdf.Quad
	named        map[string]graphState
}

type graphState struct {
	name  *rdf.IRI
	quads map[string]*rdf.Quad
}

// NewMemoryDataset creates an empty in-memory dataset.
func NewMemoryDataset() *MemoryDataset {
	return &MemoryDataset{
		defaultGraph: make(map[string]*rdf.Quad),
		named:        make(map[string]graphState),
	}
}

func tripleKey(q *rdf.Quad) string {
	return q.Subject.String() + " " + q.Predicate.String() + " " + q.Object.String()
}

// graphOf normalizes a quad's graph position: nil means the default
// graph.
func graphOf(q *rdf.Quad) rdf.Term {
	if q.Graph == nil {
		return rdf.NewDefaultGraph()
	}
	return q.Graph
}

func (d *MemoryDataset) Add(ctx context.Context, quads ...*rdf.Quad) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, q := range quads {
		switch g := graphOf(q).(type) {
		case *rdf.DefaultGraph:
			d.defaultGraph[tripleKey(q)] = q
		case *rdf.IRI:
			state, ok := d.named[g.Value]
			if !ok {
				state = graphState{name: g, quads: make(map[string]*rdf.Quad)}
				d.named[g.Value] = state
			}
			state.quads[tripleKey(q)] = q
		default:
			return fmt.Errorf("invalid graph term %s in quad", g)
		}
	}
	return nil
}

func (d *MemoryDataset) Remove(ctx context.Context, quads ...*rdf.Quad) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, q := range quads {
		switch g := graphOf(q).(type) {
		case *rdf.DefaultGraph:
			delete(d.defaultGraph, tripleKey(q))
		case *rdf.IRI:
			if state, ok := d.named[g.Value]; ok {
				delete(state.quads, tripleKey(q))
			}
		default:
			return fmt.Errorf("invalid graph term %s in quad", g)
		}
	}
	return nil
}

func (d *MemoryDataset) Match(ctx context.Context, subject, predicate, object, graph rdf.Term) (QuadIterator, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var matched []*rdf.Quad
	scan := func(quads map[string]*rdf.Quad) {
		for _, q := range quads {
			if matchesTerm(subject, q.Subject) && matchesTerm(predicate, q.Predicate) && matchesTerm(object, q.Object) {
				matched = append(matched, q)
			}
		}
	}

	switch g := graph.(type) {
	case nil:
		scan(d.defaultGraph)
		for _, state := range d.named {
			scan(state.quads)
		}
	case *rdf.DefaultGraph:
		scan(d.defaultGraph)
	case *rdf.IRI:
		if state, ok := d.named[g.Value]; ok {
			scan(state.quads)
		}
	default:
		return nil, fmt.Errorf("invalid graph term %s in pattern", g)
	}

	return &sliceQuadIterator{quads: matched, pos: -1}, nil
}

func matchesTerm(pattern, actual rdf.Term) bool {
	return pattern == nil || pattern.Equals(actual)
}

func (d *MemoryDataset) Graphs(ctx context.Context) ([]*rdf.IRI, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	graphs := make([]*rdf.IRI, 0, len(d.named))
	for _, state := range d.named {
		graphs = append(graphs, state.name)
	}
	return graphs, nil
}

func (d *MemoryDataset) Create(ctx context.Context, graph *rdf.IRI) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.named[graph.Value]; ok {
		return fmt.Errorf("graph %s already exists", graph.Value)
	}
	d.named[graph.Value] = graphState{name: graph, quads: make(map[string]*rdf.Quad)}
	return nil
}

func (d *MemoryDataset) Clear(ctx context.Context, graph rdf.Term) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch g := graph.(type) {
	case nil:
		d.defaultGraph = make(map[string]*rdf.Quad)
		for name, state := range d.named {
			d.named[name] = graphState{name: state.name, quads: make(map[string]*rdf.Quad)}
		}
	case *rdf.DefaultGraph:
		d.defaultGraph = make(map[string]*rdf.Quad)
	case *rdf.IRI:
		state, ok := d.named[g.Value]
		if !ok {
			return ErrGraphNotFound
		}
		d.named[g.Value] = graphState{name: state.name, quads: make(map[string]*rdf.Quad)}
	default:
		return fmt.Errorf("invalid graph term %s", g)
	}
	return nil
}

func (d *MemoryDataset) Drop(ctx context.Context, graph rdf.Term) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch g := graph.(type) {
	case nil:
		d.defaultGraph = make(map[string]*rdf.Quad)
		d.named = make(map[string]graphState)
	case *rdf.DefaultGraph:
		// Dropping the default graph only empties it.
		d.defaultGraph = make(map[string]*rdf.Quad)
	case *rdf.IRI:
		if _, ok := d.named[g.Value]; !ok {
			return ErrGraphNotFound
		}
		delete(d.named, g.Value)
	default:
		return fmt.Errorf("invalid graph term %s", g)
	}
	return nil
}

func (d *MemoryDataset) Close() error {
	return nil
}

type sliceQuadIterator struct {
	quads []*rdf.Quad
	pos   int
}

func (it *sliceQuadIterator) Next() bool {
	it.pos++
	return it.pos < len(it.quads)
}

func (it *sliceQuadIterator) Quad() (*rdf.Quad, error) {
	return it.quads[it.pos], nil
}

func (it *sliceQuadIterator) Close() error {
	return nil
}
