// Package dataset defines the quad storage abstraction the SPARQL
// engine evaluates against, plus an in-memory implementation.
package dataset

import (
	"context"
	"errors"

	"github.com/gtfierro/rdflib/pkg/rdf"
)

var (
	// ErrGraphNotFound is returned by non-silent graph management
	// operations targeting a graph that does not exist.
	ErrGraphNotFound = errors.New("graph not found")
)

// QuadIterator iterates over quads matching a pattern.
type QuadIterator interface {
	Next() bool
	Quad() (*rdf.Quad, error)
	Close() error
}

// Dataset is an RDF dataset: one default graph plus zero or more named
// graphs. Implementations have set semantics per graph.
//
// Match treats nil subject/predicate/object as wildcards. The graph
// argument selects scope: nil matches every graph including the
// default, *rdf.DefaultGraph matches the default graph only, and an
// *rdf.IRI matches that named graph.
type Dataset interface {
	Match(ctx context.Context, subject, predicate, object, graph rdf.Term) (QuadIterator, error)
	Add(ctx context.Context, quads ...*rdf.Quad) error
	Remove(ctx context.Context, quads ...*rdf.Quad) error

	// Graphs lists the named graphs. Empty graphs created with Create
	// are included.
	Graphs(ctx context.Context) ([]*rdf.IRI, error)

	// Create registers an empty named graph. Creating an existing graph
	// is an error.
	Create(ctx context.Context, graph *rdf.IRI) error

	// Clear removes all quads in scope; the graph argument follows the
	// Match convention. Cleared named graphs remain registered.
	Clear(ctx context.Context, graph rdf.Term) error

	// Drop removes the quads and, for named graphs, the registration.
	Drop(ctx context.Context, graph rdf.Term) error

	Close() error
}

// CollectQuads drains an iterator into a slice.
func CollectQuads(it QuadIterator) ([]*rdf.Quad, error) {
	defer it.Close()
	var quads []*rdf.Quad
	for it.Next() {
		q, err := it.Quad()
		if err != nil {
			return nil, err
		}
		quads = append(quads, q)
	}
	return quads, nil
}
