package sparql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gtfierro/rdflib/pkg/dataset"
	"github.com/gtfierro/rdflib/pkg/rdf"
)

func countMatches(t *testing.T, p *Processor, s, pred, o, g rdf.Term) int {
	t.Helper()
	it, err := p.ds.Match(context.Background(), s, pred, o, g)
	require.NoError(t, err)
	quads, err := dataset.CollectQuads(it)
	require.NoError(t, err)
	return len(quads)
}

func TestInsertData(t *testing.T) {
	p := newProcessor(t)
	err := p.Update(context.Background(), `
		PREFIX ex: <http://example.org/>
		INSERT DATA {
			ex:a ex:p ex:b .
			GRAPH ex:g1 { ex:c ex:p ex:d }
		}`)
	require.NoError(t, err)
	require.Equal(t, 1, countMatches(t, p, nil, nil, nil, &rdf.DefaultGraph{}))
	require.Equal(t, 1, countMatches(t, p, nil, nil, nil, ex("g1")))
}

func TestInsertDataBlankNodesRenamed(t *testing.T) {
	p := newProcessor(t)
	err := p.Update(context.Background(), `
		PREFIX ex: <http://example.org/>
		INSERT DATA { _:x ex:p ex:a . _:x ex:p ex:b }`)
	require.NoError(t, err)
	it, err := p.ds.Match(context.Background(), nil, nil, nil, nil)
	require.NoError(t, err)
	quads, err := dataset.CollectQuads(it)
	require.NoError(t, err)
	require.Len(t, quads, 2)
	// The label is shared within one operation.
	require.True(t, quads[0].Subject.Equals(quads[1].Subject))
	// But never the parsed label itself.
	require.NotEqual(t, "x", quads[0].Subject.(*rdf.BlankNode).ID)
}

func TestDeleteData(t *testing.T) {
	p := newProcessor(t,
		rdf.NewQuad(ex("a"), ex("p"), ex("b"), nil),
		rdf.NewQuad(ex("a"), ex("p"), ex("c"), nil),
	)
	err := p.Update(context.Background(), `
		PREFIX ex: <http://example.org/>
		DELETE DATA { ex:a ex:p ex:b }`)
	require.NoError(t, err)
	require.Equal(t, 1, countMatches(t, p, nil, nil, nil, nil))
}

func TestDeleteInsertWhere(t *testing.T) {
	p := newProcessor(t,
		rdf.NewQuad(ex("alice"), ex("status"), rdf.NewLiteral("active"), nil),
		rdf.NewQuad(ex("bob"), ex("status"), rdf.NewLiteral("active"), nil),
	)
	err := p.Update(context.Background(), `
		PREFIX ex: <http://example.org/>
		DELETE { ?p ex:status "active" }
		INSERT { ?p ex:status "archived" }
		WHERE { ?p ex:status "active" }`)
	require.NoError(t, err)
	require.Equal(t, 0, countMatches(t, p, nil, nil, rdf.NewLiteral("active"), nil))
	require.Equal(t, 2, countMatches(t, p, nil, nil, rdf.NewLiteral("archived"), nil))
}

func TestDeleteWhereShorthand(t *testing.T) {
	p := newProcessor(t,
		rdf.NewQuad(ex("a"), ex("p"), ex("b"), nil),
		rdf.NewQuad(ex("a"), ex("q"), ex("c"), nil),
	)
	err := p.Update(context.Background(), `
		PREFIX ex: <http://example.org/>
		DELETE WHERE { ex:a ex:p ?o }`)
	require.NoError(t, err)
	require.Equal(t, 1, countMatches(t, p, nil, nil, nil, nil))
}

// WITH scopes both the WHERE pattern and the templates.
func TestModifyWithGraph(t *testing.T) {
	p := newProcessor(t,
		rdf.NewQuad(ex("a"), ex("p"), ex("old"), ex("g1")),
		rdf.NewQuad(ex("a"), ex("p"), ex("old"), nil),
	)
	err := p.Update(context.Background(), `
		PREFIX ex: <http://example.org/>
		WITH ex:g1
		DELETE { ?s ex:p ex:old }
		INSERT { ?s ex:p ex:new }
		WHERE { ?s ex:p ex:old }`)
	require.NoError(t, err)
	require.Equal(t, 1, countMatches(t, p, nil, nil, ex("new"), ex("g1")))
	require.Equal(t, 0, countMatches(t, p, nil, nil, ex("old"), ex("g1")))
	// The default graph copy is untouched.
	require.Equal(t, 1, countMatches(t, p, nil, nil, ex("old"), &rdf.DefaultGraph{}))
}

func TestClearAndDrop(t *testing.T) {
	ctx := context.Background()
	p := newProcessor(t,
		rdf.NewQuad(ex("a"), ex("p"), ex("b"), nil),
		rdf.NewQuad(ex("c"), ex("p"), ex("d"), ex("g1")),
	)

	require.NoError(t, p.Update(ctx, `CLEAR GRAPH <http://example.org/g1>`))
	require.Equal(t, 0, countMatches(t, p, nil, nil, nil, ex("g1")))
	// Cleared graphs stay registered.
	graphs, err := p.ds.Graphs(ctx)
	require.NoError(t, err)
	require.Len(t, graphs, 1)

	require.NoError(t, p.Update(ctx, `DROP GRAPH <http://example.org/g1>`))
	graphs, err = p.ds.Graphs(ctx)
	require.NoError(t, err)
	require.Empty(t, graphs)

	// Non-silent DROP of a missing graph fails; SILENT swallows it.
	require.Error(t, p.Update(ctx, `DROP GRAPH <http://example.org/nope>`))
	require.NoError(t, p.Update(ctx, `DROP SILENT GRAPH <http://example.org/nope>`))

	require.NoError(t, p.Update(ctx, `CLEAR DEFAULT`))
	require.Equal(t, 0, countMatches(t, p, nil, nil, nil, &rdf.DefaultGraph{}))
}

func TestCreateGraph(t *testing.T) {
	ctx := context.Background()
	p := newProcessor(t)
	require.NoError(t, p.Update(ctx, `CREATE GRAPH <http://example.org/g1>`))
	require.Error(t, p.Update(ctx, `CREATE GRAPH <http://example.org/g1>`))
	require.NoError(t, p.Update(ctx, `CREATE SILENT GRAPH <http://example.org/g1>`))
}

func TestCopyMoveAdd(t *testing.T) {
	ctx := context.Background()
	p := newProcessor(t,
		rdf.NewQuad(ex("a"), ex("p"), ex("b"), nil),
		rdf.NewQuad(ex("c"), ex("p"), ex("d"), ex("g1")),
		rdf.NewQuad(ex("e"), ex("p"), ex("f"), ex("g2")),
	)

	// COPY replaces the destination.
	require.NoError(t, p.Update(ctx, `COPY <http://example.org/g1> TO <http://example.org/g2>`))
	require.Equal(t, 1, countMatches(t, p, nil, nil, nil, ex("g2")))
	require.Equal(t, 1, countMatches(t, p, ex("c"), nil, nil, ex("g2")))
	// The source is kept.
	require.Equal(t, 1, countMatches(t, p, nil, nil, nil, ex("g1")))

	// ADD appends without clearing.
	require.NoError(t, p.Update(ctx, `ADD DEFAULT TO <http://example.org/g2>`))
	require.Equal(t, 2, countMatches(t, p, nil, nil, nil, ex("g2")))

	// MOVE drops the source afterwards.
	require.NoError(t, p.Update(ctx, `MOVE <http://example.org/g1> TO <http://example.org/g3>`))
	require.Equal(t, 1, countMatches(t, p, nil, nil, nil, ex("g3")))
	graphs, err := p.ds.Graphs(ctx)
	require.NoError(t, err)
	for _, g := range graphs {
		require.NotEqual(t, "http://example.org/g1", g.Value)
	}

	// Copying a missing source fails unless SILENT.
	require.Error(t, p.Update(ctx, `COPY <http://example.org/nope> TO <http://example.org/g2>`))
	require.NoError(t, p.Update(ctx, `COPY SILENT <http://example.org/nope> TO <http://example.org/g2>`))
}

func TestLoadOperation(t *testing.T) {
	withConfig(t, Config{LoadExternalGraphs: true, DefaultGraphIsUnion: true})
	loader := &stubLoader{quads: []*rdf.Quad{
		rdf.NewQuad(ex("remote"), ex("p"), ex("x"), nil),
	}}
	p := newProcessor(t).WithLoader(loader)
	ctx := context.Background()

	require.NoError(t, p.Update(ctx, `LOAD <http://example.org/doc> INTO GRAPH <http://example.org/g1>`))
	require.Equal(t, 1, countMatches(t, p, nil, nil, nil, ex("g1")))

	require.NoError(t, p.Update(ctx, `LOAD <http://example.org/doc>`))
	require.Equal(t, 1, countMatches(t, p, nil, nil, nil, &rdf.DefaultGraph{}))
}

func TestLoadDisabled(t *testing.T) {
	withConfig(t, Config{LoadExternalGraphs: false, DefaultGraphIsUnion: true})
	loader := &stubLoader{}
	p := newProcessor(t).WithLoader(loader)
	ctx := context.Background()

	err := p.Update(ctx, `LOAD <http://example.org/doc>`)
	require.ErrorIs(t, err, ErrLoadDisabled)
	require.NoError(t, p.Update(ctx, `LOAD SILENT <http://example.org/doc>`))
	require.Equal(t, 0, loader.calls)
}

// A failing operation stops the batch but keeps earlier effects.
func TestBatchStopsAtFailure(t *testing.T) {
	ctx := context.Background()
	p := newProcessor(t)
	err := p.Update(ctx, `
		PREFIX ex: <http://example.org/>
		INSERT DATA { ex:a ex:p ex:b } ;
		DROP GRAPH ex:nope ;
		INSERT DATA { ex:c ex:p ex:d }`)
	require.Error(t, err)
	require.Equal(t, 1, countMatches(t, p, nil, nil, nil, nil))
}
