// Package sparql is the query and update processor: it prepares query
// text into a reusable compiled form and executes it against a dataset,
// applying the process-wide engine configuration.
package sparql

import (
	"context"
	"fmt"
	"sync"

	"github.com/gtfierro/rdflib/pkg/dataset"
	"github.com/gtfierro/rdflib/pkg/rdf"
	"github.com/gtfierro/rdflib/pkg/sparql/algebra"
	"github.com/gtfierro/rdflib/pkg/sparql/evaluator"
	"github.com/gtfierro/rdflib/pkg/sparql/parser"
)

// Config holds the process-wide engine switches, read at query and
// update processing time.
type Config struct {
	// LoadExternalGraphs governs whether FROM, FROM NAMED, USING and
	// LOAD fetch remote graph content into the dataset.
	LoadExternalGraphs bool

	// DefaultGraphIsUnion makes patterns outside GRAPH match the union
	// of all graphs instead of the default graph alone.
	DefaultGraphIsUnion bool
}

var (
	configMu sync.RWMutex
	config   = Config{LoadExternalGraphs: true, DefaultGraphIsUnion: true}
)

// SetConfig replaces the process-wide configuration.
func SetConfig(c Config) {
	configMu.Lock()
	defer configMu.Unlock()
	config = c
}

// CurrentConfig returns the process-wide configuration.
func CurrentConfig() Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return config
}

// PreparedQuery is a parsed and translated query, bound to no dataset
// and reusable across evaluations.
type PreparedQuery struct {
	Query *parser.Query

	node  *algebra.Node
	names []string
}

// PrepareQuery parses and translates query text.
func PrepareQuery(text string) (*PreparedQuery, error) {
	q, err := parser.ParseQuery(text)
	if err != nil {
		return nil, err
	}
	node, names, err := algebra.TranslateQuery(q)
	if err != nil {
		return nil, err
	}
	return &PreparedQuery{Query: q, node: node, names: names}, nil
}

// PreparedUpdate is a parsed update request.
type PreparedUpdate struct {
	Update *parser.Update
}

// PrepareUpdate parses update text.
func PrepareUpdate(text string) (*PreparedUpdate, error) {
	u, err := parser.ParseUpdate(text)
	if err != nil {
		return nil, err
	}
	return &PreparedUpdate{Update: u}, nil
}

// Result is the outcome of one query execution. Which fields are set
// depends on the query form.
type Result struct {
	Kind parser.QueryKind

	// SELECT.
	Variables []string
	Solutions []evaluator.Solution

	// ASK.
	Boolean bool

	// CONSTRUCT and DESCRIBE.
	Triples []*rdf.Triple
}

// Processor executes prepared queries and updates against a dataset.
// The zero value is not usable; construct with NewProcessor.
type Processor struct {
	ds     dataset.Dataset
	loader dataset.Loader
}

// NewProcessor wraps a dataset. External graph loading uses the HTTP
// loader unless WithLoader replaces it.
func NewProcessor(ds dataset.Dataset) *Processor {
	return &Processor{ds: ds, loader: dataset.NewHTTPLoader()}
}

// WithLoader replaces the external graph loader and returns the
// processor.
func (p *Processor) WithLoader(l dataset.Loader) *Processor {
	p.loader = l
	return p
}

// Query executes text against the dataset. Convenience for
// PrepareQuery + Execute.
func (p *Processor) Query(ctx context.Context, text string) (*Result, error) {
	prepared, err := PrepareQuery(text)
	if err != nil {
		return nil, err
	}
	return p.Execute(ctx, prepared, nil)
}

// Execute runs a prepared query. Initial bindings, when given, join
// with the query pattern before solution modifiers apply.
func (p *Processor) Execute(ctx context.Context, prepared *PreparedQuery, initial evaluator.Solution) (*Result, error) {
	cfg := CurrentConfig()

	if err := p.loadDatasetClauses(ctx, prepared.Query.Dataset, cfg); err != nil {
		return nil, err
	}

	e := evaluator.New(p.ds)
	e.UnionDefaultGraph = cfg.DefaultGraphIsUnion

	node := prepared.node
	if len(initial) > 0 {
		node = injectBindings(node, initial)
	}

	switch prepared.Query.Kind {
	case parser.QueryKindSelect:
		sols, err := evaluate(ctx, e, node)
		if err != nil {
			return nil, err
		}
		return &Result{Kind: parser.QueryKindSelect, Variables: prepared.names, Solutions: sols}, nil

	case parser.QueryKindAsk:
		seq, err := e.Evaluate(ctx, node)
		if err != nil {
			return nil, err
		}
		defer seq.Close()
		found := seq.Next()
		if err := seq.Err(); err != nil {
			return nil, err
		}
		return &Result{Kind: parser.QueryKindAsk, Boolean: found}, nil

	case parser.QueryKindConstruct:
		sols, err := evaluate(ctx, e, node)
		if err != nil {
			return nil, err
		}
		triples := instantiateTemplate(prepared.Query.Construct.Template, sols)
		return &Result{Kind: parser.QueryKindConstruct, Triples: triples}, nil

	case parser.QueryKindDescribe:
		return p.describe(ctx, e, prepared, node)
	}
	return nil, fmt.Errorf("unknown query form")
}

func evaluate(ctx context.Context, e *evaluator.Evaluator, node *algebra.Node) ([]evaluator.Solution, error) {
	seq, err := e.Evaluate(ctx, node)
	if err != nil {
		return nil, err
	}
	return evaluator.Collect(seq)
}

// injectBindings joins a single-solution VALUES with the pattern below
// the solution-modifier pipeline, so initial bindings restrict matching
// before grouping and projection.
func injectBindings(node *algebra.Node, initial evaluator.Solution) *algebra.Node {
	vars := make([]*parser.Variable, 0, len(initial))
	row := make([]rdf.Term, 0, len(initial))
	for name, term := range initial {
		vars = append(vars, &parser.Variable{Name: name})
		row = append(row, term)
	}
	values := &algebra.Node{Op: algebra.OpValues, Variables: vars, Rows: [][]rdf.Term{row}}

	copyNode := func(n *algebra.Node) *algebra.Node {
		c := *n
		return &c
	}

	switch node.Op {
	case algebra.OpSlice, algebra.OpDistinct, algebra.OpReduced, algebra.OpProject,
		algebra.OpOrderBy, algebra.OpExtend, algebra.OpFilter, algebra.OpGroup:
		out := copyNode(node)
		out.Input = injectBindings(node.Input, initial)
		return out
	}
	return &algebra.Node{Op: algebra.OpJoin, Left: values, Right: node}
}

// loadDatasetClauses fetches FROM / FROM NAMED sources not already in
// the dataset, when external loading is enabled.
func (p *Processor) loadDatasetClauses(ctx context.Context, clauses []parser.DatasetClause, cfg Config) error {
	if len(clauses) == 0 || !cfg.LoadExternalGraphs || p.loader == nil {
		return nil
	}
	existing := map[string]bool{}
	graphs, err := p.ds.Graphs(ctx)
	if err != nil {
		return err
	}
	for _, g := range graphs {
		existing[g.Value] = true
	}
	for _, clause := range clauses {
		if existing[clause.Graph.Value] {
			continue
		}
		quads, err := p.loader.Load(ctx, clause.Graph)
		if err != nil {
			return fmt.Errorf("FROM %s: %w", clause.Graph.Value, err)
		}
		for _, q := range quads {
			target := rdf.NewQuad(q.Subject, q.Predicate, q.Object, clause.Graph)
			if !clause.Named {
				target = rdf.NewQuad(q.Subject, q.Predicate, q.Object, nil)
			}
			if err := p.ds.Add(ctx, target); err != nil {
				return err
			}
		}
		existing[clause.Graph.Value] = true
	}
	return nil
}
