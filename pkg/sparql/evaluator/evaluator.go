// Package evaluator walks algebra trees against a dataset, producing
// lazy sequences of solutions. Custom operator handlers can be
// registered process-wide to intercept evaluation, mirroring the
// datatype rule registry in pkg/rdf.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/gtfierro/rdflib/pkg/dataset"
	"github.com/gtfierro/rdflib/pkg/rdf"
	"github.com/gtfierro/rdflib/pkg/sparql/algebra"
)

var (
	// ErrNotHandled is returned by an extension handler to pass an
	// operator on to the next handler or the builtin evaluation.
	ErrNotHandled = errors.New("operator not handled")

	// ErrUnsupported is returned for operators no handler claimed and
	// the builtin evaluation cannot serve, such as SERVICE.
	ErrUnsupported = errors.New("operator not supported")
)

// Handler intercepts evaluation of an algebra node. It returns
// ErrNotHandled to decline.
type Handler func(ctx context.Context, e *Evaluator, node *algebra.Node) (Sequence, error)

var (
	extMu       sync.RWMutex
	extOrder    []string
	extHandlers = make(map[string]Handler)
)

// RegisterExtension adds a named handler consulted before builtin
// evaluation, in registration order. Re-registering a name replaces
// the handler but keeps its position.
func RegisterExtension(name string, h Handler) {
	extMu.Lock()
	defer extMu.Unlock()
	if _, ok := extHandlers[name]; !ok {
		extOrder = append(extOrder, name)
	}
	extHandlers[name] = h
}

// UnregisterExtension removes a named handler.
func UnregisterExtension(name string) {
	extMu.Lock()
	defer extMu.Unlock()
	if _, ok := extHandlers[name]; !ok {
		return
	}
	delete(extHandlers, name)
	for i, n := range extOrder {
		if n == name {
			extOrder = append(extOrder[:i], extOrder[i+1:]...)
			break
		}
	}
}

func extensionChain() []Handler {
	extMu.RLock()
	defer extMu.RUnlock()
	chain := make([]Handler, 0, len(extOrder))
	for _, name := range extOrder {
		chain = append(chain, extHandlers[name])
	}
	return chain
}

// Evaluator evaluates algebra trees against a dataset.
type Evaluator struct {
	Dataset dataset.Dataset

	// UnionDefaultGraph makes pattern matching outside GRAPH see the
	// union of every graph instead of the default graph alone.
	UnionDefaultGraph bool

	// Now is the fixed timestamp NOW() returns for the whole
	// evaluation.
	Now time.Time

	// activeGraph is the current GRAPH scope; nil means the default
	// scope.
	activeGraph rdf.Term
}

// New creates an evaluator over a dataset.
func New(ds dataset.Dataset) *Evaluator {
	return &Evaluator{Dataset: ds, Now: time.Now()}
}

// ActiveGraph returns the current GRAPH scope, nil outside any GRAPH
// clause.
func (e *Evaluator) ActiveGraph() rdf.Term {
	return e.activeGraph
}

// WithGraph returns a copy of the evaluator scoped to the given graph.
func (e *Evaluator) WithGraph(graph rdf.Term) *Evaluator {
	scoped := *e
	scoped.activeGraph = graph
	return &scoped
}

// Evaluate produces the solution sequence for a node. Registered
// extension handlers are consulted first, in order; the first one not
// returning ErrNotHandled wins.
func (e *Evaluator) Evaluate(ctx context.Context, node *algebra.Node) (Sequence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if node == nil {
		return unitSequence(), nil
	}

	for _, h := range extensionChain() {
		seq, err := h(ctx, e, node)
		if errors.Is(err, ErrNotHandled) {
			continue
		}
		return seq, err
	}

	switch node.Op {
	case algebra.OpBGP:
		return e.evalBGP(ctx, node)
	case algebra.OpJoin:
		return e.evalJoin(ctx, node)
	case algebra.OpLeftJoin:
		return e.evalLeftJoin(ctx, node)
	case algebra.OpUnion:
		return e.evalUnion(ctx, node)
	case algebra.OpMinus:
		return e.evalMinus(ctx, node)
	case algebra.OpFilter:
		return e.evalFilter(ctx, node)
	case algebra.OpExtend:
		return e.evalExtend(ctx, node)
	case algebra.OpGraph:
		return e.evalGraph(ctx, node)
	case algebra.OpService:
		return e.evalService(ctx, node)
	case algebra.OpPath:
		return e.evalPath(ctx, node)
	case algebra.OpValues:
		return e.evalValues(node)
	case algebra.OpGroup:
		return e.evalGroup(ctx, node)
	case algebra.OpOrderBy:
		return e.evalOrderBy(ctx, node)
	case algebra.OpProject:
		return e.evalProject(ctx, node)
	case algebra.OpDistinct:
		return e.evalDistinct(ctx, node)
	case algebra.OpReduced:
		return e.evalReduced(ctx, node)
	case algebra.OpSlice:
		return e.evalSlice(ctx, node)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, node.Op)
}

// ===== Join family =====

// evalJoin streams the left side and probes a materialized right side.
func (e *Evaluator) evalJoin(ctx context.Context, node *algebra.Node) (Sequence, error) {
	left, err := e.Evaluate(ctx, node.Left)
	if err != nil {
		return nil, err
	}
	return &joinSequence{ctx: ctx, e: e, left: left, rightNode: node.Right}, nil
}

type joinSequence struct {
	ctx       context.Context
	e         *Evaluator
	left      Sequence
	rightNode *algebra.Node

	right    []Solution
	haveLeft bool
	leftSol  Solution
	rightPos int
	current  Solution
	err      error
}

func (s *joinSequence) materialize() bool {
	if s.right != nil {
		return true
	}
	seq, err := s.e.Evaluate(s.ctx, s.rightNode)
	if err != nil {
		s.err = err
		return false
	}
	sols, err := Collect(seq)
	if err != nil {
		s.err = err
		return false
	}
	if sols == nil {
		sols = []Solution{}
	}
	s.right = sols
	return true
}

func (s *joinSequence) Next() bool {
	if s.err != nil || !s.materialize() {
		return false
	}
	for {
		if !s.haveLeft {
			if !s.left.Next() {
				s.err = s.left.Err()
				return false
			}
			s.leftSol = s.left.Solution()
			s.haveLeft = true
			s.rightPos = 0
		}
		for s.rightPos < len(s.right) {
			r := s.right[s.rightPos]
			s.rightPos++
			if Compatible(s.leftSol, r) {
				s.current = Merge(s.leftSol, r)
				return true
			}
		}
		s.haveLeft = false
	}
}

func (s *joinSequence) Solution() Solution { return s.current }
func (s *joinSequence) Err() error         { return s.err }
func (s *joinSequence) Close()             { s.left.Close() }

// evalLeftJoin keeps every left solution: merged with each compatible
// right solution passing the condition, or alone when none does.
func (e *Evaluator) evalLeftJoin(ctx context.Context, node *algebra.Node) (Sequence, error) {
	left, err := e.Evaluate(ctx, node.Left)
	if err != nil {
		return nil, err
	}
	return &leftJoinSequence{ctx: ctx, e: e, left: left, node: node}, nil
}

type leftJoinSequence struct {
	ctx  context.Context
	e    *Evaluator
	left Sequence
	node *algebra.Node

	right   []Solution
	pending []Solution
	current Solution
	err     error
}

func (s *leftJoinSequence) Next() bool {
	if s.err != nil {
		return false
	}
	if s.right == nil {
		seq, err := s.e.Evaluate(s.ctx, s.node.Right)
		if err != nil {
			s.err = err
			return false
		}
		sols, err := Collect(seq)
		if err != nil {
			s.err = err
			return false
		}
		if sols == nil {
			sols = []Solution{}
		}
		s.right = sols
	}
	for {
		if len(s.pending) > 0 {
			s.current = s.pending[0]
			s.pending = s.pending[1:]
			return true
		}
		if !s.left.Next() {
			s.err = s.left.Err()
			return false
		}
		l := s.left.Solution()
		matched := false
		for _, r := range s.right {
			if !Compatible(l, r) {
				continue
			}
			merged := Merge(l, r)
			if s.node.Expr != nil {
				ok, err := s.e.effectiveBool(s.ctx, s.node.Expr, merged)
				if err != nil || !ok {
					continue
				}
			}
			matched = true
			s.pending = append(s.pending, merged)
		}
		if !matched {
			s.pending = append(s.pending, l)
		}
	}
}

func (s *leftJoinSequence) Solution() Solution { return s.current }
func (s *leftJoinSequence) Err() error         { return s.err }
func (s *leftJoinSequence) Close()             { s.left.Close() }

// evalUnion concatenates both sides, left first.
func (e *Evaluator) evalUnion(ctx context.Context, node *algebra.Node) (Sequence, error) {
	left, err := e.Evaluate(ctx, node.Left)
	if err != nil {
		return nil, err
	}
	return &unionSequence{ctx: ctx, e: e, active: left, rightNode: node.Right}, nil
}

type unionSequence struct {
	ctx       context.Context
	e         *Evaluator
	active    Sequence
	rightNode *algebra.Node
	onRight   bool
	err       error
}

func (s *unionSequence) Next() bool {
	if s.err != nil {
		return false
	}
	for {
		if s.active.Next() {
			return true
		}
		if err := s.active.Err(); err != nil {
			s.err = err
			return false
		}
		if s.onRight {
			return false
		}
		s.active.Close()
		right, err := s.e.Evaluate(s.ctx, s.rightNode)
		if err != nil {
			s.err = err
			return false
		}
		s.active = right
		s.onRight = true
	}
}

func (s *unionSequence) Solution() Solution { return s.active.Solution() }
func (s *unionSequence) Err() error         { return s.err }
func (s *unionSequence) Close()             { s.active.Close() }

// evalMinus drops left solutions that are compatible with some right
// solution sharing at least one variable. A right solution with a
// disjoint domain excludes nothing.
func (e *Evaluator) evalMinus(ctx context.Context, node *algebra.Node) (Sequence, error) {
	left, err := e.Evaluate(ctx, node.Left)
	if err != nil {
		return nil, err
	}
	rightSeq, err := e.Evaluate(ctx, node.Right)
	if err != nil {
		left.Close()
		return nil, err
	}
	right, err := Collect(rightSeq)
	if err != nil {
		left.Close()
		return nil, err
	}
	return &minusSequence{left: left, right: right}, nil
}

type minusSequence struct {
	left    Sequence
	right   []Solution
	current Solution
	err     error
}

func (s *minusSequence) Next() bool {
	if s.err != nil {
		return false
	}
	for s.left.Next() {
		l := s.left.Solution()
		excluded := false
		for _, r := range s.right {
			if SharesDomain(l, r) && Compatible(l, r) {
				excluded = true
				break
			}
		}
		if !excluded {
			s.current = l
			return true
		}
	}
	s.err = s.left.Err()
	return false
}

func (s *minusSequence) Solution() Solution { return s.current }
func (s *minusSequence) Err() error         { return s.err }
func (s *minusSequence) Close()             { s.left.Close() }

// ===== Filter / Extend =====

func (e *Evaluator) evalFilter(ctx context.Context, node *algebra.Node) (Sequence, error) {
	input, err := e.Evaluate(ctx, node.Input)
	if err != nil {
		return nil, err
	}
	return &filterSequence{ctx: ctx, e: e, input: input, node: node}, nil
}

type filterSequence struct {
	ctx   context.Context
	e     *Evaluator
	input Sequence
	node  *algebra.Node
}

func (s *filterSequence) Next() bool {
	for s.input.Next() {
		// An error in the condition is a type error: the solution is
		// dropped, not the query failed.
		ok, err := s.e.effectiveBool(s.ctx, s.node.Expr, s.input.Solution())
		if err == nil && ok {
			return true
		}
	}
	return false
}

func (s *filterSequence) Solution() Solution { return s.input.Solution() }
func (s *filterSequence) Err() error         { return s.input.Err() }
func (s *filterSequence) Close()             { s.input.Close() }

func (e *Evaluator) evalExtend(ctx context.Context, node *algebra.Node) (Sequence, error) {
	input, err := e.Evaluate(ctx, node.Input)
	if err != nil {
		return nil, err
	}
	return &extendSequence{ctx: ctx, e: e, input: input, node: node}, nil
}

type extendSequence struct {
	ctx     context.Context
	e       *Evaluator
	input   Sequence
	node    *algebra.Node
	current Solution
}

func (s *extendSequence) Next() bool {
	if !s.input.Next() {
		return false
	}
	sol := s.input.Solution()
	// An error leaves the variable unbound; the solution survives.
	term, err := s.e.EvaluateExpression(s.ctx, s.node.Expr, sol)
	if err != nil || term == nil {
		s.current = sol
		return true
	}
	out := sol.Copy()
	out[s.node.Var.Name] = term
	s.current = out
	return true
}

func (s *extendSequence) Solution() Solution { return s.current }
func (s *extendSequence) Err() error         { return s.input.Err() }
func (s *extendSequence) Close()             { s.input.Close() }

// ===== Graph / Service =====

func (e *Evaluator) evalGraph(ctx context.Context, node *algebra.Node) (Sequence, error) {
	if !node.Name.IsVariable() {
		return e.WithGraph(node.Name.Term).Evaluate(ctx, node.Input)
	}

	graphs, err := e.Dataset.Graphs(ctx)
	if err != nil {
		return nil, err
	}
	return &graphVarSequence{
		ctx:     ctx,
		e:       e,
		node:    node,
		graphs:  graphs,
		varName: node.Name.Variable.Name,
	}, nil
}

// graphVarSequence evaluates the inner pattern once per named graph,
// binding the graph variable.
type graphVarSequence struct {
	ctx     context.Context
	e       *Evaluator
	node    *algebra.Node
	graphs  []*rdf.IRI
	varName string

	pos     int
	inner   Sequence
	graph   *rdf.IRI
	current Solution
	err     error
}

func (s *graphVarSequence) Next() bool {
	if s.err != nil {
		return false
	}
	for {
		if s.inner == nil {
			if s.pos >= len(s.graphs) {
				return false
			}
			s.graph = s.graphs[s.pos]
			s.pos++
			inner, err := s.e.WithGraph(s.graph).Evaluate(s.ctx, s.node.Input)
			if err != nil {
				s.err = err
				return false
			}
			s.inner = inner
		}
		for s.inner.Next() {
			sol := s.inner.Solution()
			if bound, ok := sol[s.varName]; ok {
				if !bound.Equals(s.graph) {
					continue
				}
				s.current = sol
				return true
			}
			out := sol.Copy()
			out[s.varName] = s.graph
			s.current = out
			return true
		}
		if err := s.inner.Err(); err != nil {
			s.err = err
			return false
		}
		s.inner.Close()
		s.inner = nil
	}
}

func (s *graphVarSequence) Solution() Solution { return s.current }
func (s *graphVarSequence) Err() error         { return s.err }
func (s *graphVarSequence) Close() {
	if s.inner != nil {
		s.inner.Close()
	}
}

// evalService has no builtin transport. A registered extension handler
// provides federation; otherwise SILENT yields nothing and a non-silent
// SERVICE is an error.
func (e *Evaluator) evalService(ctx context.Context, node *algebra.Node) (Sequence, error) {
	if node.Silent {
		return emptySequence(), nil
	}
	return nil, fmt.Errorf("%w: SERVICE requires a registered handler", ErrUnsupported)
}

// ===== Values =====

func (e *Evaluator) evalValues(node *algebra.Node) (Sequence, error) {
	solutions := make([]Solution, 0, len(node.Rows))
	for _, row := range node.Rows {
		sol := NewSolution()
		for i, v := range node.Variables {
			if row[i] != nil {
				sol[v.Name] = row[i]
			}
		}
		solutions = append(solutions, sol)
	}
	return newSliceSequence(solutions), nil
}

// ===== Solution modifiers =====

func (e *Evaluator) evalOrderBy(ctx context.Context, node *algebra.Node) (Sequence, error) {
	input, err := e.Evaluate(ctx, node.Input)
	if err != nil {
		return nil, err
	}
	solutions, err := Collect(input)
	if err != nil {
		return nil, err
	}

	type keyed struct {
		sol  Solution
		keys []rdf.Term
	}
	rows := make([]keyed, len(solutions))
	for i, sol := range solutions {
		keys := make([]rdf.Term, len(node.OrderBy))
		for j, cond := range node.OrderBy {
			// An evaluation error sorts like unbound.
			term, err := e.EvaluateExpression(ctx, cond.Expr, sol)
			if err == nil {
				keys[j] = term
			}
		}
		rows[i] = keyed{sol: sol, keys: keys}
	}

	// Stable sort: pairs the order cannot separate keep their input
	// order.
	sort.SliceStable(rows, func(a, b int) bool {
		for j, cond := range node.OrderBy {
			c, err := rdf.Compare(rows[a].keys[j], rows[b].keys[j])
			if err != nil || c == 0 {
				continue
			}
			if !cond.Ascending {
				c = -c
			}
			return c < 0
		}
		return false
	})

	out := make([]Solution, len(rows))
	for i, r := range rows {
		out[i] = r.sol
	}
	return newSliceSequence(out), nil
}

func (e *Evaluator) evalProject(ctx context.Context, node *algebra.Node) (Sequence, error) {
	input, err := e.Evaluate(ctx, node.Input)
	if err != nil {
		return nil, err
	}
	return &projectSequence{input: input, names: node.Projection}, nil
}

type projectSequence struct {
	input   Sequence
	names   []string
	current Solution
}

func (s *projectSequence) Next() bool {
	if !s.input.Next() {
		return false
	}
	sol := s.input.Solution()
	out := NewSolution()
	for _, name := range s.names {
		if t, ok := sol[name]; ok {
			out[name] = t
		}
	}
	s.current = out
	return true
}

func (s *projectSequence) Solution() Solution { return s.current }
func (s *projectSequence) Err() error         { return s.input.Err() }
func (s *projectSequence) Close()             { s.input.Close() }

func (e *Evaluator) evalDistinct(ctx context.Context, node *algebra.Node) (Sequence, error) {
	input, err := e.Evaluate(ctx, node.Input)
	if err != nil {
		return nil, err
	}
	return &distinctSequence{input: input, seen: make(map[uint64][]string)}, nil
}

// distinctSequence deduplicates on a hash of the canonical solution
// key. Buckets keep the full keys, so a hash collision cannot drop a
// distinct solution.
type distinctSequence struct {
	input Sequence
	seen  map[uint64][]string
}

func (s *distinctSequence) Next() bool {
next:
	for s.input.Next() {
		key := s.input.Solution().Key()
		h := xxh3.HashString(key)
		for _, prev := range s.seen[h] {
			if prev == key {
				continue next
			}
		}
		s.seen[h] = append(s.seen[h], key)
		return true
	}
	return false
}

func (s *distinctSequence) Solution() Solution { return s.input.Solution() }
func (s *distinctSequence) Err() error         { return s.input.Err() }
func (s *distinctSequence) Close()             { s.input.Close() }

// evalReduced suppresses adjacent duplicates only, trading completeness
// for constant memory.
func (e *Evaluator) evalReduced(ctx context.Context, node *algebra.Node) (Sequence, error) {
	input, err := e.Evaluate(ctx, node.Input)
	if err != nil {
		return nil, err
	}
	return &reducedSequence{input: input}, nil
}

type reducedSequence struct {
	input Sequence
	last  string
	first bool
}

func (s *reducedSequence) Next() bool {
	for s.input.Next() {
		key := s.input.Solution().Key()
		if s.first && key == s.last {
			continue
		}
		s.first = true
		s.last = key
		return true
	}
	return false
}

func (s *reducedSequence) Solution() Solution { return s.input.Solution() }
func (s *reducedSequence) Err() error         { return s.input.Err() }
func (s *reducedSequence) Close()             { s.input.Close() }

func (e *Evaluator) evalSlice(ctx context.Context, node *algebra.Node) (Sequence, error) {
	input, err := e.Evaluate(ctx, node.Input)
	if err != nil {
		return nil, err
	}
	return &sliceModSequence{input: input, skip: node.Offset, limit: node.Limit}, nil
}

type sliceModSequence struct {
	input   Sequence
	skip    int
	limit   int
	emitted int
}

func (s *sliceModSequence) Next() bool {
	if s.limit >= 0 && s.emitted >= s.limit {
		return false
	}
	for s.input.Next() {
		if s.skip > 0 {
			s.skip--
			continue
		}
		s.emitted++
		return true
	}
	return false
}

func (s *sliceModSequence) Solution() Solution { return s.input.Solution() }
func (s *sliceModSequence) Err() error         { return s.input.Err() }
func (s *sliceModSequence) Close()             { s.input.Close() }
