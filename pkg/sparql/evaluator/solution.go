package evaluator

import (
	"sort"
	"strings"

	"github.com/gtfierro/rdflib/pkg/rdf"
)

// Solution maps variable names to terms. An absent name is an unbound
// variable.
type Solution map[string]rdf.Term

// NewSolution creates an empty solution.
func NewSolution() Solution {
	return make(Solution)
}

func (s Solution) Bound(name string) bool {
	_, ok := s[name]
	return ok
}

func (s Solution) Get(name string) (rdf.Term, bool) {
	t, ok := s[name]
	return t, ok
}

func (s Solution) Copy() Solution {
	out := make(Solution, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Compatible reports whether two solutions agree (by term identity) on
// every variable they share.
func Compatible(a, b Solution) bool {
	for k, av := range a {
		if bv, ok := b[k]; ok && !av.Equals(bv) {
			return false
		}
	}
	return true
}

// Merge unions two compatible solutions. The caller checks
// compatibility first.
func Merge(a, b Solution) Solution {
	out := a.Copy()
	for k, v := range b {
		out[k] = v
	}
	return out
}

// SharesDomain reports whether the two solutions bind any variable in
// common.
func SharesDomain(a, b Solution) bool {
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

// Key returns a canonical string for duplicate detection.
func (s Solution) Key() string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)
	var sb strings.Builder
	for _, k := range names {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(s[k].String())
		sb.WriteByte('|')
	}
	return sb.String()
}

// Sequence is a pull iterator over solutions. Callers check Err after
// Next returns false.
type Sequence interface {
	Next() bool
	Solution() Solution
	Err() error
	Close()
}

// sliceSequence replays a materialized solution list.
type sliceSequence struct {
	solutions []Solution
	pos       int
}

func newSliceSequence(solutions []Solution) *sliceSequence {
	return &sliceSequence{solutions: solutions, pos: -1}
}

func (s *sliceSequence) Next() bool {
	s.pos++
	return s.pos < len(s.solutions)
}

func (s *sliceSequence) Solution() Solution { return s.solutions[s.pos] }
func (s *sliceSequence) Err() error         { return nil }
func (s *sliceSequence) Close()             {}

// unitSequence yields a single empty solution.
func unitSequence() Sequence {
	return newSliceSequence([]Solution{NewSolution()})
}

// emptySequence yields nothing.
func emptySequence() Sequence {
	return newSliceSequence(nil)
}

// errSequence yields nothing and reports err.
type errSequence struct{ err error }

func (s *errSequence) Next() bool         { return false }
func (s *errSequence) Solution() Solution { return nil }
func (s *errSequence) Err() error         { return s.err }
func (s *errSequence) Close()             {}

// Collect drains a sequence into a slice.
func Collect(seq Sequence) ([]Solution, error) {
	defer seq.Close()
	var out []Solution
	for seq.Next() {
		out = append(out, seq.Solution())
	}
	return out, seq.Err()
}
