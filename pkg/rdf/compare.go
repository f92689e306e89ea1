package rdf

import (
	"bytes"
	"errors"
	"strings"
)

// ErrNotOrdered signals that two terms have no defined relative order.
// ORDER BY treats this as a stable tie; comparison operators turn it into
// an expression type error.
var ErrNotOrdered = errors.New("terms are not ordered")

func typeRank(t Term) int {
	if t == nil {
		return 0 // unbound sorts before everything
	}
	switch t.Type() {
	case TermTypeBlankNode:
		return 1
	case TermTypeIRI, TermTypeDefaultGraph:
		return 2
	case TermTypeLiteral:
		return 3
	}
	return 4
}

// Compare implements the term total order used by ORDER BY:
// unbound < blank nodes < IRIs < literals, with literals ordered by value
// where their value spaces allow it. Returns ErrNotOrdered for literal
// pairs with incomparable datatypes or absent values.
func Compare(a, b Term) (int, error) {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1, nil
		}
		return 1, nil
	}
	switch {
	case a == nil:
		return 0, nil
	case a.Type() == TermTypeBlankNode:
		return strings.Compare(a.(*BlankNode).ID, b.(*BlankNode).ID), nil
	case a.Type() == TermTypeIRI:
		return strings.Compare(a.(*IRI).Value, b.(*IRI).Value), nil
	case a.Type() == TermTypeLiteral:
		return compareLiterals(a.(*Literal), b.(*Literal))
	}
	return 0, ErrNotOrdered
}

func compareLiterals(a, b *Literal) (int, error) {
	av, aok := a.Value()
	bv, bok := b.Value()
	if !aok || !bok {
		// Ill-formed or ruleless literals are unordered relative to
		// everything except their identical selves.
		if a.Equals(b) {
			return 0, nil
		}
		return 0, ErrNotOrdered
	}

	if av.IsNumeric() && bv.IsNumeric() {
		return compareNumeric(av, bv)
	}
	if av.Kind != bv.Kind {
		return 0, ErrNotOrdered
	}

	switch av.Kind {
	case KindString:
		if a.Language != b.Language {
			// Language-tagged strings group by tag.
			if a.Language == "" || b.Language == "" {
				return 0, ErrNotOrdered
			}
			return strings.Compare(a.Language, b.Language), nil
		}
		return strings.Compare(av.Str, bv.Str), nil
	case KindBool:
		if av.Bool == bv.Bool {
			return 0, nil
		}
		if !av.Bool {
			return -1, nil
		}
		return 1, nil
	case KindTime:
		if !datatypeOrString(a.Datatype).Equals(datatypeOrString(b.Datatype)) {
			return 0, ErrNotOrdered
		}
		switch {
		case av.Time.Before(bv.Time):
			return -1, nil
		case av.Time.After(bv.Time):
			return 1, nil
		}
		return 0, nil
	case KindBytes:
		if !datatypeOrString(a.Datatype).Equals(datatypeOrString(b.Datatype)) {
			return 0, ErrNotOrdered
		}
		return bytes.Compare(av.Bytes, bv.Bytes), nil
	}
	return 0, ErrNotOrdered
}

// ValueEquals is value-space equality: datatype-aware, used by comparison
// operators and DISTINCT aggregation, never for term identity. The error
// is a type error (two well-formed literals whose value spaces do not
// overlap, or literals with absent values that are not the same term).
func ValueEquals(a, b Term) (bool, error) {
	if a == nil || b == nil {
		return false, ErrNotOrdered
	}
	la, aIsLit := a.(*Literal)
	lb, bIsLit := b.(*Literal)
	if !aIsLit || !bIsLit {
		return a.Equals(b), nil
	}
	if la.Equals(lb) {
		return true, nil
	}
	av, aok := la.Value()
	bv, bok := lb.Value()
	if !aok || !bok {
		// At least one side has no value: identity already failed, so
		// equality is undecidable.
		return false, ErrNotOrdered
	}
	if av.IsNumeric() && bv.IsNumeric() {
		c, err := compareNumeric(av, bv)
		return err == nil && c == 0, nil
	}
	if av.Kind != bv.Kind || la.Language != lb.Language {
		return false, ErrNotOrdered
	}
	if av.Kind != KindString && !datatypeOrString(la.Datatype).Equals(datatypeOrString(lb.Datatype)) {
		return false, ErrNotOrdered
	}
	return av.Equal(bv), nil
}
