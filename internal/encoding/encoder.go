// Package encoding maps RDF terms to fixed-width byte strings for the
// persistent quad indexes. A term encodes as one kind byte plus 16
// bytes of payload: an xxh3 128-bit hash of the term's canonical form,
// or the value itself when it fits inline.
package encoding

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/xxh3"

	"github.com/gtfierro/rdflib/pkg/rdf"
)

const (
	// TermSize is the width of one encoded term.
	TermSize = 17

	// maxInline is the longest plain string stored without hashing.
	maxInline = 16
)

// Term kind bytes. Inline kinds decode without the id2str table.
const (
	kindIRI          byte = 0x01
	kindBlankNode    byte = 0x02
	kindDefaultGraph byte = 0x03

	kindInlineString byte = 0x10
	kindHashedString byte = 0x11
	kindLangString   byte = 0x12
	kindTypedLiteral byte = 0x13
	kindInteger      byte = 0x14
	kindBoolean      byte = 0x15
)

// canonicalSep joins literal components in the id2str entry. It cannot
// appear in lexical forms, language tags or IRIs.
const canonicalSep = "\x1f"

// EncodedTerm is the fixed-width index representation of one term.
type EncodedTerm [TermSize]byte

// Hash128 computes the 128-bit xxh3 payload for a canonical form.
func Hash128(s string) [16]byte {
	h := xxh3.Hash128([]byte(s))
	var out [16]byte
	binary.BigEndian.PutUint64(out[0:8], h.Hi)
	binary.BigEndian.PutUint64(out[8:16], h.Lo)
	return out
}

// Encode maps a term to its index form. The second result is the
// canonical string to store in the id2str table, nil for inline kinds.
func Encode(term rdf.Term) (EncodedTerm, *string, error) {
	var out EncodedTerm
	switch t := term.(type) {
	case *rdf.IRI:
		out[0] = kindIRI
		hashInto(&out, t.Value)
		return out, &t.Value, nil

	case *rdf.BlankNode:
		out[0] = kindBlankNode
		hashInto(&out, t.ID)
		return out, &t.ID, nil

	case *rdf.DefaultGraph:
		out[0] = kindDefaultGraph
		return out, nil, nil

	case *rdf.Literal:
		return encodeLiteral(t)
	}
	return out, nil, fmt.Errorf("unknown term type %T", term)
}

func hashInto(out *EncodedTerm, s string) {
	h := Hash128(s)
	copy(out[1:], h[:])
}

func encodeLiteral(lit *rdf.Literal) (EncodedTerm, *string, error) {
	var out EncodedTerm

	if lit.Language != "" {
		out[0] = kindLangString
		canonical := lit.Lexical + canonicalSep + lit.Language
		hashInto(&out, canonical)
		return out, &canonical, nil
	}

	if lit.Datatype != nil && !lit.Datatype.Equals(rdf.XSDString) {
		// Integers and booleans with a well-formed value inline, so
		// range scans over them sort numerically.
		if v, ok := lit.Value(); ok {
			switch {
			case lit.Datatype.Equals(rdf.XSDInteger) && v.Kind == rdf.KindInteger:
				out[0] = kindInteger
				binary.BigEndian.PutUint64(out[1:9], uint64(v.Int)^(1<<63))
				return out, nil, nil
			case lit.Datatype.Equals(rdf.XSDBoolean) && v.Kind == rdf.KindBool:
				out[0] = kindBoolean
				if v.Bool {
					out[1] = 1
				}
				return out, nil, nil
			}
		}
		out[0] = kindTypedLiteral
		canonical := lit.Lexical + canonicalSep + lit.Datatype.Value
		hashInto(&out, canonical)
		return out, &canonical, nil
	}

	// Plain or xsd:string literal.
	if len(lit.Lexical) <= maxInline {
		out[0] = kindInlineString
		copy(out[1:], lit.Lexical)
		return out, nil, nil
	}
	out[0] = kindHashedString
	hashInto(&out, lit.Lexical)
	return out, &lit.Lexical, nil
}

// Key concatenates encoded terms into one index key.
func Key(terms ...EncodedTerm) []byte {
	out := make([]byte, 0, len(terms)*TermSize)
	for _, t := range terms {
		out = append(out, t[:]...)
	}
	return out
}

