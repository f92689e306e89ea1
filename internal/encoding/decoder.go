package encoding

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/gtfierro/rdflib/pkg/rdf"
)

// Decode reconstructs a term from its index form. lookup resolves a
// hashed kind's encoded form to the canonical string stored in the
// id2str table.
func Decode(encoded EncodedTerm, lookup func(EncodedTerm) (string, error)) (rdf.Term, error) {
	switch encoded[0] {
	case kindIRI:
		s, err := lookup(encoded)
		if err != nil {
			return nil, err
		}
		return rdf.NewIRI(s), nil

	case kindBlankNode:
		s, err := lookup(encoded)
		if err != nil {
			return nil, err
		}
		return rdf.NewBlankNode(s), nil

	case kindDefaultGraph:
		return rdf.NewDefaultGraph(), nil

	case kindInlineString:
		end := 1
		for end < TermSize && encoded[end] != 0 {
			end++
		}
		return rdf.NewLiteral(string(encoded[1:end])), nil

	case kindHashedString:
		s, err := lookup(encoded)
		if err != nil {
			return nil, err
		}
		return rdf.NewLiteral(s), nil

	case kindLangString:
		s, err := lookup(encoded)
		if err != nil {
			return nil, err
		}
		lex, lang, ok := strings.Cut(s, canonicalSep)
		if !ok {
			return nil, fmt.Errorf("corrupt language literal entry %q", s)
		}
		return rdf.NewLangLiteral(lex, lang), nil

	case kindTypedLiteral:
		s, err := lookup(encoded)
		if err != nil {
			return nil, err
		}
		lex, datatype, ok := strings.Cut(s, canonicalSep)
		if !ok {
			return nil, fmt.Errorf("corrupt typed literal entry %q", s)
		}
		return rdf.NewTypedLiteral(lex, rdf.NewIRI(datatype)), nil

	case kindInteger:
		v := int64(binary.BigEndian.Uint64(encoded[1:9]) ^ (1 << 63))
		return rdf.NewIntegerLiteral(v), nil

	case kindBoolean:
		return rdf.NewBooleanLiteral(encoded[1] == 1), nil
	}
	return nil, fmt.Errorf("unknown term kind byte 0x%02x", encoded[0])
}

// NeedsLookup reports whether decoding requires the id2str table.
func NeedsLookup(encoded EncodedTerm) bool {
	switch encoded[0] {
	case kindIRI, kindBlankNode, kindHashedString, kindLangString, kindTypedLiteral:
		return true
	}
	return false
}

// Split cuts an index key back into its encoded terms.
func Split(key []byte) ([]EncodedTerm, error) {
	if len(key)%TermSize != 0 {
		return nil, fmt.Errorf("index key length %d is not a multiple of %d", len(key), TermSize)
	}
	out := make([]EncodedTerm, len(key)/TermSize)
	for i := range out {
		copy(out[i][:], key[i*TermSize:(i+1)*TermSize])
	}
	return out, nil
}
