package rdf

import (
	"fmt"

	"golang.org/x/text/language"
)

// WellFormedness is the tri-state result of running a datatype's coercion
// rule against a literal's lexical form. Unknown means no rule is
// registered for the datatype, in which case the literal carries no value.
type WellFormedness byte

const (
	Unknown WellFormedness = iota
	WellFormed
	IllFormed
)

// Literal represents an RDF literal. The lexical form is kept exactly as
// given; the coerced native value, when a registered rule accepts the
// lexical form, lives in value. Construction never fails on a malformed
// lexical form: malformedness is recorded in wellFormed, not signaled.
type Literal struct {
	Lexical  string
	Language string
	Datatype *IRI

	value      Value
	wellFormed WellFormedness
}

// NewLiteral constructs a plain string literal.
func NewLiteral(lexical string) *Literal {
	return &Literal{
		Lexical:    lexical,
		value:      StringValue(lexical),
		wellFormed: WellFormed,
	}
}

// NewLangLiteral constructs a language-tagged string. An invalid BCP47
// tag makes the literal ill-formed rather than failing construction.
func NewLangLiteral(lexical, lang string) *Literal {
	l := &Literal{
		Lexical:  lexical,
		Language: lang,
		Datatype: RDFLangString,
	}
	if _, err := language.Parse(lang); err != nil {
		l.wellFormed = IllFormed
		return l
	}
	l.value = StringValue(lexical)
	l.wellFormed = WellFormed
	return l
}

// NewTypedLiteral constructs a literal with an explicit datatype, running
// the registered coercion rule (if any) against the lexical form.
func NewTypedLiteral(lexical string, datatype *IRI) *Literal {
	l := &Literal{
		Lexical:  lexical,
		Datatype: datatype,
	}
	if datatype == nil {
		l.value = StringValue(lexical)
		l.wellFormed = WellFormed
		return l
	}
	r, ok := lookupRule(datatype.Value)
	if !ok {
		return l // no rule: indeterminate, no value
	}
	v, err := r.parse(lexical)
	if err != nil {
		l.wellFormed = IllFormed
		return l
	}
	l.value = v
	l.wellFormed = WellFormed
	return l
}

// FromValue constructs a literal from a native value under the given
// datatype, serializing through the registered rule. A nil datatype picks
// the general rule registered for the value's kind.
func FromValue(v Value, datatype *IRI) (*Literal, error) {
	if datatype == nil {
		r, ok := generalRule(v.Kind)
		if !ok {
			return nil, fmt.Errorf("no general serialization rule for value kind %v", v.Kind)
		}
		datatype = r.datatype
	}
	r, ok := lookupRule(datatype.Value)
	if !ok {
		return nil, fmt.Errorf("no rule bound for datatype %s", datatype.Value)
	}
	return &Literal{
		Lexical:    r.serialize(v),
		Datatype:   datatype,
		value:      v,
		wellFormed: WellFormed,
	}, nil
}

// CopyLiteral copies src, optionally overriding its datatype. The lexical
// form is re-coerced under the effective datatype.
func CopyLiteral(src *Literal, datatype *IRI) *Literal {
	if datatype == nil {
		datatype = src.Datatype
	}
	if src.Language != "" && (datatype == nil || datatype.Equals(RDFLangString)) {
		return NewLangLiteral(src.Lexical, src.Language)
	}
	if datatype == nil {
		return NewLiteral(src.Lexical)
	}
	return NewTypedLiteral(src.Lexical, datatype)
}

func (l *Literal) Type() TermType {
	return TermTypeLiteral
}

// Value returns the coerced native value. ok is false when no registered
// rule accepted the lexical form (ill-formed or no rule bound).
func (l *Literal) Value() (Value, bool) {
	return l.value, l.wellFormed == WellFormed
}

// WellFormedness reports whether a registered coercion rule accepted the
// lexical form, rejected it, or was never consulted.
func (l *Literal) WellFormedness() WellFormedness {
	return l.wellFormed
}

func (l *Literal) String() string {
	result := fmt.Sprintf("%q", l.Lexical)
	if l.Language != "" {
		result += "@" + l.Language
	} else if l.Datatype != nil && !l.Datatype.Equals(XSDString) {
		result += "^^" + l.Datatype.String()
	}
	return result
}

// Equals is term identity: lexical form, datatype, and language tag all
// equal. Value-space equality is ValueEquals, a separate relation.
func (l *Literal) Equals(other Term) bool {
	ol, ok := other.(*Literal)
	if !ok {
		return false
	}
	if l.Lexical != ol.Lexical || l.Language != ol.Language {
		return false
	}
	return datatypeOrString(l.Datatype).Equals(datatypeOrString(ol.Datatype))
}

// datatypeOrString normalizes an absent datatype to xsd:string so that
// plain "a" and "a"^^xsd:string are the same term.
func datatypeOrString(dt *IRI) *IRI {
	if dt == nil {
		return XSDString
	}
	return dt
}

// Convenience constructors mirroring the common XSD types.

func NewIntegerLiteral(value int64) *Literal {
	return NewTypedLiteral(fmt.Sprintf("%d", value), XSDInteger)
}

func NewDoubleLiteral(value float64) *Literal {
	return NewTypedLiteral(formatFloat(value), XSDDouble)
}

func NewBooleanLiteral(value bool) *Literal {
	return NewTypedLiteral(fmt.Sprintf("%t", value), XSDBoolean)
}
