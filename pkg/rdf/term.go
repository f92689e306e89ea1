package rdf

import (
	"fmt"

	"github.com/google/uuid"
)

// TermType discriminates the closed set of RDF term kinds.
type TermType byte

const (
	TermTypeIRI TermType = iota + 1
	TermTypeBlankNode
	TermTypeLiteral
	TermTypeDefaultGraph
)

// Term represents an RDF term (IRI, blank node, or literal).
type Term interface {
	Type() TermType
	String() string
	Equals(other Term) bool
}

// IRI represents an absolute IRI reference.
type IRI struct {
	Value string
}

func NewIRI(value string) *IRI {
	return &IRI{Value: value}
}

func (n *IRI) Type() TermType {
	return TermTypeIRI
}

func (n *IRI) String() string {
	return fmt.Sprintf("<%s>", n.Value)
}

func (n *IRI) Equals(other Term) bool {
	if on, ok := other.(*IRI); ok {
		return n.Value == on.Value
	}
	return false
}

// BlankNode represents a scoped anonymous node.
type BlankNode struct {
	ID string
}

func NewBlankNode(id string) *BlankNode {
	return &BlankNode{ID: id}
}

// FreshBlankNode returns a blank node with a label that cannot collide
// with labels appearing in parsed documents.
func FreshBlankNode() *BlankNode {
	return &BlankNode{ID: "n" + uuid.NewString()}
}

func (b *BlankNode) Type() TermType {
	return TermTypeBlankNode
}

func (b *BlankNode) String() string {
	return fmt.Sprintf("_:%s", b.ID)
}

func (b *BlankNode) Equals(other Term) bool {
	if ob, ok := other.(*BlankNode); ok {
		return b.ID == ob.ID
	}
	return false
}

// DefaultGraph marks the default graph in the graph position of a quad.
type DefaultGraph struct{}

func NewDefaultGraph() *DefaultGraph {
	return &DefaultGraph{}
}

func (d *DefaultGraph) Type() TermType {
	return TermTypeDefaultGraph
}

func (d *DefaultGraph) String() string {
	return "DEFAULT"
}

func (d *DefaultGraph) Equals(other Term) bool {
	_, ok := other.(*DefaultGraph)
	return ok
}

// Triple represents an RDF triple (subject, predicate, object).
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

func NewTriple(subject, predicate, object Term) *Triple {
	return &Triple{
		Subject:   subject,
		Predicate: predicate,
		Object:    object,
	}
}

func (t *Triple) String() string {
	return fmt.Sprintf("%s %s %s .", t.Subject, t.Predicate, t.Object)
}

// Quad represents an RDF quad (subject, predicate, object, graph).
type Quad struct {
	Subject   Term
	Predicate Term
	Object    Term
	Graph     Term
}

func NewQuad(subject, predicate, object, graph Term) *Quad {
	return &Quad{
		Subject:   subject,
		Predicate: predicate,
		Object:    object,
		Graph:     graph,
	}
}

func (q *Quad) String() string {
	return fmt.Sprintf("%s %s %s %s .", q.Subject, q.Predicate, q.Object, q.Graph)
}

// Well-known datatype IRIs.
var (
	XSDString             = NewIRI("http://www.w3.org/2001/XMLSchema#string")
	XSDBoolean            = NewIRI("http://www.w3.org/2001/XMLSchema#boolean")
	XSDInteger            = NewIRI("http://www.w3.org/2001/XMLSchema#integer")
	XSDLong               = NewIRI("http://www.w3.org/2001/XMLSchema#long")
	XSDInt                = NewIRI("http://www.w3.org/2001/XMLSchema#int")
	XSDShort              = NewIRI("http://www.w3.org/2001/XMLSchema#short")
	XSDByte               = NewIRI("http://www.w3.org/2001/XMLSchema#byte")
	XSDNonNegativeInteger = NewIRI("http://www.w3.org/2001/XMLSchema#nonNegativeInteger")
	XSDNonPositiveInteger = NewIRI("http://www.w3.org/2001/XMLSchema#nonPositiveInteger")
	XSDNegativeInteger    = NewIRI("http://www.w3.org/2001/XMLSchema#negativeInteger")
	XSDPositiveInteger    = NewIRI("http://www.w3.org/2001/XMLSchema#positiveInteger")
	XSDUnsignedLong       = NewIRI("http://www.w3.org/2001/XMLSchema#unsignedLong")
	XSDUnsignedInt        = NewIRI("http://www.w3.org/2001/XMLSchema#unsignedInt")
	XSDUnsignedShort      = NewIRI("http://www.w3.org/2001/XMLSchema#unsignedShort")
	XSDUnsignedByte       = NewIRI("http://www.w3.org/2001/XMLSchema#unsignedByte")
	XSDDecimal            = NewIRI("http://www.w3.org/2001/XMLSchema#decimal")
	XSDFloat              = NewIRI("http://www.w3.org/2001/XMLSchema#float")
	XSDDouble             = NewIRI("http://www.w3.org/2001/XMLSchema#double")
	XSDDateTime           = NewIRI("http://www.w3.org/2001/XMLSchema#dateTime")
	XSDDate               = NewIRI("http://www.w3.org/2001/XMLSchema#date")
	XSDTime               = NewIRI("http://www.w3.org/2001/XMLSchema#time")
	XSDBase64Binary       = NewIRI("http://www.w3.org/2001/XMLSchema#base64Binary")
	XSDHexBinary          = NewIRI("http://www.w3.org/2001/XMLSchema#hexBinary")
	RDFLangString         = NewIRI("http://www.w3.org/1999/02/22-rdf-syntax-ns#langString")
	RDFType               = NewIRI("http://www.w3.org/1999/02/22-rdf-syntax-ns#type")
	RDFNil                = NewIRI("http://www.w3.org/1999/02/22-rdf-syntax-ns#nil")
	RDFFirst              = NewIRI("http://www.w3.org/1999/02/22-rdf-syntax-ns#first")
	RDFRest               = NewIRI("http://www.w3.org/1999/02/22-rdf-syntax-ns#rest")
)
