package parser

import (
	"testing"

	"github.com/gtfierro/rdflib/pkg/rdf"
)

// ===== Query Parsing Tests =====

func TestParseSelectBasic(t *testing.T) {
	query, err := ParseQuery(`SELECT ?s ?o WHERE { ?s <http://example.org/p> ?o . }`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if query.Kind != QueryKindSelect {
		t.Errorf("expected SELECT kind, got %v", query.Kind)
	}
	sel := query.Select
	if len(sel.Projection) != 2 {
		t.Fatalf("expected 2 projection items, got %d", len(sel.Projection))
	}
	if sel.Projection[0].Variable.Name != "s" || sel.Projection[1].Variable.Name != "o" {
		t.Errorf("unexpected projection variables: %v, %v", sel.Projection[0].Variable, sel.Projection[1].Variable)
	}
	if len(sel.Where.Elements) != 1 {
		t.Fatalf("expected 1 pattern element, got %d", len(sel.Where.Elements))
	}
	tp, ok := sel.Where.Elements[0].(*TriplePattern)
	if !ok {
		t.Fatalf("expected triple pattern, got %T", sel.Where.Elements[0])
	}
	if !tp.Subject.IsVariable() || tp.Subject.Variable.Name != "s" {
		t.Errorf("unexpected subject: %+v", tp.Subject)
	}
	iri, ok := tp.Predicate.Term.(*rdf.IRI)
	if !ok || iri.Value != "http://example.org/p" {
		t.Errorf("unexpected predicate: %+v", tp.Predicate)
	}
}

func TestParseSelectStar(t *testing.T) {
	query, err := ParseQuery(`SELECT * WHERE { ?s ?p ?o }`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(query.Select.Projection) != 0 {
		t.Errorf("expected empty projection for SELECT *, got %d items", len(query.Select.Projection))
	}
}

func TestParsePrefixes(t *testing.T) {
	query, err := ParseQuery(`
		PREFIX ex: <http://example.org/>
		PREFIX : <http://default.org/>
		SELECT ?s WHERE { ?s ex:knows :alice }`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	tp := query.Select.Where.Elements[0].(*TriplePattern)
	if iri := tp.Predicate.Term.(*rdf.IRI); iri.Value != "http://example.org/knows" {
		t.Errorf("prefixed predicate expanded to %q", iri.Value)
	}
	if iri := tp.Object.Term.(*rdf.IRI); iri.Value != "http://default.org/alice" {
		t.Errorf("default-prefixed object expanded to %q", iri.Value)
	}
}

func TestParseUndefinedPrefix(t *testing.T) {
	_, err := ParseQuery(`SELECT ?s WHERE { ?s ex:p ?o }`)
	if err == nil {
		t.Fatal("expected error for undefined prefix")
	}
}

func TestParseRDFTypeKeyword(t *testing.T) {
	query, err := ParseQuery(`SELECT ?s WHERE { ?s a <http://example.org/Person> }`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	tp := query.Select.Where.Elements[0].(*TriplePattern)
	if iri := tp.Predicate.Term.(*rdf.IRI); iri.Value != rdf.RDFType.Value {
		t.Errorf("'a' expanded to %q", iri.Value)
	}
}

func TestParseLiterals(t *testing.T) {
	tests := []struct {
		name     string
		object   string
		lexical  string
		datatype string
		language string
	}{
		{"plain", `"hello"`, "hello", "http://www.w3.org/2001/XMLSchema#string", ""},
		{"lang", `"bonjour"@fr`, "bonjour", "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString", "fr"},
		{"typed", `"5"^^<http://www.w3.org/2001/XMLSchema#integer>`, "5", "http://www.w3.org/2001/XMLSchema#integer", ""},
		{"integer", `42`, "42", "http://www.w3.org/2001/XMLSchema#integer", ""},
		{"decimal", `3.14`, "3.14", "http://www.w3.org/2001/XMLSchema#decimal", ""},
		{"double", `1.5e3`, "1.5e3", "http://www.w3.org/2001/XMLSchema#double", ""},
		{"negative", `-7`, "-7", "http://www.w3.org/2001/XMLSchema#integer", ""},
		{"boolean", `true`, "true", "http://www.w3.org/2001/XMLSchema#boolean", ""},
		{"escapes", `"a\tb\nc"`, "a\tb\nc", "http://www.w3.org/2001/XMLSchema#string", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, err := ParseQuery(`SELECT ?s WHERE { ?s <http://example.org/p> ` + tt.object + ` }`)
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			tp := query.Select.Where.Elements[0].(*TriplePattern)
			lit, ok := tp.Object.Term.(*rdf.Literal)
			if !ok {
				t.Fatalf("expected literal object, got %T", tp.Object.Term)
			}
			if lit.Lexical != tt.lexical {
				t.Errorf("lexical = %q, want %q", lit.Lexical, tt.lexical)
			}
			datatype := "http://www.w3.org/2001/XMLSchema#string"
			if lit.Datatype != nil {
				datatype = lit.Datatype.Value
			}
			if datatype != tt.datatype {
				t.Errorf("datatype = %q, want %q", datatype, tt.datatype)
			}
			if lit.Language != tt.language {
				t.Errorf("language = %q, want %q", lit.Language, tt.language)
			}
		})
	}
}

func TestParsePredicateObjectLists(t *testing.T) {
	query, err := ParseQuery(`
		PREFIX ex: <http://example.org/>
		SELECT * WHERE { ?s ex:p ?a, ?b ; ex:q ?c . }`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if got := len(query.Select.Where.Elements); got != 3 {
		t.Errorf("expected 3 expanded triples, got %d", got)
	}
}

func TestParseOptionalUnionMinus(t *testing.T) {
	query, err := ParseQuery(`
		PREFIX ex: <http://example.org/>
		SELECT * WHERE {
			?s ex:p ?o .
			OPTIONAL { ?s ex:q ?q }
			MINUS { ?s ex:r ?r }
			{ ?s ex:x ?x } UNION { ?s ex:y ?y } UNION { ?s ex:z ?z }
		}`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	els := query.Select.Where.Elements
	if len(els) != 4 {
		t.Fatalf("expected 4 elements, got %d", len(els))
	}
	if _, ok := els[1].(*OptionalElement); !ok {
		t.Errorf("expected OPTIONAL at index 1, got %T", els[1])
	}
	if _, ok := els[2].(*MinusElement); !ok {
		t.Errorf("expected MINUS at index 2, got %T", els[2])
	}
	union, ok := els[3].(*UnionElement)
	if !ok {
		t.Fatalf("expected UNION at index 3, got %T", els[3])
	}
	if len(union.Alternatives) != 3 {
		t.Errorf("expected 3 union alternatives, got %d", len(union.Alternatives))
	}
}

func TestParseGraphAndService(t *testing.T) {
	query, err := ParseQuery(`
		SELECT * WHERE {
			GRAPH ?g { ?s ?p ?o }
			SERVICE SILENT <http://remote.example/sparql> { ?s ?p ?o }
		}`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	els := query.Select.Where.Elements
	graph, ok := els[0].(*GraphElement)
	if !ok {
		t.Fatalf("expected GRAPH element, got %T", els[0])
	}
	if !graph.Name.IsVariable() || graph.Name.Variable.Name != "g" {
		t.Errorf("unexpected graph name: %+v", graph.Name)
	}
	svc, ok := els[1].(*ServiceElement)
	if !ok {
		t.Fatalf("expected SERVICE element, got %T", els[1])
	}
	if !svc.Silent {
		t.Error("expected SILENT service")
	}
}

func TestParseFilterAndBind(t *testing.T) {
	query, err := ParseQuery(`
		SELECT * WHERE {
			?s ?p ?o .
			FILTER(?o > 5 && ?o < 10)
			BIND(?o * 2 AS ?double)
		}`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	els := query.Select.Where.Elements
	filter, ok := els[1].(*FilterElement)
	if !ok {
		t.Fatalf("expected FILTER, got %T", els[1])
	}
	and, ok := filter.Expr.(*BinaryExpression)
	if !ok || and.Operator != OpAnd {
		t.Errorf("expected && at filter root, got %+v", filter.Expr)
	}
	bind, ok := els[2].(*BindElement)
	if !ok {
		t.Fatalf("expected BIND, got %T", els[2])
	}
	if bind.Variable.Name != "double" {
		t.Errorf("unexpected BIND variable %q", bind.Variable.Name)
	}
}

func TestParseValues(t *testing.T) {
	query, err := ParseQuery(`
		PREFIX ex: <http://example.org/>
		SELECT * WHERE {
			VALUES (?x ?y) { (ex:a 1) (UNDEF "two") }
		}`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	values := query.Select.Where.Elements[0].(*ValuesElement)
	if len(values.Variables) != 2 {
		t.Fatalf("expected 2 variables, got %d", len(values.Variables))
	}
	if len(values.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(values.Rows))
	}
	if values.Rows[1][0] != nil {
		t.Errorf("expected UNDEF (nil) in second row, got %v", values.Rows[1][0])
	}
}

func TestParseValuesSingleVariable(t *testing.T) {
	query, err := ParseQuery(`SELECT * WHERE { VALUES ?x { 1 2 3 } }`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	values := query.Select.Where.Elements[0].(*ValuesElement)
	if len(values.Rows) != 3 {
		t.Errorf("expected 3 rows, got %d", len(values.Rows))
	}
}

func TestParseValuesRejectsVariables(t *testing.T) {
	_, err := ParseQuery(`SELECT * WHERE { VALUES ?x { ?y } }`)
	if err == nil {
		t.Fatal("expected error for variable in VALUES data")
	}
}

func TestParseSubSelect(t *testing.T) {
	query, err := ParseQuery(`
		SELECT ?s WHERE {
			{ SELECT ?s WHERE { ?s ?p ?o } LIMIT 5 }
		}`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	sub, ok := query.Select.Where.Elements[0].(*SubSelectElement)
	if !ok {
		t.Fatalf("expected subselect, got %T", query.Select.Where.Elements[0])
	}
	if sub.Query.Modifiers.Limit == nil || *sub.Query.Modifiers.Limit != 5 {
		t.Errorf("expected LIMIT 5 on subselect, got %v", sub.Query.Modifiers.Limit)
	}
}

// ===== Property Path Tests =====

func TestParsePaths(t *testing.T) {
	tests := []struct {
		name string
		path string
		kind PathKind
	}{
		{"sequence", "ex:p/ex:q", PathSequence},
		{"alternative", "ex:p|ex:q", PathAlternative},
		{"inverse", "^ex:p", PathInverse},
		{"zero or more", "ex:p*", PathZeroOrMore},
		{"one or more", "ex:p+", PathOneOrMore},
		{"zero or one", "ex:p?", PathZeroOrOne},
		{"negated", "!(ex:p|^ex:q)", PathNegated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, err := ParseQuery(`PREFIX ex: <http://example.org/>
				SELECT * WHERE { ?s ` + tt.path + ` ?o }`)
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			tp := query.Select.Where.Elements[0].(*TriplePattern)
			if !tp.Predicate.IsPath() {
				t.Fatalf("expected a path predicate, got %+v", tp.Predicate)
			}
			if tp.Predicate.Path.Kind != tt.kind {
				t.Errorf("path kind = %v, want %v", tp.Predicate.Path.Kind, tt.kind)
			}
		})
	}
}

func TestParseTrivialPathCollapses(t *testing.T) {
	query, err := ParseQuery(`PREFIX ex: <http://example.org/>
		SELECT * WHERE { ?s ex:p ?o }`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	tp := query.Select.Where.Elements[0].(*TriplePattern)
	if tp.Predicate.IsPath() {
		t.Error("single-link path should collapse to a plain IRI predicate")
	}
}

func TestParsePathModifierVsVariable(t *testing.T) {
	// The '?' must attach to the path, not swallow the variable.
	query, err := ParseQuery(`PREFIX ex: <http://example.org/>
		SELECT * WHERE { ?s ex:p? ?o }`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	tp := query.Select.Where.Elements[0].(*TriplePattern)
	if tp.Predicate.Path == nil || tp.Predicate.Path.Kind != PathZeroOrOne {
		t.Fatalf("expected zero-or-one path, got %+v", tp.Predicate)
	}
	if !tp.Object.IsVariable() || tp.Object.Variable.Name != "o" {
		t.Errorf("object variable lost: %+v", tp.Object)
	}
}

func TestParseNegatedPropertySet(t *testing.T) {
	query, err := ParseQuery(`PREFIX ex: <http://example.org/>
		SELECT * WHERE { ?s !(ex:p|^ex:q|a) ?o }`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	path := query.Select.Where.Elements[0].(*TriplePattern).Predicate.Path
	if len(path.Forward) != 2 {
		t.Errorf("expected 2 forward members, got %d", len(path.Forward))
	}
	if len(path.Inverse) != 1 {
		t.Errorf("expected 1 inverse member, got %d", len(path.Inverse))
	}
}

// ===== Expression Tests =====

func TestParseExpressionPrecedence(t *testing.T) {
	query, err := ParseQuery(`SELECT * WHERE { ?s ?p ?o FILTER(?a + ?b * 2 = 10 || ?c) }`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	filter := query.Select.Where.Elements[1].(*FilterElement)
	or, ok := filter.Expr.(*BinaryExpression)
	if !ok || or.Operator != OpOr {
		t.Fatalf("expected || at root, got %+v", filter.Expr)
	}
	eq, ok := or.Left.(*BinaryExpression)
	if !ok || eq.Operator != OpEqual {
		t.Fatalf("expected = under ||, got %+v", or.Left)
	}
	add, ok := eq.Left.(*BinaryExpression)
	if !ok || add.Operator != OpAdd {
		t.Fatalf("expected + under =, got %+v", eq.Left)
	}
	if mul, ok := add.Right.(*BinaryExpression); !ok || mul.Operator != OpMultiply {
		t.Errorf("expected * to bind tighter than +, got %+v", add.Right)
	}
}

func TestParseBuiltinFunctions(t *testing.T) {
	query, err := ParseQuery(`SELECT * WHERE { ?s ?p ?o FILTER(regex(str(?o), "^a", "i")) }`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	filter := query.Select.Where.Elements[1].(*FilterElement)
	call, ok := filter.Expr.(*FunctionCallExpression)
	if !ok || call.Function != "REGEX" {
		t.Fatalf("expected REGEX call, got %+v", filter.Expr)
	}
	if len(call.Arguments) != 3 {
		t.Errorf("expected 3 arguments, got %d", len(call.Arguments))
	}
	inner, ok := call.Arguments[0].(*FunctionCallExpression)
	if !ok || inner.Function != "STR" {
		t.Errorf("expected nested STR call, got %+v", call.Arguments[0])
	}
}

func TestParseNotExists(t *testing.T) {
	query, err := ParseQuery(`SELECT * WHERE { ?s ?p ?o FILTER NOT EXISTS { ?s <http://example.org/q> ?x } }`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	filter := query.Select.Where.Elements[1].(*FilterElement)
	exists, ok := filter.Expr.(*ExistsExpression)
	if !ok {
		t.Fatalf("expected EXISTS expression, got %T", filter.Expr)
	}
	if !exists.Not {
		t.Error("expected NOT EXISTS")
	}
}

func TestParseInExpression(t *testing.T) {
	query, err := ParseQuery(`SELECT * WHERE { ?s ?p ?o FILTER(?o NOT IN (1, 2, 3)) }`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	filter := query.Select.Where.Elements[1].(*FilterElement)
	in, ok := filter.Expr.(*InExpression)
	if !ok {
		t.Fatalf("expected IN expression, got %T", filter.Expr)
	}
	if !in.Not || len(in.Values) != 3 {
		t.Errorf("expected NOT IN with 3 values, got not=%v len=%d", in.Not, len(in.Values))
	}
}

// ===== Modifier Tests =====

func TestParseSolutionModifiers(t *testing.T) {
	query, err := ParseQuery(`
		SELECT ?g (COUNT(?s) AS ?n) WHERE { ?s ?p ?g }
		GROUP BY ?g
		HAVING(COUNT(?s) > 1)
		ORDER BY DESC(?n) ?g
		LIMIT 10 OFFSET 5`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	m := query.Select.Modifiers
	if len(m.GroupBy) != 1 || m.GroupBy[0].Variable.Name != "g" {
		t.Errorf("unexpected GROUP BY: %+v", m.GroupBy)
	}
	if len(m.Having) != 1 {
		t.Errorf("expected 1 HAVING condition, got %d", len(m.Having))
	}
	if len(m.OrderBy) != 2 {
		t.Fatalf("expected 2 ORDER BY conditions, got %d", len(m.OrderBy))
	}
	if m.OrderBy[0].Ascending {
		t.Error("first order condition should be descending")
	}
	if !m.OrderBy[1].Ascending {
		t.Error("second order condition should default to ascending")
	}
	if m.Limit == nil || *m.Limit != 10 {
		t.Errorf("LIMIT = %v, want 10", m.Limit)
	}
	if m.Offset == nil || *m.Offset != 5 {
		t.Errorf("OFFSET = %v, want 5", m.Offset)
	}

	agg, ok := query.Select.Projection[1].Expr.(*AggregateExpression)
	if !ok || agg.Name != "COUNT" {
		t.Errorf("expected COUNT aggregate in projection, got %+v", query.Select.Projection[1].Expr)
	}
}

func TestParseGroupConcat(t *testing.T) {
	query, err := ParseQuery(`
		SELECT (GROUP_CONCAT(DISTINCT ?o ; SEPARATOR = ", ") AS ?all)
		WHERE { ?s ?p ?o } GROUP BY ?s`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	agg := query.Select.Projection[0].Expr.(*AggregateExpression)
	if !agg.Distinct {
		t.Error("expected DISTINCT aggregate")
	}
	if agg.Separator != ", " {
		t.Errorf("separator = %q, want %q", agg.Separator, ", ")
	}
}

func TestParseDistinctAndReduced(t *testing.T) {
	query, err := ParseQuery(`SELECT DISTINCT ?s WHERE { ?s ?p ?o }`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !query.Select.Distinct {
		t.Error("expected DISTINCT")
	}

	query, err = ParseQuery(`SELECT REDUCED ?s WHERE { ?s ?p ?o }`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !query.Select.Reduced {
		t.Error("expected REDUCED")
	}
}

// ===== Other Query Forms =====

func TestParseConstruct(t *testing.T) {
	query, err := ParseQuery(`
		PREFIX ex: <http://example.org/>
		CONSTRUCT { ?s ex:related ?o } WHERE { ?s ex:p ?o }`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if query.Kind != QueryKindConstruct {
		t.Fatalf("expected CONSTRUCT kind, got %v", query.Kind)
	}
	if len(query.Construct.Template) != 1 {
		t.Errorf("expected 1 template triple, got %d", len(query.Construct.Template))
	}
}

func TestParseConstructWhereShorthand(t *testing.T) {
	query, err := ParseQuery(`CONSTRUCT WHERE { ?s ?p ?o }`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(query.Construct.Template) != 1 {
		t.Errorf("expected template from shorthand, got %d triples", len(query.Construct.Template))
	}
}

func TestParseAsk(t *testing.T) {
	query, err := ParseQuery(`ASK { ?s ?p ?o }`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if query.Kind != QueryKindAsk {
		t.Errorf("expected ASK kind, got %v", query.Kind)
	}
}

func TestParseDescribe(t *testing.T) {
	query, err := ParseQuery(`DESCRIBE <http://example.org/alice> ?x WHERE { ?x ?p <http://example.org/alice> }`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if query.Kind != QueryKindDescribe {
		t.Fatalf("expected DESCRIBE kind, got %v", query.Kind)
	}
	if len(query.Describe.Resources) != 1 || len(query.Describe.Variables) != 1 {
		t.Errorf("resources=%d variables=%d, want 1 and 1",
			len(query.Describe.Resources), len(query.Describe.Variables))
	}
}

func TestParseDatasetClauses(t *testing.T) {
	query, err := ParseQuery(`
		SELECT * FROM <http://example.org/g1> FROM NAMED <http://example.org/g2>
		WHERE { ?s ?p ?o }`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(query.Dataset) != 2 {
		t.Fatalf("expected 2 dataset clauses, got %d", len(query.Dataset))
	}
	if query.Dataset[0].Named || !query.Dataset[1].Named {
		t.Errorf("unexpected named flags: %v, %v", query.Dataset[0].Named, query.Dataset[1].Named)
	}
}

// ===== Update Parsing Tests =====

func TestParseInsertData(t *testing.T) {
	update, err := ParseUpdate(`
		PREFIX ex: <http://example.org/>
		INSERT DATA {
			ex:a ex:p "x" .
			GRAPH ex:g { ex:b ex:q 2 }
		}`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	op, ok := update.Operations[0].(*InsertData)
	if !ok {
		t.Fatalf("expected InsertData, got %T", update.Operations[0])
	}
	if len(op.Quads) != 2 {
		t.Fatalf("expected 2 quads, got %d", len(op.Quads))
	}
	if op.Quads[0].Graph != nil {
		t.Error("first quad should target the default graph")
	}
	if op.Quads[1].Graph == nil {
		t.Error("second quad should carry a graph name")
	}
}

func TestParseInsertDataRejectsVariables(t *testing.T) {
	_, err := ParseUpdate(`INSERT DATA { ?s <http://example.org/p> 1 }`)
	if err == nil {
		t.Fatal("expected error for variable in INSERT DATA")
	}
}

func TestParseDeleteDataRejectsBlankNodes(t *testing.T) {
	_, err := ParseUpdate(`DELETE DATA { _:b <http://example.org/p> 1 }`)
	if err == nil {
		t.Fatal("expected error for blank node in DELETE DATA")
	}
}

func TestParseDeleteWhereShorthand(t *testing.T) {
	update, err := ParseUpdate(`DELETE WHERE { ?s <http://example.org/p> ?o }`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	modify, ok := update.Operations[0].(*Modify)
	if !ok {
		t.Fatalf("expected Modify, got %T", update.Operations[0])
	}
	if len(modify.Delete) != 1 || modify.Where == nil {
		t.Errorf("expected delete template and WHERE from shorthand: %+v", modify)
	}
}

func TestParseModifyWithUsing(t *testing.T) {
	update, err := ParseUpdate(`
		PREFIX ex: <http://example.org/>
		WITH ex:g
		DELETE { ?s ex:old ?o }
		INSERT { ?s ex:new ?o }
		USING ex:src
		WHERE { ?s ex:old ?o }`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	modify := update.Operations[0].(*Modify)
	if modify.With == nil || modify.With.Value != "http://example.org/g" {
		t.Errorf("unexpected WITH: %v", modify.With)
	}
	if len(modify.Delete) != 1 || len(modify.Insert) != 1 {
		t.Errorf("delete=%d insert=%d, want 1 and 1", len(modify.Delete), len(modify.Insert))
	}
	if len(modify.Using) != 1 {
		t.Errorf("expected 1 USING clause, got %d", len(modify.Using))
	}
}

func TestParseGraphManagement(t *testing.T) {
	update, err := ParseUpdate(`
		LOAD SILENT <http://example.org/data.nq> INTO GRAPH <http://example.org/g> ;
		CLEAR DEFAULT ;
		CREATE GRAPH <http://example.org/new> ;
		DROP SILENT ALL ;
		COPY DEFAULT TO GRAPH <http://example.org/dst> ;
		MOVE GRAPH <http://example.org/a> TO GRAPH <http://example.org/b> ;
		ADD GRAPH <http://example.org/a> TO DEFAULT`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(update.Operations) != 7 {
		t.Fatalf("expected 7 operations, got %d", len(update.Operations))
	}

	load := update.Operations[0].(*Load)
	if !load.Silent || load.Into == nil {
		t.Errorf("unexpected LOAD: %+v", load)
	}
	clear := update.Operations[1].(*Clear)
	if clear.Target.Kind != GraphRefDefault {
		t.Errorf("unexpected CLEAR target: %v", clear.Target.Kind)
	}
	drop := update.Operations[3].(*Drop)
	if !drop.Silent || drop.Target.Kind != GraphRefAll {
		t.Errorf("unexpected DROP: %+v", drop)
	}
	cp := update.Operations[4].(*Copy)
	if cp.From.Kind != GraphRefDefault || cp.To.Kind != GraphRefGraph {
		t.Errorf("unexpected COPY: %+v", cp)
	}
}

// ===== Error Reporting Tests =====

func TestSyntaxErrorPosition(t *testing.T) {
	_, err := ParseQuery("SELECT ?s WHERE {\n ?s ?p @ }")
	if err == nil {
		t.Fatal("expected syntax error")
	}
	se, ok := err.(*SyntaxError)
	if !ok {
		t.Fatalf("expected *SyntaxError, got %T", err)
	}
	if se.Line != 2 {
		t.Errorf("error line = %d, want 2", se.Line)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"empty", ""},
		{"unterminated string", `SELECT * WHERE { ?s ?p "abc }`},
		{"unterminated group", `SELECT * WHERE { ?s ?p ?o`},
		{"trailing garbage", `ASK { ?s ?p ?o } nonsense`},
		{"missing AS", `SELECT (1 + 1 ?x) WHERE {}`},
		{"bad keyword", `SELEKT ?s WHERE { ?s ?p ?o }`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseQuery(tt.query); err == nil {
				t.Errorf("expected error for %q", tt.query)
			}
		})
	}
}
