package evaluator

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"math"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gtfierro/rdflib/pkg/rdf"
	"github.com/gtfierro/rdflib/pkg/sparql/parser"
)

const xsdPrefix = "http://www.w3.org/2001/XMLSchema#"

// evaluateFunctionCall dispatches a builtin or cast function.
func (e *Evaluator) evaluateFunctionCall(ctx context.Context, expr *parser.FunctionCallExpression, sol Solution) (rdf.Term, error) {
	// Special forms evaluate their own arguments.
	switch expr.Function {
	case "BOUND":
		return e.evaluateBound(expr.Arguments, sol)
	case "IF":
		return e.evaluateIf(ctx, expr.Arguments, sol)
	case "COALESCE":
		return e.evaluateCoalesce(ctx, expr.Arguments, sol)
	}

	args := make([]rdf.Term, len(expr.Arguments))
	for i, a := range expr.Arguments {
		t, err := e.EvaluateExpression(ctx, a, sol)
		if err != nil {
			return nil, err
		}
		args[i] = t
	}

	switch expr.Function {
	// Term inspection.
	case "ISIRI", "ISURI":
		_, ok := args[0].(*rdf.IRI)
		return rdf.NewBooleanLiteral(ok), nil
	case "ISBLANK":
		_, ok := args[0].(*rdf.BlankNode)
		return rdf.NewBooleanLiteral(ok), nil
	case "ISLITERAL":
		_, ok := args[0].(*rdf.Literal)
		return rdf.NewBooleanLiteral(ok), nil
	case "ISNUMERIC":
		_, err := numericValue(args[0])
		return rdf.NewBooleanLiteral(err == nil), nil
	case "SAMETERM":
		return rdf.NewBooleanLiteral(args[0].Equals(args[1])), nil

	// Term accessors and constructors.
	case "STR":
		return e.evaluateStr(args[0])
	case "LANG":
		lit, ok := args[0].(*rdf.Literal)
		if !ok {
			return nil, fmt.Errorf("LANG expects a literal, got %s", args[0])
		}
		return rdf.NewLiteral(lit.Language), nil
	case "DATATYPE":
		lit, ok := args[0].(*rdf.Literal)
		if !ok {
			return nil, fmt.Errorf("DATATYPE expects a literal, got %s", args[0])
		}
		if lit.Language != "" {
			return rdf.RDFLangString, nil
		}
		if lit.Datatype == nil {
			return rdf.XSDString, nil
		}
		return lit.Datatype, nil
	case "IRI", "URI":
		switch t := args[0].(type) {
		case *rdf.IRI:
			return t, nil
		case *rdf.Literal:
			return rdf.NewIRI(t.Lexical), nil
		}
		return nil, fmt.Errorf("cannot build an IRI from %s", args[0])
	case "BNODE":
		if len(args) == 1 {
			lit, ok := args[0].(*rdf.Literal)
			if !ok {
				return nil, fmt.Errorf("BNODE expects a string, got %s", args[0])
			}
			return rdf.NewBlankNode(lit.Lexical), nil
		}
		return rdf.FreshBlankNode(), nil
	case "STRDT":
		lex, _, err := stringArg(args[0])
		if err != nil {
			return nil, err
		}
		dt, ok := args[1].(*rdf.IRI)
		if !ok {
			return nil, fmt.Errorf("STRDT expects an IRI datatype, got %s", args[1])
		}
		return rdf.NewTypedLiteral(lex, dt), nil
	case "STRLANG":
		lex, _, err := stringArg(args[0])
		if err != nil {
			return nil, err
		}
		tag, _, err := stringArg(args[1])
		if err != nil {
			return nil, err
		}
		return rdf.NewLangLiteral(lex, tag), nil
	case "UUID":
		return rdf.NewIRI("urn:uuid:" + uuid.NewString()), nil
	case "STRUUID":
		return rdf.NewLiteral(uuid.NewString()), nil

	// Strings.
	case "STRLEN":
		lex, _, err := stringArg(args[0])
		if err != nil {
			return nil, err
		}
		return rdf.NewIntegerLiteral(int64(len([]rune(lex)))), nil
	case "SUBSTR":
		return evaluateSubstr(args)
	case "UCASE":
		return mapString(args[0], strings.ToUpper)
	case "LCASE":
		return mapString(args[0], strings.ToLower)
	case "STRSTARTS":
		return stringPredicate(args, strings.HasPrefix)
	case "STRENDS":
		return stringPredicate(args, strings.HasSuffix)
	case "CONTAINS":
		return stringPredicate(args, strings.Contains)
	case "STRBEFORE":
		return stringSplit(args, true)
	case "STRAFTER":
		return stringSplit(args, false)
	case "CONCAT":
		return evaluateConcat(args)
	case "ENCODE_FOR_URI":
		lex, _, err := stringArg(args[0])
		if err != nil {
			return nil, err
		}
		return rdf.NewLiteral(encodeForURI(lex)), nil
	case "LANGMATCHES":
		return evaluateLangMatches(args)
	case "REGEX":
		return evaluateRegex(args)
	case "REPLACE":
		return evaluateReplace(args)

	// Numerics.
	case "ABS":
		return mapNumeric(args[0], math.Abs)
	case "CEIL":
		return mapNumeric(args[0], math.Ceil)
	case "FLOOR":
		return mapNumeric(args[0], math.Floor)
	case "ROUND":
		return mapNumeric(args[0], math.Round)
	case "RAND":
		return rdf.NewDoubleLiteral(rand.Float64()), nil

	// Date and time.
	case "NOW":
		return rdf.NewTypedLiteral(e.Now.Format("2006-01-02T15:04:05.999999999Z07:00"), rdf.XSDDateTime), nil
	case "YEAR":
		return timeAccessor(args[0], func(t time.Time) int64 { return int64(t.Year()) })
	case "MONTH":
		return timeAccessor(args[0], func(t time.Time) int64 { return int64(t.Month()) })
	case "DAY":
		return timeAccessor(args[0], func(t time.Time) int64 { return int64(t.Day()) })
	case "HOURS":
		return timeAccessor(args[0], func(t time.Time) int64 { return int64(t.Hour()) })
	case "MINUTES":
		return timeAccessor(args[0], func(t time.Time) int64 { return int64(t.Minute()) })
	case "SECONDS":
		return evaluateSeconds(args[0])
	case "TZ":
		return evaluateTZ(args[0])

	// Hashes.
	case "MD5":
		return hashLiteral(args[0], md5.New())
	case "SHA1":
		return hashLiteral(args[0], sha1.New())
	case "SHA256":
		return hashLiteral(args[0], sha256.New())
	case "SHA384":
		return hashLiteral(args[0], sha512.New384())
	case "SHA512":
		return hashLiteral(args[0], sha512.New())
	}

	// Cast functions carry the target datatype as their name.
	if strings.HasPrefix(expr.Function, xsdPrefix) {
		return evaluateCast(args, expr.Function)
	}
	return nil, fmt.Errorf("unsupported function %s", expr.Function)
}

func (e *Evaluator) evaluateBound(args []parser.Expression, sol Solution) (rdf.Term, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("BOUND expects one variable argument")
	}
	v, ok := args[0].(*parser.VariableExpression)
	if !ok {
		return nil, fmt.Errorf("BOUND expects a variable argument")
	}
	return rdf.NewBooleanLiteral(sol.Bound(v.Variable.Name)), nil
}

func (e *Evaluator) evaluateIf(ctx context.Context, args []parser.Expression, sol Solution) (rdf.Term, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("IF expects three arguments")
	}
	cond, err := e.effectiveBool(ctx, args[0], sol)
	if err != nil {
		return nil, err
	}
	if cond {
		return e.EvaluateExpression(ctx, args[1], sol)
	}
	return e.EvaluateExpression(ctx, args[2], sol)
}

func (e *Evaluator) evaluateCoalesce(ctx context.Context, args []parser.Expression, sol Solution) (rdf.Term, error) {
	for _, a := range args {
		if t, err := e.EvaluateExpression(ctx, a, sol); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("COALESCE: no argument evaluated without error")
}

func (e *Evaluator) evaluateStr(t rdf.Term) (rdf.Term, error) {
	switch v := t.(type) {
	case *rdf.IRI:
		return rdf.NewLiteral(v.Value), nil
	case *rdf.Literal:
		return rdf.NewLiteral(v.Lexical), nil
	}
	return nil, fmt.Errorf("STR expects an IRI or literal, got %s", t)
}

// stringArg extracts the lexical form and language tag of a string
// literal (plain, xsd:string or language-tagged).
func stringArg(t rdf.Term) (string, string, error) {
	lit, ok := t.(*rdf.Literal)
	if !ok {
		return "", "", fmt.Errorf("%s is not a string literal", t)
	}
	if lit.Datatype != nil && !lit.Datatype.Equals(rdf.XSDString) && !lit.Datatype.Equals(rdf.RDFLangString) {
		return "", "", fmt.Errorf("%s is not a string literal", t)
	}
	return lit.Lexical, lit.Language, nil
}

// rebuildString keeps the input's language tag on a derived string.
func rebuildString(lex, lang string) *rdf.Literal {
	if lang != "" {
		return rdf.NewLangLiteral(lex, lang)
	}
	return rdf.NewLiteral(lex)
}

func mapString(t rdf.Term, fn func(string) string) (rdf.Term, error) {
	lex, lang, err := stringArg(t)
	if err != nil {
		return nil, err
	}
	return rebuildString(fn(lex), lang), nil
}

func stringPredicate(args []rdf.Term, fn func(string, string) bool) (rdf.Term, error) {
	a, _, err := stringArg(args[0])
	if err != nil {
		return nil, err
	}
	b, _, err := stringArg(args[1])
	if err != nil {
		return nil, err
	}
	return rdf.NewBooleanLiteral(fn(a, b)), nil
}

func stringSplit(args []rdf.Term, before bool) (rdf.Term, error) {
	a, lang, err := stringArg(args[0])
	if err != nil {
		return nil, err
	}
	b, _, err := stringArg(args[1])
	if err != nil {
		return nil, err
	}
	idx := strings.Index(a, b)
	if idx < 0 {
		return rdf.NewLiteral(""), nil
	}
	if before {
		return rebuildString(a[:idx], lang), nil
	}
	return rebuildString(a[idx+len(b):], lang), nil
}

func evaluateConcat(args []rdf.Term) (rdf.Term, error) {
	var sb strings.Builder
	lang := ""
	sameLang := true
	for i, a := range args {
		lex, l, err := stringArg(a)
		if err != nil {
			return nil, err
		}
		sb.WriteString(lex)
		if i == 0 {
			lang = l
		} else if l != lang {
			sameLang = false
		}
	}
	if sameLang && lang != "" {
		return rdf.NewLangLiteral(sb.String(), lang), nil
	}
	return rdf.NewLiteral(sb.String()), nil
}

func evaluateSubstr(args []rdf.Term) (rdf.Term, error) {
	if len(args) < 2 || len(args) > 3 {
		return nil, fmt.Errorf("SUBSTR expects two or three arguments")
	}
	lex, lang, err := stringArg(args[0])
	if err != nil {
		return nil, err
	}
	startV, err := numericValue(args[1])
	if err != nil {
		return nil, err
	}
	runes := []rune(lex)
	start := int(startV.AsFloat()) - 1
	if start < 0 {
		start = 0
	}
	if start > len(runes) {
		start = len(runes)
	}
	end := len(runes)
	if len(args) == 3 {
		lengthV, err := numericValue(args[2])
		if err != nil {
			return nil, err
		}
		end = start + int(lengthV.AsFloat())
		if end > len(runes) {
			end = len(runes)
		}
		if end < start {
			end = start
		}
	}
	return rebuildString(string(runes[start:end]), lang), nil
}

func evaluateLangMatches(args []rdf.Term) (rdf.Term, error) {
	tag, _, err := stringArg(args[0])
	if err != nil {
		return nil, err
	}
	rng, _, err := stringArg(args[1])
	if err != nil {
		return nil, err
	}
	if rng == "*" {
		return rdf.NewBooleanLiteral(tag != ""), nil
	}
	tag, rng = strings.ToLower(tag), strings.ToLower(rng)
	matches := tag == rng || strings.HasPrefix(tag, rng+"-")
	return rdf.NewBooleanLiteral(matches), nil
}

func regexFlags(flags string) (string, error) {
	var prefix strings.Builder
	for _, f := range flags {
		switch f {
		case 'i':
			prefix.WriteString("(?i)")
		case 's':
			prefix.WriteString("(?s)")
		case 'm':
			prefix.WriteString("(?m)")
		case 'q':
			// Literal matching is handled by the caller.
		default:
			return "", fmt.Errorf("unsupported regex flag %q", string(f))
		}
	}
	return prefix.String(), nil
}

func compileRegex(pattern, flags string) (*regexp.Regexp, error) {
	if strings.ContainsRune(flags, 'q') {
		pattern = regexp.QuoteMeta(pattern)
	}
	prefix, err := regexFlags(flags)
	if err != nil {
		return nil, err
	}
	return regexp.Compile(prefix + pattern)
}

func evaluateRegex(args []rdf.Term) (rdf.Term, error) {
	if len(args) < 2 || len(args) > 3 {
		return nil, fmt.Errorf("REGEX expects two or three arguments")
	}
	text, _, err := stringArg(args[0])
	if err != nil {
		return nil, err
	}
	pattern, _, err := stringArg(args[1])
	if err != nil {
		return nil, err
	}
	flags := ""
	if len(args) == 3 {
		if flags, _, err = stringArg(args[2]); err != nil {
			return nil, err
		}
	}
	re, err := compileRegex(pattern, flags)
	if err != nil {
		return nil, err
	}
	return rdf.NewBooleanLiteral(re.MatchString(text)), nil
}

func evaluateReplace(args []rdf.Term) (rdf.Term, error) {
	if len(args) < 3 || len(args) > 4 {
		return nil, fmt.Errorf("REPLACE expects three or four arguments")
	}
	text, lang, err := stringArg(args[0])
	if err != nil {
		return nil, err
	}
	pattern, _, err := stringArg(args[1])
	if err != nil {
		return nil, err
	}
	replacement, _, err := stringArg(args[2])
	if err != nil {
		return nil, err
	}
	flags := ""
	if len(args) == 4 {
		if flags, _, err = stringArg(args[3]); err != nil {
			return nil, err
		}
	}
	re, err := compileRegex(pattern, flags)
	if err != nil {
		return nil, err
	}
	return rebuildString(re.ReplaceAllString(text, replacement), lang), nil
}

// encodeForURI percent-encodes everything except RFC 3986 unreserved
// characters.
func encodeForURI(s string) string {
	var sb strings.Builder
	for _, b := range []byte(s) {
		if b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' ||
			b == '-' || b == '_' || b == '.' || b == '~' {
			sb.WriteByte(b)
			continue
		}
		fmt.Fprintf(&sb, "%%%02X", b)
	}
	return sb.String()
}

func mapNumeric(t rdf.Term, fn func(float64) float64) (rdf.Term, error) {
	v, err := numericValue(t)
	if err != nil {
		return nil, err
	}
	f := fn(v.AsFloat())
	switch v.Kind {
	case rdf.KindInteger:
		return rdf.NewIntegerLiteral(int64(f)), nil
	case rdf.KindDouble, rdf.KindFloat:
		return rdf.FromValue(rdf.Value{Kind: v.Kind, Float: f}, nil)
	}
	return rdf.NewTypedLiteral(strconv.FormatFloat(f, 'f', -1, 64), rdf.XSDDecimal), nil
}

func timeValue(t rdf.Term) (time.Time, error) {
	lit, ok := t.(*rdf.Literal)
	if !ok {
		return time.Time{}, fmt.Errorf("%s is not a dateTime literal", t)
	}
	v, ok := lit.Value()
	if !ok || v.Kind != rdf.KindTime {
		return time.Time{}, fmt.Errorf("%s is not a dateTime literal", t)
	}
	return v.Time, nil
}

func timeAccessor(t rdf.Term, fn func(time.Time) int64) (rdf.Term, error) {
	tv, err := timeValue(t)
	if err != nil {
		return nil, err
	}
	return rdf.NewIntegerLiteral(fn(tv)), nil
}

func evaluateSeconds(t rdf.Term) (rdf.Term, error) {
	tv, err := timeValue(t)
	if err != nil {
		return nil, err
	}
	sec := float64(tv.Second()) + float64(tv.Nanosecond())/1e9
	return rdf.NewTypedLiteral(strconv.FormatFloat(sec, 'f', -1, 64), rdf.XSDDecimal), nil
}

func evaluateTZ(t rdf.Term) (rdf.Term, error) {
	tv, err := timeValue(t)
	if err != nil {
		return nil, err
	}
	_, offset := tv.Zone()
	if offset == 0 {
		return rdf.NewLiteral("Z"), nil
	}
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	return rdf.NewLiteral(fmt.Sprintf("%s%02d:%02d", sign, offset/3600, offset%3600/60)), nil
}

func hashLiteral(t rdf.Term, h hash.Hash) (rdf.Term, error) {
	lex, _, err := stringArg(t)
	if err != nil {
		return nil, err
	}
	h.Write([]byte(lex))
	return rdf.NewLiteral(fmt.Sprintf("%x", h.Sum(nil))), nil
}

// evaluateCast coerces the argument's lexical form under the target
// datatype; a lexical form the datatype rejects is a type error.
func evaluateCast(args []rdf.Term, datatype string) (rdf.Term, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("cast to %s expects one argument", datatype)
	}
	var lexical string
	switch v := args[0].(type) {
	case *rdf.Literal:
		lexical = v.Lexical
	case *rdf.IRI:
		if datatype != xsdPrefix+"string" {
			return nil, fmt.Errorf("cannot cast an IRI to %s", datatype)
		}
		lexical = v.Value
	default:
		return nil, fmt.Errorf("cannot cast %s", args[0])
	}
	lit := rdf.NewTypedLiteral(lexical, rdf.NewIRI(datatype))
	if lit.WellFormedness() == rdf.IllFormed {
		return nil, fmt.Errorf("cannot cast %q to %s", lexical, datatype)
	}
	return lit, nil
}
