package rdf

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// ParseFunc maps a lexical form into the value space, or rejects it.
type ParseFunc func(lexical string) (Value, error)

// SerializeFunc maps a value back to a lexical form.
type SerializeFunc func(v Value) string

type rule struct {
	datatype  *IRI
	kind      ValueKind
	parse     ParseFunc
	serialize SerializeFunc
	specific  bool
}

// The registry is process-wide and append/overwrite-only. Registration
// from multiple goroutines needs external synchronization; reads during
// evaluation do not, once registration has stabilized.
var (
	rulesByIRI   = map[string]*rule{}
	generalRules = map[ValueKind]*rule{}
)

// Bind registers (or replaces) the coercion rule for a datatype IRI.
// A non-specific rule additionally becomes the default serialization rule
// for native values of the given kind.
func Bind(datatype *IRI, kind ValueKind, parse ParseFunc, serialize SerializeFunc, specific bool) {
	r := &rule{
		datatype:  datatype,
		kind:      kind,
		parse:     parse,
		serialize: serialize,
		specific:  specific,
	}
	rulesByIRI[datatype.Value] = r
	if !specific {
		generalRules[kind] = r
	}
}

func lookupRule(iri string) (*rule, bool) {
	r, ok := rulesByIRI[iri]
	return r, ok
}

func generalRule(kind ValueKind) (*rule, bool) {
	r, ok := generalRules[kind]
	return r, ok
}

// HasRule reports whether a coercion rule is bound for the datatype.
func HasRule(datatype *IRI) bool {
	_, ok := rulesByIRI[datatype.Value]
	return ok
}

func init() {
	Bind(XSDString, KindString,
		func(lex string) (Value, error) { return StringValue(lex), nil },
		func(v Value) string { return v.Str },
		false)

	Bind(XSDBoolean, KindBool, parseBoolean,
		func(v Value) string { return strconv.FormatBool(v.Bool) },
		false)

	Bind(XSDInteger, KindInteger, integerParser(math.MinInt64, math.MaxInt64), serializeInteger, false)
	Bind(XSDLong, KindInteger, integerParser(math.MinInt64, math.MaxInt64), serializeInteger, true)
	Bind(XSDInt, KindInteger, integerParser(math.MinInt32, math.MaxInt32), serializeInteger, true)
	Bind(XSDShort, KindInteger, integerParser(math.MinInt16, math.MaxInt16), serializeInteger, true)
	Bind(XSDByte, KindInteger, integerParser(math.MinInt8, math.MaxInt8), serializeInteger, true)
	Bind(XSDNonNegativeInteger, KindInteger, integerParser(0, math.MaxInt64), serializeInteger, true)
	Bind(XSDPositiveInteger, KindInteger, integerParser(1, math.MaxInt64), serializeInteger, true)
	Bind(XSDNonPositiveInteger, KindInteger, integerParser(math.MinInt64, 0), serializeInteger, true)
	Bind(XSDNegativeInteger, KindInteger, integerParser(math.MinInt64, -1), serializeInteger, true)
	Bind(XSDUnsignedLong, KindInteger, integerParser(0, math.MaxInt64), serializeInteger, true)
	Bind(XSDUnsignedInt, KindInteger, integerParser(0, math.MaxUint32), serializeInteger, true)
	Bind(XSDUnsignedShort, KindInteger, integerParser(0, math.MaxUint16), serializeInteger, true)
	Bind(XSDUnsignedByte, KindInteger, integerParser(0, math.MaxUint8), serializeInteger, true)

	Bind(XSDDecimal, KindDecimal, parseDecimal,
		func(v Value) string { return v.Dec.Text('f') },
		false)

	Bind(XSDDouble, KindDouble, floatParser(KindDouble),
		func(v Value) string { return formatFloat(v.Float) },
		false)
	// Float is its own value kind, so its rule also serves as the
	// general serializer for KindFloat values.
	Bind(XSDFloat, KindFloat, floatParser(KindFloat),
		func(v Value) string { return formatFloat(v.Float) },
		false)

	Bind(XSDDateTime, KindTime, timeParser(dateTimeLayouts),
		func(v Value) string { return v.Time.Format("2006-01-02T15:04:05.999999999Z07:00") },
		false)
	Bind(XSDDate, KindTime, timeParser(dateLayouts),
		func(v Value) string { return v.Time.Format("2006-01-02") },
		true)
	Bind(XSDTime, KindTime, timeParser(timeLayouts),
		func(v Value) string { return v.Time.Format("15:04:05.999999999") },
		true)

	Bind(XSDBase64Binary, KindBytes, parseBase64,
		func(v Value) string { return base64.StdEncoding.EncodeToString(v.Bytes) },
		false)
	Bind(XSDHexBinary, KindBytes, parseHex,
		func(v Value) string { return strings.ToUpper(hex.EncodeToString(v.Bytes)) },
		true)
}

func parseBoolean(lex string) (Value, error) {
	switch lex {
	case "true", "1":
		return BoolValue(true), nil
	case "false", "0":
		return BoolValue(false), nil
	}
	return Value{}, fmt.Errorf("invalid boolean lexical form %q", lex)
}

// integerParser builds a parser for xsd:integer and its range-restricted
// derived types.
func integerParser(min, max int64) ParseFunc {
	return func(lex string) (Value, error) {
		s := strings.TrimPrefix(lex, "+")
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("invalid integer lexical form %q", lex)
		}
		if i < min || i > max {
			return Value{}, fmt.Errorf("integer %d out of range [%d, %d]", i, min, max)
		}
		return IntegerValue(i), nil
	}
}

func serializeInteger(v Value) string {
	return strconv.FormatInt(v.Int, 10)
}

func parseDecimal(lex string) (Value, error) {
	// The xsd:decimal lexical space has no exponent.
	if strings.ContainsAny(lex, "eE") {
		return Value{}, fmt.Errorf("invalid decimal lexical form %q", lex)
	}
	d, _, err := apd.NewFromString(strings.TrimPrefix(lex, "+"))
	if err != nil {
		return Value{}, fmt.Errorf("invalid decimal lexical form %q", lex)
	}
	return DecimalValue(d), nil
}

func floatParser(kind ValueKind) ParseFunc {
	return func(lex string) (Value, error) {
		var f float64
		switch lex {
		case "INF", "+INF":
			f = math.Inf(1)
		case "-INF":
			f = math.Inf(-1)
		case "NaN":
			f = math.NaN()
		default:
			var err error
			f, err = strconv.ParseFloat(lex, 64)
			if err != nil {
				return Value{}, fmt.Errorf("invalid floating point lexical form %q", lex)
			}
		}
		return Value{Kind: kind, Float: f}, nil
	}
}

var dateTimeLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
}

var dateLayouts = []string{
	"2006-01-02Z07:00",
	"2006-01-02",
}

var timeLayouts = []string{
	"15:04:05.999999999Z07:00",
	"15:04:05.999999999",
}

func timeParser(layouts []string) ParseFunc {
	return func(lex string) (Value, error) {
		for _, layout := range layouts {
			if t, err := time.Parse(layout, lex); err == nil {
				return TimeValue(t), nil
			}
		}
		return Value{}, fmt.Errorf("invalid date/time lexical form %q", lex)
	}
}

func parseBase64(lex string) (Value, error) {
	// XSD permits whitespace inside base64 lexical forms.
	cleaned := strings.Map(func(r rune) rune {
		if r == ' ' || r == '\n' || r == '\t' || r == '\r' {
			return -1
		}
		return r
	}, lex)
	b, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return Value{}, fmt.Errorf("invalid base64Binary lexical form: %w", err)
	}
	return BytesValue(b), nil
}

func parseHex(lex string) (Value, error) {
	b, err := hex.DecodeString(lex)
	if err != nil {
		return Value{}, fmt.Errorf("invalid hexBinary lexical form: %w", err)
	}
	return BytesValue(b), nil
}
