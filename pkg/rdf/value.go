package rdf

import (
	"bytes"
	"math"
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// ValueKind discriminates the native value spaces literals coerce into.
type ValueKind int

const (
	KindString ValueKind = iota + 1
	KindBool
	KindInteger
	KindDecimal
	KindFloat
	KindDouble
	KindTime
	KindBytes
)

// Value is the tagged variant held by a well-formed literal. Exactly one
// field (selected by Kind) is meaningful.
type Value struct {
	Kind  ValueKind
	Str   string
	Bool  bool
	Int   int64
	Dec   *apd.Decimal
	Float float64
	Time  time.Time
	Bytes []byte
}

func StringValue(s string) Value    { return Value{Kind: KindString, Str: s} }
func BoolValue(b bool) Value        { return Value{Kind: KindBool, Bool: b} }
func IntegerValue(i int64) Value    { return Value{Kind: KindInteger, Int: i} }
func DoubleValue(f float64) Value   { return Value{Kind: KindDouble, Float: f} }
func FloatValue(f float64) Value    { return Value{Kind: KindFloat, Float: f} }
func TimeValue(t time.Time) Value   { return Value{Kind: KindTime, Time: t} }
func BytesValue(b []byte) Value     { return Value{Kind: KindBytes, Bytes: b} }
func DecimalValue(d *apd.Decimal) Value {
	return Value{Kind: KindDecimal, Dec: d}
}

// IsNumeric reports whether the value belongs to one of the numeric
// value spaces that promote into each other for comparison/arithmetic.
func (v Value) IsNumeric() bool {
	switch v.Kind {
	case KindInteger, KindDecimal, KindFloat, KindDouble:
		return true
	}
	return false
}

// Equal is each value space's own equality, used for round-trip checks
// and DISTINCT aggregation.
func (v Value) Equal(o Value) bool {
	if v.IsNumeric() && o.IsNumeric() {
		c, err := compareNumeric(v, o)
		return err == nil && c == 0
	}
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.Str == o.Str
	case KindBool:
		return v.Bool == o.Bool
	case KindTime:
		return v.Time.Equal(o.Time)
	case KindBytes:
		return bytes.Equal(v.Bytes, o.Bytes)
	}
	return false
}

// AsFloat widens any numeric value to float64.
func (v Value) AsFloat() float64 {
	switch v.Kind {
	case KindInteger:
		return float64(v.Int)
	case KindDecimal:
		f, _ := v.Dec.Float64()
		return f
	case KindFloat, KindDouble:
		return v.Float
	}
	return math.NaN()
}

// AsDecimal widens an integer or decimal value to an apd.Decimal.
func (v Value) AsDecimal() *apd.Decimal {
	switch v.Kind {
	case KindInteger:
		return apd.New(v.Int, 0)
	case KindDecimal:
		return v.Dec
	}
	return nil
}

// compareNumeric compares two numeric values after promotion. Integer and
// decimal compare exactly through apd; any float/double operand forces a
// float64 comparison.
func compareNumeric(a, b Value) (int, error) {
	if a.Kind == KindFloat || a.Kind == KindDouble || b.Kind == KindFloat || b.Kind == KindDouble {
		af, bf := a.AsFloat(), b.AsFloat()
		if math.IsNaN(af) || math.IsNaN(bf) {
			return 0, ErrNotOrdered
		}
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		}
		return 0, nil
	}
	ad, bd := a.AsDecimal(), b.AsDecimal()
	if ad == nil || bd == nil {
		return 0, ErrNotOrdered
	}
	return ad.Cmp(bd), nil
}

// formatFloat writes the shortest round-trippable representation, with
// the XSD spellings for the specials.
func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "INF"
	case math.IsInf(f, -1):
		return "-INF"
	case math.IsNaN(f):
		return "NaN"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
