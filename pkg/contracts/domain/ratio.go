package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Ratio is a derived figure that may be unavailable, typically because its
// denominator was zero. Unavailable ratios never carry Inf or NaN.
type Ratio struct {
	value float64
	ok    bool
}

// RatioOf wraps v. Non-finite values become unavailable.
func RatioOf(v float64) Ratio {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Ratio{}
	}
	return Ratio{value: v, ok: true}
}

// NotAvailable returns an unavailable ratio.
func NotAvailable() Ratio {
	return Ratio{}
}

// Divide returns num/den, or an unavailable ratio when den is zero.
func Divide(num, den decimal.Decimal) Ratio {
	if den.IsZero() {
		return Ratio{}
	}
	return RatioOf(num.Div(den).InexactFloat64())
}

// Value returns the ratio and whether it is available.
func (r Ratio) Value() (float64, bool) {
	return r.value, r.ok
}

// Available reports whether the ratio carries a computed value.
func (r Ratio) Available() bool {
	return r.ok
}

// Or returns the value, or fallback when unavailable.
func (r Ratio) Or(fallback float64) float64 {
	if !r.ok {
		return fallback
	}
	return r.value
}

// String formats the ratio with two decimals, or "N/A".
func (r Ratio) String() string {
	if !r.ok {
		return "N/A"
	}
	return strconv.FormatFloat(r.value, 'f', 2, 64)
}

// MarshalJSON renders unavailable ratios as null.
func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.ok {
		return []byte("null"), nil
	}
	return json.Marshal(r.value)
}

// UnmarshalJSON accepts a number or null.
func (r *Ratio) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*r = Ratio{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = RatioOf(v)
	return nil
}

// OptionalInt is an integer column value that may be absent from the row.
type OptionalInt struct {
	Value int64
	Valid bool
}

// IntOf returns a present OptionalInt.
func IntOf(v int64) OptionalInt {
	return OptionalInt{Value: v, Valid: true}
}

// MarshalJSON renders absent values as null.
func (o OptionalInt) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(o.Value, 10)), nil
}

// UnmarshalJSON accepts an integer or null.
func (o *OptionalInt) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = OptionalInt{}
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = IntOf(v)
	return nil
}
