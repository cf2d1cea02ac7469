package table

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind discriminates the cell types a Table can hold.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindTime
)

// Value is a single table cell. Numbers are exact decimals so that monetary
// aggregation never drifts; dates carry no clock component.
type Value struct {
	kind Kind
	s    string
	n    decimal.Decimal
	t    time.Time
}

func Null() Value                  { return Value{kind: KindNull} }
func String(s string) Value        { return Value{kind: KindString, s: s} }
func Number(d decimal.Decimal) Value {
	return Value{kind: KindNumber, n: d}
}
func Int(i int64) Value     { return Number(decimal.NewFromInt(i)) }
func Float(f float64) Value { return Number(decimal.NewFromFloat(f)) }
func Time(t time.Time) Value {
	return Value{kind: KindTime, t: t}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Decimal returns the numeric content, false when the cell is not a number.
func (v Value) Decimal() (decimal.Decimal, bool) {
	if v.kind != KindNumber {
		return decimal.Decimal{}, false
	}
	return v.n, true
}

// Time returns the time content, false when the cell is not a date.
func (v Value) Time() (time.Time, bool) {
	if v.kind != KindTime {
		return time.Time{}, false
	}
	return v.t, true
}

// String renders the cell for keys, pivots and export. Dates render as
// ISO yyyy-mm-dd so that lexicographic order is chronological order.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindString:
		return v.s
	case KindNumber:
		return v.n.String()
	case KindTime:
		return v.t.Format("2006-01-02")
	}
	return ""
}

// Equal reports exact cell equality, used for whole-row deduplication.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.s == o.s
	case KindNumber:
		return v.n.Equal(o.n)
	case KindTime:
		return v.t.Equal(o.t)
	}
	return false
}

// AsNumber coerces the cell to a decimal: numbers pass through,
// numeric-looking strings parse, everything else reports false.
func (v Value) AsNumber() (decimal.Decimal, bool) {
	switch v.kind {
	case KindNumber:
		return v.n, true
	case KindString:
		s := strings.TrimSpace(v.s)
		if s == "" {
			return decimal.Decimal{}, false
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	}
	return decimal.Decimal{}, false
}

// AsTime coerces the cell to a date, accepting the layouts the feeds use.
func (v Value) AsTime() (time.Time, bool) {
	switch v.kind {
	case KindTime:
		return v.t, true
	case KindString:
		s := strings.TrimSpace(v.s)
		if s == "" {
			return time.Time{}, false
		}
		layouts := []string{
			"2006-01-02",
			"2006-01-02 15:04:05",
			"02/01/2006",
			"01-02-06",
			time.RFC3339,
		}
		for _, layout := range layouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
