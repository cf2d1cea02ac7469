// Package keys builds and normalizes the composite customer-loan identifiers
// every join in the pipeline runs on.
package keys

import (
	"regexp"
	"strings"

	"finrisk/internal/table"
)

// Sep is the canonical separator between the customer and loan identifiers.
const Sep = "-"

// legacySep appears in older payment-plan extracts and is rewritten to Sep
// before any join.
const legacySep = "_"

// synthetic matches keys built from a null customer identifier. Spreadsheet
// exports render a missing id as "NA", direct normalization renders it as the
// empty string, so both "NA-123" and "-123" are synthetic.
var synthetic = regexp.MustCompile(`^(NA)?-\d+$`)

// NormalizeIdentifier renders an identifier cell as the string used in keys:
// nulls become "", integral numbers drop their fraction and exponent, numeric
// strings are re-rendered through the same path so "123.0" and "123" agree,
// and everything else is trimmed as-is. Idempotent by construction.
func NormalizeIdentifier(v table.Value) string {
	if v.IsNull() {
		return ""
	}
	if d, ok := v.Decimal(); ok {
		if d.IsInteger() {
			return d.BigInt().String()
		}
		return d.String()
	}
	s := strings.TrimSpace(v.String())
	if s == "" {
		return ""
	}
	if d, ok := table.String(s).AsNumber(); ok {
		if d.IsInteger() {
			return d.BigInt().String()
		}
		return d.String()
	}
	return s
}

// Compose builds the composite key from the customer and loan identifier
// cells.
func Compose(customer, loan table.Value) string {
	return NormalizeIdentifier(customer) + Sep + NormalizeIdentifier(loan)
}

// Rekey rewrites a key from the legacy underscore form to the canonical form.
// Keys already in canonical form pass through unchanged.
func Rekey(key string) string {
	key = strings.TrimSpace(key)
	if strings.Contains(key, Sep) {
		return key
	}
	return strings.Replace(key, legacySep, Sep, 1)
}

// IsSynthetic reports whether a key was built from a missing customer
// identifier and should be quarantined rather than published.
func IsSynthetic(key string) bool {
	return synthetic.MatchString(strings.TrimSpace(key))
}

// IsEmpty reports whether a key carries no identifier content at all, i.e.
// both halves normalized to "".
func IsEmpty(key string) bool {
	return strings.Trim(strings.TrimSpace(key), Sep) == ""
}

// AddComposite appends the composite key column to a table from the named
// identifier columns. Returns the columns that could not be resolved and the
// number of rows whose key came out empty on both halves; those keys are the
// bare separator and must never join.
func AddComposite(t *table.Table, customerCol, loanCol, keyCol string) (missing []string, empty int) {
	cc := t.ResolveColumn(customerCol)
	if cc == "" {
		missing = append(missing, customerCol)
	}
	lc := t.ResolveColumn(loanCol)
	if lc == "" {
		missing = append(missing, loanCol)
	}
	if len(missing) > 0 {
		return missing, 0
	}
	t.AddColumn(keyCol, table.Null())
	for r := 0; r < t.NumRows(); r++ {
		k := Compose(t.Value(r, cc), t.Value(r, lc))
		if IsEmpty(k) {
			empty++
		}
		t.Set(r, keyCol, table.String(k))
	}
	return nil, empty
}
