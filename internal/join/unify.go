// Package join assembles the unified base: the cleaned loan master enriched
// with the registry, portfolio, age-of-debt, payment-plan and collections
// feeds, then stripped of the administratively excluded accounts.
package join

import (
	"finrisk/internal/keys"
	"finrisk/internal/table"
	"finrisk/internal/transform"

	apperrors "finrisk/pkg/errors"
)

// Inputs carries the cleaned feeds. LoanMaster and Registry are mandatory;
// the rest may be nil and their join step is skipped.
type Inputs struct {
	LoanMaster  *table.Table
	Registry    *table.Table
	Portfolio   *table.Table
	AgeOfDebt   *table.Table
	PaymentPlan *table.Table
	Collections *table.Table

	// ExcludedAccounts lists accounts removed from the base after all
	// joins, one key per row.
	ExcludedAccounts *table.Table
}

// Output is the unified base plus everything the run report wants to know
// about how it was assembled.
type Output struct {
	Base     *table.Table
	Stats    []table.JoinStats
	Excluded int
	Warnings []error

	// Invalid holds rows whose composite key had no identifier content on
	// either side. They are split out before any join so a bare separator
	// can never match across feeds.
	Invalid *table.Table
}

// Unify runs the ordered join sequence. The order is load-bearing: the
// registry backfills the customer id and cut date the key and every later
// join depend on.
func Unify(in Inputs) (*Output, error) {
	if in.LoanMaster == nil {
		return nil, apperrors.CriticalSourceError("loan_master", "not loaded")
	}
	if in.Registry == nil {
		return nil, apperrors.CriticalSourceError("registry", "not loaded")
	}
	out := &Output{}

	// 1. Registry onto the loan master by loan number, one registry record
	// per loan. Backfills cedula, corte and valor.
	reg := in.Registry.Select("numero", "cedula", "corte", "valor")
	reg.SetName("registry")
	reg = reg.DropDuplicatesBy("numero")

	base := in.LoanMaster.Clone()
	base.SetName("base")
	base.DropColumns("cedula", "corte", "valor", transform.KeyColumn)
	base, stats, err := table.LeftJoin(base, reg, []string{"numero"}, "_registry")
	if err != nil {
		return nil, err
	}
	out.record(stats)

	// 2. Rebuild the composite key now that cedula is present. Rows whose
	// key has no identifier content go to a side output instead of joining.
	missing, empty := keys.AddComposite(base, "cedula", "numero", transform.KeyColumn)
	if len(missing) > 0 {
		return nil, apperrors.KeyConstructionError("base", missing)
	}
	if empty > 0 {
		invalid, kept := base.Partition(func(r int) bool {
			return keys.IsEmpty(base.Value(r, transform.KeyColumn).String())
		})
		invalid.SetName("base_invalid_keys")
		out.Invalid = invalid
		out.Warnings = append(out.Warnings, apperrors.EmptyKeyError("base", empty))
		base = kept
	}

	// 3. Portfolio snapshot by (key, corte).
	base, err = out.leftJoin(base, in.Portfolio, []string{transform.KeyColumn, "corte"}, "_ac")
	if err != nil {
		return nil, err
	}

	// 4. Age of debt by key alone; its balances are not cut-dated.
	base, err = out.leftJoin(base, in.AgeOfDebt, []string{transform.KeyColumn}, "_edades")
	if err != nil {
		return nil, err
	}

	// 5. Payment plan by (key, corte).
	base, err = out.leftJoin(base, in.PaymentPlan, []string{transform.KeyColumn, "corte"}, "_r05")
	if err != nil {
		return nil, err
	}

	// 6. Collections by (key, corte).
	base, err = out.leftJoin(base, in.Collections, []string{transform.KeyColumn, "corte"}, "_recaudos")
	if err != nil {
		return nil, err
	}

	// 7. Remove the administratively excluded accounts.
	if in.ExcludedAccounts != nil && in.ExcludedAccounts.NumRows() > 0 {
		excl := prepareExclusions(in.ExcludedAccounts)
		if excl.HasColumn(transform.KeyColumn) {
			filtered, removed, err := table.AntiJoin(base, excl, transform.KeyColumn, transform.KeyColumn)
			if err != nil {
				return nil, err
			}
			base = filtered
			out.Excluded = removed
		} else {
			out.Warnings = append(out.Warnings,
				apperrors.SchemaDriftError("excluded_accounts", transform.KeyColumn))
		}
	}

	base.SetName("base")
	out.Base = base
	return out, nil
}

// leftJoin runs one optional join step, skipping it when the right side is
// absent and recording a warning when the join fans out.
func (o *Output) leftJoin(base, right *table.Table, on []string, suffix string) (*table.Table, error) {
	if right == nil || right.NumRows() == 0 {
		return base, nil
	}
	for _, c := range on {
		if !right.HasColumn(c) {
			o.Warnings = append(o.Warnings, apperrors.SchemaDriftError(right.Name(), c))
			return base, nil
		}
	}
	joined, stats, err := table.LeftJoin(base, right, on, suffix)
	if err != nil {
		return nil, err
	}
	o.record(stats)
	return joined, nil
}

func (o *Output) record(s table.JoinStats) {
	o.Stats = append(o.Stats, s)
	if s.FannedOut() {
		o.Warnings = append(o.Warnings,
			apperrors.JoinCardinalityError(s.Stage, s.LeftRows, s.ResultRows))
	}
}

// prepareExclusions normalizes the exclusion lookup: lower-case columns and a
// composite key built from cedula/numero when the key column is absent.
func prepareExclusions(t *table.Table) *table.Table {
	excl := t.Clone()
	excl.LowercaseColumns()
	if !excl.HasColumn(transform.KeyColumn) {
		keys.AddComposite(excl, "cedula", "numero", transform.KeyColumn)
	}
	return excl
}
