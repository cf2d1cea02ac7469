// Package pipeline orchestrates a full run: load the feeds, clean them,
// assemble the unified base, derive the published datasets and persist
// everything.
package pipeline

import (
	"context"
	"math/rand"
	"time"

	"finrisk/internal/behavior"
	"finrisk/internal/cohort"
	"finrisk/internal/join"
	"finrisk/internal/loader"
	"finrisk/internal/report"
	"finrisk/internal/segment"
	"finrisk/internal/sink"
	"finrisk/internal/table"
	"finrisk/internal/transform"
	"finrisk/internal/ui"
	"finrisk/pkg/models"

	apperrors "finrisk/pkg/errors"
)

// Pipeline runs the ETL end to end.
type Pipeline struct {
	cfg *models.Config
	ui  *ui.UI
	now func() time.Time
}

// New creates a pipeline. nowFn is injectable for tests; nil means wall
// clock.
func New(cfg *models.Config, u *ui.UI, nowFn func() time.Time) *Pipeline {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Pipeline{cfg: cfg, ui: u, now: nowFn}
}

// Run executes the pipeline and returns the run report. The report is
// written to the output directory even when the run fails partway.
func (p *Pipeline) Run(ctx context.Context) (*report.Report, error) {
	rep := report.New()
	defer func() {
		rep.Finish()
		if p.cfg.Output.Dir != "" {
			if _, err := rep.Save(p.cfg.Output.Dir); err != nil {
				p.ui.Warning("could not write run summary: " + err.Error())
			}
		}
	}()

	cleaned, aux, err := p.loadAndClean(rep)
	if err != nil {
		rep.Fail(err)
		return rep, err
	}

	p.ui.Header("Assembling unified base")
	unified, err := join.Unify(join.Inputs{
		LoanMaster:       cleaned[models.FeedLoanMaster],
		Registry:         cleaned[models.FeedRegistry],
		Portfolio:        cleaned[models.FeedPortfolio],
		AgeOfDebt:        cleaned[models.FeedAgeOfDebt],
		PaymentPlan:      cleaned[models.FeedPaymentPlan],
		Collections:      cleaned[models.FeedCollections],
		ExcludedAccounts: aux[models.AuxExcludedAccounts],
	})
	if err != nil {
		rep.Fail(err)
		return rep, err
	}
	rep.AddJoins(unified.Stats...)
	rep.Excluded = unified.Excluded
	for _, w := range unified.Warnings {
		rep.Warn("%s", w.Error())
		p.ui.Warning(w.Error())
	}
	rep.AddDataset("base", unified.Base)
	p.ui.Success("unified base assembled")

	outputs := []*table.Table{unified.Base}
	if unified.Invalid != nil && unified.Invalid.NumRows() > 0 {
		rep.AddDataset("base_invalid_keys", unified.Invalid)
		outputs = append(outputs, unified.Invalid)
	}

	p.ui.Header("Deriving datasets")
	coh, err := cohort.Build(unified.Base,
		cleaned[models.FeedPortfolio], cleaned[models.FeedAgeOfDebt],
		cleaned[models.FeedPaymentPlan], cleaned[models.FeedCollections])
	if err != nil {
		rep.Fail(err)
		return rep, err
	}
	rep.AddJoins(coh.Stats...)
	rep.AddDataset("cohorts", coh.Cohorts)
	rep.AddDataset("cohorts_excluded", coh.Excluded)
	outputs = append(outputs, coh.Cohorts, coh.Excluded)

	seg, err := segment.Build(unified.Base, cleaned[models.FeedPortfolio], p.now())
	if err != nil {
		rep.Fail(err)
		return rep, err
	}
	rep.AddJoins(seg.Stats...)
	for _, w := range seg.Warnings {
		rep.Warn("%s", w)
	}
	rep.AddDataset("segments", seg.Segments)
	outputs = append(outputs, seg.Segments)

	if cleaned[models.FeedPortfolio] != nil {
		beh, err := behavior.Build(cleaned[models.FeedPortfolio], unified.Base, aux[models.AuxCategories])
		if err != nil {
			rep.Fail(err)
			return rep, err
		}
		rep.AddJoins(beh.Stats...)
		for _, w := range beh.Warnings {
			rep.Warn("%s", w)
		}
		rep.AddDataset("behavior", beh.Matrix)
		outputs = append(outputs, beh.Matrix)
	} else {
		rep.Warn("behavior: portfolio feed unavailable, matrix skipped")
	}

	if err := p.persist(ctx, rep, outputs); err != nil {
		rep.Fail(err)
		return rep, err
	}
	return rep, nil
}

// loadAndClean loads every configured feed and applies its transformer. A
// critical feed failure aborts; optional failures degrade.
func (p *Pipeline) loadAndClean(rep *report.Report) (map[string]*table.Table, map[string]*table.Table, error) {
	p.ui.Header("Loading source feeds")
	cleaned := make(map[string]*table.Table)

	var rng *rand.Rand
	if seed := p.cfg.Transform.OutlierSeed; seed != 0 {
		rng = rand.New(rand.NewSource(seed))
	}

	for _, name := range []string{
		models.FeedLoanMaster, models.FeedPortfolio, models.FeedRegistry,
		models.FeedAgeOfDebt, models.FeedPaymentPlan, models.FeedCollections,
	} {
		feed, ok := p.cfg.Sources[name]
		if !ok {
			if isCriticalFeed(name) {
				err := apperrors.CriticalSourceError(name, "not configured")
				return nil, nil, err
			}
			rep.Warn("%s: not configured, skipped", name)
			continue
		}

		res, err := loader.LoadFeed(name, feed)
		if err != nil {
			if apperrors.IsRecoverable(err) {
				rep.Warn("%s", err.Error())
				p.ui.Warning(err.Error())
				rep.AddDataset(name, nil)
				continue
			}
			return nil, nil, err
		}
		for _, w := range res.Warnings {
			rep.Warn("%s", w)
			p.ui.VerbosePrintf("  %s\n", w)
		}
		for _, f := range loader.Inspect(res.Table) {
			rep.Warn("%s", f)
			p.ui.VerbosePrintf("  %s\n", f)
		}
		p.ui.Info(name + " loaded")

		result := p.clean(name, res.Table, rng)
		for _, w := range result.Warnings {
			rep.Warn("%s", w)
			p.ui.VerbosePrintf("  %s\n", w)
		}
		cleaned[name] = result.Table
		rep.AddDataset(name, result.Table)
	}

	aux := make(map[string]*table.Table)
	for name, a := range p.cfg.Auxiliary {
		t, err := loader.LoadAuxiliary(name, a)
		if err != nil {
			rep.Warn("%s", err.Error())
			p.ui.Warning(err.Error())
			continue
		}
		aux[name] = t
		rep.AddDataset(name, t)
	}
	return cleaned, aux, nil
}

func (p *Pipeline) clean(name string, t *table.Table, rng *rand.Rand) *transform.Result {
	drops := p.cfg.Transform.DropColumns[name]
	switch name {
	case models.FeedLoanMaster:
		return transform.LoanMaster(t, drops, rng)
	case models.FeedPortfolio:
		res, _ := transform.Portfolio(t, p.cfg.Transform.BrandFilter, drops)
		return res
	case models.FeedRegistry:
		return transform.Registry(t)
	case models.FeedAgeOfDebt:
		return transform.AgeOfDebt(t, p.cfg.Transform.CreditLines)
	case models.FeedPaymentPlan:
		return transform.PaymentPlan(t)
	case models.FeedCollections:
		return transform.Collections(t)
	}
	return &transform.Result{Table: t}
}

func (p *Pipeline) persist(ctx context.Context, rep *report.Report, outputs []*table.Table) error {
	p.ui.Header("Persisting datasets")

	fileSink, err := sink.For(p.cfg.Output.Format, p.cfg.Output.Dir, p.now())
	if err != nil {
		return apperrors.ConfigError(err.Error(), "output.format")
	}
	for _, t := range outputs {
		if t == nil || t.NumRows() == 0 {
			continue
		}
		path, err := fileSink.Write(t)
		if err != nil {
			return err
		}
		p.ui.Success(t.Name() + " -> " + path)
	}

	if p.cfg.Snowflake.Enabled {
		sf, err := sink.Connect(p.cfg.Snowflake)
		if err != nil {
			return err
		}
		defer sf.Close()
		for _, t := range outputs {
			if t == nil || t.NumRows() == 0 {
				continue
			}
			if err := sf.Replace(ctx, t); err != nil {
				return err
			}
			p.ui.Success(t.Name() + " replicated to warehouse")
		}
	}
	return nil
}

func isCriticalFeed(name string) bool {
	switch name {
	case models.FeedLoanMaster, models.FeedPortfolio, models.FeedRegistry:
		return true
	}
	return false
}
