package main

import (
	"context"
	"fmt"
	"time"

	"arriendos/internal/app"
	"arriendos/internal/core/id"
	"arriendos/internal/core/types"
	"arriendos/internal/domain/ledger"
)

func parseDate(name, value string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid -%s: %w", name, err)
	}
	return t, nil
}

func parseMoney(name, value string) (types.Money, error) {
	m, err := types.NewMoneyFromString(value)
	if err != nil {
		return types.Zero(), fmt.Errorf("invalid -%s: %w", name, err)
	}
	return m, nil
}

func recurringFromOptions(opts options) (*ledger.RecurringDischarge, ledger.ValueEntry, error) {
	mandateID, err := id.Parse(opts.mandate)
	if err != nil {
		return nil, ledger.ValueEntry{}, fmt.Errorf("invalid -mandate: %w", err)
	}
	start, err := parseDate("start", opts.start)
	if err != nil {
		return nil, ledger.ValueEntry{}, err
	}
	end, err := parseDate("end", opts.end)
	if err != nil {
		return nil, ledger.ValueEntry{}, err
	}
	value, err := parseMoney("value", opts.value)
	if err != nil {
		return nil, ledger.ValueEntry{}, err
	}
	d := &ledger.RecurringDischarge{
		MandateID: mandateID,
		Concept:   opts.concept,
		StartDate: start,
		EndDate:   end,
	}
	return d, ledger.ValueEntry{Value: value, EffectiveFrom: start}, nil
}

func addRecurring(ctx context.Context, a *app.App, tenantID id.ID, opts options) error {
	d, first, err := recurringFromOptions(opts)
	if err != nil {
		return err
	}
	if err := a.Ledger.CreateRecurring(ctx, tenantID, d, []ledger.ValueEntry{first}); err != nil {
		return err
	}
	fmt.Printf("recurring discount %s  %s  %s..%s  %s\n",
		d.ID, d.Concept, d.StartDate.Format(time.DateOnly), d.EndDate.Format(time.DateOnly), first.Value.StringFixed(2))
	return nil
}

func addValue(ctx context.Context, a *app.App, tenantID id.ID, opts options) error {
	dischargeID, err := id.Parse(opts.discharge)
	if err != nil {
		return fmt.Errorf("invalid -discharge: %w", err)
	}
	value, err := parseMoney("value", opts.value)
	if err != nil {
		return err
	}
	effective, err := parseDate("effective", opts.effective)
	if err != nil {
		return err
	}
	e, err := a.Ledger.AddValue(ctx, tenantID, dischargeID, value, effective)
	if err != nil {
		return err
	}
	fmt.Printf("discount %s is %s from %s\n", dischargeID, e.Value.StringFixed(2), e.EffectiveFrom.Format(time.DateOnly))
	return nil
}

func oneOffFromOptions(opts options, today time.Time) (*ledger.OneOffDischarge, error) {
	mandateID, err := id.Parse(opts.mandate)
	if err != nil {
		return nil, fmt.Errorf("invalid -mandate: %w", err)
	}
	total, err := parseMoney("value", opts.value)
	if err != nil {
		return nil, err
	}
	reported := today
	if opts.reportedOn != "" {
		if reported, err = parseDate("reported-on", opts.reportedOn); err != nil {
			return nil, err
		}
	}
	o := &ledger.OneOffDischarge{
		MandateID:        mandateID,
		Concept:          opts.concept,
		ValueTotal:       total,
		InstallmentCount: opts.installments,
		ReportDate:       reported,
	}
	if opts.period != "" {
		first, err := types.ParsePeriod(opts.period)
		if err != nil {
			return nil, fmt.Errorf("invalid -period: %w", err)
		}
		o.FirstYear, o.FirstMonth = first.Year, first.Month
	}
	return o, nil
}

func reportOneOff(ctx context.Context, a *app.App, tenantID id.ID, opts options) error {
	o, err := oneOffFromOptions(opts, time.Now().UTC())
	if err != nil {
		return err
	}
	items, err := a.Ledger.ReportOneOff(ctx, tenantID, o)
	if err != nil {
		return err
	}
	fmt.Printf("one-off discount %s  %s  %s in %d installments\n", o.ID, o.Concept, o.ValueTotal.StringFixed(2), len(items))
	for _, inst := range items {
		fmt.Printf("  %2d  %s  %15s\n", inst.Number, inst.Period, inst.Value.StringFixed(2))
	}
	return nil
}

func materialize(ctx context.Context, a *app.App, tenantID id.ID, opts options) error {
	mandateID, err := id.Parse(opts.mandate)
	if err != nil {
		return fmt.Errorf("invalid -mandate: %w", err)
	}
	period, err := types.ParsePeriod(opts.period)
	if err != nil {
		return fmt.Errorf("invalid -period: %w", err)
	}
	records, err := a.Ledger.MaterializeMonth(ctx, tenantID, mandateID, period)
	if err != nil {
		return err
	}
	for _, rec := range records {
		fmt.Printf("  %s  %s  %15s  %s\n", rec.DischargeID, rec.Period, rec.Value.StringFixed(2), rec.Status)
	}
	fmt.Printf("%d monthly records for %s\n", len(records), period)
	return nil
}
