// Package main is the settlement command-line tool.
//
//	settle [flags] compute    -tenant T -mandate M -period 2024-03 [-rent 1800000]
//	settle [flags] mark-paid  -tenant T -settlement S [-paid-on 2024-04-10]
//	settle [flags] verify     -tenant T -settlement S
//	settle [flags] export     -tenant T -settlement S -format xlsx|pdf -out file
//
// Obligations:
//
//	settle [flags] add-recurring -tenant T -mandate M -concept C -value V -start 2024-01-01 -end 2024-12-31
//	settle [flags] add-value     -tenant T -discharge D -value V -effective 2024-03-01
//	settle [flags] report-oneoff -tenant T -mandate M -concept C -value V -installments 3 [-period 2024-03]
//	settle [flags] materialize   -tenant T -mandate M -period 2024-03
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arriendos/internal/app"
	"arriendos/internal/config"
	appctx "arriendos/internal/core/context"
	"arriendos/internal/core/id"
	"arriendos/internal/core/types"
	"arriendos/pkg/logger"
)

type options struct {
	configPath    string
	tenant        string
	mandate       string
	settlement    string
	period        string
	rent          string
	paidOn        string
	format        string
	out           string
	metricsAddr   string
	metricsLinger time.Duration

	discharge    string
	concept      string
	value        string
	start        string
	end          string
	effective    string
	reportedOn   string
	installments int
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to YAML config file")
	flag.StringVar(&opts.tenant, "tenant", "", "Tenant ID")
	flag.StringVar(&opts.mandate, "mandate", "", "Mandate ID (compute, add-recurring, report-oneoff, materialize)")
	flag.StringVar(&opts.settlement, "settlement", "", "Settlement ID (mark-paid, verify, export)")
	flag.StringVar(&opts.period, "period", "", "Period as YYYY-MM (compute, materialize; first installment for report-oneoff)")
	flag.StringVar(&opts.rent, "rent", "", "Rent collected; defaults to the rent of the mandate's active leases")
	flag.StringVar(&opts.paidOn, "paid-on", "", "Payment date as YYYY-MM-DD (mark-paid, default today)")
	flag.StringVar(&opts.format, "format", "xlsx", "Statement format: xlsx or pdf (export)")
	flag.StringVar(&opts.out, "out", "", "Output file (export)")
	flag.StringVar(&opts.discharge, "discharge", "", "Recurring discount ID (add-value)")
	flag.StringVar(&opts.concept, "concept", "", "Discount concept (add-recurring, report-oneoff)")
	flag.StringVar(&opts.value, "value", "", "Discount value or total (add-recurring, add-value, report-oneoff)")
	flag.StringVar(&opts.start, "start", "", "Validity start as YYYY-MM-DD (add-recurring)")
	flag.StringVar(&opts.end, "end", "", "Validity end as YYYY-MM-DD (add-recurring)")
	flag.StringVar(&opts.effective, "effective", "", "Effective date as YYYY-MM-DD (add-value)")
	flag.StringVar(&opts.reportedOn, "reported-on", "", "Report date as YYYY-MM-DD (report-oneoff, default today)")
	flag.IntVar(&opts.installments, "installments", 1, "Installment count (report-oneoff)")
	flag.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve /metrics on this address (overrides config)")
	flag.DurationVar(&opts.metricsLinger, "metrics-linger", 0, "Keep serving /metrics this long after the command finishes")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}
	command := args[0]

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if opts.metricsAddr != "" {
		cfg.Metrics.Addr = opts.metricsAddr
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, log.WithComponent("settle"))
	ctx = appctx.WithTrace(ctx, appctx.NewTraceContext(command))

	if err := run(ctx, cfg, command, opts); err != nil {
		logger.Error(ctx, "command failed", "command", command, "error", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: settle [flags] compute|mark-paid|verify|export|add-recurring|add-value|report-oneoff|materialize")
	flag.PrintDefaults()
}

func run(ctx context.Context, cfg *config.Config, command string, opts options) error {
	tenantID, err := id.Parse(opts.tenant)
	if err != nil {
		return fmt.Errorf("invalid -tenant: %w", err)
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Metrics.Addr != "" {
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: metricsMux(a), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error(ctx, "metrics server failed", "error", err)
			}
		}()
		defer func() {
			linger(ctx, opts.metricsLinger)
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info(ctx, "serving metrics", "addr", cfg.Metrics.Addr)
	}

	switch command {
	case "compute":
		return compute(ctx, a, tenantID, opts)
	case "mark-paid":
		return markPaid(ctx, a, tenantID, opts)
	case "verify":
		return verify(ctx, a, tenantID, opts)
	case "export":
		return export(ctx, a, tenantID, opts)
	case "add-recurring":
		return addRecurring(ctx, a, tenantID, opts)
	case "add-value":
		return addValue(ctx, a, tenantID, opts)
	case "report-oneoff":
		return reportOneOff(ctx, a, tenantID, opts)
	case "materialize":
		return materialize(ctx, a, tenantID, opts)
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func metricsMux(a *app.App) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.Metrics.Handler())
	return mux
}

func linger(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func compute(ctx context.Context, a *app.App, tenantID id.ID, opts options) error {
	mandateID, err := id.Parse(opts.mandate)
	if err != nil {
		return fmt.Errorf("invalid -mandate: %w", err)
	}
	period, err := types.ParsePeriod(opts.period)
	if err != nil {
		return fmt.Errorf("invalid -period: %w", err)
	}

	rent, err := rentCollected(ctx, a, tenantID, mandateID, period, opts.rent)
	if err != nil {
		return err
	}

	st, err := a.Settlements.Compute(ctx, tenantID, mandateID, period, rent)
	if err != nil {
		return err
	}
	fmt.Printf("settlement %s  period %s\n", st.ID, st.Period)
	fmt.Printf("  rent collected   %15s\n", st.RentCollected.StringFixed(2))
	fmt.Printf("  recurring        %15s\n", st.TotalRecurring.StringFixed(2))
	fmt.Printf("  one-off          %15s\n", st.TotalOneOff.StringFixed(2))
	fmt.Printf("  commission       %15s\n", st.Commission.StringFixed(2))
	fmt.Printf("  vat              %15s\n", st.VAT.StringFixed(2))
	fmt.Printf("  net payable      %15s\n", st.NetPayable.StringFixed(2))
	return nil
}

func rentCollected(ctx context.Context, a *app.App, tenantID, mandateID id.ID, period types.Period, flagValue string) (types.Money, error) {
	if flagValue != "" {
		rent, err := types.NewMoneyFromString(flagValue)
		if err != nil {
			return types.Zero(), fmt.Errorf("invalid -rent: %w", err)
		}
		return rent, nil
	}
	rent, err := a.Contracts.ExpectedRent(ctx, tenantID, mandateID, period)
	if err != nil {
		return types.Zero(), fmt.Errorf("expected rent: %w", err)
	}
	logger.Info(ctx, "rent defaulted from leases", "mandate_id", mandateID, "period", period.String(), "rent", rent.String())
	return rent, nil
}

func settlementID(opts options) (id.ID, error) {
	sid, err := id.Parse(opts.settlement)
	if err != nil {
		return id.Nil, fmt.Errorf("invalid -settlement: %w", err)
	}
	return sid, nil
}

func markPaid(ctx context.Context, a *app.App, tenantID id.ID, opts options) error {
	sid, err := settlementID(opts)
	if err != nil {
		return err
	}
	paidOn := time.Now().UTC()
	if opts.paidOn != "" {
		if paidOn, err = time.Parse(time.DateOnly, opts.paidOn); err != nil {
			return fmt.Errorf("invalid -paid-on: %w", err)
		}
	}
	st, err := a.Settlements.MarkPaid(ctx, tenantID, sid, paidOn)
	if err != nil {
		return err
	}
	fmt.Printf("settlement %s paid on %s\n", st.ID, st.PaymentDate.Format(time.DateOnly))
	return nil
}

func verify(ctx context.Context, a *app.App, tenantID id.ID, opts options) error {
	sid, err := settlementID(opts)
	if err != nil {
		return err
	}
	if err := a.Settlements.Verify(ctx, tenantID, sid); err != nil {
		return err
	}
	fmt.Printf("settlement %s is consistent\n", sid)
	return nil
}
