// Package main seeds the database: it applies the schema and loads one tenant's
// item catalog and settlement configuration from YAML files.
//
//	seed -tenant T [-catalog catalog.yaml] [-settlement-config settlement.yaml] [-cpi 2024=5.62]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"arriendos/internal/app"
	"arriendos/internal/config"
	"arriendos/internal/core/id"
	"arriendos/internal/core/types"
	"arriendos/internal/domain/contract"
	"arriendos/internal/domain/settlement"
	"arriendos/internal/infrastructure/storage/postgres"
	"arriendos/pkg/logger"
)

type cpiFlags []contract.AnnualCPI

func (c *cpiFlags) String() string {
	parts := make([]string, len(*c))
	for i, v := range *c {
		parts[i] = fmt.Sprintf("%d=%s", v.Year, v.Value)
	}
	return strings.Join(parts, ",")
}

// Set parses YEAR=PERCENT.
func (c *cpiFlags) Set(s string) error {
	year, value, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("want YEAR=PERCENT, got %q", s)
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return fmt.Errorf("invalid year %q: %w", year, err)
	}
	pct, err := types.NewMoneyFromString(value)
	if err != nil {
		return fmt.Errorf("invalid percent %q: %w", value, err)
	}
	*c = append(*c, contract.AnnualCPI{Year: y, Value: pct})
	return nil
}

func main() {
	var (
		configPath     string
		tenant         string
		catalogPath    string
		settlementPath string
		skipSchema     bool
		cpis           cpiFlags
	)
	flag.StringVar(&configPath, "config", "", "Path to YAML config file")
	flag.StringVar(&tenant, "tenant", "", "Tenant ID to seed")
	flag.StringVar(&catalogPath, "catalog", "", "Item catalog YAML")
	flag.StringVar(&settlementPath, "settlement-config", "", "Settlement configuration YAML")
	flag.BoolVar(&skipSchema, "skip-schema", false, "Do not apply the schema")
	flag.Var(&cpis, "cpi", "Annual CPI as YEAR=PERCENT (repeatable)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Development: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := logger.WithLogger(context.Background(), log.WithComponent("seed"))

	tenantID, err := id.Parse(tenant)
	if err != nil && (catalogPath != "" || settlementPath != "") {
		log.Fatalw("invalid -tenant", "error", err)
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to initialize", "error", err)
	}
	defer a.Close()

	if !skipSchema {
		if err := postgres.Migrate(ctx, a.Pool); err != nil {
			log.Fatalw("failed to apply schema", "error", err)
		}
	}

	for _, c := range cpis {
		if err := a.Contracts.SetCPI(ctx, c); err != nil {
			log.Fatalw("failed to store CPI", "year", c.Year, "error", err)
		}
		log.Infow("annual CPI stored", "year", c.Year, "value", c.Value.String())
	}

	if catalogPath != "" {
		if err := seedCatalog(ctx, a, tenantID, catalogPath); err != nil {
			log.Fatalw("failed to seed item catalog", "file", catalogPath, "error", err)
		}
	}

	if settlementPath != "" {
		if err := seedSettlementConfig(ctx, a, tenantID, settlementPath); err != nil {
			log.Fatalw("failed to seed settlement config", "file", settlementPath, "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

func seedCatalog(ctx context.Context, a *app.App, tenantID id.ID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	created, err := a.Inspection.LoadCatalog(ctx, tenantID, f)
	if err != nil {
		return err
	}
	logger.Info(ctx, "item catalog seeded", "tenant_id", tenantID, "created", created)
	return nil
}

func seedSettlementConfig(ctx context.Context, a *app.App, tenantID id.ID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc, err := settlement.ParseConfig(f, tenantID)
	if err != nil {
		return err
	}
	if err := a.Settlements.SaveConfig(ctx, sc); err != nil {
		return err
	}
	logger.Info(ctx, "settlement config seeded",
		"tenant_id", tenantID,
		"charges_vat", sc.ChargesVAT,
		"vat_percent", sc.VATPercent.String(),
	)
	return nil
}
