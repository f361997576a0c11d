// Package app wires the PostgreSQL-backed services used by the command-line tools.
package app

import (
	"context"
	"fmt"

	"arriendos/internal/config"
	"arriendos/internal/domain/audit"
	"arriendos/internal/domain/contract"
	"arriendos/internal/domain/inspection"
	"arriendos/internal/domain/ledger"
	"arriendos/internal/domain/settlement"
	"arriendos/internal/infrastructure/metrics"
	"arriendos/internal/infrastructure/storage/postgres"
	"arriendos/internal/infrastructure/storage/postgres/contract_repo"
	"arriendos/internal/infrastructure/storage/postgres/inspection_repo"
	"arriendos/internal/infrastructure/storage/postgres/ledger_repo"
	"arriendos/internal/infrastructure/storage/postgres/settlement_repo"
	"arriendos/pkg/logger"
)

// App holds the connection pool and every domain service built on it.
type App struct {
	Pool      *postgres.Pool
	TxManager *postgres.TxManager

	Contracts   *contract.Service
	Ledger      *ledger.Service
	Settlements *settlement.Service
	Inspection  *inspection.Service
	Audit       *audit.Logger
	Metrics     *metrics.Recorder
}

// New connects to the database and builds the services.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required (ARRIENDOS_DATABASE_DSN)")
	}

	poolCfg := postgres.DefaultPoolConfig(cfg.Database.DSN)
	poolCfg.ApplicationName = cfg.Database.ApplicationName
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns
	poolCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "connected to database", "application_name", poolCfg.ApplicationName, "max_conns", poolCfg.MaxConns)

	txm := postgres.NewTxManager(pool).WithStatementTimeout(cfg.Database.StatementTimeout)

	auditLog, err := audit.NewLogger(postgres.NewAuditStore(txm), cfg.Audit.CompressThreshold)
	if err != nil {
		pool.Close()
		return nil, err
	}

	contracts := contract_repo.New(txm)
	settlements := settlement_repo.New(txm)
	recorder := metrics.NewRecorder()

	ledgerSvc := ledger.NewService(ledger_repo.New(txm), contracts, txm, ledger.WithSplitScale(cfg.Ledger.SplitScale))

	return &App{
		Pool:      pool,
		TxManager: txm,
		Contracts: contract.NewService(contracts, txm),
		Ledger:    ledgerSvc,
		Settlements: settlement.NewService(settlement.ServiceConfig{
			Repo:        settlements,
			Configs:     settlements,
			Mandates:    contracts,
			Obligations: ledgerSvc,
			TxManager:   txm,
			Auditor:     auditLog,
			Recorder:    recorder,
		}),
		Inspection: inspection.NewService(inspection_repo.New(txm), txm),
		Audit:      auditLog,
		Metrics:    recorder,
	}, nil
}

// Close releases the pool.
func (a *App) Close() {
	a.Pool.Close()
}
