package main

import (
	"context"
	"fmt"
	"os"

	"arriendos/internal/app"
	"arriendos/internal/core/id"
	"arriendos/internal/domain/settlement"
	exporter "arriendos/internal/infrastructure/export"
	"arriendos/pkg/logger"
)

var renderers = map[string]func(*settlement.Statement) ([]byte, error){
	"xlsx": exporter.StatementXLSX,
	"pdf":  exporter.StatementPDF,
}

func export(ctx context.Context, a *app.App, tenantID id.ID, opts options) error {
	render, ok := renderers[opts.format]
	if !ok {
		return fmt.Errorf("unknown -format %q (want xlsx or pdf)", opts.format)
	}
	sid, err := settlementID(opts)
	if err != nil {
		return err
	}
	out := opts.out
	if out == "" {
		out = fmt.Sprintf("liquidacion-%s.%s", sid, opts.format)
	}

	stmt, err := a.Settlements.Statement(ctx, tenantID, sid)
	if err != nil {
		return err
	}
	raw, err := render(stmt)
	if err != nil {
		return fmt.Errorf("render statement: %w", err)
	}
	if err := os.WriteFile(out, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	logger.Info(ctx, "statement exported", "settlement_id", sid, "format", opts.format, "file", out, "bytes", len(raw))
	return nil
}
