package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// BatchInserter performs bulk inserts with the COPY protocol inside the ambient transaction.
type BatchInserter struct {
	txManager *TxManager
}

// NewBatchInserter creates a batch inserter.
func NewBatchInserter(txManager *TxManager) *BatchInserter {
	return &BatchInserter{txManager: txManager}
}

// CopyFromSlice inserts rows into table. It requires a transaction in ctx.
func (b *BatchInserter) CopyFromSlice(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	t := b.txManager.GetTx(ctx)
	if t == nil {
		return 0, fmt.Errorf("CopyFromSlice into %s requires transaction context", table)
	}
	return t.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
}

// CopyStructs inserts items column-by-column as described by their db tags.
func CopyStructs[T any](ctx context.Context, b *BatchInserter, table string, items []*T) (int64, error) {
	rows := make([][]any, len(items))
	for i, it := range items {
		rows[i] = Values(it)
	}
	return b.CopyFromSlice(ctx, table, Columns[T](), rows)
}
