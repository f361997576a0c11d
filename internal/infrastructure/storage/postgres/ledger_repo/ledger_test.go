package ledger_repo

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arriendos/internal/core/apperror"
	"arriendos/internal/core/id"
	"arriendos/internal/core/types"
	"arriendos/internal/domain/ledger"
	"arriendos/internal/infrastructure/storage/postgres"
)

func TestActiveRecurringQuery_OverlapsPeriod(t *testing.T) {
	mandateID := id.New()

	sql, args, err := activeRecurringQuery(mandateID, types.MustPeriod(2024, 2)).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "FROM recurring_discharges WHERE mandate_id = $1 AND start_date <= $2 AND end_date >= $3 ORDER BY id")
	assert.Equal(t, []any{mandateID, types.NewDate(2024, time.February, 29), types.NewDate(2024, time.February, 1)}, args)
}

func TestPendingQuery_LocksRows(t *testing.T) {
	mandateID := id.New()

	sql, args, err := pendingQuery(tableRecords, []string{"id"}, mandateID, types.MustPeriod(2024, 3)).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT id FROM monthly_records WHERE mandate_id = $1 AND month = $2 AND status = $3 AND year = $4 ORDER BY id FOR UPDATE",
		sql)
	assert.Equal(t, []any{mandateID, 3, "PENDING", 2024}, args)
}

func TestMarkAppliedQuery_OnlyPending(t *testing.T) {
	a, b := id.New(), id.New()

	sql, args, err := markAppliedQuery(tableInstallments, []id.ID{a, b}).ToSql()
	require.NoError(t, err)

	assert.Equal(t, "UPDATE installments SET status = $1 WHERE id IN ($2,$3) AND status = $4", sql)
	assert.Equal(t, []any{"APPLIED", a, b, "PENDING"}, args)
}

func TestRefreshRecordQuery_OnlyPending(t *testing.T) {
	recordID := id.New()

	sql, args, err := refreshRecordQuery(recordID, types.MustMoney("120")).ToSql()
	require.NoError(t, err)

	assert.Equal(t, "UPDATE monthly_records SET value = $1 WHERE id = $2 AND status = $3", sql)
	require.Len(t, args, 3)
	assert.Equal(t, recordID, args[1])
	assert.Equal(t, "PENDING", args[2])
}

func TestRecordQuery_LocksRow(t *testing.T) {
	sql, _, err := recordQuery(id.New(), types.MustPeriod(2024, 2)).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "FROM monthly_records WHERE discharge_id = $1 AND month = $2 AND year = $3 FOR UPDATE")
}

func TestHistoryQuery_NewestFirst(t *testing.T) {
	sql, _, err := historyQuery([]id.ID{id.New()}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "ORDER BY discharge_id, effective_from DESC, created_at DESC")
}

func TestColumns_SkipDerivedFields(t *testing.T) {
	assert.NotContains(t, recurringCols, "history")
	assert.NotContains(t, oneOffCols, "split")
	assert.Contains(t, installmentCols, "number")
	assert.Contains(t, recordCols, "year")
}

func TestInstallmentConflict(t *testing.T) {
	items := []*ledger.Installment{{Period: types.MustPeriod(2024, 5), DischargeID: id.New()}}

	byPeriod := fmt.Errorf("copy: %w", &pgconn.PgError{Code: postgres.UniqueViolation, ConstraintName: constraintInstallmentPeriod})
	err := installmentConflict(byPeriod, items)
	require.True(t, apperror.HasCode(err, apperror.CodeDuplicate), "got %v", err)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "2024-05", appErr.Details["value"])

	byNumber := &pgconn.PgError{Code: postgres.UniqueViolation, ConstraintName: "uq_installments_number"}
	assert.True(t, apperror.HasCode(installmentConflict(byNumber, items), apperror.CodeDuplicate))

	assert.NoError(t, installmentConflict(errors.New("connection reset"), items))
}
