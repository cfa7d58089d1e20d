package postgres

import (
	"context"
	"testing"
	"time"

	"storefront/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerRepo_AppendAndList(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	e := &domain.LedgerEntry{
		ID: uuid.New(), SellerID: uuid.New(), Type: domain.LedgerEntryDebit,
		Amount: decimal.RequireFromString("5.00"), Reason: domain.LedgerReasonEmbeddingCharge,
		ReferenceID: uuid.NewString(), BalanceAfter: decimal.RequireFromString("15.00"),
		CreatedAt: time.Now().UTC(),
	}
	tx := beginMockTx(t, mock)

	mock.ExpectExec("INSERT INTO ledger_entries").
		WithArgs(e.ID, e.SellerID, e.Type, e.Amount, e.Reason, e.ReferenceID, e.BalanceAfter, e.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, repo.Append(context.Background(), tx, e))

	mock.ExpectQuery("SELECT .+ FROM ledger_entries WHERE seller_id = \\$1 ORDER BY seq").
		WithArgs(e.SellerID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "seller_id", "entry_type", "amount", "reason", "reference_id", "balance_after", "created_at"}).
			AddRow(e.ID, e.SellerID, e.Type, e.Amount, e.Reason, e.ReferenceID, e.BalanceAfter, e.CreatedAt))

	entries, err := repo.ListBySeller(context.Background(), e.SellerID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, *e, entries[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBillingRepo_CreateInTxAndDetached(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBillingRepo(mock)
	productID := uuid.New()
	ok := &domain.BillingRecord{
		ID: uuid.New(), SellerID: uuid.New(), Operation: domain.BillingOperationListing,
		Status: domain.BillingStatusSuccess, Cost: decimal.RequireFromString("5.00"),
		ResourceID: &productID, CreatedAt: time.Now().UTC(),
	}
	failed := &domain.BillingRecord{
		ID: uuid.New(), SellerID: ok.SellerID, Operation: domain.BillingOperationListing,
		Status: domain.BillingStatusFailed, Cost: ok.Cost, FailureReason: "insufficient funds",
		CreatedAt: time.Now().UTC(),
	}

	tx := beginMockTx(t, mock)
	mock.ExpectExec("INSERT INTO billing_transactions").
		WithArgs(ok.ID, ok.SellerID, ok.Operation, ok.Status, ok.Cost, ok.ResourceID, ok.FailureReason, ok.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, repo.Create(context.Background(), tx, ok))

	mock.ExpectExec("INSERT INTO billing_transactions").
		WithArgs(failed.ID, failed.SellerID, failed.Operation, failed.Status, failed.Cost, failed.ResourceID, failed.FailureReason, failed.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, repo.CreateDetached(context.Background(), failed))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditRepo(mock)
	actor := uuid.New()
	log := &domain.AuditLog{
		ID: uuid.New(), ActorID: &actor, Action: domain.AuditActionOrderPlaced,
		ResourceType: "order", ResourceID: uuid.NewString(), Details: `{"total":"649"}`,
		IPAddress: "127.0.0.1", CreatedAt: time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(log.ID, log.ActorID, log.Action, log.ResourceType, log.ResourceID, log.Details, log.IPAddress, log.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), log))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthCheck(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectPing()
	h := NewHealthCheck(mock)
	assert.Equal(t, "postgresql", h.Name())
	assert.NoError(t, h.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
