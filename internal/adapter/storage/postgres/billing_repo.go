package postgres

import (
	"context"
	"fmt"

	"storefront/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const insertBilling = `INSERT INTO billing_transactions (id, seller_id, operation, status, cost, resource_id, failure_reason, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// BillingRepo implements ports.BillingRepository.
type BillingRepo struct {
	pool Pool
}

// NewBillingRepo creates a new BillingRepo.
func NewBillingRepo(pool Pool) *BillingRepo {
	return &BillingRepo{pool: pool}
}

// Create inserts a record within a database transaction.
func (r *BillingRepo) Create(ctx context.Context, tx pgx.Tx, rec *domain.BillingRecord) error {
	return r.insert(ctx, tx, rec)
}

// CreateDetached inserts a record on its own connection, outside any transaction.
func (r *BillingRepo) CreateDetached(ctx context.Context, rec *domain.BillingRecord) error {
	return r.insert(ctx, r.pool, rec)
}

func (r *BillingRepo) insert(ctx context.Context, q Querier, rec *domain.BillingRecord) error {
	_, err := q.Exec(ctx, insertBilling,
		rec.ID, rec.SellerID, rec.Operation, rec.Status, rec.Cost, rec.ResourceID, rec.FailureReason, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert billing record: %w", err)
	}
	return nil
}

// ListBySeller returns a seller's billing records, oldest first.
func (r *BillingRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]domain.BillingRecord, error) {
	query := `SELECT id, seller_id, operation, status, cost, resource_id, failure_reason, created_at
		FROM billing_transactions WHERE seller_id = $1 ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, sellerID)
	if err != nil {
		return nil, fmt.Errorf("list billing records: %w", err)
	}
	defer rows.Close()

	records := []domain.BillingRecord{}
	for rows.Next() {
		var b domain.BillingRecord
		if err := rows.Scan(&b.ID, &b.SellerID, &b.Operation, &b.Status, &b.Cost, &b.ResourceID, &b.FailureReason, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan billing row: %w", err)
		}
		records = append(records, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate billing rows: %w", err)
	}
	return records, nil
}
