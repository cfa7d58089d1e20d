package postgres

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// SellerRepo implements ports.SellerRepository. The wallet balance lives on
// the seller row.
type SellerRepo struct {
	pool Pool
}

// NewSellerRepo creates a new SellerRepo.
func NewSellerRepo(pool Pool) *SellerRepo {
	return &SellerRepo{pool: pool}
}

// Create inserts a seller profile.
func (r *SellerRepo) Create(ctx context.Context, s *domain.Seller) error {
	query := `INSERT INTO sellers (id, user_id, store_name, wallet_balance, house_account, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		s.ID, s.UserID, s.StoreName, s.WalletBalance, s.HouseAccount, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert seller: %w", err)
	}
	return nil
}

// GetByUserID resolves the seller profile of a user (non-locking read).
func (r *SellerRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Seller, error) {
	query := `SELECT id, user_id, store_name, wallet_balance, house_account, created_at, updated_at
		FROM sellers WHERE user_id = $1`

	return scanSeller(r.pool.QueryRow(ctx, query, userID))
}

// GetByIDTx reads the seller inside tx.
func (r *SellerRepo) GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Seller, error) {
	query := `SELECT id, user_id, store_name, wallet_balance, house_account, created_at, updated_at
		FROM sellers WHERE id = $1`

	return scanSeller(tx.QueryRow(ctx, query, id))
}

// TryDebit subtracts amount only when the balance covers it. The predicate is
// evaluated by PostgreSQL under the row lock of the UPDATE.
func (r *SellerRepo) TryDebit(ctx context.Context, tx pgx.Tx, sellerID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, bool, error) {
	query := `UPDATE sellers SET wallet_balance = wallet_balance - $2, updated_at = NOW()
		WHERE id = $1 AND wallet_balance >= $2
		RETURNING wallet_balance`

	var balance decimal.Decimal
	err := tx.QueryRow(ctx, query, sellerID, amount).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("debit wallet: %w", err)
	}
	return balance, true, nil
}

// Credit adds amount to the wallet and returns the new balance.
func (r *SellerRepo) Credit(ctx context.Context, tx pgx.Tx, sellerID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	query := `UPDATE sellers SET wallet_balance = wallet_balance + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING wallet_balance`

	var balance decimal.Decimal
	err := tx.QueryRow(ctx, query, sellerID, amount).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("seller not found: %s", sellerID)
		}
		return decimal.Zero, fmt.Errorf("credit wallet: %w", err)
	}
	return balance, nil
}

func scanSeller(row pgx.Row) (*domain.Seller, error) {
	s := &domain.Seller{}
	err := row.Scan(&s.ID, &s.UserID, &s.StoreName, &s.WalletBalance, &s.HouseAccount, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan seller: %w", err)
	}
	return s, nil
}
