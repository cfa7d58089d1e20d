package postgres

import (
	"context"
	"fmt"

	"storefront/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CartRepo implements ports.CartRepository.
type CartRepo struct {
	pool Pool
}

// NewCartRepo creates a new CartRepo.
func NewCartRepo(pool Pool) *CartRepo {
	return &CartRepo{pool: pool}
}

// GetByUserID returns the cart in insertion order. A user without lines gets
// an empty cart, not nil.
func (r *CartRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	query := `SELECT product_id, quantity FROM cart_items WHERE user_id = $1 ORDER BY position`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	defer rows.Close()

	cart := &domain.Cart{UserID: userID}
	for rows.Next() {
		var it domain.CartItem
		if err := rows.Scan(&it.ProductID, &it.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart rows: %w", err)
	}
	return cart, nil
}

// AddItem adds quantity to an existing line or appends a new one.
func (r *CartRepo) AddItem(ctx context.Context, userID uuid.UUID, item domain.CartItem) error {
	query := `INSERT INTO cart_items (user_id, product_id, quantity) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`

	if _, err := r.pool.Exec(ctx, query, userID, item.ProductID, item.Quantity); err != nil {
		return fmt.Errorf("add cart item: %w", err)
	}
	return nil
}

// RemoveOrdered deletes lines whose quantity was fully ordered and reduces
// the ones that grew since the cart was read.
func (r *CartRepo) RemoveOrdered(ctx context.Context, tx pgx.Tx, userID uuid.UUID, items []domain.CartItem) error {
	for _, it := range items {
		tag, err := tx.Exec(ctx,
			`DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2 AND quantity <= $3`,
			userID, it.ProductID, it.Quantity)
		if err != nil {
			return fmt.Errorf("remove cart item %s: %w", it.ProductID, err)
		}
		if tag.RowsAffected() > 0 {
			continue
		}
		if _, err := tx.Exec(ctx,
			`UPDATE cart_items SET quantity = quantity - $3 WHERE user_id = $1 AND product_id = $2 AND quantity > $3`,
			userID, it.ProductID, it.Quantity); err != nil {
			return fmt.Errorf("reduce cart item %s: %w", it.ProductID, err)
		}
	}
	return nil
}
