package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"storefront/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const orderColumns = `id, user_id, items, shipping_address, payment_method, subtotal, shipping_fee, tax, total_amount,
	status, status_history, payment_status, tracking_number, estimated_delivery, created_at, updated_at`

// OrderRepo implements ports.OrderRepository. Items and status history are
// embedded in the order row as JSONB.
type OrderRepo struct {
	pool Pool
}

// NewOrderRepo creates a new OrderRepo.
func NewOrderRepo(pool Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

// Create inserts the order within a database transaction.
func (r *OrderRepo) Create(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	items, history, addr, err := marshalOrder(o)
	if err != nil {
		return err
	}

	query := `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err = tx.Exec(ctx, query,
		o.ID, o.UserID, items, addr, o.PaymentMethod,
		o.Subtotal, o.ShippingFee, o.Tax, o.TotalAmount,
		o.Status, history, o.PaymentStatus, o.TrackingNumber,
		o.EstimatedDelivery, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID fetches an order by UUID.
func (r *OrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.get(ctx, r.pool, id)
}

// GetByIDTx fetches an order inside tx.
func (r *OrderRepo) GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Order, error) {
	return r.get(ctx, tx, id)
}

func (r *OrderRepo) get(ctx context.Context, q Querier, id uuid.UUID) (*domain.Order, error) {
	o, err := scanOrder(q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order by id: %w", err)
	}
	return o, nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	return orders, nil
}

// UpdateStatus persists a lifecycle transition. The WHERE clause pins the
// previous status and history length, so a concurrent transition that got
// there first makes this one affect zero rows.
func (r *OrderRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, o *domain.Order, prevStatus domain.OrderStatus, prevHistoryLen int) (bool, error) {
	history, err := json.Marshal(o.StatusHistory)
	if err != nil {
		return false, fmt.Errorf("marshal status history: %w", err)
	}

	query := `UPDATE orders
		SET status = $1, payment_status = $2, status_history = $3, updated_at = $4
		WHERE id = $5 AND status = $6 AND jsonb_array_length(status_history) = $7`

	tag, err := tx.Exec(ctx, query,
		o.Status, o.PaymentStatus, history, o.UpdatedAt,
		o.ID, prevStatus, prevHistoryLen,
	)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func marshalOrder(o *domain.Order) (items, history, addr []byte, err error) {
	if items, err = json.Marshal(o.Items); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal order items: %w", err)
	}
	if history, err = json.Marshal(o.StatusHistory); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal status history: %w", err)
	}
	if addr, err = json.Marshal(o.ShippingAddress); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal shipping address: %w", err)
	}
	return items, history, addr, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	o := &domain.Order{}
	var items, history, addr []byte
	err := row.Scan(
		&o.ID, &o.UserID, &items, &addr, &o.PaymentMethod,
		&o.Subtotal, &o.ShippingFee, &o.Tax, &o.TotalAmount,
		&o.Status, &history, &o.PaymentStatus, &o.TrackingNumber,
		&o.EstimatedDelivery, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	if err := json.Unmarshal(history, &o.StatusHistory); err != nil {
		return nil, fmt.Errorf("unmarshal status history: %w", err)
	}
	if err := json.Unmarshal(addr, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal shipping address: %w", err)
	}
	return o, nil
}
