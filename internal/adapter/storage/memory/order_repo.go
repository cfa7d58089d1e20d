package memory

import (
	"context"
	"fmt"
	"sort"

	"storefront/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OrderRepo implements ports.OrderRepository.
type OrderRepo struct{ s *Store }

// NewOrderRepo creates a new OrderRepo.
func NewOrderRepo(s *Store) *OrderRepo { return &OrderRepo{s: s} }

// Create stages a new order. Tracking numbers are unique across committed
// orders and the transaction's own.
func (r *OrderRepo) Create(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	t, err := r.s.txOf(tx)
	if err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.lockRow(ctx, t, rowKey{tableOrders, o.ID}); err != nil {
		return err
	}
	if t.order(o.ID) != nil {
		return fmt.Errorf("insert order: duplicate id %s", o.ID)
	}
	for _, set := range []map[uuid.UUID]*domain.Order{r.s.orders, t.orders} {
		for _, existing := range set {
			if existing.TrackingNumber == o.TrackingNumber {
				return fmt.Errorf("insert order: duplicate tracking number %s", o.TrackingNumber)
			}
		}
	}
	t.orders[o.ID] = cloneOrder(o)
	return nil
}

// GetByID returns the committed order, or nil, nil.
func (r *OrderRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, nil
	}
	return cloneOrder(o), nil
}

// GetByIDTx returns the order as the transaction sees it, or nil, nil.
func (r *OrderRepo) GetByIDTx(_ context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Order, error) {
	t, err := r.s.txOf(tx)
	if err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := t.active(); err != nil {
		return nil, err
	}
	o := t.order(id)
	if o == nil {
		return nil, nil
	}
	return cloneOrder(o), nil
}

// ListByUser returns the user's committed orders, newest first.
func (r *OrderRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []domain.Order{}
	for _, o := range r.s.orders {
		if o.UserID == userID {
			out = append(out, *cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateStatus locks the order, then writes the new status and history only
// if the stored status and history length still match.
func (r *OrderRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, o *domain.Order, prevStatus domain.OrderStatus, prevHistoryLen int) (bool, error) {
	t, err := r.s.txOf(tx)
	if err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.lockRow(ctx, t, rowKey{tableOrders, o.ID}); err != nil {
		return false, err
	}
	cur := t.order(o.ID)
	if cur == nil || cur.Status != prevStatus || len(cur.StatusHistory) != prevHistoryLen {
		return false, nil
	}

	staged := t.stageOrder(cur)
	staged.Status = o.Status
	staged.PaymentStatus = o.PaymentStatus
	staged.StatusHistory = append([]domain.StatusEntry(nil), o.StatusHistory...)
	staged.UpdatedAt = o.UpdatedAt
	return true, nil
}
