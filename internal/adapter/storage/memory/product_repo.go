package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"storefront/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ProductRepo implements ports.ProductRepository.
type ProductRepo struct{ s *Store }

// NewProductRepo creates a new ProductRepo.
func NewProductRepo(s *Store) *ProductRepo { return &ProductRepo{s: s} }

// Create stages a new product in the transaction.
func (r *ProductRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.Product) error {
	t, err := r.s.txOf(tx)
	if err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.lockRow(ctx, t, rowKey{tableProducts, p.ID}); err != nil {
		return err
	}
	if t.product(p.ID) != nil {
		return fmt.Errorf("insert product: duplicate id %s", p.ID)
	}
	t.products[p.ID] = cloneProduct(p)
	return nil
}

// GetByID returns the committed product, or nil, nil.
func (r *ProductRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	return cloneProduct(p), nil
}

// GetByIDTx returns the product as the transaction sees it, or nil, nil.
func (r *ProductRepo) GetByIDTx(_ context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Product, error) {
	t, err := r.s.txOf(tx)
	if err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := t.active(); err != nil {
		return nil, err
	}
	p := t.product(id)
	if p == nil {
		return nil, nil
	}
	return cloneProduct(p), nil
}

// TryDecrementStock locks the row, then checks and decrements it. A product
// that reaches zero turns OUT_OF_STOCK in the same step.
func (r *ProductRepo) TryDecrementStock(ctx context.Context, tx pgx.Tx, productID uuid.UUID, qty int) (*domain.StockReservation, bool, error) {
	t, err := r.s.txOf(tx)
	if err != nil {
		return nil, false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.lockRow(ctx, t, rowKey{tableProducts, productID}); err != nil {
		return nil, false, err
	}
	cur := t.product(productID)
	if cur == nil || cur.Status != domain.ProductStatusActive || cur.Stock < qty {
		return nil, false, nil
	}

	p := t.stageProduct(cur)
	p.Stock -= qty
	if p.Stock == 0 {
		p.Status = domain.ProductStatusOutOfStock
	}
	p.UpdatedAt = time.Now().UTC()

	return &domain.StockReservation{
		ProductID:      p.ID,
		Name:           p.Name,
		Image:          p.PrimaryImage(),
		Price:          p.Price,
		SellerID:       p.SellerID,
		RemainingStock: p.Stock,
	}, true, nil
}

// UpdatePrice changes the catalog price. It waits for any open transaction
// holding the row.
func (r *ProductRepo) UpdatePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) error {
	return r.s.autocommit(ctx, func(t *Tx) error {
		if err := r.s.lockRow(ctx, t, rowKey{tableProducts, id}); err != nil {
			return err
		}
		cur := t.product(id)
		if cur == nil {
			return fmt.Errorf("product not found: %s", id)
		}
		p := t.stageProduct(cur)
		p.Price = price
		p.UpdatedAt = time.Now().UTC()
		return nil
	})
}

// CartRepo implements ports.CartRepository.
type CartRepo struct{ s *Store }

// NewCartRepo creates a new CartRepo.
func NewCartRepo(s *Store) *CartRepo { return &CartRepo{s: s} }

// GetByUserID returns the committed cart in insertion order.
func (r *CartRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*domain.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cart := &domain.Cart{UserID: userID}
	if items := r.s.carts[userID]; len(items) > 0 {
		cart.Items = slices.Clone(items)
	}
	return cart, nil
}

// AddItem adds quantity to an existing line or appends a new one.
func (r *CartRepo) AddItem(_ context.Context, userID uuid.UUID, item domain.CartItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	items := r.s.carts[userID]
	for i := range items {
		if items[i].ProductID == item.ProductID {
			items[i].Quantity += item.Quantity
			return nil
		}
	}
	r.s.carts[userID] = append(items, item)
	return nil
}

// RemoveOrdered stages the removal of the ordered quantities. It is applied
// against the cart as it stands at commit.
func (r *CartRepo) RemoveOrdered(_ context.Context, tx pgx.Tx, userID uuid.UUID, items []domain.CartItem) error {
	t, err := r.s.txOf(tx)
	if err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := t.active(); err != nil {
		return err
	}
	t.cartRemovals = append(t.cartRemovals, cartRemoval{userID: userID, items: slices.Clone(items)})
	return nil
}
