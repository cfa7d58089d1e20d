// Package memory is an in-process implementation of the storage ports with
// the same conditional-update and transaction contract as the PostgreSQL
// adapter. A transaction stages its writes privately and publishes them on
// commit, so reads outside it only ever see committed data. Conditional
// updates take a row lock held until commit or rollback; a competing update
// waits for the holder and then re-evaluates its predicate against the
// committed row.
package memory

import (
	"context"
	"slices"
	"sync"

	"storefront/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type table string

const (
	tableProducts table = "products"
	tableSellers  table = "sellers"
	tableOrders   table = "orders"
)

type rowKey struct {
	table table
	id    uuid.UUID
}

type rowLock struct {
	owner    *Tx
	released chan struct{}
}

// Store holds the committed state. mu guards every field here and the
// bookkeeping of every open Tx.
type Store struct {
	mu            sync.Mutex
	products      map[uuid.UUID]*domain.Product
	sellers       map[uuid.UUID]*domain.Seller
	sellersByUser map[uuid.UUID]uuid.UUID
	carts         map[uuid.UUID][]domain.CartItem
	orders        map[uuid.UUID]*domain.Order
	ledger        []domain.LedgerEntry
	billing       []domain.BillingRecord
	audit         []domain.AuditLog

	locks   map[rowKey]*rowLock
	waiting map[*Tx]*Tx // wait-for graph
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		products:      make(map[uuid.UUID]*domain.Product),
		sellers:       make(map[uuid.UUID]*domain.Seller),
		sellersByUser: make(map[uuid.UUID]uuid.UUID),
		carts:         make(map[uuid.UUID][]domain.CartItem),
		orders:        make(map[uuid.UUID]*domain.Order),
		locks:         make(map[rowKey]*rowLock),
		waiting:       make(map[*Tx]*Tx),
	}
}

// PutSeller inserts or replaces a committed seller profile. It is meant for
// seeding and ignores row locks.
func (s *Store) PutSeller(seller *domain.Seller) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *seller
	s.sellers[c.ID] = &c
	s.sellersByUser[c.UserID] = c.ID
}

// PutProduct inserts or replaces a committed product. It is meant for
// seeding and ignores row locks.
func (s *Store) PutProduct(p *domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = cloneProduct(p)
}

// AuditLogs returns a copy of the recorded audit logs.
func (s *Store) AuditLogs() []domain.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.audit)
}

// Ping implements ports.HealthChecker.
func (s *Store) Ping(context.Context) error { return nil }

// Name implements ports.HealthChecker.
func (s *Store) Name() string { return "memory" }

// Begin implements ports.DBTransactor.
func (s *Store) Begin(context.Context) (pgx.Tx, error) {
	return s.newTx(), nil
}

// txOf unwraps the transaction handed to a repository method.
func (s *Store) txOf(tx pgx.Tx) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok || t.store != s {
		return nil, errForeignTx
	}
	return t, nil
}

// lockRow takes the row lock for t, waiting while another transaction holds
// it. Callers hold s.mu; it is released for the duration of the wait.
func (s *Store) lockRow(ctx context.Context, t *Tx, key rowKey) error {
	for {
		if t.closed {
			return pgx.ErrTxClosed
		}
		l, held := s.locks[key]
		if !held {
			s.locks[key] = &rowLock{owner: t, released: make(chan struct{})}
			t.held = append(t.held, key)
			return nil
		}
		if l.owner == t {
			return nil
		}
		if s.waitsOn(l.owner, t) {
			return errDeadlock
		}

		s.waiting[t] = l.owner
		s.mu.Unlock()
		select {
		case <-l.released:
		case <-ctx.Done():
		}
		s.mu.Lock()
		delete(s.waiting, t)
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// waitsOn reports whether from is, directly or transitively, waiting on to.
func (s *Store) waitsOn(from, to *Tx) bool {
	for cur := from; cur != nil; cur = s.waiting[cur] {
		if cur == to {
			return true
		}
	}
	return false
}

// removeFromCart takes ordered quantities out of the committed cart. Lines
// that grew since they were ordered keep the difference.
func (s *Store) removeFromCart(userID uuid.UUID, ordered []domain.CartItem) {
	lines := slices.Clone(s.carts[userID])
	for _, it := range ordered {
		i := slices.IndexFunc(lines, func(l domain.CartItem) bool { return l.ProductID == it.ProductID })
		switch {
		case i < 0:
		case lines[i].Quantity <= it.Quantity:
			lines = slices.Delete(lines, i, i+1)
		default:
			lines[i].Quantity -= it.Quantity
		}
	}
	if len(lines) == 0 {
		delete(s.carts, userID)
		return
	}
	s.carts[userID] = lines
}

func cloneProduct(p *domain.Product) *domain.Product {
	c := *p
	c.Tags = slices.Clone(p.Tags)
	c.Images = slices.Clone(p.Images)
	c.Embedding = slices.Clone(p.Embedding)
	return &c
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Items = slices.Clone(o.Items)
	c.StatusHistory = slices.Clone(o.StatusHistory)
	return &c
}
