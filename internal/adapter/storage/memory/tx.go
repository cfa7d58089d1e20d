package memory

import (
	"context"
	"errors"

	"storefront/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	errForeignTx   = errors.New("memory: transaction does not belong to this store")
	errUnsupported = errors.New("memory: SQL is not supported by the in-memory store")
	errDeadlock    = errors.New("memory: deadlock detected")
)

type cartRemoval struct {
	userID uuid.UUID
	items  []domain.CartItem
}

// Tx is a pgx.Tx over the in-memory store. Its writes stay private until
// Commit publishes them; Rollback discards them. Every field is guarded by
// the store mutex.
type Tx struct {
	store *Store

	closed bool
	held   []rowKey

	products     map[uuid.UUID]*domain.Product
	sellers      map[uuid.UUID]*domain.Seller
	orders       map[uuid.UUID]*domain.Order
	ledger       []domain.LedgerEntry
	billing      []domain.BillingRecord
	cartRemovals []cartRemoval
}

func (s *Store) newTx() *Tx {
	return &Tx{
		store:    s,
		products: make(map[uuid.UUID]*domain.Product),
		sellers:  make(map[uuid.UUID]*domain.Seller),
		orders:   make(map[uuid.UUID]*domain.Order),
	}
}

// autocommit runs fn as a single-statement transaction. fn runs with the
// store mutex held.
func (s *Store) autocommit(ctx context.Context, fn func(t *Tx) error) error {
	t := s.newTx()
	s.mu.Lock()
	err := fn(t)
	s.mu.Unlock()
	if err != nil {
		_ = t.Rollback(ctx)
		return err
	}
	return t.Commit(ctx)
}

func (t *Tx) active() error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	return nil
}

// product returns the row as this transaction sees it, or nil.
func (t *Tx) product(id uuid.UUID) *domain.Product {
	if p, ok := t.products[id]; ok {
		return p
	}
	return t.store.products[id]
}

func (t *Tx) stageProduct(p *domain.Product) *domain.Product {
	if staged, ok := t.products[p.ID]; ok {
		return staged
	}
	c := cloneProduct(p)
	t.products[p.ID] = c
	return c
}

func (t *Tx) seller(id uuid.UUID) *domain.Seller {
	if s, ok := t.sellers[id]; ok {
		return s
	}
	return t.store.sellers[id]
}

func (t *Tx) stageSeller(s *domain.Seller) *domain.Seller {
	if staged, ok := t.sellers[s.ID]; ok {
		return staged
	}
	c := *s
	t.sellers[s.ID] = &c
	return &c
}

func (t *Tx) order(id uuid.UUID) *domain.Order {
	if o, ok := t.orders[id]; ok {
		return o
	}
	return t.store.orders[id]
}

func (t *Tx) stageOrder(o *domain.Order) *domain.Order {
	if staged, ok := t.orders[o.ID]; ok {
		return staged
	}
	c := cloneOrder(o)
	t.orders[o.ID] = c
	return c
}

// Commit publishes the staged writes and releases the row locks.
func (t *Tx) Commit(context.Context) error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.closed {
		return pgx.ErrTxClosed
	}

	for id, p := range t.products {
		s.products[id] = p
	}
	for id, seller := range t.sellers {
		s.sellers[id] = seller
		s.sellersByUser[seller.UserID] = id
	}
	for id, o := range t.orders {
		s.orders[id] = o
	}
	s.ledger = append(s.ledger, t.ledger...)
	s.billing = append(s.billing, t.billing...)
	for _, r := range t.cartRemovals {
		s.removeFromCart(r.userID, r.items)
	}

	t.finish()
	return nil
}

// Rollback discards the staged writes and releases the row locks.
func (t *Tx) Rollback(context.Context) error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.finish()
	return nil
}

// finish closes t and wakes every transaction waiting on its rows. Callers
// hold the store mutex.
func (t *Tx) finish() {
	s := t.store
	for _, key := range t.held {
		if l, ok := s.locks[key]; ok && l.owner == t {
			close(l.released)
			delete(s.locks, key)
		}
	}
	t.closed = true
	t.held = nil
	t.products, t.sellers, t.orders = nil, nil, nil
	t.ledger, t.billing, t.cartRemovals = nil, nil, nil
}

func (t *Tx) Begin(context.Context) (pgx.Tx, error) { return nil, errUnsupported }

func (t *Tx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, errUnsupported
}

func (t *Tx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (t *Tx) LargeObjects() pgx.LargeObjects                        { return pgx.LargeObjects{} }

func (t *Tx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, errUnsupported
}

func (t *Tx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errUnsupported
}

func (t *Tx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, errUnsupported }
func (t *Tx) QueryRow(context.Context, string, ...any) pgx.Row        { return errRow{} }
func (t *Tx) Conn() *pgx.Conn                                         { return nil }

type errRow struct{}

func (errRow) Scan(...any) error { return errUnsupported }
