package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"

	"storefront/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Lookups return nil, nil when the row does not exist.

// ProductRepository is the inventory store. Stock is mutated only through
// TryDecrementStock.
type ProductRepository interface {
	Create(ctx context.Context, tx pgx.Tx, product *domain.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Product, error)
	// TryDecrementStock atomically subtracts qty when stock >= qty and the
	// product is ACTIVE, flipping status to OUT_OF_STOCK when stock reaches 0.
	// ok is false when the predicate did not match; nothing was changed then.
	TryDecrementStock(ctx context.Context, tx pgx.Tx, productID uuid.UUID, qty int) (res *domain.StockReservation, ok bool, err error)
	UpdatePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) error
}

// CartRepository holds the per-user server-side cart.
type CartRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	AddItem(ctx context.Context, userID uuid.UUID, item domain.CartItem) error
	// RemoveOrdered takes the ordered quantities out of the cart. Lines added
	// or topped up after the cart was read stay behind.
	RemoveOrdered(ctx context.Context, tx pgx.Tx, userID uuid.UUID, items []domain.CartItem) error
}

// OrderRepository persists order aggregates.
type OrderRepository interface {
	Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Order, error)
	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Order, error)
	// UpdateStatus writes status, payment status and history only if the stored
	// order still has prevStatus and prevHistoryLen entries.
	UpdateStatus(ctx context.Context, tx pgx.Tx, order *domain.Order, prevStatus domain.OrderStatus, prevHistoryLen int) (bool, error)
}

// SellerRepository is the wallet store.
type SellerRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Seller, error)
	GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Seller, error)
	// TryDebit atomically subtracts amount when the balance covers it and
	// returns the new balance. ok is false when funds were insufficient.
	TryDebit(ctx context.Context, tx pgx.Tx, sellerID uuid.UUID, amount decimal.Decimal) (balance decimal.Decimal, ok bool, err error)
	Credit(ctx context.Context, tx pgx.Tx, sellerID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
}

// LedgerRepository is append-only.
type LedgerRepository interface {
	Append(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	// ListBySeller returns entries oldest first.
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]domain.LedgerEntry, error)
}

// BillingRepository stores one record per metered operation.
type BillingRepository interface {
	Create(ctx context.Context, tx pgx.Tx, rec *domain.BillingRecord) error
	// CreateDetached writes outside any transaction, for failed charges whose
	// transaction was rolled back.
	CreateDetached(ctx context.Context, rec *domain.BillingRecord) error
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]domain.BillingRecord, error)
}

// AuditRepository persists audit logs.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
