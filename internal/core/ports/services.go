package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"time"

	"storefront/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- Collaborators ---

// Authorizer validates a bearer token and checks a capability.
type Authorizer interface {
	Authorize(token string, capability string) (*domain.Identity, error)
}

// Notifier publishes a real-time event. Delivery is best-effort.
type Notifier interface {
	Publish(ctx context.Context, channel, event string, payload any) error
}

// EmbeddingGenerator turns product text into a vector. An empty vector is an error.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// MediaStorage stores uploaded media.
type MediaStorage interface {
	Store(ctx context.Context, data []byte, destinationHint, filename string) (domain.StoredMedia, error)
}

// IdempotencyCache is the Redis-layer replay cache for order placement.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // nil when absent
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Claim is set-if-absent; false means another request holds the key.
	Claim(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// NotificationQueue accepts notifications for asynchronous delivery. Enqueue
// never blocks the caller.
type NotificationQueue interface {
	Enqueue(n domain.Notification)
}

// --- Service Ports (Business Logic) ---

// OrderService places and reads orders.
type OrderService interface {
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*domain.Order, error)
	ListOrders(ctx context.Context, userID uuid.UUID) ([]domain.Order, error)
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*domain.Order, error)
}

// PlaceOrderRequest holds validated input for checkout. The cart is resolved
// from UserID, never taken from the request.
type PlaceOrderRequest struct {
	UserID          uuid.UUID
	ShippingAddress domain.ShippingAddress
	PaymentMethod   domain.PaymentMethod
	IdempotencyKey  string
}

// ListingService creates metered product listings.
type ListingService interface {
	CreateListing(ctx context.Context, req CreateListingRequest) (*domain.Product, error)
}

// CreateListingRequest holds validated input for a listing.
type CreateListingRequest struct {
	UserID  uuid.UUID
	Product ListingDraft
	Media   []domain.MediaFile
}

// ListingDraft is the seller-supplied product metadata.
type ListingDraft struct {
	Name        string
	Description string
	Category    string
	Brand       string
	Tags        []string
	Price       decimal.Decimal
	Stock       int
}

// LifecycleService moves orders through their status lifecycle.
type LifecycleService interface {
	Transition(ctx context.Context, req TransitionRequest) (*domain.Order, error)
}

// TransitionRequest holds a lifecycle move.
type TransitionRequest struct {
	OrderID uuid.UUID
	To      domain.OrderStatus
	ActorID uuid.UUID
	Note    string
}

// WalletService tops up and reports seller wallets.
type WalletService interface {
	Topup(ctx context.Context, req TopupRequest) (*domain.LedgerEntry, error)
	GetWallet(ctx context.Context, userID uuid.UUID) (*WalletView, error)
}

// TopupRequest holds validated input for a wallet top-up.
type TopupRequest struct {
	UserID    uuid.UUID
	Amount    decimal.Decimal
	Reference string
}

// WalletView is a seller's balance with its ledger trail.
type WalletView struct {
	Seller  *domain.Seller
	Ledger  []domain.LedgerEntry
	Billing []domain.BillingRecord
}

// AuditService records audit entries asynchronously.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
