package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductStatus is the catalog lifecycle state of a product.
type ProductStatus string

const (
	ProductStatusActive          ProductStatus = "ACTIVE"
	ProductStatusOutOfStock      ProductStatus = "OUT_OF_STOCK"
	ProductStatusDraft           ProductStatus = "DRAFT"
	ProductStatusInactive        ProductStatus = "INACTIVE"
	ProductStatusPendingApproval ProductStatus = "PENDING_APPROVAL"
)

// Product is a catalog entry owned by a seller. Stock and status change only
// through the conditional decrement of the inventory store.
type Product struct {
	ID          uuid.UUID       `json:"id"`
	SellerID    uuid.UUID       `json:"seller_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Brand       string          `json:"brand,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Status      ProductStatus   `json:"status"`
	Images      []string        `json:"images"`
	Embedding   []float32       `json:"-"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// IsActive reports whether the product can be purchased.
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

// PrimaryImage returns the first image reference, or "" when there is none.
func (p *Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// EmbeddingText concatenates the text fields the search index embeds.
func (p *Product) EmbeddingText() string {
	parts := []string{p.Name, p.Description, p.Category, p.Brand}
	parts = append(parts, p.Tags...)

	var b strings.Builder
	for _, s := range parts {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s)
	}
	return b.String()
}

// StockReservation is what a successful conditional decrement returns: the
// fields snapshotted into an order line plus the remaining stock.
type StockReservation struct {
	ProductID      uuid.UUID
	Name           string
	Image          string
	Price          decimal.Decimal
	SellerID       uuid.UUID
	RemainingStock int
}
