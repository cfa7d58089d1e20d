package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Seller is a merchant profile with its spendable wallet balance.
// WalletBalance never goes below zero; it is mutated only by conditional
// debit or credit inside a transaction.
type Seller struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"user_id"`
	StoreName     string          `json:"store_name"`
	WalletBalance decimal.Decimal `json:"wallet_balance"`
	HouseAccount  bool            `json:"house_account"` // platform-owned, exempt from metered charges
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ListingCost is the metered charge this seller pays for one listing.
func (s *Seller) ListingCost(fee decimal.Decimal) decimal.Decimal {
	if s.HouseAccount {
		return decimal.Zero
	}
	return fee
}

// CanAfford reports whether the balance covers amount.
func (s *Seller) CanAfford(amount decimal.Decimal) bool {
	return s.WalletBalance.GreaterThanOrEqual(amount)
}
