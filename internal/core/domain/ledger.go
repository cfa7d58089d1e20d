package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerEntryType is the direction of a balance change.
type LedgerEntryType string

const (
	LedgerEntryDebit  LedgerEntryType = "DEBIT"
	LedgerEntryCredit LedgerEntryType = "CREDIT"
)

// LedgerReason says why the balance moved.
type LedgerReason string

const (
	LedgerReasonEmbeddingCharge LedgerReason = "EMBEDDING_CHARGE"
	LedgerReasonTopUp           LedgerReason = "TOP_UP"
)

// LedgerEntry is an immutable audit record of one wallet mutation. It is a
// trail for reconciliation; the wallet balance stays the source of truth.
type LedgerEntry struct {
	ID           uuid.UUID       `json:"id"`
	SellerID     uuid.UUID       `json:"seller_id"`
	Type         LedgerEntryType `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	Reason       LedgerReason    `json:"reason"`
	ReferenceID  string          `json:"reference_id"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	CreatedAt    time.Time       `json:"created_at"`
}

// NetDebit sums the entries with debits positive and credits negative. For a
// consistent wallet it equals initial balance minus current balance.
func NetDebit(entries []LedgerEntry) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		switch e.Type {
		case LedgerEntryDebit:
			sum = sum.Add(e.Amount)
		case LedgerEntryCredit:
			sum = sum.Sub(e.Amount)
		}
	}
	return sum
}
