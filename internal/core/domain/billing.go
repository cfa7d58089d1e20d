package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillingStatus is the outcome of a metered operation.
type BillingStatus string

const (
	BillingStatusSuccess BillingStatus = "SUCCESS"
	BillingStatusFailed  BillingStatus = "FAILED"
)

// BillingOperation names what was metered.
type BillingOperation string

const BillingOperationListing BillingOperation = "PRODUCT_LISTING"

// BillingRecord is written once per metered operation so a charge can be
// inspected after the fact.
type BillingRecord struct {
	ID            uuid.UUID        `json:"id"`
	SellerID      uuid.UUID        `json:"seller_id"`
	Operation     BillingOperation `json:"operation"`
	Status        BillingStatus    `json:"status"`
	Cost          decimal.Decimal  `json:"cost"`
	ResourceID    *uuid.UUID       `json:"resource_id,omitempty"` // product paid for; nil on failure
	FailureReason string           `json:"failure_reason,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}
