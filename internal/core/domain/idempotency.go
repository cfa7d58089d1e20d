package domain

import (
	"github.com/google/uuid"
)

// OrderReceipt is the cached result of a placement, replayed when the same
// idempotency key is presented again.
type OrderReceipt struct {
	OrderID        uuid.UUID `json:"order_id"`
	TrackingNumber string    `json:"tracking_number"`
}

// BuildIdempotencyKey scopes a client-supplied key to the user.
func BuildIdempotencyKey(userID uuid.UUID, clientKey string) string {
	return "order:" + userID.String() + ":" + clientKey
}
