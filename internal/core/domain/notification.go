package domain

import "github.com/google/uuid"

// Notification events.
const (
	EventOrderPlaced        = "order:placed"
	EventOrderNew           = "order:new"
	EventOrderStatusChanged = "order:status"
)

// Notification is one best-effort real-time message.
type Notification struct {
	Channel string
	Event   string
	Payload any
}

// UserChannel is the buyer's real-time channel.
func UserChannel(userID uuid.UUID) string {
	return "user:" + userID.String()
}

// SellerChannel is a seller's real-time channel.
func SellerChannel(sellerID uuid.UUID) string {
	return "seller:" + sellerID.String()
}
