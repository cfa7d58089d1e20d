package domain

import (
	"slices"

	"github.com/google/uuid"
)

// Capabilities checked by the authorization collaborator.
const (
	CapOrderCreate = "order:create"
	CapOrderRead   = "order:read"
	CapOrderUpdate = "order:update"
	CapAddProduct  = "addProduct"
	CapWalletRead  = "wallet:read"
	CapWalletTopup = "wallet:topup"
)

// Identity is the authenticated caller.
type Identity struct {
	UserID       uuid.UUID
	Role         string
	Capabilities []string
}

// Can reports whether the identity holds the capability.
func (i *Identity) Can(capability string) bool {
	return i != nil && slices.Contains(i.Capabilities, capability)
}
