package dto

import (
	"storefront/internal/core/domain"

	"github.com/shopspring/decimal"
)

// ShippingAddress is the delivery address of an order.
type ShippingAddress struct {
	FullName   string `json:"fullName" binding:"required,max=100"`
	Line1      string `json:"line1" binding:"required,max=200"`
	Line2      string `json:"line2" binding:"max=200"`
	City       string `json:"city" binding:"required,max=100"`
	State      string `json:"state" binding:"required,max=100"`
	PostalCode string `json:"postalCode" binding:"required,max=20"`
	Country    string `json:"country" binding:"required,max=56"`
	Phone      string `json:"phone" binding:"required,min=6,max=20"`
}

// ToDomain converts the address.
func (a ShippingAddress) ToDomain() domain.ShippingAddress {
	return domain.ShippingAddress{
		FullName:   a.FullName,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      a.Phone,
	}
}

// PlaceOrderRequest is the request body for checkout. Cart lines are never
// accepted from the client.
type PlaceOrderRequest struct {
	ShippingAddress ShippingAddress `json:"shippingAddress" binding:"required"`
	PaymentMethod   string          `json:"paymentMethod" binding:"required,oneof=COD CARD UPI"`
}

// PlaceOrderResponse is the body of a successful checkout.
type PlaceOrderResponse struct {
	OrderID        string `json:"orderId"`
	TrackingNumber string `json:"trackingNumber"`
}

// TransitionRequest is the request body for an order status change.
type TransitionRequest struct {
	Status string `json:"status" binding:"required,oneof=PAID SHIPPED DELIVERED CANCELLED"`
	Note   string `json:"note" binding:"max=500"`
}

// ProductMetadata is the JSON "product" part of a listing upload.
type ProductMetadata struct {
	Name        string   `json:"name" binding:"required,max=200"`
	Description string   `json:"description" binding:"required,max=5000"`
	Category    string   `json:"category" binding:"required,max=100"`
	Brand       string   `json:"brand" binding:"max=100"`
	Tags        []string `json:"tags" binding:"max=20,dive,max=50"`
	Price       string   `json:"price" binding:"required,money"`
	Stock       int      `json:"stock" binding:"gte=0,lte=1000000"`
}

// TopupRequest is the request body for a wallet top-up.
type TopupRequest struct {
	Amount    string `json:"amount" binding:"required,money"`
	Reference string `json:"reference" binding:"required,max=100,safe_id"`
}

// WalletResponse is the seller wallet with its trail.
type WalletResponse struct {
	SellerID     string                 `json:"sellerId"`
	StoreName    string                 `json:"storeName"`
	Balance      decimal.Decimal        `json:"balance"`
	HouseAccount bool                   `json:"houseAccount"`
	Ledger       []domain.LedgerEntry   `json:"ledger"`
	Billing      []domain.BillingRecord `json:"billing"`
}
