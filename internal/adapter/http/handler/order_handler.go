package handler

import (
	"storefront/internal/adapter/http/dto"
	"storefront/internal/adapter/http/middleware"
	"storefront/internal/core/domain"
	"storefront/internal/core/ports"
	"storefront/pkg/apperror"
	"storefront/pkg/response"

	"github.com/gin-gonic/gin"
)

const HeaderIdempotencyKey = "Idempotency-Key"

// OrderHandler handles checkout and order endpoints.
type OrderHandler struct {
	orderSvc     ports.OrderService
	lifecycleSvc ports.LifecycleService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc ports.OrderService, lifecycleSvc ports.LifecycleService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc, lifecycleSvc: lifecycleSvc}
}

// PlaceOrder handles POST /api/v1/orders. The lines come from the caller's
// server-side cart; the body only carries address and payment method.
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	userID, err := userIDFrom(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	key := c.GetHeader(HeaderIdempotencyKey)
	if key != "" && !dto.ValidIdempotencyKey(key) {
		response.Error(c, apperror.Validation("invalid Idempotency-Key header"))
		return
	}

	body, err := readBody(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.PlaceOrderRequest
	if err := dto.DecodeStrict(body, &req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	order, err := h.orderSvc.PlaceOrder(c.Request.Context(), ports.PlaceOrderRequest{
		UserID:          userID,
		ShippingAddress: req.ShippingAddress.ToDomain(),
		PaymentMethod:   domain.PaymentMethod(req.PaymentMethod),
		IdempotencyKey:  key,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, order.ID.String())
	response.Created(c, gin.H{
		"orderId":        order.ID,
		"trackingNumber": order.TrackingNumber,
	})
}

// ListOrders handles GET /api/v1/orders.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	userID, err := userIDFrom(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	orders, err := h.orderSvc.ListOrders(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"orders": orders})
}

// GetOrder handles GET /api/v1/orders/:id.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID, err := userIDFrom(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	orderID, err := pathUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	order, err := h.orderSvc.GetOrder(c.Request.Context(), userID, orderID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"order": order})
}

// UpdateStatus handles PATCH /api/v1/orders/:id/status.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	actorID, err := userIDFrom(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	orderID, err := pathUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	body, err := readBody(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.TransitionRequest
	if err := dto.DecodeStrict(body, &req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	order, err := h.lifecycleSvc.Transition(c.Request.Context(), ports.TransitionRequest{
		OrderID: orderID,
		To:      domain.OrderStatus(req.Status),
		ActorID: actorID,
		Note:    req.Note,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, order.ID.String())
	response.OK(c, gin.H{"order": order})
}
