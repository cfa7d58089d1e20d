package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront/internal/core/domain"
	"storefront/internal/core/ports"
	"storefront/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

const (
	idempotencyTTL = 24 * time.Hour
	// a claim only expires on its own if its holder dies mid-placement
	idempotencyClaimTTL = time.Minute
)

// pendingReceipt marks a key whose placement is still running.
var pendingReceipt = []byte("pending")

// OrderPlacedPayload is sent to the buyer after checkout.
type OrderPlacedPayload struct {
	OrderID        uuid.UUID       `json:"order_id"`
	TrackingNumber string          `json:"tracking_number"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Status         string          `json:"status"`
}

// SellerOrderPayload is sent to every seller with lines in a new order.
type SellerOrderPayload struct {
	OrderID        uuid.UUID          `json:"order_id"`
	TrackingNumber string             `json:"tracking_number"`
	Items          []domain.OrderItem `json:"items"`
}

// OrderServiceImpl implements ports.OrderService.
type OrderServiceImpl struct {
	productRepo    ports.ProductRepository
	cartRepo       ports.CartRepository
	orderRepo      ports.OrderRepository
	transactor     ports.DBTransactor
	idempCache     ports.IdempotencyCache
	notifications  ports.NotificationQueue
	deliveryWindow time.Duration
	now            func() time.Time
	log            zerolog.Logger
}

// NewOrderService creates a new OrderServiceImpl. idempCache may be nil.
func NewOrderService(
	productRepo ports.ProductRepository,
	cartRepo ports.CartRepository,
	orderRepo ports.OrderRepository,
	transactor ports.DBTransactor,
	idempCache ports.IdempotencyCache,
	notifications ports.NotificationQueue,
	deliveryWindow time.Duration,
	log zerolog.Logger,
) *OrderServiceImpl {
	return &OrderServiceImpl{
		productRepo:    productRepo,
		cartRepo:       cartRepo,
		orderRepo:      orderRepo,
		transactor:     transactor,
		idempCache:     idempCache,
		notifications:  notifications,
		deliveryWindow: deliveryWindow,
		now:            func() time.Time { return time.Now().UTC() },
		log:            log,
	}
}

// PlaceOrder converts the caller's cart into an order. Stock for every line
// is reserved with a conditional decrement inside one transaction, so either
// all lines are reserved and the order exists, or nothing changed.
func (s *OrderServiceImpl) PlaceOrder(ctx context.Context, req ports.PlaceOrderRequest) (order *domain.Order, err error) {
	ctx, span := tracer.Start(ctx, "OrderService.PlaceOrder")
	span.SetAttributes(attribute.String("user.id", req.UserID.String()))
	defer func() { endSpan(span, err) }()

	idempKey := ""
	if req.IdempotencyKey != "" && s.idempCache != nil {
		idempKey = domain.BuildIdempotencyKey(req.UserID, req.IdempotencyKey)
		var replay *domain.Order
		var claimed bool
		replay, claimed, err = s.claim(ctx, idempKey)
		if err != nil {
			return nil, err
		}
		if replay != nil {
			return replay, nil
		}
		if claimed {
			defer func() {
				if err != nil {
					s.release(ctx, idempKey)
				}
			}()
		}
	}

	cart, err := s.cartRepo.GetByUserID(ctx, req.UserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load cart: %w", err))
	}
	if cart.IsEmpty() {
		return nil, apperror.ErrEmptyCart()
	}
	for _, line := range cart.Items {
		if line.Quantity < 1 {
			return nil, apperror.Validation(fmt.Sprintf("cart line %s has quantity %d", line.ProductID, line.Quantity))
		}
	}

	err = withinTx(ctx, s.transactor, func(tx pgx.Tx) error {
		items := make([]domain.OrderItem, 0, len(cart.Items))
		for _, line := range cart.Items {
			item, err := s.reserve(ctx, tx, line)
			if err != nil {
				return err
			}
			items = append(items, item)
		}

		order = domain.NewOrder(domain.NewOrderParams{
			UserID:          req.UserID,
			Items:           items,
			ShippingAddress: req.ShippingAddress,
			PaymentMethod:   req.PaymentMethod,
			DeliveryWindow:  s.deliveryWindow,
			Now:             s.now(),
		})

		if err := s.orderRepo.Create(ctx, tx, order); err != nil {
			return apperror.ErrTransaction(fmt.Errorf("create order: %w", err))
		}
		if err := s.cartRepo.RemoveOrdered(ctx, tx, req.UserID, cart.Items); err != nil {
			return apperror.ErrTransaction(fmt.Errorf("clear cart: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, asAppError(err)
	}

	if idempKey != "" {
		s.remember(ctx, idempKey, order)
	}
	s.notifyPlaced(order)

	span.SetAttributes(attribute.String("order.id", order.ID.String()))
	s.log.Info().
		Str("order_id", order.ID.String()).
		Str("user_id", req.UserID.String()).
		Str("tracking_number", order.TrackingNumber).
		Str("total", order.TotalAmount.String()).
		Int("lines", len(order.Items)).
		Msg("order placed")

	return order, nil
}

// reserve decrements stock for one cart line and snapshots the product. When
// the conditional decrement does not apply, the product is re-read in the
// same transaction only to explain why.
func (s *OrderServiceImpl) reserve(ctx context.Context, tx pgx.Tx, line domain.CartItem) (domain.OrderItem, error) {
	res, ok, err := s.productRepo.TryDecrementStock(ctx, tx, line.ProductID, line.Quantity)
	if err != nil {
		return domain.OrderItem{}, apperror.ErrTransaction(fmt.Errorf("decrement stock %s: %w", line.ProductID, err))
	}
	if !ok {
		product, err := s.productRepo.GetByIDTx(ctx, tx, line.ProductID)
		if err != nil {
			return domain.OrderItem{}, apperror.ErrTransaction(fmt.Errorf("load product %s: %w", line.ProductID, err))
		}
		switch {
		case product == nil:
			return domain.OrderItem{}, apperror.ErrProductInactive(line.ProductID.String())
		case product.IsActive() || product.Status == domain.ProductStatusOutOfStock:
			return domain.OrderItem{}, apperror.ErrInsufficientStock(product.Name, line.Quantity, product.Stock)
		default:
			return domain.OrderItem{}, apperror.ErrProductInactive(product.Name)
		}
	}
	return domain.OrderItem{
		ProductID:       line.ProductID,
		NameSnapshot:    res.Name,
		ImageSnapshot:   res.Image,
		Quantity:        line.Quantity,
		PriceAtPurchase: res.Price,
		SellerID:        res.SellerID,
	}, nil
}

// claim reserves the idempotency key before placement. A key that already
// completed replays its order; a key still being placed is a conflict. When
// Redis is unavailable the order is placed without protection.
func (s *OrderServiceImpl) claim(ctx context.Context, key string) (replay *domain.Order, claimed bool, err error) {
	ok, err := s.idempCache.Claim(ctx, key, pendingReceipt, idempotencyClaimTTL)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("redis idempotency claim failed, placing order")
		return nil, false, nil
	}
	if ok {
		return nil, true, nil
	}

	cached, err := s.idempCache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("redis idempotency check failed, placing order")
		return nil, false, nil
	}
	if cached == nil || bytes.Equal(cached, pendingReceipt) {
		return nil, false, apperror.ErrIdempotencyInProgress()
	}
	if order := s.replay(ctx, cached); order != nil {
		return order, false, nil
	}

	// unusable receipt: take the key over
	if err := s.idempCache.Set(ctx, key, pendingReceipt, idempotencyClaimTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to reclaim idempotency key")
		return nil, false, nil
	}
	return nil, true, nil
}

func (s *OrderServiceImpl) replay(ctx context.Context, cached []byte) *domain.Order {
	var receipt domain.OrderReceipt
	if err := json.Unmarshal(cached, &receipt); err != nil {
		s.log.Warn().Err(err).Msg("corrupt idempotency receipt, ignoring")
		return nil
	}
	order, err := s.orderRepo.GetByID(ctx, receipt.OrderID)
	if err != nil || order == nil {
		s.log.Warn().Err(err).Str("order_id", receipt.OrderID.String()).Msg("idempotency receipt points to missing order")
		return nil
	}
	s.log.Info().Str("order_id", order.ID.String()).Msg("order placement replayed")
	return order
}

func (s *OrderServiceImpl) release(ctx context.Context, key string) {
	if err := s.idempCache.Release(context.WithoutCancel(ctx), key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to release idempotency key")
	}
}

func (s *OrderServiceImpl) remember(ctx context.Context, key string, order *domain.Order) {
	receipt, err := json.Marshal(domain.OrderReceipt{OrderID: order.ID, TrackingNumber: order.TrackingNumber})
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to encode idempotency receipt")
		return
	}
	if err := s.idempCache.Set(context.WithoutCancel(ctx), key, receipt, idempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to cache idempotency in redis")
	}
}

func (s *OrderServiceImpl) notifyPlaced(order *domain.Order) {
	s.notifications.Enqueue(domain.Notification{
		Channel: domain.UserChannel(order.UserID),
		Event:   domain.EventOrderPlaced,
		Payload: OrderPlacedPayload{
			OrderID:        order.ID,
			TrackingNumber: order.TrackingNumber,
			TotalAmount:    order.TotalAmount,
			Status:         string(order.Status),
		},
	})
	for _, sellerID := range order.SellerIDs() {
		var lines []domain.OrderItem
		for _, it := range order.Items {
			if it.SellerID == sellerID {
				lines = append(lines, it)
			}
		}
		s.notifications.Enqueue(domain.Notification{
			Channel: domain.SellerChannel(sellerID),
			Event:   domain.EventOrderNew,
			Payload: SellerOrderPayload{
				OrderID:        order.ID,
				TrackingNumber: order.TrackingNumber,
				Items:          lines,
			},
		})
	}
}

// ListOrders returns the caller's orders, newest first.
func (s *OrderServiceImpl) ListOrders(ctx context.Context, userID uuid.UUID) ([]domain.Order, error) {
	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list orders: %w", err))
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

// GetOrder returns one of the caller's orders. Another user's order is
// reported as not found.
func (s *OrderServiceImpl) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get order: %w", err))
	}
	if order == nil || order.UserID != userID {
		return nil, apperror.ErrNotFound("order")
	}
	return order, nil
}
