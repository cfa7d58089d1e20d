package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"storefront/internal/core/domain"
	"storefront/internal/core/ports"
	"storefront/internal/core/ports/mocks"
	"storefront/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type orderTestDeps struct {
	svc           *OrderServiceImpl
	productRepo   *mocks.MockProductRepository
	cartRepo      *mocks.MockCartRepository
	orderRepo     *mocks.MockOrderRepository
	transactor    *mocks.MockDBTransactor
	idempCache    *mocks.MockIdempotencyCache
	notifications *mocks.MockNotificationQueue
	ctrl          *gomock.Controller
}

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func setupOrderService(t *testing.T) *orderTestDeps {
	ctrl := gomock.NewController(t)
	d := &orderTestDeps{
		productRepo:   mocks.NewMockProductRepository(ctrl),
		cartRepo:      mocks.NewMockCartRepository(ctrl),
		orderRepo:     mocks.NewMockOrderRepository(ctrl),
		transactor:    mocks.NewMockDBTransactor(ctrl),
		idempCache:    mocks.NewMockIdempotencyCache(ctrl),
		notifications: mocks.NewMockNotificationQueue(ctrl),
		ctrl:          ctrl,
	}
	d.svc = NewOrderService(
		d.productRepo, d.cartRepo, d.orderRepo, d.transactor,
		d.idempCache, d.notifications, 120*time.Hour, newTestLogger(),
	)
	d.svc.now = func() time.Time { return fixedNow }
	return d
}

func testAddress() domain.ShippingAddress {
	return domain.ShippingAddress{
		FullName: "Asha Rao", Line1: "12 MG Road", City: "Bengaluru",
		State: "KA", PostalCode: "560001", Country: "IN", Phone: "+919800000000",
	}
}

func reservation(id uuid.UUID, name string, price int64, seller uuid.UUID, remaining int) *domain.StockReservation {
	return &domain.StockReservation{
		ProductID: id, Name: name, Image: "/img/" + name + ".png",
		Price: decimal.NewFromInt(price), SellerID: seller, RemainingStock: remaining,
	}
}

// ==================== PlaceOrder Tests ====================

func TestOrderService_PlaceOrder_Success(t *testing.T) {
	d := setupOrderService(t)
	ctx := context.Background()
	userID := uuid.New()
	productA, productB := uuid.New(), uuid.New()
	sellerA, sellerB := uuid.New(), uuid.New()
	tx := &mockTx{}

	lines := []domain.CartItem{{ProductID: productA, Quantity: 1}, {ProductID: productB, Quantity: 1}}
	d.cartRepo.EXPECT().GetByUserID(gomock.Any(), userID).Return(&domain.Cart{UserID: userID, Items: lines}, nil)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.productRepo.EXPECT().TryDecrementStock(gomock.Any(), tx, productA, 1).
		Return(reservation(productA, "lamp", 300, sellerA, 4), true, nil)
	d.productRepo.EXPECT().TryDecrementStock(gomock.Any(), tx, productB, 1).
		Return(reservation(productB, "desk", 250, sellerB, 0), true, nil)

	var created *domain.Order
	d.orderRepo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, o *domain.Order) error {
			created = o
			return nil
		})
	// only the lines that were read and reserved leave the cart
	d.cartRepo.EXPECT().RemoveOrdered(gomock.Any(), tx, userID, lines).Return(nil)

	var sent []domain.Notification
	d.notifications.EXPECT().Enqueue(gomock.Any()).Do(func(n domain.Notification) {
		sent = append(sent, n)
	}).Times(3)

	order, err := d.svc.PlaceOrder(ctx, ports.PlaceOrderRequest{
		UserID:          userID,
		ShippingAddress: testAddress(),
		PaymentMethod:   domain.PaymentMethodCOD,
	})
	require.NoError(t, err)
	require.Same(t, created, order)
	assert.True(t, tx.committed)

	assert.Equal(t, "550", order.Subtotal.String())
	assert.Equal(t, "0", order.ShippingFee.String())
	assert.Equal(t, "99", order.Tax.String())
	assert.Equal(t, "649", order.TotalAmount.String())
	assert.Equal(t, domain.OrderStatusPlaced, order.Status)
	assert.Equal(t, domain.PaymentStatusPending, order.PaymentStatus)
	require.Len(t, order.StatusHistory, 1)
	assert.Equal(t, "Order placed by customer", order.StatusHistory[0].Note)
	assert.Equal(t, userID, order.StatusHistory[0].ActorID)
	assert.Equal(t, fixedNow.Add(120*time.Hour), order.EstimatedDelivery)

	require.Len(t, order.Items, 2)
	assert.Equal(t, "lamp", order.Items[0].NameSnapshot)
	assert.Equal(t, "/img/lamp.png", order.Items[0].ImageSnapshot)
	assert.Equal(t, sellerB, order.Items[1].SellerID)

	require.Len(t, sent, 3)
	assert.Equal(t, domain.UserChannel(userID), sent[0].Channel)
	assert.Equal(t, domain.EventOrderPlaced, sent[0].Event)
	assert.Equal(t, domain.SellerChannel(sellerA), sent[1].Channel)
	assert.Equal(t, domain.EventOrderNew, sent[1].Event)
	assert.Equal(t, domain.SellerChannel(sellerB), sent[2].Channel)
	payload, ok := sent[2].Payload.(SellerOrderPayload)
	require.True(t, ok)
	require.Len(t, payload.Items, 1)
	assert.Equal(t, productB, payload.Items[0].ProductID)
}

func TestOrderService_PlaceOrder_EmptyCart(t *testing.T) {
	tests := []struct {
		name string
		cart *domain.Cart
	}{
		{"no cart", nil},
		{"no lines", &domain.Cart{Items: []domain.CartItem{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupOrderService(t)
			userID := uuid.New()
			d.cartRepo.EXPECT().GetByUserID(gomock.Any(), userID).Return(tt.cart, nil)

			order, err := d.svc.PlaceOrder(context.Background(), ports.PlaceOrderRequest{UserID: userID})
			assert.Nil(t, order)
			assertAppError(t, err, "PRE_001")
		})
	}
}

func TestOrderService_PlaceOrder_InsufficientStock(t *testing.T) {
	d := setupOrderService(t)
	userID := uuid.New()
	productA, productB := uuid.New(), uuid.New()
	tx := &mockTx{}

	d.cartRepo.EXPECT().GetByUserID(gomock.Any(), userID).Return(&domain.Cart{
		Items: []domain.CartItem{{ProductID: productA, Quantity: 1}, {ProductID: productB, Quantity: 3}},
	}, nil)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.productRepo.EXPECT().TryDecrementStock(gomock.Any(), tx, productA, 1).
		Return(reservation(productA, "lamp", 300, uuid.New(), 0), true, nil)
	d.productRepo.EXPECT().TryDecrementStock(gomock.Any(), tx, productB, 3).Return(nil, false, nil)
	d.productRepo.EXPECT().GetByIDTx(gomock.Any(), tx, productB).Return(&domain.Product{
		ID: productB, Name: "Walnut Desk", Stock: 1, Status: domain.ProductStatusActive,
	}, nil)

	order, err := d.svc.PlaceOrder(context.Background(), ports.PlaceOrderRequest{UserID: userID})
	assert.Nil(t, order)
	assertAppError(t, err, "CON_001")
	assert.ErrorContains(t, err, "Walnut Desk")
	assert.ErrorContains(t, err, "requested 3, available 1")
	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
}

func TestOrderService_PlaceOrder_ProductUnavailable(t *testing.T) {
	tests := []struct {
		name    string
		product *domain.Product
		code    string
	}{
		{"inactive", &domain.Product{Name: "Old Lamp", Stock: 5, Status: domain.ProductStatusInactive}, "PRE_002"},
		{"draft", &domain.Product{Name: "New Lamp", Stock: 0, Status: domain.ProductStatusDraft}, "PRE_002"},
		{"deleted", nil, "PRE_002"},
		{"sold out", &domain.Product{Name: "Lamp", Stock: 0, Status: domain.ProductStatusOutOfStock}, "CON_001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupOrderService(t)
			userID, productID := uuid.New(), uuid.New()
			tx := &mockTx{}

			d.cartRepo.EXPECT().GetByUserID(gomock.Any(), userID).Return(&domain.Cart{
				Items: []domain.CartItem{{ProductID: productID, Quantity: 1}},
			}, nil)
			d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
			d.productRepo.EXPECT().TryDecrementStock(gomock.Any(), tx, productID, 1).Return(nil, false, nil)
			d.productRepo.EXPECT().GetByIDTx(gomock.Any(), tx, productID).Return(tt.product, nil)

			_, err := d.svc.PlaceOrder(context.Background(), ports.PlaceOrderRequest{UserID: userID})
			assertAppError(t, err, tt.code)
			assert.True(t, tx.rolledBack)
		})
	}
}

func TestOrderService_PlaceOrder_CreateFailsRollsBack(t *testing.T) {
	d := setupOrderService(t)
	userID, productID := uuid.New(), uuid.New()
	tx := &mockTx{}

	d.cartRepo.EXPECT().GetByUserID(gomock.Any(), userID).Return(&domain.Cart{
		Items: []domain.CartItem{{ProductID: productID, Quantity: 2}},
	}, nil)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.productRepo.EXPECT().TryDecrementStock(gomock.Any(), tx, productID, 2).
		Return(reservation(productID, "lamp", 10, uuid.New(), 3), true, nil)
	d.orderRepo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).Return(errors.New("duplicate key tracking_number"))
	// cart is never cleared and no notification goes out

	_, err := d.svc.PlaceOrder(context.Background(), ports.PlaceOrderRequest{UserID: userID})
	assertAppError(t, err, "TXN_001")
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.NotContains(t, appErr.Message, "duplicate")
	assert.True(t, tx.rolledBack)
}

func TestOrderService_PlaceOrder_CommitFails(t *testing.T) {
	d := setupOrderService(t)
	userID, productID := uuid.New(), uuid.New()
	tx := &mockTx{commitErr: errors.New("connection reset")}

	d.cartRepo.EXPECT().GetByUserID(gomock.Any(), userID).Return(&domain.Cart{
		Items: []domain.CartItem{{ProductID: productID, Quantity: 1}},
	}, nil)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.productRepo.EXPECT().TryDecrementStock(gomock.Any(), tx, productID, 1).
		Return(reservation(productID, "lamp", 10, uuid.New(), 3), true, nil)
	d.orderRepo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).Return(nil)
	d.cartRepo.EXPECT().RemoveOrdered(gomock.Any(), tx, userID, gomock.Any()).Return(nil)

	order, err := d.svc.PlaceOrder(context.Background(), ports.PlaceOrderRequest{UserID: userID})
	assert.Nil(t, order)
	assertAppError(t, err, "TXN_001")
	assert.True(t, tx.rolledBack)
}

func TestOrderService_PlaceOrder_BadQuantity(t *testing.T) {
	d := setupOrderService(t)
	userID := uuid.New()
	d.cartRepo.EXPECT().GetByUserID(gomock.Any(), userID).Return(&domain.Cart{
		Items: []domain.CartItem{{ProductID: uuid.New(), Quantity: 0}},
	}, nil)

	_, err := d.svc.PlaceOrder(context.Background(), ports.PlaceOrderRequest{UserID: userID})
	assertAppError(t, err, "VAL_001")
}

// ==================== Idempotency Tests ====================

func TestOrderService_PlaceOrder_IdempotentReplay(t *testing.T) {
	d := setupOrderService(t)
	userID := uuid.New()
	existing := &domain.Order{ID: uuid.New(), UserID: userID, TrackingNumber: "TRK-01"}
	receipt, _ := json.Marshal(domain.OrderReceipt{OrderID: existing.ID, TrackingNumber: "TRK-01"})

	key := domain.BuildIdempotencyKey(userID, "checkout-1")
	d.idempCache.EXPECT().Claim(gomock.Any(), key, pendingReceipt, idempotencyClaimTTL).Return(false, nil)
	d.idempCache.EXPECT().Get(gomock.Any(), key).Return(receipt, nil)
	d.orderRepo.EXPECT().GetByID(gomock.Any(), existing.ID).Return(existing, nil)

	order, err := d.svc.PlaceOrder(context.Background(), ports.PlaceOrderRequest{
		UserID: userID, IdempotencyKey: "checkout-1",
	})
	require.NoError(t, err)
	assert.Same(t, existing, order)
}

func TestOrderService_PlaceOrder_DuplicateInFlight(t *testing.T) {
	tests := []struct {
		name   string
		cached []byte
	}{
		{"still pending", pendingReceipt},
		{"claim expired between calls", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupOrderService(t)
			userID := uuid.New()
			key := domain.BuildIdempotencyKey(userID, "checkout-3")

			d.idempCache.EXPECT().Claim(gomock.Any(), key, pendingReceipt, idempotencyClaimTTL).Return(false, nil)
			d.idempCache.EXPECT().Get(gomock.Any(), key).Return(tt.cached, nil)
			// the cart is never read and the other request's claim is left alone

			order, err := d.svc.PlaceOrder(context.Background(), ports.PlaceOrderRequest{
				UserID: userID, IdempotencyKey: "checkout-3",
			})
			assert.Nil(t, order)
			assertAppError(t, err, "CON_004")
		})
	}
}

func TestOrderService_PlaceOrder_ConcurrentSameKeyPlacesOnce(t *testing.T) {
	d := setupOrderService(t)
	userID, productID := uuid.New(), uuid.New()
	key := domain.BuildIdempotencyKey(userID, "checkout-4")

	var claims atomic.Int32
	d.idempCache.EXPECT().Claim(gomock.Any(), key, pendingReceipt, idempotencyClaimTTL).
		DoAndReturn(func(context.Context, string, []byte, time.Duration) (bool, error) {
			return claims.Add(1) == 1, nil
		}).Times(2)
	d.idempCache.EXPECT().Get(gomock.Any(), key).Return(pendingReceipt, nil).MaxTimes(1)

	tx := &mockTx{}
	d.cartRepo.EXPECT().GetByUserID(gomock.Any(), userID).Return(&domain.Cart{
		Items: []domain.CartItem{{ProductID: productID, Quantity: 1}},
	}, nil).Times(1)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil).Times(1)
	d.productRepo.EXPECT().TryDecrementStock(gomock.Any(), tx, productID, 1).
		Return(reservation(productID, "lamp", 400, uuid.New(), 0), true, nil)
	d.orderRepo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).Return(nil)
	d.cartRepo.EXPECT().RemoveOrdered(gomock.Any(), tx, userID, gomock.Any()).Return(nil)
	d.notifications.EXPECT().Enqueue(gomock.Any()).Times(2)
	d.idempCache.EXPECT().Set(gomock.Any(), key, gomock.Any(), idempotencyTTL).Return(nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = d.svc.PlaceOrder(context.Background(), ports.PlaceOrderRequest{
				UserID: userID, IdempotencyKey: "checkout-4",
			})
		}()
	}
	wg.Wait()

	var placed, rejected int
	for _, err := range errs {
		if err == nil {
			placed++
			continue
		}
		assertAppError(t, err, "CON_004")
		rejected++
	}
	assert.Equal(t, 1, placed)
	assert.Equal(t, 1, rejected)
}

func TestOrderService_PlaceOrder_FailureReleasesClaim(t *testing.T) {
	d := setupOrderService(t)
	userID := uuid.New()
	key := domain.BuildIdempotencyKey(userID, "checkout-5")

	d.idempCache.EXPECT().Claim(gomock.Any(), key, pendingReceipt, idempotencyClaimTTL).Return(true, nil)
	d.cartRepo.EXPECT().GetByUserID(gomock.Any(), userID).Return(&domain.Cart{}, nil)
	d.idempCache.EXPECT().Release(gomock.Any(), key).Return(nil)

	_, err := d.svc.PlaceOrder(context.Background(), ports.PlaceOrderRequest{
		UserID: userID, IdempotencyKey: "checkout-5",
	})
	assertAppError(t, err, "PRE_001")
}

func TestOrderService_PlaceOrder_ReclaimsDanglingReceipt(t *testing.T) {
	d := setupOrderService(t)
	userID, productID := uuid.New(), uuid.New()
	key := domain.BuildIdempotencyKey(userID, "checkout-6")
	tx := &mockTx{}
	dangling, _ := json.Marshal(domain.OrderReceipt{OrderID: uuid.New()})

	gomock.InOrder(
		d.idempCache.EXPECT().Claim(gomock.Any(), key, pendingReceipt, idempotencyClaimTTL).Return(false, nil),
		d.idempCache.EXPECT().Get(gomock.Any(), key).Return(dangling, nil),
		d.idempCache.EXPECT().Set(gomock.Any(), key, pendingReceipt, idempotencyClaimTTL).Return(nil),
		d.idempCache.EXPECT().Set(gomock.Any(), key, gomock.Any(), idempotencyTTL).Return(nil),
	)
	d.orderRepo.EXPECT().GetByID(gomock.Any(), gomock.Any()).Return(nil, nil)
	d.cartRepo.EXPECT().GetByUserID(gomock.Any(), userID).Return(&domain.Cart{
		Items: []domain.CartItem{{ProductID: productID, Quantity: 1}},
	}, nil)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.productRepo.EXPECT().TryDecrementStock(gomock.Any(), tx, productID, 1).
		Return(reservation(productID, "lamp", 400, uuid.New(), 0), true, nil)
	d.orderRepo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).Return(nil)
	d.cartRepo.EXPECT().RemoveOrdered(gomock.Any(), tx, userID, gomock.Any()).Return(nil)
	d.notifications.EXPECT().Enqueue(gomock.Any()).Times(2)

	order, err := d.svc.PlaceOrder(context.Background(), ports.PlaceOrderRequest{
		UserID: userID, IdempotencyKey: "checkout-6",
	})
	require.NoError(t, err)
	assert.NotNil(t, order)
}

func TestOrderService_PlaceOrder_CachesReceipt(t *testing.T) {
	d := setupOrderService(t)
	userID, productID := uuid.New(), uuid.New()
	tx := &mockTx{}
	key := domain.BuildIdempotencyKey(userID, "checkout-2")

	// redis outage degrades to unprotected placement
	d.idempCache.EXPECT().Claim(gomock.Any(), key, pendingReceipt, idempotencyClaimTTL).Return(false, errors.New("redis down"))
	d.cartRepo.EXPECT().GetByUserID(gomock.Any(), userID).Return(&domain.Cart{
		Items: []domain.CartItem{{ProductID: productID, Quantity: 1}},
	}, nil)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.productRepo.EXPECT().TryDecrementStock(gomock.Any(), tx, productID, 1).
		Return(reservation(productID, "lamp", 400, uuid.New(), 0), true, nil)
	d.orderRepo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).Return(nil)
	d.cartRepo.EXPECT().RemoveOrdered(gomock.Any(), tx, userID, gomock.Any()).Return(nil)
	d.notifications.EXPECT().Enqueue(gomock.Any()).Times(2)

	var cached []byte
	d.idempCache.EXPECT().Set(gomock.Any(), key, gomock.Any(), idempotencyTTL).DoAndReturn(
		func(_ context.Context, _ string, v []byte, _ time.Duration) error {
			cached = v
			return nil
		})

	order, err := d.svc.PlaceOrder(context.Background(), ports.PlaceOrderRequest{
		UserID: userID, IdempotencyKey: "checkout-2",
	})
	require.NoError(t, err)

	var receipt domain.OrderReceipt
	require.NoError(t, json.Unmarshal(cached, &receipt))
	assert.Equal(t, order.ID, receipt.OrderID)
	assert.Equal(t, order.TrackingNumber, receipt.TrackingNumber)
	assert.Equal(t, "50", order.ShippingFee.String())
}

// ==================== Read Tests ====================

func TestOrderService_ListOrders(t *testing.T) {
	d := setupOrderService(t)
	userID := uuid.New()
	d.orderRepo.EXPECT().ListByUser(gomock.Any(), userID).Return(nil, nil)

	orders, err := d.svc.ListOrders(context.Background(), userID)
	require.NoError(t, err)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)
}

func TestOrderService_GetOrder(t *testing.T) {
	d := setupOrderService(t)
	owner, orderID := uuid.New(), uuid.New()
	d.orderRepo.EXPECT().GetByID(gomock.Any(), orderID).Return(&domain.Order{ID: orderID, UserID: owner}, nil).Times(2)

	order, err := d.svc.GetOrder(context.Background(), owner, orderID)
	require.NoError(t, err)
	assert.Equal(t, orderID, order.ID)

	_, err = d.svc.GetOrder(context.Background(), uuid.New(), orderID)
	assertAppError(t, err, "VAL_404")
}
