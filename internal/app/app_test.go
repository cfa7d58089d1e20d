package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"storefront/config"
	"storefront/internal/app"
	"storefront/internal/core/domain"
	"storefront/internal/core/ports"
	"storefront/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const addressBody = `{"shippingAddress":{"fullName":"Asha Rao","line1":"12 MG Road","city":"Bengaluru","state":"KA","postalCode":"560001","country":"IN","phone":"+919800000000"},"paymentMethod":"COD"}`

type stubEmbedder struct{}

func (stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{0.12, -0.4, 0.9}, nil
}

// failingOrders makes order creation fail after stock was already reserved.
type failingOrders struct {
	ports.OrderRepository
	fail atomic.Bool
}

func (f *failingOrders) Create(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	if f.fail.Load() {
		return errors.New("disk full")
	}
	return f.OrderRepository.Create(ctx, tx, o)
}

type testApp struct {
	t      *testing.T
	c      *app.Container
	redis  *goredis.Client
	orders *failingOrders
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		JWT:      config.JWTConfig{Secret: "test-secret-0123456789abcdef", Issuer: "storefront-test"},
		Storage:  config.StorageConfig{Driver: app.DriverMemory},
		Notifier: config.NotifierConfig{Driver: app.NotifierRedis, Workers: 2, QueueSize: 256, MaxAttempts: 2, RetryBackoff: 10 * time.Millisecond},
		Media:    config.MediaConfig{RootDir: t.TempDir(), PublicBaseURL: "/media"},
		Billing:  config.BillingConfig{ListingFee: "5.00"},
		Order:    config.OrderConfig{EstimatedDelivery: 120 * time.Hour},
	}

	orders := &failingOrders{}
	c, err := app.NewContainer(context.Background(), cfg, logger.New("error", false),
		app.WithRedisClient(rdb),
		app.WithEmbedder(stubEmbedder{}),
		app.WithOrderRepository(func(inner ports.OrderRepository) ports.OrderRepository {
			orders.OrderRepository = inner
			return orders
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, c.Shutdown(ctx))
	})
	require.NotNil(t, c.Memory)

	return &testApp{t: t, c: c, redis: rdb, orders: orders}
}

func (a *testApp) token(userID uuid.UUID, caps ...string) string {
	tok, err := a.c.Authorizer.Issue(domain.Identity{UserID: userID, Role: "test", Capabilities: caps}, time.Hour)
	require.NoError(a.t, err)
	return tok
}

func (a *testApp) do(req *http.Request, token string) (*httptest.ResponseRecorder, map[string]any) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.c.Router.ServeHTTP(w, req)

	var body map[string]any
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	}
	return w, body
}

func (a *testApp) placeOrder(token, idemKey string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewBufferString(addressBody))
	req.Header.Set("Content-Type", "application/json")
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}
	return a.do(req, token)
}

func (a *testApp) seedProduct(price string, stock int) *domain.Product {
	p := &domain.Product{
		ID:       uuid.New(),
		SellerID: uuid.New(),
		Name:     gofakeit.ProductName(),
		Category: "Home",
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		Status:   domain.ProductStatusActive,
		Images:   []string{"/media/p.jpg"},
	}
	a.c.Memory.PutProduct(p)
	return p
}

func (a *testApp) seedSeller(balance string) *domain.Seller {
	s := &domain.Seller{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		StoreName:     gofakeit.Company(),
		WalletBalance: decimal.RequireFromString(balance),
	}
	a.c.Memory.PutSeller(s)
	return s
}

func (a *testApp) addToCart(userID uuid.UUID, productID uuid.UUID, qty int) {
	require.NoError(a.t, a.c.Repos.Carts.AddItem(context.Background(), userID, domain.CartItem{ProductID: productID, Quantity: qty}))
}

func (a *testApp) product(id uuid.UUID) *domain.Product {
	p, err := a.c.Repos.Products.GetByID(context.Background(), id)
	require.NoError(a.t, err)
	require.NotNil(a.t, p)
	return p
}

func (a *testApp) createListing(token string) (*httptest.ResponseRecorder, map[string]any) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(a.t, mw.WriteField("product",
		`{"name":"Desk Lamp","description":"Warm light","category":"Home","price":"49.99","stock":10}`))
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="images"; filename="front.png"`)
	hdr.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(hdr)
	require.NoError(a.t, err)
	_, _ = part.Write([]byte("\x89PNG fake"))
	require.NoError(a.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return a.do(req, token)
}

func (a *testApp) wallet(token string) map[string]any {
	w, body := a.do(httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil), token)
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	return body["wallet"].(map[string]any)
}

func dec(t *testing.T, v any) decimal.Decimal {
	t.Helper()
	s, ok := v.(string)
	require.True(t, ok, "expected decimal string, got %T", v)
	return decimal.RequireFromString(s)
}

// --- Order placement ---

func TestPlaceOrder_ConcurrentBuyersNeverOversell(t *testing.T) {
	a := newTestApp(t)
	const stock, buyers = 5, 20
	p := a.seedProduct("400", stock)

	tokens := make([]string, buyers)
	for i := range tokens {
		userID := uuid.New()
		a.addToCart(userID, p.ID, 1)
		tokens[i] = a.token(userID, domain.CapOrderCreate)
	}

	var created, conflicts atomic.Int32
	var wg sync.WaitGroup
	for _, tok := range tokens {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w, body := a.placeOrder(tok, "")
			switch w.Code {
			case http.StatusCreated:
				created.Add(1)
			case http.StatusConflict:
				assert.Equal(t, "CON_001", body["error_code"])
				conflicts.Add(1)
			default:
				t.Errorf("unexpected status %d: %s", w.Code, w.Body.String())
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, stock, created.Load())
	assert.EqualValues(t, buyers-stock, conflicts.Load())

	final := a.product(p.ID)
	assert.Equal(t, 0, final.Stock)
	assert.Equal(t, domain.ProductStatusOutOfStock, final.Status)
}

func TestPlaceOrder_FailureAfterReservationRollsBackEverything(t *testing.T) {
	a := newTestApp(t)
	lamp := a.seedProduct("400", 3)
	desk := a.seedProduct("99", 2)
	userID := uuid.New()
	a.addToCart(userID, lamp.ID, 2)
	a.addToCart(userID, desk.ID, 1)
	tok := a.token(userID, domain.CapOrderCreate, domain.CapOrderRead)

	a.orders.fail.Store(true)
	w, body := a.placeOrder(tok, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, false, body["success"])
	assert.NotContains(t, body["message"], "disk full")

	assert.Equal(t, 3, a.product(lamp.ID).Stock)
	assert.Equal(t, 2, a.product(desk.ID).Stock)
	cart, err := a.c.Repos.Carts.GetByUserID(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)

	_, list := a.do(httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil), tok)
	assert.Empty(t, list["orders"])

	a.orders.fail.Store(false)
	w, _ = a.placeOrder(tok, "")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, a.product(lamp.ID).Stock)
	assert.Equal(t, 1, a.product(desk.ID).Stock)
}

func TestPlaceOrder_PriceIsSnapshotted(t *testing.T) {
	a := newTestApp(t)
	p := a.seedProduct("400", 10)
	userID := uuid.New()
	a.addToCart(userID, p.ID, 2)
	tok := a.token(userID, domain.CapOrderCreate, domain.CapOrderRead)

	w, body := a.placeOrder(tok, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	orderID := body["orderId"].(string)

	require.NoError(t, a.c.Repos.Products.UpdatePrice(context.Background(), p.ID, decimal.RequireFromString("999")))

	w, body = a.do(httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID, nil), tok)
	require.Equal(t, http.StatusOK, w.Code)
	order := body["order"].(map[string]any)
	item := order["items"].([]any)[0].(map[string]any)
	assert.True(t, decimal.NewFromInt(400).Equal(dec(t, item["price_at_purchase"])))
	assert.True(t, decimal.NewFromInt(800).Equal(dec(t, order["subtotal"])))
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	a := newTestApp(t)
	tok := a.token(uuid.New(), domain.CapOrderCreate)

	w, body := a.placeOrder(tok, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "PRE_001", body["error_code"])
}

func TestPlaceOrder_RequiresCapability(t *testing.T) {
	a := newTestApp(t)
	tok := a.token(uuid.New(), domain.CapOrderRead)

	w, body := a.placeOrder(tok, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "AUTH_002", body["error_code"])

	w, _ = a.placeOrder("", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPlaceOrder_IdempotentReplay(t *testing.T) {
	a := newTestApp(t)
	p := a.seedProduct("120", 4)
	userID := uuid.New()
	a.addToCart(userID, p.ID, 1)
	tok := a.token(userID, domain.CapOrderCreate)

	w1, first := a.placeOrder(tok, "checkout-42")
	require.Equal(t, http.StatusCreated, w1.Code, w1.Body.String())
	w2, second := a.placeOrder(tok, "checkout-42")
	require.Equal(t, http.StatusCreated, w2.Code, w2.Body.String())

	assert.Equal(t, first["orderId"], second["orderId"])
	assert.Equal(t, first["trackingNumber"], second["trackingNumber"])
	assert.Equal(t, 3, a.product(p.ID).Stock)
}

func TestPlaceOrder_ConcurrentSameKeyPlacesOnce(t *testing.T) {
	a := newTestApp(t)
	p := a.seedProduct("120", 10)
	userID := uuid.New()
	a.addToCart(userID, p.ID, 1)
	tok := a.token(userID, domain.CapOrderCreate, domain.CapOrderRead)

	const attempts = 8
	var mu sync.Mutex
	orderIDs := map[any]int{}
	var wg sync.WaitGroup
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w, body := a.placeOrder(tok, "checkout-dup")
			switch w.Code {
			case http.StatusCreated:
				mu.Lock()
				orderIDs[body["orderId"]]++
				mu.Unlock()
			case http.StatusConflict:
				assert.Equal(t, "CON_004", body["error_code"])
			default:
				t.Errorf("unexpected status %d: %s", w.Code, w.Body.String())
			}
		}()
	}
	wg.Wait()

	assert.Len(t, orderIDs, 1, "every success must be the same order")
	assert.Equal(t, 9, a.product(p.ID).Stock)
	_, list := a.do(httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil), tok)
	assert.Len(t, list["orders"], 1)
}

func TestPlaceOrder_FailedAttemptFreesIdempotencyKey(t *testing.T) {
	a := newTestApp(t)
	p := a.seedProduct("120", 4)
	userID := uuid.New()
	a.addToCart(userID, p.ID, 1)
	tok := a.token(userID, domain.CapOrderCreate)

	a.orders.fail.Store(true)
	w, _ := a.placeOrder(tok, "checkout-retry")
	require.Equal(t, http.StatusInternalServerError, w.Code)

	a.orders.fail.Store(false)
	w, _ = a.placeOrder(tok, "checkout-retry")
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 3, a.product(p.ID).Stock)
}

func TestPlaceOrder_NotifiesBuyerAndAudits(t *testing.T) {
	a := newTestApp(t)
	p := a.seedProduct("250", 2)
	userID := uuid.New()
	a.addToCart(userID, p.ID, 1)
	tok := a.token(userID, domain.CapOrderCreate)

	sub := a.redis.Subscribe(context.Background(), domain.UserChannel(userID))
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(context.Background())
	require.NoError(t, err)

	w, body := a.placeOrder(tok, "")
	require.Equal(t, http.StatusCreated, w.Code)

	select {
	case msg := <-sub.Channel():
		assert.Contains(t, msg.Payload, domain.EventOrderPlaced)
		assert.Contains(t, msg.Payload, body["orderId"].(string))
	case <-time.After(2 * time.Second):
		t.Fatal("no order:placed notification")
	}

	assert.Eventually(t, func() bool {
		for _, l := range a.c.Memory.AuditLogs() {
			if l.Action == domain.AuditActionOrderPlaced && l.ResourceID == body["orderId"] {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

// --- Order lifecycle ---

func TestOrderLifecycle_OverHTTP(t *testing.T) {
	a := newTestApp(t)
	p := a.seedProduct("300", 5)
	userID := uuid.New()
	a.addToCart(userID, p.ID, 1)
	buyer := a.token(userID, domain.CapOrderCreate, domain.CapOrderRead)
	ops := a.token(uuid.New(), domain.CapOrderUpdate)

	_, placed := a.placeOrder(buyer, "")
	orderID := placed["orderId"].(string)

	patch := func(status string) (*httptest.ResponseRecorder, map[string]any) {
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/orders/"+orderID+"/status",
			bytes.NewBufferString(`{"status":"`+status+`"}`))
		req.Header.Set("Content-Type", "application/json")
		return a.do(req, ops)
	}

	w, _ := patch("SHIPPED")
	assert.Equal(t, http.StatusConflict, w.Code)

	for _, status := range []string{"PAID", "SHIPPED", "DELIVERED"} {
		w, body := patch(status)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, status, body["order"].(map[string]any)["status"])
	}

	w, body := patch("CANCELLED")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "PRE_004", body["error_code"])

	_, got := a.do(httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID, nil), buyer)
	order := got["order"].(map[string]any)
	assert.Len(t, order["status_history"], 4)
	assert.Equal(t, "PAID", order["payment_status"])
}

// --- Metered listing ---

func TestCreateListing_BalanceBelowFeeIsRejected(t *testing.T) {
	a := newTestApp(t)
	seller := a.seedSeller("4.00")
	tok := a.token(seller.UserID, domain.CapAddProduct, domain.CapWalletRead)

	w, body := a.createListing(tok)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, "CON_002", body["error_code"])

	wallet := a.wallet(tok)
	assert.True(t, decimal.RequireFromString("4.00").Equal(dec(t, wallet["balance"])))
	assert.Empty(t, wallet["ledger"])
}

func TestCreateListing_ConcurrentChargesNeverOverdraw(t *testing.T) {
	a := newTestApp(t)
	seller := a.seedSeller("12.00")
	tok := a.token(seller.UserID, domain.CapAddProduct, domain.CapWalletRead)

	var created atomic.Int32
	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w, _ := a.createListing(tok)
			switch w.Code {
			case http.StatusCreated:
				created.Add(1)
			case http.StatusPaymentRequired:
			default:
				t.Errorf("unexpected status %d: %s", w.Code, w.Body.String())
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 2, created.Load())
	wallet := a.wallet(tok)
	balance := dec(t, wallet["balance"])
	assert.True(t, decimal.RequireFromString("2.00").Equal(balance), "balance %s", balance)
	assert.Len(t, wallet["ledger"], 2)
}

func TestWallet_LedgerReconcilesWithBalance(t *testing.T) {
	a := newTestApp(t)
	seller := a.seedSeller("3.00")
	tok := a.token(seller.UserID, domain.CapAddProduct, domain.CapWalletRead, domain.CapWalletTopup)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/wallet/topup",
		bytes.NewBufferString(`{"amount":"10.00","reference":"bank-1"}`))
	req.Header.Set("Content-Type", "application/json")
	w, _ := a.do(req, tok)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	for range 2 {
		w, body := a.createListing(tok)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, "DRAFT", body["product"].(map[string]any)["status"])
	}

	wallet := a.wallet(tok)
	balance := dec(t, wallet["balance"])
	running := decimal.RequireFromString("3.00")
	for _, raw := range wallet["ledger"].([]any) {
		e := raw.(map[string]any)
		amount := dec(t, e["amount"])
		if e["type"] == "DEBIT" {
			running = running.Sub(amount)
		} else {
			running = running.Add(amount)
		}
		assert.True(t, running.Equal(dec(t, e["balance_after"])), "balance_after drift at %v", e["reason"])
	}
	assert.True(t, running.Equal(balance), "ledger %s != balance %s", running, balance)
	assert.True(t, decimal.RequireFromString("3.00").Equal(balance))
	assert.Len(t, wallet["billing"], 2)
}

func TestCreateListing_UnknownSeller(t *testing.T) {
	a := newTestApp(t)
	tok := a.token(uuid.New(), domain.CapAddProduct)

	w, body := a.createListing(tok)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "PRE_003", body["error_code"])
}

// --- Wiring ---

func TestHealth(t *testing.T) {
	a := newTestApp(t)

	w, body := a.do(httptest.NewRequest(http.MethodGet, "/health", nil), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
	deps := body["dependencies"].(map[string]any)
	assert.Contains(t, deps, "memory")
	assert.Contains(t, deps, "redis")
}

func TestNewContainer_RejectsBadConfig(t *testing.T) {
	base := func() *config.Config {
		return &config.Config{
			JWT:      config.JWTConfig{Secret: "s"},
			Storage:  config.StorageConfig{Driver: app.DriverMemory},
			Notifier: config.NotifierConfig{Driver: app.NotifierLog, Workers: 1, QueueSize: 1, MaxAttempts: 1},
			Media:    config.MediaConfig{RootDir: t.TempDir()},
			Billing:  config.BillingConfig{ListingFee: "5.00"},
		}
	}
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	log := logger.New("error", false)

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"missing secret", func(c *config.Config) { c.JWT.Secret = "" }, "jwt.secret"},
		{"bad fee", func(c *config.Config) { c.Billing.ListingFee = "five" }, "listing_fee"},
		{"unknown storage", func(c *config.Config) { c.Storage.Driver = "mongo" }, "storage.driver"},
		{"unknown notifier", func(c *config.Config) { c.Notifier.Driver = "smtp" }, "notifier.driver"},
		{"kafka without topic", func(c *config.Config) { c.Notifier.Driver = app.NotifierKafka }, "notifier.kafka"},
		{"uncreatable media root", func(c *config.Config) { c.Media.RootDir = blockedDir(t) }, "media store"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			_, err := app.NewContainer(context.Background(), cfg, log, app.WithRedisClient(rdb))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

// blockedDir returns a path whose parent is a regular file.
func blockedDir(t *testing.T) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	return filepath.Join(file, "media")
}

func TestNewContainer_FailureReleasesOwnedRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := &config.Config{
		JWT:      config.JWTConfig{Secret: "s"},
		Storage:  config.StorageConfig{Driver: app.DriverMemory},
		Redis:    config.RedisConfig{Host: mr.Host(), Port: port},
		Notifier: config.NotifierConfig{Driver: app.NotifierRedis, Workers: 2, QueueSize: 4, MaxAttempts: 1},
		Media:    config.MediaConfig{RootDir: blockedDir(t)},
		Billing:  config.BillingConfig{ListingFee: "5.00"},
	}

	c, err := app.NewContainer(context.Background(), cfg, logger.New("error", false))
	require.Error(t, err)
	assert.Nil(t, c)
	assert.Eventually(t, func() bool { return mr.CurrentConnectionCount() == 0 },
		2*time.Second, 10*time.Millisecond, "owned redis client must be closed")
}

func TestNewContainer_UnreachableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	host := mr.Host()
	mr.Close()

	cfg := &config.Config{
		JWT:      config.JWTConfig{Secret: "s"},
		Storage:  config.StorageConfig{Driver: app.DriverMemory},
		Redis:    config.RedisConfig{Host: host, Port: port},
		Notifier: config.NotifierConfig{Driver: app.NotifierLog, Workers: 1, QueueSize: 1, MaxAttempts: 1},
		Media:    config.MediaConfig{RootDir: t.TempDir()},
		Billing:  config.BillingConfig{ListingFee: "5.00"},
	}

	_, err = app.NewContainer(context.Background(), cfg, logger.New("error", false))
	assert.ErrorContains(t, err, "connecting to redis")
}
