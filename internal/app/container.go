// Package app wires configuration, adapters and services into a runnable
// HTTP application.
package app

import (
	"context"
	"errors"
	"fmt"

	"storefront/config"
	"storefront/internal/adapter/embedding"
	httpHandler "storefront/internal/adapter/http/handler"
	"storefront/internal/adapter/media"
	kafkaNotifier "storefront/internal/adapter/messaging/kafka"
	"storefront/internal/adapter/storage/memory"
	pgStorage "storefront/internal/adapter/storage/postgres"
	redisStorage "storefront/internal/adapter/storage/redis"
	"storefront/internal/core/ports"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	NotifierRedis = "redis"
	NotifierKafka = "kafka"
	NotifierLog   = "log"
)

// Repositories are the storage ports selected by storage.driver.
type Repositories struct {
	Products   ports.ProductRepository
	Carts      ports.CartRepository
	Orders     ports.OrderRepository
	Sellers    ports.SellerRepository
	Ledger     ports.LedgerRepository
	Billing    ports.BillingRepository
	Audit      ports.AuditRepository
	Transactor ports.DBTransactor
}

// Container holds the wired application and the resources it owns.
type Container struct {
	Router     *gin.Engine
	Repos      Repositories
	Memory     *memory.Store // set only with the memory driver
	Authorizer *service.JWTAuthorizer
	Dispatcher *service.NotificationDispatcher

	log     zerolog.Logger
	closers []namedCloser
}

type namedCloser struct {
	name  string
	close func(context.Context) error
}

// Option overrides a collaborator the container would otherwise build from
// configuration.
type Option func(*options)

type options struct {
	redis      *goredis.Client
	embedder   ports.EmbeddingGenerator
	media      ports.MediaStorage
	notifier   ports.Notifier
	wrapOrders func(ports.OrderRepository) ports.OrderRepository
}

// WithRedisClient uses an existing client. The caller keeps ownership.
func WithRedisClient(c *goredis.Client) Option {
	return func(o *options) { o.redis = c }
}

// WithEmbedder replaces the HTTP embedding client.
func WithEmbedder(e ports.EmbeddingGenerator) Option {
	return func(o *options) { o.embedder = e }
}

// WithMediaStorage replaces the filesystem media store.
func WithMediaStorage(m ports.MediaStorage) Option {
	return func(o *options) { o.media = m }
}

// WithNotifier replaces the notifier selected by notifier.driver.
func WithNotifier(n ports.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithOrderRepository decorates the order repository.
func WithOrderRepository(wrap func(ports.OrderRepository) ports.OrderRepository) Option {
	return func(o *options) { o.wrapOrders = wrap }
}

// NewContainer builds every adapter and service. On error, anything already
// opened is closed again.
func NewContainer(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts ...Option) (_ *Container, err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.JWT.Secret == "" {
		return nil, errors.New("jwt.secret is required")
	}
	fee, err := cfg.Billing.Fee()
	if err != nil {
		return nil, err
	}

	// the deferred cleanup needs c even after a `return nil, err`
	c := &Container{log: log}
	defer func() {
		if err != nil {
			_ = c.Shutdown(context.WithoutCancel(ctx))
		}
	}()

	storageHealth, err := c.setupStorage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if o.wrapOrders != nil {
		c.Repos.Orders = o.wrapOrders(c.Repos.Orders)
	}

	rdb := o.redis
	if rdb == nil {
		rdb, err = redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		c.onShutdown("redis", func(context.Context) error { return rdb.Close() })
	}

	notifier := o.notifier
	if notifier == nil {
		notifier, err = c.buildNotifier(cfg.Notifier, rdb, log)
		if err != nil {
			return nil, err
		}
	}
	c.Dispatcher = service.NewNotificationDispatcher(notifier, cfg.Notifier, log)
	c.onShutdown("notification dispatcher", c.Dispatcher.Close)

	embedder := o.embedder
	if embedder == nil {
		embedder = embedding.NewClient(cfg.Embedding, nil)
	}
	mediaStore := o.media
	if mediaStore == nil {
		fs, err := media.NewFileStore(cfg.Media)
		if err != nil {
			return nil, fmt.Errorf("creating media store: %w", err)
		}
		mediaStore = fs
	}

	c.Authorizer = service.NewJWTAuthorizer(cfg.JWT.Secret, cfg.JWT.Issuer)
	r := c.Repos

	orderSvc := service.NewOrderService(r.Products, r.Carts, r.Orders, r.Transactor,
		redisStorage.NewIdempotencyCache(rdb), c.Dispatcher, cfg.Order.EstimatedDelivery, log)
	lifecycleSvc := service.NewLifecycleService(r.Orders, r.Transactor, c.Dispatcher, log)
	listingSvc := service.NewListingService(r.Sellers, r.Products, r.Ledger, r.Billing, r.Transactor,
		mediaStore, embedder, fee, log)
	walletSvc := service.NewWalletService(r.Sellers, r.Ledger, r.Billing, r.Transactor, log)

	c.Router = httpHandler.SetupRouter(httpHandler.RouterDeps{
		OrderSvc:       orderSvc,
		LifecycleSvc:   lifecycleSvc,
		ListingSvc:     listingSvc,
		WalletSvc:      walletSvc,
		Authorizer:     c.Authorizer,
		RateLimitStore: redisStorage.NewRateLimitStore(rdb),
		HealthCheckers: []ports.HealthChecker{storageHealth, redisStorage.NewHealthCheck(rdb)},
		AuditSvc:       service.NewAuditService(r.Audit, log),
		Logger:         log,
	})

	log.Info().
		Str("storage", cfg.Storage.Driver).
		Str("notifier", cfg.Notifier.Driver).
		Str("listing_fee", fee.StringFixed(2)).
		Msg("application wired")
	return c, nil
}

func (c *Container) setupStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ports.HealthChecker, error) {
	switch cfg.Storage.Driver {
	case DriverMemory:
		store := memory.NewStore()
		c.Memory = store
		c.Repos = Repositories{
			Products:   memory.NewProductRepo(store),
			Carts:      memory.NewCartRepo(store),
			Orders:     memory.NewOrderRepo(store),
			Sellers:    memory.NewSellerRepo(store),
			Ledger:     memory.NewLedgerRepo(store),
			Billing:    memory.NewBillingRepo(store),
			Audit:      memory.NewAuditRepo(store),
			Transactor: store,
		}
		log.Warn().Msg("using in-memory storage, data is lost on restart")
		return store, nil

	case DriverPostgres:
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		c.onShutdown("postgres", func(context.Context) error {
			pool.Close()
			return nil
		})
		c.Repos = Repositories{
			Products:   pgStorage.NewProductRepo(pool),
			Carts:      pgStorage.NewCartRepo(pool),
			Orders:     pgStorage.NewOrderRepo(pool),
			Sellers:    pgStorage.NewSellerRepo(pool),
			Ledger:     pgStorage.NewLedgerRepo(pool),
			Billing:    pgStorage.NewBillingRepo(pool),
			Audit:      pgStorage.NewAuditRepo(pool),
			Transactor: pgStorage.NewTransactor(pool),
		}
		return pgStorage.NewHealthCheck(pool), nil

	default:
		return nil, fmt.Errorf("unknown storage.driver %q", cfg.Storage.Driver)
	}
}

func (c *Container) buildNotifier(cfg config.NotifierConfig, rdb *goredis.Client, log zerolog.Logger) (ports.Notifier, error) {
	switch cfg.Driver {
	case NotifierRedis:
		return redisStorage.NewPubSubNotifier(rdb), nil
	case NotifierKafka:
		if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.Topic == "" {
			return nil, errors.New("notifier.kafka needs brokers and a topic")
		}
		n := kafkaNotifier.NewNotifier(kafkaNotifier.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		c.onShutdown("kafka writer", func(context.Context) error { return n.Close() })
		return n, nil
	case NotifierLog:
		return service.NewLogNotifier(log), nil
	default:
		return nil, fmt.Errorf("unknown notifier.driver %q", cfg.Driver)
	}
}

// onShutdown registers a resource; Shutdown releases them in reverse order.
func (c *Container) onShutdown(name string, fn func(context.Context) error) {
	c.closers = append(c.closers, namedCloser{name: name, close: fn})
}

// Shutdown drains pending notifications and releases every owned resource.
func (c *Container) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		cl := c.closers[i]
		if err := cl.close(ctx); err != nil {
			c.log.Error().Err(err).Str("resource", cl.name).Msg("shutdown failed")
			errs = append(errs, fmt.Errorf("closing %s: %w", cl.name, err))
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
