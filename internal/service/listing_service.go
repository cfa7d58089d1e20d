package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
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

// ListingServiceImpl implements ports.ListingService. Every listing by a
// non-house seller is charged a flat fee for the embedding it needs.
type ListingServiceImpl struct {
	sellerRepo  ports.SellerRepository
	productRepo ports.ProductRepository
	ledgerRepo  ports.LedgerRepository
	billingRepo ports.BillingRepository
	transactor  ports.DBTransactor
	media       ports.MediaStorage
	embedder    ports.EmbeddingGenerator
	fee         decimal.Decimal
	now         func() time.Time
	log         zerolog.Logger
}

// NewListingService creates a new ListingServiceImpl.
func NewListingService(
	sellerRepo ports.SellerRepository,
	productRepo ports.ProductRepository,
	ledgerRepo ports.LedgerRepository,
	billingRepo ports.BillingRepository,
	transactor ports.DBTransactor,
	media ports.MediaStorage,
	embedder ports.EmbeddingGenerator,
	fee decimal.Decimal,
	log zerolog.Logger,
) *ListingServiceImpl {
	return &ListingServiceImpl{
		sellerRepo:  sellerRepo,
		productRepo: productRepo,
		ledgerRepo:  ledgerRepo,
		billingRepo: billingRepo,
		transactor:  transactor,
		media:       media,
		embedder:    embedder,
		fee:         fee,
		now:         func() time.Time { return time.Now().UTC() },
		log:         log,
	}
}

// CreateListing validates the upload, checks funds, stores media, embeds the
// product text and then debits, ledgers and persists in one transaction.
// Media stored before a later failure is left in place.
func (s *ListingServiceImpl) CreateListing(ctx context.Context, req ports.CreateListingRequest) (product *domain.Product, err error) {
	ctx, span := tracer.Start(ctx, "ListingService.CreateListing")
	span.SetAttributes(attribute.String("user.id", req.UserID.String()))
	defer func() { endSpan(span, err) }()

	if err := validateDraft(req.Product); err != nil {
		return nil, err
	}
	if err := domain.ValidateMedia(req.Media); err != nil {
		return nil, apperror.ErrInvalidMedia(err.Error())
	}

	seller, err := s.sellerRepo.GetByUserID(ctx, req.UserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load seller: %w", err))
	}
	if seller == nil {
		return nil, apperror.ErrSellerNotOnboarded()
	}

	cost := seller.ListingCost(s.fee)
	if !seller.CanAfford(cost) {
		s.log.Info().
			Str("seller_id", seller.ID.String()).
			Str("balance", seller.WalletBalance.String()).
			Str("cost", cost.String()).
			Msg("listing rejected: insufficient funds")
		return nil, apperror.ErrInsufficientFunds()
	}

	now := s.now()
	product = &domain.Product{
		ID:          uuid.New(),
		SellerID:    seller.ID,
		Name:        strings.TrimSpace(req.Product.Name),
		Description: req.Product.Description,
		Category:    req.Product.Category,
		Brand:       req.Product.Brand,
		Tags:        req.Product.Tags,
		Price:       req.Product.Price,
		Stock:       req.Product.Stock,
		Status:      domain.ProductStatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	hint := "products/" + seller.ID.String()
	for _, f := range req.Media {
		stored, err := s.media.Store(ctx, f.Data, hint, f.Filename)
		if err != nil {
			return nil, apperror.ErrMediaStorageFailed(fmt.Errorf("store %s: %w", f.Filename, err))
		}
		product.Images = append(product.Images, stored.URL)
	}

	vec, err := s.embedder.Embed(ctx, product.EmbeddingText())
	if err != nil {
		return nil, apperror.ErrEmbeddingFailed(err)
	}
	if len(vec) == 0 {
		return nil, apperror.ErrEmbeddingFailed(errors.New("empty embedding vector"))
	}
	product.Embedding = vec

	err = withinTx(ctx, s.transactor, func(tx pgx.Tx) error {
		if cost.IsPositive() {
			if err := s.charge(ctx, tx, seller.ID, cost, product.ID, now); err != nil {
				return err
			}
		}
		if err := s.productRepo.Create(ctx, tx, product); err != nil {
			return apperror.ErrTransaction(fmt.Errorf("create product: %w", err))
		}
		rec := &domain.BillingRecord{
			ID:         uuid.New(),
			SellerID:   seller.ID,
			Operation:  domain.BillingOperationListing,
			Status:     domain.BillingStatusSuccess,
			Cost:       cost,
			ResourceID: &product.ID,
			CreatedAt:  now,
		}
		if err := s.billingRepo.Create(ctx, tx, rec); err != nil {
			return apperror.ErrTransaction(fmt.Errorf("create billing record: %w", err))
		}
		return nil
	})
	if err != nil {
		s.recordFailure(ctx, seller.ID, cost, err)
		if len(product.Images) > 0 {
			s.log.Warn().
				Strs("images", product.Images).
				Str("seller_id", seller.ID.String()).
				Msg("listing aborted, stored media left orphaned")
		}
		return nil, asAppError(err)
	}

	span.SetAttributes(attribute.String("product.id", product.ID.String()))
	s.log.Info().
		Str("product_id", product.ID.String()).
		Str("seller_id", seller.ID.String()).
		Str("cost", cost.String()).
		Int("images", len(product.Images)).
		Msg("listing created")

	return product, nil
}

// charge debits the wallet with the store's conditional update and writes
// the matching ledger entry.
func (s *ListingServiceImpl) charge(ctx context.Context, tx pgx.Tx, sellerID uuid.UUID, cost decimal.Decimal, productID uuid.UUID, now time.Time) error {
	balance, ok, err := s.sellerRepo.TryDebit(ctx, tx, sellerID, cost)
	if err != nil {
		return apperror.ErrTransaction(fmt.Errorf("debit wallet: %w", err))
	}
	if !ok {
		if current, err := s.sellerRepo.GetByIDTx(ctx, tx, sellerID); err == nil && current != nil {
			s.log.Info().
				Str("seller_id", sellerID.String()).
				Str("balance", current.WalletBalance.String()).
				Str("cost", cost.String()).
				Msg("listing rejected: balance changed before debit")
		}
		return apperror.ErrInsufficientFunds()
	}

	entry := &domain.LedgerEntry{
		ID:           uuid.New(),
		SellerID:     sellerID,
		Type:         domain.LedgerEntryDebit,
		Amount:       cost,
		Reason:       domain.LedgerReasonEmbeddingCharge,
		ReferenceID:  productID.String(),
		BalanceAfter: balance,
		CreatedAt:    now,
	}
	if err := s.ledgerRepo.Append(ctx, tx, entry); err != nil {
		return apperror.ErrTransaction(fmt.Errorf("append ledger entry: %w", err))
	}
	return nil
}

// recordFailure writes a FAILED billing record outside the aborted
// transaction. It is best-effort.
func (s *ListingServiceImpl) recordFailure(ctx context.Context, sellerID uuid.UUID, cost decimal.Decimal, cause error) {
	reason := cause.Error()
	var appErr *apperror.AppError
	if errors.As(cause, &appErr) {
		reason = appErr.Code + ": " + appErr.Message
	}
	rec := &domain.BillingRecord{
		ID:            uuid.New(),
		SellerID:      sellerID,
		Operation:     domain.BillingOperationListing,
		Status:        domain.BillingStatusFailed,
		Cost:          cost,
		FailureReason: reason,
		CreatedAt:     s.now(),
	}
	if err := s.billingRepo.CreateDetached(context.WithoutCancel(ctx), rec); err != nil {
		s.log.Warn().Err(err).Str("seller_id", sellerID.String()).Msg("failed to record failed billing")
	}
}

func validateDraft(d ports.ListingDraft) error {
	switch {
	case strings.TrimSpace(d.Name) == "":
		return apperror.Validation("product name is required")
	case !d.Price.IsPositive():
		return apperror.Validation("product price must be positive")
	case d.Stock < 0:
		return apperror.Validation("product stock cannot be negative")
	}
	return nil
}
