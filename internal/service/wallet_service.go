package service

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/core/domain"
	"storefront/internal/core/ports"
	"storefront/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// WalletServiceImpl implements ports.WalletService.
type WalletServiceImpl struct {
	sellerRepo  ports.SellerRepository
	ledgerRepo  ports.LedgerRepository
	billingRepo ports.BillingRepository
	transactor  ports.DBTransactor
	now         func() time.Time
	log         zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	sellerRepo ports.SellerRepository,
	ledgerRepo ports.LedgerRepository,
	billingRepo ports.BillingRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		sellerRepo:  sellerRepo,
		ledgerRepo:  ledgerRepo,
		billingRepo: billingRepo,
		transactor:  transactor,
		now:         func() time.Time { return time.Now().UTC() },
		log:         log,
	}
}

// Topup credits the seller's wallet and appends a CREDIT ledger entry in
// the same transaction.
func (s *WalletServiceImpl) Topup(ctx context.Context, req ports.TopupRequest) (entry *domain.LedgerEntry, err error) {
	ctx, span := tracer.Start(ctx, "WalletService.Topup")
	span.SetAttributes(attribute.String("user.id", req.UserID.String()))
	defer func() { endSpan(span, err) }()

	if !req.Amount.IsPositive() {
		return nil, apperror.Validation("top-up amount must be positive")
	}

	seller, err := s.sellerRepo.GetByUserID(ctx, req.UserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load seller: %w", err))
	}
	if seller == nil {
		return nil, apperror.ErrSellerNotOnboarded()
	}

	err = withinTx(ctx, s.transactor, func(tx pgx.Tx) error {
		balance, err := s.sellerRepo.Credit(ctx, tx, seller.ID, req.Amount)
		if err != nil {
			return apperror.ErrTransaction(fmt.Errorf("credit wallet: %w", err))
		}
		entry = &domain.LedgerEntry{
			ID:           uuid.New(),
			SellerID:     seller.ID,
			Type:         domain.LedgerEntryCredit,
			Amount:       req.Amount,
			Reason:       domain.LedgerReasonTopUp,
			ReferenceID:  req.Reference,
			BalanceAfter: balance,
			CreatedAt:    s.now(),
		}
		if err := s.ledgerRepo.Append(ctx, tx, entry); err != nil {
			return apperror.ErrTransaction(fmt.Errorf("append ledger entry: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, asAppError(err)
	}

	s.log.Info().
		Str("seller_id", seller.ID.String()).
		Str("amount", req.Amount.String()).
		Str("balance", entry.BalanceAfter.String()).
		Msg("wallet topped up")

	return entry, nil
}

// GetWallet returns the seller's balance with its ledger and billing trail.
func (s *WalletServiceImpl) GetWallet(ctx context.Context, userID uuid.UUID) (*ports.WalletView, error) {
	seller, err := s.sellerRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load seller: %w", err))
	}
	if seller == nil {
		return nil, apperror.ErrSellerNotOnboarded()
	}

	ledger, err := s.ledgerRepo.ListBySeller(ctx, seller.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list ledger: %w", err))
	}
	billing, err := s.billingRepo.ListBySeller(ctx, seller.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list billing: %w", err))
	}

	if ledger == nil {
		ledger = []domain.LedgerEntry{}
	}
	if billing == nil {
		billing = []domain.BillingRecord{}
	}
	return &ports.WalletView{Seller: seller, Ledger: ledger, Billing: billing}, nil
}
