package memory

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// SellerRepo implements ports.SellerRepository.
type SellerRepo struct{ s *Store }

// NewSellerRepo creates a new SellerRepo.
func NewSellerRepo(s *Store) *SellerRepo { return &SellerRepo{s: s} }

// GetByUserID returns the committed seller profile, or nil, nil.
func (r *SellerRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*domain.Seller, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.sellersByUser[userID]
	if !ok {
		return nil, nil
	}
	c := *r.s.sellers[id]
	return &c, nil
}

// GetByIDTx returns the seller as the transaction sees it, or nil, nil.
func (r *SellerRepo) GetByIDTx(_ context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Seller, error) {
	t, err := r.s.txOf(tx)
	if err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := t.active(); err != nil {
		return nil, err
	}
	s := t.seller(id)
	if s == nil {
		return nil, nil
	}
	c := *s
	return &c, nil
}

// TryDebit locks the wallet, then subtracts amount only if the balance
// covers it.
func (r *SellerRepo) TryDebit(ctx context.Context, tx pgx.Tx, sellerID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, bool, error) {
	t, err := r.s.txOf(tx)
	if err != nil {
		return decimal.Zero, false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.lockRow(ctx, t, rowKey{tableSellers, sellerID}); err != nil {
		return decimal.Zero, false, err
	}
	cur := t.seller(sellerID)
	if cur == nil || cur.WalletBalance.LessThan(amount) {
		return decimal.Zero, false, nil
	}
	s := t.stageSeller(cur)
	s.WalletBalance = s.WalletBalance.Sub(amount)
	s.UpdatedAt = time.Now().UTC()
	return s.WalletBalance, true, nil
}

// Credit adds amount to the wallet and returns the new balance.
func (r *SellerRepo) Credit(ctx context.Context, tx pgx.Tx, sellerID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	t, err := r.s.txOf(tx)
	if err != nil {
		return decimal.Zero, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.lockRow(ctx, t, rowKey{tableSellers, sellerID}); err != nil {
		return decimal.Zero, err
	}
	cur := t.seller(sellerID)
	if cur == nil {
		return decimal.Zero, fmt.Errorf("seller not found: %s", sellerID)
	}
	s := t.stageSeller(cur)
	s.WalletBalance = s.WalletBalance.Add(amount)
	s.UpdatedAt = time.Now().UTC()
	return s.WalletBalance, nil
}

// LedgerRepo implements ports.LedgerRepository.
type LedgerRepo struct{ s *Store }

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(s *Store) *LedgerRepo { return &LedgerRepo{s: s} }

// Append stages a ledger entry; it becomes visible on commit.
func (r *LedgerRepo) Append(_ context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	t, err := r.s.txOf(tx)
	if err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := t.active(); err != nil {
		return err
	}
	t.ledger = append(t.ledger, *e)
	return nil
}

// ListBySeller returns committed entries in commit order.
func (r *LedgerRepo) ListBySeller(_ context.Context, sellerID uuid.UUID) ([]domain.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.LedgerEntry{}
	for _, e := range r.s.ledger {
		if e.SellerID == sellerID {
			out = append(out, e)
		}
	}
	return out, nil
}

// BillingRepo implements ports.BillingRepository.
type BillingRepo struct{ s *Store }

// NewBillingRepo creates a new BillingRepo.
func NewBillingRepo(s *Store) *BillingRepo { return &BillingRepo{s: s} }

// Create stages a billing record; it becomes visible on commit.
func (r *BillingRepo) Create(_ context.Context, tx pgx.Tx, rec *domain.BillingRecord) error {
	t, err := r.s.txOf(tx)
	if err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := t.active(); err != nil {
		return err
	}
	t.billing = append(t.billing, *rec)
	return nil
}

// CreateDetached records a billing outcome outside any transaction.
func (r *BillingRepo) CreateDetached(_ context.Context, rec *domain.BillingRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.billing = append(r.s.billing, *rec)
	return nil
}

// ListBySeller returns committed records in commit order.
func (r *BillingRepo) ListBySeller(_ context.Context, sellerID uuid.UUID) ([]domain.BillingRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.BillingRecord{}
	for _, b := range r.s.billing {
		if b.SellerID == sellerID {
			out = append(out, b)
		}
	}
	return out, nil
}

// AuditRepo implements ports.AuditRepository.
type AuditRepo struct{ s *Store }

// NewAuditRepo creates a new AuditRepo.
func NewAuditRepo(s *Store) *AuditRepo { return &AuditRepo{s: s} }

// Create appends an audit log entry.
func (r *AuditRepo) Create(_ context.Context, log *domain.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audit = append(r.s.audit, *log)
	return nil
}
