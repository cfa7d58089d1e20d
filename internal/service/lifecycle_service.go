package service

import (
	"context"
	"errors"
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

// StatusChangedPayload is sent to the buyer and sellers on every transition.
type StatusChangedPayload struct {
	OrderID        uuid.UUID `json:"order_id"`
	TrackingNumber string    `json:"tracking_number"`
	Status         string    `json:"status"`
	PaymentStatus  string    `json:"payment_status"`
	Timestamp      time.Time `json:"timestamp"`
}

// LifecycleServiceImpl implements ports.LifecycleService.
type LifecycleServiceImpl struct {
	orderRepo     ports.OrderRepository
	transactor    ports.DBTransactor
	notifications ports.NotificationQueue
	now           func() time.Time
	log           zerolog.Logger
}

// NewLifecycleService creates a new LifecycleServiceImpl.
func NewLifecycleService(
	orderRepo ports.OrderRepository,
	transactor ports.DBTransactor,
	notifications ports.NotificationQueue,
	log zerolog.Logger,
) *LifecycleServiceImpl {
	return &LifecycleServiceImpl{
		orderRepo:     orderRepo,
		transactor:    transactor,
		notifications: notifications,
		now:           func() time.Time { return time.Now().UTC() },
		log:           log,
	}
}

// Transition appends one history entry and moves the order to req.To. The
// write is conditional on the status and history length read in the same
// transaction, so a concurrent transition makes this one fail instead of
// interleaving.
func (s *LifecycleServiceImpl) Transition(ctx context.Context, req ports.TransitionRequest) (order *domain.Order, err error) {
	ctx, span := tracer.Start(ctx, "LifecycleService.Transition")
	span.SetAttributes(
		attribute.String("order.id", req.OrderID.String()),
		attribute.String("order.to", string(req.To)),
	)
	defer func() { endSpan(span, err) }()

	if !req.To.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown order status %q", req.To))
	}

	var from domain.OrderStatus
	err = withinTx(ctx, s.transactor, func(tx pgx.Tx) error {
		current, err := s.orderRepo.GetByIDTx(ctx, tx, req.OrderID)
		if err != nil {
			return apperror.ErrTransaction(fmt.Errorf("load order: %w", err))
		}
		if current == nil {
			return apperror.ErrNotFound("order")
		}

		from = current.Status
		prevLen := len(current.StatusHistory)
		entry := domain.StatusEntry{
			Status:    req.To,
			Timestamp: s.now(),
			ActorID:   req.ActorID,
			Note:      req.Note,
		}
		if err := current.AppendStatus(entry); err != nil {
			if errors.Is(err, domain.ErrInvalidTransition) {
				return apperror.ErrInvalidTransition(string(from), string(req.To))
			}
			return apperror.InternalError(err)
		}

		ok, err := s.orderRepo.UpdateStatus(ctx, tx, current, from, prevLen)
		if err != nil {
			return apperror.ErrTransaction(fmt.Errorf("update order status: %w", err))
		}
		if !ok {
			return apperror.ErrConcurrentUpdate("order")
		}
		order = current
		return nil
	})
	if err != nil {
		return nil, asAppError(err)
	}

	s.notifyChanged(order)
	s.log.Info().
		Str("order_id", order.ID.String()).
		Str("from", string(from)).
		Str("to", string(order.Status)).
		Str("actor_id", req.ActorID.String()).
		Msg("order status changed")

	return order, nil
}

func (s *LifecycleServiceImpl) notifyChanged(order *domain.Order) {
	last := order.StatusHistory[len(order.StatusHistory)-1]
	payload := StatusChangedPayload{
		OrderID:        order.ID,
		TrackingNumber: order.TrackingNumber,
		Status:         string(order.Status),
		PaymentStatus:  string(order.PaymentStatus),
		Timestamp:      last.Timestamp,
	}
	s.notifications.Enqueue(domain.Notification{
		Channel: domain.UserChannel(order.UserID),
		Event:   domain.EventOrderStatusChanged,
		Payload: payload,
	})
	for _, sellerID := range order.SellerIDs() {
		s.notifications.Enqueue(domain.Notification{
			Channel: domain.SellerChannel(sellerID),
			Event:   domain.EventOrderStatusChanged,
			Payload: payload,
		})
	}
}
