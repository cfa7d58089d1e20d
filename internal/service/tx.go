package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/core/ports"
	"storefront/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("storefront/internal/service")

// withinTx runs fn in one unit of work. fn's error aborts the transaction and
// is returned as is; a failed commit becomes a TransactionError. Rollback
// runs on a context that outlives cancellation of ctx so an aborted request
// still releases its writes.
func withinTx(ctx context.Context, transactor ports.DBTransactor, fn func(tx pgx.Tx) error) (err error) {
	tx, err := transactor.Begin(ctx)
	if err != nil {
		return apperror.ErrTransaction(fmt.Errorf("begin tx: %w", err))
	}

	rollback := func() error {
		rbErr := tx.Rollback(context.WithoutCancel(ctx))
		if rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return rbErr
		}
		return nil
	}

	defer func() {
		if p := recover(); p != nil {
			_ = rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		_ = rollback()
		return apperror.ErrTransaction(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// endSpan records err on span before ending it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// asAppError keeps AppErrors and wraps anything else as a TransactionError.
func asAppError(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.ErrTransaction(err)
}
