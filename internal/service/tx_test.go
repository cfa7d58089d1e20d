package service

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/core/ports/mocks"
	"storefront/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestWithinTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		transactor := mocks.NewMockDBTransactor(ctrl)
		tx := &mockTx{}
		transactor.EXPECT().Begin(ctx).Return(tx, nil)

		err := withinTx(ctx, transactor, func(got pgx.Tx) error {
			assert.Same(t, tx, got)
			return nil
		})
		require.NoError(t, err)
		assert.True(t, tx.committed)
		assert.False(t, tx.rolledBack)
	})

	t.Run("rolls back and returns fn error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		transactor := mocks.NewMockDBTransactor(ctrl)
		tx := &mockTx{}
		transactor.EXPECT().Begin(ctx).Return(tx, nil)

		err := withinTx(ctx, transactor, func(pgx.Tx) error { return apperror.ErrEmptyCart() })
		assertAppError(t, err, "PRE_001")
		assert.True(t, tx.rolledBack)
		assert.False(t, tx.committed)
	})

	t.Run("commit failure is a transaction error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		transactor := mocks.NewMockDBTransactor(ctrl)
		tx := &mockTx{commitErr: errors.New("serialization failure")}
		transactor.EXPECT().Begin(ctx).Return(tx, nil)

		err := withinTx(ctx, transactor, func(pgx.Tx) error { return nil })
		assertAppError(t, err, "TXN_001")
		assert.True(t, tx.rolledBack)
	})

	t.Run("begin failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		transactor := mocks.NewMockDBTransactor(ctrl)
		transactor.EXPECT().Begin(ctx).Return(nil, errors.New("pool exhausted"))

		called := false
		err := withinTx(ctx, transactor, func(pgx.Tx) error { called = true; return nil })
		assertAppError(t, err, "TXN_001")
		assert.False(t, called)
	})

	t.Run("rolls back on panic", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		transactor := mocks.NewMockDBTransactor(ctrl)
		tx := &mockTx{}
		transactor.EXPECT().Begin(ctx).Return(tx, nil)

		assert.Panics(t, func() {
			_ = withinTx(ctx, transactor, func(pgx.Tx) error { panic("boom") })
		})
		assert.True(t, tx.rolledBack)
	})
}

func TestAsAppError(t *testing.T) {
	assertAppError(t, asAppError(apperror.ErrInsufficientFunds()), "CON_002")
	assertAppError(t, asAppError(errors.New("raw")), "TXN_001")
}
