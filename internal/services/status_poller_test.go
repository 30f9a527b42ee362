package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/smmwallet/backend/internal/models"
	"github.com/smmwallet/backend/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestStatusPoller_PollOnce(t *testing.T) {
	ctx := context.Background()
	ext := "98765"
	processing := providerOrder(models.StatusProcessing)
	processing.ProviderOrderID = &ext

	t.Run("completed upstream completes the order", func(t *testing.T) {
		f := newOrderFixture(t, OrderOptions{AsyncCompletion: true})
		poller := NewStatusPoller(f.service, f.gateway, time.Minute)

		f.db.ExpectQuery("FROM orders WHERE status = 'processing' AND kind = 'provider'").
			WithArgs(50).
			WillReturnRows(orderRows(processing))
		f.gateway.On("GetStatus", mock.Anything, ext).Return(provider.StatusCompleted, nil).Once()
		f.db.ExpectBegin()
		f.expectLockOrder(processing)
		f.expectStatus(models.StatusDone, ext, nil, "", models.StatusProcessing)
		f.expectNotice(models.AudienceUser, "u1", nil, models.StatusDone)
		f.db.ExpectCommit()

		n, err := poller.PollOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.NoError(t, f.db.ExpectationsWereMet())
	})

	t.Run("canceled upstream only notifies the owner", func(t *testing.T) {
		f := newOrderFixture(t, OrderOptions{AsyncCompletion: true})
		poller := NewStatusPoller(f.service, f.gateway, time.Minute)

		f.db.ExpectQuery("FROM orders WHERE status = 'processing'").
			WillReturnRows(orderRows(processing))
		f.gateway.On("GetStatus", mock.Anything, ext).Return(provider.StatusCanceled, nil).Once()
		f.db.ExpectBegin()
		f.db.ExpectExec("INSERT INTO notices").
			WithArgs(sqlmock.AnyArg(), "owner", nil, sqlmock.AnyArg(), sqlmock.AnyArg(),
				orderID, nil, "order:"+orderID+":upstream_canceled", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		f.db.ExpectCommit()

		n, err := poller.PollOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		assert.NoError(t, f.db.ExpectationsWereMet())
	})

	t.Run("upstream errors are skipped", func(t *testing.T) {
		f := newOrderFixture(t, OrderOptions{AsyncCompletion: true})
		poller := NewStatusPoller(f.service, f.gateway, time.Minute)

		f.db.ExpectQuery("FROM orders WHERE status = 'processing'").
			WillReturnRows(orderRows(processing))
		f.gateway.On("GetStatus", mock.Anything, ext).
			Return(provider.StatusUnknown, errors.New("timeout")).Once()

		n, err := poller.PollOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		assert.NoError(t, f.db.ExpectationsWereMet())
	})
}

func TestStatusPoller_RunStopsOnCancel(t *testing.T) {
	f := newOrderFixture(t, OrderOptions{})
	poller := NewStatusPoller(f.service, f.gateway, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- poller.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}
