package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/smmwallet/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoticeService_EmitTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewNoticeService(db)
	ctx := context.Background()

	t.Run("new correlation id is written", func(t *testing.T) {
		mock.ExpectBegin()
		tx, err := db.Begin()
		require.NoError(t, err)

		mock.ExpectExec("INSERT INTO notices .* ON CONFLICT \\(correlation_id\\) DO NOTHING").
			WithArgs(sqlmock.AnyArg(), "user", "u1", "Order completed", "done", "o1", nil, "order:o1:done", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		emitted, err := service.EmitTx(ctx, tx, NoticeInput{
			Audience:      models.AudienceUser,
			TargetUID:     "u1",
			Title:         "Order completed",
			Body:          "done",
			OrderID:       "o1",
			CorrelationID: correlationID("o1", models.StatusDone),
		})
		assert.NoError(t, err)
		assert.True(t, emitted)
		assert.NoError(t, tx.Commit())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate correlation id is skipped", func(t *testing.T) {
		mock.ExpectBegin()
		tx, err := db.Begin()
		require.NoError(t, err)

		mock.ExpectExec("INSERT INTO notices").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		emitted, err := service.EmitTx(ctx, tx, NoticeInput{Audience: models.AudienceUser, CorrelationID: "order:o1:done"})
		assert.NoError(t, err)
		assert.False(t, emitted)
		assert.NoError(t, tx.Commit())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestNoticeService_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewNoticeService(db)
	ctx := context.Background()
	cols := []string{"id", "audience", "target_uid", "title", "body", "order_id", "code", "correlation_id", "created_at"}
	now := time.Now()

	t.Run("user feed", func(t *testing.T) {
		mock.ExpectQuery("FROM notices WHERE audience = 'user' AND target_uid = \\$1 AND created_at > \\$2").
			WithArgs("u1", sqlmock.AnyArg(), 100).
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow("n1", "user", "u1", "Code delivered", "Zain 5", "o1", "1234", "order:o1:done", now))

		notices, err := service.List(ctx, models.AudienceUser, "u1", time.Time{}, 0)
		require.NoError(t, err)
		require.Len(t, notices, 1)
		assert.Equal(t, "1234", *notices[0].Code)
		assert.Equal(t, "order:o1:done", *notices[0].CorrelationID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("owner feed", func(t *testing.T) {
		mock.ExpectQuery("FROM notices WHERE audience = 'owner' AND created_at > \\$1").
			WithArgs(sqlmock.AnyArg(), 10).
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow("n2", "owner", nil, "New order", "ig_likes x2000", "o2", nil, "order:o2:pending", now))

		notices, err := service.List(ctx, models.AudienceOwner, "", time.Time{}, 10)
		require.NoError(t, err)
		require.Len(t, notices, 1)
		assert.Nil(t, notices[0].TargetUID)
		assert.Nil(t, notices[0].Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown audience", func(t *testing.T) {
		_, err := service.List(ctx, models.Audience("staff"), "", time.Time{}, 10)
		assert.Error(t, err)
	})
}
