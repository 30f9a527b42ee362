package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/smmwallet/backend/internal/models"
)

// NoticeInput describes a notice to emit. Empty strings are stored as NULL.
type NoticeInput struct {
	Audience      models.Audience
	TargetUID     string
	Title         string
	Body          string
	OrderID       string
	Code          string
	CorrelationID string
}

type NoticeService struct {
	db *sql.DB
}

func NewNoticeService(db *sql.DB) *NoticeService {
	return &NoticeService{db: db}
}

// EmitTx writes a notice inside the caller's transaction. A notice whose
// correlation id already exists is skipped and emitted=false is returned.
func (s *NoticeService) EmitTx(ctx context.Context, tx *sql.Tx, n NoticeInput) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO notices (id, audience, target_uid, title, body, order_id, code, correlation_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (correlation_id) DO NOTHING`,
		uuid.NewString(), n.Audience, nullIfEmpty(n.TargetUID), n.Title, n.Body,
		nullIfEmpty(n.OrderID), nullIfEmpty(n.Code), nullIfEmpty(n.CorrelationID), time.Now())
	if err != nil {
		return false, fmt.Errorf("emit notice: %w", err)
	}
	n64, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n64 == 1, nil
}

// List returns the audience feed in timestamp order. For the user audience
// uid selects the target; the owner feed ignores it.
func (s *NoticeService) List(ctx context.Context, audience models.Audience, uid string, since time.Time, limit int) ([]models.Notice, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var (
		rows *sql.Rows
		err  error
	)
	switch audience {
	case models.AudienceUser:
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, audience, target_uid, title, body, order_id, code, correlation_id, created_at
			FROM notices
			WHERE audience = 'user' AND target_uid = $1 AND created_at > $2
			ORDER BY created_at ASC
			LIMIT $3`, uid, since, limit)
	case models.AudienceOwner:
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, audience, target_uid, title, body, order_id, code, correlation_id, created_at
			FROM notices
			WHERE audience = 'owner' AND created_at > $1
			ORDER BY created_at ASC
			LIMIT $2`, since, limit)
	default:
		return nil, fmt.Errorf("unknown audience %q", audience)
	}
	if err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}
	defer rows.Close()

	notices := []models.Notice{}
	for rows.Next() {
		var (
			n                                     models.Notice
			target, orderID, code, correlationID sql.NullString
		)
		if err := rows.Scan(&n.ID, &n.Audience, &target, &n.Title, &n.Body, &orderID, &code, &correlationID, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.TargetUID = stringPtr(target)
		n.OrderID = stringPtr(orderID)
		n.Code = stringPtr(code)
		n.CorrelationID = stringPtr(correlationID)
		notices = append(notices, n)
	}
	return notices, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func correlationID(orderID string, status models.OrderStatus) string {
	return "order:" + orderID + ":" + string(status)
}
