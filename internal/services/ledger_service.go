package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smmwallet/backend/internal/audit"
	"github.com/smmwallet/backend/internal/metrics"
	"github.com/smmwallet/backend/internal/models"
)

// LedgerService is the only writer of users.balance. Every balance change
// is paired with a wallet_txns row in the same transaction.
type LedgerService struct {
	db    *sql.DB
	audit *audit.Logger
}

func NewLedgerService(db *sql.DB, auditLogger *audit.Logger) *LedgerService {
	return &LedgerService{
		db:    db,
		audit: auditLogger,
	}
}

type lockedUser struct {
	UID     string
	Balance decimal.Decimal
	Banned  bool
	Version int64
}

// UpsertUser creates the user on first sight and returns the stored row.
func (s *LedgerService) UpsertUser(ctx context.Context, uid string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (uid, created_at, updated_at)
		VALUES ($1, $2, $2)
		ON CONFLICT (uid) DO UPDATE SET uid = EXCLUDED.uid
		RETURNING uid, balance, banned, created_at, updated_at`,
		uid, time.Now()).Scan(&u.UID, &u.Balance, &u.Banned, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return &u, nil
}

func (s *LedgerService) GetUser(ctx context.Context, uid string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, `
		SELECT uid, balance, banned, created_at, updated_at
		FROM users WHERE uid = $1`, uid).
		Scan(&u.UID, &u.Balance, &u.Banned, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// History returns the newest wallet transactions of a user first.
func (s *LedgerService) History(ctx context.Context, uid string, limit int) ([]models.WalletTxn, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, uid, delta, reason, order_id, meta, balance_after, created_at
		FROM wallet_txns
		WHERE uid = $1
		ORDER BY created_at DESC
		LIMIT $2`, uid, limit)
	if err != nil {
		return nil, fmt.Errorf("list wallet txns: %w", err)
	}
	defer rows.Close()

	txns := []models.WalletTxn{}
	for rows.Next() {
		var t models.WalletTxn
		var orderID sql.NullString
		if err := rows.Scan(&t.ID, &t.UID, &t.Delta, &t.Reason, &orderID, &t.Meta, &t.BalanceAfter, &t.CreatedAt); err != nil {
			return nil, err
		}
		if orderID.Valid {
			t.OrderID = &orderID.String
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func (s *LedgerService) SetBanned(ctx context.Context, uid string, banned bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET banned = $1, updated_at = $2 WHERE uid = $3`,
		banned, time.Now(), uid)
	if err != nil {
		return fmt.Errorf("set banned: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Debit removes amount from the user's balance in its own transaction.
func (s *LedgerService) Debit(ctx context.Context, uid string, amount decimal.Decimal, reason models.TxnReason, meta models.Metadata) (decimal.Decimal, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, err
	}
	defer tx.Rollback()

	balance, err := s.DebitTx(ctx, tx, uid, amount, reason, nil, meta)
	if err != nil {
		return decimal.Zero, err
	}
	if err := tx.Commit(); err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// Credit adds amount to the user's balance in its own transaction.
func (s *LedgerService) Credit(ctx context.Context, uid string, amount decimal.Decimal, reason models.TxnReason, meta models.Metadata) (decimal.Decimal, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, err
	}
	defer tx.Rollback()

	balance, err := s.CreditTx(ctx, tx, uid, amount, reason, nil, meta)
	if err != nil {
		return decimal.Zero, err
	}
	if err := tx.Commit(); err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// TopUp is the operator credit.
func (s *LedgerService) TopUp(ctx context.Context, uid string, amount decimal.Decimal, actor, note string) (decimal.Decimal, error) {
	return s.Credit(ctx, uid, amount, models.ReasonAdminTopUp, models.Metadata{"actor": actor, "note": note})
}

// Deduct is the operator debit. It is the only path allowed to drive a
// balance below zero.
func (s *LedgerService) Deduct(ctx context.Context, uid string, amount decimal.Decimal, actor, note string) (decimal.Decimal, error) {
	return s.Debit(ctx, uid, amount, models.ReasonAdminDeduct, models.Metadata{"actor": actor, "note": note})
}

// DebitTx locks the user row for the check-and-write so concurrent debits
// serialize on it.
func (s *LedgerService) DebitTx(ctx context.Context, tx *sql.Tx, uid string, amount decimal.Decimal, reason models.TxnReason, orderID *string, meta models.Metadata) (decimal.Decimal, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}

	user, err := s.lockUser(ctx, tx, uid)
	if err != nil {
		return decimal.Zero, err
	}

	if user.Banned && reason == models.ReasonOrderCharge {
		return decimal.Zero, ErrUserBanned
	}
	if reason != models.ReasonAdminDeduct && user.Balance.LessThan(amount) {
		metrics.LedgerRejected("insufficient_funds")
		log.Printf("[LEDGER] debit of %s rejected for %s: balance %s", amount, uid, user.Balance)
		return decimal.Zero, ErrInsufficientFunds
	}

	return s.apply(ctx, tx, user, amount.Neg(), reason, orderID, meta)
}

func (s *LedgerService) CreditTx(ctx context.Context, tx *sql.Tx, uid string, amount decimal.Decimal, reason models.TxnReason, orderID *string, meta models.Metadata) (decimal.Decimal, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}

	user, err := s.lockUser(ctx, tx, uid)
	if err != nil {
		return decimal.Zero, err
	}
	return s.apply(ctx, tx, user, amount, reason, orderID, meta)
}

// RefundTx credits an order's price back at most once per order. A second
// call reports refunded=false and writes nothing.
func (s *LedgerService) RefundTx(ctx context.Context, tx *sql.Tx, uid, orderID string, amount decimal.Decimal, meta models.Metadata) (bool, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return false, ErrInvalidAmount
	}

	// The user lock serializes refunds of all of this user's orders, which
	// makes the existence check below race-free.
	user, err := s.lockUser(ctx, tx, uid)
	if err != nil {
		return false, err
	}

	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM wallet_txns WHERE order_id = $1 AND reason = $2)`,
		orderID, models.ReasonOrderRefund).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check refund: %w", err)
	}
	if exists {
		metrics.LedgerRejected("duplicate_refund")
		s.audit.LogIgnored("REFUND", orderID, "order already refunded")
		return false, nil
	}

	if meta == nil {
		meta = models.Metadata{}
	}
	meta["order_id"] = orderID

	if _, err := s.apply(ctx, tx, user, amount, models.ReasonOrderRefund, &orderID, meta); err != nil {
		if isUniqueViolation(err) {
			s.audit.LogIgnored("REFUND", orderID, "refund row already present")
			return false, fmt.Errorf("%w: refund already recorded", ErrInvalidTransition)
		}
		return false, err
	}
	return true, nil
}

func (s *LedgerService) apply(ctx context.Context, tx *sql.Tx, user *lockedUser, delta decimal.Decimal, reason models.TxnReason, orderID *string, meta models.Metadata) (decimal.Decimal, error) {
	newBalance := user.Balance.Add(delta)

	if err := s.createTxn(ctx, tx, user.UID, delta, reason, orderID, meta, newBalance); err != nil {
		return decimal.Zero, err
	}
	if err := s.updateBalance(ctx, tx, user.UID, newBalance, user.Version); err != nil {
		return decimal.Zero, err
	}

	var ref string
	if orderID != nil {
		ref = *orderID
	}
	metrics.LedgerEntry(string(reason))
	s.audit.LogLedger(user.UID, ref, string(reason), delta.StringFixed(2), newBalance.StringFixed(2))
	return newBalance, nil
}

func (s *LedgerService) lockUser(ctx context.Context, tx *sql.Tx, uid string) (*lockedUser, error) {
	var u lockedUser
	err := tx.QueryRowContext(ctx, `
		SELECT uid, balance, banned, version
		FROM users
		WHERE uid = $1
		FOR UPDATE`, uid).Scan(&u.UID, &u.Balance, &u.Banned, &u.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock user: %w", err)
	}
	return &u, nil
}

func (s *LedgerService) createTxn(ctx context.Context, tx *sql.Tx, uid string, delta decimal.Decimal, reason models.TxnReason, orderID *string, meta models.Metadata, balanceAfter decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_txns (id, uid, delta, reason, order_id, meta, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.NewString(), uid, delta, reason, orderID, meta, balanceAfter, time.Now())
	return err
}

func (s *LedgerService) updateBalance(ctx context.Context, tx *sql.Tx, uid string, newBalance decimal.Decimal, version int64) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE users
		SET balance = $1, version = version + 1, updated_at = $2
		WHERE uid = $3 AND version = $4`,
		newBalance, time.Now(), uid, version)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("optimistic lock failed for user %s", uid)
	}
	return nil
}
