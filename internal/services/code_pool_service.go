package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smmwallet/backend/internal/audit"
	"github.com/smmwallet/backend/internal/metrics"
	"github.com/smmwallet/backend/internal/models"
	"github.com/smmwallet/backend/internal/vault"
)

// CodePoolService owns code_entries.status. A code moves
// available -> reserved -> consumed, or back from reserved to available
// when delivery does not happen.
type CodePoolService struct {
	db     *sql.DB
	sealer vault.Sealer
	audit  *audit.Logger
}

func NewCodePoolService(db *sql.DB, sealer vault.Sealer, auditLogger *audit.Logger) *CodePoolService {
	return &CodePoolService{
		db:     db,
		sealer: sealer,
		audit:  auditLogger,
	}
}

func (s *CodePoolService) Reserve(ctx context.Context, poolKey, orderID string) (*models.CodeEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	entry, err := s.ReserveTx(ctx, tx, poolKey, orderID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return entry, nil
}

// ReserveTx claims one available code for orderID. Rows locked by a
// concurrent claimer are skipped, so two callers never get the same code.
func (s *CodePoolService) ReserveTx(ctx context.Context, tx *sql.Tx, poolKey, orderID string) (*models.CodeEntry, error) {
	entry := models.CodeEntry{PoolKey: poolKey}
	err := tx.QueryRowContext(ctx, `
		SELECT id, sealed, created_at
		FROM code_entries
		WHERE pool_key = $1 AND status = 'available'
		ORDER BY created_at
		LIMIT 1
		FOR UPDATE SKIP LOCKED`, poolKey).Scan(&entry.ID, &entry.Sealed, &entry.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.CodePool(poolKey, "out_of_stock")
		return nil, ErrOutOfStock
	}
	if err != nil {
		return nil, fmt.Errorf("claim code: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE code_entries
		SET status = 'reserved', reserved_for = $1, updated_at = $2
		WHERE id = $3 AND status = 'available'`,
		orderID, time.Now(), entry.ID)
	if err != nil {
		return nil, fmt.Errorf("reserve code: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrOutOfStock
	}

	entry.Status = models.CodeReserved
	entry.ReservedFor = &orderID
	metrics.CodePool(poolKey, "reserved")
	return &entry, nil
}

func (s *CodePoolService) Consume(ctx context.Context, codeID, orderID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.ConsumeTx(ctx, tx, codeID, orderID); err != nil {
		return err
	}
	return tx.Commit()
}

// ConsumeTx marks a code delivered. Only the reserving order may consume it,
// and only once.
func (s *CodePoolService) ConsumeTx(ctx context.Context, tx *sql.Tx, codeID, orderID string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE code_entries
		SET status = 'consumed', updated_at = $1
		WHERE id = $2 AND status = 'reserved' AND reserved_for = $3`,
		time.Now(), codeID, orderID)
	if err != nil {
		return fmt.Errorf("consume code: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		s.audit.LogIgnored("CONSUME", orderID, "code "+codeID+" not reserved for order")
		return ErrAlreadyConsumed
	}
	return nil
}

func (s *CodePoolService) Release(ctx context.Context, codeID, orderID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.ReleaseTx(ctx, tx, codeID, orderID); err != nil {
		return err
	}
	return tx.Commit()
}

// ReleaseTx returns a reserved code to the pool. A second release finds no
// reserved row and fails with ErrNotReserved without writing.
func (s *CodePoolService) ReleaseTx(ctx context.Context, tx *sql.Tx, codeID, orderID string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE code_entries
		SET status = 'available', reserved_for = NULL, updated_at = $1
		WHERE id = $2 AND status = 'reserved' AND reserved_for = $3`,
		time.Now(), codeID, orderID)
	if err != nil {
		return fmt.Errorf("release code: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		s.audit.LogIgnored("RELEASE", orderID, "code "+codeID+" not reserved for order")
		return ErrNotReserved
	}
	return nil
}

// ReservedEntry loads a code still reserved for orderID, so an interrupted
// delivery can be retried with the same code.
func (s *CodePoolService) ReservedEntry(ctx context.Context, codeID, orderID string) (*models.CodeEntry, error) {
	entry := models.CodeEntry{ID: codeID, Status: models.CodeReserved, ReservedFor: &orderID}
	err := s.db.QueryRowContext(ctx, `
		SELECT pool_key, sealed, created_at FROM code_entries
		WHERE id = $1 AND reserved_for = $2 AND status = 'reserved'`,
		codeID, orderID).Scan(&entry.PoolKey, &entry.Sealed, &entry.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotReserved
	}
	if err != nil {
		return nil, fmt.Errorf("load reserved code: %w", err)
	}
	return &entry, nil
}

// Open decrypts a claimed entry.
func (s *CodePoolService) Open(entry *models.CodeEntry) (string, error) {
	plain, err := s.sealer.Open(entry.Sealed)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// Reveal returns the plaintext of a code delivered to orderID.
func (s *CodePoolService) Reveal(ctx context.Context, codeID, orderID string) (string, error) {
	var sealed []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT sealed FROM code_entries
		WHERE id = $1 AND reserved_for = $2 AND status = 'consumed'`,
		codeID, orderID).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotDelivered
	}
	if err != nil {
		return "", fmt.Errorf("reveal code: %w", err)
	}
	return s.Open(&models.CodeEntry{Sealed: sealed})
}

// Restock seals and inserts codes. Codes already present in any pool are
// counted as duplicates and skipped.
func (s *CodePoolService) Restock(ctx context.Context, poolKey string, codes []string) (*models.RestockResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	result := &models.RestockResult{PoolKey: poolKey}
	seen := make(map[string]bool, len(codes))
	for _, raw := range codes {
		code := strings.TrimSpace(raw)
		if code == "" {
			continue
		}
		fp := s.sealer.Fingerprint(code)
		if seen[fp] {
			result.Duplicates++
			continue
		}
		seen[fp] = true

		sealed, err := s.sealer.Seal([]byte(code))
		if err != nil {
			return nil, fmt.Errorf("seal code: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO code_entries (id, pool_key, sealed, fingerprint, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, 'available', $5, $5)
			ON CONFLICT (fingerprint) DO NOTHING`,
			uuid.NewString(), poolKey, sealed, fp, time.Now())
		if err != nil {
			return nil, fmt.Errorf("insert code: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			result.Duplicates++
			continue
		}
		result.Inserted++
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	if result.Duplicates > 0 {
		log.Printf("[CODES] restock of %s skipped %d duplicate codes", poolKey, result.Duplicates)
	}
	s.audit.LogInventory(poolKey, "restock", result.Inserted)
	return result, nil
}

func (s *CodePoolService) Stock(ctx context.Context) ([]models.PoolStock, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pool_key,
			COUNT(*) FILTER (WHERE status = 'available'),
			COUNT(*) FILTER (WHERE status = 'reserved')
		FROM code_entries
		GROUP BY pool_key
		ORDER BY pool_key`)
	if err != nil {
		return nil, fmt.Errorf("stock: %w", err)
	}
	defer rows.Close()

	stock := []models.PoolStock{}
	for rows.Next() {
		var p models.PoolStock
		if err := rows.Scan(&p.PoolKey, &p.Available, &p.Reserved); err != nil {
			return nil, err
		}
		stock = append(stock, p)
	}
	return stock, rows.Err()
}
