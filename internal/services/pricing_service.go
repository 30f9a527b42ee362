package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/smmwallet/backend/internal/audit"
	"github.com/smmwallet/backend/internal/catalog"
	"github.com/smmwallet/backend/internal/models"
)

const defaultBulkCacheTTL = time.Hour

// PricingService resolves effective prices from the static catalog and the
// operator overrides. Only the admin operations write overrides.
type PricingService struct {
	db      *sql.DB
	catalog *catalog.Catalog
	redis   *redis.Client
	audit   *audit.Logger

	bulkTTL time.Duration
}

func NewPricingService(db *sql.DB, cat *catalog.Catalog, redisClient *redis.Client, auditLogger *audit.Logger) *PricingService {
	return &PricingService{
		db:      db,
		catalog: cat,
		redis:   redisClient,
		audit:   auditLogger,
		bulkTTL: defaultBulkCacheTTL,
	}
}

// SetCacheTTL bounds how long a scope snapshot stays in Redis. Snapshots are
// keyed by scope version, so the TTL only evicts versions nobody asks for.
func (s *PricingService) SetCacheTTL(ttl time.Duration) {
	if ttl > 0 {
		s.bulkTTL = ttl
	}
}

// Entry returns the static catalog entry for key.
func (s *PricingService) Entry(key string) (models.CatalogEntry, error) {
	entry, ok := s.catalog.Get(key)
	if !ok {
		return models.CatalogEntry{}, ErrUnknownItem
	}
	return entry, nil
}

// Resolve returns the effective policy of key for the given mode. An empty
// mode means the catalog entry's own mode.
func (s *PricingService) Resolve(ctx context.Context, key string, mode models.PricingMode) (*models.EffectivePolicy, error) {
	entry, err := s.Entry(key)
	if err != nil {
		return nil, err
	}
	if mode == "" {
		mode = entry.Mode
	}

	override, err := s.getOverride(ctx, key)
	if err != nil {
		return nil, err
	}

	policy := resolvePolicy(entry, override, mode)
	return &policy, nil
}

// resolvePolicy lets an override replace the catalog policy as a whole, and
// only when its mode is the requested one. Fields are never mixed.
func resolvePolicy(entry models.CatalogEntry, override *models.PricingOverride, mode models.PricingMode) models.EffectivePolicy {
	if override == nil {
		return catalog.Policy(entry)
	}
	if override.Mode != mode {
		log.Printf("[PRICING] override for %s has mode %s, wanted %s; using catalog default", entry.Key, override.Mode, mode)
		return catalog.Policy(entry)
	}
	return models.EffectivePolicy{
		Key:          entry.Key,
		Scope:        entry.Scope,
		Mode:         override.Mode,
		PricePerUnit: override.PricePerUnit,
		FlatPrice:    override.FlatPrice,
		MinQty:       override.MinQty,
		MaxQty:       override.MaxQty,
		Overridden:   true,
		Version:      override.Version,
	}
}

// Version is the cheap probe clients use to validate cached pricing.
func (s *PricingService) Version(ctx context.Context, scope string) (int64, error) {
	if !validScope(scope) {
		return 0, ErrUnknownItem
	}
	return s.scopeVersion(ctx, s.db, scope)
}

// Bulk resolves every entry of a scope. Version and overrides are read from
// one snapshot so the stamp always describes the returned data.
func (s *PricingService) Bulk(ctx context.Context, scope string) (*models.PricingBulk, error) {
	if !validScope(scope) {
		return nil, ErrUnknownItem
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	version, err := s.scopeVersion(ctx, tx, scope)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("pricing:bulk:%s:v%d", scope, version)
	if bulk := s.cachedBulk(ctx, cacheKey); bulk != nil {
		return bulk, nil
	}

	overrides, err := s.listOverrides(ctx, tx, scope)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	bulk := &models.PricingBulk{
		Scope:    scope,
		Version:  version,
		Policies: make(map[string]models.EffectivePolicy),
	}
	for _, entry := range s.catalog.Scope(scope) {
		bulk.Policies[entry.Key] = resolvePolicy(entry, overrides[entry.Key], entry.Mode)
	}

	s.storeBulk(ctx, cacheKey, bulk)
	return bulk, nil
}

// SetOverride writes an override and bumps the scope version. With an
// expected version the write only succeeds if nobody changed the override in
// between; without one it is last-write-wins and the superseded version is
// audited.
func (s *PricingService) SetOverride(ctx context.Context, key string, req models.SetOverrideRequest, actor string) (*models.PricingOverride, error) {
	entry, err := s.Entry(key)
	if err != nil {
		return nil, err
	}
	if err := checkOverride(entry, req); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now()
	var version int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO pricing_overrides (key, scope, mode, price_per_unit, flat_price, min_qty, max_qty, version, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1, $8, $9)
		ON CONFLICT (key) DO UPDATE SET
			scope = EXCLUDED.scope,
			mode = EXCLUDED.mode,
			price_per_unit = EXCLUDED.price_per_unit,
			flat_price = EXCLUDED.flat_price,
			min_qty = EXCLUDED.min_qty,
			max_qty = EXCLUDED.max_qty,
			version = pricing_overrides.version + 1,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
		WHERE $10::bigint IS NULL OR pricing_overrides.version = $10
		RETURNING version`,
		key, entry.Scope, req.Mode, req.PricePerUnit, req.FlatPrice, req.MinQty, req.MaxQty,
		actor, now, req.ExpectedVersion).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStaleOverride
	}
	if err != nil {
		return nil, fmt.Errorf("write override: %w", err)
	}
	if req.ExpectedVersion != nil && version != *req.ExpectedVersion+1 {
		return nil, ErrStaleOverride
	}

	if _, err := s.bumpScope(ctx, tx, entry.Scope); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.audit.LogPricing(key, actor, version-1, version, req.ExpectedVersion != nil)
	return &models.PricingOverride{
		Key:          key,
		Scope:        entry.Scope,
		Mode:         req.Mode,
		PricePerUnit: req.PricePerUnit,
		FlatPrice:    req.FlatPrice,
		MinQty:       req.MinQty,
		MaxQty:       req.MaxQty,
		Version:      version,
		UpdatedBy:    actor,
		UpdatedAt:    now,
	}, nil
}

// ClearOverride removes the override so the catalog default applies again.
// Clearing a key without override is a no-op.
func (s *PricingService) ClearOverride(ctx context.Context, key string, expectedVersion *int64, actor string) error {
	entry, err := s.Entry(key)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var version int64
	err = tx.QueryRowContext(ctx, `
		DELETE FROM pricing_overrides
		WHERE key = $1 AND ($2::bigint IS NULL OR version = $2)
		RETURNING version`, key, expectedVersion).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		if expectedVersion != nil {
			return ErrStaleOverride
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("clear override: %w", err)
	}

	if _, err := s.bumpScope(ctx, tx, entry.Scope); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.audit.LogPricing(key, actor, version, 0, expectedVersion != nil)
	return nil
}

// Overrides lists the stored overrides of a scope.
func (s *PricingService) Overrides(ctx context.Context, scope string) ([]models.PricingOverride, error) {
	if !validScope(scope) {
		return nil, ErrUnknownItem
	}
	byKey, err := s.listOverrides(ctx, s.db, scope)
	if err != nil {
		return nil, err
	}

	out := []models.PricingOverride{}
	for _, entry := range s.catalog.Scope(scope) {
		if o, ok := byKey[entry.Key]; ok {
			out = append(out, *o)
		}
	}
	return out, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const overrideColumns = `key, scope, mode, price_per_unit, flat_price, min_qty, max_qty, version, updated_by, updated_at`

func (s *PricingService) getOverride(ctx context.Context, key string) (*models.PricingOverride, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+overrideColumns+` FROM pricing_overrides WHERE key = $1`, key)
	if err != nil {
		return nil, fmt.Errorf("get override: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanOverride(rows)
}

func (s *PricingService) listOverrides(ctx context.Context, q querier, scope string) (map[string]*models.PricingOverride, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+overrideColumns+` FROM pricing_overrides WHERE scope = $1`, scope)
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*models.PricingOverride)
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		out[o.Key] = o
	}
	return out, rows.Err()
}

func scanOverride(rows *sql.Rows) (*models.PricingOverride, error) {
	var (
		o             models.PricingOverride
		perUnit, flat decimal.NullDecimal
	)
	if err := rows.Scan(&o.Key, &o.Scope, &o.Mode, &perUnit, &flat, &o.MinQty, &o.MaxQty, &o.Version, &o.UpdatedBy, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.PricePerUnit = decimalPtr(perUnit)
	o.FlatPrice = decimalPtr(flat)
	return &o, nil
}

func decimalPtr(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	v := n.Decimal
	return &v
}

func (s *PricingService) scopeVersion(ctx context.Context, q querier, scope string) (int64, error) {
	var version int64
	err := q.QueryRowContext(ctx, `SELECT version FROM pricing_versions WHERE scope = $1`, scope).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("pricing version: %w", err)
	}
	return version, nil
}

func (s *PricingService) bumpScope(ctx context.Context, tx *sql.Tx, scope string) (int64, error) {
	var version int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO pricing_versions (scope, version) VALUES ($1, 1)
		ON CONFLICT (scope) DO UPDATE SET version = pricing_versions.version + 1
		RETURNING version`, scope).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("bump pricing version: %w", err)
	}
	return version, nil
}

func (s *PricingService) cachedBulk(ctx context.Context, key string) *models.PricingBulk {
	if s.redis == nil {
		return nil
	}
	data, err := s.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		log.Printf("[PRICING] cache read failed: %v", err)
		return nil
	}

	var bulk models.PricingBulk
	if err := json.Unmarshal(data, &bulk); err != nil {
		log.Printf("[PRICING] dropping malformed cache entry %s: %v", key, err)
		return nil
	}
	return &bulk
}

func (s *PricingService) storeBulk(ctx context.Context, key string, bulk *models.PricingBulk) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(bulk)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, data, s.bulkTTL).Err(); err != nil {
		log.Printf("[PRICING] cache write failed: %v", err)
	}
}

func checkOverride(entry models.CatalogEntry, req models.SetOverrideRequest) error {
	if entry.Kind == models.KindCode && (req.MinQty != 1 || req.MaxQty != 1) {
		return fmt.Errorf("%w: code items sell one code per order", ErrQuantityOutOfBounds)
	}
	switch req.Mode {
	case models.ModePerThousand:
		if req.PricePerUnit == nil || !req.PricePerUnit.IsPositive() {
			return fmt.Errorf("%w: price_per_unit", ErrInvalidAmount)
		}
	case models.ModeFlat, models.ModePackage:
		if req.FlatPrice == nil || !req.FlatPrice.IsPositive() {
			return fmt.Errorf("%w: flat_price", ErrInvalidAmount)
		}
	default:
		return fmt.Errorf("%w: unknown mode", ErrInvalidAmount)
	}
	return nil
}

func validScope(scope string) bool {
	return scope == models.ScopeServices || scope == models.ScopeCodes || scope == models.ScopePackages
}
