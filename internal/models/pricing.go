package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// PricingMode defines how a policy turns a quantity into a price.
type PricingMode string

const (
	ModePerThousand PricingMode = "per_thousand"
	ModeFlat        PricingMode = "flat"
	ModePackage     PricingMode = "package"
)

// Valid reports whether m is a known pricing mode.
func (m PricingMode) Valid() bool {
	switch m {
	case ModePerThousand, ModeFlat, ModePackage:
		return true
	}
	return false
}

// Catalog scopes. A pricing version counter exists per scope.
const (
	ScopeServices = "services"
	ScopeCodes    = "codes"
	ScopePackages = "packages"
)

// CatalogEntry is one static catalog item.
type CatalogEntry struct {
	Key             string           `json:"key"`
	Scope           string           `json:"scope"`
	Name            string           `json:"name"`
	Kind            OrderKind        `json:"kind"`
	Mode            PricingMode      `json:"mode"`
	PricePerUnit    *decimal.Decimal `json:"price_per_unit,omitempty"`
	FlatPrice       *decimal.Decimal `json:"flat_price,omitempty"`
	MinQty          int              `json:"min_qty"`
	MaxQty          int              `json:"max_qty"`
	ProviderService string           `json:"provider_service,omitempty"`
	PoolKey         string           `json:"pool_key,omitempty"`
}

// PricingOverride is an operator policy for one catalog key.
type PricingOverride struct {
	Key          string           `json:"key"`
	Scope        string           `json:"scope"`
	Mode         PricingMode      `json:"mode"`
	PricePerUnit *decimal.Decimal `json:"price_per_unit,omitempty" swaggertype:"string"`
	FlatPrice    *decimal.Decimal `json:"flat_price,omitempty" swaggertype:"string"`
	MinQty       int              `json:"min_qty"`
	MaxQty       int              `json:"max_qty"`
	Version      int64            `json:"version"`
	UpdatedBy    string           `json:"updated_by"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// SetOverrideRequest is the body of PUT /admin/pricing/{key}.
// ExpectedVersion enables the optimistic check; omit it for last-write-wins.
type SetOverrideRequest struct {
	Mode            PricingMode      `json:"mode" validate:"required,oneof=per_thousand flat package"`
	PricePerUnit    *decimal.Decimal `json:"price_per_unit" swaggertype:"string"`
	FlatPrice       *decimal.Decimal `json:"flat_price" swaggertype:"string"`
	MinQty          int              `json:"min_qty" validate:"gte=1"`
	MaxQty          int              `json:"max_qty" validate:"gtefield=MinQty"`
	ExpectedVersion *int64           `json:"expected_version"`
}

// EffectivePolicy is the resolved price/quantity policy for one key.
type EffectivePolicy struct {
	Key          string           `json:"key"`
	Scope        string           `json:"scope"`
	Mode         PricingMode      `json:"mode"`
	PricePerUnit *decimal.Decimal `json:"price_per_unit,omitempty" swaggertype:"string"`
	FlatPrice    *decimal.Decimal `json:"flat_price,omitempty" swaggertype:"string"`
	MinQty       int              `json:"min_qty"`
	MaxQty       int              `json:"max_qty"`
	Overridden   bool             `json:"overridden"`
	Version      int64            `json:"version,omitempty"`
}

var errPolicyPriceMissing = errors.New("policy has no price for its mode")

// Allows reports whether qty is within the policy bounds.
func (p EffectivePolicy) Allows(qty int) bool {
	return qty >= p.MinQty && qty <= p.MaxQty
}

// Price computes the charge for qty units, rounded up to cents.
func (p EffectivePolicy) Price(qty int) (decimal.Decimal, error) {
	switch p.Mode {
	case ModePerThousand:
		if p.PricePerUnit == nil {
			return decimal.Zero, errPolicyPriceMissing
		}
		return p.PricePerUnit.Mul(decimal.NewFromInt(int64(qty))).
			Div(decimal.NewFromInt(1000)).RoundCeil(2), nil
	case ModeFlat, ModePackage:
		if p.FlatPrice == nil {
			return decimal.Zero, errPolicyPriceMissing
		}
		return p.FlatPrice.Round(2), nil
	}
	return decimal.Zero, errors.New("unknown pricing mode")
}

// PricingBulk is the full resolved map of one scope.
type PricingBulk struct {
	Scope    string                     `json:"scope"`
	Version  int64                      `json:"version"`
	Policies map[string]EffectivePolicy `json:"policies"`
}

// PricingVersion is the cheap probe answered by GET /pricing/{scope}/version.
type PricingVersion struct {
	Scope   string `json:"scope"`
	Version int64  `json:"version"`
}
