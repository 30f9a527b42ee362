// Package catalog holds the static item list that pricing overrides are
// resolved against.
package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/smmwallet/backend/internal/models"
)

//go:embed catalog.json
var defaultCatalog []byte

type Catalog struct {
	entries map[string]models.CatalogEntry
}

type document struct {
	Entries []models.CatalogEntry `json:"entries"`
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Load(bytes.NewReader(defaultCatalog))
}

// Load decodes and validates a catalog document. Malformed data is an error,
// never an empty catalog.
func Load(r io.Reader) (*Catalog, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{entries: make(map[string]models.CatalogEntry, len(doc.Entries))}
	for i, e := range doc.Entries {
		if err := validate(e); err != nil {
			return nil, fmt.Errorf("catalog entry %d (%q): %w", i, e.Key, err)
		}
		if _, dup := c.entries[e.Key]; dup {
			return nil, fmt.Errorf("catalog entry %d: duplicate key %q", i, e.Key)
		}
		c.entries[e.Key] = e
	}
	return c, nil
}

func validate(e models.CatalogEntry) error {
	switch {
	case e.Key == "":
		return fmt.Errorf("missing key")
	case e.Scope != models.ScopeServices && e.Scope != models.ScopeCodes && e.Scope != models.ScopePackages:
		return fmt.Errorf("unknown scope %q", e.Scope)
	case !e.Kind.Valid():
		return fmt.Errorf("unknown kind %q", e.Kind)
	case !e.Mode.Valid():
		return fmt.Errorf("unknown mode %q", e.Mode)
	case e.MinQty < 1 || e.MaxQty < e.MinQty:
		return fmt.Errorf("invalid bounds %d..%d", e.MinQty, e.MaxQty)
	case e.Mode == models.ModePerThousand && e.PricePerUnit == nil:
		return fmt.Errorf("per_thousand entry needs price_per_unit")
	case e.Mode != models.ModePerThousand && e.FlatPrice == nil:
		return fmt.Errorf("%s entry needs flat_price", e.Mode)
	case e.Kind == models.KindCode && e.PoolKey == "":
		return fmt.Errorf("code entry needs pool_key")
	case e.Kind == models.KindProvider && e.ProviderService == "":
		return fmt.Errorf("provider entry needs provider_service")
	}
	return nil
}

func (c *Catalog) Get(key string) (models.CatalogEntry, bool) {
	e, ok := c.entries[key]
	return e, ok
}

// Scope lists the entries of one scope ordered by key.
func (c *Catalog) Scope(scope string) []models.CatalogEntry {
	var out []models.CatalogEntry
	for _, e := range c.entries {
		if e.Scope == scope {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Policy is the catalog default policy of e.
func Policy(e models.CatalogEntry) models.EffectivePolicy {
	return models.EffectivePolicy{
		Key:          e.Key,
		Scope:        e.Scope,
		Mode:         e.Mode,
		PricePerUnit: e.PricePerUnit,
		FlatPrice:    e.FlatPrice,
		MinQty:       e.MinQty,
		MaxQty:       e.MaxQty,
	}
}
