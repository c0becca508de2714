package currency

import (
	"context"
	"sort"
	"strings"

	"github.com/congo-pay/wallet_ledger/internal/apperr"
)

// Registry resolves currency names to their identity.
type Registry interface {
	Resolve(ctx context.Context, name string) (Currency, error)
	List(ctx context.Context) ([]Currency, error)
}

// StaticRegistry is a fixed, read-only set of currencies.
type StaticRegistry struct {
	byName map[string]Currency
}

// NewStaticRegistry assigns ids 1..n to names in the order given. Blank and
// repeated names are skipped.
func NewStaticRegistry(names ...string) *StaticRegistry {
	r := &StaticRegistry{byName: make(map[string]Currency, len(names))}
	var next int64
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, exists := r.byName[name]; exists {
			continue
		}
		next++
		r.byName[name] = Currency{ID: next, Name: name}
	}
	return r
}

// Resolve returns the currency with the given name.
func (r *StaticRegistry) Resolve(_ context.Context, name string) (Currency, error) {
	c, ok := r.byName[name]
	if !ok {
		return Currency{}, NotFound(name)
	}
	return c, nil
}

// List returns every currency ordered by id.
func (r *StaticRegistry) List(_ context.Context) ([]Currency, error) {
	out := make([]Currency, 0, len(r.byName))
	for _, c := range r.byName {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// NotFound builds the error returned for an unknown currency name.
func NotFound(name string) error {
	return apperr.New(apperr.CurrencyNotFound, apperr.MsgCurrencyNotFound, name)
}
