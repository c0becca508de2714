package currency

import (
	"context"
	"errors"
	"testing"

	"github.com/congo-pay/wallet_ledger/internal/apperr"
)

func TestStaticRegistryResolve(t *testing.T) {
	reg := NewStaticRegistry("EUR", " USD ", "", "EUR", "GBP")
	ctx := context.Background()

	usd, err := reg.Resolve(ctx, "USD")
	if err != nil {
		t.Fatalf("resolve USD: %v", err)
	}
	if usd.ID != 2 || usd.Name != "USD" {
		t.Fatalf("unexpected currency %+v", usd)
	}

	if _, err := reg.Resolve(ctx, "ZZZ"); !errors.Is(err, apperr.ErrCurrencyNotFound) {
		t.Fatalf("expected currency not found, got %v", err)
	}

	all, _ := reg.List(ctx)
	if len(all) != 3 || all[0].Name != "EUR" || all[2].Name != "GBP" {
		t.Fatalf("unexpected list %+v", all)
	}
}
