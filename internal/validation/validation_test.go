package validation

import (
	"errors"
	"testing"

	"github.com/congo-pay/wallet_ledger/internal/apperr"
)

type sample struct {
	UserID   string `json:"userId" validate:"required"`
	Currency string `json:"currency" validate:"required"`
	Note     string `json:"note"`
}

func TestRequiredReportsJSONFieldName(t *testing.T) {
	err := Required(&sample{UserID: "u-1"})
	if !errors.Is(err, apperr.ErrMissingField) {
		t.Fatalf("expected missing field, got %v", err)
	}
	want := "Field currency is mandatory. It should be provided and can't be empty."
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}
}

func TestRequiredAcceptsCompleteInput(t *testing.T) {
	if err := Required(&sample{UserID: "u-1", Currency: "EUR"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
