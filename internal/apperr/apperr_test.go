package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelMatchesAnyMessageOfSameKind(t *testing.T) {
	err := New(WalletNotFound, MsgWalletNotFound, "42")
	if !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("expected %v to match ErrWalletNotFound", err)
	}
	if errors.Is(err, ErrCurrencyNotFound) {
		t.Fatal("wallet error must not match currency sentinel")
	}
	if err.Error() != "No wallet with id 42 exists in the system." {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestKindOfUnwrapsWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("create transaction: %w", New(DuplicateGlobalID, MsgDuplicateGlobalID, "tx-1"))
	kind, ok := KindOf(wrapped)
	if !ok || kind != DuplicateGlobalID {
		t.Fatalf("expected duplicate kind, got %q ok=%v", kind, ok)
	}
	if _, ok := KindOf(errors.New("connection reset")); ok {
		t.Fatal("plain errors carry no kind")
	}
}
