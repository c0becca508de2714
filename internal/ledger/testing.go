package ledger

import "github.com/shopspring/decimal"

// SeedBalance is a test helper that overwrites a wallet balance in the memory
// backend without recording a transaction.
func SeedBalance(s *MemoryStore, walletID int64, balance decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.wallets[walletID]; ok {
		w.Balance = balance
		s.wallets[walletID] = w
	}
}
