package ledger

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/wallet_ledger/internal/currency"
	"github.com/congo-pay/wallet_ledger/internal/wallet"
)

// MemoryStore keeps wallets and transactions in process memory. A single
// mutex serializes all access and Atomic holds it for the whole unit of work.
type MemoryStore struct {
	*currency.StaticRegistry

	mu           sync.Mutex
	wallets      map[int64]wallet.Wallet
	walletOrder  []int64
	transactions []Transaction
	byGlobalID   map[string]int
	lastWalletID int64
	lastTxID     int64
}

// NewInMemory creates a memory backend knowing the given currencies, which are
// assigned ids 1..n in order.
func NewInMemory(currencies ...string) *MemoryStore {
	return &MemoryStore{
		StaticRegistry: currency.NewStaticRegistry(currencies...),
		wallets:        make(map[int64]wallet.Wallet),
		byGlobalID:     make(map[string]int),
	}
}

// Atomic runs fn with the store locked. Writes are journaled and undone in
// reverse order if fn fails or panics.
func (s *MemoryStore) Atomic(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	var undo []func()
	committed := false
	defer func() {
		if !committed {
			for i := len(undo) - 1; i >= 0; i-- {
				undo[i]()
			}
		}
		s.mu.Unlock()
	}()

	r := memRepos{s: s, undo: &undo}
	if err := fn(ctx, Repos{Wallets: r, Transactions: r}); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id int64) (wallet.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memRepos{s: s}.FindByID(ctx, id)
}

func (s *MemoryStore) FindByUser(ctx context.Context, userID string) ([]wallet.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memRepos{s: s}.FindByUser(ctx, userID)
}

func (s *MemoryStore) ListAll(ctx context.Context) ([]wallet.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memRepos{s: s}.ListAll(ctx)
}

func (s *MemoryStore) Create(ctx context.Context, userID string, cur currency.Currency, audit wallet.Audit) (wallet.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memRepos{s: s}.Create(ctx, userID, cur, audit)
}

func (s *MemoryStore) ApplyDelta(ctx context.Context, id int64, delta decimal.Decimal, audit wallet.Audit) (wallet.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memRepos{s: s}.ApplyDelta(ctx, id, delta, audit)
}

func (s *MemoryStore) FindByGlobalID(ctx context.Context, globalID string) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memRepos{s: s}.FindByGlobalID(ctx, globalID)
}

func (s *MemoryStore) FindByWallet(ctx context.Context, walletID int64) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memRepos{s: s}.FindByWallet(ctx, walletID)
}

func (s *MemoryStore) Insert(ctx context.Context, tx Transaction) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memRepos{s: s}.Insert(ctx, tx)
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// memRepos operates on a locked MemoryStore. A nil undo means writes are not
// journaled.
type memRepos struct {
	s    *MemoryStore
	undo *[]func()
}

func (r memRepos) journal(fn func()) {
	if r.undo != nil {
		*r.undo = append(*r.undo, fn)
	}
}

func (r memRepos) FindByID(_ context.Context, id int64) (wallet.Wallet, error) {
	w, ok := r.s.wallets[id]
	if !ok {
		return wallet.Wallet{}, wallet.NotFound(id)
	}
	return w, nil
}

func (r memRepos) FindByUser(_ context.Context, userID string) ([]wallet.Wallet, error) {
	var out []wallet.Wallet
	for _, id := range r.s.walletOrder {
		if w := r.s.wallets[id]; w.UserID == userID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (r memRepos) ListAll(_ context.Context) ([]wallet.Wallet, error) {
	out := make([]wallet.Wallet, 0, len(r.s.walletOrder))
	for _, id := range r.s.walletOrder {
		out = append(out, r.s.wallets[id])
	}
	return out, nil
}

func (r memRepos) Create(_ context.Context, userID string, cur currency.Currency, audit wallet.Audit) (wallet.Wallet, error) {
	r.s.lastWalletID++
	w := wallet.Wallet{
		ID:            r.s.lastWalletID,
		UserID:        userID,
		Currency:      cur,
		Balance:       decimal.Zero,
		LastUpdated:   audit.At,
		LastUpdatedBy: audit.By,
	}
	r.s.wallets[w.ID] = w
	r.s.walletOrder = append(r.s.walletOrder, w.ID)
	r.journal(func() {
		delete(r.s.wallets, w.ID)
		r.s.walletOrder = r.s.walletOrder[:len(r.s.walletOrder)-1]
	})
	return w, nil
}

func (r memRepos) ApplyDelta(_ context.Context, id int64, delta decimal.Decimal, audit wallet.Audit) (wallet.Wallet, error) {
	prev, ok := r.s.wallets[id]
	if !ok {
		return wallet.Wallet{}, wallet.NotFound(id)
	}
	next, err := wallet.NextBalance(prev, delta)
	if err != nil {
		return wallet.Wallet{}, err
	}
	w := prev
	w.Balance = next
	w.LastUpdated = audit.At
	w.LastUpdatedBy = audit.By
	r.s.wallets[id] = w
	r.journal(func() { r.s.wallets[id] = prev })
	return w, nil
}

func (r memRepos) FindByGlobalID(_ context.Context, globalID string) (Transaction, error) {
	idx, ok := r.s.byGlobalID[globalID]
	if !ok {
		return Transaction{}, ErrTransactionNotFound
	}
	return r.s.transactions[idx], nil
}

func (r memRepos) FindByWallet(_ context.Context, walletID int64) ([]Transaction, error) {
	var out []Transaction
	for _, tx := range r.s.transactions {
		if tx.WalletID == walletID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (r memRepos) Insert(_ context.Context, tx Transaction) (Transaction, error) {
	if _, exists := r.s.byGlobalID[tx.GlobalID]; exists {
		return Transaction{}, duplicateGlobalID(tx.GlobalID)
	}
	r.s.lastTxID++
	tx.ID = r.s.lastTxID
	r.s.transactions = append(r.s.transactions, tx)
	r.s.byGlobalID[tx.GlobalID] = len(r.s.transactions) - 1
	r.journal(func() {
		delete(r.s.byGlobalID, tx.GlobalID)
		r.s.transactions = r.s.transactions[:len(r.s.transactions)-1]
	})
	return tx, nil
}

var _ Backend = (*MemoryStore)(nil)
