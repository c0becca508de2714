package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/congo-pay/wallet_ledger/internal/infra"
)

type backendCase struct {
	name string
	open func(t *testing.T) Backend
}

// testBackends returns the memory and SQLite backends, plus Postgres when
// TEST_DATABASE_URL points at a disposable database.
func testBackends() []backendCase {
	cases := []backendCase{
		{name: "memory", open: func(t *testing.T) Backend {
			return NewInMemory("EUR", "USD", "GBP")
		}},
		{name: "sqlite", open: func(t *testing.T) Backend {
			s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "ledger.db"), true)
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		}},
	}
	if url := os.Getenv("TEST_DATABASE_URL"); url != "" {
		cases = append(cases, backendCase{name: "postgres", open: func(t *testing.T) Backend {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			pool, err := infra.NewPostgresPool(ctx, url, "wallet-ledger-test")
			require.NoError(t, err)
			s := NewPostgresStore(pool, 3)
			require.NoError(t, s.Migrate(ctx))
			_, err = pool.Exec(ctx, `TRUNCATE wallet_transaction, wallet RESTART IDENTITY CASCADE`)
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		}})
	}
	return cases
}

func forEachBackend(t *testing.T, fn func(t *testing.T, b Backend)) {
	for _, bc := range testBackends() {
		bc := bc
		t.Run(bc.name, func(t *testing.T) {
			fn(t, bc.open(t))
		})
	}
}
