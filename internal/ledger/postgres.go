package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/wallet_ledger/internal/currency"
	"github.com/congo-pay/wallet_ledger/internal/ledger/schema"
	"github.com/congo-pay/wallet_ledger/internal/wallet"
)

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// pgQuerier is satisfied by both *pgxpool.Pool and pgx.Tx.
type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists wallets and transactions in PostgreSQL. Units of work
// lock the wallet row with SELECT ... FOR UPDATE until commit.
type PostgresStore struct {
	db         *pgxpool.Pool
	maxRetries int
}

// NewPostgresStore wraps a pool. Units of work failing with a serialization
// failure or deadlock are retried up to maxRetries times.
func NewPostgresStore(db *pgxpool.Pool, maxRetries int) *PostgresStore {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &PostgresStore{db: db, maxRetries: maxRetries}
}

// Migrate creates the tables and seeds reference data.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema.Postgres); err != nil {
		return fmt.Errorf("apply postgres schema: %w", err)
	}
	return nil
}

// Atomic runs fn inside one database transaction.
func (s *PostgresStore) Atomic(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error {
	var err error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		err = s.atomicOnce(ctx, fn)
		if !isRetryable(err) {
			return err
		}
	}
	return err
}

func (s *PostgresStore) atomicOnce(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	r := pgRepos{q: tx, lock: true}
	if err := fn(ctx, Repos{Wallets: r, Transactions: r}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func (s *PostgresStore) direct() pgRepos { return pgRepos{q: s.db} }

// Resolve returns the currency with the given name.
func (s *PostgresStore) Resolve(ctx context.Context, name string) (currency.Currency, error) {
	var c currency.Currency
	err := s.db.QueryRow(ctx, `SELECT id, name FROM currency WHERE name = $1`, name).Scan(&c.ID, &c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return currency.Currency{}, currency.NotFound(name)
	}
	if err != nil {
		return currency.Currency{}, fmt.Errorf("resolve currency %s: %w", name, err)
	}
	return c, nil
}

// List returns every currency ordered by id.
func (s *PostgresStore) List(ctx context.Context) ([]currency.Currency, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name FROM currency ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list currencies: %w", err)
	}
	defer rows.Close()

	var out []currency.Currency
	for rows.Next() {
		var c currency.Currency
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan currency: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (wallet.Wallet, error) {
	return s.direct().FindByID(ctx, id)
}

func (s *PostgresStore) FindByUser(ctx context.Context, userID string) ([]wallet.Wallet, error) {
	return s.direct().FindByUser(ctx, userID)
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]wallet.Wallet, error) {
	return s.direct().ListAll(ctx)
}

func (s *PostgresStore) Create(ctx context.Context, userID string, cur currency.Currency, audit wallet.Audit) (wallet.Wallet, error) {
	return s.direct().Create(ctx, userID, cur, audit)
}

// ApplyDelta runs in its own unit of work so the row lock covers the
// read-check-write.
func (s *PostgresStore) ApplyDelta(ctx context.Context, id int64, delta decimal.Decimal, audit wallet.Audit) (wallet.Wallet, error) {
	var out wallet.Wallet
	err := s.Atomic(ctx, func(ctx context.Context, repos Repos) error {
		var err error
		out, err = repos.Wallets.ApplyDelta(ctx, id, delta, audit)
		return err
	})
	return out, err
}

func (s *PostgresStore) FindByGlobalID(ctx context.Context, globalID string) (Transaction, error) {
	return s.direct().FindByGlobalID(ctx, globalID)
}

func (s *PostgresStore) FindByWallet(ctx context.Context, walletID int64) ([]Transaction, error) {
	return s.direct().FindByWallet(ctx, walletID)
}

func (s *PostgresStore) Insert(ctx context.Context, tx Transaction) (Transaction, error) {
	return s.direct().Insert(ctx, tx)
}

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

// pgRepos runs queries on a pool or a transaction. lock adds FOR UPDATE to
// wallet reads and is only set inside a unit of work.
type pgRepos struct {
	q    pgQuerier
	lock bool
}

const pgWalletColumns = `w.id, w.user_id, c.id, c.name, w.balance::text, w.last_updated, w.last_updated_by`

const pgWalletFrom = ` FROM wallet w JOIN currency c ON c.id = w.currency_id`

func scanPgWallet(row pgx.Row) (wallet.Wallet, error) {
	var (
		w       wallet.Wallet
		balance string
	)
	if err := row.Scan(&w.ID, &w.UserID, &w.Currency.ID, &w.Currency.Name, &balance, &w.LastUpdated, &w.LastUpdatedBy); err != nil {
		return wallet.Wallet{}, err
	}
	b, err := decimal.NewFromString(balance)
	if err != nil {
		return wallet.Wallet{}, fmt.Errorf("parse balance %q: %w", balance, err)
	}
	w.Balance = b
	w.LastUpdated = w.LastUpdated.UTC()
	return w, nil
}

func (r pgRepos) FindByID(ctx context.Context, id int64) (wallet.Wallet, error) {
	query := `SELECT ` + pgWalletColumns + pgWalletFrom + ` WHERE w.id = $1`
	if r.lock {
		query += ` FOR UPDATE OF w`
	}
	w, err := scanPgWallet(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return wallet.Wallet{}, wallet.NotFound(id)
	}
	if err != nil {
		return wallet.Wallet{}, fmt.Errorf("find wallet %d: %w", id, err)
	}
	return w, nil
}

func (r pgRepos) queryWallets(ctx context.Context, query string, args ...any) ([]wallet.Wallet, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query wallets: %w", err)
	}
	defer rows.Close()

	var out []wallet.Wallet
	for rows.Next() {
		w, err := scanPgWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r pgRepos) FindByUser(ctx context.Context, userID string) ([]wallet.Wallet, error) {
	return r.queryWallets(ctx, `SELECT `+pgWalletColumns+pgWalletFrom+` WHERE w.user_id = $1 ORDER BY w.id`, userID)
}

func (r pgRepos) ListAll(ctx context.Context) ([]wallet.Wallet, error) {
	return r.queryWallets(ctx, `SELECT `+pgWalletColumns+pgWalletFrom+` ORDER BY w.id`)
}

func (r pgRepos) Create(ctx context.Context, userID string, cur currency.Currency, audit wallet.Audit) (wallet.Wallet, error) {
	const query = `INSERT INTO wallet (user_id, currency_id, balance, last_updated, last_updated_by)
        VALUES ($1, $2, 0, $3, $4) RETURNING id`
	w := wallet.Wallet{
		UserID:        userID,
		Currency:      cur,
		Balance:       decimal.Zero,
		LastUpdated:   audit.At,
		LastUpdatedBy: audit.By,
	}
	if err := r.q.QueryRow(ctx, query, userID, cur.ID, audit.At, audit.By).Scan(&w.ID); err != nil {
		return wallet.Wallet{}, fmt.Errorf("insert wallet: %w", err)
	}
	return w, nil
}

func (r pgRepos) ApplyDelta(ctx context.Context, id int64, delta decimal.Decimal, audit wallet.Audit) (wallet.Wallet, error) {
	w, err := r.FindByID(ctx, id)
	if err != nil {
		return wallet.Wallet{}, err
	}
	next, err := wallet.NextBalance(w, delta)
	if err != nil {
		return wallet.Wallet{}, err
	}
	const query = `UPDATE wallet SET balance = $1::numeric, last_updated = $2, last_updated_by = $3 WHERE id = $4`
	if _, err := r.q.Exec(ctx, query, next.String(), audit.At, audit.By, id); err != nil {
		return wallet.Wallet{}, fmt.Errorf("update wallet %d balance: %w", id, err)
	}
	w.Balance = next
	w.LastUpdated = audit.At
	w.LastUpdatedBy = audit.By
	return w, nil
}

const pgTransactionSelect = `SELECT t.id, t.global_id, tt.id, tt.description, t.amount::text, t.wallet_id,
        c.id, c.name, t.description, t.last_updated, t.last_updated_by
    FROM wallet_transaction t
    JOIN transaction_type tt ON tt.id = t.transaction_type_id
    JOIN currency c ON c.id = t.currency_id`

func scanPgTransaction(row pgx.Row) (Transaction, error) {
	var (
		tx     Transaction
		amount string
	)
	if err := row.Scan(&tx.ID, &tx.GlobalID, &tx.Type.ID, &tx.Type.Description, &amount, &tx.WalletID,
		&tx.Currency.ID, &tx.Currency.Name, &tx.Description, &tx.LastUpdated, &tx.LastUpdatedBy); err != nil {
		return Transaction{}, err
	}
	a, err := decimal.NewFromString(amount)
	if err != nil {
		return Transaction{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	tx.Amount = a
	tx.LastUpdated = tx.LastUpdated.UTC()
	return tx, nil
}

func (r pgRepos) FindByGlobalID(ctx context.Context, globalID string) (Transaction, error) {
	tx, err := scanPgTransaction(r.q.QueryRow(ctx, pgTransactionSelect+` WHERE t.global_id = $1`, globalID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrTransactionNotFound
	}
	if err != nil {
		return Transaction{}, fmt.Errorf("find transaction %s: %w", globalID, err)
	}
	return tx, nil
}

func (r pgRepos) FindByWallet(ctx context.Context, walletID int64) ([]Transaction, error) {
	rows, err := r.q.Query(ctx, pgTransactionSelect+` WHERE t.wallet_id = $1 ORDER BY t.id`, walletID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		tx, err := scanPgTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (r pgRepos) Insert(ctx context.Context, tx Transaction) (Transaction, error) {
	const query = `INSERT INTO wallet_transaction
        (global_id, transaction_type_id, amount, wallet_id, currency_id, description, last_updated, last_updated_by)
        VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8) RETURNING id`
	err := r.q.QueryRow(ctx, query, tx.GlobalID, tx.Type.ID, tx.Amount.String(), tx.WalletID,
		tx.Currency.ID, tx.Description, tx.LastUpdated, tx.LastUpdatedBy).Scan(&tx.ID)
	if isUniqueViolation(err) {
		return Transaction{}, duplicateGlobalID(tx.GlobalID)
	}
	if err != nil {
		return Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return tx, nil
}

var (
	_ Backend   = (*PostgresStore)(nil)
	_ pgQuerier = (*pgxpool.Pool)(nil)
)
