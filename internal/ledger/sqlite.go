package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/congo-pay/wallet_ledger/internal/currency"
	"github.com/congo-pay/wallet_ledger/internal/ledger/schema"
	"github.com/congo-pay/wallet_ledger/internal/wallet"
)

// sqlQuerier is satisfied by both *sql.DB and *sql.Tx.
type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore persists wallets and transactions in a SQLite file. It holds a
// single connection and begins every transaction IMMEDIATE, so units of work
// never interleave.
type SQLiteStore struct {
	db *sql.DB
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// OpenSQLite opens the database at path and, when migrate is set, applies the
// embedded schema.
func OpenSQLite(ctx context.Context, path string, migrate bool) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	s := &SQLiteStore{db: db}
	if migrate {
		if err := s.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// Migrate creates the tables and seeds reference data.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema.SQLite); err != nil {
		return fmt.Errorf("apply sqlite schema: %w", err)
	}
	return nil
}

// Atomic runs fn inside one database transaction.
func (s *SQLiteStore) Atomic(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	r := sqliteRepos{q: tx}
	if err := fn(ctx, Repos{Wallets: r, Transactions: r}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}

func (s *SQLiteStore) direct() sqliteRepos { return sqliteRepos{q: s.db} }

// Resolve returns the currency with the given name.
func (s *SQLiteStore) Resolve(ctx context.Context, name string) (currency.Currency, error) {
	var c currency.Currency
	err := s.db.QueryRowContext(ctx, `SELECT id, name FROM currency WHERE name = ?`, name).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return currency.Currency{}, currency.NotFound(name)
	}
	if err != nil {
		return currency.Currency{}, fmt.Errorf("resolve currency %s: %w", name, err)
	}
	return c, nil
}

// List returns every currency ordered by id.
func (s *SQLiteStore) List(ctx context.Context) ([]currency.Currency, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM currency ORDER BY id`)
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

func (s *SQLiteStore) FindByID(ctx context.Context, id int64) (wallet.Wallet, error) {
	return s.direct().FindByID(ctx, id)
}

func (s *SQLiteStore) FindByUser(ctx context.Context, userID string) ([]wallet.Wallet, error) {
	return s.direct().FindByUser(ctx, userID)
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]wallet.Wallet, error) {
	return s.direct().ListAll(ctx)
}

func (s *SQLiteStore) Create(ctx context.Context, userID string, cur currency.Currency, audit wallet.Audit) (wallet.Wallet, error) {
	return s.direct().Create(ctx, userID, cur, audit)
}

// ApplyDelta runs in its own unit of work.
func (s *SQLiteStore) ApplyDelta(ctx context.Context, id int64, delta decimal.Decimal, audit wallet.Audit) (wallet.Wallet, error) {
	var out wallet.Wallet
	err := s.Atomic(ctx, func(ctx context.Context, repos Repos) error {
		var err error
		out, err = repos.Wallets.ApplyDelta(ctx, id, delta, audit)
		return err
	})
	return out, err
}

func (s *SQLiteStore) FindByGlobalID(ctx context.Context, globalID string) (Transaction, error) {
	return s.direct().FindByGlobalID(ctx, globalID)
}

func (s *SQLiteStore) FindByWallet(ctx context.Context, walletID int64) ([]Transaction, error) {
	return s.direct().FindByWallet(ctx, walletID)
}

func (s *SQLiteStore) Insert(ctx context.Context, tx Transaction) (Transaction, error) {
	return s.direct().Insert(ctx, tx)
}

// Ping checks the database handle.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type sqliteRepos struct {
	q sqlQuerier
}

const sqliteWalletSelect = `SELECT w.id, w.user_id, c.id, c.name, w.balance, w.last_updated, w.last_updated_by
    FROM wallet w JOIN currency c ON c.id = w.currency_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteWallet(row rowScanner) (wallet.Wallet, error) {
	var (
		w       wallet.Wallet
		balance string
		updated int64
	)
	if err := row.Scan(&w.ID, &w.UserID, &w.Currency.ID, &w.Currency.Name, &balance, &updated, &w.LastUpdatedBy); err != nil {
		return wallet.Wallet{}, err
	}
	b, err := decimal.NewFromString(balance)
	if err != nil {
		return wallet.Wallet{}, fmt.Errorf("parse balance %q: %w", balance, err)
	}
	w.Balance = b
	w.LastUpdated = fromMillis(updated)
	return w, nil
}

func (r sqliteRepos) FindByID(ctx context.Context, id int64) (wallet.Wallet, error) {
	w, err := scanSQLiteWallet(r.q.QueryRowContext(ctx, sqliteWalletSelect+` WHERE w.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return wallet.Wallet{}, wallet.NotFound(id)
	}
	if err != nil {
		return wallet.Wallet{}, fmt.Errorf("find wallet %d: %w", id, err)
	}
	return w, nil
}

func (r sqliteRepos) queryWallets(ctx context.Context, query string, args ...any) ([]wallet.Wallet, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query wallets: %w", err)
	}
	defer rows.Close()

	var out []wallet.Wallet
	for rows.Next() {
		w, err := scanSQLiteWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r sqliteRepos) FindByUser(ctx context.Context, userID string) ([]wallet.Wallet, error) {
	return r.queryWallets(ctx, sqliteWalletSelect+` WHERE w.user_id = ? ORDER BY w.id`, userID)
}

func (r sqliteRepos) ListAll(ctx context.Context) ([]wallet.Wallet, error) {
	return r.queryWallets(ctx, sqliteWalletSelect+` ORDER BY w.id`)
}

func (r sqliteRepos) Create(ctx context.Context, userID string, cur currency.Currency, audit wallet.Audit) (wallet.Wallet, error) {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO wallet (user_id, currency_id, balance, last_updated, last_updated_by) VALUES (?, ?, '0', ?, ?)`,
		userID, cur.ID, toMillis(audit.At), audit.By)
	if err != nil {
		return wallet.Wallet{}, fmt.Errorf("insert wallet: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return wallet.Wallet{}, fmt.Errorf("wallet id: %w", err)
	}
	return wallet.Wallet{
		ID:            id,
		UserID:        userID,
		Currency:      cur,
		Balance:       decimal.Zero,
		LastUpdated:   fromMillis(toMillis(audit.At)),
		LastUpdatedBy: audit.By,
	}, nil
}

func (r sqliteRepos) ApplyDelta(ctx context.Context, id int64, delta decimal.Decimal, audit wallet.Audit) (wallet.Wallet, error) {
	w, err := r.FindByID(ctx, id)
	if err != nil {
		return wallet.Wallet{}, err
	}
	next, err := wallet.NextBalance(w, delta)
	if err != nil {
		return wallet.Wallet{}, err
	}
	if _, err := r.q.ExecContext(ctx,
		`UPDATE wallet SET balance = ?, last_updated = ?, last_updated_by = ? WHERE id = ?`,
		next.String(), toMillis(audit.At), audit.By, id); err != nil {
		return wallet.Wallet{}, fmt.Errorf("update wallet %d balance: %w", id, err)
	}
	w.Balance = next
	w.LastUpdated = fromMillis(toMillis(audit.At))
	w.LastUpdatedBy = audit.By
	return w, nil
}

const sqliteTransactionSelect = `SELECT t.id, t.global_id, tt.id, tt.description, t.amount, t.wallet_id,
        c.id, c.name, t.description, t.last_updated, t.last_updated_by
    FROM wallet_transaction t
    JOIN transaction_type tt ON tt.id = t.transaction_type_id
    JOIN currency c ON c.id = t.currency_id`

func scanSQLiteTransaction(row rowScanner) (Transaction, error) {
	var (
		tx      Transaction
		amount  string
		updated int64
	)
	if err := row.Scan(&tx.ID, &tx.GlobalID, &tx.Type.ID, &tx.Type.Description, &amount, &tx.WalletID,
		&tx.Currency.ID, &tx.Currency.Name, &tx.Description, &updated, &tx.LastUpdatedBy); err != nil {
		return Transaction{}, err
	}
	a, err := decimal.NewFromString(amount)
	if err != nil {
		return Transaction{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	tx.Amount = a
	tx.LastUpdated = fromMillis(updated)
	return tx, nil
}

func (r sqliteRepos) FindByGlobalID(ctx context.Context, globalID string) (Transaction, error) {
	tx, err := scanSQLiteTransaction(r.q.QueryRowContext(ctx, sqliteTransactionSelect+` WHERE t.global_id = ?`, globalID))
	if errors.Is(err, sql.ErrNoRows) {
		return Transaction{}, ErrTransactionNotFound
	}
	if err != nil {
		return Transaction{}, fmt.Errorf("find transaction %s: %w", globalID, err)
	}
	return tx, nil
}

func (r sqliteRepos) FindByWallet(ctx context.Context, walletID int64) ([]Transaction, error) {
	rows, err := r.q.QueryContext(ctx, sqliteTransactionSelect+` WHERE t.wallet_id = ? ORDER BY t.id`, walletID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		tx, err := scanSQLiteTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (r sqliteRepos) Insert(ctx context.Context, tx Transaction) (Transaction, error) {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO wallet_transaction
           (global_id, transaction_type_id, amount, wallet_id, currency_id, description, last_updated, last_updated_by)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.GlobalID, tx.Type.ID, tx.Amount.String(), tx.WalletID, tx.Currency.ID, tx.Description,
		toMillis(tx.LastUpdated), tx.LastUpdatedBy)
	if isSQLiteUniqueViolation(err) {
		return Transaction{}, duplicateGlobalID(tx.GlobalID)
	}
	if err != nil {
		return Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Transaction{}, fmt.Errorf("transaction id: %w", err)
	}
	tx.ID = id
	tx.LastUpdated = fromMillis(toMillis(tx.LastUpdated))
	return tx, nil
}

var _ Backend = (*SQLiteStore)(nil)
