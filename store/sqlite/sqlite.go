/*
Package sqlite provides a SQLite-backed implementation of the ledger store.

PURPOSE:
  Implements ledger.Store using SQLite. In production the same patterns apply
  to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  clients:   Customer reference data (unique names)
  beers:     Catalog reference data (unique names, money stored as decimal
             strings, never binary floats)
  movements: The ledger. One row per delivery/return, FK references to
             clients and beers, frozen price/deposit columns.

MUTATION SURFACE:
  Movements are inserted and hard-deleted; there is no UPDATE statement on
  the movements table anywhere in this package. The frozen price/deposit
  columns therefore cannot drift from their creation-time values.

CONCURRENCY:
  Uses sync.RWMutex for in-process thread-safety. Each operation is one
  statement; the database's transaction isolation is the only cross-process
  serialization.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) and foreign keys on.

USAGE:
  store, err := sqlite.New("./data/kegtracer.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). Use ":memory:" for tests.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kegtracer/engine/ledger"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

const dateFormat = "2006-01-02"

// Store implements ledger.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: avoids SQLITE_BUSY under concurrent writes, and keeps
	// ":memory:" pointing at a single database instead of one per pooled conn.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS clients (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		address TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		tax_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS beers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		volume_liters REAL NOT NULL DEFAULT 0,
		price_ttc TEXT NOT NULL,
		deposit_per_keg TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- The ledger. Price and deposit are frozen copies of the beer's catalog
	-- values at creation time; no UPDATE ever touches this table.
	CREATE TABLE IF NOT EXISTS movements (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		mtype TEXT NOT NULL,
		client_id INTEGER NOT NULL REFERENCES clients(id),
		beer_id INTEGER NOT NULL REFERENCES beers(id),
		qty INTEGER NOT NULL,
		price_per_keg TEXT NOT NULL,
		deposit_per_keg TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		idempotency_key TEXT UNIQUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_movements_client_date
		ON movements(client_id, date);
	CREATE INDEX IF NOT EXISTS idx_movements_beer_date
		ON movements(beer_id, date);
	CREATE INDEX IF NOT EXISTS idx_movements_date
		ON movements(date);
	CREATE INDEX IF NOT EXISTS idx_movements_created_at
		ON movements(created_at);
	CREATE INDEX IF NOT EXISTS idx_movements_idempotency
		ON movements(idempotency_key) WHERE idempotency_key IS NOT NULL;
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CLIENT STORE
// =============================================================================

// CreateClient inserts a client. Duplicate names map to a ConflictError.
func (s *Store) CreateClient(ctx context.Context, c ledger.Client) (ledger.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO clients (name, address, email, tax_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.Name, c.Address, c.Email, c.TaxID, c.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.Client{}, &ledger.ConflictError{Kind: "client", Name: c.Name, Reason: ledger.ErrDuplicateName}
		}
		return ledger.Client{}, fmt.Errorf("failed to create client: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return ledger.Client{}, err
	}
	c.ID = ledger.ClientID(id)
	return c, nil
}

// GetClient retrieves a client by ID. Returns nil when missing.
func (s *Store) GetClient(ctx context.Context, id ledger.ClientID) (*ledger.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c ledger.Client
	var createdAt string

	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, address, email, tax_id, created_at FROM clients WHERE id = ?",
		int64(id),
	).Scan(&c.ID, &c.Name, &c.Address, &c.Email, &c.TaxID, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &c, nil
}

// ListClients returns all clients ordered by name.
func (s *Store) ListClients(ctx context.Context) ([]ledger.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, address, email, tax_id, created_at FROM clients ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []ledger.Client
	for rows.Next() {
		var c ledger.Client
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Name, &c.Address, &c.Email, &c.TaxID, &createdAt); err != nil {
			return nil, err
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// DeleteClient removes a client row.
func (s *Store) DeleteClient(ctx context.Context, id ledger.ClientID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM clients WHERE id = ?", int64(id))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ledger.ErrClientNotFound
	}
	return nil
}

// ClientHasMovements reports whether any ledger row references the client.
func (s *Store) ClientHasMovements(ctx context.Context, id ledger.ClientID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM movements WHERE client_id = ?", int64(id),
	).Scan(&count)
	return count > 0, err
}

// =============================================================================
// BEER STORE
// =============================================================================

// CreateBeer inserts a catalog row.
func (s *Store) CreateBeer(ctx context.Context, b ledger.Beer) (ledger.Beer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO beers (name, volume_liters, price_ttc, deposit_per_keg, created_at) VALUES (?, ?, ?, ?, ?)`,
		b.Name, b.VolumeLiters, b.PriceTTC.String(), b.DepositPerKeg.String(),
		b.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.Beer{}, &ledger.ConflictError{Kind: "beer", Name: b.Name, Reason: ledger.ErrDuplicateName}
		}
		return ledger.Beer{}, fmt.Errorf("failed to create beer: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return ledger.Beer{}, err
	}
	b.ID = ledger.BeerID(id)
	return b, nil
}

// GetBeer retrieves a beer by ID. Returns nil when missing.
func (s *Store) GetBeer(ctx context.Context, id ledger.BeerID) (*ledger.Beer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryBeer(ctx, "SELECT id, name, volume_liters, price_ttc, deposit_per_keg, created_at FROM beers WHERE id = ?", int64(id))
}

// GetBeerByName retrieves a beer by its unique name. Returns nil when missing.
func (s *Store) GetBeerByName(ctx context.Context, name string) (*ledger.Beer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryBeer(ctx, "SELECT id, name, volume_liters, price_ttc, deposit_per_keg, created_at FROM beers WHERE name = ?", name)
}

func (s *Store) queryBeer(ctx context.Context, query string, arg any) (*ledger.Beer, error) {
	var b ledger.Beer
	var price, deposit, createdAt string

	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&b.ID, &b.Name, &b.VolumeLiters, &price, &deposit, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	b.PriceTTC = parseDecimal(price)
	b.DepositPerKeg = parseDecimal(deposit)
	b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &b, nil
}

// ListBeers returns the catalog ordered by name.
func (s *Store) ListBeers(ctx context.Context) ([]ledger.Beer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, volume_liters, price_ttc, deposit_per_keg, created_at FROM beers ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var beers []ledger.Beer
	for rows.Next() {
		var b ledger.Beer
		var price, deposit, createdAt string
		if err := rows.Scan(&b.ID, &b.Name, &b.VolumeLiters, &price, &deposit, &createdAt); err != nil {
			return nil, err
		}
		b.PriceTTC = parseDecimal(price)
		b.DepositPerKeg = parseDecimal(deposit)
		b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		beers = append(beers, b)
	}
	return beers, rows.Err()
}

// UpdateBeerPrice rewrites a catalog row's price and deposit. Not part of
// ledger.Store; exists so tests can prove movements keep their frozen values
// when the catalog changes underneath them.
func (s *Store) UpdateBeerPrice(ctx context.Context, id ledger.BeerID, price, deposit decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"UPDATE beers SET price_ttc = ?, deposit_per_keg = ? WHERE id = ?",
		price.String(), deposit.String(), int64(id),
	)
	return err
}

// =============================================================================
// MOVEMENT STORE
// =============================================================================

const movementColumns = `id, date, mtype, client_id, beer_id, qty, price_per_keg, deposit_per_keg, note, idempotency_key, created_at`

// Append inserts one movement row.
func (s *Store) Append(ctx context.Context, m ledger.Movement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO movements (`+movementColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(m.ID),
		m.Date.Format(dateFormat),
		string(m.Type),
		int64(m.ClientID),
		int64(m.BeerID),
		m.Quantity,
		m.PricePerKeg.String(),
		m.DepositPerKeg.String(),
		m.Note,
		nullString(m.IdempotencyKey),
		m.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to append movement: %w", err)
	}
	return nil
}

// GetMovement retrieves a movement by ID. Returns nil when missing.
func (s *Store) GetMovement(ctx context.Context, id ledger.MovementID) (*ledger.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	movements, err := s.queryMovements(ctx,
		`SELECT `+movementColumns+` FROM movements WHERE id = ?`, string(id))
	if err != nil {
		return nil, err
	}
	if len(movements) == 0 {
		return nil, nil
	}
	return &movements[0], nil
}

// GetByIdempotencyKey returns the movement stored under key, or nil.
func (s *Store) GetByIdempotencyKey(ctx context.Context, key string) (*ledger.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	movements, err := s.queryMovements(ctx,
		`SELECT `+movementColumns+` FROM movements WHERE idempotency_key = ?`, key)
	if err != nil {
		return nil, err
	}
	if len(movements) == 0 {
		return nil, nil
	}
	return &movements[0], nil
}

// FindRecentMatch returns the newest movement with an identical payload
// created at or after since, or nil.
func (s *Store) FindRecentMatch(ctx context.Context, m ledger.Movement, since time.Time) (*ledger.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	movements, err := s.queryMovements(ctx,
		`SELECT `+movementColumns+` FROM movements
		 WHERE date = ? AND mtype = ? AND client_id = ? AND beer_id = ?
		   AND qty = ? AND note = ? AND created_at >= ?
		 ORDER BY created_at DESC LIMIT 1`,
		m.Date.Format(dateFormat),
		string(m.Type),
		int64(m.ClientID),
		int64(m.BeerID),
		m.Quantity,
		m.Note,
		since.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, err
	}
	if len(movements) == 0 {
		return nil, nil
	}
	return &movements[0], nil
}

// Load returns movements matching the filter, newest first.
func (s *Store) Load(ctx context.Context, f ledger.Filter) ([]ledger.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + movementColumns + ` FROM movements WHERE 1=1`
	var args []any

	if f.ClientID != nil {
		query += " AND client_id = ?"
		args = append(args, int64(*f.ClientID))
	}
	if f.BeerID != nil {
		query += " AND beer_id = ?"
		args = append(args, int64(*f.BeerID))
	}
	if f.Range != nil {
		query += " AND date >= ? AND date < ?"
		args = append(args, f.Range.From.Format(dateFormat), f.Range.To.Format(dateFormat))
	}
	query += " ORDER BY date DESC, created_at DESC"

	return s.queryMovements(ctx, query, args...)
}

// Delete hard-deletes one movement row.
func (s *Store) Delete(ctx context.Context, id ledger.MovementID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM movements WHERE id = ?", string(id))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ledger.ErrMovementNotFound
	}
	return nil
}

func (s *Store) queryMovements(ctx context.Context, query string, args ...any) ([]ledger.Movement, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query movements: %w", err)
	}
	defer rows.Close()

	var movements []ledger.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func scanMovement(rows *sql.Rows) (ledger.Movement, error) {
	var (
		m              ledger.Movement
		date           string
		price          string
		deposit        string
		idempotencyKey sql.NullString
		createdAt      string
	)

	err := rows.Scan(
		&m.ID, &date, &m.Type, &m.ClientID, &m.BeerID, &m.Quantity,
		&price, &deposit, &m.Note, &idempotencyKey, &createdAt,
	)
	if err != nil {
		return m, fmt.Errorf("failed to scan movement: %w", err)
	}

	m.Date, _ = time.Parse(dateFormat, date)
	m.PricePerKeg = parseDecimal(price)
	m.DepositPerKeg = parseDecimal(deposit)
	m.IdempotencyKey = idempotencyKey.String
	m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)

	return m, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"movements", "clients", "beers"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
