/*
Package sqlite provides the SQLite-backed implementation of domain.Store.

PURPOSE:
  Implements the persistence contract (accounts, tickets, meters with
  readings, contractors) on SQLite. In production the same patterns apply
  to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  accounts:     Billing records, balance stored as decimal TEXT
  tickets:      Dispatch requests with status and contractor name
  meters:       Metering points
  readings:     Append-only reading rows, ordered by insertion rowid
  contractors:  Service providers with AUTOINCREMENT sequence ids

READING ORDER:
  Readings are returned ordered by rowid, i.e. insertion order, NOT by
  date. Stored order is chronological order by caller contract, and the
  consumption engine depends on that. Do not add ORDER BY date here.

DECIMAL STORAGE:
  Balances and reading values are stored as TEXT and parsed back with
  shopspring/decimal. Never store them as REAL: binary floats drift
  under repeated report generation.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. With PostgreSQL, database-level
  concurrency control would handle this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): multiple readers
  don't block, single writer at a time, better crash recovery.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

USAGE:
  store, err := sqlite.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - domain/store.go: the contract this implements
  - domain/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/housing-ledger/domain"
)

// Store implements domain.Store on SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ domain.Store = (*Store)(nil)

// New creates a SQLite store at the given path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One pooled connection: a second connection to ":memory:" would be a
	// separate empty database, and the store is single-writer anyway.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		address TEXT NOT NULL,
		owner TEXT NOT NULL,
		balance TEXT NOT NULL,
		subsidy BOOLEAN NOT NULL DEFAULT FALSE,
		last_payment TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tickets (
		id TEXT PRIMARY KEY,
		created_date TEXT NOT NULL,
		address TEXT NOT NULL,
		problem TEXT NOT NULL,
		contact TEXT,
		status TEXT NOT NULL,
		contractor TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tickets_status
		ON tickets(status);
	CREATE INDEX IF NOT EXISTS idx_tickets_contractor
		ON tickets(contractor) WHERE contractor IS NOT NULL;

	CREATE TABLE IF NOT EXISTS meters (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		address TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_meters_type
		ON meters(type);

	-- Append-only: rowid preserves insertion order, which IS the
	-- chronological order by contract. No UPDATE or DELETE on rows.
	CREATE TABLE IF NOT EXISTS readings (
		meter_id TEXT NOT NULL REFERENCES meters(id) ON DELETE CASCADE,
		date TEXT NOT NULL,
		value TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_readings_meter
		ON readings(meter_id);

	CREATE TABLE IF NOT EXISTS contractors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		specialty TEXT NOT NULL,
		contact TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_contractors_name
		ON contractors(name);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (s *Store) CreateAccount(ctx context.Context, a domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, address, owner, balance, subsidy, last_payment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Address, a.Owner, a.Balance.String(), a.Subsidy,
		nullDate(a.LastPayment), nowUTC(),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &domain.DuplicateKeyError{Kind: domain.KindAccount, ID: a.ID}
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getAccount(ctx, s.db, id)
}

func (s *Store) getAccount(ctx context.Context, q queryer, id string) (domain.Account, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, address, owner, balance, subsidy, last_payment
		FROM accounts WHERE id = ?`, id)

	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return domain.Account{}, &domain.NotFoundError{Kind: domain.KindAccount, ID: id}
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, address, owner, balance, subsidy, last_payment
		FROM accounts ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var out []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) UpdateAccount(ctx context.Context, id string, mutate func(*domain.Account) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	a, err := s.getAccount(ctx, tx, id)
	if err != nil {
		return err
	}
	if err := mutate(&a); err != nil {
		return err
	}
	a.ID = id // the id is immutable

	_, err = tx.ExecContext(ctx, `
		UPDATE accounts SET address = ?, owner = ?, balance = ?, subsidy = ?, last_payment = ?
		WHERE id = ?`,
		a.Address, a.Owner, a.Balance.String(), a.Subsidy, nullDate(a.LastPayment), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return tx.Commit()
}

func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// No cascade to tickets or meters: stale references are a documented
	// non-invariant of this system.
	res, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return &domain.NotFoundError{Kind: domain.KindAccount, ID: id}
	}
	return nil
}

// =============================================================================
// TICKETS
// =============================================================================

func (s *Store) CreateTicket(ctx context.Context, t domain.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tickets (id, created_date, address, problem, contact, status, contractor, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.CreatedAt.String(), t.Address, t.Problem,
		nullString(t.Contact), string(t.Status), nullString(t.Contractor), nowUTC(),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &domain.DuplicateKeyError{Kind: domain.KindTicket, ID: t.ID}
		}
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	return nil
}

func (s *Store) GetTicket(ctx context.Context, id string) (domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getTicket(ctx, s.db, id)
}

func (s *Store) getTicket(ctx context.Context, q queryer, id string) (domain.Ticket, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, created_date, address, problem, contact, status, contractor
		FROM tickets WHERE id = ?`, id)

	t, err := scanTicket(row)
	if err == sql.ErrNoRows {
		return domain.Ticket{}, &domain.NotFoundError{Kind: domain.KindTicket, ID: id}
	}
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("failed to get ticket: %w", err)
	}
	return t, nil
}

func (s *Store) ListTickets(ctx context.Context) ([]domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_date, address, problem, contact, status, contractor
		FROM tickets ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer rows.Close()

	var out []domain.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) UpdateTicket(ctx context.Context, id string, mutate func(*domain.Ticket) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	t, err := s.getTicket(ctx, tx, id)
	if err != nil {
		return err
	}
	if err := mutate(&t); err != nil {
		return err
	}
	t.ID = id

	_, err = tx.ExecContext(ctx, `
		UPDATE tickets SET created_date = ?, address = ?, problem = ?, contact = ?, status = ?, contractor = ?
		WHERE id = ?`,
		t.CreatedAt.String(), t.Address, t.Problem, nullString(t.Contact),
		string(t.Status), nullString(t.Contractor), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update ticket: %w", err)
	}
	return tx.Commit()
}

func (s *Store) CountTickets(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tickets`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count tickets: %w", err)
	}
	return n, nil
}

// =============================================================================
// METERS
// =============================================================================

func (s *Store) CreateMeter(ctx context.Context, m domain.Meter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(m.Readings) == 0 {
		return &domain.NoInitialReadingError{MeterID: m.ID}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO meters (id, type, address, created_at)
		VALUES (?, ?, ?, ?)`,
		m.ID, string(m.Type), m.Address, nowUTC(),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &domain.DuplicateKeyError{Kind: domain.KindMeter, ID: m.ID}
		}
		return fmt.Errorf("failed to create meter: %w", err)
	}

	for _, r := range m.Readings {
		if err := appendReadingTx(ctx, tx, m.ID, r); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) GetMeter(ctx context.Context, id string) (domain.Meter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT id, type, address FROM meters WHERE id = ?`, id)

	var m domain.Meter
	var typ string
	if err := row.Scan(&m.ID, &typ, &m.Address); err != nil {
		if err == sql.ErrNoRows {
			return domain.Meter{}, &domain.NotFoundError{Kind: domain.KindMeter, ID: id}
		}
		return domain.Meter{}, fmt.Errorf("failed to get meter: %w", err)
	}
	m.Type = domain.MeterType(typ)

	readings, err := s.loadReadings(ctx, id)
	if err != nil {
		return domain.Meter{}, err
	}
	m.Readings = readings
	return m, nil
}

func (s *Store) ListMeters(ctx context.Context) ([]domain.Meter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, address FROM meters ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list meters: %w", err)
	}
	defer rows.Close()

	var out []domain.Meter
	for rows.Next() {
		var m domain.Meter
		var typ string
		if err := rows.Scan(&m.ID, &typ, &m.Address); err != nil {
			return nil, fmt.Errorf("failed to scan meter: %w", err)
		}
		m.Type = domain.MeterType(typ)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		readings, err := s.loadReadings(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Readings = readings
	}
	return out, nil
}

func (s *Store) AppendReading(ctx context.Context, meterID string, r domain.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM meters WHERE id = ?`, meterID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check meter: %w", err)
	}
	if exists == 0 {
		return &domain.NotFoundError{Kind: domain.KindMeter, ID: meterID}
	}
	return appendReadingTx(ctx, s.db, meterID, r)
}

func appendReadingTx(ctx context.Context, db execer, meterID string, r domain.Reading) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO readings (meter_id, date, value, created_at)
		VALUES (?, ?, ?, ?)`,
		meterID, r.Date.String(), r.Value.String(), nowUTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to append reading: %w", err)
	}
	return nil
}

// loadReadings returns readings ordered by rowid (insertion order).
// Chronological order equals insertion order by contract.
func (s *Store) loadReadings(ctx context.Context, meterID string) ([]domain.Reading, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, value FROM readings WHERE meter_id = ? ORDER BY rowid ASC`, meterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load readings: %w", err)
	}
	defer rows.Close()

	var out []domain.Reading
	for rows.Next() {
		var dateStr, valueStr string
		if err := rows.Scan(&dateStr, &valueStr); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		date, err := domain.ParseDate(dateStr)
		if err != nil {
			return nil, err
		}
		value, err := decimal.NewFromString(valueStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse reading value %q: %w", valueStr, err)
		}
		out = append(out, domain.Reading{Date: date, Value: value})
	}
	return out, rows.Err()
}

func (s *Store) DeleteMeter(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM meters WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete meter: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return &domain.NotFoundError{Kind: domain.KindMeter, ID: id}
	}
	// readings go with the meter via ON DELETE CASCADE
	return nil
}

// =============================================================================
// CONTRACTORS
// =============================================================================

func (s *Store) CreateContractor(ctx context.Context, c domain.Contractor) (domain.Contractor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO contractors (name, specialty, contact, created_at)
		VALUES (?, ?, ?, ?)`,
		c.Name, c.Specialty, nullString(c.Contact), nowUTC(),
	)
	if err != nil {
		return domain.Contractor{}, fmt.Errorf("failed to create contractor: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Contractor{}, fmt.Errorf("failed to read contractor id: %w", err)
	}
	c.ID = id
	return c, nil
}

func (s *Store) ListContractors(ctx context.Context) ([]domain.Contractor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, specialty, contact FROM contractors ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list contractors: %w", err)
	}
	defer rows.Close()

	var out []domain.Contractor
	for rows.Next() {
		var c domain.Contractor
		var contact sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &c.Specialty, &contact); err != nil {
			return nil, fmt.Errorf("failed to scan contractor: %w", err)
		}
		c.Contact = contact.String
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) FindContractorByName(ctx context.Context, name string) (domain.Contractor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, specialty, contact FROM contractors WHERE name = ? ORDER BY id ASC LIMIT 1`,
		name)

	var c domain.Contractor
	var contact sql.NullString
	if err := row.Scan(&c.ID, &c.Name, &c.Specialty, &contact); err != nil {
		if err == sql.ErrNoRows {
			return domain.Contractor{}, &domain.NotFoundError{Kind: domain.KindContractor, ID: name}
		}
		return domain.Contractor{}, fmt.Errorf("failed to find contractor: %w", err)
	}
	c.Contact = contact.String
	return c, nil
}

// Reset wipes all tables and restarts the contractor sequence. Used by
// the demo scenario loader; not part of the domain.Store contract.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		DELETE FROM readings;
		DELETE FROM meters;
		DELETE FROM tickets;
		DELETE FROM accounts;
		DELETE FROM contractors;
		DELETE FROM sqlite_sequence WHERE name = 'contractors';
	`)
	if err != nil {
		return fmt.Errorf("failed to reset store: %w", err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanAccount(row scannable) (domain.Account, error) {
	var a domain.Account
	var balanceStr string
	var lastPayment sql.NullString

	if err := row.Scan(&a.ID, &a.Address, &a.Owner, &balanceStr, &a.Subsidy, &lastPayment); err != nil {
		return domain.Account{}, err
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return domain.Account{}, fmt.Errorf("failed to parse balance %q: %w", balanceStr, err)
	}
	a.Balance = balance

	if lastPayment.Valid {
		d, err := domain.ParseDate(lastPayment.String)
		if err != nil {
			return domain.Account{}, err
		}
		a.LastPayment = &d
	}
	return a, nil
}

func scanTicket(row scannable) (domain.Ticket, error) {
	var t domain.Ticket
	var createdDate string
	var contact, contractor sql.NullString
	var status string

	if err := row.Scan(&t.ID, &createdDate, &t.Address, &t.Problem, &contact, &status, &contractor); err != nil {
		return domain.Ticket{}, err
	}

	d, err := domain.ParseDate(createdDate)
	if err != nil {
		return domain.Ticket{}, err
	}
	t.CreatedAt = d
	t.Contact = contact.String
	t.Status = domain.TicketStatus(status)
	t.Contractor = contractor.String
	return t, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(d *domain.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
