// Package sqlite provides SQLite storage for bills.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/dvloznov/billed/internal/domain"
	"github.com/dvloznov/billed/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS bills (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL,
	expense_type  TEXT NOT NULL DEFAULT '',
	name          TEXT NOT NULL DEFAULT '',
	bill_date     TEXT NOT NULL DEFAULT '',
	amount        REAL NOT NULL DEFAULT 0,
	vat           TEXT NOT NULL DEFAULT '',
	pct           INTEGER NOT NULL DEFAULT 20,
	commentary    TEXT NOT NULL DEFAULT '',
	comment_admin TEXT NOT NULL DEFAULT '',
	file_url      TEXT NOT NULL DEFAULT '',
	file_name     TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'pending',
	created_at    TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);

CREATE INDEX IF NOT EXISTS idx_bills_email ON bills(email);
`

// SQLite implements store.BillRepository using SQLite.
type SQLite struct {
	db *sql.DB
}

// New opens the database at path and runs migrations.
func New(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

// ListBills retrieves all bills in insertion order.
func (s *SQLite) ListBills(ctx context.Context) ([]domain.Bill, error) {
	query := `
		SELECT id, email, expense_type, name, bill_date, amount, vat, pct,
			commentary, comment_admin, file_url, file_name, status
		FROM bills
		ORDER BY rowid
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying bills: %w", err)
	}
	defer rows.Close()

	var bills []domain.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating bills: %w", err)
	}

	return bills, nil
}

// GetBill retrieves a bill by ID.
// Returns store.ErrNotFound if no bill has that ID.
func (s *SQLite) GetBill(ctx context.Context, id string) (domain.Bill, error) {
	query := `
		SELECT id, email, expense_type, name, bill_date, amount, vat, pct,
			commentary, comment_admin, file_url, file_name, status
		FROM bills
		WHERE id = ?
	`

	b, err := scanBill(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Bill{}, fmt.Errorf("bill %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return domain.Bill{}, err
	}
	return b, nil
}

// UpsertBill inserts a bill or replaces the one with the same ID.
func (s *SQLite) UpsertBill(ctx context.Context, b domain.Bill) error {
	if b.ID == "" {
		return errors.New("upserting bill: ID is required")
	}

	query := `
		INSERT INTO bills (
			id, email, expense_type, name, bill_date, amount, vat, pct,
			commentary, comment_admin, file_url, file_name, status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			expense_type = excluded.expense_type,
			name = excluded.name,
			bill_date = excluded.bill_date,
			amount = excluded.amount,
			vat = excluded.vat,
			pct = excluded.pct,
			commentary = excluded.commentary,
			comment_admin = excluded.comment_admin,
			file_url = excluded.file_url,
			file_name = excluded.file_name,
			status = excluded.status
	`

	_, err := s.db.ExecContext(ctx, query,
		b.ID,
		b.Email,
		b.Type,
		b.Name,
		b.Date,
		b.Amount,
		b.VAT,
		b.Pct,
		b.Commentary,
		b.CommentAdmin,
		b.FileURL,
		b.FileName,
		string(b.Status),
	)
	if err != nil {
		return fmt.Errorf("upserting bill: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBill(row scanner) (domain.Bill, error) {
	var (
		b      domain.Bill
		status string
	)
	err := row.Scan(
		&b.ID,
		&b.Email,
		&b.Type,
		&b.Name,
		&b.Date,
		&b.Amount,
		&b.VAT,
		&b.Pct,
		&b.Commentary,
		&b.CommentAdmin,
		&b.FileURL,
		&b.FileName,
		&status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Bill{}, err
	}
	if err != nil {
		return domain.Bill{}, fmt.Errorf("scanning bill: %w", err)
	}
	b.Status = domain.BillStatus(status)
	return b, nil
}

var _ store.BillRepository = (*SQLite)(nil)
