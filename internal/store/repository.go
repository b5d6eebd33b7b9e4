// internal/store/repository.go
//
// Contact submission archive.
//
// Context
// -------
// The form dispatcher's `store` action calls Save once per accepted
// message.  The admin listing endpoint calls Recent.  Migrate runs at
// startup and is idempotent (CREATE TABLE IF NOT EXISTS).
//
// Workflow
// --------
//  1. Callers supply a *sqlx.DB opened through internal/database.
//  2. Each helper executes exactly one parameterised statement.
//  3. Errors are wrapped with the operation name and returned; the helpers
//     never log.
//
// Notes
// -----
//   - Both supported drivers use `?` placeholders, so queries are shared.
//   - Column list matches the fields in `Submission`; update both together.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Table is the archive table name.
const Table = "contact_submission"

// MaxRecent caps Recent's limit.
const MaxRecent = 200

var migrations = map[string]string{
	"mysql": `
        CREATE TABLE IF NOT EXISTS contact_submission (
            id          CHAR(36)      PRIMARY KEY,
            form_id     VARCHAR(64)   NOT NULL,
            name        VARCHAR(128)  NOT NULL,
            email       VARCHAR(320)  NOT NULL,
            message     TEXT          NOT NULL,
            client_ip   VARCHAR(45)   NOT NULL DEFAULT '',
            country     CHAR(2)       NOT NULL DEFAULT '',
            browser     VARCHAR(64)   NOT NULL DEFAULT '',
            device      VARCHAR(16)   NOT NULL DEFAULT '',
            is_bot      TINYINT(1)    NOT NULL DEFAULT 0,
            created_at  TIMESTAMP     NOT NULL,
            INDEX idx_contact_submission_created (created_at)
        )`,
	"sqlite": `
        CREATE TABLE IF NOT EXISTS contact_submission (
            id          TEXT     PRIMARY KEY,
            form_id     TEXT     NOT NULL,
            name        TEXT     NOT NULL,
            email       TEXT     NOT NULL,
            message     TEXT     NOT NULL,
            client_ip   TEXT     NOT NULL DEFAULT '',
            country     TEXT     NOT NULL DEFAULT '',
            browser     TEXT     NOT NULL DEFAULT '',
            device      TEXT     NOT NULL DEFAULT '',
            is_bot      INTEGER  NOT NULL DEFAULT 0,
            created_at  DATETIME NOT NULL
        )`,
}

// Repository reads and writes the archive.
type Repository struct {
	db *sqlx.DB
}

// New wraps db.  The driver name decides the migration dialect.
func New(db *sqlx.DB) *Repository { return &Repository{db: db} }

// Migrate creates the archive table when missing.
func (r *Repository) Migrate(ctx context.Context) error {
	ddl, ok := migrations[r.db.DriverName()]
	if !ok {
		return fmt.Errorf("store migrate: no schema for driver %q", r.db.DriverName())
	}
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("store migrate: %w", err)
	}
	return nil
}

// Save inserts one submission.
func (r *Repository) Save(ctx context.Context, s Submission) error {
	if s.ID == "" {
		return errors.New("store save: empty id")
	}
	const q = `
        INSERT INTO contact_submission
               (id, form_id, name, email, message, client_ip, country,
                browser, device, is_bot, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		s.ID, s.FormID, s.Name, s.Email, s.Message, s.ClientIP, s.Country,
		s.Browser, s.Device, s.IsBot, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("store save %s: %w", s.ID, err)
	}
	return nil
}

// Recent returns up to limit submissions, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Submission, error) {
	if limit <= 0 || limit > MaxRecent {
		limit = MaxRecent
	}
	const q = `
        SELECT id, form_id, name, email, message, client_ip, country,
               browser, device, is_bot, created_at
        FROM   contact_submission
        ORDER  BY created_at DESC
        LIMIT  ?`
	rows := make([]Submission, 0, limit)
	if err := r.db.SelectContext(ctx, &rows, q, limit); err != nil {
		return nil, fmt.Errorf("store recent: %w", err)
	}
	return rows, nil
}
