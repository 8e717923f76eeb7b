// Package repository provides data persistence implementations.
package repository

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/opensource-finance/tagspec/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

var _ domain.Repository = (*SQLRepository)(nil)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (*SQLRepository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, eris.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, eris.Wrap(err, "failed to open database")
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
		now:    func() time.Time { return time.Now().UTC() },
	}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "failed to run migrations")
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

func requireTenant(tenantID string) error {
	if tenantID == "" {
		return eris.Wrap(ErrInvalidInput, "tenantID is required")
	}
	return nil
}

// SaveLibrary inserts or replaces a rule library at position.
func (r *SQLRepository) SaveLibrary(ctx context.Context, tenantID string, position int, lib *domain.RuleLibrary) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	if lib == nil || lib.ID == "" {
		return eris.Wrap(ErrInvalidInput, "library id is required")
	}
	return r.saveLibrary(ctx, r.db, tenantID, position, lib)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *SQLRepository) saveLibrary(ctx context.Context, db execer, tenantID string, position int, lib *domain.RuleLibrary) error {
	contextJSON, definitionsJSON, err := encodeLibrary(lib)
	if err != nil {
		return err
	}

	now := r.now()

	query := `
		INSERT INTO rule_libraries (
			id, tenant_id, position, context, definitions, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, id) DO UPDATE SET
			position = excluded.position,
			context = excluded.context,
			definitions = excluded.definitions,
			updated_at = excluded.updated_at
	`

	_, err = db.ExecContext(ctx, r.rebind(query),
		string(lib.ID), tenantID, position,
		contextJSON, definitionsJSON,
		now, now,
	)
	if err != nil {
		return eris.Wrapf(err, "save library %s", lib.ID)
	}
	return nil
}

// GetLibrary retrieves a rule library by ID with tenant isolation.
func (r *SQLRepository) GetLibrary(ctx context.Context, tenantID string, libraryID domain.ID) (*domain.RuleLibrary, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}

	query := `
		SELECT id, context, definitions
		FROM rule_libraries
		WHERE tenant_id = ? AND id = ?
	`

	var id, contextJSON, definitionsJSON string
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, string(libraryID)).Scan(
		&id, &contextJSON, &definitionsJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "get library %s", libraryID)
	}

	return decodeLibrary(id, contextJSON, definitionsJSON)
}

// ListLibraries retrieves all rule libraries for a tenant in collection order.
func (r *SQLRepository) ListLibraries(ctx context.Context, tenantID string) ([]domain.RuleLibrary, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}

	query := `
		SELECT id, context, definitions
		FROM rule_libraries
		WHERE tenant_id = ?
		ORDER BY position, id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, eris.Wrap(err, "list libraries")
	}
	defer rows.Close()

	libs := []domain.RuleLibrary{}
	for rows.Next() {
		var id, contextJSON, definitionsJSON string
		if err := rows.Scan(&id, &contextJSON, &definitionsJSON); err != nil {
			return nil, eris.Wrap(err, "scan library")
		}

		lib, err := decodeLibrary(id, contextJSON, definitionsJSON)
		if err != nil {
			return nil, err
		}
		libs = append(libs, *lib)
	}

	return libs, rows.Err()
}

// DeleteLibrary removes a rule library.
func (r *SQLRepository) DeleteLibrary(ctx context.Context, tenantID string, libraryID domain.ID) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}

	query := `DELETE FROM rule_libraries WHERE tenant_id = ? AND id = ?`

	result, err := r.db.ExecContext(ctx, r.rebind(query), tenantID, string(libraryID))
	if err != nil {
		return eris.Wrapf(err, "delete library %s", libraryID)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

// ReplaceLibraries swaps the tenant's whole collection for libs in one
// transaction. Library order is preserved through the position column.
func (r *SQLRepository) ReplaceLibraries(ctx context.Context, tenantID string, libs []domain.RuleLibrary) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	for i := range libs {
		if libs[i].ID == "" {
			return eris.Wrapf(ErrInvalidInput, "library at position %d has no id", i)
		}
	}

	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM rule_libraries WHERE tenant_id = ?`), tenantID); err != nil {
			return eris.Wrap(err, "clear libraries")
		}
		for i := range libs {
			if err := r.saveLibrary(ctx, tx, tenantID, i, &libs[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveRows replaces the tenant's working row set.
func (r *SQLRepository) SaveRows(ctx context.Context, tenantID string, rows []domain.Row) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}

	now := r.now()

	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM transactions WHERE tenant_id = ?`), tenantID); err != nil {
			return eris.Wrap(err, "clear transactions")
		}

		query := r.rebind(`
			INSERT INTO transactions (id, tenant_id, position, data, created_at)
			VALUES (?, ?, ?, ?, ?)
		`)
		for i, row := range rows {
			data, err := json.Marshal(row)
			if err != nil {
				return eris.Wrapf(err, "encode row %d", i)
			}
			if _, err := tx.ExecContext(ctx, query, uuid.New().String(), tenantID, i, string(data), now); err != nil {
				return eris.Wrapf(err, "save row %d", i)
			}
		}
		return nil
	})
}

// ListRows retrieves the tenant's row set in insertion order. Numbers are
// decoded as json.Number.
func (r *SQLRepository) ListRows(ctx context.Context, tenantID string) ([]domain.Row, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}

	query := `
		SELECT data
		FROM transactions
		WHERE tenant_id = ?
		ORDER BY position
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, eris.Wrap(err, "list transactions")
	}
	defer rows.Close()

	out := []domain.Row{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "scan transaction")
		}

		var row domain.Row
		if err := decodeJSON(data, &row); err != nil {
			return nil, eris.Wrap(err, "decode transaction")
		}
		out = append(out, row)
	}

	return out, rows.Err()
}

// DeleteRows removes the tenant's row set.
func (r *SQLRepository) DeleteRows(ctx context.Context, tenantID string) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM transactions WHERE tenant_id = ?`), tenantID)
	if err != nil {
		return eris.Wrap(err, "delete transactions")
	}
	return nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

func (r *SQLRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "begin transaction")
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return eris.Wrap(tx.Commit(), "commit transaction")
}

func encodeLibrary(lib *domain.RuleLibrary) (string, string, error) {
	ctxValue := lib.Context
	if ctxValue == nil {
		ctxValue = domain.Context{}
	}
	defs := lib.Definitions
	if defs == nil {
		defs = []domain.TagDefinition{}
	}

	contextJSON, err := json.Marshal(ctxValue)
	if err != nil {
		return "", "", eris.Wrap(err, "encode library context")
	}
	definitionsJSON, err := json.Marshal(defs)
	if err != nil {
		return "", "", eris.Wrap(err, "encode library definitions")
	}
	return string(contextJSON), string(definitionsJSON), nil
}

func decodeLibrary(id, contextJSON, definitionsJSON string) (*domain.RuleLibrary, error) {
	lib := &domain.RuleLibrary{ID: domain.ID(id)}
	if err := decodeJSON(contextJSON, &lib.Context); err != nil {
		return nil, eris.Wrapf(err, "decode context of library %s", id)
	}
	if err := decodeJSON(definitionsJSON, &lib.Definitions); err != nil {
		return nil, eris.Wrapf(err, "decode definitions of library %s", id)
	}
	return lib, nil
}

func decodeJSON(data string, v any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	return dec.Decode(v)
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
