package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - no schema
// 1 - documents table with type and ref indexes
const currentSchemaVersion = 1

// SQLiteStore keeps documents in a single SQLite table.
// Uses WAL mode and a single connection, so writes are serialized.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite creates or opens a SQLite database at path.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//
// Safe to call on an existing database; the schema is applied idempotently.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite store requires a path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// Create inserts doc. ON CONFLICT(id) DO NOTHING turns a duplicate ID into
// zero affected rows, reported as ErrExists.
func (s *SQLiteStore) Create(ctx context.Context, doc Document) (string, error) {
	rev := nextRevision("")
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, type, rev, ref, body)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, doc.ID, doc.Type, rev, nullString(doc.Ref), string(doc.Body))
	if err != nil {
		return "", fmt.Errorf("create %s: %w", doc.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("create %s: %w", doc.ID, err)
	}
	if n == 0 {
		return "", fmt.Errorf("create %s: %w", doc.ID, ErrExists)
	}
	return rev, nil
}

// Get returns the document with the given ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, type, rev, ref, body FROM documents WHERE id = ?
	`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("get %s: %w", id, err)
	}
	return doc, nil
}

// UpdateWithRevision replaces the document if doc.Rev is current.
func (s *SQLiteStore) UpdateWithRevision(ctx context.Context, doc Document) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("update %s: begin tx: %w", doc.ID, err)
	}
	defer tx.Rollback() // No-op if committed

	rev := nextRevision(doc.Rev)
	res, err := tx.ExecContext(ctx, `
		UPDATE documents
		SET rev = ?, ref = ?, body = ?, type = CASE WHEN type = '' THEN ? ELSE type END
		WHERE id = ? AND rev = ?
	`, rev, nullString(doc.Ref), string(doc.Body), doc.Type, doc.ID, doc.Rev)
	if err != nil {
		return "", fmt.Errorf("update %s: %w", doc.ID, err)
	}
	if err := checkAffected(ctx, tx, res, doc.ID); err != nil {
		return "", fmt.Errorf("update %s: %w", doc.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("update %s: commit: %w", doc.ID, err)
	}
	return rev, nil
}

// DeleteWithRevision removes the document if rev is current.
func (s *SQLiteStore) DeleteWithRevision(ctx context.Context, id, rev string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete %s: begin tx: %w", id, err)
	}
	defer tx.Rollback() // No-op if committed

	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ? AND rev = ?`, id, rev)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if err := checkAffected(ctx, tx, res, id); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete %s: commit: %w", id, err)
	}
	return nil
}

// checkAffected distinguishes a missing document from a stale revision when
// a guarded write touched no rows.
func checkAffected(ctx context.Context, tx *sql.Tx, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var current string
	err = tx.QueryRowContext(ctx, `SELECT rev FROM documents WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrConflict
}

// AllOfType returns documents of one type ordered by ID.
func (s *SQLiteStore) AllOfType(ctx context.Context, typ string) ([]Document, error) {
	return s.query(ctx, s.db, `
		SELECT id, type, rev, ref, body FROM documents
		WHERE type = ?
		ORDER BY id COLLATE BINARY ASC
	`, typ)
}

// Referencing returns documents of one type whose ref equals ref.
func (s *SQLiteStore) Referencing(ctx context.Context, typ, ref string) ([]Document, error) {
	return s.query(ctx, s.db, `
		SELECT id, type, rev, ref, body FROM documents
		WHERE type = ? AND ref = ?
		ORDER BY id COLLATE BINARY ASC
	`, typ, ref)
}

// GroupedByRef reads parents and children in one read transaction so the
// grouping reflects a single snapshot.
func (s *SQLiteStore) GroupedByRef(ctx context.Context, parentType, childType string) ([]Group, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("group %s by %s: begin tx: %w", childType, parentType, err)
	}
	defer tx.Rollback()

	const q = `
		SELECT id, type, rev, ref, body FROM documents
		WHERE type = ?
		ORDER BY id COLLATE BINARY ASC
	`
	parents, err := s.query(ctx, tx, q, parentType)
	if err != nil {
		return nil, err
	}
	children, err := s.query(ctx, tx, q, childType)
	if err != nil {
		return nil, err
	}
	return groupByRef(parents, children)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *SQLiteStore) query(ctx context.Context, q queryer, query string, args ...any) ([]Document, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (Document, error) {
	var (
		doc  Document
		ref  sql.NullString
		body string
	)
	if err := row.Scan(&doc.ID, &doc.Type, &doc.Rev, &ref, &body); err != nil {
		return Document{}, err
	}
	doc.Ref = ref.String
	doc.Body = []byte(body)
	return doc, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
