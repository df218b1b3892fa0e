// Package persist provides the SQLite-backed document store behind the
// persistence reconciler: whole-board documents with per-item rows so
// incremental patches stay cheap.
package persist

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"moodboard/server/internal/apperr"
	"moodboard/server/internal/board"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	settings   TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS items (
	doc_id  TEXT NOT NULL,
	item_id TEXT NOT NULL,
	payload TEXT NOT NULL,
	z_index INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (doc_id, item_id)
);

CREATE INDEX IF NOT EXISTS idx_items_doc ON items(doc_id);
`

// Document is one persisted board: its items plus canvas settings.
type Document struct {
	ID       string
	Items    []board.Item
	Settings board.Background
}

// DB wraps a sql.DB with document operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("persist: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("persist: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("persist: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// CreateDocument inserts a new document with its initial items.
func (db *DB) CreateDocument(doc Document) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("persist: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	settings, err := json.Marshal(doc.Settings)
	if err != nil {
		return fmt.Errorf("persist: marshal settings: %w", err)
	}
	now := time.Now().UTC()
	if _, err := tx.Exec(
		`INSERT INTO documents (id, settings, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		doc.ID, string(settings), now, now,
	); err != nil {
		return fmt.Errorf("persist: insert document: %w", err)
	}
	if err := upsertItems(tx, doc.ID, doc.Items); err != nil {
		return err
	}
	return tx.Commit()
}

// FetchDocument loads a document by id, items ordered by stacking order.
func (db *DB) FetchDocument(id string) (Document, error) {
	var settingsJSON string
	err := db.conn.QueryRow(`SELECT settings FROM documents WHERE id = ?`, id).Scan(&settingsJSON)
	if err == sql.ErrNoRows {
		return Document{}, fmt.Errorf("persist: document %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("persist: fetch document: %w", err)
	}

	doc := Document{ID: id}
	if err := json.Unmarshal([]byte(settingsJSON), &doc.Settings); err != nil {
		return Document{}, fmt.Errorf("persist: decode settings: %w", err)
	}

	rows, err := db.conn.Query(`SELECT payload FROM items WHERE doc_id = ? ORDER BY z_index, item_id`, id)
	if err != nil {
		return Document{}, fmt.Errorf("persist: fetch items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return Document{}, fmt.Errorf("persist: scan item: %w", err)
		}
		var it board.Item
		if err := json.Unmarshal([]byte(payload), &it); err != nil {
			return Document{}, fmt.Errorf("persist: decode item: %w", err)
		}
		doc.Items = append(doc.Items, it)
	}
	if err := rows.Err(); err != nil {
		return Document{}, fmt.Errorf("persist: iterate items: %w", err)
	}
	return doc, nil
}

// PatchItems applies an incremental write: new and modified items are
// upserted, deleted ids are removed, all in one transaction.
func (db *DB) PatchItems(docID string, upserts []board.Item, deletedIDs []string) error {
	if len(upserts) == 0 && len(deletedIDs) == 0 {
		return nil
	}
	if err := db.requireDocument(docID); err != nil {
		return err
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("persist: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := upsertItems(tx, docID, upserts); err != nil {
		return err
	}
	if len(deletedIDs) > 0 {
		stmt, err := tx.Prepare(`DELETE FROM items WHERE doc_id = ? AND item_id = ?`)
		if err != nil {
			return fmt.Errorf("persist: prepare delete: %w", err)
		}
		defer stmt.Close()
		for _, id := range deletedIDs {
			if _, err := stmt.Exec(docID, id); err != nil {
				return fmt.Errorf("persist: delete item: %w", err)
			}
		}
	}
	if err := touch(tx, docID); err != nil {
		return err
	}
	return tx.Commit()
}

// PatchSettings replaces only the canvas settings of a document.
func (db *DB) PatchSettings(docID string, settings board.Background) error {
	if err := db.requireDocument(docID); err != nil {
		return err
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("persist: marshal settings: %w", err)
	}
	if _, err := db.conn.Exec(
		`UPDATE documents SET settings = ?, updated_at = ? WHERE id = ?`,
		string(data), time.Now().UTC(), docID,
	); err != nil {
		return fmt.Errorf("persist: update settings: %w", err)
	}
	return nil
}

// Overwrite replaces a document wholesale: all items and all settings. Used
// as the self-healing fallback when an incremental patch fails.
func (db *DB) Overwrite(doc Document) error {
	if err := db.requireDocument(doc.ID); err != nil {
		return err
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("persist: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM items WHERE doc_id = ?`, doc.ID); err != nil {
		return fmt.Errorf("persist: clear items: %w", err)
	}
	if err := upsertItems(tx, doc.ID, doc.Items); err != nil {
		return err
	}
	settings, err := json.Marshal(doc.Settings)
	if err != nil {
		return fmt.Errorf("persist: marshal settings: %w", err)
	}
	if _, err := tx.Exec(
		`UPDATE documents SET settings = ?, updated_at = ? WHERE id = ?`,
		string(settings), time.Now().UTC(), doc.ID,
	); err != nil {
		return fmt.Errorf("persist: update settings: %w", err)
	}
	return tx.Commit()
}

func (db *DB) requireDocument(id string) error {
	var exists int
	err := db.conn.QueryRow(`SELECT 1 FROM documents WHERE id = ?`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return fmt.Errorf("persist: document %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("persist: lookup document: %w", err)
	}
	return nil
}

func upsertItems(tx *sql.Tx, docID string, items []board.Item) error {
	if len(items) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`
		INSERT INTO items (doc_id, item_id, payload, z_index)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(doc_id, item_id) DO UPDATE SET
			payload = excluded.payload,
			z_index = excluded.z_index
	`)
	if err != nil {
		return fmt.Errorf("persist: prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, it := range items {
		payload, err := json.Marshal(it)
		if err != nil {
			return fmt.Errorf("persist: marshal item: %w", err)
		}
		if _, err := stmt.Exec(docID, it.ID, string(payload), it.ZIndex); err != nil {
			return fmt.Errorf("persist: upsert item: %w", err)
		}
	}
	return nil
}

func touch(tx *sql.Tx, docID string) error {
	if _, err := tx.Exec(`UPDATE documents SET updated_at = ? WHERE id = ?`, time.Now().UTC(), docID); err != nil {
		return fmt.Errorf("persist: touch document: %w", err)
	}
	return nil
}
