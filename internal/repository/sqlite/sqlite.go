// Package sqlite persists graph snapshots so the daemon can serve the
// last known state while the initial vault scan runs. The vault is the
// source of truth; a full rebuild replaces the snapshot wholesale.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"notechain/internal/domain"
)

// Repository implements service.Snapshot on a SQLite database.
type Repository struct {
	db *sql.DB
}

// New opens (or creates) the snapshot database.
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return repo, nil
}

// Close closes the underlying database.
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS notes (
		id TEXT PRIMARY KEY,
		created TEXT,
		placeholder INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS refs (
		child_id TEXT NOT NULL,
		parent_id TEXT NOT NULL,
		field TEXT NOT NULL,
		PRIMARY KEY (child_id, parent_id, field)
	);

	CREATE INDEX IF NOT EXISTS idx_refs_parent ON refs(parent_id);
	`
	_, err := r.db.Exec(schema)
	return err
}

// Load returns the persisted nodes and edges.
func (r *Repository) Load(ctx context.Context) ([]domain.Node, []domain.Edge, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, created, placeholder FROM notes ORDER BY id`)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var nodes []domain.Node
	for rows.Next() {
		var (
			node        domain.Node
			created     sql.NullString
			placeholder int
		)
		if err := rows.Scan(&node.ID, &created, &placeholder); err != nil {
			return nil, nil, fmt.Errorf("failed to scan note: %w", err)
		}
		if created.Valid && created.String != "" {
			t, err := time.Parse(time.RFC3339Nano, created.String)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to parse created time for %s: %w", node.ID, err)
			}
			node.Created = t
		}
		node.Placeholder = placeholder != 0
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating notes: %w", err)
	}

	edgeRows, err := r.db.QueryContext(ctx, `SELECT child_id, parent_id, field FROM refs ORDER BY child_id, parent_id`)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query refs: %w", err)
	}
	defer edgeRows.Close()

	var edges []domain.Edge
	for edgeRows.Next() {
		var e domain.Edge
		if err := edgeRows.Scan(&e.ChildID, &e.ParentID, &e.Field); err != nil {
			return nil, nil, fmt.Errorf("failed to scan ref: %w", err)
		}
		edges = append(edges, e)
	}
	if err := edgeRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating refs: %w", err)
	}

	return nodes, edges, nil
}

// Replace overwrites the whole snapshot in one transaction.
func (r *Repository) Replace(ctx context.Context, nodes []domain.Node, edges []domain.Edge) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM refs`); err != nil {
			return fmt.Errorf("failed to clear refs: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM notes`); err != nil {
			return fmt.Errorf("failed to clear notes: %w", err)
		}
		for _, n := range nodes {
			if err := insertNote(ctx, tx, n); err != nil {
				return err
			}
		}
		for _, e := range edges {
			if err := insertRef(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveNote upserts one note and replaces its outgoing edges.
func (r *Repository) SaveNote(ctx context.Context, node domain.Node, edges []domain.Edge) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertNote(ctx, tx, node); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM refs WHERE child_id = ?`, node.ID); err != nil {
			return fmt.Errorf("failed to clear refs for %s: %w", node.ID, err)
		}
		for _, e := range edges {
			if err := insertRef(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteNote removes a note and every edge touching it.
func (r *Repository) DeleteNote(ctx context.Context, id string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM refs WHERE child_id = ? OR parent_id = ?`, id, id); err != nil {
			return fmt.Errorf("failed to delete refs for %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete note %s: %w", id, err)
		}
		return nil
	})
}

// RenameNote relabels a note in place. If the target already exists the
// rows merge; edges collapsing into self-loops are dropped.
func (r *Repository) RenameNote(ctx context.Context, oldID, newID string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		statements := []string{
			`UPDATE OR REPLACE notes SET id = ?2 WHERE id = ?1`,
			`UPDATE OR REPLACE refs SET child_id = ?2 WHERE child_id = ?1`,
			`UPDATE OR REPLACE refs SET parent_id = ?2 WHERE parent_id = ?1`,
		}
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt, oldID, newID); err != nil {
				return fmt.Errorf("failed to rename note %s: %w", oldID, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM refs WHERE child_id = parent_id`); err != nil {
			return fmt.Errorf("failed to rename note %s: %w", oldID, err)
		}
		return nil
	})
}

func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertNote(ctx context.Context, tx *sql.Tx, n domain.Node) error {
	var created string
	if !n.Created.IsZero() {
		created = n.Created.Format(time.RFC3339Nano)
	}
	placeholder := 0
	if n.Placeholder {
		placeholder = 1
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO notes (id, created, placeholder) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET created = excluded.created, placeholder = excluded.placeholder
	`, n.ID, created, placeholder)
	if err != nil {
		return fmt.Errorf("failed to upsert note %s: %w", n.ID, err)
	}
	return nil
}

func insertRef(ctx context.Context, tx *sql.Tx, e domain.Edge) error {
	_, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO refs (child_id, parent_id, field) VALUES (?, ?, ?)
	`, e.ChildID, e.ParentID, e.Field)
	if err != nil {
		return fmt.Errorf("failed to insert ref %s -> %s: %w", e.ChildID, e.ParentID, err)
	}
	return nil
}
