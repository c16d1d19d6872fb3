package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dgallion1/talkgest/internal/talktree"
)

const schema = `
CREATE TABLE IF NOT EXISTS trees (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	page       TEXT NOT NULL,
	title      TEXT NOT NULL,
	topic      TEXT NOT NULL DEFAULT '',
	tree_json  TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_trees_page ON trees(page);
`

// SQLiteStore keeps trees in a single SQLite table.
type SQLiteStore struct {
	db     *sql.DB
	insert *sql.Stmt
	log    *slog.Logger
}

func NewSQLiteStore(path string, log *slog.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path cannot be empty")
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	insert, err := db.Prepare(`INSERT INTO trees (page, title, topic, tree_json) VALUES (?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare insert: %w", err)
	}

	log.Info("sqlite sink opened", "path", path)
	return &SQLiteStore{db: db, insert: insert, log: log}, nil
}

// Write stores all trees of a page in one transaction.
func (s *SQLiteStore) Write(ctx context.Context, page string, trees []talktree.ConversationTree) error {
	if len(trees) == 0 {
		return nil
	}
	if err := validateAll(page, trees); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt := tx.StmtContext(ctx, s.insert)
	for _, t := range trees {
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("marshal tree: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, page, t.Metadata.Title, t.Metadata.Topic, string(data)); err != nil {
			return fmt.Errorf("insert tree: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Count returns the number of stored trees.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trees`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count trees: %w", err)
	}
	return n, nil
}

// ListByPage returns the trees stored for page in insertion order.
func (s *SQLiteStore) ListByPage(ctx context.Context, page string) ([]talktree.ConversationTree, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tree_json FROM trees WHERE page = ? ORDER BY id`, page)
	if err != nil {
		return nil, fmt.Errorf("query trees: %w", err)
	}
	defer rows.Close()

	var out []talktree.ConversationTree
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan tree: %w", err)
		}
		var t talktree.ConversationTree
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return nil, fmt.Errorf("decode tree: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.insert.Close()
	return s.db.Close()
}
