// Package sqlstore keeps the dev server's items in SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // Import driver

	"github.com/idilsaglam/shoplist/internal/model"
)

// ErrNotFound is returned for an unknown item id.
var ErrNotFound = errors.New("item not found")

const timeLayout = "2006-01-02 15:04:05"

var schema = `
CREATE TABLE IF NOT EXISTS items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    quantity INTEGER NOT NULL DEFAULT 1,
    price REAL NOT NULL DEFAULT 0,
    is_checked BOOLEAN NOT NULL DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

type row struct {
	ID        int       `db:"id"`
	Name      string    `db:"name"`
	Quantity  int       `db:"quantity"`
	Price     float64   `db:"price"`
	IsChecked bool      `db:"is_checked"`
	CreatedAt time.Time `db:"created_at"`
}

func (r row) item() model.Item {
	return model.Item{
		ID:        r.ID,
		Name:      r.Name,
		Quantity:  r.Quantity,
		UnitPrice: r.Price,
		Checked:   r.IsChecked,
		CreatedAt: r.CreatedAt.UTC().Format(timeLayout),
	}
}

type Store struct {
	db *sqlx.DB
}

// Open connects to the database at path, creating it and its schema when
// missing. ":memory:" works for tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir: %w", err)
		}
	}
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", path, err)
	}
	// one connection keeps ":memory:" a single database
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// List returns every item, newest first.
func (s *Store) List(ctx context.Context) ([]model.Item, error) {
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, "SELECT * FROM items ORDER BY id DESC"); err != nil {
		return nil, fmt.Errorf("select items: %w", err)
	}
	items := make([]model.Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.item())
	}
	return items, nil
}

func (s *Store) Get(ctx context.Context, id int) (model.Item, error) {
	var r row
	err := s.db.GetContext(ctx, &r, "SELECT * FROM items WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Item{}, ErrNotFound
	}
	if err != nil {
		return model.Item{}, fmt.Errorf("select item %d: %w", id, err)
	}
	return r.item(), nil
}

// Create inserts draft and returns it with its id and timestamp.
func (s *Store) Create(ctx context.Context, draft model.Item) (model.Item, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO items (name, quantity, price, is_checked) VALUES (?, ?, ?, ?)",
		draft.Name, draft.Quantity, draft.UnitPrice, draft.Checked)
	if err != nil {
		return model.Item{}, fmt.Errorf("insert item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Item{}, fmt.Errorf("insert item: %w", err)
	}
	return s.Get(ctx, int(id))
}

func (s *Store) SetChecked(ctx context.Context, id int, checked bool) error {
	return s.exec(ctx, id, "UPDATE items SET is_checked = ? WHERE id = ?", checked, id)
}

// UpdateDetails writes the fields present in u. An empty update only
// checks that the item exists.
func (s *Store) UpdateDetails(ctx context.Context, id int, u model.DetailsUpdate) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var n int
	if err := tx.GetContext(ctx, &n, "SELECT COUNT(*) FROM items WHERE id = ?", id); err != nil {
		return fmt.Errorf("count item %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	if u.Quantity != nil {
		if _, err := tx.ExecContext(ctx, "UPDATE items SET quantity = ? WHERE id = ?", *u.Quantity, id); err != nil {
			return fmt.Errorf("update quantity: %w", err)
		}
	}
	if u.UnitPrice != nil {
		if _, err := tx.ExecContext(ctx, "UPDATE items SET price = ? WHERE id = ?", *u.UnitPrice, id); err != nil {
			return fmt.Errorf("update price: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) Delete(ctx context.Context, id int) error {
	return s.exec(ctx, id, "DELETE FROM items WHERE id = ?", id)
}

// Seed inserts items when the table is empty.
func (s *Store) Seed(ctx context.Context, items []model.Item) error {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM items"); err != nil {
		return fmt.Errorf("count items: %w", err)
	}
	if n > 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()
	for _, it := range items {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO items (name, quantity, price, is_checked) VALUES (?, ?, ?, ?)",
			it.Name, it.Quantity, it.UnitPrice, it.Checked); err != nil {
			return fmt.Errorf("seed %q: %w", it.Name, err)
		}
	}
	return tx.Commit()
}

// exec runs a single-row statement and maps zero affected rows to
// ErrNotFound.
func (s *Store) exec(ctx context.Context, id int, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("item %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("item %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
