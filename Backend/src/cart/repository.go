package cart

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrNotFound = errors.New("cart: not found")

// Repository persists cart snapshots keyed by session id.
type Repository interface {
	Load(ctx context.Context, sessionID string) ([]LineItem, error)
	Save(ctx context.Context, sessionID string, items []LineItem) error
	Delete(ctx context.Context, sessionID string) error
}

type SQLiteRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepo(db *sql.DB) *SQLiteRepo {
	return &SQLiteRepo{db: db, now: time.Now}
}

func (r *SQLiteRepo) Close() error { return r.db.Close() }

// Load returns the items saved for sessionID in their original order, or
// ErrNotFound when nothing was saved.
func (r *SQLiteRepo) Load(ctx context.Context, sessionID string) ([]LineItem, error) {
	var updated int64
	err := r.db.QueryRowContext(ctx,
		`SELECT updated_unix FROM cart_sessions WHERE session_id=?`, sessionID).Scan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT item_id, name, description, unit_price, qty, sku, category, image_url
		FROM cart_items WHERE session_id=? ORDER BY position`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LineItem
	for rows.Next() {
		var it LineItem
		if err := rows.Scan(&it.ID, &it.Name, &it.Description, &it.UnitPrice,
			&it.Quantity, &it.SKU, &it.Category, &it.ImageURL); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Save replaces the snapshot for sessionID. Saving an empty cart deletes it.
func (r *SQLiteRepo) Save(ctx context.Context, sessionID string, items []LineItem) error {
	if len(items) == 0 {
		return r.Delete(ctx, sessionID)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO cart_sessions(session_id, updated_unix) VALUES (?, ?)
		ON CONFLICT(session_id) DO UPDATE SET updated_unix = excluded.updated_unix`,
		sessionID, r.now().Unix()); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE session_id=?`, sessionID); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cart_items(session_id, position, item_id, name, description, unit_price, qty, sku, category, image_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, it := range items {
		if _, err := stmt.ExecContext(ctx, sessionID, i, it.ID, it.Name, it.Description,
			it.UnitPrice.String(), it.Quantity, it.SKU, it.Category, it.ImageURL); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepo) Delete(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_sessions WHERE session_id=?`, sessionID)
	return err
}

// Purge drops snapshots not saved since before and reports how many.
func (r *SQLiteRepo) Purge(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_sessions WHERE updated_unix < ?`, before.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
