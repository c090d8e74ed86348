package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/vladislavdragonenkov/restaurant/internal/domain"
)

const opTimeout = 5 * time.Second

const selectColumns = `item_id, table_id, name, notes, quantity, deleted, version, time_to_prepare`

type itemRepository struct {
	mu    sync.Mutex
	store *Store
}

// NewItemRepository создаёт SQLite-реализацию ItemRepository.
// Репозиторий владеет store и закрывает его в Close.
func NewItemRepository(store *Store) domain.ItemRepository {
	return &itemRepository{store: store}
}

func (r *itemRepository) Insert(table domain.TableID, item domain.Item) (result domain.Item, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return domain.Item{}, domain.WrapUnknown("begin insert tx", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	raw := domain.ToStored(table, item)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO item (`+selectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, raw.ItemID, raw.TableID, raw.Name, raw.Notes, raw.Quantity, raw.Deleted, raw.Version, raw.TimeToPrepare)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Item{}, domain.ErrConflict
		}
		return domain.Item{}, domain.WrapUnknown("insert item", err)
	}

	if err = tx.Commit(); err != nil {
		return domain.Item{}, domain.WrapUnknown("commit insert item", err)
	}
	return item, nil
}

func (r *itemRepository) Update(table domain.TableID, item domain.Item) (result domain.Item, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	current, err := r.fetchLive(ctx, table, item.ID)
	if err != nil {
		return domain.Item{}, err
	}
	if item.Version.Less(current.Version) {
		return domain.Item{}, domain.ErrVersionConflict
	}

	updated := item
	updated.Version = current.Version.Next()
	raw := domain.ToStored(table, updated)

	tx, err := r.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return domain.Item{}, domain.WrapUnknown("begin update tx", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE item
		SET name = ?,
		    notes = ?,
		    quantity = ?,
		    deleted = ?,
		    version = ?,
		    time_to_prepare = ?
		WHERE table_id = ?
		  AND item_id = ?
		  AND deleted = 0
		  AND version = ?
	`, raw.Name, raw.Notes, raw.Quantity, raw.Deleted, raw.Version, raw.TimeToPrepare,
		raw.TableID, raw.ItemID, uint32(current.Version))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Item{}, domain.ErrVersionConflict
		}
		return domain.Item{}, domain.WrapUnknown("update item", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Item{}, domain.WrapUnknown("rows affected", err)
	}
	if affected == 0 {
		return domain.Item{}, domain.ErrVersionConflict
	}

	if err = tx.Commit(); err != nil {
		return domain.Item{}, domain.WrapUnknown("commit update item", err)
	}
	return updated, nil
}

func (r *itemRepository) FetchOne(table domain.TableID, id domain.ItemID) (domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.fetchLive(ctx, table, id)
}

func (r *itemRepository) FetchAll(table domain.TableID, includeDeleted bool) ([]domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := `SELECT ` + selectColumns + ` FROM item WHERE table_id = ?`
	if !includeDeleted {
		query += ` AND deleted = 0`
	}

	rows, err := r.store.DB().QueryContext(ctx, query, uint32(table))
	if err != nil {
		return nil, domain.WrapUnknown("list items", err)
	}
	defer rows.Close()

	items := make([]domain.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapUnknown("iterate item rows", err)
	}

	if len(items) == 0 {
		exists, err := r.tableExists(ctx, table)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, domain.ErrUnknownTableID
		}
	}

	domain.SortItems(items)
	return items, nil
}

func (r *itemRepository) Delete(table domain.TableID, id domain.ItemID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.store.DB().ExecContext(ctx, `
		UPDATE item SET deleted = 1
		WHERE table_id = ? AND item_id = ? AND deleted = 0
	`, uint32(table), uint32(id))
	if err != nil {
		return domain.WrapUnknown("delete item", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return domain.WrapUnknown("rows affected", err)
	}
	if affected > 0 {
		return nil
	}

	exists, err := r.tableExists(ctx, table)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrUnknownTableID
	}
	return domain.ErrUnknownItemID
}

func (r *itemRepository) Ping() error {
	if err := r.store.Ping(context.Background()); err != nil {
		return domain.WrapUnknown("ping sqlite", err)
	}
	return nil
}

func (r *itemRepository) Close() error {
	return r.store.Close()
}

// fetchLive вызывается под r.mu.
func (r *itemRepository) fetchLive(ctx context.Context, table domain.TableID, id domain.ItemID) (domain.Item, error) {
	row := r.store.DB().QueryRowContext(ctx, `
		SELECT `+selectColumns+`
		FROM item
		WHERE table_id = ? AND item_id = ? AND deleted = 0
	`, uint32(table), uint32(id))

	item, err := scanItem(row)
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Item{}, err
	}

	exists, err := r.tableExists(ctx, table)
	if err != nil {
		return domain.Item{}, err
	}
	if !exists {
		return domain.Item{}, domain.ErrUnknownTableID
	}
	return domain.Item{}, domain.ErrUnknownItemID
}

func (r *itemRepository) tableExists(ctx context.Context, table domain.TableID) (bool, error) {
	var exists bool
	err := r.store.DB().QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM item WHERE table_id = ?)`, uint32(table),
	).Scan(&exists)
	if err != nil {
		return false, domain.WrapUnknown("check table exists", err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanItem возвращает sql.ErrNoRows как есть, остальные ошибки оборачивает в ErrUnknown.
func scanItem(row rowScanner) (domain.Item, error) {
	var raw domain.StoredItem
	err := row.Scan(
		&raw.ItemID, &raw.TableID, &raw.Name, &raw.Notes,
		&raw.Quantity, &raw.Deleted, &raw.Version, &raw.TimeToPrepare,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Item{}, err
		}
		return domain.Item{}, domain.WrapUnknown("scan item row", err)
	}

	item, err := domain.RestoreItem(raw)
	if err != nil {
		return domain.Item{}, domain.WrapUnknown(fmt.Sprintf("restore item %d/%d", raw.TableID, raw.ItemID), err)
	}
	return item, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return false
}

var _ domain.ItemRepository = (*itemRepository)(nil)
