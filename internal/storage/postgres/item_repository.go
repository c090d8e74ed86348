package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/restaurant/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

const itemColumns = `item_id, table_id, name, notes, quantity, deleted, version, time_to_prepare`

type itemRepository struct {
	mu    sync.Mutex
	store *Store
}

// NewItemRepository создаёт PostgreSQL-реализацию ItemRepository.
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
		return domain.Item{}, domain.WrapUnknown("begin tx", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	raw := domain.ToStored(table, item)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO item (`+itemColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		int64(raw.ItemID), int64(raw.TableID), raw.Name, raw.Notes,
		int64(raw.Quantity), raw.Deleted, int64(raw.Version), raw.TimeToPrepare,
	)
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
		return domain.Item{}, domain.WrapUnknown("begin tx", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE item
		SET name = $1,
		    notes = $2,
		    quantity = $3,
		    deleted = $4,
		    version = version + 1,
		    time_to_prepare = $5
		WHERE table_id = $6
		  AND item_id = $7
		  AND NOT deleted
		  AND version = $8
	`,
		raw.Name,
		raw.Notes,
		int64(raw.Quantity),
		raw.Deleted,
		raw.TimeToPrepare,
		int64(raw.TableID),
		int64(raw.ItemID),
		int64(current.Version),
	)
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

	query := `
		SELECT ` + itemColumns + `
		FROM item
		WHERE table_id = $1
	`
	if !includeDeleted {
		query += " AND NOT deleted"
	}

	rows, err := r.store.DB().QueryContext(ctx, query, int64(table))
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
		UPDATE item
		SET deleted = TRUE
		WHERE table_id = $1
		  AND item_id = $2
		  AND NOT deleted
	`, int64(table), int64(id))
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
		return domain.WrapUnknown("ping postgres", err)
	}
	return nil
}

func (r *itemRepository) Close() error {
	return r.store.Close()
}

func (r *itemRepository) fetchLive(ctx context.Context, table domain.TableID, id domain.ItemID) (domain.Item, error) {
	row := r.store.DB().QueryRowContext(ctx, `
		SELECT `+itemColumns+`
		FROM item
		WHERE table_id = $1
		  AND item_id = $2
		  AND NOT deleted
	`, int64(table), int64(id))

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
		`SELECT EXISTS (SELECT 1 FROM item WHERE table_id = $1)`, int64(table),
	).Scan(&exists)
	if err != nil {
		return false, domain.WrapUnknown("check table exists", err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (domain.Item, error) {
	var (
		raw                                domain.StoredItem
		itemID, tableID, quantity, version int64
	)
	err := row.Scan(
		&itemID, &tableID, &raw.Name, &raw.Notes,
		&quantity, &raw.Deleted, &version, &raw.TimeToPrepare,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Item{}, err
		}
		return domain.Item{}, domain.WrapUnknown("scan item row", err)
	}
	raw.ItemID = uint32(itemID)
	raw.TableID = uint32(tableID)
	raw.Quantity = uint32(quantity)
	raw.Version = uint32(version)

	item, err := domain.RestoreItem(raw)
	if err != nil {
		return domain.Item{}, domain.WrapUnknown(fmt.Sprintf("restore item %d/%d", tableID, itemID), err)
	}
	return item, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.ItemRepository = (*itemRepository)(nil)
