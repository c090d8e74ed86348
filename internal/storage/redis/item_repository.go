package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/vladislavdragonenkov/restaurant/internal/domain"
)

const (
	opTimeout      = 5 * time.Second
	defaultPrefix  = "restaurant"
	connectTimeout = 2 * time.Second
)

// Open создаёт клиента Redis и проверяет подключение.
func Open(ctx context.Context, addr string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

// itemRepository хранит позиции стола в hash <prefix>:table:<tid>:items
// (поле: ID позиции, значение: JSON текущего состояния вместе с флагом удаления),
// а множество <prefix>:tables хранит столы, в которые хоть раз добавляли позиции.
type itemRepository struct {
	mu     sync.Mutex
	client *redis.Client
	prefix string
}

// NewItemRepository создаёт Redis-реализацию ItemRepository.
// Пустой prefix заменяется на "restaurant".
func NewItemRepository(client *redis.Client, prefix string) domain.ItemRepository {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &itemRepository{client: client, prefix: prefix}
}

func (r *itemRepository) tableKey(table domain.TableID) string {
	return fmt.Sprintf("%s:table:%d:items", r.prefix, table)
}

func (r *itemRepository) tablesKey() string {
	return r.prefix + ":tables"
}

func (r *itemRepository) Insert(table domain.TableID, item domain.Item) (domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	current, found, err := r.load(ctx, table, item.ID)
	if err != nil {
		return domain.Item{}, err
	}
	if found && !current.Deleted {
		return domain.Item{}, domain.ErrConflict
	}

	if err := r.save(ctx, table, item, true); err != nil {
		return domain.Item{}, err
	}
	return item, nil
}

func (r *itemRepository) Update(table domain.TableID, item domain.Item) (domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	current, err := r.loadLive(ctx, table, item.ID)
	if err != nil {
		return domain.Item{}, err
	}
	if item.Version.Less(current.Version) {
		return domain.Item{}, domain.ErrVersionConflict
	}

	updated := item
	updated.Version = current.Version.Next()
	if err := r.save(ctx, table, updated, false); err != nil {
		return domain.Item{}, err
	}
	return updated, nil
}

func (r *itemRepository) FetchOne(table domain.TableID, id domain.ItemID) (domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.loadLive(ctx, table, id)
}

func (r *itemRepository) FetchAll(table domain.TableID, includeDeleted bool) ([]domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	known, err := r.tableKnown(ctx, table)
	if err != nil {
		return nil, err
	}
	if !known {
		return nil, domain.ErrUnknownTableID
	}

	values, err := r.client.HGetAll(ctx, r.tableKey(table)).Result()
	if err != nil {
		return nil, domain.WrapUnknown("hgetall items", err)
	}

	items := make([]domain.Item, 0, len(values))
	for field, data := range values {
		item, err := decodeItem(field, data)
		if err != nil {
			return nil, err
		}
		if item.Deleted && !includeDeleted {
			continue
		}
		items = append(items, item)
	}

	domain.SortItems(items)
	return items, nil
}

func (r *itemRepository) Delete(table domain.TableID, id domain.ItemID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	current, err := r.loadLive(ctx, table, id)
	if err != nil {
		return err
	}
	current.Deleted = true
	return r.save(ctx, table, current, false)
}

func (r *itemRepository) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return domain.WrapUnknown("ping redis", err)
	}
	return nil
}

func (r *itemRepository) Close() error {
	return r.client.Close()
}

// load возвращает текущее состояние позиции, включая удалённые.
func (r *itemRepository) load(ctx context.Context, table domain.TableID, id domain.ItemID) (domain.Item, bool, error) {
	field := id.String()
	data, err := r.client.HGet(ctx, r.tableKey(table), field).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Item{}, false, nil
		}
		return domain.Item{}, false, domain.WrapUnknown("hget item", err)
	}

	item, err := decodeItem(field, data)
	if err != nil {
		return domain.Item{}, false, err
	}
	return item, true, nil
}

func (r *itemRepository) loadLive(ctx context.Context, table domain.TableID, id domain.ItemID) (domain.Item, error) {
	item, found, err := r.load(ctx, table, id)
	if err != nil {
		return domain.Item{}, err
	}
	if found && !item.Deleted {
		return item, nil
	}

	known, err := r.tableKnown(ctx, table)
	if err != nil {
		return domain.Item{}, err
	}
	if !known {
		return domain.Item{}, domain.ErrUnknownTableID
	}
	return domain.Item{}, domain.ErrUnknownItemID
}

func (r *itemRepository) tableKnown(ctx context.Context, table domain.TableID) (bool, error) {
	known, err := r.client.SIsMember(ctx, r.tablesKey(), strconv.FormatUint(uint64(table), 10)).Result()
	if err != nil {
		return false, domain.WrapUnknown("sismember tables", err)
	}
	return known, nil
}

// save записывает позицию одной транзакцией MULTI/EXEC.
func (r *itemRepository) save(ctx context.Context, table domain.TableID, item domain.Item, touchTable bool) error {
	data, err := json.Marshal(domain.ToStored(table, item))
	if err != nil {
		return domain.WrapUnknown("marshal item", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.tableKey(table), item.ID.String(), data)
		if touchTable {
			pipe.SAdd(ctx, r.tablesKey(), strconv.FormatUint(uint64(table), 10))
		}
		return nil
	})
	if err != nil {
		return domain.WrapUnknown("save item", err)
	}
	return nil
}

func decodeItem(field, data string) (domain.Item, error) {
	var raw domain.StoredItem
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return domain.Item{}, domain.WrapUnknown("decode item "+field, err)
	}
	if raw.ItemID == 0 || strconv.FormatUint(uint64(raw.ItemID), 10) != field {
		return domain.Item{}, domain.WrapUnknown("decode item "+field, fmt.Errorf("field does not match item id %d", raw.ItemID))
	}

	item, err := domain.RestoreItem(raw)
	if err != nil {
		return domain.Item{}, domain.WrapUnknown("restore item "+field, err)
	}
	return item, nil
}

var _ domain.ItemRepository = (*itemRepository)(nil)
