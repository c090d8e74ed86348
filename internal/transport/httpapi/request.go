package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/vladislavdragonenkov/restaurant/internal/domain"
)

const maxBodyBytes = 1 << 20

// itemPayload — описание позиции в теле POST/PUT.
type itemPayload struct {
	Name     string       `json:"name"`
	Notes    string       `json:"notes"`
	Quantity json.Number  `json:"quantity"`
	Version  *json.Number `json:"version,omitempty"`
}

type deletePayload struct {
	IDs []json.Number `json:"ids"`
}

// decodeJSON decodes a JSON request body into the given target.
// Пустое тело возвращает io.EOF.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(target)
}

// parseItems читает тело вида {"<id>": {...}} и валидирует все позиции до
// выполнения операций. Поле version учитывается только при withVersion.
// Ключи, указывающие на один ID ("1" и "01"), отклоняются.
// Позиции возвращаются в порядке возрастания ID.
func parseItems(w http.ResponseWriter, r *http.Request, withVersion bool) ([]domain.Item, error) {
	var payload map[string]itemPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("An empty body provided")
		}
		return nil, err
	}

	items := make([]domain.Item, 0, len(payload))
	seen := make(map[domain.ItemID]struct{}, len(payload))
	for key, p := range payload {
		if !withVersion {
			p.Version = nil
		}
		item, err := p.toItem(key)
		if err != nil {
			return nil, fmt.Errorf("An error at item with id: %s: %w", key, err)
		}
		if _, dup := seen[item.ID]; dup {
			return nil, fmt.Errorf("Duplicate item id: %s", item.ID)
		}
		seen[item.ID] = struct{}{}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil, errors.New("An empty body provided")
	}

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (p itemPayload) toItem(key string) (domain.Item, error) {
	id, err := domain.ParseItemID(key)
	if err != nil {
		return domain.Item{}, err
	}
	name, err := domain.ParseItemName(p.Name)
	if err != nil {
		return domain.Item{}, err
	}
	notes, err := domain.ParseItemNotes(p.Notes)
	if err != nil {
		return domain.Item{}, err
	}
	quantity, err := domain.ParseItemQuantity(p.Quantity.String())
	if err != nil {
		return domain.Item{}, err
	}

	version := domain.InitialVersion
	if p.Version != nil {
		if version, err = domain.ParseItemVersion(p.Version.String()); err != nil {
			return domain.Item{}, err
		}
	}

	return domain.NewItem(id, name, notes, quantity, version), nil
}

// parseDeleteIDs читает тело {"ids": [...]}.
func parseDeleteIDs(w http.ResponseWriter, r *http.Request) ([]domain.ItemID, error) {
	var payload deletePayload
	if err := decodeJSON(w, r, &payload); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("An empty list for deletion provided")
		}
		return nil, err
	}

	ids := make([]domain.ItemID, 0, len(payload.IDs))
	seen := make(map[domain.ItemID]struct{}, len(payload.IDs))
	for _, raw := range payload.IDs {
		id, err := domain.ParseItemID(raw.String())
		if err != nil {
			return nil, fmt.Errorf("Cannot parse item with id: %s: %w", raw, err)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("Duplicate item id: %s", id)
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("An empty list for deletion provided")
	}
	return ids, nil
}

func pathTableID(r *http.Request) (domain.TableID, error) {
	return domain.ParseTableID(r.PathValue("tid"))
}

func pathItemID(r *http.Request) (domain.ItemID, error) {
	return domain.ParseItemID(r.PathValue("id"))
}
