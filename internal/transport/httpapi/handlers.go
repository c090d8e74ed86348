package httpapi

import (
	"net/http"
	"strconv"

	"github.com/vladislavdragonenkov/restaurant/internal/domain"
	"github.com/vladislavdragonenkov/restaurant/internal/service/batch"
)

// ItemsHandler обслуживает /tables/{tid}/items.
type ItemsHandler struct {
	svc ItemService
}

type deleted struct{}

func itemKey(item domain.Item) domain.ItemID { return item.ID }

func idKey(id domain.ItemID) domain.ItemID { return id }

// Create handles POST /tables/{tid}/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	table, err := pathTableID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := parseItems(w, r, false)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.svc.RecordBatch("create", len(items))
	results := batch.Run(items, itemKey, func(item domain.Item) (domain.Item, error) {
		return h.svc.Create(table, item)
	})
	writeResults(w, http.StatusCreated, results)
}

// Update handles PUT /tables/{tid}/items.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	table, err := pathTableID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := parseItems(w, r, true)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.svc.RecordBatch("update", len(items))
	results := batch.Run(items, itemKey, func(item domain.Item) (domain.Item, error) {
		return h.svc.Update(table, item)
	})
	writeResults(w, http.StatusOK, results)
}

// List handles GET /tables/{tid}/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	table, err := pathTableID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	includeDeleted := false
	if raw := r.URL.Query().Get("include_deleted"); raw != "" {
		if includeDeleted, err = strconv.ParseBool(raw); err != nil {
			jsonError(w, http.StatusBadRequest, "'"+raw+"' is not a valid include_deleted value.")
			return
		}
	}

	items, err := h.svc.ReadAll(table, includeDeleted)
	if err != nil {
		status, msg := errorStatus(err)
		jsonError(w, status, msg)
		return
	}

	// Хранилище может вернуть несколько удалённых записей с одним ID, живая имеет приоритет.
	body := make(map[domain.ItemID]domain.Item, len(items))
	for _, item := range items {
		if prev, ok := body[item.ID]; ok && !prev.Deleted {
			continue
		}
		body[item.ID] = item
	}
	jsonResponse(w, http.StatusOK, body)
}

// Get handles GET /tables/{tid}/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	table, err := pathTableID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := pathItemID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.svc.Read(table, id)
	if err != nil {
		status, msg := errorStatus(err)
		jsonError(w, status, msg)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /tables/{tid}/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	table, err := pathTableID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := pathItemID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Delete(table, id); err != nil {
		status, msg := errorStatus(err)
		jsonError(w, status, msg)
		return
	}
	jsonResponse(w, http.StatusOK, deleted{})
}

// DeleteMany handles DELETE /tables/{tid}/items.
func (h *ItemsHandler) DeleteMany(w http.ResponseWriter, r *http.Request) {
	table, err := pathTableID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	ids, err := parseDeleteIDs(w, r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.svc.RecordBatch("delete", len(ids))
	results := batch.Run(ids, idKey, func(id domain.ItemID) (deleted, error) {
		return deleted{}, h.svc.Delete(table, id)
	})
	writeResults(w, http.StatusOK, results)
}

// writeResults отдаёт результат единственного элемента как есть,
// а несколько результатов отдаёт как 207 Multi-Status.
func writeResults[V any](w http.ResponseWriter, okStatus int, results batch.Results[V]) {
	if _, outcome, ok := results.Single(); ok {
		body := outcomeBody(okStatus, outcome.Value, outcome.Err)
		jsonResponse(w, body.Status, body.Body)
		return
	}

	body := make(map[domain.ItemID]statusWithBody, len(results))
	for id, outcome := range results {
		body[id] = outcomeBody(okStatus, outcome.Value, outcome.Err)
	}
	jsonResponse(w, http.StatusMultiStatus, body)
}
