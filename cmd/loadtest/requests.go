package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/restaurant/internal/version"
)

const (
	maxTableID      = 100
	maxItemID       = 100
	maxBatchSize    = 10
	maxQuantity     = 10
	maxVersion      = 1000
	menuItemName    = "Name from menu"
	waiterItemNotes = "Notes from waiter"
)

// Маршруты в терминах шаблонов API, они же ключи отчёта.
const (
	routeListItems  = "GET /tables/{tid}/items"
	routeGetItem    = "GET /tables/{tid}/items/{id}"
	routeCreate     = "POST /tables/{tid}/items"
	routeUpdate     = "PUT /tables/{tid}/items"
	routeDeleteItem = "DELETE /tables/{tid}/items/{id}"
	routeDeleteMany = "DELETE /tables/{tid}/items"
)

// apiRequest — один случайный запрос к API.
type apiRequest struct {
	route  string
	method string
	path   string
	body   []byte
}

type itemBody struct {
	Name     string  `json:"name"`
	Notes    string  `json:"notes"`
	Quantity uint32  `json:"quantity"`
	Version  *uint32 `json:"version,omitempty"`
}

func randomTableID(rng *rand.Rand) int { return rng.IntN(maxTableID) + 1 }

func randomItemID(rng *rand.Rand) int { return rng.IntN(maxItemID) + 1 }

// randomRequest выбирает метод равновероятно, а для GET и DELETE ещё и
// между одиночным и пакетным маршрутом.
func randomRequest(rng *rand.Rand) apiRequest {
	table := randomTableID(rng)
	itemsPath := fmt.Sprintf("/tables/%d/items", table)

	switch rng.IntN(4) {
	case 0:
		if rng.IntN(2) == 0 {
			return apiRequest{route: routeListItems, method: http.MethodGet, path: itemsPath}
		}
		return apiRequest{
			route:  routeGetItem,
			method: http.MethodGet,
			path:   fmt.Sprintf("%s/%d", itemsPath, randomItemID(rng)),
		}
	case 1:
		return apiRequest{route: routeCreate, method: http.MethodPost, path: itemsPath, body: itemsBody(rng, false)}
	case 2:
		return apiRequest{route: routeUpdate, method: http.MethodPut, path: itemsPath, body: itemsBody(rng, true)}
	default:
		if rng.IntN(2) == 0 {
			return apiRequest{
				route:  routeDeleteItem,
				method: http.MethodDelete,
				path:   fmt.Sprintf("%s/%d", itemsPath, randomItemID(rng)),
			}
		}
		return apiRequest{route: routeDeleteMany, method: http.MethodDelete, path: itemsPath, body: deleteBody(rng)}
	}
}

func itemsBody(rng *rand.Rand, withVersion bool) []byte {
	entries := make(map[string]itemBody)
	for n := rng.IntN(maxBatchSize) + 1; n > 0; n-- {
		item := itemBody{
			Name:     menuItemName,
			Notes:    waiterItemNotes,
			Quantity: uint32(rng.IntN(maxQuantity) + 1),
		}
		if withVersion {
			v := uint32(rng.IntN(maxVersion) + 1)
			item.Version = &v
		}
		entries[strconv.Itoa(randomItemID(rng))] = item
	}

	data, _ := json.Marshal(entries)
	return data
}

func deleteBody(rng *rand.Rand) []byte {
	ids := make([]int, rng.IntN(maxBatchSize)+1)
	for i := range ids {
		ids[i] = randomItemID(rng)
	}

	data, _ := json.Marshal(map[string][]int{"ids": ids})
	return data
}

// doRequest отправляет запрос и записывает результат в collector.
func doRequest(ctx context.Context, client *http.Client, baseURL string, req apiRequest, col *collector) error {
	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, baseURL+req.path, body)
	if err != nil {
		return err
	}
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("User-Agent", version.UserAgent("loadtest"))
	httpReq.Header.Set("X-Request-ID", uuid.NewString())

	start := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		col.record(req.route, time.Since(start), 0, err)
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	col.record(req.route, time.Since(start), resp.StatusCode, nil)

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%s %s: status %d", req.method, req.path, resp.StatusCode)
	}
	return nil
}
