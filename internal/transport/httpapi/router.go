// Package httpapi отдаёт операции над позициями стола по HTTP/JSON.
package httpapi

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/restaurant/internal/domain"
	"github.com/vladislavdragonenkov/restaurant/internal/metrics"
)

// ItemService — операции над одной позицией, которые нужны транспорту.
type ItemService interface {
	Create(table domain.TableID, item domain.Item) (domain.Item, error)
	Read(table domain.TableID, id domain.ItemID) (domain.Item, error)
	ReadAll(table domain.TableID, includeDeleted bool) ([]domain.Item, error)
	Update(table domain.TableID, item domain.Item) (domain.Item, error)
	Delete(table domain.TableID, id domain.ItemID) error
	RecordBatch(op string, size int)
}

// NewRouter регистрирует маршруты API и оборачивает их middleware.
// httpMetrics и logger могут быть nil.
func NewRouter(svc ItemService, httpMetrics *metrics.HTTPMetrics, logger *log.Entry) http.Handler {
	if logger == nil {
		logger = log.WithField("component", "http")
	}

	h := &ItemsHandler{svc: svc}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /tables/{tid}/items", h.Create)
	mux.HandleFunc("PUT /tables/{tid}/items", h.Update)
	mux.HandleFunc("GET /tables/{tid}/items", h.List)
	mux.HandleFunc("DELETE /tables/{tid}/items", h.DeleteMany)
	mux.HandleFunc("GET /tables/{tid}/items/{id}", h.Get)
	mux.HandleFunc("DELETE /tables/{tid}/items/{id}", h.Delete)

	// На всё остальное, включая неподходящий метод, отвечаем 404.
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		jsonError(w, http.StatusNotFound, "Not found")
	})

	var handler http.Handler = mux
	handler = RecoverMiddleware(handler)
	handler = LoggingMiddleware(logger, httpMetrics)(handler)
	handler = TracingMiddleware(nil)(handler)
	handler = RequestIDMiddleware(handler)
	return handler
}
