package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/restaurant/internal/domain"
)

// Тексты ошибок в ответах.
const (
	msgConflict        = "Item already exists"
	msgVersionConflict = "Version mismatch: server has newer version"
	msgUnknownTable    = "Unknown table id"
	msgUnknownItem     = "Unknown item id"
	msgServerError     = "Server error"
)

// failMsg — тело ответа с ошибкой.
type failMsg struct {
	Msg string `json:"msg"`
}

// statusWithBody — результат одного элемента пакетного запроса.
type statusWithBody struct {
	Status int `json:"status"`
	Body   any `json:"body"`
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.WithError(err).Warn("error encoding response")
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, failMsg{Msg: message})
}

// errorStatus переводит ошибку операции в HTTP-статус и текст.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, msgConflict
	case errors.Is(err, domain.ErrVersionConflict):
		return http.StatusConflict, msgVersionConflict
	case errors.Is(err, domain.ErrUnknownTableID):
		return http.StatusNotFound, msgUnknownTable
	case errors.Is(err, domain.ErrUnknownItemID):
		return http.StatusNotFound, msgUnknownItem
	default:
		return http.StatusInternalServerError, msgServerError
	}
}

// outcomeBody возвращает статус и тело для результата одного элемента.
func outcomeBody(okStatus int, value any, err error) statusWithBody {
	if err != nil {
		status, msg := errorStatus(err)
		return statusWithBody{Status: status, Body: failMsg{Msg: msg}}
	}
	return statusWithBody{Status: okStatus, Body: value}
}
