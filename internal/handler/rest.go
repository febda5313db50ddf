// Package handler provides HTTP request handlers for the items API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/items-api/internal/middleware"
	"github.com/vyrodovalexey/items-api/internal/model"
	"github.com/vyrodovalexey/items-api/internal/store"
)

// Version is the application version.
const Version = "1.0.0"

// Route prefixes serving the items resource.
const (
	ItemsPath      = "/items"
	ItemsAliasPath = "/api/items"
)

// HealthResponse is the liveness probe body.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadyResponse is the readiness probe body; Status is "ready" or "not ready".
type ReadyResponse struct {
	Status string `json:"status"`
}

// RESTHandler handles REST API requests for items.
type RESTHandler struct {
	store  store.Store
	logger *zap.Logger
}

// NewRESTHandler creates a new RESTHandler instance.
func NewRESTHandler(s store.Store, logger *zap.Logger) *RESTHandler {
	return &RESTHandler{
		store:  s,
		logger: logger,
	}
}

// RegisterRoutes registers the REST API routes with the router.
func (h *RESTHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/ready", h.ReadyCheck).Methods(http.MethodGet)

	for _, prefix := range []string{ItemsPath, ItemsAliasPath} {
		router.HandleFunc(prefix, h.ListItems).Methods(http.MethodGet)
		router.HandleFunc(prefix, h.CreateItem).Methods(http.MethodPost)
		router.HandleFunc(prefix+"/{id}", h.GetItem).Methods(http.MethodGet)
		router.HandleFunc(prefix+"/{id}", h.UpdateItem).Methods(http.MethodPut)
		router.HandleFunc(prefix+"/{id}", h.DeleteItem).Methods(http.MethodDelete)
	}
}

// HealthCheck handles GET /health requests.
func (h *RESTHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: Version,
	})
}

// ReadyCheck handles GET /ready requests by pinging the store.
func (h *RESTHandler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.log(r).Warn("store not ready", zap.Error(err))
		h.writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{Status: "not ready"})
		return
	}

	h.writeJSON(w, http.StatusOK, ReadyResponse{Status: "ready"})
}

// ListItems handles GET /items requests.
func (h *RESTHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.FindAll(r.Context())
	if err != nil {
		h.handleStoreError(w, r, err, "list items")
		return
	}

	h.writeJSON(w, http.StatusOK, items)
}

// GetItem handles GET /items/{id} requests.
func (h *RESTHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}

	found, err := h.store.FindByID(r.Context(), id)
	if err != nil {
		h.handleStoreError(w, r, err, "get item")
		return
	}

	item, ok := found.Get()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, item)
}

// CreateItem handles POST /items requests.
func (h *RESTHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var input model.ItemInput
	if !h.decode(w, r, &input) {
		return
	}

	if err := input.Validate(); err != nil {
		h.log(r).Warn("validation failed", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	candidate := input.Item()
	item, err := h.store.Insert(r.Context(), &candidate)
	if err != nil {
		h.handleStoreError(w, r, err, "create item")
		return
	}

	h.writeJSON(w, http.StatusCreated, item)
}

// UpdateItem handles PUT /items/{id} requests.
//
// A missing item is reported before the body is read, so not-found wins over
// any problem with the request body.
func (h *RESTHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}

	found, err := h.store.FindByID(r.Context(), id)
	if err != nil {
		h.handleStoreError(w, r, err, "update item")
		return
	}

	item, ok := found.Get()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var patch model.ItemPatch
	if !h.decode(w, r, &patch) {
		return
	}

	item.Apply(patch)
	if err := item.Validate(); err != nil {
		h.log(r).Warn("validation failed", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.store.Update(r.Context(), &item)
	if err != nil {
		h.handleStoreError(w, r, err, "update item")
		return
	}

	h.writeJSON(w, http.StatusOK, updated)
}

// DeleteItem handles DELETE /items/{id} requests.
func (h *RESTHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}

	exists, err := h.store.ExistsByID(r.Context(), id)
	if err != nil {
		h.handleStoreError(w, r, err, "delete item")
		return
	}
	if !exists {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if err := h.store.DeleteByID(r.Context(), id); err != nil {
		h.handleStoreError(w, r, err, "delete item")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// itemID parses the {id} path variable. An ID that is not an integer gets a
// 400 response; zero and negative IDs can never be stored, so they get a 404.
func (h *RESTHandler) itemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := mux.Vars(r)["id"]

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.log(r).Warn("invalid item ID", zap.String("id", raw))
		h.writeError(w, http.StatusBadRequest, "invalid item ID")
		return 0, false
	}

	if id <= 0 {
		w.WriteHeader(http.StatusNotFound)
		return 0, false
	}

	return id, true
}

// decode reads the JSON request body into dst, writing a 400 response on failure.
func (h *RESTHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.log(r).Warn("invalid request body", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}

	return true
}

// handleStoreError handles store errors and writes appropriate HTTP responses.
func (h *RESTHandler) handleStoreError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
	case errors.Is(err, store.ErrInvalidID):
		h.writeError(w, http.StatusBadRequest, "invalid item ID")
	default:
		h.log(r).Error("store operation failed", zap.String("operation", operation), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// log returns the request-scoped logger, falling back to the handler logger.
func (h *RESTHandler) log(r *http.Request) *zap.Logger {
	return middleware.LoggerFromContext(r.Context(), h.logger)
}

// writeJSON writes a JSON response with the given status code.
func (h *RESTHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError writes an error response with the given status code and message.
func (h *RESTHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, model.ErrorResponse{
		Code:    status,
		Message: message,
	})
}
