package users

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	service *Service
	log     *zap.Logger
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log}
}

type response struct {
	Data  any        `json:"data,omitempty"`
	Error *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Message string `json:"message"`
}

// List handles GET /users
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", 10)

	result, err := h.service.List(page, perPage)
	if err != nil {
		h.log.Error("failed to list users", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, response{Error: &errorBody{Message: "internal error"}})
		return
	}

	h.writeJSON(w, http.StatusOK, response{Data: result})
}

// Get handles GET /users/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, response{Error: &errorBody{Message: "invalid user id"}})
		return
	}

	user, err := h.service.Get(uint(id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeJSON(w, http.StatusNotFound, response{Error: &errorBody{Message: "User not found"}})
			return
		}
		h.log.Error("failed to load user", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, response{Error: &errorBody{Message: "internal error"}})
		return
	}

	h.writeJSON(w, http.StatusOK, response{Data: user})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error("failed to encode response", zap.Error(err))
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
