package handler

import (
	"net/http"

	"levelup-loyalty/internal/model"
	"levelup-loyalty/internal/service"

	"github.com/rs/zerolog"
)

// CartHandler serves cart operations.
type CartHandler struct {
	service service.CartService
	logger  zerolog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(service service.CartService, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		service: service,
		logger:  logger.With().Str("handler", "cart").Logger(),
	}
}

// Summary handles GET /api/users/{username}/cart.
func (h *CartHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context(), usernameParam(r))
	if err != nil {
		handleError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// AddItem handles POST /api/users/{username}/cart/items.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req model.AddCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err, h.logger)
		return
	}

	line, err := h.service.AddItem(r.Context(), usernameParam(r), &req)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, line)
}

// SetQuantity handles PATCH /api/users/{username}/cart/items/{id}.
// A quantity of zero or less removes the line.
func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, err.Error(), h.logger)
		return
	}

	var req model.UpdateQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err, h.logger)
		return
	}

	if err := h.service.SetQuantity(r.Context(), usernameParam(r), id, req.Quantity); err != nil {
		handleError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveItem handles DELETE /api/users/{username}/cart/items/{id}.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, err.Error(), h.logger)
		return
	}

	if err := h.service.RemoveItem(r.Context(), usernameParam(r), id); err != nil {
		handleError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Clear handles DELETE /api/users/{username}/cart.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Clear(r.Context(), usernameParam(r)); err != nil {
		handleError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stream handles GET /api/users/{username}/cart/stream.
func (h *CartHandler) Stream(w http.ResponseWriter, r *http.Request) {
	sub, err := h.service.WatchCart(r.Context(), usernameParam(r))
	streamOrError(w, r, sub, err, "cart", h.logger)
}
