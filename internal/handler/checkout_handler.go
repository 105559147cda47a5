package handler

import (
	"net/http"

	"levelup-loyalty/internal/model"
	"levelup-loyalty/internal/service"

	"github.com/rs/zerolog"
)

const maxHistoryLimit = 500

// CheckoutHandler serves checkout and purchase history.
type CheckoutHandler struct {
	service service.CheckoutService
	logger  zerolog.Logger
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(service service.CheckoutService, logger zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: service,
		logger:  logger.With().Str("handler", "checkout").Logger(),
	}
}

// Checkout handles POST /api/users/{username}/checkout.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	purchase, err := h.service.Checkout(r.Context(), usernameParam(r))
	if err != nil {
		handleError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, purchase)
}

// History handles GET /api/users/{username}/purchases.
func (h *CheckoutHandler) History(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0, 1, maxHistoryLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, err.Error(), h.logger)
		return
	}

	history, err := h.service.History(r.Context(), usernameParam(r), limit)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// Stream handles GET /api/users/{username}/purchases/stream.
func (h *CheckoutHandler) Stream(w http.ResponseWriter, r *http.Request) {
	sub, err := h.service.WatchPurchases(r.Context(), usernameParam(r))
	streamOrError(w, r, sub, err, "purchases", h.logger)
}
