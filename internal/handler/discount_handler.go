package handler

import (
	"net/http"
	"strconv"

	"levelup-loyalty/internal/model"
	"levelup-loyalty/internal/service"

	"github.com/rs/zerolog"
)

// DiscountHandler serves QR discount redemption.
type DiscountHandler struct {
	service service.DiscountService
	logger  zerolog.Logger
}

// NewDiscountHandler creates a new discount handler.
func NewDiscountHandler(service service.DiscountService, logger zerolog.Logger) *DiscountHandler {
	return &DiscountHandler{
		service: service,
		logger:  logger.With().Str("handler", "discount").Logger(),
	}
}

// Scan handles POST /api/users/{username}/discounts/scan.
func (h *DiscountHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req model.ScanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err, h.logger)
		return
	}

	grant, err := h.service.AddFromScan(r.Context(), usernameParam(r), req.Content)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, grant)
}

// List handles GET /api/users/{username}/discounts?active=true.
func (h *DiscountHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := false
	if raw := r.URL.Query().Get("active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "query parameter active must be a boolean", h.logger)
			return
		}
		activeOnly = v
	}

	list, err := h.service.List(r.Context(), usernameParam(r), activeOnly)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// MarkUsed handles POST /api/users/{username}/discounts/{id}/use.
func (h *DiscountHandler) MarkUsed(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, err.Error(), h.logger)
		return
	}

	if err := h.service.MarkUsed(r.Context(), usernameParam(r), id); err != nil {
		handleError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/users/{username}/discounts/{id}.
func (h *DiscountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, err.Error(), h.logger)
		return
	}

	if err := h.service.Delete(r.Context(), usernameParam(r), id); err != nil {
		handleError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stream handles GET /api/users/{username}/discounts/stream.
func (h *DiscountHandler) Stream(w http.ResponseWriter, r *http.Request) {
	sub, err := h.service.WatchDiscounts(r.Context(), usernameParam(r))
	streamOrError(w, r, sub, err, "discounts", h.logger)
}
