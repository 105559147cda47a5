package handler

import (
	"net/http"

	"levelup-loyalty/internal/levelup"
	"levelup-loyalty/internal/model"
	"levelup-loyalty/internal/service"

	"github.com/rs/zerolog"
)

const maxLeaderboardLimit = 100

// LoyaltyHandler serves points, levels and the leaderboard.
type LoyaltyHandler struct {
	service service.LedgerService
	logger  zerolog.Logger
}

// NewLoyaltyHandler creates a new loyalty handler.
func NewLoyaltyHandler(service service.LedgerService, logger zerolog.Logger) *LoyaltyHandler {
	return &LoyaltyHandler{
		service: service,
		logger:  logger.With().Str("handler", "loyalty").Logger(),
	}
}

// Levels handles GET /api/levels.
func (h *LoyaltyHandler) Levels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, levelup.Levels())
}

// Enroll handles POST /api/users/{username}.
func (h *LoyaltyHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.EnsureUser(r.Context(), usernameParam(r))
	if err != nil {
		handleError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Status handles GET /api/users/{username}/status.
func (h *LoyaltyHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Status(r.Context(), usernameParam(r))
	if err != nil {
		handleError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// AddPoints handles POST /api/users/{username}/points.
func (h *LoyaltyHandler) AddPoints(w http.ResponseWriter, r *http.Request) {
	var req model.AddPointsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err, h.logger)
		return
	}

	change, err := h.service.AddPoints(r.Context(), usernameParam(r), req.Points)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, change)
}

// StatusStream handles GET /api/users/{username}/status/stream.
func (h *LoyaltyHandler) StatusStream(w http.ResponseWriter, r *http.Request) {
	sub, err := h.service.WatchStatus(r.Context(), usernameParam(r))
	streamOrError(w, r, sub, err, "status", h.logger)
}

// Leaderboard handles GET /api/leaderboard.
func (h *LoyaltyHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0, 1, maxLeaderboardLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, err.Error(), h.logger)
		return
	}

	entries, err := h.service.TopUsers(r.Context(), limit)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// LeaderboardStream handles GET /api/leaderboard/stream.
func (h *LoyaltyHandler) LeaderboardStream(w http.ResponseWriter, r *http.Request) {
	sub, err := h.service.WatchLeaderboard(r.Context())
	streamOrError(w, r, sub, err, "leaderboard", h.logger)
}
