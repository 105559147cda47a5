package handler

import (
	"net/http"

	"levelup-loyalty/internal/model"
	"levelup-loyalty/internal/service"

	"github.com/rs/zerolog"
)

// ReferralHandler serves referral registration and summaries.
type ReferralHandler struct {
	service service.ReferralService
	logger  zerolog.Logger
}

// NewReferralHandler creates a new referral handler.
func NewReferralHandler(service service.ReferralService, logger zerolog.Logger) *ReferralHandler {
	return &ReferralHandler{
		service: service,
		logger:  logger.With().Str("handler", "referral").Logger(),
	}
}

// Register handles POST /api/referrals. The referrer is given either by
// username or by referral code; the code wins when both are present.
func (h *ReferralHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.ReferralRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err, h.logger)
		return
	}

	var registered bool
	if req.ReferralCode != "" {
		ok, err := h.service.RegisterByCode(r.Context(), req.ReferralCode, req.ReferredUsername)
		if err != nil {
			handleError(w, err, h.logger)
			return
		}
		registered = ok
	} else {
		registered = h.service.RegisterReferral(r.Context(), req.ReferrerUsername, req.ReferredUsername)
	}

	status := http.StatusCreated
	if !registered {
		status = http.StatusOK
	}
	writeJSON(w, status, model.ReferralResponse{Registered: registered})
}

// Summary handles GET /api/users/{username}/referrals.
func (h *ReferralHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context(), usernameParam(r))
	if err != nil {
		handleError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Stream handles GET /api/users/{username}/referrals/stream.
func (h *ReferralHandler) Stream(w http.ResponseWriter, r *http.Request) {
	sub, err := h.service.WatchReferrals(r.Context(), usernameParam(r))
	streamOrError(w, r, sub, err, "referrals", h.logger)
}
