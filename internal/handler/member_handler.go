package handler

import (
	"net/http"

	"levelup-loyalty/internal/model"
	"levelup-loyalty/internal/service"

	"github.com/rs/zerolog"
)

// MemberHandler serves membership registration.
type MemberHandler struct {
	service service.MemberService
	logger  zerolog.Logger
}

// NewMemberHandler creates a new member handler.
func NewMemberHandler(service service.MemberService, logger zerolog.Logger) *MemberHandler {
	return &MemberHandler{
		service: service,
		logger:  logger.With().Str("handler", "member").Logger(),
	}
}

// Register handles PUT /api/members/{username}.
func (h *MemberHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.MemberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err, h.logger)
		return
	}

	member, err := h.service.Register(r.Context(), usernameParam(r), req.Email)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, member)
}
