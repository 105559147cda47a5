package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"levelup-loyalty/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, code, message string, logger zerolog.Logger) {
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Str("code", code).Str("error", message).Int("status", status).Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{Error: code, Message: message})
}

// handleError maps a service error onto an HTTP status.
func handleError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	if errors.Is(err, model.ErrStoreUnavailable) {
		logger.Error().Err(err).Msg("store unavailable")
		writeError(w, http.StatusServiceUnavailable, model.ErrCodeStoreUnavailable, model.ErrStoreUnavailable.Message, logger)
		return
	}

	de, ok := model.AsDomainError(err)
	if !ok {
		logger.Error().Err(err).Msg("unexpected error")
		writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error", logger)
		return
	}

	writeError(w, statusFor(de), de.Code, de.Message, logger)
}

func statusFor(de *model.DomainError) int {
	switch de.Code {
	case model.ErrCodeUserNotFound, model.ErrCodeCartLineNotFound, model.ErrCodeDiscountNotFound:
		return http.StatusNotFound
	case model.ErrCodeDuplicateDiscount, model.ErrCodeReferralRejected:
		return http.StatusConflict
	case model.ErrCodeEmptyCart, model.ErrCodeReferralCodeUnknown, model.ErrCodeSelfReferral:
		return http.StatusUnprocessableEntity
	case model.ErrCodeCheckoutFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// validationError carries per-field validation messages.
type validationError struct {
	message string
	details map[string]string
}

func (e *validationError) Error() string { return e.message }

// decodeJSON decodes the body into dst and validates it.
func decodeJSON(r *http.Request, dst any) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return &validationError{message: "invalid request body", details: map[string]string{"body": err.Error()}}
	}

	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			details := make(map[string]string, len(fieldErrs))
			for _, fe := range fieldErrs {
				details[fe.Field()] = validationMessage(fe)
			}
			return &validationError{message: "validation failed", details: details}
		}
		return &validationError{message: "validation failed"}
	}
	return nil
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email"
	}
	return "is invalid"
}

// writeDecodeError reports a body that failed to decode or validate.
func writeDecodeError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var ve *validationError
	if !errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, err.Error(), logger)
		return
	}

	code := model.ErrCodeValidation
	if ve.message == "invalid request body" {
		code = model.ErrCodeInvalidJSON
	}
	logger.Debug().Str("code", code).Interface("details", ve.details).Msg("rejected request body")
	writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: code, Message: ve.message, Details: ve.details})
}

func usernameParam(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "username"))
}

// maxUsernameLength matches the width of the username columns.
const maxUsernameLength = 100

// RequireUsername rejects requests whose {username} path parameter is
// longer than a stored username can be.
func RequireUsername(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if n := utf8.RuneCountInString(usernameParam(r)); n > maxUsernameLength {
				writeError(w, http.StatusBadRequest, model.ErrCodeValidation,
					fmt.Sprintf("username must be at most %d characters", maxUsernameLength), logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func idParam(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// queryInt reads an optional integer query parameter bounded by [lo, hi].
func queryInt(r *http.Request, key string, fallback, lo, hi int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("query parameter %s must be numeric", key)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("query parameter %s must be between %d and %d", key, lo, hi)
	}
	return v, nil
}
