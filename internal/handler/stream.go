package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"levelup-loyalty/internal/watch"

	"github.com/rs/zerolog"
)

var heartbeatInterval = 15 * time.Second

// serveStream writes every update of sub as a server-sent event until the
// client goes away or the subscription ends. The first event is the
// current value.
func serveStream[T any](w http.ResponseWriter, r *http.Request, sub *watch.Subscription[T], event string, logger zerolog.Logger) {
	defer sub.Cancel()

	rc := http.NewResponseController(w)
	// streams outlive the server write timeout
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		logger.Warn().Err(err).Msg("failed to clear write deadline")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		logger.Error().Err(err).Msg("streaming not supported")
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	logger.Debug().Str("event", event).Msg("stream opened")
	defer logger.Debug().Str("event", event).Msg("stream closed")

	for {
		select {
		case <-r.Context().Done():
			return
		case v, ok := <-sub.Updates():
			if !ok {
				return
			}
			payload, err := json.Marshal(v)
			if err != nil {
				logger.Error().Err(err).Str("event", event).Msg("failed to encode stream value")
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

// streamOrError opens a stream or reports why the subscription failed.
func streamOrError[T any](w http.ResponseWriter, r *http.Request, sub *watch.Subscription[T], err error, event string, logger zerolog.Logger) {
	if err != nil {
		handleError(w, err, logger)
		return
	}
	serveStream(w, r, sub, event, logger)
}
