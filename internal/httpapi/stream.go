package httpapi

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/toolbridge/toolbridge/internal/apperr"
	"github.com/toolbridge/toolbridge/internal/schema"
)

// handleQueryStream is the websocket variant of /query: the client sends one
// request frame, each produced message is pushed as its own frame, and the
// stream ends with a done or error frame.
func (s *Server) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	var req queryRequest
	if err := conn.ReadJSON(&req); err != nil {
		s.writeStreamError(conn, apperr.Errorf(apperr.KindInvalid, "http.stream",
			"request frame must be a JSON object with a query field"))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.writeStreamError(conn, apperr.Errorf(apperr.KindInvalid, "http.stream",
			"query must not be empty"))
		return
	}

	// The loop invokes onMessage synchronously, so frames go out in produced
	// order from a single goroutine.
	var writeErr error
	_, err = s.runQuery(r.Context(), req, func(m schema.Message) {
		if writeErr != nil {
			return
		}
		writeErr = conn.WriteJSON(m)
	})
	if writeErr != nil {
		slog.Warn("websocket client went away mid-stream", "error", writeErr)
		return
	}
	if err != nil {
		s.writeStreamError(conn, err)
		return
	}
	if err := conn.WriteJSON(map[string]bool{"done": true}); err != nil {
		slog.Warn("failed to write done frame", "error", err)
	}
}

type jsonWriter interface {
	WriteJSON(v any) error
}

func (s *Server) writeStreamError(conn jsonWriter, err error) {
	kind := apperr.KindOf(err)
	slog.Warn("stream request failed", "kind", kind, "error", err)
	if werr := conn.WriteJSON(map[string]any{
		"error": errorBody{Kind: kind, Message: err.Error()},
	}); werr != nil {
		slog.Warn("failed to write error frame", "error", werr)
	}
}
