package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/toolbridge/toolbridge/internal/apperr"
	"github.com/toolbridge/toolbridge/internal/schema"
)

type queryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

type toolRequest struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type errorBody struct {
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	catalog, err := s.tools.Tools()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "degraded", "tools": 0,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok", "tools": len(catalog),
	})
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	catalog, err := s.tools.Tools()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": catalog})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.E(apperr.KindInvalid, "http.query",
			fmt.Errorf("decode request body: %w", err)))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, apperr.Errorf(apperr.KindInvalid, "http.query", "query must not be empty"))
		return
	}

	produced, err := s.runQuery(r.Context(), req, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": produced})
}

// runQuery resolves the optional session, drives the loop, and persists the
// resulting transcript. The transcript is saved even when the run failed so
// the session keeps everything appended before the failure.
func (s *Server) runQuery(ctx context.Context, req queryRequest, onMessage func(schema.Message)) ([]schema.Message, error) {
	var seed []schema.Message
	var sess interface {
		Snapshot() []schema.Message
		Replace([]schema.Message)
	}

	if req.SessionID != "" {
		stored, err := s.sessions.GetOrCreate(req.SessionID)
		if err != nil {
			// Server-side store corruption, not a log write and not the
			// client's fault: left unkinded so it surfaces as a plain 500.
			return nil, fmt.Errorf("session %q: %w", req.SessionID, err)
		}
		seed = stored.Snapshot()
		sess = stored

		defer func() {
			if err := s.sessions.Save(stored); err != nil {
				slog.Error("failed to persist session", "session", req.SessionID, "error", err)
			}
		}()
	}

	produced, transcript, err := s.runner.Run(ctx, seed, req.Query, onMessage)
	if sess != nil {
		sess.Replace(transcript)
	}
	if err != nil {
		return produced, err
	}
	return produced, nil
}

func (s *Server) handleTool(w http.ResponseWriter, r *http.Request) {
	var req toolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.E(apperr.KindInvalid, "http.tool",
			fmt.Errorf("decode request body: %w", err)))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, apperr.Errorf(apperr.KindInvalid, "http.tool", "tool name must not be empty"))
		return
	}

	result, err := s.tools.CallTool(r.Context(), req.Name, req.Args)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": json.RawMessage(result)})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindInvalid:
		return http.StatusBadRequest
	case apperr.KindConnection, apperr.KindProtocol:
		return http.StatusServiceUnavailable
	case apperr.KindGateway, apperr.KindToolExecution:
		return http.StatusBadGateway
	case apperr.KindSerialization:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	if status >= 500 {
		slog.Error("request failed", "kind", kind, "error", err)
	} else {
		slog.Warn("request rejected", "kind", kind, "error", err)
	}
	writeJSON(w, status, map[string]any{"error": errorBody{Kind: kind, Message: err.Error()}})
}
