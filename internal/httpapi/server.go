// Package httpapi exposes the chatbot over HTTP: the tool catalog, the query
// endpoint driving the conversation loop, direct tool invocation, and a
// websocket variant that streams messages as they are produced.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/toolbridge/toolbridge/internal/schema"
	"github.com/toolbridge/toolbridge/internal/session"
)

// QueryRunner drives one conversation run. Satisfied by chat.Loop.
type QueryRunner interface {
	Run(ctx context.Context, seed []schema.Message, query string, onMessage func(schema.Message)) ([]schema.Message, []schema.Message, error)
}

// Server is the HTTP façade. All handlers are stateless; cross-request state
// lives in the session manager and the tool-server client.
type Server struct {
	addr     string
	runner   QueryRunner
	tools    schema.ToolRunner
	sessions *session.Manager

	httpSrv  *http.Server
	upgrader websocket.Upgrader
}

func NewServer(addr string, runner QueryRunner, tools schema.ToolRunner, sessions *session.Manager) *Server {
	s := &Server{
		addr:     addr,
		runner:   runner,
		tools:    tools,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			// Origin policy matches the wide-open CORS stance below.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /tools", s.handleTools)
	mux.HandleFunc("POST /query", s.handleQuery)
	mux.HandleFunc("GET /query/stream", s.handleQueryStream)
	mux.HandleFunc("POST /tool", s.handleTool)
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	s.httpSrv = &http.Server{
		Addr:    addr,
		Handler: withLogging(withCORS(mux)),
		// Header-only timeout: request bodies and the websocket stream are
		// long-lived by design.
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the full middleware-wrapped handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", s.addr)
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
