package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/emmett/hark/internal/stt"
)

// Config holds server configuration
type Config struct {
	Host string
	Port int
}

// Server accepts websocket connections and runs one recognition session per
// connection. The engine is shared; every connection gets its own recognizer.
type Server struct {
	cfg      Config
	engine   stt.Engine
	upgrader websocket.Upgrader
	server   *http.Server
	log      *slog.Logger
}

// NewServer creates a new websocket recognition server
func NewServer(cfg Config, engine stt.Engine, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/recognize", s.handleRecognize)
	mux.HandleFunc("/", s.handleRecognize)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		ReadHeaderTimeout: 5 * time.Second,
		Handler:           mux,
	}

	return s
}

// Start begins serving and blocks until the listener fails or Stop is called
func (s *Server) Start() error {
	s.log.Info("server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen on %s: %w", s.server.Addr, err)
	}
	return nil
}

// Stop gracefully shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the HTTP handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
