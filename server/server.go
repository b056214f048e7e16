// Package server implements the HTTP and websocket API of the assistant.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/richinex/swasth/auth"
	"github.com/richinex/swasth/llm"
	"github.com/richinex/swasth/storage"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultAppName is reported by the health endpoint.
const DefaultAppName = "SwasthAI"

// maxMessageChars bounds a user chat message.
const maxMessageChars = 2000

// Chatter answers one user message given the prior conversation.
type Chatter interface {
	Chat(ctx context.Context, userMessage string, history []llm.ChatMessage) (string, error)
}

// Options configures a Server.
type Options struct {
	AppName      string
	Provider     string
	HistoryLimit int
	Logger       *zap.Logger
}

// Server is the HTTP API server.
type Server struct {
	chat         Chatter
	auth         *auth.Service
	store        storage.UserStore
	appName      string
	provider     string
	historyLimit int
	logger       *zap.Logger
	upgrader     websocket.Upgrader
	server       *http.Server
}

// New creates a server. The chatter is only consulted for chat requests,
// so a misconfigured model leaves the rest of the API usable.
func New(chat Chatter, authSvc *auth.Service, store storage.UserStore, opts Options) *Server {
	if opts.AppName == "" {
		opts.AppName = DefaultAppName
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 10
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Server{
		chat:         chat,
		auth:         authSvc,
		store:        store,
		appName:      opts.AppName,
		provider:     opts.Provider,
		historyLimit: opts.HistoryLimit,
		logger:       opts.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/signup", s.handleSignup)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.withUser(s.handleLogout))
	mux.HandleFunc("GET /api/user", s.withUser(s.handleUser))

	mux.HandleFunc("POST /api/chat", s.withUser(s.handleChat))
	mux.HandleFunc("GET /api/messages", s.withUser(s.handleMessages))
	mux.HandleFunc("DELETE /api/messages", s.withUser(s.handleClearMessages))
	mux.HandleFunc("GET /api/greeting", s.withUser(s.handleGreeting))
	mux.HandleFunc("GET /ws/chat", s.handleWebSocket)

	mux.HandleFunc("GET /api/admin/users", s.withAdmin(s.handleAdminUsers))
	mux.HandleFunc("GET /api/admin/users/{id}/messages", s.withAdmin(s.handleAdminUserMessages))
	mux.HandleFunc("DELETE /api/admin/users/{id}", s.withAdmin(s.handleAdminDeleteUser))
	mux.HandleFunc("GET /api/admin/stats", s.withAdmin(s.handleAdminStats))

	mux.HandleFunc("GET /health", s.handleHealth)

	return s.withLogging(mux)
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting API server", zap.String("address", addr))
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down API server")
		return s.server.Shutdown(shutdownCtx)
	}
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// writeJSON encodes v as JSON to w, logging any errors at debug level.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("failed to write JSON response", zap.Error(err))
	}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, ErrorResponse{Error: msg, Detail: http.StatusText(status)})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
