// Package httpapi exposes question answering and retrieval over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"lexai/internal/domain"
	"lexai/internal/usecase"
)

const maxBodyBytes = 1 << 20

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

// QueryResponse is the reply to POST /query.
type QueryResponse struct {
	Query     string `json:"query"`
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

// RetrieveRequest is the body of POST /retrieve.
type RetrieveRequest struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

type RetrieveResponse struct {
	Query    string                  `json:"query"`
	Passages []usecase.PassageResult `json:"passages"`
}

type HistoryResponse struct {
	SessionID string            `json:"session_id"`
	Turns     []domain.ChatTurn `json:"turns"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Server routes HTTP requests to the query handler and retriever.
type Server struct {
	queries        *usecase.QueryHandler
	retrieve       *usecase.RetrieveUseCase
	allowedOrigins []string
	defaultK       int
	logger         *slog.Logger
	mux            *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithAllowedOrigins sets the CORS allow-list. Entries are glob patterns
// matched against the Origin header; "*" allows any origin.
func WithAllowedOrigins(patterns []string) Option {
	return func(s *Server) {
		s.allowedOrigins = patterns
	}
}

func WithDefaultK(k int) Option {
	return func(s *Server) {
		if k > 0 {
			s.defaultK = k
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewServer(queries *usecase.QueryHandler, retrieve *usecase.RetrieveUseCase, opts ...Option) *Server {
	s := &Server{
		queries:  queries,
		retrieve: retrieve,
		defaultK: 5,
		logger:   slog.Default().With("component", "httpapi"),
		mux:      http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mux.HandleFunc("POST /query", s.handleQuery)
	s.mux.HandleFunc("POST /retrieve", s.handleRetrieve)
	s.mux.HandleFunc("GET /history/{session_id}", s.handleHistory)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	return s
}

// Handler returns the routed handler wrapped with CORS.
func (s *Server) Handler() http.Handler {
	return s.cors(s.mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "Query cannot be empty")
		return
	}

	ans, err := s.queries.HandleQuery(r.Context(), req.SessionID, req.Query)
	if err != nil {
		s.logger.Error("query failed", "session_id", req.SessionID, "err", err)
		writeError(w, http.StatusInternalServerError, "Error: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, QueryResponse{
		Query:     ans.Query,
		Response:  ans.Response,
		SessionID: ans.SessionID,
	})
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req RetrieveRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "Query cannot be empty")
		return
	}
	k := req.K
	if k <= 0 {
		k = s.defaultK
	}

	results, err := s.retrieve.Retrieve(r.Context(), req.Query, k)
	if err != nil {
		s.logger.Error("retrieve failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Error: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, RetrieveResponse{Query: req.Query, Passages: results})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("session_id")
	turns, err := s.queries.History(r.Context(), id)
	if err != nil {
		s.logger.Error("history failed", "session_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "Error: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{SessionID: id, Turns: turns})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// cors answers preflight requests and sets allow headers for origins that
// match the allow-list.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST")
			h.Set("Access-Control-Allow-Headers", "Content-Type")
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, pattern := range s.allowedOrigins {
		if pattern == "*" || pattern == origin {
			return true
		}
		if ok, err := doublestar.Match(pattern, origin); err == nil && ok {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
