package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// MCPHandler handles MCP method dispatch.
type MCPHandler interface {
	Handle(ctx context.Context, tenantID, operatorID, method string, params json.RawMessage) (any, error)
}

// CodedError is a domain error with a stable code.
type CodedError interface {
	error
	CodeValue() string
	MessageValue() string
}

// Server wires HTTP handlers.
type Server struct {
	handler MCPHandler
	events  EventSource
}

// NewServer creates an HTTP server router with middleware. events may be
// nil, which disables the round event stream.
func NewServer(handler MCPHandler, authMiddleware func(http.Handler) http.Handler, events EventSource) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	srv := &Server{handler: handler, events: events}

	r.Get("/health", srv.handleHealth)
	r.Group(func(r chi.Router) {
		if authMiddleware != nil {
			r.Use(authMiddleware)
		}
		r.Post("/mcp", srv.handleMCP)
		if events != nil {
			r.Get("/rounds/{roundID}/events", srv.handleRoundEvents)
		}
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest(r.Body)
	if err != nil {
		WriteError(w, nil, ParseErrorCode(err), err.Error(), nil)
		return
	}

	p, ok := PrincipalFromContext(r.Context())
	if !ok || p.TenantID == "" {
		http.Error(w, "missing tenant", http.StatusUnauthorized)
		return
	}

	result, err := s.handler.Handle(r.Context(), p.TenantID, p.OperatorID, req.Method, req.Params)
	if err != nil {
		var coded CodedError
		switch {
		case errors.Is(err, ErrUnauthorized):
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		case errors.As(err, &coded):
			WriteError(w, req.ID, ErrApplication, coded.MessageValue(), coded)
		default:
			WriteError(w, req.ID, ErrInternal, err.Error(), nil)
		}
		return
	}

	WriteResult(w, req.ID, result)
}
