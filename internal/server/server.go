// Package server exposes extraction as a small local JSON API for the
// desktop shell.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/gorecipe/internal/app"
	"github.com/hyperifyio/gorecipe/internal/ingredient"
	"github.com/hyperifyio/gorecipe/internal/recipe"
)

// maxRequestBytes caps request bodies; they only carry a URL or a short
// ingredient list.
const maxRequestBytes = 1 << 20

// Service is the application surface the API serves. *app.App implements it.
type Service interface {
	Extract(ctx context.Context, rawURL string) (*recipe.ExternalRecipe, error)
	Sources() []app.SourceInfo
	ParseIngredients(text string) []ingredient.Parsed
	ParseIngredientsHTML(html string) ([]ingredient.Parsed, error)
}

type Server struct {
	svc    Service
	router *chi.Mux
}

func New(svc Service) *Server {
	s := &Server{svc: svc}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Route("/v1", func(r chi.Router) {
		r.Post("/extract", s.handleExtract)
		r.Get("/sources", s.handleSources)
		r.Post("/ingredients/parse", s.handleParseIngredients)
	})
	s.router = r
	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is done, then shuts down,
// giving in-flight requests a few seconds to finish.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("api listening")
		errCh <- srv.Serve(ln)
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Info().Msg("api shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

type extractRequest struct {
	URL string `json:"url"`
}

// parseRequest carries plain text or pasted HTML; html wins when both are set.
type parseRequest struct {
	Text string `json:"text"`
	HTML string `json:"html"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if !decode(w, r, &req) {
		return
	}
	// The request context bounds the extraction; a disconnecting client
	// cancels in-flight fetches.
	rec, err := s.svc.Extract(r.Context(), req.URL)
	if err != nil {
		writeError(w, statusFor(err), recipe.Kind(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSources(w http.ResponseWriter, _ *http.Request) {
	sources := s.svc.Sources()
	if sources == nil {
		sources = []app.SourceInfo{}
	}
	writeJSON(w, http.StatusOK, sources)
}

func (s *Server) handleParseIngredients(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if !decode(w, r, &req) {
		return
	}
	if req.HTML == "" {
		writeJSON(w, http.StatusOK, s.svc.ParseIngredients(req.Text))
		return
	}
	parsed, err := s.svc.ParseIngredientsHTML(req.HTML)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, parsed)
}

// statusFor maps an extraction error onto an HTTP status.
func statusFor(err error) int {
	var fe *recipe.FetchError
	switch {
	case errors.Is(err, recipe.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, recipe.ErrURLNotSupported):
		return http.StatusUnprocessableEntity
	case errors.As(err, &fe) && fe.Timeout():
		return http.StatusGatewayTimeout
	case errors.Is(err, recipe.ErrFetch), errors.Is(err, recipe.ErrParse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		log.Warn().Err(err).Msg("write response failed")
	}
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, errorResponse{Error: kind, Message: msg})
}
