package http

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/YusovID/git-done/internal/embed"
	"github.com/YusovID/git-done/pkg/logger/sl"
	"github.com/go-chi/chi/v5"
)

func setEmbedCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Cache-Control, Pragma")
	h.Set("Access-Control-Max-Age", "3600")
}

func (s *Server) embedDataOptions(w http.ResponseWriter, _ *http.Request) {
	setEmbedCORS(w.Header())
	w.WriteHeader(http.StatusOK)
}

func (s *Server) embedData(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.embedData"

	setEmbedCORS(w.Header())

	p, err := s.services.Embeds.Projection(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	etag := p.ETag()
	w.Header().Set("ETag", etag)
	p.SetCacheHeaders(w.Header())

	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	s.respond(w, http.StatusOK, p)
}

// embedWidget serves the iframe page. It is meant to be framed anywhere.
func (s *Server) embedWidget(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.embedWidget"

	token := chi.URLParam(r, "token")

	goal, err := s.services.Embeds.Goal(r.Context(), token)
	if err != nil {
		code, _ := errorResponse(err)
		if code >= http.StatusInternalServerError {
			s.log.Error("failed to load widget", slog.String("op", op), sl.Err(err))
			http.Error(w, "internal server error", code)
			return
		}

		http.Error(w, "widget not found", http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	if err := embed.RenderWidget(&buf, goal, r.URL.Query().Get("theme"), "/api/embed/"+token+"/data"); err != nil {
		s.log.Error("failed to render widget", slog.String("op", op), sl.Err(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Security-Policy", "frame-ancestors *")
	w.WriteHeader(http.StatusOK)

	if _, err := buf.WriteTo(w); err != nil {
		s.log.Warn("failed to write widget", slog.String("op", op), sl.Err(err))
	}
}
