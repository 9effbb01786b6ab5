package httpapi

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pr-poehali-dev/weather-viewer-project/internal/geo"
	"github.com/pr-poehali-dev/weather-viewer-project/internal/models"
	"github.com/pr-poehali-dev/weather-viewer-project/internal/observability"
	"github.com/pr-poehali-dev/weather-viewer-project/internal/realtime"
	"github.com/pr-poehali-dev/weather-viewer-project/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

type Server struct {
	sessions *session.Manager
	hub      *realtime.Hub
	schemas  *schemas
	tmpl     *template.Template
}

func NewServer(sessions *session.Manager, hub *realtime.Hub) (*Server, error) {
	sc, err := loadSchemas()
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"gradient": func(t models.Theme) template.CSS {
			from, to := t.Gradient()
			return template.CSS(from + "," + to)
		},
		"icon": func(name string) string {
			ic, err := models.ParseIcon(name)
			if err != nil {
				return ""
			}
			return ic.Glyph()
		},
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Server{sessions: sessions, hub: hub, schemas: sc, tmpl: tmpl}, nil
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/", s.handlePage)
	r.Get("/ws/sessions/{id}", s.handleWebSocket)

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Get("/fragment", s.handleFragment)
			r.Post("/search", s.handleSearch)
			r.Put("/search-text", s.handleSearchText)
			r.Post("/location", s.handleLocation)
			r.Post("/favorites", s.handleAddFavorite)
			r.Post("/favorites/select", s.handleSelectFavorite)
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type sessionResponse struct {
	ID   string      `json:"id"`
	View models.View `json:"view"`
}

type actionResponse struct {
	Accepted bool        `json:"accepted"`
	View     models.View `json:"view"`
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return nil, false
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return nil, false
	}
	return sess, true
}

// lookupForAction is lookup plus the per-session rate limit.
func (s *Server) lookupForAction(w http.ResponseWriter, r *http.Request, action string) (*session.Session, bool) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return nil, false
	}
	if !sess.Allow() {
		observability.RecordAction(action, "limited")
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return nil, false
	}
	return sess, true
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create(r.Context())
	var buf bytes.Buffer
	err := s.tmpl.ExecuteTemplate(&buf, "page", map[string]any{
		"Session": sess.ID.String(),
		"View":    sess.Controller.View(),
	})
	if err != nil {
		slog.Error("render page failed", "session", sess.ID, "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleFragment(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, "view", sess.Controller.View()); err != nil {
		slog.Error("render fragment failed", "session", sess.ID, "error", err)
		http.Error(w, "failed to render view", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.hub.Serve(w, r, sess.ID.String(), sess.Controller)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create(r.Context())
	writeJSON(w, http.StatusCreated, sessionResponse{ID: sess.ID.String(), View: sess.Controller.View()})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: sess.ID.String(), View: sess.Controller.View()})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	if err := s.sessions.Delete(id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to close session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupForAction(w, r, "search")
	if !ok {
		return
	}
	var req struct {
		City *string `json:"city"`
	}
	if err := decodeValid(r, s.schemas.search, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var accepted bool
	if req.City != nil {
		accepted = sess.Controller.Search(*req.City)
	} else {
		accepted = sess.Controller.SubmitSearch()
	}
	s.respondAction(w, sess, "search", accepted)
}

func (s *Server) handleSearchText(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeValid(r, s.schemas.searchText, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess.Controller.SetSearchText(req.Text)
	writeJSON(w, http.StatusOK, sess.Controller.View())
}

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupForAction(w, r, "location")
	if !ok {
		return
	}
	var req struct {
		Lat      *float64 `json:"lat"`
		Lon      *float64 `json:"lon"`
		Accuracy float64  `json:"accuracy"`
		Error    string   `json:"error"`
	}
	if err := decodeValid(r, s.schemas.location, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Lat != nil && req.Lon != nil {
		sess.Locator.ReportPosition(models.Position{Lat: *req.Lat, Lon: *req.Lon, Accuracy: req.Accuracy})
	} else {
		sess.Locator.ReportError(geo.ParseBrowserError(req.Error))
	}
	sess.Controller.RequestMyLocation(r.Context())
	s.respondAction(w, sess, "location", true)
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupForAction(w, r, "favorite")
	if !ok {
		return
	}
	var req struct {
		City string `json:"city"`
	}
	if err := decodeValid(r, s.schemas.city, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	added := sess.Controller.AddFavorite(req.City)
	status := http.StatusOK
	result := "duplicate"
	if added {
		status = http.StatusCreated
		result = "added"
	}
	observability.RecordAction("favorite", result)
	writeJSON(w, status, actionResponse{Accepted: added, View: sess.Controller.View()})
}

func (s *Server) handleSelectFavorite(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupForAction(w, r, "select_favorite")
	if !ok {
		return
	}
	var req struct {
		City string `json:"city"`
	}
	if err := decodeValid(r, s.schemas.city, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondAction(w, sess, "select_favorite", sess.Controller.SelectFavorite(req.City))
}

// respondAction answers 202 when delayed work was scheduled and 200 when
// the request was a no-op.
func (s *Server) respondAction(w http.ResponseWriter, sess *session.Session, action string, accepted bool) {
	status := http.StatusOK
	result := "ignored"
	if accepted {
		status = http.StatusAccepted
		result = "accepted"
	}
	observability.RecordAction(action, result)
	writeJSON(w, status, actionResponse{Accepted: accepted, View: sess.Controller.View()})
}
