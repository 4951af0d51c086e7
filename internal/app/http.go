package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/export"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/filter"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/search"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/tracker"
)

// ProfileCookie carries the client profile id that selects an engine.
const ProfileCookie = "wabt_profile"

type HTTPServer struct {
	service    *Service
	corsOrigin string
	cookieTTL  time.Duration
	validate   *validator.Validate
	log        *zap.Logger
}

func NewHTTPServer(service *Service, corsOrigin string, cookieTTL time.Duration, log *zap.Logger) *HTTPServer {
	if log == nil {
		log = zap.NewNop()
	}
	if cookieTTL <= 0 {
		cookieTTL = 90 * 24 * time.Hour
	}
	return &HTTPServer{
		service:    service,
		corsOrigin: corsOrigin,
		cookieTTL:  cookieTTL,
		validate:   validator.New(),
		log:        log.With(zap.String("component", "http")),
	}
}

func (s *HTTPServer) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogger(s.log))
	router.Use(cors.Handler(s.corsOptions()))

	router.Get("/api/health", s.handleHealth)
	router.Get("/api/ready", s.handleReady)
	router.Get("/data/bills.json", s.handleDocument)
	router.Get("/api/search", s.handleSearch)

	router.Group(func(r chi.Router) {
		r.Use(s.withProfile)

		r.Get("/api/view", s.handleView)
		r.Post("/api/navigate", s.handleNavigate)
		r.Post("/api/bills/{id}/track", s.handleToggleTrack)
		r.Get("/api/bills/{id}/notes", s.handleListNotes)
		r.Put("/api/bills/{id}/notes", s.handleSaveNote)
		r.Delete("/api/bills/{id}/notes/{noteID}", s.handleDeleteNote)
		r.Post("/api/filters/toggle", s.handleToggleFilter)
		r.Post("/api/filters/search", s.handleSearchFilter)
		r.Post("/api/filters/tracked-only", s.handleTrackedOnly)
		r.Post("/api/filters/clear", s.handleClearFilters)
		r.Post("/api/page", s.handlePage)
		r.Post("/api/views/{view}", s.handleMode)
		r.Post("/api/refresh", s.handleRefresh)
		r.Get("/api/export", s.handleExport)
		r.Get("/api/notices", s.handleNotices)
		r.Put("/api/user", s.handleUser)
	})

	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})
	return router
}

func (s *HTTPServer) corsOptions() cors.Options {
	origins := []string{"*"}
	if s.corsOrigin != "" && s.corsOrigin != "*" {
		origins = strings.Split(s.corsOrigin, ",")
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "If-None-Match"},
		ExposedHeaders:   []string{"X-Request-ID", "ETag"},
		AllowCredentials: origins[0] != "*",
		MaxAge:           300,
	}
}

func requestLogger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("requestID", chimiddleware.GetReqID(r.Context())),
			)
		})
	}
}

type profileKey struct{}

// withProfile resolves the profile cookie, issuing a fresh id when the
// client has none or sends one that is not a UUID.
func (s *HTTPServer) withProfile(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profile := ""
		if c, err := r.Cookie(ProfileCookie); err == nil {
			if _, err := uuid.Parse(c.Value); err == nil {
				profile = c.Value
			}
		}
		if profile == "" {
			profile = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     ProfileCookie,
				Value:    profile,
				Path:     "/",
				MaxAge:   int(s.cookieTTL / time.Second),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), profileKey{}, profile)))
	})
}

func profileFrom(ctx context.Context) (string, error) {
	profile, ok := ctx.Value(profileKey{}).(string)
	if !ok || profile == "" {
		return "", errNoProfile
	}
	return profile, nil
}

// engine returns the caller's engine. The fragment query parameter seeds
// navigation when the engine starts.
func (s *HTTPServer) engine(r *http.Request) (*tracker.Engine, error) {
	profile, err := profileFrom(r.Context())
	if err != nil {
		return nil, err
	}
	return s.service.Engine(r.Context(), profile, r.URL.Query().Get("fragment")), nil
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	failures := s.service.Ping(ctx)
	checks := map[string]any{}
	for _, name := range s.service.CheckNames() {
		if err, failed := failures[name]; failed {
			checks[name] = map[string]any{"status": "error", "error": err.Error()}
			continue
		}
		checks[name] = map[string]any{"status": "ok"}
	}
	_, _, loaded := s.service.Document()
	if loaded {
		checks["billData"] = map[string]any{"status": "ok"}
	} else {
		checks["billData"] = map[string]any{"status": "degraded"}
	}

	status, statusCode := "ready", http.StatusOK
	if len(failures) > 0 {
		status, statusCode = "not_ready", http.StatusServiceUnavailable
	}
	writeJSON(w, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

func (s *HTTPServer) handleDocument(w http.ResponseWriter, r *http.Request) {
	doc, etag, loaded := s.service.Document()
	if !loaded {
		s.writeServiceError(w, domainError(http.StatusServiceUnavailable, "NO_DATA", "Bill data is not available yet", nil))
		return
	}
	if etag != "" {
		quoted := strconv.Quote(etag)
		w.Header().Set("ETag", quoted)
		if r.Header.Get("If-None-Match") == quoted {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, http.StatusOK, doc)
}

func (s *HTTPServer) handleView(w http.ResponseWriter, r *http.Request) {
	engine, err := s.engine(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, engine.View())
}

func (s *HTTPServer) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Fragment string `json:"fragment"`
		Type     string `json:"type"`
		BillID   string `json:"billId"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	engine, err := s.engine(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	switch {
	case body.BillID != "":
		if err := engine.JumpToBill(r.Context(), body.BillID); err != nil {
			s.writeServiceError(w, err)
			return
		}
	case body.Type != "":
		engine.SelectType(r.Context(), body.Type)
	default:
		engine.HandleFragment(r.Context(), body.Fragment)
	}
	writeJSON(w, http.StatusOK, engine.View())
}

func (s *HTTPServer) handleToggleTrack(w http.ResponseWriter, r *http.Request) {
	engine, err := s.engine(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	tracked, err := engine.ToggleTrack(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tracked": tracked, "view": engine.View()})
}

func (s *HTTPServer) handleListNotes(w http.ResponseWriter, r *http.Request) {
	engine, err := s.engine(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": engine.Notes(chi.URLParam(r, "id"))})
}

func (s *HTTPServer) handleSaveNote(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text" validate:"max=10000"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	engine, err := s.engine(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	note, err := engine.SaveNote(r.Context(), id, body.Text)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	payload := map[string]any{"notes": engine.Notes(id)}
	if note.ID != "" {
		payload["note"] = note
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	engine, err := s.engine(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := engine.DeleteNote(r.Context(), id, chi.URLParam(r, "noteID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": engine.Notes(id)})
}

func (s *HTTPServer) handleToggleFilter(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Kind  string `json:"kind" validate:"required,oneof=status priority committee type"`
		Value string `json:"value" validate:"required"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	engine, err := s.engine(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if err := engine.ToggleFilter(r.Context(), filter.Kind(body.Kind), body.Value); err != nil {
		s.writeServiceError(w, domainError(http.StatusBadRequest, "INVALID_FILTER", err.Error(), nil))
		return
	}
	writeJSON(w, http.StatusOK, engine.View())
}

// handleSearchFilter schedules the debounced search. flush=true applies it
// immediately, for clients that debounce themselves.
func (s *HTTPServer) handleSearchFilter(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text" validate:"max=200"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	engine, err := s.engine(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	engine.SetSearch(body.Text)
	if flush, _ := strconv.ParseBool(r.URL.Query().Get("flush")); flush {
		engine.FlushSearch()
		writeJSON(w, http.StatusOK, engine.View())
		return
	}
	writeJSON(w, http.StatusAccepted, engine.View())
}

func (s *HTTPServer) handleTrackedOnly(w http.ResponseWriter, r *http.Request) {
	var body struct {
		On bool `json:"on"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	engine, err := s.engine(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	engine.SetTrackedOnly(r.Context(), body.On)
	writeJSON(w, http.StatusOK, engine.View())
}

func (s *HTTPServer) handleClearFilters(w http.ResponseWriter, r *http.Request) {
	engine, err := s.engine(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	engine.ClearFilters(r.Context())
	writeJSON(w, http.StatusOK, engine.View())
}

func (s *HTTPServer) handlePage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Page int `json:"page" validate:"gte=1"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	engine, err := s.engine(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	engine.SetPage(body.Page)
	writeJSON(w, http.StatusOK, engine.View())
}

func (s *HTTPServer) handleMode(w http.ResponseWriter, r *http.Request) {
	engine, err := s.engine(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	switch tracker.Mode(chi.URLParam(r, "view")) {
	case tracker.ModeStats:
		engine.ShowStats()
	case tracker.ModeMain:
		engine.ShowMain()
	default:
		writeError(w, http.StatusBadRequest, "INVALID_VIEW", "View must be main or stats", nil)
		return
	}
	writeJSON(w, http.StatusOK, engine.View())
}

// handleRefresh always answers with the view; a failed fetch shows up as a
// notice and, with no data at all, as the degraded flag.
func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	engine, err := s.engine(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if err := engine.Refresh(r.Context(), s.service); err != nil {
		s.log.Warn("refresh failed", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, engine.View())
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))
	if limit < 0 || offset < 0 {
		writeError(w, http.StatusBadRequest, "INVALID_PAGING", "limit and offset must not be negative", nil)
		return
	}
	writeJSON(w, http.StatusOK, s.service.Search(search.Query{
		Text:   query.Get("q"),
		Type:   query.Get("type"),
		Limit:  limit,
		Offset: offset,
	}))
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(strings.ToLower(r.URL.Query().Get("format")))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	engine, err := s.engine(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	res, err := s.service.Export(r.Context(), engine, export.Request{
		Format: format,
		Title:  r.URL.Query().Get("title"),
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", res.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)
}

func (s *HTTPServer) handleNotices(w http.ResponseWriter, r *http.Request) {
	engine, err := s.engine(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	notices := engine.DrainNotices()
	if notices == nil {
		notices = []tracker.Notice{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notices": notices})
}

func (s *HTTPServer) handleUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name" validate:"required,max=80"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	engine, err := s.engine(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if err := engine.SetUserName(r.Context(), body.Name); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_NAME", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": engine.State().User})
}

// decode reads and validates a JSON body, writing the error response itself.
func (s *HTTPServer) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := decodeBody(r, target); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return false
	}
	if err := s.validate.Struct(target); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid request", map[string]any{"fields": fields})
			return false
		}
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error(), nil)
		return false
	}
	return true
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError && status != http.StatusNotImplemented && status != http.StatusServiceUnavailable {
		s.log.Error("request failed", zap.Error(err))
	}
	writeError(w, status, code, message, details)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) || errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}
