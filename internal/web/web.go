package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"intentcal/internal/config"
	"intentcal/internal/ics"
	"intentcal/internal/icsexport"
	"intentcal/internal/intent"
	appLog "intentcal/internal/log"
	"intentcal/internal/model"
)

// maxBodyBytes caps POST bodies.
const maxBodyBytes = 64 << 10

// IntentHandler runs a parsed intent.
type IntentHandler interface {
	Handle(ctx context.Context, in *intent.Intent) (*intent.Response, error)
}

// EventLister returns expanded occurrences of one calendar.
type EventLister interface {
	Events(ctx context.Context, calendarID string, start, end time.Time) ([]model.Occurrence, error)
}

// Deps are the collaborators the HTTP API serves.
type Deps struct {
	Intents IntentHandler
	Events  EventLister
	// Now defaults to time.Now.
	Now func() time.Time
	// ResolveSecret expands "keyring:" references in the basic auth
	// password; nil uses values as-is.
	ResolveSecret func(string) (string, error)
}

// Server provides the HTTP API for intents and calendar events.
type Server struct {
	cfg  *config.Config
	deps Deps
	loc  *time.Location
	mux  *http.ServeMux

	password string
	limiter  *RateLimiter

	// In-memory cache for /api/events responses to avoid redundant
	// fetch/parse/expand work on every HTTP request.
	eventsMu    sync.RWMutex
	eventsCache map[string]eventsCache
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.ResolveSecret == nil {
		deps.ResolveSecret = func(s string) (string, error) { return s, nil }
	}

	s := &Server{
		cfg:         cfg,
		deps:        deps,
		loc:         cfg.Location(),
		mux:         http.NewServeMux(),
		limiter:     NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst),
		eventsCache: make(map[string]eventsCache),
	}

	if s.basicAuthEnabled() {
		pw, err := deps.ResolveSecret(cfg.BasicAuth.Password)
		if err != nil {
			return nil, err
		}
		s.password = pw
	}

	s.limiter.now = deps.Now

	s.registerRoutes()
	return s, nil
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		h = s.basicAuthMiddleware(h)
	}
	h = s.limiter.Middleware(h)
	return requestIDMiddleware(h)
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password disables auth.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="intentcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Run serves on cfg.Listen until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /api/intent", s.handleIntent)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// intentRequest is the JSON body of POST /api/intent.
type intentRequest struct {
	Intent              string         `json:"intent"`
	Slots               map[string]any `json:"slots"`
	ConversationAgentID string         `json:"conversation_agent_id"`
	Language            string         `json:"language"`
}

// handleIntent dispatches one intent and returns its speech.
//
// POST /api/intent {"intent": "ReadCalendar", "slots": {"name": "work"}}
func (s *Server) handleIntent(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()

	var req intentRequest
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Intent == "" {
		writeError(w, http.StatusBadRequest, "intent is required")
		return
	}

	in := &intent.Intent{
		Type:                req.Intent,
		Slots:               intent.SlotsFromAny(req.Slots),
		ConversationAgentID: req.ConversationAgentID,
		Language:            req.Language,
	}
	if in.ConversationAgentID == "" {
		in.ConversationAgentID = s.cfg.AgentID
	}
	if in.Language == "" {
		in.Language = s.cfg.Language
	}

	resp, err := s.deps.Intents.Handle(r.Context(), in)
	switch {
	case errors.Is(err, intent.ErrUnknownIntent), errors.Is(err, intent.ErrInvalidSlot):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		appLog.Error("api intent failed", err, "intent", req.Intent, "request_id", RequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "intent failed")
		return
	}

	resp.RequestID = RequestID(r.Context())
	writeJSON(w, http.StatusOK, resp)
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Calendar        string          `json:"calendar"`
	Occurrences     []occurrenceDTO `json:"occurrences"`
	RangeStart      time.Time       `json:"range_start"`
	RangeEnd        time.Time       `json:"range_end"`
	DisplayTimeZone string          `json:"display_timezone"`

	occs []model.Occurrence
}

// eventsCache holds a cached /api/events response and its timestamp.
type eventsCache struct {
	resp      eventsResponse
	updatedAt time.Time
}

// occurrenceDTO is a JSON-friendly view of occurrences.
type occurrenceDTO struct {
	SourceID    string    `json:"source_id"`
	UID         string    `json:"uid"`
	InstanceKey string    `json:"instance_key"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	AllDay      bool      `json:"all_day"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

// handleEvents returns expanded occurrences of one configured calendar
// within a requested time window.
//
// GET /api/events?calendar=work&days=7&backfill=1&format=json
//   - calendar: calendar ID; optional when exactly one is configured
//   - days:     days ahead (default 7)
//   - backfill: days back (default 1)
//   - format:   json (default) or ics
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	calendarID := q.Get("calendar")
	if calendarID == "" && len(s.cfg.Calendars) == 1 {
		calendarID = s.cfg.Calendars[0].ID
	}
	if calendarID == "" {
		writeError(w, http.StatusBadRequest, "calendar is required")
		return
	}

	days := parseIntDefault(q.Get("days"), 7)
	if days <= 0 {
		days = 7
	}
	backfill := parseIntDefault(q.Get("backfill"), 1)
	if backfill < 0 {
		backfill = 0
	}

	resp, err := s.events(r.Context(), calendarID, days, backfill)
	switch {
	case errors.Is(err, ics.ErrUnknownCalendar):
		writeError(w, http.StatusNotFound, "unknown calendar")
		return
	case err != nil:
		appLog.Error("api events failed", err, "calendar", calendarID)
		writeError(w, http.StatusBadGateway, "failed to load events")
		return
	}

	if q.Get("format") == "ics" {
		data, err := icsexport.Bytes(calendarID, resp.occs, s.deps.Now())
		if err != nil {
			appLog.Error("api events: ics export failed", err, "calendar", calendarID)
			writeError(w, http.StatusInternalServerError, "failed to encode events")
			return
		}
		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) events(ctx context.Context, calendarID string, days, backfill int) (eventsResponse, error) {
	const eventsCacheTTL = 30 * time.Second

	key := calendarID + "|" + strconv.Itoa(days) + "|" + strconv.Itoa(backfill)
	cacheNow := s.deps.Now()

	s.eventsMu.RLock()
	ec, ok := s.eventsCache[key]
	s.eventsMu.RUnlock()
	if ok && cacheNow.Sub(ec.updatedAt) < eventsCacheTTL {
		return ec.resp, nil
	}

	now := cacheNow.In(s.loc)
	rangeStart := now.AddDate(0, 0, -backfill)
	rangeEnd := now.AddDate(0, 0, days)

	appLog.Info("api events request",
		"calendar", calendarID,
		"days", days,
		"backfill", backfill,
		"range_start", rangeStart.Format(time.RFC3339),
		"range_end", rangeEnd.Format(time.RFC3339),
	)

	occs, err := s.deps.Events.Events(ctx, calendarID, rangeStart, rangeEnd)
	if err != nil {
		return eventsResponse{}, err
	}

	dtos := make([]occurrenceDTO, 0, len(occs))
	for _, occ := range occs {
		dtos = append(dtos, occurrenceDTO{
			SourceID:    occ.SourceID,
			UID:         occ.UID,
			InstanceKey: occ.InstanceKey,
			Summary:     occ.Summary,
			Description: occ.Description,
			Location:    occ.Location,
			AllDay:      occ.AllDay,
			Start:       occ.Start,
			End:         occ.End,
		})
	}

	resp := eventsResponse{
		Calendar:        calendarID,
		Occurrences:     dtos,
		RangeStart:      rangeStart,
		RangeEnd:        rangeEnd,
		DisplayTimeZone: s.loc.String(),
		occs:            occs,
	}

	s.eventsMu.Lock()
	for k, ec := range s.eventsCache {
		if cacheNow.Sub(ec.updatedAt) >= eventsCacheTTL {
			delete(s.eventsCache, k)
		}
	}
	s.eventsCache[key] = eventsCache{resp: resp, updatedAt: cacheNow}
	s.eventsMu.Unlock()

	return resp, nil
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
