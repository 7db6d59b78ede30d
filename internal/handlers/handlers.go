// Package handlers implements the logbook HTTP API.
package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/anshmangla/logger/internal/auth"
	"github.com/anshmangla/logger/internal/config"
	"github.com/anshmangla/logger/internal/models"
	"github.com/anshmangla/logger/internal/services"
	"github.com/anshmangla/logger/internal/storage"
)

const (
	sessionCookie = "sessionid"
	maxUploadSize = 32 << 20 // 32 MB
)

// EventStore is the storage surface the handlers need. The production
// implementation is database.Store; tests inject an in-memory fake.
type EventStore interface {
	CreateEvent(ctx context.Context, evt *models.Event, publish func() error) error
	ListEvents(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
	DailyGroups(ctx context.Context, filter models.EventFilter) ([]models.EventGroup, error)
	MonthlyGroups(ctx context.Context, filter models.EventFilter) ([]models.EventGroup, error)
}

// Pinger reports whether the backing database is reachable. *sql.DB
// satisfies it; a nil Pinger skips the check.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handlers carries the injected dependencies for every endpoint.
type Handlers struct {
	cfg      *config.Config
	verifier auth.Verifier
	sessions auth.SessionStore
	store    EventStore
	uploads  *storage.Uploads
	metrics  *services.Metrics
	pinger   Pinger
}

func New(cfg *config.Config, verifier auth.Verifier, sessions auth.SessionStore,
	store EventStore, uploads *storage.Uploads, metrics *services.Metrics, pinger Pinger) *Handlers {
	return &Handlers{
		cfg:      cfg,
		verifier: verifier,
		sessions: sessions,
		store:    store,
		uploads:  uploads,
		metrics:  metrics,
		pinger:   pinger,
	}
}

// Login handles POST /login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		h.respondError(w, http.StatusUnprocessableEntity, "Invalid form data")
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		h.respondError(w, http.StatusUnprocessableEntity, "username and password are required")
		return
	}

	displayName, ok := h.verifier.Verify(username, password)
	if !ok {
		h.metrics.IncrementLoginFailures()
		h.respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token := auth.NewToken()
	h.sessions.Put(token, displayName)
	http.SetCookie(w, h.newSessionCookie(token, 0))
	h.metrics.IncrementLogins()

	log.Printf("User logged in: %s", username)
	respondJSON(w, http.StatusOK, models.LoginResponse{
		Message:  "Login successful",
		Username: displayName,
	})
}

// Logout handles POST /logout. Deleting an absent session is not an error.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		h.sessions.Delete(cookie.Value)
	}
	http.SetCookie(w, h.newSessionCookie("", -1))
	respondJSON(w, http.StatusOK, models.MessageResponse{Message: "Logged out"})
}

// Me handles GET /me.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	displayName, ok := h.currentUser(r)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	respondJSON(w, http.StatusOK, models.MeResponse{Username: displayName})
}

// Root handles GET /, the liveness message.
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"msg": "Daily Logbook backend running!"})
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	dbStatus := "unknown"
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.pinger.PingContext(ctx); err != nil {
			status = "degraded"
			dbStatus = "unreachable"
		} else {
			dbStatus = "ok"
		}
	}
	respondJSON(w, http.StatusOK, models.HealthStatus{
		Status:    status,
		Database:  dbStatus,
		UptimeSec: int64(h.metrics.Uptime().Seconds()),
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// Metrics handles GET /metrics.
func (h *Handlers) Metrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.metrics.Snapshot())
}

// currentUser resolves the session cookie to a display name.
func (h *Handlers) currentUser(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return "", false
	}
	return h.sessions.Get(cookie.Value)
}

// newSessionCookie builds the session cookie. The frontend is served from
// a different origin, so the cookie is SameSite=None and Secure; dev runs
// over plain HTTP and downgrades to Lax.
func (h *Handlers) newSessionCookie(value string, maxAge int) *http.Cookie {
	c := &http.Cookie{
		Name:     sessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}
	if h.cfg.IsDev() {
		c.Secure = false
		c.SameSite = http.SameSiteLaxMode
	}
	return c
}

// parseForm parses urlencoded or multipart request bodies.
func parseForm(r *http.Request) error {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil && err != http.ErrNotMultipart {
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, detail string) {
	if status >= http.StatusInternalServerError {
		h.metrics.IncrementServerErrors()
	}
	respondJSON(w, status, models.ErrorResponse{Detail: detail})
}
