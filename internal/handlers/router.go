package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/anshmangla/logger/internal/storage"
)

// Router wires every endpoint behind the CORS middleware. Uploaded photos
// are served read-only under /uploads/.
func (h *Handlers) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.cors)

	r.HandleFunc("/login", h.Login).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/logout", h.Logout).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/me", h.Me).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/events", h.CreateEvent).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/events", h.ListEvents).Methods(http.MethodGet)
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/metrics", h.Metrics).Methods(http.MethodGet)
	r.HandleFunc("/", h.Root).Methods(http.MethodGet)

	r.PathPrefix(storage.PublicPrefix + "/").Handler(http.StripPrefix(
		storage.PublicPrefix+"/",
		http.FileServer(http.Dir(h.uploads.Root())),
	)).Methods(http.MethodGet)

	return r
}

// cors mirrors the configured frontend origin and answers preflights. The
// session cookie requires Allow-Credentials, so the origin is never "*".
func (h *Handlers) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", h.cfg.AllowedOrigin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
