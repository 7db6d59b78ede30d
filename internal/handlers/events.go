package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/anshmangla/logger/internal/models"
	"github.com/anshmangla/logger/internal/storage"
)

// CreateEvent handles POST /events. The caller must hold a live session;
// nothing is persisted otherwise. An uploaded photo is staged on disk
// first and only published together with the committed row.
func (h *Handlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	displayName, ok := h.currentUser(r)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	if err := parseForm(r); err != nil {
		h.respondError(w, http.StatusUnprocessableEntity, "Invalid form data")
		return
	}

	title := r.PostFormValue("title")
	if title == "" {
		h.respondError(w, http.StatusUnprocessableEntity, "title is required")
		return
	}
	timeMode := r.PostFormValue("time_mode")
	if timeMode != "now" && timeMode != "earlier" {
		h.respondError(w, http.StatusUnprocessableEntity, "time_mode must be 'now' or 'earlier'")
		return
	}

	evt := &models.Event{
		Title:    title,
		TimeMode: timeMode,
		Username: displayName,
	}
	if note := r.PostFormValue("note"); note != "" {
		evt.Note = &note
	}
	// Client timestamp for backdated entries; stored verbatim, not
	// validated as a date.
	if ts := r.PostFormValue("timestamp"); ts != "" {
		evt.Timestamp = &ts
	}

	var staged *storage.Staged
	var publish func() error
	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		staged, err = h.uploads.Stage(file, header.Filename)
		if err != nil {
			log.Printf("Failed to stage upload: %v", err)
			h.respondError(w, http.StatusInternalServerError, "Failed to save file")
			return
		}
		defer staged.Discard()
		evt.Photo = &staged.PublicPath
		publish = staged.Publish
	} else if err != http.ErrMissingFile {
		h.respondError(w, http.StatusUnprocessableEntity, "Invalid file field")
		return
	}

	if err := h.store.CreateEvent(r.Context(), evt, publish); err != nil {
		log.Printf("Failed to create event: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to save event")
		return
	}

	h.metrics.IncrementEventsCreated()
	if staged != nil {
		h.metrics.IncrementUploadsStored()
	}

	log.Printf("Event created: id=%d user=%s", evt.ID, evt.Username)
	respondJSON(w, http.StatusOK, evt)
}

// ListEvents handles GET /events?user=&date=&agg=.
func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	h.metrics.IncrementListRequests()

	q := r.URL.Query()
	filter := models.EventFilter{
		Username: q.Get("user"),
		Date:     q.Get("date"),
	}
	if filter.Date != "" {
		if _, err := time.Parse("2006-01-02", filter.Date); err != nil {
			h.respondError(w, http.StatusUnprocessableEntity, "date must be YYYY-MM-DD")
			return
		}
	}

	switch agg := q.Get("agg"); agg {
	case "":
		events, err := h.store.ListEvents(r.Context(), filter)
		if err != nil {
			log.Printf("Failed to list events: %v", err)
			h.respondError(w, http.StatusInternalServerError, "Failed to fetch events")
			return
		}
		respondJSON(w, http.StatusOK, events)
	case "daily":
		groups, err := h.store.DailyGroups(r.Context(), filter)
		if err != nil {
			log.Printf("Failed to group events: %v", err)
			h.respondError(w, http.StatusInternalServerError, "Failed to fetch events")
			return
		}
		respondJSON(w, http.StatusOK, groups)
	case "monthly":
		groups, err := h.store.MonthlyGroups(r.Context(), filter)
		if err != nil {
			log.Printf("Failed to group events: %v", err)
			h.respondError(w, http.StatusInternalServerError, "Failed to fetch events")
			return
		}
		respondJSON(w, http.StatusOK, groups)
	default:
		h.respondError(w, http.StatusUnprocessableEntity, "agg must be 'daily' or 'monthly'")
	}
}
