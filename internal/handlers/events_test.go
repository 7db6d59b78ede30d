package handlers

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/anshmangla/logger/internal/models"
)

// eventForm builds a multipart /events request body.
func eventForm(t *testing.T, fields map[string]string, fileName string, fileContent []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field %s: %v", k, err)
		}
	}
	if fileName != "" {
		fw, err := w.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("failed to create file part: %v", err)
		}
		if _, err := fw.Write(fileContent); err != nil {
			t.Fatalf("failed to write file part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestCreateEventRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := eventForm(t, map[string]string{"title": "hi", "time_mode": "now"}, "", nil)
	req := httptest.NewRequest(http.MethodPost, "/events", body)
	req.Header.Set("Content-Type", contentType)

	rec := env.do(t, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if len(env.store.events) != 0 {
		t.Fatalf("expected no persisted rows, got %d", len(env.store.events))
	}
}

func TestCreateEventValidation(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "tanish", "chakkatanish")

	cases := []struct {
		name   string
		fields map[string]string
	}{
		{"missing title", map[string]string{"time_mode": "now"}},
		{"missing time_mode", map[string]string{"title": "hi"}},
		{"bad time_mode", map[string]string{"title": "hi", "time_mode": "yesterday"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, contentType := eventForm(t, tc.fields, "", nil)
			req := httptest.NewRequest(http.MethodPost, "/events", body)
			req.Header.Set("Content-Type", contentType)
			req.AddCookie(cookie)
			if rec := env.do(t, req); rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d", rec.Code)
			}
		})
	}
	if len(env.store.events) != 0 {
		t.Fatalf("expected no persisted rows after validation failures")
	}
}

func TestCreateEvent(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "tanish", "chakkatanish")

	body, contentType := eventForm(t, map[string]string{
		"title":     "Morning run",
		"note":      "5k around the park",
		"time_mode": "earlier",
		"timestamp": "2026-08-30T07:00",
	}, "", nil)
	req := httptest.NewRequest(http.MethodPost, "/events", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(cookie)

	rec := env.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var evt models.Event
	decode(t, rec, &evt)
	if evt.ID == 0 {
		t.Fatalf("expected assigned id")
	}
	if evt.Username != "Tanish Bajaj" {
		t.Fatalf("expected resolved author, got %q", evt.Username)
	}
	if evt.Note == nil || *evt.Note != "5k around the park" {
		t.Fatalf("unexpected note %v", evt.Note)
	}
	if evt.Timestamp == nil || *evt.Timestamp != "2026-08-30T07:00" {
		t.Fatalf("expected client timestamp echoed verbatim, got %v", evt.Timestamp)
	}
	if evt.Photo != nil {
		t.Fatalf("expected no photo, got %v", *evt.Photo)
	}
	// Decoding into time.Time already proves created_at went out as an
	// RFC3339 string; it just has to be server-assigned and recent.
	if evt.CreatedAt.IsZero() || time.Since(evt.CreatedAt) > time.Minute {
		t.Fatalf("unexpected created_at %v", evt.CreatedAt)
	}
}

func TestCreateEventWithFile(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "naman", "chakkanaman")

	photo := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02, 0x03}
	body, contentType := eventForm(t, map[string]string{
		"title":     "Concert",
		"time_mode": "now",
	}, "stage.jpg", photo)
	req := httptest.NewRequest(http.MethodPost, "/events", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(cookie)

	rec := env.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var evt models.Event
	decode(t, rec, &evt)
	if evt.Photo == nil || !strings.HasPrefix(*evt.Photo, "/uploads/") {
		t.Fatalf("expected photo path under /uploads/, got %v", evt.Photo)
	}

	// Exactly one file stored.
	entries, err := os.ReadDir(env.uploads.Root())
	if err != nil {
		t.Fatalf("failed to read upload dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one stored file, got %d", len(entries))
	}

	// Fetching the recorded path returns the identical bytes.
	getReq := httptest.NewRequest(http.MethodGet, *evt.Photo, nil)
	getRec := env.do(t, getReq)
	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching %s, got %d", *evt.Photo, getRec.Code)
	}
	if !bytes.Equal(getRec.Body.Bytes(), photo) {
		t.Fatalf("served bytes differ from uploaded bytes")
	}
}

func TestCreateEventFailedInsertLeavesNoFile(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "ansh", "chakkaansh")
	env.store.failCreate = true

	body, contentType := eventForm(t, map[string]string{
		"title":     "Doomed",
		"time_mode": "now",
	}, "pic.png", []byte("png data"))
	req := httptest.NewRequest(http.MethodPost, "/events", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(cookie)

	rec := env.do(t, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	entries, err := os.ReadDir(env.uploads.Root())
	if err != nil {
		t.Fatalf("failed to read upload dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no files after failed insert, found %d", len(entries))
	}
}

// seed injects events directly into the fake store.
func seed(env *testEnv, username string, createdAt time.Time, title string) {
	env.store.nextID++
	env.store.events = append(env.store.events, models.Event{
		ID:        env.store.nextID,
		Title:     title,
		TimeMode:  "now",
		Username:  username,
		CreatedAt: createdAt,
	})
}

func TestListEventsFlat(t *testing.T) {
	env := newTestEnv(t)
	day := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	seed(env, "Tanish Bajaj", day, "one")
	seed(env, "Naman Kapoor", day.Add(time.Hour), "two")
	seed(env, "Tanish Bajaj", day.Add(48*time.Hour), "three")

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/events", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var events []models.Event
	decode(t, rec, &events)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}

	// Username filter.
	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/events?user="+url.QueryEscape("Tanish Bajaj"), nil))
	decode(t, rec, &events)
	if len(events) != 2 {
		t.Fatalf("expected 2 filtered events, got %d", len(events))
	}

	// Date filter.
	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/events?date=2026-08-30", nil))
	decode(t, rec, &events)
	if len(events) != 2 {
		t.Fatalf("expected 2 events on 2026-08-30, got %d", len(events))
	}
}

func TestListEventsDailyGrouping(t *testing.T) {
	env := newTestEnv(t)
	day := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		seed(env, "Ansh Mangla", day.Add(time.Duration(i)*time.Hour), "entry")
	}
	seed(env, "Naman Kapoor", day.AddDate(0, 0, 1), "next day")

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/events?agg=daily", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var groups []models.EventGroup
	decode(t, rec, &groups)
	if len(groups) != 2 {
		t.Fatalf("expected 2 daily groups, got %d", len(groups))
	}
	if groups[0].Date != "2026-08-30" || groups[0].Count != 3 || len(groups[0].Events) != 3 {
		t.Fatalf("unexpected first group: %+v", groups[0])
	}
	if groups[1].Date != "2026-08-31" || groups[1].Count != 1 {
		t.Fatalf("unexpected second group: %+v", groups[1])
	}

	// Grouped and flat listings agree on the total count.
	var flat []models.Event
	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/events", nil))
	decode(t, rec, &flat)
	total := 0
	for _, g := range groups {
		total += g.Count
	}
	if total != len(flat) {
		t.Fatalf("grouped total %d != flat total %d", total, len(flat))
	}
}

func TestListEventsGroupingKeepsEmptyBuckets(t *testing.T) {
	env := newTestEnv(t)
	seed(env, "Ansh Mangla", time.Date(2026, 7, 10, 8, 0, 0, 0, time.UTC), "july")
	seed(env, "Naman Kapoor", time.Date(2026, 8, 2, 8, 0, 0, 0, time.UTC), "august")

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/events?agg=monthly&user="+url.QueryEscape("Ansh Mangla"), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var groups []models.EventGroup
	decode(t, rec, &groups)
	if len(groups) != 2 {
		t.Fatalf("expected both month buckets retained, got %d", len(groups))
	}
	if groups[0].Month != "2026-07" || groups[0].Count != 1 {
		t.Fatalf("unexpected july group: %+v", groups[0])
	}
	// The august bucket survives the filter with an empty events array.
	if groups[1].Month != "2026-08" || groups[1].Count != 0 || groups[1].Events == nil {
		t.Fatalf("expected empty august bucket, got %+v", groups[1])
	}
}

func TestListEventsRejectsBadParams(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/events?agg=weekly", nil))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for bad agg, got %d", rec.Code)
	}
	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/events?date=30-08-2026", nil))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for bad date, got %d", rec.Code)
	}
}
