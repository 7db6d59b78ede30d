package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/anshmangla/logger/internal/models"
)

const eventColumns = "id, title, note, time_mode, client_timestamp, username, photo, created_at"

// Store provides the event table operations. Events are insert-only; there
// is no update or delete.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateEvent inserts an event, assigning its id and server creation time.
// When publish is non-nil it runs inside the insert transaction, after the
// row is written: a failed publish rolls the row back, and a failed insert
// never calls publish. This is how an uploaded photo becomes visible only
// together with its row.
func (s *Store) CreateEvent(ctx context.Context, evt *models.Event, publish func() error) error {
	evt.CreatedAt = time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO events (title, note, time_mode, client_timestamp, username, photo, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		evt.Title, evt.Note, evt.TimeMode, evt.Timestamp, evt.Username, evt.Photo, evt.CreatedAt,
	).Scan(&evt.ID)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	if publish != nil {
		if err := publish(); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit event: %w", err)
	}
	return nil
}

// ListEvents returns events matching the filter, ordered by creation time
// then id so listings are deterministic.
func (s *Store) ListEvents(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE ($1 = '' OR username = $1)
		   AND ($2 = '' OR to_char(created_at, 'YYYY-MM-DD') = $2)
		 ORDER BY created_at, id`,
		filter.Username, filter.Date,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, evt)
	}
	return events, rows.Err()
}

// DailyGroups buckets events by the calendar day of created_at.
func (s *Store) DailyGroups(ctx context.Context, filter models.EventFilter) ([]models.EventGroup, error) {
	return s.groups(ctx, filter.Username, "YYYY-MM-DD", true)
}

// MonthlyGroups buckets events by the year-month of created_at.
func (s *Store) MonthlyGroups(ctx context.Context, filter models.EventFilter) ([]models.EventGroup, error) {
	return s.groups(ctx, filter.Username, "YYYY-MM", false)
}

// groups computes aggregation buckets with database-side date truncation.
// The bucket set spans ALL events while the events inside each bucket honor
// the username filter, so a bucket the filter empties still appears with an
// empty events array. The pattern is one of two compile-time constants,
// never user input.
func (s *Store) groups(ctx context.Context, username, pattern string, daily bool) ([]models.EventGroup, error) {
	bucketRows, err := s.db.QueryContext(ctx,
		`SELECT to_char(created_at, '`+pattern+`') AS bucket FROM events GROUP BY bucket ORDER BY bucket`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query buckets: %w", err)
	}
	defer bucketRows.Close()

	var order []string
	for bucketRows.Next() {
		var b string
		if err := bucketRows.Scan(&b); err != nil {
			return nil, fmt.Errorf("failed to scan bucket: %w", err)
		}
		order = append(order, b)
	}
	if err := bucketRows.Err(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+`, to_char(created_at, '`+pattern+`') AS bucket FROM events
		 WHERE ($1 = '' OR username = $1)
		 ORDER BY created_at, id`,
		username,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	byBucket := make(map[string][]models.Event)
	for rows.Next() {
		var (
			evt             models.Event
			note, ts, photo sql.NullString
			bucket          string
		)
		err := rows.Scan(&evt.ID, &evt.Title, &note, &evt.TimeMode, &ts,
			&evt.Username, &photo, &evt.CreatedAt, &bucket)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		setOptional(&evt, note, ts, photo)
		byBucket[bucket] = append(byBucket[bucket], evt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	groups := make([]models.EventGroup, 0, len(order))
	for _, b := range order {
		events := byBucket[b]
		if events == nil {
			events = []models.Event{}
		}
		g := models.EventGroup{Count: len(events), Events: events}
		if daily {
			g.Date = b
		} else {
			g.Month = b
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func scanEvent(rows *sql.Rows) (models.Event, error) {
	var (
		evt             models.Event
		note, ts, photo sql.NullString
	)
	err := rows.Scan(&evt.ID, &evt.Title, &note, &evt.TimeMode, &ts,
		&evt.Username, &photo, &evt.CreatedAt)
	if err != nil {
		return evt, fmt.Errorf("failed to scan event: %w", err)
	}
	setOptional(&evt, note, ts, photo)
	return evt, nil
}

func setOptional(evt *models.Event, note, ts, photo sql.NullString) {
	if note.Valid {
		evt.Note = &note.String
	}
	if ts.Valid {
		evt.Timestamp = &ts.String
	}
	if photo.Valid {
		evt.Photo = &photo.String
	}
}
