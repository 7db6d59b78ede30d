package models

import "time"

// User is one row of the compiled-in credential table. Secret is either a
// plaintext password or a bcrypt hash and is never serialized.
type User struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Secret      string `json:"-"`
}

// Event is a single logbook entry. Optional fields are pointers so absent
// values serialize as null, which is the wire shape the frontend expects.
// Rows are immutable once created.
type Event struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Note      *string   `json:"note"`
	TimeMode  string    `json:"time_mode"`
	Timestamp *string   `json:"timestamp"`
	Username  string    `json:"username"`
	Photo     *string   `json:"photo"`
	CreatedAt time.Time `json:"created_at"`
}

// EventFilter narrows a listing. Zero values mean no filter.
type EventFilter struct {
	Username string
	Date     string // YYYY-MM-DD, matched against the created_at calendar day
}

// EventGroup is one aggregation bucket. Date is set for daily grouping,
// Month for monthly. Events is never null: a bucket emptied by the username
// filter still serializes an empty array.
type EventGroup struct {
	Date   string  `json:"date,omitempty"`
	Month  string  `json:"month,omitempty"`
	Count  int     `json:"count"`
	Events []Event `json:"events"`
}

type LoginResponse struct {
	Message  string `json:"message"`
	Username string `json:"username"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type MeResponse struct {
	Username string `json:"username"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}

type HealthStatus struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	UptimeSec int64  `json:"uptime_sec"`
	Timestamp string `json:"timestamp"`
}
