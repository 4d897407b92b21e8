package model

import "time"

// FetchRecord is the audit entry written for every proxied download attempt.
// It never carries the payload itself.
type FetchRecord struct {
	ID            string        `json:"id"`
	ClientID      string        `json:"client_id"`
	URL           string        `json:"url"`
	Host          string        `json:"host,omitempty"`
	StatusCode    int           `json:"status_code"`
	ContentType   string        `json:"content_type,omitempty"`
	ContentLength int64         `json:"content_length"`
	Error         string        `json:"error,omitempty"`
	Duration      time.Duration `json:"duration"`
	CreatedAt     time.Time     `json:"created_at"`
}

// ClientFetch is the external representation returned by the history endpoint.
type ClientFetch struct {
	URL           string    `json:"url"`
	StatusCode    int       `json:"status_code"`
	ContentType   string    `json:"content_type,omitempty"`
	ContentLength int64     `json:"content_length"`
	Error         string    `json:"error,omitempty"`
	DurationMS    int64     `json:"duration_ms"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// Stats summarizes the audit trail.
type Stats struct {
	Fetches int   `json:"fetches"`
	Clients int   `json:"clients"`
	Bytes   int64 `json:"bytes"`
}
