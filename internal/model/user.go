// Package model defines domain entities for the application.
package model

import "time"

// User represents a registered user row.
// The GraphQL layer exposes CreatedAt as an opaque string; the typed
// timestamp lives here so the repository can scan it directly.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
