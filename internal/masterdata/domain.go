// Package masterdata holds the admin-configured catalogs: applications,
// categories, and the ordered status set whose is_final flag drives entity
// finality.
package masterdata

import "time"

// Application is a supported system an issue can be filed against.
type Application struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Category classifies cases and tests.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Status belongs to the configurable, ordered status set. A final status
// renders the entities holding it read-only.
type Status struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Position  int       `json:"position"`
	IsFinal   bool      `json:"is_final"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
