// Package store persists resolution history for audit and debugging.
// The live pipeline never reads it back; it exists so operators can see
// which provider answered for which destination.
package store

import (
	"context"
	"time"
)

// Resolution statuses.
const (
	StatusResolved   = "resolved"
	StatusUnresolved = "unresolved"
)

// Resolution is one terminal resolution outcome.
type Resolution struct {
	ID           string    `json:"id"`
	Destination  string    `json:"destination"`
	OriginLat    float64   `json:"origin_lat"`
	OriginLng    float64   `json:"origin_lng"`
	Status       string    `json:"status"`
	Source       string    `json:"source,omitempty"`
	ResolvedName string    `json:"resolved_name,omitempty"`
	Lat          *float64  `json:"lat,omitempty"`
	Lng          *float64  `json:"lng,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Filter specifies criteria for listing resolutions.
type Filter struct {
	Status      string `json:"status,omitempty"`
	Destination string `json:"destination,omitempty"`
	Limit       int    `json:"limit,omitempty"`
}

// Store defines the persistence interface for resolution history.
type Store interface {
	CreateResolution(ctx context.Context, rec Resolution) (*Resolution, error)
	ListResolutions(ctx context.Context, filter Filter) ([]Resolution, error)

	Migrate(ctx context.Context) error
	Close() error
}
