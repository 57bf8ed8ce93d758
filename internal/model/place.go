// Package model defines the shared types for the place resolution pipeline.
package model

import "github.com/rotisserie/eris"

// Source identifies which provider or extraction strategy produced a
// resolved coordinate.
type Source string

const (
	// SourceAppInitState is the embedded app initialization array on a
	// scraped directions page.
	SourceAppInitState Source = "app_init_state"
	// SourceProtobufPB is the !2d<lng>!3d<lat> marker encoding.
	SourceProtobufPB Source = "protobuf_pb"
	// SourceProtobufPBInverse is the !1d<lng>!2d<lat> marker variant.
	SourceProtobufPBInverse Source = "protobuf_pb_inverse"
	// SourceMetaOGImageMarkers is the markers= parameter of the og:image
	// static map preview URL.
	SourceMetaOGImageMarkers Source = "meta_og_image_markers"
	// SourceStaticMapCenter is the center= parameter of a static map URL.
	SourceStaticMapCenter Source = "static_map_center"
	// SourceArrayScan is the raw [number, number] literal scan.
	SourceArrayScan Source = "array_scan"
	// SourceOSM is the Nominatim search API.
	SourceOSM Source = "osm"
	// SourceGoogleGeocodingAPI is the official Google Geocoding API.
	SourceGoogleGeocodingAPI Source = "google_geocoding_api"
	// SourceNotFound marks a structurally complete result that carries no
	// coordinates.
	SourceNotFound Source = "not_found"
)

// ResolveRequest is the validated input triple for a resolution.
type ResolveRequest struct {
	OriginLat   float64 `json:"originLat"`
	OriginLng   float64 `json:"originLng"`
	Destination string  `json:"destination"`
}

// Validate checks the origin coordinate bounds and destination presence.
func (r ResolveRequest) Validate() error {
	if !ValidCoordinate(r.OriginLat, r.OriginLng) {
		return eris.Errorf("model: origin coordinate out of range: %f,%f", r.OriginLat, r.OriginLng)
	}
	if r.Destination == "" {
		return eris.New("model: destination is required")
	}
	return nil
}

// ValidCoordinate reports whether lat/lng form a valid coordinate.
// Bounds are inclusive: exactly ±90 / ±180 are accepted.
func ValidCoordinate(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// ResolvedPlace is the outcome payload of a resolution. Lat/Lng are nil
// when no coordinate was found; Source is always set.
type ResolvedPlace struct {
	ResolvedName string   `json:"resolvedName"`
	Destination  string   `json:"destination"`
	Lat          *float64 `json:"lat"`
	Lng          *float64 `json:"lng"`
	Source       Source   `json:"source"`
	URL          string   `json:"url"`
}

// HasCoordinates reports whether both latitude and longitude are present.
func (p *ResolvedPlace) HasCoordinates() bool {
	return p != nil && p.Lat != nil && p.Lng != nil
}

// Float64 returns a pointer to v. Convenience for building ResolvedPlace.
func Float64(v float64) *float64 { return &v }
