// Package extract pulls coordinates and display names out of the
// semi-structured markup returned by the scraped maps provider. It is pure
// string processing: no I/O, no logging.
//
// The page intermixes real coordinates with unrelated numeric literals
// (zoom levels, scale factors, pixel offsets), so extraction runs an
// ordered cascade of strategies. Earlier strategies read the page's own
// authoritative state and are strictly preferred; the raw array scan is a
// last resort gated by a region plausibility box.
package extract

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"

	"github.com/sells-group/place-resolver/internal/model"
)

const titleSuffix = " - Google Maps"

// DefaultRegion bounds the raw array scan to the deployment region
// (Vietnam): lat (8,24), lng (102,110). The box filters zoom/scale noise
// that is mathematically valid but geographically absurd.
func DefaultRegion() *geom.Bounds {
	return geom.NewBounds(geom.XY).Set(102, 8, 110, 24)
}

// Extractor runs the strategy cascade over raw markup.
type Extractor struct {
	region *geom.Bounds
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRegion overrides the plausibility box used by the raw array scan.
// The bounds are XY (lng, lat) ordered.
func WithRegion(b *geom.Bounds) Option {
	return func(e *Extractor) {
		e.region = b
	}
}

// New creates an Extractor with the default region box.
func New(opts ...Option) *Extractor {
	e := &Extractor{region: DefaultRegion()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type coordinate struct {
	lat, lng float64
}

// strategy inspects markup and yields at most one coordinate.
type strategy struct {
	source model.Source
	fn     func(markup string) (coordinate, bool)
}

// strategies returns the cascade in priority order.
func (e *Extractor) strategies() []strategy {
	return []strategy{
		{model.SourceAppInitState, extractAppInitState},
		{model.SourceProtobufPB, extractProtobufPairs},
		{model.SourceProtobufPBInverse, extractProtobufInverse},
		{model.SourceMetaOGImageMarkers, extractMetaMarkers},
		{model.SourceArrayScan, e.extractArrayScan},
	}
}

// Extract runs the cascade and returns a place with the first coordinate
// found, or a not_found place carrying only the display name. The
// returned place's Destination and URL are left for the caller to fill.
func (e *Extractor) Extract(markup, fallbackName string) model.ResolvedPlace {
	name := displayName(markup, fallbackName)

	for _, s := range e.strategies() {
		if c, ok := s.fn(markup); ok {
			return model.ResolvedPlace{
				ResolvedName: name,
				Lat:          model.Float64(c.lat),
				Lng:          model.Float64(c.lng),
				Source:       s.source,
			}
		}
	}

	return model.ResolvedPlace{
		ResolvedName: name,
		Source:       model.SourceNotFound,
	}
}

// mathValid is the strict mathematical bound check applied to every
// extracted pair. Open intervals: exactly ±90 / ±180 are rejected here
// because page literals at those exact values are never real places.
func mathValid(lat, lng float64) bool {
	return lat > -90 && lat < 90 && lng > -180 && lng < 180
}

// inRegion applies the plausibility box on top of the mathematical check.
func (e *Extractor) inRegion(lat, lng float64) bool {
	if !mathValid(lat, lng) {
		return false
	}
	return lat > e.region.Min(1) && lat < e.region.Max(1) &&
		lng > e.region.Min(0) && lng < e.region.Max(0)
}

// appInitStateRe matches the head of the page's initialization state
// literal: [[[zoom, lng, lat, ...]. Field order is zoom first, then
// longitude, then latitude.
var appInitStateRe = regexp.MustCompile(`APP_INITIALIZATION_STATE=\[\[\[\s*(-?[0-9.]+)\s*,\s*(-?[0-9.]+)\s*,\s*(-?[0-9.]+)`)

func extractAppInitState(markup string) (coordinate, bool) {
	m := appInitStateRe.FindStringSubmatch(markup)
	if m == nil {
		return coordinate{}, false
	}
	lng, err1 := strconv.ParseFloat(m[2], 64)
	lat, err2 := strconv.ParseFloat(m[3], 64)
	if err1 != nil || err2 != nil || !mathValid(lat, lng) {
		return coordinate{}, false
	}
	return coordinate{lat: lat, lng: lng}, true
}

// protobufPairRe matches the !2d<lng>!3d<lat> marker encoding; the bang
// may arrive percent-encoded as %21.
var protobufPairRe = regexp.MustCompile(`(?:!|%21)2d(-?[0-9.]+)(?:!|%21)3d(-?[0-9.]+)`)

// extractProtobufPairs takes the LAST match in document order: the
// destination marker is appended after the origin marker, so the final
// occurrence is authoritative.
func extractProtobufPairs(markup string) (coordinate, bool) {
	return lastValidPair(protobufPairRe.FindAllStringSubmatch(markup, -1))
}

// protobufInverseRe matches the !1d<lng>!2d<lat> variant seen on some
// markup revisions.
var protobufInverseRe = regexp.MustCompile(`(?:!|%21)1d(-?[0-9.]+)(?:!|%21)2d(-?[0-9.]+)`)

func extractProtobufInverse(markup string) (coordinate, bool) {
	return lastValidPair(protobufInverseRe.FindAllStringSubmatch(markup, -1))
}

// lastValidPair scans lng,lat submatches from the end and returns the
// last one that parses and passes the mathematical bound check.
func lastValidPair(matches [][]string) (coordinate, bool) {
	for i := len(matches) - 1; i >= 0; i-- {
		lng, err1 := strconv.ParseFloat(matches[i][1], 64)
		lat, err2 := strconv.ParseFloat(matches[i][2], 64)
		if err1 == nil && err2 == nil && mathValid(lat, lng) {
			return coordinate{lat: lat, lng: lng}, true
		}
	}
	return coordinate{}, false
}

var (
	markersParamRe = regexp.MustCompile(`markers=([^&"'\s]+)`)
	latLngPartRe   = regexp.MustCompile(`^-?[0-9]+(?:\.[0-9]+)?,-?[0-9]+(?:\.[0-9]+)?$`)
)

// extractMetaMarkers reads the markers= parameter of the embedded static
// map preview URL. When origin and destination are both plotted the
// destination is the later marker, so the last lat,lng part wins.
func extractMetaMarkers(markup string) (coordinate, bool) {
	m := markersParamRe.FindStringSubmatch(markup)
	if m == nil {
		return coordinate{}, false
	}
	decoded, err := url.QueryUnescape(m[1])
	if err != nil {
		decoded = m[1]
	}

	var pairs []string
	for _, part := range strings.Split(decoded, "|") {
		if latLngPartRe.MatchString(strings.TrimSpace(part)) {
			pairs = append(pairs, strings.TrimSpace(part))
		}
	}
	if len(pairs) == 0 {
		return coordinate{}, false
	}

	last := strings.SplitN(pairs[len(pairs)-1], ",", 2)
	lat, err1 := strconv.ParseFloat(last[0], 64)
	lng, err2 := strconv.ParseFloat(last[1], 64)
	if err1 != nil || err2 != nil || !mathValid(lat, lng) {
		return coordinate{}, false
	}
	return coordinate{lat: lat, lng: lng}, true
}

// arrayLiteralRe matches any [number, number] literal in the markup.
var arrayLiteralRe = regexp.MustCompile(`\[\s*(-?[0-9]+(?:\.[0-9]+)?)\s*,\s*(-?[0-9]+(?:\.[0-9]+)?)\s*\]`)

// extractArrayScan is the least reliable strategy: it tests both
// orientations of every two-element array literal against the region box
// and accepts the first orientation that passes.
func (e *Extractor) extractArrayScan(markup string) (coordinate, bool) {
	for _, m := range arrayLiteralRe.FindAllStringSubmatch(markup, -1) {
		a, err1 := strconv.ParseFloat(m[1], 64)
		b, err2 := strconv.ParseFloat(m[2], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		if e.inRegion(a, b) {
			return coordinate{lat: a, lng: b}, true
		}
		if e.inRegion(b, a) {
			return coordinate{lat: b, lng: a}, true
		}
	}
	return coordinate{}, false
}

var (
	// Attribute order on the scraped pages is not stable, so both
	// property-first and content-first forms are recognized.
	ogTitleRe        = regexp.MustCompile(`<meta[^>]+property="og:title"[^>]+content="([^"]*)"`)
	ogTitleReverseRe = regexp.MustCompile(`<meta[^>]+content="([^"]*)"[^>]+property="og:title"`)
	titleRe          = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
)

// displayName reads the page title metadata, strips the provider's site
// suffix, and falls back to the original destination string.
func displayName(markup, fallbackName string) string {
	var title string
	if m := ogTitleRe.FindStringSubmatch(markup); m != nil {
		title = m[1]
	} else if m := ogTitleReverseRe.FindStringSubmatch(markup); m != nil {
		title = m[1]
	} else if m := titleRe.FindStringSubmatch(markup); m != nil {
		title = m[1]
	}

	title = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(title), titleSuffix))
	if title == "" {
		return fallbackName
	}
	return title
}
