package extract

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/sells-group/place-resolver/internal/model"
)

// Candidate is one coordinate found while enumerating every strategy
// match, used by the standalone extraction tooling rather than the live
// resolution path.
type Candidate struct {
	Lat    float64      `json:"lat"`
	Lng    float64      `json:"lng"`
	Source model.Source `json:"source"`
}

// staticMapCenterRe matches the center=lat%2Clng parameter of static map
// URLs embedded in the markup.
var staticMapCenterRe = regexp.MustCompile(`center=(-?[0-9.]+)%2C(-?[0-9.]+)`)

// ExtractAll enumerates every candidate coordinate each strategy can see,
// rather than stopping at the first hit. All candidates pass the region
// plausibility box: the enumeration exists to audit noisy markup, and
// without the box it would drown in zoom/scale literals. Duplicates are
// collapsed at 6-decimal precision by "lat,lng" key, keeping first-seen
// order and first-seen source.
func (e *Extractor) ExtractAll(markup string) []Candidate {
	var raw []Candidate

	for _, m := range protobufPairRe.FindAllStringSubmatch(markup, -1) {
		if lng, lat, ok := parsePair(m[1], m[2]); ok && e.inRegion(lat, lng) {
			raw = append(raw, Candidate{Lat: lat, Lng: lng, Source: model.SourceProtobufPB})
		}
	}

	for _, m := range protobufInverseRe.FindAllStringSubmatch(markup, -1) {
		if lng, lat, ok := parsePair(m[1], m[2]); ok && e.inRegion(lat, lng) {
			raw = append(raw, Candidate{Lat: lat, Lng: lng, Source: model.SourceProtobufPBInverse})
		}
	}

	for _, m := range staticMapCenterRe.FindAllStringSubmatch(markup, -1) {
		if lat, lng, ok := parsePair(m[1], m[2]); ok && e.inRegion(lat, lng) {
			raw = append(raw, Candidate{Lat: lat, Lng: lng, Source: model.SourceStaticMapCenter})
		}
	}

	for _, m := range arrayLiteralRe.FindAllStringSubmatch(markup, -1) {
		a, b, ok := parsePair(m[1], m[2])
		if !ok {
			continue
		}
		if e.inRegion(a, b) {
			raw = append(raw, Candidate{Lat: a, Lng: b, Source: model.SourceArrayScan})
		} else if e.inRegion(b, a) {
			raw = append(raw, Candidate{Lat: b, Lng: a, Source: model.SourceArrayScan})
		}
	}

	return dedupe(raw)
}

// parsePair parses two numeric strings, reporting success.
func parsePair(first, second string) (float64, float64, bool) {
	a, err1 := strconv.ParseFloat(first, 64)
	b, err2 := strconv.ParseFloat(second, 64)
	return a, b, err1 == nil && err2 == nil
}

// dedupe collapses candidates that normalize to the same 6-decimal
// lat,lng key, preserving first-seen order.
func dedupe(candidates []Candidate) []Candidate {
	seen := make(map[string]struct{}, len(candidates))
	var out []Candidate
	for _, c := range candidates {
		key := fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}
