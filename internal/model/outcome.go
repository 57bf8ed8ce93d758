package model

// Outcome is the uniform result of a single provider attempt. Exactly one
// of the three cases holds: a found place, an explicit absence, or a
// provider failure. Absence is a value, never an error, so the
// orchestrator's fallback logic is a single match.
type Outcome struct {
	place *ResolvedPlace
	err   error
}

// Found wraps a place that carries coordinates.
func Found(place *ResolvedPlace) Outcome {
	return Outcome{place: place}
}

// NotFound is the explicit absence case.
func NotFound() Outcome {
	return Outcome{}
}

// Failed wraps a provider failure.
func Failed(err error) Outcome {
	return Outcome{err: err}
}

// IsFound reports whether the outcome carries a place with coordinates.
func (o Outcome) IsFound() bool {
	return o.err == nil && o.place.HasCoordinates()
}

// IsFailed reports whether the provider failed.
func (o Outcome) IsFailed() bool { return o.err != nil }

// Place returns the resolved place, nil unless IsFound.
func (o Outcome) Place() *ResolvedPlace { return o.place }

// Err returns the provider failure, nil unless IsFailed.
func (o Outcome) Err() error { return o.err }
