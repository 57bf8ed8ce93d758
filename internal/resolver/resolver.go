// Package resolver orchestrates the provider fallback chain: official
// geocoding API, scraped maps page, open-data geocoder, in that order.
// The first provider to produce a coordinate terminates the chain; every
// provider-level failure is downgraded to a fallback transition.
package resolver

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/place-resolver/internal/model"
	"github.com/sells-group/place-resolver/internal/store"
)

// Provider is one backend in the fallback chain.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, req model.ResolveRequest) model.Outcome
}

// Service runs the ordered fallback across providers.
type Service struct {
	providers []Provider
	history   store.Store
}

// Option configures the Service.
type Option func(*Service)

// WithHistory records each terminal outcome to the given store.
// Recording is best-effort and advisory.
func WithHistory(s store.Store) Option {
	return func(svc *Service) { svc.history = s }
}

// NewService creates a Service trying providers in the given order.
func NewService(providers []Provider, opts ...Option) *Service {
	s := &Service{providers: providers}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve validates the request and walks the provider chain. No state is
// revisited: a provider either terminates the chain with a coordinate or
// is never consulted again for this request. When every provider is
// exhausted the result is ErrUnresolved, a terminal non-fault outcome.
func (s *Service) Resolve(ctx context.Context, req model.ResolveRequest) (*model.ResolvedPlace, error) {
	if err := req.Validate(); err != nil {
		return nil, NewError(ClassBadRequest, err)
	}

	zap.L().Info("resolver: starting resolution",
		zap.String("destination", req.Destination),
	)

	for _, p := range s.providers {
		out := p.Resolve(ctx, req)
		switch {
		case out.IsFound():
			place := out.Place()
			zap.L().Info("resolver: resolved",
				zap.String("destination", req.Destination),
				zap.String("provider", p.Name()),
				zap.String("source", string(place.Source)),
			)
			s.record(ctx, req, place)
			return place, nil

		case out.IsFailed():
			zap.L().Warn("resolver: provider failed, trying next",
				zap.String("provider", p.Name()),
				zap.Error(out.Err()),
			)

		default:
			zap.L().Debug("resolver: provider found nothing",
				zap.String("provider", p.Name()),
			)
		}
	}

	zap.L().Warn("resolver: all providers exhausted",
		zap.String("destination", req.Destination),
	)
	s.record(ctx, req, nil)
	return nil, ErrUnresolved
}

// record writes the terminal outcome to the history store, if configured.
func (s *Service) record(ctx context.Context, req model.ResolveRequest, place *model.ResolvedPlace) {
	if s.history == nil {
		return
	}

	rec := store.Resolution{
		Destination: req.Destination,
		OriginLat:   req.OriginLat,
		OriginLng:   req.OriginLng,
		Status:      store.StatusUnresolved,
	}
	if place != nil {
		rec.Status = store.StatusResolved
		rec.Source = string(place.Source)
		rec.ResolvedName = place.ResolvedName
		rec.Lat = place.Lat
		rec.Lng = place.Lng
	}

	if _, err := s.history.CreateResolution(ctx, rec); err != nil {
		zap.L().Warn("resolver: record history", zap.Error(err))
	}
}
