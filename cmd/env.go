package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/place-resolver/internal/config"
	"github.com/sells-group/place-resolver/internal/extract"
	"github.com/sells-group/place-resolver/internal/quota"
	"github.com/sells-group/place-resolver/internal/ratelimit"
	"github.com/sells-group/place-resolver/internal/resolver"
	"github.com/sells-group/place-resolver/internal/store"
	"github.com/sells-group/place-resolver/pkg/geocoding"
	"github.com/sells-group/place-resolver/pkg/gmaps"
	"github.com/sells-group/place-resolver/pkg/nominatim"
)

// env holds the wired resolver stack shared by commands.
type env struct {
	Service *resolver.Service
	History store.Store

	queue *ratelimit.Queue
}

// initResolver builds the provider chain and history store from config.
func initResolver(ctx context.Context, cfg *config.Config) (*env, error) {
	e := &env{}

	hist, err := openHistory(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	e.History = hist

	extractor := extract.New(extract.WithRegion(cfg.Extract.Region()))

	var providers []resolver.Provider
	if cfg.Google.APIKey != "" {
		tracker := quota.NewTracker(quota.NewFileStore(cfg.Google.UsageFile), cfg.Google.MonthlyLimit)
		providers = append(providers, geocoding.NewClient(cfg.Google.APIKey, tracker,
			geocoding.WithLanguage(cfg.Google.Language),
		))
	}

	providers = append(providers, gmaps.NewClient(extractor,
		gmaps.WithBaseURL(cfg.Scrape.BaseURL),
		gmaps.WithAuditDir(cfg.Scrape.AuditDir),
		gmaps.WithLanguage(cfg.Scrape.Language),
		gmaps.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Scrape.TimeoutSecs) * time.Second}),
	))

	e.queue = ratelimit.NewQueue(time.Duration(cfg.OSM.MinIntervalMs) * time.Millisecond)
	providers = append(providers, nominatim.NewClient(e.queue,
		nominatim.WithBaseURL(cfg.OSM.BaseURL),
		nominatim.WithUserAgent(cfg.OSM.UserAgent),
	))

	var opts []resolver.Option
	if hist != nil {
		opts = append(opts, resolver.WithHistory(hist))
	}
	e.Service = resolver.NewService(providers, opts...)

	return e, nil
}

func openHistory(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		st, err := store.NewSQLite(cfg.Path)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close() //nolint:errcheck
			return nil, err
		}
		return st, nil
	case "postgres":
		st, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close() //nolint:errcheck
			return nil, err
		}
		return st, nil
	case "":
		// history disabled
		return nil, nil
	default:
		return nil, eris.Errorf("cmd: unknown store driver %q", cfg.Driver)
	}
}

// Close releases the rate limiter worker and the history store.
func (e *env) Close() {
	if e.queue != nil {
		e.queue.Close()
	}
	if e.History != nil {
		e.History.Close() //nolint:errcheck
	}
}
