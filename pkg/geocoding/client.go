// Package geocoding is a client for the official Google Geocoding API,
// gated by a monthly usage quota. Every failure inside this client maps
// to an explicit absence: the pipeline treats the paid provider as
// strictly optional.
package geocoding

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/place-resolver/internal/model"
	"github.com/sells-group/place-resolver/internal/quota"
)

const (
	defaultBaseURL  = "https://maps.googleapis.com/maps/api/geocode/json"
	defaultLanguage = "vi"

	// resultURL is the provenance URL recorded on API-sourced places.
	resultURL = "api://google_geocoding"
)

// geocodeResponse is the JSON body of the Geocoding API.
type geocodeResponse struct {
	Results []geocodeResult `json:"results"`
	Status  string          `json:"status"`
}

type geocodeResult struct {
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	FormattedAddress string `json:"formatted_address"`
}

// Client calls the Geocoding API. The quota tracker is consulted before
// every call and advanced after every successful one.
type Client struct {
	apiKey     string
	language   string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	tracker    *quota.Tracker
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint (for tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithLanguage sets the language hint sent with each request.
func WithLanguage(lang string) Option {
	return func(c *Client) {
		if lang != "" {
			c.language = lang
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit sets the requests-per-second politeness limit.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// NewClient creates a Client with the given API key and quota tracker.
// An empty key is allowed: the client then skips every call.
func NewClient(apiKey string, tracker *quota.Tracker, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		language:   defaultLanguage,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(10, 1),
		tracker:    tracker,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name identifies the provider in orchestrator logs.
func (c *Client) Name() string { return "google_geocoding" }

// Resolve geocodes the destination. It returns NotFound — never Failed —
// for every precondition miss, transport error, and empty result: quota
// bookkeeping and provider health are advisory here.
func (c *Client) Resolve(ctx context.Context, req model.ResolveRequest) model.Outcome {
	if c.apiKey == "" {
		zap.L().Warn("geocoding: api key not configured, skipping")
		return model.NotFound()
	}

	usage := c.tracker.CurrentUsage(ctx)
	if usage >= c.tracker.Limit() {
		zap.L().Warn("geocoding: monthly limit reached, skipping",
			zap.Int("usage", usage),
			zap.Int("limit", c.tracker.Limit()),
		)
		return model.NotFound()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		zap.L().Warn("geocoding: rate limit wait", zap.Error(err))
		return model.NotFound()
	}

	params := url.Values{
		"address":  {req.Destination},
		"key":      {c.apiKey},
		"language": {c.language},
	}
	reqURL := c.baseURL + "?" + params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		zap.L().Error("geocoding: build request", zap.Error(err))
		return model.NotFound()
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		zap.L().Error("geocoding: request", zap.Error(err))
		return model.NotFound()
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		zap.L().Error("geocoding: unexpected status", zap.Int("status", resp.StatusCode))
		return model.NotFound()
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		zap.L().Error("geocoding: read body", zap.Error(err))
		return model.NotFound()
	}

	var apiResp geocodeResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		zap.L().Error("geocoding: parse response", zap.Error(err))
		return model.NotFound()
	}

	switch {
	case apiResp.Status == "OK" && len(apiResp.Results) > 0:
		c.tracker.Increment(ctx)
		top := apiResp.Results[0]
		return model.Found(&model.ResolvedPlace{
			ResolvedName: top.FormattedAddress,
			Destination:  req.Destination,
			Lat:          model.Float64(top.Geometry.Location.Lat),
			Lng:          model.Float64(top.Geometry.Location.Lng),
			Source:       model.SourceGoogleGeocodingAPI,
			URL:          resultURL,
		})

	case apiResp.Status == "OVER_QUERY_LIMIT":
		// Pin the month at the ceiling so no further calls are attempted.
		zap.L().Error("geocoding: provider reported OVER_QUERY_LIMIT")
		c.tracker.ForceToLimit(ctx)
		return model.NotFound()

	default:
		zap.L().Debug("geocoding: no results",
			zap.String("status", apiResp.Status),
			zap.String("destination", req.Destination),
		)
		return model.NotFound()
	}
}
