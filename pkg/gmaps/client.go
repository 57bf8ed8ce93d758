// Package gmaps scrapes a Google Maps directions page and extracts the
// destination coordinate from its markup. It is the scraper of last
// structural resort: unlike the API clients it reports classified
// failures, because a structural failure here (bad gateway, timeout) is
// informative to a caller deciding whether to retry later.
package gmaps

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/place-resolver/internal/extract"
	"github.com/sells-group/place-resolver/internal/model"
	"github.com/sells-group/place-resolver/internal/resolver"
)

const (
	defaultBaseURL = "https://www.google.com/maps/dir"

	// A consumer-maps page may serve degraded markup to obvious bots, so
	// the fetch presents a realistic browser header set.
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

	fetchTimeout = 10 * time.Second

	// Pages routinely run to several MB of script; coordinates appear
	// well within this bound.
	maxBodyBytes = 8 << 20
)

// Client fetches and parses the scraped maps provider.
type Client struct {
	baseURL    string
	auditDir   string
	language   string
	userAgent  string
	httpClient *http.Client
	extractor  *extract.Extractor
	now        func() time.Time
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the directions endpoint (for tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithAuditDir enables best-effort persistence of raw fetched markup
// under the given directory. Empty disables persistence.
func WithAuditDir(dir string) Option {
	return func(c *Client) { c.auditDir = dir }
}

// WithLanguage sets the Accept-Language header value.
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

// WithClock overrides the time source used for audit filenames (tests).
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a Client over the given extractor.
func NewClient(extractor *extract.Extractor, opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		language:   "vi-VN,vi;q=0.9,en;q=0.8",
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: fetchTimeout},
		extractor:  extractor,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name identifies the provider in orchestrator logs.
func (c *Client) Name() string { return "gmaps_scrape" }

// DirectionsURL builds the directions page URL for an origin and a
// percent-encoded destination.
func (c *Client) DirectionsURL(req model.ResolveRequest) string {
	return fmt.Sprintf("%s/%s,%s/%s",
		c.baseURL,
		url.PathEscape(formatCoord(req.OriginLat)),
		url.PathEscape(formatCoord(req.OriginLng)),
		url.PathEscape(req.Destination),
	)
}

func formatCoord(v float64) string {
	return fmt.Sprintf("%g", v)
}

// Resolve fetches the directions page and runs the extraction cascade.
// Hard failures come back as Failed with a classified error; markup that
// simply contains no coordinate is NotFound.
func (c *Client) Resolve(ctx context.Context, req model.ResolveRequest) model.Outcome {
	if !model.ValidCoordinate(req.OriginLat, req.OriginLng) {
		return model.Failed(resolver.NewError(resolver.ClassBadRequest,
			eris.Errorf("gmaps: origin coordinate out of range: %f,%f", req.OriginLat, req.OriginLng)))
	}

	pageURL := c.DirectionsURL(req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return model.Failed(resolver.NewError(resolver.ClassInternal,
			eris.Wrap(err, "gmaps: build request")))
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", c.language)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		class := resolver.ClassifyTransport(err)
		return model.Failed(resolver.NewError(class, eris.Wrap(err, "gmaps: fetch")))
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.Failed(resolver.NewError(resolver.ClassBadGateway,
			eris.Errorf("gmaps: provider returned status %d", resp.StatusCode)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		class := resolver.ClassifyTransport(err)
		return model.Failed(resolver.NewError(class, eris.Wrap(err, "gmaps: read body")))
	}

	c.persistMarkup(req.Destination, body)

	place := c.extractor.Extract(string(body), req.Destination)
	place.Destination = req.Destination
	place.URL = pageURL

	if place.Source == model.SourceNotFound {
		zap.L().Debug("gmaps: no coordinate in markup",
			zap.String("destination", req.Destination),
		)
		return model.NotFound()
	}

	return model.Found(&place)
}

// persistMarkup saves the raw response body for audit. Failure here never
// affects the resolution.
func (c *Client) persistMarkup(destination string, body []byte) {
	if c.auditDir == "" {
		return
	}

	ts := c.now().UTC().Format("2006-01-02T15-04-05.000Z")
	name := fmt.Sprintf("%s_%s.html",
		SanitizeFilename(destination),
		strings.Replace(ts, ".", "-", 1),
	)

	if err := os.MkdirAll(c.auditDir, 0o755); err != nil {
		zap.L().Warn("gmaps: create audit dir", zap.Error(err))
		return
	}
	path := filepath.Join(c.auditDir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		zap.L().Warn("gmaps: persist markup", zap.String("path", path), zap.Error(err))
		return
	}
	zap.L().Debug("gmaps: saved markup", zap.String("path", path))
}
