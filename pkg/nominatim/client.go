// Package nominatim is a client for the OpenStreetMap Nominatim search
// API. Every outbound call is funneled through a FIFO rate-limit queue so
// concurrent resolutions respect the provider's usage policy.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/place-resolver/internal/model"
	"github.com/sells-group/place-resolver/internal/ratelimit"
)

const (
	defaultBaseURL = "https://nominatim.openstreetmap.org/search"

	// Nominatim's usage policy requires an identifying user agent with a
	// contact address.
	defaultUserAgent = "place-resolver/1.0 (ops@sellsadvisors.com)"

	// viewboxOffset biases search results toward the origin's vicinity.
	viewboxOffset = 0.2
)

// searchResult is one element of the Nominatim search response array.
type searchResult struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

// Client calls the Nominatim search API through a rate-limit queue.
type Client struct {
	baseURL    string
	userAgent  string
	language   string
	httpClient *http.Client
	queue      *ratelimit.Queue
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the search endpoint (for tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithUserAgent overrides the identifying user agent.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
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

// NewClient creates a Client that serializes its calls through queue.
func NewClient(queue *ratelimit.Queue, opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		userAgent:  defaultUserAgent,
		language:   "vi-VN,vi;q=0.9",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		queue:      queue,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name identifies the provider in orchestrator logs.
func (c *Client) Name() string { return "osm" }

// Resolve searches for the destination within a bounding box around the
// origin. Transport errors and empty results are both absence; this
// client never fails the pipeline.
func (c *Client) Resolve(ctx context.Context, req model.ResolveRequest) model.Outcome {
	var out model.Outcome
	err := c.queue.Do(ctx, func(ctx context.Context) error {
		out = c.search(ctx, req)
		return nil
	})
	if err != nil {
		zap.L().Warn("nominatim: queue wait", zap.Error(err))
		return model.NotFound()
	}
	return out
}

// Viewbox returns the ±0.2° box around the origin in Nominatim's
// left,top,right,bottom order.
func Viewbox(originLat, originLng float64) string {
	b := geom.NewBounds(geom.XY).Set(
		originLng-viewboxOffset, originLat-viewboxOffset,
		originLng+viewboxOffset, originLat+viewboxOffset,
	)
	return fmt.Sprintf("%g,%g,%g,%g", b.Min(0), b.Max(1), b.Max(0), b.Min(1))
}

func (c *Client) search(ctx context.Context, req model.ResolveRequest) model.Outcome {
	params := url.Values{
		"q":       {req.Destination},
		"format":  {"json"},
		"viewbox": {Viewbox(req.OriginLat, req.OriginLng)},
	}
	reqURL := c.baseURL + "?" + params.Encode()

	zap.L().Debug("nominatim: searching",
		zap.String("destination", req.Destination),
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		zap.L().Error("nominatim: build request", zap.Error(err))
		return model.NotFound()
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Accept-Language", c.language)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		zap.L().Error("nominatim: request", zap.Error(err))
		return model.NotFound()
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		zap.L().Error("nominatim: unexpected status", zap.Int("status", resp.StatusCode))
		return model.NotFound()
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		zap.L().Error("nominatim: read body", zap.Error(err))
		return model.NotFound()
	}

	var results []searchResult
	if err := json.Unmarshal(body, &results); err != nil {
		zap.L().Error("nominatim: parse response", zap.Error(err))
		return model.NotFound()
	}
	if len(results) == 0 {
		return model.NotFound()
	}

	top := results[0]
	lat, err1 := strconv.ParseFloat(top.Lat, 64)
	lng, err2 := strconv.ParseFloat(top.Lon, 64)
	if err1 != nil || err2 != nil {
		zap.L().Error("nominatim: unparseable coordinate",
			zap.String("lat", top.Lat),
			zap.String("lon", top.Lon),
		)
		return model.NotFound()
	}

	return model.Found(&model.ResolvedPlace{
		ResolvedName: top.DisplayName,
		Destination:  req.Destination,
		Lat:          model.Float64(lat),
		Lng:          model.Float64(lng),
		Source:       model.SourceOSM,
		URL:          reqURL,
	})
}
