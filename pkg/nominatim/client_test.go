package nominatim

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/place-resolver/internal/model"
	"github.com/sells-group/place-resolver/internal/ratelimit"
)

func testQueue(t *testing.T) *ratelimit.Queue {
	t.Helper()
	q := ratelimit.NewQueue(time.Millisecond)
	t.Cleanup(q.Close)
	return q
}

func testRequest() model.ResolveRequest {
	return model.ResolveRequest{OriginLat: 21.0, OriginLng: 105.8, Destination: "Chợ Đồng Xuân"}
}

func TestResolve_FirstResultWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Chợ Đồng Xuân", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "105.6,21.2,106,20.8", r.URL.Query().Get("viewbox"))
		assert.Contains(t, r.Header.Get("User-Agent"), "place-resolver")

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[
			{"display_name": "Chợ Đồng Xuân, Hoàn Kiếm, Hà Nội", "lat": "21.038085", "lon": "105.849428"},
			{"display_name": "somewhere else", "lat": "21.5", "lon": "105.5"}
		]`)
	}))
	defer srv.Close()

	c := NewClient(testQueue(t), WithBaseURL(srv.URL))
	out := c.Resolve(context.Background(), testRequest())

	require.True(t, out.IsFound())
	place := out.Place()
	assert.Equal(t, model.SourceOSM, place.Source)
	assert.Equal(t, "Chợ Đồng Xuân, Hoàn Kiếm, Hà Nội", place.ResolvedName)
	assert.Equal(t, "Chợ Đồng Xuân", place.Destination)
	assert.InDelta(t, 21.038085, *place.Lat, 1e-9)
	assert.InDelta(t, 105.849428, *place.Lng, 1e-9)
	assert.Contains(t, place.URL, "viewbox=")
}

func TestResolve_EmptyResultIsAbsence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c := NewClient(testQueue(t), WithBaseURL(srv.URL))
	out := c.Resolve(context.Background(), testRequest())

	assert.False(t, out.IsFound())
	assert.False(t, out.IsFailed())
}

func TestResolve_Non200IsAbsence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(testQueue(t), WithBaseURL(srv.URL))
	out := c.Resolve(context.Background(), testRequest())

	assert.False(t, out.IsFound())
	assert.False(t, out.IsFailed())
}

func TestResolve_TransportErrorIsAbsence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	c := NewClient(testQueue(t), WithBaseURL(srv.URL))
	out := c.Resolve(context.Background(), testRequest())

	assert.False(t, out.IsFound())
	assert.False(t, out.IsFailed())
}

func TestResolve_GoesThroughQueue(t *testing.T) {
	const interval = 40 * time.Millisecond

	var (
		mu    sync.Mutex
		times []time.Time
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		times = append(times, time.Now())
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	q := ratelimit.NewQueue(interval)
	defer q.Close()
	c := NewClient(q, WithBaseURL(srv.URL))

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Resolve(context.Background(), testRequest())
		}()
	}
	wg.Wait()

	require.Len(t, times, 3)
	for i := 1; i < len(times); i++ {
		assert.GreaterOrEqual(t, times[i].Sub(times[i-1]), interval)
	}
}

func TestViewbox(t *testing.T) {
	assert.Equal(t, "105.6,21.2,106,20.8", Viewbox(21.0, 105.8))
}
