package telephony

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/missedcall/internal/resilience"
)

var ist = time.FixedZone("IST", 5*3600+1800)

func TestFetchPage_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "token", pass)

		q := r.URL.Query()
		assert.Equal(t, "2025-03-01T09:00:00", q.Get("start_time"))
		assert.Equal(t, "2025-03-02T09:00:00", q.Get("end_time"))
		assert.Equal(t, "50", q.Get("limit"))
		assert.Equal(t, "100", q.Get("offset"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"meta":{"total_count":230},"objects":[
			{"id":"c1","customer_number":"+919811111111","agent_number":"missed","start_time":"2025-03-01 10:00:00","duration":0},
			"junk",
			{"id":"c2","customer_number":"+919822222222","agent_number":"+918000000001","start_time":"2025-03-01 11:00:00"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", "token")
	page, err := c.FetchPage(context.Background(), PageQuery{
		Start:  time.Date(2025, 3, 1, 9, 0, 0, 0, ist),
		End:    time.Date(2025, 3, 2, 9, 0, 0, 0, ist),
		Limit:  50,
		Offset: 100,
	})

	require.NoError(t, err)
	assert.Equal(t, 230, page.TotalCount)
	require.Len(t, page.Calls, 2)
	assert.Equal(t, "+919811111111", page.Calls[0].CustomerNumber)
	assert.Equal(t, "missed", page.Calls[0].AgentNumber)
	assert.Equal(t, "2025-03-01 10:00:00", page.Calls[0].StartTime)
	assert.Equal(t, float64(0), page.Calls[0].Raw["duration"])
	assert.Equal(t, "c2", page.Calls[1].ID)
}

func TestFetchPage_EmptyWindow(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"meta":{"total_count":0},"objects":[]}`))
	}))
	defer srv.Close()

	page, err := NewClient(srv.URL, "k", "t").FetchPage(context.Background(), PageQuery{Limit: 100})
	require.NoError(t, err)
	assert.Zero(t, page.TotalCount)
	assert.Empty(t, page.Calls)
}

func TestFetchPage_StatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k", "t").FetchPage(context.Background(), PageQuery{Limit: 100})

	require.Error(t, err)
	var pe *resilience.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusTooManyRequests, pe.StatusCode)
	assert.True(t, resilience.IsTransient(err))
}

func TestFetchPage_InvalidJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k", "t").FetchPage(context.Background(), PageQuery{Limit: 100})

	require.Error(t, err)
	var parseErr *resilience.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestFetchPage_Timeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "t", WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}))
	_, err := c.FetchPage(context.Background(), PageQuery{Limit: 100})

	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestFetchPage_RateLimitBacksOff(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "t", WithRateLimit(8)).(*httpClient)
	_, err := c.FetchPage(context.Background(), PageQuery{Limit: 100})

	require.Error(t, err)
	assert.InDelta(t, 4.0, float64(c.limiter.Limit()), 0.01)
}
