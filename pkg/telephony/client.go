// Package telephony provides a client for the call-log API of the telephony
// provider.
package telephony

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/sells-group/missedcall/internal/resilience"
)

// TimeLayout is the window format the API expects: ISO-8601 with no zone
// suffix, interpreted in the account's reference zone.
const TimeLayout = "2006-01-02T15:04:05"

// Client fetches call-log pages.
type Client interface {
	FetchPage(ctx context.Context, q PageQuery) (*Page, error)
}

// PageQuery selects one page of the call log.
type PageQuery struct {
	Start  time.Time
	End    time.Time
	Limit  int
	Offset int
}

// Page is one decoded call-log response.
type Page struct {
	TotalCount int
	Calls      []CallLog
}

// CallLog is one provider call object. Raw keeps every field as delivered.
type CallLog struct {
	ID             string
	CustomerNumber string
	AgentNumber    string
	StartTime      string
	Raw            map[string]any
}

// Option configures the telephony client.
type Option func(*httpClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps page requests per second across the fan-out. The rate
// adapts: it backs off on 429 and recovers on success.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = resilience.NewAdaptiveLimiter("telephony", rate.Limit(rps), max(int(rps), 1))
		}
	}
}

type httpClient struct {
	baseURL   string
	apiKey    string
	authToken string
	http      *http.Client
	limiter   *resilience.AdaptiveLimiter
}

// NewClient creates a call-log client authenticating with HTTP basic auth.
func NewClient(baseURL, apiKey, authToken string, opts ...Option) Client {
	c := &httpClient{
		baseURL:   baseURL,
		apiKey:    apiKey,
		authToken: authToken,
		http: &http.Client{
			Timeout: 20 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) FetchPage(ctx context.Context, q PageQuery) (*Page, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "telephony: rate limit")
		}
	}

	params := url.Values{}
	params.Set("start_time", q.Start.Format(TimeLayout))
	params.Set("end_time", q.End.Format(TimeLayout))
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("offset", strconv.Itoa(q.Offset))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "telephony: create request")
	}
	req.SetBasicAuth(c.apiKey, c.authToken)
	req.Header.Set("Accept", "application/json")

	operation := "fetch page offset=" + strconv.Itoa(q.Offset)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewProviderError("telephony", operation, 0, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewProviderError("telephony", operation, resp.StatusCode, eris.Wrap(err, "read body"))
	}
	if resp.StatusCode == http.StatusTooManyRequests && c.limiter != nil {
		c.limiter.OnRateLimit()
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resilience.NewProviderError("telephony", operation, resp.StatusCode, nil)
	}
	if c.limiter != nil {
		c.limiter.OnSuccess()
	}
	if !gjson.ValidBytes(body) {
		return nil, resilience.NewProviderError("telephony", operation, resp.StatusCode,
			&resilience.ParseError{Field: "body", Value: truncate(string(body), 80), Err: eris.New("invalid json")})
	}

	return parsePage(body), nil
}

func parsePage(body []byte) *Page {
	page := &Page{TotalCount: int(gjson.GetBytes(body, "meta.total_count").Int())}
	gjson.GetBytes(body, "objects").ForEach(func(_, obj gjson.Result) bool {
		if !obj.IsObject() {
			return true
		}
		raw, _ := obj.Value().(map[string]any)
		page.Calls = append(page.Calls, CallLog{
			ID:             obj.Get("id").String(),
			CustomerNumber: obj.Get("customer_number").String(),
			AgentNumber:    obj.Get("agent_number").String(),
			StartTime:      obj.Get("start_time").String(),
			Raw:            raw,
		})
		return true
	})
	return page
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
