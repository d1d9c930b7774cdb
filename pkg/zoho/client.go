package zoho

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/missedcall/internal/resilience"
)

const (
	defaultBaseURL = "https://www.zohoapis.in/crm/v2"

	// ModuleLeads is the CRM module holding leads.
	ModuleLeads = "Leads"
	// ModuleDeals is the CRM module holding deals.
	ModuleDeals = "Deals"

	// MaxPhonesPerQuery keeps a criteria expression within the API's limit of
	// ten conditions: each number contributes a Phone and a Mobile condition.
	MaxPhonesPerQuery = 5
)

// Client searches CRM modules by phone number.
type Client interface {
	// Search returns the records of module whose Phone or Mobile equals any
	// of phones. Larger inputs are split into MaxPhonesPerQuery requests.
	// An empty result is not an error.
	Search(ctx context.Context, module string, phones []string, opts ...SearchOption) ([]Record, error)
}

// SearchOption configures a search request.
type SearchOption func(*searchOpts)

type searchOpts struct {
	sortBy    string
	sortOrder string
}

// SortByCreatedDesc asks for the most recently created records first.
func SortByCreatedDesc() SearchOption {
	return func(o *searchOpts) {
		o.sortBy = "Created_Time"
		o.sortOrder = "desc"
	}
}

// Option configures the CRM client.
type Option func(*httpClient)

// WithBaseURL sets a custom API base URL (for testing or another data center).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithRateLimit caps search requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// WithCircuitBreaker rejects searches fast while the CRM is failing.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *httpClient) {
		c.breaker = cb
	}
}

type httpClient struct {
	tokens  *TokenManager
	baseURL string
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
}

// NewClient creates a CRM client that authenticates through tokens.
func NewClient(tokens *TokenManager, opts ...Option) Client {
	c := &httpClient{
		tokens:  tokens,
		baseURL: defaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, module string, phones []string, opts ...SearchOption) ([]Record, error) {
	if len(phones) == 0 {
		return nil, nil
	}

	var out []Record
	for i := 0; i < len(phones); i += MaxPhonesPerQuery {
		chunk := phones[i:min(i+MaxPhonesPerQuery, len(phones))]
		recs, err := c.searchGuarded(ctx, module, chunk, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

func (c *httpClient) searchGuarded(ctx context.Context, module string, phones []string, opts []SearchOption) ([]Record, error) {
	if c.breaker == nil {
		return c.search(ctx, module, phones, opts)
	}
	return resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) ([]Record, error) {
		return c.search(ctx, module, phones, opts)
	})
}

func (c *httpClient) search(ctx context.Context, module string, phones []string, opts []SearchOption) ([]Record, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "zoho: rate limit")
		}
	}

	var so searchOpts
	for _, opt := range opts {
		opt(&so)
	}
	reqURL := c.baseURL + "/" + url.PathEscape(module) + "/search?" + searchQuery(phones, so).Encode()
	operation := "search " + module

	resp, err := c.tokens.Do(ctx, func(ctx context.Context, token string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Zoho-oauthtoken "+token)
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		if resilience.IsAuth(err) || resilience.IsUnauthorized(err) {
			return nil, err
		}
		return nil, resilience.NewProviderError("zoho", operation, 0, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewProviderError("zoho", operation, resp.StatusCode, eris.Wrap(err, "read body"))
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return parseRecords(body), nil
	case http.StatusNoContent:
		return nil, nil
	default:
		return nil, resilience.NewProviderError("zoho", operation, resp.StatusCode,
			eris.Errorf("unexpected response: %s", truncate(string(body), 200)))
	}
}

// searchQuery builds one criteria expression matching Phone or Mobile for
// every number. A single number uses the same shape as a batch so a number's
// result never depends on which batch it lands in.
func searchQuery(phones []string, so searchOpts) url.Values {
	parts := make([]string, 0, 2*len(phones))
	for _, p := range phones {
		e := escapeCriteria(p)
		parts = append(parts, fmt.Sprintf("(Phone:equals:%s)", e), fmt.Sprintf("(Mobile:equals:%s)", e))
	}
	q := url.Values{}
	q.Set("criteria", "("+strings.Join(parts, "or")+")")
	if so.sortBy != "" {
		q.Set("sort_by", so.sortBy)
		q.Set("sort_order", so.sortOrder)
	}
	q.Set("per_page", "200")
	return q
}

// escapeCriteria escapes the characters Zoho treats as criteria syntax.
func escapeCriteria(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`, ",", `\,`)
	return r.Replace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
