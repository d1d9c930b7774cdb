package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/missedcall/internal/cache"
	"github.com/sells-group/missedcall/internal/classify"
	"github.com/sells-group/missedcall/internal/config"
	"github.com/sells-group/missedcall/internal/ingest"
	"github.com/sells-group/missedcall/internal/resilience"
	"github.com/sells-group/missedcall/internal/store"
	"github.com/sells-group/missedcall/internal/stream"
	"github.com/sells-group/missedcall/pkg/telephony"
	"github.com/sells-group/missedcall/pkg/zoho"
)

// appEnv holds the process-wide pieces shared by every run: the outcome
// cache, the CRM circuit breaker, the marker store, and the call-log
// ingestor. Token managers are per run.
type appEnv struct {
	cfg      *config.Config
	Store    store.Store // nil when marking is disabled
	Cache    *cache.Cache
	Owners   *classify.OwnerRegistry
	Breaker  *resilience.CircuitBreaker
	Ingestor *ingest.Ingestor
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initApp validates credentials, opens the marker store, and builds the
// shared clients. Callers should defer env.Close().
func initApp(ctx context.Context, c *config.Config) (*appEnv, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	owners, err := classify.NewOwnerRegistry(c.Classify.OwnersFile)
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx, c.Store)
	if err != nil {
		return nil, err
	}
	if st != nil {
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate store")
		}
	}

	tel := telephony.NewClient(c.Telephony.BaseURL, c.Telephony.APIKey, c.Telephony.AuthToken,
		telephony.WithHTTPClient(&http.Client{Timeout: secs(c.Telephony.TimeoutSecs)}),
		telephony.WithRateLimit(c.Telephony.RateLimit),
	)

	ing := ingest.New(tel,
		ingest.WithLocation(ingest.LoadLocation(c.Telephony.Timezone)),
		ingest.WithPageSize(c.Telephony.PageSize),
		ingest.WithMaxConcurrentPages(c.Telephony.MaxConcurrentPages),
	)

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:             "zoho",
		FailureThreshold: c.Classify.CircuitFailureThreshold,
		ResetTimeout:     secs(c.Classify.CircuitResetSecs),
	})

	zap.L().Info("environment ready",
		zap.String("store", c.Store.Driver),
		zap.Int("owners", owners.Current().Len()),
		zap.String("timezone", ing.Location().String()),
	)

	return &appEnv{
		cfg:      c,
		Store:    st,
		Cache:    cache.New(),
		Owners:   owners,
		Breaker:  breaker,
		Ingestor: ing,
	}, nil
}

// NewPipeline builds one run's pipeline with its own token manager. A
// non-positive hoursBack uses the configured window.
func (e *appEnv) NewPipeline(hoursBack int) *stream.Pipeline {
	c := e.cfg
	tokens := zoho.NewTokenManager(zoho.Credentials{
		ClientID:     c.Zoho.ClientID,
		ClientSecret: c.Zoho.ClientSecret,
		RefreshToken: c.Zoho.RefreshToken,
	},
		zoho.WithTokenURL(c.Zoho.AccountsURL),
		zoho.WithTokenHTTPClient(&http.Client{Timeout: secs(c.Zoho.TimeoutSecs)}),
	)

	crm := zoho.NewClient(tokens,
		zoho.WithBaseURL(c.Zoho.APIBaseURL),
		zoho.WithRateLimit(c.Zoho.RateLimit),
		zoho.WithCircuitBreaker(e.Breaker),
	)

	if hoursBack <= 0 {
		hoursBack = c.Telephony.HoursBack
	}

	deps := stream.Deps{
		Tokens:     tokens,
		Candidates: e.Ingestor,
		Classifier: classify.New(crm, e.Cache,
			classify.WithBatchSize(c.Classify.BatchSize),
			classify.WithOwners(e.Owners.Current()),
		),
		Marker: e.Store,
	}

	return stream.New(deps, stream.Config{
		SliceSize: c.Stream.SliceSize,
		Pacing:    time.Duration(c.Stream.PacingMillis) * time.Millisecond,
		HoursBack: hoursBack,
	})
}

// sweepPass runs one background resolution over the sweep window. Results
// reach the marker store and cache; the summary itself is only logged.
func (e *appEnv) sweepPass(ctx context.Context) error {
	summary, err := e.NewPipeline(e.cfg.Sweep.HoursBack).Collect(ctx)
	if err != nil {
		return eris.Wrap(err, "sweep pass")
	}
	zap.L().Info("sweep summary",
		zap.Int("leads", len(summary.Leads)),
		zap.Int("plan_shipped", len(summary.PlanShipped)),
		zap.Int("consultation_done", len(summary.ConsultationDone)),
		zap.Int("unknown", len(summary.Unknown)),
		zap.String("error", summary.Error),
	)
	return nil
}

func initStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	switch sc.Driver {
	case "", "none":
		return nil, nil
	case "sqlite":
		dsn := sc.DatabaseURL
		if dsn == "" {
			dsn = "missedcall.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, sc.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", sc.Driver)
	}
}

func secs(n int) time.Duration {
	if n <= 0 {
		n = 20
	}
	return time.Duration(n) * time.Second
}
