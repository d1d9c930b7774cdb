// Package classify resolves phone numbers to a single CRM outcome: a lead, a
// deal stage, or unknown.
package classify

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/missedcall/internal/cache"
	"github.com/sells-group/missedcall/internal/model"
	"github.com/sells-group/missedcall/pkg/zoho"
)

// DefaultBatchSize is the number of phones per CRM search: one request
// per batch, since each phone adds two criteria conditions.
const DefaultBatchSize = zoho.MaxPhonesPerQuery

// Classifier queries Leads then Deals for phones not already cached.
type Classifier struct {
	crm       zoho.Client
	cache     *cache.Cache
	owners    *OwnerDirectory
	batchSize int
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithBatchSize sets the number of phones per CRM search.
func WithBatchSize(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithOwners sets the owner directory used for lead attribution.
func WithOwners(d *OwnerDirectory) Option {
	return func(c *Classifier) {
		if d != nil {
			c.owners = d
		}
	}
}

// New creates a Classifier. The cache is shared with other runs in the process.
func New(crm zoho.Client, c *cache.Cache, opts ...Option) *Classifier {
	cl := &Classifier{
		crm:       crm,
		cache:     c,
		owners:    DefaultOwnerDirectory(),
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

// Classify returns exactly one outcome per distinct input phone. Cached
// phones are never re-queried. A failed batch degrades its phones to Unknown
// without caching them; the remaining batches still run.
func (c *Classifier) Classify(ctx context.Context, phones []string) map[string]model.Outcome {
	out, misses := c.cache.Partition(unique(phones))
	if len(misses) == 0 {
		return out
	}

	log := zap.L().With(zap.Int("phone_count", len(misses)), zap.Int("cached", len(out)))
	log.Debug("classify: querying crm")

	for i := 0; i < len(misses); i += c.batchSize {
		end := min(i+c.batchSize, len(misses))
		c.classifyBatch(ctx, i/c.batchSize, misses[i:end], out)
	}
	return out
}

func (c *Classifier) classifyBatch(ctx context.Context, idx int, batch []string, out map[string]model.Outcome) {
	log := zap.L().With(zap.Int("batch", idx), zap.Int("batch_size", len(batch)))

	leads, err := c.crm.Search(ctx, zoho.ModuleLeads, batch)
	if err != nil {
		log.Warn("classify: lead search failed, batch degraded to unknown", zap.Error(err))
		degrade(batch, out)
		return
	}

	matcher := newPhoneMatcher(batch)
	matched := make(map[string]bool, len(batch))
	for _, rec := range leads {
		for _, phone := range matcher.match(rec) {
			if matched[phone] {
				continue
			}
			matched[phone] = true
			name := rec.FullName
			if name == "" {
				name = "Unknown"
			}
			log.Debug("classify: lead matched", zap.String("phone", phone), zap.String("lead_id", rec.ID))
			c.settle(phone, model.Lead(name, c.owners.Name(rec.OwnerID)), out)
		}
	}

	var remaining []string
	for _, phone := range batch {
		if !matched[phone] {
			remaining = append(remaining, phone)
		}
	}
	if len(remaining) == 0 {
		return
	}

	deals, err := c.crm.Search(ctx, zoho.ModuleDeals, remaining, zoho.SortByCreatedDesc())
	if err != nil {
		log.Warn("classify: deal search failed, remaining phones degraded to unknown",
			zap.Int("remaining", len(remaining)), zap.Error(err))
		degrade(remaining, out)
		return
	}

	// The server sort is requested but not trusted. Undated records sort last.
	sort.SliceStable(deals, func(i, j int) bool {
		return deals[i].CreatedTime.After(deals[j].CreatedTime)
	})

	matcher = newPhoneMatcher(remaining)
	for _, rec := range deals {
		for _, phone := range matcher.match(rec) {
			if matched[phone] {
				continue
			}
			matched[phone] = true
			if o, ok := dealOutcome(rec); ok {
				c.settle(phone, o, out)
				continue
			}
			log.Debug("classify: latest deal stage not classified",
				zap.String("phone", phone), zap.String("deal_id", rec.ID), zap.String("stage", rec.Stage))
			out[phone] = model.Unknown()
		}
	}

	// Both searches succeeded and found nothing: a settled Unknown.
	for _, phone := range remaining {
		if !matched[phone] {
			c.settle(phone, model.Unknown(), out)
		}
	}
}

func (c *Classifier) settle(phone string, o model.Outcome, out map[string]model.Outcome) {
	out[phone] = o
	c.cache.Store(phone, o)
}

func degrade(phones []string, out map[string]model.Outcome) {
	for _, p := range phones {
		out[p] = model.Unknown()
	}
}

func unique(phones []string) []string {
	seen := make(map[string]bool, len(phones))
	out := make([]string, 0, len(phones))
	for _, p := range phones {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
