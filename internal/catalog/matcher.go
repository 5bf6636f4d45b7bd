package catalog

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/Veraticus/winnow/internal/common"
	"github.com/Veraticus/winnow/internal/model"
	"github.com/Veraticus/winnow/internal/service"
	"github.com/soniakeys/unit"
)

// Options configures a Matcher.
type Options struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Now is the clock used for drift padding; nil means time.Now.
	Now func() time.Time
	// RateLimits holds queries-per-minute per catalog name.
	RateLimits map[string]int
	// Retry bounds the per-query retry behavior.
	Retry service.RetryOptions
	// MaxProperMotion is the drift allowance in arcsec/yr used to pad
	// search radii. Zero means DefaultMaxProperMotion.
	MaxProperMotion float64
}

// Matcher decides whether subjects are already known to reference catalogs.
// Results of remote queries are cached for the matcher's lifetime; each
// catalog service gets one shared rate limiter.
type Matcher struct {
	queriers map[string]Querier
	limiters map[string]*rateLimiter
	cache    *queryCache
	logger   *slog.Logger
	now      func() time.Time
	retry    service.RetryOptions
	maxPM    float64
}

// NewMatcher creates a Matcher over the given catalog clients.
func NewMatcher(queriers []Querier, opts Options) *Matcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	maxPM := opts.MaxProperMotion
	if maxPM <= 0 {
		maxPM = DefaultMaxProperMotion
	}

	m := &Matcher{
		queriers: make(map[string]Querier, len(queriers)),
		limiters: make(map[string]*rateLimiter, len(queriers)),
		cache:    newQueryCache(),
		logger:   logger,
		now:      now,
		retry:    opts.Retry,
		maxPM:    maxPM,
	}
	for _, q := range queriers {
		m.queriers[q.Name()] = q
		m.limiters[q.Name()] = newRateLimiter(opts.RateLimits[q.Name()])
	}
	return m
}

// Catalogs returns the configured catalog names, sorted.
func (m *Matcher) Catalogs() []string {
	names := make([]string, 0, len(m.queriers))
	for name := range m.queriers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SearchRadius returns the padded cone radius the matcher would use for a
// subject field of view against the named catalog.
func (m *Matcher) SearchRadius(catalog string, fovArcsec float64) (unit.Angle, error) {
	q, ok := m.queriers[catalog]
	if !ok {
		return 0, &common.ConfigurationError{Field: "catalog", Reason: "unknown catalog " + catalog}
	}
	return SearchRadius(fovArcsec, q.Epoch(), m.maxPM, m.now()), nil
}

// Match checks one subject against one catalog. A definite answer comes
// back as MatchFound or MatchNone. When retries are exhausted the match is
// returned with MatchUnknown alongside the final error, so batch sweeps can
// flag the subject for review and keep going.
func (m *Matcher) Match(ctx context.Context, subject model.Subject, catalog string) (model.CatalogMatch, error) {
	q, ok := m.queriers[catalog]
	if !ok {
		return model.CatalogMatch{}, &common.ConfigurationError{Field: "catalog", Reason: "unknown catalog " + catalog}
	}

	radius := SearchRadius(subject.FOV, q.Epoch(), m.maxPM, m.now())
	cone := Cone{RA: subject.RA, Dec: subject.Dec, Radius: radius}
	match := model.CatalogMatch{
		SubjectID:    subject.ID,
		Catalog:      q.Name(),
		Status:       model.MatchUnknown,
		RadiusArcsec: radius.Sec(),
		QueriedAt:    m.now(),
	}

	key := cacheKey(q, subject.RA, subject.Dec, subject.FOV)
	sources, hit := m.cache.get(key)
	if hit {
		m.logger.Debug("catalog cache hit",
			"catalog", q.Name(),
			"subject", subject.ID)
	} else {
		if err := m.limiters[q.Name()].wait(ctx); err != nil {
			return match, err
		}

		err := common.WithRetry(ctx, func() error {
			var qerr error
			sources, qerr = q.Search(ctx, cone)
			return qerr
		}, m.retry)
		if err != nil {
			m.logger.Warn("catalog query unresolved",
				"catalog", q.Name(),
				"subject", subject.ID,
				"error", err)
			return match, err
		}
		m.cache.set(key, sources)
	}

	match.Status = model.MatchNone
	for _, src := range sources {
		if !WithinRadius(cone, src) {
			continue
		}
		if q.Matches(src) {
			match.Status = model.MatchFound
			match.SourceID = src.ID
			break
		}
	}

	m.logger.Debug("catalog match evaluated",
		"catalog", q.Name(),
		"subject", subject.ID,
		"status", string(match.Status),
		"sources", len(sources),
		"radius_arcsec", match.RadiusArcsec)
	return match, nil
}

// CacheSize reports how many distinct queries the matcher has resolved.
func (m *Matcher) CacheSize() int {
	return m.cache.size()
}

// Close releases the per-service rate limiters.
func (m *Matcher) Close() {
	for _, rl := range m.limiters {
		rl.Close()
	}
}
