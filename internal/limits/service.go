package limits

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/quotagate/quotagate/internal/clock"
	"github.com/quotagate/quotagate/internal/identity"
	"github.com/quotagate/quotagate/internal/metrics"
	"github.com/quotagate/quotagate/internal/store"
)

// Config holds the dependencies for a Service.
type Config struct {
	Store        store.Store
	Directory    identity.Directory
	Rules        []*Rule
	DefaultClass string
	Policy       MatchPolicy
	Clock        clock.Clock
	Logger       *slog.Logger
}

// Service runs the quota decision pipeline for one process: identity →
// class → rule matching → aggregation. Requests are independent; the
// service holds no per-request state and is safe for concurrent use.
type Service struct {
	store   store.Store
	ids     *identity.Resolver
	classes *ClassResolver
	matcher *Matcher
	rules   []*Rule
	clock   clock.Clock
	logger  *slog.Logger
}

// NewService wires the pipeline. Zero-value dependencies get defaults
// (real clock, default logger, identity match policy).
func NewService(cfg Config) *Service {
	if cfg.Clock == nil {
		cfg.Clock = clock.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		store:   cfg.Store,
		ids:     identity.NewResolver(cfg.Directory, cfg.Logger),
		classes: NewClassResolver(cfg.Store, cfg.DefaultClass),
		matcher: NewMatcher(cfg.Policy),
		rules:   cfg.Rules,
		clock:   cfg.Clock,
		logger:  cfg.Logger,
	}
}

// Rules returns the configured rule set.
func (s *Service) Rules() []*Rule {
	return s.rules
}

// Classes exposes the class resolver, for the administrative path.
func (s *Service) Classes() *ClassResolver {
	return s.classes
}

// Resolve runs the identity and class stages and attaches the results to
// the request state. Identity misses degrade inside the resolver; a class
// already carried on the state is authoritative. Only store or directory
// transport failures return an error.
func (s *Service) Resolve(ctx context.Context, creds identity.Credentials, remoteAddr string, req *Request) error {
	principal, err := s.ids.Principal(ctx, creds, remoteAddr)
	if err != nil {
		metrics.ObserveResolution(false)
		return err
	}
	req.Principal = principal
	req.Origin = identity.OriginIP(remoteAddr)

	class, err := s.classes.Resolve(ctx, principal, req.Class)
	if err != nil {
		metrics.ObserveResolution(false)
		return err
	}
	req.Class = class

	metrics.ObserveResolution(true)
	s.logger.Debug("request resolved", "principal", principal, "class", class)
	return nil
}

// Status assembles the quota-status report for a resolved request: one row
// set per configured rule that matches, rules that defer contribute nothing.
func (s *Service) Status(ctx context.Context, req *Request) ([]Row, error) {
	start := time.Now()
	defer func() {
		metrics.ObserveStatusDuration(time.Since(start))
	}()

	index, err := s.bucketIndex(ctx)
	if err != nil {
		return nil, err
	}

	var rows []Row
	for _, rule := range s.rules {
		outcome := s.matcher.Match(rule, req)
		metrics.RuleMatch(outcome.String())
		if outcome != Matched {
			continue
		}

		ruleRows, err := s.ruleRows(ctx, rule, index[rule.ID.String()], req)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
		}
		rows = append(rows, ruleRows...)
	}
	return rows, nil
}

// Enforce evaluates one rule for enforcement. A matched rule whose
// governing (most restrictive) live bucket is exhausted yields Denied along
// with that bucket, so the caller can format a retry-after delay.
func (s *Service) Enforce(ctx context.Context, rule *Rule, req *Request) (Outcome, Bucket, error) {
	outcome := s.matcher.Match(rule, req)
	if outcome != Matched {
		metrics.RuleMatch(outcome.String())
		return outcome, Bucket{}, nil
	}

	keys, err := s.store.Keys(ctx, BucketKeyPrefix+rule.ID.String())
	if err != nil {
		return Deferred, Bucket{}, fmt.Errorf("rule %s: bucket scan: %w", rule.ID, err)
	}
	buckets, err := s.liveBuckets(ctx, keys)
	if err != nil {
		return Deferred, Bucket{}, fmt.Errorf("rule %s: %w", rule.ID, err)
	}

	if len(buckets) > 0 {
		governing := buckets[0]
		for _, b := range buckets[1:] {
			if b.Remaining < governing.Remaining {
				governing = b
			}
		}
		if OverLimit(governing) {
			metrics.RuleMatch(Denied.String())
			return Denied, governing, nil
		}
	}

	metrics.RuleMatch(Matched.String())
	return Matched, Bucket{}, nil
}

// OverLimit reports whether a bucket has no requests left.
func OverLimit(b Bucket) bool {
	return b.Remaining <= 0
}

// RetryAfter returns the whole seconds until the governing bucket's expiry,
// rounded up, never negative. This is the Retry-After delay for an
// over-limit response.
func RetryAfter(b Bucket, now time.Time) time.Duration {
	delay := b.ExpiresAt.Sub(now)
	secs := int64(math.Ceil(delay.Seconds()))
	if secs < 0 {
		secs = 0
	}
	return time.Duration(secs) * time.Second
}
