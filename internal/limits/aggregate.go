package limits

import (
	"context"
	"fmt"

	"github.com/quotagate/quotagate/internal/metrics"
)

// Row is one caller-facing quota-status entry in the conventional
// "remaining/reset-time" limits shape. Transient, rebuilt on every query.
type Row struct {
	Verb      string `json:"verb"`
	URI       string `json:"URI"`
	Regex     string `json:"regex"`
	Value     int64  `json:"value"`
	Unit      string `json:"unit"`
	Remaining int64  `json:"remaining"`
	ResetTime int64  `json:"resetTime"` // unix seconds
}

// bucketIndex enumerates every live bucket key once and groups the keys by
// rule identity, so a multi-rule status query costs one store scan.
func (s *Service) bucketIndex(ctx context.Context) (map[string][]string, error) {
	keys, err := s.store.Keys(ctx, BucketKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("bucket scan: %w", err)
	}

	index := make(map[string][]string)
	for _, key := range keys {
		ruleID, _, ok := SplitBucketKey(key)
		if !ok {
			continue
		}
		index[ruleID] = append(index[ruleID], key)
	}
	return index, nil
}

// liveBuckets fetches and decodes the given bucket keys. A key whose payload
// expired between enumeration and fetch, or whose record does not decode, is
// skipped: it is absent from the aggregate, not counted as zero remaining.
func (s *Service) liveBuckets(ctx context.Context, keys []string) ([]Bucket, error) {
	var buckets []Bucket
	for _, key := range keys {
		payload, err := s.store.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("bucket fetch: %w", err)
		}
		if payload == nil {
			// Expired between scan and fetch.
			metrics.BucketSkipped()
			continue
		}

		bucket, err := DecodeBucket(key, payload)
		if err != nil {
			s.logger.Warn("skipping undecodable bucket", "key", key, "error", err)
			metrics.BucketSkipped()
			continue
		}
		metrics.BucketScanned()
		buckets = append(buckets, bucket)
	}
	return buckets, nil
}

// ruleRows aggregates the live buckets of one matched rule into status rows.
//
// The headline pair folds all buckets: the most restrictive bucket governs
// remaining (min), the latest-expiring bucket governs the reset time (max).
// With zero live buckets the full configured value is reported with a reset
// time of now. When more than one distinct bucket exists, one extra row per
// bucket is emitted with its parameter-substituted URI and its own counters,
// so callers that understand parameterized quotas see the detail while the
// rest still get one coherent summary row per verb.
func (s *Service) ruleRows(ctx context.Context, rule *Rule, keys []string, req *Request) ([]Row, error) {
	buckets, err := s.liveBuckets(ctx, keys)
	if err != nil {
		return nil, err
	}

	uri := rule.DisplayURI()
	unit := rule.DisplayUnit()

	remaining := rule.Value
	resetTime := s.clock.Now().Unix()
	if len(buckets) > 0 {
		remaining = buckets[0].Remaining
		resetTime = buckets[0].ExpiresAt.Unix()
		for _, b := range buckets[1:] {
			if b.Remaining < remaining {
				remaining = b.Remaining
			}
			if exp := b.ExpiresAt.Unix(); exp > resetTime {
				resetTime = exp
			}
		}
	}

	var rows []Row
	for _, verb := range rule.VerbList() {
		if len(buckets) > 1 {
			for _, b := range buckets {
				bucketURI := ExpandURI(uri, mergeParams(req.Params, b.Params))
				rows = append(rows, Row{
					Verb:      verb,
					URI:       bucketURI,
					Regex:     bucketURI,
					Value:     rule.Value,
					Unit:      unit,
					Remaining: b.Remaining,
					ResetTime: b.ExpiresAt.Unix(),
				})
			}
		}

		rows = append(rows, Row{
			Verb:      verb,
			URI:       uri,
			Regex:     uri,
			Value:     rule.Value,
			Unit:      unit,
			Remaining: remaining,
			ResetTime: resetTime,
		})
	}
	return rows, nil
}

// mergeParams overlays bucket-key parameters on the request's enrichment
// parameters; the bucket key wins on conflicts.
func mergeParams(reqParams, bucketParams map[string]string) map[string]string {
	merged := make(map[string]string, len(reqParams)+len(bucketParams))
	for k, v := range reqParams {
		merged[k] = v
	}
	for k, v := range bucketParams {
		merged[k] = v
	}
	return merged
}
