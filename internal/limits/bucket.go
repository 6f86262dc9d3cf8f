package limits

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// BucketKeyPrefix namespaces bucket records in the store. A full key is
// "bucket:<rule-id>" optionally followed by "/" and url-encoded parameters.
const BucketKeyPrefix = "bucket:"

// Bucket is one live, externally counted quota bucket, decoded from the
// store. The counting engine owns its lifecycle; this package only reads.
type Bucket struct {
	// Remaining is the request count left in this bucket.
	Remaining int64

	// ExpiresAt is when the store will drop the bucket and the quota
	// replenishes.
	ExpiresAt time.Time

	// Params is the parameter dictionary embedded in the bucket key.
	// Empty for an unparameterized bucket.
	Params map[string]string
}

// bucketRecord is the msgpack wire form written by the counting engine.
type bucketRecord struct {
	Messages int64   `msgpack:"messages"`
	Expire   float64 `msgpack:"expire"` // unix seconds
}

// SplitBucketKey breaks a raw store key into the rule identity and the
// encoded parameter suffix. ok is false when the key is not in the bucket
// namespace.
func SplitBucketKey(key string) (ruleID, suffix string, ok bool) {
	rest, ok := strings.CutPrefix(key, BucketKeyPrefix)
	if !ok {
		return "", "", false
	}
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		return rest[:idx], rest[idx+1:], true
	}
	return rest, "", true
}

// DecodeBucket turns a raw key and payload into a Bucket. Any decode failure
// is an error for the caller to absorb: an undecodable record is treated as
// absent, never raised into the pipeline.
func DecodeBucket(key string, payload []byte) (Bucket, error) {
	_, suffix, ok := SplitBucketKey(key)
	if !ok {
		return Bucket{}, fmt.Errorf("key %q is not a bucket key", key)
	}

	params, err := decodeParams(suffix)
	if err != nil {
		return Bucket{}, fmt.Errorf("decode bucket key %q: %w", key, err)
	}

	var rec bucketRecord
	if err := msgpack.Unmarshal(payload, &rec); err != nil {
		return Bucket{}, fmt.Errorf("decode bucket payload for %q: %w", key, err)
	}

	return Bucket{
		Remaining: rec.Messages,
		ExpiresAt: time.Unix(0, int64(rec.Expire*float64(time.Second))),
		Params:    params,
	}, nil
}

// EncodeBucketPayload renders a bucket record in the engine's wire form.
// Used by tests and tooling that seed bucket state.
func EncodeBucketPayload(remaining int64, expiresAt time.Time) ([]byte, error) {
	return msgpack.Marshal(bucketRecord{
		Messages: remaining,
		Expire:   float64(expiresAt.UnixNano()) / float64(time.Second),
	})
}

// BucketKey builds the store key for a rule's bucket with the given
// parameters. Parameters are url-encoded and sorted by name.
func BucketKey(ruleID string, params map[string]string) string {
	key := BucketKeyPrefix + ruleID
	if len(params) == 0 {
		return key
	}
	vals := url.Values{}
	for k, v := range params {
		vals.Set(k, v)
	}
	return key + "/" + vals.Encode()
}

func decodeParams(suffix string) (map[string]string, error) {
	if suffix == "" {
		return map[string]string{}, nil
	}
	vals, err := url.ParseQuery(suffix)
	if err != nil {
		return nil, err
	}
	params := make(map[string]string, len(vals))
	for k, vs := range vals {
		if len(vs) > 0 {
			params[k] = vs[0]
		}
	}
	return params, nil
}
