// Package limits implements the quota decision pipeline: class resolution,
// rule matching, and multi-bucket aggregation over an external bucket store.
package limits

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// DefaultVerbs is the verb list a rule covers when none is configured.
var DefaultVerbs = []string{"GET", "HEAD", "POST", "PUT", "DELETE"}

// UnknownUnit replaces a misconfigured (purely numeric) unit string
// in quota-status rows.
const UnknownUnit = "UNKNOWN"

// Rule is one configured limit. Immutable at request-processing time;
// loaded once per process lifetime.
type Rule struct {
	// ID is the stable rule identity used as the bucket-key namespace.
	ID uuid.UUID

	// URI is the route template the rule covers, possibly carrying a
	// version prefix that is stripped for matching and display.
	URI string

	// Verbs lists the HTTP methods the rule covers. Empty means DefaultVerbs.
	Verbs []string

	// Value and Unit give the quota magnitude and window, e.g. 10 / MINUTE.
	Value int64
	Unit  string

	// RateClass restricts the rule to requests resolved to that class.
	// Empty means the rule applies globally.
	RateClass string

	// Queries names the query parameters that shard this rule into
	// distinct buckets.
	Queries []string
}

// Validate checks a rule after configuration load.
func (r *Rule) Validate() error {
	if r.ID == uuid.Nil {
		return fmt.Errorf("rule %q: identity is required", r.URI)
	}
	if r.URI == "" || !strings.HasPrefix(r.URI, "/") {
		return fmt.Errorf("rule %s: uri must start with '/', got %q", r.ID, r.URI)
	}
	if r.Value <= 0 {
		return fmt.Errorf("rule %s: value must be positive, got %d", r.ID, r.Value)
	}
	return nil
}

// VerbList returns the configured verbs, or DefaultVerbs when none are set.
func (r *Rule) VerbList() []string {
	if len(r.Verbs) > 0 {
		return r.Verbs
	}
	return DefaultVerbs
}

// DisplayUnit returns the rule's unit upper-cased for display.
// A purely numeric unit is a misconfiguration and becomes UnknownUnit.
func (r *Rule) DisplayUnit() string {
	unit := strings.ToUpper(r.Unit)
	if unit != "" && isDigits(unit) {
		return UnknownUnit
	}
	return unit
}

// DisplayURI returns the version-normalized URI, extended with the rule's
// query parameter names as template placeholders, sorted for determinism:
// base?paramA={paramA}&paramB={paramB}.
func (r *Rule) DisplayURI() string {
	uri := NormalizeRoute(r.URI)
	if len(r.Queries) == 0 {
		return uri
	}

	queries := make([]string, len(r.Queries))
	copy(queries, r.Queries)
	sort.Strings(queries)

	pairs := make([]string, len(queries))
	for i, q := range queries {
		pairs[i] = q + "={" + q + "}"
	}
	return uri + "?" + strings.Join(pairs, "&")
}

// versionPrefix matches a leading API version segment followed by at least
// one more path segment. A URI that is only a version segment stays intact.
var versionPrefix = regexp.MustCompile(`^/v[0-9]+(?:\.[0-9]+)?(/.+)$`)

// NormalizeRoute strips a recognized version prefix from a URI template so
// that rules are version-agnostic: /v1.1/foo and /v2/foo both become /foo.
func NormalizeRoute(uri string) string {
	if m := versionPrefix.FindStringSubmatch(uri); m != nil {
		return m[1]
	}
	return uri
}

// placeholder matches {name} tokens in URI templates.
var placeholder = regexp.MustCompile(`\{([^{}]+)\}`)

// ExpandURI substitutes known params into {name} placeholders.
// Unknown placeholders pass through literally, so a partially parameterized
// bucket still renders a usable template.
func ExpandURI(template string, params map[string]string) string {
	return placeholder.ReplaceAllStringFunc(template, func(tok string) string {
		name := tok[1 : len(tok)-1]
		if val, ok := params[name]; ok {
			return val
		}
		return tok
	})
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
