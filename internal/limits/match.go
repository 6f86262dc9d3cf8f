package limits

// Outcome is the tri-state result of evaluating a rule against a request.
// Defer is ordinary control flow, not an error: evaluation continues with
// the next candidate rule.
type Outcome int

const (
	// Matched: the rule applies to this request.
	Matched Outcome = iota
	// Deferred: the rule does not apply here; distinct from "applies with
	// zero remaining".
	Deferred
	// Denied: the rule applies and its governing bucket is exhausted.
	Denied
)

func (o Outcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case Deferred:
		return "deferred"
	case Denied:
		return "denied"
	}
	return "unknown"
}

// MatchPolicy selects the applicability predicate the matcher runs.
// The policy is configuration, not hard-wired logic.
type MatchPolicy string

const (
	// PolicyIdentity matches on the resolved principal and class alone.
	PolicyIdentity MatchPolicy = "identity"
	// PolicyAuthEndpoint additionally requires the request to have been
	// flagged as an authentication-relevant endpoint.
	PolicyAuthEndpoint MatchPolicy = "auth-endpoint"
)

// Request carries per-request resolution state through the pipeline.
// Earlier stages fill it; later stages read it. Never shared across requests.
type Request struct {
	// Principal is the resolved principal key ("user:ip").
	Principal string

	// Origin is the caller's origin IP.
	Origin string

	// Class is the resolved rate class. A value present before class
	// resolution is treated as authoritative (first write wins within
	// a request).
	Class string

	// AuthEndpoint marks the request as hitting an authentication-relevant
	// endpoint; only consulted under PolicyAuthEndpoint.
	AuthEndpoint bool

	// Params collects parameters attached by matching rules, consumed by
	// per-bucket URI expansion and downstream formatting.
	Params map[string]string
}

// Matcher decides per-rule applicability.
type Matcher struct {
	policy MatchPolicy
}

// NewMatcher creates a Matcher with the given policy.
// An empty policy defaults to PolicyIdentity.
func NewMatcher(policy MatchPolicy) *Matcher {
	if policy == "" {
		policy = PolicyIdentity
	}
	return &Matcher{policy: policy}
}

// Match evaluates one rule against the request state.
//
// The rule defers when the prior-stage markers are missing (no principal,
// no class, or no auth-endpoint flag under PolicyAuthEndpoint) and when the
// rule's class filter does not equal the resolved class. A rule without a
// class filter matches unconditionally. On match the request's parameter
// set is enriched with the principal key and origin for bucket expansion.
func (m *Matcher) Match(rule *Rule, req *Request) Outcome {
	if req.Principal == "" || req.Class == "" {
		return Deferred
	}
	if m.policy == PolicyAuthEndpoint && !req.AuthEndpoint {
		return Deferred
	}
	if rule.RateClass != "" && rule.RateClass != req.Class {
		return Deferred
	}

	if req.Params == nil {
		req.Params = make(map[string]string)
	}
	req.Params["userid"] = req.Principal
	if req.Origin != "" {
		req.Params["origin"] = req.Origin
	}
	return Matched
}
