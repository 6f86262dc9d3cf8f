package server

import (
	"context"
	"net/http"

	"github.com/quotagate/quotagate/internal/identity"
	"github.com/quotagate/quotagate/internal/limits"
)

type contextKey int

const stateKey contextKey = iota

// StateFrom returns the resolved request state attached by the Resolve
// middleware, or nil when resolution did not run or failed.
func StateFrom(ctx context.Context) *limits.Request {
	state, _ := ctx.Value(stateKey).(*limits.Request)
	return state
}

// Resolve wraps a handler with the identity and class resolution stages.
//
// The middleware fails open: if the store or directory is unavailable the
// request proceeds without quota state rather than being blocked, since
// over-blocking legitimate traffic is worse than an occasional unlimited
// request. Identity misses are absorbed inside the pipeline and never reach
// this layer.
func (s *Server) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := &limits.Request{}

		err := s.svc.Resolve(r.Context(), credentialsFrom(r), r.RemoteAddr, req)
		if err != nil {
			s.logger.Warn("resolution failed, failing open", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), stateKey, req)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// credentialsFrom extracts the authentication context: a token header when
// present, else basic-auth credentials.
func credentialsFrom(r *http.Request) identity.Credentials {
	if token := r.Header.Get("X-Auth-Token"); token != "" {
		return identity.Credentials{TokenID: token}
	}
	if username, password, ok := r.BasicAuth(); ok {
		return identity.Credentials{Username: username, Password: password}
	}
	return identity.Credentials{}
}
