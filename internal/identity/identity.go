// Package identity resolves authenticated requests to a stable principal key.
//
// The principal key is the unit of quota accounting: "<user_id>:<origin_ip>".
// Lookups go through the Directory port; a production deployment backs it
// with the real identity service, tests and the bundled server use a static
// fixture. Lookup misses never abort the pipeline — identity degrades to a
// sentinel instead.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
)

// AnonymousID is the user id used when no identity can be resolved.
// A missing or invalid token must never block the quota pipeline.
const AnonymousID = "<NONE>"

// ErrNotFound reports that a token or user does not exist in the directory.
// It is a recoverable condition, distinct from transport failures.
var ErrNotFound = errors.New("identity: not found")

// User is a directory user record.
type User struct {
	ID   string
	Name string
}

// Token is an issued authentication token and the user it belongs to.
type Token struct {
	ID     string
	UserID string
}

// Directory is the read-only port onto the identity service.
type Directory interface {
	// Token looks up an issued token by id. Returns ErrNotFound if the
	// token does not exist or has been revoked.
	Token(ctx context.Context, id string) (Token, error)

	// UserByName looks up a user by login name. Returns ErrNotFound if
	// no such user exists.
	UserByName(ctx context.Context, name string) (User, error)
}

// Credentials is the authentication context extracted from a request.
// TokenID takes precedence over password-style credentials.
type Credentials struct {
	TokenID  string
	Username string
	Password string
}

// Resolver derives principal keys from request credentials.
type Resolver struct {
	dir    Directory
	logger *slog.Logger
}

// NewResolver creates a Resolver over the given directory.
func NewResolver(dir Directory, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{dir: dir, logger: logger}
}

// Principal resolves credentials and a remote address to a principal key.
//
// Token path: an unknown token degrades to AnonymousID. Credential path: an
// unknown username falls back to the raw username, since some directory
// backends alias username and id. Only transport-level directory failures
// return an error.
func (r *Resolver) Principal(ctx context.Context, creds Credentials, remoteAddr string) (string, error) {
	userID, err := r.userID(ctx, creds)
	if err != nil {
		return "", err
	}

	origin := OriginIP(remoteAddr)
	r.logger.Debug("resolved principal", "user_id", userID, "origin", origin)

	return userID + ":" + origin, nil
}

func (r *Resolver) userID(ctx context.Context, creds Credentials) (string, error) {
	switch {
	case creds.TokenID != "":
		tok, err := r.dir.Token(ctx, creds.TokenID)
		if errors.Is(err, ErrNotFound) {
			r.logger.Info("token not found, degrading to anonymous", "token_id", creds.TokenID)
			return AnonymousID, nil
		}
		if err != nil {
			return "", fmt.Errorf("token lookup: %w", err)
		}
		return tok.UserID, nil

	case creds.Username != "":
		user, err := r.dir.UserByName(ctx, creds.Username)
		if errors.Is(err, ErrNotFound) {
			// Some backends use the username as the id.
			return creds.Username, nil
		}
		if err != nil {
			return "", fmt.Errorf("user lookup: %w", err)
		}
		return user.ID, nil

	default:
		return AnonymousID, nil
	}
}

// OriginIP extracts the origin IP from a request's remote address,
// stripping the port when one is present.
func OriginIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
