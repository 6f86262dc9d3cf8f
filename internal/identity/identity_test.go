package identity

import (
	"context"
	"errors"
	"testing"
)

var ctx = context.Background()

func newTestDirectory() *StaticDirectory {
	return NewStaticDirectory(
		[]User{{ID: "42", Name: "alice"}},
		[]Token{{ID: "tok-alice", UserID: "42"}},
	)
}

func TestResolver_TokenPath(t *testing.T) {
	r := NewResolver(newTestDirectory(), nil)

	principal, err := r.Principal(ctx, Credentials{TokenID: "tok-alice"}, "10.0.0.1:53211")
	if err != nil {
		t.Fatalf("Principal() error = %v", err)
	}
	if principal != "42:10.0.0.1" {
		t.Errorf("Principal() = %q, want %q", principal, "42:10.0.0.1")
	}
}

func TestResolver_UnknownTokenDegradesToAnonymous(t *testing.T) {
	r := NewResolver(newTestDirectory(), nil)

	principal, err := r.Principal(ctx, Credentials{TokenID: "bad"}, "10.0.0.1:53211")
	if err != nil {
		t.Fatalf("Principal() error = %v", err)
	}
	if principal != AnonymousID+":10.0.0.1" {
		t.Errorf("Principal() = %q, want %q", principal, AnonymousID+":10.0.0.1")
	}
}

func TestResolver_CredentialPath(t *testing.T) {
	r := NewResolver(newTestDirectory(), nil)

	principal, err := r.Principal(ctx, Credentials{Username: "alice", Password: "secret"}, "10.0.0.2:1234")
	if err != nil {
		t.Fatalf("Principal() error = %v", err)
	}
	if principal != "42:10.0.0.2" {
		t.Errorf("Principal() = %q, want %q", principal, "42:10.0.0.2")
	}
}

func TestResolver_UnknownUsernameFallsBack(t *testing.T) {
	r := NewResolver(newTestDirectory(), nil)

	principal, err := r.Principal(ctx, Credentials{Username: "ghost"}, "10.0.0.3")
	if err != nil {
		t.Fatalf("Principal() error = %v", err)
	}
	if principal != "ghost:10.0.0.3" {
		t.Errorf("Principal() = %q, want %q", principal, "ghost:10.0.0.3")
	}
}

func TestResolver_NoCredentials(t *testing.T) {
	r := NewResolver(newTestDirectory(), nil)

	principal, err := r.Principal(ctx, Credentials{}, "10.0.0.4:999")
	if err != nil {
		t.Fatalf("Principal() error = %v", err)
	}
	if principal != AnonymousID+":10.0.0.4" {
		t.Errorf("Principal() = %q, want %q", principal, AnonymousID+":10.0.0.4")
	}
}

type failingDirectory struct{}

var errTransport = errors.New("connection refused")

func (failingDirectory) Token(context.Context, string) (Token, error) {
	return Token{}, errTransport
}

func (failingDirectory) UserByName(context.Context, string) (User, error) {
	return User{}, errTransport
}

func TestResolver_TransportErrorPropagates(t *testing.T) {
	r := NewResolver(failingDirectory{}, nil)

	_, err := r.Principal(ctx, Credentials{TokenID: "any"}, "10.0.0.1:1")
	if !errors.Is(err, errTransport) {
		t.Errorf("Principal() error = %v, want wrapped %v", err, errTransport)
	}

	_, err = r.Principal(ctx, Credentials{Username: "any"}, "10.0.0.1:1")
	if !errors.Is(err, errTransport) {
		t.Errorf("Principal() error = %v, want wrapped %v", err, errTransport)
	}
}

func TestOriginIP(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"10.0.0.1:53211", "10.0.0.1"},
		{"10.0.0.1", "10.0.0.1"},
		{"[::1]:8080", "::1"},
	}
	for _, tt := range tests {
		if got := OriginIP(tt.addr); got != tt.want {
			t.Errorf("OriginIP(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}
