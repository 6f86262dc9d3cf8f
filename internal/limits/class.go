package limits

import (
	"context"
	"fmt"

	"github.com/quotagate/quotagate/internal/metrics"
	"github.com/quotagate/quotagate/internal/store"
)

// ClassKeyPrefix namespaces principal→class mappings in the store.
const ClassKeyPrefix = "limit-class:"

// DefaultClass is the rate class assigned to previously unseen principals
// when no other default is configured.
const DefaultClass = "ip-class"

// ClassResolver maps principal keys to rate classes, lazily provisioning
// the default class on first contact.
type ClassResolver struct {
	store store.Store
	def   string
}

// NewClassResolver creates a ClassResolver over the given store.
// An empty defaultClass falls back to DefaultClass.
func NewClassResolver(st store.Store, defaultClass string) *ClassResolver {
	if defaultClass == "" {
		defaultClass = DefaultClass
	}
	return &ClassResolver{store: st, def: defaultClass}
}

// Default returns the configured default class name.
func (c *ClassResolver) Default() string {
	return c.def
}

// Resolve returns the rate class for a principal.
//
// A non-empty carried value (set by an earlier stage of the same request)
// is authoritative and returned unchanged without touching the store.
// Otherwise the mapping is read from the store; an absent mapping is
// materialized as the default class (write-on-read), so future lookups are
// single gets. Two concurrent first contacts may both write the default;
// the write is idempotent, so the race is harmless.
func (c *ClassResolver) Resolve(ctx context.Context, principal, carried string) (string, error) {
	if carried != "" {
		return carried, nil
	}

	key := ClassKeyPrefix + principal
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("class lookup for %q: %w", principal, err)
	}
	if raw != nil {
		return string(raw), nil
	}

	if err := c.store.Set(ctx, key, []byte(c.def), 0); err != nil {
		return "", fmt.Errorf("class provisioning for %q: %w", principal, err)
	}
	metrics.ClassProvisioned()
	return c.def, nil
}

// GetOrSet is the administrative lookup/override path. It returns the class
// the tenant had before the call. When newClass is non-empty and differs
// from the current one, the mapping is updated; setting the default class
// name deletes the override instead of storing a redundant explicit mapping.
func (c *ClassResolver) GetOrSet(ctx context.Context, tenant, newClass string) (string, error) {
	key := ClassKeyPrefix + tenant

	raw, err := c.store.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("class lookup for %q: %w", tenant, err)
	}
	previous := c.def
	if raw != nil {
		previous = string(raw)
	}

	if newClass == "" || newClass == previous {
		return previous, nil
	}

	if newClass == c.def {
		if err := c.store.Delete(ctx, key); err != nil {
			return "", fmt.Errorf("class reset for %q: %w", tenant, err)
		}
		return previous, nil
	}

	if err := c.store.Set(ctx, key, []byte(newClass), 0); err != nil {
		return "", fmt.Errorf("class override for %q: %w", tenant, err)
	}
	return previous, nil
}
