// Package identity maps an authenticated request principal to the store's user key.
package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/newthinker/stockwatch/internal/core"
)

type principalKey struct{}

// WithPrincipal returns a context carrying the authenticated principal (an e-mail).
func WithPrincipal(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, principalKey{}, email)
}

// PrincipalFrom extracts the principal placed by WithPrincipal.
func PrincipalFrom(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(principalKey{}).(string)
	if !ok || strings.TrimSpace(email) == "" {
		return "", false
	}
	return email, true
}

// Resolver yields the current user's store key.
type Resolver interface {
	Resolve(ctx context.Context) (string, error)
}

// Directory looks up store user keys by e-mail.
type Directory interface {
	Lookup(ctx context.Context, email string) (string, bool)
}

// StaticDirectory is a fixed e-mail -> user ID table. E-mails match case-insensitively.
type StaticDirectory struct {
	mu    sync.RWMutex
	users map[string]string
}

// NewStaticDirectory builds a directory from e-mail -> ID pairs.
func NewStaticDirectory(users map[string]string) *StaticDirectory {
	d := &StaticDirectory{users: make(map[string]string, len(users))}
	for email, id := range users {
		d.users[normalizeEmail(email)] = id
	}
	return d
}

// Add registers or replaces a mapping.
func (d *StaticDirectory) Add(email, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[normalizeEmail(email)] = id
}

// Lookup implements Directory.
func (d *StaticDirectory) Lookup(ctx context.Context, email string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.users[normalizeEmail(email)]
	return id, ok && id != ""
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SessionResolver resolves the principal in the request context through a Directory.
type SessionResolver struct {
	dir Directory
}

// NewSessionResolver creates a resolver backed by dir.
func NewSessionResolver(dir Directory) *SessionResolver {
	return &SessionResolver{dir: dir}
}

// Resolve returns core.ErrUnauthenticated when no principal is present or the
// principal has no user record.
func (r *SessionResolver) Resolve(ctx context.Context) (string, error) {
	email, ok := PrincipalFrom(ctx)
	if !ok {
		return "", core.ErrUnauthenticated
	}
	return r.Lookup(ctx, email)
}

// Lookup resolves an explicit e-mail, bypassing the request context.
func (r *SessionResolver) Lookup(ctx context.Context, email string) (string, error) {
	id, ok := r.dir.Lookup(ctx, email)
	if !ok {
		return "", core.WrapError(core.ErrUnauthenticated, fmt.Errorf("no user record for %s", email))
	}
	return id, nil
}

// Static always resolves to the same user. Used by the CLI, where the
// operator names the user explicitly.
type Static string

// Resolve implements Resolver.
func (s Static) Resolve(ctx context.Context) (string, error) {
	if s == "" {
		return "", core.ErrUnauthenticated
	}
	return string(s), nil
}
