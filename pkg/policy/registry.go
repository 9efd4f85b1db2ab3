package policy

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/transcribersofreddit/torcore/pkg/domain"
)

// UndefinedOperationRef is the handler reference used when a command does
// not name one.
const UndefinedOperationRef = "undefined_operation"

// AdminCommand handles an administrator command. It receives the author's
// username, the message body and the message identifier, and returns the
// reply to send.
type AdminCommand func(ctx context.Context, author, body, messageID string) (string, error)

// UndefinedOperation is returned for commands without a resolvable handler.
// Resolution succeeds so the authorization check can deny first; invoking it
// fails with domain.ErrNotImplemented.
func UndefinedOperation(_ context.Context, _, _, _ string) (string, error) {
	return "", domain.ErrNotImplemented
}

// Registry maps handler references to function values. It is populated
// once during process start, before any command is resolved.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]map[string]AdminCommand
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]map[string]AdminCommand)}
}

// Register binds ref to fn within namespace. Registering the same reference
// twice is an error.
func (r *Registry) Register(namespace, ref string, fn AdminCommand) error {
	if fn == nil {
		return fmt.Errorf("handler %s.%s is nil", namespace, ref)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ns, ok := r.handlers[namespace]
	if !ok {
		ns = make(map[string]AdminCommand)
		r.handlers[namespace] = ns
	}
	if _, exists := ns[ref]; exists {
		return fmt.Errorf("handler %s.%s already registered", namespace, ref)
	}
	ns[ref] = fn
	return nil
}

// MustRegister is like Register but panics on error. Intended for init-time
// wiring.
func (r *Registry) MustRegister(namespace, ref string, fn AdminCommand) {
	if err := r.Register(namespace, ref, fn); err != nil {
		panic(err)
	}
}

// Lookup returns the handler bound to ref within namespace.
func (r *Registry) Lookup(namespace, ref string) (AdminCommand, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.handlers[namespace][ref]
	return fn, ok
}

// Refs returns the references registered in namespace, sorted.
func (r *Registry) Refs(namespace string) []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	refs := make([]string, 0, len(r.handlers[namespace]))
	for ref := range r.handlers[namespace] {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}
