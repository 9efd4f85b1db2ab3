package policy

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/transcribersofreddit/torcore/pkg/domain"
)

// ModeratorChecker answers whether a username belongs to a moderator.
type ModeratorChecker interface {
	IsModerator(username string) bool
}

// RandSource picks an index in [0, n). *rand.Rand satisfies it.
type RandSource interface {
	IntN(n int) int
}

// CommandDefinition is one entry of the commands document.
type CommandDefinition struct {
	Description  string
	AllowedNames []string
	Handler      string

	empty bool
}

// Empty reports whether the definition is absent or has no fields. Empty
// definitions deny every caller.
func (d CommandDefinition) Empty() bool {
	return d.empty
}

// Allows reports whether username is on the explicit allow-list.
func (d CommandDefinition) Allows(username string) bool {
	for _, name := range d.AllowedNames {
		if name == username {
			return true
		}
	}
	return false
}

func parseDefinition(raw domain.Document) CommandDefinition {
	if len(raw) == 0 {
		return CommandDefinition{empty: true}
	}
	handler := raw.StringAt("handler", "")
	if handler == "" {
		handler = raw.StringAt("pythonFunction", "")
	}
	return CommandDefinition{
		Description:  raw.StringAt("description", ""),
		AllowedNames: raw.StringsAt("allowedNames"),
		Handler:      handler,
	}
}

// CommandSet answers questions about the admin commands document.
type CommandSet struct {
	settings   domain.Document
	moderators ModeratorChecker
	registry   *Registry
	namespace  string
	rand       RandSource
}

// CommandSetOption configures a CommandSet.
type CommandSetOption func(*CommandSet)

// WithModerators sets the moderator lookup used by ByUser.
func WithModerators(m ModeratorChecker) CommandSetOption {
	return func(c *CommandSet) { c.moderators = m }
}

// WithRegistry sets the handler registry and the namespace references are
// resolved in.
func WithRegistry(r *Registry, namespace string) CommandSetOption {
	return func(c *CommandSet) {
		c.registry = r
		c.namespace = namespace
	}
}

// WithRand sets the random source used by No. The source must be safe for
// the caller's concurrency; *rand.Rand is not.
func WithRand(r RandSource) CommandSetOption {
	return func(c *CommandSet) { c.rand = r }
}

// NewCommandSet wraps a decoded commands document.
func NewCommandSet(settings domain.Document, opts ...CommandSetOption) *CommandSet {
	if settings == nil {
		settings = domain.Document{}
	}
	c := &CommandSet{settings: settings}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CommandSet) commands() domain.Document {
	return c.settings.Child("commands")
}

// Definition returns the definition for name. Unknown names yield the empty
// definition.
func (c *CommandSet) Definition(name string) CommandDefinition {
	return parseDefinition(c.commands().Child(name))
}

// Names returns the configured command names, sorted.
func (c *CommandSet) Names() []string {
	return c.commands().Keys()
}

// Allows starts a permission chain for name.
func (c *CommandSet) Allows(name string) CommandPermission {
	return CommandPermission{
		name:       strings.ToLower(name),
		definition: c.Definition(name),
		moderators: c.moderators,
	}
}

// Func resolves the handler configured for name. It never fails: unknown
// commands and unregistered references resolve to UndefinedOperation.
func (c *CommandSet) Func(name string) AdminCommand {
	ref := c.Definition(name).Handler
	if ref == "" {
		ref = UndefinedOperationRef
	}
	if fn, ok := c.registry.Lookup(c.namespace, ref); ok {
		return fn
	}
	return UndefinedOperation
}

// No returns a random rejection message from notAuthorizedResponses.
func (c *CommandSet) No() (string, error) {
	responses := c.settings.StringsAt("notAuthorizedResponses")
	if len(responses) == 0 {
		return "", fmt.Errorf("notAuthorizedResponses: %w", domain.ErrEmptySequence)
	}
	return responses[c.intN(len(responses))], nil
}

func (c *CommandSet) intN(n int) int {
	if c.rand != nil {
		return c.rand.IntN(n)
	}
	return rand.IntN(n)
}

// Handlers returns the handler reference of every configured command,
// keyed by command name. Used by operators to spot unregistered handlers.
func (c *CommandSet) Handlers() map[string]string {
	out := make(map[string]string)
	for _, name := range c.Names() {
		out[name] = c.Definition(name).Handler
	}
	return out
}

// Unregistered returns the commands whose handler reference has no entry
// in the registry, sorted.
func (c *CommandSet) Unregistered() []string {
	var missing []string
	for name, ref := range c.Handlers() {
		if ref == "" {
			ref = UndefinedOperationRef
		}
		if _, ok := c.registry.Lookup(c.namespace, ref); !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}
