// Package settings implements the configuration cascade: global defaults
// overlaid with per-subreddit overrides, and the typed views built from them.
//
// A Cascade is created once per configuration need and is immutable from the
// caller's point of view. Its views are computed on first access and cached
// for the lifetime of the instance; callers that need to observe edits to
// the settings tree build a new Cascade.
//
//	root, err := settings.New(settings.WithBasePath("/opt/configs"))
//	tor, err := root.Subreddit("TranscribersOfReddit")
//	filters, err := tor.Filters()
//	if filters.URLAllowed(post.Domain) { ... }
package settings

import (
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"sync"

	"github.com/transcribersofreddit/torcore/pkg/config"
	"github.com/transcribersofreddit/torcore/pkg/domain"
	"github.com/transcribersofreddit/torcore/pkg/policy"
	"github.com/transcribersofreddit/torcore/pkg/templates"
)

// DefaultName is the name of a cascade that is not scoped to a subreddit.
const DefaultName = "[default]"

// Settings tree layout, relative to the base path.
const (
	SettingsFile   = "bots/settings.json"
	SubredditsFile = "bots/subreddits.json"
	FooterFile     = "bots/footer.md"
	GlobalsFile    = "globals.json"
	CommandsFile   = "commands.json"
)

// Cascade is the entry point to the whole configuration set.
type Cascade struct {
	base      string
	name      string
	supplied  domain.Document
	protected []string
	registry  *policy.Registry
	namespace string
	rand      *lockedRand

	settings  lazy[domain.Document]
	templates lazy[*templates.Resolver]
	commands  lazy[*policy.CommandSet]
	globals   lazy[*GlobalSettings]
	filters   lazy[*policy.PostConstraintSet]
}

// Option configures a Cascade.
type Option func(*Cascade)

// WithBasePath sets the root of the settings tree. Defaults to
// TOR_CONFIG_PATH, or the working directory.
func WithBasePath(path string) Option {
	return func(c *Cascade) { c.base = path }
}

// WithSettings supplies the settings document directly. The base path is
// then neither validated nor used to load bots/settings.json.
func WithSettings(doc domain.Document) Option {
	return func(c *Cascade) { c.supplied = doc }
}

// WithProtectedAttributes lists settings keys that subreddit overrides may
// never change.
func WithProtectedAttributes(keys ...string) Option {
	return func(c *Cascade) { c.protected = append([]string(nil), keys...) }
}

// WithRegistry sets the admin command handler registry.
func WithRegistry(r *policy.Registry) Option {
	return func(c *Cascade) { c.registry = r }
}

// WithHandlerNamespace sets the registry namespace handler references are
// resolved in. Defaults to TOR_ADMIN_COMMAND_PKG, or admin_commands.
func WithHandlerNamespace(ns string) Option {
	return func(c *Cascade) { c.namespace = ns }
}

// WithRand sets the random source used for GIF and rejection message picks.
func WithRand(r *rand.Rand) Option {
	return func(c *Cascade) {
		if r != nil {
			c.rand = &lockedRand{r: r}
		}
	}
}

// New builds a Cascade. Unless a settings document is supplied, the base
// path must be an existing directory.
func New(opts ...Option) (*Cascade, error) {
	c := &Cascade{
		base:      config.DefaultSettingsPath(),
		name:      DefaultName,
		namespace: config.DefaultHandlerNamespaceFromEnv(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.supplied == nil {
		if err := config.AssertValidDirectory(c.base); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Subreddit overlays the overrides for name onto the global defaults and
// returns a new cascade scoped to it. Protected attributes keep their
// default values.
func (c *Cascade) Subreddit(name string) (*Cascade, error) {
	defaults, err := config.LoadJSON(c.path(SettingsFile))
	if err != nil {
		return nil, err
	}
	targets, err := config.LoadJSON(c.path(SubredditsFile))
	if err != nil {
		return nil, err
	}

	merged := domain.Merge(defaults, targetOverrides(targets).Child(name), c.protected)

	return &Cascade{
		base:      c.base,
		name:      name,
		supplied:  merged,
		protected: c.protected,
		registry:  c.registry,
		namespace: c.namespace,
		rand:      c.rand,
	}, nil
}

// Name returns the subreddit the cascade is scoped to, or DefaultName.
func (c *Cascade) Name() string {
	return c.name
}

// BasePath returns the root of the settings tree.
func (c *Cascade) BasePath() string {
	return c.base
}

func (c *Cascade) String() string {
	if c.name == DefaultName {
		return "Default configuration"
	}
	return fmt.Sprintf("/r/%s configuration", c.name)
}

func (c *Cascade) path(rel string) string {
	return filepath.Join(c.base, filepath.FromSlash(rel))
}

// Settings returns the bot settings for this cascade: the supplied or
// merged document, or bots/settings.json read on first access.
func (c *Cascade) Settings() (domain.Document, error) {
	return c.settings.get(func() (domain.Document, error) {
		if c.supplied != nil {
			return c.supplied, nil
		}
		return config.LoadJSON(c.path(SettingsFile))
	})
}

// Templates returns the template resolver over this cascade's settings.
func (c *Cascade) Templates() (*templates.Resolver, error) {
	return c.templates.get(func() (*templates.Resolver, error) {
		doc, err := c.Settings()
		if err != nil {
			return nil, err
		}
		return templates.NewResolver(c.base, doc), nil
	})
}

// Commands returns the admin command set loaded from commands.json.
// Moderator checks use this cascade's global settings.
func (c *Cascade) Commands() (*policy.CommandSet, error) {
	return c.commands.get(func() (*policy.CommandSet, error) {
		doc, err := config.LoadJSON(c.path(CommandsFile))
		if err != nil {
			return nil, err
		}
		globals, err := c.Globals()
		if err != nil {
			return nil, err
		}
		opts := []policy.CommandSetOption{
			policy.WithModerators(globals),
			policy.WithRegistry(c.registry, c.namespace),
		}
		if c.rand != nil {
			opts = append(opts, policy.WithRand(c.rand))
		}
		return policy.NewCommandSet(doc, opts...), nil
	})
}

// Globals returns the global settings loaded from globals.json.
func (c *Cascade) Globals() (*GlobalSettings, error) {
	return c.globals.get(func() (*GlobalSettings, error) {
		doc, err := config.LoadJSON(c.path(GlobalsFile))
		if err != nil {
			return nil, err
		}
		return NewGlobalSettings(doc), nil
	})
}

// Filters returns the post constraint set over this cascade's settings.
func (c *Cascade) Filters() (*policy.PostConstraintSet, error) {
	return c.filters.get(func() (*policy.PostConstraintSet, error) {
		doc, err := c.Settings()
		if err != nil {
			return nil, err
		}
		return policy.NewPostConstraintSet(doc), nil
	})
}

// Gifs picks a fresh random URL for every configured GIF category. Each
// call rolls again.
func (c *Cascade) Gifs() (Gifs, error) {
	doc, err := c.Settings()
	if err != nil {
		return nil, err
	}
	return pickGifs(doc, c.intN)
}

// Env returns the operating environment from the global settings.
func (c *Cascade) Env() (domain.Environment, error) {
	globals, err := c.Globals()
	if err != nil {
		return "", err
	}
	return globals.Environment(), nil
}

// Moderators returns the moderator list from the global settings.
func (c *Cascade) Moderators() ([]string, error) {
	globals, err := c.Globals()
	if err != nil {
		return nil, err
	}
	return globals.Moderators(), nil
}

// DebugMode reports the debug_mode flag of this cascade's settings.
func (c *Cascade) DebugMode() (bool, error) {
	doc, err := c.Settings()
	if err != nil {
		return false, err
	}
	return doc.BoolAt("debug_mode", false), nil
}

// Footer returns the trimmed bot footer from bots/footer.md. Read on every
// call.
func (c *Cascade) Footer() (string, error) {
	content, err := config.LoadFile(c.path(FooterFile))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

// Subreddits returns the configured subreddit names, sorted. Read on every
// call.
func (c *Cascade) Subreddits() ([]string, error) {
	doc, err := config.LoadJSON(c.path(SubredditsFile))
	if err != nil {
		return nil, err
	}
	return targetOverrides(doc).Keys(), nil
}

func (c *Cascade) intN(n int) int {
	if c.rand != nil {
		return c.rand.IntN(n)
	}
	return rand.IntN(n)
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}
