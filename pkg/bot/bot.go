package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/transcribersofreddit/torcore/internal/governance"
	"github.com/transcribersofreddit/torcore/pkg/config"
	"github.com/transcribersofreddit/torcore/pkg/heartbeat"
	"github.com/transcribersofreddit/torcore/pkg/logging"
	"github.com/transcribersofreddit/torcore/pkg/platform"
	"github.com/transcribersofreddit/torcore/pkg/policy"
	"github.com/transcribersofreddit/torcore/pkg/settings"
	"github.com/transcribersofreddit/torcore/pkg/storage"
)

// Primary targets: the bots post to the testing ground while debug_mode is
// set.
const (
	PrimarySubreddit = "transcribersofreddit"
	DebugSubreddit   = "tor_testing_ground"
)

// Options configures Build.
type Options struct {
	// Name identifies the bot account.
	Name string
	// FullName is used in status reports and crash messages. Defaults to Name.
	FullName string
	Version  string

	// Config is the bootstrap configuration. Defaults to config.Default().
	Config *config.Config
	// Client is the platform session. Required.
	Client platform.Client
	// Registry holds the admin command handlers.
	Registry *policy.Registry
	// Store overrides Config.Store.URL with an already connected store.
	// A store passed here is not closed by Close.
	Store   storage.Store
	Logger  *slog.Logger
	Metrics *heartbeat.Metrics
	Rand    *rand.Rand
	Retry   governance.RetryConfig
}

// state is one immutable snapshot of the settings.
type state struct {
	root     *settings.Cascade
	primary  string
	loadedAt time.Time
}

// Bot is a configured bot process.
type Bot struct {
	name    string
	version string
	cfg     *config.Config
	opts    Options
	client  platform.Client
	logger  *slog.Logger
	metrics *heartbeat.Metrics
	retry   governance.RetryConfig

	state atomic.Pointer[state]

	store     storage.Store
	ownsStore bool
	heartbeat *heartbeat.Server
	watcher   *config.SettingsWatcher
	watchDone chan struct{}
	closeOnce sync.Once
}

// Build verifies the settings tree, loads the root cascade and brings up
// the optional store, heartbeat server and settings watcher.
func Build(ctx context.Context, opts Options) (*Bot, error) {
	if opts.Client == nil {
		return nil, errors.New("bot: platform client is required")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = heartbeat.NewMetrics()
	}
	name := opts.FullName
	if name == "" {
		name = opts.Name
	}

	logging.Header(logger, "Starting!")

	if err := config.AssertValidDirectory(cfg.Settings.Path); err != nil {
		return nil, fmt.Errorf("cannot load settings: %w", err)
	}

	b := &Bot{
		name:    name,
		version: opts.Version,
		cfg:     cfg,
		opts:    opts,
		client:  opts.Client,
		logger:  logger.With("bot", name),
		metrics: metrics,
		retry:   opts.Retry,
	}

	st, err := b.load()
	if err != nil {
		return nil, err
	}
	b.state.Store(st)
	b.logger.Info("Settings loaded", "primary", st.primary, "path", cfg.Settings.Path)

	if err := b.startStore(ctx); err != nil {
		return nil, err
	}
	if err := b.startHeartbeat(ctx, st); err != nil {
		b.closeStore()
		return nil, err
	}
	if cfg.Settings.Watch {
		if err := b.startWatcher(); err != nil {
			_ = b.Close(ctx)
			return nil, err
		}
	}

	b.logger.Info("Bot built and initialized")
	return b, nil
}

func (b *Bot) load() (*state, error) {
	opts := []settings.Option{
		settings.WithBasePath(b.cfg.Settings.Path),
		settings.WithProtectedAttributes(b.cfg.Settings.ProtectedAttributes...),
		settings.WithRegistry(b.opts.Registry),
		settings.WithHandlerNamespace(b.cfg.Settings.HandlerNamespace),
	}
	if b.opts.Rand != nil {
		opts = append(opts, settings.WithRand(b.opts.Rand))
	}

	root, err := settings.New(opts...)
	if err != nil {
		return nil, err
	}

	debug, err := root.DebugMode()
	if err != nil {
		return nil, err
	}
	targets, err := root.Targets()
	if err != nil {
		return nil, err
	}
	b.logger.Info("Subreddit information loaded", "targets", len(targets), "debug_mode", debug)

	primary := PrimarySubreddit
	if debug {
		primary = DebugSubreddit
	}
	return &state{root: root, primary: primary, loadedAt: time.Now()}, nil
}

func (b *Bot) startStore(ctx context.Context) error {
	if b.opts.Store != nil {
		b.store = b.opts.Store
		return nil
	}
	if b.cfg.Store.URL == "" {
		return nil
	}
	store, err := storage.Connect(ctx, b.cfg.Store.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to store: %w", err)
	}
	b.store = store
	b.ownsStore = true
	return nil
}

func (b *Bot) startHeartbeat(ctx context.Context, st *state) error {
	if !b.cfg.Heartbeat.Enabled {
		return nil
	}
	if b.store == nil {
		return fmt.Errorf("heartbeat requires a store")
	}

	env := ""
	if e, err := st.root.Env(); err == nil {
		env = string(e)
	} else {
		b.logger.Warn("Environment unavailable for heartbeat", "error", err)
	}

	b.heartbeat = heartbeat.NewServer(heartbeat.Config{
		Name:        b.name,
		Version:     b.version,
		Environment: env,
		Host:        b.cfg.Heartbeat.Host,
		PortStart:   b.cfg.Heartbeat.PortStart,
		PortEnd:     b.cfg.Heartbeat.PortEnd,
	}, b.store, b.metrics, b.logger)

	if err := b.heartbeat.Start(ctx); err != nil {
		b.heartbeat = nil
		return fmt.Errorf("failed to start heartbeat: %w", err)
	}
	return nil
}

func (b *Bot) startWatcher() error {
	watcher, err := config.NewSettingsWatcher(b.cfg.Settings.Path, b.logger)
	if err != nil {
		return fmt.Errorf("failed to watch settings: %w", err)
	}
	b.watcher = watcher
	b.watchDone = make(chan struct{})

	changes := watcher.Subscribe()
	go func() {
		defer close(b.watchDone)
		for change := range changes {
			b.logger.Info("Settings changed, reloading", "path", change.Path)
			_ = b.Reload()
		}
	}()
	return nil
}

// Config returns the current root cascade.
func (b *Bot) Config() *settings.Cascade {
	return b.state.Load().root
}

// Target returns the current cascade for subreddit name.
func (b *Bot) Target(name string) (*settings.Cascade, error) {
	return b.Config().Subreddit(name)
}

// PrimaryName returns the subreddit the bot reports to.
func (b *Bot) PrimaryName() string {
	return b.state.Load().primary
}

// Primary returns the platform handle of the primary subreddit.
func (b *Bot) Primary() platform.Subreddit {
	return b.client.Subreddit(b.PrimaryName())
}

// LoadedAt returns when the current settings were loaded.
func (b *Bot) LoadedAt() time.Time {
	return b.state.Load().loadedAt
}

// Name returns the bot's display name.
func (b *Bot) Name() string {
	return b.name
}

// Store returns the shared store, or nil when none is configured.
func (b *Bot) Store() storage.Store {
	return b.store
}

// Heartbeat returns the heartbeat server, or nil when disabled.
func (b *Bot) Heartbeat() *heartbeat.Server {
	return b.heartbeat
}

// Reload rebuilds the cascade from disk and swaps it in. On failure the
// previous cascade stays current.
func (b *Bot) Reload() error {
	st, err := b.load()
	if err != nil {
		b.metrics.RecordReload("failure")
		b.logger.Error("Settings reload failed, keeping previous settings", "error", err)
		return err
	}
	b.state.Store(st)
	b.metrics.RecordReload("success")
	b.logger.Info("Settings reloaded", "primary", st.primary)
	return nil
}

// Close stops the watcher and heartbeat server and closes the store the
// bot opened itself.
func (b *Bot) Close(ctx context.Context) error {
	var errs []error
	b.closeOnce.Do(func() {
		if b.watcher != nil {
			errs = append(errs, b.watcher.Close())
			<-b.watchDone
		}
		if b.heartbeat != nil {
			errs = append(errs, b.heartbeat.Stop(ctx))
		}
		errs = append(errs, b.closeStore())
	})
	return errors.Join(errs...)
}

func (b *Bot) closeStore() error {
	if b.store == nil || !b.ownsStore {
		return nil
	}
	return b.store.Close()
}
