// Package main is the entry point for the torcore binary.
// It provides an operator CLI for inspecting the bots' settings tree and
// for running a bot's heartbeat in dry-run mode.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/transcribersofreddit/torcore/pkg/bot"
	"github.com/transcribersofreddit/torcore/pkg/config"
	"github.com/transcribersofreddit/torcore/pkg/logging"
	"github.com/transcribersofreddit/torcore/pkg/platform"
	"github.com/transcribersofreddit/torcore/pkg/policy"
	"github.com/transcribersofreddit/torcore/pkg/settings"
	"github.com/transcribersofreddit/torcore/pkg/telemetry"
)

// version is set at build time.
var version = "dev"

// app carries the state shared by every subcommand.
type app struct {
	configPath   string
	settingsPath string
	logLevel     string

	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd creates the root command for torcore
func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	rootCmd := &cobra.Command{
		Use:   "torcore",
		Short: "Settings inspector for the Transcribers of Reddit bots",
		Long: `Inspect the settings tree the Transcribers of Reddit bots run on.

Every subcommand reads the tree fresh from disk, so it reports exactly what a
bot started now would see.

Example:
  torcore --settings-path /opt/configs filter i.redd.it --score 12 --subreddit pics`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to bootstrap configuration file (YAML)")
	rootCmd.PersistentFlags().StringVarP(&a.settingsPath, "settings-path", "s", "", "Root of the settings tree (overrides config and TOR_CONFIG_PATH)")
	rootCmd.PersistentFlags().StringVarP(&a.logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		a.envCmd(),
		a.subredditsCmd(),
		a.templateCmd(),
		a.filterCmd(),
		a.canCmd(),
		a.commandsCmd(),
		a.heartbeatCmd(),
	)
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.settingsPath != "" {
		cfg.Settings.Path = a.settingsPath
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
		if err := cfg.Logging.Validate(); err != nil {
			return err
		}
	}

	a.cfg = cfg
	a.logger = logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
		Output: cmd.ErrOrStderr(),
	})
	return nil
}

// cascade returns the root cascade, or the one for subreddit when set.
func (a *app) cascade(subreddit string) (*settings.Cascade, error) {
	root, err := settings.New(
		settings.WithBasePath(a.cfg.Settings.Path),
		settings.WithProtectedAttributes(a.cfg.Settings.ProtectedAttributes...),
		settings.WithHandlerNamespace(a.cfg.Settings.HandlerNamespace),
	)
	if err != nil {
		return nil, err
	}
	if subreddit == "" {
		return root, nil
	}
	return root.Subreddit(subreddit)
}

func (a *app) envCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Print the environment and moderators from globals.json",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			c, err := a.cascade("")
			if err != nil {
				return err
			}
			env, err := c.Env()
			if err != nil {
				return err
			}
			mods, err := c.Moderators()
			if err != nil {
				return err
			}
			debug, err := c.DebugMode()
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "environment: %s\n", env)
			fmt.Fprintf(a.out, "debug_mode: %t\n", debug)
			fmt.Fprintf(a.out, "moderators: %s\n", strings.Join(mods, ", "))
			return nil
		},
	}
}

func (a *app) subredditsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "subreddits",
		Short: "List the configured subreddits and their switches",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			c, err := a.cascade("")
			if err != nil {
				return err
			}
			targets, err := c.Targets()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tACTIVE\tUPVOTE_FILTER\tBYPASS_DOMAIN_FILTER\tNO_LINK_HEADER\tARCHIVE_DELAY")
			for _, t := range targets {
				fmt.Fprintf(w, "%s\t%t\t%g\t%t\t%t\t%s\n",
					t.Name, t.Active, t.UpvoteFilter, t.BypassDomainFilter, t.NoLinkHeader, t.ArchiveDelay)
			}
			return w.Flush()
		},
	}
}

func (a *app) templateCmd() *cobra.Command {
	var subreddit string
	cmd := &cobra.Command{
		Use:   "template <domain>",
		Short: "Print the category and template used for posts from a domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			c, err := a.cascade(subreddit)
			if err != nil {
				return err
			}
			resolver, err := c.Templates()
			if err != nil {
				return err
			}
			content, err := resolver.Content(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "category: %s\n", resolver.URLType(args[0]))
			fmt.Fprintf(a.out, "path: %s\n\n", resolver.Path(args[0]))
			fmt.Fprintln(a.out, content)
			return nil
		},
	}
	cmd.Flags().StringVar(&subreddit, "subreddit", "", "Evaluate with this subreddit's overrides")
	return cmd
}

func (a *app) filterCmd() *cobra.Command {
	var (
		subreddit string
		score     int
	)
	cmd := &cobra.Command{
		Use:   "filter <domain>",
		Short: "Check whether a post from a domain with a score passes the filters",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			c, err := a.cascade(subreddit)
			if err != nil {
				return err
			}
			filters, err := c.Filters()
			if err != nil {
				return err
			}

			urlOK := filters.URLAllowed(args[0])
			scoreOK := filters.ScoreAllowed(score)
			fmt.Fprintf(a.out, "%s: %s\n", c, policy.OutcomeOf(urlOK && scoreOK))
			fmt.Fprintf(a.out, "  domain %s: %s\n", args[0], policy.OutcomeOf(urlOK))
			fmt.Fprintf(a.out, "  score %d (threshold %g): %s\n", score, filters.Threshold(), policy.OutcomeOf(scoreOK))
			return nil
		},
	}
	cmd.Flags().StringVar(&subreddit, "subreddit", "", "Evaluate with this subreddit's overrides")
	cmd.Flags().IntVar(&score, "score", 0, "Post score")
	return cmd
}

func (a *app) canCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "can <command> <user>",
		Short: "Check whether a user may run an admin command",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			c, err := a.cascade("")
			if err != nil {
				return err
			}
			commands, err := c.Commands()
			if err != nil {
				return err
			}
			permission := commands.Allows(args[0]).ByUser(args[1])
			fmt.Fprintf(a.out, "%s by %s: %s\n", permission.Name(), args[1], policy.OutcomeOf(permission.Allowed()))
			return nil
		},
	}
}

func (a *app) commandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "List the admin commands and whether their handlers are built in",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			registry := policy.NewRegistry()
			if err := bot.RegisterBuiltins(registry, a.cfg.Settings.HandlerNamespace, nil); err != nil {
				return err
			}
			root, err := settings.New(
				settings.WithBasePath(a.cfg.Settings.Path),
				settings.WithRegistry(registry),
				settings.WithHandlerNamespace(a.cfg.Settings.HandlerNamespace),
			)
			if err != nil {
				return err
			}
			commands, err := root.Commands()
			if err != nil {
				return err
			}

			unregistered := make(map[string]bool)
			for _, name := range commands.Unregistered() {
				unregistered[name] = true
			}

			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tHANDLER\tBUILT_IN\tALLOWED_NAMES\tDESCRIPTION")
			for _, name := range commands.Names() {
				def := commands.Definition(name)
				handler := def.Handler
				if handler == "" {
					handler = policy.UndefinedOperationRef
				}
				fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n",
					name, handler, !unregistered[name], strings.Join(def.AllowedNames, ","), def.Description)
			}
			return w.Flush()
		},
	}
}

func (a *app) heartbeatCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "heartbeat",
		Short: "Run a dry-run bot that only serves its heartbeat",
		Long: `Run a bot against an in-memory platform client. It loads the settings,
serves /healthz, /status and /metrics, and reloads when the settings change.

The store defaults to memory:// when none is configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.runHeartbeat(ctx, interval)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", time.Minute, "How often the dry-run loop logs its state")
	return cmd
}

func (a *app) runHeartbeat(ctx context.Context, interval time.Duration) error {
	cfg := *a.cfg
	cfg.Heartbeat.Enabled = true
	if cfg.Store.URL == "" {
		cfg.Store.URL = "memory://"
	}

	shutdownTelemetry, err := telemetry.SetupProvider(ctx, telemetry.Config{
		ServiceName:    "torcore",
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			a.logger.Error("Telemetry shutdown error", "error", err)
		}
	}()

	client := platform.NewMemoryClient()
	client.AddSubreddit(bot.PrimarySubreddit)
	client.AddSubreddit(bot.DebugSubreddit)

	registry := policy.NewRegistry()
	b, err := bot.Build(ctx, bot.Options{
		Name:     "torcore",
		Version:  version,
		Config:   &cfg,
		Client:   client,
		Registry: registry,
		Logger:   a.logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := b.Close(closeCtx); err != nil {
			a.logger.Error("Shutdown error", "error", err)
		}
	}()

	if err := bot.RegisterBuiltins(registry, cfg.Settings.HandlerNamespace, b.Reload); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "heartbeat listening on %s\n", b.Heartbeat().Addr())

	return b.RunUntilDead(ctx, func(ctx context.Context, b *bot.Bot) error {
		a.logger.Info("Dry run alive", "primary", b.PrimaryName(), "loaded_at", b.LoadedAt())
		timer := time.NewTimer(interval)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}, nil)
}
