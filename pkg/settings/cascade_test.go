package settings

import (
	"context"
	"math/rand/v2"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transcribersofreddit/torcore/internal/testhelpers"
	"github.com/transcribersofreddit/torcore/pkg/domain"
	"github.com/transcribersofreddit/torcore/pkg/policy"
)

// scaffoldTree writes a minimal settings tree and returns its root.
func scaffoldTree(t *testing.T) string {
	t.Helper()
	base := t.TempDir()

	testhelpers.WriteJSON(t, filepath.Join(base, "bots", "settings.json"), map[string]any{
		"environment":   "testing",
		"debug_mode":    false,
		"upvote_filter": 0,
		"gifs": map[string]any{
			"no":        []any{"https://no.example.com/"},
			"thumbs_up": []any{"https://thumbs_up.example.com/"},
		},
		"filters": map[string]any{
			"domains": map[string]any{
				"images": []any{"i.com"},
				"video":  []any{},
				"audio":  []any{},
			},
		},
	})
	testhelpers.WriteJSON(t, filepath.Join(base, "bots", "subreddits.json"), map[string]any{
		"archive_time": map[string]any{"default_delay": 86400},
		"me_irl":       map[string]any{},
		"ProgrammingHumor": map[string]any{
			"upvote_filter":  100,
			"no_link_header": true,
			"archive_time":   3600,
		},
		"pics": map[string]any{
			"bypass_domain_filter": true,
			"active":               false,
			"gifs":                 map[string]any{"no": []any{"https://pics.example.com/no"}},
		},
	})
	testhelpers.WriteJSON(t, filepath.Join(base, "globals.json"), map[string]any{
		"environment": "testing",
		"moderators":  []any{"tor_mod"},
	})
	testhelpers.WriteJSON(t, filepath.Join(base, "commands.json"), map[string]any{
		"notAuthorizedResponses": []any{"Nope, sorry!"},
		"commands": map[string]any{
			"ping": map[string]any{
				"description":  "",
				"allowedNames": []any{"me"},
				"handler":      "ping",
			},
			"reload": map[string]any{
				"description": "",
				"handler":     "reload",
			},
		},
	})
	testhelpers.WriteFile(t, filepath.Join(base, "bots", "footer.md"), "\n^(I'm a bot)\n")

	for _, category := range testhelpers.TemplateCategories {
		testhelpers.WriteFile(t, filepath.Join(base, "templates", category, "base.md"), "default "+category+" content")
	}
	return base
}

func TestDefaultInit(t *testing.T) {
	base := scaffoldTree(t)

	c, err := New(WithBasePath(base))
	require.NoError(t, err)

	env, err := c.Env()
	require.NoError(t, err)
	assert.Equal(t, domain.EnvTesting, env)
	assert.Equal(t, DefaultName, c.Name())
	assert.Equal(t, "Default configuration", c.String())
	assert.Equal(t, base, c.BasePath())

	gifs, err := c.Gifs()
	require.NoError(t, err)
	assert.Equal(t, "https://no.example.com/", gifs.No())
	assert.Equal(t, "https://thumbs_up.example.com/", gifs.ThumbsUp())
	assert.Equal(t, []string{"no", "thumbs_up"}, gifs.Categories())

	subs, err := c.Subreddits()
	require.NoError(t, err)
	assert.Equal(t, []string{"ProgrammingHumor", "me_irl", "pics"}, subs)
}

func TestInitValidatesBasePath(t *testing.T) {
	_, err := New(WithBasePath(filepath.Join(t.TempDir(), "fizz", "buzz")))
	assert.ErrorIs(t, err, domain.ErrNotADirectory)
}

func TestInitWithSettingsSkipsFilesystem(t *testing.T) {
	c, err := New(WithBasePath("/fizz/buzz/does/not/exist"), WithSettings(domain.Document{"fizz": "buzz"}))
	require.NoError(t, err)

	doc, err := c.Settings()
	require.NoError(t, err)
	assert.Equal(t, "buzz", doc.StringAt("fizz", ""))
	assert.Equal(t, "/fizz/buzz/does/not/exist", c.BasePath())
}

func TestInitUsesEnvironmentBasePath(t *testing.T) {
	base := scaffoldTree(t)
	t.Setenv("TOR_CONFIG_PATH", base)

	c, err := New()
	require.NoError(t, err)
	assert.Equal(t, base, c.BasePath())
}

func TestSubredditFactory(t *testing.T) {
	base := scaffoldTree(t)
	root, err := New(WithBasePath(base))
	require.NoError(t, err)

	c, err := root.Subreddit("foo")
	require.NoError(t, err)

	assert.Equal(t, "foo", c.Name())
	assert.Equal(t, "/r/foo configuration", c.String())
	env, err := c.Env()
	require.NoError(t, err)
	assert.True(t, env.Valid())

	filters, err := c.Filters()
	require.NoError(t, err)
	assert.True(t, filters.URLAllowed("i.com"))
	assert.False(t, filters.URLAllowed("other.com"))
}

func TestSubredditOverridesAreShallow(t *testing.T) {
	base := scaffoldTree(t)
	root, err := New(WithBasePath(base))
	require.NoError(t, err)

	pics, err := root.Subreddit("pics")
	require.NoError(t, err)

	filters, err := pics.Filters()
	require.NoError(t, err)
	assert.True(t, filters.URLAllowed("other.com"))

	gifs, err := pics.Gifs()
	require.NoError(t, err)
	assert.Equal(t, "https://pics.example.com/no", gifs.No())
	assert.Empty(t, gifs.ThumbsUp(), "nested override replaces the whole gifs object")

	humor, err := root.Subreddit("ProgrammingHumor")
	require.NoError(t, err)
	humorFilters, err := humor.Filters()
	require.NoError(t, err)
	assert.False(t, humorFilters.ScoreAllowed(99))
	assert.True(t, humorFilters.ScoreAllowed(100))
}

func TestSubredditProtectedAttributes(t *testing.T) {
	base := scaffoldTree(t)
	root, err := New(WithBasePath(base), WithProtectedAttributes("gifs", "bypass_domain_filter"))
	require.NoError(t, err)

	pics, err := root.Subreddit("pics")
	require.NoError(t, err)

	gifs, err := pics.Gifs()
	require.NoError(t, err)
	assert.Equal(t, "https://no.example.com/", gifs.No())

	doc, err := pics.Settings()
	require.NoError(t, err)
	_, present := doc["bypass_domain_filter"]
	assert.False(t, present, "protected key missing from defaults is removed")
	assert.Equal(t, false, doc.BoolAt("active", true))
}

func TestSubredditMergeExample(t *testing.T) {
	base := t.TempDir()
	testhelpers.WriteJSON(t, filepath.Join(base, "bots", "settings.json"), map[string]any{"a": 1, "b": 2})
	testhelpers.WriteJSON(t, filepath.Join(base, "bots", "subreddits.json"), map[string]any{
		"X": map[string]any{"a": 100, "b": 3, "c": 4},
	})

	root, err := New(WithBasePath(base), WithProtectedAttributes("a"))
	require.NoError(t, err)
	x, err := root.Subreddit("X")
	require.NoError(t, err)

	doc, err := x.Settings()
	require.NoError(t, err)
	if diff := cmp.Diff(domain.Document{"a": 1.0, "b": 3.0, "c": 4.0}, doc); diff != "" {
		t.Errorf("merged settings mismatch (-want +got):\n%s", diff)
	}
}

func TestSubredditMissingFiles(t *testing.T) {
	c, err := New(WithBasePath(t.TempDir()))
	require.NoError(t, err)

	_, err = c.Subreddit("foo")
	assert.ErrorIs(t, err, domain.ErrFileNotFound)
}

func TestLazyViewsAreCached(t *testing.T) {
	base := scaffoldTree(t)
	c, err := New(WithBasePath(base))
	require.NoError(t, err)

	t1, err := c.Templates()
	require.NoError(t, err)
	t2, err := c.Templates()
	require.NoError(t, err)
	assert.Same(t, t1, t2)

	f1, err := c.Filters()
	require.NoError(t, err)
	f2, err := c.Filters()
	require.NoError(t, err)
	assert.Same(t, f1, f2)

	g1, err := c.Globals()
	require.NoError(t, err)

	// Edits after first access are not observed by this instance.
	testhelpers.WriteJSON(t, filepath.Join(base, "globals.json"), map[string]any{"moderators": []any{"someone_else"}})
	g2, err := c.Globals()
	require.NoError(t, err)
	assert.Same(t, g1, g2)
	assert.True(t, g2.IsModerator("tor_mod"))

	fresh, err := New(WithBasePath(base))
	require.NoError(t, err)
	g3, err := fresh.Globals()
	require.NoError(t, err)
	assert.False(t, g3.IsModerator("tor_mod"))
}

func TestFailedLoadIsRetried(t *testing.T) {
	base := t.TempDir()
	c, err := New(WithBasePath(base))
	require.NoError(t, err)

	_, err = c.Globals()
	require.ErrorIs(t, err, domain.ErrFileNotFound)

	testhelpers.WriteJSON(t, filepath.Join(base, "globals.json"), map[string]any{"environment": "production"})
	env, err := c.Env()
	require.NoError(t, err)
	assert.Equal(t, domain.EnvProduction, env)
}

func TestCommandsUseModeratorsAndRegistry(t *testing.T) {
	base := scaffoldTree(t)
	registry := policy.NewRegistry()
	registry.MustRegister("tor.admin", "ping", func(_ context.Context, author, _, _ string) (string, error) {
		return "pong " + author, nil
	})

	c, err := New(WithBasePath(base), WithRegistry(registry), WithHandlerNamespace("tor.admin"))
	require.NoError(t, err)

	commands, err := c.Commands()
	require.NoError(t, err)

	assert.True(t, commands.Allows("ping").ByUser("me").Allowed())
	assert.True(t, commands.Allows("reload").ByUser("tor_mod").Allowed())
	assert.False(t, commands.Allows("reload").ByUser("me").Allowed())
	assert.False(t, commands.Allows("nope").ByUser("tor_mod").Allowed())

	out, err := commands.Func("ping")(context.Background(), "me", "", "")
	require.NoError(t, err)
	assert.Equal(t, "pong me", out)

	_, err = commands.Func("reload")(context.Background(), "tor_mod", "", "")
	assert.ErrorIs(t, err, domain.ErrNotImplemented)

	no, err := commands.No()
	require.NoError(t, err)
	assert.Equal(t, "Nope, sorry!", no)
}

func TestGifsRerollEveryAccess(t *testing.T) {
	c, err := New(
		WithSettings(domain.Document{
			"gifs": map[string]any{"no": []any{"a", "b", "c", "d"}},
		}),
		WithRand(rand.New(rand.NewPCG(7, 11))),
	)
	require.NoError(t, err)

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		gifs, err := c.Gifs()
		require.NoError(t, err)
		require.Contains(t, []string{"a", "b", "c", "d"}, gifs.No())
		seen[gifs.No()] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestGifsErrors(t *testing.T) {
	c, err := New(WithSettings(domain.Document{}))
	require.NoError(t, err)
	_, err = c.Gifs()
	assert.ErrorIs(t, err, domain.ErrMissingKey)

	c, err = New(WithSettings(domain.Document{"gifs": map[string]any{"no": []any{}}}))
	require.NoError(t, err)
	_, err = c.Gifs()
	assert.ErrorIs(t, err, domain.ErrEmptySequence)
}

func TestTargets(t *testing.T) {
	base := scaffoldTree(t)
	c, err := New(WithBasePath(base))
	require.NoError(t, err)

	targets, err := c.Targets()
	require.NoError(t, err)

	want := []Target{
		{Name: "ProgrammingHumor", Active: true, UpvoteFilter: 100, NoLinkHeader: true, ArchiveDelay: time.Hour},
		{Name: "me_irl", Active: true, ArchiveDelay: 24 * time.Hour},
		{Name: "pics", Active: false, BypassDomainFilter: true, ArchiveDelay: 24 * time.Hour},
	}
	if diff := cmp.Diff(want, targets); diff != "" {
		t.Errorf("Targets() mismatch (-want +got):\n%s", diff)
	}
}

func TestNestedSubredditsLayout(t *testing.T) {
	base := t.TempDir()
	testhelpers.WriteJSON(t, filepath.Join(base, "bots", "settings.json"), map[string]any{"upvote_filter": 5})
	testhelpers.WriteJSON(t, filepath.Join(base, "bots", "subreddits.json"), map[string]any{
		"archive_time": map[string]any{"default_delay": 60},
		"subreddits": map[string]any{
			"nested": map[string]any{"upvote_filter": 50},
		},
	})

	root, err := New(WithBasePath(base))
	require.NoError(t, err)

	subs, err := root.Subreddits()
	require.NoError(t, err)
	assert.Equal(t, []string{"nested"}, subs)

	nested, err := root.Subreddit("nested")
	require.NoError(t, err)
	filters, err := nested.Filters()
	require.NoError(t, err)
	assert.Equal(t, 50.0, filters.Threshold())
}

func TestFooterAndDebugMode(t *testing.T) {
	base := scaffoldTree(t)
	c, err := New(WithBasePath(base))
	require.NoError(t, err)

	footer, err := c.Footer()
	require.NoError(t, err)
	assert.Equal(t, "^(I'm a bot)", footer)

	debug, err := c.DebugMode()
	require.NoError(t, err)
	assert.False(t, debug)

	mods, err := c.Moderators()
	require.NoError(t, err)
	assert.Equal(t, []string{"tor_mod"}, mods)
}

func TestTemplatesOverOwnSettings(t *testing.T) {
	base := scaffoldTree(t)
	c, err := New(WithBasePath(base), WithSettings(domain.Document{
		"filters": map[string]any{"domains": map[string]any{"video": []any{"v.com"}}},
	}))
	require.NoError(t, err)

	resolver, err := c.Templates()
	require.NoError(t, err)

	content, err := resolver.Content("v.com")
	require.NoError(t, err)
	assert.Equal(t, "default video content", content)
}
