package policy

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transcribersofreddit/torcore/pkg/domain"
)

const testNamespace = "noop_commands"

type moderatorList []string

func (m moderatorList) IsModerator(username string) bool {
	for _, name := range m {
		if name == username {
			return true
		}
	}
	return false
}

func reply(s string) AdminCommand {
	return func(context.Context, string, string, string) (string, error) {
		return s, nil
	}
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	for _, name := range []string{"blacklist", "ping", "reload", "somerandomcommand", "update"} {
		require.NoError(t, r.Register(testNamespace, "noop_commands."+name, reply(name)))
	}
	return r
}

func testCommandSet(t *testing.T, opts ...CommandSetOption) *CommandSet {
	t.Helper()
	settings := domain.Document{
		"notAuthorizedResponses": []any{"Nope, sorry!"},
		"commands": map[string]any{
			"blacklist": map[string]any{
				"description":    "",
				"allowedNames":   []any{},
				"pythonFunction": "noop_commands.blacklist",
			},
			"ping": map[string]any{
				"description":  "",
				"allowedNames": []any{"me"},
				"handler":      "noop_commands.ping",
			},
			"reload": map[string]any{
				"description":    "",
				"allowedNames":   []any{},
				"pythonFunction": "noop_commands.reload",
			},
			"update": map[string]any{
				"description":    "",
				"pythonFunction": "noop_commands.update",
			},
			"unwired": map[string]any{
				"description": "no handler configured",
			},
			"empty": map[string]any{},
		},
	}
	base := []CommandSetOption{
		WithModerators(moderatorList{"tor_mod"}),
		WithRegistry(testRegistry(t), testNamespace),
	}
	return NewCommandSet(settings, append(base, opts...)...)
}

func TestNoSuchCommand(t *testing.T) {
	commands := testCommandSet(t)

	assert.False(t, commands.Allows("somerandomcommand").ByUser("me").Allowed())
	assert.False(t, commands.Allows("somerandomcommand").ByUser("tor_mod").Allowed())

	_, err := commands.Func("somerandomcommand")(context.Background(), "", "", "")
	assert.ErrorIs(t, err, domain.ErrNotImplemented)
}

func TestEmptyDefinitionDeniesModerators(t *testing.T) {
	commands := testCommandSet(t)
	assert.False(t, commands.Allows("empty").ByUser("tor_mod").Allowed())
}

func TestNotAuthorized(t *testing.T) {
	commands := testCommandSet(t)

	assert.False(t, commands.Allows("reload").ByUser("me").Allowed())
	assert.True(t, commands.Allows("reload").ByUser("tor_mod").Allowed())

	out, err := commands.Func("reload")(context.Background(), "", "", "")
	require.NoError(t, err)
	assert.Equal(t, "reload", out)
}

func TestNoUsersDefined(t *testing.T) {
	commands := testCommandSet(t)

	assert.False(t, commands.Allows("update").ByUser("me").Allowed())
	assert.True(t, commands.Allows("update").ByUser("tor_mod").Allowed())
	assert.Empty(t, commands.Definition("update").AllowedNames)

	out, err := commands.Func("update")(context.Background(), "", "", "")
	require.NoError(t, err)
	assert.Equal(t, "update", out)
}

func TestUserIsAllowed(t *testing.T) {
	commands := testCommandSet(t)

	assert.True(t, commands.Allows("ping").ByUser("me").Allowed())
	assert.True(t, commands.Allows("ping").ByUser("tor_mod").Allowed())
	assert.False(t, commands.Allows("ping").ByUser("ME").Allowed())

	out, err := commands.Func("ping")(context.Background(), "", "", "")
	require.NoError(t, err)
	assert.Equal(t, "ping", out)
}

func TestFuncWithoutHandlerReference(t *testing.T) {
	commands := testCommandSet(t)

	_, err := commands.Func("unwired")(context.Background(), "me", "", "t4_1")
	assert.ErrorIs(t, err, domain.ErrNotImplemented)
}

func TestFuncUsesConfiguredNamespace(t *testing.T) {
	commands := testCommandSet(t, WithRegistry(testRegistry(t), "other_namespace"))

	_, err := commands.Func("ping")(context.Background(), "", "", "")
	assert.ErrorIs(t, err, domain.ErrNotImplemented)
}

func TestFuncWithoutRegistry(t *testing.T) {
	commands := NewCommandSet(domain.Document{
		"commands": map[string]any{"ping": map[string]any{"handler": "x"}},
	})

	_, err := commands.Func("ping")(context.Background(), "", "", "")
	assert.ErrorIs(t, err, domain.ErrNotImplemented)
}

func TestNo(t *testing.T) {
	commands := testCommandSet(t)

	msg, err := commands.No()
	require.NoError(t, err)
	assert.Equal(t, "Nope, sorry!", msg)
}

func TestNoPicksFromAllResponses(t *testing.T) {
	commands := NewCommandSet(domain.Document{
		"notAuthorizedResponses": []any{"no", "nope", "nah"},
	}, WithRand(rand.New(rand.NewPCG(1, 2))))

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		msg, err := commands.No()
		require.NoError(t, err)
		seen[msg] = true
	}
	assert.Equal(t, map[string]bool{"no": true, "nope": true, "nah": true}, seen)
}

func TestNoWithoutResponses(t *testing.T) {
	_, err := NewCommandSet(nil).No()
	assert.ErrorIs(t, err, domain.ErrEmptySequence)

	_, err = NewCommandSet(domain.Document{"notAuthorizedResponses": []any{}}).No()
	assert.ErrorIs(t, err, domain.ErrEmptySequence)
}

func TestNamesAndUnregistered(t *testing.T) {
	commands := testCommandSet(t)

	assert.Equal(t, []string{"blacklist", "empty", "ping", "reload", "unwired", "update"}, commands.Names())
	assert.Equal(t, []string{"empty", "unwired"}, commands.Unregistered())
	assert.Equal(t, "noop_commands.ping", commands.Handlers()["ping"])
}
