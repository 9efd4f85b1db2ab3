package policy

type permissionState int

const (
	statePending permissionState = iota
	stateResolved
)

// CommandPermission is the decision token produced by CommandSet.Allows.
// It starts pending and is resolved by ByUser. A pending permission never
// reports Allowed. Values are copied through the chain, so a token can be
// shared and resolved for many users without cross-talk.
type CommandPermission struct {
	name       string
	definition CommandDefinition
	moderators ModeratorChecker
	state      permissionState
	allowed    bool
}

// ByUser resolves the permission for username. An unknown command denies
// everyone, moderators included. Otherwise moderators are allowed, then
// anyone on the command's allow-list.
func (p CommandPermission) ByUser(username string) CommandPermission {
	switch {
	case p.definition.Empty():
		return p.resolve(false)
	case p.moderators != nil && p.moderators.IsModerator(username):
		return p.resolve(true)
	case p.definition.Allows(username):
		return p.resolve(true)
	default:
		return p.resolve(false)
	}
}

func (p CommandPermission) resolve(allowed bool) CommandPermission {
	p.state = stateResolved
	p.allowed = allowed
	return p
}

// Allowed reports the outcome. It is false until the permission is resolved.
func (p CommandPermission) Allowed() bool {
	return p.state == stateResolved && p.allowed
}

// Resolved reports whether ByUser has been applied.
func (p CommandPermission) Resolved() bool {
	return p.state == stateResolved
}

// Name returns the lower-cased command name.
func (p CommandPermission) Name() string {
	return p.name
}

// Definition returns the command definition the permission is scoped to.
func (p CommandPermission) Definition() CommandDefinition {
	return p.definition
}
