package settings

import "github.com/transcribersofreddit/torcore/pkg/domain"

// GlobalSettings wraps globals.json: the operating environment and the
// moderator list.
type GlobalSettings struct {
	settings    domain.Document
	environment domain.Environment
}

// NewGlobalSettings wraps settings. A nil document behaves as an empty one.
func NewGlobalSettings(settings domain.Document) *GlobalSettings {
	if settings == nil {
		settings = domain.Document{}
	}
	return &GlobalSettings{
		settings:    settings,
		environment: domain.Environment(settings.StringAt("environment", string(domain.EnvDevelopment))),
	}
}

// Environment returns the configured environment, development by default.
// It is read once, when the view is built.
func (g *GlobalSettings) Environment() domain.Environment {
	return g.environment
}

// IsModerator reports whether username is listed verbatim in moderators.
func (g *GlobalSettings) IsModerator(username string) bool {
	for _, name := range g.settings.StringsAt("moderators") {
		if name == username {
			return true
		}
	}
	return false
}

// Moderators returns a copy of the configured moderator list.
func (g *GlobalSettings) Moderators() []string {
	return g.settings.StringsAt("moderators")
}
