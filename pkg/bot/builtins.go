package bot

import (
	"context"
	"errors"

	"github.com/transcribersofreddit/torcore/pkg/policy"
)

// Built-in admin command handler references.
const (
	PingRef   = "ping"
	ReloadRef = "reload"
)

// RegisterBuiltins binds the handlers every bot ships with into namespace.
// reload is called by the reload command; a nil reload leaves the command
// unavailable.
func RegisterBuiltins(r *policy.Registry, namespace string, reload func() error) error {
	err := r.Register(namespace, PingRef, func(context.Context, string, string, string) (string, error) {
		return "Pong!", nil
	})
	if err != nil {
		return err
	}

	return r.Register(namespace, ReloadRef, func(context.Context, string, string, string) (string, error) {
		if reload == nil {
			return "", errors.New("reload is not available")
		}
		if err := reload(); err != nil {
			return "", err
		}
		return "Settings reloaded.", nil
	})
}
