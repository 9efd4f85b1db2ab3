// Package domain defines the core types shared by the configuration cascade,
// the policy views and the bot orchestration layer.
//
// The central type is Document, the untyped key/value tree decoded verbatim
// from a JSON settings file. Documents are treated as immutable once handed
// to a view; helpers here only read from them, and Merge always produces a
// new top-level map.
//
// The dependency direction is always:
//
//	settings, policy, templates → domain (CORRECT)
//	domain → settings, policy, templates (FORBIDDEN)
package domain
