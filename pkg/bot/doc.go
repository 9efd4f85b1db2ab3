// Package bot assembles a running bot from the bootstrap configuration: the
// settings cascade, the platform client, the shared store and the heartbeat
// server.
//
// The settings cascade held by a Bot is immutable. Reload builds a fresh
// one from disk and swaps it in atomically; callers holding the previous
// cascade keep a consistent view until they ask for the current one again.
package bot
