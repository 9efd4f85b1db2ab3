// Package governance holds the retry policy of the bots' polling loops:
// which errors are transient and how long to back off after one.
package governance
