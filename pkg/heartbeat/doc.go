// Package heartbeat runs the small status server each bot exposes so that
// operators can tell which bot instances are alive.
//
// Bots on one host share a port range; the ports in use are tracked in the
// shared store set ActivePortsKey so that two bots never claim the same one.
package heartbeat
