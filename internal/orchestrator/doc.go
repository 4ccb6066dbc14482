// Package orchestrator owns the per-message flow of the relay: first-contact
// greeting, acknowledgment, remote session lifecycle, streamed response
// aggregation, and the final reply to the channel.
//
// Each HandleMessage call runs as an independent task spawned by the
// dispatcher. Steps inside one call are sequential; no ordering holds
// between calls, even for the same user. The greeted-user set is the only
// shared state and uses an atomic insert-if-absent, so a brand-new user
// sending two messages at once is still greeted exactly once.
package orchestrator
