// Package dedupe suppresses duplicate webhook deliveries by remembering
// event ids in a TTL-bounded, size-limited cache.
package dedupe
