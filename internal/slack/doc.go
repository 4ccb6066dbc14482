// Package slack holds the Slack-facing pieces of the relay: the inbound
// event model for Events API deliveries, the v0 HMAC signature verifier,
// and the outbound Web API client used to post replies.
package slack
