// Package relay assembles the webhook relay: credential resolution, Slack
// and agent engine clients, the dispatcher, and the HTTP server lifecycle.
package relay
