// Package dispatch implements the webhook intake for Slack Events API
// deliveries.
//
// # Order of operations
//
// Every delivery goes through the same fixed sequence:
//
//  1. Retry suppression: any delivery carrying X-Slack-Retry-Num is
//     acknowledged with an empty 200 before anything else runs.
//  2. Signature verification: failures get a 403 and a fixed body.
//  3. Classification: url_verification echoes the challenge; plain
//     messages are filtered (self-messages, duplicate event ids) and
//     dispatched; everything else is a 200 no-op.
//
// # Decoupling
//
// Dispatched messages run on independent tasks via the Tracker. The HTTP
// response never waits for the agent: Slack expects a sub-second ack and
// redelivers without one, which is exactly what the retry suppression and
// event-id dedupe exist to neutralize.
package dispatch
