// ABOUTME: Inbound Slack event model and payload parsing.
// ABOUTME: Classifies webhook bodies into url_verification, message events, or no-ops.

package slack

import (
	"encoding/json"
	"fmt"
)

// Payload type discriminators sent by Slack on the Events API.
const (
	TypeURLVerification = "url_verification"
	TypeEventCallback   = "event_callback"
)

// EventKind classifies an inbound payload after parsing.
type EventKind int

const (
	// KindOther covers every payload shape that triggers no processing.
	KindOther EventKind = iota
	// KindURLVerification is the endpoint handshake; the challenge must be
	// echoed back verbatim.
	KindURLVerification
	// KindMessage is a plain user message (type "message", no subtype).
	KindMessage
)

// InboundEvent is the parsed form of a webhook body. Exactly one of the
// variant fields is meaningful, selected by Kind.
type InboundEvent struct {
	Kind EventKind

	// URL verification handshake.
	Challenge string

	// Message event fields.
	EventID   string
	ChannelID string
	UserID    string
	Text      string
}

// envelope mirrors the outer JSON object of an Events API delivery.
type envelope struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	EventID   string `json:"event_id"`
	Event     struct {
		Type    string `json:"type"`
		Subtype string `json:"subtype"`
		User    string `json:"user"`
		Channel string `json:"channel"`
		Text    string `json:"text"`
	} `json:"event"`
}

// ParseInboundEvent decodes a raw webhook body. Unknown or partial shapes
// parse successfully as KindOther; only malformed JSON is an error.
func ParseInboundEvent(body []byte) (*InboundEvent, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("parsing event payload: %w", err)
	}

	switch env.Type {
	case TypeURLVerification:
		return &InboundEvent{
			Kind:      KindURLVerification,
			Challenge: env.Challenge,
		}, nil

	case TypeEventCallback:
		// Only plain messages count. Edits, deletions, joins and the like
		// arrive as type "message" with a subtype and must not dispatch.
		if env.Event.Type == "message" && env.Event.Subtype == "" {
			return &InboundEvent{
				Kind:      KindMessage,
				EventID:   env.EventID,
				ChannelID: env.Event.Channel,
				UserID:    env.Event.User,
				Text:      env.Event.Text,
			}, nil
		}
		return &InboundEvent{Kind: KindOther}, nil

	default:
		return &InboundEvent{Kind: KindOther}, nil
	}
}
