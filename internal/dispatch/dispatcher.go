// ABOUTME: HTTP endpoint handler for Slack Events API deliveries.
// ABOUTME: Verifies, classifies, filters, and hands messages off asynchronously.

package dispatch

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/2389/slack-relay/internal/dedupe"
	"github.com/2389/slack-relay/internal/slack"
)

// maxBodySize bounds an Events API delivery. Slack caps event payloads far
// below this; anything bigger is garbage.
const maxBodySize = 1 << 20

// Fixed response bodies on the webhook surface.
const (
	bodyInvalidSignature = "Invalid request signature"
	bodyNoAction         = "No action taken"
)

// MessageHandler receives a dispatched user message. Satisfied by
// *orchestrator.Orchestrator.
type MessageHandler interface {
	HandleMessage(ctx context.Context, channelID, userID, text string) error
}

// Dispatcher is the webhook endpoint. It owns no per-message state; all of
// that lives in the handler it dispatches to.
type Dispatcher struct {
	verifier  *slack.Verifier
	handler   MessageHandler
	tasks     *Tracker
	seen      *dedupe.Cache
	botUserID string
	logger    *slog.Logger
}

// Config carries the dispatcher's dependencies.
type Config struct {
	Verifier *slack.Verifier
	Handler  MessageHandler
	Tasks    *Tracker
	// Seen suppresses duplicate event ids. Optional; nil disables it.
	Seen *dedupe.Cache
	// BotUserID is the relay's own Slack identity, resolved once at startup.
	// Events from this user are never processed.
	BotUserID string
	Logger    *slog.Logger
}

// New builds a Dispatcher.
func New(cfg Config) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tasks := cfg.Tasks
	if tasks == nil {
		tasks = NewTracker(logger)
	}
	return &Dispatcher{
		verifier:  cfg.Verifier,
		handler:   cfg.Handler,
		tasks:     tasks,
		seen:      cfg.Seen,
		botUserID: cfg.BotUserID,
		logger:    logger.With("component", "dispatch"),
	}
}

// ServeHTTP handles one Events API delivery. The response is always fast:
// message handling happens on a separate task after the 200 goes out.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Retry suppression comes before everything else, signature included:
	// Slack redelivers whenever our first response was slow, and a retried
	// delivery must never re-trigger an agent invocation.
	if r.Header.Get(slack.RetryHeader) != "" {
		w.WriteHeader(http.StatusOK)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if err := d.verifier.Verify(body, r.Header); err != nil {
		d.logger.Debug("rejected delivery", "error", err)
		http.Error(w, bodyInvalidSignature, http.StatusForbidden)
		return
	}

	event, err := slack.ParseInboundEvent(body)
	if err != nil {
		// Shapes we cannot parse are not our problem to error on; the
		// platform retries on anything but a 200.
		d.logger.Warn("unparseable delivery", "error", err)
		d.respondNoAction(w)
		return
	}

	switch event.Kind {
	case slack.KindURLVerification:
		// Handshake contract: byte-exact echo, plain text.
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, event.Challenge)

	case slack.KindMessage:
		d.dispatchMessage(event)
		w.WriteHeader(http.StatusOK)

	default:
		d.respondNoAction(w)
	}
}

// dispatchMessage applies the self-message and idempotency filters, then
// spawns the handler task. Fire and forget: nothing is joined back.
func (d *Dispatcher) dispatchMessage(event *slack.InboundEvent) {
	if event.UserID == "" || event.UserID == d.botUserID {
		return
	}

	if d.seen != nil && event.EventID != "" && d.seen.Seen(event.EventID) {
		d.logger.Debug("duplicate event ignored", "event_id", event.EventID)
		return
	}

	channelID, userID, text := event.ChannelID, event.UserID, event.Text
	d.logger.Info("dispatching message",
		"event_id", event.EventID,
		"channel_id", channelID,
		"user_id", userID,
	)

	d.tasks.Go("handle_message", func(ctx context.Context) error {
		return d.handler.HandleMessage(ctx, channelID, userID, text)
	})
}

func (d *Dispatcher) respondNoAction(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, bodyNoAction)
}
