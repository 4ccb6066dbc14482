// ABOUTME: Per-message business logic: greeting, ack, session lifecycle, reply.
// ABOUTME: Streams the agent's answer, aggregates it, and posts one message back.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/2389/slack-relay/internal/agentengine"
	"github.com/2389/slack-relay/internal/slack"
)

// greetingDateLayout renders the full weekday/month/day/year form used in
// the first-contact greeting, e.g. "Friday, August 29, 2025".
const greetingDateLayout = "Monday, January 2, 2006"

// AgentClient is what the orchestrator needs from the remote agent engine.
// Satisfied by *agentengine.Client and by test fakes.
type AgentClient interface {
	CreateSession(ctx context.Context, userID string) (*agentengine.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
	StreamQuery(ctx context.Context, userID, sessionID, message string) (agentengine.Stream, error)
}

// Config carries the orchestrator's dependencies and message templates.
type Config struct {
	Poster  slack.Poster
	Agent   AgentClient
	Greeted GreetedUsers
	Logger  *slog.Logger

	// Greeting is a format string taking the user id and the formatted date.
	Greeting string
	// Ack is posted verbatim before every agent invocation.
	Ack string
	// Fallback replaces an empty aggregated response in the final reply.
	Fallback string
	// AckDelay paces the gap between the ack and the agent call. Purely a
	// perceived-latency tunable, not a correctness requirement.
	AckDelay time.Duration
}

// Orchestrator handles one user message end to end. Each invocation is an
// independent task; the only state shared between invocations is the
// greeted-user set.
type Orchestrator struct {
	poster   slack.Poster
	agent    AgentClient
	greeted  GreetedUsers
	logger   *slog.Logger
	greeting string
	ack      string
	fallback string
	ackDelay time.Duration
	now      func() time.Time
}

// New builds an Orchestrator from the given config.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	greeted := cfg.Greeted
	if greeted == nil {
		greeted = NewGreeted()
	}
	return &Orchestrator{
		poster:   cfg.Poster,
		agent:    cfg.Agent,
		greeted:  greeted,
		logger:   logger.With("component", "orchestrator"),
		greeting: cfg.Greeting,
		ack:      cfg.Ack,
		fallback: cfg.Fallback,
		ackDelay: cfg.AckDelay,
		now:      time.Now,
	}
}

// HandleMessage runs the full flow for one user message. It is called on
// its own goroutine, decoupled from the HTTP response; the returned error
// is for logging only, nothing joins it back to the webhook caller.
//
// Once a remote session is created it is deleted exactly once, whatever
// happens during streaming. A failed creation needs no cleanup.
func (o *Orchestrator) HandleMessage(ctx context.Context, channelID, userID, text string) error {
	if o.greeted.MarkIfNew(userID) {
		today := o.now().Format(greetingDateLayout)
		greeting := fmt.Sprintf(o.greeting, userID, today)
		if err := o.poster.PostMessage(ctx, channelID, greeting); err != nil {
			return fmt.Errorf("posting greeting: %w", err)
		}
	}

	if err := o.poster.PostMessage(ctx, channelID, o.ack); err != nil {
		return fmt.Errorf("posting ack: %w", err)
	}

	if err := o.pace(ctx); err != nil {
		return err
	}

	session, err := o.agent.CreateSession(ctx, userID)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	o.logger.Debug("session created", "session_id", session.ID, "user_id", userID)

	// Streaming failures degrade to an empty reply; they never skip teardown.
	reply := o.collectResponse(ctx, userID, session.ID, text)

	if err := o.agent.DeleteSession(ctx, session.ID); err != nil {
		return fmt.Errorf("deleting session %s: %w", session.ID, err)
	}

	if reply == "" {
		reply = o.fallback
	}
	if err := o.poster.PostMessage(ctx, channelID, fmt.Sprintf("<@%s> %s", userID, reply)); err != nil {
		return fmt.Errorf("posting reply: %w", err)
	}
	return nil
}

// pace applies the fixed delay between the ack and the agent call.
func (o *Orchestrator) pace(ctx context.Context) error {
	if o.ackDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(o.ackDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// collectResponse streams the query and concatenates every text fragment in
// arrival order. Any failure mid-stream is logged and treated as "no
// further text"; the caller still gets whatever arrived before it.
func (o *Orchestrator) collectResponse(ctx context.Context, userID, sessionID, text string) string {
	stream, err := o.agent.StreamQuery(ctx, userID, sessionID, text)
	if err != nil {
		o.logger.Error("query failed", "session_id", sessionID, "error", err)
		return ""
	}
	defer stream.Close()

	var b strings.Builder
	for {
		ev, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			o.logger.Error("stream aborted", "session_id", sessionID, "error", err)
			break
		}
		b.WriteString(ev.Text())
	}
	return b.String()
}
