// ABOUTME: Relay assembly: resolves credentials, wires components, runs the HTTP server.
// ABOUTME: Manages startup fail-fast behavior and graceful shutdown with task draining.

package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/2389/slack-relay/internal/agentengine"
	"github.com/2389/slack-relay/internal/config"
	"github.com/2389/slack-relay/internal/dedupe"
	"github.com/2389/slack-relay/internal/dispatch"
	"github.com/2389/slack-relay/internal/orchestrator"
	"github.com/2389/slack-relay/internal/secrets"
	"github.com/2389/slack-relay/internal/slack"
)

// Relay owns the HTTP server and the components behind the webhook endpoint.
type Relay struct {
	config     *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	tasks      *dispatch.Tracker
	seen       *dedupe.Cache
	botUserID  string
}

// credentials are the resolved startup secrets, whatever their source.
type credentials struct {
	botToken      string
	signingSecret string
	resourceID    string
}

// New wires the relay from configuration. Everything here is fail-fast:
// missing secrets, an unreachable Secret Manager, or a failed identity
// lookup all prevent the process from serving a single request.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Relay, error) {
	if logger == nil {
		logger = slog.Default()
	}

	creds, err := resolveCredentials(ctx, cfg)
	if err != nil {
		return nil, err
	}

	slackClient := slack.NewClient(creds.botToken)

	// Resolve our own identity once; the dispatcher filters on it for the
	// process lifetime so the bot never answers itself.
	botUserID, err := slackClient.BotIdentity(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("bot identity resolved", "bot_user_id", botUserID)

	agentClient, err := agentengine.NewDefaultClient(ctx, cfg.Google.Location, creds.resourceID)
	if err != nil {
		return nil, err
	}

	orch := orchestrator.New(orchestrator.Config{
		Poster:   slackClient,
		Agent:    agentClient,
		Logger:   logger,
		Greeting: cfg.Agent.Greeting,
		Ack:      cfg.Agent.Ack,
		Fallback: cfg.Agent.Fallback,
		AckDelay: cfg.Agent.AckDelay,
	})

	return assemble(cfg, logger, orch, slack.NewVerifier(creds.signingSecret), botUserID), nil
}

// assemble builds the Relay around an already-constructed message handler.
// Split from New so tests can wire fakes without touching Google APIs.
func assemble(cfg *config.Config, logger *slog.Logger, handler dispatch.MessageHandler, verifier *slack.Verifier, botUserID string) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	tasks := dispatch.NewTracker(logger)
	seen := dedupe.New(cfg.Dedupe.TTL, cfg.Dedupe.MaxSize)

	dispatcher := dispatch.New(dispatch.Config{
		Verifier:  verifier,
		Handler:   handler,
		Tasks:     tasks,
		Seen:      seen,
		BotUserID: botUserID,
		Logger:    logger,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/health/ready", handleHealth)
	mux.Handle(cfg.Slack.EventsPath, dispatcher)

	return &Relay{
		config: cfg,
		logger: logger.With("component", "relay"),
		httpServer: &http.Server{
			Addr:              cfg.Server.HTTPAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		tasks:     tasks,
		seen:      seen,
		botUserID: botUserID,
	}
}

// resolveCredentials merges inline config values with the Secret Manager
// payload. Inline values win; the secret fills whatever is left.
func resolveCredentials(ctx context.Context, cfg *config.Config) (credentials, error) {
	creds := credentials{
		botToken:      cfg.Slack.BotToken,
		signingSecret: cfg.Slack.SigningSecret,
		resourceID:    cfg.Agent.ResourceID,
	}
	if creds.botToken != "" && creds.signingSecret != "" && creds.resourceID != "" {
		return creds, nil
	}

	if cfg.Google.SecretName == "" {
		return credentials{}, errors.New("incomplete inline credentials and no google.secret_name configured")
	}

	provider, err := secrets.NewManagerProvider(ctx, cfg.Google.ProjectID)
	if err != nil {
		return credentials{}, err
	}
	defer provider.Close()

	bs, err := secrets.LoadBotSecrets(ctx, provider, cfg.Google.SecretName)
	if err != nil {
		return credentials{}, err
	}

	if creds.botToken == "" {
		creds.botToken = bs.BotToken
	}
	if creds.signingSecret == "" {
		creds.signingSecret = bs.SigningSecret
	}
	if creds.resourceID == "" {
		creds.resourceID = bs.ResourceID
	}
	return creds, nil
}

// Run serves until the context is canceled or the server fails, then shuts
// down gracefully: stop accepting deliveries, drain in-flight message
// tasks (bounded), and release the dedupe cache.
func (r *Relay) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", r.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", r.config.Server.HTTPAddr, err)
	}

	r.logger.Info("relay listening",
		"http_addr", r.config.Server.HTTPAddr,
		"events_path", r.config.Slack.EventsPath,
		"bot_user_id", r.botUserID,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := r.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		r.logger.Info("shutdown requested")
	case serveErr = <-errCh:
		r.logger.Error("http server failed", "error", serveErr)
	}

	shutdownErr := r.shutdown()
	if serveErr != nil {
		return serveErr
	}
	return shutdownErr
}

// shutdown runs with a fresh context; the run context is already canceled.
func (r *Relay) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := r.httpServer.Shutdown(ctx)

	if !r.tasks.Drain(r.config.Server.ShutdownGrace) {
		r.logger.Warn("shutdown grace expired with tasks still running",
			"grace", r.config.Server.ShutdownGrace)
	}
	r.seen.Close()

	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
