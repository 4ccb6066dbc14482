// ABOUTME: Entry point for the slack-relay webhook server.
// ABOUTME: Loads .env and YAML config, then serves the Slack events endpoint.

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/2389/slack-relay/internal/config"
	"github.com/2389/slack-relay/internal/relay"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
     _            _                   _
 ___| | __ _  ___| | __     _ __ ___ | | __ _ _   _
/ __| |/ _' |/ __| |/ /____| '__/ _ \| |/ _' | | | |
\__ \ | (_| | (__|   <_____| | |  __/| | (_| | |_| |
|___/_|\__,_|\___|_|\_\    |_|  \___||_|\__,_|\__, |
                                              |___/
`

// getConfigPath returns the path to the relay config file.
// Priority: SLACK_RELAY_CONFIG env var > XDG_CONFIG_HOME/slack-relay/relay.yaml > ~/.config/slack-relay/relay.yaml
func getConfigPath() string {
	if envPath := os.Getenv("SLACK_RELAY_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "relay.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "slack-relay", "relay.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: slack-relay <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve    Start the relay server")
		fmt.Println("  health   Check relay health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	// A local .env is optional; config expansion picks up whatever it set.
	_ = godotenv.Load()

	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:  %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:    %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Events:  %s\n", cfg.Slack.EventsPath)
	fmt.Println()

	logger.Info("starting slack-relay",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"events_path", cfg.Slack.EventsPath,
	)

	r, err := relay.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("creating relay: %w", err)
	}

	return r.Run(ctx)
}

func runHealth(ctx context.Context) error {
	_ = godotenv.Load()

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health", cfg.Server.HTTPAddr)
	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("relay unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("relay unhealthy: %s: %s", resp.Status, body)
	}

	fmt.Printf("relay healthy: %s\n", body)
	return nil
}
