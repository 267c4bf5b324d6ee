package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/h0rv/ghcord/internal/config"
	"github.com/h0rv/ghcord/internal/gh"
	"github.com/h0rv/ghcord/internal/identity"
	"github.com/h0rv/ghcord/internal/logging"
	"github.com/h0rv/ghcord/internal/snapshot"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ghcord",
		Short: "Chat-platform bridge core for GitHub Projects v2",
		Long: `ghcord is the headless core of a chat bridge to GitHub Projects v2.

It maintains a periodically refreshed snapshot of one organization's
repositories, people, and projects, and drives the interactive edit and
account-linking workflows. A chat transport embeds this core and feeds it
UI events.

Configuration is read from GHCORD_* environment variables; at minimum
GHCORD_GITHUB_TOKEN and GHCORD_GITHUB_ORG must be set.`,
		RunE:          run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.Setup(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer logging.Close()

	links, err := identity.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open identity store: %w", err)
	}
	defer links.Close()

	client := gh.New(cfg.GraphQLURL, cfg.RESTURL, cfg.GitHubOrg, cfg.GitHubToken, log)

	store := snapshot.NewStore()
	refresher := snapshot.NewRefresher(store, client, cfg.RefreshInterval, log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("ghcord starting", "org", cfg.GitHubOrg, "refresh_interval", cfg.RefreshInterval)
	refresher.Run(ctx)
	log.Info("ghcord shutting down")
	return nil
}
