package main

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/fieldwise/internal/attom"
	"github.com/Veraticus/fieldwise/internal/auth"
	"github.com/Veraticus/fieldwise/internal/certs"
	"github.com/Veraticus/fieldwise/internal/config"
	"github.com/Veraticus/fieldwise/internal/enrich"
	"github.com/Veraticus/fieldwise/internal/eventlog"
	"github.com/Veraticus/fieldwise/internal/provision"
	"github.com/Veraticus/fieldwise/internal/server"
	"github.com/Veraticus/fieldwise/internal/webhook"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the OAuth and webhook server",
		Long: `Serve the OAuth login flow and the webhook endpoints.

Jobber should be configured to deliver PROPERTY_CREATE and APP_DISCONNECT
webhooks to /webhooks (or /webhooks/property and /webhooks/disconnect).`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "listen address (default :3000)")
	cmd.Flags().Bool("insecure-webhooks", false, "accept webhooks without verifying signatures")
	cmd.Flags().Bool("secure-cookies", false, "mark the session cookie Secure (enable behind HTTPS)")
	cmd.Flags().Bool("tls", false, "serve HTTPS with a self-signed localhost certificate")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	insecure, _ := cmd.Flags().GetBool("insecure-webhooks")
	secureCookies, _ := cmd.Flags().GetBool("secure-cookies")
	useTLS, _ := cmd.Flags().GetBool("tls")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	platform := newPlatform(cfg)

	lookup, err := attom.NewClient(attom.Config{
		APIKey:            cfg.Attom.APIKey,
		BaseURL:           cfg.Attom.BaseURL,
		RequestsPerMinute: cfg.Attom.RequestsPerMinute,
		CacheTTL:          cfg.Attom.CacheTTL,
	})
	if err != nil {
		return err
	}
	defer lookup.Close()

	flow, err := auth.NewFlow(auth.Config{
		ClientID:     cfg.Jobber.ClientID,
		ClientSecret: cfg.Jobber.ClientSecret,
		AuthURL:      cfg.Jobber.AuthURL,
		TokenURL:     cfg.Jobber.TokenURL,
		RedirectURL:  cfg.Jobber.RedirectURL,
	})
	if err != nil {
		return err
	}

	events := eventlog.New(cfg.EventLog.Capacity)
	provisioner := provision.New(store, platform)
	receiver := webhook.NewReceiver(enrich.New(store, platform, lookup), store, events, cfg.Server.ProcessingTimeout)

	var cert *tls.Certificate
	scheme := "http"
	if useTLS {
		local, err := certs.Localhost(filepath.Join(config.DefaultDir(), "certs"))
		if err != nil {
			return fmt.Errorf("failed to prepare TLS certificate: %w", err)
		}
		cert = &local
		scheme = "https"
		secureCookies = true
	}

	verify := cfg.Webhook.VerifySignatures && !insecure
	if !verify {
		slog.Warn("Webhook signature verification is disabled")
	}

	srv, err := server.New(server.Options{
		Auth:             flow,
		Store:            store,
		Platform:         platform,
		Provisioner:      provisioner,
		Receiver:         receiver,
		Events:           events,
		SessionSecret:    cfg.Server.SessionSecret,
		WebhookSecret:    cfg.Jobber.ClientSecret,
		VerifySignatures: verify,
		SecureCookies:    secureCookies,
		TLSCertificate:   cert,
	})
	if err != nil {
		return err
	}

	slog.Info("Starting fieldwise",
		"addr", cfg.Server.Addr,
		"database", store.Path(),
		"login_url", fmt.Sprintf("%s://localhost%s/auth/login", scheme, cfg.Server.Addr))

	runErr := srv.Run(ctx, cfg.Server.Addr)

	// Let accepted deliveries and provisioning runs finish before closing
	// the store.
	receiver.Wait()
	provisioner.Wait()

	return runErr
}
