// Package server exposes the OAuth flow, webhook receiver, event log and
// account state over HTTP.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"github.com/Veraticus/fieldwise/internal/common"
	"github.com/Veraticus/fieldwise/internal/eventlog"
	"github.com/Veraticus/fieldwise/internal/model"
	"github.com/Veraticus/fieldwise/internal/service"
	"github.com/Veraticus/fieldwise/internal/webhook"
)

const sessionName = "fieldwise_session"

// Authorizer runs the OAuth authorization-code flow.
type Authorizer interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// Provisioner creates an account's custom fields after authorization.
type Provisioner interface {
	ProvisionAsync(credential string)
	State(ctx context.Context, accountID string) model.ProvisioningState
}

// Receiver processes acknowledged webhook deliveries.
type Receiver interface {
	Accept(d webhook.Delivery) string
}

// Options wires the server's collaborators.
type Options struct {
	Auth        Authorizer
	Store       service.AccountStore
	Platform    service.Platform
	Provisioner Provisioner
	Receiver    Receiver
	Events      *eventlog.Log
	// SessionSecret keys the session cookie.
	SessionSecret string
	// WebhookSecret verifies delivery signatures when VerifySignatures is set.
	WebhookSecret    string
	VerifySignatures bool
	// SecureCookies marks the session cookie Secure.
	SecureCookies bool
	// TLSCertificate, when set, makes Run serve HTTPS.
	TLSCertificate *tls.Certificate
}

// Server is the HTTP front end.
type Server struct {
	opts   Options
	engine *gin.Engine
}

// New validates opts and builds the router.
func New(opts Options) (*Server, error) {
	switch {
	case opts.Auth == nil, opts.Store == nil, opts.Platform == nil,
		opts.Provisioner == nil, opts.Receiver == nil, opts.Events == nil:
		return nil, fmt.Errorf("%w: server collaborators", common.ErrMissingConfig)
	case opts.SessionSecret == "":
		return nil, fmt.Errorf("%w: session secret", common.ErrMissingConfig)
	case opts.VerifySignatures && opts.WebhookSecret == "":
		return nil, fmt.Errorf("%w: webhook secret required to verify signatures", common.ErrMissingConfig)
	}

	s := &Server{opts: opts}
	s.engine = s.routes()
	return s, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.opts.TLSCertificate != nil {
		srv.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{*s.opts.TLSCertificate},
			MinVersion:   tls.VersionTLS12,
		}
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if srv.TLSConfig != nil {
			slog.Info("Server listening", "addr", addr, "tls", true)
			err = srv.ListenAndServeTLS("", "")
		} else {
			slog.Info("Server listening", "addr", addr)
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), cors.Default())

	store := cookie.NewStore([]byte(s.opts.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int((7 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/auth/login", s.handleLogin)
	r.GET("/auth/callback", s.handleCallback)

	api := r.Group("/api")
	api.GET("/auth/status", s.handleStatus)
	api.POST("/auth/logout", s.handleLogout)
	api.POST("/auth/disconnect", s.handleDisconnect)
	api.GET("/webhooks/events", s.handleListEvents)
	api.DELETE("/webhooks/events", s.handleClearEvents)
	api.GET("/accounts/:id", s.handleAccount)

	r.POST("/webhooks", s.webhookHandler(""))
	r.POST("/webhooks/property", s.webhookHandler(model.TopicPropertyCreate))
	r.POST("/webhooks/disconnect", s.webhookHandler(model.TopicAppDisconnect))

	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func errorJSON(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
