// OneDrive Explorer Server
//
// Features:
// - Entra ID sign-in (authorization code flow) with cookie sessions
// - OneDrive and SharePoint document library browsing via Microsoft Graph
// - Document summarization with an OpenAI-compatible model
// - Prometheus metrics & structured logging (zap)
package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/LeonardHd/maf-onedrive-integration/internal/api"
	"github.com/LeonardHd/maf-onedrive-integration/internal/auth"
	"github.com/LeonardHd/maf-onedrive-integration/internal/config"
	"github.com/LeonardHd/maf-onedrive-integration/internal/graph"
	"github.com/LeonardHd/maf-onedrive-integration/internal/logging"
	"github.com/LeonardHd/maf-onedrive-integration/internal/metrics"
	"github.com/LeonardHd/maf-onedrive-integration/internal/summary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Can't use structured logging yet
		panic("configuration error: " + err.Error())
	}

	if err := logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	}); err != nil {
		panic("logging init error: " + err.Error())
	}
	defer logging.Sync()

	logging.Info("OneDrive explorer starting...",
		zap.String("listen", cfg.ListenAddr),
		zap.String("metrics", cfg.MetricsAddr),
		zap.String("authority", cfg.Authority()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	identity := auth.NewEntra(ctx, auth.EntraConfig{
		ClientID:      cfg.ApplicationID,
		ClientSecret:  cfg.ApplicationSecret,
		RedirectURI:   cfg.RedirectURI,
		TenantID:      cfg.TenantID,
		AuthorityHost: cfg.AuthorityHost,
		Discovery:     cfg.OIDCDiscovery,
	})
	sessions := auth.NewStore()
	cookies := auth.NewCookieCodec(cfg.SessionSecret, cfg.SessionMaxAge, cfg.SecureCookies())
	if cfg.EphemeralSecret {
		logging.Warn("SESSION_SECRET not set, using a random secret; sessions will not survive a restart")
	}

	if cfg.ModelToken == "" {
		logging.Warn("GITHUB_TOKEN not set, summaries will fail until a model token is configured")
	}
	pipeline := summary.NewPipeline(summary.NewChatSummarizer(summary.ChatConfig{
		Token:   cfg.ModelToken,
		ModelID: cfg.ModelID,
		BaseURL: cfg.ModelBaseURL,
	}), cfg.SummaryMaxInput)

	// One client per request, all on the same connection pool.
	transport := graph.NewTransport()
	defer transport.CloseIdleConnections()
	clients := func(cred *auth.Credential) api.DriveClient {
		return graph.New(cred, graph.Config{
			BaseURL:   cfg.GraphBaseURL,
			Timeout:   cfg.GraphTimeout,
			Transport: transport,
		})
	}

	srv := api.NewServer(identity, clients, sessions, cookies, pipeline)

	// Start metrics server
	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: metrics.Handler(),
	}
	go func() {
		logging.Info("metrics server listening", zap.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logging.Error("metrics server error", zap.Error(err))
		}
	}()

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	useTLS := cfg.TLSCertFile != "" && cfg.TLSKeyFile != ""
	if useTLS {
		httpServer.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS13,
		}
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logging.Info("shutting down...")
		cancel()

		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		httpServer.Shutdown(shutdownCtx)
		metricsServer.Close()
	}()

	// Expire sessions whose cookie can no longer be presented
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := sessions.Prune(cfg.SessionMaxAge); n > 0 {
					logging.Info("pruned expired sessions", zap.Int("count", n))
				}
			}
		}
	}()

	if useTLS {
		logging.Info("server listening (TLS 1.3)",
			zap.String("addr", cfg.ListenAddr),
			zap.String("cert", cfg.TLSCertFile))
		if err := httpServer.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile); err != http.ErrServerClosed {
			logging.Fatal("server error", zap.Error(err))
		}
	} else {
		logging.Info("server listening (HTTP)", zap.String("addr", cfg.ListenAddr))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logging.Fatal("server error", zap.Error(err))
		}
	}
}
