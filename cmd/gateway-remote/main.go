// gateway-remote runs the HTTP adapter in front of one or more provider
// clients configured from a YAML file. It is a thin embedding of the
// provider package; the interesting behavior lives there.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/remotefiles/gateway-client-go/adapter"
	"github.com/remotefiles/gateway-client-go/internal/browserflow"
	"github.com/remotefiles/gateway-client-go/internal/config"
	"github.com/remotefiles/gateway-client-go/provider"
)

const shutdownTimeout = 5 * time.Second

func main() {
	var configPath string
	var listen string

	flag.StringVar(&configPath, "config", "gateway-remote.yaml", "Path to the configuration file")
	flag.StringVar(&listen, "listen", "", "Listen address, overriding the configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if listen != "" {
		cfg.Listen = listen
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level %q: %v", cfg.LogLevel, err)
	}
	log.SetLevel(level)

	clients, err := buildClients(cfg)
	if err != nil {
		log.Fatalf("Failed to build provider clients: %v", err)
	}

	server := &http.Server{
		Addr:    cfg.Listen,
		Handler: adapter.New(clients...).Handler(),
	}

	// Graceful shutdown on SIGINT/SIGTERM
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-signals
		log.Info("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Warnf("Shutdown error: %v", err)
		}
	}()

	log.Infof("gateway-remote listening on %s (gateway %s)", cfg.Listen, cfg.GatewayURL)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server error: %v", err)
	}
}

// buildClients constructs one provider client per configured provider,
// all sharing a file-backed token store and the browser-based
// interactive host.
func buildClients(cfg *config.Config) ([]*provider.Client, error) {
	store, err := provider.NewFileStore(cfg.TokenDir)
	if err != nil {
		return nil, err
	}
	host := &browserflow.Host{}

	clients := make([]*provider.Client, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		opts := []provider.Option{
			provider.WithTokenStore(store),
			provider.WithInteractiveHost(host),
		}
		if p.Name != "" {
			opts = append(opts, provider.WithName(p.Name))
		}
		if len(p.AllowedOrigins) > 0 {
			opts = append(opts, provider.WithAllowedOrigins(provider.OriginsFromList(p.AllowedOrigins)))
		}
		if p.SupportsRefresh != nil {
			opts = append(opts, provider.WithRefreshSupport(*p.SupportsRefresh))
		}
		if len(p.Credentials) > 0 {
			opts = append(opts, provider.WithCredentials(p.Credentials))
		}
		if len(p.ExtraAuthParams) > 0 {
			opts = append(opts, provider.WithExtraAuthParams(p.ExtraAuthParams))
		}

		client, err := provider.New(cfg.GatewayURL, p.ID, opts...)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", p.ID, err)
		}
		clients = append(clients, client)
	}

	return clients, nil
}
