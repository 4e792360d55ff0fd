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

	"github.com/jroosing/revdoh/internal/api"
	"github.com/jroosing/revdoh/internal/cache"
	"github.com/jroosing/revdoh/internal/config"
	"github.com/jroosing/revdoh/internal/history"
	"github.com/jroosing/revdoh/internal/logging"
	"github.com/jroosing/revdoh/internal/resolver"
	"github.com/jroosing/revdoh/internal/transport"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML configuration file (or set REVDOH_CONFIG)")
		host       = flag.String("host", "", "Override API bind host")
		port       = flag.Int("port", 0, "Override API bind port")
		endpoint   = flag.String("endpoint", "", "Override DoH endpoint URL")
		jsonLogs   = flag.Bool("json-logs", false, "Enable JSON structured logging")
		debug      = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	cfg, err := config.Load(config.ResolveConfigPath(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *host != "" {
		cfg.API.Host = *host
	}
	if *port != 0 {
		cfg.API.Port = *port
	}
	if *endpoint != "" {
		cfg.Resolver.Endpoint = *endpoint
	}
	if *jsonLogs {
		cfg.Logging.Structured = true
		cfg.Logging.StructuredFormat = "json"
	}
	if *debug {
		cfg.Logging.Level = "DEBUG"
	}

	logger := logging.Configure(logging.Config{
		Level:            cfg.Logging.Level,
		Structured:       cfg.Logging.Structured,
		StructuredFormat: cfg.Logging.StructuredFormat,
		IncludePID:       cfg.Logging.IncludePID,
		ExtraFields:      cfg.Logging.ExtraFields,
	})
	logger.Info("revdoh starting",
		"endpoint", cfg.Resolver.Endpoint,
		"api_host", cfg.API.Host,
		"api_port", cfg.API.Port,
		"history", cfg.History.Enabled,
	)

	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open history database: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
	}

	doh := transport.NewClient(cfg.Resolver.Endpoint, nil, cfg.ResolverTimeout(), cfg.Resolver.Retries, logger)
	lookupCache := cache.New(cfg.CacheTTL(), cfg.Cache.MaxEntries, cfg.CacheEvictionInterval())
	svc := resolver.New(doh, lookupCache, journalOrNil(store), logger)

	server := api.New(cfg, svc, store, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening", "addr", server.Addr())
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
			os.Exit(1)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "server exited with error: %v\n", err)
			os.Exit(1)
		}
	}
}

// journalOrNil avoids handing the resolver a typed nil interface.
func journalOrNil(store *history.Store) resolver.Journal {
	if store == nil {
		return nil
	}
	return store
}
