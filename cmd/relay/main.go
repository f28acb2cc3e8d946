package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/piyushdolas8/skillswap/internal/config"
	"github.com/piyushdolas8/skillswap/internal/crypto"
	"github.com/piyushdolas8/skillswap/internal/discovery"
	"github.com/piyushdolas8/skillswap/internal/relay"
	"github.com/piyushdolas8/skillswap/internal/storage"
	"github.com/piyushdolas8/skillswap/shared/logger"
)

func main() {
	addr := flag.String("addr", "", "listen address (overrides PORT)")
	debug := flag.Bool("debug", false, "enable debug logging")
	advertise := flag.Bool("mdns", false, "advertise the relay on the local network")
	tlsCert := flag.String("tls-cert", "", "PEM certificate chain for HTTPS")
	tlsKey := flag.String("tls-key", "", "PEM private key for HTTPS")
	flag.Parse()

	overrides := config.RelayOverrides{}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			overrides.Addr = addr
		case "debug":
			overrides.Debug = debug
		case "mdns":
			overrides.Advertise = advertise
		}
	})
	if *tlsCert != "" || *tlsKey != "" {
		overrides.TLS = &config.TLSConfig{CertFile: *tlsCert, KeyFile: *tlsKey}
	}

	cfg, err := config.LoadRelay(overrides)
	if err != nil {
		logger.Errorf("Failed to load config: %v", err)
		os.Exit(1)
	}

	if cfg.Debug {
		logger.SetLevel(logger.LevelDebug)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Infof("Initializing token manager...")
	tokens, err := crypto.NewTokenManager(cfg.MasterSecret, crypto.DefaultTokenTTL)
	if err != nil {
		logger.Errorf("Failed to create token manager: %v", err)
		os.Exit(1)
	}

	uploader, localDir, err := openStorage(ctx, cfg)
	if err != nil {
		logger.Errorf("Failed to open storage: %v", err)
		os.Exit(1)
	}

	srv, err := relay.NewServer(relay.Config{
		Tokens:         tokens,
		MasterSecret:   cfg.MasterSecret,
		Origins:        cfg.AllowedOrigins,
		Uploader:       uploader,
		MaxUploadBytes: cfg.MaxUploadBytes,
		LocalFilesDir:  localDir,
		Metrics:        cfg.Metrics,
	})
	if err != nil {
		logger.Errorf("Failed to create relay: %v", err)
		os.Exit(1)
	}
	defer srv.Close()

	if cfg.Advertise {
		adv, err := discovery.Advertise(cfg.MDNSInstance, listenPort(cfg.Addr), map[string]string{
			"path": relay.SocketIOPath,
			"tls":  boolTXT(cfg.TLS != nil),
		})
		if err != nil {
			logger.Warnf("mDNS advertisement disabled: %v", err)
		} else {
			defer adv.Shutdown()
		}
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("SkillSwap relay starting on %s (public URL %s)", cfg.Addr, cfg.PublicURL)
		if cfg.TLS != nil {
			errCh <- httpServer.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
			return
		}
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Failed to start server: %v", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Infof("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("Shutdown: %v", err)
		}
	}
}

func openStorage(ctx context.Context, cfg *config.RelayConfig) (storage.Uploader, string, error) {
	switch cfg.Storage.Backend {
	case config.StorageS3:
		logger.Infof("Storage: s3 bucket %s", cfg.Storage.S3.Bucket)
		store, err := storage.NewS3Store(ctx, cfg.Storage.S3)
		if err != nil {
			return nil, "", err
		}
		return store, "", nil
	default:
		logger.Infof("Storage: local directory %s", cfg.Storage.LocalDir)
		store, err := storage.NewLocalStore(cfg.Storage.LocalDir, cfg.PublicURL+relay.FilesPath)
		if err != nil {
			return nil, "", err
		}
		return store, store.Root(), nil
	}
}

func listenPort(addr string) int {
	i := strings.LastIndex(addr, ":")
	if i < 0 {
		return 0
	}
	port, _ := strconv.Atoi(addr[i+1:])
	return port
}

func boolTXT(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
