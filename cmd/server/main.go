package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/copytrade/brokerhub/internal/broker"
	"github.com/copytrade/brokerhub/internal/broker/dhan"
	"github.com/copytrade/brokerhub/internal/broker/motilal"
	"github.com/copytrade/brokerhub/internal/dispatch"
	"github.com/copytrade/brokerhub/internal/normalize"
	"github.com/copytrade/brokerhub/internal/reconcile"
	"github.com/copytrade/brokerhub/internal/server"
	"github.com/copytrade/brokerhub/internal/store/clients"
	"github.com/copytrade/brokerhub/internal/store/groups"
	"github.com/copytrade/brokerhub/internal/symbols"
	"github.com/copytrade/brokerhub/pkg/config"
	"github.com/copytrade/brokerhub/pkg/logger"
	"github.com/copytrade/brokerhub/pkg/secretstore"
)

func main() {
	// Load .env (best-effort). If missing, fall back to real env vars.
	_ = godotenv.Load()

	getenv := func(key, def string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return def
	}

	configPath := flag.String("config", getenv("BROKERHUB_CONFIG", "config.yaml"), "config file path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		OutputFile: cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		log.Fatalf("init logger: %v", err)
	}

	// The enum tables are static; a broken one is a deploy blocker.
	if err := normalize.ValidateVocabulary(); err != nil {
		logger.Errorf("vocabulary check failed: %v", err)
		os.Exit(1)
	}

	encKey, err := secretstore.ParseKey(cfg.Store.EncryptionKey)
	if err != nil {
		logger.Errorf("store encryption key: %v", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.Store.Dir, 0o755); err != nil {
		logger.Errorf("create store dir: %v", err)
		os.Exit(1)
	}
	kv, err := secretstore.Open(secretstore.OpenOptions{
		Path:          filepath.Join(cfg.Store.Dir, "records"),
		EncryptionKey: encKey,
	})
	if err != nil {
		logger.Errorf("open record store: %v", err)
		os.Exit(1)
	}
	defer kv.Close()

	symbolDB, err := symbols.Open(cfg.Store.SymbolsDB)
	if err != nil {
		logger.Errorf("open symbol master: %v", err)
		os.Exit(1)
	}
	defer symbolDB.Close()

	accountStore := clients.NewStore(kv)
	groupStore := groups.NewStore(kv)

	registry := broker.NewRegistry(
		dhan.New(cfg.Dhan.BaseURL, cfg.Dhan.Timeout),
		motilal.New(cfg.Motilal.BaseURL, cfg.Motilal.Timeout, symbolDB),
	)

	engine := dispatch.NewEngine(registry, accountStore)
	engine.CallTimeout = cfg.Dispatch.CallTimeout
	engine.JoinTimeout = cfg.Dispatch.JoinTimeout

	reconciler := reconcile.New(registry, accountStore)
	reconciler.CallTimeout = cfg.Dispatch.CallTimeout

	srv, err := server.New(server.Config{
		Registry:   registry,
		Accounts:   accountStore,
		Groups:     groupStore,
		Symbols:    symbolDB,
		Engine:     engine,
		Reconciler: reconciler,
	})
	if err != nil {
		logger.Errorf("init server: %v", err)
		os.Exit(1)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Infof("brokerhub listening on %s", cfg.Listen)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("http server error: %v", err)
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	<-stopCh

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)

	fmt.Println("server stopped")
}
