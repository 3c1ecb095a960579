package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sentra.org/internal/audit"
	"sentra.org/internal/config"
	"sentra.org/internal/httpapi"
	"sentra.org/internal/obs"
	"sentra.org/internal/perm"
	"sentra.org/internal/store/pg"
)

var version = "0.3.1"

func main() {
	log.SetFlags(0)
	configPath := flag.String("config", os.Getenv("SENTRA_CONFIG"), "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("SENTRA_COMMIT"))

	var (
		store      permBackend
		readyProbe httpapi.ReadyProbe
	)
	if cfg.DatabaseDSN != "" {
		pgStore, err := pg.Open(cfg.DatabaseDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer pgStore.Close()
		store = pgBackend{s: pgStore}
		readyProbe = httpapi.ReadyProbe{DB: pgStore.DB()}
	} else {
		// No DSN: run on the in-memory store. Useful for local development;
		// state does not survive a restart.
		log.Println("SENTRA_PG_DSN not set, using in-memory storage")
		store = memoryBackend{
			perm:  perm.NewInMemoryStore(),
			audit: audit.NewInMemoryStore(),
		}
	}

	auditLog, err := audit.NewLog(store.AuditStore())
	if err != nil {
		log.Fatalf("audit log: %v", err)
	}
	directory, err := perm.NewDirectory(store.PermStore())
	if err != nil {
		log.Fatalf("directory: %v", err)
	}
	perms, err := perm.NewService(perm.DefaultSchema(), store.PermStore(), auditLog, cfg.HomeOrgID)
	if err != nil {
		log.Fatalf("permission service: %v", err)
	}

	api := httpapi.New(readyProbe, version, directory, perms, auditLog)
	api.SetRateLimit(cfg.RateBurst, cfg.RatePerSec)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting sentra-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		obs.LogError("shutdown incomplete", map[string]any{"error": err.Error()})
	}
	log.Println("Stopped")
}

// permBackend abstracts over the two storage modes.
type permBackend interface {
	PermStore() perm.Store
	AuditStore() audit.Store
}

type pgBackend struct {
	s *pg.Store
}

func (b pgBackend) PermStore() perm.Store   { return b.s }
func (b pgBackend) AuditStore() audit.Store { return b.s }

type memoryBackend struct {
	perm  *perm.InMemoryStore
	audit *audit.InMemoryStore
}

func (b memoryBackend) PermStore() perm.Store   { return b.perm }
func (b memoryBackend) AuditStore() audit.Store { return b.audit }
