package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"infosec-portal/core"
)

func main() {
	cfg, err := core.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	ctx := context.Background()

	logCloser, err := core.SetupLogging(cfg, "api.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	repo, closeRepo, err := core.OpenAccountRepository(ctx, cfg)
	if err != nil {
		fatal("failed to open account storage", err)
	}
	defer closeRepo()

	store, closeStore, err := core.NewSessionStore(cfg)
	if err != nil {
		fatal("failed to set up session store", err)
	}
	defer closeStore()

	if err := core.BootstrapAdmin(ctx, repo, cfg); err != nil {
		fatal("bootstrap admin failed", err)
	}

	hasher := core.NewCredentialHasher(cfg.BcryptCost)
	lockout := core.NewLockoutTracker(repo, cfg.MaxFailedAttempts)
	authService := core.NewRepositoryAuthService(repo, hasher, lockout)
	adminService := core.NewAdminService(repo)

	router := core.NewRouter(cfg, store, authService, adminService, repo)

	addr := fmt.Sprintf(":%s", cfg.Port)
	slog.Info("starting api server", "addr", addr, "storage", cfg.StorageDriver, "sessions", cfg.SessionBackend)
	if err := router.Run(addr); err != nil {
		fatal("server failed", err)
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
