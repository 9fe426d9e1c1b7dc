package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"cardkey-service/internal/config"
	"cardkey-service/internal/domain/model"
	pg "cardkey-service/internal/infra/db/postgres"
	"cardkey-service/internal/infra/logging"
	"cardkey-service/internal/infra/security"
	"cardkey-service/internal/usecase"
)

func main() {
	// ---- Config ----
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Connect Postgres
	cfg.Database.MaxConns = 4
	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	tm := pg.NewTxManager(pool)
	authUC := usecase.NewAuthUseCase(pg.NewAdminRepo(pool), security.NewPasswordHasher(cfg.Auth.BcryptCost), logger)
	settingUC := usecase.NewSettingUseCase(pg.NewSettingRepo(pool), tm, logger)
	apiKeyUC := usecase.NewAPIKeyUseCase(pg.NewAPIKeyRepo(pool), logger)

	// Bootstrap admin; a generated password is printed once.
	password := cfg.Auth.AdminPassword
	generated := false
	if password == "" {
		if password, err = security.RandomString(16); err != nil {
			log.Fatalf("generate admin password: %v", err)
		}
		generated = true
	}
	created, err := authUC.EnsureAdmin(ctx, cfg.Auth.AdminUsername, password)
	if err != nil {
		log.Fatalf("ensure admin: %v", err)
	}
	switch {
	case !created:
		fmt.Printf("admin %q already present. No changes.\n", cfg.Auth.AdminUsername)
	case generated:
		fmt.Printf("admin %q created with password %s (change it after first login)\n", cfg.Auth.AdminUsername, password)
	default:
		fmt.Printf("admin %q created\n", cfg.Auth.AdminUsername)
	}

	// Default settings never overwrite existing values.
	if err := settingUC.SeedDefaults(ctx); err != nil {
		log.Fatalf("seed settings: %v", err)
	}
	fmt.Printf("%d default settings ensured\n", len(model.DefaultSettings()))

	// First API key, only on an empty table.
	page, err := apiKeyUC.List(ctx, model.APIKeyFilter{}, 1, 1)
	if err != nil {
		log.Fatalf("list api keys: %v", err)
	}
	if page.Total > 0 {
		fmt.Printf("%d api keys already present. No changes.\n", page.Total)
		return
	}
	key, err := apiKeyUC.Create(ctx, "default", "created by seed")
	if err != nil {
		log.Fatalf("create api key: %v", err)
	}
	fmt.Printf("api key %q created: %s\n", key.Name, key.Key)
}
