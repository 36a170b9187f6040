package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lumoapp/lumo-growth/internal/api"
	"github.com/lumoapp/lumo-growth/internal/app"
	"github.com/lumoapp/lumo-growth/internal/app/maintenance"
	iauth "github.com/lumoapp/lumo-growth/internal/auth"
	"github.com/lumoapp/lumo-growth/internal/cache"
	"github.com/lumoapp/lumo-growth/internal/contacts"
	"github.com/lumoapp/lumo-growth/internal/database"
	"github.com/lumoapp/lumo-growth/internal/middleware"
	"github.com/lumoapp/lumo-growth/internal/services"
	"github.com/lumoapp/lumo-growth/internal/suggestions"
	"github.com/lumoapp/lumo-growth/pkg/logger"
	"github.com/lumoapp/lumo-growth/pkg/sms"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("lumo-growth", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")

	cfg.Auth.JWT.Secret = strings.TrimSpace(cfg.Auth.JWT.Secret)
	if cfg.Auth.JWT.Secret == "" {
		return errors.New("auth.jwt.secret must be configured")
	}

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	dbStore := cache.NewDatabaseStore(db)

	jwtService, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         cfg.Auth.JWT.Secret,
		Issuer:         cfg.Auth.JWT.Issuer,
		AccessTokenTTL: cfg.Auth.JWT.TTL,
	})
	if err != nil {
		return fmt.Errorf("initialise jwt service: %w", err)
	}

	channel := buildSMSChannel(cfg, log)

	quota, err := services.NewQuotaService(db,
		services.WithDailyLimit(cfg.Growth.DailyInviteLimit),
		services.WithInitialCredits(cfg.Growth.InitialCredits),
	)
	if err != nil {
		return fmt.Errorf("initialise quota service: %w", err)
	}

	invites, err := services.NewInviteService(db, quota, channel,
		services.WithInviteBaseURL(cfg.Growth.InviteBaseURL),
		services.WithInviteExpiry(cfg.Growth.InviteExpiry),
		services.WithRetryPolicy(cfg.Growth.SendMaxRetries, cfg.Growth.SendRetryDelay),
	)
	if err != nil {
		return fmt.Errorf("initialise invite service: %w", err)
	}

	rewards, err := services.NewRewardService(db, quota, nil)
	if err != nil {
		return fmt.Errorf("initialise reward service: %w", err)
	}

	lifecycle, err := services.NewLifecycleService(db, invites, rewards,
		services.WithInstallBonus(cfg.Growth.InstallBonusCredits),
	)
	if err != nil {
		return fmt.Errorf("initialise lifecycle service: %w", err)
	}

	friends, err := services.NewFriendService(db)
	if err != nil {
		return fmt.Errorf("initialise friend service: %w", err)
	}

	suggestionSvc, err := services.NewSuggestionService(
		friends,
		suggestions.NewGraphSource(db),
		suggestions.NewRanker(suggestions.WithLimit(cfg.Growth.SuggestionLimit)),
		services.WithSuggestionCache(dbStore),
		services.WithNormalizeOptions(contacts.Options{
			DefaultCountryCode: cfg.Growth.DefaultCountryCode,
			TrunkPrefix:        cfg.Growth.TrunkPrefix,
		}),
	)
	if err != nil {
		return fmt.Errorf("initialise suggestion service: %w", err)
	}

	cleaner := maintenance.NewCleaner(db, lifecycle, quota, dbStore)
	if err := cleaner.Start(); err != nil {
		return fmt.Errorf("start maintenance jobs: %w", err)
	}
	defer func() {
		stopCtx := cleaner.Stop()
		if err := cleaner.RunOnce(stopCtx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}()

	router, err := api.NewRouter(db, jwtService, cfg, api.Services{
		Friends:     friends,
		Suggestions: suggestionSvc,
		Invites:     invites,
		Lifecycle:   lifecycle,
		Quota:       quota,
		Rewards:     rewards,
		RateStore:   middleware.NewCacheRateStore(dbStore),
	})
	if err != nil {
		return fmt.Errorf("build api router: %w", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if err, ok := <-serverErr; ok && err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

func loadApplicationConfig(path string) (*app.Config, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return app.LoadConfig()
	default:
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return app.LoadConfig(path)
			}
			return app.LoadConfig(filepath.Dir(path))
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}

// buildSMSChannel selects the outbound invitation channel. The log sender is
// the integration point where a provider client slots in; deployments that
// have no provider configured keep delivery disabled so sends fail loudly
// instead of silently dropping invitations.
func buildSMSChannel(cfg *app.Config, log *zap.Logger) sms.Sender {
	if !cfg.SMS.Enabled {
		log.Warn("sms delivery disabled; invitation sends will be rejected")
		return sms.NewDisabledSender()
	}
	return sms.NewThrottledSender(
		sms.NewLogSender(logger.WithModule("sms")),
		cfg.SMS.RatePerSecond,
		cfg.SMS.Burst,
	)
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Database.Postgres.Host)
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.User = strings.TrimSpace(cfg.Database.Postgres.Username)
		dbCfg.Password = cfg.Database.Postgres.Password
		dbCfg.Name = strings.TrimSpace(cfg.Database.Postgres.Database)
	case "mysql":
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = cfg.Database.MySQL.Password
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
	}

	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
