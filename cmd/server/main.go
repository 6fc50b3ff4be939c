// File: cmd/server/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log" // Standard log for critical startup/shutdown messages before/after zap is active
	"os"
	"os/signal"
	"syscall"
	"time"

	"launchpad_backend/internal/authz"
	"launchpad_backend/internal/config"
	"launchpad_backend/internal/firebase"
	"launchpad_backend/internal/platform/database"
	platformElasticsearch "launchpad_backend/internal/platform/elasticsearch"
	"launchpad_backend/internal/platform/logger"
	"launchpad_backend/internal/product"
	"launchpad_backend/internal/search"
	"launchpad_backend/internal/user"

	"github.com/golang-migrate/migrate/v4"
	"go.uber.org/zap"
)

const usage = `usage: server [command] [flags]

commands:
  serve           start the HTTP API (default)
  migrate         apply or roll back schema migrations (-direction up|down, -steps N)
  sync-products   rebuild the products search index (-batch-size N, -es-refresh true|false|wait_for)
  grant-admin     promote an account to admin (-email address)
`

func main() {
	cmd := "serve"
	args := []string{}
	if len(os.Args) > 1 {
		cmd, args = os.Args[1], os.Args[2:]
	}

	switch cmd {
	case "serve":
		startServer()
	case "migrate":
		runMigrateCommand(args)
	case "sync-products":
		runSyncCommand(args)
	case "grant-admin":
		runGrantAdminCommand(args)
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
}

func startServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	server, cleanup, err := initializeServer(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize server: %v", err)
	}
	defer cleanup()

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("FATAL: Server failed to start or crashed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("INFO: Received signal '%s'. Shutting down server...", sig)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ServerTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Server forced to shutdown due to error: %v", err)
	} else {
		log.Println("INFO: Server shutdown complete.")
	}
	log.Println("INFO: Application exiting.")
}

// loadCommandEnv loads configuration and a logger for one-shot commands.
func loadCommandEnv(name string) (*config.Config, *zap.Logger) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration for %s: %v", name, err)
	}
	appLogger, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger for %s: %v", name, err)
	}
	return cfg, appLogger.Named(name)
}

func runMigrateCommand(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	direction := fs.String("direction", "up", "Migration direction (up, down)")
	steps := fs.Int("steps", 0, "Number of migrations to apply; 0 applies all")
	_ = fs.Parse(args)

	cfg, appLogger := loadCommandEnv("migrate")
	defer appLogger.Sync()

	m, closeFn, err := database.NewMigrator(cfg.DBSource)
	if err != nil {
		appLogger.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer closeFn()

	switch {
	case *steps != 0 && *direction == "down":
		err = m.Steps(-*steps)
	case *steps != 0:
		err = m.Steps(*steps)
	case *direction == "down":
		err = m.Down()
	case *direction == "up":
		err = m.Up()
	default:
		appLogger.Fatal("Unknown migration direction", zap.String("direction", *direction))
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		appLogger.Fatal("Migration failed", zap.Error(err))
	}

	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		appLogger.Fatal("Failed to read schema version", zap.Error(verr))
	}
	appLogger.Info("Migrations finished", zap.String("direction", *direction), zap.Uint("version", version), zap.Bool("dirty", dirty))
}

func runSyncCommand(args []string) {
	fs := flag.NewFlagSet("sync-products", flag.ExitOnError)
	batchSize := fs.Int("batch-size", 100, "Batch size for syncing products")
	esRefresh := fs.String("es-refresh", "false", "Elasticsearch refresh policy (true, false, wait_for)")
	_ = fs.Parse(args)

	cfg, appLogger := loadCommandEnv("sync")
	defer appLogger.Sync()

	db, err := database.NewGORM(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize database for sync", zap.Error(err))
	}
	defer database.CloseGORMDB(db, appLogger)

	esClient, err := platformElasticsearch.NewClient(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize Elasticsearch client for sync", zap.Error(err))
	}
	if esClient == nil {
		appLogger.Fatal("Elasticsearch is disabled; set ELASTICSEARCH_ENABLED=true and ELASTICSEARCH_URL to sync.")
	}

	ctx := context.Background()
	index := search.IndexName(cfg)
	if err := platformElasticsearch.CreateProductsIndexIfNotExists(ctx, esClient, index, appLogger); err != nil {
		appLogger.Fatal("Failed to create/verify Elasticsearch index before sync", zap.Error(err))
	}

	started := time.Now()
	stats, err := search.NewESIndexer(esClient, index, appLogger).Reindex(ctx, product.NewGORMRepository(db), *batchSize, *esRefresh)
	appLogger.Info("Product synchronization finished",
		zap.Int("batches", stats.Batches),
		zap.Int("indexed", stats.Indexed),
		zap.Int("removed", stats.Removed),
		zap.Int("failed", stats.Failed),
		zap.Duration("took", time.Since(started)),
	)
	if err != nil {
		appLogger.Fatal("Product synchronization failed", zap.Error(err))
	}
}

func runGrantAdminCommand(args []string) {
	fs := flag.NewFlagSet("grant-admin", flag.ExitOnError)
	email := fs.String("email", "", "Email address of the account to promote")
	_ = fs.Parse(args)
	if *email == "" {
		fmt.Fprintln(os.Stderr, "grant-admin: -email is required")
		os.Exit(2)
	}

	cfg, appLogger := loadCommandEnv("grant-admin")
	defer appLogger.Sync()

	db, err := database.NewGORM(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.CloseGORMDB(db, appLogger)

	identity, err := firebase.NewFirebaseService(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize Firebase", zap.Error(err))
	}
	enforcer, err := authz.NewEnforcer(db)
	if err != nil {
		appLogger.Fatal("Failed to initialize authorization", zap.Error(err))
	}

	users := user.NewService(user.NewGORMRepository(db), identity, authz.NewService(enforcer, appLogger), search.NopIndexer{}, nil, appLogger)
	u, err := users.GrantAdmin(context.Background(), *email)
	if err != nil {
		appLogger.Fatal("Failed to grant admin role", zap.String("email", *email), zap.Error(err))
	}
	appLogger.Info("Admin role granted", zap.String("userID", u.ID.String()), zap.String("username", u.Username))
}
