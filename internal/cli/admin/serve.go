package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corpusai/corpusd/internal/api/handlers"
	"github.com/corpusai/corpusd/internal/config"
	"github.com/corpusai/corpusd/internal/database"
	"github.com/corpusai/corpusd/internal/domain"
	"github.com/corpusai/corpusd/internal/jobs"
	"github.com/corpusai/corpusd/internal/openai"
	"github.com/corpusai/corpusd/internal/repository"
	"github.com/corpusai/corpusd/internal/server"
	"github.com/corpusai/corpusd/internal/service"
	"github.com/corpusai/corpusd/internal/storage"
	"github.com/corpusai/corpusd/internal/telemetry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

const version = "1.0.0"

var modelCatalog = []string{"gpt-4o-mini", "gpt-4o", "gpt-4.1-mini", "gpt-4.1"}

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the corpus API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if a DSN is configured
	if cfg.SentryDSN != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	var pool *pgxpool.Pool
	var settingsRepo service.SettingsRepositoryInterface
	var queryLogRepo service.QueryLogRepositoryInterface
	var cleanupStore jobs.QueryLogStore
	var registry service.RegistryInterface
	var chunkStore service.ChunkStoreInterface

	if cfg.HasDatabase() {
		pool, err = database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()
		log.Println("connected to database")

		// Run migrations unless --no-migrate flag is set
		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			if err := runMigrations(cfg.DatabaseURL); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
		}

		chunkStore = repository.NewChunkRepository(pool)
		registry = repository.NewDocumentRepository(pool)
		settingsRepo = repository.NewSettingsRepository(pool)

		qlRepo := repository.NewQueryLogRepository(pool)
		queryLogRepo = qlRepo
		cleanupStore = qlRepo
	} else {
		log.Println("no database configured, using in-memory registry")
		registry = service.NewMemoryRegistry()
	}

	var index service.Index
	if cfg.HasDatabase() && cfg.HasOpenAI() {
		embeddingClient := openai.NewClientWithConfig(openai.Config{
			APIKey:         cfg.OpenAIAPIKey,
			EmbeddingModel: cfg.EmbeddingModel,
		})
		index = service.NewVectorIndex(chunkStore, embeddingClient)
	} else {
		log.Println("running with keyword fallback index (degraded mode)")
		index = service.NewMemoryIndex()
	}

	var chatClient service.ChatClientInterface
	if cfg.HasOpenAI() {
		chatClient = openai.NewChatClient(cfg.OpenAIAPIKey)
	} else {
		log.Println("no OpenAI key configured, generation disabled")
		chatClient = &NoOpChatClient{}
	}

	var archive service.ArchiveStorageInterface
	if cfg.HasS3() {
		s3Config := storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		}
		s3Client, err := storage.NewS3Client(ctx, s3Config)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		archive = s3Client
	}

	settingsStore, err := service.NewSettingsStore(ctx, settingsRepo)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	ragSvc := service.NewRAGService(index, registry, settingsStore, chatClient, queryLogRepo, archive, service.RAGConfig{
		Model:         cfg.ChatModel,
		Temperature:   cfg.Temperature,
		MaxIterations: cfg.AgentMaxIterations,
		MemoryWindow:  cfg.MemoryWindow,
	})

	var cleanupWorker *jobs.Worker
	if cleanupStore != nil {
		cleanup := jobs.NewQueryLogCleanup(cleanupStore, cfg.QueryLogRetentionDays)
		cleanupWorker = jobs.NewWorker(cleanup, time.Hour)
		go cleanupWorker.Start(ctx)
		log.Println("query log cleanup worker started")
	}

	routerCfg := server.RouterConfig{
		QueryHandler:    handlers.NewQueryHandler(ragSvc),
		DocumentHandler: handlers.NewDocumentHandler(ragSvc),
		SettingsHandler: handlers.NewSettingsHandler(settingsStore),
		AgentHandler:    handlers.NewAgentHandler(ragSvc, cfg.Temperature),
		StatusHandler:   handlers.NewStatusHandler(ragSvc, cfg.HasOpenAI(), version, modelCatalog),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if cleanupWorker != nil {
		cleanupWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// NoOpChatClient stands in when no model provider is configured. The
// pipeline surfaces its error as a generation failure in the result
// payload.
type NoOpChatClient struct{}

func (c *NoOpChatClient) ChatCompletion(ctx context.Context, req domain.ChatRequest) (domain.ChatMessage, error) {
	return domain.ChatMessage{}, fmt.Errorf("chat client not configured: OPENAI_API_KEY required")
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Get migration version and status
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
