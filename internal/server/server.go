package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vantagegraph/vantage/backend/internal/queue"
	mid "github.com/vantagegraph/vantage/backend/internal/server/middleware"
	"github.com/vantagegraph/vantage/backend/internal/util"
	"github.com/vantagegraph/vantage/backend/pkg/ai"
	oai "github.com/vantagegraph/vantage/backend/pkg/ai/ollama"
	gai "github.com/vantagegraph/vantage/backend/pkg/ai/openai"
	"github.com/vantagegraph/vantage/backend/pkg/config"
	"github.com/vantagegraph/vantage/backend/pkg/graphiti"
	"github.com/vantagegraph/vantage/backend/pkg/logger"
	"github.com/vantagegraph/vantage/backend/pkg/query"
	"github.com/vantagegraph/vantage/backend/pkg/search"
	"github.com/vantagegraph/vantage/backend/pkg/staging"
	pgstore "github.com/vantagegraph/vantage/backend/pkg/store/pgx"

	"github.com/go-playground/validator"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// NewAIClient builds the configured AI adapter. The default adapter is
// OpenAI compatible; set AI_ADAPTER=ollama for a local Ollama server.
func NewAIClient() ai.Client {
	adapter := util.GetEnv("AI_ADAPTER")

	switch adapter {
	case "ollama":
		client, err := oai.NewClient(oai.ClientParams{
			EmbeddingModel:  util.GetEnv("AI_EMBED_MODEL"),
			AnalysisModel:   util.GetEnv("AI_ANALYSIS_MODEL"),
			ExtractionModel: util.GetEnv("AI_EXTRACT_MODEL"),

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			ApiKey:  util.GetEnv("AI_CHAT_KEY"),

			MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_CONCURRENCY", 1)),
		})
		if err != nil {
			logger.Fatal("Could not create Ollama client", "err", err)
		}
		return client
	default:
		return gai.NewClient(gai.ClientParams{
			EmbeddingModel:  util.GetEnv("AI_EMBED_MODEL"),
			AnalysisModel:   util.GetEnv("AI_ANALYSIS_MODEL"),
			ExtractionModel: util.GetEnv("AI_EXTRACT_MODEL"),

			EmbeddingURL: util.GetEnv("AI_EMBED_URL"),
			EmbeddingKey: util.GetEnv("AI_EMBED_KEY"),
			ChatURL:      util.GetEnv("AI_CHAT_URL"),
			ChatKey:      util.GetEnv("AI_CHAT_KEY"),
		})
	}
}

// NewStagingStore builds the review session backend. The default keeps
// sessions as JSON files on disk; set STAGING_BACKEND=postgres to store
// them next to the chunk data.
func NewStagingStore(conn *pgxpool.Pool) staging.RecordStore {
	if util.GetEnv("STAGING_BACKEND") == "postgres" {
		return staging.NewPGStore(conn)
	}

	dir := util.GetEnvString("STAGING_DIR", "./staging_sessions")
	records, err := staging.NewFileStore(dir)
	if err != nil {
		logger.Fatal("Failed to open staging directory", "dir", dir, "err", err)
	}
	return records
}

func Init() {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	databaseURL := util.GetEnv("DATABASE_URL")
	if err := pgstore.Migrate(databaseURL); err != nil {
		logger.Fatal("Failed to run migrations", "err", err)
	}

	conn, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", "err", err)
	}
	defer conn.Close()
	conn.Config().AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	que := queue.Init()
	defer que.Close()
	ch, err := que.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}

	if err := queue.SetupQueues(ch, queue.QueueNames); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	cfg := config.Load()
	aiClient := NewAIClient()
	graph := graphiti.Default()
	engine := search.NewEngine(aiClient, pgstore.NewChunkStore(conn), graph, cfg)
	manager := staging.NewManager(NewStagingStore(conn))

	app := &mid.App{
		DBConn:   conn,
		Queue:    ch,
		AiClient: aiClient,
		Engine:   engine,
		Router:   query.NewRouter(aiClient, engine),
		Staging:  manager,
		Detector: staging.NewDetector(cfg.ConfidenceThreshold),
		Cfg:      cfg,
		APIKey:   util.GetEnv("MASTER_API_KEY"),
	}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	RegisterRoutes(e)

	go func() {
		port := util.GetEnv("PORT")
		if port == "" {
			port = "8080"
		}
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
