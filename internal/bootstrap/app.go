package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/api/option"

	"profile-backend/internal/documents"
	"profile-backend/internal/ingest"
	"profile-backend/internal/llm"
	"profile-backend/internal/llm/gemini"
	"profile-backend/internal/llm/openai"
	"profile-backend/internal/profile"
	"profile-backend/internal/profiles"
	"profile-backend/internal/queue"
	"profile-backend/internal/shared/auth"
	"profile-backend/internal/shared/config"
	"profile-backend/internal/shared/server"
	"profile-backend/internal/shared/storage/db"
	"profile-backend/internal/shared/storage/object"
	localstore "profile-backend/internal/shared/storage/object/local"
	s3store "profile-backend/internal/shared/storage/object/s3"
	"profile-backend/internal/shared/telemetry"
	"profile-backend/internal/workerproc"
)

// App holds shared dependencies.
type App struct {
	Config           config.Config
	Router           *gin.Engine
	DB               *sql.DB
	Store            object.ObjectStore
	Queue            queue.Client
	Completer        llm.Completer
	Extractor        *llm.ProfileExtractor
	DocumentsRepo    documents.DocumentsRepo
	ProfilesRepo     profiles.Repo
	DocumentsService *documents.Service
	ProfilesService  *profiles.Service
	Pipeline         *ingest.Pipeline
	Batch            *ingest.Batch
	Processor        *workerproc.Processor
	DocumentsHandler *documents.Handler
	ProfilesHandler  *profiles.Handler
	IngestHandler    *ingest.Handler
}

// Build prepares shared dependencies and the router. Missing optional
// settings fall back to development defaults.
func Build(cfg config.Config) (*App, error) {
	cfg = withDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	completer, err := BuildCompleter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:    cfg,
		DB:        sqlDB,
		Store:     store,
		Queue:     queueClient,
		Completer: completer,
	}
	buildServices(app)

	var tokens *auth.Verifier
	if cfg.JWTSecret != "" {
		if tokens, err = auth.NewVerifier(cfg.JWTSecret); err != nil {
			return nil, err
		}
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          app.Config,
		DB:              sqlDB,
		DocumentHandler: app.DocumentsHandler,
		ProfileHandler:  app.ProfilesHandler,
		IngestHandler:   app.IngestHandler,
		Tokens:          tokens,
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":            cfg.Env,
		"object_store":   cfg.ObjectStoreType,
		"llm_provider":   cfg.LLMProvider,
		"llm_model":      cfg.LLMModel,
		"prompt_version": app.Extractor.PromptVersion(),
		"database":       sqlDB != nil,
		"queue":          queueClient != nil,
		"bearer_tokens":  tokens != nil,
	})
	return app, nil
}

// Close releases the completion client and the database pool.
func (a *App) Close() {
	if closer, ok := a.Completer.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			telemetry.Warn("bootstrap.completer_close_failed", map[string]any{"error": err})
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

func withDefaults(cfg config.Config) config.Config {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	if cfg.ObjectStoreType == "local" && strings.TrimSpace(cfg.LocalStoreDir) == "" {
		cfg.LocalStoreDir = "./data"
	}
	if strings.TrimSpace(cfg.LLMProvider) == "" {
		cfg.LLMProvider = "none"
	}
	if cfg.IngestConcurrency < 1 {
		cfg.IngestConcurrency = 1
	}
	if cfg.WorkerConcurrency < 1 {
		cfg.WorkerConcurrency = 1
	}
	return cfg
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.db_memory", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err == nil && isDevLike(cfg.Env) {
		err = db.RunMigrations(ctx, sqlDB)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.db_memory", map[string]any{"reason": "connect failed", "error": err})
			if sqlDB != nil {
				sqlDB.Close()
			}
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		store, err := s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.QueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.QueueURL, cfg.AWSRegion)
}

// BuildCompleter returns the completion client for the configured provider.
// A failed call is never retried here; it surfaces as llm.InvocationError.
// Provider "none" yields llm.PlaceholderClient, which fails every call with
// llm.ErrNotConfigured.
func BuildCompleter(ctx context.Context, cfg config.Config) (llm.Completer, error) {
	timeout := time.Duration(cfg.LLMTimeoutSeconds) * time.Second
	switch cfg.LLMProvider {
	case "openai":
		c, err := openai.NewClient(cfg.LLMAPIKey, cfg.LLMModel,
			openai.WithBaseURL(cfg.LLMBaseURL),
			openai.WithTimeout(timeout),
		)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "gemini":
		var opts []option.ClientOption
		if timeout > 0 {
			opts = append(opts, gemini.WithTimeout(cfg.LLMAPIKey, timeout))
		}
		if cfg.LLMBaseURL != "" {
			opts = append(opts, option.WithEndpoint(cfg.LLMBaseURL))
		}
		c, err := gemini.NewClient(ctx, cfg.LLMAPIKey, cfg.LLMModel, opts...)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return llm.PlaceholderClient{}, nil
	}
}

// NewExtractor builds the profile extractor for cfg's prompt version and token limit.
func NewExtractor(completer llm.Completer, cfg config.Config) *llm.ProfileExtractor {
	prompts, ok := llm.Prompts(cfg.PromptVersion)
	if !ok && cfg.PromptVersion != "" {
		telemetry.Warn("bootstrap.prompt_version_unknown", map[string]any{
			"requested": cfg.PromptVersion,
			"using":     prompts.Version,
		})
	}
	return llm.NewProfileExtractor(completer, prompts, cfg.LLMMaxTokens)
}

// MergeOptions maps configuration onto profile merge options.
func MergeOptions(cfg config.Config) profile.Options {
	if cfg.MergeDedupe {
		return profile.Options{Entries: profile.StrategyDedupe}
	}
	return profile.Options{Entries: profile.StrategyConcat}
}

func buildServices(app *App) {
	var docRepo documents.DocumentsRepo
	var profileRepo profiles.Repo
	if app.DB != nil {
		docRepo = &documents.PGRepo{DB: app.DB}
		profileRepo = &profiles.PGRepo{DB: app.DB}
	} else {
		docRepo = documents.NewMemoryRepo()
		profileRepo = profiles.NewMemoryRepo()
	}

	docSvc := &documents.Service{
		Store:           app.Store,
		Repo:            docRepo,
		StorageProvider: app.Config.ObjectStoreType,
	}
	profileSvc := &profiles.Service{
		Repo:  profileRepo,
		Merge: MergeOptions(app.Config),
	}

	extractor := NewExtractor(app.Completer, app.Config)
	pipeline := &ingest.Pipeline{Model: extractor, Profiles: profileSvc}
	batch := &ingest.Batch{Pipeline: pipeline, Concurrency: app.Config.IngestConcurrency}

	app.Extractor = extractor
	app.DocumentsRepo = docRepo
	app.ProfilesRepo = profileRepo
	app.DocumentsService = docSvc
	app.ProfilesService = profileSvc
	app.Pipeline = pipeline
	app.Batch = batch
	app.Processor = &workerproc.Processor{Documents: docSvc, Store: app.Store, Pipeline: pipeline}
	app.DocumentsHandler = documents.NewHandler(docSvc)
	app.ProfilesHandler = profiles.NewHandler(profileSvc)
	app.IngestHandler = &ingest.Handler{
		Pipeline:  pipeline,
		Batch:     batch,
		Profiles:  profileSvc,
		Documents: docSvc,
		Queue:     app.Queue,
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
