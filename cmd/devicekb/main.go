package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/hajime-dev/devicekb/internal/ai"
	"github.com/hajime-dev/devicekb/internal/chunker"
	"github.com/hajime-dev/devicekb/internal/config"
	"github.com/hajime-dev/devicekb/internal/db"
	"github.com/hajime-dev/devicekb/internal/embedcache"
	"github.com/hajime-dev/devicekb/internal/filestore"
	"github.com/hajime-dev/devicekb/internal/handler"
	"github.com/hajime-dev/devicekb/internal/job"
	"github.com/hajime-dev/devicekb/internal/middleware"
	"github.com/hajime-dev/devicekb/internal/rag"
	"github.com/hajime-dev/devicekb/internal/repo"
	"github.com/hajime-dev/devicekb/internal/schedule"
	"github.com/hajime-dev/devicekb/internal/service"
	"github.com/hajime-dev/devicekb/internal/template"
	"github.com/hajime-dev/devicekb/internal/vectorstore"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "devicekb",
		Short: "device knowledge base server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run devicekb server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			database, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(database); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, database)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, database *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("file_store", cfg.FileStore.Type),
	)

	deviceRepo := repo.NewDeviceRepo(database)
	docRepo := repo.NewDocumentRepo(database)
	chatRepo := repo.NewChatRepo(database)
	embedCacheRepo := repo.NewEmbeddingCacheRepo(database)

	providerArgs := cfg.AI.Data
	if providerArgs == nil {
		providerArgs = cfg.AI
	}
	provider, err := ai.NewProvider(cfg.AI.Provider, providerArgs)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	invokerCfg := cfg.Pipeline.Invoker
	callTimeout := time.Duration(invokerCfg.CallTimeoutSeconds) * time.Second
	governor := ai.NewGovernor(invokerCfg.MaxConcurrent, time.Duration(invokerCfg.MinDelayMS)*time.Millisecond)
	retry := ai.NewRetryPolicy(invokerCfg.MaxAttempts,
		time.Duration(invokerCfg.BaseBackoffMS)*time.Millisecond,
		time.Duration(invokerCfg.MaxBackoffMS)*time.Millisecond)

	generator := ai.NewGenerator(provider, cfg.AI.Model)
	embedder := ai.NewEmbedder(provider, cfg.AI.EmbedModel)
	embedder = ai.NewGovernedEmbedder(embedder, governor, retry, callTimeout)
	embedder = embedcache.WrapDB(embedder, embedCacheRepo)
	embedder = embedcache.WrapLRU(embedder, cfg.Jobs.EmbedCacheLRUSize,
		time.Duration(cfg.Jobs.EmbedCacheTTLHours)*time.Hour)

	invoker, err := ai.NewInvoker(generator, governor, retry, invokerCfg.MaxBatchSize, invokerCfg.CacheSize, callTimeout)
	if err != nil {
		return fmt.Errorf("init invoker: %w", err)
	}

	store := vectorstore.NewPGStore(database)
	ck := chunker.New(cfg.Pipeline.Chunking)
	retriever := rag.NewRetriever(invoker, embedder, store, cfg.Pipeline.Retrieval)
	synthesizer := rag.NewSynthesizer(invoker, cfg.Pipeline.Synthesis)
	filler := template.NewFiller(invoker, retriever, cfg.Pipeline.Template)

	files, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	deviceService := service.NewDeviceService(deviceRepo, docRepo, chatRepo, store)
	documentService := service.NewDocumentService(deviceRepo, docRepo, ck, embedder, store, files)
	chatService := service.NewChatService(deviceRepo, chatRepo, retriever, synthesizer, cfg.Pipeline.Retrieval.FinalCount)
	templateService := service.NewTemplateService(deviceRepo, filler, files)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewVectorCleanupJob(deviceRepo, docRepo, store), cfg.Jobs.VectorCleanupCron); err != nil {
		return err
	}
	if err := scheduler.AddJob(job.NewEmbeddingCacheCleanupJob(embedCacheRepo, cfg.Jobs.EmbedCacheKeepDays), cfg.Jobs.EmbedCacheCron); err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	deps := handler.RouterDeps{
		Devices:        handler.NewDeviceHandler(deviceService),
		Documents:      handler.NewDocumentHandler(documentService),
		Chat:           handler.NewChatHandler(chatService),
		Templates:      handler.NewTemplateHandler(templateService),
		ChatRateWindow: time.Duration(cfg.ChatRateLimitMS) * time.Millisecond,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(nil),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
