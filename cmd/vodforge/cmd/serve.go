package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/semaphore"

	"github.com/jmylchreest/vodforge/internal/config"
	"github.com/jmylchreest/vodforge/internal/database"
	"github.com/jmylchreest/vodforge/internal/ffmpeg"
	"github.com/jmylchreest/vodforge/internal/ffprobe"
	internalhttp "github.com/jmylchreest/vodforge/internal/http"
	"github.com/jmylchreest/vodforge/internal/http/handlers"
	"github.com/jmylchreest/vodforge/internal/http/middleware"
	"github.com/jmylchreest/vodforge/internal/ingest"
	"github.com/jmylchreest/vodforge/internal/objectstore"
	"github.com/jmylchreest/vodforge/internal/pipeline"
	"github.com/jmylchreest/vodforge/internal/playback"
	"github.com/jmylchreest/vodforge/internal/presence"
	"github.com/jmylchreest/vodforge/internal/progress"
	"github.com/jmylchreest/vodforge/internal/storage"
	"github.com/jmylchreest/vodforge/internal/transcode"
	"github.com/jmylchreest/vodforge/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the vodforge server",
	Long: `Start the vodforge HTTP server.

The server accepts single-shot and chunked video uploads, probes and
transcodes them into an HLS rendition ladder, uploads the result to
S3-compatible object storage, and serves authenticated playback.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	// cfgFile is the same --config flag initConfig() uses for log-level
	// discovery; config.Load re-reads it through its own viper instance
	// (precedence: VODFORGE_ env vars, then file, then defaults).
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := database.New(cfg.Database, logger, nil)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	sandbox, err := storage.NewSandbox(cfg.Storage.BaseDir)
	if err != nil {
		return fmt.Errorf("initializing storage sandbox: %w", err)
	}

	objectStoreClient, err := objectstore.NewClient(cfg.ObjectStore)
	if err != nil {
		return fmt.Errorf("initializing object store client: %w", err)
	}

	ffmpegPath, ffprobePath := resolveFFmpegBinaries(cfg.Transcode, logger)

	registry := progress.NewRegistry()
	ingestManager := ingest.New(sandbox, registry)
	prober := ffprobe.New(ffprobePath, cfg.Transcode.ProbeTimeout)
	transcodeSem := semaphore.NewWeighted(int64(cfg.Transcode.MaxConcurrentEncodes))
	orchestrator := transcode.New(ffmpegPath, prober, transcodeSem, registry, cfg.Transcode.TranscodeTimeout)
	uploader := objectstore.New(objectStoreClient, registry, cfg.Transcode.MaxConcurrentUploads)

	videoPipeline := pipeline.New(sandbox, orchestrator, uploader, db.DB, registry, cfg.Transcode.Encoder, cfg.ObjectStore.PublicBaseURL)

	authorizer := playback.NewAuthorizer(cfg.Auth.HMACSecret, cfg.Auth.TokenTTL)
	presenceTracker := presence.NewTracker()

	serverConfig := internalhttp.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	server := internalhttp.NewServer(serverConfig, logger, version.Version)

	requireAdminHuma := middleware.RequireAdminHuma(server.API(), cfg.Auth.AdminPassword)

	docsHandler := handlers.NewDocsHandler("vodforge API", "/openapi.yaml", handlers.WithSystemTheme())
	server.Router().Get("/docs", docsHandler.ServeHTTP)

	healthHandler := handlers.NewHealthHandler(version.Version).WithDB(db.DB)
	healthHandler.Register(server.API())

	uploadHandler := handlers.NewUploadHandler(sandbox, ingestManager, registry, videoPipeline)
	uploadHandler.Register(server.API(), requireAdminHuma)

	queuesHandler := handlers.NewQueuesHandler(registry, ingestManager)
	queuesHandler.Register(server.API(), requireAdminHuma)

	// AnalyticsWarehouse has no shipped implementation (external
	// collaborator); analytics detail/history respond 501 until a
	// deployment wires one in.
	videosHandler := handlers.NewVideosHandler(db.DB, nil)
	videosHandler.Register(server.API(), requireAdminHuma)

	progressHandler := handlers.NewProgressHandler(registry)
	progressHandler.Register(server.API())
	progressHandler.RegisterSSE(server.Router().With(middleware.RequireAdminQueryOrHeader(cfg.Auth.AdminPassword)))

	playbackHandler := playback.NewHandler(db, objectStoreClient, authorizer)
	playbackHandler.Register(server.Router())

	presenceHandler := presence.NewHandler(presenceTracker)
	presenceHandler.Register(server.Router())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	logger.Info("starting vodforge server",
		slog.String("host", serverConfig.Host),
		slog.Int("port", serverConfig.Port),
		slog.String("version", version.Version),
		slog.String("encoder", cfg.Transcode.Encoder),
	)

	return server.ListenAndServe(ctx)
}

// resolveFFmpegBinaries returns the configured ffmpeg/ffprobe paths, or
// auto-detects them via PATH lookup when left unconfigured. Detection
// failures are logged but not fatal: the literal binary name is passed
// through and the first real invocation will surface a clear error if
// ffmpeg truly isn't installed.
func resolveFFmpegBinaries(cfg config.TranscodeConfig, logger *slog.Logger) (ffmpegPath, ffprobePath string) {
	ffmpegPath, ffprobePath = cfg.BinaryPath, cfg.ProbePath
	if ffmpegPath != "" && ffprobePath != "" {
		return ffmpegPath, ffprobePath
	}

	info, err := ffmpeg.NewBinaryDetector().Detect(context.Background())
	if err != nil {
		logger.Warn("ffmpeg binary auto-detection failed, falling back to PATH lookup", slog.String("error", err.Error()))
		if ffmpegPath == "" {
			ffmpegPath = "ffmpeg"
		}
		if ffprobePath == "" {
			ffprobePath = "ffprobe"
		}
		return ffmpegPath, ffprobePath
	}

	if ffmpegPath == "" {
		ffmpegPath = info.FFmpegPath
	}
	if ffprobePath == "" {
		ffprobePath = info.FFprobePath
	}
	logger.Info("detected ffmpeg installation", slog.String("version", info.Version), slog.String("ffmpeg_path", ffmpegPath), slog.String("ffprobe_path", ffprobePath))
	return ffmpegPath, ffprobePath
}
