package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"health-report-service/config"
	"health-report-service/database"
	"health-report-service/handlers"
	"health-report-service/metrics"
	"health-report-service/scorer"
	"health-report-service/service"
	"health-report-service/version"
)

func main() {
	cfg := config.Load()

	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.Warnf("Unknown LOG_LEVEL %q, keeping info", cfg.LogLevel)
	}
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	v := version.Get("health-report-service")
	log.WithFields(log.Fields{"version": v.Version, "git_sha": v.GitSHA}).Info("Starting the service...")

	if cfg.AIAPIKey == "" && cfg.AIProvider != "stub" {
		log.Warn("No AI credential configured, wound scoring requests will fail")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	db, err := database.NewDatabase(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	err = db.EnsureSchema(ctx)
	cancel()
	if err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	sc, err := scorer.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize scorer: %v", err)
	}
	log.Infof("Wound scorer provider=%s", sc.SourceName())

	uploads, err := handlers.NewUploader(cfg.UploadDir, cfg.MaxUploadBytes)
	if err != nil {
		log.Fatalf("Failed to initialize uploads: %v", err)
	}

	metrics.Register()

	svc := service.NewReportService(db, sc, cfg.RenderWidth, cfg.RenderHeight)
	h := handlers.NewHandlers(svc, uploads, db)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: setupRouter(cfg, h, uploads.Dir()),
	}

	go func() {
		log.Infof("Starting HTTP server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}

func setupRouter(cfg *config.Config, h *handlers.Handlers, uploadDir string) *gin.Engine {
	router := gin.Default()
	router.MaxMultipartMemory = cfg.MaxUploadBytes

	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || slices.Contains(cfg.AllowedOrigins, "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	}
	router.Use(cors.New(corsConfig))

	// Images are already compressed.
	router.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPathsRegexs([]string{`/image$`, `^/(api/)?uploads/`}),
	))

	router.Static("/uploads", uploadDir)
	router.Static("/api/uploads", uploadDir)

	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	router.GET("/version", h.Version)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h.RegisterRoutes(router.Group("/reports"))
	h.RegisterRoutes(router.Group("/api/reports"))

	return router
}
