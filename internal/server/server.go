package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ifuryst/contentos/internal/config"
	"github.com/ifuryst/contentos/internal/service"
)

type Server struct {
	Config *config.Config
	Router *gin.Engine
	Logger *zap.Logger
	Server *http.Server

	// Services
	Projects  *service.ProjectRegistry
	Auth      *service.AuthService
	Scheduler *service.Scheduler

	now func() time.Time
}

// NewServer connects every project database and builds the HTTP surface.
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	manager, err := service.NewChannelManager(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize publishers: %w", err)
	}

	projects, err := service.OpenProjects(cfg, manager, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize projects: %w", err)
	}

	return New(cfg, projects, logger), nil
}

// New builds the server around an existing project registry.
func New(cfg *config.Config, projects *service.ProjectRegistry, logger *zap.Logger) *Server {
	// Set gin mode
	gin.SetMode(cfg.Server.Mode)

	router := gin.New()

	srv := &Server{
		Config:    cfg,
		Router:    router,
		Logger:    logger,
		Projects:  projects,
		Auth:      service.NewAuthService(logger, cfg.Auth.CronSecret, cfg.Auth.TOTPSecret),
		Scheduler: service.NewScheduler(cfg.Scheduler.Enabled, cfg.SweepInterval(), logger, projects),
		now:       time.Now,
	}

	srv.setupMiddleware()
	srv.setupRoutes()

	return srv
}

func (s *Server) setupMiddleware() {
	s.Router.Use(gin.Recovery())

	s.Router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	})

	// CORS middleware
	s.Router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, "+service.TOTPHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})
}

func (s *Server) setupRoutes() {
	s.Router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})

	cron := s.Router.Group("/api/cron", s.Auth.CronMiddleware())
	{
		cron.GET("/publish", s.handleCronPublish)
		cron.POST("/publish", s.handleCronPublish)
	}

	api := s.Router.Group("/api/v1")
	{
		api.GET("/projects", s.handleListProjects)

		project := api.Group("/projects/:project", s.projectMiddleware(), s.Auth.OperatorMiddleware())
		{
			project.GET("/content", s.handleListContent)
			project.POST("/content", s.handleCreateContent)
			project.POST("/content/bulk", s.handleBulkTransition)
			project.GET("/content/:id", s.handleGetContent)
			project.GET("/content/:id/logs", s.handleContentLogs)
			project.POST("/content/:id/review", s.handleRequestReview)
			project.POST("/content/:id/approve", s.handleApprove)
			project.POST("/content/:id/reject", s.handleReject)
			project.POST("/content/:id/reset", s.handleResetToDraft)
			project.POST("/content/:id/schedule", s.handleSchedule)
			project.POST("/content/:id/publish", s.handlePublish)

			project.GET("/scheduled", s.handleScheduled)
			project.GET("/logs", s.handlePublishLogs)
			project.GET("/pipeline-logs", s.handlePipelineLogs)
			project.GET("/newsletters", s.handleListNewsletters)
			project.GET("/newsletters/:id", s.handleGetNewsletter)
			project.POST("/newsletters/:id/advance", s.handleAdvanceNewsletter)
			project.GET("/channels", s.handleChannels)
			project.GET("/stats", s.handleStats)
		}
	}
}

func (s *Server) Start(ctx context.Context) error {
	if err := s.Scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)

	s.Server = &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.Logger.Info("Starting HTTP server", zap.String("addr", addr))

	if s.Config.Server.CertFile != "" && s.Config.Server.KeyFile != "" {
		return s.Server.ListenAndServeTLS(s.Config.Server.CertFile, s.Config.Server.KeyFile)
	}

	return s.Server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	// Stop scheduler first
	s.Scheduler.Stop()

	if s.Server != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		if err := s.Server.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}

	return s.Projects.Close()
}
