package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"wax-intake/config"
	"wax-intake/internal/handler"
	"wax-intake/internal/middleware"
	"wax-intake/internal/redis"
	"wax-intake/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Submission *handler.SubmissionHandler
	Admin      *handler.AdminHandler
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.MaxMultipartMemory = cfg.MaxUploadBytes()

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.AppPort),
			Handler: engine,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

func (s *Server) SetupRoutes(handlers *Handlers, limiter redis.UploadLimiter) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(cors.New(cors.Config{
		AllowOrigins: s.config.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	s.engine.Use(middleware.LoggingMiddleware(s.logger))

	s.engine.GET("/healthz", handler.Health)

	s.engine.POST("/upload",
		middleware.RateLimitMiddleware(limiter),
		middleware.BodyLimitMiddleware(s.config.MaxUploadBytes()),
		handlers.Submission.Upload,
	)

	if handlers.Admin != nil {
		api := s.engine.Group("/api")
		{
			api.GET("/submissions", handlers.Admin.List)
			api.GET("/submissions/:id", handlers.Admin.GetByID)
		}
	}

	// Serve the built browser client; any unknown path falls back to
	// its index so client-side routing keeps working.
	if s.config.StaticDir != "" {
		s.engine.Static("/assets", filepath.Join(s.config.StaticDir, "assets"))
		s.engine.StaticFile("/", filepath.Join(s.config.StaticDir, "index.html"))
		s.engine.NoRoute(func(c *gin.Context) {
			if c.Request.Method == http.MethodGet && !strings.HasPrefix(c.Request.URL.Path, "/api") {
				c.File(filepath.Join(s.config.StaticDir, "index.html"))
				return
			}
			c.JSON(http.StatusNotFound, gin.H{"message": "not found"})
		})
	}
}

func (s *Server) Start() error {
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	<-quit

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}

	return nil
}
