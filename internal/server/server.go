package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"sentiment-api/internal/config"
	"sentiment-api/internal/handler"
	"sentiment-api/internal/inference"
	"sentiment-api/internal/middleware"
	"sentiment-api/internal/repository"
	"sentiment-api/internal/service"
)

type Server struct {
	router  *gin.Engine
	db      *sqlx.DB
	cfg     *config.Config
	adapter *inference.Adapter
	logger  *zap.Logger
	log     *logrus.Logger
}

func NewServer(db *sqlx.DB, cfg *config.Config, adapter *inference.Adapter, logger *zap.Logger, log *logrus.Logger) *Server {
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		router:  router,
		db:      db,
		cfg:     cfg,
		adapter: adapter,
		logger:  logger,
		log:     log,
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestLogger(s.log))

	jwtSecret := []byte(s.cfg.Auth.JWTSecret)
	tokenTTL := time.Duration(s.cfg.Auth.TokenTTLHours) * time.Hour

	authRepo := repository.NewAuthRepository(s.db, s.logger)
	submissionRepo := repository.NewSubmissionRepository(s.db, s.logger)
	resultRepo := repository.NewResultRepository(s.db, s.logger)

	authService := service.NewAuthService(authRepo, jwtSecret, tokenTTL, s.logger)
	analysisService := service.NewAnalysisService(submissionRepo, resultRepo, s.adapter,
		s.cfg.Analysis.MaxTextLength, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.log)
	sentimentHandler := handler.NewSentimentHandler(analysisService, authService, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.adapter, s.logger)

	// Open routes
	s.router.GET("/health/", healthHandler.Health)
	s.router.POST("/register/", authHandler.Register)
	s.router.POST("/login/", authHandler.Login)

	// Authenticated routes
	authRequired := s.router.Group("/")
	authRequired.Use(middleware.AuthMiddleware(jwtSecret, s.logger))
	{
		authRequired.POST("/sentiment/analyze/", sentimentHandler.Analyze)
		authRequired.GET("/sentiment/analyze/", sentimentHandler.History)
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests. A
// request mid-pipeline finishes its compensating writes before the
// process exits.
func (s *Server) Run(ctx context.Context, addr string) {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("Server shutdown failed: %v", err)
		}
	}()

	s.log.Infof("Server starting on %s...", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Fatalf("Server failed to start: %v", err)
	}
	s.log.Info("Server stopped.")
}
