package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/saikko/imagesense/internal/config"
	"github.com/saikko/imagesense/internal/vision"
)

type Server struct {
	httpServer *http.Server
}

func New(cfg *config.Config, inferrer vision.Inferrer) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:           ":" + cfg.Port,
			Handler:        newRouter(cfg, inferrer),
			ReadTimeout:    60 * time.Second,
			WriteTimeout:   60 * time.Second,
			MaxHeaderBytes: 1 << 20,
		},
	}
}

func newRouter(cfg *config.Config, inferrer vision.Inferrer) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(),
		rateLimiter(),
		gzip.Gzip(gzip.DefaultCompression),
		corsMiddleware(cfg.AllowedOrigins),
	)

	h := newHandler(cfg, inferrer)

	router.GET("/health", h.health)
	router.POST("/analyze", h.analyze)
	router.POST("/upload", h.ask)
	router.Static("/uploads", cfg.UploadDir)

	return router
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	if len(origins) == 1 && origins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	return cors.New(corsConfig)
}

func (s *Server) Run() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
