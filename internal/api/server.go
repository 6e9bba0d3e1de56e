package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aescanero/dago-node-calculator/internal/calculator"
	"github.com/aescanero/dago-node-calculator/internal/config"
	"github.com/aescanero/dago-node-calculator/internal/eval/template"
)

// Server serves the calculator page and the JSON API
type Server struct {
	port          int
	maxExprLength int
	calculator    *calculator.Calculator
	presets       *config.Presets
	templates     *template.Engine
	logger        *zap.Logger
	engine        *gin.Engine
	server        *http.Server
}

// NewServer creates a new API server. The page template is compiled up
// front so a broken template fails at startup.
func NewServer(cfg *config.Config, calc *calculator.Calculator, presets *config.Presets, logger *zap.Logger) (*Server, error) {
	s := &Server{
		port:          cfg.APIPort,
		maxExprLength: cfg.MaxExpressionLength,
		calculator:    calc,
		presets:       presets,
		templates:     template.NewEngine(),
		logger:        logger,
	}
	if err := s.templates.ValidateTemplate(pageTemplate); err != nil {
		return nil, fmt.Errorf("page template: %w", err)
	}

	router := gin.New()
	router.Use(requestLogger(logger), recovery(logger))
	router.Use(cors.New(corsConfig(cfg.AllowOrigins)))

	s.addRoutes(router)
	s.engine = router
	return s, nil
}

func corsConfig(origins []string) cors.Config {
	cc := cors.Config{
		AllowMethods:  []string{"GET", "POST"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Content-Length", requestIDHeader},
		ExposeHeaders: []string{"Content-Type", "Content-Length", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cc.AllowAllOrigins = true
			return cc
		}
	}
	cc.AllowOrigins = origins
	return cc
}

func (s *Server) addRoutes(router *gin.Engine) {
	router.GET("/", s.handlePage)

	v1 := router.Group("/api/v1")
	v1.POST("/calculate", requirePayload(), s.handleCalculate)
	v1.POST("/plot", requirePayload(), s.handlePlot)
	v1.GET("/plot/image", s.handlePlotImage)
	v1.GET("/presets", s.handlePresets)
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start starts the API server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.Info("starting api server",
		zap.Int("port", s.port),
		zap.String("backend", s.calculator.Backend()),
	)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("api server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully stops the API server
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("stopping api server")
	return s.server.Shutdown(ctx)
}
