package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aescanero/dago-node-calculator/internal/calculator"
)

// Pinger checks the Redis connection
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// selfCheck is evaluated on every health probe
const (
	selfCheckExpression = "2 + 2"
	selfCheckResult     = "4"
)

// HealthServer provides HTTP health check endpoints
type HealthServer struct {
	port        int
	redisClient Pinger
	calculator  *calculator.Calculator
	logger      *zap.Logger
	server      *http.Server
}

// NewHealthServer creates a new health server. redisClient may be nil when
// the stream worker is disabled.
func NewHealthServer(port int, redisClient Pinger, calc *calculator.Calculator, logger *zap.Logger) *HealthServer {
	return &HealthServer{
		port:        port,
		redisClient: redisClient,
		calculator:  calc,
		logger:      logger,
	}
}

// Handler returns the health check routes
func (hs *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", hs.handleHealth)
	mux.HandleFunc("/ready", hs.handleReady)
	return mux
}

// Start starts the health check server
func (hs *HealthServer) Start() error {
	hs.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", hs.port),
		Handler:           hs.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	hs.logger.Info("starting health server", zap.Int("port", hs.port))

	go func() {
		if err := hs.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			hs.logger.Error("health server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the health check server
func (hs *HealthServer) Stop() error {
	if hs.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hs.logger.Info("stopping health server")
	return hs.server.Shutdown(ctx)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string            `json:"status"`
	Backend string            `json:"backend,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
	// CachedPrograms is set for backends that cache compiled expressions
	CachedPrograms *int `json:"cached_programs,omitempty"`
}

// handleHealth handles the /health endpoint
func (hs *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string)
	healthy := true

	// Check the calculator answers a known expression
	if err := hs.checkCalculator(ctx); err != nil {
		checks["calculator"] = fmt.Sprintf("unhealthy: %v", err)
		healthy = false
	} else {
		checks["calculator"] = "healthy"
	}

	// Check Redis connection
	if hs.redisClient != nil {
		if err := hs.redisClient.Ping(ctx).Err(); err != nil {
			checks["redis"] = fmt.Sprintf("unhealthy: %v", err)
			healthy = false
		} else {
			checks["redis"] = "healthy"
		}
	}

	resp := HealthResponse{
		Status:  "healthy",
		Backend: hs.calculator.Backend(),
		Checks:  checks,
	}
	if n, ok := hs.calculator.CachedPrograms(); ok {
		resp.CachedPrograms = &n
	}

	if !healthy {
		resp.Status = "unhealthy"
		hs.respondJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	// All checks passed
	hs.respondJSON(w, http.StatusOK, resp)
}

// handleReady handles the /ready endpoint
func (hs *HealthServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	// Check if Redis is ready
	if hs.redisClient != nil {
		if err := hs.redisClient.Ping(ctx).Err(); err != nil {
			hs.respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status: "not ready",
			})
			return
		}
	}

	// Worker is ready
	hs.respondJSON(w, http.StatusOK, HealthResponse{
		Status: "ready",
	})
}

func (hs *HealthServer) checkCalculator(ctx context.Context) error {
	calc, err := hs.calculator.Evaluate(ctx, selfCheckExpression)
	if err != nil {
		return err
	}
	if calc.Result != selfCheckResult {
		return fmt.Errorf("%s evaluated to %s", selfCheckExpression, calc.Result)
	}
	return nil
}

// respondJSON writes a JSON response
func (hs *HealthServer) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		hs.logger.Error("failed to encode response", zap.Error(err))
	}
}
