package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go-attack-planner/internal/config"
	apperrors "go-attack-planner/internal/errors"
	"go-attack-planner/internal/goal"
	"go-attack-planner/internal/logger"
	"go-attack-planner/internal/service"
	"go-attack-planner/internal/session"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	ginprometheus "github.com/zsais/go-gin-prometheus"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message,omitempty"`
	Type       string `json:"type,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	Details    string `json:"details,omitempty"`
}

// Dependencies are the services the routes delegate to.
type Dependencies struct {
	Plans    service.PlanService
	Sessions *session.Store
	Resolver *service.ImageResolver
	// Stats, when set, backs GET /stats.
	Stats func() map[string]interface{}
}

type handler struct {
	plans    service.PlanService
	sessions *session.Store
	resolver *service.ImageResolver
	cfg      *config.Config
}

func NewHandler(deps Dependencies, cfg *config.Config) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	if cfg.MetricsEnabled {
		p := ginprometheus.NewPrometheus("gin")
		p.ReqCntURLLabelMappingFn = routeLabel
		p.Use(r)
	}

	// Size limits apply before errorHandler so oversized uploads render as 413.
	r.Use(
		cors.New(corsConfig(cfg.AllowedOrigins())),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	h := &handler{
		plans:    deps.Plans,
		sessions: deps.Sessions,
		resolver: deps.Resolver,
		cfg:      cfg,
	}

	r.GET("/health", healthCheck)
	if deps.Stats != nil {
		r.GET("/stats", func(c *gin.Context) { c.JSON(http.StatusOK, deps.Stats()) })
	}

	r.GET("/goals/presets", listPresets)
	r.POST("/goals/validate", validateGoal)
	r.POST("/directions", parseDirections)
	r.POST("/plans", h.createPlan)

	s := r.Group("/sessions")
	s.POST("", h.createSession)
	s.GET("/:id", h.getSession)
	s.DELETE("/:id", h.deleteSession)
	s.PUT("/:id/images/:slot", h.putImage)
	s.GET("/:id/images/:slot", h.getImage)
	s.DELETE("/:id/images/:slot", h.deleteImage)
	s.PUT("/:id/goal", h.putGoal)
	s.POST("/:id/generate", h.generate)
	s.POST("/:id/reset", h.reset)
	s.GET("/:id/events", h.events)
	s.GET("/:id/phases/:n/overlay", h.overlay)

	return r
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) > 0 {
		cfg.AllowOrigins = origins
	} else {
		cfg.AllowAllOrigins = true
	}
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type"}
	cfg.MaxAge = 12 * time.Hour
	return cfg
}

// routeLabel keeps session IDs out of the request metric labels.
func routeLabel(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return "unmatched"
}

// requestLogger logs server errors at warn and everything else at debug.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":             c.Request.Method,
			"path":               c.Request.URL.Path,
			"status":             c.Writer.Status(),
			"processing_time_ms": time.Since(start).Milliseconds(),
			"ip":                 c.ClientIP(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("Request completed with server error")
			return
		}
		entry.Debug("Request completed")
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			respondError(c, http.StatusRequestEntityTooLarge, "request body too large",
				apperrors.NewInputError(fmt.Sprintf("request body exceeds %d bytes", maxBytes), nil))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last().Err
			respondError(c, determineStatusCode(err), "request processing failed", err)
		}
	}
}

func determineStatusCode(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}

	if appErr, ok := apperrors.As(err); ok {
		return appErr.StatusCode
	}

	// Deadlines come from RequestTimeout; cancellation from the client leaving.
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	entry := logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	})
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}

	resp := ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	}
	if appErr, ok := apperrors.As(err); ok {
		resp.Message = appErr.Message
		resp.Type = string(appErr.Type)
		resp.Reason = appErr.Reason
		if appErr.Reason == goal.ReasonOffTopic {
			resp.Suggestion = appErr.Details
		} else {
			resp.Details = appErr.Details
		}
	}
	c.AbortWithStatusJSON(code, resp)
}

// bindJSON decodes the body, reporting malformed input as an InputError.
func bindJSON(c *gin.Context, v interface{}) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return apperrors.NewInputError("invalid request format", err)
	}
	return nil
}
