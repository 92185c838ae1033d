package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Skufu/vitalcalc/internal/calculators"
	"github.com/Skufu/vitalcalc/internal/engine"
	"github.com/Skufu/vitalcalc/internal/report"
)

const requestIDHeader = "X-Request-ID"

// Deps is what the HTTP layer needs. DB and Cache are nil when disabled.
type Deps struct {
	Registry *calculators.Registry
	DB       HealthChecker
	Cache    HealthChecker
	Logger   *zap.Logger
}

func setupRouter(deps Deps, staticRoot string) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(
		requestLogger(deps.Logger),
		gin.Recovery(),
		limitBodySize(1<<20), // 1MB max body
		cors.New(cors.Config{
			AllowOrigins:  []string{"*"},
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
			ExposeHeaders: []string{requestIDHeader, "Content-Disposition"},
			MaxAge:        12 * time.Hour,
		}),
	)

	// Serve the calculator frontend from the directory holding index.html.
	router.Static("/static", staticRoot)
	router.StaticFile("/", filepath.Join(staticRoot, "index.html"))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := gin.H{"status": "ok"}
		for name, dep := range map[string]HealthChecker{"db": deps.DB, "cache": deps.Cache} {
			if dep == nil {
				body[name] = "disabled"
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				body[name] = fmt.Sprintf("unhealthy: %v", err)
				body["status"] = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			body[name] = "ok"
		}
		c.JSON(status, body)
	})

	api := router.Group("/api")
	api.GET("/calculators", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"calculators": deps.Registry.Metrics()})
	})

	h := &assessmentHandler{registry: deps.Registry, log: deps.Logger}
	api.POST("/assessments/:metric", h.assess)
	api.POST("/assessments/:metric/report", h.report)

	return router
}

type assessmentHandler struct {
	registry *calculators.Registry
	log      *zap.Logger
}

func (h *assessmentHandler) assess(c *gin.Context) {
	res, ok := h.run(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, present(res))
}

func (h *assessmentHandler) report(c *gin.Context) {
	res, ok := h.run(c)
	if !ok {
		return
	}
	data, err := report.Render(res)
	if err != nil {
		h.log.Error("render report", zap.String("metric", res.Metric), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "report generation failed"})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s-assessment.xlsx", res.Metric))
	c.Data(http.StatusOK, report.ContentType, data)
}

// run looks up the metric and assesses the body, writing the error response
// itself when it returns false.
func (h *assessmentHandler) run(c *gin.Context) (*engine.AssessmentResult, bool) {
	metric := c.Param("metric")
	a, ok := h.registry.Get(metric)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown calculator %q", metric)})
		return nil, false
	}

	raw, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
			return nil, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return nil, false
	}

	res, err := a.AssessJSON(raw)
	if err != nil {
		writeAssessError(c, h.log, metric, err)
		return nil, false
	}
	return res, true
}

func writeAssessError(c *gin.Context, log *zap.Logger, metric string, err error) {
	var verr *engine.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation_failed", "fields": verr.Fields})
	case errors.Is(err, engine.ErrMalformedInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
	default:
		log.Error("assessment failed", zap.String("metric", metric), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)

		c.Next()

		log.Info("request",
			zap.String("request_id", id),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

func limitBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
