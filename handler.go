package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"lg/oxyn-energy-api/energy"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Handler holds shared dependencies for all route handlers.
type Handler struct {
	store   snapshotStore
	saver   *snapshotSaver
	metrics *metricsManager
	now     func() time.Time // overridable for tests
}

func newHandler(store snapshotStore, saver *snapshotSaver, metrics *metricsManager) *Handler {
	return &Handler{
		store:   store,
		saver:   saver,
		metrics: metrics,
		now:     time.Now,
	}
}

// apiError returns a consistent JSON error response: {"error": "message"}.
func apiError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// rejectionReason is the metrics label for a failed energy.Calculate.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, energy.ErrInvalidProfile):
		return "invalid_profile"
	case errors.Is(err, energy.ErrUnknownActivityLevel):
		return "unknown_activity_level"
	case errors.Is(err, energy.ErrUnknownStrategy):
		return "unknown_strategy"
	case errors.Is(err, energy.ErrInvalidHorizon):
		return "invalid_horizon"
	default:
		return "other"
	}
}

// rejectInput records and reports a calculator validation failure as a 400.
func (h *Handler) rejectInput(c *gin.Context, err error) {
	h.metrics.CounterRejectedInputs.WithLabelValues(rejectionReason(err)).Inc()
	apiError(c, http.StatusBadRequest, err.Error())
}

/* ─── Middleware ──────────────────────────────────────────────────────── */

// requestMetrics counts and times every request.
func (h *Handler) requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.metrics.HistRequestDuration.Observe(time.Since(start).Seconds())
		h.metrics.CounterRequests.WithLabelValues(c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// requestLogger logs one line per request at debug level, and errors at warn.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warnln("[http] request failed")
			return
		}
		entry.Debugln("[http] request")
	}
}

/* ─── Routes ──────────────────────────────────────────────────────────── */

// newRouter builds the gin engine with all routes. reg backs /metrics.
func newRouter(h *Handler, reg prometheus.Gatherer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(), h.requestMetrics())
	router.SetTrustedProxies(nil)

	h.registerRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	return router
}

// registerRoutes registers all API routes on the router. There is no authentication:
// snapshot keys are unguessable uuids or caller-chosen names.
func (h *Handler) registerRoutes(router *gin.Engine) {
	api := router.Group("/api")

	api.GET("/energy/activity-levels", h.listActivityLevels)
	api.GET("/energy/strategies", h.listStrategies)
	api.GET("/energy/zones", h.getCalorieZones)
	api.POST("/energy/calculate", h.calculate)

	api.POST("/snapshots", h.createSnapshot)
	api.GET("/snapshots/:key", h.getSnapshot)
	api.PUT("/snapshots/:key", h.putSnapshot)
	api.PUT("/snapshots/:key/draft", h.putSnapshotDraft)
	api.DELETE("/snapshots/:key", h.deleteSnapshot)
}
