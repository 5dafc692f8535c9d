package frontend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mikey/llm-action-extractor/internal/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// shutdownTimeout bounds how long Stop waits for in-flight requests
const shutdownTimeout = 10 * time.Second

// HTTPFrontend exposes the orchestrator over a JSON HTTP API
type HTTPFrontend struct {
	echo          *echo.Echo
	orchestrator  *core.Orchestrator
	gatherer      prometheus.Gatherer
	logger        *zap.Logger
	listenAddress string
}

// AnalyzeRequest is the request body for POST /v1/analyze
type AnalyzeRequest struct {
	Text    string                `json:"text"`
	Context *core.AnalysisContext `json:"context,omitempty"`
	Options core.AnalyzeOptions   `json:"options"`
}

// QueueRequest is the request body for POST /v1/queue
type QueueRequest struct {
	Text     string                `json:"text"`
	Context  *core.AnalysisContext `json:"context,omitempty"`
	Priority int                   `json:"priority"`
}

// QueueResponse is the response body for POST /v1/queue
type QueueResponse struct {
	RequestID   string `json:"requestId"`
	QueueLength int    `json:"queueLength"`
}

// Millis is a duration that travels as whole milliseconds. On input it also
// accepts a Go duration string such as "1.5s".
type Millis time.Duration

// MarshalJSON encodes the duration as milliseconds
func (m Millis) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(time.Duration(m).Milliseconds(), 10)), nil
}

// UnmarshalJSON decodes milliseconds or a duration string
func (m *Millis) UnmarshalJSON(data []byte) error {
	var d time.Duration
	if bytes.HasPrefix(data, []byte(`"`)) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		d = parsed
	} else {
		var ms float64
		if err := json.Unmarshal(data, &ms); err != nil {
			return fmt.Errorf("duration must be milliseconds or a duration string: %w", err)
		}
		d = time.Duration(ms * float64(time.Millisecond))
	}
	if d < 0 {
		return fmt.Errorf("duration must not be negative: %s", d)
	}
	*m = Millis(d)
	return nil
}

// SettingsView is the wire form of core.AnalysisSettings
type SettingsView struct {
	core.AnalysisSettings
	Debounce Millis `json:"debounce"`
}

// NewSettingsView wraps settings for encoding
func NewSettingsView(s core.AnalysisSettings) SettingsView {
	return SettingsView{AnalysisSettings: s, Debounce: Millis(s.Debounce)}
}

// Settings unwraps the view
func (v SettingsView) Settings() core.AnalysisSettings {
	s := v.AnalysisSettings
	s.Debounce = time.Duration(v.Debounce)
	return s
}

// SettingsPatch is the request body for PATCH /v1/settings
type SettingsPatch struct {
	core.SettingsUpdate
	Debounce *Millis `json:"debounce,omitempty"`
}

// Update converts the patch into a core update
func (p SettingsPatch) Update() core.SettingsUpdate {
	u := p.SettingsUpdate
	if p.Debounce != nil {
		d := time.Duration(*p.Debounce)
		u.Debounce = &d
	}
	return u
}

// NewHTTPFrontend creates a new HTTP frontend. gatherer backs GET /metrics.
func NewHTTPFrontend(
	orchestrator *core.Orchestrator,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
	listenAddress string,
) *HTTPFrontend {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Debug("HTTP request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)))
			return err
		}
	})

	f := &HTTPFrontend{
		echo:          e,
		orchestrator:  orchestrator,
		gatherer:      gatherer,
		logger:        logger,
		listenAddress: listenAddress,
	}
	f.registerRoutes()
	return f
}

func (f *HTTPFrontend) registerRoutes() {
	f.echo.GET("/healthz", f.handleHealth)
	f.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(f.gatherer, promhttp.HandlerOpts{})))

	v1 := f.echo.Group("/v1")
	v1.POST("/analyze", f.handleAnalyze)
	v1.POST("/queue", f.handleQueue)
	v1.GET("/settings", f.handleGetSettings)
	v1.PATCH("/settings", f.handleUpdateSettings)
	v1.POST("/settings/reset", f.handleResetSettings)
	v1.POST("/cancel", f.handleCancel)
	v1.GET("/metrics", f.handleMetrics)
}

// Analyze runs one immediate analysis
func (f *HTTPFrontend) Analyze(ctx context.Context, text string, actx *core.AnalysisContext) (*core.AnalysisResult, error) {
	return f.orchestrator.AnalyzeText(ctx, text, actx, core.AnalyzeOptions{}), nil
}

// Handler returns the HTTP handler, for embedding and tests
func (f *HTTPFrontend) Handler() http.Handler {
	return f.echo
}

func (f *HTTPFrontend) handleHealth(c echo.Context) error {
	report := f.orchestrator.HealthCheck(c.Request().Context())
	status := http.StatusOK
	if report.Status == core.HealthUnhealthy {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, report)
}

func (f *HTTPFrontend) handleAnalyze(c echo.Context) error {
	var req AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		f.logger.Warn("Invalid analyze request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text field is required")
	}

	res := f.orchestrator.AnalyzeText(c.Request().Context(), req.Text, req.Context, req.Options)
	return c.JSON(http.StatusOK, res)
}

func (f *HTTPFrontend) handleQueue(c echo.Context) error {
	var req QueueRequest
	if err := c.Bind(&req); err != nil {
		f.logger.Warn("Invalid queue request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text field is required")
	}

	id := f.orchestrator.QueueAnalysis(req.Text, req.Context, req.Priority)
	if id == "" {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "analysis queue is closed")
	}
	return c.JSON(http.StatusAccepted, QueueResponse{
		RequestID:   id,
		QueueLength: f.orchestrator.QueueLength(),
	})
}

func (f *HTTPFrontend) handleGetSettings(c echo.Context) error {
	return c.JSON(http.StatusOK, NewSettingsView(f.orchestrator.GetSettings()))
}

func (f *HTTPFrontend) handleUpdateSettings(c echo.Context) error {
	var patch SettingsPatch
	if err := c.Bind(&patch); err != nil {
		f.logger.Warn("Invalid settings update", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return c.JSON(http.StatusOK, NewSettingsView(f.orchestrator.UpdateSettings(patch.Update())))
}

func (f *HTTPFrontend) handleResetSettings(c echo.Context) error {
	return c.JSON(http.StatusOK, NewSettingsView(f.orchestrator.ResetSettings()))
}

func (f *HTTPFrontend) handleCancel(c echo.Context) error {
	f.orchestrator.CancelAll()
	return c.NoContent(http.StatusNoContent)
}

func (f *HTTPFrontend) handleMetrics(c echo.Context) error {
	return c.JSON(http.StatusOK, f.orchestrator.Metrics())
}

// Start serves until Stop is called
func (f *HTTPFrontend) Start() error {
	f.logger.Info("Starting HTTP frontend", zap.String("address", f.listenAddress))
	if err := f.echo.Start(f.listenAddress); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully
func (f *HTTPFrontend) Stop() error {
	f.logger.Info("Stopping HTTP frontend")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return f.echo.Shutdown(ctx)
}
