package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const readinessTimeout = 2 * time.Second

// HealthChecker 可探活的依赖
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependency 就绪检查项；Required 为 false 时失败只标记为 degraded
type Dependency struct {
	Name     string
	Checker  HealthChecker
	Required bool
}

type HealthHandler struct {
	version string
	deps    []Dependency
}

func NewHealthHandler(version string, deps ...Dependency) *HealthHandler {
	return &HealthHandler{version: version, deps: deps}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health 进程与版本
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: h.version})
}

// Live 存活检查
// @Summary 存活检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Ready 并发探测全部依赖，任一必需依赖失败返回 503
// @Summary 就绪检查
// @Tags System
// @Produce json
// @Success 200 {object} readinessResponse
// @Failure 503 {object} readinessResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	results := make([]*readinessCheck, len(h.deps))
	var g errgroup.Group
	for i, dep := range h.deps {
		g.Go(func() error {
			results[i] = probe(ctx, dep)
			return nil
		})
	}
	_ = g.Wait()

	resp := readinessResponse{Status: "ok", Checks: make(map[string]*readinessCheck, len(h.deps))}
	status := http.StatusOK
	for i, dep := range h.deps {
		resp.Checks[dep.Name] = results[i]
		if dep.Required && results[i].Status != "ok" {
			resp.Status = "not_ready"
			status = http.StatusServiceUnavailable
		}
	}
	c.JSON(status, resp)
}

func probe(ctx context.Context, dep Dependency) *readinessCheck {
	if dep.Checker == nil {
		return &readinessCheck{Status: "missing"}
	}
	start := time.Now()
	err := dep.Checker.HealthCheck(ctx)
	check := &readinessCheck{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		check.Error = err.Error()
		check.Status = "error"
		if !dep.Required {
			check.Status = "degraded"
		}
	}
	return check
}
