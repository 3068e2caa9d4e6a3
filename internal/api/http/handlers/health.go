package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apitypes "github.com/weisyn/executive/internal/api/http/types"
	"github.com/weisyn/executive/internal/app/version"
)

// HealthHandler 健康检查端点处理器
//
//   - /health/live:  进程是否响应
//   - /health/ready: 链已初始化创世区块
type HealthHandler struct {
	chain     ChainService
	startTime time.Time
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(chain ChainService) *HealthHandler {
	return &HealthHandler{chain: chain, startTime: time.Now()}
}

// RegisterRoutes 注册健康检查路由
func (h *HealthHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health/live", h.GetLiveness)
	r.GET("/health/ready", h.GetReadiness)
}

// GetLiveness 存活检查
func (h *HealthHandler) GetLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, h.report("healthy", ""))
}

// GetReadiness 就绪检查
func (h *HealthHandler) GetReadiness(c *gin.Context) {
	head, err := h.chain.Head(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, h.report("unhealthy", ""))
		return
	}
	c.JSON(http.StatusOK, h.report("healthy", head.String()))
}

func (h *HealthHandler) report(status, head string) *apitypes.HealthResponse {
	return &apitypes.HealthResponse{
		Status:  status,
		Head:    head,
		Version: version.GetVersion(),
		Uptime:  time.Since(h.startTime).Truncate(time.Second).String(),
	}
}
