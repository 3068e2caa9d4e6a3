// Package http HTTP API 服务器
//
// 基于 gin 提供链查询、交易校验、区块导入与出块接口，
// 以及 Prometheus 指标端点 /metrics。
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/weisyn/executive/internal/api/http/handlers"
	"github.com/weisyn/executive/internal/api/http/middleware"
	apiconfig "github.com/weisyn/executive/internal/config/api"
	"github.com/weisyn/executive/internal/core/infrastructure/metrics"
	"github.com/weisyn/executive/pkg/interfaces/infrastructure/log"
)

// Server HTTP API服务器
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	options    *apiconfig.APIOptions
	logger     log.Logger

	chain    handlers.ChainService
	recorder *metrics.Recorder // 可选
}

// NewServer 创建HTTP API服务器并注册路由
//
// recorder 为 nil 时不注册 /metrics 与请求指标中间件。
func NewServer(options *apiconfig.APIOptions, chain handlers.ChainService, recorder *metrics.Recorder, logger log.Logger) (*Server, error) {
	if options == nil {
		return nil, fmt.Errorf("API 配置不能为空")
	}
	if chain == nil {
		return nil, fmt.Errorf("链服务不能为空")
	}
	if options.GinMode != "" {
		gin.SetMode(options.GinMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(logger))

	s := &Server{
		router:   router,
		options:  options,
		logger:   logger,
		chain:    chain,
		recorder: recorder,
	}
	if recorder != nil && options.EnableMetrics {
		m, err := middleware.NewMetrics(recorder.Registry())
		if err != nil {
			return nil, fmt.Errorf("注册 API 指标失败: %w", err)
		}
		router.Use(m.Middleware())
	}
	router.Use(middleware.ErrorHandler(logger))

	s.setupRoutes()
	return s, nil
}

// setupRoutes 设置HTTP路由
func (s *Server) setupRoutes() {
	v1 := s.router.Group("/v1")
	handlers.NewChainHandlers(s.chain, s.logger).RegisterRoutes(v1, s.options.EnableProduce)
	handlers.NewHealthHandler(s.chain).RegisterRoutes(s.router)

	if s.recorder != nil && s.options.EnableMetrics {
		s.router.GET("/metrics", gin.WrapH(s.recorder.Handler()))
	}
}

// Handler 返回路由处理器（测试与内嵌使用）
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start 在后台启动监听
//
// 监听失败（如端口占用）在返回前报告。
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.options.ListenAddr)
	if err != nil {
		return fmt.Errorf("HTTP 监听 %s 失败: %w", s.options.ListenAddr, err)
	}
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if s.logger != nil {
		s.logger.Infof("HTTP API 服务器启动，监听地址: %s", listener.Addr())
	}
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			if s.logger != nil {
				s.logger.Errorf("HTTP服务器错误: %v", err)
			}
		}
	}()
	return nil
}

// Stop 优雅关闭HTTP服务器
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if s.logger != nil {
		s.logger.Info("正在关闭HTTP API服务器...")
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
