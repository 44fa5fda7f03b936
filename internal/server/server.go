/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package server provides the HTTP dashboard API over the supervisor.
// server 包在管理器之上提供 HTTP 仪表盘 API。
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mltoolx/mltoolX/internal/config"
	"github.com/mltoolx/mltoolX/internal/history"
	"github.com/mltoolx/mltoolX/internal/installer"
	"github.com/mltoolx/mltoolX/internal/supervisor"
)

// Server serves the dashboard REST API.
// Server 提供仪表盘 REST API。
type Server struct {
	cfg        *config.Config
	supervisor *supervisor.Supervisor
	installer  *installer.Installer
	historyRep *history.Repository
	logger     *zap.Logger
	engine     *gin.Engine
	httpServer *http.Server
}

// New creates the dashboard server. The history repository may be nil
// when launch history is disabled.
// New 创建仪表盘服务器。启动历史被禁用时 history 仓储可以为 nil。
func New(cfg *config.Config, sup *supervisor.Supervisor, inst *installer.Installer, historyRep *history.Repository, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		cfg:        cfg,
		supervisor: sup,
		installer:  inst,
		historyRep: historyRep,
		logger:     logger,
		engine:     engine,
	}

	engine.Use(s.loggerMiddleware())
	s.setupRoutes()
	return s
}

// Engine exposes the gin engine, mainly for tests
// Engine 暴露 gin 引擎，主要用于测试
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// setupRoutes registers the dashboard API routes
// setupRoutes 注册仪表盘 API 路由
func (s *Server) setupRoutes() {
	api := s.engine.Group("/api/v1")
	{
		api.GET("/tools", s.listTools)
		api.POST("/tools/:id/launch", s.launchTool)
		api.POST("/tools/:id/stop", s.stopTool)
		api.GET("/tools/:id/status", s.toolStatus)
		api.GET("/tools/:id/logs", s.toolLogs)
		api.GET("/history", s.listHistory)
	}

	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// loggerMiddleware logs each request through zap
// loggerMiddleware 通过 zap 记录每个请求
func (s *Server) loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// Start serves the dashboard until the context is cancelled or the
// listener fails.
// Start 提供仪表盘服务，直到上下文取消或监听失败。
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    s.cfg.Dashboard.ListenAddr,
		Handler: s.engine,
	}

	s.logger.Info("dashboard listening",
		zap.String("addr", s.cfg.Dashboard.ListenAddr))

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the dashboard gracefully
// Shutdown 优雅地停止仪表盘
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("stopping dashboard")
	return s.httpServer.Shutdown(ctx)
}
