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

package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mltoolx/mltoolX/internal/history"
	"github.com/mltoolx/mltoolX/internal/supervisor"
)

// Default number of log lines returned by the logs endpoint
// 日志端点默认返回的日志行数
const defaultLogLines = 100

// ==================== Request/Response Types 请求/响应类型 ====================

// LaunchRequest is the body for POST /api/v1/tools/:id/launch
// LaunchRequest 是 POST /api/v1/tools/:id/launch 的请求体
type LaunchRequest struct {
	// CustomArgs are appended after all configured arguments
	// CustomArgs 追加在所有已配置参数之后
	CustomArgs []string `json:"custom_args"`

	// HardwareProfile names an optional hardware profile
	// HardwareProfile 指定可选的硬件配置名称
	HardwareProfile string `json:"hardware_profile"`
}

// Response is the generic API envelope
// Response 是通用的 API 响应封装
type Response struct {
	ErrorMsg string      `json:"error_msg,omitempty"`
	Data     interface{} `json:"data,omitempty"`
}

// ToolInfo describes one configured tool for the tools listing
// ToolInfo 描述工具列表中的一个已配置工具
type ToolInfo struct {
	ToolID    string                 `json:"tool_id"`
	Name      string                 `json:"name"`
	Installed bool                   `json:"installed"`
	Status    supervisor.Status      `json:"status"`
	Record    *supervisor.RecordInfo `json:"record,omitempty"`
}

// ==================== API Handlers API 处理器 ====================

// launchTool handles POST /api/v1/tools/:id/launch
// launchTool 处理 POST /api/v1/tools/:id/launch
func (s *Server) launchTool(c *gin.Context) {
	toolID := c.Param("id")

	var req LaunchRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, Response{ErrorMsg: err.Error()})
			return
		}
	}

	if err := s.supervisor.Launch(toolID, req.CustomArgs, req.HardwareProfile); err != nil {
		c.JSON(launchStatusCode(err), Response{ErrorMsg: err.Error()})
		return
	}

	c.JSON(http.StatusOK, Response{Data: gin.H{
		"tool_id": toolID,
		"status":  s.supervisor.StatusOf(toolID),
	}})
}

// launchStatusCode maps launch errors to HTTP status codes
// launchStatusCode 将启动错误映射为 HTTP 状态码
func launchStatusCode(err error) int {
	switch {
	case errors.Is(err, supervisor.ErrUnknownTool):
		return http.StatusNotFound
	case errors.Is(err, supervisor.ErrNotInstalled),
		errors.Is(err, supervisor.ErrAlreadyRunning):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// stopTool handles POST /api/v1/tools/:id/stop
// stopTool 处理 POST /api/v1/tools/:id/stop
func (s *Server) stopTool(c *gin.Context) {
	toolID := c.Param("id")

	if err := s.supervisor.Stop(toolID); err != nil {
		c.JSON(http.StatusInternalServerError, Response{ErrorMsg: err.Error()})
		return
	}

	c.JSON(http.StatusOK, Response{Data: gin.H{
		"tool_id": toolID,
		"status":  s.supervisor.StatusOf(toolID),
	}})
}

// toolStatus handles GET /api/v1/tools/:id/status
// toolStatus 处理 GET /api/v1/tools/:id/status
func (s *Server) toolStatus(c *gin.Context) {
	toolID := c.Param("id")

	if _, ok := s.cfg.Tool(toolID); !ok {
		c.JSON(http.StatusNotFound, Response{ErrorMsg: "unknown tool: " + toolID})
		return
	}

	c.JSON(http.StatusOK, Response{Data: gin.H{
		"tool_id": toolID,
		"status":  s.supervisor.StatusOf(toolID),
	}})
}

// toolLogs handles GET /api/v1/tools/:id/logs?lines=n
// toolLogs 处理 GET /api/v1/tools/:id/logs?lines=n
func (s *Server) toolLogs(c *gin.Context) {
	toolID := c.Param("id")

	if _, ok := s.cfg.Tool(toolID); !ok {
		c.JSON(http.StatusNotFound, Response{ErrorMsg: "unknown tool: " + toolID})
		return
	}

	lines := defaultLogLines
	if raw := c.Query("lines"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, Response{ErrorMsg: "invalid lines parameter"})
			return
		}
		lines = parsed
	}

	logs := s.supervisor.Logs(toolID, lines)
	if logs == nil {
		logs = []string{}
	}

	c.JSON(http.StatusOK, Response{Data: gin.H{
		"tool_id": toolID,
		"lines":   logs,
	}})
}

// listTools handles GET /api/v1/tools
// listTools 处理 GET /api/v1/tools
func (s *Server) listTools(c *gin.Context) {
	infos := make([]ToolInfo, 0, len(s.cfg.Tools))
	for toolID, tool := range s.cfg.Tools {
		info := ToolInfo{
			ToolID:    toolID,
			Name:      tool.Name,
			Installed: s.installer.Installed(toolID),
			Status:    s.supervisor.StatusOf(toolID),
		}
		if rec, ok := s.supervisor.Registry().Get(toolID); ok {
			recInfo := rec.Info()
			info.Record = &recInfo
		}
		infos = append(infos, info)
	}

	c.JSON(http.StatusOK, Response{Data: infos})
}

// listHistory handles GET /api/v1/history?tool_id=&limit=
// listHistory 处理 GET /api/v1/history?tool_id=&limit=
func (s *Server) listHistory(c *gin.Context) {
	if s.historyRep == nil {
		c.JSON(http.StatusOK, Response{Data: []*history.LaunchRecord{}})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, Response{ErrorMsg: "invalid limit parameter"})
			return
		}
		limit = parsed
	}

	records, err := s.historyRep.List(c.Request.Context(), c.Query("tool_id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{ErrorMsg: err.Error()})
		return
	}

	c.JSON(http.StatusOK, Response{Data: records})
}
