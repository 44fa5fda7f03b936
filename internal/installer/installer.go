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

// Package installer answers "is this tool installed" and fetches a
// tool's repository when it is not. Interpreter environment creation
// and dependency installation are owned by the provisioning pipeline,
// not by this package.
// installer 包回答"该工具是否已安装"，并在未安装时拉取工具仓库。
// 解释器环境创建和依赖安装由环境准备流水线负责，不属于本包。
package installer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"go.uber.org/zap"

	"github.com/mltoolx/mltoolX/internal/config"
)

// Common installer errors
// 常见安装器错误
var (
	// ErrUnknownTool indicates the tool identifier has no configuration
	// ErrUnknownTool 表示工具标识符没有对应配置
	ErrUnknownTool = errors.New("installer: unknown tool")

	// ErrNoRepo indicates the tool definition has no repository URL
	// ErrNoRepo 表示工具定义没有仓库地址
	ErrNoRepo = errors.New("installer: tool has no repository configured")

	// ErrCloneFailed indicates the repository clone failed
	// ErrCloneFailed 表示仓库克隆失败
	ErrCloneFailed = errors.New("installer: repository clone failed")
)

// Installer checks and establishes tool installation state.
// Installer 检查并建立工具的安装状态。
type Installer struct {
	cfg    *config.Config
	logger *zap.Logger
}

// New creates an Installer
// New 创建 Installer
func New(cfg *config.Config, logger *zap.Logger) *Installer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Installer{cfg: cfg, logger: logger}
}

// Installed reports whether the tool's directory exists
// Installed 报告工具目录是否存在
func (i *Installer) Installed(toolID string) bool {
	info, err := os.Stat(i.cfg.ToolDir(toolID))
	return err == nil && info.IsDir()
}

// Install clones the tool's repository into the tools root. A tool that
// is already installed is left untouched. Clone output is streamed
// line-by-line into the supervisor log.
// Install 将工具仓库克隆到工具根目录。已安装的工具不做任何改动。
// 克隆输出逐行写入管理器日志。
func (i *Installer) Install(ctx context.Context, toolID string) error {
	tool, ok := i.cfg.Tool(toolID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTool, toolID)
	}
	if tool.Repo == "" {
		return fmt.Errorf("%w: %q", ErrNoRepo, toolID)
	}

	toolDir := i.cfg.ToolDir(toolID)
	if i.Installed(toolID) {
		i.logger.Info("tool already installed",
			zap.String("tool_id", toolID),
			zap.String("dir", toolDir))
		return nil
	}

	if err := os.MkdirAll(i.cfg.ToolsRoot, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrCloneFailed, err)
	}

	i.logger.Info("cloning tool repository",
		zap.String("tool_id", toolID),
		zap.String("repo", tool.Repo),
		zap.String("dir", toolDir))

	cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1", tool.Repo, toolDir)
	stream, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCloneFailed, err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrCloneFailed, err)
	}

	scanner := bufio.NewScanner(stream)
	for scanner.Scan() {
		i.logger.Info("git clone",
			zap.String("tool_id", toolID),
			zap.String("line", scanner.Text()))
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%w: %v", ErrCloneFailed, err)
	}

	i.logger.Info("tool installed",
		zap.String("tool_id", toolID),
		zap.String("dir", toolDir))
	return nil
}
