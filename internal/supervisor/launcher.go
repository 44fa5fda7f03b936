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

package supervisor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mltoolx/mltoolX/internal/config"
)

// Launch starts the tool's back-end process and begins monitoring it.
// Launch 启动工具的后端进程并开始监控。
//
// The command line is assembled in a fixed order: interpreter, entry
// script, default arguments, hardware-profile arguments (omitted when
// the named profile does not exist), centralized-model arguments (only
// for the cli_args centralization method), then custom arguments.
// stdout and stderr are merged into one stream and the working
// directory is the tool's own directory.
// 命令行按固定顺序组装：解释器、入口脚本、默认参数、硬件配置参数
//（指定的配置不存在时省略）、集中模型参数（仅 cli_args 集中化方式）、
// 最后是自定义参数。stdout 和 stderr 合并为一个流，
// 工作目录为工具自身目录。
//
// A tool whose current record has not reached stopped must be stopped
// before it can be launched again.
// 当前记录尚未到达 stopped 的工具必须先停止才能再次启动。
func (s *Supervisor) Launch(toolID string, customArgs []string, hardwareProfile string) error {
	tool, ok := s.cfg.Tool(toolID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTool, toolID)
	}

	// The tool directory must exist: launch never provisions.
	// 工具目录必须存在：启动操作从不负责安装。
	toolDir := s.cfg.ToolDir(toolID)
	if info, err := os.Stat(toolDir); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %q (directory %s missing)", ErrNotInstalled, toolID, toolDir)
	}

	// The live-record check and the later Register must be one atomic
	// step, or two concurrent launches could both pass the check and the
	// second Register would orphan the first process.
	// 存活记录检查与后面的 Register 必须是一个原子步骤，
	// 否则两个并发启动可能同时通过检查，第二次 Register 会遗弃第一个进程。
	s.launchMu.Lock()
	defer s.launchMu.Unlock()

	if rec, ok := s.registry.Get(toolID); ok && rec.Status() != StatusStopped {
		return fmt.Errorf("%w: %q", ErrAlreadyRunning, toolID)
	}

	args := buildCommandArgs(tool, toolDir, hardwareProfile, customArgs, s.cfg.ModelsDir)

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = toolDir

	// Merge stdout and stderr into a single stream for the monitor.
	// 将 stdout 和 stderr 合并为供监视器读取的单一流。
	stream, err := cmd.StdoutPipe()
	if err != nil {
		s.logger.Error("failed to open output pipe",
			zap.String("tool_id", toolID),
			zap.Error(err))
		return fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}
	cmd.Stderr = cmd.Stdout

	now := time.Now()
	logPath := filepath.Join(s.cfg.LogDir,
		fmt.Sprintf("%s-%s.log", toolID, now.Format("20060102-150405")))

	if err := os.MkdirAll(s.cfg.LogDir, 0o755); err != nil {
		s.logger.Error("failed to create log directory",
			zap.String("tool_id", toolID),
			zap.String("log_dir", s.cfg.LogDir),
			zap.Error(err))
		return fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}

	if err := cmd.Start(); err != nil {
		// Spawn failure leaves no registry entry behind.
		// 生成失败不会留下注册表条目。
		s.logger.Error("failed to spawn process",
			zap.String("tool_id", toolID),
			zap.Strings("command", args),
			zap.Error(err))
		return fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}

	rec := &ProcessRecord{
		ToolID:      toolID,
		LaunchID:    uuid.NewString(),
		StartTime:   now,
		LogFilePath: logPath,
		Command:     args,
		Tool:        tool,
		Buffer:      NewLogBuffer(s.getBufferCapacity()),
		cmd:         cmd,
		done:        make(chan struct{}),
		status:      StatusStarting,
	}
	s.registry.Register(rec)

	s.logger.Info("launched tool process",
		zap.String("tool_id", toolID),
		zap.String("launch_id", rec.LaunchID),
		zap.Int("pid", rec.PID()),
		zap.String("log_file", logPath),
		zap.Strings("command", args))

	// Deliver the launch event before the monitor can observe an exit,
	// so a short-lived process never reports exited before launched.
	// 在监视器可能观察到退出之前投递启动事件，
	// 使短命进程不会先报告 exited 再报告 launched。
	s.notifyEvent(EventLaunched, rec)

	go s.monitor(rec, stream)
	return nil
}

// buildCommandArgs assembles the resolved argument list for a launch.
// buildCommandArgs 组装一次启动的完整参数列表。
func buildCommandArgs(tool *config.ToolConfig, toolDir, hardwareProfile string, customArgs []string, modelsDir string) []string {
	// A relative interpreter lives inside the tool directory (its venv);
	// it must be resolved here because exec does not consult cmd.Dir.
	// 相对路径的解释器位于工具目录内（其虚拟环境）；
	// 必须在此解析，因为 exec 不会参考 cmd.Dir。
	interpreter := tool.Interpreter
	if !filepath.IsAbs(interpreter) {
		interpreter = filepath.Join(toolDir, interpreter)
	}

	args := []string{interpreter, tool.EntryScript}
	args = append(args, tool.DefaultArgs...)

	if hardwareProfile != "" {
		if profileArgs, ok := tool.HardwareProfiles[hardwareProfile]; ok {
			args = append(args, profileArgs...)
		}
	}

	if tool.ModelCentralization.Method == config.CentralizeCLIArgs {
		for _, arg := range tool.ModelCentralization.Args {
			args = append(args, strings.ReplaceAll(arg, config.ModelsDirPlaceholder, modelsDir))
		}
	}

	args = append(args, customArgs...)
	return args
}
