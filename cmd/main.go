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

// Package main is the entry point for the mltoolX supervisor.
// main 包是 mltoolX 管理器的入口点。
//
// mltoolX manages long-running ML tool back-end processes:
// mltoolX 管理长时间运行的 ML 工具后端进程：
// - Launches tools on demand and monitors their output / 按需启动工具并监控其输出
// - Infers status from unstructured log text / 从非结构化日志文本推断状态
// - Stops tools gracefully, escalating to a forced kill / 优雅停止工具，必要时升级为强制终止
// - Serves a REST dashboard for remote callers / 为远程调用方提供 REST 仪表盘
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mltoolx/mltoolX/internal/config"
	"github.com/mltoolx/mltoolX/internal/history"
	"github.com/mltoolx/mltoolX/internal/installer"
	"github.com/mltoolx/mltoolX/internal/logging"
	"github.com/mltoolx/mltoolX/internal/server"
	"github.com/mltoolx/mltoolX/internal/supervisor"
)

// Version information, set at build time
// 版本信息，在构建时设置
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// configFile is the path to the configuration file
// configFile 是配置文件的路径
var configFile string

// rootCmd is the root command for the supervisor CLI
// rootCmd 是管理器 CLI 的根命令
var rootCmd = &cobra.Command{
	Use:   "mltoolx",
	Short: "mltoolX - ML tool backend supervisor / ML 工具后端进程管理器",
	Long: `mltoolX manages long-running ML tool back-end processes.
mltoolX 管理长时间运行的 ML 工具后端进程。

It launches configured tools on demand, monitors their output to infer
status, keeps recent log lines in memory, persists full logs per launch,
and stops tools with a graceful-then-forced escalation.
它按需启动已配置的工具，监控输出以推断状态，在内存中保留最近的日志行，
为每次启动持久化完整日志，并以先优雅后强制的策略停止工具。`,
}

// versionCmd shows version information
// versionCmd 显示版本信息
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information / 打印版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mltoolX\n")
		fmt.Printf("  Version:    %s\n", Version)
		fmt.Printf("  Git Commit: %s\n", GitCommit)
		fmt.Printf("  Build Time: %s\n", BuildTime)
		fmt.Printf("  Go Version: %s\n", runtime.Version())
		fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

// serveCmd runs the supervisor daemon with the REST dashboard
// serveCmd 运行带 REST 仪表盘的管理器守护进程
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the supervisor daemon with the dashboard API / 运行带仪表盘 API 的管理器守护进程",
	RunE:  runServe,
}

// launchCmd launches a tool in the foreground and follows its output
// launchCmd 在前台启动工具并跟随其输出
var launchCmd = &cobra.Command{
	Use:   "launch <tool-id> [-- custom args...]",
	Short: "Launch a tool in the foreground / 在前台启动工具",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLaunch,
}

// installCmd clones a tool's repository
// installCmd 克隆工具仓库
var installCmd = &cobra.Command{
	Use:   "install <tool-id>",
	Short: "Clone a tool's repository into the tools root / 将工具仓库克隆到工具根目录",
	Args:  cobra.ExactArgs(1),
	RunE:  runInstall,
}

// hardwareProfile is the optional hardware profile for launch
// hardwareProfile 是启动时可选的硬件配置
var hardwareProfile string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (default: /etc/mltoolx/config.yaml)")

	launchCmd.Flags().StringVarP(&hardwareProfile, "profile", "p", "",
		"hardware profile name / 硬件配置名称")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(launchCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(listCmd)
}

// loadConfig loads and validates the configuration plus tool definitions
// loadConfig 加载并验证配置以及工具定义
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.LoadTools(cfg.ToolsDefDir); err != nil {
		return nil, fmt.Errorf("failed to load tool definitions: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// wireHistory connects supervisor lifecycle events to the launch
// history store. Returns nil when history is disabled.
// wireHistory 将管理器生命周期事件接入启动历史存储。
// 历史被禁用时返回 nil。
func wireHistory(cfg *config.Config, sup *supervisor.Supervisor, logger *zap.Logger) (*history.Repository, error) {
	if !cfg.Database.Enabled {
		return nil, nil
	}

	db, err := history.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	repo := history.NewRepository(db)

	sup.SetEventHandler(func(event supervisor.Event, info supervisor.RecordInfo) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		switch event {
		case supervisor.EventLaunched:
			err := repo.Create(ctx, &history.LaunchRecord{
				LaunchID:    info.LaunchID,
				ToolID:      info.ToolID,
				Command:     strings.Join(info.Command, " "),
				LogFilePath: info.LogFilePath,
				Status:      string(info.Status),
				StartedAt:   info.StartTime,
			})
			if err != nil {
				logger.Error("failed to record launch",
					zap.String("launch_id", info.LaunchID),
					zap.Error(err))
			}
		case supervisor.EventExited, supervisor.EventStopped:
			err := repo.Finish(ctx, info.LaunchID, string(info.Status))
			if err != nil && err != history.ErrLaunchNotFound {
				logger.Error("failed to finish launch record",
					zap.String("launch_id", info.LaunchID),
					zap.Error(err))
			}
		}
	})

	return repo, nil
}

// runServe is the daemon entry point
// runServe 是守护进程入口点
func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	sup := supervisor.New(cfg, logger)
	inst := installer.New(cfg, logger)

	historyRep, err := wireHistory(cfg, sup, logger)
	if err != nil {
		return fmt.Errorf("failed to open launch history: %w", err)
	}

	srv := server.New(cfg, sup, inst, historyRep, logger)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errChan:
		if err != nil {
			return err
		}
	}

	// Stop every tracked tool before exiting.
	// 退出前停止每个被跟踪的工具。
	for _, info := range sup.List() {
		if info.Status != supervisor.StatusStopped {
			if err := sup.Stop(info.ToolID); err != nil {
				logger.Error("failed to stop tool during shutdown",
					zap.String("tool_id", info.ToolID),
					zap.Error(err))
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// runLaunch launches one tool and follows it until interrupted
// runLaunch 启动一个工具并跟随，直到被中断
func runLaunch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	sup := supervisor.New(cfg, logger)

	if _, err := wireHistory(cfg, sup, logger); err != nil {
		return fmt.Errorf("failed to open launch history: %w", err)
	}

	toolID := args[0]
	customArgs := args[1:]

	if err := sup.Launch(toolID, customArgs, hardwareProfile); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Follow buffered output until the tool exits or we are told to stop.
	// 跟随缓冲输出，直到工具退出或收到停止指令。
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, line := range sup.Logs(toolID, 200) {
				fmt.Println(line)
			}
			if sup.StatusOf(toolID) == supervisor.StatusStopped {
				return nil
			}
		case sig := <-sigChan:
			fmt.Printf("\nReceived signal: %v, stopping %s\n", sig, toolID)
			return sup.Stop(toolID)
		}
	}
}

// runInstall clones a tool's repository
// runInstall 克隆工具仓库
func runInstall(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	inst := installer.New(cfg, logger)
	return inst.Install(cmd.Context(), args[0])
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
