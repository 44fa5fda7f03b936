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

// Package config provides configuration management for the supervisor.
// config 包提供进程管理器的配置管理功能。
//
// Configuration loading priority (highest to lowest):
// 配置加载优先级（从高到低）：
// 1. Environment variables / 环境变量
// 2. Configuration file / 配置文件
// 3. Default values / 默认值
//
// Tool definitions are loaded separately from a tools.d directory,
// one YAML file per managed tool.
// 工具定义从 tools.d 目录单独加载，每个托管工具一个 YAML 文件。
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Default configuration values
// 默认配置值
const (
	DefaultConfigPath    = "/etc/mltoolx/config.yaml"
	DefaultToolsRoot     = "/content"
	DefaultToolsDefDir   = "/etc/mltoolx/tools.d"
	DefaultLogDir        = "/var/log/mltoolx/tools"
	DefaultModelsDir     = "/content/models"
	DefaultLogLevel      = "info"
	DefaultLogFile       = "/var/log/mltoolx/mltoolx.log"
	DefaultLogMaxSize    = 100 // MB
	DefaultLogMaxBackups = 3
	DefaultLogMaxAge     = 7 // days
	DefaultListenAddr    = ":7800"
	DefaultDatabasePath  = "/var/lib/mltoolx/history.db"
)

// Common configuration errors
// 常见配置错误
var (
	// ErrNoToolsRoot indicates the tools root directory is not configured
	// ErrNoToolsRoot 表示未配置工具根目录
	ErrNoToolsRoot = errors.New("config: tools root directory is required")

	// ErrNoToolsDefined indicates no tool definitions were loaded
	// ErrNoToolsDefined 表示未加载任何工具定义
	ErrNoToolsDefined = errors.New("config: no tool definitions found")
)

// Config represents the supervisor configuration
// Config 表示进程管理器配置
type Config struct {
	// ToolsRoot is the directory under which each tool is installed,
	// one sub-directory per tool identifier.
	// ToolsRoot 是每个工具的安装目录，每个工具标识符对应一个子目录。
	ToolsRoot string `mapstructure:"tools_root"`

	// ToolsDefDir is the directory holding per-tool YAML definitions.
	// ToolsDefDir 是存放每个工具 YAML 定义的目录。
	ToolsDefDir string `mapstructure:"tools_def_dir"`

	// LogDir is where per-launch tool log files are written.
	// LogDir 是每次启动的工具日志文件的写入目录。
	LogDir string `mapstructure:"log_dir"`

	// ModelsDir is the centralized model directory substituted into
	// model-centralization argument templates.
	// ModelsDir 是集中式模型目录，会替换到模型集中化参数模板中。
	ModelsDir string `mapstructure:"models_dir"`

	// Dashboard configuration / 仪表盘配置
	Dashboard DashboardConfig `mapstructure:"dashboard"`

	// Database configuration for launch history / 启动历史数据库配置
	Database DatabaseConfig `mapstructure:"database"`

	// Log configuration for the supervisor's own log / 管理器自身日志配置
	Log LogConfig `mapstructure:"log"`

	// Tools holds the loaded tool definitions, keyed by tool identifier.
	// Populated by LoadTools, not by viper.
	// Tools 保存已加载的工具定义，以工具标识符为键。
	// 由 LoadTools 填充，不由 viper 填充。
	Tools map[string]*ToolConfig `mapstructure:"-"`
}

// DashboardConfig contains HTTP dashboard settings
// DashboardConfig 包含 HTTP 仪表盘设置
type DashboardConfig struct {
	// Enabled indicates whether the HTTP dashboard is served
	// Enabled 表示是否提供 HTTP 仪表盘
	Enabled bool `mapstructure:"enabled"`

	// ListenAddr is the dashboard listen address
	// ListenAddr 是仪表盘监听地址
	ListenAddr string `mapstructure:"listen_addr"`
}

// DatabaseConfig contains launch history database settings
// DatabaseConfig 包含启动历史数据库设置
type DatabaseConfig struct {
	// Enabled indicates whether launch history is persisted
	// Enabled 表示是否持久化启动历史
	Enabled bool `mapstructure:"enabled"`

	// Path is the SQLite database file path
	// Path 是 SQLite 数据库文件路径
	Path string `mapstructure:"path"`
}

// LogConfig contains logging settings
// LogConfig 包含日志设置
type LogConfig struct {
	// Level is the log level (debug, info, warn, error)
	// Level 是日志级别（debug、info、warn、error）
	Level string `mapstructure:"level"`

	// File is the log file path (empty for console only)
	// File 是日志文件路径（为空时仅输出到控制台）
	File string `mapstructure:"file"`

	// MaxSize is the maximum log file size in MB before rotation
	// MaxSize 是轮转前的最大日志文件大小（MB）
	MaxSize int `mapstructure:"max_size"`

	// MaxBackups is the maximum number of rotated files to retain
	// MaxBackups 是保留的轮转文件的最大数量
	MaxBackups int `mapstructure:"max_backups"`

	// MaxAge is the maximum age of rotated files in days
	// MaxAge 是轮转文件的最大保留天数
	MaxAge int `mapstructure:"max_age"`
}

// Load loads the configuration from a file with environment overrides.
// Load 从文件加载配置，并应用环境变量覆盖。
// If configPath is empty, DefaultConfigPath is tried; a missing default
// file is not an error and defaults apply.
// 如果 configPath 为空，则尝试 DefaultConfigPath；默认文件缺失不是错误，使用默认值。
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Environment variables: MLTOOLX_TOOLS_ROOT, MLTOOLX_LOG_LEVEL, ...
	// 环境变量：MLTOOLX_TOOLS_ROOT、MLTOOLX_LOG_LEVEL 等
	v.SetEnvPrefix("MLTOOLX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := configPath != ""
	if !explicit {
		configPath = DefaultConfigPath
	}
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		// The default config file is optional; an explicit one is not.
		// 默认配置文件是可选的；显式指定的配置文件不是。
		if explicit || !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers the default configuration values
// setDefaults 注册默认配置值
func setDefaults(v *viper.Viper) {
	v.SetDefault("tools_root", DefaultToolsRoot)
	v.SetDefault("tools_def_dir", DefaultToolsDefDir)
	v.SetDefault("log_dir", DefaultLogDir)
	v.SetDefault("models_dir", DefaultModelsDir)

	v.SetDefault("dashboard.enabled", true)
	v.SetDefault("dashboard.listen_addr", DefaultListenAddr)

	v.SetDefault("database.enabled", true)
	v.SetDefault("database.path", DefaultDatabasePath)

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.file", DefaultLogFile)
	v.SetDefault("log.max_size", DefaultLogMaxSize)
	v.SetDefault("log.max_backups", DefaultLogMaxBackups)
	v.SetDefault("log.max_age", DefaultLogMaxAge)
}

// Validate checks the configuration for required values
// Validate 检查配置的必填项
func (c *Config) Validate() error {
	if c.ToolsRoot == "" {
		return ErrNoToolsRoot
	}
	if len(c.Tools) == 0 {
		return ErrNoToolsDefined
	}
	for id, tool := range c.Tools {
		if err := tool.Validate(); err != nil {
			return fmt.Errorf("tool %q: %w", id, err)
		}
	}
	return nil
}

// Tool returns the definition for a tool identifier
// Tool 返回工具标识符对应的定义
func (c *Config) Tool(toolID string) (*ToolConfig, bool) {
	tool, ok := c.Tools[toolID]
	return tool, ok
}

// ToolDir returns the installation directory for a tool identifier
// ToolDir 返回工具标识符对应的安装目录
func (c *Config) ToolDir(toolID string) string {
	return filepath.Join(c.ToolsRoot, toolID)
}
