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

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Model centralization methods
// 模型集中化方式
const (
	// CentralizeNone means the tool keeps its own model directory
	// CentralizeNone 表示工具使用自己的模型目录
	CentralizeNone = "none"

	// CentralizeCLIArgs means the shared model directory is passed on
	// the command line, with ModelsDirPlaceholder substituted
	// CentralizeCLIArgs 表示共享模型目录通过命令行传递，
	// 并替换 ModelsDirPlaceholder 占位符
	CentralizeCLIArgs = "cli_args"

	// ModelsDirPlaceholder is replaced by the configured models directory
	// in centralization argument templates
	// ModelsDirPlaceholder 在集中化参数模板中被替换为配置的模型目录
	ModelsDirPlaceholder = "{models_dir}"
)

// Tool definition errors
// 工具定义错误
var (
	// ErrToolNoInterpreter indicates a tool definition without an interpreter
	// ErrToolNoInterpreter 表示工具定义缺少解释器
	ErrToolNoInterpreter = errors.New("config: tool interpreter is required")

	// ErrToolNoEntryScript indicates a tool definition without an entry script
	// ErrToolNoEntryScript 表示工具定义缺少入口脚本
	ErrToolNoEntryScript = errors.New("config: tool entry script is required")
)

// ToolConfig describes one managed ML tool back-end.
// ToolConfig 描述一个托管的 ML 工具后端。
//
// The definition mirrors the per-tool setup table: where the tool comes
// from, which interpreter runs it, and which arguments it is started with.
// 该定义对应每个工具的安装配置表：工具来源、运行它的解释器、
// 以及启动参数。
type ToolConfig struct {
	// Name is the human-readable display name
	// Name 是人类可读的显示名称
	Name string `yaml:"name"`

	// Repo is the git repository the tool is installed from
	// Repo 是安装工具所用的 git 仓库
	Repo string `yaml:"repo"`

	// Interpreter is the interpreter executable used to run the tool.
	// A relative path is resolved against the tool's directory, so a
	// per-tool virtual environment interpreter like "venv/bin/python"
	// works without knowing the tools root.
	// Interpreter 是运行工具的解释器可执行文件。
	// 相对路径相对于工具目录解析，因此像 "venv/bin/python" 这样的
	// 工具内虚拟环境解释器无需知道工具根目录即可使用。
	Interpreter string `yaml:"interpreter"`

	// EntryScript is the script passed to the interpreter, relative to
	// the tool's directory.
	// EntryScript 是传给解释器的脚本，相对于工具目录。
	EntryScript string `yaml:"entry_script"`

	// DefaultArgs are always appended after the entry script
	// DefaultArgs 总是追加在入口脚本之后
	DefaultArgs []string `yaml:"default_args"`

	// HardwareProfiles maps a profile name to extra arguments. A launch
	// naming an unknown profile simply omits the profile arguments.
	// HardwareProfiles 将配置名称映射到额外参数。启动时指定未知配置名
	// 只会省略配置参数。
	HardwareProfiles map[string][]string `yaml:"hardware_profiles"`

	// ModelCentralization describes how the shared model directory is
	// wired into the tool, if at all.
	// ModelCentralization 描述共享模型目录如何接入该工具（如果需要）。
	ModelCentralization Centralization `yaml:"model_centralization"`

	// RequirementsFile is the tool's python requirements file name.
	// Recorded from the setup table; dependency resolution itself is
	// performed by the provisioning pipeline, not the supervisor.
	// RequirementsFile 是工具的 python 依赖文件名。
	// 来自安装配置表的记录；依赖解析由环境准备流水线完成，而非管理器。
	RequirementsFile string `yaml:"requirements_file"`

	// PostInstall lists post-install compatibility commands, recorded
	// from the setup table for the provisioning pipeline.
	// PostInstall 列出安装后的兼容性命令，来自安装配置表，
	// 供环境准备流水线使用。
	PostInstall []string `yaml:"post_install"`
}

// Centralization describes the model-centralization method for a tool
// Centralization 描述工具的模型集中化方式
type Centralization struct {
	// Method is one of CentralizeNone or CentralizeCLIArgs
	// Method 是 CentralizeNone 或 CentralizeCLIArgs 之一
	Method string `yaml:"method"`

	// Args is the argument template used when Method is CentralizeCLIArgs;
	// each argument may contain ModelsDirPlaceholder.
	// Args 是 Method 为 CentralizeCLIArgs 时使用的参数模板；
	// 每个参数都可以包含 ModelsDirPlaceholder。
	Args []string `yaml:"args"`
}

// Validate checks the tool definition for required values
// Validate 检查工具定义的必填项
func (t *ToolConfig) Validate() error {
	if t.Interpreter == "" {
		return ErrToolNoInterpreter
	}
	if t.EntryScript == "" {
		return ErrToolNoEntryScript
	}
	return nil
}

// LoadTools loads all tool definitions from the given directory into
// c.Tools. The tool identifier is the YAML file name without extension.
// LoadTools 从给定目录加载所有工具定义到 c.Tools。
// 工具标识符是 YAML 文件名去掉扩展名。
func (c *Config) LoadTools(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read tool definitions directory %s: %w", dir, err)
	}

	tools := make(map[string]*ToolConfig)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read tool definition %s: %w", path, err)
		}

		tool := &ToolConfig{}
		if err := yaml.Unmarshal(data, tool); err != nil {
			return fmt.Errorf("failed to parse tool definition %s: %w", path, err)
		}

		toolID := strings.TrimSuffix(name, ext)
		if tool.Name == "" {
			tool.Name = toolID
		}
		tools[toolID] = tool
	}

	c.Tools = tools
	return nil
}
