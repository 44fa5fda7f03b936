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

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// The stop/status/logs/list subcommands talk to a running `serve`
// daemon through its dashboard API.
// stop/status/logs/list 子命令通过仪表盘 API 与正在运行的
// `serve` 守护进程通信。

// stopCmd stops a tool managed by the daemon
// stopCmd 停止由守护进程管理的工具
var stopCmd = &cobra.Command{
	Use:   "stop <tool-id>",
	Short: "Stop a managed tool / 停止托管工具",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			ErrorMsg string `json:"error_msg"`
			Data     struct {
				Status string `json:"status"`
			} `json:"data"`
		}
		if err := callDashboard(http.MethodPost, "/api/v1/tools/"+args[0]+"/stop", nil, &resp); err != nil {
			return err
		}
		if resp.ErrorMsg != "" {
			return fmt.Errorf("%s", resp.ErrorMsg)
		}
		fmt.Printf("%s: %s\n", args[0], resp.Data.Status)
		return nil
	},
}

// statusCmd prints a tool's lifecycle status
// statusCmd 打印工具的生命周期状态
var statusCmd = &cobra.Command{
	Use:   "status <tool-id>",
	Short: "Show a tool's status / 显示工具状态",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			ErrorMsg string `json:"error_msg"`
			Data     struct {
				Status string `json:"status"`
			} `json:"data"`
		}
		if err := callDashboard(http.MethodGet, "/api/v1/tools/"+args[0]+"/status", nil, &resp); err != nil {
			return err
		}
		if resp.ErrorMsg != "" {
			return fmt.Errorf("%s", resp.ErrorMsg)
		}
		fmt.Printf("%s: %s\n", args[0], resp.Data.Status)
		return nil
	},
}

// logLines is the number of log lines requested by the logs command
// logLines 是 logs 命令请求的日志行数
var logLines int

// logsCmd prints and consumes a tool's recent buffered output
// logsCmd 打印并消费工具最近的缓冲输出
var logsCmd = &cobra.Command{
	Use:   "logs <tool-id>",
	Short: "Drain a tool's recent log lines / 读取工具最近的日志行",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			ErrorMsg string `json:"error_msg"`
			Data     struct {
				Lines []string `json:"lines"`
			} `json:"data"`
		}
		path := fmt.Sprintf("/api/v1/tools/%s/logs?lines=%d", args[0], logLines)
		if err := callDashboard(http.MethodGet, path, nil, &resp); err != nil {
			return err
		}
		if resp.ErrorMsg != "" {
			return fmt.Errorf("%s", resp.ErrorMsg)
		}
		for _, line := range resp.Data.Lines {
			fmt.Println(line)
		}
		return nil
	},
}

// listCmd lists configured tools and their state
// listCmd 列出已配置的工具及其状态
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured tools / 列出已配置的工具",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			ErrorMsg string `json:"error_msg"`
			Data     []struct {
				ToolID    string `json:"tool_id"`
				Name      string `json:"name"`
				Installed bool   `json:"installed"`
				Status    string `json:"status"`
			} `json:"data"`
		}
		if err := callDashboard(http.MethodGet, "/api/v1/tools", nil, &resp); err != nil {
			return err
		}
		if resp.ErrorMsg != "" {
			return fmt.Errorf("%s", resp.ErrorMsg)
		}
		for _, tool := range resp.Data {
			installed := "not installed"
			if tool.Installed {
				installed = "installed"
			}
			fmt.Printf("%-16s %-24s %-13s %s\n", tool.ToolID, tool.Name, installed, tool.Status)
		}
		return nil
	},
}

func init() {
	logsCmd.Flags().IntVarP(&logLines, "lines", "n", 100,
		"maximum number of log lines / 最大日志行数")
}

// dashboardBaseURL derives the daemon base URL from the configured
// listen address.
// dashboardBaseURL 从配置的监听地址推导守护进程基础 URL。
func dashboardBaseURL(listenAddr string) string {
	addr := listenAddr
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	return "http://" + addr
}

// callDashboard performs one JSON request against the daemon
// callDashboard 向守护进程执行一次 JSON 请求
func callDashboard(method, path string, body interface{}, out interface{}) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, dashboardBaseURL(cfg.Dashboard.ListenAddr)+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach supervisor daemon (is `mltoolx serve` running?): %w", err)
	}
	defer resp.Body.Close()

	return json.NewDecoder(resp.Body).Decode(out)
}
