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

// Package history persists one record per tool launch for the
// dashboard: what was started, with which command line, and how it
// ended. The per-launch log file remains the durable log record; this
// store only indexes launches.
// history 包为仪表盘持久化每次工具启动的记录：启动了什么、
// 使用了哪条命令行、如何结束。每次启动的日志文件仍是持久日志记录；
// 本存储只对启动建立索引。
package history

import (
	"time"
)

// LaunchRecord is one row per tool launch.
// LaunchRecord 是每次工具启动对应的一行记录。
type LaunchRecord struct {
	// ID is the auto-increment primary key
	// ID 是自增主键
	ID uint `gorm:"primarykey" json:"id"`

	// LaunchID is the unique launch identifier
	// LaunchID 是唯一的启动标识符
	LaunchID string `gorm:"uniqueIndex;size:36;not null" json:"launch_id"`

	// ToolID is the tool identifier
	// ToolID 是工具标识符
	ToolID string `gorm:"index;size:64;not null" json:"tool_id"`

	// Command is the resolved command line, space-joined
	// Command 是解析后的命令行，以空格连接
	Command string `gorm:"type:text" json:"command"`

	// LogFilePath is the per-launch log file
	// LogFilePath 是本次启动的日志文件
	LogFilePath string `gorm:"size:512" json:"log_file_path"`

	// Status is the last known lifecycle status
	// Status 是最后已知的生命周期状态
	Status string `gorm:"size:16" json:"status"`

	// StartedAt is when the process was spawned
	// StartedAt 是进程生成的时间
	StartedAt time.Time `json:"started_at"`

	// StoppedAt is when the process exit was observed (nil while live)
	// StoppedAt 是观察到进程退出的时间（存活期间为 nil）
	StoppedAt *time.Time `json:"stopped_at,omitempty"`

	// CreatedAt is the row creation time
	// CreatedAt 是行创建时间
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the row update time
	// UpdatedAt 是行更新时间
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for LaunchRecord
// TableName 指定 LaunchRecord 的表名
func (LaunchRecord) TableName() string {
	return "launch_records"
}
