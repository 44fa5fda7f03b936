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
	"os/exec"
	"sort"
	"sync"
	"time"

	"github.com/mltoolx/mltoolX/internal/config"
)

// Status represents the lifecycle status of a managed tool process.
// Status 表示托管工具进程的生命周期状态。
//
// Transitions: not_started -> starting -> {running <-> error} -> stopped.
// stopped is terminal.
// 状态转换：not_started -> starting -> {running <-> error} -> stopped。
// stopped 是终态。
type Status string

const (
	// StatusNotStarted indicates the tool has never been launched
	// StatusNotStarted 表示工具从未启动过
	StatusNotStarted Status = "not_started"

	// StatusStarting indicates the process was spawned but has not yet
	// emitted a recognized readiness line
	// StatusStarting 表示进程已生成，但尚未输出可识别的就绪行
	StatusStarting Status = "starting"

	// StatusRunning indicates the tool reported it is serving
	// StatusRunning 表示工具已报告正在提供服务
	StatusRunning Status = "running"

	// StatusError indicates the latest classified output line was an error
	// StatusError 表示最近一次被分类的输出行是错误
	StatusError Status = "error"

	// StatusStopped indicates the process has exited or was stopped
	// StatusStopped 表示进程已退出或已被停止
	StatusStopped Status = "stopped"
)

// ProcessRecord is the registry's per-tool lifecycle state: the process
// handle, its status, the per-launch log file and the resolved command.
// ProcessRecord 是注册表中每个工具的生命周期状态：进程句柄、状态、
// 每次启动的日志文件和解析后的命令行。
//
// The mutex guards status; the remaining exported fields are immutable
// after launch. The done channel is closed once Wait has returned.
// 互斥锁保护 status；其余导出字段在启动后不可变。
// done 通道在 Wait 返回后关闭。
type ProcessRecord struct {
	// ToolID is the stable tool identifier
	// ToolID 是稳定的工具标识符
	ToolID string

	// LaunchID uniquely identifies this launch
	// LaunchID 唯一标识本次启动
	LaunchID string

	// StartTime is when the process was spawned
	// StartTime 是进程生成的时间
	StartTime time.Time

	// LogFilePath is the per-launch persisted log file
	// LogFilePath 是每次启动的持久化日志文件
	LogFilePath string

	// Command is the fully resolved argument list
	// Command 是完整解析后的参数列表
	Command []string

	// Tool references the resolved tool configuration (read-only after launch)
	// Tool 引用解析后的工具配置（启动后只读）
	Tool *config.ToolConfig

	// Buffer holds the recent output lines for this launch
	// Buffer 保存本次启动的最近输出行
	Buffer *LogBuffer

	// cmd is the underlying process handle
	// cmd 是底层进程句柄
	cmd *exec.Cmd

	// done is closed after the process has been reaped
	// done 在进程被回收后关闭
	done chan struct{}

	// exitErr is the error returned by Wait, if any
	// exitErr 是 Wait 返回的错误（如果有）
	exitErr error

	// status is the current lifecycle status
	// status 是当前生命周期状态
	status Status

	// mu protects status and exitErr
	// mu 保护 status 和 exitErr
	mu sync.RWMutex
}

// Status returns the record's current status
// Status 返回记录的当前状态
func (r *ProcessRecord) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// setStatus unconditionally sets the status
// setStatus 无条件设置状态
func (r *ProcessRecord) setStatus(s Status) {
	r.mu.Lock()
	r.status = s
	r.mu.Unlock()
}

// transition applies a classified status change. A stopped record never
// leaves stopped, so a straggling output line cannot revive a process.
// transition 应用分类得到的状态变更。stopped 的记录永远不会离开
// stopped，因此迟到的输出行无法复活进程。
func (r *ProcessRecord) transition(s Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == StatusStopped {
		return false
	}
	r.status = s
	return true
}

// promoteIfStale promotes a record still in starting to running once the
// startup grace period has elapsed, for tools that never emit a
// recognized readiness phrase. Returns the resulting status.
// promoteIfStale 将仍处于 starting 的记录在启动宽限期过后提升为
// running，用于从不输出可识别就绪短语的工具。返回最终状态。
func (r *ProcessRecord) promoteIfStale(grace time.Duration) Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == StatusStarting && time.Since(r.StartTime) > grace {
		r.status = StatusRunning
	}
	return r.status
}

// PID returns the process id, or 0 before spawn
// PID 返回进程 ID，生成前为 0
func (r *ProcessRecord) PID() int {
	if r.cmd == nil || r.cmd.Process == nil {
		return 0
	}
	return r.cmd.Process.Pid
}

// Done returns a channel closed once the process has been reaped
// Done 返回进程被回收后关闭的通道
func (r *ProcessRecord) Done() <-chan struct{} {
	return r.done
}

// Exited reports whether the process has been reaped
// Exited 报告进程是否已被回收
func (r *ProcessRecord) Exited() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// markExited records the Wait result and closes the done channel
// markExited 记录 Wait 的结果并关闭 done 通道
func (r *ProcessRecord) markExited(err error) {
	r.mu.Lock()
	r.exitErr = err
	r.mu.Unlock()
	close(r.done)
}

// RecordInfo is a point-in-time copy of a record for external use
// RecordInfo 是记录的某一时刻副本，供外部使用
type RecordInfo struct {
	ToolID      string    `json:"tool_id"`
	LaunchID    string    `json:"launch_id"`
	PID         int       `json:"pid"`
	Status      Status    `json:"status"`
	StartTime   time.Time `json:"start_time"`
	Uptime      string    `json:"uptime"`
	LogFilePath string    `json:"log_file_path"`
	Command     []string  `json:"command"`
}

// Info returns a point-in-time copy of the record
// Info 返回记录的某一时刻副本
func (r *ProcessRecord) Info() RecordInfo {
	r.mu.RLock()
	status := r.status
	r.mu.RUnlock()

	uptime := time.Duration(0)
	if !r.StartTime.IsZero() {
		uptime = time.Since(r.StartTime).Round(time.Second)
	}

	return RecordInfo{
		ToolID:      r.ToolID,
		LaunchID:    r.LaunchID,
		PID:         r.PID(),
		Status:      status,
		StartTime:   r.StartTime,
		Uptime:      uptime.String(),
		LogFilePath: r.LogFilePath,
		Command:     r.Command,
	}
}

// Registry is the authoritative map from tool identifier to the current
// ProcessRecord. It is written by the launcher and the output monitor
// and read by any number of concurrent status/log readers; record
// lookups are lock-free and field access goes through the record mutex.
// Registry 是从工具标识符到当前 ProcessRecord 的权威映射。
// 由启动器和输出监视器写入，可被任意数量的并发状态/日志读取者读取；
// 记录查找无锁，字段访问经过记录互斥锁。
type Registry struct {
	// records maps tool identifier to *ProcessRecord
	// records 将工具标识符映射到 *ProcessRecord
	records sync.Map
}

// NewRegistry creates an empty registry
// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{}
}

// Register stores the record as the current one for its tool identifier
// Register 将记录存储为其工具标识符的当前记录
func (g *Registry) Register(rec *ProcessRecord) {
	g.records.Store(rec.ToolID, rec)
}

// Get returns the current record for a tool identifier
// Get 返回工具标识符的当前记录
func (g *Registry) Get(toolID string) (*ProcessRecord, bool) {
	value, ok := g.records.Load(toolID)
	if !ok {
		return nil, false
	}
	return value.(*ProcessRecord), true
}

// UpdateStatus applies a status transition to the current record of a
// tool identifier. Returns false if there is no record or the record is
// already stopped.
// UpdateStatus 对工具标识符的当前记录应用状态转换。
// 如果没有记录或记录已停止，返回 false。
func (g *Registry) UpdateStatus(toolID string, s Status) bool {
	rec, ok := g.Get(toolID)
	if !ok {
		return false
	}
	return rec.transition(s)
}

// List returns all current records, ordered by tool identifier
// List 返回所有当前记录，按工具标识符排序
func (g *Registry) List() []*ProcessRecord {
	var records []*ProcessRecord
	g.records.Range(func(_, value interface{}) bool {
		records = append(records, value.(*ProcessRecord))
		return true
	})
	sort.Slice(records, func(i, j int) bool {
		return records[i].ToolID < records[j].ToolID
	})
	return records
}
