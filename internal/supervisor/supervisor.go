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

// Package supervisor manages the lifecycle of external ML tool back-end
// processes: launching them on demand, monitoring their merged output
// concurrently, inferring status from unstructured log text, buffering
// recent lines under bounded memory, and terminating them with a
// graceful-then-forced escalation.
// supervisor 包管理外部 ML 工具后端进程的生命周期：按需启动、
// 并发监控合并输出流、从非结构化日志文本推断状态、在有界内存下
// 缓冲最近的日志行，并以先优雅后强制的升级策略终止进程。
//
// One output monitor goroutine runs per launched process; the process
// registry is the single source of truth shared between the monitor
// (writer) and any number of concurrent readers.
// 每个已启动的进程有一个输出监视 goroutine；进程注册表是监视器
//（写入方）与任意数量并发读取者共享的唯一事实来源。
package supervisor

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mltoolx/mltoolX/internal/config"
)

// Common errors for process supervision
// 进程管理的常见错误
var (
	// ErrUnknownTool indicates the tool identifier has no configuration
	// ErrUnknownTool 表示工具标识符没有对应配置
	ErrUnknownTool = errors.New("supervisor: unknown tool")

	// ErrNotInstalled indicates the tool's directory does not exist
	// ErrNotInstalled 表示工具目录不存在
	ErrNotInstalled = errors.New("supervisor: tool is not installed")

	// ErrAlreadyRunning indicates the tool already has a live process
	// ErrAlreadyRunning 表示工具已有存活的进程
	ErrAlreadyRunning = errors.New("supervisor: tool is already running")

	// ErrLaunchFailed indicates the process spawn itself failed
	// ErrLaunchFailed 表示进程生成本身失败
	ErrLaunchFailed = errors.New("supervisor: tool failed to launch")

	// ErrStopFailed indicates signalling or killing the process failed
	// ErrStopFailed 表示向进程发送信号或强制终止失败
	ErrStopFailed = errors.New("supervisor: tool failed to stop")
)

// Default timing values
// 默认时间值
const (
	// DefaultGracefulTimeout is how long a stopped process may take to
	// exit after the graceful signal before it is force-killed
	// DefaultGracefulTimeout 是优雅信号之后、强制终止之前
	// 允许进程退出的最长时间
	DefaultGracefulTimeout = 10 * time.Second

	// DefaultStartupGrace is how long a process may stay in starting
	// before a status reader promotes it to running
	// DefaultStartupGrace 是状态读取者将进程提升为 running 之前
	// 允许其停留在 starting 的最长时间
	DefaultStartupGrace = 30 * time.Second
)

// Event represents a process lifecycle event
// Event 表示进程生命周期事件
type Event string

const (
	// EventLaunched indicates a process was spawned and registered
	// EventLaunched 表示进程已生成并注册
	EventLaunched Event = "launched"

	// EventExited indicates the output monitor observed process exit
	// EventExited 表示输出监视器观察到进程退出
	EventExited Event = "exited"

	// EventStopped indicates an explicit stop completed
	// EventStopped 表示显式停止已完成
	EventStopped Event = "stopped"
)

// EventHandler is called when process lifecycle events occur
// EventHandler 在进程生命周期事件发生时被调用
type EventHandler func(event Event, info RecordInfo)

// Supervisor launches, monitors and terminates tool back-end processes.
// Supervisor 负责启动、监控和终止工具后端进程。
type Supervisor struct {
	// cfg is the resolved supervisor configuration
	// cfg 是解析后的管理器配置
	cfg *config.Config

	// logger is the supervisor's own structured logger
	// logger 是管理器自身的结构化日志记录器
	logger *zap.Logger

	// registry is the authoritative process table
	// registry 是权威进程表
	registry *Registry

	// gracefulTimeout is the stop escalation timeout
	// gracefulTimeout 是停止升级超时时间
	gracefulTimeout time.Duration

	// startupGrace is the starting->running promotion window
	// startupGrace 是 starting 提升为 running 的时间窗口
	startupGrace time.Duration

	// bufferCapacity is the per-launch log buffer capacity
	// bufferCapacity 是每次启动的日志缓冲区容量
	bufferCapacity int

	// eventHandler is called on lifecycle events
	// eventHandler 在生命周期事件时被调用
	eventHandler EventHandler

	// mu protects the settable fields above
	// mu 保护上面可设置的字段
	mu sync.RWMutex

	// launchMu serializes the live-record check, spawn and register of
	// Launch, so concurrent launches of one tool cannot both pass the
	// precondition and orphan a process.
	// launchMu 串行化 Launch 的存活记录检查、进程生成和注册，
	// 使同一工具的并发启动不会同时通过前置条件并遗弃进程。
	launchMu sync.Mutex
}

// New creates a Supervisor for the given configuration
// New 为给定配置创建 Supervisor
func New(cfg *config.Config, logger *zap.Logger) *Supervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{
		cfg:             cfg,
		logger:          logger,
		registry:        NewRegistry(),
		gracefulTimeout: DefaultGracefulTimeout,
		startupGrace:    DefaultStartupGrace,
		bufferCapacity:  DefaultLogBufferCapacity,
	}
}

// Registry exposes the process registry for read-only consumers
// Registry 为只读使用方暴露进程注册表
func (s *Supervisor) Registry() *Registry {
	return s.registry
}

// SetGracefulTimeout sets the graceful stop timeout
// SetGracefulTimeout 设置优雅停止超时时间
func (s *Supervisor) SetGracefulTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gracefulTimeout = d
}

// SetStartupGrace sets the starting->running promotion window
// SetStartupGrace 设置 starting 提升为 running 的时间窗口
func (s *Supervisor) SetStartupGrace(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startupGrace = d
}

// SetBufferCapacity sets the per-launch log buffer capacity
// SetBufferCapacity 设置每次启动的日志缓冲区容量
func (s *Supervisor) SetBufferCapacity(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bufferCapacity = n
}

// SetEventHandler sets the lifecycle event callback
// SetEventHandler 设置生命周期事件回调
func (s *Supervisor) SetEventHandler(handler EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventHandler = handler
}

func (s *Supervisor) getGracefulTimeout() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gracefulTimeout
}

func (s *Supervisor) getStartupGrace() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startupGrace
}

func (s *Supervisor) getBufferCapacity() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bufferCapacity
}

// notifyEvent invokes the event handler, if one is set
// notifyEvent 调用事件处理器（如果已设置）
func (s *Supervisor) notifyEvent(event Event, rec *ProcessRecord) {
	s.mu.RLock()
	handler := s.eventHandler
	s.mu.RUnlock()

	if handler != nil {
		handler(event, rec.Info())
	}
}
