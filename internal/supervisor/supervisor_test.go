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
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mltoolx/mltoolX/internal/config"
)

// newTestSupervisor creates a supervisor managing one shell-backed tool
// whose entry script has the given body.
// newTestSupervisor 创建管理一个 shell 工具的 supervisor，
// 该工具的入口脚本内容为给定脚本体。
func newTestSupervisor(t *testing.T, toolID, script string) *Supervisor {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-backed tests are not supported on windows")
	}

	root := t.TempDir()
	toolsRoot := filepath.Join(root, "tools")
	toolDir := filepath.Join(toolsRoot, toolID)
	require.NoError(t, os.MkdirAll(toolDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(toolDir, "run.sh"), []byte(script), 0o755))

	cfg := &config.Config{
		ToolsRoot: toolsRoot,
		LogDir:    filepath.Join(root, "logs"),
		ModelsDir: filepath.Join(root, "models"),
		Tools: map[string]*config.ToolConfig{
			toolID: {
				Name:        toolID,
				Interpreter: "/bin/sh",
				EntryScript: "run.sh",
			},
		},
	}

	return New(cfg, zap.NewNop())
}

// TestStatusNotStartedForUnknownTool tests the never-launched status
// TestStatusNotStartedForUnknownTool 测试从未启动时的状态
func TestStatusNotStartedForUnknownTool(t *testing.T) {
	sup := newTestSupervisor(t, "demo", "exit 0\n")
	assert.Equal(t, StatusNotStarted, sup.StatusOf("demo"))
	assert.Equal(t, StatusNotStarted, sup.StatusOf("never-configured"))
}

// TestLaunchUnknownTool tests the unknown tool precondition
// TestLaunchUnknownTool 测试未知工具的前置条件
func TestLaunchUnknownTool(t *testing.T) {
	sup := newTestSupervisor(t, "demo", "exit 0\n")
	err := sup.Launch("nope", nil, "")
	assert.ErrorIs(t, err, ErrUnknownTool)
}

// TestLaunchNotInstalled tests the missing directory precondition
// TestLaunchNotInstalled 测试目录缺失的前置条件
func TestLaunchNotInstalled(t *testing.T) {
	sup := newTestSupervisor(t, "demo", "exit 0\n")
	sup.cfg.Tools["ghost"] = &config.ToolConfig{
		Name:        "ghost",
		Interpreter: "/bin/sh",
		EntryScript: "run.sh",
	}

	err := sup.Launch("ghost", nil, "")
	assert.ErrorIs(t, err, ErrNotInstalled)
	assert.Equal(t, StatusNotStarted, sup.StatusOf("ghost"))
}

// TestLaunchTransitionsToRunning tests starting -> running via a
// recognized readiness line
// TestLaunchTransitionsToRunning 测试通过可识别就绪行从 starting
// 转换到 running
func TestLaunchTransitionsToRunning(t *testing.T) {
	sup := newTestSupervisor(t, "demo",
		"echo 'Running on local URL: http://127.0.0.1:7860'\nsleep 3\n")

	require.NoError(t, sup.Launch("demo", nil, ""))

	require.Eventually(t, func() bool {
		return sup.StatusOf("demo") == StatusRunning
	}, 3*time.Second, 50*time.Millisecond)

	require.NoError(t, sup.Stop("demo"))
	assert.Equal(t, StatusStopped, sup.StatusOf("demo"))
}

// TestLaunchTransitionsToErrorAndBack tests running <-> error toggling
// driven by subsequent output lines
// TestLaunchTransitionsToErrorAndBack 测试由后续输出行驱动的
// running <-> error 切换
func TestLaunchTransitionsToErrorAndBack(t *testing.T) {
	sup := newTestSupervisor(t, "demo",
		"echo 'Traceback (most recent call last):'\nsleep 0.5\necho 'model loaded'\nsleep 3\n")

	require.NoError(t, sup.Launch("demo", nil, ""))

	require.Eventually(t, func() bool {
		return sup.StatusOf("demo") == StatusError
	}, 3*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		return sup.StatusOf("demo") == StatusRunning
	}, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, sup.Stop("demo"))
}

// TestStatusStoppedAfterExit tests that process exit finalizes the
// record as stopped
// TestStatusStoppedAfterExit 测试进程退出后记录定格为 stopped
func TestStatusStoppedAfterExit(t *testing.T) {
	sup := newTestSupervisor(t, "demo", "echo done\n")

	require.NoError(t, sup.Launch("demo", nil, ""))
	require.Eventually(t, func() bool {
		return sup.StatusOf("demo") == StatusStopped
	}, 3*time.Second, 20*time.Millisecond)

	// stopped is terminal
	// stopped 是终态
	assert.Equal(t, StatusStopped, sup.StatusOf("demo"))
}

// TestStartupGracePromotion tests the elapsed-time fallback for tools
// that never emit a recognized phrase
// TestStartupGracePromotion 测试从不输出可识别短语的工具的
// 时间回退提升
func TestStartupGracePromotion(t *testing.T) {
	sup := newTestSupervisor(t, "demo", "sleep 3\n")
	sup.SetStartupGrace(100 * time.Millisecond)

	require.NoError(t, sup.Launch("demo", nil, ""))

	require.Eventually(t, func() bool {
		return sup.StatusOf("demo") == StatusRunning
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, sup.Stop("demo"))
}

// TestLogsDrainInOrder tests formatted, ordered, non-overlapping drains
// TestLogsDrainInOrder 测试格式化、有序且不重叠的日志读取
func TestLogsDrainInOrder(t *testing.T) {
	sup := newTestSupervisor(t, "demo",
		"echo one\necho two\necho three\n")

	require.NoError(t, sup.Launch("demo", nil, ""))
	require.Eventually(t, func() bool {
		return sup.StatusOf("demo") == StatusStopped
	}, 3*time.Second, 20*time.Millisecond)

	first := sup.Logs("demo", 2)
	require.Len(t, first, 2)
	assert.True(t, strings.HasSuffix(first[0], "] one"), "got %q", first[0])
	assert.True(t, strings.HasSuffix(first[1], "] two"), "got %q", first[1])
	assert.Regexp(t, `^\[\d{2}:\d{2}:\d{2}\] `, first[0])

	// A second call never sees the same entries again
	// 第二次调用不会再次看到相同的条目
	second := sup.Logs("demo", 10)
	require.Len(t, second, 1)
	assert.True(t, strings.HasSuffix(second[0], "] three"), "got %q", second[0])

	assert.Empty(t, sup.Logs("demo", 10))
	assert.Nil(t, sup.Logs("unknown", 10))
}

// TestLogFilePersisted tests the per-launch append-only log file
// TestLogFilePersisted 测试每次启动的只追加日志文件
func TestLogFilePersisted(t *testing.T) {
	sup := newTestSupervisor(t, "demo", "echo alpha\necho beta\n")

	require.NoError(t, sup.Launch("demo", nil, ""))
	require.Eventually(t, func() bool {
		return sup.StatusOf("demo") == StatusStopped
	}, 3*time.Second, 20*time.Millisecond)

	rec, ok := sup.Registry().Get("demo")
	require.True(t, ok)

	data, err := os.ReadFile(rec.LogFilePath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Regexp(t, `^\[\d{2}:\d{2}:\d{2}\] alpha$`, lines[0])
	assert.Regexp(t, `^\[\d{2}:\d{2}:\d{2}\] beta$`, lines[1])
	assert.True(t, strings.HasPrefix(filepath.Base(rec.LogFilePath), "demo-"))
}

// TestStopGraceful tests the graceful termination path
// TestStopGraceful 测试优雅终止路径
func TestStopGraceful(t *testing.T) {
	sup := newTestSupervisor(t, "demo", "exec sleep 30\n")

	require.NoError(t, sup.Launch("demo", nil, ""))
	start := time.Now()
	require.NoError(t, sup.Stop("demo"))

	// SIGTERM must have sufficed well before the escalation timeout
	// SIGTERM 必须远在升级超时之前奏效
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, StatusStopped, sup.StatusOf("demo"))
}

// TestStopEscalatesToKill tests the forced-kill escalation for a
// process that ignores the graceful signal
// TestStopEscalatesToKill 测试忽略优雅信号的进程的强制终止升级
func TestStopEscalatesToKill(t *testing.T) {
	sup := newTestSupervisor(t, "demo",
		"trap '' TERM\nwhile :; do sleep 0.1; done\n")
	sup.SetGracefulTimeout(200 * time.Millisecond)

	require.NoError(t, sup.Launch("demo", nil, ""))

	// Give the shell a moment to install its trap
	// 给 shell 一点时间安装信号处理
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, sup.Stop("demo"))
	assert.Equal(t, StatusStopped, sup.StatusOf("demo"))
}

// TestStopIdempotent tests repeated and unknown-id stops
// TestStopIdempotent 测试重复停止和未知标识符停止
func TestStopIdempotent(t *testing.T) {
	sup := newTestSupervisor(t, "demo", "exec sleep 30\n")

	// Unknown id: nothing to stop, defined success
	// 未知标识符：没有可停止的进程，定义为成功
	require.NoError(t, sup.Stop("never-launched"))

	require.NoError(t, sup.Launch("demo", nil, ""))
	require.NoError(t, sup.Stop("demo"))
	require.NoError(t, sup.Stop("demo"))
	assert.Equal(t, StatusStopped, sup.StatusOf("demo"))
}

// TestRelaunchRequiresStop tests that a live record blocks a relaunch
// TestRelaunchRequiresStop 测试存活记录会阻止再次启动
func TestRelaunchRequiresStop(t *testing.T) {
	sup := newTestSupervisor(t, "demo", "exec sleep 30\n")

	require.NoError(t, sup.Launch("demo", nil, ""))
	err := sup.Launch("demo", nil, "")
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	require.NoError(t, sup.Stop("demo"))
	require.NoError(t, sup.Launch("demo", nil, ""))
	require.NoError(t, sup.Stop("demo"))
}

// TestConcurrentLaunchSingleWinner tests that racing launches of one
// tool admit exactly one process
// TestConcurrentLaunchSingleWinner 测试同一工具的竞争启动恰好只允许
// 一个进程
func TestConcurrentLaunchSingleWinner(t *testing.T) {
	sup := newTestSupervisor(t, "demo", "exec sleep 30\n")

	const attempts = 8
	results := make(chan error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- sup.Launch("demo", nil, "")
		}()
	}
	wg.Wait()
	close(results)

	launched, rejected := 0, 0
	for err := range results {
		if err == nil {
			launched++
			continue
		}
		require.ErrorIs(t, err, ErrAlreadyRunning)
		rejected++
	}
	assert.Equal(t, 1, launched)
	assert.Equal(t, attempts-1, rejected)

	// The surviving record must own the one live process
	// 幸存的记录必须拥有唯一的存活进程
	rec, ok := sup.Registry().Get("demo")
	require.True(t, ok)
	assert.False(t, rec.Exited())

	require.NoError(t, sup.Stop("demo"))
	assert.Equal(t, StatusStopped, sup.StatusOf("demo"))
}

// TestConcurrentLaunches tests independent monitors for multiple tools
// TestConcurrentLaunches 测试多个工具的独立监视器
func TestConcurrentLaunches(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell-backed tests are not supported on windows")
	}

	root := t.TempDir()
	toolsRoot := filepath.Join(root, "tools")
	cfg := &config.Config{
		ToolsRoot: toolsRoot,
		LogDir:    filepath.Join(root, "logs"),
		Tools:     map[string]*config.ToolConfig{},
	}

	scripts := map[string]string{
		"fast":  "echo 'server started'\nsleep 3\n",
		"noisy": "echo 'error: boom'\nsleep 3\n",
	}
	for id, script := range scripts {
		dir := filepath.Join(toolsRoot, id)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "run.sh"), []byte(script), 0o755))
		cfg.Tools[id] = &config.ToolConfig{Name: id, Interpreter: "/bin/sh", EntryScript: "run.sh"}
	}

	sup := New(cfg, zap.NewNop())
	require.NoError(t, sup.Launch("fast", nil, ""))
	require.NoError(t, sup.Launch("noisy", nil, ""))

	require.Eventually(t, func() bool {
		return sup.StatusOf("fast") == StatusRunning &&
			sup.StatusOf("noisy") == StatusError
	}, 3*time.Second, 20*time.Millisecond)

	infos := sup.List()
	require.Len(t, infos, 2)
	assert.Equal(t, "fast", infos[0].ToolID)
	assert.Equal(t, "noisy", infos[1].ToolID)

	require.NoError(t, sup.Stop("fast"))
	require.NoError(t, sup.Stop("noisy"))
}

// TestEventHandlerReceivesLifecycle tests launch/exit event delivery
// TestEventHandlerReceivesLifecycle 测试启动/退出事件投递
func TestEventHandlerReceivesLifecycle(t *testing.T) {
	sup := newTestSupervisor(t, "demo", "echo done\n")

	events := make(chan Event, 8)
	sup.SetEventHandler(func(event Event, info RecordInfo) {
		assert.Equal(t, "demo", info.ToolID)
		assert.NotEmpty(t, info.LaunchID)
		events <- event
	})

	require.NoError(t, sup.Launch("demo", nil, ""))

	require.Eventually(t, func() bool {
		return sup.StatusOf("demo") == StatusStopped
	}, 3*time.Second, 20*time.Millisecond)

	assert.Equal(t, EventLaunched, <-events)
	assert.Equal(t, EventExited, <-events)
}

// TestLaunchEventPrecedesExit tests event ordering for a process that
// exits immediately
// TestLaunchEventPrecedesExit 测试立即退出的进程的事件顺序
func TestLaunchEventPrecedesExit(t *testing.T) {
	sup := newTestSupervisor(t, "demo", "exit 0\n")

	events := make(chan Event, 8)
	sup.SetEventHandler(func(event Event, info RecordInfo) {
		events <- event
	})

	require.NoError(t, sup.Launch("demo", nil, ""))

	// The launch event is delivered synchronously, before the monitor
	// can observe the exit.
	// 启动事件同步投递，早于监视器可能观察到的退出。
	assert.Equal(t, EventLaunched, <-events)

	require.Eventually(t, func() bool {
		return sup.StatusOf("demo") == StatusStopped
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, EventExited, <-events)
}
