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
	"runtime"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Stop terminates a tool's process: graceful signal, bounded wait,
// forced kill if the wait expires. Stopping a tool with no record or an
// already-exited process is a no-op success, so Stop is idempotent.
// Stop 终止工具的进程：优雅信号、有界等待、等待超时后强制终止。
// 对没有记录或进程已退出的工具执行停止是无操作的成功，
// 因此 Stop 是幂等的。
func (s *Supervisor) Stop(toolID string) error {
	rec, ok := s.registry.Get(toolID)
	if !ok {
		// Nothing to stop.
		// 没有需要停止的进程。
		s.logger.Info("no tracked process to stop", zap.String("tool_id", toolID))
		return nil
	}

	if rec.Exited() {
		rec.setStatus(StatusStopped)
		return nil
	}

	s.logger.Info("stopping tool process",
		zap.String("tool_id", toolID),
		zap.Int("pid", rec.PID()))

	if err := sendSignal(rec.cmd.Process, syscall.SIGTERM); err != nil {
		// The process may have exited between the check and the signal.
		// 进程可能在检查与发送信号之间已退出。
		if rec.Exited() {
			rec.setStatus(StatusStopped)
			return nil
		}
		s.logger.Error("failed to signal tool process",
			zap.String("tool_id", toolID),
			zap.Int("pid", rec.PID()),
			zap.Error(err))
		return fmt.Errorf("%w: %v", ErrStopFailed, err)
	}

	select {
	case <-rec.Done():
		// Graceful exit within the timeout.
		// 在超时时间内优雅退出。
	case <-time.After(s.getGracefulTimeout()):
		s.logger.Warn("graceful stop timed out, killing",
			zap.String("tool_id", toolID),
			zap.Int("pid", rec.PID()),
			zap.Duration("timeout", s.getGracefulTimeout()))
		if err := rec.cmd.Process.Kill(); err != nil && !rec.Exited() {
			s.logger.Error("failed to kill tool process",
				zap.String("tool_id", toolID),
				zap.Int("pid", rec.PID()),
				zap.Error(err))
			return fmt.Errorf("%w: %v", ErrStopFailed, err)
		}
		// Wait unconditionally for the monitor to reap the process.
		// 无条件等待监视器回收进程。
		<-rec.Done()
	}

	rec.setStatus(StatusStopped)
	s.logger.Info("tool process stopped", zap.String("tool_id", toolID))
	s.notifyEvent(EventStopped, rec)
	return nil
}

// sendSignal delivers a termination signal to a process. Windows has no
// SIGTERM delivery, so any termination signal becomes a kill there.
// sendSignal 向进程发送终止信号。Windows 无法投递 SIGTERM，
// 因此在 Windows 上任何终止信号都变为强制终止。
func sendSignal(process *os.Process, sig syscall.Signal) error {
	if runtime.GOOS == "windows" {
		if sig == syscall.SIGTERM || sig == syscall.SIGKILL {
			return process.Kill()
		}
		return nil
	}
	return process.Signal(sig)
}
