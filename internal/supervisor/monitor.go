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
	"bufio"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxLineSize bounds a single scanned output line (1MB)
// maxLineSize 限制单条扫描输出行的大小（1MB）
const maxLineSize = 1024 * 1024

// monitor is the per-process output worker. It blocks only on reading
// the next line of the merged output stream; each line is appended to
// the per-launch log file, offered to the bounded buffer without
// blocking, and fed to the status classifier. When the stream ends the
// process is reaped and the record is finalized as stopped.
// monitor 是每个进程的输出工作协程。它仅在读取合并输出流的下一行时
// 阻塞；每一行都会追加到本次启动的日志文件、以非阻塞方式提交到
// 有界缓冲区，并送入状态分类器。流结束后进程被回收，
// 记录最终定格为 stopped。
//
// Read failures are logged and end this monitor only; other monitors
// and the supervisor itself are unaffected.
// 读取失败只记录日志并结束本监视器；其他监视器和管理器本身不受影响。
func (s *Supervisor) monitor(rec *ProcessRecord, stream io.Reader) {
	logFile, err := os.OpenFile(rec.LogFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		// Keep monitoring for status and buffered lines even when the
		// durable log cannot be written.
		// 即使无法写入持久日志，也继续监控状态和缓冲行。
		s.logger.Error("failed to open tool log file",
			zap.String("tool_id", rec.ToolID),
			zap.String("log_file", rec.LogFilePath),
			zap.Error(err))
		logFile = nil
	}

	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		// Undecodable bytes are replaced, never dropped wholesale.
		// 无法解码的字节会被替换，而不是整行丢弃。
		line := strings.ToValidUTF8(scanner.Text(), "�")
		entry := LogEntry{When: time.Now(), Text: line}

		if logFile != nil {
			if _, werr := logFile.WriteString(entry.Format() + "\n"); werr != nil {
				s.logger.Error("failed to write tool log file",
					zap.String("tool_id", rec.ToolID),
					zap.String("log_file", rec.LogFilePath),
					zap.Error(werr))
				logFile.Close()
				logFile = nil
			}
		}

		// Full buffer drops this entry; the producer never blocks.
		// 缓冲区满时丢弃本条目；生产者从不阻塞。
		rec.Buffer.Push(entry)

		if status, ok := Classify(line); ok {
			s.registry.UpdateStatus(rec.ToolID, status)
		}
	}

	if err := scanner.Err(); err != nil {
		s.logger.Error("tool output read failed",
			zap.String("tool_id", rec.ToolID),
			zap.Int("pid", rec.PID()),
			zap.Error(err))
	}

	if logFile != nil {
		logFile.Close()
	}

	// The stream has closed: reap the process and finalize the record.
	// An explicit stop may already have marked it stopped.
	// 输出流已关闭：回收进程并定格记录。
	// 显式停止可能已将其标记为 stopped。
	waitErr := rec.cmd.Wait()
	rec.markExited(waitErr)

	if rec.Status() != StatusStopped {
		rec.setStatus(StatusStopped)
	}

	s.logger.Info("tool process exited",
		zap.String("tool_id", rec.ToolID),
		zap.String("launch_id", rec.LaunchID),
		zap.Duration("uptime", time.Since(rec.StartTime)),
		zap.Error(waitErr))

	s.notifyEvent(EventExited, rec)
}
