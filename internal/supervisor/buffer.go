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
	"time"
)

// DefaultLogBufferCapacity is the per-launch in-memory log line capacity
// DefaultLogBufferCapacity 是每次启动的内存日志行容量
const DefaultLogBufferCapacity = 1000

// LogEntry is one timestamped output line, immutable once created
// LogEntry 是一条带时间戳的输出行，创建后不可变
type LogEntry struct {
	// When is the time the line was read from the process
	// When 是从进程读取该行的时间
	When time.Time

	// Text is the raw output line
	// Text 是原始输出行
	Text string
}

// Format renders the entry the same way it is written to the log file
// Format 以与写入日志文件相同的方式呈现该条目
func (e LogEntry) Format() string {
	return fmt.Sprintf("[%s] %s", e.When.Format("15:04:05"), e.Text)
}

// LogBuffer is a fixed-capacity FIFO of recent output lines. The
// producer never blocks: when the buffer is full the incoming entry is
// dropped and the oldest contents are kept, so a reader arriving after
// a burst sees the start of the burst rather than its tail. Draining is
// destructive; the log file is the durable record.
// LogBuffer 是固定容量的最近输出行 FIFO。生产者从不阻塞：
// 缓冲区满时丢弃新到的条目并保留最旧的内容，因此在突发之后到来的
// 读取者看到的是突发的开头而不是结尾。读取是破坏性的；
// 日志文件才是持久记录。
type LogBuffer struct {
	entries chan LogEntry
}

// NewLogBuffer creates a buffer with the given capacity
// NewLogBuffer 创建给定容量的缓冲区
func NewLogBuffer(capacity int) *LogBuffer {
	if capacity <= 0 {
		capacity = DefaultLogBufferCapacity
	}
	return &LogBuffer{entries: make(chan LogEntry, capacity)}
}

// Push offers an entry without blocking. Returns false if the buffer is
// full and the entry was dropped.
// Push 以非阻塞方式提交条目。缓冲区满导致条目被丢弃时返回 false。
func (b *LogBuffer) Push(e LogEntry) bool {
	select {
	case b.entries <- e:
		return true
	default:
		return false
	}
}

// Drain removes and returns up to max entries in arrival order.
// Successive calls never return the same entry twice.
// Drain 按到达顺序移除并返回至多 max 条条目。
// 连续调用不会重复返回同一条目。
func (b *LogBuffer) Drain(max int) []LogEntry {
	if max <= 0 {
		return nil
	}
	var out []LogEntry
	for len(out) < max {
		select {
		case e := <-b.entries:
			out = append(out, e)
		default:
			return out
		}
	}
	return out
}

// Len returns the number of buffered entries
// Len 返回缓冲的条目数
func (b *LogBuffer) Len() int {
	return len(b.entries)
}
