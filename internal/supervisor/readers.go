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

// StatusOf returns the current lifecycle status for a tool identifier.
// StatusOf 返回工具标识符的当前生命周期状态。
//
// A tool that was never launched is not_started. A process that has
// exited is always stopped, reconciling any race with its output
// monitor. A process still in starting after the startup grace period
// is promoted to running, covering tools that never emit a recognized
// readiness phrase.
// 从未启动的工具为 not_started。已退出的进程恒为 stopped，
// 以消除与其输出监视器之间的竞争。超过启动宽限期仍处于 starting
// 的进程会被提升为 running，覆盖从不输出可识别就绪短语的工具。
func (s *Supervisor) StatusOf(toolID string) Status {
	rec, ok := s.registry.Get(toolID)
	if !ok {
		return StatusNotStarted
	}

	if rec.Exited() {
		rec.setStatus(StatusStopped)
		return StatusStopped
	}

	return rec.promoteIfStale(s.getStartupGrace())
}

// Logs drains up to maxLines recent output lines for a tool, formatted
// as "[HH:MM:SS] <text>", in arrival order. Draining is destructive:
// two successive calls never return overlapping entries. Fewer lines
// are returned when the buffer holds less.
// Logs 按到达顺序读取并移除工具的至多 maxLines 条最近输出行，
// 格式为 "[HH:MM:SS] <text>"。读取是破坏性的：连续两次调用不会
// 返回重叠的条目。缓冲区不足时返回较少的行。
func (s *Supervisor) Logs(toolID string, maxLines int) []string {
	rec, ok := s.registry.Get(toolID)
	if !ok {
		return nil
	}

	entries := rec.Buffer.Drain(maxLines)
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, entry.Format())
	}
	return lines
}

// List returns a point-in-time view of all tracked processes, ordered
// by tool identifier.
// List 返回所有被跟踪进程的某一时刻视图，按工具标识符排序。
func (s *Supervisor) List() []RecordInfo {
	records := s.registry.List()
	infos := make([]RecordInfo, 0, len(records))
	for _, rec := range records {
		infos = append(infos, rec.Info())
	}
	return infos
}
