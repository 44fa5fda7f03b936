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
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// TestLogBufferDropNewestProperty verifies the overflow policy: after
// any number of pushes only the oldest `capacity` entries survive,
// in push order.
// TestLogBufferDropNewestProperty 验证溢出策略：任意次推送后只有
// 最早的 capacity 条按推送顺序保留。
func TestLogBufferDropNewestProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 64).Draw(t, "capacity")
		pushes := rapid.IntRange(0, 200).Draw(t, "pushes")

		buf := NewLogBuffer(capacity)
		for i := 0; i < pushes; i++ {
			accepted := buf.Push(LogEntry{When: time.Now(), Text: fmt.Sprintf("line-%d", i)})
			if i < capacity && !accepted {
				t.Fatalf("push %d rejected below capacity %d", i, capacity)
			}
			if i >= capacity && accepted {
				t.Fatalf("push %d accepted at full capacity %d", i, capacity)
			}
		}

		want := pushes
		if want > capacity {
			want = capacity
		}
		entries := buf.Drain(pushes + 1)
		if len(entries) != want {
			t.Fatalf("drained %d entries, want %d", len(entries), want)
		}
		for i, e := range entries {
			if e.Text != fmt.Sprintf("line-%d", i) {
				t.Fatalf("entry %d is %q, want line-%d", i, e.Text, i)
			}
		}
	})
}

// TestLogBufferDrainDestructiveProperty verifies that consecutive
// drains partition the pushed entries without overlap or reordering.
// TestLogBufferDrainDestructiveProperty 验证连续读取将已推送条目
// 无重叠、不乱序地划分。
func TestLogBufferDrainDestructiveProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		total := rapid.IntRange(0, 100).Draw(t, "total")

		buf := NewLogBuffer(total + 1)
		for i := 0; i < total; i++ {
			buf.Push(LogEntry{When: time.Now(), Text: fmt.Sprintf("line-%d", i)})
		}

		seen := 0
		for seen < total {
			max := rapid.IntRange(1, total+1).Draw(t, "max")
			chunk := buf.Drain(max)
			if len(chunk) > max {
				t.Fatalf("drain returned %d entries, max %d", len(chunk), max)
			}
			for _, e := range chunk {
				if e.Text != fmt.Sprintf("line-%d", seen) {
					t.Fatalf("got %q at position %d", e.Text, seen)
				}
				seen++
			}
			if len(chunk) == 0 {
				t.Fatalf("empty drain with %d entries remaining", total-seen)
			}
		}
		if got := buf.Drain(1); len(got) != 0 {
			t.Fatalf("buffer not empty after full drain: %v", got)
		}
	})
}

// TestClassifyRunningPrecedenceProperty verifies that any line
// containing a running phrase classifies as running regardless of
// surrounding text, including embedded error phrases.
// TestClassifyRunningPrecedenceProperty 验证包含运行短语的任意行
// 无论周围文本如何（包括嵌入的错误短语）都判定为 running。
func TestClassifyRunningPrecedenceProperty(t *testing.T) {
	running := []string{"running on", "server started", "listening on", "model loaded"}
	errors := []string{"error", "failed", "exception", "traceback"}

	rapid.Check(t, func(t *rapid.T) {
		phrase := rapid.SampledFrom(running).Draw(t, "phrase")
		prefix := rapid.StringMatching(`[ -~]{0,20}`).Draw(t, "prefix")
		suffix := rapid.StringMatching(`[ -~]{0,20}`).Draw(t, "suffix")
		withError := rapid.Bool().Draw(t, "withError")

		line := prefix + phrase + suffix
		if withError {
			line += " " + rapid.SampledFrom(errors).Draw(t, "errPhrase")
		}

		status, ok := Classify(line)
		if !ok || status != StatusRunning {
			t.Fatalf("Classify(%q) = %v, %v; want running", line, status, ok)
		}
	})
}

// TestClassifyCaseInsensitiveProperty verifies that classification
// ignores line casing.
// TestClassifyCaseInsensitiveProperty 验证判定忽略大小写。
func TestClassifyCaseInsensitiveProperty(t *testing.T) {
	phrases := []string{"running on", "server started", "listening on",
		"model loaded", "error", "failed", "exception", "traceback"}

	rapid.Check(t, func(t *rapid.T) {
		phrase := rapid.SampledFrom(phrases).Draw(t, "phrase")

		lower, okLower := Classify(strings.ToLower(phrase))
		upper, okUpper := Classify(strings.ToUpper(phrase))
		if okLower != okUpper || lower != upper {
			t.Fatalf("casing changed outcome for %q: %v/%v vs %v/%v",
				phrase, lower, okLower, upper, okUpper)
		}
	})
}
