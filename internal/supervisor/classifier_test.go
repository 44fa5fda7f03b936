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
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestClassifyRunningPhrases tests readiness line detection
// TestClassifyRunningPhrases 测试就绪行检测
func TestClassifyRunningPhrases(t *testing.T) {
	for _, line := range []string{
		"Running on local URL: http://127.0.0.1:7860",
		"INFO: Server started in 12.3s",
		"Uvicorn listening on 0.0.0.0:8188",
		"Model loaded in 4.2s",
		"MODEL LOADED",
	} {
		status, ok := Classify(line)
		assert.True(t, ok, "line %q should classify", line)
		assert.Equal(t, StatusRunning, status, "line %q", line)
	}
}

// TestClassifyErrorPhrases tests error line detection
// TestClassifyErrorPhrases 测试错误行检测
func TestClassifyErrorPhrases(t *testing.T) {
	for _, line := range []string{
		"RuntimeError: CUDA out of memory",
		"Installation of xformers FAILED",
		"Unhandled exception in thread",
		"Traceback (most recent call last):",
	} {
		status, ok := Classify(line)
		assert.True(t, ok, "line %q should classify", line)
		assert.Equal(t, StatusError, status, "line %q", line)
	}
}

// TestClassifyRunningWinsOverError tests that a readiness phrase takes
// precedence over an error phrase on the same line
// TestClassifyRunningWinsOverError 测试同一行中就绪短语优先于错误短语
func TestClassifyRunningWinsOverError(t *testing.T) {
	status, ok := Classify("Model loaded, error in later step")
	assert.True(t, ok)
	assert.Equal(t, StatusRunning, status)
}

// TestClassifyNoMatch tests that ordinary lines yield no transition
// TestClassifyNoMatch 测试普通行不产生状态转换
func TestClassifyNoMatch(t *testing.T) {
	for _, line := range []string{
		"",
		"Loading weights from /content/models/sd",
		"100%|██████████| 12/12",
	} {
		_, ok := Classify(line)
		assert.False(t, ok, "line %q should not classify", line)
	}
}
