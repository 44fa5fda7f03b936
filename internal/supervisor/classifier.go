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

import "strings"

// Status classification phrase tables. Matching is case-insensitive
// substring membership, checked in table order. Running phrases are
// checked first: a line that signals readiness wins even when it also
// contains an error phrase.
// 状态分类短语表。匹配为不区分大小写的子串包含，按表顺序检查。
// 先检查运行短语：表示就绪的行即使同时包含错误短语也按就绪处理。
var (
	// runningPhrases mark the tool as serving
	// runningPhrases 标记工具已在提供服务
	runningPhrases = []string{
		"running on",
		"server started",
		"listening on",
		"model loaded",
	}

	// errorPhrases mark the tool as in error
	// errorPhrases 标记工具处于错误状态
	errorPhrases = []string{
		"error",
		"failed",
		"exception",
		"traceback",
	}
)

// Classify maps one raw output line to an optional status transition.
// Pure function, no side effects; most lines yield no transition.
// Classify 将一条原始输出行映射为可选的状态转换。
// 纯函数，无副作用；大多数行不产生转换。
func Classify(line string) (Status, bool) {
	lower := strings.ToLower(line)

	for _, phrase := range runningPhrases {
		if strings.Contains(lower, phrase) {
			return StatusRunning, true
		}
	}
	for _, phrase := range errorPhrases {
		if strings.Contains(lower, phrase) {
			return StatusError, true
		}
	}
	return "", false
}
