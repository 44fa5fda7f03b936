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

package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Common repository errors
// 常见仓储错误
var (
	// ErrLaunchIDEmpty indicates a record without a launch identifier
	// ErrLaunchIDEmpty 表示记录缺少启动标识符
	ErrLaunchIDEmpty = errors.New("history: launch id is required")

	// ErrToolIDEmpty indicates a record without a tool identifier
	// ErrToolIDEmpty 表示记录缺少工具标识符
	ErrToolIDEmpty = errors.New("history: tool id is required")

	// ErrLaunchNotFound indicates the launch record does not exist
	// ErrLaunchNotFound 表示启动记录不存在
	ErrLaunchNotFound = errors.New("history: launch record not found")
)

// DefaultListLimit bounds history listings when no limit is given
// DefaultListLimit 在未给出限制时约束历史列表的长度
const DefaultListLimit = 100

// Open opens (creating if needed) the SQLite launch history database
// and migrates its schema.
// Open 打开（必要时创建）SQLite 启动历史数据库并迁移其模式。
func Open(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if err := db.AutoMigrate(&LaunchRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history schema: %w", err)
	}

	return db, nil
}

// Repository provides data access operations for LaunchRecord entities.
// Repository 提供 LaunchRecord 实体的数据访问操作。
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new Repository instance.
// NewRepository 创建一个新的 Repository 实例。
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create stores a new launch record.
// Create 存储新的启动记录。
func (r *Repository) Create(ctx context.Context, rec *LaunchRecord) error {
	if rec.LaunchID == "" {
		return ErrLaunchIDEmpty
	}
	if rec.ToolID == "" {
		return ErrToolIDEmpty
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

// Finish marks a launch as ended with its final status.
// Finish 将启动标记为已结束，并记录最终状态。
func (r *Repository) Finish(ctx context.Context, launchID, finalStatus string) error {
	if launchID == "" {
		return ErrLaunchIDEmpty
	}

	now := time.Now()
	result := r.db.WithContext(ctx).Model(&LaunchRecord{}).
		Where("launch_id = ?", launchID).
		Updates(map[string]interface{}{
			"status":     finalStatus,
			"stopped_at": &now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLaunchNotFound
	}
	return nil
}

// GetByLaunchID retrieves one launch record.
// GetByLaunchID 获取一条启动记录。
func (r *Repository) GetByLaunchID(ctx context.Context, launchID string) (*LaunchRecord, error) {
	var rec LaunchRecord
	if err := r.db.WithContext(ctx).Where("launch_id = ?", launchID).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLaunchNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// List returns the most recent launches, newest first, optionally
// filtered by tool identifier.
// List 返回最近的启动记录，最新在前，可按工具标识符过滤。
func (r *Repository) List(ctx context.Context, toolID string, limit int) ([]*LaunchRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := r.db.WithContext(ctx).Model(&LaunchRecord{})
	if toolID != "" {
		query = query.Where("tool_id = ?", toolID)
	}

	var records []*LaunchRecord
	if err := query.Order("started_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
