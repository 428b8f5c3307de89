package mysql

import (
	"context"
	"sync"
	"time"

	xerrors "APE-Core/internal/errors"
)

// MemoryExecutionRepository 在内存中保存执行历史，主要用于测试
// 与未配置 MySQL 的本地运行。容量有限，超出后丢弃最旧的记录。
type MemoryExecutionRepository struct {
	mu      sync.RWMutex
	records []ExecutionRecord
	limit   int
}

// NewMemoryExecutionRepository 创建内存执行历史仓库。
func NewMemoryExecutionRepository(limit int) *MemoryExecutionRepository {
	if limit <= 0 {
		limit = 512
	}
	return &MemoryExecutionRepository{limit: limit}
}

// Save 头插一条执行记录。
func (m *MemoryExecutionRepository) Save(_ context.Context, record ExecutionRecord) error {
	if record.ExecutionID == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "执行 ID 不能为空")
	}
	if record.CreatedAt == 0 {
		record.CreatedAt = time.Now().Unix()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append([]ExecutionRecord{record}, m.records...)
	if len(m.records) > m.limit {
		m.records = m.records[:m.limit]
	}
	return nil
}

// ListLatest 返回最近的执行记录。
func (m *MemoryExecutionRepository) ListLatest(_ context.Context, limit int) ([]ExecutionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > len(m.records) {
		limit = len(m.records)
	}
	results := make([]ExecutionRecord, limit)
	copy(results, m.records[:limit])
	return results, nil
}

// Close 对内存仓库无需操作。
func (m *MemoryExecutionRepository) Close() error {
	return nil
}

var _ ExecutionRepository = (*MemoryExecutionRepository)(nil)
