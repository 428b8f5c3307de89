package workflow

import (
	"context"
	"sort"
	"sync"

	xerrors "APE-Core/internal/errors"
)

// MemoryStore 在进程内存中保存工作流定义，是默认实现。
type MemoryStore struct {
	mu        sync.RWMutex
	workflows map[string]*Definition
}

// NewMemoryStore 创建 MemoryStore。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{workflows: make(map[string]*Definition)}
}

// Put 写入工作流定义。同名定义被整体替换，不做合并。
func (m *MemoryStore) Put(_ context.Context, def *Definition) error {
	if def == nil {
		return xerrors.New(xerrors.CodeInvalidArgument, "工作流定义不能为空")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workflows[def.ID] = def.Clone()
	return nil
}

// Get 返回指定 ID 的定义副本。
func (m *MemoryStore) Get(_ context.Context, id string) (*Definition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	def, ok := m.workflows[id]
	if !ok {
		return nil, ErrWorkflowNotFound
	}
	return def.Clone(), nil
}

// Delete 移除指定 ID 的定义，返回是否存在。
func (m *MemoryStore) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workflows[id]; !ok {
		return false, nil
	}
	delete(m.workflows, id)
	return true, nil
}

// IDs 返回全部工作流 ID。排序只为输出稳定。
func (m *MemoryStore) IDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.workflows))
	for id := range m.workflows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close 对内存存储无需操作。
func (m *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
