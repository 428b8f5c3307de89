package workflow

import (
	"context"

	xerrors "APE-Core/internal/errors"
)

// Registry 在校验后将工作流定义交给底层 Store 保存。
// 同一 ID 重新注册会原子替换旧定义。
type Registry struct {
	store Store
}

// NewRegistry 基于指定存储创建注册表。store 为 nil 时使用内存存储。
func NewRegistry(store Store) *Registry {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Registry{store: store}
}

// Register 校验并保存一条工作流定义。
func (r *Registry) Register(ctx context.Context, id string, steps []StepSpec, metadata map[string]any) error {
	def := &Definition{ID: id, Steps: steps, Metadata: metadata}
	if err := def.Validate(); err != nil {
		return err
	}
	if err := r.store.Put(ctx, def); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "保存工作流定义失败")
	}
	return nil
}

// RegisterDefinition 以完整定义注册，YAML 预置加载使用。
func (r *Registry) RegisterDefinition(ctx context.Context, def *Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if err := r.store.Put(ctx, def); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "保存工作流定义失败")
	}
	return nil
}

// Get 返回指定 ID 的定义副本，未找到时返回 ErrWorkflowNotFound。
func (r *Registry) Get(ctx context.Context, id string) (*Definition, error) {
	return r.store.Get(ctx, id)
}

// Remove 删除指定 ID 的定义，返回是否存在。
func (r *Registry) Remove(ctx context.Context, id string) (bool, error) {
	return r.store.Delete(ctx, id)
}

// IDs 返回已注册的工作流 ID 列表。
func (r *Registry) IDs(ctx context.Context) ([]string, error) {
	return r.store.IDs(ctx)
}

// Close 释放底层存储。
func (r *Registry) Close() error {
	return r.store.Close()
}
