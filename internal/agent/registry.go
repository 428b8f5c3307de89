package agent

import (
	"reflect"
	"sort"
	"strings"
	"sync"

	xerrors "APE-Core/internal/errors"
)

// Registry 维护名称到智能体实例的映射，供执行引擎在派发时查找。
// 实例由调用方构造并持有，注册表只保存引用。
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Agent
}

// NewRegistry 创建一个空的智能体注册表。
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]Agent)}
}

// Register 以指定名称注册智能体。名称为空或实例为 nil 返回参数错误；
// 同一实例重复注册视为幂等成功；名称被其他实例占用返回冲突错误。
func (r *Registry) Register(name string, ag Agent) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "智能体名称不能为空")
	}
	if ag == nil {
		return xerrors.New(xerrors.CodeInvalidArgument, "智能体实例不能为空")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.agents[name]; ok {
		if sameInstance(existing, ag) {
			return nil
		}
		return ErrAgentConflict
	}
	r.agents[name] = ag
	return nil
}

// sameInstance 判断两个接口值是否为同一实例。
// 不可比较的实现类型(含 map、切片或函数字段的值类型)直接按不同实例处理,
// 避免接口比较引发 panic。
func sameInstance(a, b Agent) bool {
	ra := reflect.ValueOf(a)
	rb := reflect.ValueOf(b)
	if ra.Type() != rb.Type() || !ra.Type().Comparable() {
		return false
	}
	return a == b
}

// Unregister 移除指定名称的智能体，名称不存在时返回 false。
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agents[name]; !ok {
		return false
	}
	delete(r.agents, name)
	return true
}

// Get 返回指定名称的智能体。不会构造默认实例。
func (r *Registry) Get(name string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ag, ok := r.agents[name]
	return ag, ok
}

// Names 返回已注册的智能体名称。排序只为输出稳定，调用方不应依赖顺序。
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len 返回当前注册的智能体数量。
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
