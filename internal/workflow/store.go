package workflow

import "context"

// Store 抽象工作流定义的存放位置。默认是进程内存，
// 需要跨进程共享或跨重启保留时可切换到 Redis 实现。
type Store interface {
	Put(ctx context.Context, def *Definition) error
	Get(ctx context.Context, id string) (*Definition, error)
	Delete(ctx context.Context, id string) (bool, error)
	IDs(ctx context.Context) ([]string, error)
	Close() error
}
