package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStoreConfig 描述 Redis 工作流存储的连接参数。
type RedisStoreConfig struct {
	Address  string
	Password string
	DB       int
	Key      string
}

// RedisStore 将工作流定义保存在 Redis 的单个 hash 中，
// 使定义能够跨进程共享并在重启后保留。
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore 创建 Redis 工作流存储实例。
func NewRedisStore(cfg RedisStoreConfig) (*RedisStore, error) {
	if cfg.Address == "" {
		return nil, errors.New("Redis address 不能为空")
	}
	key := cfg.Key
	if key == "" {
		key = "apecore:workflows"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	return &RedisStore{client: client, key: key}, nil
}

// Put 序列化定义并写入 hash，HSET 对同名字段是原子替换。
func (s *RedisStore) Put(ctx context.Context, def *Definition) error {
	encoded, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("序列化工作流定义失败: %w", err)
	}
	if err := s.client.HSet(ctx, s.key, def.ID, encoded).Err(); err != nil {
		return fmt.Errorf("写入 Redis 工作流失败: %w", err)
	}
	return nil
}

// Get 读取并反序列化指定 ID 的定义。
func (s *RedisStore) Get(ctx context.Context, id string) (*Definition, error) {
	raw, err := s.client.HGet(ctx, s.key, id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("读取 Redis 工作流失败: %w", err)
	}
	var def Definition
	if err := json.Unmarshal([]byte(raw), &def); err != nil {
		return nil, fmt.Errorf("解析 Redis 工作流失败: %w", err)
	}
	return &def, nil
}

// Delete 删除指定 ID 的定义。
func (s *RedisStore) Delete(ctx context.Context, id string) (bool, error) {
	removed, err := s.client.HDel(ctx, s.key, id).Result()
	if err != nil {
		return false, fmt.Errorf("删除 Redis 工作流失败: %w", err)
	}
	return removed > 0, nil
}

// IDs 返回 hash 中的全部工作流 ID。
func (s *RedisStore) IDs(ctx context.Context) ([]string, error) {
	ids, err := s.client.HKeys(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("列举 Redis 工作流失败: %w", err)
	}
	return ids, nil
}

// Close 关闭 Redis 连接。
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
