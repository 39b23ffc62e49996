package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"BinkAgent-Bridge/internal/agent"
	"BinkAgent-Bridge/internal/llm"

	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "binkd:thread:"
	defaultLimit  = 50
	defaultTTL    = 24 * time.Hour
)

// ThreadStoreConfig 描述 Redis 对话存储的连接参数。
type ThreadStoreConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
	// Limit 为每个线程保留的消息条数。
	Limit int
	TTL   time.Duration
}

// ThreadStore 把每个线程的消息保存为一个 Redis list，元素为 JSON 编码的消息。
type ThreadStore struct {
	client *redis.Client
	prefix string
	limit  int
	ttl    time.Duration
}

// NewThreadStore 创建连接并校验 Redis 可用。
func NewThreadStore(ctx context.Context, cfg ThreadStoreConfig) (*ThreadStore, error) {
	if cfg.Address == "" {
		return nil, errors.New("Redis address 不能为空")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	return NewThreadStoreWithClient(client, cfg), nil
}

// NewThreadStoreWithClient 使用已有客户端创建存储。
func NewThreadStoreWithClient(client *redis.Client, cfg ThreadStoreConfig) *ThreadStore {
	s := &ThreadStore{client: client, prefix: cfg.Prefix, limit: cfg.Limit, ttl: cfg.TTL}
	if s.prefix == "" {
		s.prefix = defaultPrefix
	}
	if s.limit <= 0 {
		s.limit = defaultLimit
	}
	if s.ttl <= 0 {
		s.ttl = defaultTTL
	}
	return s
}

func (s *ThreadStore) key(threadID string) string { return s.prefix + threadID }

// Load 实现 agent.ThreadStore。
func (s *ThreadStore) Load(ctx context.Context, threadID string) ([]llm.Message, error) {
	values, err := s.client.LRange(ctx, s.key(threadID), 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("读取对话记录失败: %w", err)
	}
	return decodeMessages(values)
}

// Append 实现 agent.ThreadStore。写入后裁剪长度并刷新过期时间。
func (s *ThreadStore) Append(ctx context.Context, threadID string, msgs ...llm.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	values, err := encodeMessages(msgs)
	if err != nil {
		return err
	}
	key := s.key(threadID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, values...)
	pipe.LTrim(ctx, key, int64(-s.limit), -1)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("写入对话记录失败: %w", err)
	}
	return nil
}

// Close 关闭 Redis 连接。
func (s *ThreadStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func encodeMessages(msgs []llm.Message) ([]any, error) {
	out := make([]any, 0, len(msgs))
	for _, m := range msgs {
		raw, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("序列化对话消息失败: %w", err)
		}
		out = append(out, string(raw))
	}
	return out, nil
}

// decodeMessages 解码消息，裁剪后可能残留的半个回合会被丢弃。
func decodeMessages(values []string) ([]llm.Message, error) {
	msgs := make([]llm.Message, 0, len(values))
	for _, v := range values {
		var m llm.Message
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, fmt.Errorf("解析对话消息失败: %w", err)
		}
		msgs = append(msgs, m)
	}
	return agent.TrimToUserTurn(msgs), nil
}

var _ agent.ThreadStore = (*ThreadStore)(nil)
