package agent

import (
	"context"
	"sync"
	"time"

	"BinkAgent-Bridge/internal/llm"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ThreadStore 按线程保存对话记录，不包含系统提示词。
type ThreadStore interface {
	Load(ctx context.Context, threadID string) ([]llm.Message, error)
	Append(ctx context.Context, threadID string, msgs ...llm.Message) error
}

// 内存存储的默认参数。
const (
	defaultThreadLimit    = 50
	defaultThreadCapacity = 1024
	defaultThreadIdleTTL  = time.Hour
)

// MemoryThreadStore 是进程内的 ThreadStore。线程数有上限，超出时淘汰最久未写入的线程，
// 空闲超过 TTL 的线程也会过期。
type MemoryThreadStore struct {
	mu      sync.Mutex
	limit   int
	threads *expirable.LRU[string, []llm.Message]
}

// NewMemoryThreadStore 创建内存存储。limit 为每个线程保留的消息数，capacity 为线程数上限，
// ttl 为线程空闲过期时间；各参数 <= 0 时使用默认值。
func NewMemoryThreadStore(limit, capacity int, ttl time.Duration) *MemoryThreadStore {
	if limit <= 0 {
		limit = defaultThreadLimit
	}
	if capacity <= 0 {
		capacity = defaultThreadCapacity
	}
	if ttl <= 0 {
		ttl = defaultThreadIdleTTL
	}
	return &MemoryThreadStore{
		limit:   limit,
		threads: expirable.NewLRU[string, []llm.Message](capacity, nil, ttl),
	}
}

// Load 实现 ThreadStore。
func (s *MemoryThreadStore) Load(_ context.Context, threadID string) ([]llm.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	thread, _ := s.threads.Get(threadID)
	return append([]llm.Message(nil), thread...), nil
}

// Append 实现 ThreadStore。超出上限时丢弃最早的消息，并保证记录从用户消息开始，
// 避免留下失去对应工具调用的工具结果。
func (s *MemoryThreadStore) Append(_ context.Context, threadID string, msgs ...llm.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, _ := s.threads.Get(threadID)
	thread := append(append([]llm.Message(nil), prev...), msgs...)
	if len(thread) > s.limit {
		thread = TrimToUserTurn(thread[len(thread)-s.limit:])
	}
	s.threads.Add(threadID, thread)
	return nil
}

// Len 返回当前保留的线程数。
func (s *MemoryThreadStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threads.Len()
}

// TrimToUserTurn 去掉开头不属于完整回合的消息。
func TrimToUserTurn(msgs []llm.Message) []llm.Message {
	for i, m := range msgs {
		if m.Role == llm.RoleUser {
			return append([]llm.Message(nil), msgs[i:]...)
		}
	}
	return nil
}
