// Package events 发布动作执行事件，供下游审计或统计消费。
package events

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Event 描述一次动作执行的结果。
type Event struct {
	CorrelationID  string    `json:"correlation_id"`
	Action         string    `json:"action"`
	Status         string    `json:"status"`
	ErrorCode      string    `json:"error_code,omitempty"`
	DurationMillis int64     `json:"duration_ms"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// RoutingKey 返回 action.<name>.<status> 形式的路由键。
func (e Event) RoutingKey() string {
	return fmt.Sprintf("action.%s.%s", strings.ToLower(e.Action), strings.ToLower(e.Status))
}

// Publisher 发布执行事件。
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// Nop 丢弃所有事件。
type Nop struct{}

// Publish 实现 Publisher。
func (Nop) Publish(context.Context, Event) error { return nil }

// Close 实现 Publisher。
func (Nop) Close() error { return nil }

// Recorder 在内存中保存事件，用于测试与诊断。
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish 实现 Publisher。
func (r *Recorder) Publish(_ context.Context, evt Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

// Close 实现 Publisher。
func (r *Recorder) Close() error { return nil }

// Events 返回已记录事件的副本。
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

var (
	_ Publisher = Nop{}
	_ Publisher = (*Recorder)(nil)
)
