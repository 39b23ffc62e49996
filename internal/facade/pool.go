package facade

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"BinkAgent-Bridge/internal/agent"

	"golang.org/x/sync/singleflight"
)

// ErrPoolClosed 表示缓存已关闭。
var ErrPoolClosed = errors.New("智能体缓存已关闭")

// BuildFunc 构造一个智能体，release 在缓存淘汰时调用。
type BuildFunc func(ctx context.Context) (ag *agent.Agent, release func(), err error)

type poolEntry struct {
	agent    *agent.Agent
	release  func()
	lastUsed time.Time
	inUse    int
	evicted  bool
}

// Pool 缓存已初始化的智能体，同一键的并发构造只执行一次，空闲超时后淘汰。
// 被租用中的条目在最后一次归还后才释放资源。
type Pool struct {
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu      sync.Mutex
	entries map[string]*poolEntry
	closed  bool
}

// NewPool 创建缓存。ttl 不大于零时不做空闲淘汰。
func NewPool(ttl time.Duration) *Pool {
	return &Pool{ttl: ttl, now: time.Now, entries: make(map[string]*poolEntry)}
}

// PoolKey 由动作、钱包身份与配置指纹组成。
func PoolKey(action, walletID, fingerprint string) string {
	return strings.Join([]string{action, walletID, fingerprint}, "|")
}

// Get 租用缓存中的智能体，不存在时调用 build 构造。调用方用完后必须调用 done。
// reused 表示命中缓存。
func (p *Pool) Get(ctx context.Context, key string, build BuildFunc) (ag *agent.Agent, done func(), reused bool, err error) {
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, nil, false, ErrPoolClosed
		}
		expired := p.sweepLocked()
		if e, ok := p.entries[key]; ok {
			lease := p.leaseLocked(e)
			p.mu.Unlock()
			releaseAll(expired)
			return e.agent, lease, true, nil
		}
		p.mu.Unlock()
		releaseAll(expired)

		ran := false
		v, err, _ := p.group.Do(key, func() (any, error) {
			p.mu.Lock()
			if e, ok := p.entries[key]; ok {
				p.mu.Unlock()
				return e, nil
			}
			p.mu.Unlock()

			ran = true
			// 构造结果由所有等待者共享，不随首个调用方取消。
			built, release, err := build(context.WithoutCancel(ctx))
			if err != nil {
				return nil, err
			}
			p.mu.Lock()
			defer p.mu.Unlock()
			if p.closed {
				if release != nil {
					release()
				}
				return nil, ErrPoolClosed
			}
			e := &poolEntry{agent: built, release: release, lastUsed: p.now()}
			p.entries[key] = e
			return e, nil
		})
		if err != nil {
			return nil, nil, false, err
		}

		e := v.(*poolEntry)
		p.mu.Lock()
		if e.evicted {
			p.mu.Unlock()
			continue
		}
		lease := p.leaseLocked(e)
		p.mu.Unlock()
		return e.agent, lease, !ran, nil
	}
}

// leaseLocked 增加租用计数，返回的函数只生效一次。
func (p *Pool) leaseLocked(e *poolEntry) func() {
	e.inUse++
	e.lastUsed = p.now()
	var once sync.Once
	return func() {
		once.Do(func() { p.giveBack(e) })
	}
}

func (p *Pool) giveBack(e *poolEntry) {
	p.mu.Lock()
	e.inUse--
	e.lastUsed = p.now()
	var releases []func()
	if e.evicted && e.inUse == 0 {
		releases = append(releases, e.release)
	}
	if !p.closed {
		releases = append(releases, p.sweepLocked()...)
	}
	p.mu.Unlock()
	releaseAll(releases)
}

// Len 返回缓存的智能体数量。
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Close 释放全部空闲缓存，租用中的条目在归还后释放。之后的 Get 返回 ErrPoolClosed。
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	var releases []func()
	for key, e := range p.entries {
		if r := p.evictLocked(key, e); r != nil {
			releases = append(releases, r)
		}
	}
	p.mu.Unlock()
	releaseAll(releases)
}

func (p *Pool) sweepLocked() []func() {
	if p.ttl <= 0 {
		return nil
	}
	now := p.now()
	var releases []func()
	for key, e := range p.entries {
		if e.inUse == 0 && now.Sub(e.lastUsed) > p.ttl {
			if r := p.evictLocked(key, e); r != nil {
				releases = append(releases, r)
			}
		}
	}
	return releases
}

// evictLocked 移出条目，条目空闲时返回其释放函数。
func (p *Pool) evictLocked(key string, e *poolEntry) func() {
	delete(p.entries, key)
	e.evicted = true
	if e.inUse > 0 {
		return nil
	}
	if e.release == nil {
		return func() {}
	}
	return e.release
}

func releaseAll(fns []func()) {
	for _, fn := range fns {
		if fn != nil {
			fn()
		}
	}
}
