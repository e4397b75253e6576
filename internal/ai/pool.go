package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"typhoon/internal/config"
)

// Factory 按 (模型, 参数) 构造客户端, 测试时可替换
type Factory func(ctx context.Context, cfg *config.AIConfig, shortname string, params map[string]any) (Client, error)

// Pool 按 (模型, 规整参数) 记忆化的 LLM 客户端池
// 容量有界, 超出后按最久未使用淘汰; 淘汰只影响性能, 不影响正确性
type Pool struct {
	mu          sync.Mutex
	cfg         *config.AIConfig
	factory     Factory
	capacity    int
	clients     map[string]Client
	accessOrder []string // 队首为最久未使用
}

// NewPool 创建客户端池
func NewPool(cfg *config.AIConfig) *Pool {
	return newPool(cfg, newEinoClient)
}

func newPool(cfg *config.AIConfig, factory Factory) *Pool {
	capacity := cfg.ClientCacheSize
	if capacity <= 0 {
		capacity = 128
	}
	return &Pool{
		cfg:         cfg,
		factory:     factory,
		capacity:    capacity,
		clients:     make(map[string]Client),
		accessOrder: make([]string, 0, capacity),
	}
}

// Get returns the pooled client for the exact (model, params) key,
// constructing and caching it on first use.
func (p *Pool) Get(ctx context.Context, shortname string, params map[string]any) (Client, error) {
	key := poolKey(shortname, params)

	p.mu.Lock()
	if client, ok := p.clients[key]; ok {
		p.touchLocked(key)
		p.mu.Unlock()
		return client, nil
	}
	p.mu.Unlock()

	log.Debug().Str("model", shortname).Str("key", key).Msg("creating llm client")
	client, err := p.factory(ctx, p.cfg, shortname, params)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// 并发构造时保留先到的实例
	if existing, ok := p.clients[key]; ok {
		p.touchLocked(key)
		return existing, nil
	}
	p.clients[key] = client
	p.accessOrder = append(p.accessOrder, key)
	p.evictLocked()
	return client, nil
}

// Len 当前缓存的客户端数 (测试用)
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

func (p *Pool) touchLocked(key string) {
	for i, k := range p.accessOrder {
		if k == key {
			p.accessOrder = append(p.accessOrder[:i], p.accessOrder[i+1:]...)
			break
		}
	}
	p.accessOrder = append(p.accessOrder, key)
}

func (p *Pool) evictLocked() {
	for len(p.clients) > p.capacity && len(p.accessOrder) > 0 {
		victim := p.accessOrder[0]
		p.accessOrder = p.accessOrder[1:]
		delete(p.clients, victim)
		log.Debug().Str("key", victim).Msg("evicted llm client")
	}
}

// poolKey 由模型名与排序后的参数拼成稳定键
func poolKey(shortname string, params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(shortname)
	for _, k := range keys {
		fmt.Fprintf(&b, "|%s=%v", k, params[k])
	}
	return b.String()
}
