// Package tokenizer counts generated tokens without re-invoking the LLM.
// A tokenizer is resolved per model fullname and memoized for the process
// lifetime; models without a tokenizer resolve to nil and token accounting
// degrades to zero instead of failing the chat.
package tokenizer

import (
	"context"
	"sync"

	"github.com/go-ego/gse"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// Tokenizer 基于 gse 分词器的 token 计数器
type Tokenizer struct {
	seg gse.Segmenter
}

// Count returns the token count of a text delta. A nil Tokenizer counts zero.
func (t *Tokenizer) Count(text string) int {
	if t == nil || text == "" {
		return 0
	}
	return len(t.seg.Cut(text, true))
}

// Loader resolves a model fullname to a tokenizer.
// Returning (nil, nil) means no tokenizer is available for that model.
type Loader func(fullname string) (*Tokenizer, error)

// RegistryLoader 只为注册表中已知的模型加载分词器
func RegistryLoader(known []string) Loader {
	set := make(map[string]struct{}, len(known))
	for _, name := range known {
		set[name] = struct{}{}
	}

	return func(fullname string) (*Tokenizer, error) {
		if _, ok := set[fullname]; !ok {
			return nil, nil
		}
		var seg gse.Segmenter
		if err := seg.LoadDict(); err != nil {
			return nil, err
		}
		return &Tokenizer{seg: seg}, nil
	}
}

// Cache 按模型名记忆化的分词器缓存
// 并发首次加载可能重复执行 loader, 结果幂等, 只多付一次加载成本
type Cache struct {
	mu      sync.RWMutex
	load    Loader
	entries map[string]*Tokenizer
}

// NewCache 创建缓存
func NewCache(load Loader) *Cache {
	return &Cache{
		load:    load,
		entries: make(map[string]*Tokenizer),
	}
}

// Get returns the memoized tokenizer for a model, loading it on first use.
// Unknown models return nil, never an error.
func (c *Cache) Get(fullname string) *Tokenizer {
	c.mu.RLock()
	t, ok := c.entries[fullname]
	c.mu.RUnlock()
	if ok {
		return t
	}

	log.Debug().Str("model", fullname).Msg("loading tokenizer")
	t, err := c.load(fullname)
	if err != nil {
		log.Warn().Err(err).Str("model", fullname).
			Msg("tokenizer load failed, token accounting disabled for model")
		t = nil
	}

	c.mu.Lock()
	// a concurrent loader may have won the race; keep the first result
	if prev, ok := c.entries[fullname]; ok {
		t = prev
	} else {
		c.entries[fullname] = t
	}
	c.mu.Unlock()
	return t
}

// Prewarm loads tokenizers for every known model with a bounded fan-out so
// first-request latency is not paid by end users.
func (c *Cache) Prewarm(ctx context.Context, fullnames []string, workers int) {
	if workers <= 0 {
		workers = 5
	}
	sem := semaphore.NewWeighted(int64(workers))

	for _, name := range fullnames {
		if err := sem.Acquire(ctx, 1); err != nil {
			return
		}
		go func(name string) {
			defer sem.Release(1)
			c.Get(name)
		}(name)
	}

	// wait for in-flight loads
	if err := sem.Acquire(ctx, int64(workers)); err != nil {
		return
	}
	sem.Release(int64(workers))

	log.Info().Int("models", len(fullnames)).Msg("finished warming tokenizer cache")
}
