// Package cache 翻译结果缓存：存储实现与 Translator 装饰器
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"sync"

	"github.com/nerdneilsfield/go-epub-translator/pkg/lang"
)

// Store 缓存存储
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Stats 缓存统计信息
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int64 `json:"size"`
}

// Key 根据语言对与原文生成缓存键
func Key(source, target, text string) string {
	hash := md5.Sum([]byte(lang.Code(source) + "|" + lang.Code(target) + "|" + text))
	return hex.EncodeToString(hash[:])
}

// MemoryStore 内存缓存实现
type MemoryStore struct {
	mutex sync.RWMutex
	data  map[string]string
	stats Stats
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore 创建内存缓存
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]string),
	}
}

// Get 获取缓存
func (c *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	value, exists := c.data[key]
	if !exists {
		c.stats.Misses++
		return "", false, nil
	}
	c.stats.Hits++
	return value, true, nil
}

// Set 设置缓存
func (c *MemoryStore) Set(_ context.Context, key, value string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[key] = value
	c.stats.Size = int64(len(c.data))
	return nil
}

// Stats 获取缓存统计信息
func (c *MemoryStore) Stats() Stats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.stats
}

// Close 内存缓存无需释放
func (c *MemoryStore) Close() error {
	return nil
}
