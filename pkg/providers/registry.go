package providers

import (
	"fmt"
	"sort"
	"sync"
)

// Constructor 根据配置创建后端
type Constructor func(cfg Config) (Provider, error)

// Registry 后端构造器注册表
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewRegistry 创建新的注册表
func NewRegistry() *Registry {
	return &Registry{
		constructors: make(map[string]Constructor),
	}
}

// Register 注册构造器
func (r *Registry) Register(name string, c Constructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c == nil {
		return fmt.Errorf("provider %s: nil constructor", name)
	}
	if _, exists := r.constructors[name]; exists {
		return fmt.Errorf("provider %s already registered", name)
	}

	r.constructors[name] = c
	return nil
}

// New 用已注册的构造器创建后端
func (r *Registry) New(name string, cfg Config) (Provider, error) {
	r.mu.RLock()
	c, exists := r.constructors[name]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unsupported provider type: %s", name)
	}
	return c(cfg)
}

// Has 是否已注册
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.constructors[name]
	return ok
}

// List 按名称排序列出
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Remove 移除构造器
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.constructors, name)
}
