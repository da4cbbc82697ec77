// Package entity maps application entity types to their table name and
// session source. The scope mechanism never consults this registry; data
// access code uses it to route an entity to the right backend.
package entity

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Mapping 实体映射信息
type Mapping struct {
	// Table 表名（或键前缀）
	Table string

	// Source 会话工厂名称，空字符串表示默认工厂
	Source string
}

// Registry 实体映射注册表
type Registry struct {
	mu       sync.RWMutex
	mappings map[reflect.Type]Mapping
}

// NewRegistry 创建实体注册表
func NewRegistry() *Registry {
	return &Registry{
		mappings: make(map[reflect.Type]Mapping),
	}
}

// typeOf 解析实体类型（剥离指针）
func typeOf(entity interface{}) (reflect.Type, error) {
	if entity == nil {
		return nil, fmt.Errorf("entity cannot be nil")
	}
	t := reflect.TypeOf(entity)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t, nil
}

// Register 注册实体映射
func (r *Registry) Register(entity interface{}, m Mapping) error {
	t, err := typeOf(entity)
	if err != nil {
		return err
	}
	if m.Table == "" {
		return fmt.Errorf("mapping for %s: table cannot be empty", t)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.mappings[t]; exists {
		return fmt.Errorf("entity type %s already registered", t)
	}
	r.mappings[t] = m
	return nil
}

// Lookup 查找实体映射
func (r *Registry) Lookup(entity interface{}) (Mapping, error) {
	t, err := typeOf(entity)
	if err != nil {
		return Mapping{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.mappings[t]
	if !ok {
		return Mapping{}, NewErrNotRegistered(t)
	}
	return m, nil
}

// TableOf 解析实体对应的表名
func (r *Registry) TableOf(entity interface{}) (string, error) {
	m, err := r.Lookup(entity)
	if err != nil {
		return "", err
	}
	return m.Table, nil
}

// SourceOf 解析实体对应的会话工厂名称
func (r *Registry) SourceOf(entity interface{}) (string, error) {
	m, err := r.Lookup(entity)
	if err != nil {
		return "", err
	}
	return m.Source, nil
}

// Types 返回所有已注册的实体类型
func (r *Registry) Types() []reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]reflect.Type, 0, len(r.mappings))
	for t := range r.mappings {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		return types[i].String() < types[j].String()
	})
	return types
}

// Len 返回已注册实体数量
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.mappings)
}

// Default 默认实体注册表
var Default = NewRegistry()

// Register 在默认注册表注册实体映射
func Register(entity interface{}, m Mapping) error {
	return Default.Register(entity, m)
}

// Lookup 在默认注册表查找实体映射
func Lookup(entity interface{}) (Mapping, error) {
	return Default.Lookup(entity)
}

// TableOf 在默认注册表解析表名
func TableOf(entity interface{}) (string, error) {
	return Default.TableOf(entity)
}

// SourceOf 在默认注册表解析会话工厂名称
func SourceOf(entity interface{}) (string, error) {
	return Default.SourceOf(entity)
}
