package scope

import (
	"sort"
	"sync"
)

// ScopeRegistry 活动作用域注册表（用于运行时自省）
//
// 实现 Observer 接口：作用域打开时登记，关闭时移除。
type ScopeRegistry struct {
	mu     sync.RWMutex
	scopes map[string]*SessionScope
}

// NewScopeRegistry 创建作用域注册表
func NewScopeRegistry() *ScopeRegistry {
	return &ScopeRegistry{
		scopes: make(map[string]*SessionScope),
	}
}

// ScopeOpened 实现 Observer 接口
func (r *ScopeRegistry) ScopeOpened(s *SessionScope) {
	if s == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scopes[s.ID()] = s
}

// ScopeClosed 实现 Observer 接口
func (r *ScopeRegistry) ScopeClosed(s *SessionScope) {
	if s == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.scopes, s.ID())
}

// Count 返回活动作用域数量
func (r *ScopeRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scopes)
}

// Get 按 ID 查找活动作用域
func (r *ScopeRegistry) Get(id string) (ScopeInfo, bool) {
	r.mu.RLock()
	s, ok := r.scopes[id]
	r.mu.RUnlock()

	if !ok {
		return ScopeInfo{}, false
	}
	return s.Info(), true
}

// Snapshot 返回所有活动作用域的快照，按创建时间排序
func (r *ScopeRegistry) Snapshot() []ScopeInfo {
	r.mu.RLock()
	list := make([]*SessionScope, 0, len(r.scopes))
	for _, s := range r.scopes {
		list = append(list, s)
	}
	r.mu.RUnlock()

	infos := make([]ScopeInfo, 0, len(list))
	for _, s := range list {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// Ensure ScopeRegistry implements Observer
var _ Observer = (*ScopeRegistry)(nil)
