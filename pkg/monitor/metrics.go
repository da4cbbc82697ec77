package monitor

import (
	"sync"
	"time"

	"github.com/kasuganosora/dbscope/pkg/scope"
)

// ScopeMetrics 作用域指标收集器
type ScopeMetrics struct {
	mu               sync.RWMutex
	scopesOpened     int64
	sessionsCreated  int64
	scopesJoined     int64
	scopesClosed     int64
	completedClosed  int64
	incompleteClosed int64
	activeScopes     int64
	policyCount      map[string]int64
	startTime        time.Time
}

// NewScopeMetrics 创建作用域指标收集器
func NewScopeMetrics() *ScopeMetrics {
	return &ScopeMetrics{
		policyCount: make(map[string]int64),
		startTime:   time.Now(),
	}
}

// ScopeOpened 实现 scope.Observer 接口
func (m *ScopeMetrics) ScopeOpened(s *scope.SessionScope) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.scopesOpened++
	m.activeScopes++
	if s.OwnsSession() {
		m.sessionsCreated++
	} else {
		m.scopesJoined++
	}
	m.policyCount[s.Policy().String()]++
}

// ScopeClosed 实现 scope.Observer 接口
func (m *ScopeMetrics) ScopeClosed(s *scope.SessionScope) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.scopesClosed++
	if m.activeScopes > 0 {
		m.activeScopes--
	}
	if s.Completed() {
		m.completedClosed++
	} else if s.OwnsSession() {
		m.incompleteClosed++
	}
}

// GetScopesOpened 获取累计打开的作用域数
func (m *ScopeMetrics) GetScopesOpened() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scopesOpened
}

// GetSessionsCreated 获取累计创建的会话数
func (m *ScopeMetrics) GetSessionsCreated() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessionsCreated
}

// GetScopesJoined 获取累计加入祖先会话的作用域数
func (m *ScopeMetrics) GetScopesJoined() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scopesJoined
}

// GetScopesClosed 获取累计关闭的作用域数
func (m *ScopeMetrics) GetScopesClosed() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scopesClosed
}

// GetActiveScopes 获取当前活动作用域数
func (m *ScopeMetrics) GetActiveScopes() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeScopes
}

// GetIncompleteClosed 获取未标记完成就关闭的持有会话作用域数
func (m *ScopeMetrics) GetIncompleteClosed() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.incompleteClosed
}

// GetJoinRate 获取加入率（加入作用域占比）
func (m *ScopeMetrics) GetJoinRate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.scopesOpened == 0 {
		return 0
	}
	return float64(m.scopesJoined) / float64(m.scopesOpened) * 100
}

// GetCompletionRate 获取完成率（标记完成的关闭占比）
func (m *ScopeMetrics) GetCompletionRate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.scopesClosed == 0 {
		return 0
	}
	return float64(m.completedClosed) / float64(m.scopesClosed) * 100
}

// GetPolicyCount 获取指定策略的作用域数
func (m *ScopeMetrics) GetPolicyCount(policy string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.policyCount[policy]
}

// GetAllPolicyCounts 获取所有策略统计
func (m *ScopeMetrics) GetAllPolicyCounts() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]int64)
	for k, v := range m.policyCount {
		result[k] = v
	}
	return result
}

// GetUptime 获取运行时间
func (m *ScopeMetrics) GetUptime() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return time.Since(m.startTime)
}

// Reset 重置所有指标
func (m *ScopeMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.scopesOpened = 0
	m.sessionsCreated = 0
	m.scopesJoined = 0
	m.scopesClosed = 0
	m.completedClosed = 0
	m.incompleteClosed = 0
	m.activeScopes = 0
	m.policyCount = make(map[string]int64)
	m.startTime = time.Now()
}

// MetricsSnapshot 指标快照
type MetricsSnapshot struct {
	ScopesOpened     int64
	SessionsCreated  int64
	ScopesJoined     int64
	ScopesClosed     int64
	CompletedClosed  int64
	IncompleteClosed int64
	ActiveScopes     int64
	JoinRate         float64
	CompletionRate   float64
	PolicyCount      map[string]int64
	Uptime           time.Duration
}

// GetSnapshot 获取指标快照
func (m *ScopeMetrics) GetSnapshot() *MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Compute values inline to avoid re-acquiring the lock
	var joinRate, completionRate float64
	if m.scopesOpened > 0 {
		joinRate = float64(m.scopesJoined) / float64(m.scopesOpened) * 100
	}
	if m.scopesClosed > 0 {
		completionRate = float64(m.completedClosed) / float64(m.scopesClosed) * 100
	}

	policyCopy := make(map[string]int64, len(m.policyCount))
	for k, v := range m.policyCount {
		policyCopy[k] = v
	}

	return &MetricsSnapshot{
		ScopesOpened:     m.scopesOpened,
		SessionsCreated:  m.sessionsCreated,
		ScopesJoined:     m.scopesJoined,
		ScopesClosed:     m.scopesClosed,
		CompletedClosed:  m.completedClosed,
		IncompleteClosed: m.incompleteClosed,
		ActiveScopes:     m.activeScopes,
		JoinRate:         joinRate,
		CompletionRate:   completionRate,
		PolicyCount:      policyCopy,
		Uptime:           time.Since(m.startTime),
	}
}

// Ensure ScopeMetrics implements scope.Observer
var _ scope.Observer = (*ScopeMetrics)(nil)
