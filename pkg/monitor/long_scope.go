package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/kasuganosora/dbscope/pkg/scope"
)

// LongScopeLog 长时间作用域日志项
type LongScopeLog struct {
	ID          int64
	ScopeID     string
	SessionID   string
	Policy      string
	OwnsSession bool
	Completed   bool
	Duration    time.Duration
	Timestamp   time.Time
}

// LongScopeAnalyzer 长时间作用域分析器
//
// 实现 scope.Observer 接口：作用域关闭时，打开时长超过阈值的被记录。
// 用于定位泄漏的作用域和被长期占用的连接。
type LongScopeAnalyzer struct {
	mu         sync.RWMutex
	longScopes []*LongScopeLog
	scopeMap   map[int64]*LongScopeLog
	threshold  time.Duration
	maxEntries int
	nextID     int64
}

// NewLongScopeAnalyzer 创建长时间作用域分析器
func NewLongScopeAnalyzer(threshold time.Duration, maxEntries int) *LongScopeAnalyzer {
	return &LongScopeAnalyzer{
		longScopes: make([]*LongScopeLog, 0, maxEntries),
		scopeMap:   make(map[int64]*LongScopeLog),
		threshold:  threshold,
		maxEntries: maxEntries,
		nextID:     1,
	}
}

// ScopeOpened 实现 scope.Observer 接口
func (a *LongScopeAnalyzer) ScopeOpened(s *scope.SessionScope) {}

// ScopeClosed 实现 scope.Observer 接口
func (a *LongScopeAnalyzer) ScopeClosed(s *scope.SessionScope) {
	duration := time.Since(s.CreatedAt())
	if !a.IsLongScope(duration) {
		return
	}

	info := s.Info()
	a.record(&LongScopeLog{
		ScopeID:     info.ID,
		SessionID:   info.SessionID,
		Policy:      info.Policy.String(),
		OwnsSession: info.OwnsSession,
		Completed:   info.Completed,
		Duration:    duration,
		Timestamp:   time.Now(),
	})
}

// IsLongScope 检查时长是否超过阈值
func (a *LongScopeAnalyzer) IsLongScope(duration time.Duration) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return duration >= a.threshold
}

// record 记录长时间作用域
func (a *LongScopeAnalyzer) record(log *LongScopeLog) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	log.ID = a.nextID
	a.scopeMap[log.ID] = log
	a.longScopes = append(a.longScopes, log)
	a.nextID++

	// 如果超出最大条目数，移除最旧的记录
	if len(a.longScopes) > a.maxEntries {
		oldest := a.longScopes[0]
		delete(a.scopeMap, oldest.ID)
		a.longScopes = a.longScopes[1:]
	}

	return log.ID
}

// GetLongScope 获取长时间作用域记录
func (a *LongScopeAnalyzer) GetLongScope(id int64) (*LongScopeLog, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	log, ok := a.scopeMap[id]
	return log, ok
}

// GetAllLongScopes 获取所有长时间作用域
func (a *LongScopeAnalyzer) GetAllLongScopes() []*LongScopeLog {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result := make([]*LongScopeLog, len(a.longScopes))
	copy(result, a.longScopes)
	return result
}

// GetLongScopesByPolicy 获取指定策略的长时间作用域
func (a *LongScopeAnalyzer) GetLongScopesByPolicy(policy string) []*LongScopeLog {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result := []*LongScopeLog{}
	for _, log := range a.longScopes {
		if log.Policy == policy {
			result = append(result, log)
		}
	}
	return result
}

// GetLongScopesByTimeRange 获取指定时间范围的长时间作用域
func (a *LongScopeAnalyzer) GetLongScopesByTimeRange(start, end time.Time) []*LongScopeLog {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result := []*LongScopeLog{}
	for _, log := range a.longScopes {
		// 包含边界：时间 >= start 且 <= end
		if !log.Timestamp.Before(start) && !log.Timestamp.After(end) {
			result = append(result, log)
		}
	}
	return result
}

// GetLongScopeCount 获取长时间作用域总数
func (a *LongScopeAnalyzer) GetLongScopeCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.longScopes)
}

// DeleteLongScope 删除长时间作用域记录
func (a *LongScopeAnalyzer) DeleteLongScope(id int64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.scopeMap[id]; !ok {
		return false
	}

	delete(a.scopeMap, id)
	for i, log := range a.longScopes {
		if log.ID == id {
			a.longScopes = append(a.longScopes[:i], a.longScopes[i+1:]...)
			break
		}
	}
	return true
}

// Clear 清空所有记录
func (a *LongScopeAnalyzer) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.longScopes = make([]*LongScopeLog, 0, a.maxEntries)
	a.scopeMap = make(map[int64]*LongScopeLog)
	a.nextID = 1
}

// SetThreshold 设置阈值
func (a *LongScopeAnalyzer) SetThreshold(threshold time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.threshold = threshold
}

// GetThreshold 获取阈值
func (a *LongScopeAnalyzer) GetThreshold() time.Duration {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.threshold
}

// LongScopeAnalysis 长时间作用域分析结果
type LongScopeAnalysis struct {
	TotalScopes     int
	AvgDuration     time.Duration
	MaxDuration     time.Duration
	MinDuration     time.Duration
	TotalDuration   time.Duration
	IncompleteCount int
	PolicyStats     map[string]*PolicyLongScopeStats
}

// PolicyLongScopeStats 策略级别长时间作用域统计
type PolicyLongScopeStats struct {
	Policy        string
	ScopeCount    int
	TotalDuration time.Duration
	MaxDuration   time.Duration
	AvgDuration   time.Duration
}

// AnalyzeLongScopes 分析长时间作用域
func (a *LongScopeAnalyzer) AnalyzeLongScopes() *LongScopeAnalysis {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if len(a.longScopes) == 0 {
		return &LongScopeAnalysis{}
	}

	analysis := &LongScopeAnalysis{
		TotalScopes: len(a.longScopes),
		PolicyStats: make(map[string]*PolicyLongScopeStats),
		MaxDuration: a.longScopes[0].Duration,
		MinDuration: a.longScopes[0].Duration,
	}

	totalDuration := time.Duration(0)

	for _, log := range a.longScopes {
		totalDuration += log.Duration

		if log.Duration > analysis.MaxDuration {
			analysis.MaxDuration = log.Duration
		}
		if log.Duration < analysis.MinDuration {
			analysis.MinDuration = log.Duration
		}

		if !log.Completed && log.OwnsSession {
			analysis.IncompleteCount++
		}

		// 策略级别统计
		if stats, ok := analysis.PolicyStats[log.Policy]; ok {
			stats.ScopeCount++
			stats.TotalDuration += log.Duration
			if log.Duration > stats.MaxDuration {
				stats.MaxDuration = log.Duration
			}
		} else {
			analysis.PolicyStats[log.Policy] = &PolicyLongScopeStats{
				Policy:        log.Policy,
				ScopeCount:    1,
				TotalDuration: log.Duration,
				MaxDuration:   log.Duration,
			}
		}
	}

	analysis.TotalDuration = totalDuration
	analysis.AvgDuration = totalDuration / time.Duration(len(a.longScopes))

	// 计算策略级别的平均值
	for _, stats := range analysis.PolicyStats {
		if stats.ScopeCount > 0 {
			stats.AvgDuration = stats.TotalDuration / time.Duration(stats.ScopeCount)
		}
	}

	return analysis
}

// GetRecommendations 获取优化建议
func (a *LongScopeAnalyzer) GetRecommendations() []string {
	analysis := a.AnalyzeLongScopes()
	recommendations := []string{}

	// 基于总数的建议
	if analysis.TotalScopes > 100 {
		recommendations = append(recommendations, fmt.Sprintf("长时间作用域数量过多(%d)，建议缩小工作单元范围", analysis.TotalScopes))
	}

	// 基于平均时长的建议
	if analysis.AvgDuration > 10*time.Second {
		recommendations = append(recommendations, fmt.Sprintf("作用域平均持续时间较长(%v)，连接可能被长期占用", analysis.AvgDuration))
	}

	// 基于未完成率的建议
	if analysis.TotalScopes > 0 {
		incompleteRate := float64(analysis.IncompleteCount) / float64(analysis.TotalScopes)
		if incompleteRate > 0.1 {
			recommendations = append(recommendations, fmt.Sprintf("未标记完成的长时间作用域占比过高(%.2f%%)，建议检查 Complete 调用", incompleteRate*100))
		}
	}

	return recommendations
}

// Ensure LongScopeAnalyzer implements scope.Observer
var _ scope.Observer = (*LongScopeAnalyzer)(nil)
