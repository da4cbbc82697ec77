package scope

import "time"

// Policy controls how a new scope acquires its session.
type Policy int

const (
	// PolicyRequired joins the session of the innermost live ancestor
	// scope when one exists, otherwise creates a new session.
	PolicyRequired Policy = iota

	// PolicyRequiresNew always creates a new session.
	PolicyRequiresNew
)

// String returns the policy name
func (p Policy) String() string {
	switch p {
	case PolicyRequired:
		return "required"
	case PolicyRequiresNew:
		return "requires_new"
	default:
		return "unknown"
	}
}

// ParsePolicy parses a policy name as used in config files
func ParsePolicy(name string) (Policy, bool) {
	switch name {
	case "required", "":
		return PolicyRequired, true
	case "requires_new":
		return PolicyRequiresNew, true
	default:
		return PolicyRequired, false
	}
}

// Options 作用域选项
//
// nil 等价于零值：PolicyRequired，默认日志，无观察者。
type Options struct {
	// Policy 会话获取策略
	Policy Policy

	// Logger 日志输出，nil 使用默认日志
	Logger Logger

	// Observers 生命周期观察者（指标、注册表）
	Observers []Observer

	// DisableIncompleteWarn 关闭"未标记完成就关闭"的告警日志
	DisableIncompleteWarn bool
}

// Observer receives scope lifecycle events. Callbacks run synchronously
// on the goroutine driving the scope and must not block.
type Observer interface {
	ScopeOpened(s *SessionScope)
	ScopeClosed(s *SessionScope)
}

// ScopeInfo is a point-in-time snapshot of one scope.
type ScopeInfo struct {
	ID          string
	ParentID    string
	Policy      Policy
	SessionID   string
	OwnsSession bool
	Completed   bool
	Closed      bool
	CreatedAt   time.Time
}
