package session

import "fmt"

// 会话领域错误

// ErrSessionClosed 会话已关闭错误
type ErrSessionClosed struct {
	Op string
}

func (e *ErrSessionClosed) Error() string {
	return fmt.Sprintf("session is closed, cannot %s", e.Op)
}

// ErrFactoryUnavailable 工厂不可用错误
type ErrFactoryUnavailable struct {
	Backend string
	Reason  string
}

func (e *ErrFactoryUnavailable) Error() string {
	return fmt.Sprintf("session factory %s is unavailable: %s", e.Backend, e.Reason)
}

// 辅助函数

// NewErrSessionClosed 创建会话已关闭错误
func NewErrSessionClosed(op string) *ErrSessionClosed {
	return &ErrSessionClosed{Op: op}
}

// NewErrFactoryUnavailable 创建工厂不可用错误
func NewErrFactoryUnavailable(backend, reason string) *ErrFactoryUnavailable {
	return &ErrFactoryUnavailable{Backend: backend, Reason: reason}
}
