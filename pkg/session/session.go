package session

import "context"

// Session 会话接口，持有一个后端连接或事务资源
//
// 会话由创建它的作用域独占管理，借用方不得关闭会话。
type Session interface {
	// ID 返回会话唯一标识
	ID() string

	// Close 释放会话持有的资源
	//
	// 幂等：重复调用返回 nil。实现必须在关闭时回滚未提交的事务。
	Close(ctx context.Context) error

	// Closed 检查会话是否已关闭
	Closed() bool
}

// Factory 会话工厂接口
type Factory interface {
	// NewSession 创建新会话
	//
	// 可能阻塞（建立连接、打开事务），通过 ctx 控制超时与取消。
	// 后端错误原样返回，由调用方决定如何包装。
	NewSession(ctx context.Context) (Session, error)
}

// FactoryFunc 函数式会话工厂
type FactoryFunc func(ctx context.Context) (Session, error)

// NewSession 实现 Factory 接口
func (f FactoryFunc) NewSession(ctx context.Context) (Session, error) {
	return f(ctx)
}
