// Package memory provides an in-process session backend. It is used by
// tests and examples and doubles as the reference implementation of the
// session contract.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/kasuganosora/dbscope/pkg/session"
)

// Session 内存会话
type Session struct {
	id string

	mu     sync.Mutex
	closed bool
}

// ID 返回会话标识
func (s *Session) ID() string { return s.id }

// Close 关闭会话（幂等）
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return nil
}

// Closed 检查会话是否已关闭
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Factory 内存会话工厂
type Factory struct {
	mu      sync.Mutex
	fail    error
	created int
	closed  bool
}

// NewFactory 创建内存工厂
func NewFactory() *Factory {
	return &Factory{}
}

// NewSession 实现 session.Factory 接口
func (f *Factory) NewSession(ctx context.Context) (session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, session.NewErrFactoryUnavailable("memory", "factory is closed")
	}
	if f.fail != nil {
		return nil, f.fail
	}

	f.created++
	return &Session{id: uuid.NewString()}, nil
}

// FailWith 设置后续 NewSession 返回的错误，nil 恢复正常
func (f *Factory) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = err
}

// Created 返回累计创建的会话数
func (f *Factory) Created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created
}

// Close 关闭工厂，之后 NewSession 返回 ErrFactoryUnavailable
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Ensure Factory implements session.Factory
var _ session.Factory = (*Factory)(nil)
