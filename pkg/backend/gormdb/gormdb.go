// Package gormdb provides GORM backed sessions. Each session wraps one
// GORM transaction handle.
package gormdb

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kasuganosora/dbscope/pkg/session"
)

// Factory GORM会话工厂
type Factory struct {
	db *gorm.DB

	mu     sync.Mutex
	closed bool
}

// New 基于已有 GORM 实例创建工厂，实例生命周期由调用方管理
func New(db *gorm.DB) (*Factory, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db cannot be nil")
	}
	return &Factory{db: db}, nil
}

// DB 返回底层 GORM 实例
func (f *Factory) DB() *gorm.DB {
	return f.db
}

// NewSession 实现 session.Factory 接口，每个会话开启一个事务
func (f *Factory) NewSession(ctx context.Context) (session.Session, error) {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return nil, session.NewErrFactoryUnavailable("gorm", "factory is closed")
	}

	tx := f.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	return &Session{id: uuid.NewString(), tx: tx}, nil
}

// Close 关闭工厂，底层 GORM 实例不随之关闭
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Session GORM会话，持有一个事务句柄
type Session struct {
	id string

	mu     sync.Mutex
	tx     *gorm.DB
	closed bool
}

// ID 返回会话标识
func (s *Session) ID() string { return s.id }

// DB 返回事务句柄，已提交或已关闭时返回 nil
func (s *Session) DB() *gorm.DB {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx
}

// Commit 提交事务
func (s *Session) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return session.NewErrSessionClosed("commit")
	}
	if s.tx == nil {
		return session.NewErrSessionClosed("commit: no active transaction")
	}

	err := s.tx.Commit().Error
	s.tx = nil
	return err
}

// Rollback 回滚事务
func (s *Session) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return session.NewErrSessionClosed("rollback")
	}
	return s.rollbackLocked()
}

// Close 关闭会话（幂等）：回滚未提交的事务
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	return s.rollbackLocked()
}

// Closed 检查会话是否已关闭
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// rollbackLocked 回滚事务，重复回滚视为无操作
func (s *Session) rollbackLocked() error {
	if s.tx == nil {
		return nil
	}

	err := s.tx.Rollback().Error
	s.tx = nil
	if errors.Is(err, gorm.ErrInvalidTransaction) {
		return nil
	}
	return err
}

// Ensure interfaces
var (
	_ session.Factory = (*Factory)(nil)
	_ session.Session = (*Session)(nil)
)
