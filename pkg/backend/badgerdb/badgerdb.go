// Package badgerdb provides Badger backed sessions. Each session wraps
// one badger transaction; the factory owns the database handle.
package badgerdb

import (
	"context"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/kasuganosora/dbscope/pkg/session"
)

// Config Badger后端配置
type Config struct {
	DataDir  string
	InMemory bool
	ReadOnly bool
}

// Factory Badger会话工厂，持有底层数据库
type Factory struct {
	db     *badger.DB
	config *Config

	mu     sync.Mutex
	closed bool
}

// Open 打开 Badger 数据库并创建工厂
func Open(config *Config) (*Factory, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if !config.InMemory && config.DataDir == "" {
		return nil, fmt.Errorf("data dir cannot be empty for on-disk mode")
	}

	opts := badger.DefaultOptions(config.DataDir).
		WithInMemory(config.InMemory).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	return &Factory{db: db, config: config}, nil
}

// DB 返回底层数据库
func (f *Factory) DB() *badger.DB {
	return f.db
}

// NewSession 实现 session.Factory 接口，每个会话对应一个事务
func (f *Factory) NewSession(ctx context.Context) (session.Session, error) {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return nil, session.NewErrFactoryUnavailable("badger", "factory is closed")
	}

	txn := f.db.NewTransaction(!f.config.ReadOnly)
	return &Session{id: uuid.NewString(), txn: txn}, nil
}

// Close 关闭工厂和底层数据库
func (f *Factory) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.mu.Unlock()

	return f.db.Close()
}

// Session Badger会话，持有一个事务
type Session struct {
	id string

	mu     sync.Mutex
	txn    *badger.Txn
	closed bool
}

// ID 返回会话标识
func (s *Session) ID() string { return s.id }

// Txn 返回当前事务，已提交或已关闭时返回 nil
func (s *Session) Txn() *badger.Txn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txn
}

// Commit 提交事务
func (s *Session) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return session.NewErrSessionClosed("commit")
	}
	if s.txn == nil {
		return session.NewErrSessionClosed("commit: no active transaction")
	}

	err := s.txn.Commit()
	s.txn = nil
	return err
}

// Close 关闭会话（幂等）：丢弃未提交的事务
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.txn != nil {
		s.txn.Discard()
		s.txn = nil
	}
	return nil
}

// Closed 检查会话是否已关闭
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Ensure interfaces
var (
	_ session.Factory = (*Factory)(nil)
	_ session.Session = (*Session)(nil)
)
