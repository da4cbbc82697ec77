package sqldb

import (
	"context"
	"database/sql"
	"sync"

	"github.com/kasuganosora/dbscope/pkg/session"
)

// Session SQL会话，独占一条池内连接
//
// 配置了 BeginTx 时，会话同时持有该连接上的一个事务。
// 未提交的事务在 Close 时回滚。
type Session struct {
	id   string
	conn *sql.Conn

	mu     sync.Mutex
	tx     *sql.Tx
	closed bool
}

// ID 返回会话标识
func (s *Session) ID() string { return s.id }

// Conn 返回独占连接，会话关闭后不得继续使用
func (s *Session) Conn() *sql.Conn { return s.conn }

// Tx 返回当前事务，未开启事务或已提交/回滚时返回 nil
func (s *Session) Tx() *sql.Tx {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx
}

// Commit 提交当前事务
func (s *Session) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return session.NewErrSessionClosed("commit")
	}
	if s.tx == nil {
		return session.NewErrSessionClosed("commit: no active transaction")
	}

	err := s.tx.Commit()
	s.tx = nil
	return err
}

// Rollback 回滚当前事务
func (s *Session) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return session.NewErrSessionClosed("rollback")
	}
	if s.tx == nil {
		return nil
	}

	err := s.tx.Rollback()
	s.tx = nil
	return err
}

// Close 关闭会话（幂等）：回滚未提交事务并归还连接
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var txErr error
	if s.tx != nil {
		txErr = s.tx.Rollback()
		if txErr == sql.ErrTxDone {
			txErr = nil
		}
		s.tx = nil
	}

	if err := s.conn.Close(); err != nil {
		return err
	}
	return txErr
}

// Closed 检查会话是否已关闭
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Ensure Session implements session.Session
var _ session.Session = (*Session)(nil)
