// Package redisdb provides Redis backed sessions. Each session holds a
// dedicated connection; its pipeline gives MULTI/EXEC unit-of-work
// semantics.
package redisdb

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/kasuganosora/dbscope/pkg/session"
)

// Config Redis后端配置
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// Factory Redis会话工厂
type Factory struct {
	client *redis.Client
	config *Config

	mu     sync.Mutex
	closed bool
}

// Open 连接 Redis 并创建工厂
func Open(ctx context.Context, config *Config) (*Factory, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.Addr == "" {
		return nil, fmt.Errorf("addr cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", config.Addr, err)
	}

	return &Factory{client: client, config: config}, nil
}

// Client 返回底层客户端
func (f *Factory) Client() *redis.Client {
	return f.client
}

// Key 为键加上配置的前缀
func (f *Factory) Key(parts ...string) string {
	key := f.config.KeyPrefix
	for i, p := range parts {
		if i > 0 {
			key += ":"
		}
		key += p
	}
	return key
}

// NewSession 实现 session.Factory 接口，每个会话独占一条连接
func (f *Factory) NewSession(ctx context.Context) (session.Session, error) {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return nil, session.NewErrFactoryUnavailable("redis", "factory is closed")
	}

	conn := f.client.Conn()
	if err := conn.Ping(ctx).Err(); err != nil {
		conn.Close()
		return nil, err
	}

	return &Session{id: uuid.NewString(), conn: conn}, nil
}

// Close 关闭工厂和底层客户端
func (f *Factory) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.mu.Unlock()

	return f.client.Close()
}

// Session Redis会话，独占一条连接
type Session struct {
	id   string
	conn *redis.Conn

	mu       sync.Mutex
	pipeline redis.Pipeliner
	closed   bool
}

// ID 返回会话标识
func (s *Session) ID() string { return s.id }

// Conn 返回独占连接
func (s *Session) Conn() *redis.Conn { return s.conn }

// Pipeline 返回事务流水线（MULTI/EXEC），惰性创建
func (s *Session) Pipeline() redis.Pipeliner {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pipeline == nil && !s.closed {
		s.pipeline = s.conn.TxPipeline()
	}
	return s.pipeline
}

// Exec 执行流水线中累积的命令
func (s *Session) Exec(ctx context.Context) ([]redis.Cmder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, session.NewErrSessionClosed("exec")
	}
	if s.pipeline == nil {
		return nil, nil
	}

	cmds, err := s.pipeline.Exec(ctx)
	s.pipeline = nil
	return cmds, err
}

// Close 关闭会话（幂等）：丢弃未执行的流水线并释放连接
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.pipeline != nil {
		s.pipeline.Discard()
		s.pipeline = nil
	}
	return s.conn.Close()
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
