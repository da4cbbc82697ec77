// Package sqldb provides database/sql backed sessions. A session pins
// one connection from the pool and, when configured, runs a transaction
// on it for the lifetime of the owning scope.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kasuganosora/dbscope/pkg/session"
)

// Config SQL后端配置
type Config struct {
	Driver          string
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// BeginTx 为 true 时每个会话在独占连接上开启事务
	BeginTx   bool
	Isolation sql.IsolationLevel
	ReadOnly  bool
}

// Factory SQL会话工厂
type Factory struct {
	db     *sql.DB
	config *Config
	ownsDB bool

	mu     sync.Mutex
	closed bool
}

// Open 打开数据库并创建工厂
func Open(ctx context.Context, config *Config) (*Factory, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.Driver == "" {
		return nil, fmt.Errorf("driver cannot be empty")
	}

	db, err := sql.Open(config.Driver, config.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", config.Driver, err)
	}

	if config.MaxOpen > 0 {
		db.SetMaxOpenConns(config.MaxOpen)
	}
	if config.MaxIdle > 0 {
		db.SetMaxIdleConns(config.MaxIdle)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}
	if config.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(config.ConnMaxIdleTime)
	}

	// 验证连接可用
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", config.Driver, err)
	}

	return &Factory{db: db, config: config, ownsDB: true}, nil
}

// New 基于已有连接池创建工厂，连接池的生命周期由调用方管理
func New(db *sql.DB, config *Config) *Factory {
	if config == nil {
		config = &Config{}
	}
	return &Factory{db: db, config: config}
}

// DB 返回底层连接池
func (f *Factory) DB() *sql.DB {
	return f.db
}

// NewSession 实现 session.Factory 接口
func (f *Factory) NewSession(ctx context.Context) (session.Session, error) {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return nil, session.NewErrFactoryUnavailable("sql", "factory is closed")
	}

	conn, err := f.db.Conn(ctx)
	if err != nil {
		return nil, err
	}

	var tx *sql.Tx
	if f.config.BeginTx {
		tx, err = conn.BeginTx(ctx, &sql.TxOptions{
			Isolation: f.config.Isolation,
			ReadOnly:  f.config.ReadOnly,
		})
		if err != nil {
			conn.Close()
			return nil, err
		}
	}

	return &Session{
		id:   uuid.NewString(),
		conn: conn,
		tx:   tx,
	}, nil
}

// Close 关闭工厂，Open 创建的工厂同时关闭连接池
func (f *Factory) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.mu.Unlock()

	if f.ownsDB {
		return f.db.Close()
	}
	return nil
}

// Ensure Factory implements session.Factory
var _ session.Factory = (*Factory)(nil)
