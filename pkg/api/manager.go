// Package api is the front door of the library: a Manager holds named
// session factories and opens scopes wired with the configured logger,
// metrics and live-scope registry.
package api

import (
	"context"
	"io"
	"sync"

	"github.com/kasuganosora/dbscope/pkg/config"
	"github.com/kasuganosora/dbscope/pkg/monitor"
	"github.com/kasuganosora/dbscope/pkg/scope"
	"github.com/kasuganosora/dbscope/pkg/session"
)

// Manager 会话工厂管理器
type Manager struct {
	mu        sync.RWMutex
	factories map[string]session.Factory
	defaultFn string
	logger    scope.Logger
	closed    bool

	defaultPolicy  scope.Policy
	warnIncomplete bool
	metrics        *monitor.ScopeMetrics
	registry       *scope.ScopeRegistry
	config         *config.Config
}

// NewManager 创建管理器，nil 配置使用默认值
func NewManager(cfg *config.Config) (*Manager, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	policy, ok := scope.ParsePolicy(cfg.Scope.DefaultPolicy)
	if !ok {
		return nil, scope.NewError(scope.ErrCodeInvalidParam,
			"unknown default policy '"+cfg.Scope.DefaultPolicy+"'", nil)
	}

	return &Manager{
		factories:      make(map[string]session.Factory),
		logger:         scope.NewDefaultLogger(parseLogLevel(cfg.Log.Level)),
		defaultPolicy:  policy,
		warnIncomplete: cfg.Scope.WarnIncomplete,
		metrics:        monitor.NewScopeMetrics(),
		registry:       scope.NewScopeRegistry(),
		config:         cfg,
	}, nil
}

// parseLogLevel 解析配置中的日志级别
func parseLogLevel(level string) scope.LogLevel {
	switch level {
	case "debug":
		return scope.LogDebug
	case "warn":
		return scope.LogWarn
	case "error":
		return scope.LogError
	default:
		return scope.LogInfo
	}
}

// RegisterFactory 注册命名工厂，第一个注册的成为默认工厂
func (m *Manager) RegisterFactory(name string, f session.Factory) error {
	if name == "" {
		return scope.NewError(scope.ErrCodeInvalidParam, "factory name cannot be empty", nil)
	}
	if f == nil {
		return scope.NewError(scope.ErrCodeInvalidParam, "factory cannot be nil", nil)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return scope.NewError(scope.ErrCodeClosed, "manager is closed", nil)
	}
	if _, exists := m.factories[name]; exists {
		return scope.NewError(scope.ErrCodeExists, "factory '"+name+"' already exists", nil)
	}

	m.factories[name] = f
	if m.defaultFn == "" {
		m.defaultFn = name
	}

	m.logger.Debug("registered session factory: %s", name)
	return nil
}

// Factory 按名称返回工厂
func (m *Manager) Factory(name string) (session.Factory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, exists := m.factories[name]
	if !exists {
		return nil, scope.NewError(scope.ErrCodeNotFound, "factory '"+name+"' not found", nil)
	}
	return f, nil
}

// DefaultFactory 返回默认工厂
func (m *Manager) DefaultFactory() (session.Factory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.defaultFn == "" {
		return nil, scope.NewError(scope.ErrCodeNotFound, "no default factory set", nil)
	}
	return m.factories[m.defaultFn], nil
}

// SetDefaultFactory 设置默认工厂
func (m *Manager) SetDefaultFactory(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.factories[name]; !exists {
		return scope.NewError(scope.ErrCodeNotFound, "factory '"+name+"' not found", nil)
	}
	m.defaultFn = name
	return nil
}

// FactoryNames 返回所有已注册的工厂名称
func (m *Manager) FactoryNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.factories))
	for name := range m.factories {
		names = append(names, name)
	}
	return names
}

// Begin 使用默认工厂打开作用域
func (m *Manager) Begin(ctx context.Context) (context.Context, *scope.SessionScope, error) {
	return m.begin(ctx, "", nil)
}

// BeginWith 使用命名工厂和选项打开作用域
//
// opts 为 nil 时使用管理器的默认策略。传入的 Logger 与 Observers
// 为空时由管理器补齐（日志、指标、注册表）。
func (m *Manager) BeginWith(ctx context.Context, name string, opts *scope.Options) (context.Context, *scope.SessionScope, error) {
	return m.begin(ctx, name, opts)
}

func (m *Manager) begin(ctx context.Context, name string, opts *scope.Options) (context.Context, *scope.SessionScope, error) {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ctx, nil, scope.NewError(scope.ErrCodeClosed, "manager is closed", nil)
	}
	if name == "" {
		name = m.defaultFn
	}
	f, exists := m.factories[name]
	logger := m.logger
	m.mu.RUnlock()

	if !exists {
		return ctx, nil, scope.NewError(scope.ErrCodeNotFound, "factory '"+name+"' not found", nil)
	}

	merged := &scope.Options{Policy: m.defaultPolicy}
	if opts != nil {
		merged = &scope.Options{
			Policy:                opts.Policy,
			Logger:                opts.Logger,
			DisableIncompleteWarn: opts.DisableIncompleteWarn,
		}
	}
	if merged.Logger == nil {
		merged.Logger = logger
	}
	if !m.warnIncomplete {
		merged.DisableIncompleteWarn = true
	}

	// 复制到新切片，避免写入调用方切片的底层数组
	var callerObservers []scope.Observer
	if opts != nil {
		callerObservers = opts.Observers
	}
	observers := make([]scope.Observer, 0, len(callerObservers)+2)
	observers = append(observers, callerObservers...)
	merged.Observers = append(observers, m.metrics, m.registry)

	return scope.Begin(ctx, f, merged)
}

// Scopes 返回活动作用域注册表
func (m *Manager) Scopes() *scope.ScopeRegistry {
	return m.registry
}

// Metrics 返回作用域指标
func (m *Manager) Metrics() *monitor.ScopeMetrics {
	return m.metrics
}

// SetLogger 设置日志输出
func (m *Manager) SetLogger(logger scope.Logger) {
	if logger == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger = logger
}

// GetLogger 获取日志输出
func (m *Manager) GetLogger() scope.Logger {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.logger
}

// Config 返回管理器配置
func (m *Manager) Config() *config.Config {
	return m.config
}

// Close 关闭管理器，同时关闭实现了 io.Closer 的工厂
//
// 所有工厂都会被尝试关闭，返回最后一个错误。
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	var lastErr error
	for name, f := range m.factories {
		closer, ok := f.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			m.logger.Error("close factory %s: %v", name, err)
			lastErr = err
		}
	}
	return lastErr
}
