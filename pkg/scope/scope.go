// Package scope implements ambient, nestable session scoping on top of
// context.Context. A scope marks one unit of work; nested scopes either
// join the session of the scope they are opened under or create their
// own, depending on Policy. The creating scope is the only one that
// closes the session.
package scope

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kasuganosora/dbscope/pkg/session"
)

// defaultLogger is shared by scopes opened without an explicit logger.
var defaultLogger Logger = NewDefaultLogger(LogInfo)

// SessionScope is one live unit-of-work marker. Opened with Begin,
// finished with Complete (success marker) and Close (disposal).
type SessionScope struct {
	id        string
	sessionID string
	policy    Policy
	createdAt time.Time
	parent    *SessionScope
	logger    Logger
	observers []Observer

	warnIncomplete bool

	mu           sync.Mutex
	sess         session.Session
	ownsSession  bool
	completed    bool
	closed       bool
	liveChildren int
}

type ctxKey struct{}

// Begin opens a scope on top of ctx and returns the derived context
// carrying it. On error the input ctx is returned unchanged and nothing
// is created.
//
// With PolicyRequired the scope borrows the session of the innermost
// live scope already on ctx; the factory is invoked only when there is
// none. With PolicyRequiresNew the factory is always invoked.
func Begin(ctx context.Context, factory session.Factory, opts *Options) (context.Context, *SessionScope, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if factory == nil {
		return ctx, nil, NewError(ErrCodeInvalidParam, "session factory cannot be nil", nil)
	}

	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = defaultLogger
	}

	parent, _ := Current(ctx)

	s := &SessionScope{
		id:             uuid.NewString(),
		policy:         opts.Policy,
		createdAt:      time.Now(),
		parent:         parent,
		logger:         logger,
		observers:      opts.Observers,
		warnIncomplete: !opts.DisableIncompleteWarn,
	}

	if s.policy == PolicyRequired && parent != nil {
		if ps := parent.Session(); ps != nil && !ps.Closed() {
			s.sess = ps
			s.ownsSession = false
		}
	}
	if s.sess == nil {
		created, err := factory.NewSession(ctx)
		if err != nil {
			return ctx, nil, WrapError(err, ErrCodeFactory, "create session")
		}
		if created == nil {
			return ctx, nil, NewError(ErrCodeFactory, "factory returned nil session", nil)
		}
		s.sess = created
		s.ownsSession = true
	}

	// 会话标识在会话引用释放后仍可用于快照与诊断
	s.sessionID = s.sess.ID()

	if parent != nil {
		parent.childOpened()
	}

	if s.ownsSession {
		logger.Debug("scope %s opened session %s (policy=%s)", s.id, s.sess.ID(), s.policy)
	} else {
		logger.Debug("scope %s joined session %s (parent scope %s)", s.id, s.sess.ID(), parent.id)
	}
	s.notifyOpened()

	return context.WithValue(ctx, ctxKey{}, s), s, nil
}

// Current returns the innermost live scope carried by ctx. Scopes that
// were closed already are skipped in favor of their parents.
func Current(ctx context.Context) (*SessionScope, bool) {
	if ctx == nil {
		return nil, false
	}
	s, _ := ctx.Value(ctxKey{}).(*SessionScope)
	for s != nil && s.Closed() {
		s = s.parent
	}
	if s == nil {
		return nil, false
	}
	return s, true
}

// ID 返回作用域唯一标识
func (s *SessionScope) ID() string { return s.id }

// Policy 返回会话获取策略
func (s *SessionScope) Policy() Policy { return s.policy }

// CreatedAt 返回创建时间
func (s *SessionScope) CreatedAt() time.Time { return s.createdAt }

// Parent returns the scope that was current when this one was opened,
// nil for a root scope.
func (s *SessionScope) Parent() *SessionScope { return s.parent }

// OwnsSession reports whether the scope created its session, as opposed
// to borrowing an ancestor's.
func (s *SessionScope) OwnsSession() bool { return s.ownsSession }

// Session returns the session the scope runs on. It is nil after an
// owning scope has been closed.
func (s *SessionScope) Session() session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess
}

// Completed reports whether Complete has been called.
func (s *SessionScope) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

// Closed reports whether the scope has been disposed.
func (s *SessionScope) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// LiveChildren returns the number of directly nested scopes still open.
func (s *SessionScope) LiveChildren() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveChildren
}

// Complete marks the unit of work as successful. It is a pure marker:
// the session is not touched here, cleanup happens in Close regardless
// of completion.
func (s *SessionScope) Complete() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewError(ErrCodeDisposed, "scope is disposed", nil)
	}
	if s.completed {
		return NewError(ErrCodeInvalidState, "scope already completed", nil)
	}
	s.completed = true
	return nil
}

// Close disposes the scope. Closing twice is a no-op. Closing a scope
// that still has live child scopes fails with SCOPE_ORDER and leaves
// the scope untouched, so it can be closed later in the right order.
//
// An owning scope closes its session here; the session rolls back
// whatever was not committed. A session close error is returned after
// the scope state has transitioned, the scope counts as closed.
func (s *SessionScope) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if s.liveChildren > 0 {
		n := s.liveChildren
		s.mu.Unlock()
		return NewError(ErrCodeScopeOrder,
			fmt.Sprintf("scope has %d live child scope(s), close them first", n), nil)
	}
	s.closed = true
	sess := s.sess
	completed := s.completed
	if s.ownsSession {
		s.sess = nil
	}
	s.mu.Unlock()

	if s.parent != nil {
		s.parent.childClosed()
	}

	var closeErr error
	if s.ownsSession && sess != nil {
		if !completed && s.warnIncomplete {
			s.logger.Warn("scope %s closed without Complete, session %s rolls back", s.id, sess.ID())
		}
		if err := sess.Close(context.Background()); err != nil {
			s.logger.Error("scope %s close session %s: %v", s.id, sess.ID(), err)
			closeErr = WrapError(err, ErrCodeSessionClose, "close session")
		}
	}

	s.logger.Debug("scope %s closed", s.id)
	s.notifyClosed()
	return closeErr
}

// Info returns a point-in-time snapshot of the scope.
func (s *SessionScope) Info() ScopeInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := ScopeInfo{
		ID:          s.id,
		SessionID:   s.sessionID,
		Policy:      s.policy,
		OwnsSession: s.ownsSession,
		Completed:   s.completed,
		Closed:      s.closed,
		CreatedAt:   s.createdAt,
	}
	if s.parent != nil {
		info.ParentID = s.parent.id
	}
	return info
}

func (s *SessionScope) childOpened() {
	s.mu.Lock()
	s.liveChildren++
	s.mu.Unlock()
}

func (s *SessionScope) childClosed() {
	s.mu.Lock()
	s.liveChildren--
	s.mu.Unlock()
}

func (s *SessionScope) notifyOpened() {
	for _, o := range s.observers {
		if o != nil {
			o.ScopeOpened(s)
		}
	}
}

func (s *SessionScope) notifyClosed() {
	for _, o := range s.observers {
		if o != nil {
			o.ScopeClosed(s)
		}
	}
}
