package badgerdb

import (
	"context"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/dbscope/pkg/scope"
	"github.com/kasuganosora/dbscope/pkg/session"
)

func openTestFactory(t *testing.T) *Factory {
	t.Helper()

	f, err := Open(&Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestOpenValidation(t *testing.T) {
	_, err := Open(nil)
	assert.Error(t, err)

	_, err = Open(&Config{InMemory: false, DataDir: ""})
	assert.Error(t, err, "on-disk mode needs a data dir")
}

func TestCommitPersists(t *testing.T) {
	f := openTestFactory(t)
	ctx := context.Background()

	s, err := f.NewSession(ctx)
	require.NoError(t, err)

	bs := s.(*Session)
	require.NoError(t, bs.Txn().Set([]byte("k1"), []byte("v1")))
	require.NoError(t, bs.Commit())
	require.NoError(t, s.Close(ctx))

	check, err := f.NewSession(ctx)
	require.NoError(t, err)
	defer check.Close(ctx)

	item, err := check.(*Session).Txn().Get([]byte("k1"))
	require.NoError(t, err)
	val, err := item.ValueCopy(nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), val)
}

func TestCloseDiscardsUncommitted(t *testing.T) {
	f := openTestFactory(t)
	ctx := context.Background()

	s, err := f.NewSession(ctx)
	require.NoError(t, err)

	bs := s.(*Session)
	require.NoError(t, bs.Txn().Set([]byte("k2"), []byte("v2")))
	require.NoError(t, s.Close(ctx))
	require.NoError(t, s.Close(ctx), "close is idempotent")
	assert.Nil(t, bs.Txn())

	check, err := f.NewSession(ctx)
	require.NoError(t, err)
	defer check.Close(ctx)

	_, err = check.(*Session).Txn().Get([]byte("k2"))
	assert.ErrorIs(t, err, badger.ErrKeyNotFound, "uncommitted write must be discarded")
}

func TestCommitAfterClose(t *testing.T) {
	f := openTestFactory(t)
	ctx := context.Background()

	s, err := f.NewSession(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Close(ctx))

	var closedErr *session.ErrSessionClosed
	assert.ErrorAs(t, s.(*Session).Commit(), &closedErr)
}

func TestReadOnlySessions(t *testing.T) {
	f, err := Open(&Config{InMemory: true, ReadOnly: true})
	require.NoError(t, err)
	defer f.Close()

	s, err := f.NewSession(context.Background())
	require.NoError(t, err)
	defer s.Close(context.Background())

	err = s.(*Session).Txn().Set([]byte("k"), []byte("v"))
	assert.Error(t, err, "read-only transaction must reject writes")
}

func TestClosedFactory(t *testing.T) {
	f, err := Open(&Config{InMemory: true})
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, f.Close(), "factory close is idempotent")

	_, err = f.NewSession(context.Background())
	var unavailable *session.ErrFactoryUnavailable
	assert.ErrorAs(t, err, &unavailable)
}

func TestScopedBadgerUnitOfWork(t *testing.T) {
	f := openTestFactory(t)
	ctx := context.Background()

	ctx, outer, err := scope.Begin(ctx, f, &scope.Options{Logger: scope.NewNoOpLogger()})
	require.NoError(t, err)

	_, inner, err := scope.Begin(ctx, f, &scope.Options{Logger: scope.NewNoOpLogger()})
	require.NoError(t, err)

	// 内层加入外层事务，写入对外层可见
	bs := inner.Session().(*Session)
	require.NoError(t, bs.Txn().Set([]byte("shared"), []byte("1")))
	require.NoError(t, inner.Close())

	item, err := outer.Session().(*Session).Txn().Get([]byte("shared"))
	require.NoError(t, err)
	val, err := item.ValueCopy(nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), val)

	require.NoError(t, outer.Close())
}
