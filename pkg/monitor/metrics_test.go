package monitor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/dbscope/pkg/backend/memory"
	"github.com/kasuganosora/dbscope/pkg/scope"
)

func beginQuiet(t *testing.T, ctx context.Context, factory *memory.Factory, policy scope.Policy, observers ...scope.Observer) (context.Context, *scope.SessionScope) {
	t.Helper()

	ctx, s, err := scope.Begin(ctx, factory, &scope.Options{
		Policy:    policy,
		Logger:    scope.NewNoOpLogger(),
		Observers: observers,
	})
	require.NoError(t, err)
	return ctx, s
}

func TestScopeMetricsCounters(t *testing.T) {
	metrics := NewScopeMetrics()
	factory := memory.NewFactory()

	ctx, outer := beginQuiet(t, context.Background(), factory, scope.PolicyRequired, metrics)
	ctx2, inner := beginQuiet(t, ctx, factory, scope.PolicyRequired, metrics)
	_, fresh := beginQuiet(t, ctx2, factory, scope.PolicyRequiresNew, metrics)

	assert.Equal(t, int64(3), metrics.GetScopesOpened())
	assert.Equal(t, int64(2), metrics.GetSessionsCreated())
	assert.Equal(t, int64(1), metrics.GetScopesJoined())
	assert.Equal(t, int64(3), metrics.GetActiveScopes())
	assert.Equal(t, int64(2), metrics.GetPolicyCount("required"))
	assert.Equal(t, int64(1), metrics.GetPolicyCount("requires_new"))

	require.NoError(t, fresh.Complete())
	require.NoError(t, fresh.Close())
	require.NoError(t, inner.Close())
	require.NoError(t, outer.Close())

	assert.Equal(t, int64(3), metrics.GetScopesClosed())
	assert.Equal(t, int64(0), metrics.GetActiveScopes())
	// outer closed without Complete and owned its session
	assert.Equal(t, int64(1), metrics.GetIncompleteClosed())
}

func TestScopeMetricsRates(t *testing.T) {
	metrics := NewScopeMetrics()
	factory := memory.NewFactory()

	assert.Equal(t, float64(0), metrics.GetJoinRate())
	assert.Equal(t, float64(0), metrics.GetCompletionRate())

	ctx, outer := beginQuiet(t, context.Background(), factory, scope.PolicyRequired, metrics)
	_, inner := beginQuiet(t, ctx, factory, scope.PolicyRequired, metrics)

	assert.InDelta(t, 50.0, metrics.GetJoinRate(), 0.001)

	require.NoError(t, inner.Complete())
	require.NoError(t, inner.Close())
	require.NoError(t, outer.Close())

	assert.InDelta(t, 50.0, metrics.GetCompletionRate(), 0.001)
}

func TestScopeMetricsSnapshot(t *testing.T) {
	metrics := NewScopeMetrics()
	factory := memory.NewFactory()

	ctx, outer := beginQuiet(t, context.Background(), factory, scope.PolicyRequired, metrics)
	_, inner := beginQuiet(t, ctx, factory, scope.PolicyRequired, metrics)
	require.NoError(t, inner.Close())

	snapshot := metrics.GetSnapshot()
	assert.Equal(t, int64(2), snapshot.ScopesOpened)
	assert.Equal(t, int64(1), snapshot.SessionsCreated)
	assert.Equal(t, int64(1), snapshot.ScopesJoined)
	assert.Equal(t, int64(1), snapshot.ScopesClosed)
	assert.Equal(t, int64(1), snapshot.ActiveScopes)
	assert.Equal(t, int64(2), snapshot.PolicyCount["required"])
	assert.GreaterOrEqual(t, snapshot.Uptime.Nanoseconds(), int64(0))

	// Snapshot owns its map copy
	snapshot.PolicyCount["required"] = 99
	assert.Equal(t, int64(2), metrics.GetPolicyCount("required"))

	require.NoError(t, outer.Close())
}

func TestScopeMetricsReset(t *testing.T) {
	metrics := NewScopeMetrics()
	factory := memory.NewFactory()

	_, s := beginQuiet(t, context.Background(), factory, scope.PolicyRequired, metrics)
	require.NoError(t, s.Close())

	metrics.Reset()

	assert.Equal(t, int64(0), metrics.GetScopesOpened())
	assert.Equal(t, int64(0), metrics.GetScopesClosed())
	assert.Equal(t, int64(0), metrics.GetActiveScopes())
	assert.Empty(t, metrics.GetAllPolicyCounts())
}
