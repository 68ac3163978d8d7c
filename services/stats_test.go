package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealer_hub/cache"
)

func TestGetCommissionStats(t *testing.T) {
	db := newTestDB(t)
	parent := seedDealer(t, db, nil)
	childA := seedDealer(t, db, parent)
	childB := seedDealer(t, db, parent)
	inactive := seedDealer(t, db, parent)
	require.NoError(t, db.Model(inactive).Update("is_active", false).Error)

	seedContract(t, db, parent, childA, 5, 10, 100)
	seedContract(t, db, parent, childB, 10, 0, 1000)

	empty, err := GetCommissionStats(ctx, db, parent.ID)
	require.NoError(t, err)
	requireDecimal(t, "0", empty.TotalEarned)
	requireDecimal(t, "0", empty.PendingPayouts)
	requireDecimal(t, "0", empty.PaidPayouts)
	assert.EqualValues(t, 2, empty.ActiveSubDealers)

	for _, total := range []string{"500", "300", "1200"} {
		require.True(t, CalculateOrderCommission(ctx, db, seedCompletedOrder(t, db, childA, total).ID).Success)
	}
	require.True(t, CalculateOrderCommission(ctx, db, seedCompletedOrder(t, db, childB, "250").ID).Success)
	require.True(t, ProcessCommissionPayout(ctx, db, parent.ID, childA.ID).Success)

	stats, err := GetCommissionStats(ctx, db, parent.ID)
	require.NoError(t, err)
	requireDecimal(t, "155", stats.TotalEarned)
	requireDecimal(t, "25", stats.PendingPayouts)
	requireDecimal(t, "130", stats.PaidPayouts)
	assert.EqualValues(t, 2, stats.ActiveSubDealers)

	again, err := GetCommissionStats(ctx, db, parent.ID)
	require.NoError(t, err)
	assert.True(t, stats.TotalEarned.Equal(again.TotalEarned))
	assert.True(t, stats.PendingPayouts.Equal(again.PendingPayouts))
	assert.True(t, stats.PaidPayouts.Equal(again.PaidPayouts))
	assert.Equal(t, stats.ActiveSubDealers, again.ActiveSubDealers)

	other, err := GetCommissionStats(ctx, db, childA.ID)
	require.NoError(t, err)
	requireDecimal(t, "0", other.TotalEarned)
	assert.Zero(t, other.ActiveSubDealers)
}

func TestGetCommissionStats_CacheInvalidatedByMutations(t *testing.T) {
	db := newTestDB(t)
	store := newMemoryStore()
	cache.SetStore(store)

	parent := seedDealer(t, db, nil)
	child := seedDealer(t, db, parent)
	seedContract(t, db, parent, child, 10, 0, 0)
	key := cache.CommissionStatsKey(parent.ID)

	first, err := GetCommissionStats(ctx, db, parent.ID)
	require.NoError(t, err)
	require.True(t, store.has(key))

	second, err := GetCommissionStats(ctx, db, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, store.hits)
	assert.True(t, first.TotalEarned.Equal(second.TotalEarned))

	require.True(t, CalculateOrderCommission(ctx, db, seedCompletedOrder(t, db, child, "100").ID).Success)
	assert.False(t, store.has(key))

	afterCalc, err := GetCommissionStats(ctx, db, parent.ID)
	require.NoError(t, err)
	requireDecimal(t, "10", afterCalc.PendingPayouts)

	require.True(t, ProcessCommissionPayout(ctx, db, parent.ID, child.ID).Success)
	assert.False(t, store.has(key))

	afterPayout, err := GetCommissionStats(ctx, db, parent.ID)
	require.NoError(t, err)
	requireDecimal(t, "0", afterPayout.PendingPayouts)
	requireDecimal(t, "10", afterPayout.PaidPayouts)

	require.True(t, ToggleCommissionSettings(ctx, db, parent.ID, child.ID, boolPtr(false)).Success)
	assert.False(t, store.has(key))

	_, err = GetCommissionStats(ctx, db, parent.ID)
	require.NoError(t, err)
	require.True(t, DeleteSubDealer(ctx, db, parent.ID, seedDealer(t, db, parent).ID).Success)
	assert.False(t, store.has(key))
}

func TestGetCommissionStats_IgnoresCorruptCache(t *testing.T) {
	db := newTestDB(t)
	store := newMemoryStore()
	cache.SetStore(store)

	parent := seedDealer(t, db, nil)
	seedDealer(t, db, parent)
	store.Set(ctx, cache.CommissionStatsKey(parent.ID), []byte("not-json"))

	stats, err := GetCommissionStats(ctx, db, parent.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.ActiveSubDealers)
}

// hookStore 在写入缓存前执行 beforeSet，模拟查库与回写之间发生的变更
type hookStore struct {
	*memoryStore
	beforeSet func()
}

func (h *hookStore) Set(c context.Context, key string, value []byte) {
	if h.beforeSet != nil {
		fn := h.beforeSet
		h.beforeSet = nil
		fn()
	}
	h.memoryStore.Set(c, key, value)
}

func TestGetCommissionStats_MutationDuringLoadNotCached(t *testing.T) {
	db := newTestDB(t)
	parent := seedDealer(t, db, nil)
	child := seedDealer(t, db, parent)
	seedContract(t, db, parent, child, 10, 0, 0)
	require.True(t, CalculateOrderCommission(ctx, db, seedCompletedOrder(t, db, child, "100").ID).Success)

	store := &hookStore{memoryStore: newMemoryStore()}
	store.beforeSet = func() {
		require.True(t, ProcessCommissionPayout(ctx, db, parent.ID, child.ID).Success)
	}
	cache.SetStore(store)

	// 本次结果在结算之前读出
	stale, err := GetCommissionStats(ctx, db, parent.ID)
	require.NoError(t, err)
	requireDecimal(t, "10", stale.PendingPayouts)
	assert.False(t, store.has(cache.CommissionStatsKey(parent.ID)))

	fresh, err := GetCommissionStats(ctx, db, parent.ID)
	require.NoError(t, err)
	requireDecimal(t, "0", fresh.PendingPayouts)
	requireDecimal(t, "10", fresh.PaidPayouts)
}
