package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dealer_hub/cache"
	"dealer_hub/database"
	"dealer_hub/models"
)

var ctx = context.Background()

// newTestDB 每个测试独立的内存库，单连接保证所有查询看到同一个库
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	require.NoError(t, database.AutoMigrate(db))

	cache.SetStore(nil)
	t.Cleanup(func() {
		cache.SetStore(nil)
		sqlDB.Close()
	})
	return db
}

var seq int
var seqMu sync.Mutex

func nextSeq() int {
	seqMu.Lock()
	defer seqMu.Unlock()
	seq++
	return seq
}

func seedDealer(t *testing.T, db *gorm.DB, parent *models.Dealer) *models.Dealer {
	t.Helper()

	n := nextSeq()
	dealer := models.Dealer{
		Name:            fmt.Sprintf("Club %d", n),
		Slug:            fmt.Sprintf("club-%d", n),
		Username:        fmt.Sprintf("user%d", n),
		InheritProducts: true,
		IsActive:        true,
	}
	if parent != nil {
		dealer.ParentDealerID = &parent.ID
		dealer.HierarchyLevel = parent.HierarchyLevel + 1
	}
	require.NoError(t, db.Create(&dealer).Error)
	return &dealer
}

func seedContract(t *testing.T, db *gorm.DB, parent, child *models.Dealer, rate, fixed, minimum int64) *models.DealerCommission {
	t.Helper()

	c := models.DealerCommission{
		ParentDealerID:       parent.ID,
		ChildDealerID:        child.ID,
		OrderCommissionRate:  decimal.NewFromInt(rate),
		FixedOrderCommission: decimal.NewFromInt(fixed),
		MinimumPayout:        decimal.NewFromInt(minimum),
		PayoutFrequency:      models.PayoutFrequencyMonthly,
		IsActive:             true,
	}
	require.NoError(t, db.Create(&c).Error)
	return &c
}

func seedOrder(t *testing.T, db *gorm.DB, dealer *models.Dealer, total string, status string) *models.ShopOrder {
	t.Helper()

	o := models.ShopOrder{
		OrderNo:       fmt.Sprintf("SO-TEST-%d", nextSeq()),
		DealerID:      dealer.ID,
		Total:         decimal.RequireFromString(total),
		Status:        status,
		PaymentStatus: models.PaymentStatusPaid,
	}
	require.NoError(t, db.Create(&o).Error)
	return &o
}

func seedCompletedOrder(t *testing.T, db *gorm.DB, dealer *models.Dealer, total string) *models.ShopOrder {
	return seedOrder(t, db, dealer, total, models.OrderStatusCompleted)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// requireDecimal 按数值比较，不受精度表示影响
func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

func transactionsFor(t *testing.T, db *gorm.DB, commissionID uint) []models.CommissionTransaction {
	t.Helper()
	var rows []models.CommissionTransaction
	require.NoError(t, db.Where("commission_id = ?", commissionID).Order("id").Find(&rows).Error)
	return rows
}

// memoryStore 测试用缓存，记录命中和删除
type memoryStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	hits    int
	deletes int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string][]byte{}}
}

func (m *memoryStore) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if ok {
		m.hits++
	}
	return v, ok
}

func (m *memoryStore) Set(_ context.Context, key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

func (m *memoryStore) Delete(_ context.Context, keys ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			m.deletes++
		}
		delete(m.data, k)
	}
}

func (m *memoryStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}
