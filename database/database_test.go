package database

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dealer_hub/models"
)

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(Options{Driver: "oracle"})
	assert.Error(t, err)
}

func TestAutoMigrate_CommissionConstraints(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()

	require.NoError(t, AutoMigrate(db))

	for _, table := range []string{"dealers", "dealer_tokens", "shop_orders", "dealer_commissions", "commission_payouts", "commission_transactions"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	// 同一对上下级只能有一份协议
	first := models.DealerCommission{ParentDealerID: 1, ChildDealerID: 2, PayoutFrequency: models.PayoutFrequencyMonthly}
	require.NoError(t, db.Create(&first).Error)
	dup := models.DealerCommission{ParentDealerID: 1, ChildDealerID: 2, PayoutFrequency: models.PayoutFrequencyMonthly}
	assert.Error(t, db.Create(&dup).Error)

	// 同一订单只能计提一次
	tx := models.CommissionTransaction{
		CommissionID:     first.ID,
		ParentDealerID:   1,
		ChildDealerID:    2,
		OrderID:          99,
		OrderTotal:       decimal.NewFromInt(100),
		CommissionAmount: decimal.NewFromInt(5),
		CommissionRate:   decimal.NewFromInt(5),
	}
	require.NoError(t, db.Create(&tx).Error)

	var stored models.CommissionTransaction
	require.NoError(t, db.First(&stored, tx.ID).Error)
	assert.Equal(t, models.CommissionStatusPending, stored.Status)

	again := stored
	again.ID = 0
	assert.Error(t, db.Create(&again).Error)
}

func TestSetDB(t *testing.T) {
	prev := GetDB()
	t.Cleanup(func() { SetDB(prev) })

	db := &gorm.DB{}
	SetDB(db)
	assert.Same(t, db, GetDB())
}
