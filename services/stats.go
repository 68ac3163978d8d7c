package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"dealer_hub/cache"
	"dealer_hub/models"
)

// CommissionStats 上级经销商的佣金汇总
type CommissionStats struct {
	TotalEarned      decimal.Decimal `json:"total_earned"`
	PendingPayouts   decimal.Decimal `json:"pending_payouts"`
	PaidPayouts      decimal.Decimal `json:"paid_payouts"`
	ActiveSubDealers int64           `json:"active_sub_dealers"`
}

// GetCommissionStats 汇总上级经销商名下全部佣金流水
// 先读缓存，未命中时查库并回写
func GetCommissionStats(ctx context.Context, db *gorm.DB, parentDealerID uint) (CommissionStats, error) {
	store := cache.GetStore()
	key := cache.CommissionStatsKey(parentDealerID)

	if raw, hit := store.Get(ctx, key); hit {
		var stats CommissionStats
		if err := json.Unmarshal(raw, &stats); err == nil {
			return stats, nil
		}
		log.Printf("佣金统计缓存损坏，重新计算 key=%s", key)
	}

	gen := statsGen.current(parentDealerID)
	stats, err := loadCommissionStats(db.WithContext(ctx), parentDealerID)
	if err != nil {
		return CommissionStats{}, err
	}

	// 查库期间发生过变更则不回写，回写后再次确认，避免旧数据覆盖失效
	if statsGen.current(parentDealerID) != gen {
		return stats, nil
	}
	if raw, err := json.Marshal(stats); err == nil {
		store.Set(ctx, key, raw)
		if statsGen.current(parentDealerID) != gen {
			store.Delete(ctx, key)
		}
	}
	return stats, nil
}

func loadCommissionStats(db *gorm.DB, parentDealerID uint) (CommissionStats, error) {
	var sums struct {
		TotalEarned    decimal.Decimal
		PendingPayouts decimal.Decimal
		PaidPayouts    decimal.Decimal
	}
	err := db.Model(&models.CommissionTransaction{}).
		Select(`COALESCE(SUM(commission_amount), 0) AS total_earned,
			COALESCE(SUM(CASE WHEN status = ? THEN commission_amount ELSE 0 END), 0) AS pending_payouts,
			COALESCE(SUM(CASE WHEN status = ? THEN commission_amount ELSE 0 END), 0) AS paid_payouts`,
			models.CommissionStatusPending, models.CommissionStatusPaid).
		Where("parent_dealer_id = ?", parentDealerID).
		Scan(&sums).Error
	if err != nil {
		return CommissionStats{}, fmt.Errorf("汇总佣金流水失败: %w", err)
	}

	var active int64
	err = db.Model(&models.Dealer{}).
		Where("parent_dealer_id = ? AND is_active = ? AND deleted_at IS NULL", parentDealerID, true).
		Count(&active).Error
	if err != nil {
		return CommissionStats{}, fmt.Errorf("统计下级经销商失败: %w", err)
	}

	return CommissionStats{
		TotalEarned:      sums.TotalEarned.Round(2),
		PendingPayouts:   sums.PendingPayouts.Round(2),
		PaidPayouts:      sums.PaidPayouts.Round(2),
		ActiveSubDealers: active,
	}, nil
}

// statsGenerations 每个上级经销商的统计版本号，每次失效加一
type statsGenerations struct {
	mu  sync.Mutex
	gen map[uint]uint64
}

var statsGen = &statsGenerations{gen: map[uint]uint64{}}

func (g *statsGenerations) current(parentDealerID uint) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gen[parentDealerID]
}

func (g *statsGenerations) bump(parentDealerID uint) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gen[parentDealerID]++
}

// invalidateStats 变更后清除上级经销商的统计缓存
func invalidateStats(ctx context.Context, parentDealerID uint) {
	statsGen.bump(parentDealerID)
	cache.GetStore().Delete(ctx, cache.CommissionStatsKey(parentDealerID))
}
