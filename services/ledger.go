package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"dealer_hub/models"
)

// 导出上限，防止一次生成过大的文件
const maxExportRows = 10000

func transactionQuery(db *gorm.DB, parentDealerID uint, q models.CommissionTransactionQuery) *gorm.DB {
	query := db.Model(&models.CommissionTransaction{}).Where("parent_dealer_id = ?", parentDealerID)
	if q.ChildDealerID != 0 {
		query = query.Where("child_dealer_id = ?", q.ChildDealerID)
	}
	if q.Status != "" {
		query = query.Where("status = ?", strings.ToUpper(q.Status))
	}
	return query
}

// ListCommissionTransactions 分页查询上级经销商名下的佣金流水
func ListCommissionTransactions(ctx context.Context, db *gorm.DB, parentDealerID uint, q models.CommissionTransactionQuery) ([]models.CommissionTransaction, int64, error) {
	page, pageSize := normalizePage(q.Page, q.PageSize)
	query := transactionQuery(db.WithContext(ctx), parentDealerID, q)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计佣金流水失败: %w", err)
	}

	var records []models.CommissionTransaction
	if err := query.Order("id DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("查询佣金流水失败: %w", err)
	}
	return records, total, nil
}

// ExportCommissionTransactions 导出佣金流水为 xlsx
func ExportCommissionTransactions(ctx context.Context, db *gorm.DB, parentDealerID uint, q models.CommissionTransactionQuery) (*bytes.Buffer, error) {
	db = db.WithContext(ctx)

	var records []models.CommissionTransaction
	if err := transactionQuery(db, parentDealerID, q).Order("id").Limit(maxExportRows).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("查询佣金流水失败: %w", err)
	}

	// 下级经销商名称
	childIDs := make([]uint, 0)
	seen := make(map[uint]bool)
	for _, r := range records {
		if !seen[r.ChildDealerID] {
			seen[r.ChildDealerID] = true
			childIDs = append(childIDs, r.ChildDealerID)
		}
	}
	names := make(map[uint]string, len(childIDs))
	if len(childIDs) > 0 {
		var children []models.Dealer
		if err := db.Select("id", "name").Where("id IN ?", childIDs).Find(&children).Error; err != nil {
			return nil, fmt.Errorf("查询下级经销商失败: %w", err)
		}
		for _, d := range children {
			names[d.ID] = d.Name
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "佣金流水"
	// 直接重命名默认工作表
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("创建工作表失败: %w", err)
	}

	headers := []string{"流水ID", "下级经销商", "订单ID", "订单金额", "佣金比例(%)", "佣金金额", "状态", "结算批次ID", "创建时间", "结算时间"}
	headerRow := make([]interface{}, len(headers))
	for i, header := range headers {
		headerRow[i] = header
	}
	if err := setRow(f, sheetName, 1, headerRow); err != nil {
		return nil, err
	}

	for i, r := range records {
		row := i + 2
		orderTotal, _ := r.OrderTotal.Float64()
		rate, _ := r.CommissionRate.Float64()
		amount, _ := r.CommissionAmount.Float64()

		values := []interface{}{
			r.ID,
			names[r.ChildDealerID],
			r.OrderID,
			orderTotal,
			rate,
			amount,
			r.Status,
			"",
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			"",
		}
		if r.PayoutID != nil {
			values[7] = *r.PayoutID
		}
		if r.PaidAt != nil {
			values[9] = r.PaidAt.Format("2006-01-02 15:04:05")
		}

		if err := setRow(f, sheetName, row, values); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("生成Excel失败: %w", err)
	}
	return buf, nil
}

// setRow 从第一列开始写入一行
func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("计算单元格坐标失败: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("写入单元格 %s 失败: %w", cell, err)
		}
	}
	return nil
}
