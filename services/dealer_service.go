package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"dealer_hub/models"
	"dealer_hub/utils"
)

// RegisterDealerInput 顶级经销商注册参数
type RegisterDealerInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Slug     string `json:"slug" validate:"required,min=3,max=50,slug"`
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Email    string `json:"email" validate:"omitempty,email,max=100"`
	Phone    string `json:"phone" validate:"omitempty,max=20"`
}

// CreateSubDealerInput 创建下级经销商参数
type CreateSubDealerInput struct {
	Name                string `json:"name" validate:"required,max=100"`
	Slug                string `json:"slug" validate:"required,min=3,max=50,slug"`
	Username            string `json:"username" validate:"required,min=3,max=50"`
	Password            string `json:"password" validate:"required,min=6,max=72"`
	Email               string `json:"email" validate:"omitempty,email,max=100"`
	Phone               string `json:"phone" validate:"omitempty,max=20"`
	InheritProducts     *bool  `json:"inherit_products"`      // 默认 true
	AllowCustomProducts *bool  `json:"allow_custom_products"` // 默认 false
	// Commission 同时建立佣金协议，可为空
	Commission *CommissionSettingsInput `json:"commission"`
}

// UpdateSubDealerInput 更新下级经销商参数，字段为空表示不修改
type UpdateSubDealerInput struct {
	Name                *string `json:"name" validate:"omitempty,min=1,max=100"`
	Email               *string `json:"email" validate:"omitempty,max=100"`
	Phone               *string `json:"phone" validate:"omitempty,max=20"`
	Password            *string `json:"password" validate:"omitempty,min=6,max=72"`
	InheritProducts     *bool   `json:"inherit_products"`
	AllowCustomProducts *bool   `json:"allow_custom_products"`
	IsActive            *bool   `json:"is_active"`
}

// DealerHierarchy 经销商在树中的位置
type DealerHierarchy struct {
	Self     models.Dealer   `json:"self"`
	Parent   *models.Dealer  `json:"parent"`
	Children []models.Dealer `json:"children"`
}

// GetDealer 按ID查询经销商，已删除的视为不存在
func GetDealer(ctx context.Context, db *gorm.DB, dealerID uint) (*models.Dealer, error) {
	var dealer models.Dealer
	if err := db.WithContext(ctx).Where("deleted_at IS NULL").First(&dealer, dealerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDealerNotFound
		}
		return nil, fmt.Errorf("查询经销商失败: %w", err)
	}
	return &dealer, nil
}

// checkIdentityAvailable slug 和用户名在全部经销商中唯一，包括已删除的
func checkIdentityAvailable(db *gorm.DB, slug, username string) (MessageKind, error) {
	var count int64
	if err := db.Model(&models.Dealer{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return KindInternalError, err
	}
	if count > 0 {
		return KindSlugTaken, nil
	}

	if err := db.Model(&models.Dealer{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return KindInternalError, err
	}
	if count > 0 {
		return KindUsernameTaken, nil
	}
	return KindOK, nil
}

// identityConflict 写入失败后复查 slug 和用户名，并发注册撞上唯一索引时返回对应结果
func identityConflict(db *gorm.DB, slug, username string, op string, err error) Result {
	if kind, checkErr := checkIdentityAvailable(db, slug, username); checkErr == nil && kind != KindOK {
		return fail(kind)
	}
	return internalError(op, err)
}

// RegisterRootDealer 注册顶级经销商（层级 0）
func RegisterRootDealer(ctx context.Context, db *gorm.DB, input RegisterDealerInput) Result {
	input.Slug = utils.NormalizeSlug(input.Slug)
	input.Username = strings.TrimSpace(input.Username)
	if res, valid := validationResult(input); !valid {
		return res
	}
	db = db.WithContext(ctx)

	kind, err := checkIdentityAvailable(db, input.Slug, input.Username)
	if err != nil {
		return internalError("检查经销商标识", err)
	}
	if kind != KindOK {
		return fail(kind)
	}

	dealer := models.Dealer{
		Name:            input.Name,
		Slug:            input.Slug,
		Username:        input.Username,
		Email:           input.Email,
		Phone:           input.Phone,
		HierarchyLevel:  0,
		InheritProducts: true,
		IsActive:        true,
	}
	if err := dealer.SetPassword(input.Password); err != nil {
		return internalError("密码加密", err)
	}

	if err := db.Create(&dealer).Error; err != nil {
		return identityConflict(db, input.Slug, input.Username, "创建经销商", err)
	}

	log.Printf("顶级经销商注册成功: %s (ID:%d)", dealer.Slug, dealer.ID)
	res := ok()
	res.ID = dealer.ID
	return res
}

// CreateSubDealer 在指定上级下创建经销商
// 层级为上级层级+1，上级 children_count 与可选的佣金协议在同一事务内写入
func CreateSubDealer(ctx context.Context, db *gorm.DB, parentDealerID uint, input CreateSubDealerInput) Result {
	input.Slug = utils.NormalizeSlug(input.Slug)
	input.Username = strings.TrimSpace(input.Username)
	if res, valid := validationResult(input); !valid {
		return res
	}
	db = db.WithContext(ctx)

	parent, err := GetDealer(ctx, db, parentDealerID)
	if err != nil {
		if errors.Is(err, ErrDealerNotFound) {
			return fail(KindDealerNotFound)
		}
		return internalError("查询上级经销商", err)
	}
	if !parent.IsActive {
		return fail(KindDealerNotFound)
	}
	if parent.HierarchyLevel+1 > models.MaxHierarchyLevel {
		return fail(KindMaxLevelReached)
	}

	kind, err := checkIdentityAvailable(db, input.Slug, input.Username)
	if err != nil {
		return internalError("检查经销商标识", err)
	}
	if kind != KindOK {
		return fail(kind)
	}

	inherit := true
	if input.InheritProducts != nil {
		inherit = *input.InheritProducts
	}
	allowCustom := false
	if input.AllowCustomProducts != nil {
		allowCustom = *input.AllowCustomProducts
	}

	child := models.Dealer{
		Name:                input.Name,
		Slug:                input.Slug,
		Username:            input.Username,
		Email:               input.Email,
		Phone:               input.Phone,
		ParentDealerID:      &parent.ID,
		HierarchyLevel:      parent.HierarchyLevel + 1,
		InheritProducts:     inherit,
		AllowCustomProducts: allowCustom,
		IsActive:            true,
	}
	if err := child.SetPassword(input.Password); err != nil {
		return internalError("密码加密", err)
	}

	tx := db.Begin()
	if tx.Error != nil {
		return internalError("开始事务", tx.Error)
	}

	var txClosed bool
	defer func() {
		if !txClosed {
			tx.Rollback()
		}
	}()

	if err := tx.Create(&child).Error; err != nil {
		// 先释放事务再复查
		tx.Rollback()
		txClosed = true
		return identityConflict(db, input.Slug, input.Username, "创建下级经销商", err)
	}

	if err := tx.Model(&models.Dealer{}).Where("id = ?", parent.ID).
		UpdateColumn("children_count", gorm.Expr("children_count + ?", 1)).Error; err != nil {
		return internalError("更新上级下级数量", err)
	}

	if input.Commission != nil {
		if _, err := upsertCommission(tx, parent.ID, child.ID, *input.Commission); err != nil {
			return internalError("创建佣金协议", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return internalError("提交事务", err)
	}
	txClosed = true

	invalidateStats(ctx, parent.ID)
	log.Printf("经销商 %d 创建下级经销商 %s (ID:%d, 层级:%d)", parent.ID, child.Slug, child.ID, child.HierarchyLevel)

	res := ok()
	res.ID = child.ID
	return res
}

// UpdateSubDealer 更新直属下级的资料和开关
func UpdateSubDealer(ctx context.Context, db *gorm.DB, parentDealerID, childDealerID uint, input UpdateSubDealerInput) Result {
	if res, valid := validationResult(input); !valid {
		return res
	}
	db = db.WithContext(ctx)

	child, err := findDirectChild(db, parentDealerID, childDealerID)
	if err != nil {
		return childLookupResult(err)
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.Email != nil {
		updates["email"] = *input.Email
	}
	if input.Phone != nil {
		updates["phone"] = *input.Phone
	}
	if input.InheritProducts != nil {
		updates["inherit_products"] = *input.InheritProducts
	}
	if input.AllowCustomProducts != nil {
		updates["allow_custom_products"] = *input.AllowCustomProducts
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if input.Password != nil {
		if err := child.SetPassword(*input.Password); err != nil {
			return internalError("密码加密", err)
		}
		updates["password"] = child.Password
	}

	if len(updates) == 0 {
		res := ok()
		res.ID = child.ID
		return res
	}

	if err := db.Model(child).Updates(updates).Error; err != nil {
		return internalError("更新下级经销商", err)
	}

	// 停用账号时同时使其登录令牌失效
	if input.IsActive != nil && !*input.IsActive {
		if err := db.Where("dealer_id = ?", child.ID).Delete(&models.DealerToken{}).Error; err != nil {
			log.Printf("清理经销商 %d 的令牌失败: %v", child.ID, err)
		}
	}

	invalidateStats(ctx, parentDealerID)
	res := ok()
	res.ID = child.ID
	return res
}

// DeleteSubDealer 软删除直属下级
// 仍有下级或订单时拒绝
func DeleteSubDealer(ctx context.Context, db *gorm.DB, parentDealerID, childDealerID uint) Result {
	db = db.WithContext(ctx)

	child, err := findDirectChild(db, parentDealerID, childDealerID)
	if err != nil {
		return childLookupResult(err)
	}

	var subCount int64
	if err := db.Model(&models.Dealer{}).
		Where("parent_dealer_id = ? AND deleted_at IS NULL", child.ID).
		Count(&subCount).Error; err != nil {
		return internalError("统计下级经销商", err)
	}
	if subCount > 0 {
		return fail(KindHasSubDealers)
	}

	var orderCount int64
	if err := db.Model(&models.ShopOrder{}).Where("dealer_id = ?", child.ID).Count(&orderCount).Error; err != nil {
		return internalError("统计订单", err)
	}
	if orderCount > 0 {
		return fail(KindHasOrders)
	}

	tx := db.Begin()
	if tx.Error != nil {
		return internalError("开始事务", tx.Error)
	}

	var txCommitted bool
	defer func() {
		if !txCommitted {
			tx.Rollback()
		}
	}()

	now := time.Now()
	if err := tx.Model(child).Updates(map[string]interface{}{
		"is_active":  false,
		"deleted_at": now,
	}).Error; err != nil {
		return internalError("删除下级经销商", err)
	}

	if err := tx.Model(&models.Dealer{}).Where("id = ? AND children_count > 0", parentDealerID).
		UpdateColumn("children_count", gorm.Expr("children_count - ?", 1)).Error; err != nil {
		return internalError("更新上级下级数量", err)
	}

	if err := tx.Where("dealer_id = ?", child.ID).Delete(&models.DealerToken{}).Error; err != nil {
		return internalError("清理登录令牌", err)
	}

	if err := tx.Commit().Error; err != nil {
		return internalError("提交事务", err)
	}
	txCommitted = true

	invalidateStats(ctx, parentDealerID)
	log.Printf("经销商 %d 删除下级经销商 %s (ID:%d)", parentDealerID, child.Slug, child.ID)

	res := ok()
	res.ID = child.ID
	return res
}

// ListSubDealers 列出未删除的直属下级
func ListSubDealers(ctx context.Context, db *gorm.DB, parentDealerID uint) ([]models.Dealer, error) {
	var children []models.Dealer
	err := db.WithContext(ctx).
		Where("parent_dealer_id = ? AND deleted_at IS NULL", parentDealerID).
		Order("id").
		Find(&children).Error
	if err != nil {
		return nil, fmt.Errorf("查询下级经销商失败: %w", err)
	}
	return children, nil
}

// GetDealerHierarchy 返回自己、上级和直属下级
func GetDealerHierarchy(ctx context.Context, db *gorm.DB, dealerID uint) (*DealerHierarchy, error) {
	self, err := GetDealer(ctx, db, dealerID)
	if err != nil {
		return nil, err
	}

	hierarchy := &DealerHierarchy{Self: *self}

	if self.ParentDealerID != nil {
		parent, err := GetDealer(ctx, db, *self.ParentDealerID)
		if err != nil && !errors.Is(err, ErrDealerNotFound) {
			return nil, err
		}
		hierarchy.Parent = parent
	}

	children, err := ListSubDealers(ctx, db, dealerID)
	if err != nil {
		return nil, err
	}
	hierarchy.Children = children

	return hierarchy, nil
}
