package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// MaxHierarchyLevel 经销商树允许的最大层级，0 表示顶级经销商
const MaxHierarchyLevel = 5

// Dealer 经销商（俱乐部）模型
// 经销商之间通过 ParentDealerID 形成一棵树，HierarchyLevel 在创建时确定且不再变更
type Dealer struct {
	ID                  uint       `json:"id" gorm:"primaryKey"`                         // 主键ID
	Name                string     `json:"name" gorm:"size:100;not null"`                // 经销商名称
	Slug                string     `json:"slug" gorm:"size:50;uniqueIndex;not null"`     // 店铺标识，全局唯一
	Username            string     `json:"username" gorm:"size:50;uniqueIndex;not null"` // 登录用户名，全局唯一
	Password            string     `json:"-" gorm:"size:100"`                            // 密码哈希，不返回给前端
	Email               string     `json:"email" gorm:"size:100"`                        // 邮箱
	Phone               string     `json:"phone" gorm:"size:20"`                         // 电话
	ParentDealerID      *uint      `json:"parent_dealer_id" gorm:"index"`                // 上级经销商ID，顶级为空
	HierarchyLevel      int        `json:"hierarchy_level" gorm:"default:0"`             // 层级深度
	ChildrenCount       int        `json:"children_count" gorm:"default:0"`              // 直属下级数量
	InheritProducts     bool       `json:"inherit_products"`                             // 是否继承上级商品，创建时默认 true
	AllowCustomProducts bool       `json:"allow_custom_products"`                        // 是否允许自建商品
	IsActive            bool       `json:"is_active" gorm:"default:true;index"`          // 是否启用
	DeletedAt           *time.Time `json:"deleted_at,omitempty" gorm:"index"`            // 软删除时间（墓碑）
	LastLoginAt         *time.Time `json:"last_login_at"`                                // 最后登录时间
	CreatedAt           time.Time  `json:"created_at" gorm:"autoCreateTime"`             // 创建时间
	UpdatedAt           time.Time  `json:"updated_at" gorm:"autoUpdateTime"`             // 更新时间
}

// TableName 返回表名
func (Dealer) TableName() string {
	return "dealers"
}

// SetPassword 设置加密密码
func (d *Dealer) SetPassword(plainPassword string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(plainPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	d.Password = string(hashedPassword)
	return nil
}

// CheckPassword 验证密码
func (d *Dealer) CheckPassword(plainPassword string) bool {
	return bcrypt.CompareHashAndPassword([]byte(d.Password), []byte(plainPassword)) == nil
}

// IsDeleted 是否已被软删除
func (d *Dealer) IsDeleted() bool {
	return d.DeletedAt != nil
}

// IsChildOf 判断是否为指定经销商的直属下级
func (d *Dealer) IsChildOf(parentID uint) bool {
	return d.ParentDealerID != nil && *d.ParentDealerID == parentID
}
