// Package services 实现经销商层级与佣金结算的业务逻辑
// 所有函数显式接收 *gorm.DB 和经销商ID，不读取任何请求上下文
package services

import (
	"errors"
	"log"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// MessageKind 业务结果类型，由前端映射为本地化提示
type MessageKind string

const (
	KindOK                     MessageKind = "ok"
	KindValidationFailed       MessageKind = "validation_failed"
	KindDealerNotFound         MessageKind = "dealer_not_found"
	KindNotSubDealer           MessageKind = "not_sub_dealer"
	KindSlugTaken              MessageKind = "slug_taken"
	KindUsernameTaken          MessageKind = "username_taken"
	KindMaxLevelReached        MessageKind = "max_level_reached"
	KindHasSubDealers          MessageKind = "has_sub_dealers"
	KindHasOrders              MessageKind = "has_orders"
	KindOrderNotFound          MessageKind = "order_not_found"
	KindOrderNotCompleted      MessageKind = "order_not_completed"
	KindNoParentDealer         MessageKind = "no_parent_dealer"
	KindCommissionNotFound     MessageKind = "commission_not_found"
	KindCommissionInactive     MessageKind = "commission_inactive"
	KindZeroCommission         MessageKind = "zero_commission"
	KindAlreadyRecorded        MessageKind = "already_recorded"
	KindNoPendingTransactions  MessageKind = "no_pending_transactions"
	KindBelowMinimumPayout     MessageKind = "below_minimum_payout"
	KindHasPendingTransactions MessageKind = "has_pending_transactions"
	KindInternalError          MessageKind = "internal_error"
)

// 查询类函数返回的哨兵错误，调用方用 errors.Is 判断
var (
	ErrDealerNotFound     = errors.New("经销商不存在")
	ErrNotSubDealer       = errors.New("不是直属下级经销商")
	ErrCommissionNotFound = errors.New("佣金协议不存在")
	ErrOrderNotFound      = errors.New("订单不存在")
)

// Result 变更类操作的统一返回
type Result struct {
	Success bool        `json:"success"`
	Kind    MessageKind `json:"message_kind"`
	// Fields 校验失败的字段名
	Fields []string `json:"fields,omitempty"`
	// Amount 计提的佣金或结算金额，仅在成功时有值
	Amount *decimal.Decimal `json:"amount,omitempty"`
	// ID 新建或变更的记录ID
	ID uint `json:"id,omitempty"`
}

func ok() Result {
	return Result{Success: true, Kind: KindOK}
}

func okWithAmount(amount decimal.Decimal) Result {
	return Result{Success: true, Kind: KindOK, Amount: &amount}
}

func fail(kind MessageKind) Result {
	return Result{Success: false, Kind: kind}
}

// internalError 记录底层错误后返回 KindInternalError
func internalError(op string, err error) Result {
	log.Printf("%s失败: %v", op, err)
	return fail(KindInternalError)
}

var (
	validate = newValidator()
	slugRe   = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// newValidator 错误字段名取 json 标签，并注册 slug 规则
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugRe.MatchString(fl.Field().String())
	})
	return v
}

// validationResult 校验结构体，失败时返回带字段名的结果
func validationResult(input interface{}) (Result, bool) {
	err := validate.Struct(input)
	if err == nil {
		return Result{}, true
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return internalError("参数校验", err), false
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return Result{Success: false, Kind: KindValidationFailed, Fields: fields}, false
}
