package utils

import (
	"crypto/rand"
	"fmt"
	mathrand "math/rand"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// 字符集常量
const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// 全局原子计数器，保证同一进程内生成的编号不重复
var codeCounter int64

// GenerateRandomCode 生成指定长度的随机字符码
func GenerateRandomCode(length int) string {
	code := make([]byte, length)

	if _, err := rand.Read(code); err != nil {
		// 安全随机数失败时回退到 math/rand
		r := mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
		for i := range code {
			code[i] = charset[r.Intn(len(charset))]
		}
		return string(code)
	}

	for i := range code {
		code[i] = charset[int(code[i])%len(charset)]
	}
	return string(code)
}

// GenerateOrderNo 生成订单号，格式：SO + 日期 + 计数器 + 4位随机字符
func GenerateOrderNo() string {
	counter := atomic.AddInt64(&codeCounter, 1)
	return fmt.Sprintf("SO%s%s%s",
		time.Now().Format("20060102150405"),
		strings.ToUpper(strconv.FormatInt(counter, 36)),
		GenerateRandomCode(4))
}

// NormalizeSlug 统一为小写并去掉首尾空白，格式校验由调用方完成
func NormalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}
