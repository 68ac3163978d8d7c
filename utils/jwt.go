package utils

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	jwtSecret   []byte
	jwtSecretMu sync.RWMutex
)

// InitJWT 设置签名密钥
// 生产环境必须提供密钥，其它环境为空时生成随机密钥（重启后旧令牌失效）
func InitJWT(secret, env string) {
	jwtSecretMu.Lock()
	defer jwtSecretMu.Unlock()
	jwtSecret = resolveSecret(secret, env)
}

func resolveSecret(secret, env string) []byte {
	if secret == "" {
		if env == "production" {
			log.Fatal("在生产环境中必须设置JWT_SECRET环境变量")
		}

		log.Println("警告: JWT_SECRET环境变量未设置，将使用随机生成的密钥（仅用于开发环境）")

		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err != nil {
			log.Printf("生成随机密钥失败: %v，将使用备用密钥", err)
			return []byte("dealer_hub_jwt_secret_key_for_development_only_do_not_use_in_production")
		}
		secret = base64.StdEncoding.EncodeToString(randomKey)
	}

	if len(secret) < 16 {
		log.Println("警告: JWT密钥长度不足，建议使用至少32字符的密钥")
	}
	return []byte(secret)
}

// secretKey 未调用 InitJWT 时按开发环境生成随机密钥
func secretKey() []byte {
	jwtSecretMu.RLock()
	secret := jwtSecret
	jwtSecretMu.RUnlock()
	if secret != nil {
		return secret
	}

	jwtSecretMu.Lock()
	defer jwtSecretMu.Unlock()
	if jwtSecret == nil {
		jwtSecret = resolveSecret("", "")
	}
	return jwtSecret
}

// DealerClaims JWT令牌的声明结构
type DealerClaims struct {
	DealerID uint   `json:"dealer_id"` // 经销商ID
	Username string `json:"username"`  // 用户名，用于日志
	jwt.RegisteredClaims
}

// GenerateToken 为经销商签发 HS256 令牌
func GenerateToken(dealerID uint, username string, duration time.Duration) (string, error) {
	now := time.Now()
	claims := DealerClaims{
		DealerID: dealerID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			// 同一秒内多次签发时保证令牌不同
			ID: GenerateRandomCode(12),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secretKey())
}

// ParseToken 解析并验证JWT令牌
func ParseToken(tokenString string) (*DealerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &DealerClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("无效的签名方法")
		}
		return secretKey(), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*DealerClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("无效的令牌")
}
