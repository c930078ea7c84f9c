package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// tokenIssuer はサービストークンの発行者。
const tokenIssuer = "contact-internal"

// contextKeyService はGinコンテキストに呼び出し元サービス名を格納するキー。
const contextKeyService = "service"

// ServiceClaims はサービス間の内部API呼び出しに使うJWTのクレーム。
// ユーザーアカウントは存在しないため、呼び出し元のサービス名のみを持つ。
type ServiceClaims struct {
	jwt.RegisteredClaims
	// Service は呼び出し元のサービス名（例: "notifier"）。
	Service string `json:"service"`
}

// GenerateServiceToken はサービス名からHS256で署名したJWTトークンを生成する。
func GenerateServiceToken(secret, service string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := ServiceClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   service,
		},
		Service: service,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("JWTトークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// ServiceAuth はサービストークンを検証するGinミドルウェアを返す。
// 検証に成功した場合、コンテキストに呼び出し元サービス名を設定する。
func ServiceAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorizationヘッダーが必要です",
			})
			return
		}

		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Bearer トークン形式が不正です",
			})
			return
		}

		claims := &ServiceClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
			return []byte(secret), nil
		},
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(tokenIssuer),
		)
		if err != nil || !token.Valid || claims.Service == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "トークンが無効です",
			})
			return
		}

		c.Set(contextKeyService, claims.Service)
		c.Next()
	}
}

// GetService はGinコンテキストから呼び出し元サービス名を取得する。
// ServiceAuthミドルウェアが事前に適用されている必要がある。
func GetService(c *gin.Context) string {
	v, _ := c.Get(contextKeyService)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
