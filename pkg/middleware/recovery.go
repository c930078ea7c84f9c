package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// InternalErrorMessage はクライアントに返す汎用のエラーメッセージ。
// 内部のエラー内容はクライアントに返さない。
const InternalErrorMessage = "Internal server error"

// Recovery はパニックからの回復を行うGinミドルウェアを返す。
// パニック発生時にログを出力し、汎用メッセージで500エラーを返す。
// 先に適用されたミドルウェアが設定したヘッダー（CORS等）はそのまま残る。
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[PANIC] %s %s: %v", c.Request.Method, c.Request.URL.Path, r)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"message": InternalErrorMessage,
				})
			}
		}()
		c.Next()
	}
}
