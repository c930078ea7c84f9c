package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AllowAllOrigins は任意のオリジンを許可する場合にCORSへ渡す値。
const AllowAllOrigins = "*"

// CORS は指定されたオリジンからのクロスオリジンリクエストを許可するGinミドルウェアを返す。
// allowedOriginsに "*" を含む場合は、Originヘッダーの有無にかかわらず
// すべてのレスポンスに "Access-Control-Allow-Origin: *" を付与する。
// OPTIONS（プリフライト）リクエストは204で応答し、後続のハンドラを呼ばない。
func CORS(allowedOrigins []string) gin.HandlerFunc {
	allowAll := false
	originsSet := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == AllowAllOrigins {
			allowAll = true
		}
		originsSet[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if allowAll {
			c.Header("Access-Control-Allow-Origin", AllowAllOrigins)
			setPreflightHeaders(c)
		} else if _, ok := originsSet[origin]; ok && origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			setPreflightHeaders(c)
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// setPreflightHeaders はプリフライトで参照されるCORSヘッダーを設定する。
func setPreflightHeaders(c *gin.Context) {
	c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
	c.Header("Access-Control-Max-Age", "86400")
}
