package notifier

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/contact/pkg/change"
	"github.com/nao1215/contact/pkg/httpserver"
	"github.com/nao1215/contact/pkg/metrics"
	"github.com/nao1215/contact/pkg/middleware"
)

// Server は通知サービスのHTTPサーバー。
// 変更イベントのバッチを外部のランタイムからプッシュで受け取る内部APIを公開する。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// handler はバッチの処理先。
	handler BatchHandler
	// metrics は /metrics で公開するカウンタ。
	metrics *metrics.Metrics
	// jwtSecret は内部APIのサービストークン検証に使う署名鍵。
	jwtSecret string
}

// NewServer は新しい通知サーバーを生成する。
func NewServer(port string, handler BatchHandler, m *metrics.Metrics, jwtSecret string) *Server {
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())

	s := &Server{
		router:    router,
		port:      port,
		handler:   handler,
		metrics:   m,
		jwtSecret: jwtSecret,
	}
	s.setupRoutes()
	return s
}

// Run はHTTPサーバーを起動し、ctxがキャンセルされるまでブロックする。
func (s *Server) Run(ctx context.Context) error {
	return httpserver.Serve(ctx, fmt.Sprintf(":%s", s.port), s.router)
}

// Handler はサーバーのhttp.Handlerを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	internal := s.router.Group("/api/v1/internal")
	internal.Use(middleware.ServiceAuth(s.jwtSecret))
	{
		// 変更イベントのバッチ受信
		internal.POST("/changes", s.handlePushChanges())
	}

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "notifier"})
	})
	s.router.GET("/metrics", s.metrics.Handler())
}

// handlePushChanges は変更イベントのバッチを受け取って処理するハンドラ。
// 処理に失敗した場合は500を返し、送信元にバッチ全体の再配信を求める。
// 失敗の詳細はログにのみ出力し、レスポンスには含めない。
func (s *Server) handlePushChanges() gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": http.StatusBadRequest, "error": "リクエストボディの読み取りに失敗しました"})
			return
		}

		batch, err := change.Decode(body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": http.StatusBadRequest, "error": err.Error()})
			return
		}

		outcome, err := s.handler.HandleBatch(c.Request.Context(), batch)
		if err != nil {
			log.Printf("[Notifier] プッシュされたバッチの処理に失敗 (service=%s, size=%d): %v",
				middleware.GetService(c), len(batch), err)
			c.JSON(http.StatusInternalServerError, gin.H{"status": http.StatusInternalServerError, "error": middleware.InternalErrorMessage})
			return
		}

		c.JSON(http.StatusOK, outcome)
	}
}
