package intake

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/contact/pkg/change"
	"github.com/nao1215/contact/pkg/httpserver"
	"github.com/nao1215/contact/pkg/metrics"
	"github.com/nao1215/contact/pkg/middleware"
)

// 変更フィードAPIの取得件数。
const (
	defaultChangeLimit = 100
	maxChangeLimit     = 1000
)

// FeedReader は変更フィードを順番に読み出すインターフェース。
type FeedReader interface {
	ReadChanges(ctx context.Context, after int64, limit int) (change.Batch, error)
}

// Server は受付サービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// service は受付処理の本体。
	service *Service
	// feed は変更フィード。nilの場合は内部APIを公開しない。
	feed FeedReader
	// metrics は /metrics で公開するカウンタ。
	metrics *metrics.Metrics
	// jwtSecret は内部APIのサービストークン検証に使う署名鍵。
	jwtSecret string
}

// NewServer は新しい受付サーバーを生成する。
// feedにnilを渡した場合（DynamoDBストア使用時など）は変更フィードAPIを登録しない。
func NewServer(port string, svc *Service, feed FeedReader, m *metrics.Metrics, jwtSecret string) *Server {
	router := gin.New()
	// CORSを先に適用し、パニック時の500応答にもヘッダーが付くようにする
	router.Use(middleware.CORS([]string{middleware.AllowAllOrigins}))
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())

	s := &Server{
		router:    router,
		port:      port,
		service:   svc,
		feed:      feed,
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
	// お問い合わせの受付
	s.router.POST("/submissions", s.handleSubmit())
	// プリフライトはCORSミドルウェアが204で応答する
	s.router.OPTIONS("/submissions", func(*gin.Context) {})

	api := s.router.Group("/api/v1")
	{
		api.POST("/submissions", s.handleSubmit())
		api.OPTIONS("/submissions", func(*gin.Context) {})

		if s.feed != nil {
			// 変更フィードの読み取り（内部API - 通知サービスから呼び出される）
			internal := api.Group("/internal")
			internal.Use(middleware.ServiceAuth(s.jwtSecret))
			{
				internal.GET("/changes", s.handleListChanges())
			}
		}
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "intake"})
	})
	s.router.GET("/metrics", s.metrics.Handler())
}

// handleSubmit はお問い合わせを受け付けるハンドラ。
func (s *Server) handleSubmit() gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			log.Printf("[Intake] リクエストボディの読み取りに失敗: %v", err)
			c.JSON(http.StatusInternalServerError, Response{Message: middleware.InternalErrorMessage})
			return
		}

		res := s.service.Accept(c.Request.Context(), body)
		c.JSON(res.StatusCode, res.Body)
	}
}

// handleListChanges はafterより後の変更イベントをSequence順に返すハンドラ。
func (s *Server) handleListChanges() gin.HandlerFunc {
	return func(c *gin.Context) {
		after, err := strconv.ParseInt(c.DefaultQuery("after", "0"), 10, 64)
		if err != nil || after < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "afterパラメータが不正です"})
			return
		}

		limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultChangeLimit)))
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limitパラメータが不正です"})
			return
		}
		limit = min(limit, maxChangeLimit)

		batch, err := s.feed.ReadChanges(c.Request.Context(), after, limit)
		if err != nil {
			log.Printf("[Intake] 変更フィードの取得に失敗 (service=%s): %v", middleware.GetService(c), err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "変更フィードの取得に失敗しました"})
			return
		}

		c.JSON(http.StatusOK, change.Envelope{Events: batch})
	}
}
