// 通知サービスのエントリポイント。
// 変更フィードをポーリングし、新しいお問い合わせごとに運用者へ通知メールを送る。
// 外部のランタイムからバッチをプッシュで受け取る内部APIも公開する。
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nao1215/contact/internal/bootstrap"
	"github.com/nao1215/contact/internal/notifier"
	"github.com/nao1215/contact/internal/store"
	"github.com/nao1215/contact/pkg/config"
	"github.com/nao1215/contact/pkg/httpclient"
	"github.com/nao1215/contact/pkg/metrics"
	"github.com/nao1215/contact/pkg/middleware"
)

// serviceName はサービストークンに記録する呼び出し元名。
const serviceName = "notifier"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Printf("通知サービスの起動に失敗: %v", err)
		return
	}
	log.Println("通知サービスを停止しました")
}

// run は通知サービスを組み立て、ctxがキャンセルされるまでHTTPサーバーとポーラーを動かす。
// 終了時はポーラーを停止してからストアを閉じる。
func run(ctx context.Context, cfg *config.Config) error {
	mailer, err := bootstrap.NewMailer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("メール送信の初期化に失敗: %w", err)
	}

	m := metrics.New()
	dispatcher := notifier.NewDispatcher(mailer, bootstrap.DispatcherConfig(cfg), m)

	// DynamoDBストアの変更はStreams経由でLambdaに配信されるため、ポーリングはSQLiteの場合のみ行う
	if cfg.StoreBackend == config.StoreSQLite {
		poller, closeFn, err := newPoller(ctx, cfg, dispatcher)
		if err != nil {
			return fmt.Errorf("ポーラーの初期化に失敗: %w", err)
		}
		defer func() {
			if err := closeFn(); err != nil {
				log.Printf("ストアのクローズに失敗: %v", err)
			}
		}()

		if err := poller.Start(ctx); err != nil {
			return fmt.Errorf("ポーラーの起動に失敗: %w", err)
		}
		defer poller.Stop()
	}

	server := notifier.NewServer(cfg.Port, dispatcher, m, cfg.ServiceJWTSecret)
	log.Printf("通知サービスを起動します: :%s (mail=%s)", cfg.Port, cfg.MailBackend)
	return server.Run(ctx)
}

// newPoller は変更フィードのポーラーを組み立てる。
// FEED_URLが設定されている場合は受付サービスのAPIから、それ以外は共有のSQLiteから直接読み取る。
// チェックポイントは常にDATABASE_PATHのSQLiteに保存する。
func newPoller(ctx context.Context, cfg *config.Config, h notifier.BatchHandler) (*notifier.Poller, func() error, error) {
	s, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, nil, err
	}

	var feed notifier.FeedSource = s
	if cfg.FeedURL != "" {
		client := httpclient.New(cfg.FeedURL, httpclient.WithToken(func() (string, error) {
			return middleware.GenerateServiceToken(cfg.ServiceJWTSecret, serviceName, time.Minute)
		}))
		feed = notifier.NewHTTPFeed(client)
	}

	poller := notifier.NewPoller(feed, s, h, notifier.PollerConfig{
		Consumer:    cfg.FeedConsumer,
		Interval:    cfg.FeedPollInterval,
		BatchSize:   cfg.FeedBatchSize,
		MaxAttempts: cfg.FeedMaxAttempts,
	})
	return poller, s.Close, nil
}
