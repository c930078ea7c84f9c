// 受付サービスのエントリポイント。
// お問い合わせフォームの送信を受け付けてストアに保存する。
// SQLiteストアを使う場合は、通知サービス向けに変更フィードAPIも公開する。
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/contact/internal/bootstrap"
	"github.com/nao1215/contact/internal/intake"
	"github.com/nao1215/contact/pkg/config"
	"github.com/nao1215/contact/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("ストアの初期化に失敗: %v", err)
	}
	defer st.Close()

	var feed intake.FeedReader
	if st.SQLite != nil {
		feed = st.SQLite
	}

	m := metrics.New()
	server := intake.NewServer(cfg.Port, intake.NewService(st.Writer, m), feed, m, cfg.ServiceJWTSecret)

	log.Printf("受付サービスを起動します: :%s (store=%s)", cfg.Port, cfg.StoreBackend)
	if err := server.Run(ctx); err != nil {
		log.Printf("受付サービスの起動に失敗: %v", err)
		return
	}
	log.Println("受付サービスを停止しました")
}
