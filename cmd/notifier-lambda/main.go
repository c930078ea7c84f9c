// 通知処理をDynamoDB StreamsトリガーのLambda関数として動かすエントリポイント。
// ハンドラがエラーを返すとLambdaランタイムがバッチ全体を再配信する。
package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/nao1215/contact/internal/bootstrap"
	"github.com/nao1215/contact/internal/notifier"
	"github.com/nao1215/contact/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	mailer, err := bootstrap.NewMailer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("メール送信の初期化に失敗: %v", err)
	}

	// Lambdaにはメトリクスの公開先が無いため、カウンタは記録しない
	dispatcher := notifier.NewDispatcher(mailer, bootstrap.DispatcherConfig(cfg), nil)
	lambda.Start(notifier.StreamHandler(dispatcher))
}
