// 受付処理をAPI Gateway配下のLambda関数として動かすエントリポイント。
package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/nao1215/contact/internal/bootstrap"
	"github.com/nao1215/contact/internal/intake"
	"github.com/nao1215/contact/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	// ストアのクライアントはコールドスタート時に1度だけ生成し、呼び出し間で共有する
	st, err := bootstrap.OpenStore(context.Background(), cfg)
	if err != nil {
		log.Fatalf("ストアの初期化に失敗: %v", err)
	}

	// Lambdaにはメトリクスの公開先が無いため、カウンタは記録しない
	lambda.Start(intake.APIGatewayHandler(intake.NewService(st.Writer, nil)))
}
