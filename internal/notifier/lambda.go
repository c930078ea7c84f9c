package notifier

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/nao1215/contact/pkg/change"
)

// StreamHandler はDynamoDB Streamsのトリガーとして動くLambdaハンドラを返す。
// エラーを返すとLambdaランタイムがバッチ全体を再配信する。
func StreamHandler(h BatchHandler) func(context.Context, events.DynamoDBEvent) (Outcome, error) {
	return func(ctx context.Context, e events.DynamoDBEvent) (Outcome, error) {
		batch, err := change.FromDynamoDBEvent(e)
		if err != nil {
			return Outcome{}, fmt.Errorf("ストリームレコードの変換に失敗: %w", err)
		}
		return h.HandleBatch(ctx, batch)
	}
}
