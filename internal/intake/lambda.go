package intake

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"maps"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/nao1215/contact/pkg/middleware"
)

// responseHeaders はLambda経由のすべての応答に付与するヘッダー。
var responseHeaders = map[string]string{
	"Content-Type":                "application/json",
	"Access-Control-Allow-Origin": middleware.AllowAllOrigins,
}

// APIGatewayHandler は受付処理をAPI Gatewayのプロキシ統合として公開するLambdaハンドラを返す。
func APIGatewayHandler(svc *Service) func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		if req.HTTPMethod == http.MethodOptions {
			return events.APIGatewayProxyResponse{
				StatusCode: http.StatusNoContent,
				Headers: map[string]string{
					"Access-Control-Allow-Origin":  middleware.AllowAllOrigins,
					"Access-Control-Allow-Methods": "POST, OPTIONS",
					"Access-Control-Allow-Headers": "Content-Type",
				},
			}, nil
		}

		body := []byte(req.Body)
		if req.IsBase64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(req.Body)
			if err != nil {
				log.Printf("[Intake] リクエストボディのデコードに失敗: %v", err)
				return proxyResponse(Result{
					StatusCode: http.StatusInternalServerError,
					Body:       Response{Message: middleware.InternalErrorMessage},
				}), nil
			}
			body = decoded
		}

		return proxyResponse(svc.Accept(ctx, body)), nil
	}
}

// proxyResponse は受付結果をAPI Gatewayの応答形式に変換する。
func proxyResponse(res Result) events.APIGatewayProxyResponse {
	// Responseは文字列フィールドのみのため、シリアライズは失敗しない
	data, _ := json.Marshal(res.Body)

	return events.APIGatewayProxyResponse{
		StatusCode: res.StatusCode,
		Headers:    maps.Clone(responseHeaders),
		Body:       string(data),
	}
}
