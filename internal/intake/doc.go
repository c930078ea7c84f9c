// Package intake はお問い合わせフォームの受付処理を提供する。
//
// 受付処理はリクエストボディをパースしてSubmissionを生成し、
// ストアに1件書き込んで受付IDを返す。入力の検証は行わず、
// パースや書き込みに失敗した場合は内容を伏せた汎用の500応答を返す。
//
// 同じ受付処理をGinのHTTPサーバーとAPI GatewayのLambdaハンドラの
// 両方から呼び出せるよう、処理本体はトランスポートに依存しない。
// HTTPサーバーは通知サービス向けに変更フィードの読み取りAPIも公開する。
package intake
