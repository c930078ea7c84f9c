// Package notifier は変更フィードに反応して運用者へ通知メールを送る。
//
// Dispatcherは配信された変更イベントのバッチを順番に処理し、
// CREATEDイベントごとにプレーンテキストのメールを1通送信する。
// それ以外の種類のイベントはログに記録して読み飛ばす。
//
// メール送信やレコードの読み取りに失敗した場合、HandleBatchはエラーを返す。
// 呼び出し側（Poller、プッシュAPI、Lambdaランタイム）はバッチ全体を再配信するため、
// 失敗より前に送信済みのイベントは再度送信される。通知は重複し得るが欠落はしない。
package notifier
