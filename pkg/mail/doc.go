// Package mail は運用者への通知メールを送信するトランスポートを提供する。
//
// SMTPとAmazon SES（v2 API）の2つの実装があり、いずれもSenderインターフェースを満たす。
// クライアントは起動時に1度だけ生成し、呼び出しごとに再生成しない。
package mail
