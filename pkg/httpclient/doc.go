// Package httpclient はサービス間のHTTP通信を行うクライアントを提供する。
//
// notifierがintakeの変更フィードAPIを取得する際や、
// 変更イベントのバッチをnotifierのプッシュAPIへ送る際に使用する。
// 内部APIはサービストークンで保護されているため、
// リクエストごとにBearerトークンを付与できる。
package httpclient
