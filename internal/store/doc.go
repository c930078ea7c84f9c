// Package store はお問い合わせレコードの永続化層を提供する。
//
// SQLite実装では、レコードの挿入と変更フィード（change_log）への追記を
// 同一トランザクションで行う。これによりレコードのコミットと
// CREATEDイベントの発生が常に一致する。
// 購読者ごとの処理済み位置（チェックポイント）も同じデータベースで管理する。
package store
