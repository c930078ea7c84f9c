// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// CORS設定、パニックリカバリ、サービス間の内部APIを保護するJWT認証など、
// IntakeとNotifierの両サービスで共通して使用するミドルウェアを含む。
package middleware
