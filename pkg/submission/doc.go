// Package submission はお問い合わせフォームの送信内容（Submission）のレコード定義を提供する。
//
// Intake（受付）とNotifier（通知）の2つのサービスはこのレコード形式のみを
// 共有しており、互いのハンドラを直接呼び出すことはない。
// Submissionは一度書き込まれた後は更新されない（不変）。
package submission
