package submission

import (
	"time"

	"github.com/google/uuid"
)

// StatusNew は作成直後のSubmissionに付与されるステータス。
// このモジュールの範囲ではステータスを遷移させる処理は存在しない。
const StatusNew = "new"

// TimestampLayout はSubmissionのtimestampフィールドの書式。
// UTCのISO-8601形式（マイクロ秒精度、タイムゾーン表記なし）。
const TimestampLayout = "2006-01-02T15:04:05.000000"

// timestampLayoutWhole はマイクロ秒が0の時刻に使う、小数部を省いた書式。
const timestampLayoutWhole = "2006-01-02T15:04:05"

// Fields はクライアントから送信されるフォーム項目。
// いずれの項目も任意で、未指定の場合はnilとなる。
type Fields struct {
	// Name は送信者の名前。
	Name *string `json:"name"`
	// Email は送信者のメールアドレス。
	Email *string `json:"email"`
	// Message は問い合わせ本文。
	Message *string `json:"message"`
}

// Submission は永続化されるお問い合わせ1件分のレコード。
type Submission struct {
	// SubmissionID はレコードの一意識別子（UUID）。作成後に変更されない。
	SubmissionID string `json:"submissionId" dynamodbav:"submissionId"`
	// Name は送信者の名前。未指定の場合はnil。
	Name *string `json:"name" dynamodbav:"name"`
	// Email は送信者のメールアドレス。未指定の場合はnil。
	Email *string `json:"email" dynamodbav:"email"`
	// Message は問い合わせ本文。未指定の場合はnil。
	Message *string `json:"message" dynamodbav:"message"`
	// Timestamp は受付日時（UTC、TimestampLayout形式）。
	Timestamp string `json:"timestamp" dynamodbav:"timestamp"`
	// Status はレコードのライフサイクルタグ。作成時は常に "new"。
	Status string `json:"status" dynamodbav:"status"`
}

// New はフォーム項目から新しいSubmissionを生成する。
// IDとタイムスタンプはサーバー側で付与し、クライアントの値は使わない。
func New(fields Fields, now time.Time) *Submission {
	return &Submission{
		SubmissionID: NewID(),
		Name:         fields.Name,
		Email:        fields.Email,
		Message:      fields.Message,
		Timestamp:    FormatTimestamp(now),
		Status:       StatusNew,
	}
}

// NewID は新しいSubmission IDを生成する。
func NewID() string {
	return uuid.New().String()
}

// IsValidID はidがUUIDとして解釈できるかを返す。
func IsValidID(id string) bool {
	parsed, err := uuid.Parse(id)
	return err == nil && parsed != uuid.Nil
}

// FormatTimestamp は時刻をUTCのTimestampLayout形式に整形する。
// マイクロ秒以下は切り捨て、マイクロ秒が0の場合は小数部を省く。
func FormatTimestamp(t time.Time) string {
	t = t.UTC()
	if t.Nanosecond()/int(time.Microsecond) == 0 {
		return t.Format(timestampLayoutWhole)
	}
	return t.Format(TimestampLayout)
}

// Deref は任意項目の値を返す。nilの場合は空文字列を返す。
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// String は文字列のポインタを返す。テストや変換処理で任意項目を組み立てる際に使う。
func String(s string) *string {
	return &s
}
