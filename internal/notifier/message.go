package notifier

import (
	"fmt"
	"strings"

	"github.com/nao1215/contact/pkg/change"
	"github.com/nao1215/contact/pkg/submission"
)

// DefaultFooter は通知メール本文末尾の既定の署名。
const DefaultFooter = "AdventureConnect Contact System"

// RecordError は変更イベントのレコードに通知に必要な項目が無いことを表す。
// バッチは中断され、再配信される。Pollerは同じイベントで失敗し続けた場合にデッドレターとして読み飛ばす。
type RecordError struct {
	// EventID は対象の変更イベントのID。
	EventID string
	// Key は対象レコードのパーティションキー。
	Key string
	// Field は欠けている項目名。レコード自体が無い場合は空。
	Field string
}

// Error はerrorインターフェースを実装する。
func (e *RecordError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("変更イベントにレコードがありません (eventId=%s, key=%s)", e.EventID, e.Key)
	}
	return fmt.Sprintf("レコードに項目 %q がありません (eventId=%s, key=%s)", e.Field, e.EventID, e.Key)
}

// notice は通知メールの組み立てに使う項目。
type notice struct {
	id        string
	timestamp string
	name      string
	email     string
	message   string
}

// noticeFrom はCREATEDイベントのレコードから通知項目を取り出す。
// 空文字列の項目は有効な値として扱い、nilの項目のみを欠落とみなす。
func noticeFrom(ev change.Event) (notice, error) {
	rec := ev.Record
	if rec == nil {
		return notice{}, &RecordError{EventID: ev.EventID, Key: ev.Key}
	}

	missing := func(field string) error {
		return &RecordError{EventID: ev.EventID, Key: ev.Key, Field: field}
	}
	switch {
	case rec.SubmissionID == "":
		return notice{}, missing("submissionId")
	case rec.Timestamp == "":
		return notice{}, missing("timestamp")
	case rec.Name == nil:
		return notice{}, missing("name")
	case rec.Email == nil:
		return notice{}, missing("email")
	case rec.Message == nil:
		return notice{}, missing("message")
	}

	return notice{
		id:        rec.SubmissionID,
		timestamp: rec.Timestamp,
		name:      submission.Deref(rec.Name),
		email:     submission.Deref(rec.Email),
		message:   submission.Deref(rec.Message),
	}, nil
}

// Subject は通知メールの件名を返す。
func Subject(name string) string {
	return "New Contact Submission from " + name
}

// ComposeBody は通知メールの本文を組み立てる。
// 項目の値はエスケープや切り詰めをせずにそのまま埋め込む。
func ComposeBody(id, timestamp, name, email, message, footer string) string {
	var b strings.Builder
	b.WriteString("New contact form submission received.\n\n")
	fmt.Fprintf(&b, "Submission ID : %s\n", id)
	fmt.Fprintf(&b, "Timestamp     : %s\n", timestamp)
	fmt.Fprintf(&b, "Name          : %s\n", name)
	fmt.Fprintf(&b, "Email         : %s\n\n", email)
	b.WriteString("Message:\n")
	b.WriteString(message)
	b.WriteString("\n\n---\n")
	b.WriteString(footer)
	b.WriteString("\n")
	return b.String()
}
