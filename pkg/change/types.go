package change

import (
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/contact/pkg/submission"
)

// Kind は変更イベントの種類を表す。ストア固有の名称からは抽象化されている。
type Kind string

const (
	// KindCreated はレコードが新規作成されたことを表す。
	KindCreated Kind = "CREATED"
	// KindModified はレコードが更新されたことを表す。
	KindModified Kind = "MODIFIED"
	// KindRemoved はレコードが削除されたことを表す。
	KindRemoved Kind = "REMOVED"
)

// Valid はKindが既知の種類であるかを返す。
func (k Kind) Valid() bool {
	switch k {
	case KindCreated, KindModified, KindRemoved:
		return true
	default:
		return false
	}
}

// Event はストアの1件の変更を表す変更イベント。
type Event struct {
	// EventID は変更イベントの一意識別子。
	EventID string `json:"eventId"`
	// Kind は変更の種類。
	Kind Kind `json:"kind"`
	// Key は変更されたレコードのパーティションキー（submissionId）。
	Key string `json:"key"`
	// Sequence はフィード内での位置。フィードごとに単調増加する。
	// DynamoDB Streams経由のイベントでは0となる。
	Sequence int64 `json:"sequence"`
	// Record は変更後のレコード。CREATED/MODIFIEDの場合に設定される。
	Record *submission.Submission `json:"record,omitempty"`
	// CreatedAt は変更がコミットされた日時。
	CreatedAt time.Time `json:"createdAt"`
}

// Batch は変更フィードから一度に配信されるイベント列。配信された順序で処理する。
type Batch []Event

// New は新しい変更イベントを生成する。
// REMOVEDの場合、recordには削除前のキーだけを持つレコードを渡してもよい（Recordには保持されない）。
func New(kind Kind, key string, record *submission.Submission, seq int64) Event {
	ev := Event{
		EventID:   uuid.New().String(),
		Kind:      kind,
		Key:       key,
		Sequence:  seq,
		CreatedAt: time.Now().UTC(),
	}
	if kind != KindRemoved {
		ev.Record = record
	}
	return ev
}

// Created はレコードの新規作成を表す変更イベントを生成する。
func Created(record *submission.Submission, seq int64) Event {
	return New(KindCreated, record.SubmissionID, record, seq)
}

// LastSequence はバッチ内の最後のイベントのSequenceを返す。空のバッチでは0を返す。
func (b Batch) LastSequence() int64 {
	if len(b) == 0 {
		return 0
	}
	return b[len(b)-1].Sequence
}
