package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/nao1215/contact/internal/store"
	"github.com/nao1215/contact/pkg/metrics"
	"github.com/nao1215/contact/pkg/middleware"
	"github.com/nao1215/contact/pkg/submission"
)

// ReceivedMessage は受付成功時にクライアントへ返すメッセージ。
const ReceivedMessage = "Submission received"

// errNotObject はリクエストボディがJSONオブジェクトでないことを表す。
var errNotObject = errors.New("リクエストボディがJSONオブジェクトではありません")

// Response は受付処理のJSONレスポンス構造。
type Response struct {
	// Message は結果を表すメッセージ。
	Message string `json:"message"`
	// SubmissionID は受付したレコードのID。失敗時は含まれない。
	SubmissionID string `json:"submissionId,omitempty"`
}

// Result はトランスポートに依存しない受付処理の結果。
type Result struct {
	// StatusCode はHTTPステータスコード（200 または 500）。
	StatusCode int
	// Body はレスポンスボディ。
	Body Response
}

// Service は受付処理の本体。リクエストをまたいで共有する状態は注入された依存のみ。
type Service struct {
	// store はレコードの書き込み先。
	store store.Writer
	// now は現在時刻を返す関数。テストで差し替える。
	now func() time.Time
	// metrics は受付結果を記録するカウンタ。
	metrics *metrics.Metrics
}

// NewService は新しい受付処理を生成する。
func NewService(w store.Writer, m *metrics.Metrics) *Service {
	return &Service{
		store:   w,
		now:     time.Now,
		metrics: m,
	}
}

// Accept はリクエストボディを受け付けてレコードを保存する。
// 失敗の理由はログにのみ出力し、クライアントには汎用メッセージを返す。
func (s *Service) Accept(ctx context.Context, body []byte) Result {
	id, err := s.accept(ctx, body)
	if err != nil {
		log.Printf("[Intake] 受付処理に失敗: %v", err)
		s.metrics.RecordSubmission(metrics.ResultFailure)
		return Result{
			StatusCode: http.StatusInternalServerError,
			Body:       Response{Message: middleware.InternalErrorMessage},
		}
	}

	s.metrics.RecordSubmission(metrics.ResultSuccess)
	return Result{
		StatusCode: http.StatusOK,
		Body:       Response{Message: ReceivedMessage, SubmissionID: id},
	}
}

// accept はパースとストアへの書き込みを行い、生成したIDを返す。
// ストアへの書き込みは最後の1回のみで、それより前に失敗した場合は何も書き込まれない。
func (s *Service) accept(ctx context.Context, body []byte) (string, error) {
	fields, err := parseFields(body)
	if err != nil {
		return "", err
	}

	sub := submission.New(fields, s.now())
	if err := s.store.PutRecord(ctx, sub); err != nil {
		return "", fmt.Errorf("レコードの保存に失敗 (submissionId=%s): %w", sub.SubmissionID, err)
	}
	return sub.SubmissionID, nil
}

// parseFields はリクエストボディをフォーム項目にデシリアライズする。
// 項目の有無や内容は検証しない。空のオブジェクトも受け付ける。
func parseFields(body []byte) (submission.Fields, error) {
	var fields submission.Fields
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fields, errNotObject
	}
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return fields, fmt.Errorf("リクエストボディのパースに失敗: %w", err)
	}
	return fields, nil
}
