package notifier

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nao1215/contact/pkg/change"
	"github.com/nao1215/contact/pkg/metrics"
	"github.com/nao1215/contact/pkg/middleware"
)

// setupTestServer はテスト用の通知サーバーを構築するヘルパー関数。
func setupTestServer(t *testing.T, mailer *fakeMailer) *Server {
	t.Helper()

	d, m := newTestDispatcher(mailer)
	return NewServer("0", d, m, testJWTSecret)
}

// pushBatch はバッチをプッシュAPIに送信するヘルパー関数。
func pushBatch(t *testing.T, srv *Server, body, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/internal/changes", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

// encodeBatch はバッチをJSONに変換するヘルパー関数。
func encodeBatch(t *testing.T, b change.Batch) string {
	t.Helper()

	data, err := change.Encode(b)
	if err != nil {
		t.Fatalf("Encode()でエラーが発生: %v", err)
	}
	return string(data)
}

// TestHandlePushChanges はプッシュAPIを検証する。
func TestHandlePushChanges(t *testing.T) {
	t.Parallel()

	token, err := serviceToken()
	if err != nil {
		t.Fatalf("トークン生成に失敗: %v", err)
	}

	t.Run("バッチの処理に成功した場合は200が返ること", func(t *testing.T) {
		t.Parallel()

		mailer := &fakeMailer{}
		srv := setupTestServer(t, mailer)
		body := encodeBatch(t, change.Batch{change.Created(testRecord("id-1", "Alice"), 1)})

		w := pushBatch(t, srv, body, token)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d, body = %s", w.Code, http.StatusOK, w.Body.String())
		}

		var outcome Outcome
		if err := json.Unmarshal(w.Body.Bytes(), &outcome); err != nil {
			t.Fatalf("レスポンスのパースに失敗: %v", err)
		}
		if outcome.Status != http.StatusOK {
			t.Errorf("status = %d, want 200", outcome.Status)
		}
		if len(mailer.sentMessages()) != 1 {
			t.Errorf("送信数 = %d, want 1", len(mailer.sentMessages()))
		}
	})

	t.Run("送信に失敗した場合は500が返ること", func(t *testing.T) {
		t.Parallel()

		mailer := &fakeMailer{failOn: 1, err: errors.New("MessageRejected")}
		srv := setupTestServer(t, mailer)
		body := encodeBatch(t, change.Batch{change.Created(testRecord("id-1", "Alice"), 1)})

		w := pushBatch(t, srv, body, token)
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusInternalServerError)
		}

		var resp map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("レスポンスのパースに失敗: %v", err)
		}
		if resp["status"] != float64(http.StatusInternalServerError) {
			t.Errorf("status = %v, want 500", resp["status"])
		}
		if resp["error"] != middleware.InternalErrorMessage {
			t.Errorf("error = %v, want %q", resp["error"], middleware.InternalErrorMessage)
		}
		if strings.Contains(w.Body.String(), "MessageRejected") {
			t.Errorf("送信エラーの詳細がレスポンスに含まれている: %s", w.Body.String())
		}
	})

	t.Run("不正なバッチの場合は400が返ること", func(t *testing.T) {
		t.Parallel()

		mailer := &fakeMailer{}
		srv := setupTestServer(t, mailer)

		for _, body := range []string{`{broken`, `{"events":[{"kind":"TRUNCATED"}]}`} {
			w := pushBatch(t, srv, body, token)
			if w.Code != http.StatusBadRequest {
				t.Errorf("body=%s: ステータスコード = %d, want %d", body, w.Code, http.StatusBadRequest)
			}
		}
		if mailer.calls != 0 {
			t.Errorf("送信回数 = %d, want 0", mailer.calls)
		}
	})

	t.Run("トークンが無い場合は401が返ること", func(t *testing.T) {
		t.Parallel()

		mailer := &fakeMailer{}
		srv := setupTestServer(t, mailer)
		w := pushBatch(t, srv, `{"events":[]}`, "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})
}

// TestNotifierMetrics はメトリクスエンドポイントを検証する。
func TestNotifierMetrics(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(&fakeMailer{}, DispatcherConfig{Sender: "a@x.io", Recipient: "b@x.io"}, metrics.New())
	m := d.metrics
	m.SkippedEvents.WithLabelValues("REMOVED").Inc()
	srv := NewServer("0", d, m, testJWTSecret)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), `contact_change_events_skipped_total{kind="REMOVED"} 1`) {
		t.Errorf("メトリクスにスキップ数が含まれない:\n%s", w.Body.String())
	}
}
