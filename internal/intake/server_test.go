package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/contact/internal/store"
	"github.com/nao1215/contact/pkg/change"
	"github.com/nao1215/contact/pkg/metrics"
	"github.com/nao1215/contact/pkg/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testJWTSecret はテスト用の署名鍵。
const testJWTSecret = "test-secret"

// setupTestServer はインメモリSQLiteを使う受付サーバーを構築するヘルパー関数。
func setupTestServer(t *testing.T) (*Server, *store.SQLite) {
	t.Helper()

	s, err := store.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("ストアの初期化に失敗: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	m := metrics.New()
	return NewServer("0", NewService(s, m), s, m, testJWTSecret), s
}

// doRequest はテスト用のHTTPリクエストを実行するヘルパー関数。
func doRequest(srv *Server, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

// TestHandleSubmit はお問い合わせ受付エンドポイントを検証する。
func TestHandleSubmit(t *testing.T) {
	t.Parallel()

	for _, path := range []string{"/submissions", "/api/v1/submissions"} {
		t.Run(path+"で受付できCORSヘッダーが付与されること", func(t *testing.T) {
			t.Parallel()

			srv, s := setupTestServer(t)
			w := doRequest(srv, http.MethodPost, path, `{"name":"Alice","email":"a@x.io","message":"Hi"}`, "")

			if w.Code != http.StatusOK {
				t.Fatalf("ステータスコード = %d, want %d, body = %s", w.Code, http.StatusOK, w.Body.String())
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
				t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
			}
			if got := w.Header().Get("Content-Type"); !strings.HasPrefix(got, "application/json") {
				t.Errorf("Content-Type = %q", got)
			}

			var resp Response
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("レスポンスのパースに失敗: %v", err)
			}
			if resp.Message != ReceivedMessage {
				t.Errorf("message = %q, want %q", resp.Message, ReceivedMessage)
			}
			if _, err := s.GetRecord(context.Background(), resp.SubmissionID); err != nil {
				t.Errorf("返されたIDのレコードが存在しない: %v", err)
			}
		})
	}

	t.Run("不正なJSONで汎用の500とCORSヘッダーが返ること", func(t *testing.T) {
		t.Parallel()

		srv, s := setupTestServer(t)
		w := doRequest(srv, http.MethodPost, "/submissions", `{broken`, "")

		if w.Code != http.StatusInternalServerError {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusInternalServerError)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
		}
		if got := strings.TrimSpace(w.Body.String()); got != `{"message":"Internal server error"}` {
			t.Errorf("body = %s", got)
		}

		n, _ := s.CountRecords(context.Background())
		if n != 0 {
			t.Errorf("レコード数 = %d, want 0", n)
		}
	})

	t.Run("プリフライトリクエストに204とCORSヘッダーが返ること", func(t *testing.T) {
		t.Parallel()

		srv, _ := setupTestServer(t)
		w := doRequest(srv, http.MethodOptions, "/submissions", "", "")

		if w.Code != http.StatusNoContent {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusNoContent)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
		}
	})

	t.Run("メトリクスに受付件数が出力されること", func(t *testing.T) {
		t.Parallel()

		srv, _ := setupTestServer(t)
		doRequest(srv, http.MethodPost, "/submissions", `{}`, "")

		w := doRequest(srv, http.MethodGet, "/metrics", "", "")
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		if !strings.Contains(w.Body.String(), `contact_submissions_total{result="success"} 1`) {
			t.Errorf("メトリクスに受付件数が含まれない:\n%s", w.Body.String())
		}
	})
}

// TestHandleListChanges は変更フィードの内部APIを検証する。
func TestHandleListChanges(t *testing.T) {
	t.Parallel()

	token, err := middleware.GenerateServiceToken(testJWTSecret, "notifier", time.Hour)
	if err != nil {
		t.Fatalf("トークン生成に失敗: %v", err)
	}

	t.Run("受付したレコードのCREATEDイベントがSequence順に返ること", func(t *testing.T) {
		t.Parallel()

		srv, _ := setupTestServer(t)
		for _, name := range []string{"Alice", "Bob", "Carol"} {
			w := doRequest(srv, http.MethodPost, "/submissions", `{"name":"`+name+`"}`, "")
			if w.Code != http.StatusOK {
				t.Fatalf("受付に失敗: %s", w.Body.String())
			}
		}

		w := doRequest(srv, http.MethodGet, "/api/v1/internal/changes?after=1&limit=10", "", token)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d, body = %s", w.Code, http.StatusOK, w.Body.String())
		}

		batch, err := change.Decode(w.Body.Bytes())
		if err != nil {
			t.Fatalf("レスポンスのデコードに失敗: %v", err)
		}
		if len(batch) != 2 {
			t.Fatalf("イベント数 = %d, want 2", len(batch))
		}
		for i, want := range []string{"Bob", "Carol"} {
			ev := batch[i]
			if ev.Kind != change.KindCreated {
				t.Errorf("batch[%d].Kind = %q, want CREATED", i, ev.Kind)
			}
			if ev.Record == nil || *ev.Record.Name != want {
				t.Errorf("batch[%d].Record = %+v, want name %q", i, ev.Record, want)
			}
		}
		if batch[0].Sequence >= batch[1].Sequence {
			t.Errorf("Sequenceが昇順ではない: %d, %d", batch[0].Sequence, batch[1].Sequence)
		}
	})

	t.Run("イベントが無い場合は空の配列が返ること", func(t *testing.T) {
		t.Parallel()

		srv, _ := setupTestServer(t)
		w := doRequest(srv, http.MethodGet, "/api/v1/internal/changes", "", token)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		if !bytes.Contains(w.Body.Bytes(), []byte(`"events":[]`)) {
			t.Errorf("body = %s", w.Body.String())
		}
	})

	t.Run("トークンが無い場合は401が返ること", func(t *testing.T) {
		t.Parallel()

		srv, _ := setupTestServer(t)
		w := doRequest(srv, http.MethodGet, "/api/v1/internal/changes", "", "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	for _, query := range []string{"after=-1", "after=abc", "limit=0", "limit=x"} {
		t.Run(query+"の場合は400が返ること", func(t *testing.T) {
			t.Parallel()

			srv, _ := setupTestServer(t)
			w := doRequest(srv, http.MethodGet, "/api/v1/internal/changes?"+query, "", token)
			if w.Code != http.StatusBadRequest {
				t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}

	t.Run("フィードを持たないサーバーでは内部APIが登録されないこと", func(t *testing.T) {
		t.Parallel()

		m := metrics.New()
		srv := NewServer("0", NewService(&failingWriter{}, m), nil, m, testJWTSecret)
		w := doRequest(srv, http.MethodGet, "/api/v1/internal/changes", "", token)
		if w.Code != http.StatusNotFound {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}

// TestHealth はヘルスチェックを検証する。
func TestHealth(t *testing.T) {
	t.Parallel()

	srv, _ := setupTestServer(t)
	w := doRequest(srv, http.MethodGet, "/health", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
	}
}
