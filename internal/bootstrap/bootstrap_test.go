package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nao1215/contact/internal/store/dynamo"
	"github.com/nao1215/contact/pkg/config"
	"github.com/nao1215/contact/pkg/mail"
)

// testConfig はテスト用の設定を返すヘルパー関数。
func testConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		TableName:      "contact-submissions",
		StoreBackend:   config.StoreSQLite,
		DatabasePath:   filepath.Join(t.TempDir(), "contact.db"),
		SenderEmail:    "noreply@example.com",
		RecipientEmail: "ops@example.com",
		MailBackend:    config.MailSMTP,
		NotifyFooter:   "Example Inc.",
		SMTPHost:       "localhost",
		SMTPPort:       "1025",
		AWSRegion:      "eu-central-1",
	}
}

// TestOpenStore はOpenStoreを検証する。
func TestOpenStore(t *testing.T) {
	t.Parallel()

	t.Run("SQLiteを指定した場合はファイルのストアが開かれること", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(t)
		s, err := OpenStore(context.Background(), cfg)
		if err != nil {
			t.Fatalf("OpenStore()でエラーが発生: %v", err)
		}
		defer s.Close()

		if s.SQLite == nil {
			t.Fatal("SQLiteがnil")
		}
		if err := s.SQLite.Ping(context.Background()); err != nil {
			t.Errorf("Ping()でエラーが発生: %v", err)
		}
	})

	t.Run("DynamoDBを指定した場合はテーブルへのWriterが返ること", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(t)
		cfg.StoreBackend = config.StoreDynamoDB
		s, err := OpenStore(context.Background(), cfg)
		if err != nil {
			t.Fatalf("OpenStore()でエラーが発生: %v", err)
		}
		if _, ok := s.Writer.(*dynamo.Table); !ok {
			t.Errorf("Writer = %T, want *dynamo.Table", s.Writer)
		}
		if s.SQLite != nil {
			t.Error("DynamoDB使用時にSQLiteが設定されている")
		}
		if err := s.Close(); err != nil {
			t.Errorf("Close()でエラーが発生: %v", err)
		}
	})

	t.Run("未対応のストアではエラーが返ること", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(t)
		cfg.StoreBackend = "redis"
		if _, err := OpenStore(context.Background(), cfg); err == nil {
			t.Fatal("OpenStore()がエラーを返すべきだが、nilが返った")
		}
	})
}

// TestNewMailer はNewMailerを検証する。
func TestNewMailer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		backend string
		check   func(mail.Sender) bool
		wantErr bool
	}{
		{
			name:    "SMTPを指定した場合はSMTPクライアントが返ること",
			backend: config.MailSMTP,
			check:   func(s mail.Sender) bool { _, ok := s.(*mail.SMTP); return ok },
		},
		{
			name:    "SESを指定した場合はSESクライアントが返ること",
			backend: config.MailSES,
			check:   func(s mail.Sender) bool { _, ok := s.(*mail.SES); return ok },
		},
		{
			name:    "未対応の送信方式ではエラーが返ること",
			backend: "sendgrid",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := testConfig(t)
			cfg.MailBackend = tt.backend
			sender, err := NewMailer(context.Background(), cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("NewMailer()がエラーを返すべきだが、nilが返った")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewMailer()でエラーが発生: %v", err)
			}
			if !tt.check(sender) {
				t.Errorf("NewMailer() = %T", sender)
			}
		})
	}
}

// TestDispatcherConfig は設定の取り出しを検証する。
func TestDispatcherConfig(t *testing.T) {
	t.Parallel()

	got := DispatcherConfig(testConfig(t))
	if got.Sender != "noreply@example.com" || got.Recipient != "ops@example.com" || got.Footer != "Example Inc." {
		t.Errorf("DispatcherConfig() = %+v", got)
	}
}
