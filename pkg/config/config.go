// Package config はプロセス全体の設定を環境変数から読み込む。
//
// 設定は起動時に1度だけ読み込み、以降は読み取り専用として扱う。
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// ストアの実装種別。
const (
	StoreSQLite   = "sqlite"
	StoreDynamoDB = "dynamodb"
)

// メール送信の実装種別。
const (
	MailSMTP = "smtp"
	MailSES  = "ses"
)

// Config はIntake・Notifierの両サービスが共有する設定。
type Config struct {
	// Port はHTTPサーバーのリッスンポート。
	Port string `env:"PORT" env-default:"8080"`
	// TableName はレコードを保存するテーブル名。
	TableName string `env:"TABLE_NAME" env-required:"true"`
	// StoreBackend はストアの実装（sqlite または dynamodb）。
	StoreBackend string `env:"STORE_BACKEND" env-default:"sqlite"`
	// DatabasePath はSQLiteデータベースファイルのパス。
	DatabasePath string `env:"DATABASE_PATH" env-default:"/data/contact.db"`

	// SenderEmail は通知メールの送信元アドレス。
	SenderEmail string `env:"SENDER_EMAIL" env-required:"true"`
	// RecipientEmail は通知メールの宛先アドレス（運用者）。
	RecipientEmail string `env:"RECIPIENT_EMAIL" env-required:"true"`
	// MailBackend はメール送信の実装（smtp または ses）。
	MailBackend string `env:"MAIL_BACKEND" env-default:"ses"`
	// NotifyFooter は通知メール本文末尾の署名。
	NotifyFooter string `env:"NOTIFY_FOOTER" env-default:"AdventureConnect Contact System"`

	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort string `env:"SMTP_PORT" env-default:"587"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASS"`

	// AWSRegion はDynamoDB・SESのリージョン。
	AWSRegion string `env:"AWS_REGION" env-default:"eu-central-1"`

	// FeedURL はIntakeサービスの変更フィードAPIのベースURL。
	// 空の場合はDatabasePathのSQLiteから直接読み取る。
	FeedURL string `env:"FEED_URL"`
	// FeedPollInterval は変更フィードのポーリング間隔。
	FeedPollInterval time.Duration `env:"FEED_POLL_INTERVAL" env-default:"2s"`
	// FeedBatchSize は1回のポーリングで取得する最大イベント数。
	FeedBatchSize int `env:"FEED_BATCH_SIZE" env-default:"100"`
	// FeedMaxAttempts はレコード不備で失敗し続けるイベントを読み飛ばすまでの試行回数。
	FeedMaxAttempts int `env:"FEED_MAX_ATTEMPTS" env-default:"3"`
	// FeedConsumer はチェックポイントを保存する購読者名。
	FeedConsumer string `env:"FEED_CONSUMER" env-default:"notifier"`

	// ServiceJWTSecret はサービス間の内部API認証に使うJWTの署名鍵。
	ServiceJWTSecret string `env:"SERVICE_JWT_SECRET" env-default:"dev-secret-key"`
}

// Load は環境変数から設定を読み込み、値の組み合わせを検証する。
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate は設定値の組み合わせを検証する。
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreSQLite, StoreDynamoDB:
	default:
		return fmt.Errorf("STORE_BACKENDが不正です: %q", c.StoreBackend)
	}

	switch c.MailBackend {
	case MailSES:
	case MailSMTP:
		if c.SMTPHost == "" {
			return fmt.Errorf("MAIL_BACKEND=smtp の場合はSMTP_HOSTが必要です")
		}
	default:
		return fmt.Errorf("MAIL_BACKENDが不正です: %q", c.MailBackend)
	}

	if c.FeedPollInterval <= 0 {
		return fmt.Errorf("FEED_POLL_INTERVALは正の値である必要があります: %s", c.FeedPollInterval)
	}
	if c.FeedBatchSize <= 0 {
		return fmt.Errorf("FEED_BATCH_SIZEは正の値である必要があります: %d", c.FeedBatchSize)
	}
	if c.FeedMaxAttempts <= 0 {
		return fmt.Errorf("FEED_MAX_ATTEMPTSは正の値である必要があります: %d", c.FeedMaxAttempts)
	}
	return nil
}
