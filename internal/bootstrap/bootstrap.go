// Package bootstrap は設定に従ってストアとメール送信の実装を組み立てる。
//
// AWSのクライアントは起動時に1度だけ生成し、プロセス内で共有する。
package bootstrap

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/nao1215/contact/internal/notifier"
	"github.com/nao1215/contact/internal/store"
	"github.com/nao1215/contact/internal/store/dynamo"
	"github.com/nao1215/contact/pkg/config"
	"github.com/nao1215/contact/pkg/mail"
)

// Store は組み立てたストア。
type Store struct {
	// Writer はレコードの書き込み先。
	Writer store.Writer
	// SQLite はSQLiteストア。DynamoDBを使う場合はnil。
	SQLite *store.SQLite
}

// Close はストアが保持する接続を閉じる。
func (s *Store) Close() error {
	if s.SQLite == nil {
		return nil
	}
	return s.SQLite.Close()
}

// LoadAWS はリージョンを指定してAWSの共通設定を読み込む。
func LoadAWS(ctx context.Context, region string) (aws.Config, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("AWS設定の読み込みに失敗: %w", err)
	}
	return cfg, nil
}

// OpenStore はSTORE_BACKENDに従ってストアを開く。
func OpenStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	switch cfg.StoreBackend {
	case config.StoreSQLite:
		s, err := store.Open(ctx, cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		return &Store{Writer: s, SQLite: s}, nil
	case config.StoreDynamoDB:
		awsCfg, err := LoadAWS(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		return &Store{Writer: dynamo.New(dynamodb.NewFromConfig(awsCfg), cfg.TableName)}, nil
	default:
		return nil, fmt.Errorf("未対応のストアです: %q", cfg.StoreBackend)
	}
}

// NewMailer はMAIL_BACKENDに従ってメール送信の実装を生成する。
func NewMailer(ctx context.Context, cfg *config.Config) (mail.Sender, error) {
	switch cfg.MailBackend {
	case config.MailSMTP:
		return mail.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass), nil
	case config.MailSES:
		awsCfg, err := LoadAWS(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		return mail.NewSES(sesv2.NewFromConfig(awsCfg)), nil
	default:
		return nil, fmt.Errorf("未対応のメール送信方式です: %q", cfg.MailBackend)
	}
}

// DispatcherConfig は設定から通知メールの送信元・宛先・署名を取り出す。
func DispatcherConfig(cfg *config.Config) notifier.DispatcherConfig {
	return notifier.DispatcherConfig{
		Sender:    cfg.SenderEmail,
		Recipient: cfg.RecipientEmail,
		Footer:    cfg.NotifyFooter,
	}
}
