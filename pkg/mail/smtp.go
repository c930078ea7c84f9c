package mail

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
)

// sendMailFunc はnet/smtp.SendMailのシグネチャ。テストで差し替える。
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTP はSMTPサーバー経由でメールを送信するSender。
type SMTP struct {
	// Host はSMTPサーバーのホスト名。
	Host string
	// Port はSMTPサーバーのポート番号。
	Port string
	// Username は認証ユーザー名。空の場合は認証しない。
	Username string
	// Password は認証パスワード。
	Password string

	sendMail sendMailFunc
}

var _ Sender = (*SMTP)(nil)

// NewSMTP は新しいSMTP Senderを生成する。
func NewSMTP(host, port, username, password string) *SMTP {
	return &SMTP{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		sendMail: smtp.SendMail,
	}
}

// Send はメッセージをSMTPで送信する。
// net/smtpはコンテキストに対応していないため、送信開始前のキャンセルのみ反映する。
func (c *SMTP) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.Host == "" {
		return fmt.Errorf("SMTPホストが設定されていません")
	}
	if err := msg.Validate(); err != nil {
		return err
	}

	var auth smtp.Auth
	if c.Username != "" || c.Password != "" {
		auth = smtp.PlainAuth("", c.Username, c.Password, c.Host)
	}

	addr := net.JoinHostPort(c.Host, c.Port)
	if err := c.sendMail(addr, auth, msg.From, msg.To, buildMIME(msg)); err != nil {
		return fmt.Errorf("SMTP送信に失敗 (addr=%s): %w", addr, err)
	}
	return nil
}

// buildMIME はプレーンテキストのMIMEメッセージを組み立てる。
// 件名は非ASCII文字を含みうるためRFC 2047でエンコードする。
func buildMIME(msg Message) []byte {
	headers := []string{
		"From: " + msg.From,
		"To: " + strings.Join(msg.To, ", "),
		"Subject: " + mime.QEncoding.Encode("UTF-8", sanitizeHeader(msg.Subject)),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"Content-Transfer-Encoding: 8bit",
	}
	body := strings.ReplaceAll(msg.Text, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\n", "\r\n")
	return []byte(strings.Join(headers, "\r\n") + "\r\n\r\n" + body)
}

// sanitizeHeader はヘッダー値から改行を取り除く。
func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}
