package mail

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// charsetUTF8 は件名と本文の文字コード。
const charsetUTF8 = "UTF-8"

// SendEmailAPI はSESv2クライアントのうちSendEmailのみを表すインターフェース。
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SES はAmazon SES経由でメールを送信するSender。
type SES struct {
	client SendEmailAPI
}

var _ Sender = (*SES)(nil)

// NewSES は新しいSES Senderを生成する。
func NewSES(client SendEmailAPI) *SES {
	return &SES{client: client}
}

// Send はメッセージをSESのSimple形式で送信する。
func (s *SES) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(msg.From),
		Destination: &types.Destination{
			ToAddresses: msg.To,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String(charsetUTF8)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(msg.Text), Charset: aws.String(charsetUTF8)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("SESでの送信に失敗: %w", err)
	}
	return nil
}
