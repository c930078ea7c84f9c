package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Message は送信するプレーンテキストメール。
type Message struct {
	// From は送信元アドレス。
	From string
	// To は宛先アドレスの一覧。
	To []string
	// Subject は件名。
	Subject string
	// Text はプレーンテキストの本文。
	Text string
}

// Sender はメールを送信するトランスポート。
// 送信に失敗した場合は必ずエラーを返す。
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ErrInvalidMessage は送信前の検査で不正と判定されたメッセージを表す。
var ErrInvalidMessage = errors.New("メールメッセージが不正です")

// Validate はメッセージに送信元と宛先が設定されているかを検査する。
// 件名や本文の改行は各実装で扱うため、ここでは見ない。
func (m Message) Validate() error {
	if strings.TrimSpace(m.From) == "" {
		return fmt.Errorf("%w: 送信元が空です", ErrInvalidMessage)
	}
	if len(m.To) == 0 {
		return fmt.Errorf("%w: 宛先が空です", ErrInvalidMessage)
	}
	for _, to := range m.To {
		if strings.TrimSpace(to) == "" {
			return fmt.Errorf("%w: 空の宛先が含まれています", ErrInvalidMessage)
		}
	}
	return nil
}
