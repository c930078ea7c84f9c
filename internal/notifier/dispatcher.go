package notifier

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/nao1215/contact/pkg/change"
	"github.com/nao1215/contact/pkg/mail"
	"github.com/nao1215/contact/pkg/metrics"
)

// BatchHandler は変更イベントのバッチを処理するインターフェース。
// エラーを返した場合、呼び出し側はバッチ全体を再配信する。
type BatchHandler interface {
	HandleBatch(ctx context.Context, batch change.Batch) (Outcome, error)
}

// Outcome はバッチ処理が完了した場合の結果。
type Outcome struct {
	// Status は処理結果のステータス。完了時は常に200。
	Status int `json:"status"`
}

// DispatcherConfig は通知メールの送信元・宛先・署名の設定。
type DispatcherConfig struct {
	// Sender は送信元アドレス。
	Sender string
	// Recipient は宛先アドレス（運用者）。
	Recipient string
	// Footer は本文末尾の署名。空の場合はDefaultFooterを使う。
	Footer string
}

// Dispatcher は変更イベントに応じて通知メールを送信する。
type Dispatcher struct {
	// mailer はメール送信のトランスポート。起動時に1度だけ生成したものを共有する。
	mailer mail.Sender
	// cfg は送信元・宛先・署名の設定。
	cfg DispatcherConfig
	// metrics は送信結果を記録するカウンタ。
	metrics *metrics.Metrics
}

var _ BatchHandler = (*Dispatcher)(nil)

// NewDispatcher は新しいDispatcherを生成する。
func NewDispatcher(mailer mail.Sender, cfg DispatcherConfig, m *metrics.Metrics) *Dispatcher {
	if cfg.Footer == "" {
		cfg.Footer = DefaultFooter
	}
	return &Dispatcher{mailer: mailer, cfg: cfg, metrics: m}
}

// HandleBatch はバッチ内のイベントを配信順に処理する。
// CREATED以外のイベントは読み飛ばす。CREATEDイベントの処理に失敗した時点でバッチを中断し、
// エラーを返す。それ以前に送信したメールは取り消されない。
func (d *Dispatcher) HandleBatch(ctx context.Context, batch change.Batch) (Outcome, error) {
	for _, ev := range batch {
		if ev.Kind != change.KindCreated {
			log.Printf("[Notifier] 対象外のイベントをスキップ: %s (key=%s)", ev.Kind, ev.Key)
			d.metrics.RecordSkipped(string(ev.Kind))
			continue
		}

		if err := d.notify(ctx, ev); err != nil {
			d.metrics.RecordFailedBatch()
			return Outcome{}, err
		}
	}
	return Outcome{Status: http.StatusOK}, nil
}

// notify はCREATEDイベント1件分の通知メールを送信する。
func (d *Dispatcher) notify(ctx context.Context, ev change.Event) error {
	n, err := noticeFrom(ev)
	if err != nil {
		log.Printf("[Notifier] レコードの読み取りに失敗: %v", err)
		return err
	}

	msg := mail.Message{
		From:    d.cfg.Sender,
		To:      []string{d.cfg.Recipient},
		Subject: Subject(n.name),
		Text:    ComposeBody(n.id, n.timestamp, n.name, n.email, n.message, d.cfg.Footer),
	}
	if err := d.mailer.Send(ctx, msg); err != nil {
		log.Printf("[Notifier] 通知メールの送信に失敗 (submissionId=%s): %v", n.id, err)
		d.metrics.RecordNotification(metrics.ResultFailure)
		return fmt.Errorf("通知メールの送信に失敗 (submissionId=%s): %w", n.id, err)
	}

	log.Printf("[Notifier] 通知メールを送信しました (submissionId=%s)", n.id)
	d.metrics.RecordNotification(metrics.ResultSuccess)
	return nil
}
