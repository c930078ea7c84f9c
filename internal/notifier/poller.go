package notifier

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nao1215/contact/pkg/change"
)

// FeedSource は変更フィードをSequence順に読み出すインターフェース。
type FeedSource interface {
	ReadChanges(ctx context.Context, after int64, limit int) (change.Batch, error)
}

// CheckpointStore は購読者ごとの処理済み位置と、読み飛ばしたイベントを永続化するインターフェース。
type CheckpointStore interface {
	LoadCheckpoint(ctx context.Context, consumer string) (int64, error)
	SaveCheckpoint(ctx context.Context, consumer string, seq int64) error
	SaveDeadLetter(ctx context.Context, consumer string, ev change.Event, reason string) error
}

// PollerConfig はPollerの動作設定。
type PollerConfig struct {
	// Consumer はチェックポイントを保存する購読者名。
	Consumer string
	// Interval はポーリング間隔。
	Interval time.Duration
	// BatchSize は1回に取得する最大イベント数。
	BatchSize int
	// MaxAttempts は同じ位置のバッチがレコード不備で失敗し続けた場合に、
	// 該当イベントをデッドレターとして読み飛ばすまでの試行回数。
	MaxAttempts int
}

// Poller は変更フィードをポーリングし、取得したバッチをハンドラに渡すバックグラウンドプロセス。
// チェックポイントはバッチの処理に成功した場合にのみ進めるため、
// 失敗したバッチは次回のポーリングで先頭から再配信される。
// ただしレコード不備（RecordError）で同じ位置のバッチがMaxAttempts回連続して失敗した場合は、
// 該当イベントをデッドレターに記録してチェックポイントをその位置まで進める。
type Poller struct {
	// feed は変更フィード。
	feed FeedSource
	// checkpoints は処理済み位置の保存先。
	checkpoints CheckpointStore
	// handler はバッチの処理先。
	handler BatchHandler
	// cfg はポーリングの設定。
	cfg PollerConfig
	// cursor は処理済みの最後のSequence。
	cursor int64
	// failedAfter は直近に失敗したバッチの取得位置。
	failedAfter int64
	// failures はfailedAfterの位置で連続して失敗した回数。
	failures int
	// mu はcursorと失敗回数への並行アクセスを保護するミューテックス。
	mu sync.Mutex
	// cancel はバックグラウンドゴルーチンを停止するためのキャンセル関数。
	cancel context.CancelFunc
	// done はバックグラウンドゴルーチンの終了を通知する。
	done chan struct{}
}

// NewPoller は新しいPollerを生成する。
func NewPoller(feed FeedSource, checkpoints CheckpointStore, handler BatchHandler, cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Poller{
		feed:        feed,
		checkpoints: checkpoints,
		handler:     handler,
		cfg:         cfg,
	}
}

// Start は保存済みのチェックポイントを読み込み、バックグラウンドでポーリングを開始する。
func (p *Poller) Start(ctx context.Context) error {
	seq, err := p.checkpoints.LoadCheckpoint(ctx, p.cfg.Consumer)
	if err != nil {
		return fmt.Errorf("チェックポイントの読み込みに失敗: %w", err)
	}
	p.mu.Lock()
	p.cursor = seq
	p.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		log.Printf("[Poller] 変更フィードのポーリングを開始します (consumer=%s, after=%d)", p.cfg.Consumer, seq)
		ticker := time.NewTicker(p.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("[Poller] ポーリングを停止しました")
				return
			case <-ticker.C:
				if _, err := p.Poll(ctx); err != nil {
					log.Printf("[Poller] ポーリングエラー: %v", err)
				}
			}
		}
	}()
	return nil
}

// Stop はバックグラウンドのポーリングを停止し、処理中のバッチの完了を待つ。
func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
		<-p.done
	}
}

// Cursor は処理済みの最後のSequenceを返す。
func (p *Poller) Cursor() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// Poll はフィードに溜まっているイベントをバッチ単位で処理し、処理したイベント数を返す。
// バッチの処理に失敗した場合はチェックポイントを進めずにエラーを返す。
// 読み飛ばしたイベントとそれ以前の通知済みイベントも処理件数に含める。
func (p *Poller) Poll(ctx context.Context) (int, error) {
	processed := 0
	for {
		after := p.Cursor()
		batch, err := p.feed.ReadChanges(ctx, after, p.cfg.BatchSize)
		if err != nil {
			return processed, fmt.Errorf("変更フィードの取得に失敗 (after=%d): %w", after, err)
		}
		if len(batch) == 0 {
			return processed, nil
		}

		if _, err := p.handler.HandleBatch(ctx, batch); err != nil {
			n, skipErr := p.skipBadRecord(ctx, after, batch, err)
			if skipErr != nil {
				return processed, skipErr
			}
			if n == 0 {
				return processed, fmt.Errorf("バッチの処理に失敗 (after=%d, size=%d): %w", after, len(batch), err)
			}
			processed += n
			continue
		}

		last := batch.LastSequence()
		if err := p.advance(ctx, last); err != nil {
			return processed, err
		}

		processed += len(batch)
		log.Printf("[Poller] %d件のイベントを処理しました (sequence=%d)", len(batch), last)

		if len(batch) < p.cfg.BatchSize {
			return processed, nil
		}
	}
}

// advance はチェックポイントをseqまで進め、失敗回数をリセットする。
func (p *Poller) advance(ctx context.Context, seq int64) error {
	if err := p.checkpoints.SaveCheckpoint(ctx, p.cfg.Consumer, seq); err != nil {
		return err
	}
	p.mu.Lock()
	p.cursor = seq
	p.failures = 0
	p.mu.Unlock()
	return nil
}

// skipBadRecord はafterの位置での連続失敗を数え、レコード不備による失敗が
// MaxAttempts回に達した場合は該当イベントをデッドレターに記録して読み飛ばす。
// 読み飛ばした場合はチェックポイントを進めたイベント数を返す。
// 該当イベントより前のイベントは既に通知済みのため、チェックポイントは該当イベントの位置に合わせる。
func (p *Poller) skipBadRecord(ctx context.Context, after int64, batch change.Batch, cause error) (int, error) {
	p.mu.Lock()
	if p.failedAfter != after {
		p.failedAfter = after
		p.failures = 0
	}
	p.failures++
	attempts := p.failures
	p.mu.Unlock()

	var recErr *RecordError
	if !errors.As(cause, &recErr) || attempts < p.cfg.MaxAttempts {
		return 0, nil
	}

	idx := -1
	for i, ev := range batch {
		if ev.EventID == recErr.EventID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, nil
	}
	bad := batch[idx]

	log.Printf("[Poller] %d回連続で処理できないイベントを読み飛ばします (sequence=%d, eventId=%s, key=%s): %v",
		attempts, bad.Sequence, bad.EventID, bad.Key, recErr)
	if err := p.checkpoints.SaveDeadLetter(ctx, p.cfg.Consumer, bad, recErr.Error()); err != nil {
		return 0, err
	}
	if err := p.advance(ctx, bad.Sequence); err != nil {
		return 0, err
	}
	return idx + 1, nil
}
