package notifier

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/nao1215/contact/pkg/change"
	"github.com/nao1215/contact/pkg/httpclient"
)

// changesPath は受付サービスの変更フィードAPIのパス。
const changesPath = "/api/v1/internal/changes"

// HTTPFeed は受付サービスの変更フィードAPIから変更イベントを取得するFeedSource。
type HTTPFeed struct {
	// client は受付サービスとの通信用HTTPクライアント。
	client *httpclient.Client
}

var _ FeedSource = (*HTTPFeed)(nil)

// NewHTTPFeed は新しいHTTPFeedを生成する。
// clientには受付サービスのベースURLとサービストークンを設定したものを渡す。
func NewHTTPFeed(client *httpclient.Client) *HTTPFeed {
	return &HTTPFeed{client: client}
}

// ReadChanges はafterより後の変更イベントを最大limit件取得する。
func (f *HTTPFeed) ReadChanges(ctx context.Context, after int64, limit int) (change.Batch, error) {
	q := url.Values{}
	q.Set("after", strconv.FormatInt(after, 10))
	q.Set("limit", strconv.Itoa(limit))

	var env change.Envelope
	if err := f.client.GetJSON(ctx, changesPath+"?"+q.Encode(), &env); err != nil {
		return nil, fmt.Errorf("受付サービスからの変更イベント取得に失敗: %w", err)
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return env.Events, nil
}
