package recording

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/nao1215/webconf/pkg/event"
	"github.com/nao1215/webconf/pkg/httpclient"
)

// Consumer はEvent StoreのCallRecordingReadyイベントをポーリングし、Routerへ渡す。
type Consumer struct {
	// router は録画完了イベントの振り分けを行う。
	router *Router
	// client はEvent Storeとの通信用HTTPクライアント。
	client *httpclient.Client
	// interval はポーリング間隔。
	interval time.Duration
	// lastTimestamp は処理済みイベントのうち最も新しい作成日時。
	lastTimestamp time.Time
	// mu はlastTimestampへの並行アクセスを保護するミューテックス。
	mu sync.Mutex
	// cancel はバックグラウンドゴルーチンを停止するためのキャンセル関数。
	cancel context.CancelFunc
}

// NewConsumer は新しいConsumerを生成する。
// 再起動時に過去の録画を再通知しないよう、生成時刻以降のイベントから処理する。
func NewConsumer(router *Router, client *httpclient.Client, interval time.Duration) *Consumer {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Consumer{
		router:        router,
		client:        client,
		interval:      interval,
		lastTimestamp: time.Now().UTC(),
	}
}

// Start はバックグラウンドでEvent Storeのポーリングを開始する。
func (c *Consumer) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	go func() {
		log.Println("[Consumer] 録画完了イベントのポーリングを開始します")
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("[Consumer] ポーリングを停止しました")
				return
			case <-ticker.C:
				if err := c.poll(ctx); err != nil {
					log.Printf("[Consumer] ポーリングエラー: %v", err)
				}
			}
		}
	}()
}

// Stop はバックグラウンドのポーリングを停止する。
func (c *Consumer) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

// storedEvent はEvent Store APIから返されるイベントのJSON構造。
type storedEvent struct {
	// ID はイベントの一意識別子。
	ID string `json:"id"`
	// AggregateID は対象エンティティの識別子。
	AggregateID string `json:"aggregate_id"`
	// EventType はイベントの種類。
	EventType string `json:"event_type"`
	// Data はイベント固有のデータ（JSON文字列）。
	Data string `json:"data"`
	// CreatedAt はイベントが作成された日時（RFC3339形式）。
	CreatedAt string `json:"created_at"`
}

// poll は前回以降のCallRecordingReadyイベントを取得して振り分ける。
// 1件の失敗はログに残して次のイベントへ進む。
func (c *Consumer) poll(ctx context.Context) error {
	c.mu.Lock()
	since := c.lastTimestamp
	c.mu.Unlock()

	path := fmt.Sprintf("/api/v1/events/type/%s?since=%s",
		event.TypeCallRecordingReady, url.QueryEscape(since.UTC().Format(time.RFC3339Nano)))

	var events []storedEvent
	if err := c.client.GetJSON(ctx, path, &events); err != nil {
		return fmt.Errorf("Event Storeからのイベント取得に失敗: %w", err)
	}

	latest := since
	for _, ev := range events {
		if createdAt, err := time.Parse(time.RFC3339Nano, ev.CreatedAt); err == nil && createdAt.After(latest) {
			latest = createdAt
		}
		if err := c.handle(ctx, ev); err != nil {
			log.Printf("[Consumer] イベント処理エラー (id=%s, call=%s): %v", ev.ID, ev.AggregateID, err)
		}
	}

	c.mu.Lock()
	c.lastTimestamp = latest
	c.mu.Unlock()

	if len(events) > 0 {
		log.Printf("[Consumer] %d件の録画完了イベントを処理しました", len(events))
	}
	return nil
}

// handle は1件のイベントをデコードしてRouterへ渡す。
func (c *Consumer) handle(ctx context.Context, ev storedEvent) error {
	if event.Type(ev.EventType) != event.TypeCallRecordingReady {
		return nil
	}

	data, err := event.DecodeString[event.CallRecordingReadyData](ev.Data)
	if err != nil {
		return err
	}

	err = c.router.Route(ctx, CallEventFromData(*data))
	observeRoute(err)
	return err
}

// CallEventFromData はイベントデータをCallEventに変換する。
// file_nameが無ければ空文字、identityが無ければnilになる。
func CallEventFromData(data event.CallRecordingReadyData) CallEvent {
	ev := CallEvent{
		CallID:       data.CallID,
		Type:         OwnerType(data.Type),
		Title:        data.Title,
		Participants: data.Participants,
		Status:       data.Status,
		UserID:       data.UserID,
		Identity:     data.Identity,
	}
	if data.FileName != nil {
		ev.FileName = *data.FileName
	}
	return ev
}
