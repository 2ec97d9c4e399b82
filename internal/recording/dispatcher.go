package recording

import (
	"context"
	"fmt"

	"github.com/nao1215/webconf/pkg/event"
	"github.com/nao1215/webconf/pkg/httpclient"
)

// sendPath は通知サービスの通知送信API（内部API）のパス。
const sendPath = "/api/v1/internal/send"

// HTTPDispatcher は通知要求を通知サービスの内部APIへ送信する。
// Dispatcherの実装。
type HTTPDispatcher struct {
	// client は通知サービスへのHTTPクライアント。
	client *httpclient.Client
}

// NewHTTPDispatcher は新しいHTTPDispatcherを生成する。
func NewHTTPDispatcher(client *httpclient.Client) *HTTPDispatcher {
	return &HTTPDispatcher{client: client}
}

// sendRequest は通知サービスへ送るリクエストのJSON構造。
type sendRequest struct {
	// PluginID は通知プラグインのID。
	PluginID string `json:"plugin_id"`
	// Recipients は通知先のユーザーID。
	Recipients []string `json:"recipients"`
	// Attributes はテンプレートに渡す属性。
	Attributes map[string]any `json:"attributes"`
}

// Dispatch は通知要求を1件送信する。通知サービスのエラーはそのまま返す。
func (d *HTTPDispatcher) Dispatch(ctx context.Context, req NotificationRequest) error {
	body := sendRequest{
		PluginID:   event.CallRecordingPluginID,
		Recipients: req.Recipients,
		Attributes: req.Attributes(),
	}
	if body.Recipients == nil {
		body.Recipients = []string{}
	}

	if err := d.client.PostJSON(ctx, sendPath, body, nil); err != nil {
		return fmt.Errorf("通知サービスへの送信に失敗: %w", err)
	}
	notificationsDispatched.WithLabelValues(callTypeLabel(req.CallType)).Inc()
	return nil
}
