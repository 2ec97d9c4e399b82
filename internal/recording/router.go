package recording

import (
	"context"
	"fmt"
)

// URLResolver は通知先ごとの録画ダウンロードURLを発行する。
// recipientKeyはスペース通話ではアップロードしたユーザー、それ以外は各参加者になる。
type URLResolver interface {
	ResolveRecordingURL(ctx context.Context, recipientKey, fileName string, callType OwnerType, identity *string) (string, error)
}

// Dispatcher は通知要求を通知の配信基盤へ渡す。
type Dispatcher interface {
	Dispatch(ctx context.Context, req NotificationRequest) error
}

// Router は録画完了イベントを通知要求に振り分ける。
//
// 状態を持たないため、依存先が並行呼び出しに対応していれば
// 複数のgoroutineから同時にRouteを呼び出してよい。
type Router struct {
	// resolver は録画URLの発行を担当する。
	resolver URLResolver
	// dispatcher は通知要求の送信を担当する。
	dispatcher Dispatcher
	// owners は通話オーナーの表示名とアバターを解決する。
	owners OwnerResolver
}

// RouterOption はRouterの任意設定。
type RouterOption func(*Router)

// WithOwnerResolver は通話オーナーの解決方法を差し替える。
func WithOwnerResolver(owners OwnerResolver) RouterOption {
	return func(r *Router) {
		if owners != nil {
			r.owners = owners
		}
	}
}

// NewRouter は新しいRouterを生成する。
func NewRouter(resolver URLResolver, dispatcher Dispatcher, opts ...RouterOption) *Router {
	r := &Router{
		resolver:   resolver,
		dispatcher: dispatcher,
		owners:     DefaultOwnerResolver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route は録画完了イベントから通知要求を組み立てて送信する。
//
// スペース系の通話はアップロードしたユーザーをキーにURLを1つ発行し、
// 参加者全員宛ての通知を1件送る。それ以外の通話は参加者の順に
// 参加者ごとのURLを発行して1件ずつ送る。重複した参加者はそのまま重複して通知される。
// URL発行や送信でエラーが起きた時点で処理を打ち切り、そのエラーを返す。
func (r *Router) Route(ctx context.Context, ev CallEvent) error {
	participants := make([]string, len(ev.Participants))
	copy(participants, ev.Participants)

	owner, err := r.owners.ResolveOwner(ctx, ev)
	if err != nil {
		return fmt.Errorf("通話オーナーの解決に失敗 (call=%s): %w", ev.CallID, err)
	}

	if ev.Type.IsGroup() {
		fileURL, err := r.resolver.ResolveRecordingURL(ctx, ev.UserID, ev.FileName, ev.Type, ev.Identity)
		if err != nil {
			return fmt.Errorf("録画URLの発行に失敗 (call=%s, user=%s): %w", ev.CallID, ev.UserID, err)
		}
		if err := r.dispatcher.Dispatch(ctx, newRequest(ev, owner, participants, fileURL)); err != nil {
			return fmt.Errorf("録画通知の送信に失敗 (call=%s): %w", ev.CallID, err)
		}
		return nil
	}

	for _, participant := range participants {
		fileURL, err := r.resolver.ResolveRecordingURL(ctx, participant, ev.FileName, ev.Type, ev.Identity)
		if err != nil {
			return fmt.Errorf("録画URLの発行に失敗 (call=%s, user=%s): %w", ev.CallID, participant, err)
		}
		if err := r.dispatcher.Dispatch(ctx, newRequest(ev, owner, []string{participant}, fileURL)); err != nil {
			return fmt.Errorf("録画通知の送信に失敗 (call=%s, user=%s): %w", ev.CallID, participant, err)
		}
	}
	return nil
}

// newRequest は通知要求を組み立てる。
func newRequest(ev CallEvent, owner Owner, recipients []string, fileURL string) NotificationRequest {
	return NotificationRequest{
		Recipients:      recipients,
		RecordingStatus: ev.Status,
		FileName:        ev.FileName,
		RecordedFileURL: fileURL,
		CallType:        ev.Type,
		CallOwner:       owner.Name,
		AvatarURL:       owner.AvatarURL,
	}
}
