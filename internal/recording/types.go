package recording

import "github.com/nao1215/webconf/pkg/event"

// OwnerType は通話のオーナー種別を表す。
type OwnerType string

const (
	// OwnerTypeSpace はスペースの通話を表す。
	OwnerTypeSpace OwnerType = "space"
	// OwnerTypeSpaceEvent はスペースのイベント（カレンダー予定）に紐づく通話を表す。
	OwnerTypeSpaceEvent OwnerType = "space_event"
	// OwnerTypeUser はユーザー同士の1対1通話を表す。
	OwnerTypeUser OwnerType = "user"
	// OwnerTypeChatRoom はチャットルームの通話を表す。
	OwnerTypeChatRoom OwnerType = "chat_room"
)

// IsGroup はスペース系の通話かどうかを返す。
// スペース系の通話は参加者全員への1件の通知にまとめる。
func (t OwnerType) IsGroup() bool {
	return t == OwnerTypeSpace || t == OwnerTypeSpaceEvent
}

// CallEvent は録画完了イベントの内容を表す。
type CallEvent struct {
	// CallID は通話ID。
	CallID string
	// Type は通話のオーナー種別。未知の値もそのまま保持する。
	Type OwnerType
	// Title は通話のタイトル。
	Title string
	// Participants は参加者のユーザーID。与えられた順序を保つ。
	Participants []string
	// Status は録画の状態。
	Status string
	// UserID は録画をアップロードしたユーザーのID。
	UserID string
	// FileName は録画ファイル名。無い場合は空文字。
	FileName string
	// Identity はオーナーの識別子。無い場合はnil。
	Identity *string
}

// NotificationRequest は通知サービスへ渡す1件分の通知要求。
type NotificationRequest struct {
	// Recipients は通知先のユーザーID。
	Recipients []string
	// RecordingStatus は録画の状態。
	RecordingStatus string
	// FileName は録画ファイル名。
	FileName string
	// RecordedFileURL は通知先向けに発行した録画のダウンロードURL。
	RecordedFileURL string
	// CallType は通話のオーナー種別。
	CallType OwnerType
	// CallOwner は通話オーナーの表示名。
	CallOwner string
	// AvatarURL は通話オーナーのアバター画像URL。
	AvatarURL string
}

// Attributes は通知要求を通知サービスの属性マップに変換する。
func (r NotificationRequest) Attributes() map[string]any {
	recipients := r.Recipients
	if recipients == nil {
		recipients = []string{}
	}
	return map[string]any{
		event.AttrRecordedFileURL:  r.RecordedFileURL,
		event.AttrCallParticipants: recipients,
		event.AttrFileName:         r.FileName,
		event.AttrRecordingStatus:  r.RecordingStatus,
		event.AttrCallType:         string(r.CallType),
		event.AttrAvatarURL:        r.AvatarURL,
		event.AttrCallOwner:        r.CallOwner,
	}
}
