package event

import (
	"encoding/json"
	"time"
)

// AggregateType はイベントの対象となるエンティティの種類を表す。
type AggregateType string

const (
	// AggregateTypeCall は通話（録画を含む）エンティティを表す。
	AggregateTypeCall AggregateType = "Call"
	// AggregateTypeUser はユーザーエンティティを表す。
	AggregateTypeUser AggregateType = "User"
)

// Type はイベントの種類を表す。
type Type string

const (
	// TypeCallRecordingReady は通話の録画ファイルが保存され、参加者へ通知できる状態になったことを表す。
	TypeCallRecordingReady Type = "CallRecordingReady"

	// TypeNotificationSent は通知が送信されたことを表す。
	TypeNotificationSent Type = "NotificationSent"
)

// Event はEvent Sourcingにおける不変のイベントレコードを表す。
// すべての状態変更はこの構造体としてEvent Storeに永続化される。
type Event struct {
	// ID はイベントの一意識別子（UUID）。
	ID string `json:"id"`
	// AggregateID は対象エンティティの識別子。
	AggregateID string `json:"aggregate_id"`
	// AggregateType は対象エンティティの種類。
	AggregateType AggregateType `json:"aggregate_type"`
	// EventType はイベントの種類。
	EventType Type `json:"event_type"`
	// Data はイベント固有のデータ（JSON形式）。
	Data json.RawMessage `json:"data"`
	// Version はAggregate内でのイベントの順序番号。楽観的排他制御に使用する。
	Version int64 `json:"version"`
	// CreatedAt はイベントが作成された日時。
	CreatedAt time.Time `json:"created_at"`
}

// CallRecordingReadyData はCallRecordingReadyイベントのデータ。
// 省略可能な項目はポインタで表し、キーの有無を型で区別する。
type CallRecordingReadyData struct {
	// CallID は録画対象の通話ID。
	CallID string `json:"call_id"`
	// Type は通話のオーナー種別（space, space_event, user, chat_room など）。
	Type string `json:"type"`
	// Title は通話のタイトル。チャットルーム等のオーナー名として使う。
	Title string `json:"title,omitempty"`
	// Participants は通話参加者のユーザーID。順序は保持される。
	Participants []string `json:"participants"`
	// Status は録画の状態。
	Status string `json:"status"`
	// UserID は録画をアップロードしたユーザーのID。
	UserID string `json:"user_id"`
	// FileName は録画ファイル名。
	FileName *string `json:"file_name,omitempty"`
	// Identity はオーナーの識別子（スペース名やユーザー名）。
	Identity *string `json:"identity,omitempty"`
}

// CallRecordingPluginID は通話録画の通知プラグインのID。
const CallRecordingPluginID = "CallRecordingPlugin"

// 通話録画の通知に付与する属性のキー。録画サービスが設定し、通知サービスのテンプレートが参照する。
const (
	AttrRecordedFileURL  = "RECORDED_FILE_URL"
	AttrCallParticipants = "CALL_PARTICIPANTS"
	AttrFileName         = "FILE_NAME"
	AttrRecordingStatus  = "RECORDING_STATUS"
	AttrCallType         = "CALL_TYPE"
	AttrAvatarURL        = "AVATAR"
	AttrCallOwner        = "CALL_OWNER"
)

// NotificationSentData はNotificationSentイベントのデータ。
type NotificationSentData struct {
	// UserID は通知先のユーザーID。
	UserID string `json:"user_id"`
	// PluginID は通知を生成したプラグインのID。
	PluginID string `json:"plugin_id,omitempty"`
	// Title は通知のタイトル。
	Title string `json:"title"`
	// Message は通知メッセージ。
	Message string `json:"message"`
}
