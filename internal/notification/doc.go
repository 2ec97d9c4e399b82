// Package notification は通知サービスの内部実装を提供する。
//
// 通知プラグインのIDと属性を受け取り、プラグインのテンプレートで
// 通知メッセージを生成して通知先ごとに保存する。
// 通知の一覧取得や既読管理も行う。
package notification
