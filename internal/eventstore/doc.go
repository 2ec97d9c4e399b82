// Package eventstore はイベントストアサービスの内部実装を提供する。
//
// すべてのサービスの状態変更をイベントとして永続化する。
// イベントは不変であり、追記のみで運用される。
//
// 主な機能:
//   - イベントの追記（AggregateごとにバージョンをAppend時に採番）
//   - AggregateIDによるイベント取得
//   - イベントタイプによるイベント取得（録画サービスのConsumerがsince付きでポーリングする）
//   - 日時指定によるイベント取得
package eventstore
