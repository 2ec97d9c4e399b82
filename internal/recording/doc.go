// Package recording は録画サービスの内部実装を提供する。
//
// 通話の録画ファイルを受け取り、録画完了イベントを発行する。
// 録画完了イベントを受け取ると、通話のオーナー種別に応じて通知先を決め、
// 通知先ごとに署名付きのダウンロードURLを発行して通知サービスへ送る。
//
// スペース（space / space_event）の通話は参加者全員に1件の通知を、
// それ以外の通話は参加者ごとに1件ずつ通知を送る。
package recording
