// Package gateway はAPI Gatewayサービスの内部実装を提供する。
//
// 開発用JWTの発行、ユーザーとスペースのディレクトリ、内部サービスへの
// リクエストルーティングを担当する。外部からアクセス可能な唯一のサービスであり、
// 認証済みリクエストのJWTをそのまま内部サービスに転送する。
// ディレクトリは録画サービスが通知に載せるオーナー名とアバターの参照先になる。
package gateway
