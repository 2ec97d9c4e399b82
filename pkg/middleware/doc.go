// Package middleware は各サービスのGinルーターで共通して使うミドルウェアを提供する。
//
// gatewayが発行したAPIトークンの検証、パニックリカバリ、フロントエンド向けのCORS設定を含む。
// 録画リンクのトークンは発行元が異なるため、JWTAuthでは受け付けない。
package middleware
