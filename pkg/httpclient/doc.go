// Package httpclient はサービス間のJSON通信を行うクライアントを提供する。
//
// 2xx以外のレスポンスは*StatusErrorとして返す。404はErrNotFoundとして
// 判定できるため、呼び出し側は「存在しない」と「通信できない」を区別できる。
package httpclient
