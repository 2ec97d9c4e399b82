package recording

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// linkIssuer は録画リンクのトークンに設定する発行者。
const linkIssuer = "webconf-recording"

// downloadPath は録画ダウンロードAPIのパス。
const downloadPath = "/api/v1/recordings/download"

// DefaultLinkTTL は録画リンクの既定の有効期間。
const DefaultLinkTTL = 7 * 24 * time.Hour

// ErrInvalidLink は録画リンクのトークンが不正または期限切れであることを表す。
var ErrInvalidLink = errors.New("録画リンクが無効です")

// LinkClaims は録画リンクのトークンのクレーム。
type LinkClaims struct {
	jwt.RegisteredClaims
	// File は録画ファイル名。
	File string `json:"file"`
	// CallType は通話のオーナー種別。
	CallType OwnerType `json:"call_type"`
	// Identity はオーナーの識別子。
	Identity *string `json:"identity,omitempty"`
}

// Recipient はリンクの発行先（サブジェクト）を返す。
func (c *LinkClaims) Recipient() string {
	return c.Subject
}

// LinkResolver は通知先ごとに署名付きの録画ダウンロードURLを発行する。
// URLResolverの実装。
type LinkResolver struct {
	// baseURL は録画サービスの公開URL。
	baseURL string
	// secret はトークンの署名鍵。
	secret []byte
	// ttl はリンクの有効期間。
	ttl time.Duration
	// now は現在時刻を返す。テストで差し替える。
	now func() time.Time
}

// NewLinkResolver は新しいLinkResolverを生成する。ttlが0以下なら既定値を使う。
func NewLinkResolver(baseURL, secret string, ttl time.Duration) *LinkResolver {
	if ttl <= 0 {
		ttl = DefaultLinkTTL
	}
	return &LinkResolver{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		secret:  []byte(secret),
		ttl:     ttl,
		now:     time.Now,
	}
}

// ResolveRecordingURL はrecipientKey向けの録画ダウンロードURLを返す。
func (l *LinkResolver) ResolveRecordingURL(_ context.Context, recipientKey, fileName string, callType OwnerType, identity *string) (string, error) {
	now := l.now()
	claims := LinkClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   recipientKey,
			Issuer:    linkIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(l.ttl)),
		},
		File:     fileName,
		CallType: callType,
		Identity: identity,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(l.secret)
	if err != nil {
		return "", fmt.Errorf("録画リンクの署名に失敗: %w", err)
	}

	q := url.Values{}
	q.Set("token", token)
	return l.baseURL + downloadPath + "?" + q.Encode(), nil
}

// ParseLink は録画リンクのトークンを検証してクレームを返す。
func (l *LinkResolver) ParseLink(token string) (*LinkClaims, error) {
	claims := &LinkClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(_ *jwt.Token) (any, error) {
		return l.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(linkIssuer),
		jwt.WithTimeFunc(l.now),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLink, err)
	}
	if claims.File == "" {
		return nil, fmt.Errorf("%w: ファイル名がありません", ErrInvalidLink)
	}
	return claims, nil
}
