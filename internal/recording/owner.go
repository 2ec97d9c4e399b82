package recording

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/nao1215/webconf/pkg/httpclient"
)

// defaultRoomAvatarPath はチャットルーム等のオーナーに使うアバター画像のパス。
const defaultRoomAvatarPath = "/chat/img/room-default.jpg"

// Owner は通知に表示する通話オーナーの情報。
type Owner struct {
	// Name はオーナーの表示名。
	Name string
	// AvatarURL はオーナーのアバター画像URL。
	AvatarURL string
}

// OwnerResolver は通話オーナーの表示名とアバターを解決する。
type OwnerResolver interface {
	ResolveOwner(ctx context.Context, ev CallEvent) (Owner, error)
}

// DefaultOwnerResolver はディレクトリサービスを使わずに通話タイトルをオーナー名とする。
type DefaultOwnerResolver struct {
	// Domain はポータルのURL（例: "https://portal.example.com"）。
	Domain string
}

// ResolveOwner は通話タイトルと既定のルーム画像を返す。
func (d DefaultOwnerResolver) ResolveOwner(_ context.Context, ev CallEvent) (Owner, error) {
	return Owner{
		Name:      ev.Title,
		AvatarURL: strings.TrimSuffix(d.Domain, "/") + defaultRoomAvatarPath,
	}, nil
}

// HTTPOwnerResolver はディレクトリサービスからスペースやユーザーのプロフィールを取得する。
type HTTPOwnerResolver struct {
	// client はディレクトリサービスへのHTTPクライアント。
	client *httpclient.Client
	// fallback はディレクトリを引かない種別で使う解決方法。
	fallback DefaultOwnerResolver
}

// NewHTTPOwnerResolver は新しいHTTPOwnerResolverを生成する。
// domainはユーザーのアバターパスやルーム画像の前に付けるポータルのURL。
func NewHTTPOwnerResolver(client *httpclient.Client, domain string) *HTTPOwnerResolver {
	return &HTTPOwnerResolver{
		client:   client,
		fallback: DefaultOwnerResolver{Domain: domain},
	}
}

// profileResponse はディレクトリサービスのプロフィールのJSON構造。
type profileResponse struct {
	// DisplayName は表示名。ユーザーの場合はフルネーム。
	DisplayName string `json:"display_name"`
	// AvatarURL はアバター画像のURL。ユーザーの場合はポータルからの相対パス。
	AvatarURL string `json:"avatar_url"`
}

// ResolveOwner はオーナー種別に応じてプロフィールを取得する。
// スペース系はスペースのプロフィール、ユーザー通話はユーザーのプロフィールを引き、
// それ以外はタイトルと既定のルーム画像を使う。
// identityが無い場合やディレクトリに登録が無い場合はエラーにせず、引かずに済む値を返す。
// ディレクトリへの通信障害はエラーとして返す。
func (h *HTTPOwnerResolver) ResolveOwner(ctx context.Context, ev CallEvent) (Owner, error) {
	identity := ""
	if ev.Identity != nil {
		identity = *ev.Identity
	}

	switch {
	case ev.Type.IsGroup():
		if identity == "" {
			return h.fallback.ResolveOwner(ctx, ev)
		}
		var space profileResponse
		if err := h.client.GetJSON(ctx, "/api/v1/spaces/"+url.PathEscape(identity), &space); err != nil {
			if errors.Is(err, httpclient.ErrNotFound) {
				log.Printf("[Owner] スペース %s がディレクトリに無いため通話タイトルを使用", identity)
				return h.fallback.ResolveOwner(ctx, ev)
			}
			return Owner{}, fmt.Errorf("スペース %s のプロフィール取得に失敗: %w", identity, err)
		}
		return Owner{Name: space.DisplayName, AvatarURL: space.AvatarURL}, nil
	case ev.Type == OwnerTypeUser:
		owner := Owner{AvatarURL: strings.TrimSuffix(h.fallback.Domain, "/")}
		if identity == "" {
			return owner, nil
		}
		var user profileResponse
		if err := h.client.GetJSON(ctx, "/api/v1/users/"+url.PathEscape(identity), &user); err != nil {
			if errors.Is(err, httpclient.ErrNotFound) {
				log.Printf("[Owner] ユーザー %s がディレクトリに無いため表示名なしで通知", identity)
				return owner, nil
			}
			return Owner{}, fmt.Errorf("ユーザー %s のプロフィール取得に失敗: %w", identity, err)
		}
		owner.Name = user.DisplayName
		owner.AvatarURL += user.AvatarURL
		return owner, nil
	default:
		return h.fallback.ResolveOwner(ctx, ev)
	}
}
