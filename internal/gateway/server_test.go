package gateway

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	_ "modernc.org/sqlite"
	gatewaydb "github.com/nao1215/webconf/internal/gateway/db"
	"github.com/nao1215/webconf/pkg/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testJWTSecret はテスト用のJWT署名秘密鍵。
const testJWTSecret = "test-secret-key"

// newTestServer はテスト用のGatewayサーバーを生成する。
// インメモリSQLiteを使用し、内部サービスURLはダミー値を設定する。
func newTestServer(t *testing.T) *Server {
	t.Helper()

	return newTestServerWithURLs(t, serviceURLConfig{
		Recording:    "http://localhost:19001",
		Notification: "http://localhost:19002",
		EventStore:   "http://localhost:19003",
	})
}

// newTestServerWithBackend はモックバックエンドサービスを持つテスト用Gatewayサーバーを生成する。
// backendHandlerで指定したハンドラが全ての内部サービスとして応答する。
func newTestServerWithBackend(t *testing.T, backendHandler http.HandlerFunc) (*Server, *httptest.Server) {
	t.Helper()

	backend := httptest.NewServer(backendHandler)
	t.Cleanup(backend.Close)

	s := newTestServerWithURLs(t, serviceURLConfig{
		Recording:    backend.URL,
		Notification: backend.URL,
		EventStore:   backend.URL,
	})
	return s, backend
}

func newTestServerWithURLs(t *testing.T, urls serviceURLConfig) *Server {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("インメモリDB接続に失敗: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := initSchema(sqlDB); err != nil {
		t.Fatalf("スキーマ初期化に失敗: %v", err)
	}

	s := &Server{
		router:      gin.New(),
		port:        "0",
		queries:     gatewaydb.New(sqlDB),
		db:          sqlDB,
		jwtSecret:   testJWTSecret,
		serviceURLs: urls,
		client:      &http.Client{},
	}
	s.setupRoutes()

	return s
}

// generateTestJWT はテスト用のJWTトークンを生成する。
func generateTestJWT(t *testing.T, userID, email string) string {
	t.Helper()

	token, err := middleware.GenerateJWT(testJWTSecret, userID, email)
	if err != nil {
		t.Fatalf("テスト用JWT生成に失敗: %v", err)
	}
	return token
}

// seedUser はテスト用のユーザーレコードをDBに挿入する。
func seedUser(t *testing.T, s *Server, id, email, displayName, avatarURL string) {
	t.Helper()

	if err := s.queries.CreateUser(context.Background(), gatewaydb.CreateUserParams{
		ID:          id,
		Email:       email,
		DisplayName: displayName,
		AvatarUrl:   avatarURL,
	}); err != nil {
		t.Fatalf("テスト用ユーザー挿入に失敗: %v", err)
	}
}

// serve はリクエストを実行してレスポンスを返す。tokenが空なら認証ヘッダーを付けない。
func serve(s *Server, method, path, token string, body io.Reader) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	s.router.ServeHTTP(w, req)
	return w
}

// TestNewServer はファイルDBでのサーバー生成のテスト。
func TestNewServer(t *testing.T) {
	t.Parallel()

	s, err := NewServer(Config{
		Port:            "0",
		JWTSecret:       testJWTSecret,
		DBPath:          filepath.Join(t.TempDir(), "gateway.db"),
		FrontendURL:     "http://localhost:3000",
		RecordingURL:    "http://localhost:19001",
		NotificationURL: "http://localhost:19002",
		EventStoreURL:   "http://localhost:19003",
	})
	if err != nil {
		t.Fatalf("NewServerに失敗: %v", err)
	}
	t.Cleanup(func() { s.db.Close() })

	w := serve(s, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
	}
}

// TestHandleDevToken は開発用トークン発行ハンドラのテスト。
func TestHandleDevToken(t *testing.T) {
	t.Parallel()

	t.Run("新規ユーザーの場合にトークンを発行しディレクトリに登録する", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)

		w := serve(s, http.MethodPost, "/auth/dev-token", "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}

		var result map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("レスポンスのパースに失敗: %v", err)
		}
		if result["token"] == "" {
			t.Error("tokenフィールドが空")
		}
		if result["user_id"] != devUserID {
			t.Errorf("user_id: got %q, want %q", result["user_id"], devUserID)
		}

		user, err := s.queries.GetUserByID(context.Background(), devUserID)
		if err != nil {
			t.Fatalf("ユーザーが登録されていない: %v", err)
		}
		if user.DisplayName != devUserDisplayName {
			t.Errorf("display_name: got %q, want %q", user.DisplayName, devUserDisplayName)
		}
	})

	t.Run("指定したユーザーでトークンを発行する", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)

		body := `{"user_id":"alice","email":"alice@example.com","display_name":"Alice Smith"}`
		w := serve(s, http.MethodPost, "/auth/dev-token", "", strings.NewReader(body))
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}

		var result map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("レスポンスのパースに失敗: %v", err)
		}
		if result["user_id"] != "alice" {
			t.Errorf("user_id: got %q, want %q", result["user_id"], "alice")
		}

		w2 := serve(s, http.MethodGet, "/api/v1/users/alice", "", nil)
		var profile profileResponse
		if err := json.Unmarshal(w2.Body.Bytes(), &profile); err != nil {
			t.Fatalf("レスポンスのパースに失敗: %v", err)
		}
		if profile.DisplayName != "Alice Smith" {
			t.Errorf("display_name: got %q, want %q", profile.DisplayName, "Alice Smith")
		}
	})

	t.Run("既存ユーザーの場合は登録内容を変えずにトークンを発行する", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)
		seedUser(t, s, devUserID, "existing@localhost", "既存ユーザー", "")

		w := serve(s, http.MethodPost, "/auth/dev-token", "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}

		user, err := s.queries.GetUserByID(context.Background(), devUserID)
		if err != nil {
			t.Fatalf("ユーザー取得に失敗: %v", err)
		}
		if user.DisplayName != "既存ユーザー" {
			t.Errorf("display_name: got %q, want %q", user.DisplayName, "既存ユーザー")
		}
	})

	t.Run("不正なJSONの場合は400を返す", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)

		w := serve(s, http.MethodPost, "/auth/dev-token", "", strings.NewReader("{invalid"))
		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

// TestHandleGetCurrentUser は認証済みユーザー情報取得ハンドラのテスト。
func TestHandleGetCurrentUser(t *testing.T) {
	t.Parallel()

	t.Run("認証済みユーザーの情報を返す", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)
		seedUser(t, s, "user-123", "test@example.com", "テストユーザー", "/user/img/123.png")

		w := serve(s, http.MethodGet, "/api/v1/me", generateTestJWT(t, "user-123", "test@example.com"), nil)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}

		var result map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("レスポンスのパースに失敗: %v", err)
		}
		if result["id"] != "user-123" {
			t.Errorf("id: got %q, want %q", result["id"], "user-123")
		}
		if result["email"] != "test@example.com" {
			t.Errorf("email: got %q, want %q", result["email"], "test@example.com")
		}
		if result["display_name"] != "テストユーザー" {
			t.Errorf("display_name: got %q, want %q", result["display_name"], "テストユーザー")
		}
		if result["avatar_url"] != "/user/img/123.png" {
			t.Errorf("avatar_url: got %q, want %q", result["avatar_url"], "/user/img/123.png")
		}
	})

	t.Run("認証ヘッダーが無い場合は401を返す", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)

		w := serve(s, http.MethodGet, "/api/v1/me", "", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("DBにユーザーが存在しない場合は404を返す", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)

		w := serve(s, http.MethodGet, "/api/v1/me", generateTestJWT(t, "nonexistent-user", "nobody@example.com"), nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}

// TestHandleUpdateCurrentUser はプロフィール更新ハンドラのテスト。
func TestHandleUpdateCurrentUser(t *testing.T) {
	t.Parallel()

	t.Run("表示名とアバターを更新できる", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)
		seedUser(t, s, "user-1", "u1@example.com", "旧名", "")
		token := generateTestJWT(t, "user-1", "u1@example.com")

		body := `{"display_name":"Alice Smith","avatar_url":"/user/img/alice.png"}`
		w := serve(s, http.MethodPut, "/api/v1/me", token, strings.NewReader(body))
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}

		user, err := s.queries.GetUserByID(context.Background(), "user-1")
		if err != nil {
			t.Fatalf("ユーザー取得に失敗: %v", err)
		}
		if user.DisplayName != "Alice Smith" || user.AvatarUrl != "/user/img/alice.png" {
			t.Errorf("プロフィール: got %q %q", user.DisplayName, user.AvatarUrl)
		}
	})

	t.Run("display_nameが無い場合は400を返す", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)
		seedUser(t, s, "user-1", "u1@example.com", "旧名", "")

		w := serve(s, http.MethodPut, "/api/v1/me", generateTestJWT(t, "user-1", "u1@example.com"), strings.NewReader(`{}`))
		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("未登録ユーザーの場合は404を返す", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)

		w := serve(s, http.MethodPut, "/api/v1/me", generateTestJWT(t, "ghost", "g@example.com"), strings.NewReader(`{"display_name":"x"}`))
		if w.Code != http.StatusNotFound {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}

// TestDirectory はユーザーとスペースのディレクトリAPIのテスト。
func TestDirectory(t *testing.T) {
	t.Parallel()

	t.Run("ユーザーのプロフィールを認証なしで取得できる", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)
		seedUser(t, s, "alice", "alice@example.com", "Alice Smith", "/user/img/alice.png")

		w := serve(s, http.MethodGet, "/api/v1/users/alice", "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}

		var profile profileResponse
		if err := json.Unmarshal(w.Body.Bytes(), &profile); err != nil {
			t.Fatalf("レスポンスのパースに失敗: %v", err)
		}
		if profile.DisplayName != "Alice Smith" || profile.AvatarURL != "/user/img/alice.png" {
			t.Errorf("プロフィール: got %+v", profile)
		}
	})

	t.Run("未登録ユーザーは404を返す", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)

		w := serve(s, http.MethodGet, "/api/v1/users/nobody", "", nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("スペースを登録して更新できる", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)
		token := generateTestJWT(t, "user-1", "u1@example.com")

		w := serve(s, http.MethodPut, "/api/v1/spaces/marketing", token,
			strings.NewReader(`{"display_name":"Marketing","avatar_url":"https://portal.example.com/spaces/m.png"}`))
		if w.Code != http.StatusOK {
			t.Fatalf("登録ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}

		w = serve(s, http.MethodPut, "/api/v1/spaces/marketing", token,
			strings.NewReader(`{"display_name":"Marketing Team","avatar_url":"https://portal.example.com/spaces/m2.png"}`))
		if w.Code != http.StatusOK {
			t.Fatalf("更新ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}

		w = serve(s, http.MethodGet, "/api/v1/spaces/marketing", "", nil)
		var profile profileResponse
		if err := json.Unmarshal(w.Body.Bytes(), &profile); err != nil {
			t.Fatalf("レスポンスのパースに失敗: %v", err)
		}
		if profile.DisplayName != "Marketing Team" {
			t.Errorf("display_name: got %q, want %q", profile.DisplayName, "Marketing Team")
		}
		if profile.AvatarURL != "https://portal.example.com/spaces/m2.png" {
			t.Errorf("avatar_url: got %q", profile.AvatarURL)
		}
	})

	t.Run("スペースの登録には認証が必要", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)

		w := serve(s, http.MethodPut, "/api/v1/spaces/marketing", "", strings.NewReader(`{"display_name":"Marketing"}`))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("未登録スペースは404を返す", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)

		w := serve(s, http.MethodGet, "/api/v1/spaces/unknown", "", nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}

// TestHandleProxy は内部サービスへのプロキシのテスト。
func TestHandleProxy(t *testing.T) {
	t.Parallel()

	t.Run("通知一覧をプロキシしユーザーIDと認証ヘッダーを転送する", func(t *testing.T) {
		t.Parallel()

		backendHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			resp := fmt.Sprintf(`{"path":"%s","user_id":"%s","auth":%t}`,
				r.URL.Path, r.Header.Get("X-User-ID"), strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "))
			_, _ = w.Write([]byte(resp))
		})

		s, _ := newTestServerWithBackend(t, backendHandler)

		w := serve(s, http.MethodGet, "/api/v1/notifications/unread", generateTestJWT(t, "proxy-user-1", "proxy@example.com"), nil)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}

		var result map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("レスポンスのパースに失敗: %v", err)
		}
		if result["path"] != "/api/v1/notifications/unread" {
			t.Errorf("path: got %q", result["path"])
		}
		if result["user_id"] != "proxy-user-1" {
			t.Errorf("X-User-ID: got %q, want %q", result["user_id"], "proxy-user-1")
		}
		if result["auth"] != true {
			t.Error("Authorizationヘッダーが転送されていない")
		}
	})

	t.Run("既読化のパスパラメータが転送される", func(t *testing.T) {
		t.Parallel()

		backendHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(fmt.Sprintf(`{"method":"%s","path":"%s"}`, r.Method, r.URL.Path)))
		})

		s, _ := newTestServerWithBackend(t, backendHandler)

		w := serve(s, http.MethodPut, "/api/v1/notifications/notif-1/read", generateTestJWT(t, "u", "u@example.com"), nil)

		var result map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("レスポンスのパースに失敗: %v", err)
		}
		if result["method"] != http.MethodPut || result["path"] != "/api/v1/notifications/notif-1/read" {
			t.Errorf("転送先: got %v", result)
		}
	})

	t.Run("録画のダウンロードは認証なしでクエリとファイル名を転送する", func(t *testing.T) {
		t.Parallel()

		backendHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/v1/recordings/download" || r.URL.Query().Get("token") != "abc" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "video/webm")
			w.Header().Set("Content-Disposition", `attachment; filename="meeting.webm"`)
			_, _ = w.Write([]byte("webm-bytes"))
		})

		s, _ := newTestServerWithBackend(t, backendHandler)

		w := serve(s, http.MethodGet, "/api/v1/recordings/download?token=abc", "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
		if w.Body.String() != "webm-bytes" {
			t.Errorf("body: got %q", w.Body.String())
		}
		if got := w.Header().Get("Content-Disposition"); got != `attachment; filename="meeting.webm"` {
			t.Errorf("Content-Disposition: got %q", got)
		}
		if got := w.Header().Get("Content-Type"); got != "video/webm" {
			t.Errorf("Content-Type: got %q", got)
		}
	})

	t.Run("録画アップロードのボディとContent-Typeが転送される", func(t *testing.T) {
		t.Parallel()

		backendHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(fmt.Sprintf(`{"content_type":%q,"body":%q}`, r.Header.Get("Content-Type"), body)))
		})

		s, _ := newTestServerWithBackend(t, backendHandler)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/recordings", strings.NewReader("--b\r\n"))
		req.Header.Set("Authorization", "Bearer "+generateTestJWT(t, "u", "u@example.com"))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=b")
		s.router.ServeHTTP(w, req)

		if w.Code != http.StatusCreated {
			t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusCreated)
		}

		var result map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("レスポンスのパースに失敗: %v", err)
		}
		if result["content_type"] != "multipart/form-data; boundary=b" {
			t.Errorf("Content-Type: got %q", result["content_type"])
		}
		if result["body"] != "--b\r\n" {
			t.Errorf("body: got %q", result["body"])
		}
	})

	t.Run("バックエンドがエラーを返した場合にそのステータスを転送する", func(t *testing.T) {
		t.Parallel()

		backendHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not found"}`))
		})

		s, _ := newTestServerWithBackend(t, backendHandler)

		w := serve(s, http.MethodGet, "/api/v1/events?limit=1", generateTestJWT(t, "u", "u@example.com"), nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("バックエンドに接続できない場合は502を返す", func(t *testing.T) {
		t.Parallel()

		backend := httptest.NewServer(http.NotFoundHandler())
		backend.Close()
		s := newTestServerWithURLs(t, serviceURLConfig{Notification: backend.URL})

		w := serve(s, http.MethodGet, "/api/v1/notifications", generateTestJWT(t, "u", "u@example.com"), nil)
		if w.Code != http.StatusBadGateway {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusBadGateway)
		}
	})

	t.Run("認証なしのプロキシリクエストは401を返す", func(t *testing.T) {
		t.Parallel()

		s, _ := newTestServerWithBackend(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		w := serve(s, http.MethodGet, "/api/v1/notifications", "", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})
}

// TestGatewayHealthCheck はヘルスチェックエンドポイントのテスト。
func TestGatewayHealthCheck(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)

	w := serve(s, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
	}

	var result map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("レスポンスのパースに失敗: %v", err)
	}
	if result["service"] != "gateway" {
		t.Errorf("service: got %q, want %q", result["service"], "gateway")
	}
}

// TestJWTGenerationAndValidationFlow はJWTトークンの生成と検証の一連のフローをテストする。
func TestJWTGenerationAndValidationFlow(t *testing.T) {
	t.Parallel()

	t.Run("dev-tokenで発行したトークンで認証APIにアクセスできる", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)

		// Step 1: dev-token でトークンを取得
		w1 := serve(s, http.MethodPost, "/auth/dev-token", "", nil)
		if w1.Code != http.StatusOK {
			t.Fatalf("dev-token ステータスコード: got %d, want %d", w1.Code, http.StatusOK)
		}

		var tokenResp map[string]string
		if err := json.Unmarshal(w1.Body.Bytes(), &tokenResp); err != nil {
			t.Fatalf("レスポンスのパースに失敗: %v", err)
		}

		// Step 2: 取得したトークンで /api/v1/me にアクセス
		w2 := serve(s, http.MethodGet, "/api/v1/me", tokenResp["token"], nil)
		if w2.Code != http.StatusOK {
			t.Fatalf("/api/v1/me ステータスコード: got %d, want %d", w2.Code, http.StatusOK)
		}

		var userResp map[string]interface{}
		if err := json.Unmarshal(w2.Body.Bytes(), &userResp); err != nil {
			t.Fatalf("レスポンスのパースに失敗: %v", err)
		}
		if userResp["id"] != tokenResp["user_id"] {
			t.Errorf("ユーザーID不一致: /me=%q, dev-token=%q", userResp["id"], tokenResp["user_id"])
		}
		if userResp["email"] != devUserEmail {
			t.Errorf("email: got %q, want %q", userResp["email"], devUserEmail)
		}
	})

	t.Run("異なるsecretで署名されたトークンは拒否される", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)

		wrongToken, err := middleware.GenerateJWT("wrong-secret", "user-1", "test@example.com")
		if err != nil {
			t.Fatalf("JWT生成に失敗: %v", err)
		}

		w := serve(s, http.MethodGet, "/api/v1/me", wrongToken, nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})
}
