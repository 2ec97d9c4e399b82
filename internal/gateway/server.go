package gateway

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	_ "modernc.org/sqlite"
	gatewaydb "github.com/nao1215/webconf/internal/gateway/db"
	"github.com/nao1215/webconf/pkg/middleware"
)

// 開発用トークンで省略されたユーザー情報の既定値。
const (
	devUserID          = "dev-user"
	devUserEmail       = "dev@localhost"
	devUserDisplayName = "開発ユーザー"
)

// Server はAPI Gatewayサービスの HTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// queries はusersテーブルとspacesテーブルへのクエリ実行オブジェクト。
	queries *gatewaydb.Queries
	// db はSQLiteデータベース接続。
	db *sql.DB
	// jwtSecret はJWT署名用の秘密鍵。
	jwtSecret string
	// serviceURLs は内部サービスのURL。
	serviceURLs serviceURLConfig
	// client は内部サービスへのプロキシに使うHTTPクライアント。
	client *http.Client
}

// serviceURLConfig は内部サービスのURL設定。
type serviceURLConfig struct {
	Recording    string
	Notification string
	EventStore   string
}

// NewServer は新しいGatewayサーバーを生成する。
func NewServer(cfg Config) (*Server, error) {
	sqlDB, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if err := initSchema(sqlDB); err != nil {
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS([]string{cfg.FrontendURL}))

	s := &Server{
		router:    router,
		port:      cfg.Port,
		queries:   gatewaydb.New(sqlDB),
		db:        sqlDB,
		jwtSecret: cfg.JWTSecret,
		serviceURLs: serviceURLConfig{
			Recording:    cfg.RecordingURL,
			Notification: cfg.NotificationURL,
			EventStore:   cfg.EventStoreURL,
		},
		client: &http.Client{},
	}
	s.setupRoutes()

	return s, nil
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	auth := s.router.Group("/auth")
	{
		// 開発用トークン発行
		auth.POST("/dev-token", s.handleDevToken())
	}

	api := s.router.Group("/api/v1")
	{
		// ディレクトリ（認証不要 - 録画サービスがオーナー情報の解決に使う）
		api.GET("/users/:id", s.handleGetUser())
		api.GET("/spaces/:id", s.handleGetSpace())

		// 録画のダウンロード（認証不要 - リンクのトークン自体が資格情報）
		api.GET("/recordings/download", s.handleProxy(s.serviceURLs.Recording, "/api/v1/recordings/download"))
	}

	// 認証必須のAPIエンドポイント
	authed := s.router.Group("/api/v1")
	authed.Use(middleware.JWTAuth(s.jwtSecret))
	{
		// ユーザー情報
		authed.GET("/me", s.handleGetCurrentUser())
		authed.PUT("/me", s.handleUpdateCurrentUser())

		// スペースの登録・更新
		authed.PUT("/spaces/:id", s.handlePutSpace())

		// 録画のアップロード（プロキシ）
		authed.POST("/recordings", s.handleProxy(s.serviceURLs.Recording, "/api/v1/recordings"))

		// 通知（プロキシ）
		authed.GET("/notifications", s.handleProxy(s.serviceURLs.Notification, "/api/v1/notifications"))
		authed.GET("/notifications/unread", s.handleProxy(s.serviceURLs.Notification, "/api/v1/notifications/unread"))
		authed.PUT("/notifications/:id/read", s.handleProxyWithParam(s.serviceURLs.Notification, "/api/v1/notifications/", "id", "/read"))
		authed.PUT("/notifications/read-all", s.handleProxy(s.serviceURLs.Notification, "/api/v1/notifications/read-all"))

		// イベントログ
		authed.GET("/events", s.handleProxy(s.serviceURLs.EventStore, "/api/v1/events"))
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "gateway"})
	})
}

// devTokenRequest は開発用トークン発行リクエストのJSON構造。全項目省略可能。
type devTokenRequest struct {
	// UserID はトークンを発行するユーザーID。
	UserID string `json:"user_id"`
	// Email はユーザーのメールアドレス。
	Email string `json:"email"`
	// DisplayName はユーザーのフルネーム。
	DisplayName string `json:"display_name"`
}

// handleDevToken は開発用JWTトークンを発行するハンドラを返す。
// ユーザーが未登録ならディレクトリに登録する。本番環境では無効化すべき。
func (s *Server) handleDevToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req devTokenRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
				return
			}
		}
		if req.UserID == "" {
			req.UserID = devUserID
		}
		if req.Email == "" {
			req.Email = devUserEmail
		}
		if req.DisplayName == "" {
			req.DisplayName = devUserDisplayName
		}

		ctx := c.Request.Context()
		user, err := s.queries.GetUserByID(ctx, req.UserID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if err := s.queries.CreateUser(ctx, gatewaydb.CreateUserParams{
				ID:          req.UserID,
				Email:       req.Email,
				DisplayName: req.DisplayName,
			}); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザー作成に失敗しました"})
				log.Printf("開発ユーザー作成エラー: %v", err)
				return
			}
			user = gatewaydb.User{ID: req.UserID, Email: req.Email}
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザー取得に失敗しました"})
			log.Printf("開発ユーザー取得エラー: %v", err)
			return
		default:
			_ = s.queries.UpdateLastLogin(ctx, user.ID)
		}

		token, err := middleware.GenerateJWT(s.jwtSecret, user.ID, user.Email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "トークン生成に失敗しました"})
			log.Printf("JWT生成エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token":   token,
			"user_id": user.ID,
		})
	}
}

// profileResponse はディレクトリのプロフィールのJSON構造。
type profileResponse struct {
	// ID はユーザーまたはスペースの識別子。
	ID string `json:"id"`
	// DisplayName は表示名。
	DisplayName string `json:"display_name"`
	// AvatarURL はアバター画像のURL。ユーザーの場合はポータルからの相対パス。
	AvatarURL string `json:"avatar_url"`
}

// profileRequest はプロフィール更新リクエストのJSON構造。
type profileRequest struct {
	// DisplayName は表示名。
	DisplayName string `json:"display_name" binding:"required"`
	// AvatarURL はアバター画像のURL。
	AvatarURL string `json:"avatar_url"`
}

// handleGetUser はユーザーのプロフィールを返すハンドラを返す。
func (s *Server) handleGetUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := s.queries.GetUserByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			s.respondLookupError(c, err, "ユーザー")
			return
		}
		c.JSON(http.StatusOK, profileResponse{ID: user.ID, DisplayName: user.DisplayName, AvatarURL: user.AvatarUrl})
	}
}

// handleGetSpace はスペースのプロフィールを返すハンドラを返す。
func (s *Server) handleGetSpace() gin.HandlerFunc {
	return func(c *gin.Context) {
		space, err := s.queries.GetSpaceByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			s.respondLookupError(c, err, "スペース")
			return
		}
		c.JSON(http.StatusOK, profileResponse{ID: space.ID, DisplayName: space.DisplayName, AvatarURL: space.AvatarUrl})
	}
}

// handlePutSpace はスペースのプロフィールを登録または更新するハンドラを返す。
func (s *Server) handlePutSpace() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req profileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		id := c.Param("id")
		if err := s.queries.UpsertSpace(c.Request.Context(), gatewaydb.UpsertSpaceParams{
			ID:          id,
			DisplayName: req.DisplayName,
			AvatarUrl:   req.AvatarURL,
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "スペースの保存に失敗しました"})
			log.Printf("スペース保存エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, profileResponse{ID: id, DisplayName: req.DisplayName, AvatarURL: req.AvatarURL})
	}
}

// handleGetCurrentUser は認証済みユーザーの情報を返すハンドラを返す。
func (s *Server) handleGetCurrentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		user, err := s.queries.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			s.respondLookupError(c, err, "ユーザー")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"id":           user.ID,
			"email":        user.Email,
			"display_name": user.DisplayName,
			"avatar_url":   user.AvatarUrl,
		})
	}
}

// handleUpdateCurrentUser は認証済みユーザーの表示名とアバターを更新するハンドラを返す。
func (s *Server) handleUpdateCurrentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		var req profileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		if _, err := s.queries.GetUserByID(c.Request.Context(), userID); err != nil {
			s.respondLookupError(c, err, "ユーザー")
			return
		}

		if err := s.queries.UpdateUserProfile(c.Request.Context(), gatewaydb.UpdateUserProfileParams{
			ID:          userID,
			DisplayName: req.DisplayName,
			AvatarUrl:   req.AvatarURL,
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "プロフィールの更新に失敗しました"})
			log.Printf("プロフィール更新エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, profileResponse{ID: userID, DisplayName: req.DisplayName, AvatarURL: req.AvatarURL})
	}
}

// respondLookupError はディレクトリ検索のエラーをHTTPレスポンスに変換する。
func (s *Server) respondLookupError(c *gin.Context, err error, kind string) {
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": kind + "が見つかりません"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": kind + "の取得に失敗しました"})
	log.Printf("%s取得エラー: %v", kind, err)
}

// handleProxy は指定されたサービスにリクエストをプロキシするハンドラを返す。
func (s *Server) handleProxy(baseURL, path string) gin.HandlerFunc {
	return func(c *gin.Context) {
		proxyURL := baseURL + path
		if c.Request.URL.RawQuery != "" {
			proxyURL += "?" + c.Request.URL.RawQuery
		}
		s.doProxy(c, c.Request.Method, proxyURL)
	}
}

// handleProxyWithParam はURLパラメータを含むプロキシハンドラを返す。
func (s *Server) handleProxyWithParam(baseURL, pathPrefix, paramName string, pathSuffix ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		proxyURL := baseURL + pathPrefix + c.Param(paramName)
		for _, suffix := range pathSuffix {
			proxyURL += suffix
		}
		if c.Request.URL.RawQuery != "" {
			proxyURL += "?" + c.Request.URL.RawQuery
		}
		s.doProxy(c, c.Request.Method, proxyURL)
	}
}

// doProxy はリクエストを内部サービスにプロキシする共通処理。
// JWTトークンとユーザーIDヘッダーを転送し、レスポンスはストリームのまま返す。
func (s *Server) doProxy(c *gin.Context, method, url string) {
	req, err := http.NewRequestWithContext(c.Request.Context(), method, url, c.Request.Body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "プロキシリクエストの作成に失敗しました"})
		return
	}
	req.ContentLength = c.Request.ContentLength

	// 元のリクエストヘッダーを転送
	req.Header.Set("Content-Type", c.GetHeader("Content-Type"))
	if auth := c.GetHeader("Authorization"); auth != "" {
		req.Header.Set("Authorization", auth)
	}
	if userID := middleware.GetUserID(c); userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "内部サービスとの通信に失敗しました"})
		log.Printf("プロキシエラー: url=%s, error=%v", url, err)
		return
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}

	// ダウンロードのファイル名を維持する
	extraHeaders := map[string]string{}
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		extraHeaders["Content-Disposition"] = cd
	}

	c.DataFromReader(resp.StatusCode, resp.ContentLength, contentType, resp.Body, extraHeaders)
}
