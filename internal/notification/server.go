package notification

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
	notificationdb "github.com/nao1215/webconf/internal/notification/db"
	"github.com/nao1215/webconf/pkg/event"
	"github.com/nao1215/webconf/pkg/httpclient"
	"github.com/nao1215/webconf/pkg/middleware"
)

// Server は通知サービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// jwtSecret はAPI認証用JWTの署名鍵。
	jwtSecret string
	// queries はnotificationsテーブルへのクエリ実行オブジェクト。
	queries *notificationdb.Queries
	// db はSQLiteデータベース接続。
	db *sql.DB
	// eventStoreClient はEvent Storeサービスへの通信クライアント。
	eventStoreClient *httpclient.Client
}

// NewServer は新しい通知サーバーを生成する。
// SQLiteデータベースの初期化とマイグレーションを行う。
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
		router:           router,
		port:             cfg.Port,
		jwtSecret:        cfg.JWTSecret,
		queries:          notificationdb.New(sqlDB),
		db:               sqlDB,
		eventStoreClient: httpclient.New(cfg.EventStoreURL),
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
	api := s.router.Group("/api/v1")
	{
		notifications := api.Group("/notifications")
		notifications.Use(middleware.JWTAuth(s.jwtSecret))
		{
			// 通知一覧取得
			notifications.GET("", s.handleList())
			// 未読通知一覧取得
			notifications.GET("/unread", s.handleListUnread())
			// 通知を既読にする
			notifications.PUT("/:id/read", s.handleMarkAsRead())
			// 全通知を既読にする
			notifications.PUT("/read-all", s.handleMarkAllAsRead())
		}

		// 通知送信（内部API - 録画サービスから呼び出される）
		internal := api.Group("/internal")
		{
			internal.POST("/send", s.handleSend())
		}
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "notification"})
	})
}

// notificationResponse は通知のJSONレスポンス構造。
type notificationResponse struct {
	// ID は通知の一意識別子。
	ID string `json:"id"`
	// UserID は通知先のユーザーID。
	UserID string `json:"user_id"`
	// PluginID は通知を生成したプラグインのID。プラグインを使わない通知は空文字。
	PluginID string `json:"plugin_id"`
	// Title は通知のタイトル。
	Title string `json:"title"`
	// Message は通知メッセージ。
	Message string `json:"message"`
	// Attributes はテンプレートに渡した属性。
	Attributes json.RawMessage `json:"attributes"`
	// IsRead は通知の既読状態。
	IsRead bool `json:"is_read"`
	// CreatedAt は通知の作成日時（RFC3339形式）。
	CreatedAt string `json:"created_at"`
}

// toNotificationResponse はDB行をJSONレスポンスに変換する。
func toNotificationResponse(n notificationdb.Notification) notificationResponse {
	attributes := json.RawMessage(n.Attributes)
	if !json.Valid(attributes) {
		attributes = json.RawMessage("{}")
	}
	return notificationResponse{
		ID:         n.ID,
		UserID:     n.UserID,
		PluginID:   n.PluginID,
		Title:      n.Title,
		Message:    n.Message,
		Attributes: attributes,
		IsRead:     n.IsRead != 0,
		CreatedAt:  n.CreatedAt.Format(time.RFC3339),
	}
}

// toNotificationResponses はDB行のスライスをJSONレスポンスのスライスに変換する。
func toNotificationResponses(notifications []notificationdb.Notification) []notificationResponse {
	responses := make([]notificationResponse, 0, len(notifications))
	for _, n := range notifications {
		responses = append(responses, toNotificationResponse(n))
	}
	return responses
}

// handleList は認証済みユーザーの通知一覧を返すハンドラ。
func (s *Server) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		notifications, err := s.queries.ListNotificationsByUserID(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知一覧の取得に失敗しました"})
			log.Printf("通知一覧取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, toNotificationResponses(notifications))
	}
}

// handleListUnread は認証済みユーザーの未読通知一覧を返すハンドラ。
func (s *Server) handleListUnread() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		notifications, err := s.queries.ListUnreadNotifications(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "未読通知一覧の取得に失敗しました"})
			log.Printf("未読通知一覧取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, toNotificationResponses(notifications))
	}
}

// handleMarkAsRead は指定された通知を既読にするハンドラ。
func (s *Server) handleMarkAsRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		notificationID := c.Param("id")

		// 通知の存在確認と所有者チェック
		n, err := s.queries.GetNotificationByID(c.Request.Context(), notificationID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				c.JSON(http.StatusNotFound, gin.H{"error": "通知が見つかりません"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知の取得に失敗しました"})
			log.Printf("通知取得エラー: %v", err)
			return
		}

		if n.UserID != userID {
			c.JSON(http.StatusForbidden, gin.H{"error": "この通知を操作する権限がありません"})
			return
		}

		if err := s.queries.MarkAsRead(c.Request.Context(), notificationID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知の既読処理に失敗しました"})
			log.Printf("通知既読処理エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "通知を既読にしました"})
	}
}

// handleMarkAllAsRead は認証済みユーザーの全通知を既読にするハンドラ。
func (s *Server) handleMarkAllAsRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		if err := s.queries.MarkAllAsRead(c.Request.Context(), userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "全通知の既読処理に失敗しました"})
			log.Printf("全通知既読処理エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "全通知を既読にしました"})
	}
}

// sendRequest は通知送信リクエストのJSON構造。
//
// plugin_idを指定した場合はrecipients全員にプラグインのテンプレートで生成した通知を送る。
// plugin_idが無い場合はuser_id・title・messageで指定した1件の通知を送る。
type sendRequest struct {
	// PluginID は通知プラグインのID。
	PluginID string `json:"plugin_id"`
	// Recipients は通知先のユーザーID。
	Recipients []string `json:"recipients"`
	// Attributes はテンプレートに渡す属性。
	Attributes map[string]any `json:"attributes"`
	// UserID はプラグインを使わない通知の通知先ユーザーID。
	UserID string `json:"user_id"`
	// Title はプラグインを使わない通知のタイトル。
	Title string `json:"title"`
	// Message はプラグインを使わない通知のメッセージ。
	Message string `json:"message"`
}

// outgoingNotification は保存する1件分の通知。
type outgoingNotification struct {
	id      string
	userID  string
	title   string
	message string
}

// appendEventRequest はEvent Storeへのイベント追記リクエストのJSON構造。
type appendEventRequest struct {
	// AggregateID は対象エンティティの識別子。
	AggregateID string `json:"aggregate_id"`
	// AggregateType は対象エンティティの種類。
	AggregateType string `json:"aggregate_type"`
	// EventType はイベントの種類。
	EventType string `json:"event_type"`
	// Data はイベント固有のデータ（JSON形式）。
	Data json.RawMessage `json:"data"`
}

// handleSend は通知を作成しNotificationSentイベントを発行するハンドラ。
// 通知先ごとに1件の通知を保存し、1件のイベントを発行する。
func (s *Server) handleSend() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		var (
			recipients []string
			title      string
			message    string
		)
		if req.PluginID == "" {
			if req.UserID == "" || req.Title == "" || req.Message == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "plugin_id、またはuser_id・title・messageが必要です"})
				return
			}
			recipients = []string{req.UserID}
			title, message = req.Title, req.Message
		} else {
			var err error
			title, message, err = renderMessage(req.PluginID, req.Attributes)
			if err != nil {
				if errors.Is(err, ErrUnknownPlugin) {
					c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				c.JSON(http.StatusInternalServerError, gin.H{"error": "通知メッセージの生成に失敗しました"})
				log.Printf("通知メッセージ生成エラー: %v", err)
				return
			}
			recipients = req.Recipients
		}

		attributes := []byte("{}")
		if len(req.Attributes) > 0 {
			var err error
			attributes, err = json.Marshal(req.Attributes)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "attributesをJSONに変換できません"})
				return
			}
		}

		outgoing := make([]outgoingNotification, 0, len(recipients))
		for _, userID := range recipients {
			outgoing = append(outgoing, outgoingNotification{
				id:      uuid.New().String(),
				userID:  userID,
				title:   title,
				message: message,
			})
		}

		if err := s.saveNotifications(c.Request.Context(), req.PluginID, string(attributes), outgoing); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知の作成に失敗しました"})
			log.Printf("通知作成エラー: %v", err)
			return
		}

		ids := make([]string, 0, len(outgoing))
		for _, n := range outgoing {
			ids = append(ids, n.id)
			// イベント送信に失敗してもログに記録し、通知自体は成功として扱う
			if err := s.emitNotificationSent(c.Request.Context(), req.PluginID, n); err != nil {
				log.Printf("NotificationSentイベントの送信に失敗 (id=%s): %v", n.id, err)
			}
		}

		resp := gin.H{
			"ids":     ids,
			"message": "通知を送信しました",
		}
		if req.PluginID == "" {
			resp["id"] = ids[0]
		}
		c.JSON(http.StatusCreated, resp)
	}
}

// saveNotifications は通知をトランザクション内でまとめて保存する。
func (s *Server) saveNotifications(ctx context.Context, pluginID, attributes string, outgoing []outgoingNotification) error {
	if len(outgoing) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	qtx := s.queries.WithTx(tx)
	for _, n := range outgoing {
		if err := qtx.CreateNotification(ctx, notificationdb.CreateNotificationParams{
			ID:         n.id,
			UserID:     n.userID,
			PluginID:   pluginID,
			Title:      n.title,
			Message:    n.message,
			Attributes: attributes,
		}); err != nil {
			return fmt.Errorf("通知 %s の保存に失敗: %w", n.userID, err)
		}
	}
	return tx.Commit()
}

// emitNotificationSent はNotificationSentイベントをEvent Storeに送信する。
func (s *Server) emitNotificationSent(ctx context.Context, pluginID string, n outgoingNotification) error {
	jsonData, err := json.Marshal(event.NotificationSentData{
		UserID:   n.userID,
		PluginID: pluginID,
		Title:    n.title,
		Message:  n.message,
	})
	if err != nil {
		return fmt.Errorf("イベントデータのシリアライズに失敗: %w", err)
	}

	req := appendEventRequest{
		AggregateID:   fmt.Sprintf("notification-%s", n.id),
		AggregateType: string(event.AggregateTypeUser),
		EventType:     string(event.TypeNotificationSent),
		Data:          jsonData,
	}

	var resp map[string]any
	return s.eventStoreClient.PostJSON(ctx, "/api/v1/events", req, &resp)
}
