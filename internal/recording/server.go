package recording

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/nao1215/webconf/pkg/event"
	"github.com/nao1215/webconf/pkg/httpclient"
	"github.com/nao1215/webconf/pkg/middleware"
)

// maxUploadSize はアップロード可能な録画ファイルの最大サイズ（2GB）。
// テスト時に差し替え可能にするためvarとして宣言する。
var maxUploadSize int64 = 2 << 30

// defaultRecordingStatus はstatusが指定されなかった場合の録画状態。
const defaultRecordingStatus = "ready"

// Server は録画サービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// jwtSecret はAPI認証用JWTの署名鍵。
	jwtSecret string
	// notifier は録画完了イベントを通知要求に振り分ける。
	notifier *Router
	// links は録画リンクの発行と検証を行う。
	links *LinkResolver
	// storage は録画ファイルの保存先。
	storage *Storage
	// eventStoreClient はEvent Storeサービスへの通信クライアント。
	eventStoreClient *httpclient.Client
	// consumer はEvent Storeの録画完了イベントを購読する。
	consumer *Consumer
}

// NewServer は新しい録画サーバーを生成する。
// 依存サービスへのクライアントを組み立て、Routerに明示的に注入する。
func NewServer(cfg Config) (*Server, error) {
	storage, err := NewStorage(cfg.RecordingsDir)
	if err != nil {
		return nil, fmt.Errorf("ストレージ初期化に失敗: %w", err)
	}

	links := NewLinkResolver(cfg.PublicURL, cfg.LinkSecret, cfg.LinkTTL)
	dispatcher := NewHTTPDispatcher(httpclient.New(cfg.NotificationURL))

	var owners OwnerResolver = DefaultOwnerResolver{Domain: cfg.PortalDomain}
	if cfg.DirectoryURL != "" {
		owners = NewHTTPOwnerResolver(httpclient.New(cfg.DirectoryURL), cfg.PortalDomain)
	}
	notifier := NewRouter(links, dispatcher, WithOwnerResolver(owners))

	eventStoreClient := httpclient.New(cfg.EventStoreURL)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.MaxMultipartMemory = 32 << 20

	s := &Server{
		router:           router,
		port:             cfg.Port,
		jwtSecret:        cfg.JWTSecret,
		notifier:         notifier,
		links:            links,
		storage:          storage,
		eventStoreClient: eventStoreClient,
		consumer:         NewConsumer(notifier, eventStoreClient, cfg.ConsumerInterval),
	}
	s.setupRoutes()

	return s, nil
}

// Run はEvent Storeの購読を開始し、HTTPサーバーを起動する。
func (s *Server) Run() error {
	s.consumer.Start(context.Background())
	defer s.consumer.Stop()

	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	api := s.router.Group("/api/v1")
	{
		// 録画ダウンロード（リンクのトークンで認可するためJWT不要）
		api.GET("/recordings/download", s.handleDownload())

		// 録画完了イベントの直接受け付け（内部API）
		internal := api.Group("/internal")
		{
			internal.POST("/recordings/events", s.handleRecordingEvent())
		}

		authed := api.Group("")
		authed.Use(middleware.JWTAuth(s.jwtSecret))
		{
			// 録画ファイルのアップロード
			authed.POST("/recordings", s.handleUpload())
		}
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "recording"})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
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

// emitRecordingReady はCallRecordingReadyイベントをEvent Storeに送信する。
func (s *Server) emitRecordingReady(ctx context.Context, data event.CallRecordingReadyData) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("イベントデータのシリアライズに失敗: %w", err)
	}

	req := appendEventRequest{
		AggregateID:   data.CallID,
		AggregateType: string(event.AggregateTypeCall),
		EventType:     string(event.TypeCallRecordingReady),
		Data:          jsonData,
	}

	var resp map[string]any
	if err := s.eventStoreClient.PostJSON(ctx, "/api/v1/events", req, &resp); err != nil {
		return fmt.Errorf("Event Storeへのイベント送信に失敗: %w", err)
	}
	return nil
}

// isAllowedContentType は録画として受け付けるContent-Typeかどうかを返す。
func isAllowedContentType(contentType string) bool {
	return strings.HasPrefix(contentType, "video/") ||
		strings.HasPrefix(contentType, "audio/") ||
		contentType == "application/octet-stream"
}

// handleUpload は録画ファイルのアップロードを処理するハンドラを返す。
// ファイルを保存し、CallRecordingReadyイベントをEvent Storeに発行する。
// 通知はEvent Storeを購読しているConsumerが送る。
func (s *Server) handleUpload() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		callID := c.PostForm("call_id")
		callType := c.PostForm("type")
		if callID == "" || callType == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "call_idとtypeは必須です"})
			return
		}

		file, header, err := c.Request.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("ファイルの取得に失敗しました: %v", err)})
			return
		}
		defer file.Close()

		if header.Size > maxUploadSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("ファイルサイズが上限を超えています（最大%dMB）", maxUploadSize/(1<<20))})
			return
		}

		contentType := header.Header.Get("Content-Type")
		if !isAllowedContentType(contentType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("許可されていないContent-Typeです: %s", contentType)})
			return
		}

		// identityが無い場合はアップロードしたユーザーのフォルダに保存するが、
		// イベントのidentityは無いまま発行する
		identity := c.PostForm("identity")
		storageOwner := identity
		if storageOwner == "" {
			storageOwner = userID
		}

		fileName, err := cleanName(header.Filename)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ファイル名が不正です"})
			return
		}

		path, err := s.storage.Save(OwnerType(callType), storageOwner, fileName, file)
		if err != nil {
			if errors.Is(err, ErrInvalidName) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "identityが不正です"})
				return
			}
			log.Printf("録画ファイルの保存に失敗: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "録画ファイルの保存に失敗しました"})
			return
		}

		status := c.DefaultPostForm("status", defaultRecordingStatus)
		data := event.CallRecordingReadyData{
			CallID:       callID,
			Type:         callType,
			Title:        c.PostForm("title"),
			Participants: c.PostFormArray("participants"),
			Status:       status,
			UserID:       userID,
			FileName:     &fileName,
		}
		if identity != "" {
			data.Identity = &identity
		}
		if data.Participants == nil {
			data.Participants = []string{}
		}

		if err := s.emitRecordingReady(c.Request.Context(), data); err != nil {
			log.Printf("CallRecordingReadyイベントの送信に失敗: %v", err)
			if removeErr := os.Remove(path); removeErr != nil {
				log.Printf("クリーンアップ失敗: %v", removeErr)
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": "録画完了イベントの発行に失敗しました"})
			return
		}

		c.JSON(http.StatusCreated, data)
	}
}

// handleRecordingEvent は録画完了イベントを直接受け付けて通知を送るハンドラを返す。
// Event Storeを経由しない外部のイベント送信元向けの内部API。
func (s *Server) handleRecordingEvent() gin.HandlerFunc {
	return func(c *gin.Context) {
		var data event.CallRecordingReadyData
		if err := c.ShouldBindJSON(&data); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		err := s.notifier.Route(c.Request.Context(), CallEventFromData(data))
		observeRoute(err)
		if err != nil {
			log.Printf("録画通知の振り分けに失敗 (call=%s): %v", data.CallID, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "録画通知の送信に失敗しました"})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"message": "録画通知を送信しました"})
	}
}

// handleDownload は録画リンクのトークンを検証してファイルを返すハンドラを返す。
func (s *Server) handleDownload() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "トークンが必要です"})
			return
		}

		claims, err := s.links.ParseLink(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "録画リンクが無効です"})
			return
		}

		path, err := s.storage.Locate(claims)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "録画ファイルが見つかりません"})
			return
		}

		c.FileAttachment(path, claims.File)
	}
}
