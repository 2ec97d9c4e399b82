package eventstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
	eventstoredb "github.com/nao1215/webconf/internal/eventstore/db"
	"github.com/nao1215/webconf/pkg/middleware"
)

// defaultDBPath はDB_PATH未設定時のデータベースファイル。
// 追記時のバージョン採番を直列化するため、トランザクションはIMMEDIATEで開始する。
const defaultDBPath = "/data/eventstore.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate"

// Server はイベントストアサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// queries はeventsテーブルへのクエリ実行オブジェクト。
	queries *eventstoredb.Queries
	// db はSQLiteデータベース接続。
	db *sql.DB
}

// NewServer は新しいイベントストアサーバーを生成する。
// SQLiteデータベースの初期化とマイグレーションを行う。
func NewServer(port string) (*Server, error) {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = defaultDBPath
	}

	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if err := initSchema(sqlDB); err != nil {
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())

	s := &Server{
		router:  router,
		port:    port,
		queries: eventstoredb.New(sqlDB),
		db:      sqlDB,
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
		events := api.Group("/events")
		{
			// イベントの追記
			events.POST("", s.handleAppendEvent())
			// 全イベント取得
			events.GET("", s.handleGetAllEvents())
			// AggregateIDによるイベント取得
			events.GET("/aggregate/:aggregate_id", s.handleGetEventsByAggregateID())
			// イベントタイプによるイベント取得（任意のクエリパラメータ: since）
			events.GET("/type/:event_type", s.handleGetEventsByType())
			// 日時指定によるイベント取得（クエリパラメータ: since）
			events.GET("/since", s.handleGetEventsSince())
			// AggregateIDの最新バージョン取得
			events.GET("/aggregate/:aggregate_id/version", s.handleGetLatestVersion())
		}
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "eventstore"})
	})
}

// appendEventRequest はイベント追記リクエストのJSON構造。
type appendEventRequest struct {
	// AggregateID は対象エンティティの識別子。
	AggregateID string `json:"aggregate_id" binding:"required"`
	// AggregateType は対象エンティティの種類。
	AggregateType string `json:"aggregate_type" binding:"required"`
	// EventType はイベントの種類。
	EventType string `json:"event_type" binding:"required"`
	// Data はイベント固有のデータ（JSON形式）。
	Data json.RawMessage `json:"data" binding:"required"`
}

// eventResponse はイベントのJSONレスポンス構造。
type eventResponse struct {
	// ID はイベントの一意識別子。
	ID string `json:"id"`
	// AggregateID は対象エンティティの識別子。
	AggregateID string `json:"aggregate_id"`
	// AggregateType は対象エンティティの種類。
	AggregateType string `json:"aggregate_type"`
	// EventType はイベントの種類。
	EventType string `json:"event_type"`
	// Data はイベント固有のデータ（JSON文字列）。
	Data string `json:"data"`
	// Version はAggregate内でのイベントのバージョン。
	Version int64 `json:"version"`
	// CreatedAt はイベントが作成された日時（RFC3339形式、秒未満を含む）。
	CreatedAt string `json:"created_at"`
}

// toEventResponse はイベントの各値をJSONレスポンスに変換する。
func toEventResponse(id, aggregateID, aggregateType, eventType, data string, version int64, createdAt time.Time) eventResponse {
	return eventResponse{
		ID:            id,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          data,
		Version:       version,
		CreatedAt:     createdAt.UTC().Format(time.RFC3339Nano),
	}
}

// toEventResponses はDB行のスライスをJSONレスポンスのスライスに変換する。
func toEventResponses(events []eventstoredb.Event) []eventResponse {
	responses := make([]eventResponse, 0, len(events))
	for _, e := range events {
		responses = append(responses, toEventResponse(e.ID, e.AggregateID, e.AggregateType, e.EventType, e.Data, e.Version, e.CreatedAt))
	}
	return responses
}

// parseSince はsinceクエリパラメータを解析する。RFC3339形式のみ受け付ける。
func parseSince(c *gin.Context) (string, bool) {
	since, err := time.Parse(time.RFC3339Nano, c.Query("since"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sinceはRFC3339形式で指定してください"})
		return "", false
	}
	return eventstoredb.FormatTime(since), true
}

// handleAppendEvent はイベントの追記を処理するハンドラを返す。
// 同じAggregateIDの最新バージョンに1を加えたバージョンを採番する。
func (s *Server) handleAppendEvent() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req appendEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}
		if !json.Valid(req.Data) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dataはJSONで指定してください"})
			return
		}

		ctx := c.Request.Context()
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "イベントの追記に失敗しました"})
			log.Printf("トランザクション開始エラー: %v", err)
			return
		}
		defer tx.Rollback() //nolint:errcheck

		qtx := s.queries.WithTx(tx)
		latest, err := qtx.GetLatestVersion(ctx, req.AggregateID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "イベントの追記に失敗しました"})
			log.Printf("最新バージョン取得エラー: %v", err)
			return
		}

		e, err := qtx.AppendEvent(ctx, eventstoredb.AppendEventParams{
			ID:            uuid.New().String(),
			AggregateID:   req.AggregateID,
			AggregateType: req.AggregateType,
			EventType:     req.EventType,
			Data:          string(req.Data),
			Version:       latest + 1,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "イベントの追記に失敗しました"})
			log.Printf("イベント追記エラー: %v", err)
			return
		}

		if err := tx.Commit(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "イベントの追記に失敗しました"})
			log.Printf("トランザクションコミットエラー: %v", err)
			return
		}

		c.JSON(http.StatusCreated, toEventResponse(e.ID, e.AggregateID, e.AggregateType, e.EventType, e.Data, e.Version, e.CreatedAt))
	}
}

// handleGetAllEvents は全イベントを作成日時の昇順で返すハンドラを返す。
func (s *Server) handleGetAllEvents() gin.HandlerFunc {
	return func(c *gin.Context) {
		events, err := s.queries.ListAllEvents(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "イベントの取得に失敗しました"})
			log.Printf("全イベント取得エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, toEventResponses(events))
	}
}

// handleGetEventsByAggregateID はAggregateIDによるイベント取得を処理するハンドラを返す。
func (s *Server) handleGetEventsByAggregateID() gin.HandlerFunc {
	return func(c *gin.Context) {
		events, err := s.queries.ListEventsByAggregateID(c.Request.Context(), c.Param("aggregate_id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "イベントの取得に失敗しました"})
			log.Printf("AggregateIDによるイベント取得エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, toEventResponses(events))
	}
}

// handleGetEventsByType はイベントタイプによるイベント取得を処理するハンドラを返す。
// sinceが指定された場合はその日時より後のイベントのみ返す。
func (s *Server) handleGetEventsByType() gin.HandlerFunc {
	return func(c *gin.Context) {
		eventType := c.Param("event_type")

		var (
			events []eventstoredb.Event
			err    error
		)
		if c.Query("since") != "" {
			since, ok := parseSince(c)
			if !ok {
				return
			}
			events, err = s.queries.ListEventsByTypeSince(c.Request.Context(), eventstoredb.ListEventsByTypeSinceParams{
				EventType: eventType,
				Since:     since,
			})
		} else {
			events, err = s.queries.ListEventsByType(c.Request.Context(), eventType)
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "イベントの取得に失敗しました"})
			log.Printf("イベントタイプによるイベント取得エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, toEventResponses(events))
	}
}

// handleGetEventsSince は日時指定によるイベント取得を処理するハンドラを返す。
func (s *Server) handleGetEventsSince() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Query("since") == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sinceクエリパラメータが必要です"})
			return
		}
		since, ok := parseSince(c)
		if !ok {
			return
		}

		events, err := s.queries.ListEventsSince(c.Request.Context(), since)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "イベントの取得に失敗しました"})
			log.Printf("日時指定によるイベント取得エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, toEventResponses(events))
	}
}

// handleGetLatestVersion はAggregateIDの最新バージョン取得を処理するハンドラを返す。
// イベントが無い場合は0を返す。
func (s *Server) handleGetLatestVersion() gin.HandlerFunc {
	return func(c *gin.Context) {
		aggregateID := c.Param("aggregate_id")
		version, err := s.queries.GetLatestVersion(c.Request.Context(), aggregateID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "最新バージョンの取得に失敗しました"})
			log.Printf("最新バージョン取得エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"aggregate_id": aggregateID, "latest_version": version})
	}
}
