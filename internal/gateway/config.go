package gateway

import "os"

// Config はGatewayサービスの設定。環境変数から読み込む。
type Config struct {
	// Port はサーバーのリッスンポート。
	Port string
	// JWTSecret はJWT署名用の秘密鍵。
	JWTSecret string
	// DBPath はSQLiteデータベースのDSN。
	DBPath string
	// FrontendURL はCORSで許可するフロントエンドのオリジン。
	FrontendURL string
	// RecordingURL は録画サービスのURL。
	RecordingURL string
	// NotificationURL は通知サービスのURL。
	NotificationURL string
	// EventStoreURL はEvent StoreのURL。
	EventStoreURL string
}

// LoadConfig は環境変数から設定を読み込む。
func LoadConfig(port string) Config {
	return Config{
		Port:            port,
		JWTSecret:       getEnvOr("JWT_SECRET", "dev-secret-key"),
		DBPath:          getEnvOr("DB_PATH", "/data/gateway.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"),
		FrontendURL:     getEnvOr("FRONTEND_URL", "http://localhost:3000"),
		RecordingURL:    getEnvOr("RECORDING_URL", "http://localhost:8087"),
		NotificationURL: getEnvOr("NOTIFICATION_URL", "http://localhost:8086"),
		EventStoreURL:   getEnvOr("EVENTSTORE_URL", "http://localhost:8084"),
	}
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
