package notification

import "os"

// Config は通知サービスの設定。環境変数から読み込む。
type Config struct {
	// Port はサーバーのリッスンポート。
	Port string
	// JWTSecret はAPI認証用JWTの署名鍵。
	JWTSecret string
	// DBPath はSQLiteデータベースのDSN。
	DBPath string
	// EventStoreURL はEvent StoreのベースURL。
	EventStoreURL string
	// FrontendURL はCORSで許可するフロントエンドのオリジン。
	FrontendURL string
}

// LoadConfig は環境変数から設定を読み込む。
func LoadConfig(port string) Config {
	return Config{
		Port:          port,
		JWTSecret:     getEnvOr("JWT_SECRET", "dev-secret-key"),
		DBPath:        getEnvOr("DB_PATH", "/data/notification.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"),
		EventStoreURL: getEnvOr("EVENTSTORE_URL", "http://localhost:8084"),
		FrontendURL:   getEnvOr("FRONTEND_URL", "http://localhost:3000"),
	}
}

// getEnvOr は環境変数の値を返す。未設定の場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
