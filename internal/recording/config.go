package recording

import (
	"log"
	"os"
	"time"
)

// Config は録画サービスの設定。環境変数から読み込む。
type Config struct {
	// Port はサーバーのリッスンポート。
	Port string
	// JWTSecret はAPI認証用JWTの署名鍵。
	JWTSecret string
	// LinkSecret は録画リンクの署名鍵。未設定ならJWTSecretを使う。
	LinkSecret string
	// PublicURL は録画リンクに埋め込む録画サービスの公開URL。
	PublicURL string
	// PortalDomain はアバター画像URLの前に付けるポータルのURL。
	PortalDomain string
	// RecordingsDir は録画ファイルの保存先ディレクトリ。
	RecordingsDir string
	// LinkTTL は録画リンクの有効期間。
	LinkTTL time.Duration
	// ConsumerInterval はEvent Storeのポーリング間隔。
	ConsumerInterval time.Duration
	// EventStoreURL はEvent StoreのベースURL。
	EventStoreURL string
	// NotificationURL は通知サービスのベースURL。
	NotificationURL string
	// DirectoryURL はスペースやユーザーのプロフィールを返すディレクトリサービスのURL。空なら使わない。
	DirectoryURL string
}

// LoadConfig は環境変数から設定を読み込む。未設定の項目には開発用の既定値を使う。
func LoadConfig(port string) Config {
	jwtSecret := getEnvOr("JWT_SECRET", "dev-secret-key")
	return Config{
		Port:             port,
		JWTSecret:        jwtSecret,
		LinkSecret:       getEnvOr("RECORDING_LINK_SECRET", jwtSecret),
		PublicURL:        getEnvOr("PUBLIC_URL", "http://localhost:"+port),
		PortalDomain:     getEnvOr("PORTAL_DOMAIN", "http://localhost:3000"),
		RecordingsDir:    getEnvOr("RECORDINGS_DIR", "/data/recordings"),
		LinkTTL:          getDurationOr("RECORDING_LINK_TTL", DefaultLinkTTL),
		ConsumerInterval: getDurationOr("CONSUMER_INTERVAL", 2*time.Second),
		EventStoreURL:    getEnvOr("EVENTSTORE_URL", "http://localhost:8084"),
		NotificationURL:  getEnvOr("NOTIFICATION_URL", "http://localhost:8086"),
		DirectoryURL:     os.Getenv("DIRECTORY_URL"),
	}
}

// getEnvOr は環境変数の値を返す。未設定の場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// getDurationOr は環境変数をtime.Durationとして読む。不正な値の場合はデフォルト値を返す。
func getDurationOr(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("環境変数 %s の値が不正なため既定値 %s を使います: %q", key, defaultValue, v)
		return defaultValue
	}
	return d
}
