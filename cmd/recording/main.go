// 録画サービスのエントリポイント。
// 通話の録画ファイルを受け付け、録画完了イベントをEvent Storeに発行する。
// 録画完了イベントを購読し、参加者へ録画のダウンロードリンクを通知する。
package main

import (
	"log"
	"os"

	"github.com/nao1215/webconf/internal/recording"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8087"
	}

	server, err := recording.NewServer(recording.LoadConfig(port))
	if err != nil {
		log.Fatalf("録画サーバーの初期化に失敗: %v", err)
	}

	log.Printf("録画サービスを起動します: :%s", port)
	if err := server.Run(); err != nil {
		log.Fatalf("録画サービスの起動に失敗: %v", err)
	}
}
