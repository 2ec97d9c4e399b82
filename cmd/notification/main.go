// 通知サービスのエントリポイント。
// 録画サービスなどからの通知要求を受け取り、ユーザーごとの通知を保存する。
package main

import (
	"log"
	"os"

	"github.com/nao1215/webconf/internal/notification"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8086"
	}

	server, err := notification.NewServer(notification.LoadConfig(port))
	if err != nil {
		log.Fatalf("通知サーバーの初期化に失敗: %v", err)
	}

	log.Printf("通知サービスを起動します: :%s", port)
	if err := server.Run(); err != nil {
		log.Fatalf("通知サービスの起動に失敗: %v", err)
	}
}
