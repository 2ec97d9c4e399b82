package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Recovery はハンドラのパニックを500エラーに変換するGinミドルウェアを返す。
// ログとレスポンスに同じインシデントIDを付け、問い合わせからログを辿れるようにする。
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			incidentID := uuid.NewString()
			log.Printf("[PANIC] incident=%s %s %s user=%s: %v",
				incidentID, c.Request.Method, c.Request.URL.Path, GetUserID(c), r)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":       "内部サーバーエラーが発生しました",
				"incident_id": incidentID,
			})
		}()
		c.Next()
	}
}
