package notificationdb

import "time"

type Notification struct {
	ID         string
	UserID     string
	PluginID   string
	Title      string
	Message    string
	Attributes string
	IsRead     int64
	CreatedAt  time.Time
}
