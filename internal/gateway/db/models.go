package gatewaydb

import "time"

type User struct {
	ID          string
	Email       string
	DisplayName string
	AvatarUrl   string
	CreatedAt   time.Time
	LastLoginAt time.Time
}

type Space struct {
	ID          string
	DisplayName string
	AvatarUrl   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
