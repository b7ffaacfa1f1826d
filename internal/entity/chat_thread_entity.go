package entity

import "time"

type ChatThread struct {
	Id        int64
	Title     string
	CreatedAt time.Time
}
