package entity

import "time"

type ChatMessage struct {
	Id           int64
	Message      string
	Timestamp    time.Time
	ResponseToId *int64
}

// IsBotReply reports whether the message answers an earlier user message.
func (m ChatMessage) IsBotReply() bool {
	return m.ResponseToId != nil
}
