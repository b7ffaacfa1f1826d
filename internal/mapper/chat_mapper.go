package mapper

import (
	"ai-chatbot-client/internal/dto"
	"ai-chatbot-client/internal/entity"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

func (m *ChatMapper) UserToEntity(u *dto.UserResponse) *entity.User {
	if u == nil {
		return nil
	}
	return &entity.User{
		Id:   u.Id,
		Name: u.Name,
	}
}

// Thread Mappers

func (m *ChatMapper) ThreadToEntity(t *dto.ThreadResponse) *entity.ChatThread {
	if t == nil {
		return nil
	}
	return &entity.ChatThread{
		Id:        t.Id,
		Title:     t.Title,
		CreatedAt: t.CreatedAt.Time,
	}
}

func (m *ChatMapper) ThreadsToEntities(threads []dto.ThreadResponse) []entity.ChatThread {
	result := make([]entity.ChatThread, 0, len(threads))
	for i := range threads {
		result = append(result, *m.ThreadToEntity(&threads[i]))
	}
	return result
}

// Message Mappers

func (m *ChatMapper) MessageToEntity(msg *dto.MessageResponse) *entity.ChatMessage {
	if msg == nil {
		return nil
	}

	var responseToId *int64
	if msg.ResponseToId != nil {
		id := *msg.ResponseToId
		responseToId = &id
	}

	return &entity.ChatMessage{
		Id:           msg.Id,
		Message:      msg.Message,
		Timestamp:    msg.Timestamp.Time,
		ResponseToId: responseToId,
	}
}

func (m *ChatMapper) MessagesToEntities(messages []dto.MessageResponse) []entity.ChatMessage {
	result := make([]entity.ChatMessage, 0, len(messages))
	for i := range messages {
		result = append(result, *m.MessageToEntity(&messages[i]))
	}
	return result
}
