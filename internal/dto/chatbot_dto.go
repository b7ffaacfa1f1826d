package dto

import (
	"bytes"
	"encoding/json"
)

type AuthRequest struct {
	Name string `json:"name" validate:"required,max=30"`
}

type UserResponse struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

// UnmarshalJSON accepts the user id as a JSON string or number; the backend
// treats it as an integer key while the client keeps it opaque.
func (u *UserResponse) UnmarshalJSON(data []byte) error {
	var raw struct {
		Id   json.RawMessage `json:"id"`
		Name string          `json:"name"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id := bytes.TrimSpace(raw.Id)
	if len(id) > 0 && id[0] == '"' {
		if err := json.Unmarshal(id, &u.Id); err != nil {
			return err
		}
	} else if !bytes.Equal(id, []byte("null")) {
		u.Id = string(id)
	}
	u.Name = raw.Name
	return nil
}

type ThreadResponse struct {
	Id        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt Timestamp `json:"created_at"`
}

type MessageResponse struct {
	Id           int64     `json:"id"`
	Message      string    `json:"message"`
	Timestamp    Timestamp `json:"timestamp"`
	ResponseToId *int64    `json:"response_to_id,omitempty"`
}

type SendMessageRequest struct {
	Message  string `json:"message" validate:"required"`
	ThreadId *int64 `json:"thread_id"` // null starts a new thread
}

// SendMessageResponse is the raw wire shape. Thread is only present when the
// send created a new thread.
type SendMessageResponse struct {
	Thread          *ThreadResponse  `json:"thread,omitempty"`
	UserMessage     *MessageResponse `json:"user_message"`
	ChatbotResponse *MessageResponse `json:"chatbot_response"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
