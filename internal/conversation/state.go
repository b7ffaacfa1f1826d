package conversation

import "ai-chatbot-client/internal/entity"

type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticatedNoSelection
	StateAuthenticatedThreadSelected
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticatedNoSelection:
		return "composing_new_thread"
	case StateAuthenticatedThreadSelected:
		return "thread_selected"
	default:
		return "unknown"
	}
}

// Snapshot is a read-only copy of the manager state for rendering.
type Snapshot struct {
	State    State
	User     *entity.User
	Threads  []entity.ChatThread
	Selected *entity.ChatThread
	Messages []entity.ChatMessage
	Draft    string
	Sending  bool
}
