// Package conversation owns the client-side chat state: the signed-in user,
// the ordered thread list, the selected thread and its messages. All reads
// and writes against the backend go through the Manager.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"ai-chatbot-client/internal/dto"
	"ai-chatbot-client/internal/entity"
	"ai-chatbot-client/internal/gateway"
	"ai-chatbot-client/internal/identity"
	"ai-chatbot-client/internal/pkg/logger"
	"ai-chatbot-client/pkg/events"

	"github.com/go-playground/validator/v10"
)

const module = "Conversation"

type Manager struct {
	gateway  gateway.IBackendGateway
	identity identity.Store
	events   events.Publisher
	logger   logger.ILogger
	validate *validator.Validate

	// mu is never held across a gateway call.
	mu       sync.Mutex
	user     *entity.User
	threads  []entity.ChatThread
	selected *entity.ChatThread
	messages []entity.ChatMessage
	draft    string
	sending  bool

	// Fetch generations; a response whose generation is no longer current is dropped.
	threadsSeq  uint64
	messagesSeq uint64
}

func NewManager(gw gateway.IBackendGateway, store identity.Store, publisher events.Publisher, log logger.ILogger) *Manager {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &Manager{
		gateway:  gw,
		identity: store,
		events:   publisher,
		logger:   log,
		validate: validator.New(),
	}
}

// Bootstrap restores the identity from the store, falling back to asking the
// backend who the caller is. Having no session is not an error: it returns a
// nil user and leaves the manager unauthenticated.
func (m *Manager) Bootstrap(ctx context.Context) (*entity.User, error) {
	user, err := m.identity.Load(ctx)
	if err != nil {
		if !errors.Is(err, identity.ErrIdentityNotFound) {
			m.logger.Warn(module, "Stored identity unreadable", map[string]interface{}{"error": err.Error()})
		}

		user, err = m.gateway.ResolveIdentity(ctx, "")
		if err != nil {
			m.logger.Info(module, "No session to resume", map[string]interface{}{"reason": err.Error()})
			return nil, nil
		}
		if err := m.identity.Save(ctx, user); err != nil {
			m.logger.Warn(module, "Failed to persist resolved identity", map[string]interface{}{"error": err.Error()})
		}
	}

	m.setUser(user)
	m.logger.Info(module, "Session resumed", map[string]interface{}{"user_id": user.Id})
	m.notifyChanged(ctx)

	// a failed refresh is reported; the session itself is still valid
	_ = m.LoadThreads(ctx)

	return m.User(), nil
}

func (m *Manager) Authenticate(ctx context.Context, name string) (*entity.User, error) {
	req := dto.AuthRequest{Name: strings.TrimSpace(name)}
	if err := m.validate.Struct(req); err != nil {
		m.publishFailure(ctx, OpAuthenticate, "Please enter a valid name.", err)
		return nil, fmt.Errorf("%w: name: %v", ErrValidation, err)
	}

	user, err := m.gateway.Authenticate(ctx, req.Name)
	if err != nil {
		m.reportFailure(ctx, OpAuthenticate, err)
		return nil, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
	}

	if err := m.identity.Save(ctx, user); err != nil {
		// the session works, it just won't survive a restart
		m.logger.Warn(module, "Failed to persist identity", map[string]interface{}{"error": err.Error()})
	}

	m.setUser(user)
	m.logger.Info(module, "Authenticated", map[string]interface{}{"user_id": user.Id, "name": user.Name})
	m.notifyChanged(ctx)

	_ = m.LoadThreads(ctx)

	return m.User(), nil
}

// Logout forgets the identity and every piece of conversation state.
func (m *Manager) Logout(ctx context.Context) error {
	clearErr := m.identity.Clear(ctx)

	m.mu.Lock()
	m.user = nil
	m.resetLocked()
	m.mu.Unlock()

	m.notifyChanged(ctx)

	if clearErr != nil {
		m.reportFailure(ctx, OpLogout, clearErr)
		return fmt.Errorf("clear identity: %w", clearErr)
	}
	m.logger.Info(module, "Logged out", nil)
	return nil
}

// LoadThreads replaces the thread list wholesale. On failure the previous list stays.
func (m *Manager) LoadThreads(ctx context.Context) error {
	m.mu.Lock()
	user := m.user
	if user == nil {
		m.mu.Unlock()
		return ErrNotAuthenticated
	}
	m.threadsSeq++
	seq := m.threadsSeq
	m.mu.Unlock()

	threads, err := m.gateway.ListThreads(ctx, user.Id)
	if err != nil {
		m.reportFailure(ctx, OpLoadThreads, err)
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	m.mu.Lock()
	if seq != m.threadsSeq || m.user != user {
		m.mu.Unlock()
		return nil
	}
	m.threads = threads
	m.mu.Unlock()

	m.notifyChanged(ctx)
	return nil
}

// SelectThread selects thread and fetches its messages.
func (m *Manager) SelectThread(ctx context.Context, thread entity.ChatThread) error {
	m.mu.Lock()
	if m.user == nil {
		m.mu.Unlock()
		return ErrNotAuthenticated
	}
	if m.selected == nil || m.selected.Id != thread.Id {
		// never show another thread's messages under this selection
		m.messages = nil
	}
	selected := thread
	m.selected = &selected
	m.mu.Unlock()

	m.notifyChanged(ctx)
	return m.LoadMessages(ctx, thread.Id)
}

// LoadMessages replaces the message list of the selected thread. On failure
// the previous list stays. A response for a thread that is no longer selected,
// or that was superseded by a newer fetch, is dropped.
func (m *Manager) LoadMessages(ctx context.Context, threadId int64) error {
	m.mu.Lock()
	user := m.user
	if user == nil {
		m.mu.Unlock()
		return ErrNotAuthenticated
	}
	m.messagesSeq++
	seq := m.messagesSeq
	m.mu.Unlock()

	messages, err := m.gateway.ListMessages(ctx, user.Id, threadId)
	if err != nil {
		m.reportFailure(ctx, OpLoadMessages, err)
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	m.mu.Lock()
	if seq != m.messagesSeq || m.user != user || m.selected == nil || m.selected.Id != threadId {
		m.mu.Unlock()
		m.logger.Debug(module, "Dropped stale message list", map[string]interface{}{"thread_id": threadId})
		return nil
	}
	m.messages = messages
	m.mu.Unlock()

	m.notifyChanged(ctx)
	return nil
}

// StartNewThread clears the selection so the next send creates a thread.
func (m *Manager) StartNewThread(ctx context.Context) {
	m.mu.Lock()
	m.selected = nil
	m.messages = nil
	m.messagesSeq++
	m.mu.Unlock()

	m.notifyChanged(ctx)
}

// SendMessage posts text to the selected thread, or creates a new thread when
// none is selected. Whitespace-only text is rejected without any effect. The
// draft keeps the text until a send succeeds.
func (m *Manager) SendMessage(ctx context.Context, text string) error {
	if err := m.validate.Struct(dto.SendMessageRequest{Message: strings.TrimSpace(text)}); err != nil {
		return fmt.Errorf("%w: empty message", ErrValidation)
	}

	m.mu.Lock()
	user := m.user
	if user == nil {
		m.mu.Unlock()
		return ErrNotAuthenticated
	}
	if m.sending {
		m.mu.Unlock()
		return ErrSendInFlight
	}
	m.sending = true
	m.draft = text
	var selected *entity.ChatThread
	if m.selected != nil {
		s := *m.selected
		selected = &s
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.sending = false
		m.mu.Unlock()
		m.notifyChanged(ctx)
	}()
	m.notifyChanged(ctx)

	var threadId *int64
	if selected != nil {
		id := selected.Id
		threadId = &id
	}

	result, err := m.gateway.SendMessage(ctx, user.Id, threadId, text)
	if err != nil {
		m.reportFailure(ctx, OpSendMessage, err)
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	switch r := result.(type) {
	case gateway.ReplyResult:
		if selected == nil {
			break
		}
		m.appendReply(user, selected.Id, r)
		return nil

	case gateway.NewThreadResult:
		if selected != nil {
			break
		}
		m.reconcileNewThread(ctx, user, r)
		return nil
	}

	err = fmt.Errorf("%w: got %T", ErrProtocolViolation, result)
	m.reportFailure(ctx, OpSendMessage, err)
	return fmt.Errorf("%w: %w", ErrSendFailed, err)
}

func (m *Manager) appendReply(user *entity.User, threadId int64, r gateway.ReplyResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.draft = ""
	if m.user != user || m.selected == nil || m.selected.Id != threadId {
		return
	}
	messages := make([]entity.ChatMessage, 0, len(m.messages)+2)
	messages = append(messages, m.messages...)
	m.messages = append(messages, r.UserMessage, r.ChatbotResponse)
}

// reconcileNewThread takes the authoritative order from a full list refresh,
// selects the created thread and fetches its messages. The two messages in
// the send response are shown until that fetch succeeds.
func (m *Manager) reconcileNewThread(ctx context.Context, user *entity.User, r gateway.NewThreadResult) {
	m.mu.Lock()
	m.draft = ""
	m.mu.Unlock()

	if err := m.LoadThreads(ctx); err != nil {
		m.logger.Warn(module, "Thread list not refreshed after creating thread", map[string]interface{}{
			"thread_id": r.Thread.Id,
			"error":     err.Error(),
		})
	}

	m.mu.Lock()
	if m.user != user {
		m.mu.Unlock()
		return
	}
	selected := r.Thread
	found := false
	for _, t := range m.threads {
		if t.Id == r.Thread.Id {
			selected = t
			found = true
			break
		}
	}
	if !found {
		m.threads = append(m.threads, r.Thread)
	}
	m.selected = &selected
	m.messages = []entity.ChatMessage{r.UserMessage, r.ChatbotResponse}
	m.mu.Unlock()

	m.logger.Info(module, "Thread created", map[string]interface{}{"thread_id": selected.Id, "title": selected.Title})
	m.notifyChanged(ctx)

	_ = m.LoadMessages(ctx, selected.Id)
}

// Retry resends the draft left behind by a failed send.
func (m *Manager) Retry(ctx context.Context) error {
	return m.SendMessage(ctx, m.Draft())
}

func (m *Manager) setUser(user *entity.User) {
	u := *user
	m.mu.Lock()
	m.user = &u
	m.resetLocked()
	m.mu.Unlock()
}

// resetLocked drops all conversation state and invalidates in-flight fetches.
func (m *Manager) resetLocked() {
	m.threads = nil
	m.selected = nil
	m.messages = nil
	m.draft = ""
	m.threadsSeq++
	m.messagesSeq++
}

// Read accessors. All return copies.

func (m *Manager) User() *entity.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

func (m *Manager) Threads() []entity.ChatThread {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entity.ChatThread(nil), m.threads...)
}

func (m *Manager) Selected() *entity.ChatThread {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.selected == nil {
		return nil
	}
	s := *m.selected
	return &s
}

func (m *Manager) Messages() []entity.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entity.ChatMessage(nil), m.messages...)
}

func (m *Manager) Draft() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.draft
}

func (m *Manager) SetDraft(text string) {
	m.mu.Lock()
	m.draft = text
	m.mu.Unlock()
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

func (m *Manager) stateLocked() State {
	switch {
	case m.user == nil:
		return StateUnauthenticated
	case m.selected == nil:
		return StateAuthenticatedNoSelection
	default:
		return StateAuthenticatedThreadSelected
	}
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		State:    m.stateLocked(),
		Threads:  append([]entity.ChatThread(nil), m.threads...),
		Messages: append([]entity.ChatMessage(nil), m.messages...),
		Draft:    m.draft,
		Sending:  m.sending,
	}
	if m.user != nil {
		u := *m.user
		snap.User = &u
	}
	if m.selected != nil {
		s := *m.selected
		snap.Selected = &s
	}
	return snap
}

func (m *Manager) reportFailure(ctx context.Context, op string, err error) {
	m.publishFailure(ctx, op, FailureMessage(op), err)
}

func (m *Manager) publishFailure(ctx context.Context, op, message string, err error) {
	m.logger.Warn(module, "Operation failed", map[string]interface{}{
		"operation": op,
		"error":     err.Error(),
	})
	event := events.NewEvent(events.TypeConversationFailure, map[string]interface{}{
		"operation": op,
		"message":   message,
	})
	if pubErr := m.events.Publish(ctx, event); pubErr != nil {
		m.logger.Error(module, "Failed to publish failure event", map[string]interface{}{"error": pubErr.Error()})
	}
}

func (m *Manager) notifyChanged(ctx context.Context) {
	snap := m.Snapshot()
	data := map[string]interface{}{
		"state":         snap.State.String(),
		"thread_count":  len(snap.Threads),
		"message_count": len(snap.Messages),
		"sending":       snap.Sending,
	}
	if snap.Selected != nil {
		data["selected_thread_id"] = snap.Selected.Id
	}
	if err := m.events.Publish(ctx, events.NewEvent(events.TypeConversationChanged, data)); err != nil {
		m.logger.Error(module, "Failed to publish change event", map[string]interface{}{"error": err.Error()})
	}
}
