package conversation

import "errors"

var (
	ErrValidation           = errors.New("validation failed")
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrFetchFailed          = errors.New("fetch failed")
	ErrSendFailed           = errors.New("send failed")
	ErrSendInFlight         = errors.New("a message is already being sent")
	ErrProtocolViolation    = errors.New("send response does not match the conversation branch")
)

// Operation names used in logs and failure events.
const (
	OpBootstrap    = "bootstrap"
	OpAuthenticate = "authenticate"
	OpLogout       = "logout"
	OpLoadThreads  = "load_threads"
	OpLoadMessages = "load_messages"
	OpSendMessage  = "send_message"
)

var failureMessages = map[string]string{
	OpBootstrap:    "Could not restore the saved session.",
	OpAuthenticate: "Authentication failed. Please try again.",
	OpLogout:       "Could not forget the saved identity.",
	OpLoadThreads:  "Could not load threads.",
	OpLoadMessages: "Could not load messages.",
	OpSendMessage:  "Message not sent. Use /retry to send it again.",
}

// FailureMessage is the short text shown to the user when op fails.
func FailureMessage(op string) string {
	if msg, ok := failureMessages[op]; ok {
		return msg
	}
	return "Something went wrong."
}
