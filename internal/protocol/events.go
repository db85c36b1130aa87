package protocol

import "time"

// EventType enumerates the events carried over a relay connection.
type EventType string

// Client-to-server events.
const (
	EventTypeJoin    EventType = "join"
	EventTypeMessage EventType = "message"
	EventTypeTyping  EventType = "typing"
)

// Server-to-client events.
const (
	EventTypeChatHistory  EventType = "chat_history"
	EventTypeNewMessage   EventType = "new_message"
	EventTypeTypingStatus EventType = "typing_status"
)

// JoinRequest asks the server to move the connection into a room.
type JoinRequest struct {
	Room     string `json:"room"`
	Username string `json:"username"`
}

// ChatMessage carries an outgoing chat line from a client.
type ChatMessage struct {
	Message  string `json:"message"`
	Room     string `json:"room"`
	Username string `json:"username"`
}

// Typing signals that a user started or stopped typing.
type Typing struct {
	Room     string `json:"room"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

// HistoryMessage is one persisted chat line replayed on join.
type HistoryMessage struct {
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Room      string    `json:"room"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatHistory is the batch of recent messages sent to a joining connection,
// ordered oldest first.
type ChatHistory struct {
	Room     string           `json:"room"`
	Messages []HistoryMessage `json:"messages"`
}

// NewMessage is a chat line fanned out to every member of a room,
// sender included.
type NewMessage struct {
	Message   string    `json:"message"`
	Username  string    `json:"username"`
	Room      string    `json:"room"`
	Timestamp time.Time `json:"timestamp"`
}

// TypingStatus is a typing notification fanned out to every member of a
// room except the sender.
type TypingStatus struct {
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}
