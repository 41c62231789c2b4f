package model

type EventType string

const (
	EventOnlineUsers  EventType = "onlineUsers"
	EventNewMessage   EventType = "newMessage"
	EventTyping       EventType = "typing"
	EventMessagesSeen EventType = "messagesSeen"
)

// Event is the envelope of every frame the server writes to a realtime channel.
type Event struct {
	Type EventType `json:"event"`
	Data any       `json:"data"`
}

type TypingData struct {
	From string `json:"from"`
}

type SeenData struct {
	By    string `json:"by"`
	Count int64  `json:"count"`
}

// Inbound is a frame sent by a client over its realtime channel.
type Inbound struct {
	Type EventType `json:"type"`
	To   string    `json:"to"`
}
