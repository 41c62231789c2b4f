package model

import (
	"strconv"
	"strings"
	"time"
)

type ContentKind string

const (
	ContentText  ContentKind = "text"
	ContentImage ContentKind = "image"
)

// Content is the body of a message: either text or a reference to an image.
// The zero value carries nothing and fails Validate.
type Content struct {
	kind  ContentKind
	value string
}

func TextContent(text string) Content {
	return Content{kind: ContentText, value: text}
}

func ImageContent(ref string) Content {
	return Content{kind: ContentImage, value: ref}
}

func (c Content) Kind() ContentKind { return c.kind }
func (c Content) Value() string     { return c.value }

func (c Content) Validate() error {
	if c.kind == "" || strings.TrimSpace(c.value) == "" {
		return Validation("message must carry text or an image")
	}
	return nil
}

// Message is one direct message between two users.
type Message struct {
	ID          string    `json:"id" bson:"_id"`
	SenderID    string    `json:"senderId" bson:"sender_id"`
	RecipientID string    `json:"recipientId" bson:"recipient_id"`
	Text        string    `json:"text,omitempty" bson:"text,omitempty"`
	Image       string    `json:"image,omitempty" bson:"image,omitempty"`
	Seen        bool      `json:"seen" bson:"seen"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
}

// NewMessage builds a record from validated content. id comes from the
// caller's id generator so every backend orders ties the same way.
func NewMessage(id int64, senderID, recipientID string, content Content, now time.Time) (*Message, error) {
	if senderID == "" || recipientID == "" {
		return nil, Validation("sender and recipient are required")
	}
	if err := content.Validate(); err != nil {
		return nil, err
	}
	m := &Message{
		ID:          strconv.FormatInt(id, 10),
		SenderID:    senderID,
		RecipientID: recipientID,
		CreatedAt:   now.UTC(),
	}
	switch content.Kind() {
	case ContentText:
		m.Text = content.Value()
	case ContentImage:
		m.Image = content.Value()
	}
	return m, nil
}

// Content recovers the tagged variant from the flat record.
func (m *Message) Content() Content {
	switch {
	case m.Text != "" && m.Image == "":
		return TextContent(m.Text)
	case m.Image != "" && m.Text == "":
		return ImageContent(m.Image)
	}
	return Content{}
}

// Validate checks a record before it is persisted.
func (m *Message) Validate() error {
	if m.ID == "" {
		return Validation("message id is required")
	}
	if m.SenderID == "" || m.RecipientID == "" {
		return Validation("sender and recipient are required")
	}
	return m.Content().Validate()
}

// Before reports whether m sorts ahead of o in a conversation.
func (m *Message) Before(o *Message) bool {
	if !m.CreatedAt.Equal(o.CreatedAt) {
		return m.CreatedAt.Before(o.CreatedAt)
	}
	a, errA := strconv.ParseInt(m.ID, 10, 64)
	b, errB := strconv.ParseInt(o.ID, 10, 64)
	if errA != nil || errB != nil {
		return m.ID < o.ID
	}
	return a < b
}

// ConversationID is the stable key of the pair, independent of direction.
func ConversationID(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return "dm:" + a + ":" + b
}
