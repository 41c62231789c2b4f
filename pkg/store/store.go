// Package store defines the durable state of the chat service and its
// in-memory backend. The mongo and scylla subpackages provide the others.
package store

import (
	"context"
	"time"

	"github.com/Aashay2112/chat-app/pkg/model"
)

// MessageStore persists direct messages.
type MessageStore interface {
	// Create persists a message built by model.NewMessage. Messages without
	// content are rejected with a validation error and nothing is written.
	Create(ctx context.Context, msg *model.Message) error
	// ListConversation returns every message between a and b in either
	// direction, oldest first, ties broken by id.
	ListConversation(ctx context.Context, a, b string) ([]model.Message, error)
	// MarkSeen is idempotent. Unknown ids are a not-found error.
	MarkSeen(ctx context.Context, id string) error
	// MarkConversationSeen marks every unseen message from -> to and returns
	// how many changed.
	MarkConversationSeen(ctx context.Context, from, to string) (int64, error)
	// UnseenCounts maps sender id to the number of unseen messages addressed
	// to recipient. Senders with nothing unseen are omitted.
	UnseenCounts(ctx context.Context, recipient string) (map[string]int64, error)
	// LastMessageTimes maps each peer userID has exchanged messages with to
	// the creation time of the newest message between them.
	LastMessageTimes(ctx context.Context, userID string) (map[string]time.Time, error)
}

// UserDirectory persists accounts.
type UserDirectory interface {
	// CreateUser fails with a conflict error when the email is taken.
	CreateUser(ctx context.Context, u *model.User) error
	UserByID(ctx context.Context, id string) (*model.User, error)
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUser(ctx context.Context, u *model.User) error
	// ListUsersExcept returns every other user, oldest account first.
	ListUsersExcept(ctx context.Context, id string) ([]model.User, error)
}

type Store interface {
	MessageStore
	UserDirectory
	Close(ctx context.Context) error
}
