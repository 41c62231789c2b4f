package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Aashay2112/chat-app/pkg/model"
)

// Memory keeps everything in process. It backs tests and local development.
type Memory struct {
	mu       sync.RWMutex
	messages map[string]*model.Message
	users    map[string]*model.User
	emails   map[string]string // normalised email -> user id
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		messages: make(map[string]*model.Message),
		users:    make(map[string]*model.User),
		emails:   make(map[string]string),
	}
}

func (m *Memory) Create(_ context.Context, msg *model.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.messages[msg.ID]; ok {
		return model.Conflict("message %s already exists", msg.ID)
	}
	cp := *msg
	m.messages[msg.ID] = &cp
	return nil
}

func (m *Memory) ListConversation(_ context.Context, a, b string) ([]model.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Message, 0)
	for _, msg := range m.messages {
		if (msg.SenderID == a && msg.RecipientID == b) || (msg.SenderID == b && msg.RecipientID == a) {
			out = append(out, *msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(&out[j]) })
	return out, nil
}

func (m *Memory) MarkSeen(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return model.NotFound("message %s not found", id)
	}
	msg.Seen = true
	return nil
}

func (m *Memory) MarkConversationSeen(_ context.Context, from, to string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, msg := range m.messages {
		if msg.SenderID == from && msg.RecipientID == to && !msg.Seen {
			msg.Seen = true
			n++
		}
	}
	return n, nil
}

func (m *Memory) UnseenCounts(_ context.Context, recipient string) (map[string]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int64)
	for _, msg := range m.messages {
		if msg.RecipientID == recipient && !msg.Seen {
			out[msg.SenderID]++
		}
	}
	return out, nil
}

func (m *Memory) LastMessageTimes(_ context.Context, userID string) (map[string]time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]time.Time)
	for _, msg := range m.messages {
		var peer string
		switch userID {
		case msg.SenderID:
			peer = msg.RecipientID
		case msg.RecipientID:
			peer = msg.SenderID
		default:
			continue
		}
		if at, ok := out[peer]; !ok || msg.CreatedAt.After(at) {
			out[peer] = msg.CreatedAt
		}
	}
	return out, nil
}

func (m *Memory) CreateUser(_ context.Context, u *model.User) error {
	email := model.NormalizeEmail(u.Email)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.emails[email]; taken {
		return model.Conflict("account already exists")
	}
	if _, taken := m.users[u.ID]; taken {
		return model.Conflict("user %s already exists", u.ID)
	}
	cp := *u
	cp.Email = email
	m.users[u.ID] = &cp
	m.emails[email] = u.ID
	return nil
}

func (m *Memory) UserByID(_ context.Context, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, model.NotFound("user not found")
	}
	cp := *u
	return &cp, nil
}

func (m *Memory) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.RLock()
	id, ok := m.emails[model.NormalizeEmail(email)]
	m.mu.RUnlock()
	if !ok {
		return nil, model.NotFound("user not found")
	}
	return m.UserByID(ctx, id)
}

func (m *Memory) UpdateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.users[u.ID]
	if !ok {
		return model.NotFound("user not found")
	}
	// email and password are not editable through profile updates
	cur.FullName = u.FullName
	cur.Bio = u.Bio
	cur.ProfilePic = u.ProfilePic
	return nil
}

func (m *Memory) ListUsersExcept(_ context.Context, id string) ([]model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		if u.ID != id {
			out = append(out, *u)
		}
	}
	SortUsers(out)
	return out, nil
}

func (m *Memory) Close(context.Context) error { return nil }

// SortUsers orders users by account creation, then id.
func SortUsers(users []model.User) {
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].ID < users[j].ID
	})
}
