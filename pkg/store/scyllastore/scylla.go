// Package scyllastore keeps users and messages in ScyllaDB. Messages are
// partitioned by conversation and unread counts live in counter rows.
package scyllastore

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"github.com/Aashay2112/chat-app/pkg/db"
	"github.com/Aashay2112/chat-app/pkg/model"
	"github.com/Aashay2112/chat-app/pkg/store"
)

type Store struct {
	db  *db.Session
	log *zap.Logger
}

var _ store.Store = (*Store)(nil)

func New(session *db.Session, log *zap.Logger) *Store {
	return &Store{db: session, log: log.Named("scylla")}
}

func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, model.Validation("invalid message id %q", id)
	}
	return n, nil
}

func (s *Store) Create(ctx context.Context, msg *model.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	id, err := parseID(msg.ID)
	if err != nil {
		return err
	}
	convID := model.ConversationID(msg.SenderID, msg.RecipientID)

	batch := s.db.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(`INSERT INTO messages (conversation_id, created_at, id, sender_id, recipient_id, text, image, seen) VALUES (?, ?, ?, ?, ?, ?, ?, false)`,
		convID, msg.CreatedAt, id, msg.SenderID, msg.RecipientID, msg.Text, msg.Image)
	batch.Query(`INSERT INTO messages_by_id (id, conversation_id, created_at) VALUES (?, ?, ?)`,
		id, convID, msg.CreatedAt)
	// write time is the message time so a late insert of an older message
	// never moves last_updated backwards
	writeTime := msg.CreatedAt.UnixMicro()
	batch.Query(`INSERT INTO user_conversations (user_id, other_user_id, last_updated) VALUES (?, ?, ?) USING TIMESTAMP ?`,
		msg.SenderID, msg.RecipientID, msg.CreatedAt, writeTime)
	batch.Query(`INSERT INTO user_conversations (user_id, other_user_id, last_updated) VALUES (?, ?, ?) USING TIMESTAMP ?`,
		msg.RecipientID, msg.SenderID, msg.CreatedAt, writeTime)
	if err := s.db.ExecuteBatch(batch); err != nil {
		return model.Dependency(err, "scylla insert message")
	}

	// counters cannot join a logged batch
	err = s.db.Query(`UPDATE conversation_counters SET unread_count = unread_count + 1 WHERE user_id = ? AND other_user_id = ?`,
		msg.RecipientID, msg.SenderID).WithContext(ctx).Exec()
	if err != nil {
		s.log.Warn("increment unread count", zap.String("recipient", msg.RecipientID), zap.Error(err))
	}
	return nil
}

func (s *Store) ListConversation(ctx context.Context, a, b string) ([]model.Message, error) {
	iter := s.db.Query(`SELECT id, sender_id, recipient_id, text, image, seen, created_at FROM messages WHERE conversation_id = ?`,
		model.ConversationID(a, b)).WithContext(ctx).Iter()

	out := make([]model.Message, 0)
	var (
		id                int64
		sender, recipient string
		text, image       string
		seen              bool
		createdAt         time.Time
	)
	for iter.Scan(&id, &sender, &recipient, &text, &image, &seen, &createdAt) {
		out = append(out, model.Message{
			ID:          strconv.FormatInt(id, 10),
			SenderID:    sender,
			RecipientID: recipient,
			Text:        text,
			Image:       image,
			Seen:        seen,
			CreatedAt:   createdAt.UTC(),
		})
	}
	if err := iter.Close(); err != nil {
		return nil, model.Dependency(err, "scylla list conversation")
	}
	return out, nil
}

func (s *Store) MarkSeen(ctx context.Context, id string) error {
	n, err := parseID(id)
	if err != nil {
		return model.NotFound("message %s not found", id)
	}
	var (
		convID    string
		createdAt time.Time
	)
	err = s.db.Query(`SELECT conversation_id, created_at FROM messages_by_id WHERE id = ?`, n).
		WithContext(ctx).Scan(&convID, &createdAt)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return model.NotFound("message %s not found", id)
		}
		return model.Dependency(err, "scylla lookup message")
	}

	var sender, recipient string
	err = s.db.Query(`SELECT sender_id, recipient_id FROM messages WHERE conversation_id = ? AND created_at = ? AND id = ?`,
		convID, createdAt, n).WithContext(ctx).Scan(&sender, &recipient)
	if err != nil {
		return model.Dependency(err, "scylla read message")
	}
	applied, err := s.markOne(ctx, convID, createdAt, n)
	if err != nil {
		return err
	}
	if applied {
		s.decrementUnread(ctx, recipient, sender, 1)
	}
	return nil
}

// markOne flips seen with a lightweight transaction so concurrent callers
// decrement the unread counter once.
func (s *Store) markOne(ctx context.Context, convID string, createdAt time.Time, id int64) (bool, error) {
	applied, err := s.db.Query(`UPDATE messages SET seen = true WHERE conversation_id = ? AND created_at = ? AND id = ? IF seen = false`,
		convID, createdAt, id).WithContext(ctx).MapScanCAS(make(map[string]interface{}))
	if err != nil {
		return false, model.Dependency(err, "scylla mark seen")
	}
	return applied, nil
}

func (s *Store) decrementUnread(ctx context.Context, recipient, sender string, by int64) {
	err := s.db.Query(`UPDATE conversation_counters SET unread_count = unread_count - ? WHERE user_id = ? AND other_user_id = ?`,
		by, recipient, sender).WithContext(ctx).Exec()
	if err != nil {
		s.log.Warn("decrement unread count", zap.String("recipient", recipient), zap.Error(err))
	}
}

func (s *Store) MarkConversationSeen(ctx context.Context, from, to string) (int64, error) {
	convID := model.ConversationID(from, to)
	iter := s.db.Query(`SELECT created_at, id, sender_id, seen FROM messages WHERE conversation_id = ?`, convID).
		WithContext(ctx).Iter()

	type key struct {
		createdAt time.Time
		id        int64
	}
	var (
		pending   []key
		createdAt time.Time
		id        int64
		sender    string
		seen      bool
	)
	for iter.Scan(&createdAt, &id, &sender, &seen) {
		if sender == from && !seen {
			pending = append(pending, key{createdAt, id})
		}
	}
	if err := iter.Close(); err != nil {
		return 0, model.Dependency(err, "scylla scan conversation")
	}

	var n int64
	for _, k := range pending {
		applied, err := s.markOne(ctx, convID, k.createdAt, k.id)
		if err != nil {
			return n, err
		}
		if applied {
			n++
		}
	}
	if n > 0 {
		s.decrementUnread(ctx, to, from, n)
	}
	return n, nil
}

func (s *Store) UnseenCounts(ctx context.Context, recipient string) (map[string]int64, error) {
	iter := s.db.Query(`SELECT other_user_id, unread_count FROM conversation_counters WHERE user_id = ?`, recipient).
		WithContext(ctx).Iter()
	out := make(map[string]int64)
	var (
		other string
		count int64
	)
	for iter.Scan(&other, &count) {
		if count > 0 {
			out[other] = count
		}
	}
	if err := iter.Close(); err != nil {
		return nil, model.Dependency(err, "scylla read counters")
	}
	return out, nil
}

func (s *Store) LastMessageTimes(ctx context.Context, userID string) (map[string]time.Time, error) {
	iter := s.db.Query(`SELECT other_user_id, last_updated FROM user_conversations WHERE user_id = ?`, userID).
		WithContext(ctx).Iter()
	out := make(map[string]time.Time)
	var (
		other string
		at    time.Time
	)
	for iter.Scan(&other, &at) {
		out[other] = at.UTC()
	}
	if err := iter.Close(); err != nil {
		return nil, model.Dependency(err, "scylla read conversations")
	}
	return out, nil
}

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	email := model.NormalizeEmail(u.Email)
	applied, err := s.db.Query(`INSERT INTO users_by_email (email, user_id) VALUES (?, ?) IF NOT EXISTS`, email, u.ID).
		WithContext(ctx).MapScanCAS(make(map[string]interface{}))
	if err != nil {
		return model.Dependency(err, "scylla reserve email")
	}
	if !applied {
		return model.Conflict("account already exists")
	}
	err = s.db.Query(`INSERT INTO users (id, email, full_name, bio, profile_pic, password_hash, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, email, u.FullName, u.Bio, u.ProfilePic, u.PasswordHash, u.CreatedAt).WithContext(ctx).Exec()
	if err != nil {
		// release the reservation so the address can be retried
		s.db.Query(`DELETE FROM users_by_email WHERE email = ?`, email).WithContext(ctx).Exec()
		return model.Dependency(err, "scylla insert user")
	}
	return nil
}

const userColumns = `id, email, full_name, bio, profile_pic, password_hash, created_at`

func scanUser(scan func(dest ...interface{}) error) (*model.User, error) {
	var u model.User
	if err := scan(&u.ID, &u.Email, &u.FullName, &u.Bio, &u.ProfilePic, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func (s *Store) UserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(s.db.Query(`SELECT `+userColumns+` FROM users WHERE id = ?`, id).WithContext(ctx).Scan)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, model.NotFound("user not found")
		}
		return nil, model.Dependency(err, "scylla read user")
	}
	return u, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	var id string
	err := s.db.Query(`SELECT user_id FROM users_by_email WHERE email = ?`, model.NormalizeEmail(email)).
		WithContext(ctx).Scan(&id)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, model.NotFound("user not found")
		}
		return nil, model.Dependency(err, "scylla read email")
	}
	return s.UserByID(ctx, id)
}

func (s *Store) UpdateUser(ctx context.Context, u *model.User) error {
	applied, err := s.db.Query(`UPDATE users SET full_name = ?, bio = ?, profile_pic = ? WHERE id = ? IF EXISTS`,
		u.FullName, u.Bio, u.ProfilePic, u.ID).WithContext(ctx).MapScanCAS(make(map[string]interface{}))
	if err != nil {
		return model.Dependency(err, "scylla update user")
	}
	if !applied {
		return model.NotFound("user not found")
	}
	return nil
}

func (s *Store) ListUsersExcept(ctx context.Context, id string) ([]model.User, error) {
	iter := s.db.Query(`SELECT ` + userColumns + ` FROM users`).WithContext(ctx).Iter()
	out := make([]model.User, 0)
	for {
		u, err := scanUser(func(dest ...interface{}) error {
			if !iter.Scan(dest...) {
				return gocql.ErrNotFound
			}
			return nil
		})
		if err != nil {
			break
		}
		if u.ID == id {
			continue
		}
		u.PasswordHash = ""
		out = append(out, *u)
	}
	if err := iter.Close(); err != nil {
		return nil, model.Dependency(err, "scylla list users")
	}
	store.SortUsers(out)
	return out, nil
}

func (s *Store) Close(context.Context) error {
	s.db.Close()
	return nil
}
