// Package chat implements sending, reading and acknowledging direct messages.
package chat

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Aashay2112/chat-app/pkg/logger"
	"github.com/Aashay2112/chat-app/pkg/media"
	"github.com/Aashay2112/chat-app/pkg/model"
	"github.com/Aashay2112/chat-app/pkg/presence"
	"github.com/Aashay2112/chat-app/pkg/realtime"
	"github.com/Aashay2112/chat-app/pkg/snowflake"
	"github.com/Aashay2112/chat-app/pkg/store"
)

type Deps struct {
	Messages store.MessageStore
	Users    store.UserDirectory
	Registry *presence.Registry
	LastSeen presence.LastSeen
	Notifier realtime.Notifier
	Media    *media.Uploader
	IDs      *snowflake.Node
	Log      *zap.Logger
}

type Service struct {
	messages store.MessageStore
	users    store.UserDirectory
	registry *presence.Registry
	lastSeen presence.LastSeen
	notifier realtime.Notifier
	media    *media.Uploader
	ids      *snowflake.Node
	log      *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

func NewService(d Deps) *Service {
	return &Service{
		messages: d.Messages,
		users:    d.Users,
		registry: d.Registry,
		lastSeen: d.LastSeen,
		notifier: d.Notifier,
		media:    d.Media,
		ids:      d.IDs,
		log:      d.Log.Named("chat"),
		tracer:   otel.Tracer("chat"),
		now:      time.Now,
	}
}

// SendInput is the body of a send request. Exactly one field must be set.
type SendInput struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

// content checks emptiness on trimmed values but keeps the body as sent.
func (in SendInput) content() (model.Content, error) {
	hasText := strings.TrimSpace(in.Text) != ""
	hasImage := strings.TrimSpace(in.Image) != ""
	switch {
	case hasText && hasImage:
		return model.Content{}, model.Validation("message must carry either text or an image, not both")
	case hasText:
		return model.TextContent(in.Text), nil
	case hasImage:
		return model.ImageContent(in.Image), nil
	}
	return model.Content{}, model.Validation("message must carry text or an image")
}

func (s *Service) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "chat."+name, trace.WithAttributes(attrs...))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(model.KindOf(err)))
	}
	span.End()
}

// SendMessage persists a message from sender to recipient and pushes it to the
// recipient's open channels. Push failures are logged, never returned: the
// message is durable once this returns nil.
func (s *Service) SendMessage(ctx context.Context, senderID, recipientID string, in SendInput) (msg *model.Message, err error) {
	ctx, span := s.start(ctx, "SendMessage",
		attribute.String("chat.sender", senderID),
		attribute.String("chat.recipient", recipientID))
	defer func() { finish(span, err) }()

	content, err := in.content()
	if err != nil {
		return nil, err
	}
	if _, err := s.users.UserByID(ctx, recipientID); err != nil {
		return nil, err
	}
	if content.Kind() == model.ContentImage {
		ref, err := s.media.Resolve(ctx, content.Value())
		if err != nil {
			return nil, err
		}
		content = model.ImageContent(ref)
	}

	msg, err = model.NewMessage(s.ids.Generate(), senderID, recipientID, content, s.now().Truncate(time.Millisecond))
	if err != nil {
		return nil, err
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("chat.message_id", msg.ID))

	if err := s.notifier.NotifyMessage(ctx, msg); err != nil {
		logger.FromContext(ctx, s.log).Warn("push new message",
			zap.String("message_id", msg.ID), zap.String("recipient", recipientID), zap.Error(err))
	}
	return msg, nil
}

// Conversation lists every message between userID and peerID, oldest first.
// Reading does not mark anything seen.
func (s *Service) Conversation(ctx context.Context, userID, peerID string) (msgs []model.Message, err error) {
	ctx, span := s.start(ctx, "Conversation", attribute.String("chat.peer", peerID))
	defer func() { finish(span, err) }()

	if peerID == "" {
		return nil, model.Validation("peer id is required")
	}
	msgs, err = s.messages.ListConversation(ctx, userID, peerID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("chat.count", len(msgs)))
	return msgs, nil
}

// MarkSeen marks one message seen. Any authenticated caller may do so.
func (s *Service) MarkSeen(ctx context.Context, id string) (err error) {
	ctx, span := s.start(ctx, "MarkSeen", attribute.String("chat.message_id", id))
	defer func() { finish(span, err) }()

	if id == "" {
		return model.Validation("message id is required")
	}
	return s.messages.MarkSeen(ctx, id)
}

// MarkConversationSeen marks everything peerID sent to userID as seen and,
// when anything changed, tells peerID about it.
func (s *Service) MarkConversationSeen(ctx context.Context, userID, peerID string) (n int64, err error) {
	ctx, span := s.start(ctx, "MarkConversationSeen", attribute.String("chat.peer", peerID))
	defer func() { finish(span, err) }()

	if peerID == "" {
		return 0, model.Validation("peer id is required")
	}
	n, err = s.messages.MarkConversationSeen(ctx, peerID, userID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		if err := s.notifier.NotifySeen(ctx, userID, peerID, n); err != nil {
			logger.FromContext(ctx, s.log).Warn("push messages seen", zap.String("peer", peerID), zap.Error(err))
		}
	}
	return n, nil
}

// Contacts is the sidebar: every other user with presence, unseen count and
// last seen time. Users with a conversation come first, most recent first;
// the rest keep directory order.
func (s *Service) Contacts(ctx context.Context, userID string) (contacts []model.Contact, err error) {
	ctx, span := s.start(ctx, "Contacts")
	defer func() { finish(span, err) }()

	users, err := s.users.ListUsersExcept(ctx, userID)
	if err != nil {
		return nil, err
	}
	unseen, err := s.messages.UnseenCounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	recent, err := s.messages.LastMessageTimes(ctx, userID)
	if err != nil {
		return nil, err
	}

	contacts = make([]model.Contact, len(users))
	var offline []string
	for i, u := range users {
		contacts[i] = model.Contact{
			User:   u,
			Online: s.registry.Online(u.ID),
			Unseen: unseen[u.ID],
		}
		if at, ok := recent[u.ID]; ok {
			contacts[i].LastMessageAt = &at
		}
		if !contacts[i].Online {
			offline = append(offline, u.ID)
		}
	}
	sort.SliceStable(contacts, func(i, j int) bool {
		a, b := contacts[i].LastMessageAt, contacts[j].LastMessageAt
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return a.After(*b)
	})

	seen, err := s.lastSeen.Get(ctx, offline)
	if err != nil {
		// the sidebar renders without last seen
		logger.FromContext(ctx, s.log).Warn("read last seen", zap.Error(err))
		return contacts, nil
	}
	for i := range contacts {
		if at, ok := seen[contacts[i].ID]; ok {
			contacts[i].LastSeen = &at
		}
	}
	return contacts, nil
}

// OnlineUsers is the current presence snapshot.
func (s *Service) OnlineUsers() []string {
	return s.registry.Snapshot()
}
