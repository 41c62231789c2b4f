// Package storetest holds the behaviour every store backend must share.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Aashay2112/chat-app/pkg/model"
	"github.com/Aashay2112/chat-app/pkg/snowflake"
	"github.com/Aashay2112/chat-app/pkg/store"
)

// Run exercises s. Each call uses fresh user ids so shared databases can be
// reused between runs. Every case runs twice back to back against the same
// store, so ids must stay unique across cases the way they do in a server.
func Run(t *testing.T, s store.Store) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	cases := []struct {
		name string
		fn   func(t *testing.T, s store.Store, node *snowflake.Node)
	}{
		{"ConversationRoundTrip", conversationRoundTrip},
		{"EmptyContentRejected", emptyContentRejected},
		{"MarkSeenIdempotent", markSeenIdempotent},
		{"MarkConversationSeen", markConversationSeen},
		{"LastMessageTimes", lastMessageTimes},
		{"Users", users},
	}
	for pass := 1; pass <= 2; pass++ {
		t.Run(fmt.Sprintf("pass%d", pass), func(t *testing.T) {
			for _, tc := range cases {
				t.Run(tc.name, func(t *testing.T) { tc.fn(t, s, node) })
			}
		})
	}
}

type fixture struct {
	node *snowflake.Node
	base time.Time
	a, b string
}

func newFixture(node *snowflake.Node) *fixture {
	return &fixture{
		node: node,
		base: time.Now().UTC().Truncate(time.Millisecond),
		a:    "a-" + uuid.NewString(),
		b:    "b-" + uuid.NewString(),
	}
}

func (f *fixture) message(t *testing.T, from, to string, c model.Content, offset time.Duration) *model.Message {
	t.Helper()
	msg, err := model.NewMessage(f.node.Generate(), from, to, c, f.base.Add(offset))
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	return msg
}

func conversationRoundTrip(t *testing.T, s store.Store, node *snowflake.Node) {
	ctx := context.Background()
	f := newFixture(node)

	third := f.message(t, f.a, f.b, model.TextContent("third"), 2*time.Second)
	first := f.message(t, f.a, f.b, model.TextContent("first"), 0)
	second := f.message(t, f.b, f.a, model.ImageContent("http://img/1"), time.Second)
	// same instant as second, larger id: must sort after it
	tie := f.message(t, f.b, f.a, model.TextContent("tie"), time.Second)
	other := f.message(t, f.a, "someone-else", model.TextContent("elsewhere"), 0)

	for _, m := range []*model.Message{third, first, second, tie, other} {
		if err := s.Create(ctx, m); err != nil {
			t.Fatalf("Create %s: %v", m.ID, err)
		}
	}

	for _, pair := range [][2]string{{f.a, f.b}, {f.b, f.a}} {
		got, err := s.ListConversation(ctx, pair[0], pair[1])
		if err != nil {
			t.Fatalf("ListConversation: %v", err)
		}
		want := []string{first.ID, second.ID, tie.ID, third.ID}
		if len(got) != len(want) {
			t.Fatalf("expected %d messages, got %d", len(want), len(got))
		}
		for i, id := range want {
			if got[i].ID != id {
				t.Fatalf("position %d: expected %s, got %s", i, id, got[i].ID)
			}
		}
		if got[1].Image != "http://img/1" || got[1].Text != "" {
			t.Errorf("image message changed: %+v", got[1])
		}
		if got[0].Seen || got[0].SenderID != f.a || got[0].Text != "first" {
			t.Errorf("unexpected first record: %+v", got[0])
		}
	}
}

func emptyContentRejected(t *testing.T, s store.Store, node *snowflake.Node) {
	ctx := context.Background()
	f := newFixture(node)

	bad := &model.Message{ID: f.node.GenerateString(), SenderID: f.a, RecipientID: f.b, CreatedAt: f.base}
	if err := s.Create(ctx, bad); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	got, err := s.ListConversation(ctx, f.a, f.b)
	if err != nil {
		t.Fatalf("ListConversation: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("rejected message was persisted: %+v", got)
	}
}

func markSeenIdempotent(t *testing.T, s store.Store, node *snowflake.Node) {
	ctx := context.Background()
	f := newFixture(node)

	msg := f.message(t, f.a, f.b, model.TextContent("hi"), 0)
	if err := s.Create(ctx, msg); err != nil {
		t.Fatalf("Create: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := s.MarkSeen(ctx, msg.ID); err != nil {
			t.Fatalf("MarkSeen #%d: %v", i+1, err)
		}
	}
	got, _ := s.ListConversation(ctx, f.a, f.b)
	if len(got) != 1 || !got[0].Seen {
		t.Errorf("expected one seen message, got %+v", got)
	}
	counts, _ := s.UnseenCounts(ctx, f.b)
	if counts[f.a] != 0 {
		t.Errorf("expected no unseen after MarkSeen, got %d", counts[f.a])
	}

	if err := s.MarkSeen(ctx, f.node.GenerateString()); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected not found for unknown id, got %v", err)
	}
}

func markConversationSeen(t *testing.T, s store.Store, node *snowflake.Node) {
	ctx := context.Background()
	f := newFixture(node)

	for i := 0; i < 3; i++ {
		if err := s.Create(ctx, f.message(t, f.a, f.b, model.TextContent("x"), time.Duration(i)*time.Millisecond)); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if err := s.Create(ctx, f.message(t, f.b, f.a, model.TextContent("reply"), 5*time.Millisecond)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	counts, err := s.UnseenCounts(ctx, f.b)
	if err != nil {
		t.Fatalf("UnseenCounts: %v", err)
	}
	if counts[f.a] != 3 {
		t.Fatalf("expected 3 unseen from a, got %d", counts[f.a])
	}

	n, err := s.MarkConversationSeen(ctx, f.a, f.b)
	if err != nil {
		t.Fatalf("MarkConversationSeen: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 marked, got %d", n)
	}
	if n, _ := s.MarkConversationSeen(ctx, f.a, f.b); n != 0 {
		t.Errorf("expected second pass to mark nothing, got %d", n)
	}

	counts, _ = s.UnseenCounts(ctx, f.b)
	if counts[f.a] != 0 {
		t.Errorf("expected no unseen from a, got %d", counts[f.a])
	}
	counts, _ = s.UnseenCounts(ctx, f.a)
	if counts[f.b] != 1 {
		t.Errorf("reply must stay unseen, got %d", counts[f.b])
	}
}

func lastMessageTimes(t *testing.T, s store.Store, node *snowflake.Node) {
	ctx := context.Background()
	f := newFixture(node)
	c := "c-" + uuid.NewString()

	// written out of order: the latest message per peer must win
	for _, m := range []*model.Message{
		f.message(t, f.b, f.a, model.TextContent("latest"), 2*time.Second),
		f.message(t, f.a, f.b, model.TextContent("earlier"), 0),
		f.message(t, f.a, c, model.TextContent("to c"), time.Second),
	} {
		if err := s.Create(ctx, m); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	got, err := s.LastMessageTimes(ctx, f.a)
	if err != nil {
		t.Fatalf("LastMessageTimes: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected two peers, got %v", got)
	}
	if !got[f.b].Equal(f.base.Add(2 * time.Second)) {
		t.Errorf("b: expected %v, got %v", f.base.Add(2*time.Second), got[f.b])
	}
	if !got[c].Equal(f.base.Add(time.Second)) {
		t.Errorf("c: expected %v, got %v", f.base.Add(time.Second), got[c])
	}

	got, err = s.LastMessageTimes(ctx, f.b)
	if err != nil {
		t.Fatalf("LastMessageTimes: %v", err)
	}
	if len(got) != 1 || !got[f.a].Equal(f.base.Add(2*time.Second)) {
		t.Errorf("unexpected times for b: %v", got)
	}
}

func users(t *testing.T, s store.Store, _ *snowflake.Node) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	suffix := uuid.NewString()

	alice := &model.User{ID: uuid.NewString(), Email: "Alice-" + suffix + "@Example.com", FullName: "Alice", PasswordHash: "h", CreatedAt: now}
	bob := &model.User{ID: uuid.NewString(), Email: "bob-" + suffix + "@example.com", FullName: "Bob", PasswordHash: "h", CreatedAt: now.Add(time.Second)}
	for _, u := range []*model.User{alice, bob} {
		if err := s.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
	}

	dup := &model.User{ID: uuid.NewString(), Email: "alice-" + suffix + "@example.com", FullName: "Imposter", CreatedAt: now}
	if err := s.CreateUser(ctx, dup); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected conflict on duplicate email, got %v", err)
	}

	got, err := s.UserByEmail(ctx, "  ALICE-"+suffix+"@example.com ")
	if err != nil {
		t.Fatalf("UserByEmail: %v", err)
	}
	if got.ID != alice.ID || got.PasswordHash != "h" {
		t.Errorf("unexpected user %+v", got)
	}

	got.Bio = "hello"
	got.FullName = "Alice A."
	if err := s.UpdateUser(ctx, got); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	got, err = s.UserByID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("UserByID: %v", err)
	}
	if got.Bio != "hello" || got.FullName != "Alice A." {
		t.Errorf("update not applied: %+v", got)
	}

	if _, err := s.UserByID(ctx, uuid.NewString()); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	others, err := s.ListUsersExcept(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListUsersExcept: %v", err)
	}
	foundBob := false
	for _, u := range others {
		if u.ID == alice.ID {
			t.Errorf("caller listed among contacts")
		}
		if u.ID == bob.ID {
			foundBob = true
		}
	}
	if !foundBob {
		t.Errorf("bob missing from contacts")
	}
}
