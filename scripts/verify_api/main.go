package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Aashay2112/chat-app/pkg/chatclient"
	"github.com/Aashay2112/chat-app/pkg/logger"
	"github.com/Aashay2112/chat-app/pkg/model"
)

// Signs up two throwaway users, sends a message from one to the other and
// reads it back on both sides.
func main() {
	apiAddr := flag.String("api", "http://localhost:5000", "chat server address")
	flag.Parse()

	log := logger.New("info", "console")
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	run := uuid.NewString()[:8]
	alice, bob := chatclient.New(*apiAddr), chatclient.New(*apiAddr)

	// 1. Sign up
	if _, err := alice.Signup(ctx, "Alice "+run, fmt.Sprintf("alice-%s@example.com", run), "password123", "verify"); err != nil {
		log.Fatal("signup alice", zap.Error(err))
	}
	if _, err := bob.Signup(ctx, "Bob "+run, fmt.Sprintf("bob-%s@example.com", run), "password123", "verify"); err != nil {
		log.Fatal("signup bob", zap.Error(err))
	}

	// 2. Login again with the same credentials
	if _, err := alice.Login(ctx, fmt.Sprintf("alice-%s@example.com", run), "password123"); err != nil {
		log.Fatal("login alice", zap.Error(err))
	}

	// 3. Bob listens, Alice sends
	conn, err := bob.Dial(ctx)
	if err != nil {
		log.Fatal("dial bob", zap.Error(err))
	}
	defer conn.Close()

	sent, err := alice.Send(ctx, bob.UserID(), "hello from verify_api", "")
	if err != nil {
		log.Fatal("send", zap.Error(err))
	}
	log.Info("sent", zap.String("message_id", sent.ID))

	for {
		ev, err := conn.Next()
		if err != nil {
			log.Fatal("read event", zap.Error(err))
		}
		log.Info("event", zap.String("type", string(ev.Type)), zap.ByteString("data", ev.Data))
		if ev.Type == model.EventNewMessage {
			break
		}
	}

	// 4. History on both sides
	for name, c := range map[string]*chatclient.Client{"alice": alice, "bob": bob} {
		peer := bob.UserID()
		if name == "bob" {
			peer = alice.UserID()
		}
		msgs, err := c.Conversation(ctx, peer)
		if err != nil {
			log.Fatal("conversation", zap.String("user", name), zap.Error(err))
		}
		log.Info("conversation", zap.String("user", name), zap.Int("messages", len(msgs)))
	}

	n, err := bob.MarkConversationSeen(ctx, alice.UserID())
	if err != nil {
		log.Fatal("mark seen", zap.Error(err))
	}
	log.Info("verified", zap.Int64("marked_seen", n))
}
