package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Aashay2112/chat-app/pkg/chatclient"
	"github.com/Aashay2112/chat-app/pkg/logger"
	"github.com/Aashay2112/chat-app/pkg/model"
)

func printEvent(ev chatclient.Event) {
	switch ev.Type {
	case model.EventOnlineUsers:
		var ids []string
		json.Unmarshal(ev.Data, &ids)
		fmt.Printf("\rOnline: %s\n> ", strings.Join(ids, ", "))
	case model.EventNewMessage:
		var msg model.Message
		if err := json.Unmarshal(ev.Data, &msg); err != nil {
			fmt.Printf("\rReceived raw: %s\n> ", ev.Data)
			return
		}
		body := msg.Text
		if body == "" {
			body = "[image] " + msg.Image
		}
		fmt.Printf("\r%s: %s\n> ", msg.SenderID, body)
	case model.EventTyping:
		var t model.TypingData
		json.Unmarshal(ev.Data, &t)
		fmt.Printf("\rUser %s is typing...      \n> ", t.From)
	case model.EventMessagesSeen:
		var s model.SeenData
		json.Unmarshal(ev.Data, &s)
		fmt.Printf("\r%s saw %d message(s)\n> ", s.By, s.Count)
	default:
		fmt.Printf("\rReceived raw: %s %s\n> ", ev.Type, ev.Data)
	}
}

func main() {
	apiAddr := flag.String("api", "http://localhost:5000", "chat server address")
	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "account password")
	name := flag.String("name", "", "full name; creates the account when set")
	peer := flag.String("to", "", "user id to chat with")
	flag.Parse()

	log := logger.New("info", "console")
	defer log.Sync()

	if *email == "" || *password == "" || *peer == "" {
		log.Fatal("-email, -password and -to are required")
	}

	ctx := context.Background()
	api := chatclient.New(*apiAddr)

	// 1. Login (or sign up) to get a token
	var err error
	if *name != "" {
		log.Info("signing up", zap.String("email", *email))
		_, err = api.Signup(ctx, *name, *email, *password, "cli user")
	} else {
		log.Info("logging in", zap.String("email", *email))
		_, err = api.Login(ctx, *email, *password)
	}
	if err != nil {
		log.Fatal("authentication failed", zap.Error(err))
	}
	log.Info("authenticated", zap.String("user_id", api.UserID()))

	history, err := api.Conversation(ctx, *peer)
	if err != nil {
		log.Fatal("load conversation", zap.Error(err))
	}
	for _, msg := range history {
		fmt.Printf("[%s] %s: %s%s\n", msg.CreatedAt.Format(time.Kitchen), msg.SenderID, msg.Text, msg.Image)
	}
	if n, err := api.MarkConversationSeen(ctx, *peer); err == nil && n > 0 {
		log.Info("marked seen", zap.Int64("count", n))
	}

	// 2. Open the realtime channel
	conn, err := api.Dial(ctx)
	if err != nil {
		log.Fatal("dial", zap.Error(err))
	}

	done := make(chan struct{})

	// 3. Print incoming events
	go func() {
		defer close(done)
		for {
			ev, err := conn.Next()
			if err != nil {
				log.Info("read", zap.Error(err))
				return
			}
			printEvent(ev)
			if ev.Type == model.EventNewMessage {
				api.MarkConversationSeen(ctx, *peer)
			}
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	// 4. Read from stdin and send messages
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		fmt.Print("> ")
		for scanner.Scan() {
			text := strings.TrimSpace(scanner.Text())
			switch {
			case text == "":
			case text == "/quit":
				interrupt <- os.Interrupt
				return
			case text == "/typing":
				if err := conn.Typing(*peer); err != nil {
					log.Warn("write", zap.Error(err))
					return
				}
			case text == "/users":
				contacts, err := api.Contacts(ctx)
				if err != nil {
					log.Warn("contacts", zap.Error(err))
					break
				}
				for _, c := range contacts {
					fmt.Printf("%s %-20s online=%t unseen=%d\n", c.ID, c.FullName, c.Online, c.Unseen)
				}
			case strings.HasPrefix(text, "/image "):
				if _, err := api.Send(ctx, *peer, "", strings.TrimPrefix(text, "/image ")); err != nil {
					log.Warn("send", zap.Error(err))
				}
			default:
				if _, err := api.Send(ctx, *peer, text, ""); err != nil {
					log.Warn("send", zap.Error(err))
				}
			}
			fmt.Print("> ")
		}
	}()

	select {
	case <-done:
	case <-interrupt:
		log.Info("interrupt")
		conn.Close()
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}
