package chatclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/Aashay2112/chat-app/pkg/model"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func stubServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		json.NewDecoder(r.Body).Decode(&in)
		if in["password"] != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true, "message": "ok",
			"data": map[string]any{"token": "tok", "user": map[string]any{"id": "u1", "email": in["email"]}},
		})
	})
	mux.HandleFunc("/api/conversation/u2", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "unauthorized"})
			return
		}
		var in map[string]string
		json.NewDecoder(r.Body).Decode(&in)
		writeJSON(w, http.StatusCreated, map[string]any{
			"success": true, "message": "sent",
			"data": map[string]any{"id": "9", "senderId": "u1", "recipientId": "u2", "text": in["text"]},
		})
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" || r.URL.Query().Get("userId") != "u1" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var in model.Inbound
		if err := conn.ReadJSON(&in); err != nil {
			return
		}
		conn.WriteJSON(model.Event{Type: model.EventTyping, Data: model.TypingData{From: in.To}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLoginAndSend(t *testing.T) {
	srv := stubServer(t)
	c := New(srv.URL + "/")
	ctx := context.Background()

	if _, err := c.Login(ctx, "a@example.com", "wrong"); err == nil {
		t.Fatal("expected login failure")
	} else {
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
			t.Errorf("expected 401 APIError, got %v", err)
		}
	}

	user, err := c.Login(ctx, "a@example.com", "secret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if user.ID != "u1" || c.Token() != "tok" || c.UserID() != "u1" {
		t.Errorf("session not stored: %+v token=%s", user, c.Token())
	}

	msg, err := c.Send(ctx, "u2", "hello", "")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if msg.ID != "9" || msg.Text != "hello" {
		t.Errorf("unexpected message %+v", msg)
	}
}

func TestDialRequiresLogin(t *testing.T) {
	if _, err := New("http://localhost:1").Dial(context.Background()); err == nil {
		t.Error("expected error before login")
	}
}

func TestDialRoundTrip(t *testing.T) {
	srv := stubServer(t)
	c := New(srv.URL)
	ctx := context.Background()
	if _, err := c.Login(ctx, "a@example.com", "secret"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	conn, err := c.Dial(ctx)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	if err := conn.Typing("u2"); err != nil {
		t.Fatalf("Typing failed: %v", err)
	}
	ev, err := conn.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if ev.Type != model.EventTyping || !strings.Contains(string(ev.Data), `"from":"u2"`) {
		t.Errorf("unexpected event %s %s", ev.Type, ev.Data)
	}
}
