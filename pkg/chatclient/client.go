// Package chatclient is a small Go client for the chat HTTP and websocket API.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/Aashay2112/chat-app/pkg/model"
)

type Client struct {
	baseURL string
	http    *http.Client
	token   string
	userID  string
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// APIError is a reply with success=false.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chat api: %d %s", e.Status, e.Message)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) UserID() string { return c.userID }
func (c *Client) Token() string  { return c.token }

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return errors.Wrap(err, "encode request")
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return errors.Wrapf(err, "decode %s %s (status %d)", method, path, resp.StatusCode)
	}
	if !env.Success {
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 {
		return errors.Wrap(json.Unmarshal(env.Data, out), "decode data")
	}
	return nil
}

type session struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (*model.User, error) {
	var s session
	if err := c.do(ctx, http.MethodPost, path, body, &s); err != nil {
		return nil, err
	}
	c.token, c.userID = s.Token, s.User.ID
	return &s.User, nil
}

func (c *Client) Signup(ctx context.Context, fullName, email, password, bio string) (*model.User, error) {
	return c.authenticate(ctx, "/api/auth/signup", map[string]string{
		"fullName": fullName, "email": email, "password": password, "bio": bio,
	})
}

func (c *Client) Login(ctx context.Context, email, password string) (*model.User, error) {
	return c.authenticate(ctx, "/api/auth/login", map[string]string{"email": email, "password": password})
}

func (c *Client) Contacts(ctx context.Context) ([]model.Contact, error) {
	var out []model.Contact
	err := c.do(ctx, http.MethodGet, "/api/users", nil, &out)
	return out, err
}

func (c *Client) Send(ctx context.Context, peerID, text, image string) (*model.Message, error) {
	var msg model.Message
	body := map[string]string{}
	if text != "" {
		body["text"] = text
	}
	if image != "" {
		body["image"] = image
	}
	if err := c.do(ctx, http.MethodPost, "/api/conversation/"+url.PathEscape(peerID), body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) Conversation(ctx context.Context, peerID string) ([]model.Message, error) {
	var out []model.Message
	err := c.do(ctx, http.MethodGet, "/api/conversation/"+url.PathEscape(peerID), nil, &out)
	return out, err
}

func (c *Client) MarkConversationSeen(ctx context.Context, peerID string) (int64, error) {
	var out struct {
		Count int64 `json:"count"`
	}
	err := c.do(ctx, http.MethodPut, "/api/conversation/"+url.PathEscape(peerID)+"/seen", nil, &out)
	return out.Count, err
}

// Event is a frame received over the realtime channel.
type Event struct {
	Type model.EventType `json:"event"`
	Data json.RawMessage `json:"data"`
}

// Conn is an open realtime channel.
type Conn struct {
	ws *websocket.Conn
}

// Dial opens the realtime channel for the logged in user.
func (c *Client) Dial(ctx context.Context) (*Conn, error) {
	if c.token == "" {
		return nil, errors.New("chatclient: not logged in")
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	q := u.Query()
	q.Set("userId", c.userID)
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Add("Authorization", "Bearer "+c.token)
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return nil, errors.Wrap(err, "dial")
	}
	return &Conn{ws: ws}, nil
}

func (c *Conn) Next() (Event, error) {
	var ev Event
	err := c.ws.ReadJSON(&ev)
	return ev, err
}

func (c *Conn) Typing(to string) error {
	return c.ws.WriteJSON(model.Inbound{Type: model.EventTyping, To: to})
}

// Close sends a close frame and then closes the connection.
func (c *Conn) Close() error {
	c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return c.ws.Close()
}
