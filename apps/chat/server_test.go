package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Aashay2112/chat-app/pkg/account"
	"github.com/Aashay2112/chat-app/pkg/config"
	"github.com/Aashay2112/chat-app/pkg/model"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t   *testing.T
	srv *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Server:    config.ServerConfig{Name: "chat-test", FrontendURL: "http://localhost:5173", MaxBodyBytes: 1 << 20},
		Auth:      config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour},
		Store:     config.StoreConfig{Backend: "memory"},
		Media:     config.MediaConfig{Backend: "memory", MaxBytes: 1 << 16},
		Snowflake: config.SnowflakeConfig{Node: 1},
	}
	ctx, cancel := context.WithCancel(context.Background())
	a, err := build(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	go a.hub.Run(ctx)

	srv := httptest.NewServer(newRouter(a.server, routerOptions{
		service:      cfg.Server.Name,
		frontendURL:  cfg.Server.FrontendURL,
		maxBodyBytes: cfg.Server.MaxBodyBytes,
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		a.close(context.Background())
	})
	return &testServer{t: t, srv: srv}
}

func (ts *testServer) do(method, path, token string, body any) (int, envelope) {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, ts.srv.URL+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		ts.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var env envelope
	json.NewDecoder(resp.Body).Decode(&env)
	return resp.StatusCode, env
}

func (ts *testServer) signup(name string) account.Session {
	ts.t.Helper()
	status, env := ts.do(http.MethodPost, "/api/auth/signup", "", account.SignupInput{
		FullName: name, Email: name + "@example.com", Password: "secret", Bio: "hello",
	})
	if status != http.StatusCreated || !env.Success {
		ts.t.Fatalf("signup %s: %d %s", name, status, env.Message)
	}
	var sess account.Session
	if err := json.Unmarshal(env.Data, &sess); err != nil {
		ts.t.Fatalf("decode session: %v", err)
	}
	return sess
}

func (ts *testServer) dial(token, query string) (*websocket.Conn, *http.Response, error) {
	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws?token=" + token + query
	return websocket.DefaultDialer.Dial(url, nil)
}

type wsFrame struct {
	Event model.EventType `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func readFrame(t *testing.T, conn *websocket.Conn) wsFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var f wsFrame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func expectOnline(t *testing.T, conn *websocket.Conn, want ...string) {
	t.Helper()
	f := readFrame(t, conn)
	if f.Event != model.EventOnlineUsers {
		t.Fatalf("expected onlineUsers, got %s", f.Event)
	}
	var got []string
	json.Unmarshal(f.Data, &got)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected online %v, got %v", want, got)
	}
}

func TestStatus(t *testing.T) {
	ts := newTestServer(t)
	status, env := ts.do(http.MethodGet, "/api/status", "", nil)
	if status != http.StatusOK || env.Message != "Server is live" {
		t.Errorf("unexpected status reply %d %+v", status, env)
	}
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t)
	sess := ts.signup("alice")

	status, env := ts.do(http.MethodGet, "/api/auth/check", sess.Token, nil)
	if status != http.StatusOK || !env.Success {
		t.Fatalf("check failed: %d %s", status, env.Message)
	}
	var me model.User
	json.Unmarshal(env.Data, &me)
	if me.ID != sess.User.ID {
		t.Errorf("check returned %s, want %s", me.ID, sess.User.ID)
	}
	if strings.Contains(string(env.Data), "password") {
		t.Errorf("password hash leaked: %s", env.Data)
	}

	status, env = ts.do(http.MethodGet, "/api/auth/check", "", nil)
	if status != http.StatusUnauthorized || env.Success {
		t.Errorf("expected 401 without token, got %d", status)
	}

	status, _ = ts.do(http.MethodPost, "/api/auth/signup", "", account.SignupInput{
		FullName: "again", Email: "ALICE@example.com", Password: "x", Bio: "b",
	})
	if status != http.StatusConflict {
		t.Errorf("expected 409 for duplicate email, got %d", status)
	}

	status, _ = ts.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "nope"})
	if status != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", status)
	}
	status, env = ts.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "secret"})
	if status != http.StatusOK || !env.Success {
		t.Errorf("login failed: %d %s", status, env.Message)
	}
}

func TestConversationRoutes(t *testing.T) {
	ts := newTestServer(t)
	alice, bob := ts.signup("alice"), ts.signup("bob")

	status, env := ts.do(http.MethodPost, "/api/conversation/"+alice.User.ID, bob.Token, map[string]string{"text": "hi alice"})
	if status != http.StatusCreated {
		t.Fatalf("send failed: %d %s", status, env.Message)
	}
	var sent model.Message
	json.Unmarshal(env.Data, &sent)

	status, env = ts.do(http.MethodPost, "/api/conversation/"+alice.User.ID, bob.Token, map[string]string{"text": "x", "image": "https://a/b.png"})
	if status != http.StatusBadRequest || env.Success {
		t.Errorf("expected 400 for both variants, got %d", status)
	}
	status, _ = ts.do(http.MethodPost, "/api/conversation/"+alice.User.ID, bob.Token, map[string]string{})
	if status != http.StatusBadRequest {
		t.Errorf("expected 400 for empty message, got %d", status)
	}
	status, _ = ts.do(http.MethodPost, "/api/conversation/nobody", bob.Token, map[string]string{"text": "hi"})
	if status != http.StatusNotFound {
		t.Errorf("expected 404 for unknown recipient, got %d", status)
	}

	status, env = ts.do(http.MethodGet, "/api/conversation/"+bob.User.ID, alice.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("list failed: %d", status)
	}
	var msgs []model.Message
	json.Unmarshal(env.Data, &msgs)
	if len(msgs) != 1 || msgs[0].SenderID != bob.User.ID || msgs[0].Text != "hi alice" || msgs[0].Seen {
		t.Fatalf("unexpected conversation %+v", msgs)
	}

	status, env = ts.do(http.MethodGet, "/api/users", alice.Token, nil)
	var contacts []model.Contact
	json.Unmarshal(env.Data, &contacts)
	if status != http.StatusOK || len(contacts) != 1 || contacts[0].Unseen != 1 {
		t.Errorf("unexpected contacts %d %+v", status, contacts)
	}

	status, env = ts.do(http.MethodPut, "/api/conversation/"+bob.User.ID+"/seen", alice.Token, nil)
	var counted struct{ Count int64 }
	json.Unmarshal(env.Data, &counted)
	if status != http.StatusOK || counted.Count != 1 {
		t.Errorf("expected 1 marked seen, got %d %+v", status, counted)
	}

	status, _ = ts.do(http.MethodPut, "/api/messages/"+sent.ID+"/seen", alice.Token, nil)
	if status != http.StatusOK {
		t.Errorf("mark seen again should succeed, got %d", status)
	}
	status, _ = ts.do(http.MethodPut, "/api/messages/12345/seen", alice.Token, nil)
	if status != http.StatusNotFound {
		t.Errorf("expected 404 for unknown message, got %d", status)
	}
}

func TestProfilePictureServedFromMedia(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup("alice")

	pic := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	status, env := ts.do(http.MethodPut, "/api/auth/update-profile", alice.Token, map[string]string{"profilePic": pic})
	if status != http.StatusOK {
		t.Fatalf("update-profile failed: %d %s", status, env.Message)
	}
	var u model.User
	json.Unmarshal(env.Data, &u)
	if !strings.HasPrefix(u.ProfilePic, "/media/") {
		t.Fatalf("unexpected profile picture ref %q", u.ProfilePic)
	}

	resp, err := http.Get(ts.srv.URL + u.ProfilePic)
	if err != nil {
		t.Fatalf("GET media: %v", err)
	}
	defer resp.Body.Close()
	var body bytes.Buffer
	body.ReadFrom(resp.Body)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" || body.String() != "png-bytes" {
		t.Errorf("unexpected media response %d %s %q", resp.StatusCode, resp.Header.Get("Content-Type"), body.String())
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("media served without nosniff")
	}
}

func TestSVGUploadRejected(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup("alice")

	svg := "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte("<svg><script>alert(document.cookie)</script></svg>"))
	status, env := ts.do(http.MethodPut, "/api/auth/update-profile", alice.Token, map[string]string{"profilePic": svg})
	if status != http.StatusBadRequest || env.Success {
		t.Errorf("expected 400 for svg profile picture, got %d %s", status, env.Message)
	}

	bob := ts.signup("bob")
	status, env = ts.do(http.MethodPost, "/api/conversation/"+bob.User.ID, alice.Token, map[string]string{"image": svg})
	if status != http.StatusBadRequest {
		t.Errorf("expected 400 for svg message image, got %d %s", status, env.Message)
	}
}

func TestWebsocketPresenceAndPush(t *testing.T) {
	ts := newTestServer(t)
	alice, bob := ts.signup("alice"), ts.signup("bob")
	aID, bID := alice.User.ID, bob.User.ID

	aConn, _, err := ts.dial(alice.Token, "&userId="+aID)
	if err != nil {
		t.Fatalf("alice dial: %v", err)
	}
	expectOnline(t, aConn, aID)

	bConn, _, err := ts.dial(bob.Token, "")
	if err != nil {
		t.Fatalf("bob dial: %v", err)
	}
	defer bConn.Close()
	expectOnline(t, aConn, aID, bID)
	expectOnline(t, bConn, aID, bID)

	// B sends over REST, A receives the push
	status, _ := ts.do(http.MethodPost, "/api/conversation/"+aID, bob.Token, map[string]string{"text": "ping"})
	if status != http.StatusCreated {
		t.Fatalf("send failed: %d", status)
	}
	f := readFrame(t, aConn)
	var pushed model.Message
	json.Unmarshal(f.Data, &pushed)
	if f.Event != model.EventNewMessage || pushed.Text != "ping" || pushed.SenderID != bID {
		t.Fatalf("unexpected push %s %+v", f.Event, pushed)
	}

	// typing is relayed to the peer
	if err := aConn.WriteJSON(model.Inbound{Type: model.EventTyping, To: bID}); err != nil {
		t.Fatalf("write typing: %v", err)
	}
	f = readFrame(t, bConn)
	if f.Event != model.EventTyping {
		t.Fatalf("expected typing, got %s", f.Event)
	}

	aConn.Close()
	expectOnline(t, bConn, bID)

	aConn2, _, err := ts.dial(alice.Token, "")
	if err != nil {
		t.Fatalf("alice redial: %v", err)
	}
	defer aConn2.Close()
	expectOnline(t, bConn, bID, aID)
	expectOnline(t, aConn2, bID, aID)
}

func TestWebsocketRejectsMismatchedUser(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup("alice")

	_, resp, err := ts.dial(alice.Token, "&userId=someone-else")
	if err == nil {
		t.Fatal("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %v", resp)
	}

	_, resp, err = ts.dial("garbage", "")
	if err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad token, got %v %v", resp, err)
	}
}
