package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Aashay2112/chat-app/pkg/account"
	"github.com/Aashay2112/chat-app/pkg/auth"
	"github.com/Aashay2112/chat-app/pkg/chat"
	"github.com/Aashay2112/chat-app/pkg/media"
	"github.com/Aashay2112/chat-app/pkg/model"
	"github.com/Aashay2112/chat-app/pkg/realtime"
)

type server struct {
	accounts *account.Service
	chat     *chat.Service
	hub      *realtime.Hub
	tokens   *auth.TokenService
	media    *media.Uploader
	log      *zap.Logger
}

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, model.Validation("request body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		fail(c, model.Validation("invalid request body"))
		return false
	}
	return true
}

func (s *server) status(c *gin.Context) {
	respond(c, http.StatusOK, "Server is live", gin.H{"online": len(s.chat.OnlineUsers())})
}

func (s *server) signup(c *gin.Context) {
	var in account.SignupInput
	if !bind(c, &in) {
		return
	}
	sess, err := s.accounts.Signup(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "Account created successfully", sess)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *server) login(c *gin.Context) {
	var in loginRequest
	if !bind(c, &in) {
		return
	}
	sess, err := s.accounts.Login(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Login successful", sess)
}

func (s *server) check(c *gin.Context) {
	u, err := s.accounts.Check(c.Request.Context(), auth.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "authenticated", u)
}

type profileRequest struct {
	FullName   string `json:"fullName"`
	Bio        string `json:"bio"`
	ProfilePic string `json:"profilePic"`
}

func (s *server) updateProfile(c *gin.Context) {
	var in profileRequest
	if !bind(c, &in) {
		return
	}
	u, err := s.accounts.UpdateProfile(c.Request.Context(), auth.UserID(c), model.ProfileUpdate{
		FullName:   in.FullName,
		Bio:        in.Bio,
		ProfilePic: in.ProfilePic,
	})
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Profile updated", u)
}

func (s *server) contacts(c *gin.Context) {
	contacts, err := s.chat.Contacts(c.Request.Context(), auth.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "contacts", contacts)
}

func (s *server) conversation(c *gin.Context) {
	msgs, err := s.chat.Conversation(c.Request.Context(), auth.UserID(c), c.Param("peerId"))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "conversation", msgs)
}

func (s *server) sendMessage(c *gin.Context) {
	var in chat.SendInput
	if !bind(c, &in) {
		return
	}
	msg, err := s.chat.SendMessage(c.Request.Context(), auth.UserID(c), c.Param("peerId"), in)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "Message sent", msg)
}

func (s *server) markConversationSeen(c *gin.Context) {
	n, err := s.chat.MarkConversationSeen(c.Request.Context(), auth.UserID(c), c.Param("peerId"))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Messages marked as seen", gin.H{"count": n})
}

func (s *server) markSeen(c *gin.Context) {
	if err := s.chat.MarkSeen(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Message marked as seen", nil)
}

func (s *server) serveMedia(c *gin.Context) {
	obj, err := s.media.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	contentType := obj.ContentType
	if !media.Allowed(contentType) {
		// objects stored before the type check are downloaded, never rendered
		contentType = "application/octet-stream"
		c.Header("Content-Disposition", "attachment")
	}
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Content-Security-Policy", "default-src 'none'; sandbox")
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Header("Content-Length", strconv.Itoa(len(obj.Data)))
	c.Data(http.StatusOK, contentType, obj.Data)
}

// serveWs authenticates the upgrade request. A userId query parameter, when
// present, must name the token's subject.
func (s *server) serveWs(c *gin.Context) {
	userID, err := s.tokens.ValidateToken(auth.BearerToken(c.Request))
	if err != nil {
		fail(c, err)
		return
	}
	if claimed := c.Query("userId"); claimed != "" && claimed != userID {
		c.AbortWithStatusJSON(http.StatusForbidden, response{Success: false, Message: "userId does not match token"})
		return
	}
	realtime.ServeWs(s.hub, c.Writer, c.Request, userID)
}
