package main

import (
	"github.com/gin-gonic/gin"

	"github.com/Aashay2112/chat-app/pkg/auth"
	"github.com/Aashay2112/chat-app/pkg/telemetry"
)

type routerOptions struct {
	service      string
	frontendURL  string
	maxBodyBytes int64
}

func newRouter(s *server, opts routerOptions) *gin.Engine {
	r := gin.New()
	r.Use(
		RequestLogger(s.log),
		Recovery(),
		telemetry.Middleware(opts.service),
		CORSMiddleware(opts.frontendURL),
		LimitBody(opts.maxBodyBytes),
	)

	r.GET("/ws", s.serveWs)
	r.GET("/media/:id", s.serveMedia)

	api := r.Group("/api")
	api.GET("/status", s.status)
	api.POST("/auth/signup", s.signup)
	api.POST("/auth/login", s.login)

	protected := api.Group("")
	protected.Use(auth.Middleware(s.tokens, fail))
	protected.GET("/auth/check", s.check)
	protected.PUT("/auth/update-profile", s.updateProfile)
	protected.GET("/users", s.contacts)
	protected.GET("/conversation/:peerId", s.conversation)
	protected.POST("/conversation/:peerId", s.sendMessage)
	protected.PUT("/conversation/:peerId/seen", s.markConversationSeen)
	protected.PUT("/messages/:id/seen", s.markSeen)

	return r
}
