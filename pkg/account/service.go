// Package account handles signup, login and profile edits.
package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Aashay2112/chat-app/pkg/auth"
	"github.com/Aashay2112/chat-app/pkg/media"
	"github.com/Aashay2112/chat-app/pkg/model"
	"github.com/Aashay2112/chat-app/pkg/store"
)

type Service struct {
	users  store.UserDirectory
	tokens *auth.TokenService
	media  *media.Uploader
	log    *zap.Logger
	now    func() time.Time
}

func NewService(users store.UserDirectory, tokens *auth.TokenService, uploader *media.Uploader, log *zap.Logger) *Service {
	return &Service{users: users, tokens: tokens, media: uploader, log: log.Named("account"), now: time.Now}
}

type SignupInput struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Bio      string `json:"bio"`
}

// Session is what a successful signup or login hands back.
type Session struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func (s *Service) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	fullName := strings.TrimSpace(in.FullName)
	email := model.NormalizeEmail(in.Email)
	bio := strings.TrimSpace(in.Bio)
	if fullName == "" || email == "" || in.Password == "" || bio == "" {
		return nil, model.Validation("missing details")
	}
	if !strings.Contains(email, "@") {
		return nil, model.Validation("invalid email")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     fullName,
		Bio:          bio,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC().Truncate(time.Millisecond),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("account created", zap.String("user_id", u.ID))
	return s.session(u)
}

// Login answers Unauthorized for an unknown email and a wrong password alike.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, model.Validation("email and password are required")
	}
	u, err := s.users.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.Unauthorized("invalid credentials")
		}
		return nil, err
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		return nil, err
	}
	return s.session(u)
}

func (s *Service) session(u *model.User) (*Session, error) {
	token, err := s.tokens.GenerateToken(u.ID)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: u}, nil
}

// Check resolves the account behind an authenticated user id.
func (s *Service) Check(ctx context.Context, userID string) (*model.User, error) {
	u, err := s.users.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.Unauthorized("user not found")
		}
		return nil, err
	}
	return u, nil
}

// UpdateProfile applies the non-empty fields of p. A data URL profile picture
// is uploaded and replaced by its reference.
func (s *Service) UpdateProfile(ctx context.Context, userID string, p model.ProfileUpdate) (*model.User, error) {
	u, err := s.Check(ctx, userID)
	if err != nil {
		return nil, err
	}
	p.FullName = strings.TrimSpace(p.FullName)
	p.Bio = strings.TrimSpace(p.Bio)
	if p.ProfilePic != "" {
		ref, err := s.media.Resolve(ctx, p.ProfilePic)
		if err != nil {
			return nil, err
		}
		p.ProfilePic = ref
	}
	u.Apply(p)
	if err := s.users.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
