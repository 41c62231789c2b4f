package model

import (
	"strings"
	"time"
)

type User struct {
	ID           string    `json:"id" bson:"_id"`
	Email        string    `json:"email" bson:"email"`
	FullName     string    `json:"fullName" bson:"full_name"`
	Bio          string    `json:"bio" bson:"bio"`
	ProfilePic   string    `json:"profilePic,omitempty" bson:"profile_pic,omitempty"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
}

// ProfileUpdate carries the editable fields. Empty fields are left unchanged.
type ProfileUpdate struct {
	FullName   string
	Bio        string
	ProfilePic string
}

func (u *User) Apply(p ProfileUpdate) {
	if p.FullName != "" {
		u.FullName = p.FullName
	}
	if p.Bio != "" {
		u.Bio = p.Bio
	}
	if p.ProfilePic != "" {
		u.ProfilePic = p.ProfilePic
	}
}

// NormalizeEmail is applied before every lookup and insert.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Contact is a sidebar entry: another user plus what the caller should see about them.
type Contact struct {
	User
	Online   bool       `json:"online"`
	Unseen   int64      `json:"unseen"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`

	// LastMessageAt is the newest message exchanged with the caller.
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty"`
}
