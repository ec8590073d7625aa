package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a platform account
type User struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Username       string    `json:"username" db:"username"`
	Email          string    `json:"email" db:"email"`
	HashedPassword string    `json:"-" db:"hashed_password"`
	FullName       string    `json:"full_name" db:"full_name"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	IsSuperuser    bool      `json:"is_superuser" db:"is_superuser"`
	AvatarURL      string    `json:"avatar_url,omitempty" db:"avatar_url"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// NewUser creates a new User instance with a hashed password
func NewUser(username, email, hashedPassword, fullName string) *User {
	now := time.Now()
	return &User{
		ID:             uuid.New(),
		Username:       username,
		Email:          email,
		HashedPassword: hashedPassword,
		FullName:       fullName,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
