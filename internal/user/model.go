package user

import (
	"errors"

	"coffeeshop-be/internal/auth"
)

var (
	ErrUserExists   = errors.New("username or email already registered")
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidInput = errors.New("invalid user input")
)

const MinPasswordLength = 8

type User struct {
	ID           int64  `json:"id" db:"id"`
	Username     string `json:"username" db:"username"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"hashed_password"`
	IsActive     bool   `json:"is_active" db:"is_active"`
	IsAdmin      bool   `json:"is_admin" db:"is_admin"`
}

func (u User) Principal() auth.Principal {
	return auth.Principal{UserID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin}
}

type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}
