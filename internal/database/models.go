package database

import (
	"errors"
	"time"
)

// User is a registered account
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// UserTotal is the summed footprint of one user
type UserTotal struct {
	UserID string
	Email  string
	Score  float64
}

var (
	ErrNotFound   = errors.New("record not found")
	ErrEmailTaken = errors.New("email already exists")
)
