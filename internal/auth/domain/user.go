package domain

import "time"

type User struct {
	ID            string
	Email         string // lower-cased, unique
	Name          string
	PasswordHash  string // argon2 encoded
	Scopes        []string
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
