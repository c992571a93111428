package model

import "time"

// User mirrors the `users` table. Handlers define their own response
// types, so no json tags here.
type User struct {
	ID           uint64
	Email        string
	Name         string
	PasswordHash string
	Role         string // HOST or CUSTOMER
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Category mirrors the `categories` table. Events reference a
// category for public browsing; the set itself is managed out of
// band by migrations.
type Category struct {
	ID        uint64
	Name      string
	Slug      string
	CreatedAt time.Time
}
