// Package model defines the data structures used throughout the application.
package model

import "time"

// User is an account record. Email is the login identifier.
//
// PasswordHash carries a bcrypt hash and never leaves the server: the
// `json:"-"` tag keeps it out of any accidental encoding.
type User struct {
	ID           int64     `json:"id"        db:"id"`
	Email        string    `json:"email"     db:"email"`
	Name         string    `json:"name"      db:"name"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	IsActive     bool      `json:"-"         db:"is_active"`
	IsStaff      bool      `json:"-"         db:"is_staff"`
	IsSuperuser  bool      `json:"-"         db:"is_superuser"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}
