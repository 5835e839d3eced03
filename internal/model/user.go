package model

import "time"

// UserDraft carries the fields of a user that has not been stored yet.
// The id is assigned by the store; a draft never has one.
type UserDraft struct {
	Email        string // users.email (normalized lower-case)
	PasswordHash string // users.password_hash (bcrypt)
	Nickname     string // users.nickname
	Role         Role   // users.role
}

// User represents a stored row of the `users` table.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Nickname     – display name carried in issued tokens.
//  Role         – USER or ADMIN.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           int64     // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Nickname     string    // users.nickname
	Role         Role      // users.role
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
