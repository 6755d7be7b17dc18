package persistence

import "time"

// User represents an account that can book sessions.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	IsAdmin      bool
	Timezone     string
	Disabled     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AuthSession represents a login token issued to a user.
type AuthSession struct {
	ID          string
	UserID      string
	Token       string
	Fingerprint string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RevokedAt   *time.Time
}

// Session represents a booked calendar slot.
type Session struct {
	ID            string
	Title         string
	OwnerID       string
	StartAt       time.Time
	EndAt         time.Time
	Timezone      string
	LinkID        *string
	HasHeld       bool
	Cancelled     bool
	RescheduledAt *time.Time
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Blackout represents an administrator-declared unavailable period.
type Blackout struct {
	ID        string
	StartAt   time.Time
	EndAt     time.Time
	Timezone  string
	CreatedBy string
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Link represents a wrapped meeting URL.
type Link struct {
	ID         string
	Identifier string
	URL        string
	CreatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
