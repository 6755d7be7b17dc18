package testfixtures

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/meeting-calendar/internal/application"
	"github.com/example/meeting-calendar/internal/persistence"
)

// referenceTime is a Monday morning in UTC, comfortably in the future so
// bookings made relative to it never start in the past.
var referenceTime = time.Date(2030, time.March, 4, 6, 0, 0, 0, time.UTC)

// ReferenceTime returns the deterministic instant every fixture is built around.
func ReferenceTime() time.Time {
	return referenceTime
}

var (
	userCounter     uint64
	sessionCounter  uint64
	blackoutCounter uint64
	linkCounter     uint64
)

// ----------------------------- User fixtures -----------------------------

// DefaultPassword is the plain text password seeded for every user fixture.
const DefaultPassword = "correct horse battery"

// UserFixture represents a deterministic account.
type UserFixture struct {
	ID          string
	Email       string
	DisplayName string
	Password    string
	// PasswordHash is filled in by the harness when left empty.
	PasswordHash string
	IsAdmin      bool
	Timezone     string
	Disabled     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a member in UTC with a unique email.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	fixture := UserFixture{
		ID:          fmt.Sprintf("user-%03d", idx),
		Email:       fmt.Sprintf("user%03d@example.com", idx),
		DisplayName: fmt.Sprintf("User %03d", idx),
		Password:    DefaultPassword,
		Timezone:    "UTC",
		CreatedAt:   referenceTime,
		UpdatedAt:   referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithUserID(id string) UserOption {
	return func(f *UserFixture) { f.ID = id }
}

func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) { f.Email = email }
}

func WithUserPassword(password string) UserOption {
	return func(f *UserFixture) {
		f.Password = password
		f.PasswordHash = ""
	}
}

// WithUserAdmin marks the fixture as an administrator.
func WithUserAdmin() UserOption {
	return func(f *UserFixture) { f.IsAdmin = true }
}

// WithUserTimezone sets the IANA zone the user views the calendar in.
func WithUserTimezone(name string) UserOption {
	return func(f *UserFixture) { f.Timezone = name }
}

func WithUserDisabled() UserOption {
	return func(f *UserFixture) { f.Disabled = true }
}

// Persistence returns the fixture as a persistence.User row.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Email:        f.Email,
		DisplayName:  f.DisplayName,
		PasswordHash: f.PasswordHash,
		IsAdmin:      f.IsAdmin,
		Timezone:     f.Timezone,
		Disabled:     f.Disabled,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// Requester returns the identity services see for this user.
func (f UserFixture) Requester(tb testing.TB) application.Requester {
	tb.Helper()
	loc, err := time.LoadLocation(f.Timezone)
	if err != nil {
		tb.Fatalf("user fixture %s: %v", f.ID, err)
	}
	return application.Requester{ID: f.ID, IsAdmin: f.IsAdmin, Timezone: loc}
}

// Credentials returns the login parameters matching the fixture.
func (f UserFixture) Credentials() application.AuthenticateParams {
	return application.AuthenticateParams{Email: f.Email, Password: f.Password}
}

// ---------------------------- Session fixtures ----------------------------

// SessionFixture represents a stored booking row.
type SessionFixture struct {
	ID        string
	Title     string
	OwnerID   string
	StartAt   time.Time
	EndAt     time.Time
	Timezone  string
	LinkID    *string
	HasHeld   bool
	Cancelled bool
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a one hour pending session starting a day after
// ReferenceTime. Consecutive fixtures occupy consecutive hours.
func NewSessionFixture(opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	start := referenceTime.Add(24*time.Hour + time.Duration(idx)*time.Hour)
	fixture := SessionFixture{
		ID:        fmt.Sprintf("session-%03d", idx),
		Title:     fmt.Sprintf("Session %03d", idx),
		OwnerID:   "user-001",
		StartAt:   start,
		EndAt:     start.Add(time.Hour),
		Timezone:  "UTC",
		Version:   1,
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithSessionID(id string) SessionOption {
	return func(f *SessionFixture) { f.ID = id }
}

func WithSessionTitle(title string) SessionOption {
	return func(f *SessionFixture) { f.Title = title }
}

func WithSessionOwner(userID string) SessionOption {
	return func(f *SessionFixture) { f.OwnerID = userID }
}

// WithSessionStartEnd places the session at an explicit interval.
func WithSessionStartEnd(start, end time.Time) SessionOption {
	return func(f *SessionFixture) {
		f.StartAt = start
		f.EndAt = end
	}
}

func WithSessionTimezone(name string) SessionOption {
	return func(f *SessionFixture) { f.Timezone = name }
}

// WithSessionLink references a stored link row by id.
func WithSessionLink(linkID string) SessionOption {
	return func(f *SessionFixture) { f.LinkID = &linkID }
}

// WithSessionHeld marks the session held. Stored held sessions need a link.
func WithSessionHeld() SessionOption {
	return func(f *SessionFixture) {
		f.HasHeld = true
		f.Cancelled = false
	}
}

func WithSessionCancelled() SessionOption {
	return func(f *SessionFixture) {
		f.Cancelled = true
		f.HasHeld = false
	}
}

// Persistence returns the fixture as a persistence.Session row.
func (f SessionFixture) Persistence() persistence.Session {
	var linkID *string
	if f.LinkID != nil {
		id := *f.LinkID
		linkID = &id
	}
	return persistence.Session{
		ID:        f.ID,
		Title:     f.Title,
		OwnerID:   f.OwnerID,
		StartAt:   f.StartAt,
		EndAt:     f.EndAt,
		Timezone:  f.Timezone,
		LinkID:    linkID,
		HasHeld:   f.HasHeld,
		Cancelled: f.Cancelled,
		Version:   f.Version,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// ---------------------------- Blackout fixtures ----------------------------

// BlackoutFixture represents a stored blackout row.
type BlackoutFixture struct {
	ID        string
	StartAt   time.Time
	EndAt     time.Time
	Timezone  string
	CreatedBy string
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BlackoutOption configures the generated blackout fixture.
type BlackoutOption func(*BlackoutFixture)

// NewBlackoutFixture returns a thirty minute blackout two days after
// ReferenceTime.
func NewBlackoutFixture(opts ...BlackoutOption) BlackoutFixture {
	idx := atomic.AddUint64(&blackoutCounter, 1)
	start := referenceTime.Add(48*time.Hour + time.Duration(idx)*time.Hour)
	fixture := BlackoutFixture{
		ID:        fmt.Sprintf("blackout-%03d", idx),
		StartAt:   start,
		EndAt:     start.Add(30 * time.Minute),
		Timezone:  "UTC",
		CreatedBy: "admin",
		Version:   1,
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithBlackoutID(id string) BlackoutOption {
	return func(f *BlackoutFixture) { f.ID = id }
}

func WithBlackoutStartEnd(start, end time.Time) BlackoutOption {
	return func(f *BlackoutFixture) {
		f.StartAt = start
		f.EndAt = end
	}
}

func WithBlackoutCreator(userID string) BlackoutOption {
	return func(f *BlackoutFixture) { f.CreatedBy = userID }
}

// Persistence returns the fixture as a persistence.Blackout row.
func (f BlackoutFixture) Persistence() persistence.Blackout {
	return persistence.Blackout{
		ID:        f.ID,
		StartAt:   f.StartAt,
		EndAt:     f.EndAt,
		Timezone:  f.Timezone,
		CreatedBy: f.CreatedBy,
		Version:   f.Version,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// ------------------------------ Link fixtures ------------------------------

// LinkFixture represents a wrapped meeting URL row.
type LinkFixture struct {
	ID         string
	Identifier string
	URL        string
	CreatedBy  string
	CreatedAt  time.Time
}

// NewLinkFixture returns a link with a valid redirect identifier.
func NewLinkFixture(url string) LinkFixture {
	idx := atomic.AddUint64(&linkCounter, 1)
	return LinkFixture{
		ID:         fmt.Sprintf("link-%03d", idx),
		Identifier: fmt.Sprintf("fix-%03d-lnk-row", idx%1000),
		URL:        url,
		CreatedBy:  "admin",
		CreatedAt:  referenceTime,
	}
}

// Persistence returns the fixture as a persistence.Link row.
func (f LinkFixture) Persistence() persistence.Link {
	return persistence.Link{
		ID:         f.ID,
		Identifier: f.Identifier,
		URL:        f.URL,
		CreatedBy:  f.CreatedBy,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.CreatedAt,
	}
}
