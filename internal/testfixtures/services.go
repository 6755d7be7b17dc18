package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/meeting-calendar/internal/application"
)

// DefaultSessionTTL is the login lifetime used by ServiceFactory.
const DefaultSessionTTL = 24 * time.Hour

// ServiceFactory wires the application services to one harness with a shared
// clock and deterministic identifiers.
type ServiceFactory struct {
	Harness *SQLiteHarness
	Clock   *Clock
	IDs     *IDGenerator
	Links   *LinkIdentifiers
	Tokens  *IDGenerator
	Logger  *slog.Logger
}

// NewServiceFactory returns a factory whose clock starts at ReferenceTime.
func NewServiceFactory(harness *SQLiteHarness) *ServiceFactory {
	return &ServiceFactory{
		Harness: harness,
		Clock:   NewClock(time.Time{}),
		IDs:     NewIDGenerator("row"),
		Links:   &LinkIdentifiers{},
		Tokens:  NewIDGenerator("token"),
	}
}

func (f *ServiceFactory) options(extra []application.ServiceOption) []application.ServiceOption {
	opts := []application.ServiceOption{application.WithIdentifierGenerator(f.Links.Next)}
	if f.Logger != nil {
		opts = append(opts, application.WithLogger(f.Logger))
	}
	return append(opts, extra...)
}

// NewBookingService builds a booking service over the harness database.
func (f *ServiceFactory) NewBookingService(opts ...application.ServiceOption) *application.BookingService {
	return application.NewBookingService(f.Harness.Bookings, f.IDs.NextFunc(), f.Clock.NowFunc(), f.options(opts)...)
}

// NewBlackoutService builds a blackout service over the harness database.
func (f *ServiceFactory) NewBlackoutService(opts ...application.ServiceOption) *application.BlackoutService {
	return application.NewBlackoutService(f.Harness.Bookings, f.IDs.NextFunc(), f.Clock.NowFunc(), f.options(opts)...)
}

// NewAuthService builds an auth service that verifies argon2id hashes.
func (f *ServiceFactory) NewAuthService() *application.AuthService {
	return application.NewAuthServiceWithLogger(
		f.Harness.Credentials,
		f.Harness.AuthSessions,
		application.VerifyPassword,
		f.Tokens.NextFunc(),
		f.Clock.NowFunc(),
		DefaultSessionTTL,
		f.Logger,
	)
}
