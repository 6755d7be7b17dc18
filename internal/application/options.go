package application

import (
	"log/slog"
	"time"

	"github.com/example/meeting-calendar/internal/links"
	"github.com/example/meeting-calendar/internal/scheduler"
)

// DefaultLinkGrace is how long before start and after end a meeting link redirects.
const DefaultLinkGrace = 5 * time.Minute

type serviceOptions struct {
	businessHours scheduler.BusinessHours
	linkGrace     time.Duration
	identifiers   func() (string, error)
	events        EventPublisher
	logger        *slog.Logger
}

// ServiceOption customises the booking and blackout services.
type ServiceOption func(*serviceOptions)

// WithBusinessHours restricts bookings to opening hours.
func WithBusinessHours(hours scheduler.BusinessHours) ServiceOption {
	return func(o *serviceOptions) { o.businessHours = hours }
}

// WithLinkGrace overrides DefaultLinkGrace.
func WithLinkGrace(grace time.Duration) ServiceOption {
	return func(o *serviceOptions) {
		if grace >= 0 {
			o.linkGrace = grace
		}
	}
}

// WithIdentifierGenerator replaces links.NewIdentifier, mainly for tests.
func WithIdentifierGenerator(fn func() (string, error)) ServiceOption {
	return func(o *serviceOptions) {
		if fn != nil {
			o.identifiers = fn
		}
	}
}

// WithEventPublisher sets where committed state changes are announced.
func WithEventPublisher(publisher EventPublisher) ServiceOption {
	return func(o *serviceOptions) { o.events = publisher }
}

// WithLogger sets the base logger used when the context carries none.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) { o.logger = logger }
}

func buildOptions(opts []ServiceOption) serviceOptions {
	o := serviceOptions{
		linkGrace:   DefaultLinkGrace,
		identifiers: links.NewIdentifier,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	o.logger = defaultLogger(o.logger)
	return o
}
