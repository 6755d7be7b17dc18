package http

import (
	"log/slog"
	"net/http"
	"strings"
)

type RouterConfig struct {
	Auth      *AuthHandler
	Bookings  *BookingHandler
	Blackouts *BlackoutHandler
	// Sessions guards every route except POST /login. Nil leaves routes open,
	// which is only useful in tests that inject a requester themselves.
	Sessions   SessionValidator
	Logger     *slog.Logger
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	protect := func(h http.HandlerFunc) http.Handler { return h }
	if cfg.Sessions != nil {
		guard := RequireSession(cfg.Sessions, cfg.Logger)
		protect = func(h http.HandlerFunc) http.Handler { return guard(h) }
	}
	post := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			h(w, r)
		}
	}

	if cfg.Auth != nil {
		mux.HandleFunc("/login", post(cfg.Auth.Login))
		mux.Handle("/logout", protect(post(cfg.Auth.Logout)))
		mux.Handle("/refresh", protect(post(cfg.Auth.Refresh)))
	}

	if cfg.Bookings != nil {
		mux.Handle("/create-session", protect(post(cfg.Bookings.CreateSession)))
		mux.Handle("/update-session", protect(post(cfg.Bookings.UpdateSession)))
		mux.Handle("/calendar-query", protect(post(cfg.Bookings.CalendarQuery)))
		mux.Handle("/sessions/today", protect(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Bookings.TodaysSessions(w, r)
		}))
		mux.Handle("/links/", protect(func(w http.ResponseWriter, r *http.Request) {
			identifier := strings.TrimPrefix(r.URL.Path, "/links/")
			if identifier == "" || strings.Contains(identifier, "/") {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Bookings.FollowLink(w, r, identifier)
		}))
	}

	if cfg.Blackouts != nil {
		mux.Handle("/blackouts", protect(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Blackouts.List(w, r)
			case http.MethodPost:
				cfg.Blackouts.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		}))
		mux.Handle("/blackouts/", protect(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/blackouts/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithBlackoutID(r.Context(), id))
			switch r.Method {
			case http.MethodPut:
				cfg.Blackouts.Update(w, r)
			case http.MethodDelete:
				cfg.Blackouts.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodPut, http.MethodDelete)
			}
		}))
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}
	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
