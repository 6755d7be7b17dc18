package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// CredentialStore looks up calendar accounts for login and token checks.
type CredentialStore interface {
	GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error)
	GetUser(ctx context.Context, id string) (User, error)
}

// AuthSessionStore persists login tokens. These are unrelated to booked
// meeting sessions.
type AuthSessionStore interface {
	CreateAuthSession(ctx context.Context, session AuthSession) (AuthSession, error)
	GetAuthSession(ctx context.Context, token string) (AuthSession, error)
	UpdateAuthSession(ctx context.Context, session AuthSession) (AuthSession, error)
	RevokeAuthSession(ctx context.Context, token string, revokedAt time.Time) (AuthSession, error)
	DeleteExpiredAuthSessions(ctx context.Context, reference time.Time) (int64, error)
}

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// AuthService turns a calendar login into a bearer token, and a bearer token
// back into the Requester every booking call runs as: the user id, the admin
// flag and the timezone the calendar is shown in.
type AuthService struct {
	accounts       CredentialStore
	tokens         AuthSessionStore
	verifyPassword PasswordVerifier
	newToken       func() string
	now            func() time.Time
	tokenTTL       time.Duration
	logger         *slog.Logger
}

// NewAuthService wires the account and token stores. A nil verifier falls
// back to the argon2id check, and a non-positive ttl keeps tokens for a day.
func NewAuthService(accounts CredentialStore, tokens AuthSessionStore, verify PasswordVerifier, newToken func() string, now func() time.Time, tokenTTL time.Duration) *AuthService {
	return NewAuthServiceWithLogger(accounts, tokens, verify, newToken, now, tokenTTL, nil)
}

// NewAuthServiceWithLogger is NewAuthService with an explicit logger.
func NewAuthServiceWithLogger(accounts CredentialStore, tokens AuthSessionStore, verify PasswordVerifier, newToken func() string, now func() time.Time, tokenTTL time.Duration, logger *slog.Logger) *AuthService {
	if verify == nil {
		verify = VerifyPassword
	}
	if newToken == nil {
		newToken = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		accounts:       accounts,
		tokens:         tokens,
		verifyPassword: verify,
		newToken:       newToken,
		now:            now,
		tokenTTL:       tokenTTL,
		logger:         defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Authenticate checks an email and password and issues a login token. The
// user's calendar timezone is resolved first so a broken account never
// receives a token it cannot use.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (result AuthenticateResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.accounts == nil {
		err = fmt.Errorf("credential store not configured")
		return
	}

	email := strings.TrimSpace(strings.ToLower(params.Email))
	logger := s.loggerWith(ctx, "Authenticate", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "calendar login failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "calendar login succeeded",
			"requester_id", result.Requester.ID,
			"is_admin", result.Requester.IsAdmin,
			"timezone", result.Requester.Location().String(),
		)
	}()

	if email == "" || params.Password == "" {
		err = ErrInvalidCredentials
		return
	}

	var account UserCredentials
	account, err = s.accounts.GetUserCredentialsByEmail(ctx, email)
	if errors.Is(mapRepoError(err), ErrNotFound) {
		err = ErrInvalidCredentials
	}
	if err != nil {
		return
	}
	if account.Disabled {
		err = ErrAccountDisabled
		return
	}
	if s.verifyPassword(account.PasswordHash, params.Password) != nil {
		err = ErrInvalidCredentials
		return
	}

	requester, err := calendarRequester(account.User)
	if err != nil {
		return
	}

	now := s.now()
	login := AuthSession{
		ID:          s.newToken(),
		UserID:      account.User.ID,
		Token:       s.newToken(),
		Fingerprint: strings.TrimSpace(params.Fingerprint),
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(s.tokenTTL),
	}
	if login.Token == "" {
		login.Token = login.ID
	}

	if s.tokens != nil {
		// Expired logins are swept opportunistically on every sign-in.
		if _, err = s.tokens.DeleteExpiredAuthSessions(ctx, now); err != nil {
			return
		}
		if login, err = s.tokens.CreateAuthSession(ctx, login); err != nil {
			return
		}
	}

	result = AuthenticateResult{User: account.User, Session: login, Requester: requester}
	return
}

// RefreshSession swaps a live login token for a new one with a fresh expiry.
func (s *AuthService) RefreshSession(ctx context.Context, params RefreshSessionParams) (result RefreshSessionResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.tokens == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}

	token := strings.TrimSpace(params.Token)
	logger := s.loggerWith(ctx, "RefreshSession", "token_provided", token != "")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "login refresh failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "login refreshed",
			"requester_id", result.Session.UserID,
			"expires_at", result.Session.ExpiresAt,
		)
	}()

	now := s.now()
	login, err := s.liveLogin(ctx, token, now, ErrInvalidCredentials)
	if err != nil {
		return
	}

	if rotated := s.newToken(); rotated != "" {
		login.Token = rotated
	}
	login.UpdatedAt = now
	login.ExpiresAt = now.Add(s.tokenTTL)
	if fp := strings.TrimSpace(params.Fingerprint); fp != "" {
		login.Fingerprint = fp
	}

	if login, err = s.tokens.UpdateAuthSession(ctx, login); err != nil {
		return
	}
	result = RefreshSessionResult{Session: login}
	return
}

// RevokeSession logs a token out. Unknown tokens are reported as bad
// credentials.
func (s *AuthService) RevokeSession(ctx context.Context, token string) error {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.tokens == nil {
		return fmt.Errorf("session repository not configured")
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidCredentials
	}
	logger := s.loggerWith(ctx, "RevokeSession")

	revoked, err := s.tokens.RevokeAuthSession(ctx, token, s.now())
	if errors.Is(mapRepoError(err), ErrNotFound) {
		err = ErrInvalidCredentials
	}
	if err != nil {
		logger.ErrorContext(ctx, "logout failed", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "logged out", "requester_id", revoked.UserID)
	return nil
}

// PruneExpiredSessions deletes login tokens whose expiry has passed. The
// maintenance scheduler calls it on an interval.
func (s *AuthService) PruneExpiredSessions(ctx context.Context) (removed int64, err error) {
	if s == nil {
		return 0, fmt.Errorf("AuthService is nil")
	}
	if s.tokens == nil {
		return 0, fmt.Errorf("session repository not configured")
	}

	logger := s.loggerWith(ctx, "PruneExpiredSessions")
	removed, err = s.tokens.DeleteExpiredAuthSessions(ctx, s.now())
	if err != nil {
		logger.ErrorContext(ctx, "failed to prune expired logins", "error", err, "error_kind", ErrorKind(err))
		return 0, err
	}
	if removed > 0 {
		logger.InfoContext(ctx, "expired logins pruned", "removed", removed)
	}
	return removed, nil
}

// ValidateSession resolves a bearer token to the Requester that booking and
// blackout calls run as. The account is re-read so admin and timezone
// changes apply to logins issued before them.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (requester Requester, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.tokens == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}
	if s.accounts == nil {
		err = fmt.Errorf("credential store not configured")
		return
	}

	token = strings.TrimSpace(token)
	logger := s.loggerWith(ctx, "ValidateSession", "token_provided", token != "")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "bearer token rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "bearer token accepted", "requester_id", requester.ID)
	}()

	if token == "" {
		err = ErrInvalidCredentials
		return
	}

	login, err := s.liveLogin(ctx, token, s.now(), ErrUnauthorized)
	if err != nil {
		return
	}

	user, err := s.accounts.GetUser(ctx, login.UserID)
	if errors.Is(mapRepoError(err), ErrNotFound) {
		err = ErrUnauthorized
	}
	if err != nil {
		return
	}
	return calendarRequester(user)
}

// liveLogin loads a token that is neither revoked nor expired at now.
// Unknown tokens map to unknownErr.
func (s *AuthService) liveLogin(ctx context.Context, token string, now time.Time, unknownErr error) (AuthSession, error) {
	if token == "" {
		return AuthSession{}, unknownErr
	}
	login, err := s.tokens.GetAuthSession(ctx, token)
	if errors.Is(mapRepoError(err), ErrNotFound) {
		return AuthSession{}, unknownErr
	}
	if err != nil {
		return AuthSession{}, err
	}
	if login.RevokedAt != nil && !login.RevokedAt.IsZero() {
		return AuthSession{}, ErrSessionRevoked
	}
	if !login.ExpiresAt.IsZero() && !login.ExpiresAt.After(now) {
		return AuthSession{}, ErrSessionExpired
	}
	return login, nil
}

// calendarRequester builds the identity calendar views are projected for.
// An empty stored timezone means UTC.
func calendarRequester(user User) (Requester, error) {
	loc := time.UTC
	if name := strings.TrimSpace(user.Timezone); name != "" {
		loaded, err := time.LoadLocation(name)
		if err != nil {
			return Requester{}, fmt.Errorf("user %s has unknown timezone %q: %w", user.ID, name, err)
		}
		loc = loaded
	}
	return Requester{ID: user.ID, IsAdmin: user.IsAdmin, Timezone: loc}, nil
}
