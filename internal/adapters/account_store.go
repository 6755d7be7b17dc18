package adapters

import (
	"context"
	"time"

	"github.com/example/meeting-calendar/internal/application"
	"github.com/example/meeting-calendar/internal/persistence"
)

// CredentialStore serves login lookups from a persistence.UserRepository.
type CredentialStore struct {
	repo persistence.UserRepository
}

var _ application.CredentialStore = (*CredentialStore)(nil)

func NewCredentialStore(repo persistence.UserRepository) *CredentialStore {
	return &CredentialStore{repo: repo}
}

func (a *CredentialStore) GetUserCredentialsByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return application.UserCredentials{
		User:         toApplicationUser(stored),
		PasswordHash: stored.PasswordHash,
		Disabled:     stored.Disabled,
	}, nil
}

func (a *CredentialStore) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

// AuthSessionStore persists login tokens through a persistence.AuthSessionRepository.
type AuthSessionStore struct {
	repo persistence.AuthSessionRepository
}

var _ application.AuthSessionStore = (*AuthSessionStore)(nil)

func NewAuthSessionStore(repo persistence.AuthSessionRepository) *AuthSessionStore {
	return &AuthSessionStore{repo: repo}
}

func (a *AuthSessionStore) CreateAuthSession(ctx context.Context, session application.AuthSession) (application.AuthSession, error) {
	stored, err := a.repo.CreateAuthSession(ctx, toPersistenceAuthSession(session))
	if err != nil {
		return application.AuthSession{}, err
	}
	return toApplicationAuthSession(stored), nil
}

func (a *AuthSessionStore) GetAuthSession(ctx context.Context, token string) (application.AuthSession, error) {
	stored, err := a.repo.GetAuthSession(ctx, token)
	if err != nil {
		return application.AuthSession{}, err
	}
	return toApplicationAuthSession(stored), nil
}

func (a *AuthSessionStore) UpdateAuthSession(ctx context.Context, session application.AuthSession) (application.AuthSession, error) {
	stored, err := a.repo.UpdateAuthSession(ctx, toPersistenceAuthSession(session))
	if err != nil {
		return application.AuthSession{}, err
	}
	return toApplicationAuthSession(stored), nil
}

func (a *AuthSessionStore) RevokeAuthSession(ctx context.Context, token string, revokedAt time.Time) (application.AuthSession, error) {
	stored, err := a.repo.RevokeAuthSession(ctx, token, revokedAt)
	if err != nil {
		return application.AuthSession{}, err
	}
	return toApplicationAuthSession(stored), nil
}

func (a *AuthSessionStore) DeleteExpiredAuthSessions(ctx context.Context, reference time.Time) (int64, error) {
	return a.repo.DeleteExpiredAuthSessions(ctx, reference)
}
