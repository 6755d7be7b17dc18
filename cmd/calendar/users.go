package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/example/meeting-calendar/internal/application"
	"github.com/example/meeting-calendar/internal/persistence"
)

func createUserAction(c *cli.Context) error {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}

	user, err := newUserFromFlags(c, time.Now())
	if err != nil {
		return err
	}

	store, err := openBackend(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.CreateUser(c.Context, user); err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.Email, err)
	}
	logger.Info("user created", "user_id", user.ID, "email", user.Email, "is_admin", user.IsAdmin, "timezone", user.Timezone)
	return nil
}

func newUserFromFlags(c *cli.Context, now time.Time) (persistence.User, error) {
	email := strings.ToLower(strings.TrimSpace(c.String(emailFlagName)))
	if email == "" || !strings.Contains(email, "@") {
		return persistence.User{}, fmt.Errorf("invalid --%s %q", emailFlagName, email)
	}

	timezone := strings.TrimSpace(c.String(timezoneFlagName))
	if _, err := time.LoadLocation(timezone); err != nil {
		return persistence.User{}, fmt.Errorf("invalid --%s %q: %w", timezoneFlagName, timezone, err)
	}

	hash, err := application.HashPassword(c.String(passwordFlagName))
	if err != nil {
		return persistence.User{}, fmt.Errorf("invalid --%s: %w", passwordFlagName, err)
	}

	displayName := strings.TrimSpace(c.String(displayNameFlagName))
	if displayName == "" {
		displayName = email
	}

	return persistence.User{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		IsAdmin:      c.Bool(adminFlagName),
		Timezone:     timezone,
		CreatedAt:    now.UTC(),
		UpdatedAt:    now.UTC(),
	}, nil
}
