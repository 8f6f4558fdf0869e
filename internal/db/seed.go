package db

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/todohub/internal/config"
	"github.com/geocoder89/todohub/internal/domain/user"
	"github.com/geocoder89/todohub/internal/security"
	"github.com/google/uuid"
)

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
}

// EnsureSeedUser creates the configured demo account once. It is a no-op when
// no seed credentials are configured or the account already exists.
func EnsureSeedUser(ctx context.Context, users UserStore, cfg config.Config) (created bool, err error) {
	if cfg.SeedUserEmail == "" || cfg.SeedUserPassword == "" {
		return false, nil
	}

	// check if the user exists
	_, err = users.GetByEmail(ctx, cfg.SeedUserEmail)

	if err == nil {
		return false, nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return false, err
	}

	hash, err := security.HashPassword(cfg.SeedUserPassword)

	if err != nil {
		return false, err
	}

	now := time.Now().UTC().Truncate(time.Millisecond)

	_, err = users.Create(ctx, user.User{
		ID:           uuid.NewString(),
		Name:         cfg.SeedUserName,
		Email:        cfg.SeedUserEmail,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})

	// another instance may have won the race
	if errors.Is(err, user.ErrEmailTaken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}
