package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/hostelhub/internal/app/models"
	"github.com/yigit/hostelhub/internal/pkg/apperrors"
)

// AccountWriter is the part of the account store the seed needs
type AccountWriter interface {
	UsernameExists(ctx context.Context, username string) (bool, error)
	CreateUser(ctx context.Context, user *models.User) error
}

// Admin describes the bootstrap administrator
type Admin struct {
	Username string
	Password string
}

// CreateDefaultData creates the administrator account on first start. An empty password
// disables seeding; an existing account is left untouched.
func CreateDefaultData(ctx context.Context, accounts AccountWriter, admin Admin, hash func(string) (string, error), lgr zerolog.Logger) error {
	username := strings.ToLower(strings.TrimSpace(admin.Username))
	if username == "" || admin.Password == "" {
		lgr.Info().Msg("No seed admin credentials configured, skipping default data")
		return nil
	}

	exists, err := accounts.UsernameExists(ctx, username)
	if err != nil {
		return fmt.Errorf("error checking seed admin: %w", err)
	}
	if exists {
		lgr.Debug().Str("username", username).Msg("Seed admin already exists")
		return nil
	}

	hashed, err := hash(admin.Password)
	if err != nil {
		return fmt.Errorf("error hashing seed admin password: %w", err)
	}

	user := &models.User{
		Username: username,
		Password: hashed,
		FullName: "Administrator",
		RoleType: models.RoleAdmin,
		IsActive: true,
	}
	if err := accounts.CreateUser(ctx, user); err != nil {
		// Another instance seeded it first.
		if errors.Is(err, apperrors.ErrUsernameTaken) {
			return nil
		}
		return fmt.Errorf("error creating seed admin: %w", err)
	}

	lgr.Info().Str("username", username).Int64("userID", user.ID).Msg("Seed admin created")
	return nil
}
