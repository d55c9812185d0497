package services

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/yigit/hostelhub/internal/app/models"
	"github.com/yigit/hostelhub/internal/app/models/dto"
	"github.com/yigit/hostelhub/internal/pkg/apperrors"
)

type staticTokens struct{}

func (staticTokens) GenerateAccessToken(user *models.User) (string, int64, error) {
	return "token-for-" + user.Username, 3600, nil
}

func fakeCheck(hashed, password string) bool {
	return hashed == "hashed:"+password
}

func TestLogin(t *testing.T) {
	freezeTime(t, march2025)
	f := newFixture(t)
	ctx := context.Background()
	auth := NewAuthService(f.store, staticTokens{}, fakeCheck, zerolog.Nop())

	hostelID := int64(3)
	manager := &models.User{Username: "warden", Password: "hashed:s3cret!", FullName: "Warden", RoleType: models.RoleManager, HostelID: &hostelID, IsActive: true}
	disabled := &models.User{Username: "former", Password: "hashed:s3cret!", RoleType: models.RoleManager, IsActive: false}
	for _, u := range []*models.User{manager, disabled} {
		if err := f.store.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser() error = %v", err)
		}
	}

	tests := []struct {
		name    string
		req     dto.LoginRequest
		wantErr error
	}{
		{"valid", dto.LoginRequest{Username: " Warden ", Password: "s3cret!"}, nil},
		{"wrong password", dto.LoginRequest{Username: "warden", Password: "guess"}, apperrors.ErrInvalidCredentials},
		{"unknown user", dto.LoginRequest{Username: "nobody", Password: "s3cret!"}, apperrors.ErrInvalidCredentials},
		{"inactive account", dto.LoginRequest{Username: "former", Password: "s3cret!"}, apperrors.ErrInvalidCredentials},
		{"empty password", dto.LoginRequest{Username: "warden"}, apperrors.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := auth.Login(ctx, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Login() error = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got.Token.AccessToken != "token-for-warden" || got.Token.TokenType != "Bearer" || got.Token.ExpiresIn != 3600 {
				t.Errorf("token = %+v", got.Token)
			}
			if got.User.Role != "MANAGER" || got.User.HostelID == nil || *got.User.HostelID != 3 {
				t.Errorf("user = %+v", got.User)
			}
		})
	}

	stored, err := f.store.GetUserByID(ctx, manager.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if stored.LastLoginAt == nil || !stored.LastLoginAt.Equal(march2025) {
		t.Errorf("LastLoginAt = %v, want %v", stored.LastLoginAt, march2025)
	}
}
