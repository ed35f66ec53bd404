package service

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-user-auth/internal/media"
	"go-user-auth/internal/model"
	"go-user-auth/internal/repository/repositorytest"
)

const (
	testAccessSecret  = "test-access-secret"
	testRefreshSecret = "test-refresh-secret"
)

func newTestTokenService(t *testing.T, users UserStore) *TokenService {
	t.Helper()

	tokens, err := NewTokenService(users, testAccessSecret, testRefreshSecret, 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)
	return tokens
}

func newTestAuthService(t *testing.T) (*AuthService, *repositorytest.UserStore, *media.MockUploader) {
	t.Helper()

	users := repositorytest.NewUserStore()
	uploader := new(media.MockUploader)
	return NewAuthService(users, newTestTokenService(t, users), uploader, bcrypt.MinCost), users, uploader
}

func writeTestImage(t *testing.T, name string) string {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func seedUser(t *testing.T, users *repositorytest.UserStore, username string, email string, password string) model.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := model.User{
		ID:           "user-" + username,
		Username:     username,
		Email:        email,
		FullName:     "Seeded User",
		PasswordHash: string(hash),
		AvatarURL:    "https://cdn.example.com/" + username + ".png",
	}
	require.NoError(t, users.Create(context.Background(), user))
	return user
}

func storedHash(t *testing.T, users *repositorytest.UserStore, id string) *string {
	t.Helper()

	u, err := users.FindByID(context.Background(), id)
	require.NoError(t, err)
	return u.RefreshTokenHash
}
