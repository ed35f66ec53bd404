//go:build integration

package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-user-auth/internal/database"
	"go-user-auth/internal/model"
	"go-user-auth/internal/repository"
)

// newRepository connects to TEST_DATABASE_URL, applies migrations and empties
// the users table.
func newRepository(t *testing.T) (*repository.UserRepository, *database.DB) {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, database.PoolConfig{URL: url, MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.Migrate(ctx))
	_, err = db.Pool.Exec(ctx, "TRUNCATE users")
	require.NoError(t, err)

	return repository.NewUserRepository(db.Pool), db
}

func newUser(id string, username string, email string) model.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return model.User{
		ID:           id,
		Username:     username,
		Email:        email,
		FullName:     "Integration User",
		PasswordHash: "$2a$04$placeholderplaceholderplaceholderplaceholderplaceho",
		AvatarURL:    "https://cdn.example.com/" + username + ".png",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
