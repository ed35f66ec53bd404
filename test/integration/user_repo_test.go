//go:build integration

package integration

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-user-auth/internal/model"
)

func TestUserRepositoryCreateAndFind(t *testing.T) {
	repo, _ := newRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newUser("u-1", "ab1", "a@b.com")))

	byID, err := repo.FindByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "ab1", byID.Username)
	assert.Nil(t, byID.RefreshTokenHash)

	byEmail, err := repo.FindByIdentifier(ctx, "", "A@B.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", byEmail.ID)

	_, err = repo.FindByIdentifier(ctx, "", "")
	assert.ErrorIs(t, err, model.ErrUserNotFound)

	exists, err := repo.ExistsByUsernameOrEmail(ctx, "AB1", "nobody@b.com")
	require.NoError(t, err)
	assert.True(t, exists)

	err = repo.Create(ctx, newUser("u-2", "AB1", "c@d.com"))
	assert.ErrorIs(t, err, model.ErrUserAlreadyExists)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}

func TestUserRepositoryRefreshTokenLifecycle(t *testing.T) {
	repo, _ := newRepository(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newUser("u-1", "ab1", "a@b.com")))

	require.NoError(t, repo.SetRefreshToken(ctx, "u-1", "h1"))

	swapped, err := repo.SwapRefreshToken(ctx, "u-1", "stale", "h2")
	require.NoError(t, err)
	assert.False(t, swapped)

	swapped, err = repo.SwapRefreshToken(ctx, "u-1", "h1", "h2")
	require.NoError(t, err)
	assert.True(t, swapped)

	u, err := repo.FindByID(ctx, "u-1")
	require.NoError(t, err)
	require.NotNil(t, u.RefreshTokenHash)
	assert.Equal(t, "h2", *u.RefreshTokenHash)

	require.NoError(t, repo.ClearRefreshToken(ctx, "u-1"))
	require.NoError(t, repo.ClearRefreshToken(ctx, "u-1"))

	swapped, err = repo.SwapRefreshToken(ctx, "u-1", "h2", "h3")
	require.NoError(t, err)
	assert.False(t, swapped)
}

func TestUserRepositoryConcurrentSwap(t *testing.T) {
	repo, _ := newRepository(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newUser("u-1", "ab1", "a@b.com")))
	require.NoError(t, repo.SetRefreshToken(ctx, "u-1", "start"))

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			swapped, err := repo.SwapRefreshToken(ctx, "u-1", "start", "next-"+string(rune('a'+n)))
			assert.NoError(t, err)
			results <- swapped
		}(i)
	}
	wg.Wait()
	close(results)

	wins := 0
	for swapped := range results {
		if swapped {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
}
