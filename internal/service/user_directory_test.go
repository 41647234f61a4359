package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/payout-ledger/internal/models"
)

type mockUserDirectory struct {
	mock.Mock
}

func (m *mockUserDirectory) GetUsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.UserSummary, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]models.UserSummary), args.Error(1)
}

func TestCachedUserDirectory_LoadsMissesOnce(t *testing.T) {
	cache := NewCacheService(0)
	defer cache.Close()

	alice := models.UserSummary{ID: uuid.New(), DisplayName: "Alice"}
	bob := models.UserSummary{ID: uuid.New(), DisplayName: "Bob"}
	missing := uuid.New()

	backend := new(mockUserDirectory)
	backend.On("GetUsersByIDs", mock.Anything, []uuid.UUID{alice.ID, bob.ID, missing}).
		Return(map[uuid.UUID]models.UserSummary{alice.ID: alice, bob.ID: bob}, nil).Once()
	backend.On("GetUsersByIDs", mock.Anything, []uuid.UUID{missing}).
		Return(map[uuid.UUID]models.UserSummary{}, nil).Once()

	dir := NewCachedUserDirectory(backend, cache, time.Minute)

	got, err := dir.GetUsersByIDs(context.Background(), []uuid.UUID{alice.ID, bob.ID, alice.ID, missing, uuid.Nil})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = dir.GetUsersByIDs(context.Background(), []uuid.UUID{alice.ID, bob.ID, missing})
	require.NoError(t, err)
	assert.Equal(t, "Alice", got[alice.ID].DisplayName)
	assert.Equal(t, "Bob", got[bob.ID].DisplayName)
	_, found := got[missing]
	assert.False(t, found)

	backend.AssertExpectations(t)
}

func TestCachedUserDirectory_Invalidate(t *testing.T) {
	cache := NewCacheService(0)
	defer cache.Close()

	user := models.UserSummary{ID: uuid.New(), DisplayName: "Old name"}
	renamed := user
	renamed.DisplayName = "New name"

	backend := new(mockUserDirectory)
	backend.On("GetUsersByIDs", mock.Anything, []uuid.UUID{user.ID}).
		Return(map[uuid.UUID]models.UserSummary{user.ID: user}, nil).Once()
	backend.On("GetUsersByIDs", mock.Anything, []uuid.UUID{user.ID}).
		Return(map[uuid.UUID]models.UserSummary{user.ID: renamed}, nil).Once()

	dir := NewCachedUserDirectory(backend, cache, time.Minute)

	got, err := dir.GetUsersByIDs(context.Background(), []uuid.UUID{user.ID})
	require.NoError(t, err)
	assert.Equal(t, "Old name", got[user.ID].DisplayName)

	dir.Invalidate(user.ID)

	got, err = dir.GetUsersByIDs(context.Background(), []uuid.UUID{user.ID})
	require.NoError(t, err)
	assert.Equal(t, "New name", got[user.ID].DisplayName)
	backend.AssertExpectations(t)
}

func TestCachedUserDirectory_BackendError(t *testing.T) {
	cache := NewCacheService(0)
	defer cache.Close()

	backend := new(mockUserDirectory)
	backend.On("GetUsersByIDs", mock.Anything, mock.Anything).Return(nil, errors.New("down"))

	_, err := NewCachedUserDirectory(backend, cache, time.Minute).GetUsersByIDs(context.Background(), []uuid.UUID{uuid.New()})
	assert.Error(t, err)
}

func TestCacheService_Expiry(t *testing.T) {
	cache := NewCacheService(0)
	defer cache.Close()

	now := fixedNow
	cache.now = func() time.Time { return now }

	cache.Set("user:1", "a", time.Minute)
	cache.Set("user:2", "b", time.Hour)
	cache.Set("wallet:1", "c", time.Hour)

	v, ok := cache.Get("user:1")
	require.True(t, ok)
	assert.Equal(t, "a", v)

	now = now.Add(2 * time.Minute)
	_, ok = cache.Get("user:1")
	assert.False(t, ok)

	cache.InvalidateByPrefix("user:")
	_, ok = cache.Get("user:2")
	assert.False(t, ok)
	_, ok = cache.Get("wallet:1")
	assert.True(t, ok)

	cache.Delete("wallet:1")
	_, ok = cache.Get("wallet:1")
	assert.False(t, ok)
}
