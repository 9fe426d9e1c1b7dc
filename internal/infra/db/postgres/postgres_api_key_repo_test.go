//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"cardkey-service/internal/domain"
	"cardkey-service/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIKeyRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewAPIKeyRepo(testPool)

	t.Run("should create, record use, rotate and delete a key", func(t *testing.T) {
		cleanup(t)
		k, err := model.NewAPIKey("mobile", "KEY00000000000000000000000000001", "app")
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, nil, k))

		exists, err := repo.ExistsByName(ctx, nil, "mobile")
		require.NoError(t, err)
		assert.True(t, exists)

		n, err := repo.RecordUse(ctx, nil, k.ID, time.Now())
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		stats, err := repo.Stats(ctx, nil, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		assert.EqualValues(t, 1, stats.Total)
		assert.EqualValues(t, 1, stats.TotalCalls)
		assert.EqualValues(t, 1, stats.RecentActive)

		require.NoError(t, repo.Rotate(ctx, nil, k.ID, "KEY00000000000000000000000000002"))
		got, err := repo.FindByKey(ctx, nil, "KEY00000000000000000000000000002")
		require.NoError(t, err)
		assert.Zero(t, got.UseCount)
		assert.Nil(t, got.LastUseTime)

		require.NoError(t, repo.SetStatus(ctx, nil, k.ID, model.APIKeyDisabled))
		disabled := model.APIKeyDisabled
		cnt, err := repo.Count(ctx, nil, model.APIKeyFilter{Status: &disabled})
		require.NoError(t, err)
		assert.EqualValues(t, 1, cnt)

		require.NoError(t, repo.Delete(ctx, nil, k.ID))
		_, err = repo.FindByID(ctx, nil, k.ID)
		assert.ErrorIs(t, err, domain.ErrAPIKeyNotFound)
	})

	t.Run("should reject a duplicate name", func(t *testing.T) {
		cleanup(t)
		a, _ := model.NewAPIKey("dup", "KEYA", "")
		b, _ := model.NewAPIKey("dup", "KEYB", "")
		require.NoError(t, repo.Create(ctx, nil, a))
		assert.ErrorIs(t, repo.Create(ctx, nil, b), domain.ErrAlreadyExists)
	})
}

func TestSettingAndAdminRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	settings := NewSettingRepo(testPool)
	admins := NewAdminRepo(testPool)

	t.Run("should seed missing settings without overwriting existing ones", func(t *testing.T) {
		cleanup(t)
		require.NoError(t, settings.Upsert(ctx, nil, model.SettingAPIEnabled, "1"))
		require.NoError(t, settings.InsertMissing(ctx, nil, model.DefaultSettings()))

		s, err := settings.Get(ctx, nil, model.SettingAPIEnabled)
		require.NoError(t, err)
		assert.Equal(t, "1", s.Value)

		all, err := settings.All(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, all, len(model.DefaultSettings()))

		require.NoError(t, settings.Delete(ctx, nil, "site_title"))
		assert.ErrorIs(t, settings.Delete(ctx, nil, "site_title"), domain.ErrSettingNotFound)
	})

	t.Run("should save an admin and update login and password", func(t *testing.T) {
		cleanup(t)
		a, err := model.NewAdmin("", "root", "hash-1")
		require.NoError(t, err)
		require.NoError(t, admins.Save(ctx, nil, a))

		require.NoError(t, admins.UpdatePassword(ctx, nil, a.ID, "hash-2"))
		require.NoError(t, admins.TouchLogin(ctx, nil, a.ID, time.Now()))

		got, err := admins.FindByUsername(ctx, nil, "root")
		require.NoError(t, err)
		assert.Equal(t, "hash-2", got.PasswordHash)
		assert.NotNil(t, got.LastLogin)

		n, err := admins.Count(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}
