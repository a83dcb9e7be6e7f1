package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/portal/pkg/db/dbtest"
	"github.com/angelmondragon/portal/pkg/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSetupCompletedStartsFalse(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())

	done, err := repo.SetupCompleted(context.Background())
	require.NoError(t, err)
	assert.False(t, done)
}

func TestMissingRowReadsFalse(t *testing.T) {
	client := dbtest.Open(t)
	ctx := context.Background()
	require.NoError(t, client.DB().Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Settings{}).Error)

	repo := NewRepository(client.DB())
	done, err := repo.SetupCompleted(ctx)
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, repo.MarkCompleted(ctx), "missing row should be created")
	done, err = repo.SetupCompleted(ctx)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestMarkCompletedFlipsOnce(t *testing.T) {
	client := dbtest.Open(t)
	ctx := context.Background()
	repo := NewRepository(client.DB())

	require.NoError(t, repo.MarkCompleted(ctx))
	done, err := repo.SetupCompleted(ctx)
	require.NoError(t, err)
	assert.True(t, done)

	err = repo.MarkCompleted(ctx)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)

	var count int64
	require.NoError(t, client.DB().Model(&models.Settings{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "settings must stay a singleton")
}

func TestMarkCompletedInsideRolledBackTx(t *testing.T) {
	client := dbtest.Open(t)
	ctx := context.Background()
	repo := NewRepository(client.DB())

	boom := errors.New("boom")
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := repo.WithTx(tx).MarkCompleted(ctx); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	done, err := repo.SetupCompleted(ctx)
	require.NoError(t, err)
	assert.False(t, done, "rolled back flip must not persist")
}

func TestSetupCompletedReadFailure(t *testing.T) {
	client, mock := dbtest.Mock(t)
	mock.ExpectQuery(`SELECT .* FROM "settings"`).WillReturnError(errors.New("disk I/O error"))

	_, err := NewRepository(client.DB()).SetupCompleted(context.Background())
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
