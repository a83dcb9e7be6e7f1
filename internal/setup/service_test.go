package setup

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/portal/internal/settings"
	"github.com/angelmondragon/portal/internal/userids"
	"github.com/angelmondragon/portal/internal/users"
	"github.com/angelmondragon/portal/pkg/db"
	"github.com/angelmondragon/portal/pkg/db/dbtest"
	"github.com/angelmondragon/portal/pkg/db/models"
	pkgerrors "github.com/angelmondragon/portal/pkg/errors"
	"github.com/angelmondragon/portal/pkg/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type countingRecorder struct{ completed int }

func (c *countingRecorder) IncSetupCompleted() { c.completed++ }

// blindUserRepo reports every id as free, as a writer racing another
// transaction would see it.
type blindUserRepo struct {
	*users.Repository
}

func (blindUserRepo) ExistsByUserID(context.Context, string) (bool, error) {
	return false, nil
}

func newTestService(t *testing.T, client *db.Client, opts ...func(*ServiceParams)) Service {
	t.Helper()
	params := ServiceParams{
		DB:       client,
		Settings: settings.NewRepository(client.DB()),
		Hasher:   security.Bcrypt{Cost: 4},
		IDs:      userids.NewGenerator(8),
	}
	for _, opt := range opts {
		opt(&params)
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	return svc
}

func TestCompleteCreatesUserAndFlipsFlag(t *testing.T) {
	client := dbtest.Open(t)
	ctx := context.Background()
	rec := &countingRecorder{}
	svc := newTestService(t, client, func(p *ServiceParams) { p.Metrics = rec })

	done, err := svc.Completed(ctx)
	require.NoError(t, err)
	assert.False(t, done)

	user, err := svc.Complete(ctx, Request{Username: "alice", Password: "secret", GameLevel: "1"})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Len(t, user.UserID, 7)
	assert.Equal(t, 1, rec.completed)

	done, err = svc.Completed(ctx)
	require.NoError(t, err)
	assert.True(t, done)

	var rows []models.User
	require.NoError(t, client.DB().Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "alice", rows[0].Username)
	assert.Equal(t, "1", rows[0].GameLevel)
	assert.NotEqual(t, "secret", rows[0].Password, "password must be stored hashed")
	ok, err := security.Bcrypt{}.Verify("secret", rows[0].Password)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCompleteIsOneShot(t *testing.T) {
	client := dbtest.Open(t)
	ctx := context.Background()
	svc := newTestService(t, client)

	_, err := svc.Complete(ctx, Request{Username: "alice", Password: "secret"})
	require.NoError(t, err)

	_, err = svc.Complete(ctx, Request{Username: "mallory", Password: "pw"})
	assert.ErrorIs(t, err, ErrSetupAlreadyCompleted)

	count, err := users.NewRepository(client.DB()).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCompleteValidation(t *testing.T) {
	client := dbtest.Open(t)
	svc := newTestService(t, client)

	for _, req := range []Request{{Password: "x"}, {Username: "  ", Password: "x"}, {Username: "alice"}} {
		_, err := svc.Complete(context.Background(), req)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "%+v: %v", req, err)
	}

	done, err := svc.Completed(context.Background())
	require.NoError(t, err)
	assert.False(t, done)
}

func TestCompleteRetriesOnUserIDCollision(t *testing.T) {
	client := dbtest.Open(t)
	ctx := context.Background()

	// A concurrent writer already holds 1000000.
	_, err := users.NewRepository(client.DB()).Create(ctx, users.CreateUserDTO{UserID: "1000000", Username: "racer", Password: "x"})
	require.NoError(t, err)

	draws := 0
	source := func(int) int {
		draws++
		if draws == 1 {
			return 0
		}
		return 1
	}
	svc := newTestService(t, client, func(p *ServiceParams) {
		p.IDs = userids.NewGenerator(4, userids.WithSource(source))
		p.UserRepoFactory = func(tx *gorm.DB) userRepository {
			return blindUserRepo{users.NewRepository(tx)}
		}
	})

	user, err := svc.Complete(ctx, Request{Username: "alice", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "1000001", user.UserID)
	assert.Equal(t, 2, draws)
}

func TestCompleteUsernameConflictRollsBack(t *testing.T) {
	client := dbtest.Open(t)
	ctx := context.Background()
	_, err := users.NewRepository(client.DB()).Create(ctx, users.CreateUserDTO{UserID: "5555555", Username: "alice", Password: "x"})
	require.NoError(t, err)

	svc := newTestService(t, client)
	_, err = svc.Complete(ctx, Request{Username: "alice", Password: "secret"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)

	done, err := svc.Completed(ctx)
	require.NoError(t, err)
	assert.False(t, done, "failed setup must not flip the flag")
}

func TestCompleteIDExhaustionIsInternal(t *testing.T) {
	client := dbtest.Open(t)
	ctx := context.Background()
	_, err := users.NewRepository(client.DB()).Create(ctx, users.CreateUserDTO{UserID: "1000000", Username: "taken", Password: "x"})
	require.NoError(t, err)

	svc := newTestService(t, client, func(p *ServiceParams) {
		p.IDs = userids.NewGenerator(3, userids.WithSource(func(int) int { return 0 }))
	})
	_, err = svc.Complete(ctx, Request{Username: "alice", Password: "secret"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, userids.ErrIDSpaceExhausted))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))

	done, err := svc.Completed(ctx)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestCompletedReadFailure(t *testing.T) {
	client, mock := dbtest.Mock(t)
	mock.ExpectQuery(`SELECT .* FROM "settings"`).WillReturnError(errors.New("connection reset"))

	svc := newTestService(t, client)
	_, err := svc.Completed(context.Background())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.Error(t, err)
}
