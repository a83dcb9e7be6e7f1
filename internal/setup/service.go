package setup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/portal/internal/settings"
	"github.com/angelmondragon/portal/internal/userids"
	"github.com/angelmondragon/portal/internal/users"
	"github.com/angelmondragon/portal/pkg/db"
	"github.com/angelmondragon/portal/pkg/db/models"
	pkgerrors "github.com/angelmondragon/portal/pkg/errors"
	"github.com/angelmondragon/portal/pkg/security"
	"gorm.io/gorm"
)

// ErrSetupAlreadyCompleted is returned when setup has already run.
var ErrSetupAlreadyCompleted = settings.ErrAlreadyCompleted

// Service runs the one-time setup transaction.
type Service interface {
	Completed(ctx context.Context) (bool, error)
	Complete(ctx context.Context, req Request) (*users.UserDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userRepository interface {
	userids.Checker
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
}

type settingsRepository interface {
	SetupCompleted(ctx context.Context) (bool, error)
	MarkCompleted(ctx context.Context) error
}

type completionRecorder interface {
	IncSetupCompleted()
}

// ServiceParams bundles the dependencies required to build a setup service.
// The factories default to the gorm repositories bound to each transaction.
type ServiceParams struct {
	DB                  txRunner
	Settings            settingsRepository
	Hasher              security.Hasher
	IDs                 *userids.Generator
	Metrics             completionRecorder
	UserRepoFactory     func(tx *gorm.DB) userRepository
	SettingsRepoFactory func(tx *gorm.DB) settingsRepository
}

type service struct {
	db           txRunner
	settings     settingsRepository
	hasher       security.Hasher
	ids          *userids.Generator
	metrics      completionRecorder
	userRepo     func(tx *gorm.DB) userRepository
	settingsRepo func(tx *gorm.DB) settingsRepository
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client is required")
	}
	if params.Settings == nil {
		return nil, fmt.Errorf("settings repository is required")
	}
	if params.Hasher == nil {
		return nil, fmt.Errorf("password hasher is required")
	}
	if params.IDs == nil {
		return nil, fmt.Errorf("user id generator is required")
	}
	s := &service{
		db:           params.DB,
		settings:     params.Settings,
		hasher:       params.Hasher,
		ids:          params.IDs,
		metrics:      params.Metrics,
		userRepo:     params.UserRepoFactory,
		settingsRepo: params.SettingsRepoFactory,
	}
	if s.userRepo == nil {
		s.userRepo = func(tx *gorm.DB) userRepository { return users.NewRepository(tx) }
	}
	if s.settingsRepo == nil {
		s.settingsRepo = func(tx *gorm.DB) settingsRepository { return settings.NewRepository(tx) }
	}
	return s, nil
}

func (s *service) Completed(ctx context.Context) (bool, error) {
	done, err := s.settings.SetupCompleted(ctx)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read setup status")
	}
	return done, nil
}

// Complete creates the first user and flips the setup flag in one
// transaction. A userId collision with a concurrent writer retries the
// transaction up to the generator's attempt ceiling.
func (s *service) Complete(ctx context.Context, req Request) (*users.UserDTO, error) {
	if strings.TrimSpace(req.Username) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username is required").
			WithDetails(map[string]string{"username": "is required"})
	}
	if req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password is required").
			WithDetails(map[string]string{"password": "is required"})
	}

	stored, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	for attempt := 1; ; attempt++ {
		created, err := s.completeOnce(ctx, req, stored)
		switch {
		case err == nil:
			s.recordCompletion()
			return users.FromModel(created), nil
		case errors.Is(err, ErrSetupAlreadyCompleted):
			return nil, ErrSetupAlreadyCompleted
		case db.IsUniqueViolation(err, "userId") && attempt < s.ids.MaxAttempts():
			continue
		case db.IsUniqueViolation(err, "username"):
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "username already taken")
		case pkgerrors.As(err) != nil:
			return nil, err
		default:
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "complete setup")
		}
	}
}

func (s *service) completeOnce(ctx context.Context, req Request, stored string) (*models.User, error) {
	var created *models.User
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := s.userRepo(tx)
		settingsRepo := s.settingsRepo(tx)

		done, err := settingsRepo.SetupCompleted(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read setup status")
		}
		if done {
			return ErrSetupAlreadyCompleted
		}

		userID, err := s.ids.Generate(ctx, userRepo)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate user id")
		}

		created, err = userRepo.Create(ctx, users.CreateUserDTO{
			UserID:    userID,
			Username:  req.Username,
			Password:  stored,
			GameLevel: req.GameLevel,
		})
		if err != nil {
			return err
		}

		return settingsRepo.MarkCompleted(ctx)
	})
	return created, err
}

func (s *service) recordCompletion() {
	if s.metrics != nil {
		s.metrics.IncSetupCompleted()
	}
}
