package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/portal/internal/users"
	"github.com/angelmondragon/portal/pkg/db/models"
	pkgerrors "github.com/angelmondragon/portal/pkg/errors"
	"github.com/angelmondragon/portal/pkg/metrics"
	"github.com/angelmondragon/portal/pkg/security"
	"gorm.io/gorm"
)

// InvalidCredentialsMessage is the single response for every failed login.
const InvalidCredentialsMessage = "Invalid username or password."

const dummyPassword = "portal-timing-equalizer"

// Service defines the behavior needed by the login controller.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*users.UserDTO, error)
}

type userRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

type loginRecorder interface {
	ObserveLogin(outcome string)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo userRepository
	Hasher   security.Hasher
	Metrics  loginRecorder
}

type service struct {
	users   userRepository
	hasher  security.Hasher
	metrics loginRecorder
	dummy   string
}

// NewService constructs a login service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Hasher == nil {
		return nil, fmt.Errorf("password hasher is required")
	}
	dummy, err := params.Hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("hashing dummy credential: %w", err)
	}
	return &service{
		users:   params.UserRepo,
		hasher:  params.Hasher,
		metrics: params.Metrics,
		dummy:   dummy,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*users.UserDTO, error) {
	user, err := s.authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
			s.observe(metrics.LoginInvalid)
		} else {
			s.observe(metrics.LoginError)
		}
		return nil, err
	}
	s.observe(metrics.LoginSuccess)
	return users.FromModel(user), nil
}

func (s *service) authenticate(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, InvalidCredentialsMessage)
	}
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Spend the same hashing work as a real check.
			_, _ = s.hasher.Verify(password, s.dummy)
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, InvalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := s.hasher.Verify(password, user.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, InvalidCredentialsMessage)
	}
	return user, nil
}

func (s *service) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveLogin(outcome)
	}
}
