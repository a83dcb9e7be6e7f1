package security

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/angelmondragon/portal/pkg/config"
	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPassword is returned when hashing an empty password.
var ErrEmptyPassword = errors.New("password cannot be empty")

// Hasher turns passwords into stored credentials and checks them back.
// Verify reports false, without error, for stored values not in the
// hasher's format.
type Hasher interface {
	Name() string
	Hash(password string) (string, error)
	Verify(password, stored string) (bool, error)
}

// NewHasher picks the credential policy configured at startup.
func NewHasher(cfg config.PasswordConfig) (Hasher, error) {
	switch cfg.NormalizedPolicy() {
	case config.PasswordPolicyArgon2id:
		return Argon2id{cfg: cfg}, nil
	case config.PasswordPolicyBcrypt:
		return Bcrypt{Cost: cfg.BcryptCost}, nil
	case config.PasswordPolicyPlaintext:
		return Plaintext{}, nil
	default:
		return nil, fmt.Errorf("unknown password policy %q", cfg.Policy)
	}
}

// Argon2id stores "$argon2id$v=19$m=..,t=..,p=..$salt$hash" strings.
type Argon2id struct {
	cfg config.PasswordConfig
}

func (Argon2id) Name() string { return config.PasswordPolicyArgon2id }

func (a Argon2id) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	return HashPassword(password, a.cfg)
}

func (Argon2id) Verify(password, stored string) (bool, error) {
	ok, err := VerifyPassword(password, stored)
	if errors.Is(err, ErrInvalidHash) {
		return false, nil
	}
	return ok, err
}

type Bcrypt struct {
	Cost int
}

func (Bcrypt) Name() string { return config.PasswordPolicyBcrypt }

func (b Bcrypt) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.cost())
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(hash), nil
}

func (Bcrypt) Verify(password, stored string) (bool, error) {
	if err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)); err != nil {
		return false, nil
	}
	return true, nil
}

func (b Bcrypt) cost() int {
	if b.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return clampInt(b.Cost, bcrypt.MinCost, bcrypt.MaxCost)
}

// Plaintext keeps passwords verbatim. Legacy databases only.
type Plaintext struct{}

func (Plaintext) Name() string { return config.PasswordPolicyPlaintext }

func (Plaintext) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	return password, nil
}

func (Plaintext) Verify(password, stored string) (bool, error) {
	return subtle.ConstantTimeCompare([]byte(password), []byte(stored)) == 1, nil
}
