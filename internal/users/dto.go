package users

import "github.com/angelmondragon/portal/pkg/db/models"

// UserDTO is the transport shape that omits credentials and the surrogate key.
type UserDTO struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	GameLevel string `json:"gameLevel"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
// Password is already encoded by the active credential policy.
type CreateUserDTO struct {
	UserID    string
	Username  string
	Password  string
	GameLevel string
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		UserID:    u.UserID,
		Username:  u.Username,
		GameLevel: u.GameLevel,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{
		UserID:    c.UserID,
		Username:  c.Username,
		Password:  c.Password,
		GameLevel: c.GameLevel,
	}
}
