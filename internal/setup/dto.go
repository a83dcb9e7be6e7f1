package setup

// Request is the first-run form that creates the initial account.
type Request struct {
	Username  string `json:"username" validate:"required"`
	Password  string `json:"password" validate:"required"`
	GameLevel string `json:"gameLevel"`
}
