package auth

// LoginRequest captures the credentials posted to the login form. Empty
// fields are rejected as invalid credentials rather than validation errors.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
