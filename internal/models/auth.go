package models

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by both /auth/login and /auth/register.
type AuthResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

// ErrorResponse is the optional body of a non-2xx backend reply.
type ErrorResponse struct {
	Message string `json:"message"`
}
