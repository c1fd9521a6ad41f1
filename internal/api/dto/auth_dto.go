package dto

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"user_email"`
	Password string `json:"password"`
}

// LoginResponse is returned alongside the token cookie.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// MeResponse describes the caller's validated identity.
type MeResponse struct {
	SubjectID string   `json:"subject_id"`
	Roles     []string `json:"roles"`
}
