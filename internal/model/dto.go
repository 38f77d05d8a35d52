package model

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User   User      `json:"user"`
	Tokens TokenPair `json:"tokens"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

type RefreshResponse struct {
	Access string `json:"access"`
}

// LoginResult is what the session hands back to callers; login never fails with an error.
type LoginResult struct {
	Success bool
	User    *User
	Error   string
}

type ProfileResult struct {
	Success bool
	User    *User
	Error   string
}
