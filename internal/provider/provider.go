package provider

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingCredentials = errors.New("username and password are required")
	ErrNoRefreshToken     = errors.New("no refresh token available")
	ErrEmptyResponse      = errors.New("backend returned an incomplete response")
)
