package domain

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the record exists but belongs to another user.
	ErrForbidden = errors.New("forbidden")
	// ErrUserExists is returned when registering an already-taken username.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials covers both unknown username and wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrValidation marks client input errors; wrap it with detail.
	ErrValidation = errors.New("validation failed")
)
