package model

import "errors"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrRefreshTokenMismatch means the presented refresh token is not the one stored for the user.
	ErrRefreshTokenMismatch = errors.New("refresh token mismatch")
)
