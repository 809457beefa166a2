package domain

import "errors"

var (
	// ErrUserNotFound indicates the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken indicates the username is already registered.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrPostNotFound indicates the referenced post does not exist.
	ErrPostNotFound = errors.New("post not found")
	// ErrStorageUnavailable indicates the backing medium is unreadable,
	// unwritable or corrupt.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
