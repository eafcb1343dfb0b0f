package entity

import "errors"

var (
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrInvalidPassword = errors.New("password must be between 8 and 255 characters")
)
