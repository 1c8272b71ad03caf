package directory

import "errors"

var (
	ErrUnauthenticated        = errors.New("unauthenticated")
	ErrEmailTaken             = errors.New("email already registered")
	ErrInvalidEmail           = errors.New("invalid email")
	ErrInvalidPassword        = errors.New("invalid password")
	ErrProfileNotFound        = errors.New("profile not found")
	ErrProfileAnonymized      = errors.New("profile anonymized")
	ErrInvalidDirectoryConfig = errors.New("invalid directory config")
)
