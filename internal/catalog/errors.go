package catalog

import "errors"

var (
	ErrInvalidCategory       = errors.New("invalid category")
	ErrInvalidToolDefinition = errors.New("invalid tool definition")
	ErrInvalidPackageUpdate  = errors.New("invalid package update")
)
