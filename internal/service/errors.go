package service

import "errors"

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")

	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrAccountCreation     = errors.New("account creation failed")
	ErrPrivilegeEscalation = errors.New("admin role cannot be self-assigned")
	ErrAccountNotFound     = errors.New("account not found")

	ErrSearchUnavailable = errors.New("search is not configured")
)
