package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrConflict           = errors.New("concurrent modification")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")

	// Card management errors
	ErrCardNotFound      = errors.New("card not found")
	ErrCardAlreadyOff    = errors.New("card is already disabled")
	ErrCardNotDisabled   = errors.New("card is not disabled")
	ErrCardNotBound      = errors.New("card is not bound to a device")
	ErrCardTypeMismatch  = errors.New("operation not supported for this card type")
	ErrKeyGenerationFail = errors.New("could not generate unique card keys")

	// Admin / API key errors
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrWrongPassword      = errors.New("old password is incorrect")
	ErrAPIKeyNotFound     = errors.New("api key not found")
	ErrAPIKeyDisabled     = errors.New("api key is disabled")
	ErrSettingNotFound    = errors.New("setting not found")
)
