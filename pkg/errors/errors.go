package errors

import "errors"

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameExists     = errors.New("username already exists")
	ErrEmailExists        = errors.New("email already in use")
	ErrNilAccount         = errors.New("account is nil")

	ErrTokenMalformed   = errors.New("token is malformed")
	ErrInvalidSignature = errors.New("token signature is invalid")
	ErrTokenExpired     = errors.New("token is expired")
	ErrLogoutFailed     = errors.New("token already invalid or malformed")

	ErrInvalidVerifyCode = errors.New("invalid or expired verification code")
	ErrCodeRequestLimit  = errors.New("verification code requested too frequently")
	ErrTooManyRequests   = errors.New("too many requests")

	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
)
