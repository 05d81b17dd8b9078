package domain

import "errors"

var (
	ErrBugNotFound        = errors.New("bug not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("username already exists")
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("access forbidden")
	ErrCannotDeleteSelf   = errors.New("cannot delete your own account")
	ErrInvalidOAuthState  = errors.New("invalid or expired oauth state")
	ErrOAuthNotConfigured = errors.New("google oauth is not configured")
	ErrTokenRevoked       = errors.New("token has been revoked")
)

// ValidationError reports a request that failed a business rule before it
// reached persistence.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
