package models

import "errors"

var (
	ErrUnknownSymbol        = errors.New("unknown symbol")
	ErrProviderUnavailable  = errors.New("quote provider unavailable")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
	ErrAuthentication       = errors.New("invalid username and/or password")
	ErrDuplicateUsername    = errors.New("username already exists")
	ErrBlankField           = errors.New("required field is blank")
	ErrPasswordMismatch     = errors.New("passwords do not match")
	ErrUserNotFound         = errors.New("user not found")
)

// ValidationError is a user-correctable input problem. Msg is safe to show to
// the user. Err optionally carries one of the sentinels above so callers can
// tell the variants apart with errors.Is.
type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Invalid builds a ValidationError for field.
func Invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Msg: msg}
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
