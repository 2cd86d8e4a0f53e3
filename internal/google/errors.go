package google

import (
	"errors"
	"fmt"
)

// ErrAuthenticationRequired marks errors that can only be resolved by an
// operator running the interactive login.
var ErrAuthenticationRequired = errors.New("authentication required")

// AuthReason says why a request could not obtain a usable credential.
type AuthReason string

const (
	ReasonNoCredential   AuthReason = "no_credential"
	ReasonNoRefreshToken AuthReason = "no_refresh_token"
	ReasonRefreshFailed  AuthReason = "refresh_failed"
	ReasonNoClientConfig AuthReason = "no_client_config"
)

// AuthRequiredError is returned by the headless path instead of prompting.
type AuthRequiredError struct {
	UserID string
	Reason AuthReason
	Err    error
}

func (e *AuthRequiredError) Error() string {
	msg := fmt.Sprintf("authentication required for %s (%s): run `calendar-mcp auth login --user %s` to authorize this account",
		e.UserID, e.Reason, e.UserID)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches ErrAuthenticationRequired.
func (e *AuthRequiredError) Is(target error) bool {
	return target == ErrAuthenticationRequired
}

func (e *AuthRequiredError) Unwrap() error {
	return e.Err
}

// IsAuthRequired reports whether err asks for an interactive login.
func IsAuthRequired(err error) bool {
	return errors.Is(err, ErrAuthenticationRequired)
}
