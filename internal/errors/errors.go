package errors

import (
	"errors"
	"fmt"
)

// Error kinds shared across the service. The HTTP layer maps these onto
// responses; components below the session manager only report facts.
var (
	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized") // no usable session, caller must re-authenticate

	// Upstream errors
	ErrTransient = errors.New("transient upstream failure") // token endpoint or store unreachable, retry later

	// Configuration errors
	ErrMisconfigured = errors.New("missing required configuration")

	// Session errors
	ErrCorrupted       = errors.New("corrupted session record")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")

	// Store errors
	ErrNotFound = errors.New("not found")
)

// ProviderRejection reports a definitive non-2xx answer from the OAuth token
// endpoint. It carries the provider's HTTP status and raw error body so the
// session manager can decide policy (a rejected refresh token is a hard
// session-kill signal, not a transient failure).
type ProviderRejection struct {
	StatusCode int
	Body       []byte
}

func (e *ProviderRejection) Error() string {
	return fmt.Sprintf("provider rejected token request: status %d: %s", e.StatusCode, e.Body)
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
