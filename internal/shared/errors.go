package shared

import "errors"

var (
	// ErrOutletNotGranted indicates an outlet id outside the
	// principal's grant list.
	ErrOutletNotGranted = errors.New("outlet not granted")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
