package platform

import (
	"errors"
)

// ErrAlreadyRunning is an error returned when a job can't be started because previous job of the same tenant is not finished yet.
var ErrAlreadyRunning = errors.New("publishing already running for this tenant")

// ErrMissingCredentials is an error returned when job configuration has no e-Vend email or password.
var ErrMissingCredentials = errors.New("missing e-Vend email or password")

// ErrElementNotFound is an error returned by browsers when no element matches a selector.
var ErrElementNotFound = errors.New("element not found on page")
