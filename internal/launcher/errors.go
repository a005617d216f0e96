package launcher

import "errors"

// ErrFileTooLarge is an error returned when listings file has more rows than allowed per file.
var ErrFileTooLarge = errors.New("too many listings in file")

// ErrQuotaExceeded is an error returned when tenant's daily import limit would be exceeded.
var ErrQuotaExceeded = errors.New("daily import limit exceeded")
