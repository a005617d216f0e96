package decoder

import "errors"

// ErrEmptyFile is an error returned when listings file has no data rows.
var ErrEmptyFile = errors.New("listings file has no rows")

// ErrMissingHeader is an error returned when listings file has no recognized column.
var ErrMissingHeader = errors.New("listings file has no recognized column")
